package queries

import (
	"context"
	"sort"
	"strings"

	"arbiter/contexts/marketplace/job-escrow/domain/entities"
	"arbiter/contexts/marketplace/job-escrow/ports"
)

type JobQueries struct {
	Jobs       ports.JobRepository
	Operations ports.OperationRepository
}

func (q JobQueries) GetJob(ctx context.Context, jobID string) (entities.Job, bool, error) {
	return q.Jobs.GetJob(ctx, strings.TrimSpace(jobID))
}

// ListJobs returns jobs oldest first, optionally filtered by derived status.
func (q JobQueries) ListJobs(ctx context.Context, status entities.JobStatus) ([]entities.Job, error) {
	jobs, err := q.Jobs.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]entities.Job, 0, len(jobs))
	for _, job := range jobs {
		if status != "" && job.Status() != status {
			continue
		}
		items = append(items, job)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].JobID < items[j].JobID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (q JobQueries) GetOperation(ctx context.Context, operationID string) (entities.DisputeOperation, bool, error) {
	return q.Operations.GetOperation(ctx, strings.TrimSpace(operationID))
}
