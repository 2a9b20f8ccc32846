package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"arbiter/contexts/marketplace/job-escrow/domain/entities"
	domainerrors "arbiter/contexts/marketplace/job-escrow/domain/errors"
	"arbiter/contexts/marketplace/job-escrow/ports"

	"github.com/google/uuid"
)

type Store struct {
	mu         sync.RWMutex
	jobs       map[string]entities.Job
	operations map[string]entities.DisputeOperation
}

func NewStore() *Store {
	return &Store{
		jobs:       make(map[string]entities.Job),
		operations: make(map[string]entities.DisputeOperation),
	}
}

func (s *Store) CreateJob(_ context.Context, job entities.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.JobID]; exists {
		return domainerrors.ErrJobExists
	}
	s.jobs[job.JobID] = job.Clone()
	return nil
}

func (s *Store) SaveJob(_ context.Context, job entities.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobID] = job.Clone()
	return nil
}

func (s *Store) GetJob(_ context.Context, jobID string) (entities.Job, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[strings.TrimSpace(jobID)]
	if !ok {
		return entities.Job{}, false, nil
	}
	return job.Clone(), true, nil
}

func (s *Store) ListJobs(_ context.Context) ([]entities.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		items = append(items, job.Clone())
	}
	return items, nil
}

func (s *Store) SaveOperation(_ context.Context, operation entities.DisputeOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operations[operation.OperationID] = operation
	return nil
}

func (s *Store) GetOperation(_ context.Context, operationID string) (entities.DisputeOperation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	operation, ok := s.operations[strings.TrimSpace(operationID)]
	return operation, ok, nil
}

func (s *Store) HasPendingOperation(_ context.Context, jobID string, kind entities.OperationKind) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobID = strings.TrimSpace(jobID)
	for _, operation := range s.operations {
		if operation.JobID == jobID && operation.Kind == kind && operation.Pending() {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.JobRepository = (*Store)(nil)
var _ ports.OperationRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
