package httpadapter

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"arbiter/contexts/marketplace/job-escrow/application/commands"
	"arbiter/contexts/marketplace/job-escrow/application/queries"
	"arbiter/contexts/marketplace/job-escrow/domain/entities"
	domainerrors "arbiter/contexts/marketplace/job-escrow/domain/errors"
	httptransport "arbiter/contexts/marketplace/job-escrow/transport/http"
	"arbiter/internal/shared/events"
)

type Handler struct {
	Jobs     commands.JobUseCase
	Disputes commands.DisputeUseCase
	Queries  queries.JobQueries
	Logger   *slog.Logger
}

func (h Handler) OpenJobHandler(ctx context.Context, creator string, req httptransport.OpenJobRequest) (httptransport.JobResponse, error) {
	job, err := h.Jobs.Open(ctx, commands.OpenJobCommand{JobID: req.JobID, Creator: creator, Budget: req.Budget})
	if err != nil {
		return httptransport.JobResponse{}, err
	}
	return mapJob(job), nil
}

func (h Handler) ListJobsHandler(ctx context.Context, status string) (httptransport.ListJobsResponse, error) {
	jobs, err := h.Queries.ListJobs(ctx, entities.JobStatus(status))
	if err != nil {
		return httptransport.ListJobsResponse{}, err
	}
	resp := httptransport.ListJobsResponse{Items: make([]httptransport.JobResponse, 0, len(jobs))}
	for _, job := range jobs {
		resp.Items = append(resp.Items, mapJob(job))
	}
	return resp, nil
}

func (h Handler) GetJobHandler(ctx context.Context, jobID string) (httptransport.JobResponse, error) {
	job, found, err := h.Queries.GetJob(ctx, jobID)
	if err != nil {
		return httptransport.JobResponse{}, err
	}
	if !found {
		return httptransport.JobResponse{}, domainerrors.ErrJobNotFound
	}
	return mapJob(job), nil
}

func (h Handler) ClaimJobHandler(ctx context.Context, jobID string, party string) (httptransport.JobResponse, error) {
	job, err := h.Jobs.Claim(ctx, commands.ClaimJobCommand{JobID: jobID, Party: party})
	if err != nil {
		return httptransport.JobResponse{}, err
	}
	return mapJob(job), nil
}

func (h Handler) StartJobHandler(
	ctx context.Context,
	jobID string,
	caller string,
	req httptransport.CounterpartyRequest,
) (httptransport.JobResponse, error) {
	job, err := h.Jobs.Start(ctx, commands.StartJobCommand{JobID: jobID, Counterparty: req.Counterparty, Caller: caller})
	if err != nil {
		return httptransport.JobResponse{}, err
	}
	return mapJob(job), nil
}

func (h Handler) CompleteJobHandler(
	ctx context.Context,
	jobID string,
	caller string,
	req httptransport.CompleteRequest,
) (httptransport.JobResponse, error) {
	job, err := h.Jobs.MarkComplete(ctx, commands.MarkCompleteCommand{JobID: jobID, Caller: caller, Success: req.Success})
	if err != nil {
		return httptransport.JobResponse{}, err
	}
	return mapJob(job), nil
}

func (h Handler) EndJobHandler(
	ctx context.Context,
	jobID string,
	caller string,
	req httptransport.CounterpartyRequest,
) (httptransport.EndJobResponse, error) {
	result, err := h.Jobs.End(ctx, commands.EndJobCommand{JobID: jobID, Counterparty: req.Counterparty, Caller: caller})
	if err != nil {
		return httptransport.EndJobResponse{}, err
	}
	resp := httptransport.EndJobResponse{
		Job:     mapJob(result.Job),
		Payouts: make([]httptransport.PayoutDTO, 0, len(result.Payouts)),
	}
	for _, payout := range result.Payouts {
		resp.Payouts = append(resp.Payouts, httptransport.PayoutDTO{
			Recipient:    payout.Recipient,
			Amount:       payout.Amount,
			SettlementID: payout.SettlementID,
			Error:        payout.Error,
		})
	}
	return resp, nil
}

func (h Handler) OpenDisputeHandler(
	ctx context.Context,
	jobID string,
	caller string,
	req httptransport.OpenDisputeRequest,
) (httptransport.OperationResponse, error) {
	options := make([]events.PollOption, 0, len(req.Options))
	for _, option := range req.Options {
		options = append(options, events.PollOption{OptionID: option.OptionID, Label: option.Label})
	}
	operation, err := h.Disputes.OpenDispute(ctx, commands.OpenDisputeCommand{
		JobID:        jobID,
		Counterparty: req.Counterparty,
		Question:     req.Question,
		Options:      options,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		Caller:       caller,
	})
	if err != nil {
		return httptransport.OperationResponse{}, err
	}
	return mapOperation(operation), nil
}

func (h Handler) ResolveDisputeHandler(
	ctx context.Context,
	jobID string,
	caller string,
	req httptransport.ResolveDisputeRequest,
) (httptransport.OperationResponse, error) {
	operation, err := h.Disputes.ResolveDispute(ctx, commands.ResolveDisputeCommand{
		JobID:        jobID,
		Counterparty: req.Counterparty,
		PollID:       req.PollID,
		Caller:       caller,
	})
	if err != nil {
		return httptransport.OperationResponse{}, err
	}
	return mapOperation(operation), nil
}

func (h Handler) GetOperationHandler(ctx context.Context, operationID string) (httptransport.OperationResponse, error) {
	operation, found, err := h.Queries.GetOperation(ctx, operationID)
	if err != nil {
		return httptransport.OperationResponse{}, err
	}
	if !found {
		return httptransport.OperationResponse{}, domainerrors.ErrOperationNotFound
	}
	return mapOperation(operation), nil
}

func mapJob(job entities.Job) httptransport.JobResponse {
	resp := httptransport.JobResponse{
		JobID:         job.JobID,
		Creator:       job.Creator,
		Budget:        job.Budget,
		Status:        string(job.Status()),
		Started:       job.Started,
		Ended:         job.Ended,
		DisputePollID: job.DisputePollID,
		Confirms:      make([]httptransport.ConfirmDTO, 0, len(job.Confirms)),
		CreatedAt:     job.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     job.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for party, confirm := range job.Confirms {
		resp.Confirms = append(resp.Confirms, httptransport.ConfirmDTO{
			Party:            party,
			CreatorAccepted:  confirm.CreatorAccepted,
			CreatorCompleted: confirm.CreatorCompleted,
			PartyAccepted:    confirm.PartyAccepted,
			PartyCompleted:   confirm.PartyCompleted,
		})
	}
	sort.Slice(resp.Confirms, func(i, j int) bool {
		return resp.Confirms[i].Party < resp.Confirms[j].Party
	})
	return resp
}

func mapOperation(operation entities.DisputeOperation) httptransport.OperationResponse {
	return httptransport.OperationResponse{
		OperationID:  operation.OperationID,
		Kind:         string(operation.Kind),
		JobID:        operation.JobID,
		Counterparty: operation.Counterparty,
		PollID:       operation.PollID,
		Status:       string(operation.Status),
		Detail:       operation.Detail,
		CreatedAt:    operation.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    operation.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
