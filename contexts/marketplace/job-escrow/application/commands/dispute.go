package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "arbiter/contexts/marketplace/job-escrow/application"
	"arbiter/contexts/marketplace/job-escrow/domain/entities"
	domainerrors "arbiter/contexts/marketplace/job-escrow/domain/errors"
	"arbiter/contexts/marketplace/job-escrow/ports"
	"arbiter/internal/shared/events"
	"arbiter/internal/shared/lanes"
)

const (
	disputeBudgetDivisor = 10
	winnerSharePercent   = 90
	pollOperatorPercent  = 10
	disputeOptionCreator = "v1"
	disputeOptionCounter = "v2"
	disputeCreditDivisor = 2
)

type OpenDisputeCommand struct {
	JobID        string
	Counterparty string
	Question     string
	Options      []events.PollOption
	StartsAt     time.Time
	EndsAt       time.Time
	Caller       string
}

type ResolveDisputeCommand struct {
	JobID        string
	Counterparty string
	// PollID defaults to the poll linked to the job.
	PollID string
	Caller string
}

// DisputeUseCase settles contested jobs through the poll engine. Requests
// are asynchronous; replies arrive at HandlePollCreated and
// HandleWinnerResolved.
type DisputeUseCase struct {
	Jobs          ports.JobRepository
	Operations    ports.OperationRepository
	Outbox        ports.OutboxWriter
	Payouts       ports.PayoutIssuer
	Reputation    ports.ReputationCrediter
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Lanes         *lanes.Set
	ProtocolOwner string
	PollOperator  string
	Logger        *slog.Logger
}

// OpenDispute asks the poll engine for a poll funded with a tenth of the job
// budget. The protocol owner becomes the poll creator.
func (uc DisputeUseCase) OpenDispute(ctx context.Context, cmd OpenDisputeCommand) (entities.DisputeOperation, error) {
	logger := application.ResolveLogger(uc.Logger)
	jobID := strings.TrimSpace(cmd.JobID)
	counterparty := strings.TrimSpace(cmd.Counterparty)
	if strings.TrimSpace(cmd.Caller) != uc.ProtocolOwner {
		logger.Warn("dispute open forbidden",
			"event", "job_dispute_open_forbidden",
			"module", "marketplace/job-escrow",
			"layer", "application",
			"job_id", jobID,
			"caller", strings.TrimSpace(cmd.Caller),
		)
		return entities.DisputeOperation{}, domainerrors.ErrNotProtocolOwner
	}
	if !cmd.StartsAt.Before(cmd.EndsAt) {
		return entities.DisputeOperation{}, domainerrors.ErrInvalidDisputeWindow
	}

	release := uc.Lanes.Acquire(jobKey(jobID))
	defer release()

	job, found, err := uc.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return entities.DisputeOperation{}, err
	}
	if !found {
		return entities.DisputeOperation{}, domainerrors.ErrJobNotFound
	}
	if job.Ended {
		return entities.DisputeOperation{}, domainerrors.ErrJobAlreadyEnded
	}
	if job.DisputePollID != "" {
		return entities.DisputeOperation{}, domainerrors.ErrDisputeAlreadyOpen
	}
	// a poll request still in flight counts as an open dispute
	if pending, err := uc.Operations.HasPendingOperation(ctx, jobID, entities.OperationOpenDispute); err != nil {
		return entities.DisputeOperation{}, err
	} else if pending {
		return entities.DisputeOperation{}, domainerrors.ErrDisputeAlreadyOpen
	}
	confirm, ok := job.Confirm(counterparty)
	if !ok || !confirm.CreatorAccepted || !confirm.PartyAccepted {
		return entities.DisputeOperation{}, domainerrors.ErrDisputeNotAccepted
	}

	operation, err := uc.newOperation(ctx, entities.OperationOpenDispute, jobID, counterparty, "")
	if err != nil {
		return entities.DisputeOperation{}, err
	}
	question := strings.TrimSpace(cmd.Question)
	if question == "" {
		question = "Who should receive the escrow for job " + jobID + "?"
	}
	options := cmd.Options
	if len(options) == 0 {
		options = []events.PollOption{
			{OptionID: disputeOptionCreator, Label: job.Creator},
			{OptionID: disputeOptionCounter, Label: counterparty},
		}
	}
	request := events.PollCreationRequested{
		RequestID:  operation.OperationID,
		Creator:    uc.ProtocolOwner,
		Question:   question,
		Options:    options,
		StartsAt:   cmd.StartsAt.UTC(),
		EndsAt:     cmd.EndsAt.UTC(),
		Budget:     job.Budget / disputeBudgetDivisor,
		ReplyTopic: events.TopicJobDisputePollCreated,
	}
	if err := uc.send(ctx, events.TopicPollCreationRequested, operation, request); err != nil {
		return uc.failIssue(ctx, operation, err)
	}

	logger.Info("dispute poll requested",
		"event", "job_dispute_poll_requested",
		"module", "marketplace/job-escrow",
		"layer", "application",
		"job_id", jobID,
		"operation_id", operation.OperationID,
		"dispute_budget", request.Budget,
	)
	return operation, nil
}

// HandlePollCreated links the created poll to the job.
func (uc DisputeUseCase) HandlePollCreated(ctx context.Context, reply events.PollCreationCompleted) error {
	logger := application.ResolveLogger(uc.Logger)
	operation, ok, err := uc.pendingOperation(ctx, reply.RequestID, entities.OperationOpenDispute)
	if err != nil || !ok {
		return err
	}
	release := uc.Lanes.Acquire(jobKey(operation.JobID))
	defer release()

	if reply.Status != events.CallSucceeded || strings.TrimSpace(reply.PollID) == "" {
		return uc.finish(ctx, operation, entities.OperationFailed, describe(reply.Status, reply.Error))
	}
	job, found, err := uc.Jobs.GetJob(ctx, operation.JobID)
	if err != nil {
		return err
	}
	if !found {
		return uc.finish(ctx, operation, entities.OperationFailed, domainerrors.ErrJobNotFound.Error())
	}
	job.DisputePollID = reply.PollID
	job.UpdatedAt = uc.now()
	if err := uc.Jobs.SaveJob(ctx, job); err != nil {
		return err
	}
	operation.PollID = reply.PollID
	logger.Info("dispute poll linked",
		"event", "job_dispute_poll_linked",
		"module", "marketplace/job-escrow",
		"layer", "application",
		"job_id", job.JobID,
		"poll_id", reply.PollID,
		"operation_id", operation.OperationID,
	)
	return uc.finish(ctx, operation, entities.OperationSucceeded, reply.PollID)
}

// ResolveDispute asks the poll engine for the winner of the dispute poll.
func (uc DisputeUseCase) ResolveDispute(ctx context.Context, cmd ResolveDisputeCommand) (entities.DisputeOperation, error) {
	logger := application.ResolveLogger(uc.Logger)
	jobID := strings.TrimSpace(cmd.JobID)
	counterparty := strings.TrimSpace(cmd.Counterparty)
	if strings.TrimSpace(cmd.Caller) != uc.ProtocolOwner {
		return entities.DisputeOperation{}, domainerrors.ErrNotProtocolOwner
	}

	release := uc.Lanes.Acquire(jobKey(jobID))
	defer release()

	job, found, err := uc.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return entities.DisputeOperation{}, err
	}
	if !found {
		return entities.DisputeOperation{}, domainerrors.ErrJobNotFound
	}
	if job.Ended {
		return entities.DisputeOperation{}, domainerrors.ErrJobAlreadyEnded
	}
	if _, ok := job.Confirm(counterparty); !ok {
		return entities.DisputeOperation{}, domainerrors.ErrCounterpartyNotClaimed
	}
	pollID := strings.TrimSpace(cmd.PollID)
	if pollID == "" {
		pollID = job.DisputePollID
	}
	if pollID == "" {
		return entities.DisputeOperation{}, domainerrors.ErrNoDisputePoll
	}

	operation, err := uc.newOperation(ctx, entities.OperationResolveDispute, jobID, counterparty, pollID)
	if err != nil {
		return entities.DisputeOperation{}, err
	}
	request := events.PollWinnerRequested{
		RequestID:  operation.OperationID,
		PollID:     pollID,
		ReplyTopic: events.TopicJobDisputeWinnerResolved,
	}
	if err := uc.send(ctx, events.TopicPollWinnerRequested, operation, request); err != nil {
		return uc.failIssue(ctx, operation, err)
	}
	logger.Info("dispute winner requested",
		"event", "job_dispute_winner_requested",
		"module", "marketplace/job-escrow",
		"layer", "application",
		"job_id", jobID,
		"poll_id", pollID,
		"operation_id", operation.OperationID,
	)
	return operation, nil
}

// HandleWinnerResolved ends the job in favor of the poll winner: v1 pays the
// creator, v2 the counterparty. Anything else leaves the job unchanged.
func (uc DisputeUseCase) HandleWinnerResolved(ctx context.Context, reply events.PollWinnerResolved) error {
	logger := application.ResolveLogger(uc.Logger)
	operation, ok, err := uc.pendingOperation(ctx, reply.RequestID, entities.OperationResolveDispute)
	if err != nil || !ok {
		return err
	}
	release := uc.Lanes.Acquire(jobKey(operation.JobID))
	defer release()

	if reply.Status != events.CallSucceeded {
		return uc.finish(ctx, operation, entities.OperationFailed, describe(reply.Status, reply.Error))
	}
	job, found, err := uc.Jobs.GetJob(ctx, operation.JobID)
	if err != nil {
		return err
	}
	if !found {
		return uc.finish(ctx, operation, entities.OperationFailed, domainerrors.ErrJobNotFound.Error())
	}
	if job.Ended {
		return uc.finish(ctx, operation, entities.OperationFailed, domainerrors.ErrJobAlreadyEnded.Error())
	}

	var winner string
	switch reply.Winner {
	case disputeOptionCreator:
		winner = job.Creator
	case disputeOptionCounter:
		winner = operation.Counterparty
	default:
		return uc.finish(ctx, operation, entities.OperationFailed, "unknown poll outcome "+reply.Winner)
	}

	job.Ended = true
	job.UpdatedAt = uc.now()
	if err := uc.Jobs.SaveJob(ctx, job); err != nil {
		return err
	}
	if err := uc.finish(ctx, operation, entities.OperationSucceeded, reply.Winner); err != nil {
		return err
	}

	r := releaser{payouts: uc.Payouts, reputation: uc.Reputation, logger: logger}
	r.pay(ctx, job.JobID, winner, entities.PercentOf(job.Budget, winnerSharePercent), "dispute award")
	r.pay(ctx, job.JobID, uc.PollOperator, entities.PercentOf(job.Budget, pollOperatorPercent), "dispute poll fee")
	r.credit(ctx, job.JobID, winner, job.Budget/disputeCreditDivisor, "dispute_resolved")

	logger.Info("dispute resolved",
		"event", "job_dispute_resolved",
		"module", "marketplace/job-escrow",
		"layer", "application",
		"job_id", job.JobID,
		"poll_id", operation.PollID,
		"winner", winner,
	)
	return nil
}

func (uc DisputeUseCase) newOperation(
	ctx context.Context,
	kind entities.OperationKind,
	jobID string,
	counterparty string,
	pollID string,
) (entities.DisputeOperation, error) {
	operationID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.DisputeOperation{}, err
	}
	now := uc.now()
	operation := entities.DisputeOperation{
		OperationID:  operationID,
		Kind:         kind,
		JobID:        jobID,
		Counterparty: counterparty,
		PollID:       pollID,
		Status:       entities.OperationPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.Operations.SaveOperation(ctx, operation); err != nil {
		return entities.DisputeOperation{}, err
	}
	return operation, nil
}

func (uc DisputeUseCase) send(ctx context.Context, topic string, operation entities.DisputeOperation, payload any) error {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := events.NewEnvelope(
		eventID,
		topic,
		sourceService,
		operation.OperationID,
		operation.JobID,
		uc.now(),
		payload,
	)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc DisputeUseCase) failIssue(
	ctx context.Context,
	operation entities.DisputeOperation,
	cause error,
) (entities.DisputeOperation, error) {
	operation.Status = entities.OperationFailed
	operation.Detail = cause.Error()
	operation.UpdatedAt = uc.now()
	if err := uc.Operations.SaveOperation(ctx, operation); err != nil {
		return entities.DisputeOperation{}, err
	}
	return operation, domainerrors.ErrPollRequestFailed
}

func (uc DisputeUseCase) pendingOperation(
	ctx context.Context,
	operationID string,
	kind entities.OperationKind,
) (entities.DisputeOperation, bool, error) {
	operation, found, err := uc.Operations.GetOperation(ctx, strings.TrimSpace(operationID))
	if err != nil {
		return entities.DisputeOperation{}, false, err
	}
	if !found || !operation.Pending() || operation.Kind != kind {
		application.ResolveLogger(uc.Logger).Warn("dispute reply ignored",
			"event", "job_dispute_reply_ignored",
			"module", "marketplace/job-escrow",
			"layer", "application",
			"operation_id", operationID,
			"kind", string(kind),
			"found", found,
		)
		return entities.DisputeOperation{}, false, nil
	}
	return operation, true, nil
}

func (uc DisputeUseCase) finish(
	ctx context.Context,
	operation entities.DisputeOperation,
	status entities.OperationStatus,
	detail string,
) error {
	operation.Status = status
	operation.Detail = detail
	operation.UpdatedAt = uc.now()
	if err := uc.Operations.SaveOperation(ctx, operation); err != nil {
		return err
	}
	if status == entities.OperationFailed {
		application.ResolveLogger(uc.Logger).Error("dispute operation failed",
			"event", "job_dispute_operation_failed",
			"module", "marketplace/job-escrow",
			"layer", "application",
			"operation_id", operation.OperationID,
			"kind", string(operation.Kind),
			"job_id", operation.JobID,
			"detail", detail,
		)
	}
	return nil
}

func (uc DisputeUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func describe(status events.CallStatus, detail string) string {
	if detail = strings.TrimSpace(detail); detail != "" {
		return string(status) + ": " + detail
	}
	return string(status)
}
