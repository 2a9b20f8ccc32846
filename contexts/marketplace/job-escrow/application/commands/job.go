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
	"arbiter/internal/shared/lanes"
)

const (
	counterpartySharePercent = 95
	ownerSharePercent        = 5
)

type OpenJobCommand struct {
	// JobID is optional; a uuid is generated when empty.
	JobID   string
	Creator string
	Budget  int64
}

type ClaimJobCommand struct {
	JobID string
	Party string
}

type StartJobCommand struct {
	JobID        string
	Counterparty string
	Caller       string
}

type MarkCompleteCommand struct {
	JobID   string
	Caller  string
	Success bool
}

type EndJobCommand struct {
	JobID        string
	Counterparty string
	Caller       string
}

type EndJobResult struct {
	Job     entities.Job
	Payouts []PayoutOutcome
}

// JobUseCase drives the cooperative path of the escrow state machine.
type JobUseCase struct {
	Jobs          ports.JobRepository
	Payouts       ports.PayoutIssuer
	Reputation    ports.ReputationCrediter
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Lanes         *lanes.Set
	ProtocolOwner string
	Logger        *slog.Logger
}

func (uc JobUseCase) Open(ctx context.Context, cmd OpenJobCommand) (entities.Job, error) {
	logger := application.ResolveLogger(uc.Logger)
	creator := strings.TrimSpace(cmd.Creator)
	if creator == "" {
		return entities.Job{}, domainerrors.ErrInvalidCreator
	}
	if cmd.Budget <= 0 {
		logger.Warn("job open rejected",
			"event", "job_open_invalid_budget",
			"module", "marketplace/job-escrow",
			"layer", "application",
			"creator", creator,
			"budget", cmd.Budget,
		)
		return entities.Job{}, domainerrors.ErrInvalidBudget
	}

	jobID := strings.TrimSpace(cmd.JobID)
	if jobID == "" {
		generated, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return entities.Job{}, err
		}
		jobID = generated
	}
	release := uc.Lanes.Acquire(jobKey(jobID))
	defer release()

	now := uc.now()
	job := entities.Job{
		JobID:     jobID,
		Creator:   creator,
		Budget:    cmd.Budget,
		Confirms:  make(map[string]entities.Confirm),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.Jobs.CreateJob(ctx, job); err != nil {
		return entities.Job{}, err
	}
	logger.Info("job opened",
		"event", "job_opened",
		"module", "marketplace/job-escrow",
		"layer", "application",
		"job_id", job.JobID,
		"creator", job.Creator,
		"budget", job.Budget,
	)
	return job, nil
}

func (uc JobUseCase) Claim(ctx context.Context, cmd ClaimJobCommand) (entities.Job, error) {
	party := strings.TrimSpace(cmd.Party)
	if party == "" {
		return entities.Job{}, domainerrors.ErrInvalidParty
	}
	return uc.mutate(ctx, cmd.JobID, "job_claimed", func(job *entities.Job) error {
		if job.Started {
			return domainerrors.ErrJobAlreadyStarted
		}
		confirm, _ := job.Confirm(party)
		confirm.PartyAccepted = true
		job.SetConfirm(party, confirm)
		return nil
	}, "party", party)
}

// Start locks the creator to counterparty, who must have claimed the job.
func (uc JobUseCase) Start(ctx context.Context, cmd StartJobCommand) (entities.Job, error) {
	counterparty := strings.TrimSpace(cmd.Counterparty)
	caller := strings.TrimSpace(cmd.Caller)
	return uc.mutate(ctx, cmd.JobID, "job_started", func(job *entities.Job) error {
		if caller != job.Creator {
			return domainerrors.ErrNotJobCreator
		}
		confirm, ok := job.Confirm(counterparty)
		if !ok || !confirm.PartyAccepted {
			return domainerrors.ErrCounterpartyNotClaimed
		}
		if job.Started {
			return domainerrors.ErrJobAlreadyStarted
		}
		confirm.CreatorAccepted = true
		job.SetConfirm(counterparty, confirm)
		job.Started = true
		return nil
	}, "counterparty", counterparty)
}

// MarkComplete records the caller's completion flag. The caller only needs a
// confirmation the creator accepted; it is not matched against the
// counterparty given to Start.
func (uc JobUseCase) MarkComplete(ctx context.Context, cmd MarkCompleteCommand) (entities.Job, error) {
	caller := strings.TrimSpace(cmd.Caller)
	return uc.mutate(ctx, cmd.JobID, "job_marked_complete", func(job *entities.Job) error {
		confirm, ok := job.Confirm(caller)
		if !ok || !confirm.CreatorAccepted {
			return domainerrors.ErrNotAccepted
		}
		confirm.PartyCompleted = cmd.Success
		job.SetConfirm(caller, confirm)
		return nil
	}, "party", caller, "success", cmd.Success)
}

// End closes a completed job. The ended flag is committed before the 95/5
// payouts are issued; payout and reputation failures are only logged.
func (uc JobUseCase) End(ctx context.Context, cmd EndJobCommand) (EndJobResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	counterparty := strings.TrimSpace(cmd.Counterparty)
	caller := strings.TrimSpace(cmd.Caller)

	job, err := uc.mutate(ctx, cmd.JobID, "job_ended", func(job *entities.Job) error {
		if job.Ended {
			return domainerrors.ErrJobAlreadyEnded
		}
		if caller != job.Creator {
			return domainerrors.ErrNotJobCreator
		}
		confirm, ok := job.Confirm(counterparty)
		if !ok || !confirm.PartyCompleted {
			return domainerrors.ErrCounterpartyNotCompleted
		}
		confirm.CreatorCompleted = true
		job.SetConfirm(counterparty, confirm)
		job.Ended = true
		return nil
	}, "counterparty", counterparty)
	if err != nil {
		return EndJobResult{}, err
	}

	r := releaser{payouts: uc.Payouts, reputation: uc.Reputation, logger: logger}
	result := EndJobResult{Job: job}
	result.Payouts = append(result.Payouts,
		r.pay(ctx, job.JobID, counterparty, entities.PercentOf(job.Budget, counterpartySharePercent), "job payment"),
		r.pay(ctx, job.JobID, uc.ProtocolOwner, entities.PercentOf(job.Budget, ownerSharePercent), "protocol fee"),
	)
	r.credit(ctx, job.JobID, job.Creator, job.Budget, "job_completed")
	r.credit(ctx, job.JobID, counterparty, job.Budget, "job_completed")
	return result, nil
}

// mutate loads the job under its lane, applies fn and saves the result.
// Nothing is saved when fn rejects.
func (uc JobUseCase) mutate(
	ctx context.Context,
	jobID string,
	event string,
	fn func(job *entities.Job) error,
	attrs ...any,
) (entities.Job, error) {
	logger := application.ResolveLogger(uc.Logger)
	jobID = strings.TrimSpace(jobID)
	release := uc.Lanes.Acquire(jobKey(jobID))
	defer release()

	job, found, err := uc.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return entities.Job{}, err
	}
	if !found {
		return entities.Job{}, domainerrors.ErrJobNotFound
	}
	if err := fn(&job); err != nil {
		fields := []any{
			"event", event + "_rejected",
			"module", "marketplace/job-escrow",
			"layer", "application",
			"job_id", jobID,
			"error", err.Error(),
		}
		logger.Warn("job transition rejected", append(fields, attrs...)...)
		return entities.Job{}, err
	}
	job.UpdatedAt = uc.now()
	if err := uc.Jobs.SaveJob(ctx, job); err != nil {
		return entities.Job{}, err
	}

	fields := []any{
		"event", event,
		"module", "marketplace/job-escrow",
		"layer", "application",
		"job_id", jobID,
		"status", string(job.Status()),
	}
	logger.Info("job transition applied", append(fields, attrs...)...)
	return job, nil
}

func (uc JobUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
