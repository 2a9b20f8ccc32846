package jobescrow_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	jobescrow "arbiter/contexts/marketplace/job-escrow"
	"arbiter/contexts/marketplace/job-escrow/application/commands"
	"arbiter/contexts/marketplace/job-escrow/domain/entities"
	domainerrors "arbiter/contexts/marketplace/job-escrow/domain/errors"
	"arbiter/contexts/marketplace/job-escrow/ports"
	"arbiter/internal/shared/events"
	"arbiter/internal/shared/faults"
	"arbiter/internal/shared/outbox"
)

const (
	owner    = "protocol-owner"
	operator = "poll-operator"
)

type recordingPayouts struct {
	mu       sync.Mutex
	requests []ports.PayoutRequest
}

func (p *recordingPayouts) IssuePayout(_ context.Context, request ports.PayoutRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, request)
	return fmt.Sprintf("settlement-%d", len(p.requests)), nil
}

func (p *recordingPayouts) Requests() []ports.PayoutRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ports.PayoutRequest(nil), p.requests...)
}

type recordingReputation struct {
	mu     sync.Mutex
	points map[string]int64
	reason map[string]string
}

func (r *recordingReputation) CreditReputation(_ context.Context, account string, amount int64, reason string, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.points == nil {
		r.points = make(map[string]int64)
		r.reason = make(map[string]string)
	}
	r.points[account] += amount
	r.reason[account] = reason
	return nil
}

func (r *recordingReputation) Points(account string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.points[account]
}

type fixture struct {
	module     jobescrow.Module
	payouts    *recordingPayouts
	reputation *recordingReputation
	outbox     *outbox.MemoryStore
}

func newFixture() fixture {
	payouts := &recordingPayouts{}
	reputation := &recordingReputation{}
	outboxStore := outbox.NewMemoryStore()
	module := jobescrow.NewInMemoryModule(jobescrow.InMemoryOptions{
		Payouts:       payouts,
		Reputation:    reputation,
		Outbox:        outboxStore,
		Dedup:         outboxStore,
		ProtocolOwner: owner,
		PollOperator:  operator,
	})
	return fixture{module: module, payouts: payouts, reputation: reputation, outbox: outboxStore}
}

// activeJob opens a job for alice and starts it with bob.
func (f fixture) activeJob(t *testing.T, budget int64) entities.Job {
	t.Helper()
	ctx := context.Background()
	job, err := f.module.Jobs.Open(ctx, commands.OpenJobCommand{Creator: "alice", Budget: budget})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := f.module.Jobs.Claim(ctx, commands.ClaimJobCommand{JobID: job.JobID, Party: "bob"}); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	job, err = f.module.Jobs.Start(ctx, commands.StartJobCommand{JobID: job.JobID, Counterparty: "bob", Caller: "alice"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	return job
}

func TestCooperativeJobPaysCounterpartyAndOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	job := f.activeJob(t, 100)
	if job.Status() != entities.JobStatusActive {
		t.Fatalf("expected active job, got %s", job.Status())
	}

	job, err := f.module.Jobs.MarkComplete(ctx, commands.MarkCompleteCommand{JobID: job.JobID, Caller: "bob", Success: true})
	if err != nil {
		t.Fatalf("mark complete failed: %v", err)
	}
	if job.Status() != entities.JobStatusCompleted {
		t.Fatalf("expected completed job, got %s", job.Status())
	}

	result, err := f.module.Jobs.End(ctx, commands.EndJobCommand{JobID: job.JobID, Counterparty: "bob", Caller: "alice"})
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if !result.Job.Ended || result.Job.Status() != entities.JobStatusEnded {
		t.Fatalf("expected ended job, got %+v", result.Job)
	}

	requests := f.payouts.Requests()
	if len(requests) != 2 {
		t.Fatalf("expected 2 payouts, got %d", len(requests))
	}
	if requests[0].Recipient != "bob" || requests[0].Amount != 95 {
		t.Fatalf("unexpected counterparty payout %+v", requests[0])
	}
	if requests[1].Recipient != owner || requests[1].Amount != 5 {
		t.Fatalf("unexpected owner payout %+v", requests[1])
	}
	if requests[0].SourceRef != job.JobID || requests[0].Source != "job-escrow" {
		t.Fatalf("payout is not linked to the job: %+v", requests[0])
	}
	if f.reputation.Points("alice") != 100 || f.reputation.Points("bob") != 100 {
		t.Fatalf("expected full budget credits, got alice=%d bob=%d", f.reputation.Points("alice"), f.reputation.Points("bob"))
	}

	_, err = f.module.Jobs.End(ctx, commands.EndJobCommand{JobID: job.JobID, Counterparty: "bob", Caller: "alice"})
	if !errors.Is(err, domainerrors.ErrJobAlreadyEnded) || !errors.Is(err, faults.ErrDuplicateAction) {
		t.Fatalf("expected duplicate end rejection, got %v", err)
	}
	if len(f.payouts.Requests()) != 2 {
		t.Fatalf("second end must not pay again")
	}
}

func TestJobTransitionsRejectInvalidCallers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.module.Jobs.Open(ctx, commands.OpenJobCommand{Creator: "alice", Budget: 0}); !errors.Is(err, domainerrors.ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}
	job, err := f.module.Jobs.Open(ctx, commands.OpenJobCommand{JobID: "job-7", Creator: "alice", Budget: 50})
	if err != nil || job.JobID != "job-7" {
		t.Fatalf("open with id failed: %+v err=%v", job, err)
	}
	if _, err := f.module.Jobs.Open(ctx, commands.OpenJobCommand{JobID: "job-7", Creator: "carol", Budget: 50}); !errors.Is(err, domainerrors.ErrJobExists) {
		t.Fatalf("expected ErrJobExists, got %v", err)
	}

	_, err = f.module.Jobs.Start(ctx, commands.StartJobCommand{JobID: "job-7", Counterparty: "bob", Caller: "alice"})
	if !errors.Is(err, domainerrors.ErrCounterpartyNotClaimed) {
		t.Fatalf("expected ErrCounterpartyNotClaimed, got %v", err)
	}
	if _, err := f.module.Jobs.Claim(ctx, commands.ClaimJobCommand{JobID: "job-7", Party: "bob"}); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	_, err = f.module.Jobs.Start(ctx, commands.StartJobCommand{JobID: "job-7", Counterparty: "bob", Caller: "mallory"})
	if !errors.Is(err, domainerrors.ErrNotJobCreator) || !errors.Is(err, faults.ErrAuthorization) {
		t.Fatalf("expected ErrNotJobCreator, got %v", err)
	}
	if _, err := f.module.Jobs.Start(ctx, commands.StartJobCommand{JobID: "job-7", Counterparty: "bob", Caller: "alice"}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := f.module.Jobs.Claim(ctx, commands.ClaimJobCommand{JobID: "job-7", Party: "carol"}); !errors.Is(err, domainerrors.ErrJobAlreadyStarted) {
		t.Fatalf("expected ErrJobAlreadyStarted, got %v", err)
	}
	_, err = f.module.Jobs.MarkComplete(ctx, commands.MarkCompleteCommand{JobID: "job-7", Caller: "carol", Success: true})
	if !errors.Is(err, domainerrors.ErrNotAccepted) {
		t.Fatalf("expected ErrNotAccepted, got %v", err)
	}
	_, err = f.module.Jobs.End(ctx, commands.EndJobCommand{JobID: "job-7", Counterparty: "bob", Caller: "alice"})
	if !errors.Is(err, domainerrors.ErrCounterpartyNotCompleted) {
		t.Fatalf("expected ErrCounterpartyNotCompleted, got %v", err)
	}
	if _, err := f.module.Jobs.Claim(ctx, commands.ClaimJobCommand{JobID: "missing", Party: "bob"}); !errors.Is(err, domainerrors.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}

	stored, found, err := f.module.Queries.GetJob(ctx, "job-7")
	if err != nil || !found || stored.Status() != entities.JobStatusActive {
		t.Fatalf("rejected transitions must not change the job: %+v found=%v err=%v", stored, found, err)
	}
	if len(f.payouts.Requests()) != 0 {
		t.Fatalf("no payouts expected")
	}
}

func replyEnvelope(t *testing.T, eventID string, topic string, payload any) events.Envelope {
	t.Helper()
	envelope, err := events.NewEnvelope(eventID, topic, "poll-engine", eventID, eventID, time.Now().UTC(), payload)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	return envelope
}

func TestDisputeResolvedForCounterparty(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	job := f.activeJob(t, 100)
	startsAt := time.Now().UTC().Add(time.Hour)
	endsAt := startsAt.Add(time.Hour)

	_, err := f.module.Disputes.OpenDispute(ctx, commands.OpenDisputeCommand{
		JobID: job.JobID, Counterparty: "bob", StartsAt: startsAt, EndsAt: endsAt, Caller: "alice",
	})
	if !errors.Is(err, domainerrors.ErrNotProtocolOwner) {
		t.Fatalf("expected ErrNotProtocolOwner, got %v", err)
	}

	opened, err := f.module.Disputes.OpenDispute(ctx, commands.OpenDisputeCommand{
		JobID: job.JobID, Counterparty: "bob", StartsAt: startsAt, EndsAt: endsAt, Caller: owner,
	})
	if err != nil {
		t.Fatalf("open dispute failed: %v", err)
	}
	if opened.Status != entities.OperationPending || opened.Kind != entities.OperationOpenDispute {
		t.Fatalf("unexpected operation %+v", opened)
	}

	requests := f.outbox.Envelopes(events.TopicPollCreationRequested)
	if len(requests) != 1 {
		t.Fatalf("expected one poll creation request, got %d", len(requests))
	}
	var creation events.PollCreationRequested
	if err := requests[0].Decode(&creation); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if creation.Budget != 10 || creation.Creator != owner || creation.RequestID != opened.OperationID {
		t.Fatalf("unexpected poll creation request %+v", creation)
	}
	if len(creation.Options) != 2 || creation.Options[0].OptionID != "v1" || creation.Options[1].OptionID != "v2" {
		t.Fatalf("expected default v1/v2 options, got %+v", creation.Options)
	}

	created := replyEnvelope(t, "reply-1", events.TopicJobDisputePollCreated, events.PollCreationCompleted{
		RequestID: opened.OperationID,
		Status:    events.CallSucceeded,
		PollID:    "poll-42",
	})
	if err := f.module.DisputeReplies.HandlePollCreated(ctx, created); err != nil {
		t.Fatalf("handle poll created: %v", err)
	}
	stored, _, _ := f.module.Queries.GetJob(ctx, job.JobID)
	if stored.DisputePollID != "poll-42" || stored.Status() != entities.JobStatusDisputed {
		t.Fatalf("expected disputed job linked to poll, got %+v", stored)
	}
	if op, _, _ := f.module.Queries.GetOperation(ctx, opened.OperationID); op.Status != entities.OperationSucceeded {
		t.Fatalf("expected succeeded operation, got %+v", op)
	}

	_, err = f.module.Disputes.OpenDispute(ctx, commands.OpenDisputeCommand{
		JobID: job.JobID, Counterparty: "bob", StartsAt: startsAt, EndsAt: endsAt, Caller: owner,
	})
	if !errors.Is(err, domainerrors.ErrDisputeAlreadyOpen) {
		t.Fatalf("expected ErrDisputeAlreadyOpen, got %v", err)
	}

	resolving, err := f.module.Disputes.ResolveDispute(ctx, commands.ResolveDisputeCommand{
		JobID: job.JobID, Counterparty: "bob", Caller: owner,
	})
	if err != nil {
		t.Fatalf("resolve dispute failed: %v", err)
	}
	if resolving.PollID != "poll-42" {
		t.Fatalf("expected linked poll id, got %q", resolving.PollID)
	}

	resolved := replyEnvelope(t, "reply-2", events.TopicJobDisputeWinnerResolved, events.PollWinnerResolved{
		RequestID: resolving.OperationID,
		PollID:    "poll-42",
		Status:    events.CallSucceeded,
		Winner:    "v2",
	})
	if err := f.module.DisputeReplies.HandleWinnerResolved(ctx, resolved); err != nil {
		t.Fatalf("handle winner: %v", err)
	}
	if err := f.module.DisputeReplies.HandleWinnerResolved(ctx, resolved); err != nil {
		t.Fatalf("replayed winner: %v", err)
	}

	payouts := f.payouts.Requests()
	if len(payouts) != 2 {
		t.Fatalf("expected 2 payouts, got %+v", payouts)
	}
	if payouts[0].Recipient != "bob" || payouts[0].Amount != 90 {
		t.Fatalf("unexpected winner payout %+v", payouts[0])
	}
	if payouts[1].Recipient != operator || payouts[1].Amount != 10 {
		t.Fatalf("unexpected operator payout %+v", payouts[1])
	}
	if f.reputation.Points("bob") != 50 || f.reputation.Points("alice") != 0 {
		t.Fatalf("expected winner credit of half the budget, got bob=%d alice=%d", f.reputation.Points("bob"), f.reputation.Points("alice"))
	}
	stored, _, _ = f.module.Queries.GetJob(ctx, job.JobID)
	if !stored.Ended {
		t.Fatalf("expected ended job")
	}
}

func TestDisputeWinnerNotReadyLeavesJobOpen(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	job := f.activeJob(t, 100)
	startsAt := time.Now().UTC()

	opened, err := f.module.Disputes.OpenDispute(ctx, commands.OpenDisputeCommand{
		JobID: job.JobID, Counterparty: "bob", StartsAt: startsAt, EndsAt: startsAt.Add(time.Hour), Caller: owner,
	})
	if err != nil {
		t.Fatalf("open dispute failed: %v", err)
	}
	if err := f.module.Disputes.HandlePollCreated(ctx, events.PollCreationCompleted{
		RequestID: opened.OperationID, Status: events.CallSucceeded, PollID: "poll-1",
	}); err != nil {
		t.Fatalf("handle poll created: %v", err)
	}

	resolving, err := f.module.Disputes.ResolveDispute(ctx, commands.ResolveDisputeCommand{
		JobID: job.JobID, Counterparty: "bob", Caller: owner,
	})
	if err != nil {
		t.Fatalf("resolve dispute failed: %v", err)
	}
	if err := f.module.Disputes.HandleWinnerResolved(ctx, events.PollWinnerResolved{
		RequestID: resolving.OperationID, PollID: "poll-1", Status: events.CallNotReady,
	}); err != nil {
		t.Fatalf("handle winner: %v", err)
	}

	op, found, err := f.module.Queries.GetOperation(ctx, resolving.OperationID)
	if err != nil || !found || op.Status != entities.OperationFailed {
		t.Fatalf("expected failed operation, got %+v found=%v err=%v", op, found, err)
	}
	stored, _, _ := f.module.Queries.GetJob(ctx, job.JobID)
	if stored.Ended || stored.Status() != entities.JobStatusDisputed {
		t.Fatalf("job must stay disputed, got %+v", stored)
	}
	if len(f.payouts.Requests()) != 0 {
		t.Fatalf("no payouts expected")
	}
}

func TestOpenDisputeValidatesWindowAndAcceptance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := time.Now().UTC()

	job, err := f.module.Jobs.Open(ctx, commands.OpenJobCommand{Creator: "alice", Budget: 100})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := f.module.Jobs.Claim(ctx, commands.ClaimJobCommand{JobID: job.JobID, Party: "bob"}); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	_, err = f.module.Disputes.OpenDispute(ctx, commands.OpenDisputeCommand{
		JobID: job.JobID, Counterparty: "bob", StartsAt: now, EndsAt: now.Add(time.Hour), Caller: owner,
	})
	if !errors.Is(err, domainerrors.ErrDisputeNotAccepted) {
		t.Fatalf("expected ErrDisputeNotAccepted, got %v", err)
	}
	_, err = f.module.Disputes.OpenDispute(ctx, commands.OpenDisputeCommand{
		JobID: job.JobID, Counterparty: "bob", StartsAt: now, EndsAt: now, Caller: owner,
	})
	if !errors.Is(err, domainerrors.ErrInvalidDisputeWindow) {
		t.Fatalf("expected ErrInvalidDisputeWindow, got %v", err)
	}
	_, err = f.module.Disputes.ResolveDispute(ctx, commands.ResolveDisputeCommand{
		JobID: job.JobID, Counterparty: "bob", Caller: owner,
	})
	if !errors.Is(err, domainerrors.ErrNoDisputePoll) {
		t.Fatalf("expected ErrNoDisputePoll, got %v", err)
	}
	if len(f.outbox.Envelopes(events.TopicPollCreationRequested)) != 0 {
		t.Fatalf("rejected disputes must not emit requests")
	}
}

// resolvingDispute links a dispute poll to job and leaves a resolve_dispute
// operation waiting for the winner reply.
func (f fixture) resolvingDispute(t *testing.T, job entities.Job) entities.DisputeOperation {
	t.Helper()
	ctx := context.Background()
	startsAt := time.Now().UTC()
	opened, err := f.module.Disputes.OpenDispute(ctx, commands.OpenDisputeCommand{
		JobID: job.JobID, Counterparty: "bob", StartsAt: startsAt, EndsAt: startsAt.Add(time.Hour), Caller: owner,
	})
	if err != nil {
		t.Fatalf("open dispute failed: %v", err)
	}
	if err := f.module.Disputes.HandlePollCreated(ctx, events.PollCreationCompleted{
		RequestID: opened.OperationID, Status: events.CallSucceeded, PollID: "poll-9",
	}); err != nil {
		t.Fatalf("handle poll created: %v", err)
	}
	resolving, err := f.module.Disputes.ResolveDispute(ctx, commands.ResolveDisputeCommand{
		JobID: job.JobID, Counterparty: "bob", Caller: owner,
	})
	if err != nil {
		t.Fatalf("resolve dispute failed: %v", err)
	}
	return resolving
}

func TestWinnerReplyAfterEndDoesNotPayAgain(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	job := f.activeJob(t, 100)
	resolving := f.resolvingDispute(t, job)

	if _, err := f.module.Jobs.MarkComplete(ctx, commands.MarkCompleteCommand{JobID: job.JobID, Caller: "bob", Success: true}); err != nil {
		t.Fatalf("mark complete failed: %v", err)
	}
	if _, err := f.module.Jobs.End(ctx, commands.EndJobCommand{JobID: job.JobID, Counterparty: "bob", Caller: "alice"}); err != nil {
		t.Fatalf("end failed: %v", err)
	}

	if err := f.module.Disputes.HandleWinnerResolved(ctx, events.PollWinnerResolved{
		RequestID: resolving.OperationID, PollID: "poll-9", Status: events.CallSucceeded, Winner: "v1",
	}); err != nil {
		t.Fatalf("handle winner: %v", err)
	}

	op, _, _ := f.module.Queries.GetOperation(ctx, resolving.OperationID)
	if op.Status != entities.OperationFailed {
		t.Fatalf("expected failed resolve operation, got %+v", op)
	}
	payouts := f.payouts.Requests()
	if len(payouts) != 2 || payouts[0].Recipient != "bob" || payouts[0].Amount != 95 || payouts[1].Recipient != owner {
		t.Fatalf("expected only the cooperative payouts, got %+v", payouts)
	}
	if f.reputation.Points("alice") != 100 || f.reputation.Points("bob") != 100 {
		t.Fatalf("expected only completion credits, got alice=%d bob=%d", f.reputation.Points("alice"), f.reputation.Points("bob"))
	}
}

func TestEndAfterDisputeResolutionIsRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	job := f.activeJob(t, 100)
	resolving := f.resolvingDispute(t, job)

	if _, err := f.module.Jobs.MarkComplete(ctx, commands.MarkCompleteCommand{JobID: job.JobID, Caller: "bob", Success: true}); err != nil {
		t.Fatalf("mark complete failed: %v", err)
	}
	if err := f.module.Disputes.HandleWinnerResolved(ctx, events.PollWinnerResolved{
		RequestID: resolving.OperationID, PollID: "poll-9", Status: events.CallSucceeded, Winner: "v1",
	}); err != nil {
		t.Fatalf("handle winner: %v", err)
	}

	_, err := f.module.Jobs.End(ctx, commands.EndJobCommand{JobID: job.JobID, Counterparty: "bob", Caller: "alice"})
	if !errors.Is(err, domainerrors.ErrJobAlreadyEnded) || !errors.Is(err, faults.ErrDuplicateAction) {
		t.Fatalf("expected ErrJobAlreadyEnded, got %v", err)
	}

	payouts := f.payouts.Requests()
	if len(payouts) != 2 || payouts[0].Recipient != "alice" || payouts[0].Amount != 90 || payouts[1].Recipient != operator || payouts[1].Amount != 10 {
		t.Fatalf("expected only the dispute payouts, got %+v", payouts)
	}
	if f.reputation.Points("alice") != 50 || f.reputation.Points("bob") != 0 {
		t.Fatalf("expected only the dispute credit, got alice=%d bob=%d", f.reputation.Points("alice"), f.reputation.Points("bob"))
	}
}

func TestSecondOpenDisputeWhilePollRequestPendingIsRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	job := f.activeJob(t, 100)
	startsAt := time.Now().UTC()
	open := commands.OpenDisputeCommand{
		JobID: job.JobID, Counterparty: "bob", StartsAt: startsAt, EndsAt: startsAt.Add(time.Hour), Caller: owner,
	}

	first, err := f.module.Disputes.OpenDispute(ctx, open)
	if err != nil {
		t.Fatalf("open dispute failed: %v", err)
	}
	if _, err := f.module.Disputes.OpenDispute(ctx, open); !errors.Is(err, domainerrors.ErrDisputeAlreadyOpen) {
		t.Fatalf("expected ErrDisputeAlreadyOpen while the poll request is pending, got %v", err)
	}
	if got := len(f.outbox.Envelopes(events.TopicPollCreationRequested)); got != 1 {
		t.Fatalf("expected one funded poll request, got %d", got)
	}

	if err := f.module.Disputes.HandlePollCreated(ctx, events.PollCreationCompleted{
		RequestID: first.OperationID, Status: events.CallFailed, Error: "poll rejected",
	}); err != nil {
		t.Fatalf("handle poll created: %v", err)
	}
	if _, err := f.module.Disputes.OpenDispute(ctx, open); err != nil {
		t.Fatalf("reopen after a failed poll request: %v", err)
	}
	if got := len(f.outbox.Envelopes(events.TopicPollCreationRequested)); got != 2 {
		t.Fatalf("expected a second poll request after the failure, got %d", got)
	}
}
