package bootstrap_test

import (
	"context"
	"sync"
	"testing"
	"time"

	settlemententities "arbiter/contexts/finance-core/settlement-coordinator/domain/entities"
	settlementports "arbiter/contexts/finance-core/settlement-coordinator/ports"
	pollcommands "arbiter/contexts/governance/poll-engine/application/commands"
	pollentities "arbiter/contexts/governance/poll-engine/domain/entities"
	jobcommands "arbiter/contexts/marketplace/job-escrow/application/commands"
	jobentities "arbiter/contexts/marketplace/job-escrow/domain/entities"
	"arbiter/internal/app/bootstrap"
	"arbiter/internal/platform/config"
	"arbiter/internal/platform/ledger"
	"arbiter/internal/platform/messaging"
	"arbiter/internal/shared/events"
)

const (
	owner    = "protocol-owner"
	operator = "poll-operator"
)

var base = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type harness struct {
	app    *bootstrap.App
	ledger *ledger.Memory
	clock  *manualClock
}

func newHarness(t *testing.T) harness {
	t.Helper()
	cfg := config.Config{
		ServiceName:          "arbiter-test",
		HTTPPort:             "0",
		StorageDriver:        config.StorageMemory,
		ProtocolOwnerAccount: owner,
		PollOperatorAccount:  operator,
		WorkerPollInterval:   time.Second,
	}
	memoryLedger := ledger.NewMemory()
	clock := &manualClock{now: base}
	app, err := bootstrap.Build(context.Background(), cfg, nil,
		bootstrap.WithLedger(memoryLedger),
		bootstrap.WithBus(messaging.NewBus(nil, messaging.WithSynchronousDelivery())),
		bootstrap.WithClock(clock),
	)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = app.Close()
	})
	if err := app.StartConsumers(ctx); err != nil {
		t.Fatalf("start consumers failed: %v", err)
	}
	return harness{app: app, ledger: memoryLedger, clock: clock}
}

func (h harness) drain(t *testing.T) {
	t.Helper()
	if err := h.app.Drain(context.Background()); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
}

func (h harness) balance(t *testing.T, account string) int64 {
	t.Helper()
	balance, err := h.ledger.BalanceOf(context.Background(), account)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	return balance
}

func (h harness) points(t *testing.T, account string) int64 {
	t.Helper()
	entry, err := h.app.Reputation.Service.GetPoints(context.Background(), account)
	if err != nil {
		t.Fatalf("get points failed: %v", err)
	}
	return entry.Points
}

// activeJob opens a job for alice, has bob claim it and starts it.
func (h harness) activeJob(t *testing.T, budget int64) jobentities.Job {
	t.Helper()
	ctx := context.Background()
	job, err := h.app.Jobs.Jobs.Open(ctx, jobcommands.OpenJobCommand{Creator: "alice", Budget: budget})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := h.app.Jobs.Jobs.Claim(ctx, jobcommands.ClaimJobCommand{JobID: job.JobID, Party: "bob"}); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	job, err = h.app.Jobs.Jobs.Start(ctx, jobcommands.StartJobCommand{JobID: job.JobID, Counterparty: "bob", Caller: "alice"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	return job
}

func TestCooperativeJobSettlesThroughLedger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.activeJob(t, 100)

	if _, err := h.app.Jobs.Jobs.MarkComplete(ctx, jobcommands.MarkCompleteCommand{JobID: job.JobID, Caller: "bob", Success: true}); err != nil {
		t.Fatalf("mark complete failed: %v", err)
	}
	if _, err := h.app.Jobs.Jobs.End(ctx, jobcommands.EndJobCommand{JobID: job.JobID, Counterparty: "bob", Caller: "alice"}); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	h.drain(t)

	if got := h.balance(t, "bob"); got != 95 {
		t.Fatalf("expected bob balance 95, got %d", got)
	}
	if got := h.balance(t, owner); got != 5 {
		t.Fatalf("expected owner balance 5, got %d", got)
	}
	completed, err := h.app.Settlements.Queries.ListSettlements(ctx, settlementports.SettlementFilter{
		SourceRef: job.JobID,
		Status:    settlemententities.SettlementStatusCompleted,
	})
	if err != nil {
		t.Fatalf("list settlements failed: %v", err)
	}
	if len(completed) != 2 {
		t.Fatalf("expected 2 completed settlements, got %d", len(completed))
	}
	if h.points(t, "alice") != 100 || h.points(t, "bob") != 100 {
		t.Fatalf("expected both parties credited 100, got alice=%d bob=%d", h.points(t, "alice"), h.points(t, "bob"))
	}
}

func TestFailedRegistrationLeavesJobEndedWithoutTransfer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ledger.FailRegistration("bob", nil)
	job := h.activeJob(t, 100)

	if _, err := h.app.Jobs.Jobs.MarkComplete(ctx, jobcommands.MarkCompleteCommand{JobID: job.JobID, Caller: "bob", Success: true}); err != nil {
		t.Fatalf("mark complete failed: %v", err)
	}
	if _, err := h.app.Jobs.Jobs.End(ctx, jobcommands.EndJobCommand{JobID: job.JobID, Counterparty: "bob", Caller: "alice"}); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	h.drain(t)

	for _, call := range h.ledger.Calls(events.LedgerCallTransferFunds) {
		if call.Account == "bob" {
			t.Fatalf("transfer to bob must never be issued: %+v", call)
		}
	}
	stored, found, err := h.app.Jobs.Queries.GetJob(ctx, job.JobID)
	if err != nil || !found {
		t.Fatalf("get job failed: found=%v err=%v", found, err)
	}
	if !stored.Ended {
		t.Fatalf("expected ended flag to stay set")
	}
	failed, err := h.app.Settlements.Queries.ListSettlements(ctx, settlementports.SettlementFilter{
		SourceRef: job.JobID,
		Status:    settlemententities.SettlementStatusFailed,
	})
	if err != nil {
		t.Fatalf("list settlements failed: %v", err)
	}
	if len(failed) != 1 || failed[0].Recipient != "bob" || failed[0].FailedPhase != settlemententities.PhaseRegister {
		t.Fatalf("expected one register-phase failure for bob, got %+v", failed)
	}
	if got := h.balance(t, owner); got != 5 {
		t.Fatalf("expected owner fee to settle independently, got %d", got)
	}
}

func TestFailedRegistrationLeavesRewardClaimed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ledger.SetBalance("yara", 70)
	h.ledger.FailRegistration("yara", nil)

	poll, err := h.app.Polls.Polls.CreatePoll(ctx, pollcommands.CreatePollCommand{
		Creator:  "alice",
		Question: "Ship it?",
		Options: []pollentities.Option{
			{OptionID: pollentities.OptionFirst, Label: "no"},
			{OptionID: pollentities.OptionSecond, Label: "yes"},
		},
		StartsAt: base.Add(time.Minute),
		EndsAt:   base.Add(time.Hour),
		Budget:   1000,
	})
	if err != nil {
		t.Fatalf("create poll failed: %v", err)
	}

	h.clock.Set(base.Add(10 * time.Minute))
	if _, err := h.app.Polls.Votes.RequestVote(ctx, pollcommands.RequestVoteCommand{
		PollID:     poll.PollID,
		Voter:      "yara",
		Selections: []pollentities.Selection{{OptionID: pollentities.OptionSecond, Selected: true}},
	}); err != nil {
		t.Fatalf("request vote failed: %v", err)
	}
	h.drain(t)

	h.clock.Set(base.Add(2 * time.Hour))
	claim, err := h.app.Polls.Claims.ClaimReward(ctx, pollcommands.ClaimRewardCommand{PollID: poll.PollID, Caller: "yara"})
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if claim.Payout != 1000 {
		t.Fatalf("expected payout 1000, got %d", claim.Payout)
	}
	h.drain(t)

	if calls := h.ledger.Calls(events.LedgerCallTransferFunds); len(calls) != 0 {
		t.Fatalf("expected no transfer calls, got %+v", calls)
	}
	result, found, err := h.app.Polls.Queries.GetResults(ctx, poll.PollID)
	if err != nil || !found {
		t.Fatalf("get results failed: found=%v err=%v", found, err)
	}
	if !result.Voters["yara"].Claimed {
		t.Fatalf("expected claimed flag to stay set")
	}
	settlement, found, err := h.app.Settlements.Queries.GetSettlement(ctx, claim.SettlementID)
	if err != nil || !found {
		t.Fatalf("get settlement failed: found=%v err=%v", found, err)
	}
	if settlement.Status != settlemententities.SettlementStatusFailed {
		t.Fatalf("expected failed settlement, got %s", settlement.Status)
	}
}

func TestDisputeResolvedThroughPollEngine(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ledger.SetBalance("carol", 30)
	h.ledger.SetBalance("dave", 70)
	job := h.activeJob(t, 100)

	if _, err := h.app.Jobs.Disputes.OpenDispute(ctx, jobcommands.OpenDisputeCommand{
		JobID:        job.JobID,
		Counterparty: "bob",
		StartsAt:     base.Add(time.Minute),
		EndsAt:       base.Add(time.Hour),
		Caller:       owner,
	}); err != nil {
		t.Fatalf("open dispute failed: %v", err)
	}
	h.drain(t)

	disputed, _, err := h.app.Jobs.Queries.GetJob(ctx, job.JobID)
	if err != nil {
		t.Fatalf("get job failed: %v", err)
	}
	if disputed.Status() != jobentities.JobStatusDisputed || disputed.DisputePollID == "" {
		t.Fatalf("expected disputed job with poll, got %s poll=%q", disputed.Status(), disputed.DisputePollID)
	}
	poll, found, err := h.app.Polls.Queries.GetPoll(ctx, disputed.DisputePollID)
	if err != nil || !found {
		t.Fatalf("dispute poll missing: found=%v err=%v", found, err)
	}
	if poll.Budget != 10 || poll.Creator != owner {
		t.Fatalf("unexpected dispute poll: %+v", poll)
	}

	h.clock.Set(base.Add(10 * time.Minute))
	votes := map[string]string{"carol": pollentities.OptionFirst, "dave": pollentities.OptionSecond}
	for voter, option := range votes {
		if _, err := h.app.Polls.Votes.RequestVote(ctx, pollcommands.RequestVoteCommand{
			PollID:     poll.PollID,
			Voter:      voter,
			Selections: []pollentities.Selection{{OptionID: option, Selected: true}},
		}); err != nil {
			t.Fatalf("request vote for %s failed: %v", voter, err)
		}
	}
	h.drain(t)

	h.clock.Set(base.Add(2 * time.Hour))
	operation, err := h.app.Jobs.Disputes.ResolveDispute(ctx, jobcommands.ResolveDisputeCommand{
		JobID:        job.JobID,
		Counterparty: "bob",
		Caller:       owner,
	})
	if err != nil {
		t.Fatalf("resolve dispute failed: %v", err)
	}
	h.drain(t)

	stored, found, err := h.app.Jobs.Queries.GetOperation(ctx, operation.OperationID)
	if err != nil || !found {
		t.Fatalf("get operation failed: found=%v err=%v", found, err)
	}
	if stored.Status != jobentities.OperationSucceeded {
		t.Fatalf("expected succeeded operation, got %s (%s)", stored.Status, stored.Detail)
	}
	if got := h.balance(t, "bob"); got != 90 {
		t.Fatalf("expected bob balance 90, got %d", got)
	}
	if got := h.balance(t, operator); got != 10 {
		t.Fatalf("expected operator balance 10, got %d", got)
	}
	if got := h.points(t, "bob"); got != 50 {
		t.Fatalf("expected bob credited 50, got %d", got)
	}
}
