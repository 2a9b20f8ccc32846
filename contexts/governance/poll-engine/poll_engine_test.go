package pollengine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	pollengine "arbiter/contexts/governance/poll-engine"
	"arbiter/contexts/governance/poll-engine/adapters/memory"
	"arbiter/contexts/governance/poll-engine/application/commands"
	"arbiter/contexts/governance/poll-engine/domain/entities"
	domainerrors "arbiter/contexts/governance/poll-engine/domain/errors"
	"arbiter/contexts/governance/poll-engine/ports"
	"arbiter/internal/platform/ledger"
	"arbiter/internal/platform/messaging"
	"arbiter/internal/shared/events"
	"arbiter/internal/shared/faults"
	"arbiter/internal/shared/outbox"

	"github.com/brianvoe/gofakeit/v6"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return epoch.Add(time.Duration(seconds) * time.Second)
}

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

type recordingPayouts struct {
	mu       sync.Mutex
	requests []ports.PayoutRequest
	err      error
}

func (p *recordingPayouts) IssuePayout(_ context.Context, request ports.PayoutRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, request)
	if p.err != nil {
		return "", p.err
	}
	return fmt.Sprintf("settlement-%d", len(p.requests)), nil
}

func (p *recordingPayouts) Requests() []ports.PayoutRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ports.PayoutRequest(nil), p.requests...)
}

type fixture struct {
	module  pollengine.Module
	clock   *manualClock
	payouts *recordingPayouts
	outbox  *outbox.MemoryStore
	bus     *messaging.Bus
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore()
	clock := &manualClock{now: at(0)}
	payouts := &recordingPayouts{}
	outboxStore := outbox.NewMemoryStore()
	bus := messaging.NewBus(nil, messaging.WithSynchronousDelivery())
	module := pollengine.NewModule(pollengine.Dependencies{
		Polls:      store,
		Ballots:    store,
		Payouts:    payouts,
		Outbox:     outboxStore,
		Subscriber: bus,
		Dedup:      outboxStore,
		Clock:      clock,
		IDGen:      store,
	})
	return fixture{module: module, clock: clock, payouts: payouts, outbox: outboxStore, bus: bus}
}

func (f fixture) createBinaryPoll(t *testing.T, budget int64) entities.Poll {
	t.Helper()
	poll, err := f.module.Polls.CreatePoll(context.Background(), commands.CreatePollCommand{
		Creator:  "creator",
		Question: "Who delivered?",
		Options: []entities.Option{
			{OptionID: entities.OptionFirst, Label: "creator"},
			{OptionID: entities.OptionSecond, Label: "freelancer"},
		},
		StartsAt: at(100),
		EndsAt:   at(200),
		Budget:   budget,
	})
	if err != nil {
		t.Fatalf("create poll failed: %v", err)
	}
	return poll
}

func (f fixture) cast(t *testing.T, pollID string, voter string, weight int64, optionID string) {
	t.Helper()
	_, err := f.module.Votes.CastVote(context.Background(), commands.CastVoteCommand{
		PollID:     pollID,
		Voter:      voter,
		Weight:     weight,
		Selections: []entities.Selection{{OptionID: optionID, Selected: true}},
	})
	if err != nil {
		t.Fatalf("cast vote for %s failed: %v", voter, err)
	}
}

func TestWinnerClaimsWholeBudgetAndLoserIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	poll := f.createBinaryPoll(t, 1000)

	f.clock.Set(at(150))
	f.cast(t, poll.PollID, "voter-x", 30, entities.OptionFirst)
	f.clock.Set(at(160))
	f.cast(t, poll.PollID, "voter-y", 70, entities.OptionSecond)

	f.clock.Set(at(201))
	winner, err := f.module.Queries.ResolveWinner(ctx, poll.PollID)
	if err != nil || winner != entities.OptionSecond {
		t.Fatalf("expected v2 winner, got %q err=%v", winner, err)
	}

	claim, err := f.module.Claims.ClaimReward(ctx, commands.ClaimRewardCommand{PollID: poll.PollID, Caller: "voter-y"})
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if claim.Payout != 1000 || claim.SettlementID == "" {
		t.Fatalf("expected payout 1000 with settlement, got %+v", claim)
	}
	requests := f.payouts.Requests()
	if len(requests) != 1 || requests[0].Recipient != "voter-y" || requests[0].Amount != 1000 || requests[0].SourceRef != poll.PollID {
		t.Fatalf("unexpected payout requests %+v", requests)
	}

	_, err = f.module.Claims.ClaimReward(ctx, commands.ClaimRewardCommand{PollID: poll.PollID, Caller: "voter-x"})
	if !errors.Is(err, domainerrors.ErrWrongSide) || !errors.Is(err, faults.ErrAuthorization) {
		t.Fatalf("expected wrong side authorization error, got %v", err)
	}
	_, err = f.module.Claims.ClaimReward(ctx, commands.ClaimRewardCommand{PollID: poll.PollID, Caller: "voter-y"})
	if !errors.Is(err, faults.ErrDuplicateAction) {
		t.Fatalf("expected duplicate claim error, got %v", err)
	}
	if len(f.payouts.Requests()) != 1 {
		t.Fatalf("rejected claims must not issue payouts")
	}
}

func TestTieResolvesToSecondOption(t *testing.T) {
	f := newFixture(t)
	poll := f.createBinaryPoll(t, 100)

	f.clock.Set(at(120))
	f.cast(t, poll.PollID, "voter-a", 50, entities.OptionFirst)
	f.cast(t, poll.PollID, "voter-b", 50, entities.OptionSecond)

	f.clock.Set(at(300))
	winner, err := f.module.Queries.ResolveWinner(context.Background(), poll.PollID)
	if err != nil || winner != entities.OptionSecond {
		t.Fatalf("expected tie to resolve to v2, got %q err=%v", winner, err)
	}
}

func TestRepeatedOptionCannotOutweighMajority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	poll := f.createBinaryPoll(t, 100)

	f.clock.Set(at(150))
	f.cast(t, poll.PollID, "voter-honest", 70, entities.OptionSecond)

	repeated := make([]entities.Selection, 0, 10)
	for i := 0; i < 10; i++ {
		repeated = append(repeated, entities.Selection{OptionID: entities.OptionFirst, Selected: true})
	}
	_, err := f.module.Votes.CastVote(ctx, commands.CastVoteCommand{
		PollID:     poll.PollID,
		Voter:      "voter-stuffing",
		Weight:     10,
		Selections: repeated,
	})
	if !errors.Is(err, domainerrors.ErrDuplicateSelection) || !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected duplicate selection error, got %v", err)
	}
	_, err = f.module.Votes.RequestVote(ctx, commands.RequestVoteCommand{
		PollID:     poll.PollID,
		Voter:      "voter-stuffing",
		Selections: repeated,
	})
	if !errors.Is(err, domainerrors.ErrDuplicateSelection) {
		t.Fatalf("expected ballot request to reject repeated option, got %v", err)
	}

	result, _, err := f.module.Queries.GetResults(ctx, poll.PollID)
	if err != nil {
		t.Fatalf("results not readable: %v", err)
	}
	if result.Tally[entities.OptionFirst] != 0 || result.Tally[entities.OptionSecond] != 70 || result.TotalVotedStake != 70 {
		t.Fatalf("rejected vote changed the tally: %+v", result)
	}

	f.clock.Set(at(201))
	winner, err := f.module.Queries.ResolveWinner(ctx, poll.PollID)
	if err != nil || winner != entities.OptionSecond {
		t.Fatalf("expected v2 winner, got %q err=%v", winner, err)
	}
	if _, err := f.module.Claims.ClaimReward(ctx, commands.ClaimRewardCommand{PollID: poll.PollID, Caller: "voter-stuffing"}); !errors.Is(err, domainerrors.ErrNoVoteRecord) {
		t.Fatalf("expected no vote record for rejected voter, got %v", err)
	}
}

func TestSecondVoteIsRejectedAndTallyUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	poll := f.createBinaryPoll(t, 100)

	f.clock.Set(at(150))
	f.cast(t, poll.PollID, "voter-x", 30, entities.OptionFirst)
	_, err := f.module.Votes.CastVote(ctx, commands.CastVoteCommand{
		PollID:     poll.PollID,
		Voter:      "voter-x",
		Weight:     30,
		Selections: []entities.Selection{{OptionID: entities.OptionSecond, Selected: true}},
	})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) || !errors.Is(err, faults.ErrDuplicateAction) {
		t.Fatalf("expected duplicate vote error, got %v", err)
	}

	result, found, err := f.module.Queries.GetResults(ctx, poll.PollID)
	if err != nil || !found {
		t.Fatalf("results not readable: found=%v err=%v", found, err)
	}
	if result.Tally[entities.OptionFirst] != 30 || result.Tally[entities.OptionSecond] != 0 || result.TotalVotedStake != 30 {
		t.Fatalf("tally changed by duplicate vote: %+v", result)
	}
	if len(result.Voters) != 1 {
		t.Fatalf("expected one voter record, got %d", len(result.Voters))
	}
}

func TestCastVoteValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	poll := f.createBinaryPoll(t, 100)

	vote := func(weight int64, selections ...entities.Selection) error {
		_, err := f.module.Votes.CastVote(ctx, commands.CastVoteCommand{
			PollID:     poll.PollID,
			Voter:      "voter",
			Weight:     weight,
			Selections: selections,
		})
		return err
	}
	first := entities.Selection{OptionID: entities.OptionFirst, Selected: true}

	f.clock.Set(at(99))
	if err := vote(10, first); !errors.Is(err, domainerrors.ErrVotingClosed) {
		t.Fatalf("expected closed window before start, got %v", err)
	}
	f.clock.Set(at(200))
	if err := vote(10, first); !errors.Is(err, domainerrors.ErrVotingClosed) {
		t.Fatalf("expected closed window at end, got %v", err)
	}

	f.clock.Set(at(100))
	if err := vote(0, first); !errors.Is(err, domainerrors.ErrNoStake) {
		t.Fatalf("expected no stake error, got %v", err)
	}
	if err := vote(10, entities.Selection{OptionID: "v9", Selected: true}); !errors.Is(err, domainerrors.ErrUnknownOption) {
		t.Fatalf("expected unknown option error, got %v", err)
	}
	if err := vote(10, entities.Selection{OptionID: entities.OptionFirst}); !errors.Is(err, domainerrors.ErrNoSelection) {
		t.Fatalf("expected no selection error, got %v", err)
	}
	if _, err := f.module.Votes.CastVote(ctx, commands.CastVoteCommand{PollID: "missing", Voter: "voter", Weight: 1, Selections: []entities.Selection{first}}); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not found for unknown poll, got %v", err)
	}
	if err := vote(10, first); err != nil {
		t.Fatalf("vote at window start failed: %v", err)
	}
}

func TestResolveWinnerRequiresEndedPoll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	poll := f.createBinaryPoll(t, 100)

	f.clock.Set(at(200))
	if _, err := f.module.Queries.ResolveWinner(ctx, poll.PollID); !errors.Is(err, domainerrors.ErrPollNotEnded) {
		t.Fatalf("expected poll has not ended, got %v", err)
	}
	if _, err := f.module.Claims.ClaimReward(ctx, commands.ClaimRewardCommand{PollID: poll.PollID, Caller: "x"}); !errors.Is(err, domainerrors.ErrPollNotEnded) {
		t.Fatalf("expected claim before end to fail, got %v", err)
	}
	if _, err := f.module.Queries.ResolveWinner(ctx, "missing"); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	f.clock.Set(at(201))
	if _, err := f.module.Claims.ClaimReward(ctx, commands.ClaimRewardCommand{PollID: poll.PollID, Caller: "stranger"}); !errors.Is(err, domainerrors.ErrNoVoteRecord) {
		t.Fatalf("expected missing vote record, got %v", err)
	}
	_, _, found, err := f.module.Queries.EndPoll(ctx, poll.PollID)
	if err != nil || !found {
		t.Fatalf("expected ended poll, found=%v err=%v", found, err)
	}
}

func TestClaimIsRecordedBeforePayoutOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.payouts.err = faults.ExternalService("ledger unavailable")
	poll := f.createBinaryPoll(t, 500)

	f.clock.Set(at(150))
	f.cast(t, poll.PollID, "voter-y", 70, entities.OptionSecond)
	f.clock.Set(at(250))

	claim, err := f.module.Claims.ClaimReward(ctx, commands.ClaimRewardCommand{PollID: poll.PollID, Caller: "voter-y"})
	if err != nil {
		t.Fatalf("payout failure must not fail the claim: %v", err)
	}
	if claim.SettlementID != "" || claim.Payout != 500 {
		t.Fatalf("unexpected claim %+v", claim)
	}
	result, _, _ := f.module.Queries.GetResults(ctx, poll.PollID)
	if !result.Voters["voter-y"].Claimed {
		t.Fatalf("claimed flag must stay set after a failed payout")
	}
}

func TestZeroPayoutIsSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	poll := f.createBinaryPoll(t, 0)

	f.clock.Set(at(150))
	f.cast(t, poll.PollID, "voter-y", 70, entities.OptionSecond)
	f.clock.Set(at(250))

	claim, err := f.module.Claims.ClaimReward(ctx, commands.ClaimRewardCommand{PollID: poll.PollID, Caller: "voter-y"})
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if claim.Payout != 0 || len(f.payouts.Requests()) != 0 {
		t.Fatalf("zero payout must not be issued, got %+v", claim)
	}
}

func TestUpdateWindowRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	poll := f.createBinaryPoll(t, 100)

	update := func(caller string, start, end time.Time) error {
		_, err := f.module.Polls.UpdateWindow(ctx, commands.UpdateWindowCommand{
			PollID:   poll.PollID,
			Caller:   caller,
			StartsAt: start,
			EndsAt:   end,
		})
		return err
	}
	if err := update("intruder", at(100), at(400)); !errors.Is(err, faults.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if err := update("creator", at(400), at(400)); !errors.Is(err, domainerrors.ErrInvalidWindow) {
		t.Fatalf("expected invalid window, got %v", err)
	}
	if _, err := f.module.Polls.UpdateWindow(ctx, commands.UpdateWindowCommand{PollID: "missing", Caller: "creator", StartsAt: at(1), EndsAt: at(2)}); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	f.clock.Set(at(150))
	f.cast(t, poll.PollID, "voter-x", 30, entities.OptionFirst)
	if err := update("creator", at(100), at(400)); err != nil {
		t.Fatalf("window update after voting started must be allowed: %v", err)
	}
	stored, found, _ := f.module.Queries.GetPoll(ctx, poll.PollID)
	if !found || !stored.EndsAt.Equal(at(400)) {
		t.Fatalf("expected window end moved, got %+v", stored)
	}
}

func TestCreatePollValidationAndAbsentReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  commands.CreatePollCommand
		want error
	}{
		{name: "inverted window", cmd: commands.CreatePollCommand{Creator: "c", Question: "q", Options: []entities.Option{{OptionID: "v1"}}, StartsAt: at(10), EndsAt: at(10)}, want: domainerrors.ErrInvalidWindow},
		{name: "no options", cmd: commands.CreatePollCommand{Creator: "c", Question: "q", StartsAt: at(1), EndsAt: at(2)}, want: domainerrors.ErrNoOptions},
		{name: "duplicate option", cmd: commands.CreatePollCommand{Creator: "c", Question: "q", Options: []entities.Option{{OptionID: "v1"}, {OptionID: "v1"}}, StartsAt: at(1), EndsAt: at(2)}, want: domainerrors.ErrDuplicateOption},
		{name: "negative budget", cmd: commands.CreatePollCommand{Creator: "c", Question: "q", Options: []entities.Option{{OptionID: "v1"}}, StartsAt: at(1), EndsAt: at(2), Budget: -1}, want: domainerrors.ErrNegativeBudget},
		{name: "missing creator", cmd: commands.CreatePollCommand{Question: "q", Options: []entities.Option{{OptionID: "v1"}}, StartsAt: at(1), EndsAt: at(2)}, want: domainerrors.ErrInvalidCreator},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.module.Polls.CreatePoll(ctx, tc.cmd); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, found, err := f.module.Queries.GetPoll(ctx, "missing"); err != nil || found {
		t.Fatalf("unknown poll must read as absent, found=%v err=%v", found, err)
	}
	if _, found, err := f.module.Queries.GetResults(ctx, "missing"); err != nil || found {
		t.Fatalf("unknown results must read as absent, found=%v err=%v", found, err)
	}

	first := f.createBinaryPoll(t, 10)
	second := f.createBinaryPoll(t, 10)
	if first.PollID == second.PollID {
		t.Fatalf("poll ids must be unique")
	}
	polls, err := f.module.Queries.ListPolls(ctx)
	if err != nil || len(polls) != 2 {
		t.Fatalf("expected two polls, got %d err=%v", len(polls), err)
	}
}

func TestMultiSelectionAddsWeightToEachSelectedOption(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	poll := f.createBinaryPoll(t, 100)

	f.clock.Set(at(150))
	record, err := f.module.Votes.CastVote(ctx, commands.CastVoteCommand{
		PollID: poll.PollID,
		Voter:  "voter-m",
		Weight: 40,
		Selections: []entities.Selection{
			{OptionID: entities.OptionFirst, Selected: true},
			{OptionID: entities.OptionSecond, Selected: true},
		},
	})
	if err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if record.OptionID != entities.OptionSecond {
		t.Fatalf("expected record to keep last selected option, got %s", record.OptionID)
	}
	result, _, _ := f.module.Queries.GetResults(ctx, poll.PollID)
	if result.Tally[entities.OptionFirst] != 40 || result.Tally[entities.OptionSecond] != 40 || result.TotalVotedStake != 40 {
		t.Fatalf("unexpected multi-selection tally %+v", result)
	}
}

func TestSingleSelectionTallyMatchesStake(t *testing.T) {
	faker := gofakeit.New(20260101)
	f := newFixture(t)
	ctx := context.Background()
	poll, err := f.module.Polls.CreatePoll(ctx, commands.CreatePollCommand{
		Creator:  "creator",
		Question: faker.Question(),
		Options: []entities.Option{
			{OptionID: entities.OptionFirst},
			{OptionID: entities.OptionSecond},
			{OptionID: "v3"},
		},
		StartsAt: at(100),
		EndsAt:   at(200),
		Budget:   int64(faker.Number(1, 1_000_000)),
	})
	if err != nil {
		t.Fatalf("create poll failed: %v", err)
	}

	f.clock.Set(at(150))
	var weights int64
	for i := 0; i < 200; i++ {
		weight := int64(faker.Number(1, 10_000))
		option := faker.RandomString([]string{entities.OptionFirst, entities.OptionSecond, "v3"})
		voter := fmt.Sprintf("%s-%d", faker.Username(), i)
		f.cast(t, poll.PollID, voter, weight, option)
		weights += weight
	}

	result, _, _ := f.module.Queries.GetResults(ctx, poll.PollID)
	var tallied int64
	for _, weight := range result.Tally {
		tallied += weight
	}
	var recorded int64
	for _, record := range result.Voters {
		recorded += record.Weight
	}
	if tallied != weights || recorded != weights || result.TotalVotedStake != weights {
		t.Fatalf("sum mismatch: tally=%d records=%d total=%d weights=%d", tallied, recorded, result.TotalVotedStake, weights)
	}

	f.clock.Set(at(201))
	winner := entities.ResolveWinner(result.Tally)
	var paid int64
	for voter, record := range result.Voters {
		if record.OptionID != winner {
			continue
		}
		claim, err := f.module.Claims.ClaimReward(ctx, commands.ClaimRewardCommand{PollID: poll.PollID, Caller: voter})
		if err != nil {
			t.Fatalf("claim for %s failed: %v", voter, err)
		}
		paid += claim.Payout
	}
	if paid > poll.Budget {
		t.Fatalf("payouts %d exceed budget %d", paid, poll.Budget)
	}
}

func TestRequestVoteCastsWithLedgerBalance(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledgerService := ledger.NewMemory()
	ledgerService.SetBalance("voter-x", 30)
	gateway := ledger.Gateway{Service: ledgerService, Subscriber: f.bus, Outbox: f.outbox, Dedup: f.outbox}
	if err := gateway.Start(ctx); err != nil {
		t.Fatalf("start gateway: %v", err)
	}
	if err := f.module.BalanceResults.Start(ctx); err != nil {
		t.Fatalf("start consumer: %v", err)
	}
	relay := outbox.Relay{Outbox: f.outbox, Publisher: f.bus}
	drain := func() {
		for i := 0; i < 10; i++ {
			published, err := relay.RunOnce(ctx)
			if err != nil {
				t.Fatalf("relay failed: %v", err)
			}
			if published == 0 {
				return
			}
		}
	}

	poll := f.createBinaryPoll(t, 100)
	f.clock.Set(at(150))
	selection := []entities.Selection{{OptionID: entities.OptionFirst, Selected: true}}

	ballot, err := f.module.Votes.RequestVote(ctx, commands.RequestVoteCommand{PollID: poll.PollID, Voter: "voter-x", Selections: selection})
	if err != nil {
		t.Fatalf("request vote failed: %v", err)
	}
	if ballot.Status != entities.BallotStatusAwaitingBalance {
		t.Fatalf("expected awaiting ballot, got %s", ballot.Status)
	}
	poor, err := f.module.Votes.RequestVote(ctx, commands.RequestVoteCommand{PollID: poll.PollID, Voter: "voter-poor", Selections: selection})
	if err != nil {
		t.Fatalf("request vote failed: %v", err)
	}
	drain()

	stored, found, err := f.module.Queries.GetBallot(ctx, ballot.BallotID)
	if err != nil || !found || stored.Status != entities.BallotStatusCast || stored.Weight != 30 {
		t.Fatalf("expected cast ballot with weight 30, got %+v err=%v", stored, err)
	}
	rejected, _, _ := f.module.Queries.GetBallot(ctx, poor.BallotID)
	if rejected.Status != entities.BallotStatusRejected || rejected.FailureReason != domainerrors.ErrNoStake.Error() {
		t.Fatalf("expected ballot without stake rejected, got %+v", rejected)
	}
	result, _, _ := f.module.Queries.GetResults(ctx, poll.PollID)
	if result.Tally[entities.OptionFirst] != 30 || len(result.Voters) != 1 {
		t.Fatalf("unexpected tally %+v", result)
	}

	if _, err := f.module.Votes.RequestVote(ctx, commands.RequestVoteCommand{PollID: poll.PollID, Voter: "voter-x", Selections: selection}); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted on second request, got %v", err)
	}
}

func TestPollRequestConsumerReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creation, err := events.NewEnvelope("evt-create", events.TopicPollCreationRequested, "job-escrow", "op-1", "job-1", at(0), events.PollCreationRequested{
		RequestID: "op-1",
		Creator:   "owner",
		Question:  "Who is right?",
		Options: []events.PollOption{
			{OptionID: entities.OptionFirst, Label: "creator"},
			{OptionID: entities.OptionSecond, Label: "freelancer"},
		},
		StartsAt:   at(100),
		EndsAt:     at(200),
		Budget:     10,
		ReplyTopic: events.TopicJobDisputePollCreated,
	})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if err := f.module.Requests.HandleCreation(ctx, creation); err != nil {
		t.Fatalf("handle creation failed: %v", err)
	}
	replies := f.outbox.Envelopes(events.TopicJobDisputePollCreated)
	if len(replies) != 1 {
		t.Fatalf("expected one creation reply, got %d", len(replies))
	}
	var created events.PollCreationCompleted
	if err := replies[0].Decode(&created); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if created.Status != events.CallSucceeded || created.PollID == "" || created.RequestID != "op-1" {
		t.Fatalf("unexpected creation reply %+v", created)
	}
	poll, found, _ := f.module.Queries.GetPoll(ctx, created.PollID)
	if !found || poll.Creator != "owner" || poll.Budget != 10 {
		t.Fatalf("unexpected created poll %+v", poll)
	}

	winnerRequest, _ := events.NewEnvelope("evt-winner", events.TopicPollWinnerRequested, "job-escrow", "op-2", "job-1", at(150), events.PollWinnerRequested{
		RequestID:  "op-2",
		PollID:     created.PollID,
		ReplyTopic: events.TopicJobDisputeWinnerResolved,
	})
	f.clock.Set(at(150))
	if err := f.module.Requests.HandleWinner(ctx, winnerRequest); err != nil {
		t.Fatalf("handle winner failed: %v", err)
	}
	resolved := f.outbox.Envelopes(events.TopicJobDisputeWinnerResolved)
	if len(resolved) != 1 {
		t.Fatalf("expected one winner reply, got %d", len(resolved))
	}
	var winner events.PollWinnerResolved
	if err := resolved[0].Decode(&winner); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if winner.Status != events.CallNotReady {
		t.Fatalf("expected not_ready before poll end, got %+v", winner)
	}
}
