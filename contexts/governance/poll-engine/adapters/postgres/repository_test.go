package postgresadapter

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"arbiter/contexts/governance/poll-engine/domain/entities"
	domainerrors "arbiter/contexts/governance/poll-engine/domain/errors"
	"arbiter/internal/platform/db"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	database, err := db.Connect("sqlite", filepath.Join(t.TempDir(), "polls.db"))
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	repo := NewRepository(database.DB, nil)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func TestRepositoryPersistsPollTallyAndClaims(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	poll := entities.Poll{
		PollID:   "poll-1",
		Creator:  "creator",
		Question: "Who delivered?",
		Options: []entities.Option{
			{OptionID: entities.OptionSecond, Label: "freelancer"},
			{OptionID: entities.OptionFirst, Label: "creator"},
		},
		StartsAt:  start,
		EndsAt:    start.Add(time.Hour),
		Budget:    1000,
		CreatedAt: start,
		UpdatedAt: start,
	}
	if err := repo.CreatePoll(ctx, poll, entities.NewPollResult(poll.PollID)); err != nil {
		t.Fatalf("create poll failed: %v", err)
	}
	if err := repo.CreatePoll(ctx, poll, entities.NewPollResult(poll.PollID)); !errors.Is(err, domainerrors.ErrPollExists) {
		t.Fatalf("expected duplicate poll error, got %v", err)
	}

	stored, found, err := repo.GetPoll(ctx, "poll-1")
	if err != nil || !found {
		t.Fatalf("get poll failed: found=%v err=%v", found, err)
	}
	if len(stored.Options) != 2 || stored.Options[0].OptionID != entities.OptionSecond {
		t.Fatalf("expected options in creation order, got %+v", stored.Options)
	}

	result, _, err := repo.GetResult(ctx, "poll-1")
	if err != nil {
		t.Fatalf("get result failed: %v", err)
	}
	result.Apply("voter-x", 30, []entities.Selection{{OptionID: entities.OptionFirst, Selected: true}}, start.Add(time.Minute))
	result.Apply("voter-y", 70, []entities.Selection{{OptionID: entities.OptionSecond, Selected: true}}, start.Add(2*time.Minute))
	if err := repo.SaveResult(ctx, result); err != nil {
		t.Fatalf("save result failed: %v", err)
	}

	record := result.Voters["voter-y"]
	record.Claimed = true
	claimedAt := start.Add(2 * time.Hour)
	record.ClaimedAt = &claimedAt
	result.Voters["voter-y"] = record
	if err := repo.SaveResult(ctx, result); err != nil {
		t.Fatalf("save claim failed: %v", err)
	}

	reloaded, found, err := repo.GetResult(ctx, "poll-1")
	if err != nil || !found {
		t.Fatalf("reload result failed: found=%v err=%v", found, err)
	}
	if reloaded.TotalVotedStake != 100 || reloaded.Tally[entities.OptionFirst] != 30 || reloaded.Tally[entities.OptionSecond] != 70 {
		t.Fatalf("unexpected tally %+v", reloaded)
	}
	if !reloaded.Voters["voter-y"].Claimed || reloaded.Voters["voter-x"].Claimed {
		t.Fatalf("unexpected claim flags %+v", reloaded.Voters)
	}

	poll.EndsAt = start.Add(3 * time.Hour)
	if err := repo.SavePoll(ctx, poll); err != nil {
		t.Fatalf("save poll failed: %v", err)
	}
	if stored, _, _ := repo.GetPoll(ctx, "poll-1"); !stored.EndsAt.Equal(poll.EndsAt) {
		t.Fatalf("expected updated window, got %v", stored.EndsAt)
	}
	if reloaded, _, _ := repo.GetResult(ctx, "poll-1"); reloaded.TotalVotedStake != 100 {
		t.Fatalf("window update must not touch the tally, got %d", reloaded.TotalVotedStake)
	}
}

func TestRepositoryStoresBallots(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	ballot := entities.Ballot{
		BallotID:   "ballot-1",
		PollID:     "poll-1",
		Voter:      "voter-x",
		Selections: []entities.Selection{{OptionID: entities.OptionFirst, Selected: true}},
		Status:     entities.BallotStatusAwaitingBalance,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.SaveBallot(ctx, ballot); err != nil {
		t.Fatalf("save ballot failed: %v", err)
	}
	ballot.Status = entities.BallotStatusCast
	ballot.Weight = 30
	if err := repo.SaveBallot(ctx, ballot); err != nil {
		t.Fatalf("update ballot failed: %v", err)
	}

	stored, found, err := repo.GetBallot(ctx, "ballot-1")
	if err != nil || !found {
		t.Fatalf("get ballot failed: found=%v err=%v", found, err)
	}
	if stored.Status != entities.BallotStatusCast || stored.Weight != 30 || len(stored.Selections) != 1 {
		t.Fatalf("unexpected ballot %+v", stored)
	}
	if _, found, err := repo.GetBallot(ctx, "missing"); err != nil || found {
		t.Fatalf("expected absent ballot, found=%v err=%v", found, err)
	}
}
