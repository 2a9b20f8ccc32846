package queries

import (
	"context"
	"sort"
	"strings"
	"time"

	"arbiter/contexts/governance/poll-engine/domain/entities"
	domainerrors "arbiter/contexts/governance/poll-engine/domain/errors"
	"arbiter/contexts/governance/poll-engine/ports"
)

// PollQueries are the read side of the registry and tally. Unknown ids are
// reported as absent rather than as errors, except for winner resolution.
type PollQueries struct {
	Polls   ports.PollRepository
	Ballots ports.BallotRepository
	Clock   ports.Clock
}

func (q PollQueries) GetPoll(ctx context.Context, pollID string) (entities.Poll, bool, error) {
	return q.Polls.GetPoll(ctx, strings.TrimSpace(pollID))
}

func (q PollQueries) GetResults(ctx context.Context, pollID string) (entities.PollResult, bool, error) {
	return q.Polls.GetResult(ctx, strings.TrimSpace(pollID))
}

func (q PollQueries) ListPolls(ctx context.Context) ([]entities.Poll, error) {
	polls, err := q.Polls.ListPolls(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(polls, func(i, j int) bool {
		return polls[i].CreatedAt.Before(polls[j].CreatedAt)
	})
	return polls, nil
}

func (q PollQueries) GetBallot(ctx context.Context, ballotID string) (entities.Ballot, bool, error) {
	return q.Ballots.GetBallot(ctx, strings.TrimSpace(ballotID))
}

// ResolveWinner returns "v1" or "v2" for an ended poll.
func (q PollQueries) ResolveWinner(ctx context.Context, pollID string) (string, error) {
	_, result, found, err := q.EndPoll(ctx, pollID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", domainerrors.ErrPollNotFound
	}
	return entities.ResolveWinner(result.Tally), nil
}

// EndPoll returns the final poll and result once the window has closed.
func (q PollQueries) EndPoll(ctx context.Context, pollID string) (entities.Poll, entities.PollResult, bool, error) {
	pollID = strings.TrimSpace(pollID)
	poll, found, err := q.Polls.GetPoll(ctx, pollID)
	if err != nil || !found {
		return entities.Poll{}, entities.PollResult{}, false, err
	}
	if !poll.EndedAt(q.now()) {
		return entities.Poll{}, entities.PollResult{}, true, domainerrors.ErrPollNotEnded
	}
	result, found, err := q.Polls.GetResult(ctx, pollID)
	if err != nil {
		return entities.Poll{}, entities.PollResult{}, false, err
	}
	if !found {
		result = entities.NewPollResult(pollID)
	}
	return poll, result, true, nil
}

func (q PollQueries) now() time.Time {
	if q.Clock == nil {
		return time.Now().UTC()
	}
	return q.Clock.Now().UTC()
}
