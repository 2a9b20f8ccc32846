package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"arbiter/contexts/governance/poll-engine/domain/entities"
	domainerrors "arbiter/contexts/governance/poll-engine/domain/errors"
	"arbiter/contexts/governance/poll-engine/ports"

	"github.com/google/uuid"
)

type Store struct {
	mu      sync.RWMutex
	polls   map[string]entities.Poll
	order   []string
	results map[string]entities.PollResult
	ballots map[string]entities.Ballot
}

func NewStore() *Store {
	return &Store{
		polls:   make(map[string]entities.Poll),
		results: make(map[string]entities.PollResult),
		ballots: make(map[string]entities.Ballot),
	}
}

func (s *Store) CreatePoll(_ context.Context, poll entities.Poll, result entities.PollResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.polls[poll.PollID]; exists {
		return domainerrors.ErrPollExists
	}
	s.polls[poll.PollID] = clonePoll(poll)
	s.order = append(s.order, poll.PollID)
	s.results[poll.PollID] = result.Clone()
	return nil
}

func (s *Store) SavePoll(_ context.Context, poll entities.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.polls[poll.PollID]; !exists {
		return domainerrors.ErrPollNotFound
	}
	s.polls[poll.PollID] = clonePoll(poll)
	return nil
}

func (s *Store) GetPoll(_ context.Context, pollID string) (entities.Poll, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return entities.Poll{}, false, nil
	}
	return clonePoll(poll), true, nil
}

func (s *Store) ListPolls(_ context.Context) ([]entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Poll, 0, len(s.order))
	for _, pollID := range s.order {
		items = append(items, clonePoll(s.polls[pollID]))
	}
	return items, nil
}

func (s *Store) GetResult(_ context.Context, pollID string) (entities.PollResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[strings.TrimSpace(pollID)]
	if !ok {
		return entities.PollResult{}, false, nil
	}
	return result.Clone(), true, nil
}

func (s *Store) SaveResult(_ context.Context, result entities.PollResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.polls[result.PollID]; !exists {
		return domainerrors.ErrPollNotFound
	}
	s.results[result.PollID] = result.Clone()
	return nil
}

func (s *Store) SaveBallot(_ context.Context, ballot entities.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ballot.Selections = append([]entities.Selection(nil), ballot.Selections...)
	s.ballots[ballot.BallotID] = ballot
	return nil
}

func (s *Store) GetBallot(_ context.Context, ballotID string) (entities.Ballot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ballot, ok := s.ballots[strings.TrimSpace(ballotID)]
	if !ok {
		return entities.Ballot{}, false, nil
	}
	ballot.Selections = append([]entities.Selection(nil), ballot.Selections...)
	return ballot, true, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func clonePoll(poll entities.Poll) entities.Poll {
	poll.Options = append([]entities.Option(nil), poll.Options...)
	return poll
}

var _ ports.PollRepository = (*Store)(nil)
var _ ports.BallotRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
