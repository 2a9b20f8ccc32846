package httpadapter

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"arbiter/contexts/governance/poll-engine/application/commands"
	"arbiter/contexts/governance/poll-engine/application/queries"
	"arbiter/contexts/governance/poll-engine/domain/entities"
	domainerrors "arbiter/contexts/governance/poll-engine/domain/errors"
	httptransport "arbiter/contexts/governance/poll-engine/transport/http"
)

type Handler struct {
	Polls   commands.PollUseCase
	Votes   commands.VoteUseCase
	Claims  commands.ClaimUseCase
	Queries queries.PollQueries
	Logger  *slog.Logger
}

func (h Handler) CreatePollHandler(
	ctx context.Context,
	creator string,
	req httptransport.CreatePollRequest,
) (httptransport.PollResponse, error) {
	options := make([]entities.Option, 0, len(req.Options))
	for _, option := range req.Options {
		options = append(options, entities.Option{OptionID: option.OptionID, Label: option.Label})
	}
	poll, err := h.Polls.CreatePoll(ctx, commands.CreatePollCommand{
		Creator:  creator,
		Question: req.Question,
		Options:  options,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Budget:   req.Budget,
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPoll(poll), nil
}

func (h Handler) ListPollsHandler(ctx context.Context) (httptransport.ListPollsResponse, error) {
	polls, err := h.Queries.ListPolls(ctx)
	if err != nil {
		return httptransport.ListPollsResponse{}, err
	}
	resp := httptransport.ListPollsResponse{Items: make([]httptransport.PollResponse, 0, len(polls))}
	for _, poll := range polls {
		resp.Items = append(resp.Items, mapPoll(poll))
	}
	return resp, nil
}

func (h Handler) GetPollHandler(ctx context.Context, pollID string) (httptransport.PollResponse, error) {
	poll, found, err := h.Queries.GetPoll(ctx, pollID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	if !found {
		return httptransport.PollResponse{}, domainerrors.ErrPollNotFound
	}
	return mapPoll(poll), nil
}

func (h Handler) GetResultsHandler(ctx context.Context, pollID string) (httptransport.ResultsResponse, error) {
	result, found, err := h.Queries.GetResults(ctx, pollID)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	if !found {
		return httptransport.ResultsResponse{}, domainerrors.ErrPollNotFound
	}
	resp := httptransport.ResultsResponse{
		PollID:          result.PollID,
		Tally:           result.Tally,
		Voters:          make([]httptransport.VoterDTO, 0, len(result.Voters)),
		TotalVotedStake: result.TotalVotedStake,
	}
	for _, record := range result.Voters {
		resp.Voters = append(resp.Voters, httptransport.VoterDTO{
			Voter:    record.Voter,
			OptionID: record.OptionID,
			Weight:   record.Weight,
			Claimed:  record.Claimed,
		})
	}
	sort.Slice(resp.Voters, func(i, j int) bool {
		return resp.Voters[i].Voter < resp.Voters[j].Voter
	})
	return resp, nil
}

func (h Handler) UpdateWindowHandler(
	ctx context.Context,
	pollID string,
	caller string,
	req httptransport.UpdateWindowRequest,
) (httptransport.PollResponse, error) {
	poll, err := h.Polls.UpdateWindow(ctx, commands.UpdateWindowCommand{
		PollID:   pollID,
		Caller:   caller,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPoll(poll), nil
}

func (h Handler) RequestVoteHandler(
	ctx context.Context,
	pollID string,
	voter string,
	req httptransport.VoteRequest,
) (httptransport.BallotResponse, error) {
	selections := make([]entities.Selection, 0, len(req.Selections))
	for _, selection := range req.Selections {
		selections = append(selections, entities.Selection{OptionID: selection.OptionID, Selected: selection.Selected})
	}
	ballot, err := h.Votes.RequestVote(ctx, commands.RequestVoteCommand{
		PollID:     pollID,
		Voter:      voter,
		Selections: selections,
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return mapBallot(ballot), nil
}

func (h Handler) GetBallotHandler(ctx context.Context, pollID string, ballotID string) (httptransport.BallotResponse, error) {
	ballot, found, err := h.Queries.GetBallot(ctx, ballotID)
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	if !found || ballot.PollID != pollID {
		return httptransport.BallotResponse{}, domainerrors.ErrBallotNotFound
	}
	return mapBallot(ballot), nil
}

func (h Handler) WinnerHandler(ctx context.Context, pollID string) (httptransport.WinnerResponse, error) {
	winner, err := h.Queries.ResolveWinner(ctx, pollID)
	if err != nil {
		return httptransport.WinnerResponse{}, err
	}
	return httptransport.WinnerResponse{PollID: pollID, Winner: winner}, nil
}

func (h Handler) ClaimRewardHandler(ctx context.Context, pollID string, caller string) (httptransport.ClaimResponse, error) {
	claim, err := h.Claims.ClaimReward(ctx, commands.ClaimRewardCommand{PollID: pollID, Caller: caller})
	if err != nil {
		return httptransport.ClaimResponse{}, err
	}
	return httptransport.ClaimResponse{
		PollID:       claim.PollID,
		Voter:        claim.Voter,
		OptionID:     claim.OptionID,
		Payout:       claim.Payout,
		SettlementID: claim.SettlementID,
	}, nil
}

func mapPoll(poll entities.Poll) httptransport.PollResponse {
	options := make([]httptransport.OptionDTO, 0, len(poll.Options))
	for _, option := range poll.Options {
		options = append(options, httptransport.OptionDTO{OptionID: option.OptionID, Label: option.Label})
	}
	return httptransport.PollResponse{
		PollID:    poll.PollID,
		Creator:   poll.Creator,
		Question:  poll.Question,
		Options:   options,
		StartsAt:  poll.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:    poll.EndsAt.UTC().Format(time.RFC3339),
		Budget:    poll.Budget,
		CreatedAt: poll.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: poll.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func mapBallot(ballot entities.Ballot) httptransport.BallotResponse {
	selections := make([]httptransport.SelectionDTO, 0, len(ballot.Selections))
	for _, selection := range ballot.Selections {
		selections = append(selections, httptransport.SelectionDTO{OptionID: selection.OptionID, Selected: selection.Selected})
	}
	return httptransport.BallotResponse{
		BallotID:      ballot.BallotID,
		PollID:        ballot.PollID,
		Voter:         ballot.Voter,
		Selections:    selections,
		Status:        string(ballot.Status),
		Weight:        ballot.Weight,
		FailureReason: ballot.FailureReason,
	}
}
