package httpserver

import (
	"errors"
	"net/http"

	pollerrors "arbiter/contexts/governance/poll-engine/domain/errors"
	pollhttp "arbiter/contexts/governance/poll-engine/transport/http"
	"arbiter/internal/shared/faults"
)

func writePollError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, pollhttp.ErrorResponse{Code: code, Message: message})
}

func writePollDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pollerrors.ErrPollNotEnded):
		writePollError(w, http.StatusBadRequest, "poll_not_ended", err.Error())
	case errors.Is(err, pollerrors.ErrVotingClosed):
		writePollError(w, http.StatusBadRequest, "voting_closed", err.Error())
	case errors.Is(err, pollerrors.ErrWrongSide):
		writePollError(w, http.StatusForbidden, "wrong_side", err.Error())
	case errors.Is(err, pollerrors.ErrAlreadyVoted):
		writePollError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, pollerrors.ErrAlreadyClaimed):
		writePollError(w, http.StatusConflict, "already_claimed", err.Error())
	default:
		status := taxonomyStatus(err)
		if status == http.StatusInternalServerError {
			writePollError(w, status, "internal_error", "internal server error")
			return
		}
		writePollError(w, status, faults.Code(err), err.Error())
	}
}

func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, writePollError)
	if !ok {
		return
	}
	var req pollhttp.CreatePollRequest
	if !decodeJSON(w, r, &req, writePollError) {
		return
	}
	resp, err := s.polls.Handler.CreatePollHandler(r.Context(), userID, req)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListPolls(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.ListPollsHandler(r.Context())
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.GetPollHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPollResults(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.GetResultsHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdatePollWindow(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, writePollError)
	if !ok {
		return
	}
	var req pollhttp.UpdateWindowRequest
	if !decodeJSON(w, r, &req, writePollError) {
		return
	}
	resp, err := s.polls.Handler.UpdateWindowHandler(r.Context(), r.PathValue("poll_id"), userID, req)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRequestVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, writePollError)
	if !ok {
		return
	}
	var req pollhttp.VoteRequest
	if !decodeJSON(w, r, &req, writePollError) {
		return
	}
	resp, err := s.polls.Handler.RequestVoteHandler(r.Context(), r.PathValue("poll_id"), userID, req)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleGetBallot(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.GetBallotHandler(r.Context(), r.PathValue("poll_id"), r.PathValue("ballot_id"))
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePollWinner(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.WinnerHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClaimReward(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, writePollError)
	if !ok {
		return
	}
	resp, err := s.polls.Handler.ClaimRewardHandler(r.Context(), r.PathValue("poll_id"), userID)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
