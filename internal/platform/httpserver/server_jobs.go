package httpserver

import (
	"errors"
	"net/http"

	joberrors "arbiter/contexts/marketplace/job-escrow/domain/errors"
	jobhttp "arbiter/contexts/marketplace/job-escrow/transport/http"
	"arbiter/internal/shared/faults"
)

func writeJobError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, jobhttp.ErrorResponse{Code: code, Message: message})
}

func writeJobDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, joberrors.ErrJobAlreadyEnded):
		writeJobError(w, http.StatusConflict, "job_already_ended", err.Error())
	case errors.Is(err, joberrors.ErrJobAlreadyStarted):
		writeJobError(w, http.StatusConflict, "job_already_started", err.Error())
	case errors.Is(err, joberrors.ErrDisputeAlreadyOpen):
		writeJobError(w, http.StatusConflict, "dispute_already_open", err.Error())
	case errors.Is(err, joberrors.ErrPollRequestFailed):
		writeJobError(w, http.StatusBadGateway, "poll_request_failed", err.Error())
	default:
		status := taxonomyStatus(err)
		if status == http.StatusInternalServerError {
			writeJobError(w, status, "internal_error", "internal server error")
			return
		}
		writeJobError(w, status, faults.Code(err), err.Error())
	}
}

func (s *Server) handleOpenJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, writeJobError)
	if !ok {
		return
	}
	var req jobhttp.OpenJobRequest
	if !decodeJSON(w, r, &req, writeJobError) {
		return
	}
	resp, err := s.jobs.Handler.OpenJobHandler(r.Context(), userID, req)
	if err != nil {
		writeJobDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	resp, err := s.jobs.Handler.ListJobsHandler(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeJobDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	resp, err := s.jobs.Handler.GetJobHandler(r.Context(), r.PathValue("job_id"))
	if err != nil {
		writeJobDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClaimJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, writeJobError)
	if !ok {
		return
	}
	resp, err := s.jobs.Handler.ClaimJobHandler(r.Context(), r.PathValue("job_id"), userID)
	if err != nil {
		writeJobDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, writeJobError)
	if !ok {
		return
	}
	var req jobhttp.CounterpartyRequest
	if !decodeJSON(w, r, &req, writeJobError) {
		return
	}
	resp, err := s.jobs.Handler.StartJobHandler(r.Context(), r.PathValue("job_id"), userID, req)
	if err != nil {
		writeJobDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompleteJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, writeJobError)
	if !ok {
		return
	}
	var req jobhttp.CompleteRequest
	if !decodeJSON(w, r, &req, writeJobError) {
		return
	}
	resp, err := s.jobs.Handler.CompleteJobHandler(r.Context(), r.PathValue("job_id"), userID, req)
	if err != nil {
		writeJobDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEndJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, writeJobError)
	if !ok {
		return
	}
	var req jobhttp.CounterpartyRequest
	if !decodeJSON(w, r, &req, writeJobError) {
		return
	}
	resp, err := s.jobs.Handler.EndJobHandler(r.Context(), r.PathValue("job_id"), userID, req)
	if err != nil {
		writeJobDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenDispute(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, writeJobError)
	if !ok {
		return
	}
	var req jobhttp.OpenDisputeRequest
	if !decodeJSON(w, r, &req, writeJobError) {
		return
	}
	resp, err := s.jobs.Handler.OpenDisputeHandler(r.Context(), r.PathValue("job_id"), userID, req)
	if err != nil {
		writeJobDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleResolveDispute(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, writeJobError)
	if !ok {
		return
	}
	var req jobhttp.ResolveDisputeRequest
	if !decodeJSON(w, r, &req, writeJobError) {
		return
	}
	resp, err := s.jobs.Handler.ResolveDisputeHandler(r.Context(), r.PathValue("job_id"), userID, req)
	if err != nil {
		writeJobDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleGetJobOperation(w http.ResponseWriter, r *http.Request) {
	resp, err := s.jobs.Handler.GetOperationHandler(r.Context(), r.PathValue("operation_id"))
	if err != nil {
		writeJobDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
