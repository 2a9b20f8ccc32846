package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	reputationledger "arbiter/contexts/community-experience/reputation-ledger"
	settlementcoordinator "arbiter/contexts/finance-core/settlement-coordinator"
	pollengine "arbiter/contexts/governance/poll-engine"
	jobescrow "arbiter/contexts/marketplace/job-escrow"
	_ "arbiter/internal/platform/httpserver/docs"
	"arbiter/internal/shared/faults"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Modules struct {
	Polls       pollengine.Module
	Jobs        jobescrow.Module
	Settlements settlementcoordinator.Module
	Reputation  reputationledger.Module
}

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	addr        string
	polls       pollengine.Module
	jobs        jobescrow.Module
	settlements settlementcoordinator.Module
	reputation  reputationledger.Module
}

func New(modules Modules, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		addr:        addr,
		polls:       modules.Polls,
		jobs:        modules.Jobs,
		settlements: modules.Settlements,
		reputation:  modules.Reputation,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server stopping",
			"event", "http_server_stopping",
			"module", "internal/platform/httpserver",
			"layer", "platform",
		)
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/polls", s.handleCreatePoll)
	s.mux.HandleFunc("GET /v1/polls", s.handleListPolls)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}", s.handleGetPoll)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}/results", s.handleGetPollResults)
	s.mux.HandleFunc("PATCH /v1/polls/{poll_id}/window", s.handleUpdatePollWindow)
	s.mux.HandleFunc("POST /v1/polls/{poll_id}/votes", s.handleRequestVote)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}/ballots/{ballot_id}", s.handleGetBallot)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}/winner", s.handlePollWinner)
	s.mux.HandleFunc("POST /v1/polls/{poll_id}/claims", s.handleClaimReward)

	s.mux.HandleFunc("POST /v1/jobs", s.handleOpenJob)
	s.mux.HandleFunc("GET /v1/jobs", s.handleListJobs)
	s.mux.HandleFunc("GET /v1/jobs/{job_id}", s.handleGetJob)
	s.mux.HandleFunc("POST /v1/jobs/{job_id}/claim", s.handleClaimJob)
	s.mux.HandleFunc("POST /v1/jobs/{job_id}/start", s.handleStartJob)
	s.mux.HandleFunc("POST /v1/jobs/{job_id}/complete", s.handleCompleteJob)
	s.mux.HandleFunc("POST /v1/jobs/{job_id}/end", s.handleEndJob)
	s.mux.HandleFunc("POST /v1/jobs/{job_id}/disputes", s.handleOpenDispute)
	s.mux.HandleFunc("POST /v1/jobs/{job_id}/disputes/resolve", s.handleResolveDispute)
	s.mux.HandleFunc("GET /v1/job-operations/{operation_id}", s.handleGetJobOperation)

	s.mux.HandleFunc("GET /v1/settlements", s.handleListSettlements)
	s.mux.HandleFunc("GET /v1/settlements/{settlement_id}", s.handleGetSettlement)
	s.mux.HandleFunc("GET /v1/reputation/{account}", s.handleGetReputation)
}

// taxonomyStatus maps the shared error taxonomy onto HTTP status codes.
func taxonomyStatus(err error) int {
	switch faults.Code(err) {
	case "validation_error":
		return http.StatusBadRequest
	case "authorization_error":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "duplicate_action":
		return http.StatusConflict
	case "external_service_error":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// callerID returns the X-User-Id header. It writes 401 through write and
// reports false when the header is missing.
func callerID(w http.ResponseWriter, r *http.Request, write func(http.ResponseWriter, int, string, string)) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		write(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any, write func(http.ResponseWriter, int, string, string)) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		write(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
