package jobescrow

import (
	"log/slog"
	"time"

	httpadapter "arbiter/contexts/marketplace/job-escrow/adapters/http"
	"arbiter/contexts/marketplace/job-escrow/adapters/memory"
	"arbiter/contexts/marketplace/job-escrow/application/commands"
	"arbiter/contexts/marketplace/job-escrow/application/queries"
	"arbiter/contexts/marketplace/job-escrow/application/workers"
	"arbiter/contexts/marketplace/job-escrow/ports"
	"arbiter/internal/shared/lanes"
)

type Module struct {
	Jobs           commands.JobUseCase
	Disputes       commands.DisputeUseCase
	Queries        queries.JobQueries
	DisputeReplies workers.DisputeReplyConsumer
	Handler        httpadapter.Handler
	Store          *memory.Store
}

type Dependencies struct {
	Jobs          ports.JobRepository
	Operations    ports.OperationRepository
	Payouts       ports.PayoutIssuer
	Reputation    ports.ReputationCrediter
	Outbox        ports.OutboxWriter
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	ProtocolOwner string
	PollOperator  string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	jobLanes := lanes.New()
	jobUseCase := commands.JobUseCase{
		Jobs:          deps.Jobs,
		Payouts:       deps.Payouts,
		Reputation:    deps.Reputation,
		Clock:         deps.Clock,
		IDGen:         deps.IDGen,
		Lanes:         jobLanes,
		ProtocolOwner: deps.ProtocolOwner,
		Logger:        deps.Logger,
	}
	disputeUseCase := commands.DisputeUseCase{
		Jobs:          deps.Jobs,
		Operations:    deps.Operations,
		Outbox:        deps.Outbox,
		Payouts:       deps.Payouts,
		Reputation:    deps.Reputation,
		Clock:         deps.Clock,
		IDGen:         deps.IDGen,
		Lanes:         jobLanes,
		ProtocolOwner: deps.ProtocolOwner,
		PollOperator:  deps.PollOperator,
		Logger:        deps.Logger,
	}
	jobQueries := queries.JobQueries{
		Jobs:       deps.Jobs,
		Operations: deps.Operations,
	}
	return Module{
		Jobs:     jobUseCase,
		Disputes: disputeUseCase,
		Queries:  jobQueries,
		DisputeReplies: workers.DisputeReplyConsumer{
			Subscriber: deps.Subscriber,
			Dedup:      deps.Dedup,
			Disputes:   disputeUseCase,
			Clock:      deps.Clock,
			DedupTTL:   deps.DedupTTL,
			Logger:     deps.Logger,
		},
		Handler: httpadapter.Handler{
			Jobs:     jobUseCase,
			Disputes: disputeUseCase,
			Queries:  jobQueries,
			Logger:   deps.Logger,
		},
	}
}

// InMemoryOptions carries the collaborators shared with the rest of the
// process when the module runs against a memory store.
type InMemoryOptions struct {
	Payouts       ports.PayoutIssuer
	Reputation    ports.ReputationCrediter
	Outbox        ports.OutboxWriter
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	ProtocolOwner string
	PollOperator  string
	Logger        *slog.Logger
}

func NewInMemoryModule(opts InMemoryOptions) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Jobs:          store,
		Operations:    store,
		Payouts:       opts.Payouts,
		Reputation:    opts.Reputation,
		Outbox:        opts.Outbox,
		Subscriber:    opts.Subscriber,
		Dedup:         opts.Dedup,
		Clock:         store,
		IDGen:         store,
		ProtocolOwner: opts.ProtocolOwner,
		PollOperator:  opts.PollOperator,
		DedupTTL:      24 * time.Hour,
		Logger:        opts.Logger,
	})
	module.Store = store
	return module
}
