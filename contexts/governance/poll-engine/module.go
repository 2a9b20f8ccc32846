package pollengine

import (
	"log/slog"
	"time"

	httpadapter "arbiter/contexts/governance/poll-engine/adapters/http"
	"arbiter/contexts/governance/poll-engine/adapters/memory"
	"arbiter/contexts/governance/poll-engine/application/commands"
	"arbiter/contexts/governance/poll-engine/application/queries"
	"arbiter/contexts/governance/poll-engine/application/workers"
	"arbiter/contexts/governance/poll-engine/ports"
	"arbiter/internal/shared/lanes"
)

type Module struct {
	Polls          commands.PollUseCase
	Votes          commands.VoteUseCase
	Claims         commands.ClaimUseCase
	Queries        queries.PollQueries
	BalanceResults workers.BalanceResultConsumer
	Requests       workers.PollRequestConsumer
	Handler        httpadapter.Handler
	Store          *memory.Store
}

type Dependencies struct {
	Polls      ports.PollRepository
	Ballots    ports.BallotRepository
	Payouts    ports.PayoutIssuer
	Outbox     ports.OutboxWriter
	Subscriber ports.EventSubscriber
	Dedup      ports.EventDedupStore
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	DedupTTL   time.Duration
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	pollLanes := lanes.New()
	pollUseCase := commands.PollUseCase{
		Polls:  deps.Polls,
		Clock:  deps.Clock,
		Lanes:  pollLanes,
		Logger: deps.Logger,
	}
	voteUseCase := commands.VoteUseCase{
		Polls:   deps.Polls,
		Ballots: deps.Ballots,
		Outbox:  deps.Outbox,
		Clock:   deps.Clock,
		IDGen:   deps.IDGen,
		Lanes:   pollLanes,
		Logger:  deps.Logger,
	}
	claimUseCase := commands.ClaimUseCase{
		Polls:   deps.Polls,
		Payouts: deps.Payouts,
		Clock:   deps.Clock,
		Lanes:   pollLanes,
		Logger:  deps.Logger,
	}
	pollQueries := queries.PollQueries{
		Polls:   deps.Polls,
		Ballots: deps.Ballots,
		Clock:   deps.Clock,
	}
	return Module{
		Polls:   pollUseCase,
		Votes:   voteUseCase,
		Claims:  claimUseCase,
		Queries: pollQueries,
		BalanceResults: workers.BalanceResultConsumer{
			Subscriber: deps.Subscriber,
			Dedup:      deps.Dedup,
			Votes:      voteUseCase,
			Clock:      deps.Clock,
			DedupTTL:   deps.DedupTTL,
			Logger:     deps.Logger,
		},
		Requests: workers.PollRequestConsumer{
			Subscriber: deps.Subscriber,
			Dedup:      deps.Dedup,
			Outbox:     deps.Outbox,
			Polls:      pollUseCase,
			Queries:    pollQueries,
			Clock:      deps.Clock,
			DedupTTL:   deps.DedupTTL,
			Logger:     deps.Logger,
		},
		Handler: httpadapter.Handler{
			Polls:   pollUseCase,
			Votes:   voteUseCase,
			Claims:  claimUseCase,
			Queries: pollQueries,
			Logger:  deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module against a memory store. Messaging and
// payouts are shared with the rest of the process.
func NewInMemoryModule(
	payouts ports.PayoutIssuer,
	outbox ports.OutboxWriter,
	subscriber ports.EventSubscriber,
	dedup ports.EventDedupStore,
	logger *slog.Logger,
) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Polls:      store,
		Ballots:    store,
		Payouts:    payouts,
		Outbox:     outbox,
		Subscriber: subscriber,
		Dedup:      dedup,
		Clock:      store,
		IDGen:      store,
		DedupTTL:   24 * time.Hour,
		Logger:     logger,
	})
	module.Store = store
	return module
}
