package settlementcoordinator

import (
	"log/slog"
	"time"

	httpadapter "arbiter/contexts/finance-core/settlement-coordinator/adapters/http"
	"arbiter/contexts/finance-core/settlement-coordinator/adapters/memory"
	"arbiter/contexts/finance-core/settlement-coordinator/application/commands"
	"arbiter/contexts/finance-core/settlement-coordinator/application/queries"
	"arbiter/contexts/finance-core/settlement-coordinator/application/workers"
	"arbiter/contexts/finance-core/settlement-coordinator/ports"
	"arbiter/internal/shared/lanes"
)

type Module struct {
	Payouts       commands.PayoutUseCase
	Queries       queries.SettlementQueries
	LedgerResults workers.LedgerResultConsumer
	Handler       httpadapter.Handler
	Store         *memory.Store
}

type Dependencies struct {
	Settlements ports.SettlementRepository
	Outbox      ports.OutboxWriter
	Subscriber  ports.EventSubscriber
	Dedup       ports.EventDedupStore
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	DedupTTL    time.Duration
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	payouts := commands.PayoutUseCase{
		Settlements: deps.Settlements,
		Outbox:      deps.Outbox,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Lanes:       lanes.New(),
		Logger:      deps.Logger,
	}
	settlementQueries := queries.SettlementQueries{
		Settlements: deps.Settlements,
	}
	return Module{
		Payouts: payouts,
		Queries: settlementQueries,
		LedgerResults: workers.LedgerResultConsumer{
			Subscriber: deps.Subscriber,
			Dedup:      deps.Dedup,
			Payouts:    payouts,
			Clock:      deps.Clock,
			DedupTTL:   deps.DedupTTL,
			Logger:     deps.Logger,
		},
		Handler: httpadapter.Handler{
			Settlements: settlementQueries,
			Logger:      deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module against a memory store. The outbox,
// subscriber and dedup store are shared with the rest of the process.
func NewInMemoryModule(
	outbox ports.OutboxWriter,
	subscriber ports.EventSubscriber,
	dedup ports.EventDedupStore,
	logger *slog.Logger,
) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Settlements: store,
		Outbox:      outbox,
		Subscriber:  subscriber,
		Dedup:       dedup,
		Clock:       store,
		IDGen:       store,
		DedupTTL:    24 * time.Hour,
		Logger:      logger,
	})
	module.Store = store
	return module
}
