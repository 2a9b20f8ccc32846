package reputationledger

import (
	"log/slog"

	httpadapter "arbiter/contexts/community-experience/reputation-ledger/adapters/http"
	"arbiter/contexts/community-experience/reputation-ledger/adapters/memory"
	"arbiter/contexts/community-experience/reputation-ledger/application"
	"arbiter/contexts/community-experience/reputation-ledger/ports"
)

type Module struct {
	Service application.Service
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Points ports.PointsRepository
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Points: deps.Points,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	return Module{
		Service: service,
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Points: store,
		Clock:  store,
		IDGen:  store,
		Logger: logger,
	})
	module.Store = store
	return module
}
