package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	reputationledger "arbiter/contexts/community-experience/reputation-ledger"
	reputationmemory "arbiter/contexts/community-experience/reputation-ledger/adapters/memory"
	reputationpostgres "arbiter/contexts/community-experience/reputation-ledger/adapters/postgres"
	settlementcoordinator "arbiter/contexts/finance-core/settlement-coordinator"
	settlementmemory "arbiter/contexts/finance-core/settlement-coordinator/adapters/memory"
	settlementpostgres "arbiter/contexts/finance-core/settlement-coordinator/adapters/postgres"
	pollengine "arbiter/contexts/governance/poll-engine"
	pollmemory "arbiter/contexts/governance/poll-engine/adapters/memory"
	pollpostgres "arbiter/contexts/governance/poll-engine/adapters/postgres"
	jobescrow "arbiter/contexts/marketplace/job-escrow"
	jobmemory "arbiter/contexts/marketplace/job-escrow/adapters/memory"
	jobpostgres "arbiter/contexts/marketplace/job-escrow/adapters/postgres"
	"arbiter/internal/platform/config"
	"arbiter/internal/platform/db"
	"arbiter/internal/platform/httpserver"
	"arbiter/internal/platform/ledger"
	"arbiter/internal/platform/messaging"
	"arbiter/internal/shared/outbox"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const (
	dedupTTL       = 7 * 24 * time.Hour
	relayBatchSize = 100
	maxDrainCycles = 64
)

type Clock interface {
	Now() time.Time
}

type Option func(*options)

type options struct {
	ledger ledger.Service
	bus    *messaging.Bus
	clock  Clock
}

// WithLedger replaces the ledger selected from configuration.
func WithLedger(service ledger.Service) Option {
	return func(o *options) {
		o.ledger = service
	}
}

// WithBus replaces the default asynchronous in-process bus.
func WithBus(bus *messaging.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// WithClock makes every module read time from clock.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// App holds every wired module plus the infrastructure that moves messages
// between them.
type App struct {
	Config      config.Config
	Polls       pollengine.Module
	Jobs        jobescrow.Module
	Settlements settlementcoordinator.Module
	Reputation  reputationledger.Module
	Ledger      ledger.Service
	Gateway     ledger.Gateway
	Relay       outbox.Relay
	Bus         *messaging.Bus

	database *db.Database
	logger   *slog.Logger
}

type store interface {
	outbox.Writer
	outbox.Repository
	outbox.DedupStore
}

// Build wires the modules for cfg.StorageDriver.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.bus == nil {
		o.bus = messaging.NewBus(logger)
	}
	if o.ledger == nil {
		o.ledger = selectLedger(cfg)
	}

	app := &App{
		Config: cfg,
		Ledger: o.ledger,
		Bus:    o.bus,
		logger: logger,
	}

	var messages store
	switch cfg.StorageDriver {
	case config.StorageMemory:
		messages = outbox.NewMemoryStore()
		app.wireMemory(messages, o.clock)
	case config.StoragePostgres, config.StorageSQLite:
		dsn := cfg.PostgresDSN
		if cfg.StorageDriver == config.StorageSQLite {
			dsn = cfg.SQLitePath
		}
		database, err := db.Connect(cfg.StorageDriver, dsn)
		if err != nil {
			return nil, err
		}
		app.database = database
		repository := outbox.NewGormRepository(database.DB, logger)
		messages = repository
		if err := app.wirePersistent(ctx, repository, o.clock); err != nil {
			_ = database.Close()
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	clock := o.clock
	if clock == nil {
		clock = systemClock{}
	}
	app.Gateway = ledger.Gateway{
		Service:    o.ledger,
		Subscriber: o.bus,
		Outbox:     messages,
		Dedup:      messages,
		Clock:      clock,
		DedupTTL:   dedupTTL,
		Logger:     logger,
		Pending:    ledger.NewPendingReplies(),
	}
	app.Relay = outbox.Relay{
		Outbox:    messages,
		Publisher: o.bus,
		Clock:     clock,
		BatchSize: relayBatchSize,
		Logger:    logger,
	}

	logger.Info("application wired",
		"event", "bootstrap_wired",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"storage_driver", cfg.StorageDriver,
		"ledger_url", cfg.LedgerURL,
	)
	return app, nil
}

func (a *App) wireMemory(messages store, clock Clock) {
	settlementStore := settlementmemory.NewStore()
	a.Settlements = settlementcoordinator.NewModule(settlementcoordinator.Dependencies{
		Settlements: settlementStore,
		Outbox:      messages,
		Subscriber:  a.Bus,
		Dedup:       messages,
		Clock:       pickClock(clock, settlementStore),
		IDGen:       settlementStore,
		DedupTTL:    dedupTTL,
		Logger:      a.logger,
	})
	a.Settlements.Store = settlementStore

	reputationStore := reputationmemory.NewStore()
	a.Reputation = reputationledger.NewModule(reputationledger.Dependencies{
		Points: reputationStore,
		Clock:  pickClock(clock, reputationStore),
		IDGen:  reputationStore,
		Logger: a.logger,
	})
	a.Reputation.Store = reputationStore

	pollStore := pollmemory.NewStore()
	a.Polls = pollengine.NewModule(pollengine.Dependencies{
		Polls:      pollStore,
		Ballots:    pollStore,
		Payouts:    pollPayouts{payouts: a.Settlements.Payouts},
		Outbox:     messages,
		Subscriber: a.Bus,
		Dedup:      messages,
		Clock:      pickClock(clock, pollStore),
		IDGen:      pollStore,
		DedupTTL:   dedupTTL,
		Logger:     a.logger,
	})
	a.Polls.Store = pollStore

	jobStore := jobmemory.NewStore()
	a.Jobs = jobescrow.NewModule(jobescrow.Dependencies{
		Jobs:          jobStore,
		Operations:    jobStore,
		Payouts:       jobPayouts{payouts: a.Settlements.Payouts},
		Reputation:    reputationCredits{service: a.Reputation.Service},
		Outbox:        messages,
		Subscriber:    a.Bus,
		Dedup:         messages,
		Clock:         pickClock(clock, jobStore),
		IDGen:         jobStore,
		ProtocolOwner: a.Config.ProtocolOwnerAccount,
		PollOperator:  a.Config.PollOperatorAccount,
		DedupTTL:      dedupTTL,
		Logger:        a.logger,
	})
	a.Jobs.Store = jobStore
}

func (a *App) wirePersistent(ctx context.Context, messages *outbox.GormRepository, clock Clock) error {
	settlementRepo := settlementpostgres.NewRepository(a.database.DB, a.logger)
	reputationRepo := reputationpostgres.NewRepository(a.database.DB, a.logger)
	pollRepo := pollpostgres.NewRepository(a.database.DB, a.logger)
	jobRepo := jobpostgres.NewRepository(a.database.DB, a.logger)

	if a.Config.AutoMigrate {
		migrations := []struct {
			name    string
			migrate func(context.Context) error
		}{
			{name: "outbox", migrate: messages.Migrate},
			{name: "settlement-coordinator", migrate: settlementRepo.Migrate},
			{name: "reputation-ledger", migrate: reputationRepo.Migrate},
			{name: "poll-engine", migrate: pollRepo.Migrate},
			{name: "job-escrow", migrate: jobRepo.Migrate},
		}
		for _, item := range migrations {
			if err := item.migrate(ctx); err != nil {
				a.logger.Error("schema migration failed",
					"event", "bootstrap_migration_failed",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"schema", item.name,
					"error", err.Error(),
				)
				return fmt.Errorf("migrate %s: %w", item.name, err)
			}
		}
	}

	a.Settlements = settlementcoordinator.NewModule(settlementcoordinator.Dependencies{
		Settlements: settlementRepo,
		Outbox:      messages,
		Subscriber:  a.Bus,
		Dedup:       messages,
		Clock:       pickClock(clock, settlementpostgres.SystemClock{}),
		IDGen:       settlementpostgres.UUIDGenerator{},
		DedupTTL:    dedupTTL,
		Logger:      a.logger,
	})
	a.Reputation = reputationledger.NewModule(reputationledger.Dependencies{
		Points: reputationRepo,
		Clock:  pickClock(clock, reputationpostgres.SystemClock{}),
		IDGen:  reputationpostgres.UUIDGenerator{},
		Logger: a.logger,
	})
	a.Polls = pollengine.NewModule(pollengine.Dependencies{
		Polls:      pollRepo,
		Ballots:    pollRepo,
		Payouts:    pollPayouts{payouts: a.Settlements.Payouts},
		Outbox:     messages,
		Subscriber: a.Bus,
		Dedup:      messages,
		Clock:      pickClock(clock, pollpostgres.SystemClock{}),
		IDGen:      pollpostgres.UUIDGenerator{},
		DedupTTL:   dedupTTL,
		Logger:     a.logger,
	})
	a.Jobs = jobescrow.NewModule(jobescrow.Dependencies{
		Jobs:          jobRepo,
		Operations:    jobRepo,
		Payouts:       jobPayouts{payouts: a.Settlements.Payouts},
		Reputation:    reputationCredits{service: a.Reputation.Service},
		Outbox:        messages,
		Subscriber:    a.Bus,
		Dedup:         messages,
		Clock:         pickClock(clock, jobpostgres.SystemClock{}),
		IDGen:         jobpostgres.UUIDGenerator{},
		ProtocolOwner: a.Config.ProtocolOwnerAccount,
		PollOperator:  a.Config.PollOperatorAccount,
		DedupTTL:      dedupTTL,
		Logger:        a.logger,
	})
	return nil
}

// StartConsumers subscribes every consumer to the bus. Subscriptions end
// when ctx is cancelled.
func (a *App) StartConsumers(ctx context.Context) error {
	starters := []func(context.Context) error{
		a.Gateway.Start,
		a.Settlements.LedgerResults.Start,
		a.Polls.BalanceResults.Start,
		a.Polls.Requests.Start,
		a.Jobs.DisputeReplies.Start,
	}
	for _, start := range starters {
		if err := start(ctx); err != nil {
			return err
		}
	}
	a.logger.Info("consumers subscribed",
		"event", "bootstrap_consumers_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"consumer_count", len(starters),
	)
	return nil
}

// Drain relays outbox rows until a cycle publishes nothing. With a
// synchronous bus every reply chain settles before Drain returns.
func (a *App) Drain(ctx context.Context) error {
	for cycle := 0; cycle < maxDrainCycles; cycle++ {
		published, err := a.Relay.RunOnce(ctx)
		if err != nil {
			return err
		}
		if published == 0 {
			return nil
		}
	}
	return errors.New("outbox did not drain")
}

// RunWorker starts the consumers and relays the outbox every interval
// until ctx is cancelled. It returns once the consumers flushed the events
// they had accepted.
func (a *App) RunWorker(ctx context.Context, interval time.Duration) error {
	if err := a.StartConsumers(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("worker loop started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", interval.String(),
	)
	for {
		if _, err := a.Relay.RunOnce(ctx); err != nil {
			a.logger.Warn("outbox relay cycle failed",
				"event", "bootstrap_relay_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			a.Bus.Wait()
			return nil
		case <-ticker.C:
		}
	}
}

// HTTPServer builds the API server over the wired modules.
func (a *App) HTTPServer() *httpserver.Server {
	return httpserver.New(httpserver.Modules{
		Polls:       a.Polls,
		Jobs:        a.Jobs,
		Settlements: a.Settlements,
		Reputation:  a.Reputation,
	}, a.logger, normalizeAddr(a.Config.HTTPPort))
}

func (a *App) Close() error {
	if a.database != nil {
		return a.database.Close()
	}
	return nil
}

type APIApp struct {
	app    *App
	server *httpserver.Server
	logger *slog.Logger
}

type WorkerApp struct {
	app          *App
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI(ctx context.Context, envFile string) (*APIApp, error) {
	cfg, err := config.LoadFile(envFile)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	app, err := Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &APIApp{
		app:    app,
		server: app.HTTPServer(),
		logger: logger,
	}, nil
}

func BuildWorker(ctx context.Context, envFile string) (*WorkerApp, error) {
	cfg, err := config.LoadFile(envFile)
	if err != nil {
		return nil, err
	}
	if cfg.StorageDriver == config.StorageMemory {
		return nil, errors.New("worker process requires STORAGE_DRIVER=postgres or sqlite")
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	app, err := Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		app:          app,
		pollInterval: cfg.WorkerPollInterval,
		logger:       logger,
	}, nil
}

// Run serves HTTP and, when EMBEDDED_WORKER is set, runs the worker loop in
// the same process.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"embedded_worker", a.app.Config.EmbeddedWorker,
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.server.Run(groupCtx)
	})
	if a.app.Config.EmbeddedWorker {
		group.Go(func() error {
			return a.app.RunWorker(groupCtx, a.app.Config.WorkerPollInterval)
		})
	}
	return group.Wait()
}

func (a *APIApp) Close() error {
	return a.app.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	return w.app.RunWorker(ctx, w.pollInterval)
}

func (w *WorkerApp) Close() error {
	return w.app.Close()
}

func selectLedger(cfg config.Config) ledger.Service {
	if strings.TrimSpace(cfg.LedgerURL) != "" {
		return ledger.NewHTTPClient(cfg.LedgerURL, cfg.LedgerTimeout)
	}
	return ledger.NewMemory()
}

func pickClock(override Clock, fallback Clock) Clock {
	if override != nil {
		return override
	}
	return fallback
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
