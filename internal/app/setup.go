package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quorumtrade/poolarb/internal/arbitrage"
	"github.com/quorumtrade/poolarb/internal/exchange"
	"github.com/quorumtrade/poolarb/internal/execution"
	"github.com/quorumtrade/poolarb/internal/pool"
	"github.com/quorumtrade/poolarb/internal/quorum"
	"github.com/quorumtrade/poolarb/internal/registry"
	"github.com/quorumtrade/poolarb/internal/reserve"
	"github.com/quorumtrade/poolarb/internal/risk"
	"github.com/quorumtrade/poolarb/internal/storage"
	"github.com/quorumtrade/poolarb/pkg/cache"
	"github.com/quorumtrade/poolarb/pkg/config"
	"github.com/quorumtrade/poolarb/pkg/healthprobe"
	"github.com/quorumtrade/poolarb/pkg/httpserver"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.SingleSymbol != "" {
		cfg.Symbols = []string{opts.SingleSymbol}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	store, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	provider, sim, err := setupProvider(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup provider: %w", err)
	}

	detector := setupDetector(cfg, logger, store)
	network := setupNetwork(cfg, logger)
	gate := setupGate(cfg, logger)
	executor := execution.New(provider, logger)

	rsv := setupReserve(cfg, logger)
	ledger := setupLedger(cfg, logger, rsv)
	// Approved claims pay out through the ledger; bound here because the
	// ledger is constructed around the reserve.
	rsv.BindCreditor(ledger)
	reg := registry.New(logger)

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Ledger:        ledger,
		Reserve:       rsv,
		Gate:          gate,
		Network:       network,
		Registry:      reg,
		Store:         store,
	})

	a := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		provider:      provider,
		sim:           sim,
		detector:      detector,
		network:       network,
		gate:          gate,
		executor:      executor,
		ledger:        ledger,
		reserve:       rsv,
		registry:      reg,
		store:         store,
		summaries:     make(map[string]*storage.DailySummary),
		ctx:           ctx,
		cancel:        cancel,
	}

	err = a.registerProducts()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("register products: %w", err)
	}

	if cfg.ExecutionMode == "paper" {
		err = a.seedPaperEnvironment()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("seed paper environment: %w", err)
		}
	}

	return a, nil
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.StorageMode == "postgres" {
		pgStore, err := storage.NewPostgresStore(storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			DBName:   cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres store: %w", err)
		}
		return pgStore, nil
	}

	return storage.NewConsoleStore(logger), nil
}

// setupProvider builds the execution provider. Paper mode runs against the
// simulated provider; live mode needs venue connectors that are not wired in
// this build.
func setupProvider(cfg *config.Config, logger *zap.Logger) (exchange.Provider, *exchange.SimProvider, error) {
	if cfg.ExecutionMode != "paper" {
		return nil, nil, fmt.Errorf("execution mode %q: live venue connectors not configured", cfg.ExecutionMode)
	}

	sim := exchange.NewSimProvider(logger)

	quoteCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create quote cache: %w", err)
	}

	cached := exchange.NewCachedProvider(sim, quoteCache, cfg.QuoteTTL)
	return cached, sim, nil
}

func setupDetector(cfg *config.Config, logger *zap.Logger, store storage.Store) *arbitrage.Detector {
	fees := make(arbitrage.FeeSchedule, len(cfg.VenueFees))
	for venue, taker := range cfg.VenueFees {
		fees[venue] = arbitrage.VenueFees{Taker: taker}
	}

	return arbitrage.New(arbitrage.Config{
		MinProfitPercentage: cfg.MinProfitPercentage,
		MaxPositionSize:     cfg.MaxPositionSize,
		Fees:                fees,
		DefaultTakerFee:     cfg.DefaultTakerFee,
		Logger:              logger,
	}, store)
}

func setupNetwork(cfg *config.Config, logger *zap.Logger) *quorum.Network {
	return quorum.NewNetwork(quorum.Config{
		RequiredApprovals:   cfg.RequiredApprovals,
		RequireLeadApproval: cfg.RequireLeadApproval,
		ApprovalDeadline:    cfg.ApprovalDeadline,
		Logger:              logger,
	})
}

func setupGate(cfg *config.Config, logger *zap.Logger) *risk.Gate {
	return risk.NewGate(risk.Config{
		MaxConcurrentTrades: cfg.MaxConcurrentTrades,
		MaxDailyLoss:        cfg.MaxDailyLoss,
		MaxPositionSize:     cfg.MaxPositionSize,
		Logger:              logger,
	})
}

func setupReserve(cfg *config.Config, logger *zap.Logger) *reserve.Reserve {
	return reserve.New(reserve.Config{
		InitialBalance: 0,
		MinHealthRatio: cfg.MinReserveHealth,
		Logger:         logger,
	})
}

func setupLedger(cfg *config.Config, logger *zap.Logger, rsv *reserve.Reserve) *pool.Ledger {
	return pool.NewLedger(pool.Config{
		Name:              cfg.PoolName,
		MinContribution:   cfg.MinContribution,
		MaxMembers:        cfg.MaxMembers,
		ReservePercentage: cfg.ReservePercentage,
		Reserve:           rsv,
		Logger:            logger,
	})
}

// registerProducts installs the built-in products. The arbitrage scan runs
// through the registry so disabling the product pauses the pipeline without
// stopping the process.
func (a *App) registerProducts() error {
	return a.registry.Register(registry.Product{
		ID:          ProductVenueArbitrage,
		Name:        "Cross-Venue Arbitrage",
		Description: "Scans venue quotes for fee-inclusive price discrepancies and trades them through the pooled pipeline",
		Category:    "arbitrage",
		Enabled:     true,
	}, func(ctx context.Context) (interface{}, error) {
		return a.runScanCycle(ctx)
	})
}
