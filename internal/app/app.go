package app

import (
	"context"
	"sync"

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
	"github.com/quorumtrade/poolarb/pkg/config"
	"github.com/quorumtrade/poolarb/pkg/healthprobe"
	"github.com/quorumtrade/poolarb/pkg/httpserver"
)

// ProductVenueArbitrage is the registry ID of the built-in arbitrage product.
const ProductVenueArbitrage = "venue-arbitrage"

// App is the main application orchestrator: it owns the scan loop that feeds
// detected opportunities through the quorum, the risk gate, and the executor,
// and settles results into the pool ledger and the reserve.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	provider exchange.Provider
	sim      *exchange.SimProvider // non-nil in paper mode
	detector *arbitrage.Detector
	network  *quorum.Network
	gate     *risk.Gate
	executor *execution.Executor
	ledger   *pool.Ledger
	reserve  *reserve.Reserve
	registry *registry.Registry
	store    storage.Store

	summaryMu sync.Mutex
	summaries map[string]*storage.DailySummary // date -> running aggregate

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// SingleSymbol restricts the scan to one symbol for debugging.
	SingleSymbol string
}
