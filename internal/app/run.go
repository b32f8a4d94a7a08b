package app

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/quorumtrade/poolarb/pkg/types"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("mode", a.cfg.ExecutionMode),
		zap.String("storage", a.cfg.StorageMode),
		zap.Float64("min-profit-percentage", a.cfg.MinProfitPercentage),
		zap.Int("required-approvals", a.cfg.RequiredApprovals),
		zap.String("log-level", a.cfg.LogLevel))

	a.wg.Add(1)
	go a.runHTTPServer()

	a.wg.Add(1)
	go a.runScanLoop()

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.Duration("scan-interval", a.cfg.ScanInterval))

	return a.waitForShutdown()
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// runScanLoop drives the pipeline on the scan interval. Each tick sweeps
// expired approvals, refreshes the simulated books in paper mode, and runs
// one cycle through the registry so a disabled product pauses the pipeline.
func (a *App) runScanLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
		}

		a.sweepExpired()

		if a.sim != nil {
			a.jitterQuotes()
		}

		result, err := a.registry.Execute(a.ctx, ProductVenueArbitrage)
		if err != nil {
			if errors.Is(err, types.ErrProductDisabled) {
				a.logger.Debug("scan-skipped-product-disabled",
					zap.String("product-id", ProductVenueArbitrage))
				continue
			}
			if a.ctx.Err() != nil {
				return
			}
			a.logger.Error("scan-cycle-failed", zap.Error(err))
			continue
		}

		if report, ok := result.(*CycleReport); ok && report.Submitted > 0 {
			a.logger.Info("scan-cycle-complete",
				zap.Int("opportunities", report.Opportunities),
				zap.Int("executed", report.Executed),
				zap.Int("cancelled", report.Cancelled))
		}
	}
}

// sweepExpired cancels pending trades past their approval deadline and
// persists the transitions.
func (a *App) sweepExpired() {
	for _, id := range a.network.ExpirePending(time.Now()) {
		trade, err := a.network.Trade(id)
		if err != nil {
			continue
		}
		a.storeTrade(a.ctx, trade)
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
