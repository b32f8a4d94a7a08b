package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/quorumtrade/poolarb/internal/arbitrage"
	"github.com/quorumtrade/poolarb/pkg/types"
	"go.uber.org/zap"
)

// Config holds risk gate limits.
type Config struct {
	MaxConcurrentTrades int
	MaxDailyLoss        float64
	MaxPositionSize     float64 // notional, in quote currency
	Logger              *zap.Logger
}

// Gate enforces position sizing, the daily loss ceiling, and the
// concurrent-trade ceiling between quorum approval and execution. The
// daily-loss accumulator and open-trade count are explicit state owned here,
// reset at the local day boundary, single writer per gate.
type Gate struct {
	cfg    Config
	logger *zap.Logger

	mu        sync.Mutex
	open      int
	dayStart  time.Time
	dailyLoss float64
	halted    bool

	now func() time.Time // injected in tests
}

// NewGate creates a risk gate.
func NewGate(cfg Config) *Gate {
	g := &Gate{
		cfg:    cfg,
		logger: cfg.Logger,
		now:    time.Now,
	}
	g.dayStart = dayStart(g.now())
	return g
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// resetIfNewDay clears the accumulator and the halt at the day boundary.
// Caller holds g.mu.
func (g *Gate) resetIfNewDay() {
	today := dayStart(g.now())
	if today.After(g.dayStart) {
		if g.halted || g.dailyLoss > 0 {
			g.logger.Info("daily-loss-accumulator-reset",
				zap.Float64("previous-daily-loss", g.dailyLoss),
				zap.Bool("was-halted", g.halted))
		}
		g.dayStart = today
		g.dailyLoss = 0
		g.halted = false
	}
}

// Authorize runs the gate checks in order and reserves an execution slot.
// The returned quantity is the opportunity quantity, clipped down when its
// notional exceeds the position limit. On success the caller must pair the
// authorization with exactly one Release.
func (g *Gate) Authorize(opp *arbitrage.Opportunity) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.resetIfNewDay()

	if g.open >= g.cfg.MaxConcurrentTrades {
		RejectionsTotal.WithLabelValues("concurrency").Inc()
		return 0, fmt.Errorf("open trades %d: %w", g.open, types.ErrRiskLimitConcurrency)
	}

	// A day-loss breach is a hard stop for every subsequent opportunity.
	if g.halted {
		RejectionsTotal.WithLabelValues("daily_loss").Inc()
		return 0, fmt.Errorf("daily loss %.2f breached limit %.2f: %w",
			g.dailyLoss, g.cfg.MaxDailyLoss, types.ErrRiskLimitDailyLoss)
	}

	quantity := opp.Quantity
	if notional := quantity * opp.BuyPrice; notional > g.cfg.MaxPositionSize {
		quantity = g.cfg.MaxPositionSize / opp.BuyPrice
		PositionsClippedTotal.Inc()
		g.logger.Info("position-clipped",
			zap.String("opportunity-id", opp.ID),
			zap.Float64("requested-notional", notional),
			zap.Float64("max-position-size", g.cfg.MaxPositionSize))
	}

	g.open++
	OpenTrades.Set(float64(g.open))

	return quantity, nil
}

// Release frees an execution slot and feeds the realized result into the
// daily-loss accumulator. A breach halts all further authorizations until
// the next day boundary.
func (g *Gate) Release(realized float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.open > 0 {
		g.open--
	}
	OpenTrades.Set(float64(g.open))

	g.resetIfNewDay()

	if realized < 0 {
		g.dailyLoss += -realized
		DailyLoss.Set(g.dailyLoss)

		if !g.halted && g.dailyLoss >= g.cfg.MaxDailyLoss {
			g.halted = true
			HaltsTotal.Inc()
			g.logger.Warn("daily-loss-limit-breached",
				zap.Float64("daily-loss", g.dailyLoss),
				zap.Float64("max-daily-loss", g.cfg.MaxDailyLoss))
		}
	}
}

// Halted reports whether the gate is refusing all submissions.
func (g *Gate) Halted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetIfNewDay()
	return g.halted
}

// Status is a reporting snapshot of the gate.
type Status struct {
	OpenTrades int     `json:"open_trades"`
	DailyLoss  float64 `json:"daily_loss"`
	Halted     bool    `json:"halted"`
}

// CurrentStatus returns the gate state for the HTTP surface.
func (g *Gate) CurrentStatus() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetIfNewDay()
	return Status{OpenTrades: g.open, DailyLoss: g.dailyLoss, Halted: g.halted}
}
