package risk

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/quorumtrade/poolarb/internal/arbitrage"
	"github.com/quorumtrade/poolarb/pkg/types"
)

func testOpportunity(buyPrice, quantity float64) *arbitrage.Opportunity {
	opp := arbitrage.NewOpportunity("BTC/USD", "binance", "kraken",
		buyPrice, buyPrice*1.01, quantity, 0.001, 0.001)
	return opp
}

func TestConcurrencyCeiling(t *testing.T) {
	g := NewGate(Config{
		MaxConcurrentTrades: 2,
		MaxDailyLoss:        500,
		MaxPositionSize:     100000,
		Logger:              zap.NewNop(),
	})

	opp := testOpportunity(100, 1)

	if _, err := g.Authorize(opp); err != nil {
		t.Fatalf("first authorize: %v", err)
	}
	if _, err := g.Authorize(opp); err != nil {
		t.Fatalf("second authorize: %v", err)
	}

	_, err := g.Authorize(opp)
	if !errors.Is(err, types.ErrRiskLimitConcurrency) {
		t.Fatalf("third authorize err = %v, want ErrRiskLimitConcurrency", err)
	}

	// Releasing a slot re-opens the gate.
	g.Release(5)
	if _, err := g.Authorize(opp); err != nil {
		t.Fatalf("authorize after release: %v", err)
	}
}

func TestPositionClipping(t *testing.T) {
	g := NewGate(Config{
		MaxConcurrentTrades: 5,
		MaxDailyLoss:        500,
		MaxPositionSize:     1000,
		Logger:              zap.NewNop(),
	})

	tests := []struct {
		name     string
		buyPrice float64
		quantity float64
		wantQty  float64
	}{
		{
			name:     "within-limit-passes-through",
			buyPrice: 100,
			quantity: 5,
			wantQty:  5,
		},
		{
			name:     "oversized-notional-clipped",
			buyPrice: 100,
			quantity: 50, // 5000 notional against a 1000 limit
			wantQty:  10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qty, err := g.Authorize(testOpportunity(tt.buyPrice, tt.quantity))
			if err != nil {
				t.Fatalf("Authorize: %v", err)
			}
			if qty != tt.wantQty {
				t.Errorf("quantity = %f, want %f", qty, tt.wantQty)
			}
			g.Release(0)
		})
	}
}

func TestDailyLossHalt(t *testing.T) {
	g := NewGate(Config{
		MaxConcurrentTrades: 5,
		MaxDailyLoss:        500,
		MaxPositionSize:     100000,
		Logger:              zap.NewNop(),
	})

	opp := testOpportunity(100, 1)

	// Accumulate losses below the limit: still open.
	if _, err := g.Authorize(opp); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	g.Release(-300)
	if g.Halted() {
		t.Fatal("gate halted below the daily loss limit")
	}

	// Breach the limit.
	if _, err := g.Authorize(opp); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	g.Release(-250)
	if !g.Halted() {
		t.Fatal("gate not halted after breaching the daily loss limit")
	}

	_, err := g.Authorize(opp)
	if !errors.Is(err, types.ErrRiskLimitDailyLoss) {
		t.Fatalf("authorize while halted err = %v, want ErrRiskLimitDailyLoss", err)
	}

	status := g.CurrentStatus()
	if !status.Halted || status.DailyLoss != 550 {
		t.Fatalf("status = %+v, want halted with daily loss 550", status)
	}
}

func TestHaltClearsAtDayBoundary(t *testing.T) {
	g := NewGate(Config{
		MaxConcurrentTrades: 5,
		MaxDailyLoss:        500,
		MaxPositionSize:     100000,
		Logger:              zap.NewNop(),
	})

	current := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return current }
	g.dayStart = dayStart(current)

	opp := testOpportunity(100, 1)
	_, _ = g.Authorize(opp)
	g.Release(-600)

	if !g.Halted() {
		t.Fatal("gate should be halted for the rest of the day")
	}

	// Next local day: accumulator and halt reset.
	current = current.Add(24 * time.Hour)
	if g.Halted() {
		t.Fatal("halt survived the day boundary")
	}
	if _, err := g.Authorize(opp); err != nil {
		t.Fatalf("authorize on the new day: %v", err)
	}

	status := g.CurrentStatus()
	if status.DailyLoss != 0 {
		t.Fatalf("daily loss after rollover = %f, want 0", status.DailyLoss)
	}
}

func TestProfitsDoNotOffsetLosses(t *testing.T) {
	g := NewGate(Config{
		MaxConcurrentTrades: 5,
		MaxDailyLoss:        100,
		MaxPositionSize:     100000,
		Logger:              zap.NewNop(),
	})

	opp := testOpportunity(100, 1)

	// A large win does not build credit against the loss limit.
	_, _ = g.Authorize(opp)
	g.Release(1000)
	_, _ = g.Authorize(opp)
	g.Release(-100)

	if !g.Halted() {
		t.Fatal("loss accumulator must ignore profits: gate should be halted")
	}
}
