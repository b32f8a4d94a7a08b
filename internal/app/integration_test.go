package app

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/quorumtrade/poolarb/internal/quorum"
	"github.com/quorumtrade/poolarb/internal/storage"
	"github.com/quorumtrade/poolarb/pkg/config"
	"github.com/quorumtrade/poolarb/pkg/types"
)

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:            "info",
		HTTPPort:            "0",
		Venues:              []string{"binance", "kraken"},
		Symbols:             []string{"BTC/USD"},
		ScanInterval:        time.Second,
		QuoteAsset:          "USD",
		QuoteTTL:            time.Millisecond,
		MinProfitPercentage: 0.005,
		DefaultTakerFee:     0.001,
		MaxPositionSize:     1000,
		MaxDailyLoss:        500,
		MaxConcurrentTrades: 3,
		RequiredApprovals:   2,
		RequireLeadApproval: true,
		ApprovalDeadline:    time.Minute,
		PoolName:            "test-pool",
		MinContribution:     100,
		MaxMembers:          50,
		ReservePercentage:   0.05,
		ExecutionMode:       "paper",
		StorageMode:         "console",
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()

	a, err := New(testConfig(), zaptest.NewLogger(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.cancel)
	return a
}

// setArb installs a deterministic cross-venue spread wide enough to clear the
// profit floor after fees.
func setArb(a *App) {
	a.sim.SetQuote("binance", "BTC/USD", 41990, 42000)
	a.sim.SetQuote("kraken", "BTC/USD", 42500, 42510)
}

// setFlat installs books with no exploitable spread.
func setFlat(a *App) {
	a.sim.SetQuote("binance", "BTC/USD", 41990, 42000)
	a.sim.SetQuote("kraken", "BTC/USD", 41995, 42005)
}

func TestScanCycleExecutesProfitableSpread(t *testing.T) {
	a := newTestApp(t)
	setArb(a)

	navBefore := a.ledger.Stats().NAV

	report, err := a.runScanCycle(context.Background())
	if err != nil {
		t.Fatalf("runScanCycle: %v", err)
	}
	if report.Opportunities == 0 || report.Executed == 0 {
		t.Fatalf("report = %+v, want at least one executed opportunity", report)
	}

	// The realized profit lands in the pool NAV, minus the reserve skim.
	stats := a.ledger.Stats()
	if stats.NAV <= navBefore {
		t.Errorf("NAV = %f, want growth from %f", stats.NAV, navBefore)
	}
	if got := a.reserve.Balance(); got <= 0 {
		t.Errorf("reserve balance = %f, want a positive skim", got)
	}

	// The quorum pipeline settled the trade to EXECUTED.
	qstats := a.network.NetworkStats()
	if qstats.Executed == 0 || qstats.Pending != 0 {
		t.Errorf("network stats = %+v, want executed trades and no pending", qstats)
	}

	// Slots released after settlement.
	if status := a.gate.CurrentStatus(); status.OpenTrades != 0 {
		t.Errorf("open trades = %d, want 0 after settlement", status.OpenTrades)
	}
}

func TestScanCycleIgnoresFlatMarket(t *testing.T) {
	a := newTestApp(t)
	setFlat(a)

	report, err := a.runScanCycle(context.Background())
	if err != nil {
		t.Fatalf("runScanCycle: %v", err)
	}
	if report.Opportunities != 0 {
		t.Fatalf("flat market produced %d opportunities, want 0", report.Opportunities)
	}
	if stats := a.network.NetworkStats(); stats.Executed != 0 {
		t.Fatalf("flat market executed %d trades, want 0", stats.Executed)
	}
}

func TestDisabledProductPausesPipeline(t *testing.T) {
	a := newTestApp(t)
	setArb(a)

	if err := a.registry.Disable(ProductVenueArbitrage); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if _, err := a.registry.Execute(context.Background(), ProductVenueArbitrage); err == nil {
		t.Fatal("disabled product should refuse execution")
	}

	if err := a.registry.Enable(ProductVenueArbitrage); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if _, err := a.registry.Execute(context.Background(), ProductVenueArbitrage); err != nil {
		t.Fatalf("Execute after enable: %v", err)
	}
}

func TestPaperSeedsQuorumAndPool(t *testing.T) {
	a := newTestApp(t)

	validators := a.network.Validators()
	if len(validators) != len(paperValidators) {
		t.Fatalf("validators = %d, want %d", len(validators), len(paperValidators))
	}
	// Lead-first ordering is what the auto-approver relies on.
	if !validators[0].Role.IsLead() {
		t.Errorf("first validator role = %s, want a lead", validators[0].Role)
	}

	stats := a.ledger.Stats()
	if stats.ActiveMembers != len(paperMembers) {
		t.Errorf("members = %d, want %d", stats.ActiveMembers, len(paperMembers))
	}
	if stats.NAV != 8500 {
		t.Errorf("seeded NAV = %f, want 8500", stats.NAV)
	}
}

func TestClaimPayoutCreditsMemberBalance(t *testing.T) {
	a := newTestApp(t)

	if err := a.reserve.Allocate(300); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	before, err := a.ledger.MemberBalance("0xalice")
	if err != nil {
		t.Fatalf("MemberBalance: %v", err)
	}

	claim, err := a.reserve.FileClaim("0xalice", 200, "covered loss")
	if err != nil {
		t.Fatalf("FileClaim: %v", err)
	}
	if _, err := a.reserve.ApproveClaim(claim.ID, a.ledger.Stats().LifetimeCapital); err != nil {
		t.Fatalf("ApproveClaim: %v", err)
	}

	after, err := a.ledger.MemberBalance("0xalice")
	if err != nil {
		t.Fatalf("MemberBalance: %v", err)
	}
	if after-before != 200 {
		t.Errorf("member balance delta = %f, want the full claim amount 200", after-before)
	}
	if got := a.reserve.Balance(); got != 100 {
		t.Errorf("reserve balance = %f, want 100 after the payout", got)
	}
}

func TestDailySummaryResumesFromStore(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	prior := storage.DailySummary{
		Date:          "2026-08-24",
		TotalTrades:   3,
		WinningTrades: 2,
		TotalProfit:   40,
		TotalLoss:     5,
	}
	if err := a.store.StoreDailySummary(ctx, prior); err != nil {
		t.Fatalf("StoreDailySummary: %v", err)
	}

	// First settlement after a restart: the in-memory aggregate is empty
	// but the day already has stored counts.
	executed := time.Date(2026, 8, 24, 15, 0, 0, 0, time.UTC)
	a.rollDailySummary(ctx, &types.ExecutionResult{
		ExecutedAt:     executed,
		RealizedProfit: 10,
	})

	sum, err := a.store.DailySummaryFor(ctx, "2026-08-24")
	if err != nil {
		t.Fatalf("DailySummaryFor: %v", err)
	}
	if sum.TotalTrades != 4 || sum.WinningTrades != 3 {
		t.Errorf("trades = %d/%d, want 4 total and 3 winning", sum.TotalTrades, sum.WinningTrades)
	}
	if sum.TotalProfit != 50 || sum.TotalLoss != 5 {
		t.Errorf("profit/loss = %f/%f, want 50/5", sum.TotalProfit, sum.TotalLoss)
	}
}

func TestExpiredTradesSweptToCancelled(t *testing.T) {
	a := newTestApp(t)
	setArb(a)

	// Remove every validator so submitted trades can never reach quorum.
	for _, v := range a.network.Validators() {
		if err := a.network.RemoveValidator(v.ID); err != nil {
			t.Fatalf("RemoveValidator: %v", err)
		}
	}

	report, err := a.runScanCycle(context.Background())
	if err != nil {
		t.Fatalf("runScanCycle: %v", err)
	}
	if report.Executed != 0 {
		t.Fatalf("executed = %d with no validators, want 0", report.Executed)
	}

	qstats := a.network.NetworkStats()
	if qstats.Pending == 0 {
		t.Fatal("trades should be stuck pending without validators")
	}

	expired := a.network.ExpirePending(time.Now().Add(2 * time.Minute))
	if len(expired) == 0 {
		t.Fatal("deadline sweep should cancel the stuck trades")
	}
	for _, id := range expired {
		trade, err := a.network.Trade(id)
		if err != nil {
			t.Fatalf("Trade(%d): %v", id, err)
		}
		if got := trade.CurrentStatus(); got != quorum.StatusCancelled {
			t.Errorf("trade %d status = %s, want CANCELLED", id, got)
		}
	}
}
