package storage

import (
	"context"
	"time"

	"github.com/quorumtrade/poolarb/internal/arbitrage"
	"github.com/quorumtrade/poolarb/internal/quorum"
)

// PoolEvent is one append-only pool ledger event.
type PoolEvent struct {
	At     time.Time
	Kind   string // member_joined, member_withdrawn, profit_distributed, loss_distributed, claim_credit
	Member string // empty for pool-wide events
	Amount float64
	Shares float64
}

// ReserveEvent is one append-only insurance reserve event.
type ReserveEvent struct {
	At      time.Time
	Kind    string // allocation, claim_filed, claim_paid, claim_denied
	ClaimID string
	Member  string
	Amount  float64
}

// DailySummary is the aggregate for one trading day.
type DailySummary struct {
	Date          string // YYYY-MM-DD
	TotalTrades   int
	WinningTrades int
	TotalProfit   float64
	TotalLoss     float64
}

// TradeRecord is the flattened audit row for a stored trade.
type TradeRecord struct {
	ID             int64
	OpportunityID  string
	Symbol         string
	BuyVenue       string
	SellVenue      string
	Status         string
	Approvals      string // JSON-encoded approval history
	Quantity       float64
	BuyPrice       float64
	SellPrice      float64
	FeesPaid       float64
	RealizedProfit float64
	Unrecoverable  bool
	CancelReason   string
	SettledAt      time.Time
}

// Store is the append-only audit record of the system: opportunities, trades
// with full approval history, pool-member events, reserve events, and daily
// summaries. Implementations must support the member-trade and daily
// aggregate read paths.
type Store interface {
	StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error
	StoreTrade(ctx context.Context, trade *quorum.Trade) error
	StorePoolEvent(ctx context.Context, ev PoolEvent) error
	StoreReserveEvent(ctx context.Context, ev ReserveEvent) error
	StoreDailySummary(ctx context.Context, s DailySummary) error

	// TradesForMember returns trades settled while the member was in the
	// pool (joined on the member's join event).
	TradesForMember(ctx context.Context, member string) ([]TradeRecord, error)

	// DailySummaryFor returns the stored aggregate for a YYYY-MM-DD date.
	DailySummaryFor(ctx context.Context, date string) (*DailySummary, error)

	Close() error
}
