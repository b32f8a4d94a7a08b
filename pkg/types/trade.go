package types

import "time"

// Side is the direction of an order leg.
type Side string

// Order sides.
const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Quote is a top-of-book snapshot for one symbol on one venue.
type Quote struct {
	Venue     string
	Symbol    string
	Bid       float64
	Ask       float64
	Timestamp time.Time
}

// OrderRequest describes one leg sent to the execution provider.
type OrderRequest struct {
	Venue    string
	Symbol   string
	Side     Side
	Quantity float64
	Price    float64
}

// Fill is the provider's report for a placed order.
type Fill struct {
	OrderID        string
	FilledQuantity float64
	AvgPrice       float64
	Fee            float64
}

// ExecutionResult is the outcome of a two-leg hedge attempt.
// RealizedProfit is negative for failed/unwound attempts that incurred fees.
type ExecutionResult struct {
	TradeID           int64
	OpportunityID     string
	ExecutedAt        time.Time
	BuyFill           *Fill
	SellFill          *Fill
	FeesPaid          float64
	RealizedProfit    float64
	Unwound           bool
	UnrecoverableLoss bool
	Success           bool
	Error             error
}
