package arbitrage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Opportunity is a detected cross-venue price discrepancy with fee-adjusted
// profit already computed. Immutable once created; consumed exactly once by
// the quorum pipeline.
type Opportunity struct {
	ID           string
	Symbol       string
	BuyVenue     string
	SellVenue    string
	BuyPrice     float64
	SellPrice    float64
	Quantity     float64
	GrossSpread  float64
	Fees         float64 // per-unit fees at the quoted prices
	NetProfit    float64
	NetProfitPct float64
	DetectedAt   time.Time
}

// NewOpportunity computes fee-inclusive profit for a (symbol, buy-venue,
// sell-venue) triple. Fee rates are fractions (0.001 = 0.1%).
func NewOpportunity(
	symbol string,
	buyVenue string,
	sellVenue string,
	buyPrice float64,
	sellPrice float64,
	quantity float64,
	buyFeeRate float64,
	sellFeeRate float64,
) *Opportunity {
	gross := sellPrice - buyPrice
	fees := buyPrice*buyFeeRate + sellPrice*sellFeeRate
	netProfit := (gross - fees) * quantity
	netProfitPct := (sellPrice*(1-sellFeeRate) - buyPrice*(1+buyFeeRate)) / buyPrice

	return &Opportunity{
		ID:           uuid.New().String(),
		Symbol:       symbol,
		BuyVenue:     buyVenue,
		SellVenue:    sellVenue,
		BuyPrice:     buyPrice,
		SellPrice:    sellPrice,
		Quantity:     quantity,
		GrossSpread:  gross,
		Fees:         fees,
		NetProfit:    netProfit,
		NetProfitPct: netProfitPct,
		DetectedAt:   time.Now(),
	}
}

// String returns a human-readable representation of the opportunity.
func (o *Opportunity) String() string {
	return fmt.Sprintf(
		"Opportunity[%s] %s buy %s@%.2f sell %s@%.2f qty=%.6f net=$%.2f (%.3f%%)",
		o.ID[:8],
		o.Symbol,
		o.BuyVenue,
		o.BuyPrice,
		o.SellVenue,
		o.SellPrice,
		o.Quantity,
		o.NetProfit,
		o.NetProfitPct*100,
	)
}
