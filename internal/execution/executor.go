package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/quorumtrade/poolarb/internal/arbitrage"
	"github.com/quorumtrade/poolarb/internal/exchange"
	"github.com/quorumtrade/poolarb/pkg/types"
	"go.uber.org/zap"
)

// Executor places the two legs of an approved, risk-cleared trade through the
// execution provider. The pair is one logical hedge: a sell-leg failure
// triggers an unwind of the buy leg, and fees lost along the way surface as a
// negative realized profit, never as zero.
type Executor struct {
	provider exchange.Provider
	logger   *zap.Logger
}

// New creates an executor over the given provider.
func New(provider exchange.Provider, logger *zap.Logger) *Executor {
	return &Executor{provider: provider, logger: logger}
}

// Execute runs the buy leg then the sell leg for quantity units. Once called,
// the attempt runs to completion or failure; there is no mid-flight cancel.
func (e *Executor) Execute(ctx context.Context, tradeID int64, opp *arbitrage.Opportunity, quantity float64) *types.ExecutionResult {
	start := time.Now()
	defer func() {
		ExecutionDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	result := &types.ExecutionResult{
		TradeID:       tradeID,
		OpportunityID: opp.ID,
		ExecutedAt:    start,
	}

	buyFill, err := e.provider.PlaceOrder(ctx, types.OrderRequest{
		Venue:    opp.BuyVenue,
		Symbol:   opp.Symbol,
		Side:     types.SideBuy,
		Quantity: quantity,
		Price:    opp.BuyPrice,
	})
	if err != nil {
		// Nothing filled, nothing lost.
		result.Error = fmt.Errorf("buy leg on %s: %w", opp.BuyVenue, err)
		ExecutionErrorsTotal.WithLabelValues("buy_leg").Inc()
		return result
	}
	result.BuyFill = &buyFill

	sellFill, err := e.provider.PlaceOrder(ctx, types.OrderRequest{
		Venue:    opp.SellVenue,
		Symbol:   opp.Symbol,
		Side:     types.SideSell,
		Quantity: buyFill.FilledQuantity,
		Price:    opp.SellPrice,
	})
	if err != nil {
		return e.unwind(ctx, opp, result, buyFill, err)
	}
	result.SellFill = &sellFill

	proceeds := sellFill.FilledQuantity * sellFill.AvgPrice
	cost := buyFill.FilledQuantity * buyFill.AvgPrice
	result.FeesPaid = buyFill.Fee + sellFill.Fee
	result.RealizedProfit = proceeds - cost - result.FeesPaid
	result.Success = true

	e.logger.Info("trade-executed",
		zap.Int64("trade-id", tradeID),
		zap.String("symbol", opp.Symbol),
		zap.Float64("quantity", buyFill.FilledQuantity),
		zap.Float64("fees-paid", result.FeesPaid),
		zap.Float64("realized-profit", result.RealizedProfit))

	RealizedProfitTotal.Add(result.RealizedProfit)

	return result
}

// unwind cancels/reverses the buy leg after a sell-leg failure. The realized
// profit of the attempt is the net of fees already incurred, a small
// guaranteed loss.
func (e *Executor) unwind(ctx context.Context, opp *arbitrage.Opportunity, result *types.ExecutionResult, buyFill types.Fill, sellErr error) *types.ExecutionResult {
	e.logger.Warn("sell-leg-failed-unwinding-buy",
		zap.Int64("trade-id", result.TradeID),
		zap.String("buy-venue", opp.BuyVenue),
		zap.String("sell-venue", opp.SellVenue),
		zap.Error(sellErr))

	ExecutionErrorsTotal.WithLabelValues("sell_leg").Inc()

	result.FeesPaid = buyFill.Fee
	result.RealizedProfit = -buyFill.Fee
	result.Error = fmt.Errorf("sell leg on %s: %w", opp.SellVenue, sellErr)

	err := e.provider.CancelOrder(ctx, opp.BuyVenue, buyFill.OrderID)
	if err != nil {
		// The loss is still propagated; the position is flagged, not dropped.
		result.UnrecoverableLoss = true
		ExecutionErrorsTotal.WithLabelValues("unwind").Inc()
		e.logger.Error("buy-leg-unwind-failed",
			zap.Int64("trade-id", result.TradeID),
			zap.String("order-id", buyFill.OrderID),
			zap.Error(err))
		return result
	}

	result.Unwound = true
	return result
}
