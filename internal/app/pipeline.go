package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/quorumtrade/poolarb/internal/arbitrage"
	"github.com/quorumtrade/poolarb/internal/quorum"
	"github.com/quorumtrade/poolarb/internal/storage"
	"github.com/quorumtrade/poolarb/pkg/types"
)

// CycleReport summarizes one scan cycle for the registry surface.
type CycleReport struct {
	Opportunities int `json:"opportunities"`
	Submitted     int `json:"submitted"`
	Executed      int `json:"executed"`
	Cancelled     int `json:"cancelled"`
}

// runScanCycle is one full pipeline pass: snapshot the venues, detect, then
// push every emitted opportunity through quorum, risk, execution, and
// settlement.
func (a *App) runScanCycle(ctx context.Context) (*CycleReport, error) {
	snap, ceilings := a.buildSnapshot(ctx)

	opps := a.detector.Scan(ctx, snap, ceilings)

	report := &CycleReport{Opportunities: len(opps)}
	for _, opp := range opps {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Submitted++
		switch a.processOpportunity(ctx, opp) {
		case quorum.StatusExecuted:
			report.Executed++
		case quorum.StatusCancelled:
			report.Cancelled++
		}
	}

	return report, nil
}

// buildSnapshot pulls the top of book and quote-asset balance for every
// configured venue. Venues with no reachable quotes are skipped; balance
// errors leave the venue bounded by the position limit alone.
func (a *App) buildSnapshot(ctx context.Context) (arbitrage.Snapshot, map[string]float64) {
	snap := make(arbitrage.Snapshot, 0, len(a.cfg.Venues))
	ceilings := make(map[string]float64, len(a.cfg.Venues))

	for _, venue := range a.cfg.Venues {
		books := make(map[string]arbitrage.BookTop, len(a.cfg.Symbols))
		for _, symbol := range a.cfg.Symbols {
			quote, err := a.provider.GetQuote(ctx, venue, symbol)
			if err != nil {
				a.logger.Debug("quote-unavailable",
					zap.String("venue", venue),
					zap.String("symbol", symbol),
					zap.Error(err))
				continue
			}
			books[symbol] = arbitrage.BookTop{Bid: quote.Bid, Ask: quote.Ask}
		}
		if len(books) == 0 {
			continue
		}
		snap = append(snap, arbitrage.VenueBook{Venue: venue, Books: books})

		balance, err := a.provider.GetBalance(ctx, venue, a.cfg.QuoteAsset)
		if err != nil {
			a.logger.Warn("balance-unavailable",
				zap.String("venue", venue),
				zap.Error(err))
			continue
		}
		ceilings[venue] = balance
	}

	return snap, ceilings
}

// processOpportunity runs one opportunity through the full lifecycle and
// returns the trade's final status.
func (a *App) processOpportunity(ctx context.Context, opp *arbitrage.Opportunity) quorum.Status {
	trade := a.network.Submit(opp)
	a.storeTrade(ctx, trade)

	if !a.autoApprove(trade.ID) {
		// Stays pending until more decisions arrive or the deadline sweeps it.
		a.storeTrade(ctx, trade)
		return trade.CurrentStatus()
	}
	a.storeTrade(ctx, trade)

	quantity, err := a.gate.Authorize(opp)
	if err != nil {
		a.logger.Info("trade-blocked-by-risk-gate",
			zap.Int64("trade-id", trade.ID),
			zap.Error(err))
		_ = a.network.MarkCancelled(trade.ID, err.Error(), false, nil)
		a.storeTrade(ctx, trade)
		return quorum.StatusCancelled
	}

	result := a.executor.Execute(ctx, trade.ID, opp, quantity)
	a.gate.Release(result.RealizedProfit)

	if result.Success {
		_ = a.network.MarkExecuted(trade.ID, result)
	} else {
		reason := "execution failed"
		if result.Error != nil {
			reason = result.Error.Error()
		}
		_ = a.network.MarkCancelled(trade.ID, reason, result.UnrecoverableLoss, result)
	}

	a.settle(ctx, trade, result)
	a.storeTrade(ctx, trade)

	return trade.CurrentStatus()
}

// settle distributes the realized result into the pool ledger and the
// reserve, records the validators' accuracy, and rolls the daily summary.
func (a *App) settle(ctx context.Context, trade *quorum.Trade, result *types.ExecutionResult) {
	// A buy-leg failure fills nothing; there is no result to distribute.
	if result.BuyFill != nil && result.RealizedProfit != 0 {
		deltas, skim, err := a.ledger.DistributeProfit(result.RealizedProfit)
		if err != nil {
			a.logger.Error("profit-distribution-failed",
				zap.Int64("trade-id", trade.ID),
				zap.Error(err))
		} else {
			kind := "profit_distributed"
			if result.RealizedProfit < 0 {
				kind = "loss_distributed"
			}
			a.storePoolEvent(storage.PoolEvent{
				At:     time.Now(),
				Kind:   kind,
				Amount: result.RealizedProfit,
			})
			if skim > 0 {
				a.storeReserveEvent(storage.ReserveEvent{
					At:     time.Now(),
					Kind:   "allocation",
					Amount: skim,
				})
			}
			a.logger.Debug("distribution-applied",
				zap.Int64("trade-id", trade.ID),
				zap.Int("members", len(deltas)),
				zap.Float64("reserve-skim", skim))
		}
	}

	err := a.network.RecordOutcome(trade.ID, result.RealizedProfit)
	if err != nil {
		a.logger.Warn("record-outcome-failed",
			zap.Int64("trade-id", trade.ID),
			zap.Error(err))
	}

	a.rollDailySummary(ctx, result)
}

// rollDailySummary updates and persists the running aggregate for the
// result's trading day. The first touch of a date resumes from the stored
// row so a restart does not zero the day's earlier counts.
func (a *App) rollDailySummary(ctx context.Context, result *types.ExecutionResult) {
	date := result.ExecutedAt.Format("2006-01-02")

	a.summaryMu.Lock()
	sum, ok := a.summaries[date]
	if !ok {
		stored, err := a.store.DailySummaryFor(ctx, date)
		switch {
		case err == nil:
			sum = stored
		case errors.Is(err, types.ErrNotFound):
			sum = &storage.DailySummary{Date: date}
		default:
			a.logger.Warn("load-daily-summary-failed",
				zap.String("date", date),
				zap.Error(err))
			sum = &storage.DailySummary{Date: date}
		}
		a.summaries[date] = sum
	}
	sum.TotalTrades++
	if result.RealizedProfit > 0 {
		sum.WinningTrades++
		sum.TotalProfit += result.RealizedProfit
	} else if result.RealizedProfit < 0 {
		sum.TotalLoss += -result.RealizedProfit
	}
	snapshot := *sum
	a.summaryMu.Unlock()

	err := a.store.StoreDailySummary(ctx, snapshot)
	if err != nil {
		a.logger.Error("store-daily-summary-failed",
			zap.String("date", date),
			zap.Error(err))
	}
}

func (a *App) storeTrade(ctx context.Context, trade *quorum.Trade) {
	err := a.store.StoreTrade(ctx, trade)
	if err != nil {
		a.logger.Error("store-trade-failed",
			zap.Int64("trade-id", trade.ID),
			zap.Error(err))
	}
}

func (a *App) storePoolEvent(ev storage.PoolEvent) {
	err := a.store.StorePoolEvent(a.ctx, ev)
	if err != nil {
		a.logger.Error("store-pool-event-failed",
			zap.String("kind", ev.Kind),
			zap.Error(err))
	}
}

func (a *App) storeReserveEvent(ev storage.ReserveEvent) {
	err := a.store.StoreReserveEvent(a.ctx, ev)
	if err != nil {
		a.logger.Error("store-reserve-event-failed",
			zap.String("kind", ev.Kind),
			zap.Error(err))
	}
}
