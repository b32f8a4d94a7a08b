package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/quorumtrade/poolarb/internal/arbitrage"
	"github.com/quorumtrade/poolarb/internal/quorum"
	"github.com/quorumtrade/poolarb/pkg/types"
)

// ConsoleStore logs every record instead of persisting it. Used in paper
// mode and in tests. It keeps daily summaries and trades in memory so the
// read paths still work.
type ConsoleStore struct {
	logger *zap.Logger

	mu        sync.Mutex
	trades    map[int64]TradeRecord
	joins     map[string]PoolEvent // member -> first join event
	summaries map[string]DailySummary
}

// NewConsoleStore creates a console-backed store.
func NewConsoleStore(logger *zap.Logger) *ConsoleStore {
	return &ConsoleStore{
		logger:    logger,
		trades:    make(map[int64]TradeRecord),
		joins:     make(map[string]PoolEvent),
		summaries: make(map[string]DailySummary),
	}
}

// StoreOpportunity logs a detected opportunity.
func (s *ConsoleStore) StoreOpportunity(_ context.Context, opp *arbitrage.Opportunity) error {
	s.logger.Info("opportunity-stored",
		zap.String("opportunity-id", opp.ID),
		zap.String("symbol", opp.Symbol),
		zap.String("buy-venue", opp.BuyVenue),
		zap.String("sell-venue", opp.SellVenue),
		zap.Float64("net-profit", opp.NetProfit),
		zap.Float64("net-profit-pct", opp.NetProfitPct))
	return nil
}

// StoreTrade logs a trade transition and keeps the latest snapshot in memory.
func (s *ConsoleStore) StoreTrade(_ context.Context, trade *quorum.Trade) error {
	snap := trade.Snapshot()

	approvals, err := json.Marshal(snap.Approvals)
	if err != nil {
		return fmt.Errorf("marshal approvals: %w", err)
	}

	rec := TradeRecord{
		ID:            snap.ID,
		OpportunityID: snap.Opportunity.ID,
		Symbol:        snap.Opportunity.Symbol,
		BuyVenue:      snap.Opportunity.BuyVenue,
		SellVenue:     snap.Opportunity.SellVenue,
		Status:        string(snap.Status),
		Approvals:     string(approvals),
		Quantity:      snap.Opportunity.Quantity,
		BuyPrice:      snap.Opportunity.BuyPrice,
		SellPrice:     snap.Opportunity.SellPrice,
		Unrecoverable: snap.Unrecoverable,
		CancelReason:  snap.CancelReason,
		SettledAt:     snap.SettledAt,
	}
	if snap.Result != nil {
		rec.FeesPaid = snap.Result.FeesPaid
		rec.RealizedProfit = snap.Result.RealizedProfit
	}

	s.mu.Lock()
	s.trades[rec.ID] = rec
	s.mu.Unlock()

	s.logger.Info("trade-stored",
		zap.Int64("trade-id", rec.ID),
		zap.String("status", rec.Status),
		zap.Int("approvals", len(snap.Approvals)),
		zap.Float64("realized-profit", rec.RealizedProfit))
	return nil
}

// StorePoolEvent logs a pool event and remembers first joins for the
// member-trade read path.
func (s *ConsoleStore) StorePoolEvent(_ context.Context, ev PoolEvent) error {
	if ev.Kind == "member_joined" {
		s.mu.Lock()
		if _, ok := s.joins[ev.Member]; !ok {
			s.joins[ev.Member] = ev
		}
		s.mu.Unlock()
	}

	s.logger.Info("pool-event",
		zap.String("kind", ev.Kind),
		zap.String("member", ev.Member),
		zap.Float64("amount", ev.Amount),
		zap.Float64("shares", ev.Shares))
	return nil
}

// StoreReserveEvent logs a reserve event.
func (s *ConsoleStore) StoreReserveEvent(_ context.Context, ev ReserveEvent) error {
	s.logger.Info("reserve-event",
		zap.String("kind", ev.Kind),
		zap.String("claim-id", ev.ClaimID),
		zap.String("member", ev.Member),
		zap.Float64("amount", ev.Amount))
	return nil
}

// StoreDailySummary logs and keeps the day aggregate.
func (s *ConsoleStore) StoreDailySummary(_ context.Context, sum DailySummary) error {
	s.mu.Lock()
	s.summaries[sum.Date] = sum
	s.mu.Unlock()

	s.logger.Info("daily-summary",
		zap.String("date", sum.Date),
		zap.Int("total-trades", sum.TotalTrades),
		zap.Int("winning-trades", sum.WinningTrades),
		zap.Float64("total-profit", sum.TotalProfit),
		zap.Float64("total-loss", sum.TotalLoss))
	return nil
}

// TradesForMember returns settled trades from the member's join onward.
func (s *ConsoleStore) TradesForMember(_ context.Context, member string) ([]TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	join, ok := s.joins[member]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", member, types.ErrNotFound)
	}

	var out []TradeRecord
	for _, rec := range s.trades {
		if rec.SettledAt.IsZero() || rec.SettledAt.Before(join.At) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DailySummaryFor returns the stored aggregate for a date.
func (s *ConsoleStore) DailySummaryFor(_ context.Context, date string) (*DailySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum, ok := s.summaries[date]
	if !ok {
		return nil, fmt.Errorf("daily summary %s: %w", date, types.ErrNotFound)
	}
	return &sum, nil
}

// Close is a no-op for the console store.
func (s *ConsoleStore) Close() error {
	return nil
}
