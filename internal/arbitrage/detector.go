package arbitrage

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Store is the interface for persisting detected opportunities.
type Store interface {
	StoreOpportunity(ctx context.Context, opp *Opportunity) error
}

// BookTop is the best bid/ask for one symbol on one venue.
type BookTop struct {
	Bid float64
	Ask float64
}

// VenueBook holds one venue's top-of-book quotes per symbol.
type VenueBook struct {
	Venue string
	Books map[string]BookTop
}

// Snapshot is an ordered set of venue books. Venue order is the insertion
// order of the snapshot builder; it breaks net-profit ties deterministically.
type Snapshot []VenueBook

// VenueFees is the fee schedule for one venue, as fractions.
type VenueFees struct {
	Maker float64
	Taker float64
}

// FeeSchedule maps venue name to its fee rates.
type FeeSchedule map[string]VenueFees

// Config holds detector configuration.
type Config struct {
	MinProfitPercentage float64
	MaxPositionSize     float64 // notional ceiling per trade, in quote currency
	Fees                FeeSchedule
	DefaultTakerFee     float64 // used for venues missing from the schedule
	Logger              *zap.Logger
}

// Detector scans venue snapshots for fee-inclusive arbitrage.
type Detector struct {
	cfg    Config
	logger *zap.Logger
	store  Store
}

// New creates a detector. store may be nil when persistence is not wired.
func New(cfg Config, store Store) *Detector {
	return &Detector{
		cfg:    cfg,
		logger: cfg.Logger,
		store:  store,
	}
}

// takerFee returns the taker fee rate for a venue.
func (d *Detector) takerFee(venue string) float64 {
	if fees, ok := d.cfg.Fees[venue]; ok {
		return fees.Taker
	}
	return d.cfg.DefaultTakerFee
}

// Scan computes fee-inclusive net profit for every ordered pair of distinct
// venues quoting the same symbol and returns the emitted opportunities sorted
// by net profit descending. balanceCeilings optionally caps the notional per
// buy venue (available quote-currency balance); venues absent from the map
// are bounded by MaxPositionSize alone.
func (d *Detector) Scan(ctx context.Context, snap Snapshot, balanceCeilings map[string]float64) []*Opportunity {
	start := time.Now()
	defer func() {
		DetectionDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	var out []*Opportunity

	for _, buy := range snap {
		symbols := make([]string, 0, len(buy.Books))
		for symbol := range buy.Books {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)

		for _, sell := range snap {
			if buy.Venue == sell.Venue {
				continue
			}

			for _, symbol := range symbols {
				buyTop := buy.Books[symbol]
				sellTop, ok := sell.Books[symbol]
				if !ok {
					continue
				}

				if buyTop.Ask <= 0 || sellTop.Bid <= 0 {
					OpportunitiesRejectedTotal.WithLabelValues("invalid_quote").Inc()
					continue
				}

				// Buy at the ask, sell at the bid.
				buyPrice := buyTop.Ask
				sellPrice := sellTop.Bid

				notional := d.cfg.MaxPositionSize
				if ceiling, ok := balanceCeilings[buy.Venue]; ok && ceiling < notional {
					notional = ceiling
				}
				if notional <= 0 {
					OpportunitiesRejectedTotal.WithLabelValues("no_balance").Inc()
					continue
				}

				quantity := notional / buyPrice

				opp := NewOpportunity(
					symbol,
					buy.Venue,
					sell.Venue,
					buyPrice,
					sellPrice,
					quantity,
					d.takerFee(buy.Venue),
					d.takerFee(sell.Venue),
				)

				if opp.NetProfitPct < d.cfg.MinProfitPercentage {
					OpportunitiesRejectedTotal.WithLabelValues("below_min_profit").Inc()
					continue
				}

				out = append(out, opp)
			}
		}
	}

	// Stable keeps venue-pair insertion order on equal net profit.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NetProfit > out[j].NetProfit
	})

	for _, opp := range out {
		OpportunitiesDetectedTotal.Inc()
		NetProfitPct.Observe(opp.NetProfitPct)

		d.logger.Info("arbitrage-opportunity-detected",
			zap.String("opportunity-id", opp.ID),
			zap.String("symbol", opp.Symbol),
			zap.String("buy-venue", opp.BuyVenue),
			zap.String("sell-venue", opp.SellVenue),
			zap.Float64("net-profit", opp.NetProfit),
			zap.Float64("net-profit-pct", opp.NetProfitPct))

		if d.store != nil {
			err := d.store.StoreOpportunity(ctx, opp)
			if err != nil {
				d.logger.Error("failed-to-store-opportunity",
					zap.String("opportunity-id", opp.ID),
					zap.Error(err))
			}
		}
	}

	return out
}
