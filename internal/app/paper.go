package app

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/quorumtrade/poolarb/internal/quorum"
	"github.com/quorumtrade/poolarb/internal/storage"
)

// Baseline mid prices for the simulated market. Symbols not listed trade
// around 100.
var paperMids = map[string]float64{
	"BTC/USD": 42000,
	"ETH/USD": 2500,
	"SOL/USD": 150,
}

// paperMembers are the demo pool members seeded in paper mode.
var paperMembers = []struct {
	address string
	capital float64
}{
	{"0xalice", 5000},
	{"0xbob", 2500},
	{"0xcarol", 1000},
}

// paperValidators cover every role so any quorum configuration can be
// satisfied by the auto-approver.
var paperValidators = []struct {
	id   string
	role quorum.Role
}{
	{"val-lead", quorum.RoleLead},
	{"val-senior", quorum.RoleSenior},
	{"val-junior-1", quorum.RoleJunior},
	{"val-junior-2", quorum.RoleJunior},
}

// seedPaperEnvironment boots the simulated world: validators, demo members,
// venue balances, fees, and initial quotes.
func (a *App) seedPaperEnvironment() error {
	for _, v := range paperValidators {
		err := a.network.RegisterValidator(v.id, v.role)
		if err != nil {
			return fmt.Errorf("register validator %s: %w", v.id, err)
		}
	}

	for _, m := range paperMembers {
		member, err := a.ledger.AddMember(m.address, m.capital)
		if err != nil {
			return fmt.Errorf("seed member %s: %w", m.address, err)
		}
		a.storePoolEvent(storage.PoolEvent{
			At:     member.JoinedAt,
			Kind:   "member_joined",
			Member: member.Address,
			Amount: member.CapitalContributed,
			Shares: member.Shares,
		})
	}

	for _, venue := range a.cfg.Venues {
		fee := a.cfg.DefaultTakerFee
		if override, ok := a.cfg.VenueFees[venue]; ok {
			fee = override
		}
		a.sim.SetTakerFee(venue, fee)
		a.sim.SetBalance(venue, a.cfg.QuoteAsset, a.cfg.MaxPositionSize*10)
	}
	a.jitterQuotes()

	a.logger.Info("paper-environment-seeded",
		zap.Int("validators", len(paperValidators)),
		zap.Int("members", len(paperMembers)),
		zap.Strings("venues", a.cfg.Venues),
		zap.Strings("symbols", a.cfg.Symbols))

	return nil
}

// jitterQuotes re-prices every venue book around the symbol mid with an
// independent per-venue drift, so cross-venue spreads open and close over
// time the way real books do.
func (a *App) jitterQuotes() {
	for _, venue := range a.cfg.Venues {
		for _, symbol := range a.cfg.Symbols {
			mid, ok := paperMids[symbol]
			if !ok {
				mid = 100
			}

			// Up to ±0.4% venue drift, half-spread of 0.05%.
			drift := (rand.Float64() - 0.5) * 0.008
			center := mid * (1 + drift)
			bid := center * (1 - 0.0005)
			ask := center * (1 + 0.0005)

			a.sim.SetQuote(venue, symbol, bid, ask)
		}
	}
}

// autoApprove walks validators lead-first until the quorum is satisfied.
// Paper-mode stand-in for human validator decisions.
func (a *App) autoApprove(tradeID int64) bool {
	for _, v := range a.network.Validators() {
		approved, err := a.network.Approve(tradeID, v.ID, "paper auto-approval")
		if err != nil {
			a.logger.Warn("auto-approve-failed",
				zap.Int64("trade-id", tradeID),
				zap.String("validator-id", v.ID),
				zap.Error(err))
			continue
		}
		if approved {
			return true
		}
	}
	return false
}
