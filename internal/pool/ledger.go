package pool

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quorumtrade/poolarb/pkg/types"
	"go.uber.org/zap"
)

// MemberStatus is a member's lifecycle state.
type MemberStatus string

// Member states.
const (
	StatusActive    MemberStatus = "ACTIVE"
	StatusWithdrawn MemberStatus = "WITHDRAWN"
)

// Member is one capital contributor. Balance is derived, not stored:
// shares * share price at any consistent snapshot.
type Member struct {
	Address            string
	CapitalContributed float64
	Shares             float64
	JoinedAt           time.Time
	Status             MemberStatus
}

// Allocator receives the reserve skim of each positive distribution.
// The insurance reserve implements it.
type Allocator interface {
	Allocate(amount float64) error
}

// Config holds pool ledger configuration.
type Config struct {
	Name              string
	MinContribution   float64
	MaxMembers        int // 0 for unlimited
	ReservePercentage float64
	Reserve           Allocator // nil disables the skim
	Logger            *zap.Logger
}

// Ledger tracks member capital, shares, and NAV for one pool. All mutations
// go through the single ledger mutex (exclusive writer per pool); reads take
// the same lock and therefore always observe a consistent snapshot, never a
// partially applied distribution.
type Ledger struct {
	cfg    Config
	logger *zap.Logger

	mu            sync.Mutex
	members       map[string]*Member
	order         []string // join order, for deterministic listings
	totalLifetime float64  // lifetime contributed, monotonic
	activeCapital float64  // contributed capital of ACTIVE members
	totalShares   float64
	nav           float64 // cash + positions − reserve
	createdAt     time.Time
}

// NewLedger creates an empty pool ledger.
func NewLedger(cfg Config) *Ledger {
	cfg.Logger.Info("pool-ledger-initialized",
		zap.String("pool", cfg.Name),
		zap.Float64("min-contribution", cfg.MinContribution),
		zap.Int("max-members", cfg.MaxMembers),
		zap.Float64("reserve-percentage", cfg.ReservePercentage))

	return &Ledger{
		cfg:       cfg,
		logger:    cfg.Logger,
		members:   make(map[string]*Member),
		createdAt: time.Now(),
	}
}

// sharePrice is NAV per share, 1 at pool genesis. Caller holds l.mu.
func (l *Ledger) sharePrice() float64 {
	if l.totalShares == 0 {
		return 1.0
	}
	return l.nav / l.totalShares
}

// SharePrice returns the current share price.
func (l *Ledger) SharePrice() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sharePrice()
}

// AddMember admits a member with the given capital, issuing shares at the
// current share price.
func (l *Ledger) AddMember(address string, capital float64) (*Member, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if m, ok := l.members[address]; ok && m.Status == StatusActive {
		return nil, fmt.Errorf("member %s: %w", address, types.ErrAlreadyExists)
	}
	if capital < l.cfg.MinContribution {
		return nil, fmt.Errorf("capital %.2f below minimum %.2f: %w",
			capital, l.cfg.MinContribution, types.ErrBelowMinimum)
	}
	if l.cfg.MaxMembers > 0 && l.activeCount() >= l.cfg.MaxMembers {
		return nil, fmt.Errorf("pool at capacity %d: %w", l.cfg.MaxMembers, types.ErrPoolFull)
	}

	shares := capital / l.sharePrice()

	member := &Member{
		Address:            address,
		CapitalContributed: capital,
		Shares:             shares,
		JoinedAt:           time.Now(),
		Status:             StatusActive,
	}

	if _, rejoining := l.members[address]; !rejoining {
		l.order = append(l.order, address)
	}
	l.members[address] = member
	l.totalLifetime += capital
	l.activeCapital += capital
	l.totalShares += shares
	l.nav += capital

	MembersActive.Set(float64(l.activeCount()))
	PoolNAV.Set(l.nav)

	l.logger.Info("member-joined",
		zap.String("pool", l.cfg.Name),
		zap.String("address", address),
		zap.Float64("capital", capital),
		zap.Float64("shares", shares))

	return member, nil
}

// RemoveMember withdraws a member, paying out shares at the current share
// price. The member record is retained as WITHDRAWN for audit.
func (l *Ledger) RemoveMember(address string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	member, ok := l.members[address]
	if !ok {
		return 0, fmt.Errorf("member %s: %w", address, types.ErrNotFound)
	}
	if member.Status == StatusWithdrawn {
		return 0, fmt.Errorf("member %s: %w", address, types.ErrAlreadyWithdrawn)
	}

	payout := member.Shares * l.sharePrice()

	l.nav -= payout
	l.totalShares -= member.Shares
	l.activeCapital -= member.CapitalContributed
	member.Shares = 0
	member.Status = StatusWithdrawn

	MembersActive.Set(float64(l.activeCount()))
	PoolNAV.Set(l.nav)

	l.logger.Info("member-withdrawn",
		zap.String("pool", l.cfg.Name),
		zap.String("address", address),
		zap.Float64("payout", payout))

	return payout, nil
}

// DistributeProfit applies a realized profit (or loss, when negative) to the
// pool. A positive amount first routes amount*ReservePercentage to the
// reserve; the remainder raises NAV and thereby every active member's balance
// pro-rata by share fraction. A loss reduces NAV symmetrically and never
// touches the reserve. The share fractions are snapshotted under the ledger
// lock at the start, so concurrent joins/withdrawals cannot see a partial
// distribution. Returns the per-member balance deltas and the reserve skim.
func (l *Ledger) DistributeProfit(amount float64) (map[string]float64, float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.totalShares == 0 {
		return nil, 0, fmt.Errorf("pool %s has no shares outstanding", l.cfg.Name)
	}

	skim := 0.0
	if amount > 0 && l.cfg.ReservePercentage > 0 {
		skim = amount * l.cfg.ReservePercentage
		if l.cfg.Reserve != nil {
			err := l.cfg.Reserve.Allocate(skim)
			if err != nil {
				return nil, 0, fmt.Errorf("allocate reserve skim: %w", err)
			}
		}
	}
	remainder := amount - skim

	// Snapshot of share fractions for the event record.
	deltas := make(map[string]float64, len(l.members))
	for _, addr := range l.order {
		m := l.members[addr]
		if m.Status != StatusActive {
			continue
		}
		deltas[addr] = remainder * (m.Shares / l.totalShares)
	}

	l.nav += remainder

	PoolNAV.Set(l.nav)
	if amount >= 0 {
		DistributionsTotal.WithLabelValues("profit").Inc()
	} else {
		DistributionsTotal.WithLabelValues("loss").Inc()
	}

	l.logger.Info("profit-distributed",
		zap.String("pool", l.cfg.Name),
		zap.Float64("amount", amount),
		zap.Float64("reserve-skim", skim),
		zap.Float64("member-remainder", remainder),
		zap.Int("active-members", len(deltas)),
		zap.Float64("share-price", l.sharePrice()))

	return deltas, skim, nil
}

// CreditMember pays external cash (an approved insurance claim) to one
// member by issuing shares at the current share price, so only that member's
// balance rises.
func (l *Ledger) CreditMember(address string, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	member, ok := l.members[address]
	if !ok {
		return fmt.Errorf("member %s: %w", address, types.ErrNotFound)
	}
	if member.Status != StatusActive {
		return fmt.Errorf("member %s: %w", address, types.ErrAlreadyWithdrawn)
	}
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %.2f", amount)
	}

	shares := amount / l.sharePrice()
	member.Shares += shares
	l.totalShares += shares
	l.nav += amount

	PoolNAV.Set(l.nav)

	l.logger.Info("member-credited",
		zap.String("pool", l.cfg.Name),
		zap.String("address", address),
		zap.Float64("amount", amount),
		zap.Float64("shares", shares))

	return nil
}

// MemberBalance returns a member's current balance: shares * share price.
func (l *Ledger) MemberBalance(address string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	member, ok := l.members[address]
	if !ok {
		return 0, fmt.Errorf("member %s: %w", address, types.ErrNotFound)
	}

	return member.Shares * l.sharePrice(), nil
}

// Members returns a snapshot of all member records in join order.
func (l *Ledger) Members() []Member {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Member, 0, len(l.members))
	for _, addr := range l.order {
		out = append(out, *l.members[addr])
	}
	return out
}

// activeCount counts ACTIVE members. Caller holds l.mu.
func (l *Ledger) activeCount() int {
	n := 0
	for _, m := range l.members {
		if m.Status == StatusActive {
			n++
		}
	}
	return n
}

// PoolStats is a reporting snapshot of the pool.
type PoolStats struct {
	Name              string  `json:"name"`
	TotalMembers      int     `json:"total_members"`
	ActiveMembers     int     `json:"active_members"`
	LifetimeCapital   float64 `json:"lifetime_capital"`
	ActiveCapital     float64 `json:"active_capital"`
	TotalShares       float64 `json:"total_shares"`
	NAV               float64 `json:"nav"`
	SharePrice        float64 `json:"share_price"`
	ProfitGenerated   float64 `json:"profit_generated"`
	ROIPercentage     float64 `json:"roi_percentage"`
	MinContribution   float64 `json:"min_contribution"`
	MaxMembers        int     `json:"max_members"`
	ReservePercentage float64 `json:"reserve_percentage"`
}

// Stats returns the pool's reporting snapshot.
func (l *Ledger) Stats() PoolStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := PoolStats{
		Name:              l.cfg.Name,
		TotalMembers:      len(l.members),
		ActiveMembers:     l.activeCount(),
		LifetimeCapital:   l.totalLifetime,
		ActiveCapital:     l.activeCapital,
		TotalShares:       l.totalShares,
		NAV:               l.nav,
		SharePrice:        l.sharePrice(),
		ProfitGenerated:   l.nav - l.activeCapital,
		MinContribution:   l.cfg.MinContribution,
		MaxMembers:        l.cfg.MaxMembers,
		ReservePercentage: l.cfg.ReservePercentage,
	}
	if l.activeCapital > 0 {
		stats.ROIPercentage = (l.nav - l.activeCapital) / l.activeCapital * 100
	}
	return stats
}

// ActiveAddresses returns the ACTIVE member addresses, sorted.
func (l *Ledger) ActiveAddresses() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, 0, len(l.members))
	for addr, m := range l.members {
		if m.Status == StatusActive {
			out = append(out, addr)
		}
	}
	sort.Strings(out)
	return out
}
