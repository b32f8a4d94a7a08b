package reserve

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quorumtrade/poolarb/pkg/types"
	"go.uber.org/zap"
)

// ClaimStatus is a claim's lifecycle state.
type ClaimStatus string

// Claim states: FILED → {PAID (via approval), DENIED}.
const (
	ClaimFiled  ClaimStatus = "FILED"
	ClaimPaid   ClaimStatus = "PAID"
	ClaimDenied ClaimStatus = "DENIED"
)

// Claim is a member's request for loss coverage.
type Claim struct {
	ID      string      `json:"id"`
	Member  string      `json:"member"`
	Amount  float64     `json:"amount"`
	Reason  string      `json:"reason"`
	Status  ClaimStatus `json:"status"`
	FiledAt time.Time   `json:"filed_at"`
}

// Creditor receives an approved claim payout on behalf of a member. The pool
// ledger satisfies it via CreditMember.
type Creditor interface {
	CreditMember(address string, amount float64) error
}

// Config holds reserve configuration.
type Config struct {
	InitialBalance float64
	// MinHealthRatio blocks claim approval when paying would drop
	// balance/poolCapital below it. 0 disables the check.
	MinHealthRatio float64
	Logger         *zap.Logger
}

// Reserve absorbs a fraction of each distributed profit and pays member
// claims. Balance never goes negative: a claim is approved only when fully
// covered at approval time.
type Reserve struct {
	cfg    Config
	logger *zap.Logger

	mu                sync.Mutex
	creditor          Creditor
	balance           float64
	lifetimeAllocated float64
	lifetimePaid      float64
	claims            map[string]*Claim
	order             []string // filing order
}

// New creates an insurance reserve.
func New(cfg Config) *Reserve {
	cfg.Logger.Info("insurance-reserve-initialized",
		zap.Float64("initial-balance", cfg.InitialBalance),
		zap.Float64("min-health-ratio", cfg.MinHealthRatio))

	return &Reserve{
		cfg:               cfg,
		logger:            cfg.Logger,
		balance:           cfg.InitialBalance,
		lifetimeAllocated: cfg.InitialBalance,
		claims:            make(map[string]*Claim),
	}
}

// BindCreditor wires the ledger that receives claim payouts. Bound after
// construction because the ledger is itself built around this reserve.
func (r *Reserve) BindCreditor(c Creditor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creditor = c
}

// Allocate adds a profit skim to the reserve. Losses are never allocated:
// negative amounts are rejected.
func (r *Reserve) Allocate(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("reserve allocation must be >= 0, got %.2f", amount)
	}
	if amount == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.balance += amount
	r.lifetimeAllocated += amount
	ReserveBalance.Set(r.balance)
	AllocationsTotal.Inc()

	r.logger.Info("reserve-allocation",
		zap.Float64("amount", amount),
		zap.Float64("balance", r.balance))

	return nil
}

// FileClaim records a FILED claim for a member loss.
func (r *Reserve) FileClaim(member string, lossAmount float64, reason string) (*Claim, error) {
	if lossAmount <= 0 {
		return nil, fmt.Errorf("claim amount must be positive, got %.2f", lossAmount)
	}

	claim := &Claim{
		ID:      uuid.New().String(),
		Member:  member,
		Amount:  lossAmount,
		Reason:  reason,
		Status:  ClaimFiled,
		FiledAt: time.Now(),
	}

	r.mu.Lock()
	r.claims[claim.ID] = claim
	r.order = append(r.order, claim.ID)
	r.mu.Unlock()

	ClaimsTotal.WithLabelValues("filed").Inc()

	r.logger.Info("claim-filed",
		zap.String("claim-id", claim.ID),
		zap.String("member", member),
		zap.Float64("amount", lossAmount))

	return claim, nil
}

// ApproveClaim pays a FILED claim in full: the reserve balance goes down by
// the claim amount and the bound creditor credits the member by the same
// amount. It fails with INSUFFICIENT_RESERVE when the claim exceeds the
// balance (the claim stays FILED) and with RESERVE_HEALTH_BELOW_MINIMUM when
// the configured health policy blocks it. poolCapital is the pool's lifetime
// contributed capital, used for the health ratio.
func (r *Reserve) ApproveClaim(claimID string, poolCapital float64) (*Claim, error) {
	r.mu.Lock()

	claim, ok := r.claims[claimID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("claim %s: %w", claimID, types.ErrNotFound)
	}
	if claim.Status != ClaimFiled {
		status := claim.Status
		r.mu.Unlock()
		return nil, fmt.Errorf("claim %s is %s: %w", claimID, status, types.ErrNotPending)
	}

	if claim.Amount > r.balance {
		balance := r.balance
		r.mu.Unlock()
		ClaimsTotal.WithLabelValues("insufficient").Inc()
		return nil, fmt.Errorf("claim %.2f exceeds reserve %.2f: %w",
			claim.Amount, balance, types.ErrInsufficientReserve)
	}

	if r.cfg.MinHealthRatio > 0 && poolCapital > 0 {
		if (r.balance-claim.Amount)/poolCapital < r.cfg.MinHealthRatio {
			r.mu.Unlock()
			ClaimsTotal.WithLabelValues("health_blocked").Inc()
			return nil, fmt.Errorf("paying claim %s would drop reserve health below %.4f: %w",
				claimID, r.cfg.MinHealthRatio, types.ErrReserveHealthLow)
		}
	}

	// Debit under the reserve lock, credit outside it: the ledger takes its
	// own lock in CreditMember.
	r.balance -= claim.Amount
	r.lifetimePaid += claim.Amount
	claim.Status = ClaimPaid
	creditor := r.creditor
	balance := r.balance
	r.mu.Unlock()

	if creditor != nil {
		err := creditor.CreditMember(claim.Member, claim.Amount)
		if err != nil {
			r.mu.Lock()
			r.balance += claim.Amount
			r.lifetimePaid -= claim.Amount
			claim.Status = ClaimFiled
			r.mu.Unlock()

			ClaimsTotal.WithLabelValues("credit_failed").Inc()
			return nil, fmt.Errorf("credit member %s for claim %s: %w", claim.Member, claimID, err)
		}
	}

	ReserveBalance.Set(balance)
	ClaimsTotal.WithLabelValues("paid").Inc()

	r.logger.Info("claim-paid",
		zap.String("claim-id", claimID),
		zap.String("member", claim.Member),
		zap.Float64("amount", claim.Amount),
		zap.Float64("balance", balance))

	return claim, nil
}

// DenyClaim transitions a FILED claim to DENIED with no balance change.
func (r *Reserve) DenyClaim(claimID string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	claim, ok := r.claims[claimID]
	if !ok {
		return fmt.Errorf("claim %s: %w", claimID, types.ErrNotFound)
	}
	if claim.Status != ClaimFiled {
		return fmt.Errorf("claim %s is %s: %w", claimID, claim.Status, types.ErrNotPending)
	}

	claim.Status = ClaimDenied
	ClaimsTotal.WithLabelValues("denied").Inc()

	r.logger.Info("claim-denied",
		zap.String("claim-id", claimID),
		zap.String("reason", reason))

	return nil
}

// Balance returns the current reserve balance.
func (r *Reserve) Balance() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balance
}

// Claims returns claims in filing order, optionally filtered by status
// (empty string for all).
func (r *Reserve) Claims(statusFilter ClaimStatus) []Claim {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Claim, 0, len(r.order))
	for _, id := range r.order {
		c := r.claims[id]
		if statusFilter != "" && c.Status != statusFilter {
			continue
		}
		out = append(out, *c)
	}
	return out
}

// HealthReport summarizes reserve solvency. Reported, not enforced, except
// for the optional MinHealthRatio approval policy.
type HealthReport struct {
	Balance           float64 `json:"balance"`
	LifetimeAllocated float64 `json:"lifetime_allocated"`
	LifetimePaid      float64 `json:"lifetime_paid"`
	PendingClaims     int     `json:"pending_claims"`
	PendingAmount     float64 `json:"pending_amount"`
	HealthRatio       float64 `json:"health_ratio"`
	CoverageRatio     float64 `json:"coverage_ratio"`
}

// Health returns the reserve health against the pool's capital.
// CoverageRatio is 0 when no claims are pending.
func (r *Reserve) Health(poolCapital float64) HealthReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := HealthReport{
		Balance:           r.balance,
		LifetimeAllocated: r.lifetimeAllocated,
		LifetimePaid:      r.lifetimePaid,
	}

	for _, c := range r.claims {
		if c.Status == ClaimFiled {
			report.PendingClaims++
			report.PendingAmount += c.Amount
		}
	}

	if poolCapital > 0 {
		report.HealthRatio = r.balance / poolCapital
	}
	if report.PendingAmount > 0 {
		report.CoverageRatio = r.balance / report.PendingAmount
	}

	return report
}
