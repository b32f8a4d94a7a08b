package quorum

import (
	"sync"
	"time"

	"github.com/quorumtrade/poolarb/internal/arbitrage"
	"github.com/quorumtrade/poolarb/pkg/types"
)

// Status is a trade's lifecycle state.
type Status string

// Trade lifecycle: PENDING_APPROVAL → {APPROVED, REJECTED} → {EXECUTED, CANCELLED}.
const (
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
	StatusExecuted        Status = "EXECUTED"
	StatusCancelled       Status = "CANCELLED"
)

// Decision is a validator's vote on a trade.
type Decision string

// Decisions.
const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// ApprovalRecord is one validator's recorded decision.
type ApprovalRecord struct {
	ValidatorID string
	Role        Role // role at decision time
	Decision    Decision
	Note        string
	At          time.Time
}

// Trade couples an opportunity with its approval history and execution
// outcome. IDs are unique and monotonic. Each trade's state machine is
// serialized by its own mutex; records are retained for audit.
type Trade struct {
	mu sync.Mutex

	ID          int64
	Opportunity *arbitrage.Opportunity
	Status      Status
	Approvals   []ApprovalRecord
	SubmittedAt time.Time
	Deadline    time.Time

	// Execution state, set once by MarkExecuted / MarkCancelled.
	Result        *types.ExecutionResult
	CancelReason  string
	Unrecoverable bool
	SettledAt     time.Time
}

// approvalsByValidator reports whether the validator already decided.
// Caller holds t.mu.
func (t *Trade) decided(validatorID string) bool {
	for _, rec := range t.Approvals {
		if rec.ValidatorID == validatorID {
			return true
		}
	}
	return false
}

// approveCount counts APPROVE records. Caller holds t.mu.
func (t *Trade) approveCount() int {
	n := 0
	for _, rec := range t.Approvals {
		if rec.Decision == DecisionApprove {
			n++
		}
	}
	return n
}

// snapshotApprovals returns a copy of the approval records.
func (t *Trade) snapshotApprovals() []ApprovalRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ApprovalRecord, len(t.Approvals))
	copy(out, t.Approvals)
	return out
}

// TradeSnapshot is a point-in-time copy of a trade, safe to read without
// holding the trade lock.
type TradeSnapshot struct {
	ID            int64
	Opportunity   *arbitrage.Opportunity
	Status        Status
	Approvals     []ApprovalRecord
	SubmittedAt   time.Time
	Deadline      time.Time
	Result        *types.ExecutionResult
	CancelReason  string
	Unrecoverable bool
	SettledAt     time.Time
}

// Snapshot copies the trade under its lock.
func (t *Trade) Snapshot() TradeSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	approvals := make([]ApprovalRecord, len(t.Approvals))
	copy(approvals, t.Approvals)

	return TradeSnapshot{
		ID:            t.ID,
		Opportunity:   t.Opportunity,
		Status:        t.Status,
		Approvals:     approvals,
		SubmittedAt:   t.SubmittedAt,
		Deadline:      t.Deadline,
		Result:        t.Result,
		CancelReason:  t.CancelReason,
		Unrecoverable: t.Unrecoverable,
		SettledAt:     t.SettledAt,
	}
}

// CurrentStatus returns the trade status under the trade lock.
func (t *Trade) CurrentStatus() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Status
}
