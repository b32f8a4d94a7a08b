package quorum

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quorumtrade/poolarb/internal/arbitrage"
	"github.com/quorumtrade/poolarb/pkg/types"
	"go.uber.org/zap"
)

// Config holds quorum configuration.
type Config struct {
	RequiredApprovals   int
	RequireLeadApproval bool
	ApprovalDeadline    time.Duration
	Logger              *zap.Logger
}

// Network runs the trade approval state machine over a set of registered
// validators. Validator bookkeeping is guarded by the network mutex; each
// trade's transitions are serialized by the trade's own mutex, so two
// validators deciding the same trade concurrently are both recorded and the
// quorum check re-evaluates atomically after each recorded decision.
type Network struct {
	cfg    Config
	logger *zap.Logger

	mu         sync.RWMutex
	validators map[string]*Validator
	trades     map[int64]*Trade
	seq        atomic.Int64
}

// NewNetwork creates a validator network.
func NewNetwork(cfg Config) *Network {
	return &Network{
		cfg:        cfg,
		logger:     cfg.Logger,
		validators: make(map[string]*Validator),
		trades:     make(map[int64]*Trade),
	}
}

// RegisterValidator adds a validator. The role is immutable afterwards.
func (n *Network) RegisterValidator(id string, role Role) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.validators[id]; ok {
		return fmt.Errorf("validator %s: %w", id, types.ErrAlreadyExists)
	}

	n.validators[id] = &Validator{ID: id, Role: role}
	ValidatorsRegistered.Inc()

	n.logger.Info("validator-registered",
		zap.String("validator-id", id),
		zap.String("role", role.String()))

	return nil
}

// RemoveValidator removes a validator from the network. Recorded decisions
// on existing trades are retained.
func (n *Network) RemoveValidator(id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.validators[id]; !ok {
		return fmt.Errorf("validator %s: %w", id, types.ErrNotFound)
	}

	delete(n.validators, id)
	n.logger.Info("validator-removed", zap.String("validator-id", id))

	return nil
}

// Validators returns a snapshot of registered validators, sorted by role
// descending then ID, so lead roles come first.
func (n *Network) Validators() []Validator {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]Validator, 0, len(n.validators))
	for _, v := range n.validators {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role > out[j].Role
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Submit creates a trade in PENDING_APPROVAL for the given opportunity.
func (n *Network) Submit(opp *arbitrage.Opportunity) *Trade {
	now := time.Now()
	trade := &Trade{
		ID:          n.seq.Add(1),
		Opportunity: opp,
		Status:      StatusPendingApproval,
		SubmittedAt: now,
		Deadline:    now.Add(n.cfg.ApprovalDeadline),
	}

	n.mu.Lock()
	n.trades[trade.ID] = trade
	n.mu.Unlock()

	TradesSubmittedTotal.Inc()

	n.logger.Info("trade-submitted",
		zap.Int64("trade-id", trade.ID),
		zap.String("opportunity-id", opp.ID),
		zap.String("symbol", opp.Symbol))

	return trade
}

// Trade returns the trade by ID.
func (n *Network) Trade(id int64) (*Trade, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	t, ok := n.trades[id]
	if !ok {
		return nil, fmt.Errorf("trade %d: %w", id, types.ErrNotFound)
	}
	return t, nil
}

// Approve records an approval. Returns true when the trade transitioned to
// APPROVED as a result of this decision.
func (n *Network) Approve(tradeID int64, validatorID string, note string) (bool, error) {
	return n.decide(tradeID, validatorID, DecisionApprove, note)
}

// Reject records a rejection. A single rejection is terminal for quorum
// processing: the trade moves to REJECTED with no override.
func (n *Network) Reject(tradeID int64, validatorID string, reason string) error {
	_, err := n.decide(tradeID, validatorID, DecisionReject, reason)
	return err
}

func (n *Network) decide(tradeID int64, validatorID string, d Decision, note string) (bool, error) {
	n.mu.RLock()
	trade, tok := n.trades[tradeID]
	validator, vok := n.validators[validatorID]
	n.mu.RUnlock()

	if !tok {
		return false, fmt.Errorf("trade %d: %w", tradeID, types.ErrNotFound)
	}
	if !vok {
		return false, fmt.Errorf("validator %s: %w", validatorID, types.ErrNotFound)
	}

	trade.mu.Lock()
	defer trade.mu.Unlock()

	if trade.Status != StatusPendingApproval {
		return false, fmt.Errorf("trade %d is %s: %w", tradeID, trade.Status, types.ErrNotPending)
	}
	if trade.decided(validatorID) {
		return false, fmt.Errorf("validator %s on trade %d: %w", validatorID, tradeID, types.ErrAlreadyDecided)
	}

	trade.Approvals = append(trade.Approvals, ApprovalRecord{
		ValidatorID: validatorID,
		Role:        validator.Role,
		Decision:    d,
		Note:        note,
		At:          time.Now(),
	})

	// Participation counts regardless of direction.
	n.mu.Lock()
	validator.Decisions++
	n.mu.Unlock()

	DecisionsTotal.WithLabelValues(string(d)).Inc()

	if d == DecisionReject {
		trade.Status = StatusRejected
		TradesRejectedTotal.Inc()

		n.logger.Info("trade-rejected",
			zap.Int64("trade-id", tradeID),
			zap.String("validator-id", validatorID),
			zap.String("reason", note))

		return false, nil
	}

	n.logger.Info("trade-approval-recorded",
		zap.Int64("trade-id", tradeID),
		zap.String("validator-id", validatorID),
		zap.String("role", validator.Role.String()),
		zap.Int("approvals", trade.approveCount()),
		zap.Int("required", n.cfg.RequiredApprovals))

	// Re-evaluate quorum with this decision applied, still under the trade lock.
	if !n.quorumSatisfied(trade) {
		return false, nil
	}

	trade.Status = StatusApproved
	TradesApprovedTotal.Inc()

	n.logger.Info("trade-approved",
		zap.Int64("trade-id", tradeID),
		zap.Int("approvals", trade.approveCount()))

	return true, nil
}

// quorumSatisfied checks the approval rules. Caller holds trade.mu.
func (n *Network) quorumSatisfied(trade *Trade) bool {
	if trade.approveCount() < n.cfg.RequiredApprovals {
		return false
	}

	if n.cfg.RequireLeadApproval {
		hasLead := false
		for _, rec := range trade.Approvals {
			if rec.Decision == DecisionApprove && rec.Role.IsLead() {
				hasLead = true
				break
			}
		}
		if !hasLead {
			n.logger.Debug("trade-awaiting-lead-approval", zap.Int64("trade-id", trade.ID))
			return false
		}
	}

	return true
}

// MarkExecuted transitions an APPROVED trade to EXECUTED with its result.
func (n *Network) MarkExecuted(tradeID int64, result *types.ExecutionResult) error {
	trade, err := n.Trade(tradeID)
	if err != nil {
		return err
	}

	trade.mu.Lock()
	defer trade.mu.Unlock()

	if trade.Status != StatusApproved {
		return fmt.Errorf("trade %d is %s, cannot execute: %w", tradeID, trade.Status, types.ErrNotPending)
	}

	trade.Status = StatusExecuted
	trade.Result = result
	trade.SettledAt = time.Now()
	TradesExecutedTotal.Inc()

	return nil
}

// MarkCancelled transitions a trade to CANCELLED with the failure reason.
// Only trades that have not reached EXECUTED can be cancelled; a result may
// carry the fees lost during a failed attempt.
func (n *Network) MarkCancelled(tradeID int64, reason string, unrecoverable bool, result *types.ExecutionResult) error {
	trade, err := n.Trade(tradeID)
	if err != nil {
		return err
	}

	trade.mu.Lock()
	defer trade.mu.Unlock()

	if trade.Status == StatusExecuted || trade.Status == StatusCancelled {
		return fmt.Errorf("trade %d is %s, cannot cancel: %w", tradeID, trade.Status, types.ErrNotPending)
	}

	trade.Status = StatusCancelled
	trade.CancelReason = reason
	trade.Unrecoverable = unrecoverable
	trade.Result = result
	trade.SettledAt = time.Now()
	TradesCancelledTotal.Inc()

	n.logger.Warn("trade-cancelled",
		zap.Int64("trade-id", tradeID),
		zap.String("reason", reason),
		zap.Bool("unrecoverable", unrecoverable))

	return nil
}

// ExpirePending cancels trades left in PENDING_APPROVAL past their deadline
// and returns the expired trade IDs. Expired trades leave quorum counting.
func (n *Network) ExpirePending(now time.Time) []int64 {
	n.mu.RLock()
	candidates := make([]*Trade, 0)
	for _, t := range n.trades {
		candidates = append(candidates, t)
	}
	n.mu.RUnlock()

	var expired []int64
	for _, t := range candidates {
		t.mu.Lock()
		if t.Status == StatusPendingApproval && now.After(t.Deadline) {
			t.Status = StatusCancelled
			t.CancelReason = "approval deadline expired"
			t.SettledAt = now
			expired = append(expired, t.ID)
			TradesExpiredTotal.Inc()
		}
		t.mu.Unlock()
	}

	if len(expired) > 0 {
		n.logger.Info("pending-trades-expired", zap.Int64s("trade-ids", expired))
	}

	return expired
}

// RecordOutcome updates validator accuracy counters once a trade's realized
// profit is known. Approvals count as correct when the realized profit is
// positive; rejections count as correct when it is not. Reporting only, never
// consulted by the quorum check.
func (n *Network) RecordOutcome(tradeID int64, realized float64) error {
	trade, err := n.Trade(tradeID)
	if err != nil {
		return err
	}

	records := trade.snapshotApprovals()

	n.mu.Lock()
	defer n.mu.Unlock()

	for _, rec := range records {
		v, ok := n.validators[rec.ValidatorID]
		if !ok {
			continue // removed since deciding
		}
		if (rec.Decision == DecisionApprove && realized > 0) ||
			(rec.Decision == DecisionReject && realized <= 0) {
			v.Correct++
		}
	}

	return nil
}

// Stats summarizes the network for reporting.
type Stats struct {
	Validators []Validator
	Pending    int
	Approved   int
	Rejected   int
	Executed   int
	Cancelled  int
}

// NetworkStats returns a consistent snapshot of validator and trade counts.
func (n *Network) NetworkStats() Stats {
	stats := Stats{Validators: n.Validators()}

	n.mu.RLock()
	trades := make([]*Trade, 0, len(n.trades))
	for _, t := range n.trades {
		trades = append(trades, t)
	}
	n.mu.RUnlock()

	for _, t := range trades {
		switch t.CurrentStatus() {
		case StatusPendingApproval:
			stats.Pending++
		case StatusApproved:
			stats.Approved++
		case StatusRejected:
			stats.Rejected++
		case StatusExecuted:
			stats.Executed++
		case StatusCancelled:
			stats.Cancelled++
		}
	}

	return stats
}
