package quorum

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ValidatorsRegistered counts validator registrations.
	ValidatorsRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poolarb_validators_registered_total",
		Help: "Total validators registered",
	})

	// TradesSubmittedTotal counts trades entering the quorum pipeline.
	TradesSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poolarb_trades_submitted_total",
		Help: "Total trades submitted for approval",
	})

	// DecisionsTotal counts validator decisions by direction.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolarb_validator_decisions_total",
			Help: "Total validator decisions",
		},
		[]string{"decision"},
	)

	// TradesApprovedTotal counts quorum approvals.
	TradesApprovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poolarb_trades_approved_total",
		Help: "Total trades reaching quorum approval",
	})

	// TradesRejectedTotal counts terminal rejections.
	TradesRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poolarb_trades_rejected_total",
		Help: "Total trades rejected by a validator",
	})

	// TradesExecutedTotal counts executed trades.
	TradesExecutedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poolarb_trades_executed_total",
		Help: "Total trades executed",
	})

	// TradesCancelledTotal counts cancelled trades.
	TradesCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poolarb_trades_cancelled_total",
		Help: "Total trades cancelled",
	})

	// TradesExpiredTotal counts approval-deadline expiries.
	TradesExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poolarb_trades_expired_total",
		Help: "Total trades expired waiting for approval",
	})
)
