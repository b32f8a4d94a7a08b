package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExecutionDurationSeconds tracks one hedge attempt end to end.
	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "poolarb_execution_duration_seconds",
		Help:    "Duration of one two-leg execution attempt",
		Buckets: prometheus.DefBuckets,
	})

	// ExecutionErrorsTotal counts failures by failing stage.
	ExecutionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolarb_execution_errors_total",
			Help: "Total execution failures",
		},
		[]string{"stage"},
	)

	// RealizedProfitTotal accumulates realized profit across trades.
	// Gauge, not counter: losses subtract.
	RealizedProfitTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "poolarb_realized_profit_total",
		Help: "Cumulative realized profit",
	})
)
