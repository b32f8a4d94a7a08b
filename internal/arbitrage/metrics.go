package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesDetectedTotal tracks emitted opportunities.
	OpportunitiesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poolarb_opportunities_detected_total",
		Help: "Total number of arbitrage opportunities emitted",
	})

	// OpportunitiesRejectedTotal tracks rejected candidates by reason.
	OpportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolarb_opportunities_rejected_total",
			Help: "Total number of arbitrage candidates rejected",
		},
		[]string{"reason"},
	)

	// NetProfitPct tracks fee-adjusted net profit percentage of emitted opportunities.
	NetProfitPct = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "poolarb_net_profit_pct",
		Help:    "Net profit percentage of emitted opportunities",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.02, 0.05, 0.1},
	})

	// DetectionDurationSeconds tracks a single snapshot scan.
	DetectionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "poolarb_detection_duration_seconds",
		Help:    "Duration of one snapshot scan",
		Buckets: prometheus.DefBuckets,
	})
)
