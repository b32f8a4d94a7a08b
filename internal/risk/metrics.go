package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RejectionsTotal counts gate rejections by reason.
	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolarb_risk_rejections_total",
			Help: "Total risk gate rejections",
		},
		[]string{"reason"},
	)

	// PositionsClippedTotal counts quantities clipped to the position limit.
	PositionsClippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poolarb_risk_positions_clipped_total",
		Help: "Total trades clipped to max position size",
	})

	// HaltsTotal counts daily-loss halts.
	HaltsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poolarb_risk_halts_total",
		Help: "Total daily-loss pipeline halts",
	})

	// OpenTrades tracks currently open trades.
	OpenTrades = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "poolarb_risk_open_trades",
		Help: "Currently open trades",
	})

	// DailyLoss tracks the running daily realized loss.
	DailyLoss = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "poolarb_risk_daily_loss",
		Help: "Running daily realized loss",
	})
)
