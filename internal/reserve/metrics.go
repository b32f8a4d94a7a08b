package reserve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReserveBalance tracks the reserve balance.
	ReserveBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "poolarb_reserve_balance",
		Help: "Insurance reserve balance",
	})

	// AllocationsTotal counts profit skims into the reserve.
	AllocationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poolarb_reserve_allocations_total",
		Help: "Total reserve allocations",
	})

	// ClaimsTotal counts claim events by outcome.
	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolarb_reserve_claims_total",
			Help: "Total claim events",
		},
		[]string{"outcome"},
	)
)
