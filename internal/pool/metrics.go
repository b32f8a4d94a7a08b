package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MembersActive tracks the active member count.
	MembersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "poolarb_pool_members_active",
		Help: "Active pool members",
	})

	// PoolNAV tracks the pool's net asset value.
	PoolNAV = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "poolarb_pool_nav",
		Help: "Pool net asset value",
	})

	// DistributionsTotal counts distributions by direction.
	DistributionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolarb_pool_distributions_total",
			Help: "Total profit/loss distributions",
		},
		[]string{"direction"},
	)
)
