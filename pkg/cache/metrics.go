package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HitsTotal counts cache hits.
	HitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poolarb_cache_hits_total",
		Help: "Total cache hits",
	})

	// MissesTotal counts cache misses.
	MissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poolarb_cache_misses_total",
		Help: "Total cache misses",
	})

	// SetsTotal counts cache writes.
	SetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poolarb_cache_sets_total",
		Help: "Total cache writes",
	})
)
