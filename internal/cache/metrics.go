package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediacache_hits_total",
		Help: "Resolve calls served from the local cache, by asset kind.",
	}, []string{"kind"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediacache_misses_total",
		Help: "Resolve calls that required a remote fetch, by asset kind.",
	}, []string{"kind"})

	fetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediacache_fetch_failures_total",
		Help: "Remote fetches or cache writes that failed, by asset kind.",
	}, []string{"kind"})

	evictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediacache_evictions_total",
		Help: "Entries removed by pressure relief or the background sweep.",
	})

	cacheBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediacache_size_bytes",
		Help: "Total bytes on disk across both cache directories.",
	})
)
