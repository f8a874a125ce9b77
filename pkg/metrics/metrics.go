package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TilesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slippymap_tiles_created_total",
		Help: "Total number of tiles created by selection passes",
	})

	TilesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slippymap_tiles_completed_total",
		Help: "Total number of tiles whose image finished loading",
	})

	TilesCached = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slippymap_tiles_cached",
		Help: "Number of tiles currently held by the tile cache",
	})

	CacheStores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slippymap_cache_stores_total",
		Help: "Total number of loaded tiles stored in the tile cache",
	})

	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slippymap_cache_evictions_total",
		Help: "Total number of tiles evicted from the tile cache",
	})

	CacheEvictionsDeferred = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slippymap_cache_evictions_deferred_total",
		Help: "Total number of eviction rounds stopped because every candidate was pinned",
	})

	CoveringsInstalled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slippymap_coverings_installed_total",
		Help: "Total number of ancestor tiles installed as placeholders",
	})

	CoveringsRetired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slippymap_coverings_retired_total",
		Help: "Total number of placeholders retired after the covered tile loaded",
	})

	SelectionPasses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slippymap_selection_passes_total",
		Help: "Total number of tile selection passes",
	})

	Redraws = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slippymap_redraws_total",
		Help: "Total number of coalesced redraws",
	})

	UpstreamRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slippymap_upstream_requests_total",
		Help: "Total number of upstream tile server requests",
	})

	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slippymap_upstream_errors_total",
		Help: "Total number of failed upstream tile fetches",
	}, []string{"reason"})

	UpstreamLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "slippymap_upstream_latency_seconds",
		Help:    "Latency of upstream tile fetches in seconds",
		Buckets: prometheus.DefBuckets,
	})

	StoreHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slippymap_store_hits_total",
		Help: "Total number of raw tile store hits",
	})

	StoreMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slippymap_store_misses_total",
		Help: "Total number of raw tile store misses",
	})
)
