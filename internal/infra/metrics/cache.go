package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		cacheLookupTotal,
		cacheRefreshTotal,
		cacheSize,
	)
}

var (
	cacheLookupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_cache_lookup_total",
			Help: "Attribute cache lookups by result ('hit' or 'invariant_miss').",
		},
		[]string{"result"},
	)

	cacheRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_cache_refresh_total",
			Help: "Per-user snapshot refreshes by status ('ok' or 'error').",
		},
		[]string{"status"},
	)

	cacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "user_cache_entries",
			Help: "Number of user snapshots currently held in the attribute cache.",
		},
	)
)

func IncCacheLookup(result string) {
	cacheLookupTotal.WithLabelValues(result).Inc()
}

func IncCacheRefresh(status string) {
	cacheRefreshTotal.WithLabelValues(status).Inc()
}

func SetCacheSize(n int) {
	cacheSize.Set(float64(n))
}
