// Package metrics exposes Prometheus collectors for the fetch and
// cache pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "camdb_fetch_total",
		Help: "Partition fetch attempts by outcome (ok, not_modified, fallback, download_error, decode_error)",
	}, []string{"outcome"})
	FetchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "camdb_fetch_duration_ms",
		Help:    "Partition fetch duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "camdb_cache_hits_total",
		Help: "Local cache reads that returned a usable record",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "camdb_cache_misses_total",
		Help: "Local cache reads that found no record",
	})
	CacheDecodeFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "camdb_cache_decode_fail_total",
		Help: "Local cache reads whose stored bytes failed to decode (treated as misses)",
	})
	CacheSweepClearsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "camdb_cache_sweep_clears_total",
		Help: "Sweeps that cleared the entire cache namespace",
	})
	LoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "camdb_loads_total",
		Help: "Dataset store loads by source (cache, network, error)",
	}, []string{"source"})
	RegionChangesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "camdb_region_changes_total",
		Help: "Loads that crossed a region boundary and invalidated the cache",
	})
	SubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "camdb_submissions_total",
		Help: "Anonymous submissions relayed by outcome (ok, rejected, upstream_error)",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(FetchTotal)
	prometheus.MustRegister(FetchDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(CacheDecodeFailTotal)
	prometheus.MustRegister(CacheSweepClearsTotal)
	prometheus.MustRegister(LoadsTotal)
	prometheus.MustRegister(RegionChangesTotal)
	prometheus.MustRegister(SubmissionsTotal)
}

// Handler returns the Prometheus scrape handler for mounting on the
// REST router.
func Handler() http.Handler { return promhttp.Handler() }
