package goldbach

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// numbersVerified counts even numbers for which a prime pair was found
	numbersVerified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goldbach_numbers_verified_total",
		Help: "Even numbers for which a Goldbach pair was found",
	})

	// counterexamples counts even numbers with no prime pair
	counterexamples = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goldbach_counterexamples_total",
		Help: "Even numbers for which no Goldbach pair was found",
	})

	// runsTotal counts finished runs by outcome
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goldbach_runs_total",
		Help: "Verification runs by outcome",
	}, []string{"outcome"})

	// runDuration tracks wall time of a run
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "goldbach_run_duration_seconds",
		Help:    "Verification run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 12), // 10ms to ~12h
	})

	activeWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "goldbach_active_workers",
		Help: "Worker goroutines currently verifying a chunk",
	})

	cacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "goldbach_primality_cache_entries",
		Help: "Entries in the primality cache by set",
	}, []string{"set"})

	cacheHitRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "goldbach_primality_cache_hit_ratio",
		Help: "Share of primality cache lookups answered from the cache",
	})

	throughput = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "goldbach_numbers_per_second",
		Help: "Verification throughput of the current run",
	})
)
