// file: internal/metrics/metrics.go
// version: 2.0.0
// guid: 9f8e7d6c-5b4a-3210-9fed-cba876543210

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hardcover_provider"

var (
	registerOnce sync.Once

	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by serving tier and result",
	}, []string{"tier", "result"})
	cacheDemotions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_demotions_total",
		Help:      "Entries moved from the memory tier to the durable tier",
	})
	cacheEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_evictions_total",
		Help:      "Entries deleted from the durable tier under size pressure",
	})
	coldStoreErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_cold_errors_total",
		Help:      "Absorbed durable tier failures by operation",
	}, []string{"op"})
	hotBytesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_hot_bytes",
		Help:      "Resident bytes in the memory tier",
	})
	hotEntriesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_hot_entries",
		Help:      "Resident entries in the memory tier",
	})
	coldBytesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_cold_bytes",
		Help:      "Stored bytes in the durable tier as of the last write",
	})

	rateLimitChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_checks_total",
		Help:      "Rate limiter decisions by result",
	}, []string{"result"})
	rateLimitIdentities = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ratelimit_identities",
		Help:      "Identities currently tracked by the rate limiter",
	})

	credentialAcquires = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credential_acquires_total",
		Help:      "Credential acquisitions by result",
	}, []string{"result"})
	credentialMints = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credential_mints_total",
		Help:      "Credential mint attempts by result",
	}, []string{"result"})
	credentialsLive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "credentials_live",
		Help:      "Unexpired credentials in the pool",
	})

	searches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_total",
		Help:      "Search requests by outcome",
	}, []string{"outcome"})
	upstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_duration_seconds",
		Help:      "Histogram of upstream call durations in seconds by call",
		Buckets:   prometheus.ExponentialBuckets(0.05, 1.6, 10),
	}, []string{"call"})
	upstreamErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_errors_total",
		Help:      "Failed upstream calls by call",
	}, []string{"call"})

	memoryAllocGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "process_memory_alloc_bytes",
		Help:      "Current process memory allocation (runtime.Alloc)",
	})
	goroutinesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "process_goroutines",
		Help:      "Number of currently running goroutines",
	})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(cacheLookups, cacheDemotions, cacheEvictions, coldStoreErrors,
			hotBytesGauge, hotEntriesGauge, coldBytesGauge,
			rateLimitChecks, rateLimitIdentities,
			credentialAcquires, credentialMints, credentialsLive,
			searches, upstreamDuration, upstreamErrors,
			memoryAllocGauge, goroutinesGauge)
	})
}

// Cache
func IncCacheLookup(tier, result string) { cacheLookups.WithLabelValues(tier, result).Inc() }
func IncCacheDemotion()                  { cacheDemotions.Inc() }
func IncCacheEviction()                  { cacheEvictions.Inc() }
func IncColdStoreError(op string)        { coldStoreErrors.WithLabelValues(op).Inc() }
func SetHotBytes(b int64)                { hotBytesGauge.Set(float64(b)) }
func SetHotEntries(n int)                { hotEntriesGauge.Set(float64(n)) }
func SetColdBytes(b int64)               { coldBytesGauge.Set(float64(b)) }

// Rate limiter
func IncRateLimitCheck(result string) { rateLimitChecks.WithLabelValues(result).Inc() }
func SetRateLimitIdentities(n int)    { rateLimitIdentities.Set(float64(n)) }

// Credentials
func IncCredentialAcquire(result string) { credentialAcquires.WithLabelValues(result).Inc() }
func IncCredentialMint(result string)    { credentialMints.WithLabelValues(result).Inc() }
func SetCredentialsLive(n int)           { credentialsLive.Set(float64(n)) }

// Search pipeline
func IncSearch(outcome string) { searches.WithLabelValues(outcome).Inc() }
func ObserveUpstream(call string, d time.Duration) {
	upstreamDuration.WithLabelValues(call).Observe(d.Seconds())
}
func IncUpstreamError(call string) { upstreamErrors.WithLabelValues(call).Inc() }

// Runtime
func SetMemoryAlloc(b uint64) { memoryAllocGauge.Set(float64(b)) }
func SetGoroutines(n int)     { goroutinesGauge.Set(float64(n)) }
