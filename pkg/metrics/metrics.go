// Package metrics exposes Prometheus instrumentation for the sync engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SyncCalls counts account sync outcomes per platform. Outcomes:
	// success, unchanged, cache_hit, too_soon, failed, forbidden,
	// not_found, unsupported.
	SyncCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiencesync",
		Subsystem: "engine",
		Name:      "sync_calls_total",
		Help:      "Account sync decisions and outcomes per platform.",
	}, []string{"platform", "outcome"})

	// SyncDuration tracks wall time of platform fetches including retries.
	SyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "audiencesync",
		Subsystem: "engine",
		Name:      "sync_duration_seconds",
		Help:      "Latency distribution for account fetches, retries included.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"platform"})

	// RateLimitWaits counts explicit 429 responses handled per platform.
	RateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiencesync",
		Subsystem: "engine",
		Name:      "rate_limit_waits_total",
		Help:      "Times a provider rate limit forced a wait.",
	}, []string{"platform"})

	// FollowersCollected counts follower records persisted per platform.
	FollowersCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiencesync",
		Subsystem: "collector",
		Name:      "followers_collected_total",
		Help:      "Follower records collected and persisted per platform.",
	}, []string{"platform"})

	// DedupDuration tracks unique-audience computation time.
	DedupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "audiencesync",
		Subsystem: "dedup",
		Name:      "dedup_duration_seconds",
		Help:      "Latency distribution for unique follower count computation.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
