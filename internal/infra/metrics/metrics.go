// Package metrics holds the prometheus collectors exported on the metrics endpoint.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"familydir/internal/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

var (
	// httpRequests tracks API latency by route template and status
	httpRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "familydir_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// memberMutations counts member writes by operation and result
	memberMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "familydir_member_mutations_total",
		Help: "Member create/update/delete operations by result",
	}, []string{"operation", "result"})

	// adapterRequests counts calls to external adapters
	adapterRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "familydir_adapter_requests_total",
		Help: "External adapter calls by adapter and result",
	}, []string{"adapter", "result"})

	// adapterDuration tracks external adapter latency
	adapterDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "familydir_adapter_duration_seconds",
		Help:    "External adapter call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"adapter"})

	// distanceCache counts distance cache lookups by outcome
	distanceCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "familydir_distance_cache_total",
		Help: "Distance cache lookups by outcome",
	}, []string{"outcome"})

	// nearbySkipped counts members left out of nearby results
	nearbySkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "familydir_nearby_skipped_total",
		Help: "Members skipped by nearby because their distance could not be computed",
	})
)

// HTTPRequest records one served request that started at start.
func HTTPRequest(method, route string, status int, start time.Time) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}

// MemberMutation records one member write.
func MemberMutation(operation string, err error) {
	memberMutations.WithLabelValues(operation, result(err)).Inc()
}

// AdapterCall records one external adapter call that started at start.
func AdapterCall(adapter string, start time.Time, err error) {
	adapterRequests.WithLabelValues(adapter, result(err)).Inc()
	adapterDuration.WithLabelValues(adapter).Observe(time.Since(start).Seconds())
}

// DistanceCacheLookup records a distance cache hit or miss.
func DistanceCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	distanceCache.WithLabelValues(outcome).Inc()
}

// NearbySkipped records members dropped from a nearby listing.
func NearbySkipped(n int) {
	if n > 0 {
		nearbySkipped.Add(float64(n))
	}
}

// RegisterDBStats exports the connection pool gauges of the member database. Registering a
// second pool is a no-op, which keeps repeated fx graphs in one process working.
func RegisterDBStats(db *sql.DB) error {
	err := prometheus.Register(collectors.NewDBStatsCollector(db, "familydir"))
	var already prometheus.AlreadyRegisteredError
	if err == nil || errors.As(err, &already) {
		return nil
	}

	return errors.Wrap(err, "failed to register db stats collector")
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func result(err error) string {
	if err != nil {
		return resultError
	}

	return resultOK
}
