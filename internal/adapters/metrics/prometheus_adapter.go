package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datacore_cache_lookups_total",
			Help: "SWR cache lookups by result (fresh, stale, miss, legacy).",
		},
		[]string{"result"},
	)

	CacheWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datacore_cache_writes_total",
			Help: "SWR cache writes and deletions by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	InflightGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datacore_coordinator_inflight",
			Help: "Operations currently registered in the request coordinator.",
		},
	)

	CoordinatorRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datacore_coordinator_runs_total",
			Help: "Coordinator calls by how they were served (started, shared, offline, type_mismatch).",
		},
		[]string{"mode"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datacore_http_request_duration_seconds",
			Help:    "Backend call latency including retry and refresh.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "outcome"},
	)

	HTTPRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datacore_http_retries_total",
			Help: "Automatic retries and token refresh attempts.",
		},
		[]string{"reason"},
	)

	OnlineGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datacore_device_online",
			Help: "1 when the last connectivity probe succeeded.",
		},
	)

	BackendReachableGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datacore_backend_reachable",
			Help: "1 when the backend answered the last call or health probe.",
		},
	)

	PaymentOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datacore_payment_outcomes_total",
			Help: "Payment confirmation outcomes by method and result.",
		},
		[]string{"method", "result"},
	)
)

func ObserveCacheLookup(result string) {
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

func ObserveCacheWrite(op string, err error) {
	CacheWritesTotal.WithLabelValues(op, outcome(err)).Inc()
}

func ObserveCoordinator(mode string) {
	CoordinatorRunsTotal.WithLabelValues(mode).Inc()
}

func ObserveHTTPRequest(method, result string, elapsed time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, result).Observe(elapsed.Seconds())
}

func ObserveRetry(reason string) {
	HTTPRetriesTotal.WithLabelValues(reason).Inc()
}

func SetOnline(online bool) {
	OnlineGauge.Set(boolValue(online))
}

func SetBackendReachable(reachable bool) {
	BackendReachableGauge.Set(boolValue(reachable))
}

func ObservePayment(method, result string) {
	PaymentOutcomesTotal.WithLabelValues(method, result).Inc()
}

// StatusClass renders 2xx/4xx/5xx labels so cardinality stays bounded.
func StatusClass(status int) string {
	if status <= 0 {
		return "transport_error"
	}
	return strconv.Itoa(status/100) + "xx"
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
