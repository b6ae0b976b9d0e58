// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	parsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediaspider",
		Name:      "parses_total",
		Help:      "Number of document extraction passes.",
	}, []string{"status"})

	parseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mediaspider",
		Name:      "parse_duration_seconds",
		Help:      "Wall-clock duration of extraction passes.",
		Buckets:   prometheus.DefBuckets,
	})

	scriptEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediaspider",
		Name:      "script_evaluations_total",
		Help:      "Number of sandbox evaluations and function calls.",
	}, []string{"kind", "status"})

	bridgeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediaspider",
		Name:      "bridge_requests_total",
		Help:      "HTTP requests performed through the transport.",
	}, []string{"method", "status"})

	bridgeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mediaspider",
		Name:      "bridge_request_duration_seconds",
		Help:      "Duration of HTTP requests performed through the transport.",
		Buckets:   prometheus.DefBuckets,
	})

	contextsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediaspider",
		Name:      "script_contexts_active",
		Help:      "Number of live script contexts.",
	})
)

// ObserveParse records one extraction pass.
func ObserveParse(d time.Duration, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	parsesTotal.WithLabelValues(status).Inc()
	parseDuration.Observe(d.Seconds())
}

// ObserveEvaluation records one sandbox evaluation or function call.
func ObserveEvaluation(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	scriptEvaluations.WithLabelValues(kind, status).Inc()
}

// ObserveBridgeRequest records one HTTP round trip. Transport failures
// carry status <= 0 and are labeled "transport_error".
func ObserveBridgeRequest(method string, status int, d time.Duration) {
	label := "transport_error"
	if status > 0 {
		label = strconv.Itoa(status / 100 * 100)
	}
	bridgeRequests.WithLabelValues(method, label).Inc()
	bridgeDuration.Observe(d.Seconds())
}

// ContextCreated and ContextDestroyed track the live context gauge.
func ContextCreated()   { contextsActive.Inc() }
func ContextDestroyed() { contextsActive.Dec() }

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
