// Package metrics defines custom Prometheus metrics for BleepStore.
package metrics

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// registerOnce ensures Register() is idempotent.
var registerOnce sync.Once

// RED metrics (Rate, Errors, Duration), keyed by RPC operation name instead
// of HTTP path: the transport collapses every operation onto a single
// POST / endpoint dispatched by X-Amz-Target, so path-based labels would
// all collide on "/".
var (
	// RequestsTotal counts total requests by operation and response status.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bleepstore_requests_total",
			Help: "Total requests by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RequestDuration observes request latency in seconds by operation.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bleepstore_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// SecretsTotal is a gauge tracking the number of non-deleted secrets.
	SecretsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bleepstore_secrets_total",
			Help: "Total non-deleted secrets",
		},
	)

	// ReaperDeletionsTotal counts secrets hard-deleted by the background reaper.
	ReaperDeletionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bleepstore_reaper_deletions_total",
			Help: "Total secrets hard-deleted by the reaper",
		},
	)
)

// Register registers all Prometheus collectors with the default registry.
// This must be called explicitly (typically from main) so that metrics
// registration can be made conditional on configuration. It is safe to call
// multiple times; subsequent calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal, RequestDuration, SecretsTotal, ReaperDeletionsTotal)
	})
}

// operationName extracts the RPC operation name from the X-Amz-Target
// header (e.g. "secretsmanager.CreateSecret" -> "CreateSecret"), falling
// back to "Unknown" when the header is absent. A target without a '.' is
// used whole. The header is read before authentication runs, so requests
// that fail authentication are still labelled with their target.
func operationName(r *http.Request) string {
	target := r.Header.Get("X-Amz-Target")
	if target == "" {
		return "Unknown"
	}
	if idx := strings.LastIndexByte(target, '.'); idx >= 0 {
		return target[idx+1:]
	}
	return target
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Instrument wraps next with RED instrumentation keyed by operation name.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op := operationName(r)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rec, r)
		RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

		status := "success"
		if rec.status >= 400 {
			status = "error"
		}
		RequestsTotal.WithLabelValues(op, status).Inc()
	})
}
