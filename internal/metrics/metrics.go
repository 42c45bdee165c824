// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "caltrack"

// Results recorded on the write-back and load counters.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultMissing   = "missing"
	ResultStale     = "stale"
	ResultCancelled = "cancelled"
)

var (
	// WriteBacks counts debounced document writes by result.
	WriteBacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "writebacks_total",
		Help:      "Debounced session write-backs by result.",
	}, []string{"result"})

	// WriteBackDuration observes how long each store write took.
	WriteBackDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "writeback_duration_seconds",
		Help:      "Latency of session write-backs.",
		Buckets:   prometheus.DefBuckets,
	})

	// DocumentLoads counts user-document loads on sign-in by result.
	DocumentLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "document_loads_total",
		Help:      "User document loads by result.",
	}, []string{"result"})

	// ActiveSessions is the number of open client sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Open client sessions.",
	})

	// RPCDuration observes handler latency by procedure and Connect code.
	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rpc_duration_seconds",
		Help:      "Connect RPC latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"procedure", "code"})
)

// ObserveWriteBack records one completed write.
func ObserveWriteBack(start time.Time, err error) {
	WriteBackDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		WriteBacks.WithLabelValues(ResultError).Inc()
		return
	}
	WriteBacks.WithLabelValues(ResultOK).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
