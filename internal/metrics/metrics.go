package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seedmanage",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "seedmanage",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	SearchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seedmanage",
		Name:      "searches_total",
		Help:      "Completed searches by mode.",
	}, []string{"mode"})

	AdapterRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seedmanage",
		Name:      "adapter_requests_total",
		Help:      "Total adapter calls by adapter id and result status (ok, empty, error, timeout).",
	}, []string{"adapter", "status"})

	AdapterRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "seedmanage",
		Name:      "adapter_request_duration_seconds",
		Help:      "Adapter call duration in seconds.",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 8, 10, 20},
	}, []string{"adapter"})

	AdapterHealthy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "seedmanage",
		Name:      "adapter_healthy",
		Help:      "Whether the last call to an adapter succeeded (1) or failed (0).",
	}, []string{"adapter"})

	FallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seedmanage",
		Name:      "fallbacks_total",
		Help:      "Fallback attempts by reason (error, empty) and whether they produced results.",
	}, []string{"reason", "result"})

	MagnetParsesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seedmanage",
		Name:      "magnet_parses_total",
		Help:      "Magnet URI parses by result (ok, invalid).",
	}, []string{"result"})

	HistoryWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seedmanage",
		Name:      "history_writes_total",
		Help:      "History writes by backend and status.",
	}, []string{"backend", "status"})

	HistoryDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "seedmanage",
		Name:      "history_dropped_total",
		Help:      "History entries dropped because the write queue was full.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		SearchesTotal,
		AdapterRequestsTotal,
		AdapterRequestDuration,
		AdapterHealthy,
		FallbacksTotal,
		MagnetParsesTotal,
		HistoryWritesTotal,
		HistoryDroppedTotal,
	)
}
