package devserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type serverMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	streamChunks    prometheus.Counter
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)
	return &serverMetrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "power_stub_http_requests_total",
			Help: "Total HTTP requests processed by the power stub backend",
		}, []string{"method", "path", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "power_stub_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		streamChunks: factory.NewCounter(prometheus.CounterOpts{
			Name: "power_stub_stream_chunks_total",
			Help: "Chat stream chunks written",
		}),
	}
}
