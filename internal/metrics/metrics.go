// Package metrics records client-side request and stream metrics in Prometheus.
package metrics

import (
	"github.com/oremus-labs/ol-power-client/internal/apierr"
	"github.com/oremus-labs/ol-power-client/internal/observe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is an observe.Sink backed by Prometheus collectors.
type Recorder struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	streamTotal     *prometheus.CounterVec
	streamChunks    prometheus.Counter
	streamDuration  prometheus.Histogram
	suppressedTotal prometheus.Counter
	invalidations   *prometheus.CounterVec
}

var _ observe.Sink = (*Recorder)(nil)

// NewRecorder registers the collectors on reg (the default registerer when nil).
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "power_client_request_duration_seconds",
			Help:    "Duration of backend API calls issued by the client",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "outcome"}),
		requestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "power_client_requests_total",
			Help: "Backend API calls grouped by method and outcome",
		}, []string{"method", "outcome"}),
		streamTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "power_client_stream_sessions_total",
			Help: "Streaming chat sessions grouped by terminal state",
		}, []string{"state"}),
		streamChunks: factory.NewCounter(prometheus.CounterOpts{
			Name: "power_client_stream_chunks_total",
			Help: "Chunks delivered by streaming sessions",
		}),
		streamDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "power_client_stream_duration_seconds",
			Help:    "Lifetime of streaming chat sessions",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		suppressedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "power_client_stream_errors_suppressed_total",
			Help: "Transport errors swallowed because the stream had already delivered data",
		}),
		invalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "power_client_session_invalidations_total",
			Help: "Credential teardowns caused by 401 responses",
		}, []string{"redirected"}),
	}
}

func (r *Recorder) RequestStarted(observe.RequestInfo) {}

func (r *Recorder) RequestFinished(info observe.RequestInfo) {
	method := info.Method
	if method == "" {
		method = "unknown"
	}
	outcome := apierr.Kind(info.Err)
	r.requestDuration.WithLabelValues(method, outcome).Observe(info.Duration.Seconds())
	r.requestTotal.WithLabelValues(method, outcome).Inc()
}

func (r *Recorder) StreamOpened(observe.StreamInfo) {}

func (r *Recorder) StreamChunk(observe.StreamInfo) {
	r.streamChunks.Inc()
}

func (r *Recorder) StreamErrorSuppressed(observe.StreamInfo) {
	r.suppressedTotal.Inc()
}

func (r *Recorder) StreamFinished(info observe.StreamInfo) {
	state := info.State
	if state == "" {
		state = "unknown"
	}
	r.streamTotal.WithLabelValues(state).Inc()
	r.streamDuration.Observe(info.Duration.Seconds())
}

func (r *Recorder) SessionInvalidated(redirected bool) {
	label := "false"
	if redirected {
		label = "true"
	}
	r.invalidations.WithLabelValues(label).Inc()
}
