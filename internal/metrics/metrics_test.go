package metrics

import (
	"testing"
	"time"

	"github.com/oremus-labs/ol-power-client/internal/apierr"
	"github.com/oremus-labs/ol-power-client/internal/observe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCountsOutcomes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	rec.RequestFinished(observe.RequestInfo{Method: "GET", Duration: time.Millisecond})
	rec.RequestFinished(observe.RequestInfo{Method: "GET", Err: apierr.ErrUnauthenticated})
	rec.RequestFinished(observe.RequestInfo{Method: "POST", Err: &apierr.RemoteError{Status: 500}})

	if got := testutil.ToFloat64(rec.requestTotal.WithLabelValues("GET", "ok")); got != 1 {
		t.Fatalf("expected 1 ok GET got %v", got)
	}
	if got := testutil.ToFloat64(rec.requestTotal.WithLabelValues("GET", "unauthenticated")); got != 1 {
		t.Fatalf("expected 1 unauthenticated GET got %v", got)
	}
	if got := testutil.ToFloat64(rec.requestTotal.WithLabelValues("POST", "remote")); got != 1 {
		t.Fatalf("expected 1 remote POST got %v", got)
	}
}

func TestRecorderStreamMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	rec.StreamChunk(observe.StreamInfo{})
	rec.StreamChunk(observe.StreamInfo{})
	rec.StreamErrorSuppressed(observe.StreamInfo{})
	rec.StreamFinished(observe.StreamInfo{State: "completed", Duration: time.Second})
	rec.SessionInvalidated(true)
	rec.SessionInvalidated(false)

	if got := testutil.ToFloat64(rec.streamChunks); got != 2 {
		t.Fatalf("expected 2 chunks got %v", got)
	}
	if got := testutil.ToFloat64(rec.suppressedTotal); got != 1 {
		t.Fatalf("expected 1 suppressed error got %v", got)
	}
	if got := testutil.ToFloat64(rec.streamTotal.WithLabelValues("completed")); got != 1 {
		t.Fatalf("expected 1 completed stream got %v", got)
	}
	if got := testutil.ToFloat64(rec.invalidations.WithLabelValues("true")); got != 1 {
		t.Fatalf("expected 1 redirected invalidation got %v", got)
	}
}
