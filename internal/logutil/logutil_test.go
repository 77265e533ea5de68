package logutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/oremus-labs/ol-power-client/internal/apierr"
	"github.com/oremus-labs/ol-power-client/internal/observe"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestSinkWritesStructuredRecords(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewSink(New(&buf, "debug"))

	sink.RequestStarted(observe.RequestInfo{ID: "r1", Method: "GET", Path: "/api/users"})
	sink.RequestFinished(observe.RequestInfo{
		ID:       "r1",
		Method:   "GET",
		Path:     "/api/users",
		Status:   0,
		Duration: time.Millisecond,
		Err:      &apierr.TransportError{Detail: "dial tcp", Cause: errors.New("connection refused")},
	})
	sink.SessionInvalidated(true)

	lines := decodeLines(t, &buf)
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines got %d", len(lines))
	}
	if lines[0]["msg"] != "request.start" || lines[0]["level"] != "DEBUG" {
		t.Fatalf("unexpected first line %+v", lines[0])
	}
	if lines[1]["outcome"] != "transport" {
		t.Fatalf("expected transport outcome got %+v", lines[1])
	}
	if lines[1]["error"] != "dial tcp: connection refused" {
		t.Fatalf("expected diagnostic error got %v", lines[1]["error"])
	}
	if lines[2]["msg"] != "session.invalidated" || lines[2]["redirected"] != true {
		t.Fatalf("unexpected invalidation line %+v", lines[2])
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewSink(New(&buf, "info"))
	sink.StreamChunk(observe.StreamInfo{ID: "s1", Chunks: 1})
	if buf.Len() != 0 {
		t.Fatalf("debug record should be filtered at info level: %s", buf.String())
	}
	sink.StreamFinished(observe.StreamInfo{ID: "s1", State: "completed", Chunks: 2})
	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["state"] != "completed" {
		t.Fatalf("unexpected lines %+v", lines)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	if ParseLevel("WARN").String() != "WARN" || ParseLevel("bogus").String() != "INFO" {
		t.Fatalf("unexpected level parsing")
	}
}

func TestPackageHelpersUseDefaultLogger(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	var buf bytes.Buffer
	SetDefault(New(&buf, "info"))
	SetDefault(nil)

	Info("stub listening", map[string]interface{}{"addr": ":8081"})
	Error("shutdown failed", errors.New("deadline exceeded"), nil)

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines got %d", len(lines))
	}
	if lines[0]["addr"] != ":8081" || lines[0]["level"] != "INFO" {
		t.Fatalf("unexpected info line %+v", lines[0])
	}
	if lines[1]["error"] != "deadline exceeded" || lines[1]["level"] != "ERROR" {
		t.Fatalf("unexpected error line %+v", lines[1])
	}
}
