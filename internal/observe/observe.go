// Package observe defines the diagnostics sink injected into the request
// pipeline and the stream consumer. Sinks must not block and must not panic;
// they never influence the outcome of a call.
package observe

import "time"

// RequestInfo describes one pipeline call.
type RequestInfo struct {
	ID            string
	Method        string
	Path          string
	Authenticated bool
	Status        int
	Duration      time.Duration
	Err           error
}

// StreamInfo describes one streaming session.
type StreamInfo struct {
	ID       string
	Path     string
	Chunks   int
	State    string
	Duration time.Duration
	Err      error
}

// Sink receives diagnostic records.
type Sink interface {
	RequestStarted(RequestInfo)
	RequestFinished(RequestInfo)
	StreamOpened(StreamInfo)
	StreamChunk(StreamInfo)
	// StreamErrorSuppressed reports a transport error swallowed because the
	// session had already delivered data.
	StreamErrorSuppressed(StreamInfo)
	StreamFinished(StreamInfo)
	SessionInvalidated(redirected bool)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RequestStarted(RequestInfo) {}
func (Nop) RequestFinished(RequestInfo) {}
func (Nop) StreamOpened(StreamInfo) {}
func (Nop) StreamChunk(StreamInfo) {}
func (Nop) StreamErrorSuppressed(StreamInfo) {}
func (Nop) StreamFinished(StreamInfo) {}
func (Nop) SessionInvalidated(redirected bool) {}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}

// Multi fans records out to several sinks in order.
type Multi []Sink

func (m Multi) RequestStarted(info RequestInfo) {
	for _, s := range m {
		s.RequestStarted(info)
	}
}

func (m Multi) RequestFinished(info RequestInfo) {
	for _, s := range m {
		s.RequestFinished(info)
	}
}

func (m Multi) StreamOpened(info StreamInfo) {
	for _, s := range m {
		s.StreamOpened(info)
	}
}

func (m Multi) StreamChunk(info StreamInfo) {
	for _, s := range m {
		s.StreamChunk(info)
	}
}

func (m Multi) StreamErrorSuppressed(info StreamInfo) {
	for _, s := range m {
		s.StreamErrorSuppressed(info)
	}
}

func (m Multi) StreamFinished(info StreamInfo) {
	for _, s := range m {
		s.StreamFinished(info)
	}
}

func (m Multi) SessionInvalidated(redirected bool) {
	for _, s := range m {
		s.SessionInvalidated(redirected)
	}
}
