// Package stream consumes the backend's server-sent chat stream and turns it
// into ordered chunks with exactly-once completion.
//
// A session ends in one of three states. Completed: the [DONE] sentinel
// arrived or the server closed the stream cleanly. Failed: the transport
// broke before any event was received. Cancelled: the caller gave up first.
//
// A transport error after at least one event has been received ends the
// session as Completed, not Failed. A genuine mid-stream failure is then only
// distinguishable from a short answer through the sink's
// StreamErrorSuppressed record.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/oremus-labs/ol-power-client/internal/apierr"
	"github.com/oremus-labs/ol-power-client/internal/envelope"
	"github.com/oremus-labs/ol-power-client/internal/observe"
	"github.com/oremus-labs/ol-power-client/internal/pipeline"
)

// DefaultPath is the chat streaming endpoint.
const DefaultPath = "/api/chat/stream"

// Sentinel marks the end of a stream.
const Sentinel = "[DONE]"

// State is the lifecycle state of a Session.
type State int32

const (
	StateOpen State = iota
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Handlers receive session callbacks. All of them run on the session's
// goroutine in transport order. OnError fires at most once and is always
// followed by OnComplete; OnComplete fires exactly once.
type Handlers struct {
	OnChunk    func(chunk string)
	OnError    func(err error)
	OnComplete func()
}

// Options configures a Consumer.
type Options struct {
	Path string
	// IdleTimeout fails the stream when no event arrives for this long. Zero disables it.
	IdleTimeout time.Duration
}

// Consumer opens streaming sessions through a pipeline's base URL,
// credentials and sink.
type Consumer struct {
	p      *pipeline.Pipeline
	client *http.Client
	path   string
	idle   time.Duration
}

// New builds a Consumer on top of p.
func New(p *pipeline.Pipeline, opts Options) *Consumer {
	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	return &Consumer{p: p, client: p.StreamClient(), path: path, idle: opts.IdleTimeout}
}

// Session is one open stream.
type Session struct {
	ID string

	state    atomic.Int32
	userStop atomic.Bool
	idleHit  atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
	chunks   int
	received bool

	bodyMu sync.Mutex
	body   io.Closer
}

// Open validates prompt and starts a session. Validation failures return
// before any network activity; everything after that is reported through h.
func (c *Consumer) Open(ctx context.Context, prompt string, h Handlers) (*Session, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, apierr.Invalid("prompt", "must not be blank")
	}
	target, err := c.p.Resolve(c.path, url.Values{"prompt": {prompt}})
	if err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(runCtx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, &apierr.ValidationError{Field: "request", Reason: err.Error()}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	epoch, _, err := c.p.Authorize(ctx, req)
	if err != nil {
		cancel()
		return nil, err
	}

	s := &Session{
		ID:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	req.Header.Set("X-Request-ID", s.ID)
	go c.run(ctx, runCtx, s, req, epoch, h)
	return s, nil
}

// Cancel requests closure. It returns immediately; OnComplete follows on the
// session goroutine. Cancelling a terminated session is a no-op.
func (s *Session) Cancel() {
	if !s.state.CompareAndSwap(int32(StateOpen), int32(StateCancelled)) {
		return
	}
	s.userStop.Store(true)
	s.cancel()
	s.closeBody()
}

// State returns the current state.
func (s *Session) State() State { return State(s.state.Load()) }

// Done is closed after OnComplete has returned and the response body has
// been released.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the failure reported to OnError, if any. Valid after Done.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Wait blocks until the session ends or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) setBody(b io.Closer) {
	s.bodyMu.Lock()
	s.body = b
	s.bodyMu.Unlock()
	if s.State() != StateOpen {
		s.closeBody()
	}
}

func (s *Session) closeBody() {
	s.bodyMu.Lock()
	defer s.bodyMu.Unlock()
	if s.body != nil {
		_ = s.body.Close()
		s.body = nil
	}
}

func (c *Consumer) run(parent, ctx context.Context, s *Session, req *http.Request, epoch uint64, h Handlers) {
	sink := c.p.Sink()
	start := time.Now()
	info := observe.StreamInfo{ID: s.ID, Path: c.path}
	sink.StreamOpened(info)

	defer func() {
		if h.OnComplete != nil {
			h.OnComplete()
		}
		s.cancel()
		s.closeBody()
		info.Chunks = s.chunks
		info.State = s.State().String()
		info.Duration = time.Since(start)
		info.Err = s.err
		sink.StreamFinished(info)
		close(s.done)
	}()

	resp, err := c.client.Do(req)
	if err != nil {
		c.transportFailure(parent, s, h, &apierr.TransportError{Detail: "open stream", Cause: err})
		return
	}
	s.setBody(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		authErr := c.p.Unauthorized(parent, epoch)
		s.fail(h, &apierr.StreamError{Message: apierr.MsgUnauthenticated, Cause: authErr})
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg, _ := envelope.Message(raw)
		s.fail(h, &apierr.StreamError{Cause: &apierr.RemoteError{Status: resp.StatusCode, Message: msg}})
		return
	}

	var idle *time.Timer
	if c.idle > 0 {
		idle = time.AfterFunc(c.idle, func() {
			s.idleHit.Store(true)
			s.cancel()
			s.closeBody()
		})
		defer idle.Stop()
	}

	dec := newDecoder(resp.Body)
	for {
		evt, err := dec.Next()
		if idle != nil {
			idle.Reset(c.idle)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.complete()
				return
			}
			if s.idleHit.Load() {
				err = fmt.Errorf("no data for %s: %w", c.idle, err)
			}
			c.transportFailure(parent, s, h, &apierr.TransportError{Detail: "read stream", Cause: err})
			return
		}
		s.received = true

		content := strings.TrimSpace(evt.Data)
		content = strings.TrimPrefix(content, "data: ")
		if content == Sentinel {
			s.complete()
			return
		}
		if content == "" {
			continue
		}
		// Cancel may have landed while the event was decoded.
		if s.State() != StateOpen {
			return
		}
		s.chunks++
		if h.OnChunk != nil {
			h.OnChunk(content)
		}
		info.Chunks = s.chunks
		sink.StreamChunk(info)
	}
}

// transportFailure applies the terminal rules for a transport-level error.
func (c *Consumer) transportFailure(parent context.Context, s *Session, h Handlers, cause *apierr.TransportError) {
	switch {
	case s.userStop.Load():
		// Cancel already moved the session to Cancelled.
	case parent.Err() != nil && !s.idleHit.Load():
		s.state.CompareAndSwap(int32(StateOpen), int32(StateCancelled))
	case s.received:
		if s.state.CompareAndSwap(int32(StateOpen), int32(StateCompleted)) {
			c.p.Sink().StreamErrorSuppressed(observe.StreamInfo{ID: s.ID, Path: c.path, Chunks: s.chunks, Err: cause})
		}
	default:
		s.fail(h, &apierr.StreamError{Cause: cause})
	}
}

func (s *Session) complete() {
	s.state.CompareAndSwap(int32(StateOpen), int32(StateCompleted))
}

func (s *Session) fail(h Handlers, err error) {
	if !s.state.CompareAndSwap(int32(StateOpen), int32(StateFailed)) {
		return
	}
	s.err = err
	if h.OnError != nil {
		h.OnError(err)
	}
}
