package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oremus-labs/ol-power-client/internal/apierr"
	"github.com/oremus-labs/ol-power-client/internal/credentials"
	"github.com/oremus-labs/ol-power-client/internal/observe"
	"github.com/oremus-labs/ol-power-client/internal/store"
)

type recordingSink struct {
	observe.Nop
	mu       sync.Mutex
	started  int
	finished []observe.RequestInfo
	invalid  []bool
}

func (s *recordingSink) RequestStarted(observe.RequestInfo) {
	s.mu.Lock()
	s.started++
	s.mu.Unlock()
}

func (s *recordingSink) RequestFinished(info observe.RequestInfo) {
	s.mu.Lock()
	s.finished = append(s.finished, info)
	s.mu.Unlock()
}

func (s *recordingSink) SessionInvalidated(redirected bool) {
	s.mu.Lock()
	s.invalid = append(s.invalid, redirected)
	s.mu.Unlock()
}

func newPipeline(t *testing.T, srv *httptest.Server, creds *credentials.Store, opts Options) *Pipeline {
	t.Helper()
	opts.BaseURL = srv.URL
	opts.Credentials = creds
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func loggedIn(t *testing.T, token string) *credentials.Store {
	t.Helper()
	creds := credentials.New(store.NewMemory())
	if token != "" {
		if err := creds.Save(context.Background(), credentials.Session{Token: token, Username: "alice", Role: "USER"}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	return creds
}

func TestBearerHeaderOnlyWithToken(t *testing.T) {
	t.Parallel()

	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing JSON content type")
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("missing request id")
		}
		_, _ = io.WriteString(w, `{"success":true,"data":null}`)
	}))
	defer srv.Close()

	p := newPipeline(t, srv, loggedIn(t, ""), Options{})
	if _, err := p.Send(context.Background(), http.MethodGet, "/api/services", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if h := got.Load().(string); h != "" {
		t.Fatalf("expected no Authorization header got %q", h)
	}

	p = newPipeline(t, srv, loggedIn(t, "T"), Options{})
	if _, err := p.Send(context.Background(), http.MethodGet, "/api/services", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if h := got.Load().(string); h != "Bearer T" {
		t.Fatalf("expected Bearer T got %q", h)
	}
}

func TestEnvelopeUnwrapping(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = io.WriteString(w, `{"success":true,"message":"ok","data":{"id":3,"name":"electric"}}`)
		case "/rejected":
			_, _ = io.WriteString(w, `{"success":false,"message":"service not found","data":null}`)
		case "/garbage":
			_, _ = io.WriteString(w, `<html>hi</html>`)
		}
	}))
	defer srv.Close()

	p := newPipeline(t, srv, loggedIn(t, "T"), Options{})
	ctx := context.Background()

	var out struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := p.Get(ctx, "/ok", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.ID != 3 || out.Name != "electric" {
		t.Fatalf("unexpected payload %+v", out)
	}

	err := p.Get(ctx, "/rejected", nil)
	var remote *apierr.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError got %v", err)
	}
	if remote.Message != "service not found" || remote.Status != http.StatusOK {
		t.Fatalf("unexpected remote error %+v", remote)
	}

	err = p.Get(ctx, "/garbage", nil)
	var transport *apierr.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError for malformed envelope got %v", err)
	}
}

func TestNon2xxClassification(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bad-request":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"success":false,"message":"period is required"}`)
		case "/bad-gateway":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, `upstream down`)
		}
	}))
	defer srv.Close()

	p := newPipeline(t, srv, loggedIn(t, "T"), Options{})

	err := p.Get(context.Background(), "/bad-request", nil)
	var remote *apierr.RemoteError
	if !errors.As(err, &remote) || remote.Status != 400 || remote.Message != "period is required" {
		t.Fatalf("unexpected error %v", err)
	}

	err = p.Get(context.Background(), "/bad-gateway", nil)
	if !errors.As(err, &remote) || remote.Status != 502 {
		t.Fatalf("unexpected error %v", err)
	}
	if err.Error() != "request failed (status 502)" {
		t.Fatalf("unexpected fallback message %q", err.Error())
	}
}

func TestUnauthorizedClearsAndRedirectsOnce(t *testing.T) {
	t.Parallel()

	const callers = 6
	var arrived atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if arrived.Add(1) == callers {
			close(release)
		}
		<-release
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"success":false,"message":"token expired"}`)
	}))
	defer srv.Close()

	creds := loggedIn(t, "T")
	var redirects atomic.Int32
	sink := &recordingSink{}
	p := newPipeline(t, srv, creds, Options{
		Redirector: RedirectFunc(func(context.Context) { redirects.Add(1) }),
		Sink:       sink,
	})

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = p.Get(context.Background(), "/api/users", nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, apierr.ErrUnauthenticated) {
			t.Fatalf("call %d: expected ErrUnauthenticated got %v", i, err)
		}
	}
	if redirects.Load() != 1 {
		t.Fatalf("expected exactly one redirect got %d", redirects.Load())
	}
	sess, err := creds.Session(context.Background())
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess != (credentials.Session{}) {
		t.Fatalf("expected all keys cleared got %+v", sess)
	}
	if len(sink.invalid) != callers {
		t.Fatalf("expected %d invalidation records got %d", callers, len(sink.invalid))
	}
}

func TestUnauthorizedWithTruncatedBodyStillTearsDown(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		defer conn.Close()
		_, _ = buf.WriteString("HTTP/1.1 401 Unauthorized\r\nContent-Type: application/json\r\nContent-Length: 200\r\n\r\n{\"success\":false")
		_ = buf.Flush()
	}))
	defer srv.Close()

	creds := loggedIn(t, "T")
	var redirects atomic.Int32
	p := newPipeline(t, srv, creds, Options{
		Redirector: RedirectFunc(func(context.Context) { redirects.Add(1) }),
	})

	if err := p.Get(context.Background(), "/api/users", nil); !errors.Is(err, apierr.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated got %v", err)
	}
	if creds.IsAuthenticated(context.Background()) {
		t.Fatalf("expected session to be cleared")
	}
	if token, _ := creds.Token(context.Background()); token != "" {
		t.Fatalf("expected token removed got %q", token)
	}
	if redirects.Load() != 1 {
		t.Fatalf("expected one redirect got %d", redirects.Load())
	}
}

func TestTransportFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	p := newPipeline(t, srv, loggedIn(t, ""), Options{Timeout: 50 * time.Millisecond})
	err := p.Get(context.Background(), "/slow", nil)
	var transport *apierr.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError on timeout got %v", err)
	}
	if err.Error() != apierr.MsgTransport {
		t.Fatalf("transport errors should carry the generic hint, got %q", err.Error())
	}

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	p = newPipeline(t, closed, loggedIn(t, ""), Options{})
	if err := p.Get(context.Background(), "/x", nil); !errors.As(err, &transport) {
		t.Fatalf("expected TransportError for refused connection got %v", err)
	}
}

func TestConstructionFailureSkipsNetwork(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	p := newPipeline(t, srv, loggedIn(t, ""), Options{Sink: sink})
	err := p.Post(context.Background(), "/api/chat", map[string]any{"bad": make(chan int)}, nil)
	var invalid *apierr.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ValidationError got %v", err)
	}
	if err := p.Get(context.Background(), "http://elsewhere/api", nil); !errors.As(err, &invalid) {
		t.Fatalf("expected ValidationError for absolute path got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no network calls got %d", hits.Load())
	}
	if sink.started != 0 {
		t.Fatalf("construction failures should not reach the sink")
	}
}

func TestSinkSeesEveryCall(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":[1,2]}`)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	p := newPipeline(t, srv, loggedIn(t, "T"), Options{Sink: sink})
	for i := 0; i < 3; i++ {
		if _, err := p.Send(context.Background(), http.MethodGet, "/api/services", nil); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	if sink.started != 3 || len(sink.finished) != 3 {
		t.Fatalf("expected 3 start/finish records got %d/%d", sink.started, len(sink.finished))
	}
	if !sink.finished[0].Authenticated || sink.finished[0].Status != 200 {
		t.Fatalf("unexpected record %+v", sink.finished[0])
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	p, err := New(Options{BaseURL: "http://localhost:8081/", Credentials: loggedIn(t, "")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := p.Resolve("/api/chat/stream", url.Values{"prompt": {"电费 怎么查?"}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := "http://localhost:8081/api/chat/stream?prompt=%E7%94%B5%E8%B4%B9+%E6%80%8E%E4%B9%88%E6%9F%A5%3F"
	if got != want {
		t.Fatalf("expected %s got %s", want, got)
	}
	got, _ = p.Resolve("/api/users/username/"+url.PathEscape("a/b"), nil)
	if got != "http://localhost:8081/api/users/username/a%2Fb" {
		t.Fatalf("expected escaped segment got %s", got)
	}
	if _, err := New(Options{BaseURL: "not a url", Credentials: loggedIn(t, "")}); err == nil {
		t.Fatalf("expected invalid base URL error")
	}
}
