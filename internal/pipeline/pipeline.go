// Package pipeline is the single path every backend call takes: it attaches
// the bearer credential, unwraps the response envelope, classifies failures
// and tears the session down on 401.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oremus-labs/ol-power-client/internal/apierr"
	"github.com/oremus-labs/ol-power-client/internal/credentials"
	"github.com/oremus-labs/ol-power-client/internal/envelope"
	"github.com/oremus-labs/ol-power-client/internal/observe"
)

const (
	defaultTimeout  = 60 * time.Second
	maxResponseSize = 8 << 20
)

// Redirector performs the "go to login" side effect after a 401.
type Redirector interface {
	RedirectToLogin(ctx context.Context)
}

// RedirectFunc adapts a function to Redirector.
type RedirectFunc func(ctx context.Context)

func (f RedirectFunc) RedirectToLogin(ctx context.Context) { f(ctx) }

// Options configures a Pipeline.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Credentials credentials.Provider
	Redirector  Redirector
	Sink        observe.Sink
	UserAgent   string
}

// Pipeline issues envelope-wrapped JSON requests against one backend.
type Pipeline struct {
	base      *url.URL
	client    *http.Client
	creds     credentials.Provider
	redirect  Redirector
	sink      observe.Sink
	userAgent string
}

// New validates opts and builds a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Credentials == nil {
		return nil, errors.New("pipeline: credentials provider is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("pipeline: invalid base URL %q", opts.BaseURL)
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "pwr"
	}
	return &Pipeline{
		base:      base,
		client:    client,
		creds:     opts.Credentials,
		redirect:  opts.Redirector,
		sink:      observe.OrNop(opts.Sink),
		userAgent: ua,
	}, nil
}

// BaseURL returns the backend root.
func (p *Pipeline) BaseURL() string { return p.base.String() }

// Sink returns the diagnostics sink.
func (p *Pipeline) Sink() observe.Sink { return p.sink }

// StreamClient returns an HTTP client sharing the transport but without the
// per-request timeout, for long-lived streams.
func (p *Pipeline) StreamClient() *http.Client {
	c := *p.client
	c.Timeout = 0
	return &c
}

// Resolve joins path and query onto the base URL.
func (p *Pipeline) Resolve(path string, query url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", &apierr.ValidationError{Field: "path", Reason: err.Error()}
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", &apierr.ValidationError{Field: "path", Reason: "must be relative to the base URL"}
	}
	u := *p.base
	u.Path = p.base.Path + "/" + strings.TrimLeft(ref.Path, "/")
	u.RawPath = ""
	if ref.RawPath != "" {
		u.RawPath = p.base.EscapedPath() + "/" + strings.TrimLeft(ref.RawPath, "/")
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	} else {
		u.RawQuery = ref.RawQuery
	}
	return u.String(), nil
}

// Authorize attaches the bearer header when a token is stored and returns
// the credential epoch the request was issued under.
func (p *Pipeline) Authorize(ctx context.Context, req *http.Request) (uint64, bool, error) {
	sess, epoch, err := p.creds.Snapshot(ctx)
	if err != nil {
		return 0, false, &apierr.ValidationError{Field: "credentials", Reason: err.Error()}
	}
	if sess.Token == "" {
		return epoch, false, nil
	}
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	return epoch, true, nil
}

// Unauthorized clears the credential and, for the first 401 of an epoch,
// triggers the login redirect. It always returns ErrUnauthenticated.
func (p *Pipeline) Unauthorized(ctx context.Context, epoch uint64) error {
	ctx = context.WithoutCancel(ctx)
	first, err := p.creds.Invalidate(ctx, epoch)
	p.sink.SessionInvalidated(first)
	if first && p.redirect != nil {
		p.redirect.RedirectToLogin(ctx)
	}
	if err != nil {
		return fmt.Errorf("%w (credential teardown: %v)", apierr.ErrUnauthenticated, err)
	}
	return apierr.ErrUnauthenticated
}

// Send performs one call and returns the unwrapped envelope data.
func (p *Pipeline) Send(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	info := observe.RequestInfo{ID: uuid.NewString(), Method: method, Path: path}
	start := time.Now()

	req, err := p.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Request-ID", info.ID)
	epoch, authed, err := p.Authorize(ctx, req)
	if err != nil {
		return nil, err
	}
	info.Authenticated = authed

	p.sink.RequestStarted(info)
	data, status, err := p.roundTrip(ctx, req, epoch)
	info.Status = status
	info.Duration = time.Since(start)
	info.Err = err
	p.sink.RequestFinished(info)
	return data, err
}

// Do performs one call and decodes the unwrapped data into out.
func (p *Pipeline) Do(ctx context.Context, method, path string, body, out any) error {
	data, err := p.Send(ctx, method, path, body)
	if err != nil {
		return err
	}
	return envelope.Unmarshal(data, out)
}

func (p *Pipeline) Get(ctx context.Context, path string, out any) error {
	return p.Do(ctx, http.MethodGet, path, nil, out)
}

func (p *Pipeline) Post(ctx context.Context, path string, body, out any) error {
	return p.Do(ctx, http.MethodPost, path, body, out)
}

func (p *Pipeline) Put(ctx context.Context, path string, body, out any) error {
	return p.Do(ctx, http.MethodPut, path, body, out)
}

func (p *Pipeline) Delete(ctx context.Context, path string, out any) error {
	return p.Do(ctx, http.MethodDelete, path, nil, out)
}

func (p *Pipeline) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	target, err := p.Resolve(path, nil)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &apierr.ValidationError{Field: "body", Reason: err.Error()}
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &apierr.ValidationError{Field: "request", Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.userAgent)
	return req, nil
}

func (p *Pipeline) roundTrip(ctx context.Context, req *http.Request, epoch uint64) (json.RawMessage, int, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, &apierr.TransportError{Detail: req.Method + " " + req.URL.Path, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, resp.StatusCode, p.Unauthorized(ctx, epoch)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, resp.StatusCode, &apierr.TransportError{Detail: "read response body", Cause: err}
	}
	if len(raw) > maxResponseSize {
		return nil, resp.StatusCode, &apierr.TransportError{Detail: "response exceeds size limit"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := envelope.Message(raw)
		return nil, resp.StatusCode, &apierr.RemoteError{Status: resp.StatusCode, Message: msg}
	}

	data, err := envelope.Decode(raw)
	var remote *apierr.RemoteError
	if errors.As(err, &remote) {
		remote.Status = resp.StatusCode
	}
	return data, resp.StatusCode, err
}
