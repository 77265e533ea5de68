// Package powerapi is the typed surface of the power-service backend. Every
// function validates its arguments before any network activity and then
// delegates to the request pipeline or the stream consumer.
package powerapi

import (
	"context"
	"iter"
	"net/url"
	"strconv"
	"strings"

	"github.com/oremus-labs/ol-power-client/internal/apierr"
	"github.com/oremus-labs/ol-power-client/internal/credentials"
	"github.com/oremus-labs/ol-power-client/internal/pipeline"
	"github.com/oremus-labs/ol-power-client/internal/stream"
)

// SessionStore persists the credential after login and drops it on logout.
type SessionStore interface {
	Save(ctx context.Context, sess credentials.Session) error
	Clear(ctx context.Context) error
}

// Client groups the backend operations.
type Client struct {
	p        *pipeline.Pipeline
	streams  *stream.Consumer
	sessions SessionStore
}

// New wires a Client.
func New(p *pipeline.Pipeline, streams *stream.Consumer, sessions SessionStore) *Client {
	return &Client{p: p, streams: streams, sessions: sessions}
}

// StreamChat opens a streaming chat session.
func (c *Client) StreamChat(ctx context.Context, prompt string, h stream.Handlers) (*stream.Session, error) {
	return c.streams.Open(ctx, prompt, h)
}

// StreamChatSeq yields streaming chat chunks in order.
func (c *Client) StreamChatSeq(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return c.streams.Seq(ctx, prompt)
}

// parseID requires a positive base-10 integer.
func parseID(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apierr.Invalid(field, "is required")
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return "", apierr.Invalid(field, "must be numeric")
	}
	return strconv.FormatInt(n, 10), nil
}

func requireText(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apierr.Invalid(field, "must not be blank")
	}
	return value, nil
}

func segment(s string) string {
	return url.PathEscape(s)
}
