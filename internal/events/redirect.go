package events

import (
	"context"
	"log/slog"
)

// LoginRequired is the payload of a TypeLoginRequired event.
type LoginRequired struct {
	LoginURL string `json:"loginUrl"`
}

// LoginRedirector turns a forced logout into a login-required event.
type LoginRedirector struct {
	Bus      *Bus
	LoginURL string
	Logger   *slog.Logger
}

// RedirectToLogin publishes the login-required event.
func (r *LoginRedirector) RedirectToLogin(ctx context.Context) {
	evt := Event{Type: TypeLoginRequired, Data: LoginRequired{LoginURL: r.LoginURL}}
	if err := r.Bus.Publish(ctx, evt); err != nil {
		logger := r.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("publish login redirect", "error", err)
	}
}
