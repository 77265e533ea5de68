// Package apierr defines the failure taxonomy shared by the request pipeline,
// the stream consumer and the typed API surface.
package apierr

import (
	"errors"
	"fmt"
)

// User-facing texts.
const (
	MsgUnauthenticated = "login expired, please log in again"
	MsgTransport       = "network error: check that the backend service is reachable"
	MsgRemoteFallback  = "request failed"
	MsgStream          = "connection error, please try again later"
)

// ErrUnauthenticated means the server rejected the session credential.
// The pipeline has already cleared the stored credential when this is returned.
var ErrUnauthenticated = errors.New(MsgUnauthenticated)

// RemoteError is a server-side rejection: a non-2xx status other than 401,
// or a 2xx envelope with success=false.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d)", MsgRemoteFallback, e.Status)
	}
	return MsgRemoteFallback
}

// TransportError means no usable response was obtained. Error() stays
// generic; Detail and Cause carry the diagnostic.
type TransportError struct {
	Detail string
	Cause  error
}

func (e *TransportError) Error() string {
	return MsgTransport
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Diagnostic returns the underlying cause for logs.
func (e *TransportError) Diagnostic() string {
	switch {
	case e.Detail != "" && e.Cause != nil:
		return e.Detail + ": " + e.Cause.Error()
	case e.Cause != nil:
		return e.Cause.Error()
	default:
		return e.Detail
	}
}

// ValidationError is raised before any I/O when a request cannot be built.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "request config error: " + e.Reason
	}
	return fmt.Sprintf("request config error: %s %s", e.Field, e.Reason)
}

// Invalid is shorthand for a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StreamError reports a failed streaming session.
type StreamError struct {
	Message string
	Cause   error
}

func (e *StreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return MsgStream
}

func (e *StreamError) Unwrap() error { return e.Cause }

// Kind names the taxonomy class of err for labels and logs.
func Kind(err error) string {
	var (
		remote    *RemoteError
		transport *TransportError
		invalid   *ValidationError
		stream    *StreamError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.As(err, &remote):
		return "remote"
	case errors.As(err, &transport):
		return "transport"
	case errors.As(err, &invalid):
		return "validation"
	case errors.As(err, &stream):
		return "stream"
	default:
		return "unknown"
	}
}

// UserMessage returns the text to show an end user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		remote    *RemoteError
		transport *TransportError
		invalid   *ValidationError
		stream    *StreamError
	)
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return MsgUnauthenticated
	case errors.As(err, &remote):
		return remote.Error()
	case errors.As(err, &transport):
		return MsgTransport
	case errors.As(err, &invalid):
		return invalid.Error()
	case errors.As(err, &stream):
		return stream.Error()
	default:
		return err.Error()
	}
}
