package logutil

import (
	"log/slog"

	"github.com/oremus-labs/ol-power-client/internal/apierr"
	"github.com/oremus-labs/ol-power-client/internal/observe"
)

// Sink writes pipeline and stream diagnostics to a slog logger.
type Sink struct {
	logger *slog.Logger
}

var _ observe.Sink = (*Sink)(nil)

// NewSink returns a sink bound to logger, or to the package logger when nil.
func NewSink(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = Default()
	}
	return &Sink{logger: logger}
}

func (s *Sink) RequestStarted(info observe.RequestInfo) {
	s.logger.Debug("request.start",
		slog.String("request_id", info.ID),
		slog.String("method", info.Method),
		slog.String("path", info.Path),
		slog.Bool("authenticated", info.Authenticated),
	)
}

func (s *Sink) RequestFinished(info observe.RequestInfo) {
	args := []any{
		slog.String("request_id", info.ID),
		slog.String("method", info.Method),
		slog.String("path", info.Path),
		slog.Int("status", info.Status),
		slog.Duration("duration", info.Duration),
	}
	if info.Err != nil {
		args = append(args, slog.String("outcome", apierr.Kind(info.Err)), slog.String("error", diagnostic(info.Err)))
		s.logger.Warn("request.finish", args...)
		return
	}
	s.logger.Info("request.finish", args...)
}

func (s *Sink) StreamOpened(info observe.StreamInfo) {
	s.logger.Info("stream.open", slog.String("stream_id", info.ID), slog.String("path", info.Path))
}

func (s *Sink) StreamChunk(info observe.StreamInfo) {
	s.logger.Debug("stream.chunk", slog.String("stream_id", info.ID), slog.Int("chunks", info.Chunks))
}

func (s *Sink) StreamErrorSuppressed(info observe.StreamInfo) {
	s.logger.Warn("stream.error_suppressed",
		slog.String("stream_id", info.ID),
		slog.Int("chunks", info.Chunks),
		slog.String("error", diagnostic(info.Err)),
	)
}

func (s *Sink) StreamFinished(info observe.StreamInfo) {
	args := []any{
		slog.String("stream_id", info.ID),
		slog.String("state", info.State),
		slog.Int("chunks", info.Chunks),
		slog.Duration("duration", info.Duration),
	}
	if info.Err != nil {
		args = append(args, slog.String("error", diagnostic(info.Err)))
		s.logger.Warn("stream.finish", args...)
		return
	}
	s.logger.Info("stream.finish", args...)
}

func (s *Sink) SessionInvalidated(redirected bool) {
	s.logger.Warn("session.invalidated", slog.Bool("redirected", redirected))
}

func diagnostic(err error) string {
	if err == nil {
		return ""
	}
	if t, ok := err.(*apierr.TransportError); ok {
		return t.Diagnostic()
	}
	return err.Error()
}
