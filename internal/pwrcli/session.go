package pwrcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/oremus-labs/ol-power-client/config"
	"github.com/oremus-labs/ol-power-client/internal/credentials"
	"github.com/oremus-labs/ol-power-client/internal/events"
	"github.com/oremus-labs/ol-power-client/internal/logutil"
	"github.com/oremus-labs/ol-power-client/internal/metrics"
	"github.com/oremus-labs/ol-power-client/internal/observe"
	"github.com/oremus-labs/ol-power-client/internal/pipeline"
	"github.com/oremus-labs/ol-power-client/internal/powerapi"
	"github.com/oremus-labs/ol-power-client/internal/redisx"
	"github.com/oremus-labs/ol-power-client/internal/stream"
)

const userAgent = "pwr/1.0"

// session is the wired client for one CLI invocation.
type session struct {
	client  *powerapi.Client
	creds   *credentials.Store
	bus     *events.Bus
	logger  *slog.Logger
	redis   redis.UniversalClient
	metrics *http.Server

	loginEvents <-chan events.Event
	unsubscribe func()
}

func currentSession(cmd *cobra.Command) (*session, error) {
	if app != nil {
		return app, nil
	}
	s, err := openSession(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	app = s
	return s, nil
}

func openSession(ctx context.Context, stderr io.Writer) (*session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	env := config.Load()
	target, err := resolvedContext()
	if err != nil {
		return nil, err
	}

	level := logLevel
	if level == "" {
		level = env.LogLevel
		if level == "info" {
			level = "warn"
		}
	}
	logger := logutil.New(stderr, level).With("component", "pwr")
	logutil.SetDefault(logger)

	settings, err := target.Apply(*env)
	if err != nil {
		return nil, err
	}
	storeCfg := storeConfig(settings)

	creds, err := credentials.Open(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	s := &session{creds: creds, logger: logger}

	if storeCfg.Redis.Enabled() {
		client, err := redisx.NewClient(storeCfg.Redis)
		if err != nil {
			logger.Warn("session events stay local", "error", err)
		} else {
			s.redis = client
		}
	}
	s.bus = events.NewBus(events.Options{Client: s.redis, Logger: logger, Channel: settings.EventsChannel})
	s.loginEvents, s.unsubscribe = s.bus.Subscribe(context.Background())

	reg := prometheus.NewRegistry()
	sink := observe.Multi{logutil.NewSink(logger), metrics.NewRecorder(reg)}
	if settings.MetricsAddr != "" {
		s.metrics = &http.Server{
			Addr:              settings.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics listener stopped", "error", err)
			}
		}()
	}

	p, err := pipeline.New(pipeline.Options{
		BaseURL:     settings.BaseURL,
		Timeout:     settings.RequestTimeout,
		Credentials: creds,
		Redirector:  &events.LoginRedirector{Bus: s.bus, LoginURL: settings.LoginURL, Logger: logger},
		Sink:        sink,
		UserAgent:   userAgent,
	})
	if err != nil {
		s.close(io.Discard)
		return nil, err
	}
	streams := stream.New(p, stream.Options{IdleTimeout: settings.StreamIdleTimeout})
	s.client = powerapi.New(p, streams, creds)
	return s, nil
}

// close releases the session and prints a re-login hint when the backend
// forced a logout during the command.
func (s *session) close(stderr io.Writer) {
	hinted := false
drain:
	for {
		select {
		case evt, ok := <-s.loginEvents:
			if !ok {
				break drain
			}
			if evt.Type == events.TypeLoginRequired && !hinted {
				warnColor.Fprintln(stderr, "Your session has expired. Run 'pwr login' to sign in again.")
				hinted = true
			}
		default:
			break drain
		}
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.bus != nil {
		s.bus.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = s.metrics.Shutdown(ctx)
		cancel()
	}
	if err := s.creds.Close(); err != nil {
		s.logger.Warn("close credential store", "error", err)
	}
}

func closeSession(stderr io.Writer) {
	if app == nil {
		return
	}
	app.close(stderr)
	app = nil
}

// withClient opens the session for commands that are not guarded.
func withClient(cmd *cobra.Command) (*powerapi.Client, error) {
	s, err := currentSession(cmd)
	if err != nil {
		return nil, err
	}
	return s.client, nil
}
