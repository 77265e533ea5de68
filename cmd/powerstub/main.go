// Package main runs the in-memory power-service stub backend.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/oremus-labs/ol-power-client/config"
	"github.com/oremus-labs/ol-power-client/internal/devserver"
	"github.com/oremus-labs/ol-power-client/internal/logutil"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 5 * time.Second
)

func main() {
	cfg := config.Load()
	logger := logutil.New(os.Stderr, cfg.LogLevel).With("component", "powerstub")
	logutil.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server := devserver.NewServer(devserver.Options{
		JWTSecret:    cfg.JWTSecret,
		TokenTTL:     cfg.TokenTTL,
		StreamChunks: cfg.StreamChunks,
		ChunkDelay:   150 * time.Millisecond,
		Version:      version,
		Logger:       logger,
		Registry:     reg,
	})

	addr := ":" + cfg.ServerPort
	srv := server.Start(addr)
	logutil.Info("power stub listening", map[string]interface{}{"addr": addr, "version": version})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logutil.Info("shutting down power stub", nil)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logutil.Error("server forced to shutdown", err, nil)
	}
}
