// Package devserver is an in-memory stand-in for the power-service backend.
// It speaks the same envelope, bearer and event-stream contracts as the real
// service and backs local development and end-to-end tests.
package devserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures the stub backend.
type Options struct {
	JWTSecret    string
	TokenTTL     time.Duration
	StreamChunks int
	// ChunkDelay paces chat stream chunks.
	ChunkDelay time.Duration
	Version    string
	Logger     *slog.Logger
	// Registry receives the server metrics. A private registry is used when nil.
	Registry *prometheus.Registry
}

// Server wraps the Gin engine and the in-memory data set.
type Server struct {
	engine     *gin.Engine
	data       *dataset
	tokens     *tokenIssuer
	metrics    *serverMetrics
	logger     *slog.Logger
	version    string
	chunks     int
	chunkDelay time.Duration
}

// NewServer constructs a Server with all HTTP routes configured.
func NewServer(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	secret := opts.JWTSecret
	if secret == "" {
		secret = "power-stub-secret"
	}
	version := opts.Version
	if version == "" {
		version = "1.0.0"
	}
	chunks := opts.StreamChunks
	if chunks <= 0 {
		chunks = 4
	}

	s := &Server{
		data:       newDataset(),
		tokens:     newTokenIssuer(secret, opts.TokenTTL),
		metrics:    newServerMetrics(reg),
		logger:     logger,
		version:    version,
		chunks:     chunks,
		chunkDelay: opts.ChunkDelay,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestIDMiddleware(), metricsMiddleware(s.metrics), requestLogger(logger))

	engine.GET("/healthz", s.health)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	engine.GET("/openapi", s.openAPIJSON)
	engine.GET("/openapi.yaml", s.openAPIYAML)

	auth := engine.Group("/api/auth")
	auth.POST("/login", s.login)
	auth.POST("/face-login", s.faceLogin)
	auth.POST("/face_login", s.faceLogin)
	auth.POST("/register-face/:user", s.registerFace)
	auth.GET("/check-face-registered/:user", s.checkFaceRegistered)

	engine.GET("/api/chat/health", s.chatHealth)

	protected := engine.Group("/api")
	protected.Use(authMiddleware(s.tokens))

	protected.POST("/chat", s.chat)
	protected.GET("/chat/stream", s.streamChat)
	protected.POST("/chat/send", s.sendMessage)
	protected.GET("/chat/history/:sessionId", s.chatHistory)

	protected.GET("/services", s.listServices)
	protected.GET("/services/monitor", s.electricity)
	protected.GET("/services/:id", s.getService)
	protected.GET("/monitor/electricity", s.electricity)
	protected.POST("/monitor/update-electricity", s.updateElectricity)
	protected.GET("/monitor/system-status", s.systemStatus)

	protected.GET("/users", s.listUsers)
	protected.GET("/users/username/:username", s.userByName)
	protected.GET("/users/:id", s.getUser)
	protected.PUT("/users/:id", s.updateUser)
	protected.DELETE("/users/:id", s.deleteUser)

	protected.GET("/knowledge-base", s.listKnowledge)
	protected.GET("/knowledge-base/popular", s.popularKnowledge)
	protected.GET("/knowledge-base/service-type/:id", s.knowledgeByServiceType)
	protected.GET("/service-types", s.listServices)

	s.engine = engine
	return s
}

// Engine exposes the underlying Gin engine for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start launches the HTTP server on addr.
func (s *Server) Start(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("stub server stopped", "error", err)
		}
	}()
	return srv
}
