// Package http serves the progression engine as a JSON API. Identity comes
// from the X-User-ID header set by the upstream auth layer.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alem-hub/progress-engine/internal/interface/http/handlers"
	"github.com/alem-hub/progress-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// MaxBodyBytes - maximum size of request bodies.
	MaxBodyBytes int64

	// AllowedOrigins - CORS origins; empty disables CORS.
	AllowedOrigins []string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
		MaxBodyBytes:   1 << 20,
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Service is everything the routes call; *engine.Engine implements it.
type Service interface {
	handlers.ProgressService
	handlers.TaskService
	handlers.QuizService
}

// Dependencies contains all dependencies required by the routes.
type Dependencies struct {
	Service Service
	Health  *handlers.HealthChecker
	Logger  *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(config Config, deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	health := deps.Health
	if health == nil {
		health = handlers.NewHealthChecker("")
	}

	r := gin.New()
	r.Use(handlers.RequestID(log))
	r.Use(handlers.Recovery())
	r.Use(handlers.RequestLogger())
	r.Use(handlers.SecurityHeaders())
	if len(config.AllowedOrigins) > 0 {
		r.Use(handlers.CORS(config.AllowedOrigins))
	}
	if config.MaxBodyBytes > 0 {
		r.Use(handlers.RequestSizeLimit(config.MaxBodyBytes))
	}

	r.GET("/healthz", health.Healthz)

	progressH := handlers.NewProgressHandler(deps.Service)
	taskH := handlers.NewTaskHandler(deps.Service)
	quizH := handlers.NewQuizHandler(deps.Service)

	v1 := r.Group("/v1")
	v1.Use(handlers.RequireUser())
	{
		v1.GET("/progress", progressH.GetProgress)
		v1.POST("/xp", progressH.AddXP)
		v1.POST("/activities", progressH.AwardActivity)

		v1.POST("/tasks", taskH.Register)
		v1.GET("/tasks/pending", taskH.ListPending)
		v1.GET("/tasks/pending/count", taskH.CountPending)
		v1.POST("/tasks/:id/validate", taskH.Validate)
		v1.POST("/tasks/:id/dismiss", taskH.Dismiss)

		v1.POST("/quiz-proposals", quizH.CheckProposal)
		v1.POST("/quiz-preferences/:eventId/do-not-ask", quizH.DoNotAsk)
		v1.POST("/quizzes", quizH.Create)
		v1.GET("/quizzes", quizH.ListResumable)
		v1.GET("/quizzes/:id", quizH.Get)
		v1.POST("/quizzes/:id/answers", quizH.Answer)
		v1.POST("/quizzes/:id/complete", quizH.Complete)
	}

	return r
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server owns the http.Server lifecycle.
type Server struct {
	config     Config
	httpServer *http.Server
	logger     *logger.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server.
func NewServer(config Config, deps Dependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	deps.Logger = log.Named("http")

	return &Server{
		config: config,
		logger: deps.Logger,
		httpServer: &http.Server{
			Addr:           config.Address(),
			Handler:        NewRouter(config, deps),
			ReadTimeout:    config.ReadTimeout,
			WriteTimeout:   config.WriteTimeout,
			IdleTimeout:    config.IdleTimeout,
			MaxHeaderBytes: config.MaxHeaderBytes,
		},
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine. The channel yields at most
// one error and is closed when the server stops.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning reports whether Start was called and Shutdown was not.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns how long the server has been running.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}
