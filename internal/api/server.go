// Package api exposes the orchestration core over HTTP. The routes mirror
// the JSON surface the web UI consumes; all real logic lives in the
// packages behind it.
package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/gmsas95/playground/internal/actions"
	"github.com/gmsas95/playground/internal/config"
	"github.com/gmsas95/playground/internal/history"
	"github.com/gmsas95/playground/internal/metrics"
	"github.com/gmsas95/playground/internal/orchestrator"
	"github.com/gmsas95/playground/internal/store"
)

// Server handles the HTTP API.
type Server struct {
	app      *fiber.App
	config   *config.Config
	orch     *orchestrator.Orchestrator
	history  *history.Store
	registry *actions.Registry
	executor *actions.Executor
	store    *store.Store
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// New creates the API server around an already-wired orchestrator.
func New(
	cfg *config.Config,
	orch *orchestrator.Orchestrator,
	hist *history.Store,
	registry *actions.Registry,
	executor *actions.Executor,
	st *store.Store,
	m *metrics.Metrics,
	log *zap.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	s := &Server{
		app:      app,
		config:   cfg,
		orch:     orch,
		history:  hist,
		registry: registry,
		executor: executor,
		store:    st,
		metrics:  m,
		logger:   log,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.config.Security.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	s.app.Get("/api/health", s.handleHealth)
	s.app.Post("/api/auth/login", s.handleLogin)

	api := s.app.Group("/api", s.authMiddleware())

	api.Post("/generate", s.rateLimitMiddleware(), s.handleGenerate)
	api.Post("/stream", s.rateLimitMiddleware(), s.handleStream)

	api.Get("/actions", s.handleListActions)
	api.Post("/execute_actions", s.handleExecuteActions)

	api.Get("/history", s.handleGetHistory)
	api.Post("/history/clear", s.handleClearHistory)

	api.Get("/models", s.handleListModels)

	api.Get("/settings", s.handleGetSettings)
	api.Post("/settings", s.handleUpdateSettings)

	api.Post("/evaluate", s.rateLimitMiddleware(), s.handleEvaluate)
	api.Get("/evaluations", s.handleListEvaluations)

	api.Get("/metrics", s.handleMetrics)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	s.logger.Info("Starting API server", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}
