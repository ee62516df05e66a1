// Package api exposes the screening engine over HTTP: a check endpoint for
// the documentation client, a rules listing for the hint panel, and a
// websocket stream pushing results per render cycle.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/redflag-advisory-server/internal/domain"
	"github.com/redflag-advisory-server/internal/middleware"
	"github.com/redflag-advisory-server/internal/modelflag"
	"github.com/redflag-advisory-server/internal/service"
)

// Server represents the HTTP server
type Server struct {
	cfg      *domain.Config
	checker  *service.Checker
	provider modelflag.Provider
	hub      *Hub
	router   *gin.Engine
	server   *http.Server
	logger   *logrus.Logger
}

// NewServer creates a new HTTP server instance. provider may be nil, checks
// then run without model flags and report degraded results.
func NewServer(cfg *domain.Config, checker *service.Checker, provider modelflag.Provider, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())

	s := &Server{
		cfg:      cfg,
		checker:  checker,
		provider: provider,
		hub:      NewHub(logger),
		router:   router,
		logger:   logger,
	}

	s.setupRoutes()
	return s
}

// Start starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.WithField("addr", addr).Info("HTTP server started")

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/v1")
	{
		v1.POST("/check", s.handleCheck)
		v1.GET("/rules", s.handleListRules)
		v1.GET("/stream", s.handleStream)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	report := s.checker.LoadReport()
	status := "healthy"
	if report != nil && report.Degraded() {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"rules":     s.checker.Catalogue().Len(),
		"timestamp": time.Now().UTC(),
	})
}
