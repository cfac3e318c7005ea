// Package server exposes the advisory service over HTTP with gin.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"plantprofit/internal/config"
	"plantprofit/internal/logging"
	"plantprofit/internal/metrics"
	"plantprofit/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Server routes HTTP requests to a Service.
type Server struct {
	cfg     config.ServerConfig
	svc     *service.Service
	metrics *metrics.Metrics
	router  *gin.Engine
}

// New builds the router. The gin mode comes from cfg.Mode.
func New(cfg config.ServerConfig, svc *service.Service, m *metrics.Metrics) *Server {
	switch cfg.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(cfg.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{cfg: cfg, svc: svc, metrics: m, router: gin.New()}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(recoveryMiddleware())
	s.router.Use(requestIDMiddleware())
	s.router.Use(accessLogMiddleware())
	s.router.Use(corsMiddleware(s.cfg.AllowOrigins))
	s.router.Use(s.metrics.Middleware())
}

// setupRoutes serves every route at the root and under /api; the AI routes
// are also reachable under /api/ai.
func (s *Server) setupRoutes() {
	s.router.GET("/metrics", s.metrics.Handler())

	s.registerRoutes(&s.router.RouterGroup)
	s.registerRoutes(s.router.Group("/api"))
	s.registerAIRoutes(s.router.Group("/api/ai"))
}

func (s *Server) registerRoutes(rg *gin.RouterGroup) {
	s.registerAIRoutes(rg)
	rg.POST("/farm-model", s.farmModel)
	rg.POST("/optimize", s.optimize)
	rg.POST("/projections", s.projections)
	rg.POST("/carbon-credits", s.carbonCredits)
	rg.GET("/usda", s.usdaProxy)
	rg.GET("/weather", s.weather)
	rg.GET("/crops", s.crops)
	rg.GET("/health", s.health)
}

func (s *Server) registerAIRoutes(rg *gin.RouterGroup) {
	rg.POST("/ingest", s.ingest)
	rg.POST("/query", s.query)
}

// Run listens on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Infof("server", "listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.Infof("server", "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
