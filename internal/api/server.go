// Package api implements the REST surface of the Dashboard (C6): five
// read-only endpoints over the Memory Store and Ingestion Hub state.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
)

// Server is the gin-backed HTTP server exposing the REST endpoints.
type Server struct {
	router *gin.Engine
	server *http.Server
	logger *pterm.Logger
}

// Config holds REST server configuration.
type Config struct {
	Host       string
	Port       int
	Production bool
}

// NewServer builds the REST server with CORS enabled for dashboard
// clients, per spec.md §6's "any-origin GET/POST/OPTIONS" requirement.
func NewServer(cfg Config, h *Handlers, logger *pterm.Logger) *Server {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/api/servers", h.GetServers)
	router.GET("/api/errors", h.GetErrors)
	router.GET("/api/stats", h.GetStats)
	router.GET("/api/insights", h.GetInsights)
	router.GET("/api/health", h.GetHealth)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		router: router,
		server: &http.Server{
			Addr:           addr,
			Handler:        router,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		logger: logger,
	}
}

// Run starts the REST server, blocking until it stops or errors.
func (s *Server) Run() error {
	s.logger.Info("starting REST server", s.logger.Args("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.WithCaller().Error("REST server failed", s.logger.Args("error", err))
		return err
	}
	return nil
}

// Shutdown gracefully stops the REST server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down REST server")
	return s.server.Shutdown(ctx)
}

// corsMiddleware allows any origin to GET/POST the REST endpoints,
// matching spec.md §6's dashboard-is-a-separate-origin assumption.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}
