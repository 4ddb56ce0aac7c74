// Package http provides the API server, routing, and HTTP middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditHTTP "github.com/pacharanero/checktick/internal/audit/http"
	keysHTTP "github.com/pacharanero/checktick/internal/keys/http"
	responsesHTTP "github.com/pacharanero/checktick/internal/responses/http"
)

// Server represents the API HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	db     *sql.DB
	logger *slog.Logger
}

// NewServer creates a new API server. The router is attached separately via
// SetupRouter so tests can wire a minimal one.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// RouterConfig carries the routing-level settings of the API server.
type RouterConfig struct {
	CORSEnabled       bool
	CORSAllowOrigins  string
	UnlockRateLimited bool
	UnlockRPS         float64
	UnlockBurst       int
}

// SetupRouter builds the full API router and attaches it to the server.
//
// Every /v1 route sits behind the identity middleware. The unlock route
// additionally carries a per-(user, survey) rate limit since each attempt
// costs a KDF derivation.
func (s *Server) SetupRouter(
	cfg RouterConfig,
	keyHandler *keysHTTP.KeyHandler,
	responseHandler *responsesHTTP.ResponseHandler,
	unlockEventHandler *auditHTTP.UnlockEventHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	v1.Use(keysHTTP.UserIdentityMiddleware(s.logger))

	surveys := v1.Group("/surveys/:id")
	{
		surveys.POST("/keys", keyHandler.ProvisionHandler)
		surveys.POST("/keys/migrate", keyHandler.MigrateHandler)
		surveys.GET("/keys/hint", keyHandler.GetHintHandler)
		surveys.PUT("/keys/:path", keyHandler.RewrapHandler)
		unlockHandlers := []gin.HandlerFunc{keyHandler.UnlockHandler}
		if cfg.UnlockRateLimited {
			unlockHandlers = []gin.HandlerFunc{
				keysHTTP.UnlockRateLimitMiddleware(cfg.UnlockRPS, cfg.UnlockBurst, s.logger),
				keyHandler.UnlockHandler,
			}
		}
		surveys.POST("/unlock", unlockHandlers...)
		surveys.POST("/lock", keyHandler.LockHandler)
		surveys.GET("/unlock-events", unlockEventHandler.ListHandler)

		surveys.POST("/responses/:responseId/fields", responseHandler.WriteFieldHandler)
		surveys.GET("/responses/:responseId", responseHandler.ReadResponseHandler)
	}

	v1.GET("/field-values/:id", responseHandler.ReadFieldHandler)
	v1.DELETE("/responses/:responseId", responseHandler.DeleteResponseHandler)

	s.router = router
	return router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve traffic, checking
// each dependency individually.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}
	ready := true

	if s.db == nil {
		components["database"] = "error"
		ready = false
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("readiness check failed", slog.Any("error", err))
			components["database"] = "error"
			ready = false
		} else {
			components["database"] = "ok"
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}

// GetHandler returns the configured router, or nil if SetupRouter has not
// been called. Used by tests that serve the router through httptest.
func (s *Server) GetHandler() http.Handler {
	if s.router == nil {
		return nil
	}
	return s.router
}

// Start starts the HTTP server. The router must be attached first.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("no router configured")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
