// Package api provides the HTTP API server for Lixiv.
// It uses Echo framework to serve REST endpoints for kinds, nodes and edges,
// and a WebSocket stream of graph changes.
//
// The server owns the in-memory kind catalog. Every request that reads or
// changes it goes through the server's lock, so handlers never touch a
// registry concurrently.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"evalgo.org/lixiv/internal/auth"
	"evalgo.org/lixiv/internal/config"
	"evalgo.org/lixiv/internal/kind"
	"evalgo.org/lixiv/internal/storage"
	"evalgo.org/lixiv/internal/validation"
	"evalgo.org/lixiv/internal/version"
)

// Server represents the Lixiv API server.
type Server struct {
	echo    *echo.Echo
	storage *storage.Storage
	config  *config.Config
	logger  *zap.Logger
	wsHub   *Hub // WebSocket hub for real-time updates
	auth    *auth.Middleware

	mu        sync.RWMutex
	registry  *kind.Registry
	validator *validation.Validator
}

// New creates a new API server instance serving reg and store.
func New(cfg *config.Config, store *storage.Storage, reg *kind.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Server.Debug

	// Set custom error handler
	e.HTTPErrorHandler = HTTPErrorHandler

	hub := NewHub(logger)

	server := &Server{
		echo:    e,
		storage: store,
		config:  cfg,
		logger:  logger,
		wsHub:   hub,
		auth:    auth.NewMiddleware(cfg),
	}
	server.setRegistry(reg)

	// Start WebSocket hub in background
	go hub.Run()

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info("Request",
				zap.Int("status", v.Status),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID))
			return nil
		},
	}))

	s.echo.Use(middleware.Recover())
	s.echo.Use(SecurityHeaders)

	if len(s.config.Security.AllowedOrigins) > 0 {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.config.Security.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "If-None-Match", echo.HeaderAuthorization},
		}))
	}

	s.echo.Use(middleware.RequestID())

	if s.config.Security.RateLimit > 0 {
		s.echo.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
			rate.Limit(s.config.Security.RateLimit),
		)))
	}

	s.echo.Use(ValidateContentType)
	s.echo.Use(ValidateAcceptHeader)
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/", s.healthCheck)

	v1 := s.echo.Group("/api/v1", s.auth.RequireAuth)
	write := s.auth.RequireWrite

	kinds := v1.Group("/kinds")
	kinds.Use(ValidateQueryParams)
	kinds.GET("", s.listKinds)
	kinds.GET("/:title", s.getKind, ValidateKindTitle)
	kinds.POST("", s.createKind, write)
	kinds.DELETE("/:title", s.deleteKind, write, ValidateKindTitle)

	nodes := v1.Group("/nodes")
	nodes.Use(ValidateQueryParams)
	nodes.GET("", s.listNodes)
	nodes.GET("/:id", s.getNode, ValidateIDFormat)
	nodes.POST("", s.createNode, write)
	nodes.DELETE("/:id", s.deleteNode, write, ValidateIDFormat)

	edges := v1.Group("/edges")
	edges.Use(ValidateQueryParams)
	edges.GET("", s.listEdges)
	edges.GET("/:id", s.getEdge, ValidateIDFormat)
	edges.POST("", s.createEdge, write)
	edges.DELETE("/:id", s.deleteEdge, write, ValidateIDFormat)

	v1.POST("/validate", s.validateNode)

	graph := v1.Group("/graph")
	graph.GET("", s.GetGraphData)
	graph.GET("/stats", s.GetGraphStats)
	graph.GET("/jsonld", s.GetGraphJSONLD)

	ws := v1.Group("/ws")
	ws.GET("/graph", s.HandleWebSocket)
	ws.GET("/stats", s.GetWebSocketStats)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.logger.Info("Starting Lixiv API server",
		zap.String("address", addr),
		zap.String("driver", s.storage.Driver().String()),
		zap.Int("kinds", s.kindCount()),
		zap.Bool("debug", s.config.Server.Debug))

	s.echo.Server.ReadTimeout = s.config.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.WriteTimeout

	if s.config.Server.TLSEnabled {
		return s.echo.StartTLS(addr, s.config.Server.TLSCert, s.config.Server.TLSKey)
	}

	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down Lixiv API server")

	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	s.wsHub.Stop()

	if err := s.storage.Close(); err != nil {
		return fmt.Errorf("error closing storage: %w", err)
	}

	s.logger.Info("Server shutdown complete")
	return nil
}

// healthCheck handles health check requests.
func (s *Server) healthCheck(c echo.Context) error {
	ctx := c.Request().Context()

	if err := s.storage.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   "database connection failed",
			"details": err.Error(),
		})
	}

	nodes, err := s.storage.CountNodes(ctx)
	if err != nil {
		return InternalError("Failed to count nodes", err.Error())
	}
	edges, err := s.storage.CountEdges(ctx)
	if err != nil {
		return InternalError("Failed to count edges", err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"service":  "lixiv",
		"version":  version.Version,
		"database": s.storage.Driver().String(),
		"counts": map[string]int{
			"kinds": s.kindCount(),
			"nodes": nodes,
			"edges": edges,
		},
	})
}

// setRegistry swaps the catalog and its validator.
func (s *Server) setRegistry(reg *kind.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = reg
	s.validator = validation.New(reg)
}

// loadRegistry builds a fresh catalog from storage.
func (s *Server) loadRegistry(ctx context.Context) (*kind.Registry, error) {
	var opts []kind.Option
	if s.config.Catalog.InheritFields {
		opts = append(opts, kind.WithInheritedFields())
	}
	return s.storage.LoadRegistry(ctx, opts...)
}

func (s *Server) kindCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Len()
}

// BroadcastGraphEvent broadcasts a graph event to all WebSocket clients
func (s *Server) BroadcastGraphEvent(eventType GraphEventType, data interface{}) {
	event := GraphEvent{
		Type: eventType,
		Data: data,
	}
	if err := s.wsHub.BroadcastEvent(event); err != nil {
		s.logger.Error("Failed to broadcast event",
			zap.String("type", string(eventType)),
			zap.Error(err))
		return
	}
	s.logger.Debug("Broadcast graph event",
		zap.String("type", string(eventType)),
		zap.Int("clients", s.wsHub.ClientCount()))
}

// ServeHTTP allows Server to implement http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
