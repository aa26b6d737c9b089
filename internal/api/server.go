package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/scanner"
	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/universe"
)

// RateLimiter provides simple in-memory rate limiting per endpoint.
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	// Filter out old requests
	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// HealthChecker reports whether a backing component is reachable.
type HealthChecker interface {
	IsHealthy() bool
}

// Server represents the HTTP API server.
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	scanner     *scanner.Scanner
	universe    *universe.Universe
	config      ServerConfig
	logger      zerolog.Logger
	rateLimiter *RateLimiter // protects vendor API quota
	cacheHealth HealthChecker
	startedAt   time.Time
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port            int
	Host            string
	AllowedOrigins  []string
	ProductionMode  bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RateLimit       int // requests per window per endpoint, 0 disables
	RateWindow      time.Duration
	ProviderName    string
	ShutdownTimeout time.Duration
}

// NewServer creates a new API server.
func NewServer(config ServerConfig, scn *scanner.Scanner, uni *universe.Universe, cacheHealth HealthChecker, logger zerolog.Logger) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	if len(config.AllowedOrigins) == 1 && config.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = config.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		scanner:     scn,
		universe:    uni,
		config:      config,
		logger:      logger.With().Str("component", "api").Logger(),
		cacheHealth: cacheHealth,
		startedAt:   time.Now(),
	}
	if config.RateLimit > 0 {
		window := config.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		server.rateLimiter = NewRateLimiter(config.RateLimit, window)
	}

	server.setupRoutes()

	return server
}

// rateLimitMiddleware creates a middleware that rate limits requests by endpoint.
// Scan requests can fan out into many vendor calls, so the limit guards the
// vendor quota as much as the server itself.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.rateLimiter == nil {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		if !s.rateLimiter.Allow(path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests to this endpoint. Please slow down.",
				"path":    path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleRoot)
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api")
	api.Use(s.rateLimitMiddleware())
	{
		api.GET("/assets", s.handleGetAssets)
		api.GET("/scan/:asset", s.handleScanAsset)
	}

	s.router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "API endpoint not found",
				"path":    c.Request.URL.Path,
				"method":  c.Request.Method,
				"message": "This API endpoint does not exist. Check your request path and HTTP method.",
			})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Router exposes the gin engine, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}
