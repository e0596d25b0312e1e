// file: internal/server/server.go
// version: 2.1.0
// guid: 4c5d6e7f-8a9b-0c1d-2e3f-4a5b6c7d8e9f

package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/hardcover-provider/internal/cache"
	"github.com/jdfalk/hardcover-provider/internal/metadata"
	"github.com/jdfalk/hardcover-provider/internal/metrics"
	"github.com/jdfalk/hardcover-provider/internal/search"
	"github.com/jdfalk/hardcover-provider/internal/server/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version is reported by the health endpoint.
var Version = "dev"

// Searcher answers one search request.
type Searcher interface {
	Search(ctx context.Context, identity string, q metadata.Query) (search.Result, error)
}

// Dependencies are the collaborators the HTTP surface reports on or delegates to.
// Only Searcher is required.
type Dependencies struct {
	Searcher Searcher
	Cache    interface{ Stats() (cache.Stats, error) }
	Pool     interface{ Len() int }
	Limiter  interface{ Identities() int }
}

// Options tunes request handling.
type Options struct {
	// APIKeyHashes are bcrypt hashes of accepted caller keys. Empty accepts any key.
	APIKeyHashes []string
	// TrustedProxies lists the proxy addresses or CIDRs allowed to set X-Forwarded-For.
	// Empty identifies every caller by its peer address.
	TrustedProxies []string
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	deps       Dependencies
	opts       Options
	startedAt  time.Time
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new server instance
func NewServer(deps Dependencies, opts Options) *Server {
	router := gin.New()
	router.RemoteIPHeaders = []string{"X-Forwarded-For"}
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		log.Printf("[ERROR] Invalid trusted proxies %v, identifying callers by peer address: %v", opts.TrustedProxies, err)
		_ = router.SetTrustedProxies(nil)
	}

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	// Register metrics (idempotent)
	metrics.Register()

	server := &Server{
		router:    router,
		deps:      deps,
		opts:      opts,
		startedAt: time.Now(),
	}

	server.setupRoutes()

	return server
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until SIGINT or SIGTERM, then drains outstanding requests.
func (s *Server) Start(cfg ServerConfig) error {
	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}

	log.Println("[INFO] Shutting down server...")

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("[INFO] Server exited")
	return nil
}

// setupRoutes configures all the routes
func (s *Server) setupRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/")
	api.Use(middleware.RequireAPIKey(middleware.NewAPIKeyVerifier(s.opts.APIKeyHashes)))
	{
		api.GET("/search", s.searchBooks)
		api.GET("/:lang/search", s.searchBooks)
		api.GET("/:lang/:type/search", s.searchBooks)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	var alloc runtime.MemStats
	runtime.ReadMemStats(&alloc)
	metrics.SetMemoryAlloc(alloc.Alloc)
	metrics.SetGoroutines(runtime.NumGoroutine())

	resp := gin.H{
		"status":         "ok",
		"timestamp":      time.Now().Unix(),
		"version":        Version,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	}
	if s.deps.Cache != nil {
		if stats, err := s.deps.Cache.Stats(); err == nil {
			resp["cache"] = stats
		} else {
			resp["partial_error"] = err.Error()
		}
	}
	if s.deps.Pool != nil {
		resp["credentials"] = s.deps.Pool.Len()
	}
	if s.deps.Limiter != nil {
		resp["rate_limited_identities"] = s.deps.Limiter.Identities()
	}
	c.JSON(http.StatusOK, resp)
}
