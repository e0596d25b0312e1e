// file: cmd/serve.go
// version: 1.1.0
// guid: 2d4f6a8c-1e3b-4d5f-8a7c-9e1b3d5f7a9c

package cmd

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/jdfalk/hardcover-provider/internal/cache"
	"github.com/jdfalk/hardcover-provider/internal/clock"
	"github.com/jdfalk/hardcover-provider/internal/config"
	"github.com/jdfalk/hardcover-provider/internal/credentials"
	"github.com/jdfalk/hardcover-provider/internal/metadata"
	"github.com/jdfalk/hardcover-provider/internal/ratelimit"
	"github.com/jdfalk/hardcover-provider/internal/scheduler"
	"github.com/jdfalk/hardcover-provider/internal/search"
	"github.com/jdfalk/hardcover-provider/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the search provider",
	Long:  `Start the HTTP server answering /search, /:lang/search and /:lang/:type/search.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.AppConfig
		minter := credentials.NewHTTPMinter(cfg.Credentials.MintURL, cfg.Hardcover.UserAgent, cfg.Credentials.MintTimeout)

		app, err := newApplication(cmd.Context(), cfg, minter, clock.Real{})
		if err != nil {
			return err
		}
		defer app.Close()

		app.scheduler.Start()
		log.Printf("[INFO] Serving Hardcover searches (cache=%s, limit=%d per %s, %d credentials)",
			cfg.Cache.Backend, cfg.RateLimit.Limit, cfg.RateLimit.Window, app.pool.Len())

		return app.server.Start(serverConfig(cfg.Server))
	},
}

func init() {
	serveCmd.Flags().Int("port", 7790, "port to run the server on")
	serveCmd.Flags().String("host", "0.0.0.0", "host to bind the server to")
	serveCmd.Flags().Duration("read-timeout", 0, "read timeout (e.g. 15s, 1m)")
	serveCmd.Flags().Duration("write-timeout", 0, "write timeout (e.g. 90s, 2m)")
	serveCmd.Flags().Int("rate-limit", 15, "uncached searches allowed per caller per window")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("ratelimit.limit", serveCmd.Flags().Lookup("rate-limit"))
	// Zero durations keep the configured values.
	serveCmd.PreRun = func(cmd *cobra.Command, args []string) {
		if d, _ := cmd.Flags().GetDuration("read-timeout"); d > 0 {
			config.AppConfig.Server.ReadTimeout = d
		}
		if d, _ := cmd.Flags().GetDuration("write-timeout"); d > 0 {
			config.AppConfig.Server.WriteTimeout = d
		}
	}
}

// application holds every long-lived component of a running provider.
type application struct {
	cache     *cache.TieredCache
	limiter   *ratelimit.SlidingWindowLimiter
	pool      *credentials.Pool
	service   *search.Service
	scheduler *scheduler.Scheduler
	server    *server.Server
}

// newApplication wires the cache, limiter, credential pool, Hardcover client and
// HTTP server from cfg. A failed bootstrap mint is logged and the server still starts.
func newApplication(ctx context.Context, cfg config.Config, minter credentials.Minter, clk clock.Clock) (*application, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	tiered, err := openCache(cfg, clk)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewSlidingWindowLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window, clk)

	pool := credentials.NewPool(minter, credentials.NewFileStore(cfg.Credentials.File), credentials.Options{
		Cap:         cfg.Credentials.Cap,
		Validity:    cfg.Credentials.Validity,
		ResetWindow: cfg.Credentials.ResetWindow,
		MintTimeout: cfg.Credentials.MintTimeout,
		Clock:       clk,
	})
	if err := pool.Bootstrap(ctx); err != nil {
		log.Printf("[WARN] Credential bootstrap failed, continuing with %d credentials: %v", pool.Len(), err)
	}

	client := metadata.NewHardcoverClient(metadata.HardcoverOptions{
		SearchURL:         cfg.Hardcover.SearchURL,
		SearchKey:         cfg.Hardcover.SearchKey,
		GraphQLURL:        cfg.Hardcover.GraphQLURL,
		UserAgent:         cfg.Hardcover.UserAgent,
		Timeout:           cfg.Hardcover.Timeout,
		RequestsPerMinute: cfg.Hardcover.RequestsPerMinute,
	})
	service := search.NewService(tiered, limiter, pool, client)

	sched := scheduler.NewScheduler()
	if err := sched.Add("ratelimit-reclaim", cfg.RateLimit.ReclaimSchedule, scheduler.ReclaimJob(limiter)); err != nil {
		_ = tiered.Close()
		return nil, fmt.Errorf("failed to schedule rate limit reclaim: %w", err)
	}

	srv := server.NewServer(server.Dependencies{
		Searcher: service,
		Cache:    tiered,
		Pool:     pool,
		Limiter:  limiter,
	}, server.Options{
		APIKeyHashes:   cfg.Auth.APIKeyHashes,
		TrustedProxies: cfg.Server.TrustedProxies,
	})

	return &application{
		cache:     tiered,
		limiter:   limiter,
		pool:      pool,
		service:   service,
		scheduler: sched,
		server:    srv,
	}, nil
}

// Close stops the scheduler and releases the cache backend.
func (a *application) Close() {
	a.scheduler.Stop()
	if err := a.cache.Close(); err != nil {
		log.Printf("[WARN] Failed to close cache: %v", err)
	}
}

func openCache(cfg config.Config, clk clock.Clock) (*cache.TieredCache, error) {
	blobs, err := cache.OpenBlobStore(cfg.Cache.Backend, cfg.Cache.Dir, cfg.EnableSQLite, clk)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return cache.New(cfg.Cache.MemoryLimit, blobs, cfg.Cache.FileLimit), nil
}

func serverConfig(s config.ServerConfig) server.ServerConfig {
	return server.ServerConfig{
		Port:            strconv.Itoa(s.Port),
		Host:            s.Host,
		ReadTimeout:     s.ReadTimeout,
		WriteTimeout:    s.WriteTimeout,
		IdleTimeout:     s.IdleTimeout,
		ShutdownTimeout: s.ShutdownTimeout,
	}
}
