package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/endurank/internal/adapters/cache"
	"github.com/okian/endurank/internal/adapters/http/api"
	"github.com/okian/endurank/internal/adapters/http/site"
	"github.com/okian/endurank/internal/adapters/http/swagger"
	app "github.com/okian/endurank/internal/app"
	"github.com/okian/endurank/internal/config"
	"github.com/okian/endurank/internal/domain/query"
	"github.com/okian/endurank/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr since the logger format is not known yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "endurank stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	opts, closeDeps, err := serviceOptions(cfg, log)
	if err != nil {
		return err
	}
	defer closeDeps()

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, cfg.MaxListingLimit),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// serviceOptions translates configuration into service options. The returned
// func releases clients opened here.
func serviceOptions(cfg *config.Config, log logger.Logger) ([]app.Option, func(), error) {
	opts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDataDir(cfg.DataDir),
		app.WithSimilarityThreshold(cfg.SimilarityThreshold),
		app.WithMaxListingLimit(cfg.MaxListingLimit),
		app.WithRefreshDays(cfg.SyncRefreshDays),
		app.WithSeed(cfg.SeedOnStart),
	}

	sources, err := app.Sources(cfg.SyncSources, cfg.SyncRatePerSec)
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, app.WithSources(sources...))

	if cfg.GazetteerPath != "" {
		g, err := query.LoadGazetteer(cfg.GazetteerPath)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, app.WithGazetteer(g))
	}

	closeDeps := func() {}
	if cfg.RedisAddr != "" {
		prices := cache.NewRedisCache(
			redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}),
			cache.WithTTL(time.Duration(cfg.CacheTTLSeconds)*time.Second),
		)
		opts = append(opts, app.WithPriceCache(prices))
		closeDeps = func() {
			if err := prices.Close(); err != nil {
				log.Warn(context.Background(), "closing price cache", logger.Error(err))
			}
		}
	}
	return opts, closeDeps, nil
}

// newMux registers the business API, the API reference and the docs pages.
func newMux(ctx context.Context, svc *app.Service, maxListingLimit int) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	api.NewServer(svc, svc, maxListingLimit).Register(ctx, mux)
	return mux
}

// startServiceMetricsUpdater refreshes the catalog and queue gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats updates the gauges as a side effect.
			_ = svc.GetStats()
		}
	}
}
