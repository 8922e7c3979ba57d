// Command sync-races pulls the configured race calendars into the badger
// catalog once and exits. It uses the same configuration as the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/endurank/internal/adapters/repository"
	app "github.com/okian/endurank/internal/app"
	"github.com/okian/endurank/internal/config"
	"github.com/okian/endurank/internal/racesync"
	"github.com/okian/endurank/pkg/logger"
)

const sourceTimeout = time.Minute

// errNoDataDir is returned when the catalog would only live in memory.
var errNoDataDir = errors.New("data_dir is required")

func main() {
	seedOnly := flag.Bool("seed", false, "load the bundled seed calendar instead of the configured sources")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	log := logger.Get()

	results, err := syncOnce(ctx, cfg, *seedOnly, log)
	if err != nil {
		log.Error(ctx, "sync failed", logger.Error(err))
		os.Exit(1)
	}
	if failed(results) {
		os.Exit(2)
	}
}

// syncOnce opens the catalog under cfg.DataDir and applies every source.
func syncOnce(ctx context.Context, cfg *config.Config, seedOnly bool, log logger.Logger) ([]racesync.Result, error) {
	if cfg.DataDir == "" {
		return nil, errNoDataDir
	}

	sources, err := app.Sources(cfg.SyncSources, cfg.SyncRatePerSec)
	if err != nil {
		return nil, err
	}
	if seedOnly || len(sources) == 0 {
		seed, err := racesync.SeedSource()
		if err != nil {
			return nil, err
		}
		sources = []racesync.Source{seed}
	}

	store, err := repository.NewBadgerStore(
		repository.WithDir(cfg.DataDir),
		repository.WithLogger(log.Named("badger")),
	)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn(ctx, "closing store", logger.Error(err))
		}
	}()

	syncer := racesync.NewSyncer(store,
		racesync.WithRefreshDays(cfg.SyncRefreshDays),
		racesync.WithSourceTimeout(sourceTimeout),
		racesync.WithLogger(log.Named("racesync")),
	)
	results := syncer.Run(ctx, sources...)

	var added, updated, errs int
	for _, res := range results {
		added += res.Added
		updated += res.Updated
		errs += len(res.Errors)
	}
	log.Info(ctx, "sync finished",
		logger.Int("sources", len(results)),
		logger.Int("added", added),
		logger.Int("updated", updated),
		logger.Int("errors", errs),
	)
	return results, nil
}

// failed reports whether some source produced errors and nothing was applied.
func failed(results []racesync.Result) bool {
	applied, errs := 0, 0
	for _, res := range results {
		applied += res.Added + res.Updated + res.Skipped
		errs += len(res.Errors)
	}
	return errs > 0 && applied == 0
}
