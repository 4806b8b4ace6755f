// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kkin1995/healthkit/internal/api"
	"github.com/kkin1995/healthkit/internal/cache"
	"github.com/kkin1995/healthkit/internal/config"
	"github.com/kkin1995/healthkit/internal/daemon"
	"github.com/kkin1995/healthkit/internal/dedup"
	"github.com/kkin1995/healthkit/internal/health"
	"github.com/kkin1995/healthkit/internal/jobs"
	hklog "github.com/kkin1995/healthkit/internal/log"
	"github.com/kkin1995/healthkit/internal/store"
	"github.com/kkin1995/healthkit/internal/telemetry"
	"github.com/kkin1995/healthkit/internal/watch"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until config is loaded
	hklog.Configure(hklog.Config{
		Level:   "info",
		Service: "healthkit",
		Version: version,
	})

	logger := hklog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config path: explicit via --config, otherwise auto-load
	// ${HK_DATA_DIR}/config.yaml when present.
	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(config.ParseString("HK_DATA_DIR", "./data"))
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectiveConfigPath = autoPath
		}
	}

	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	// Re-configure logger with loaded configuration
	hklog.Configure(hklog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})

	if effectiveConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	serverCfg := config.ParseServerConfig()
	// config.yaml may set the listen address, ENV stays highest priority.
	if strings.TrimSpace(os.Getenv("HK_LISTEN")) == "" && strings.TrimSpace(cfg.APIListenAddr) != "" {
		serverCfg.ListenAddr = cfg.APIListenAddr
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", serverCfg.ListenAddr).
		Msg("starting healthkitd")

	logger.Info().Msgf("→ Export: %s", cfg.ExportPath)
	logger.Info().Msgf("→ Database: %s", cfg.DBPath)
	logger.Info().Msgf("→ Reports: %s", cfg.ReportDir)
	logger.Info().Msgf("→ Dedup: %s", cfg.DedupBackend)
	if cfg.APIToken != "" {
		logger.Info().Msg("→ API token: configured")
	} else {
		logger.Warn().
			Str("security", "weak").
			Msg("→ API token: NOT configured (Auth Disabled). Set HK_API_TOKEN for security.")
	}

	telemetryProvider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: version,
		Environment:    cfg.TracingEnvironment,
		Endpoint:       cfg.TracingEndpoint,
		SamplingRate:   cfg.TracingSampling,
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "telemetry.init.failed").
			Msg("failed to initialize telemetry")
	}

	st, err := store.New(ctx, cfg.DBPath, store.DefaultConfig())
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "store.open.failed").
			Str("db_path", cfg.DBPath).
			Msg("failed to open store")
	}

	index, err := dedup.New(cfg.DedupBackend, cfg.DedupDir)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "dedup.open.failed").
			Str("backend", cfg.DedupBackend).
			Msg("failed to open dedup index")
	}

	var queryCache cache.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, hklog.WithComponent("cache"))
		if err != nil {
			logger.Fatal().
				Err(err).
				Str("event", "cache.connect.failed").
				Str("addr", cfg.RedisAddr).
				Msg("failed to connect to Redis")
		}
		queryCache = redisCache
		logger.Info().Msgf("→ Cache: redis (%s)", cfg.RedisAddr)
	} else {
		queryCache = cache.NewMemoryCache(time.Minute)
		logger.Info().Msg("→ Cache: in-memory")
	}

	importCfg := jobs.Config{
		ExportPath:     cfg.ExportPath,
		ReportDir:      cfg.ReportDir,
		MaxExportBytes: cfg.MaxExportBytes,
	}
	importDeps := jobs.Deps{Store: st, Index: index}
	importFn := func(ctx context.Context) (*jobs.Status, error) {
		return jobs.Import(ctx, importCfg, importDeps)
	}

	hm := health.NewManager(version)
	hm.RegisterChecker(health.NewStoreChecker(st))
	hm.RegisterChecker(health.NewExportFileChecker(cfg.ExportPath))

	srv := api.NewServer(api.Config{
		Token:          cfg.APIToken,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPM:   cfg.RateLimitRPM,
		CacheTTL:       cfg.CacheTTL,
		TracingService: tracingService(cfg),
		Version:        version,
	}, st, queryCache, hm, importFn)

	hm.RegisterChecker(health.NewLastImportChecker(srv.LastImport))

	// Seed last-import status from the bookkeeping table so restarts do
	// not blank /api/status.
	if last, err := st.LastImport(ctx); err == nil && last != nil {
		status := jobs.Status{
			ID:         last.ID,
			LastRun:    last.StartedAt,
			Records:    last.Records,
			Workouts:   last.Workouts,
			Duplicates: last.Duplicates,
			Skipped:    last.Skipped,
			Error:      last.Error,
		}
		srv.SetStatus(status)
	}

	// Initial import on startup, disable with HK_INITIAL_IMPORT=false.
	if config.ParseBool("HK_INITIAL_IMPORT", true) {
		if _, err := os.Stat(cfg.ExportPath); err == nil {
			logger.Info().Msg("performing initial import on startup")
			if status, err := importFn(ctx); err != nil {
				logger.Error().Err(err).Msg("initial import failed")
				logger.Warn().Msg("→ Data will be empty until import via POST /api/import")
			} else {
				srv.SetStatus(*status)
				queryCache.Clear()
			}
		} else {
			logger.Info().
				Str("export_path", cfg.ExportPath).
				Msg("no export file present, skipping initial import")
		}
	}

	var exportWatcher *watch.Watcher
	if cfg.WatchEnabled {
		exportWatcher, err = watch.New(watch.Config{
			ExportPath: cfg.ExportPath,
			Debounce:   cfg.WatchDebounce,
		}, func(ctx context.Context) {
			status, err := importFn(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("watch-triggered import failed")
				return
			}
			srv.SetStatus(*status)
			queryCache.Clear()
		})
		if err != nil {
			logger.Fatal().
				Err(err).
				Str("event", "watch.init.failed").
				Msg("failed to create export watcher")
		}
		if err := exportWatcher.Start(ctx); err != nil {
			logger.Fatal().
				Err(err).
				Str("event", "watch.start.failed").
				Msg("failed to start export watcher")
		}
	}

	// Hot reload of config.yaml. Listeners only pick up the tunables that
	// are safe to change at runtime.
	cfgHolder := config.NewConfigHolder(cfg, config.NewLoader(effectiveConfigPath, version), effectiveConfigPath)
	if err := cfgHolder.StartWatcher(ctx); err != nil {
		logger.Warn().
			Err(err).
			Str("event", "config.watch.failed").
			Msg("config hot reload disabled")
	}

	// SIGHUP also triggers a reload.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Info().Str("event", "config.reload.signal").Msg("SIGHUP received")
				if err := cfgHolder.Reload(ctx); err != nil {
					logger.Error().Err(err).Msg("config reload failed, keeping previous configuration")
				}
			}
		}
	}()

	metricsAddr := ""
	if cfg.MetricsEnabled {
		metricsAddr = strings.TrimSpace(cfg.MetricsAddr)
		if metricsAddr == "" {
			metricsAddr = ":9090"
		}
	}

	deps := daemon.Deps{
		Logger:         logger,
		APIHandler:     srv.Router(),
		MetricsAddr:    metricsAddr,
		MetricsHandler: promhttp.Handler(),
	}

	mgr, err := daemon.NewManager(serverCfg, deps)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.creation.failed").
			Msg("failed to create daemon manager")
	}

	// Hooks run LIFO: config watcher and cache first, storage last.
	mgr.RegisterShutdownHook("telemetry", telemetryProvider.Shutdown)
	mgr.RegisterShutdownHook("store", func(context.Context) error {
		return st.Close()
	})
	mgr.RegisterShutdownHook("dedup-index", func(context.Context) error {
		return index.Close()
	})
	mgr.RegisterShutdownHook("cache", func(context.Context) error {
		return queryCache.Close()
	})
	mgr.RegisterShutdownHook("config-watcher", func(context.Context) error {
		cfgHolder.Stop()
		return nil
	})

	if err := mgr.Start(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.failed").
			Msg("daemon failed")
	}

	logger.Info().Msg("server exiting")
}

// tracingService returns the OTel service name, empty when tracing is off so
// the API skips the tracing middleware entirely.
func tracingService(cfg config.AppConfig) string {
	if !cfg.TracingEnabled {
		return ""
	}
	return cfg.LogService
}
