package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/karalisweb/leadaudit/internal/api"
	"github.com/karalisweb/leadaudit/internal/config"
	"github.com/karalisweb/leadaudit/internal/observability"
	"github.com/karalisweb/leadaudit/internal/repository/postgres"
	rediscache "github.com/karalisweb/leadaudit/internal/repository/redis"
	"github.com/karalisweb/leadaudit/internal/scoring"
	"github.com/karalisweb/leadaudit/internal/services/audit"
	"github.com/karalisweb/leadaudit/internal/signals"
	"github.com/karalisweb/leadaudit/internal/storage"
)

func main() {
	// Local development convenience; the file is absent in deployment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Env, cfg.GetLogLevel())
	defer logger.Sync()

	logger.Info("Starting leadaudit API",
		zap.String("environment", string(cfg.Env)),
	)

	// Connect to PostgreSQL
	db, err := postgres.New(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
	)

	// Connect to Redis (optional)
	var cache *rediscache.Cache
	if cfg.Redis.Enabled {
		cache, err = rediscache.New(cfg.Redis)
		if err != nil {
			logger.Warn("Failed to connect to Redis, caching and distributed locking disabled", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
			logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	var locker audit.Locker
	if cache != nil {
		locker = rediscache.NewAuditLocker(cache)
	}

	// Snapshot archive (optional)
	var archive *storage.SnapshotArchive
	if cfg.Storage.Enabled {
		a, err := storage.NewSnapshotArchive(cfg.Storage)
		if err != nil {
			logger.Warn("Failed to initialize snapshot archive, snapshots disabled", zap.Error(err))
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := a.EnsureBucket(ctx); err != nil {
				logger.Warn("Failed to ensure snapshot bucket, snapshots disabled", zap.Error(err))
			} else {
				archive = a
				logger.Info("Snapshot archive ready", zap.String("bucket", cfg.Storage.Bucket))
			}
			cancel()
		}
	}
	var snapshots audit.Snapshots
	if archive != nil {
		snapshots = archive
	}

	// Performance probe
	var probe audit.PerformanceProbe
	if cfg.Audit.UseBrowserProbe {
		browser, err := audit.NewBrowserProbe(cfg.Audit.RequestTimeout)
		if err != nil {
			logger.Warn("Failed to start browser probe, falling back to HTTP timing", zap.Error(err))
			probe = audit.NewHTTPProbe(cfg.Audit.RequestTimeout, cfg.Audit.UserAgent)
		} else {
			defer browser.Close()
			probe = browser
		}
	} else {
		probe = audit.NewHTTPProbe(cfg.Audit.RequestTimeout, cfg.Audit.UserAgent)
	}
	probe = audit.NewGuardedProbe(probe, logger)

	// Scoring weights
	weights := scoring.DefaultWeights()
	if cfg.Audit.WeightsFile != "" {
		weights, err = scoring.LoadWeights(cfg.Audit.WeightsFile)
		if err != nil {
			logger.Fatal("Failed to load scoring weights", zap.Error(err))
		}
	}
	scorer, err := scoring.NewScorer(weights)
	if err != nil {
		logger.Fatal("Invalid scoring weights", zap.Error(err))
	}

	// SERP corroboration (optional, circuit-broken)
	var serp signals.SerpChecker
	if cfg.Serp.BaseURL != "" {
		serp = signals.NewGuardedSerpChecker(
			signals.NewHTTPSerpChecker(cfg.Serp.BaseURL, cfg.Serp.APIKey, cfg.Serp.Timeout),
			logger,
		)
		logger.Info("SERP corroboration enabled", zap.String("base_url", cfg.Serp.BaseURL))
	}

	metrics := observability.InitMetrics("leadaudit")

	auditor, err := audit.NewAuditor(
		postgres.NewLeadRepository(db.DB),
		locker,
		snapshots,
		probe,
		scorer,
		signals.NewDetector(serp, logger),
		cfg.Audit,
		metrics,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to build auditor", zap.Error(err))
	}

	repos := postgres.NewRepositories(db.DB)

	router := api.NewRouter(api.RouterConfig{
		Repos:      repos,
		Cache:      cache,
		Auditor:    auditor,
		Snapshots:  archive,
		Metrics:    metrics,
		Logger:     logger,
		EnableCORS: cfg.Server.EnableCORS,
		RateLimit:  300, // requests per minute
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API server listening", zap.String("addr", cfg.Server.Addr()))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("Server error", zap.Error(err))

	case sig := <-shutdown:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed, forcing close", zap.Error(err))
			server.Close()
		}

		logger.Info("Server stopped gracefully")
	}
}

// initLogger creates a configured zap logger
func initLogger(env config.Environment, level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if env == config.EnvProduction {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zcfg.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := zcfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}
