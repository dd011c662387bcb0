package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/speakup-platform/speakup-backend/internal/api/rest"
	"github.com/speakup-platform/speakup-backend/internal/infrastructure/cache"
	"github.com/speakup-platform/speakup-backend/internal/infrastructure/config"
	"github.com/speakup-platform/speakup-backend/internal/infrastructure/database"
	"github.com/speakup-platform/speakup-backend/internal/infrastructure/repository"
	"github.com/speakup-platform/speakup-backend/internal/infrastructure/telemetry"
	"github.com/speakup-platform/speakup-backend/internal/service/insights"
	"github.com/speakup-platform/speakup-backend/internal/service/overview"
	"github.com/speakup-platform/speakup-backend/internal/service/profiles"
	"github.com/speakup-platform/speakup-backend/internal/service/signals"
	"github.com/speakup-platform/speakup-backend/internal/service/suspicion"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	requestLogger := telemetry.SetupRequestLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewConnectionPool(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	caps, err := database.ResolveCapabilities(ctx, pool.DB(), logger)
	if err != nil {
		logger.Fatal("failed to resolve schema capabilities", zap.Error(err))
	}

	// Redis is optional: without it the overview falls back to the
	// in-process cache.
	var overviewCache cache.Cache
	if cfg.Redis.URL != "" {
		overviewCache, err = cache.NewRedisCache(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory cache", zap.Error(err))
			overviewCache = cache.NewMemoryCache()
		}
	} else {
		overviewCache = cache.NewMemoryCache()
	}
	defer overviewCache.Close()

	db := pool.DB()
	complaintRepo := repository.NewComplaintRepository(db, caps)
	profileRepo := repository.NewProfileRepository(db)
	reporterRepo := repository.NewReporterRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db, caps)
	suspicionRepo := repository.NewSuspicionRepository(db, caps)
	statsRepo := repository.NewStatsRepository(db)

	signalSvc := signals.NewService(complaintRepo, profileRepo, reporterRepo, departmentRepo, signals.Options{
		QueryTimeout: cfg.Analytics.QueryTimeout,
		DefaultLimit: cfg.Analytics.DefaultLimit,
		MaxLimit:     cfg.Analytics.MaxLimit,
	})
	profileSvc := profiles.NewService(profileRepo, logger)
	engine := suspicion.NewEngine(suspicionRepo, cfg.Analytics.ClusterThreshold, logger)
	overviewSvc := overview.NewService(statsRepo, signalSvc, overviewCache, overview.Options{
		CacheTTL: cfg.Analytics.OverviewCacheTTL,
	}, logger)
	insightSvc := insights.NewService(signalSvc)

	handler := rest.NewHandler(rest.Services{
		Overview:  overviewSvc,
		Signals:   signalSvc,
		Insights:  insightSvc,
		Profiles:  profileSvc,
		Suspicion: engine,
	}, cfg.Analytics)
	eventHandler := rest.NewEventHandler(complaintRepo, reporterRepo, profileSvc, engine, overviewSvc, requestLogger)
	eventHandler.SetMetrics(promEventMetrics{})
	healthHandler := rest.NewHealthHandler(pool, cfg.Version)

	observeCapabilities(caps)

	mux := rest.NewRouter(handler, eventHandler, healthHandler)
	server := rest.NewServer(cfg.Server, mux, requestLogger)

	logger.Info("starting analytics api",
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("department_metrics", caps.DepartmentMetrics),
		zap.Bool("cluster_storage", caps.ClusterStorage),
		zap.Bool("weekly_rollup", caps.WeeklyRollup),
	)

	if err := server.Start(ctx); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
	logger.Info("server stopped")
}
