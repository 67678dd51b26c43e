package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appanalytics "github.com/sasa-apparel/backend/internal/application/analytics"
	appidentity "github.com/sasa-apparel/backend/internal/application/identity"
	"github.com/sasa-apparel/backend/internal/infrastructure/auth"
	"github.com/sasa-apparel/backend/internal/infrastructure/cache"
	"github.com/sasa-apparel/backend/internal/infrastructure/config"
	"github.com/sasa-apparel/backend/internal/infrastructure/logger"
	"github.com/sasa-apparel/backend/internal/infrastructure/persistence"
	"github.com/sasa-apparel/backend/internal/infrastructure/scheduler"
	"github.com/sasa-apparel/backend/internal/interfaces/http/handler"
	"github.com/sasa-apparel/backend/internal/interfaces/http/middleware"
	"github.com/sasa-apparel/backend/internal/interfaces/http/router"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting analytics server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port))

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	// Repositories
	metricSource := persistence.NewGormMetricSource(db.DB)
	rollupStore := persistence.NewGormRollupStore(db.DB)
	styleDirectory := persistence.NewGormStyleDirectory(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)

	// Authentication
	jwtService := auth.NewJWTService(cfg.JWT)
	blacklist := buildTokenBlacklist(cfg, log)
	authService := appidentity.NewAuthService(
		userRepo,
		jwtService,
		blacklist,
		appidentity.DefaultAuthServiceConfig(),
		log,
	)

	// Analytics services
	queryService := appanalytics.NewQueryService(rollupStore, metricSource, styleDirectory, log)
	aggregationService := appanalytics.NewAggregationService(metricSource, rollupStore, styleDirectory, log)

	// Nightly rollup scheduler
	cronScheduler := buildCronScheduler(cfg, aggregationService, styleDirectory, db, log)

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	if cfg.Scheduler.Enabled {
		if err := cronScheduler.Start(schedulerCtx); err != nil {
			log.Fatal("Failed to start rollup scheduler", zap.Error(err))
		}
		log.Info("Rollup scheduler started",
			zap.String("schedule", cfg.Scheduler.DailyCronSchedule))
	} else {
		log.Info("Rollup scheduler disabled")
	}

	// Query result cache
	var queryCache cache.QueryCache
	if cfg.Cache.Enabled {
		factory := cache.NewQueryCacheFactory(cfg.Redis, cache.WithLogger(log))
		queryCache, err = factory.CreateCache()
		if err != nil {
			log.Warn("Query cache unavailable, serving uncached", zap.Error(err))
			queryCache = nil
		}
	}

	// Handlers
	systemHandler := handler.NewSystemHandler()
	authHandler := handler.NewAuthHandler(authService)
	analyticsHandler := handler.NewAnalyticsHandler(
		queryService,
		aggregationService,
		cronScheduler,
		queryCache,
		cfg.Cache.TTL,
		log,
	)

	engine := buildEngine(cfg, log)

	authMiddleware := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		SkipPaths: []string{
			"/api/v1/health",
			"/api/v1/info",
			"/api/v1/ping",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
		},
		Logger: log,
	})

	api := router.NewRouter(engine, router.WithAPIVersion("v1"))
	for _, registrar := range router.BuildRoutes(router.APIHandlers{
		System:    systemHandler,
		Auth:      authHandler,
		Analytics: analyticsHandler,
	}, authMiddleware) {
		api.Register(registrar)
	}
	api.Setup()

	// Liveness probe for load balancers, checks the database connection
	engine.GET("/health", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if cfg.Scheduler.Enabled {
		if err := cronScheduler.Stop(ctx); err != nil {
			log.Error("Failed to stop rollup scheduler", zap.Error(err))
		}
	}
	stopScheduler()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// buildTokenBlacklist prefers Redis so revoked tokens survive restarts and
// are shared across replicas. Falls back to the in-process blacklist when
// Redis is unreachable.
func buildTokenBlacklist(cfg *config.Config, log *zap.Logger) auth.TokenBlacklist {
	blacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis token blacklist unavailable, using in-memory fallback", zap.Error(err))
		return auth.NewInMemoryTokenBlacklist()
	}
	return blacklist
}

func buildCronScheduler(
	cfg *config.Config,
	executor scheduler.JobExecutor,
	tenants scheduler.TenantLister,
	db *persistence.Database,
	log *zap.Logger,
) *scheduler.RollupCronScheduler {
	cronCfg := scheduler.DefaultRollupCronSchedulerConfig()
	cronCfg.Enabled = cfg.Scheduler.Enabled
	if cfg.Scheduler.DailyCronSchedule != "" {
		cronCfg.DailyCronSchedule = cfg.Scheduler.DailyCronSchedule
		hour, minute, err := scheduler.ParseCronSchedule(cfg.Scheduler.DailyCronSchedule)
		if err != nil {
			log.Warn("Invalid cron schedule, using default",
				zap.String("schedule", cfg.Scheduler.DailyCronSchedule),
				zap.Error(err))
		}
		cronCfg.CronHour = hour
		cronCfg.CronMinute = minute
	}
	if cfg.Scheduler.MaxConcurrentJobs > 0 {
		cronCfg.MaxConcurrentJobs = cfg.Scheduler.MaxConcurrentJobs
	}
	if cfg.Scheduler.JobTimeout > 0 {
		cronCfg.JobTimeout = cfg.Scheduler.JobTimeout
	}
	if cfg.Scheduler.RetryAttempts > 0 {
		cronCfg.RetryAttempts = cfg.Scheduler.RetryAttempts
	}
	if cfg.Scheduler.RetryDelay > 0 {
		cronCfg.RetryDelay = cfg.Scheduler.RetryDelay
	}

	jobRepo := scheduler.NewSchedulerJobRepository(db.DB)
	return scheduler.NewRollupCronScheduler(cronCfg, executor, tenants, jobRepo, log)
}

func buildEngine(cfg *config.Config, log *zap.Logger) *gin.Engine {
	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsCfg))

	return engine
}
