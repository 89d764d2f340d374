package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/dfs-showdown/internal/api"
	"github.com/stitts-dev/dfs-showdown/internal/metrics"
	"github.com/stitts-dev/dfs-showdown/internal/models"
	"github.com/stitts-dev/dfs-showdown/internal/overunder"
	"github.com/stitts-dev/dfs-showdown/internal/providers"
	"github.com/stitts-dev/dfs-showdown/internal/services"
	"github.com/stitts-dev/dfs-showdown/internal/websocket"
	"github.com/stitts-dev/dfs-showdown/pkg/config"
	"github.com/stitts-dev/dfs-showdown/pkg/database"
	"github.com/stitts-dev/dfs-showdown/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	log := logger.WithService("dfs-showdown")
	log.WithFields(logrus.Fields{
		"environment": cfg.Env,
		"port":        cfg.Port,
	}).Info("Starting DFS showdown service")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Redis is optional: without it results are simply not cached.
	var cache *services.CacheService
	if opt, err := redis.ParseURL(cfg.RedisURL); err != nil {
		log.WithError(err).Warn("Invalid Redis URL, caching disabled")
	} else {
		redisClient := redis.NewClient(opt)
		defer redisClient.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.WithError(err).Warn("Redis unavailable, caching disabled")
		} else {
			cache = services.NewCacheService(redisClient)
		}
		cancel()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	emitter := metrics.InitMetrics(registry)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	hub := websocket.NewHub(log.WithField("component", "websocket"))
	go hub.Run(ctx)

	statsClient := providers.NewMLBStatsClient(providers.MLBStatsConfig{
		BaseURL:          cfg.MLBStatsBaseURL,
		RateLimit:        cfg.MLBStatsRateLimit,
		Timeout:          cfg.ExternalAPITimeout,
		FailureThreshold: cfg.CircuitBreakerThreshold,
	}, log.WithField("component", "mlb_stats"))

	roster := services.NewRosterService(db, log.WithField("component", "roster"))
	lineups := services.NewLineupService(roster, cache, hub, emitter, services.LineupSettings{
		Defaults:   cfg.OptimizerDefaults(),
		Timeout:    cfg.OptimizationTimeoutDuration(),
		CacheTTL:   cfg.OptimizationCacheTTL,
		MinPlayers: cfg.MinPlayersRequired,
	}, log.WithField("component", "lineups"))
	overUnder := services.NewOverUnderService(db, statsClient, cache, hub, emitter, services.OverUnderSettings{
		ModelPath: cfg.ModelPath,
		Model:     overunder.DefaultModelConfig(),
		CacheTTL:  cfg.OptimizationCacheTTL,
	}, log.WithField("component", "over_under"))
	if err := overUnder.LoadModel(); err != nil {
		log.WithError(err).Warn("Failed to load over/under model")
	}

	var scheduler *services.Scheduler
	if cfg.EnableBackgroundJobs {
		scheduler = services.NewScheduler(overUnder, cfg.ModelRetrainSchedule, cfg.PredictionSchedule, log)
		if err := scheduler.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
	}

	router := api.NewRouter(api.Dependencies{
		DB:                db,
		Cache:             cache,
		Lineups:           lineups,
		Roster:            roster,
		OverUnder:         overUnder,
		Hub:               hub,
		Gatherer:          registry,
		JWTSecret:         cfg.JWTSecret,
		CorsOrigins:       cfg.CorsOrigins,
		OptimizeRateLimit: cfg.OptimizeRateLimit,
		Logger:            log.WithField("component", "http"),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	stop()

	log.Info("Server exited")
}
