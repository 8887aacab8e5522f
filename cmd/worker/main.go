package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ffrankings/ingestion/internal/api"
	"ffrankings/ingestion/internal/cache"
	"ffrankings/ingestion/internal/client"
	"ffrankings/ingestion/internal/config"
	"ffrankings/ingestion/internal/logging"
	"ffrankings/ingestion/internal/metrics"
	"ffrankings/ingestion/internal/pipeline"
	"ffrankings/ingestion/internal/rankings"
	"ffrankings/ingestion/internal/repository"
	"ffrankings/ingestion/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.Setup()

	log.Info().Msg("Starting fantasy rankings worker")

	// Load configuration
	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	// Initialize Sleeper client
	sleeper := client.NewClient(client.Config{
		BaseURL:       cfg.SleeperBaseURL,
		Timeout:       cfg.SleeperTimeout,
		MaxConcurrent: cfg.SleeperMaxConcurrent,
		MaxRetries:    cfg.SleeperMaxRetries,

		RequestsPerSecond: cfg.SleeperRPS,
	})
	log.Info().Str("base_url", cfg.SleeperBaseURL).Msg("Sleeper client initialized")

	// Initialize database connection
	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}
	log.Info().Msg("Database connection established")

	// Initialize Redis cache; the service runs uncached without it
	var (
		readCache   rankings.Cache
		invalidator pipeline.Invalidator
	)
	if cfg.RedisEnabled {
		redisCache, err := cache.NewRedisCache(cache.Config{
			Host:     cfg.RedisHost,
			Port:     strconv.Itoa(cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		} else {
			defer redisCache.Close()
			readCache = redisCache
			invalidator = redisCache
			log.Info().Str("addr", cfg.RedisAddr()).Msg("Redis cache connected")
		}
	}

	// Start metrics HTTP server
	if cfg.EnableMetrics {
		go startMetricsServer(strconv.Itoa(cfg.MetricsPort))
	}

	// Update system uptime and pool metrics
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
				db.RecordPoolStats()
			case <-ctx.Done():
				return
			}
		}
	}()

	// Wire pipeline behind the advisory lock so cron and HTTP triggers never overlap
	runner := pipeline.NewGuarded(
		pipeline.New(sleeper, db.Players, db.Snapshots, invalidator),
		db,
		cfg.SnapshotLockKey,
	)

	// Start HTTP API
	apiServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: api.NewServer(
			runner,
			rankings.NewService(db.Snapshots, readCache, cfg.CacheTTLRankings, cfg.CacheTTLHistory),
			db,
			api.Options{CronSecret: cfg.CronSecret, SeasonStart: cfg.SeasonStart},
		).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("Starting API server")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("API server failed")
			cancel()
		}
	}()

	// Create and start scheduler
	sched := scheduler.NewScheduler(scheduler.Config{
		Schedule:    cfg.SnapshotCron,
		SeasonStart: cfg.SeasonStart,
	}, runner)

	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	// Keep running until context is cancelled
	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("API server shutdown failed")
	}

	if cfg.EnableScheduler {
		log.Info().Msg("Shutting down scheduler...")
		sched.Stop()
	}

	log.Info().Msg("Worker shutdown complete")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%s", port)
	log.Info().Str("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
