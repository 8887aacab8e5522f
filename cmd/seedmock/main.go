// Command seedmock replaces all stored rankings with generated mock weeks.
// It refuses to run when APP_ENV=production.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ffrankings/ingestion/internal/cache"
	"ffrankings/ingestion/internal/client"
	"ffrankings/ingestion/internal/config"
	"ffrankings/ingestion/internal/logging"
	"ffrankings/ingestion/internal/repository"
	"ffrankings/ingestion/internal/seed"

	"github.com/rs/zerolog/log"
)

func main() {
	seasonFlag := flag.Int("season", seed.DefaultSeason, "season to generate")
	rngSeed := flag.Int64("seed", time.Now().UnixNano(), "random seed for rank drift and points noise")
	flag.Parse()

	logging.Setup()
	cfg := config.MustLoad()

	if cfg.IsProduction() {
		log.Fatal().Msg("Refusing to seed mock data in production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	sleeper := client.NewClient(client.Config{
		BaseURL:       cfg.SleeperBaseURL,
		Timeout:       cfg.SleeperTimeout,
		MaxConcurrent: cfg.SleeperMaxConcurrent,
		MaxRetries:    cfg.SleeperMaxRetries,

		RequestsPerSecond: cfg.SleeperRPS,
	})

	summary, err := seed.Seed(ctx, seed.NewGenerator(*rngSeed), sleeper, db, db.Players, db.Snapshots, *seasonFlag, seed.DefaultWeeks)
	if err != nil {
		db.Close()
		log.Fatal().Err(err).Msg("Mock seed failed")
	}

	if cfg.RedisEnabled {
		if redisCache, err := cache.NewRedisCache(cache.Config{
			Host:     cfg.RedisHost,
			Port:     strconv.Itoa(cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}); err == nil {
			if _, err := redisCache.Invalidate(ctx, ""); err != nil {
				log.Warn().Err(err).Msg("Failed to invalidate read cache")
			}
			redisCache.Close()
		}
	}

	log.Info().
		Int("season", summary.Season).
		Ints("weeks", summary.Weeks).
		Int("players", summary.Players).
		Int("snapshots", summary.Snapshots).
		Int64("seed", *rngSeed).
		Msg("Mock seed complete")
}
