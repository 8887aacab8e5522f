// Command snapshot runs a single snapshot for one season and week and exits.
// Season and week default to the current period.
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
	"ffrankings/ingestion/internal/pipeline"
	"ffrankings/ingestion/internal/repository"

	"github.com/rs/zerolog/log"
)

func main() {
	seasonFlag := flag.Int("season", 0, "season to snapshot (default: current)")
	weekFlag := flag.Int("week", 0, "week to snapshot (default: current)")
	flag.Parse()

	logging.Setup()
	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	period := pipeline.Default(*seasonFlag, *weekFlag, time.Now(), cfg.SeasonStart)
	if err := period.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid season or week")
	}

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

	var invalidator pipeline.Invalidator
	if cfg.RedisEnabled {
		redisCache, err := cache.NewRedisCache(cache.Config{
			Host:     cfg.RedisHost,
			Port:     strconv.Itoa(cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, cached rankings will expire on their own")
		} else {
			defer redisCache.Close()
			invalidator = redisCache
		}
	}

	sleeper := client.NewClient(client.Config{
		BaseURL:       cfg.SleeperBaseURL,
		Timeout:       cfg.SleeperTimeout,
		MaxConcurrent: cfg.SleeperMaxConcurrent,
		MaxRetries:    cfg.SleeperMaxRetries,

		RequestsPerSecond: cfg.SleeperRPS,
	})

	runner := pipeline.NewGuarded(
		pipeline.New(sleeper, db.Players, db.Snapshots, invalidator),
		db,
		cfg.SnapshotLockKey,
	)

	res, err := runner.Run(ctx, period.Season, period.Week)
	if err != nil {
		// Fatal skips deferred cleanup; close explicitly
		db.Close()
		log.Fatal().Err(err).Str("period", period.String()).Msg("Snapshot failed")
	}

	log.Info().
		Str("run_id", res.RunID).
		Int("season", res.Season).
		Int("week", res.Week).
		Str("source", string(res.Source)).
		Int("upserted_players", res.UpsertedPlayers).
		Int("inserted_snapshots", res.InsertedSnapshots).
		Msg("Snapshot complete")
}
