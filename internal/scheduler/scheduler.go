package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ffrankings/ingestion/internal/pipeline"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Config controls the weekly snapshot job
type Config struct {
	Schedule    string // standard 5-field cron expression
	SeasonStart time.Time
}

// Scheduler triggers the snapshot pipeline on a cron schedule
type Scheduler struct {
	cfg    Config
	runner pipeline.Runner
	cron   *cron.Cron
	now    func() time.Time

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg Config, runner pipeline.Runner) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		cron:   cron.New(),
		now:    time.Now,
	}
}

// Start registers the snapshot job and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if err := s.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled snapshot failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule snapshot job: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.Schedule).
		Msg("Weekly snapshot scheduled")

	return nil
}

// Stop stops the cron loop and waits for a running job to finish
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	log.Info().Msg("Scheduler stopped")
}

// RunOnce snapshots the current period. A run already held elsewhere is not
// treated as a failure.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	period := pipeline.Default(0, 0, s.now(), s.cfg.SeasonStart)
	log.Info().
		Int("season", period.Season).
		Int("week", period.Week).
		Msg("Running scheduled snapshot...")

	res, err := s.runner.Run(ctx, period.Season, period.Week)

	s.mu.Lock()
	s.lastRun = s.now()
	s.lastErr = err
	s.mu.Unlock()

	if errors.Is(err, pipeline.ErrRunInProgress) {
		log.Info().Msg("Snapshot already running elsewhere, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	log.Info().
		Str("run_id", res.RunID).
		Int("players", res.UpsertedPlayers).
		Int("snapshots", res.InsertedSnapshots).
		Msg("Scheduled snapshot complete")
	return nil
}

// LastRun returns when the job last ran and its error, if any
func (s *Scheduler) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}
