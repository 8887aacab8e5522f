// Package pipeline runs one weekly snapshot: fetch, rank, persist.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ffrankings/ingestion/internal/client"
	"ffrankings/ingestion/internal/metrics"
	"ffrankings/ingestion/internal/models"
	"ffrankings/ingestion/internal/ranking"
	"ffrankings/ingestion/internal/season"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrRunInProgress is returned by Guarded when another run holds the lock
var ErrRunInProgress = errors.New("snapshot run already in progress")

// Provider fetches raw upstream data for a period
type Provider interface {
	FetchAllPlayers(ctx context.Context) (map[string]models.PlayerInput, error)
	FetchProjections(ctx context.Context, season, week int) (map[string]models.ProjectionInput, error)
	FetchStats(ctx context.Context, season, week int) (map[string]models.StatInput, error)
}

// PlayerWriter persists player identity rows
type PlayerWriter interface {
	UpsertBatch(ctx context.Context, players []*models.Player) (int, error)
}

// SnapshotWriter persists ranking facts; existing rows must be left untouched
type SnapshotWriter interface {
	InsertBatch(ctx context.Context, snapshots []*models.Snapshot) (int, error)
}

// Invalidator drops cached read results after new data lands
type Invalidator interface {
	Invalidate(ctx context.Context, prefix string) (int, error)
}

// Runner is anything that can execute a snapshot for a period
type Runner interface {
	Run(ctx context.Context, season, week int) (Result, error)
}

// Result summarises a completed run
type Result struct {
	RunID              string         `json:"runId"`
	Season             int            `json:"season"`
	Week               int            `json:"week"`
	Source             ranking.Source `json:"source"`
	UpsertedPlayers    int            `json:"upsertedPlayers"`
	InsertedSnapshots  int            `json:"insertedSnapshots"`
	AttemptedSnapshots int            `json:"attemptedSnapshots"`
	Duration           time.Duration  `json:"-"`
}

// Pipeline wires the provider, the ranking step and the store
type Pipeline struct {
	provider  Provider
	players   PlayerWriter
	snapshots SnapshotWriter
	cache     Invalidator
}

// New creates a pipeline. cache may be nil.
func New(provider Provider, players PlayerWriter, snapshots SnapshotWriter, cache Invalidator) *Pipeline {
	return &Pipeline{
		provider:  provider,
		players:   players,
		snapshots: snapshots,
		cache:     cache,
	}
}

// Default fills a zero season or week from the week resolver
func Default(seasonNum, week int, now, seasonStart time.Time) models.Period {
	current := season.Resolve(now, seasonStart)
	p := models.Period{Season: seasonNum, Week: week}
	if p.Season == 0 {
		p.Season = current.Season
	}
	if p.Week == 0 {
		p.Week = current.Week
	}
	return p
}

// Run fetches, ranks and stores one period. Upstream failures abort before
// any write. Players are committed before snapshots that reference them.
func (p *Pipeline) Run(ctx context.Context, seasonNum, week int) (Result, error) {
	start := time.Now()
	period := models.Period{Season: seasonNum, Week: week}
	res := Result{RunID: uuid.NewString(), Season: seasonNum, Week: week}

	if err := period.Validate(); err != nil {
		return res, err
	}

	logger := log.With().Str("run_id", res.RunID).Logger()

	logger.Info().
		Int("season", seasonNum).
		Int("week", week).
		Msg("Starting snapshot run")

	var (
		directory   map[string]models.PlayerInput
		projections map[string]models.ProjectionInput
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		directory, err = p.provider.FetchAllPlayers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		projections, err = p.provider.FetchProjections(gctx, seasonNum, week)
		return err
	})
	if err := g.Wait(); err != nil {
		return res, p.fail(res, start, "fetch", err)
	}

	ranked, err := ranking.Derive(directory, projections, func() (map[string]models.StatInput, error) {
		logger.Info().
			Int("season", seasonNum).
			Int("week", week).
			Msg("No projected points published, falling back to stats")
		return p.provider.FetchStats(ctx, seasonNum, week)
	})
	if err != nil {
		return res, p.fail(res, start, "fetch", err)
	}
	res.Source = ranked.Source

	players, snapshots := buildRows(directory, ranked, period)
	res.AttemptedSnapshots = len(snapshots)

	if len(snapshots) == 0 {
		logger.Warn().
			Int("season", seasonNum).
			Int("week", week).
			Str("source", string(res.Source)).
			Msg("No eligible players ranked, nothing to store")
	}

	res.UpsertedPlayers, err = p.players.UpsertBatch(ctx, players)
	if err != nil {
		return res, p.fail(res, start, "store", fmt.Errorf("failed to upsert players: %w", err))
	}

	res.InsertedSnapshots, err = p.snapshots.InsertBatch(ctx, snapshots)
	if err != nil {
		return res, p.fail(res, start, "store", fmt.Errorf("failed to insert snapshots: %w", err))
	}

	res.Duration = time.Since(start)
	metrics.RecordSnapshotRun(string(res.Source), "success", res.Duration.Seconds(), res.UpsertedPlayers, res.InsertedSnapshots)

	if p.cache != nil && res.InsertedSnapshots+res.UpsertedPlayers > 0 {
		if _, err := p.cache.Invalidate(ctx, ""); err != nil {
			logger.Warn().Err(err).Msg("Failed to invalidate read cache")
		}
	}

	logger.Info().
		Int("season", res.Season).
		Int("week", res.Week).
		Str("source", string(res.Source)).
		Int("players_upserted", res.UpsertedPlayers).
		Int("snapshots_inserted", res.InsertedSnapshots).
		Int("snapshots_attempted", res.AttemptedSnapshots).
		Dur("duration", res.Duration).
		Msg("Snapshot run completed")

	return res, nil
}

func (p *Pipeline) fail(res Result, start time.Time, stage string, err error) error {
	source := string(res.Source)
	if source == "" {
		source = "unknown"
	}
	metrics.RecordSnapshotRun(source, "error", time.Since(start).Seconds(), 0, 0)
	metrics.RecordError("pipeline", stage)

	logger := log.With().Str("run_id", res.RunID).Logger()

	var upstreamErr *client.UpstreamError
	if errors.As(err, &upstreamErr) {
		logger.Error().
			Err(err).
			Str("endpoint", upstreamErr.Endpoint).
			Int("status", upstreamErr.StatusCode).
			Int("season", res.Season).
			Int("week", res.Week).
			Msg("Snapshot run aborted: upstream failure")
	} else {
		logger.Error().
			Err(err).
			Str("stage", stage).
			Int("season", res.Season).
			Int("week", res.Week).
			Msg("Snapshot run failed")
	}

	return fmt.Errorf("snapshot %d/%d: %w", res.Season, res.Week, err)
}

// buildRows converts ranked entries into player and snapshot rows. Only ranked
// players are upserted.
func buildRows(directory map[string]models.PlayerInput, ranked ranking.Ranking, period models.Period) ([]*models.Player, []*models.Snapshot) {
	entries := ranked.Entries()
	players := make([]*models.Player, 0, len(entries))
	snapshots := make([]*models.Snapshot, 0, len(entries))

	for _, e := range entries {
		input := directory[e.PlayerID]
		players = append(players, input.ToPlayer(e.PlayerID, e.Position))

		s := &models.Snapshot{
			PlayerID: e.PlayerID,
			Season:   period.Season,
			Week:     period.Week,
			Rank:     e.Rank,
		}
		if e.Points != nil {
			s.ProjectedPts = sql.NullFloat64{Float64: *e.Points, Valid: true}
		}
		snapshots = append(snapshots, s)
	}

	return players, snapshots
}
