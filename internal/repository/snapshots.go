package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ffrankings/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// SnapshotRepository handles weekly ranking snapshots. Rows are insert-only:
// the first rank recorded for a (player, season, week) is permanent.
type SnapshotRepository struct {
	db *Database
}

const insertSnapshotQuery = `
	INSERT INTO snapshots (player_id, season, week, rank, projected_pts)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (player_id, season, week) DO NOTHING
`

// Insert records a snapshot unless one already exists for the same player and
// period. It reports whether a row was written.
func (r *SnapshotRepository) Insert(ctx context.Context, s *models.Snapshot) (inserted bool, err error) {
	start := time.Now()
	defer func() { observe("insert", "snapshots", start, err) }()

	tag, err := r.db.Pool.Exec(ctx, insertSnapshotQuery,
		s.PlayerID, s.Season, s.Week, s.Rank, s.ProjectedPts,
	)
	if err != nil {
		return false, &StoreError{Op: "insert snapshot", Err: err}
	}

	return tag.RowsAffected() == 1, nil
}

// InsertBatch records snapshots in a single transaction and returns how many
// rows were actually inserted. Existing rows are left untouched.
func (r *SnapshotRepository) InsertBatch(ctx context.Context, snapshots []*models.Snapshot) (n int, err error) {
	start := time.Now()
	defer func() { observe("insert_batch", "snapshots", start, err) }()

	if len(snapshots) == 0 {
		return 0, nil
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, &StoreError{Op: "begin snapshot batch", Err: err}
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, s := range snapshots {
		batch.Queue(insertSnapshotQuery, s.PlayerID, s.Season, s.Week, s.Rank, s.ProjectedPts)
	}

	affected, err := execBatchCount(ctx, tx, batch)
	if err != nil {
		return 0, &StoreError{Op: "insert snapshots", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &StoreError{Op: "commit snapshot batch", Err: err}
	}

	log.Debug().
		Int("attempted", len(snapshots)).
		Int64("inserted", affected).
		Msg("Snapshots recorded")

	return int(affected), nil
}

// Get retrieves one snapshot by its natural key
func (r *SnapshotRepository) Get(ctx context.Context, playerID string, period models.Period) (*models.Snapshot, error) {
	query := `
		SELECT player_id, season, week, rank, projected_pts, created_at
		FROM snapshots
		WHERE player_id = $1 AND season = $2 AND week = $3
	`

	var s models.Snapshot
	err := r.db.Pool.QueryRow(ctx, query, playerID, period.Season, period.Week).Scan(
		&s.PlayerID, &s.Season, &s.Week, &s.Rank, &s.ProjectedPts, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s %s: %w", playerID, period, ErrNotFound)
	}
	if err != nil {
		return nil, &StoreError{Op: "get snapshot", Err: err}
	}

	return &s, nil
}

// LatestPeriod returns the most recent period with at least one snapshot.
// ok is false when the store is empty.
func (r *SnapshotRepository) LatestPeriod(ctx context.Context) (period models.Period, ok bool, err error) {
	start := time.Now()
	defer func() { observe("latest_period", "snapshots", start, err) }()

	query := `SELECT season, week FROM snapshots ORDER BY season DESC, week DESC LIMIT 1`

	err = r.db.Pool.QueryRow(ctx, query).Scan(&period.Season, &period.Week)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Period{}, false, nil
	}
	if err != nil {
		return models.Period{}, false, &StoreError{Op: "latest period", Err: err}
	}

	return period, true, nil
}

// PeriodRanking lists the ranked players of a period ordered by position then
// rank. Empty position or team means no filter. RankChange is left nil.
func (r *SnapshotRepository) PeriodRanking(ctx context.Context, period models.Period, position models.Position, team string) (rows []models.RankingRow, err error) {
	start := time.Now()
	defer func() { observe("period_ranking", "snapshots", start, err) }()

	query := `
		SELECT p.player_id, p.name, p.position, p.team,
		       s.rank, s.projected_pts, s.week, s.season
		FROM players p
		JOIN snapshots s
		  ON s.player_id = p.player_id
		 AND s.season = $1
		 AND s.week = $2
		WHERE ($3 = '' OR p.position = $3)
		  AND ($4 = '' OR p.team = $4)
		ORDER BY p.position, s.rank ASC, p.player_id
	`

	pgRows, err := r.db.Pool.Query(ctx, query, period.Season, period.Week, string(position), team)
	if err != nil {
		return nil, &StoreError{Op: "period ranking", Err: err}
	}
	defer pgRows.Close()

	rows = make([]models.RankingRow, 0)
	for pgRows.Next() {
		var row models.RankingRow
		var pos string
		if err := pgRows.Scan(
			&row.PlayerID, &row.Name, &pos, &row.Team,
			&row.Rank, &row.ProjectedPts, &row.Week, &row.Season,
		); err != nil {
			return nil, &StoreError{Op: "scan ranking row", Err: err}
		}
		row.Position = models.Position(pos)
		rows = append(rows, row)
	}

	if err := pgRows.Err(); err != nil {
		return nil, &StoreError{Op: "iterate ranking rows", Err: err}
	}

	return rows, nil
}

// RanksForPeriod returns every recorded rank of a period keyed by player ID
func (r *SnapshotRepository) RanksForPeriod(ctx context.Context, period models.Period) (ranks map[string]int, err error) {
	start := time.Now()
	defer func() { observe("ranks_for_period", "snapshots", start, err) }()

	pgRows, err := r.db.Pool.Query(ctx,
		`SELECT player_id, rank FROM snapshots WHERE season = $1 AND week = $2`,
		period.Season, period.Week,
	)
	if err != nil {
		return nil, &StoreError{Op: "ranks for period", Err: err}
	}
	defer pgRows.Close()

	ranks = make(map[string]int)
	for pgRows.Next() {
		var id string
		var rank int
		if err := pgRows.Scan(&id, &rank); err != nil {
			return nil, &StoreError{Op: "scan rank", Err: err}
		}
		ranks[id] = rank
	}

	if err := pgRows.Err(); err != nil {
		return nil, &StoreError{Op: "iterate ranks", Err: err}
	}

	return ranks, nil
}

// History returns a player's snapshots in chronological order
func (r *SnapshotRepository) History(ctx context.Context, playerID string) (points []models.HistoryPoint, err error) {
	start := time.Now()
	defer func() { observe("history", "snapshots", start, err) }()

	pgRows, err := r.db.Pool.Query(ctx, `
		SELECT week, season, rank, projected_pts
		FROM snapshots
		WHERE player_id = $1
		ORDER BY season ASC, week ASC
	`, playerID)
	if err != nil {
		return nil, &StoreError{Op: "history", Err: err}
	}
	defer pgRows.Close()

	points = make([]models.HistoryPoint, 0)
	for pgRows.Next() {
		var p models.HistoryPoint
		if err := pgRows.Scan(&p.Week, &p.Season, &p.Rank, &p.ProjectedPts); err != nil {
			return nil, &StoreError{Op: "scan history", Err: err}
		}
		points = append(points, p)
	}

	if err := pgRows.Err(); err != nil {
		return nil, &StoreError{Op: "iterate history", Err: err}
	}

	return points, nil
}

// Count returns the total number of snapshots
func (r *SnapshotRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&count); err != nil {
		return 0, &StoreError{Op: "count snapshots", Err: err}
	}
	return count, nil
}
