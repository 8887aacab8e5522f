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

// PlayerRepository handles player database operations
type PlayerRepository struct {
	db *Database
}

const upsertPlayerQuery = `
	INSERT INTO players (player_id, name, position, team)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (player_id) DO UPDATE SET
		name = EXCLUDED.name,
		position = EXCLUDED.position,
		team = EXCLUDED.team,
		updated_at = NOW()
`

// Upsert inserts or updates a player; mutable fields are overwritten on conflict
func (r *PlayerRepository) Upsert(ctx context.Context, player *models.Player) (err error) {
	start := time.Now()
	defer func() { observe("upsert", "players", start, err) }()

	err = r.db.Pool.QueryRow(
		ctx, upsertPlayerQuery+` RETURNING created_at, updated_at`,
		player.PlayerID, player.Name, string(player.Position), player.Team,
	).Scan(&player.CreatedAt, &player.UpdatedAt)

	if err != nil {
		return &StoreError{Op: "upsert player", Err: err}
	}

	return nil
}

// UpsertBatch upserts all players in a single transaction. Nothing is applied
// if any row fails.
func (r *PlayerRepository) UpsertBatch(ctx context.Context, players []*models.Player) (n int, err error) {
	start := time.Now()
	defer func() { observe("upsert_batch", "players", start, err) }()

	if len(players) == 0 {
		return 0, nil
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, &StoreError{Op: "begin player batch", Err: err}
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, p := range players {
		batch.Queue(upsertPlayerQuery, p.PlayerID, p.Name, string(p.Position), p.Team)
	}

	if err := execBatch(ctx, tx, batch); err != nil {
		return 0, &StoreError{Op: "upsert players", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &StoreError{Op: "commit player batch", Err: err}
	}

	log.Debug().Int("count", len(players)).Msg("Players upserted")
	return len(players), nil
}

// GetByPlayerID retrieves a player by its Sleeper player ID
func (r *PlayerRepository) GetByPlayerID(ctx context.Context, playerID string) (*models.Player, error) {
	query := `
		SELECT player_id, name, position, team, created_at, updated_at
		FROM players
		WHERE player_id = $1
	`

	var player models.Player
	var position string
	err := r.db.Pool.QueryRow(ctx, query, playerID).Scan(
		&player.PlayerID, &player.Name, &position, &player.Team,
		&player.CreatedAt, &player.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	if err != nil {
		return nil, &StoreError{Op: "get player", Err: err}
	}

	player.Position = models.Position(position)
	return &player, nil
}

// Count returns the total number of players
func (r *PlayerRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM players`).Scan(&count); err != nil {
		return 0, &StoreError{Op: "count players", Err: err}
	}
	return count, nil
}

// execBatchCount sends a batch within tx and sums affected rows
func execBatchCount(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) (int64, error) {
	br := tx.SendBatch(ctx, batch)

	var affected int64
	for i := 0; i < batch.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, fmt.Errorf("batch statement %d: %w", i, err)
		}
		affected += tag.RowsAffected()
	}

	if err := br.Close(); err != nil {
		return 0, err
	}
	return affected, nil
}

func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	_, err := execBatchCount(ctx, tx, batch)
	return err
}
