package repository

import (
	"context"

	"github.com/rs/zerolog/log"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS players (
		player_id  TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		position   TEXT NOT NULL,
		team       TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		player_id     TEXT NOT NULL REFERENCES players (player_id),
		season        INTEGER NOT NULL,
		week          INTEGER NOT NULL CHECK (week BETWEEN 1 AND 18),
		rank          INTEGER NOT NULL CHECK (rank > 0),
		projected_pts DOUBLE PRECISION,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (player_id, season, week)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_period ON snapshots (season DESC, week DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_players_position_team ON players (position, team)`,
}

// EnsureSchema creates the players and snapshots tables if they do not exist
func (db *Database) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return &StoreError{Op: "ensure schema", Err: err}
		}
	}

	log.Info().Int("statements", len(schemaStatements)).Msg("Database schema ensured")
	return nil
}
