// Package seed fills an empty development database with plausible mock
// rankings so the read API has week-over-week movement to show.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"ffrankings/ingestion/internal/models"
	"ffrankings/ingestion/internal/pipeline"

	"github.com/rs/zerolog/log"
)

// PoolSize caps how many players are seeded per position
var PoolSize = map[models.Position]int{
	models.PositionQB: 32,
	models.PositionRB: 80,
	models.PositionWR: 80,
	models.PositionTE: 36,
	models.PositionK:  28,
}

// pointsRange holds PPR points for rank 1 and for the last rank
var pointsRange = map[models.Position][2]float64{
	models.PositionQB: {34, 12},
	models.PositionRB: {28, 4},
	models.PositionWR: {26, 4},
	models.PositionTE: {20, 3},
	models.PositionK:  {14, 6},
}

const (
	DefaultSeason = 2025
	maxDrift      = 4
	noiseSpread   = 2.5
	minPoints     = 0.5
)

// DefaultWeeks are the seeded weeks
var DefaultWeeks = []int{14, 15, 16, 17, 18}

// Truncater clears players and snapshots
type Truncater interface {
	Truncate(ctx context.Context) error
}

// Summary reports what was seeded
type Summary struct {
	Season    int   `json:"season"`
	Weeks     []int `json:"weeks"`
	Players   int   `json:"players"`
	Snapshots int   `json:"snapshots"`
}

// Generator builds mock rows from a real player directory
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator seeded with seed
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Pools picks active, rostered players per tracked position, ordered by
// player ID and capped at PoolSize.
func Pools(directory map[string]models.PlayerInput) map[models.Position][]*models.Player {
	pools := make(map[models.Position][]*models.Player, len(models.TrackedPositions))

	ids := make([]string, 0, len(directory))
	for id := range directory {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		input := directory[id]
		if !input.Active || input.Team == nil || *input.Team == "" {
			continue
		}
		pos := input.ResolvedPosition()
		if pos == models.Unranked || len(pools[pos]) >= PoolSize[pos] {
			continue
		}
		pools[pos] = append(pools[pos], input.ToPlayer(id, pos))
	}

	return pools
}

// Generate returns the players and one snapshot per player per week. Week to
// week order drifts by random local swaps.
func (g *Generator) Generate(directory map[string]models.PlayerInput, season int, weeks []int) ([]*models.Player, []*models.Snapshot) {
	pools := Pools(directory)

	var players []*models.Player
	var snapshots []*models.Snapshot

	for _, pos := range models.TrackedPositions {
		pool := pools[pos]
		players = append(players, pool...)

		order := make([]string, len(pool))
		for i, p := range pool {
			order[i] = p.PlayerID
		}

		for wi, week := range weeks {
			if wi > 0 {
				order = g.drift(order)
			}
			for i, id := range order {
				rank := i + 1
				snapshots = append(snapshots, &models.Snapshot{
					PlayerID:     id,
					Season:       season,
					Week:         week,
					Rank:         rank,
					ProjectedPts: sql.NullFloat64{Float64: g.points(pos, rank, len(order)), Valid: true},
				})
			}
		}
	}

	return players, snapshots
}

// drift moves each entry up to maxDrift places by swapping
func (g *Generator) drift(order []string) []string {
	out := append([]string(nil), order...)
	n := len(out)
	for i := 0; i < n; i++ {
		j := i + g.rng.Intn(maxDrift*2+1) - maxDrift
		if j < 0 {
			j = 0
		}
		if j > n-1 {
			j = n - 1
		}
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// points interpolates linearly between the position's range with noise
func (g *Generator) points(pos models.Position, rank, total int) float64 {
	r := pointsRange[pos]
	top, bottom := r[0], r[1]

	span := total - 1
	if span < 1 {
		span = 1
	}
	base := top - (top-bottom)*float64(rank-1)/float64(span)
	noise := (g.rng.Float64() - 0.5) * noiseSpread

	pts := math.Round((base+noise)*10) / 10
	return math.Max(minPoints, pts)
}

// Seed wipes both tables and writes freshly generated mock data
func Seed(
	ctx context.Context,
	gen *Generator,
	provider pipeline.Provider,
	store Truncater,
	players pipeline.PlayerWriter,
	snapshots pipeline.SnapshotWriter,
	season int,
	weeks []int,
) (Summary, error) {
	directory, err := provider.FetchAllPlayers(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to fetch player directory: %w", err)
	}

	playerRows, snapshotRows := gen.Generate(directory, season, weeks)

	if err := store.Truncate(ctx); err != nil {
		return Summary{}, fmt.Errorf("failed to clear tables: %w", err)
	}

	upserted, err := players.UpsertBatch(ctx, playerRows)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to seed players: %w", err)
	}

	inserted, err := snapshots.InsertBatch(ctx, snapshotRows)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to seed snapshots: %w", err)
	}

	log.Info().
		Int("season", season).
		Ints("weeks", weeks).
		Int("players", upserted).
		Int("snapshots", inserted).
		Msg("Mock data seeded")

	return Summary{Season: season, Weeks: weeks, Players: upserted, Snapshots: inserted}, nil
}
