package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ffrankings/ingestion/internal/client"
	"ffrankings/ingestion/internal/models"
	"ffrankings/ingestion/internal/ranking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }
func n(v int) *int         { return &v }
func s(v string) *string   { return &v }

type fakeProvider struct {
	players     map[string]models.PlayerInput
	projections map[string]models.ProjectionInput
	stats       map[string]models.StatInput

	playersErr     error
	projectionsErr error
	statsErr       error

	mu         sync.Mutex
	statsCalls int
}

func (p *fakeProvider) FetchAllPlayers(ctx context.Context) (map[string]models.PlayerInput, error) {
	return p.players, p.playersErr
}

func (p *fakeProvider) FetchProjections(ctx context.Context, season, week int) (map[string]models.ProjectionInput, error) {
	return p.projections, p.projectionsErr
}

func (p *fakeProvider) FetchStats(ctx context.Context, season, week int) (map[string]models.StatInput, error) {
	p.mu.Lock()
	p.statsCalls++
	p.mu.Unlock()
	return p.stats, p.statsErr
}

type snapKey struct {
	id           string
	season, week int
}

// fakeStore mimics upsert and insert-if-absent semantics in memory
type fakeStore struct {
	players   map[string]*models.Player
	snapshots map[snapKey]*models.Snapshot
	calls     []string

	upsertErr error
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		players:   make(map[string]*models.Player),
		snapshots: make(map[snapKey]*models.Snapshot),
	}
}

func (fs *fakeStore) UpsertBatch(ctx context.Context, players []*models.Player) (int, error) {
	fs.calls = append(fs.calls, "players")
	if fs.upsertErr != nil {
		return 0, fs.upsertErr
	}
	for _, p := range players {
		fs.players[p.PlayerID] = p
	}
	return len(players), nil
}

func (fs *fakeStore) InsertBatch(ctx context.Context, snapshots []*models.Snapshot) (int, error) {
	fs.calls = append(fs.calls, "snapshots")
	if fs.insertErr != nil {
		return 0, fs.insertErr
	}
	inserted := 0
	for _, sn := range snapshots {
		if _, ok := fs.players[sn.PlayerID]; !ok {
			return inserted, errors.New("foreign key violation: " + sn.PlayerID)
		}
		k := snapKey{sn.PlayerID, sn.Season, sn.Week}
		if _, exists := fs.snapshots[k]; exists {
			continue
		}
		fs.snapshots[k] = sn
		inserted++
	}
	return inserted, nil
}

type fakeCache struct {
	invalidations int
}

func (c *fakeCache) Invalidate(ctx context.Context, prefix string) (int, error) {
	c.invalidations++
	return 1, nil
}

func active(pos string, team *string) models.PlayerInput {
	return models.PlayerInput{FullName: "Player " + pos, FantasyPositions: []string{pos}, Position: pos, Team: team, Active: true}
}

func exampleProvider() *fakeProvider {
	return &fakeProvider{
		players: map[string]models.PlayerInput{
			"A": active("RB", s("SF")),
			"B": active("RB", nil),
			"C": active("WR", s("DAL")),
		},
		projections: map[string]models.ProjectionInput{
			"A": {PtsPPR: f(20)},
			"B": {PtsPPR: f(15)},
			"C": {PtsPPR: f(20)},
		},
	}
}

func TestRun_Example(t *testing.T) {
	store := newFakeStore()
	cache := &fakeCache{}
	p := New(exampleProvider(), store, store, cache)

	res, err := p.Run(context.Background(), 2025, 5)
	require.NoError(t, err)

	assert.Equal(t, 2025, res.Season)
	assert.Equal(t, 5, res.Week)
	assert.Equal(t, ranking.SourceProjections, res.Source)
	assert.Equal(t, 3, res.UpsertedPlayers)
	assert.Equal(t, 3, res.InsertedSnapshots)
	assert.Equal(t, 3, res.AttemptedSnapshots)
	assert.Equal(t, []string{"players", "snapshots"}, store.calls, "Players must be written before snapshots")
	assert.Equal(t, 1, cache.invalidations)

	a := store.snapshots[snapKey{"A", 2025, 5}]
	b := store.snapshots[snapKey{"B", 2025, 5}]
	c := store.snapshots[snapKey{"C", 2025, 5}]
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)
	assert.Equal(t, 1, a.Rank)
	assert.Equal(t, 2, b.Rank)
	assert.Equal(t, 1, c.Rank)
	assert.InDelta(t, 20.0, a.ProjectedPts.Float64, 0.0001)

	assert.False(t, store.players["B"].Team.Valid, "Free agent stored without team")
	assert.Equal(t, "SF", store.players["A"].Team.String)
	assert.Equal(t, models.PositionRB, store.players["A"].Position)
}

func TestRun_Idempotent(t *testing.T) {
	store := newFakeStore()
	p := New(exampleProvider(), store, store, nil)

	_, err := p.Run(context.Background(), 2025, 5)
	require.NoError(t, err)

	res, err := p.Run(context.Background(), 2025, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 0, res.InsertedSnapshots, "Second run inserts nothing")
	assert.Equal(t, 3, res.AttemptedSnapshots)
	assert.Len(t, store.snapshots, 3)
}

func TestRun_HistoryImmutable(t *testing.T) {
	store := newFakeStore()
	provider := exampleProvider()
	p := New(provider, store, store, nil)

	_, err := p.Run(context.Background(), 2025, 5)
	require.NoError(t, err)

	// Upstream correction flips A and B
	provider.projections["B"] = models.ProjectionInput{PtsPPR: f(30)}
	provider.players["A"] = active("RB", s("NYJ"))

	_, err = p.Run(context.Background(), 2025, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, store.snapshots[snapKey{"A", 2025, 5}].Rank, "Recorded rank must not change")
	assert.Equal(t, 2, store.snapshots[snapKey{"B", 2025, 5}].Rank)
	assert.Equal(t, "NYJ", store.players["A"].Team.String, "Player metadata is last-write-wins")
}

func TestRun_StatsFallback(t *testing.T) {
	provider := &fakeProvider{
		players: map[string]models.PlayerInput{
			"A": active("QB", s("BUF")),
			"B": active("QB", s("KC")),
		},
		projections: map[string]models.ProjectionInput{
			"A": {PtsPPR: f(0)},
			"B": {},
		},
		stats: map[string]models.StatInput{
			"A": {PosRankPPR: n(2), PtsPPR: f(18.5)},
			"B": {PosRankPPR: n(1)},
		},
	}
	store := newFakeStore()

	res, err := New(provider, store, store, nil).Run(context.Background(), 2025, 2)
	require.NoError(t, err)

	assert.Equal(t, ranking.SourceStats, res.Source)
	assert.Equal(t, 1, provider.statsCalls)
	assert.Equal(t, 2, store.snapshots[snapKey{"A", 2025, 2}].Rank)
	assert.Equal(t, 1, store.snapshots[snapKey{"B", 2025, 2}].Rank)
	assert.False(t, store.snapshots[snapKey{"B", 2025, 2}].ProjectedPts.Valid, "Missing points stay null")
}

func TestRun_ProjectionsPreferred(t *testing.T) {
	provider := exampleProvider()
	provider.projections["B"] = models.ProjectionInput{PtsPPR: f(0)}
	store := newFakeStore()

	res, err := New(provider, store, store, nil).Run(context.Background(), 2025, 5)
	require.NoError(t, err)
	assert.Equal(t, ranking.SourceProjections, res.Source)
	assert.Zero(t, provider.statsCalls)
}

func TestRun_UpstreamErrorWritesNothing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *fakeProvider)
	}{
		{"players", func(p *fakeProvider) {
			p.playersErr = &client.UpstreamError{Endpoint: client.EndpointPlayers, StatusCode: 500}
		}},
		{"projections", func(p *fakeProvider) {
			p.projectionsErr = &client.UpstreamError{Endpoint: client.EndpointProjections, StatusCode: 502}
		}},
		{"stats", func(p *fakeProvider) {
			p.projections = map[string]models.ProjectionInput{}
			p.statsErr = &client.UpstreamError{Endpoint: client.EndpointStats, Err: errors.New("connection reset")}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := exampleProvider()
			tt.mutate(provider)
			store := newFakeStore()

			_, err := New(provider, store, store, nil).Run(context.Background(), 2025, 5)
			require.Error(t, err)

			var upstreamErr *client.UpstreamError
			assert.True(t, errors.As(err, &upstreamErr))
			assert.Empty(t, store.calls, "No writes after an upstream failure")
		})
	}
}

func TestRun_StoreErrorStopsBeforeSnapshots(t *testing.T) {
	store := newFakeStore()
	store.upsertErr = errors.New("connection refused")

	_, err := New(exampleProvider(), store, store, nil).Run(context.Background(), 2025, 5)
	require.Error(t, err)
	assert.Equal(t, []string{"players"}, store.calls)
	assert.Empty(t, store.snapshots)
}

func TestRun_InvalidPeriod(t *testing.T) {
	store := newFakeStore()
	_, err := New(exampleProvider(), store, store, nil).Run(context.Background(), 2025, 19)
	assert.ErrorIs(t, err, models.ErrInvalidPeriod)
	assert.Empty(t, store.calls)
}

func TestRun_NothingRanked(t *testing.T) {
	provider := &fakeProvider{
		players:     map[string]models.PlayerInput{"X": active("DEF", nil)},
		projections: map[string]models.ProjectionInput{"X": {PtsPPR: f(9)}},
	}
	store := newFakeStore()
	cache := &fakeCache{}

	res, err := New(provider, store, store, cache).Run(context.Background(), 2025, 5)
	require.NoError(t, err)
	assert.Zero(t, res.UpsertedPlayers)
	assert.Zero(t, res.InsertedSnapshots)
	assert.Zero(t, cache.invalidations)
}

func TestDefault(t *testing.T) {
	start := time.Date(2025, 9, 4, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 9, 20, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, models.Period{Season: 2025, Week: 3}, Default(0, 0, now, start))
	assert.Equal(t, models.Period{Season: 2025, Week: 7}, Default(0, 7, now, start))
	assert.Equal(t, models.Period{Season: 2024, Week: 3}, Default(2024, 0, now, start))
}
