package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL:       srv.URL + "/v1",
		Timeout:       5 * time.Second,
		MaxConcurrent: 2,
	})
}

func TestFetchAllPlayers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/players/nfl", r.URL.Path)
		w.Write([]byte(`{
			"4984": {"player_id": "4984", "full_name": "Josh Allen", "position": "QB",
			         "fantasy_positions": ["QB"], "team": "BUF", "active": true},
			"9999": {"player_id": "9999", "first_name": "Free", "last_name": "Agent",
			         "position": "WR", "fantasy_positions": null, "team": null, "active": false}
		}`))
	})

	players, err := c.FetchAllPlayers(context.Background())
	require.NoError(t, err)
	require.Len(t, players, 2)

	allen := players["4984"]
	assert.Equal(t, "Josh Allen", allen.FullName)
	assert.True(t, allen.Active)
	require.NotNil(t, allen.Team)
	assert.Equal(t, "BUF", *allen.Team)

	fa := players["9999"]
	assert.Nil(t, fa.Team)
	assert.Nil(t, fa.FantasyPositions)
	assert.False(t, fa.Active)
}

func TestFetchProjections_QueryShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/projections/nfl/2025/5", r.URL.Path)
		assert.Equal(t, "regular", r.URL.Query().Get("season_type"))
		assert.Equal(t, []string{"QB", "RB", "WR", "TE", "K"}, r.URL.Query()["position[]"])
		w.Write([]byte(`{"A": {"pts_ppr": 20.5, "pts_std": 15}, "B": {}}`))
	})

	projections, err := c.FetchProjections(context.Background(), 2025, 5)
	require.NoError(t, err)
	assert.Equal(t, 20.5, projections["A"].Points())
	assert.Equal(t, 0.0, projections["B"].Points())
}

func TestFetchStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/stats/nfl/2025/6", r.URL.Path)
		w.Write([]byte(`{"A": {"pos_rank_ppr": 3, "pts_ppr": 18.2}, "B": {"pts_ppr": 0}}`))
	})

	stats, err := c.FetchStats(context.Background(), 2025, 6)
	require.NoError(t, err)

	rank, ok := stats["A"].PositionRank()
	assert.True(t, ok)
	assert.Equal(t, 3, rank)

	_, ok = stats["B"].PositionRank()
	assert.False(t, ok)
}

func TestGet_NonSuccessStatusIsUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`boom`))
	})

	_, err := c.FetchAllPlayers(context.Background())
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, EndpointPlayers, upstreamErr.Endpoint)
	assert.Equal(t, http.StatusInternalServerError, upstreamErr.StatusCode)
}

func TestGet_MalformedPayloadIsUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[not json`))
	})

	_, err := c.FetchProjections(context.Background(), 2025, 1)
	var upstreamErr *UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, EndpointProjections, upstreamErr.Endpoint)
}

func TestGet_NoRetryByDefault(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.FetchStats(context.Background(), 2025, 1)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load(), "Failures surface immediately without retry")
}

func TestGet_RetriesWhenConfigured(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second, MaxConcurrent: 1, MaxRetries: 1})
	c.retryDelay = time.Millisecond

	_, err := c.FetchStats(context.Background(), 2025, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGet_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		_, err := c.FetchAllPlayers(context.Background())
		require.Error(t, err)
	}

	_, err := c.FetchAllPlayers(context.Background())
	var upstreamErr *UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, int32(5), hits.Load(), "Open breaker short-circuits the request")
}

func TestGet_Throttled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second, MaxConcurrent: 4, RequestsPerSecond: 20})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.FetchProjections(context.Background(), 2025, 1)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond, "Three requests at 20/s need two 50ms gaps")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchProjections(ctx, 2025, 1)
	var upstreamErr *UpstreamError
	assert.True(t, errors.As(err, &upstreamErr))
}
