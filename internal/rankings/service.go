// Package rankings serves the read side: the latest weekly listing with
// week-over-week movement, and per-player history.
package rankings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ffrankings/ingestion/internal/models"
	"ffrankings/ingestion/internal/trend"

	"github.com/rs/zerolog/log"
)

// ErrInvalidFilter is returned for a position filter outside the tracked set
var ErrInvalidFilter = errors.New("invalid filter")

const allFilter = "ALL"

// Store is the read subset of the snapshot repository
type Store interface {
	LatestPeriod(ctx context.Context) (models.Period, bool, error)
	PeriodRanking(ctx context.Context, period models.Period, position models.Position, team string) ([]models.RankingRow, error)
	RanksForPeriod(ctx context.Context, period models.Period) (map[string]int, error)
	History(ctx context.Context, playerID string) ([]models.HistoryPoint, error)
}

// Cache stores JSON-encoded read results
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

// Filter narrows the current listing. Zero values mean no filter.
type Filter struct {
	Position models.Position
	Team     string
}

// ParseFilter validates raw query values. Empty or "ALL" disables a filter.
func ParseFilter(position, team string) (Filter, error) {
	var f Filter

	position = strings.ToUpper(strings.TrimSpace(position))
	if position != "" && position != allFilter {
		f.Position = models.ParsePosition(position)
		if f.Position == models.Unranked {
			return Filter{}, fmt.Errorf("%w: position %q", ErrInvalidFilter, position)
		}
	}

	team = strings.ToUpper(strings.TrimSpace(team))
	if team != allFilter {
		f.Team = team
	}

	return f, nil
}

func (f Filter) key() string {
	return fmt.Sprintf("rankings:%s:%s", f.Position, f.Team)
}

// Service answers ranking queries, optionally through a cache
type Service struct {
	store       Store
	cache       Cache
	rankingsTTL time.Duration
	historyTTL  time.Duration
}

// NewService creates a read service. cache may be nil.
func NewService(store Store, cache Cache, rankingsTTL, historyTTL time.Duration) *Service {
	return &Service{
		store:       store,
		cache:       cache,
		rankingsTTL: rankingsTTL,
		historyTTL:  historyTTL,
	}
}

// Current lists the latest period's ranks with rank_change against the
// previous period. An empty store yields an empty listing.
func (s *Service) Current(ctx context.Context, f Filter) ([]models.RankingRow, error) {
	if f.Position != models.Unranked && models.ParsePosition(string(f.Position)) == models.Unranked {
		return nil, fmt.Errorf("%w: position %q", ErrInvalidFilter, f.Position)
	}

	var rows []models.RankingRow
	if s.lookup(ctx, f.key(), &rows) {
		return rows, nil
	}

	period, ok, err := s.store.LatestPeriod(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve latest period: %w", err)
	}
	if !ok {
		return []models.RankingRow{}, nil
	}

	rows, err = s.store.PeriodRanking(ctx, period, f.Position, f.Team)
	if err != nil {
		return nil, fmt.Errorf("failed to load rankings for %s: %w", period, err)
	}

	previous, err := s.store.RanksForPeriod(ctx, period.Previous())
	if err != nil {
		return nil, fmt.Errorf("failed to load ranks for %s: %w", period.Previous(), err)
	}
	trend.Apply(rows, previous)

	s.remember(ctx, f.key(), rows, s.rankingsTTL)
	return rows, nil
}

// History returns a player's ranks in chronological order
func (s *Service) History(ctx context.Context, playerID string) ([]models.HistoryPoint, error) {
	key := "history:" + playerID

	var points []models.HistoryPoint
	if s.lookup(ctx, key, &points) {
		return points, nil
	}

	points, err := s.store.History(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", playerID, err)
	}

	s.remember(ctx, key, points, s.historyTTL)
	return points, nil
}

// lookup reads through the cache; cache failures are treated as misses
func (s *Service) lookup(ctx context.Context, key string, dst interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.GetJSON(ctx, key, dst)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		return false
	}
	return hit
}

func (s *Service) remember(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if s.cache == nil || ttl <= 0 {
		return
	}
	if err := s.cache.SetJSON(ctx, key, v, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}
