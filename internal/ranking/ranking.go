// Package ranking turns raw per-player weekly scoring into position ranks.
//
// A run picks exactly one Source. With projections, ranks are computed locally
// by sorting projected PPR points within each position. With stats, the
// upstream position rank is taken as-is.
package ranking

import (
	"sort"

	"ffrankings/ingestion/internal/models"
)

// Source identifies which upstream dataset a ranking was derived from
type Source string

const (
	SourceProjections Source = "projections"
	SourceStats       Source = "stats"
)

// Entry is one ranked player
type Entry struct {
	PlayerID string
	Position models.Position
	Rank     int
	Points   *float64 // nil when the upstream gave no points figure
}

// Ranking is the derived ranking for one period
type Ranking struct {
	Source     Source
	ByPosition map[models.Position][]Entry
}

func newRanking(source Source) Ranking {
	byPos := make(map[models.Position][]Entry, len(models.TrackedPositions))
	for _, pos := range models.TrackedPositions {
		byPos[pos] = nil
	}
	return Ranking{Source: source, ByPosition: byPos}
}

// Entries flattens the ranking in tracked-position order, each group by rank
func (r Ranking) Entries() []Entry {
	out := make([]Entry, 0, r.Len())
	for _, pos := range models.TrackedPositions {
		out = append(out, r.ByPosition[pos]...)
	}
	return out
}

// Len returns the number of ranked players
func (r Ranking) Len() int {
	n := 0
	for _, entries := range r.ByPosition {
		n += len(entries)
	}
	return n
}

// HasProjections reports whether any projection carries positive points.
// An all-zero or empty map means the week's projections are not published yet.
func HasProjections(projections map[string]models.ProjectionInput) bool {
	for _, p := range projections {
		if p.Points() > 0 {
			return true
		}
	}
	return false
}

// FromProjections ranks active, tracked players with positive projected points.
// Equal points are ordered by ascending player ID so reruns are reproducible.
func FromProjections(players map[string]models.PlayerInput, projections map[string]models.ProjectionInput) Ranking {
	r := newRanking(SourceProjections)

	for id, proj := range projections {
		player, ok := players[id]
		if !ok {
			continue
		}
		pos := player.ResolvedPosition()
		if pos == models.Unranked || !player.Active {
			continue
		}
		pts := proj.Points()
		if pts <= 0 {
			continue
		}
		r.ByPosition[pos] = append(r.ByPosition[pos], Entry{PlayerID: id, Position: pos, Points: &pts})
	}

	for pos, entries := range r.ByPosition {
		sort.Slice(entries, func(i, j int) bool {
			if *entries[i].Points != *entries[j].Points {
				return *entries[i].Points > *entries[j].Points
			}
			return entries[i].PlayerID < entries[j].PlayerID
		})
		for i := range entries {
			entries[i].Rank = i + 1
		}
		r.ByPosition[pos] = entries
	}

	return r
}

// FromStats keeps the upstream position rank for every tracked player that has one.
func FromStats(players map[string]models.PlayerInput, stats map[string]models.StatInput) Ranking {
	r := newRanking(SourceStats)

	for id, stat := range stats {
		rank, ok := stat.PositionRank()
		if !ok {
			continue
		}
		player, ok := players[id]
		if !ok {
			continue
		}
		pos := player.ResolvedPosition()
		if pos == models.Unranked {
			continue
		}
		var pts *float64
		if stat.PtsPPR != nil {
			v := *stat.PtsPPR
			pts = &v
		}
		r.ByPosition[pos] = append(r.ByPosition[pos], Entry{PlayerID: id, Position: pos, Rank: rank, Points: pts})
	}

	for _, entries := range r.ByPosition {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Rank != entries[j].Rank {
				return entries[i].Rank < entries[j].Rank
			}
			return entries[i].PlayerID < entries[j].PlayerID
		})
	}

	return r
}

// Derive selects the source for the run and ranks accordingly. fetchStats is
// only invoked when no projection has positive points.
func Derive(
	players map[string]models.PlayerInput,
	projections map[string]models.ProjectionInput,
	fetchStats func() (map[string]models.StatInput, error),
) (Ranking, error) {
	if HasProjections(projections) {
		return FromProjections(players, projections), nil
	}

	stats, err := fetchStats()
	if err != nil {
		return Ranking{}, err
	}
	return FromStats(players, stats), nil
}
