// Package trend computes week-over-week rank movement.
package trend

import "ffrankings/ingestion/internal/models"

// Delta returns previous - current. Positive means the player moved toward
// rank 1. ok is false when there is no previous rank.
func Delta(current, previous int, hasPrevious bool) (delta int, ok bool) {
	if !hasPrevious {
		return 0, false
	}
	return previous - current, true
}

// Apply sets RankChange on each row from the previous period's ranks keyed by
// player ID. Rows without a previous rank get a nil RankChange.
func Apply(rows []models.RankingRow, previous map[string]int) {
	for i := range rows {
		prev, found := previous[rows[i].PlayerID]
		if d, ok := Delta(rows[i].Rank, prev, found); ok {
			rows[i].RankChange = &d
		} else {
			rows[i].RankChange = nil
		}
	}
}
