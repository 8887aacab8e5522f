package models

// RankingRow is one line of the current rankings listing
type RankingRow struct {
	PlayerID     string   `json:"player_id"`
	Name         string   `json:"name"`
	Position     Position `json:"position"`
	Team         *string  `json:"team"`
	Rank         int      `json:"rank"`
	RankChange   *int     `json:"rank_change"` // positive = improved
	ProjectedPts *float64 `json:"projected_pts"`
	Week         int      `json:"week"`
	Season       int      `json:"season"`
}

// HistoryPoint is one period of a player's rank history
type HistoryPoint struct {
	Week         int      `json:"week"`
	Season       int      `json:"season"`
	Rank         int      `json:"rank"`
	ProjectedPts *float64 `json:"projected_pts"`
}
