package models

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MaxWeek is the last regular-season week
const MaxWeek = 18

// ErrInvalidPeriod is wrapped by Period.Validate failures
var ErrInvalidPeriod = errors.New("invalid period")

// Period identifies one scoring week of a season
type Period struct {
	Season int `json:"season"`
	Week   int `json:"week"`
}

// Previous returns the period immediately before p, rolling back to week 18 of
// the prior season from week 1.
func (p Period) Previous() Period {
	if p.Week > 1 {
		return Period{Season: p.Season, Week: p.Week - 1}
	}
	return Period{Season: p.Season - 1, Week: MaxWeek}
}

// Validate checks the week is within the regular season
func (p Period) Validate() error {
	if p.Season <= 0 {
		return fmt.Errorf("%w: season %d", ErrInvalidPeriod, p.Season)
	}
	if p.Week < 1 || p.Week > MaxWeek {
		return fmt.Errorf("%w: week %d must be between 1 and %d", ErrInvalidPeriod, p.Week, MaxWeek)
	}
	return nil
}

func (p Period) String() string {
	return fmt.Sprintf("%d-W%02d", p.Season, p.Week)
}

// Snapshot is the recorded position rank of a player for one period.
// Rows are written once and never updated.
type Snapshot struct {
	PlayerID     string          `db:"player_id"`
	Season       int             `db:"season"`
	Week         int             `db:"week"`
	Rank         int             `db:"rank"`
	ProjectedPts sql.NullFloat64 `db:"projected_pts"`
	CreatedAt    time.Time       `db:"created_at"`
}

// Period returns the snapshot's season and week
func (s *Snapshot) Period() Period {
	return Period{Season: s.Season, Week: s.Week}
}

// ProjectionInput is one entry of the Sleeper projections payload
type ProjectionInput struct {
	PtsPPR     *float64 `json:"pts_ppr,omitempty"`
	PtsHalfPPR *float64 `json:"pts_half_ppr,omitempty"`
	PtsStd     *float64 `json:"pts_std,omitempty"`
}

// Points returns projected PPR points, zero when absent
func (pi ProjectionInput) Points() float64 {
	if pi.PtsPPR == nil {
		return 0
	}
	return *pi.PtsPPR
}

// StatInput is one entry of the Sleeper stats payload
type StatInput struct {
	PosRankPPR *int     `json:"pos_rank_ppr,omitempty"`
	PtsPPR     *float64 `json:"pts_ppr,omitempty"`
}

// PositionRank returns the upstream position rank and whether one was supplied
func (si StatInput) PositionRank() (int, bool) {
	if si.PosRankPPR == nil || *si.PosRankPPR <= 0 {
		return 0, false
	}
	return *si.PosRankPPR, true
}
