package models

import (
	"database/sql"
	"strings"
	"time"
)

// Position is a fantasy position tracked for ranking
type Position string

const (
	PositionQB Position = "QB"
	PositionRB Position = "RB"
	PositionWR Position = "WR"
	PositionTE Position = "TE"
	PositionK  Position = "K"

	// Unranked marks a player whose resolved position is outside the tracked set
	Unranked Position = ""
)

// TrackedPositions lists ranked positions in display order
var TrackedPositions = []Position{PositionQB, PositionRB, PositionWR, PositionTE, PositionK}

// ParsePosition returns the tracked position matching s, or Unranked
func ParsePosition(s string) Position {
	p := Position(strings.ToUpper(strings.TrimSpace(s)))
	for _, tracked := range TrackedPositions {
		if p == tracked {
			return p
		}
	}
	return Unranked
}

// ResolvePosition picks the first declared fantasy position, falling back to the
// primary roster position when none are declared.
func ResolvePosition(fantasyPositions []string, primary string) Position {
	if len(fantasyPositions) > 0 {
		return ParsePosition(fantasyPositions[0])
	}
	return ParsePosition(primary)
}

// Player represents an NFL player tracked by the rankings
type Player struct {
	PlayerID  string         `db:"player_id"`
	Name      string         `db:"name"`
	Position  Position       `db:"position"`
	Team      sql.NullString `db:"team"` // NULL for free agents
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// PlayerInput is a player record from the Sleeper /players/nfl directory
type PlayerInput struct {
	PlayerID         string   `json:"player_id"`
	FullName         string   `json:"full_name"`
	FirstName        string   `json:"first_name"`
	LastName         string   `json:"last_name"`
	Position         string   `json:"position"`
	FantasyPositions []string `json:"fantasy_positions"`
	Team             *string  `json:"team"`
	Active           bool     `json:"active"`
}

// ResolvedPosition returns the position the player is ranked at
func (pi *PlayerInput) ResolvedPosition() Position {
	return ResolvePosition(pi.FantasyPositions, pi.Position)
}

// DisplayName prefers the full name, then first and last name, then the player ID
func (pi *PlayerInput) DisplayName(id string) string {
	if name := strings.TrimSpace(pi.FullName); name != "" {
		return name
	}
	if name := strings.TrimSpace(pi.FirstName + " " + pi.LastName); name != "" {
		return name
	}
	return id
}

// ToPlayer converts PlayerInput (from API) to Player model
func (pi *PlayerInput) ToPlayer(id string, pos Position) *Player {
	player := &Player{
		PlayerID: id,
		Name:     pi.DisplayName(id),
		Position: pos,
	}

	if pi.Team != nil && *pi.Team != "" {
		player.Team = sql.NullString{String: *pi.Team, Valid: true}
	}

	return player
}
