// Package season derives the current NFL season and week from a fixed
// week-1 anchor date.
package season

import (
	"time"

	"ffrankings/ingestion/internal/models"
)

const day = 24 * time.Hour

// Resolve returns the period containing now. Before the anchor it returns the
// final week of the previous season, which is what the offseason displays.
func Resolve(now, start time.Time) models.Period {
	if now.Before(start) {
		return models.Period{Season: start.Year() - 1, Week: models.MaxWeek}
	}

	days := int(now.Sub(start) / day)
	week := days/7 + 1
	if week < 1 {
		week = 1
	}
	if week > models.MaxWeek {
		week = models.MaxWeek
	}

	return models.Period{Season: start.Year(), Week: week}
}
