package season

import (
	"testing"
	"time"

	"ffrankings/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
)

var start = time.Date(2025, 9, 4, 0, 0, 0, 0, time.UTC)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want models.Period
	}{
		{"offseason", start.Add(-time.Second), models.Period{Season: 2024, Week: 18}},
		{"kickoff instant", start, models.Period{Season: 2025, Week: 1}},
		{"end of week 1", start.Add(6*day + 23*time.Hour), models.Period{Season: 2025, Week: 1}},
		{"start of week 2", start.Add(7 * day), models.Period{Season: 2025, Week: 2}},
		{"week 5", start.Add(30 * day), models.Period{Season: 2025, Week: 5}},
		{"last week", start.Add(7*17*day + time.Hour), models.Period{Season: 2025, Week: 18}},
		{"clamped after season", start.Add(200 * day), models.Period{Season: 2025, Week: 18}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.now, start))
		})
	}
}
