package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePosition(t *testing.T) {
	tests := []struct {
		name     string
		declared []string
		primary  string
		want     Position
	}{
		{"first declared wins", []string{"WR", "RB"}, "RB", PositionWR},
		{"falls back to primary", nil, "TE", PositionTE},
		{"empty declared falls back", []string{}, "qb", PositionQB},
		{"untracked declared is unranked", []string{"DEF"}, "QB", Unranked},
		{"untracked primary is unranked", nil, "LB", Unranked},
		{"nothing declared", nil, "", Unranked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePosition(tt.declared, tt.primary))
		})
	}
}

func TestPlayerInput_DisplayName(t *testing.T) {
	assert.Equal(t, "Josh Allen", (&PlayerInput{FullName: "Josh Allen", FirstName: "J"}).DisplayName("4984"))
	assert.Equal(t, "Josh Allen", (&PlayerInput{FirstName: "Josh", LastName: "Allen"}).DisplayName("4984"))
	assert.Equal(t, "Allen", (&PlayerInput{LastName: "Allen"}).DisplayName("4984"))
	assert.Equal(t, "4984", (&PlayerInput{}).DisplayName("4984"))
}

func TestPlayerInput_ToPlayer(t *testing.T) {
	team := "BUF"
	p := (&PlayerInput{FullName: "Josh Allen", Team: &team}).ToPlayer("4984", PositionQB)
	assert.Equal(t, "4984", p.PlayerID)
	assert.Equal(t, PositionQB, p.Position)
	assert.True(t, p.Team.Valid)
	assert.Equal(t, "BUF", p.Team.String)

	fa := (&PlayerInput{FullName: "Free Agent"}).ToPlayer("1", PositionRB)
	assert.False(t, fa.Team.Valid, "Free agents have no team")
}

func TestPeriod_Previous(t *testing.T) {
	assert.Equal(t, Period{Season: 2025, Week: 4}, Period{Season: 2025, Week: 5}.Previous())
	assert.Equal(t, Period{Season: 2024, Week: 18}, Period{Season: 2025, Week: 1}.Previous())
}

func TestPeriod_Validate(t *testing.T) {
	assert.NoError(t, Period{Season: 2025, Week: 1}.Validate())
	assert.NoError(t, Period{Season: 2025, Week: 18}.Validate())
	assert.Error(t, Period{Season: 2025, Week: 0}.Validate())
	assert.Error(t, Period{Season: 2025, Week: 19}.Validate())
	assert.Error(t, Period{Season: 0, Week: 3}.Validate())
	assert.ErrorIs(t, Period{Season: 2025, Week: 19}.Validate(), ErrInvalidPeriod)
}

func TestStatInput_PositionRank(t *testing.T) {
	rank, zero := 7, 0
	_, ok := StatInput{}.PositionRank()
	assert.False(t, ok)
	_, ok = StatInput{PosRankPPR: &zero}.PositionRank()
	assert.False(t, ok)
	got, ok := StatInput{PosRankPPR: &rank}.PositionRank()
	assert.True(t, ok)
	assert.Equal(t, 7, got)
}
