package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateXP(t *testing.T) {
	cases := []struct {
		name     string
		newScore float64
		best     float64
		total    int
		want     int
	}{
		{"perfect already reached", 100, 100, 500, 0},
		{"first completion", 80, 0, 500, 425},
		{"improvement to perfect", 100, 80, 500, 125},
		{"regression", 70, 80, 500, 0},
		{"tie", 80, 80, 500, 0},
		{"default pool when unset", 80, 0, 0, 425},
		{"custom pool", 50, 0, 1000, 525},
		{"fractional improvement floors", 33.3, 0, 500, 166 + PersistenceBonus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateXP(tc.newScore, tc.best, tc.total)
			assert.Equal(t, tc.want, got.XPEarned)
			assert.Equal(t, got.XPEarned, got.Breakdown.Total)
		})
	}
}

func TestCalculateXPBreakdown(t *testing.T) {
	got := CalculateXP(100, 80, 500)
	assert.Equal(t, XPBreakdown{
		Improvement:      20,
		ImprovementXP:    100,
		PersistenceBonus: 25,
		Total:            125,
	}, got.Breakdown)

	none := CalculateXP(60, 90, 500)
	assert.Equal(t, XPBreakdown{}, none.Breakdown)
}
