package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisciplineScore(t *testing.T) {
	// No activity, no score.
	assert.Equal(t, 0.0, DisciplineScore(0, 0, 0))

	// 10-day streak dominates: 100 * 0.3 + 20 * 0.05 + 3.
	assert.InDelta(t, 34.0, DisciplineScore(10, 20, 3), 0.001)

	// Logging volume alone barely moves the needle.
	assert.InDelta(t, 1.5, DisciplineScore(0, 30, 0), 0.001)
}

func TestDisciplineScore_StreakIsQuadratic(t *testing.T) {
	short := DisciplineScore(5, 0, 0)
	long := DisciplineScore(10, 0, 0)
	assert.InDelta(t, 4.0, long/short, 0.001)
}
