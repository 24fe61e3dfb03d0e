package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func TestCompute_SingleDayUnderTarget(t *testing.T) {
	rows := []LogRow{{Date: day(10), Minutes: 45}}

	got := Compute(rows, 60, day(10))

	assert.Equal(t, 1, got.DaysLogged)
	assert.Equal(t, 45, got.TotalMinutes)
	assert.Equal(t, 1, got.DaysPassed)
	assert.Equal(t, 0, got.DaysFailed)
	assert.Equal(t, 45, got.TodayMinutes)
	require.NotNil(t, got.TodayPassed)
	assert.True(t, *got.TodayPassed)
}

func TestCompute_MultipleRowsPerDaySum(t *testing.T) {
	rows := []LogRow{
		{Date: day(10), Minutes: 40},
		{Date: day(10), Minutes: 30},
	}

	got := Compute(rows, 60, day(10))

	assert.Equal(t, 1, got.DaysLogged)
	assert.Equal(t, 70, got.TotalMinutes)
	assert.Equal(t, 0, got.DaysPassed)
	assert.Equal(t, 1, got.DaysFailed)
	require.NotNil(t, got.TodayPassed)
	assert.False(t, *got.TodayPassed)
}

func TestCompute_PassedPlusFailedEqualsLogged(t *testing.T) {
	rows := []LogRow{
		{Date: day(1), Minutes: 30},
		{Date: day(2), Minutes: 90},
		{Date: day(3), Minutes: 60},
		{Date: day(4), Minutes: 61},
	}

	got := Compute(rows, 60, day(5))

	assert.Equal(t, 4, got.DaysLogged)
	assert.Equal(t, got.DaysLogged, got.DaysPassed+got.DaysFailed)
	assert.Equal(t, 2, got.DaysPassed) // 30 and the exactly-at-target 60
	assert.Equal(t, 2, got.DaysFailed)
}

func TestCompute_NoRows(t *testing.T) {
	got := Compute(nil, 60, day(1))

	assert.Zero(t, got.DaysLogged)
	assert.Zero(t, got.TotalMinutes)
	assert.Zero(t, got.DaysPassed)
	assert.Zero(t, got.DaysFailed)
	assert.Zero(t, got.TodayMinutes)
	assert.Nil(t, got.TodayPassed)
}

func TestCompute_TodayOutsideRowsLeavesTodayNil(t *testing.T) {
	rows := []LogRow{{Date: day(1), Minutes: 30}}

	got := Compute(rows, 60, day(15))

	assert.Equal(t, 1, got.DaysLogged)
	assert.Zero(t, got.TodayMinutes)
	assert.Nil(t, got.TodayPassed)
}

func TestCompute_ZeroMinuteDayCountsAsLoggedAndPassed(t *testing.T) {
	// An explicit zero-minute row is still a logged day and trivially
	// within any target.
	rows := []LogRow{{Date: day(3), Minutes: 0}}

	got := Compute(rows, 0, day(4))

	assert.Equal(t, 1, got.DaysLogged)
	assert.Equal(t, 1, got.DaysPassed)
	assert.Equal(t, 0, got.DaysFailed)
	assert.Zero(t, got.TotalMinutes)
}

func TestCompute_Idempotent(t *testing.T) {
	rows := []LogRow{
		{Date: day(1), Minutes: 30},
		{Date: day(2), Minutes: 90},
	}

	first := Compute(rows, 60, day(2))
	second := Compute(rows, 60, day(2))

	assert.Equal(t, first, second)
}

func TestAverage(t *testing.T) {
	assert.Zero(t, Average(0, 0))
	assert.Zero(t, Average(120, 0))
	assert.InDelta(t, 40.0, Average(120, 3), 0.001)
}
