package streak

import (
	"sort"
	"time"
)

// DayTotal is one calendar day's combined usage minutes.
type DayTotal struct {
	Date    time.Time
	Minutes int
}

// Longest returns the length in days of the longest run of consecutive
// calendar days that qualify. A day qualifies when its total is above zero
// and, if dailyGoal is set, at or under the goal. A day with no log, an
// explicit zero-minute day, and an over-goal day all reset the run, so a
// single missing calendar day splits a streak in two.
func Longest(days []DayTotal, dailyGoal *int) int {
	totals := dayTotals(days)

	dates := make([]time.Time, 0, len(totals))
	for d := range totals {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	longest, current := 0, 0
	for i, d := range dates {
		if !qualifies(totals[d], dailyGoal) {
			current = 0
			continue
		}
		if current > 0 && i > 0 && d.Sub(dates[i-1]) == 24*time.Hour {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
	}
	return longest
}

// Current returns the qualifying run ending at today. A today with no
// qualifying total does not break the run by itself; the user still has
// the rest of the day to log, so the count falls back to the run ending
// yesterday. today must be a UTC calendar day.
func Current(days []DayTotal, dailyGoal *int, today time.Time) int {
	totals := dayTotals(days)

	day := today
	if !qualifies(totals[day], dailyGoal) {
		day = day.AddDate(0, 0, -1)
	}

	count := 0
	for qualifies(totals[day], dailyGoal) {
		count++
		day = day.AddDate(0, 0, -1)
	}
	return count
}

func qualifies(minutes int, dailyGoal *int) bool {
	if minutes <= 0 {
		return false
	}
	return dailyGoal == nil || minutes <= *dailyGoal
}

func dayTotals(days []DayTotal) map[time.Time]int {
	totals := make(map[time.Time]int, len(days))
	for _, d := range days {
		totals[dateOf(d.Date)] += d.Minutes
	}
	return totals
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
