package stats

import "time"

// LogRow is one screen-time row that already matched a challenge's window
// and target filter.
type LogRow struct {
	Date    time.Time
	Minutes int
}

// Totals is the recomputed aggregate portion of a participant row.
type Totals struct {
	DaysLogged   int
	TotalMinutes int
	DaysPassed   int
	DaysFailed   int
	TodayMinutes int
	TodayPassed  *bool
}

// Compute groups rows by calendar day and derives the participant
// aggregates against the challenge's daily target. A day passes when its
// total is at or under the target, so days_passed + days_failed always
// equals days_logged. TodayPassed stays nil when today has no matching row,
// including when today is outside the challenge window. today must be a UTC
// calendar day. Computing twice over the same rows yields identical totals.
func Compute(rows []LogRow, targetMinutes int, today time.Time) Totals {
	byDay := make(map[time.Time]int, len(rows))
	for _, r := range rows {
		byDay[dateOf(r.Date)] += r.Minutes
	}

	var t Totals
	for _, total := range byDay {
		t.DaysLogged++
		t.TotalMinutes += total
		if total <= targetMinutes {
			t.DaysPassed++
		} else {
			t.DaysFailed++
		}
	}

	if total, ok := byDay[today]; ok {
		t.TodayMinutes = total
		passed := total <= targetMinutes
		t.TodayPassed = &passed
	}
	return t
}

// Average is total minutes over logged days, zero when nothing was logged.
func Average(totalMinutes, daysLogged int) float64 {
	if daysLogged == 0 {
		return 0
	}
	return float64(totalMinutes) / float64(daysLogged)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
