package calendar

import "time"

type CalendarDay struct {
	Date      time.Time `json:"date" db:"date"`
	Minutes   int       `json:"minutes" db:"minutes"`
	UnderGoal *bool     `json:"under_goal"` // nil when no daily goal is set or nothing was logged
	IsToday   bool      `json:"is_today"`
}

type CalendarResponse struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Days  []*CalendarDay `json:"days"`
}
