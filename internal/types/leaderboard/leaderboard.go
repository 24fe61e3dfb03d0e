package leaderboard

import "github.com/google/uuid"

// Entry is one row on the global monthly board. The window is the current
// calendar month truncated at today; users without a positive-minute day in
// the window do not appear at all.
type Entry struct {
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Username      string    `json:"username" db:"username"`
	ImageURL      *string   `json:"image_url" db:"image_url"`
	Streak        int       `json:"streak"`
	TotalMinutes  int       `json:"total_minutes"`
	DaysLogged    int       `json:"days_logged"`
	AveragePerDay float64   `json:"average_per_day"`
	Rank          int       `json:"rank"`
}

type Leaderboard struct {
	Entries      []*Entry `json:"entries"`
	UserPosition *Entry   `json:"user_position"`
	TotalUsers   int      `json:"total_users"`
}
