package screentime

import (
	"time"

	"github.com/google/uuid"
)

// AppTotal is the pseudo app label some clients report for the device-wide
// daily total. It is stored like any other row but never summed together
// with per-app rows.
const AppTotal = "Total"

type Log struct {
	ID        int64     `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	AppName   string    `json:"app_name" db:"app_name"`
	LogDate   time.Time `json:"log_date" db:"log_date"`
	Minutes   int       `json:"minutes" db:"minutes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type LogRequest struct {
	AppName string `json:"app_name" validate:"required"`
	Date    string `json:"date" validate:"required"` // YYYY-MM-DD
	Minutes int    `json:"minutes"`
}

// DayUsage is one calendar day's combined minutes across the rows that
// matched whatever filter produced it.
type DayUsage struct {
	Date    time.Time `json:"date" db:"date"`
	Minutes int       `json:"minutes" db:"minutes"`
}

type UsageStats struct {
	TodayMinutes    int     `json:"today_minutes"`
	WeekMinutes     int     `json:"week_minutes"`
	MonthMinutes    int     `json:"month_minutes"`
	DaysLoggedMonth int     `json:"days_logged_month"`
	AveragePerDay   float64 `json:"average_per_day"`
	CurrentStreak   int     `json:"current_streak"`
	LongestStreak   int     `json:"longest_streak"`
}
