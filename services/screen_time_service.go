package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"logOffAPI/internal/stats"
	"logOffAPI/internal/streak"
	"logOffAPI/internal/types/calendar"
	"logOffAPI/internal/types/challenge"
	"logOffAPI/internal/types/screentime"
)

// ScreenTimeService owns the log table and the fan-out that keeps
// challenge stats current. The log write always commits first; recomputes
// run after it and their failures are contained.
type ScreenTimeService struct {
	db           *pgxpool.Pool
	stats        *StatsService
	achievements *AchievementService
	users        *UserService
}

func NewScreenTimeService(db *pgxpool.Pool, stats *StatsService, achievements *AchievementService, users *UserService) *ScreenTimeService {
	return &ScreenTimeService{
		db:           db,
		stats:        stats,
		achievements: achievements,
		users:        users,
	}
}

// LogScreenTime upserts the (user, app, date) log row, then recomputes
// stats for every active challenge the user is an accepted participant of
// whose window covers the date and whose target matches the app. A single
// failed recompute is logged and skipped; it never fails the log write nor
// the other challenges' recomputes.
func (s *ScreenTimeService) LogScreenTime(ctx context.Context, clerkID string, req *screentime.LogRequest) (*screentime.Log, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	appName := strings.TrimSpace(req.AppName)
	if appName == "" {
		return nil, invalidf("app_name is required")
	}
	if req.Minutes < 0 {
		return nil, invalidf("minutes must be zero or positive")
	}
	logDate, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if logDate.After(today()) {
		return nil, invalidf("cannot log screen time for a future date")
	}

	entry := &screentime.Log{UserID: userID, AppName: appName, LogDate: logDate, Minutes: req.Minutes}
	err = s.db.QueryRow(ctx, `
		INSERT INTO screen_time_logs (user_id, app_name, log_date, minutes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, app_name, log_date)
		DO UPDATE SET minutes = EXCLUDED.minutes, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, userID, appName, logDate, req.Minutes).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to write screen time log: %w", err)
	}

	s.fanOutRecompute(ctx, userID, appName, logDate)

	// Side effects past this point never touch the committed log.
	s.achievements.CheckDaysLogged(ctx, userID)
	if s.users != nil {
		if err := s.users.RefreshEngagementCache(ctx, userID); err != nil {
			log.Printf("LogScreenTime: failed to refresh engagement cache: %v", err)
		}
	}

	return entry, nil
}

func (s *ScreenTimeService) fanOutRecompute(ctx context.Context, userID uuid.UUID, appName string, logDate time.Time) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.target_app
		FROM challenges c
		JOIN challenge_participants p ON p.challenge_id = c.id
		WHERE p.user_id = $1
		  AND p.invitation_status = 'accepted'
		  AND c.status NOT IN ('completed', 'deleted')
		  AND c.start_date <= $2 AND c.end_date >= $2
	`, userID, logDate)
	if err != nil {
		log.Printf("LogScreenTime: failed to find challenges for recompute: %v", err)
		return
	}
	defer rows.Close()

	type match struct {
		id     int64
		target challenge.Target
	}
	var matches []match
	for rows.Next() {
		var m match
		var rawTarget string
		if err := rows.Scan(&m.id, &rawTarget); err != nil {
			log.Printf("LogScreenTime: failed to scan challenge: %v", err)
			continue
		}
		m.target = challenge.ParseTarget(rawTarget)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		log.Printf("LogScreenTime: failed to read challenges: %v", err)
	}

	for _, m := range matches {
		if !m.target.Matches(appName) {
			continue
		}
		if err := s.stats.Recompute(ctx, m.id, userID); err != nil {
			log.Printf("LogScreenTime: recompute failed for challenge %d: %v", m.id, err)
		}
	}
}

// Calendar returns one month of day totals with goal pass/fail coloring.
func (s *ScreenTimeService) Calendar(ctx context.Context, clerkID string, year, month int) (*calendar.CalendarResponse, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	if month < 1 || month > 12 {
		return nil, invalidf("month must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		return nil, invalidf("year out of range")
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	totals, err := s.dayTotals(ctx, userID, first, last)
	if err != nil {
		return nil, err
	}

	dailyGoal, err := dailyGoalMinutes(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	now := today()
	resp := &calendar.CalendarResponse{Year: year, Month: month, Days: []*calendar.CalendarDay{}}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		day := &calendar.CalendarDay{Date: d, Minutes: totals[d], IsToday: d.Equal(now)}
		if dailyGoal != nil && day.Minutes > 0 {
			under := day.Minutes <= *dailyGoal
			day.UnderGoal = &under
		}
		resp.Days = append(resp.Days, day)
	}
	return resp, nil
}

// UsageStats summarizes the caller's recent usage: today, the last seven
// days, the current month, and streaks within the month window.
func (s *ScreenTimeService) UsageStats(ctx context.Context, clerkID string) (*screentime.UsageStats, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	now := today()
	monthStart, _ := monthWindow(now)
	weekStart := now.AddDate(0, 0, -6)
	from := monthStart
	if weekStart.Before(from) {
		from = weekStart
	}

	totals, err := s.dayTotals(ctx, userID, from, now)
	if err != nil {
		return nil, err
	}

	dailyGoal, err := dailyGoalMinutes(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	usage := &screentime.UsageStats{TodayMinutes: totals[now]}
	var monthDays []streak.DayTotal
	for d, minutes := range totals {
		if !d.Before(weekStart) {
			usage.WeekMinutes += minutes
		}
		if !d.Before(monthStart) {
			usage.MonthMinutes += minutes
			if minutes > 0 {
				usage.DaysLoggedMonth++
			}
			monthDays = append(monthDays, streak.DayTotal{Date: d, Minutes: minutes})
		}
	}
	usage.AveragePerDay = stats.Average(usage.MonthMinutes, usage.DaysLoggedMonth)
	usage.CurrentStreak = streak.Current(monthDays, dailyGoal, now)
	usage.LongestStreak = streak.Longest(monthDays, dailyGoal)
	return usage, nil
}

// dayTotals loads the per-day combined minutes for one user over [from, to].
func (s *ScreenTimeService) dayTotals(ctx context.Context, userID uuid.UUID, from, to time.Time) (map[time.Time]int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT log_date, `+dayTotalExpr+` AS minutes
		FROM screen_time_logs
		WHERE user_id = $1 AND log_date >= $2 AND log_date <= $3
		GROUP BY log_date
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load day totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[time.Time]int)
	for rows.Next() {
		var d time.Time
		var minutes int
		if err := rows.Scan(&d, &minutes); err != nil {
			return nil, fmt.Errorf("failed to scan day total: %w", err)
		}
		totals[challenge.DateOf(d)] = minutes
	}
	return totals, rows.Err()
}
