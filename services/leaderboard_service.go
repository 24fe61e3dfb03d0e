package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"logOffAPI/internal/cache"
	"logOffAPI/internal/ranking"
	"logOffAPI/internal/stats"
	"logOffAPI/internal/streak"
	"logOffAPI/internal/types/challenge"
	"logOffAPI/internal/types/leaderboard"
)

const (
	// DefaultLeaderboardLimit applies when the caller sends no limit at all.
	DefaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 100
	leaderboardCacheTTL     = 5 * time.Minute
)

// LeaderboardService builds the global monthly board: every user with at
// least one positive-minute day this month, ordered by longest goal-aware
// streak descending and average daily minutes ascending. This is the one
// operation that scans all users, so results are cached for a short TTL.
type LeaderboardService struct {
	db    *pgxpool.Pool
	cache cache.Cache
}

func NewLeaderboardService(db *pgxpool.Pool, c cache.Cache) *LeaderboardService {
	return &LeaderboardService{db: db, cache: c}
}

func (s *LeaderboardService) GlobalLeaderboard(ctx context.Context, clerkID string, limit int) (*leaderboard.Leaderboard, error) {
	if limit < 1 || limit > maxLeaderboardLimit {
		return nil, invalidf("limit must be between 1 and %d", maxLeaderboardLimit)
	}

	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	now := today()
	entries, err := s.monthEntries(ctx, now)
	if err != nil {
		return nil, err
	}

	board := &leaderboard.Leaderboard{TotalUsers: len(entries), Entries: []*leaderboard.Entry{}}
	for i, e := range entries {
		if e.UserID == userID {
			board.UserPosition = entries[i]
		}
		if i < limit {
			board.Entries = append(board.Entries, entries[i])
		}
	}
	return board, nil
}

// monthEntries computes (or loads from cache) the fully ranked board for
// the current month window. The cache key changes daily, so truncation at
// today never serves yesterday's window.
func (s *LeaderboardService) monthEntries(ctx context.Context, now time.Time) ([]*leaderboard.Entry, error) {
	cacheKey := fmt.Sprintf("leaderboard:global:%s", now.Format("2006-01-02"))
	if s.cache != nil {
		var cached []*leaderboard.Entry
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			log.Printf("GlobalLeaderboard: cache read failed: %v", err)
		} else if hit {
			leaderboardBuilds.WithLabelValues("cache").Inc()
			return cached, nil
		}
	}

	entries, err := s.buildMonthEntries(ctx, now)
	if err != nil {
		return nil, err
	}
	leaderboardBuilds.WithLabelValues("computed").Inc()

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, entries, leaderboardCacheTTL); err != nil {
			log.Printf("GlobalLeaderboard: cache write failed: %v", err)
		}
	}
	return entries, nil
}

func (s *LeaderboardService) buildMonthEntries(ctx context.Context, now time.Time) ([]*leaderboard.Entry, error) {
	monthStart, _ := monthWindow(now)

	rows, err := s.db.Query(ctx, `
		SELECT l.user_id, u.username, NULLIF(u.image_url, ''), g.target_minutes,
		       l.log_date, `+dayTotalExpr+` AS minutes
		FROM screen_time_logs l
		JOIN users u ON u.id = l.user_id
		LEFT JOIN goals g ON g.user_id = l.user_id AND g.goal_type = 'daily'
		WHERE l.log_date >= $1 AND l.log_date <= $2
		GROUP BY l.user_id, u.username, u.image_url, g.target_minutes, l.log_date
	`, monthStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load month day totals: %w", err)
	}
	defer rows.Close()

	type userDays struct {
		entry     *leaderboard.Entry
		dailyGoal *int
		days      []streak.DayTotal
	}
	byUser := make(map[uuid.UUID]*userDays)
	for rows.Next() {
		var (
			id        uuid.UUID
			username  string
			image     *string
			dailyGoal *int
			date      time.Time
			minutes   int
		)
		if err := rows.Scan(&id, &username, &image, &dailyGoal, &date, &minutes); err != nil {
			return nil, fmt.Errorf("failed to scan day total: %w", err)
		}
		u, ok := byUser[id]
		if !ok {
			u = &userDays{
				entry:     &leaderboard.Entry{UserID: id, Username: username, ImageURL: image},
				dailyGoal: dailyGoal,
			}
			byUser[id] = u
		}
		if minutes > 0 {
			u.entry.DaysLogged++
			u.entry.TotalMinutes += minutes
			u.days = append(u.days, streak.DayTotal{Date: challenge.DateOf(date), Minutes: minutes})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read month day totals: %w", err)
	}

	entries := make([]*leaderboard.Entry, 0, len(byUser))
	for _, u := range byUser {
		// A user whose every logged day is zero minutes does not appear.
		if u.entry.DaysLogged == 0 {
			continue
		}
		u.entry.AveragePerDay = stats.Average(u.entry.TotalMinutes, u.entry.DaysLogged)
		u.entry.Streak = streak.Longest(u.days, u.dailyGoal)
		entries = append(entries, u.entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return ranking.BoardLess(boardKey(entries[i]), boardKey(entries[j]))
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func boardKey(e *leaderboard.Entry) ranking.BoardKey {
	return ranking.BoardKey{
		Streak:   e.Streak,
		Average:  e.AveragePerDay,
		Username: e.Username,
		UserID:   e.UserID,
	}
}
