package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"logOffAPI/internal/streak"
	"logOffAPI/internal/types/challenge"
	"logOffAPI/internal/types/friendship"
	"logOffAPI/internal/types/user"
	"logOffAPI/utils"
)

// UserService syncs Clerk users into the local table and serves profile,
// friends and stats reads. streak_count and total_points on the users row
// are a cache; RefreshEngagementCache recomputes them from logs and they
// are never read back as a source of truth.
type UserService struct {
	db            *pgxpool.Pool
	notifications *NotificationService
	achievements  *AchievementService
}

func NewUserService(db *pgxpool.Pool, notifications *NotificationService, achievements *AchievementService) *UserService {
	return &UserService{db: db, notifications: notifications, achievements: achievements}
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	u := &user.User{
		ID:        uuid.New().String(),
		ClerkID:   req.ClerkID,
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		ImageURL:  req.ImageURL,
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO users (id, clerk_id, email, username, first_name, last_name, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (clerk_id) DO UPDATE SET
			email = EXCLUDED.email,
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			image_url = EXCLUDED.image_url,
			updated_at = NOW()
		RETURNING id, email_verified, created_at, updated_at
	`, u.ID, u.ClerkID, u.Email, u.Username, u.FirstName, u.LastName, u.ImageURL).
		Scan(&u.ID, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (s *UserService) UpdateUserByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET username = COALESCE(NULLIF($2, ''), username),
		    first_name = COALESCE(NULLIF($3, ''), first_name),
		    last_name = COALESCE(NULLIF($4, ''), last_name),
		    image_url = COALESCE(NULLIF($5, ''), image_url),
		    updated_at = NOW()
		WHERE clerk_id = $1
	`, clerkID, req.Username, req.FirstName, req.LastName, req.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return s.GetUserByClerkID(ctx, clerkID)
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	u := &user.User{}
	err := s.db.QueryRow(ctx, `
		SELECT id, clerk_id, email, username, first_name, last_name, image_url,
		       email_verified, streak_count, total_points, created_at, updated_at
		FROM users
		WHERE clerk_id = $1
	`, clerkID).Scan(
		&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.ImageURL,
		&u.EmailVerified, &u.StreakCount, &u.TotalPoints, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *UserService) MarkEmailVerified(ctx context.Context, clerkID string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE clerk_id = $1
	`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	return nil
}

func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("user not found")
	}
	return nil
}

// SearchUsers finds users by username prefix, excluding the caller,
// flagging existing friends.
func (s *UserService) SearchUsers(ctx context.Context, clerkID, query string) ([]*user.SearchResult, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalidf("search query is required")
	}

	rows, err := s.db.Query(ctx, `
		SELECT u.id, u.username, u.image_url,
		       EXISTS(
		           SELECT 1 FROM friendships f
		           WHERE ((f.user_id = $1 AND f.friend_id = u.id)
		              OR  (f.user_id = u.id AND f.friend_id = $1))
		             AND f.status = 'accepted'
		       )
		FROM users u
		WHERE u.id <> $1 AND u.username ILIKE $2 || '%'
		ORDER BY u.username ASC
		LIMIT 20
	`, userID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	results := []*user.SearchResult{}
	for rows.Next() {
		r := &user.SearchResult{}
		if err := rows.Scan(&r.ID, &r.Username, &r.ImageURL, &r.IsFriend); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *UserService) GetFriends(ctx context.Context, clerkID string) ([]*friendship.Friend, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT u.id, u.username, NULLIF(u.image_url, ''), u.streak_count
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.user_id = $1 THEN f.friend_id ELSE f.user_id END
		WHERE (f.user_id = $1 OR f.friend_id = $1) AND f.status = 'accepted'
		ORDER BY u.username ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get friends: %w", err)
	}
	defer rows.Close()

	friends := []*friendship.Friend{}
	for rows.Next() {
		f := &friendship.Friend{}
		if err := rows.Scan(&f.ID, &f.Username, &f.ImageURL, &f.Streak); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

func (s *UserService) AddFriend(ctx context.Context, clerkID string, friendID uuid.UUID) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}
	if friendID == userID {
		return invalidf("cannot add yourself as a friend")
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO friendships (user_id, friend_id, status)
		SELECT $1, id, 'accepted' FROM users WHERE id = $2
		ON CONFLICT (user_id, friend_id) DO NOTHING
	`, userID, friendID)
	if err != nil {
		return fmt.Errorf("failed to add friend: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Unknown user or already friends; tell the caller which.
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, friendID).Scan(&exists); err == nil && !exists {
			return notFoundf("user %s not found", friendID)
		}
		return nil
	}

	if s.notifications != nil {
		var username string
		if err := s.db.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, userID).Scan(&username); err == nil {
			utils.NotifyFriendAdded(s.notifications, userID, username, friendID)
		}
	}
	s.achievements.CheckFriends(ctx, userID)
	s.achievements.CheckFriends(ctx, friendID)
	return nil
}

func (s *UserService) RemoveFriend(ctx context.Context, clerkID string, friendID uuid.UUID) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
		DELETE FROM friendships
		WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
	`, userID, friendID)
	if err != nil {
		return fmt.Errorf("failed to remove friend: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("not friends with %s", friendID)
	}
	return nil
}

// GetUserStats recomputes the profile stats from logs for the current
// month window.
func (s *UserService) GetUserStats(ctx context.Context, clerkID string) (*user.Stats, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	days, dailyGoal, err := s.monthDayTotals(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := today()
	st := &user.Stats{
		CurrentStreak: streak.Current(days, dailyGoal, now),
		LongestStreak: streak.Longest(days, dailyGoal),
	}
	for _, d := range days {
		st.TotalMinutesMonth += d.Minutes
		if d.Minutes > 0 {
			st.DaysLoggedMonth++
		}
		if d.Date.Equal(now) {
			st.TodayMinutes = d.Minutes
		}
	}

	err = s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM challenge_participants WHERE user_id = $1 AND is_winner),
			(SELECT COUNT(*) FROM user_achievements WHERE user_id = $1),
			(SELECT COUNT(*) FROM friendships
			 WHERE (user_id = $1 OR friend_id = $1) AND status = 'accepted')
	`, userID).Scan(&st.ChallengesWon, &st.AchievementsCount, &st.FriendsCount)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile counters: %w", err)
	}

	st.DisciplineScore = utils.DisciplineScore(st.CurrentStreak, st.DaysLoggedMonth, st.AchievementsCount)
	return st, nil
}

// RefreshEngagementCache recomputes the denormalized streak_count and
// total_points columns on the users row. Best effort; the columns are only
// a display cache.
func (s *UserService) RefreshEngagementCache(ctx context.Context, userID uuid.UUID) error {
	days, dailyGoal, err := s.monthDayTotals(ctx, userID)
	if err != nil {
		return err
	}

	current := streak.Current(days, dailyGoal, today())

	var daysLogged, achievements int
	err = s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(DISTINCT log_date) FROM screen_time_logs WHERE user_id = $1 AND minutes > 0),
			(SELECT COUNT(*) FROM user_achievements WHERE user_id = $1)
	`, userID).Scan(&daysLogged, &achievements)
	if err != nil {
		return fmt.Errorf("failed to load engagement counters: %w", err)
	}

	points := int(utils.DisciplineScore(current, daysLogged, achievements))
	_, err = s.db.Exec(ctx, `
		UPDATE users SET streak_count = $2, total_points = $3, updated_at = NOW() WHERE id = $1
	`, userID, current, points)
	if err != nil {
		return fmt.Errorf("failed to refresh engagement cache: %w", err)
	}

	s.achievements.CheckStreak(ctx, userID, current)
	return nil
}

func (s *UserService) monthDayTotals(ctx context.Context, userID uuid.UUID) ([]streak.DayTotal, *int, error) {
	now := today()
	monthStart, _ := monthWindow(now)

	dailyGoal, err := dailyGoalMinutes(ctx, s.db, userID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT log_date, `+dayTotalExpr+` AS minutes
		FROM screen_time_logs
		WHERE user_id = $1 AND log_date >= $2 AND log_date <= $3
		GROUP BY log_date
	`, userID, monthStart, now)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load day totals: %w", err)
	}
	defer rows.Close()

	var days []streak.DayTotal
	for rows.Next() {
		var d streak.DayTotal
		var date time.Time
		if err := rows.Scan(&date, &d.Minutes); err != nil {
			return nil, nil, fmt.Errorf("failed to scan day total: %w", err)
		}
		d.Date = challenge.DateOf(date)
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return days, dailyGoal, nil
}
