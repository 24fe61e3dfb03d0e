package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"logOffAPI/internal/types/achievement"
	"logOffAPI/internal/notification"
)

// AchievementService unlocks badges when a user crosses a criteria
// threshold. Every Check* entry point is best effort: it logs failures and
// never propagates them, so a badge hiccup cannot fail the business
// operation that triggered it.
type AchievementService struct {
	db            *pgxpool.Pool
	notifications *NotificationService
}

func NewAchievementService(db *pgxpool.Pool, notifications *NotificationService) *AchievementService {
	return &AchievementService{db: db, notifications: notifications}
}

// GetAchievements returns the full catalog with the user's unlock state.
func (s *AchievementService) GetAchievements(ctx context.Context, clerkID string) ([]*achievement.AchievementWithStatus, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT a.id, a.name, a.description, a.icon, a.criteria_type, a.criteria_value,
		       a.created_at, ua.unlocked_at
		FROM achievements a
		LEFT JOIN user_achievements ua ON ua.achievement_id = a.id AND ua.user_id = $1
		ORDER BY a.criteria_type ASC, a.criteria_value ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}
	defer rows.Close()

	result := []*achievement.AchievementWithStatus{}
	for rows.Next() {
		a := &achievement.AchievementWithStatus{}
		err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Icon, &a.CriteriaType,
			&a.CriteriaValue, &a.CreatedAt, &a.UnlockedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		a.Unlocked = a.UnlockedAt != nil
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *AchievementService) CheckChallengesJoined(ctx context.Context, userID uuid.UUID) {
	if s == nil {
		return
	}
	var joined int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM challenge_participants
		WHERE user_id = $1 AND invitation_status = 'accepted'
	`, userID).Scan(&joined)
	if err != nil {
		log.Printf("CheckChallengesJoined: %v", err)
		return
	}
	s.unlock(ctx, userID, achievement.CriteriaChallengesJoined, joined)
}

func (s *AchievementService) CheckChallengesWon(ctx context.Context, userID uuid.UUID) {
	if s == nil {
		return
	}
	var won int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM challenge_participants WHERE user_id = $1 AND is_winner
	`, userID).Scan(&won)
	if err != nil {
		log.Printf("CheckChallengesWon: %v", err)
		return
	}
	s.unlock(ctx, userID, achievement.CriteriaChallengesWon, won)
}

func (s *AchievementService) CheckDaysLogged(ctx context.Context, userID uuid.UUID) {
	if s == nil {
		return
	}
	var days int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT log_date) FROM screen_time_logs
		WHERE user_id = $1 AND minutes > 0
	`, userID).Scan(&days)
	if err != nil {
		log.Printf("CheckDaysLogged: %v", err)
		return
	}
	s.unlock(ctx, userID, achievement.CriteriaDaysLogged, days)
}

func (s *AchievementService) CheckStreak(ctx context.Context, userID uuid.UUID, currentStreak int) {
	if s == nil {
		return
	}
	s.unlock(ctx, userID, achievement.CriteriaStreak, currentStreak)
}

func (s *AchievementService) CheckFriends(ctx context.Context, userID uuid.UUID) {
	if s == nil {
		return
	}
	var friends int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM friendships
		WHERE (user_id = $1 OR friend_id = $1) AND status = 'accepted'
	`, userID).Scan(&friends)
	if err != nil {
		log.Printf("CheckFriends: %v", err)
		return
	}
	s.unlock(ctx, userID, achievement.CriteriaFriends, friends)
}

// unlock awards every locked badge of the criteria type whose threshold
// the value has reached.
func (s *AchievementService) unlock(ctx context.Context, userID uuid.UUID, criteria achievement.CriteriaType, value int) {
	rows, err := s.db.Query(ctx, `
		INSERT INTO user_achievements (user_id, achievement_id)
		SELECT $1, a.id FROM achievements a
		WHERE a.criteria_type = $2 AND a.criteria_value <= $3
		ON CONFLICT (user_id, achievement_id) DO NOTHING
		RETURNING achievement_id
	`, userID, criteria, value)
	if err != nil {
		log.Printf("unlock achievements: %v", err)
		return
	}
	defer rows.Close()

	var unlocked []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			log.Printf("unlock achievements: %v", err)
			return
		}
		unlocked = append(unlocked, id)
	}
	if err := rows.Err(); err != nil {
		log.Printf("unlock achievements: %v", err)
		return
	}

	for _, id := range unlocked {
		s.notifyUnlocked(ctx, userID, id)
	}
}

func (s *AchievementService) notifyUnlocked(ctx context.Context, userID uuid.UUID, achievementID int64) {
	if s.notifications == nil {
		return
	}
	var name, icon string
	err := s.db.QueryRow(ctx, `SELECT name, icon FROM achievements WHERE id = $1`, achievementID).Scan(&name, &icon)
	if err != nil {
		log.Printf("notifyUnlocked: %v", err)
		return
	}

	_, err = s.notifications.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID:   userID,
		Type:     notification.TypeAchievement,
		Priority: notification.PriorityNormal,
		Title:    "Badge unlocked",
		Body:     fmt.Sprintf("You earned the %q badge.", name),
		Data:     map[string]any{"achievement_id": achievementID, "icon": icon},
	})
	if err != nil {
		log.Printf("notifyUnlocked: %v", err)
	}
}
