package utils

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"logOffAPI/internal/notification"
)

// NotificationCreator is the single method the trigger helpers need from
// the notification service.
type NotificationCreator interface {
	CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error)
}

// NotifyChallengeInvites fans an invitation notification out to every
// newly invited user. Failures are logged per user and swallowed; the
// invitation itself is already committed.
func NotifyChallengeInvites(notifier NotificationCreator, actorID uuid.UUID, actorName string, challengeID int64, challengeName string, userIDs []uuid.UUID) {
	bgCtx := context.Background()

	for _, userID := range userIDs {
		req := &notification.CreateNotificationRequest{
			UserID:   userID,
			Type:     notification.TypeChallengeInvite,
			Priority: notification.PriorityHigh,
			ActorID:  &actorID,
			Title:    "Challenge invitation",
			Body:     fmt.Sprintf("%s invited you to %q", actorName, challengeName),
			Data: map[string]any{
				"challenge_id": challengeID,
				"username":     actorName,
			},
		}
		if _, err := notifier.CreateNotification(bgCtx, req); err != nil {
			log.Printf("Failed to create invite notification for user %s: %v", userID, err)
		}
	}
}

// ChallengeResult is one participant's outcome of a finished challenge.
type ChallengeResult struct {
	UserID   uuid.UUID
	Rank     int
	IsWinner bool
}

// NotifyChallengeResults tells every ranked participant how the challenge
// ended.
func NotifyChallengeResults(notifier NotificationCreator, challengeID int64, challengeName string, results []ChallengeResult) {
	bgCtx := context.Background()

	for _, r := range results {
		body := fmt.Sprintf("%q finished. You placed #%d.", challengeName, r.Rank)
		if r.IsWinner {
			body = fmt.Sprintf("%q finished. You won!", challengeName)
		}
		req := &notification.CreateNotificationRequest{
			UserID:   r.UserID,
			Type:     notification.TypeChallengeCompleted,
			Priority: notification.PriorityHigh,
			Title:    "Challenge finished",
			Body:     body,
			Data: map[string]any{
				"challenge_id": challengeID,
				"rank":         r.Rank,
				"is_winner":    r.IsWinner,
			},
		}
		if _, err := notifier.CreateNotification(bgCtx, req); err != nil {
			log.Printf("Failed to create result notification for user %s: %v", r.UserID, err)
		}
	}
}

// NotifyFriendAdded tells a user someone added them as a friend.
func NotifyFriendAdded(notifier NotificationCreator, actorID uuid.UUID, actorName string, friendID uuid.UUID) {
	req := &notification.CreateNotificationRequest{
		UserID:   friendID,
		Type:     notification.TypeFriendRequest,
		Priority: notification.PriorityNormal,
		ActorID:  &actorID,
		Title:    "New friend",
		Body:     fmt.Sprintf("%s added you as a friend", actorName),
		Data:     map[string]any{"username": actorName},
	}
	if _, err := notifier.CreateNotification(context.Background(), req); err != nil {
		log.Printf("Failed to create friend notification for user %s: %v", friendID, err)
	}
}
