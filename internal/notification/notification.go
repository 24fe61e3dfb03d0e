package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeChallengeInvite    NotificationType = "challenge_invite"
	TypeChallengeCompleted NotificationType = "challenge_completed"
	TypeAchievement        NotificationType = "achievement"
	TypeFriendRequest      NotificationType = "friend_request"
	TypeStreakMilestone    NotificationType = "streak_milestone"
	TypeStreakRisk         NotificationType = "streak_risk"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

type NotificationStatus string

const (
	StatusPending NotificationStatus = "pending"
	StatusSent    NotificationStatus = "sent"
	StatusFailed  NotificationStatus = "failed"
	StatusRead    NotificationStatus = "read"
)

type Notification struct {
	ID        uuid.UUID            `json:"id" db:"id"`
	UserID    uuid.UUID            `json:"user_id" db:"user_id"`
	Type      NotificationType     `json:"type" db:"type"`
	Priority  NotificationPriority `json:"priority" db:"priority"`
	Status    NotificationStatus   `json:"status" db:"status"`
	Title     string               `json:"title" db:"title"`
	Body      string               `json:"body" db:"body"`
	Data      map[string]any       `json:"data" db:"data"`
	ActorID   *uuid.UUID           `json:"actor_id,omitempty" db:"actor_id"`
	ReadAt    *time.Time           `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time            `json:"created_at" db:"created_at"`
}

type DeviceToken struct {
	Token    string    `json:"token"`
	Platform string    `json:"platform"`
	AddedAt  time.Time `json:"added_at"`
	LastUsed time.Time `json:"last_used"`
}

// Preferences controls delivery channels for one user. DeviceTokens is
// stored as a JSONB column on the row.
type Preferences struct {
	UserID       uuid.UUID     `json:"user_id" db:"user_id"`
	PushEnabled  bool          `json:"push_enabled" db:"push_enabled"`
	EmailEnabled bool          `json:"email_enabled" db:"email_enabled"`
	Email        string        `json:"-"`
	DeviceTokens []DeviceToken `json:"device_tokens" db:"device_tokens"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}
