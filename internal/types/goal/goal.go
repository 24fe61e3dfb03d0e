package goal

import (
	"time"

	"github.com/google/uuid"
)

type GoalType string

const (
	GoalDaily  GoalType = "daily"
	GoalWeekly GoalType = "weekly"
)

func (t GoalType) Valid() bool {
	return t == GoalDaily || t == GoalWeekly
}

// Goal is a per-user usage ceiling, at most one per (user, goal_type).
// The daily goal feeds streak qualification.
type Goal struct {
	ID            int64     `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	GoalType      GoalType  `json:"goal_type" db:"goal_type"`
	TargetMinutes int       `json:"target_minutes" db:"target_minutes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type UpsertRequest struct {
	GoalType      GoalType `json:"goal_type" validate:"required"`
	TargetMinutes int      `json:"target_minutes" validate:"required"`
}
