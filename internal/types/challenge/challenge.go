package challenge

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"logOffAPI/internal/types/screentime"
)

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusDeleted   Status = "deleted"
)

// TargetSentinel is the stored value for a challenge that counts every app.
const TargetSentinel = "ALL"

// Target is which app a challenge counts: a specific app label, or all apps.
// The zero value targets all apps.
type Target struct {
	app string
}

func AllApps() Target { return Target{} }

func AppTarget(name string) Target { return Target{app: name} }

// ParseTarget maps the stored/wire representation to a Target. "ALL"
// (any casing) and the empty string mean all apps.
func ParseTarget(s string) Target {
	if s == "" || strings.EqualFold(s, TargetSentinel) {
		return Target{}
	}
	return Target{app: s}
}

func (t Target) IsAll() bool { return t.app == "" }

func (t Target) App() (string, bool) { return t.app, t.app != "" }

// Matches reports whether a log row for appName counts toward this target.
// All-apps targets skip the "Total" pseudo rows so a day is never counted
// twice; app-specific targets match exactly.
func (t Target) Matches(appName string) bool {
	if t.IsAll() {
		return appName != screentime.AppTotal
	}
	return appName == t.app
}

func (t Target) String() string {
	if t.IsAll() {
		return TargetSentinel
	}
	return t.app
}

func (t Target) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Target) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseTarget(s)
	return nil
}

type Challenge struct {
	ID            int64      `json:"id" db:"id"`
	OwnerID       uuid.UUID  `json:"owner_id" db:"owner_id"`
	Name          string     `json:"name" db:"name"`
	TargetApp     Target     `json:"target_app" db:"target_app"`
	TargetMinutes int        `json:"target_minutes" db:"target_minutes"`
	StartDate     time.Time  `json:"start_date" db:"start_date"`
	EndDate       time.Time  `json:"end_date" db:"end_date"`
	Status        Status     `json:"status" db:"status"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// EffectiveStatus derives the presented status from the window. The stored
// column is only written on create, completion and deletion; a challenge
// created as upcoming becomes active purely by the calendar advancing, and
// once the window has fully passed it reads as completed even if the
// finalization write has not landed yet (the ranks backfill on the next
// successful sweep). today must be a UTC calendar day (midnight), as
// produced by DateOf.
func (c *Challenge) EffectiveStatus(today time.Time) Status {
	if c.Status == StatusCompleted || c.Status == StatusDeleted {
		return c.Status
	}
	if today.Before(c.StartDate) {
		return StatusUpcoming
	}
	if c.EndDate.Before(today) {
		return StatusCompleted
	}
	return StatusActive
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

type Participant struct {
	ID                     int64            `json:"id" db:"id"`
	ChallengeID            int64            `json:"challenge_id" db:"challenge_id"`
	UserID                 uuid.UUID        `json:"user_id" db:"user_id"`
	InvitationStatus       InvitationStatus `json:"invitation_status" db:"invitation_status"`
	DaysLogged             int              `json:"days_logged" db:"days_logged"`
	TotalScreenTimeMinutes int              `json:"total_screen_time_minutes" db:"total_screen_time_minutes"`
	DaysPassed             int              `json:"days_passed" db:"days_passed"`
	DaysFailed             int              `json:"days_failed" db:"days_failed"`
	TodayMinutes           int              `json:"today_minutes" db:"today_minutes"`
	TodayPassed            *bool            `json:"today_passed" db:"today_passed"`
	FinalRank              *int             `json:"final_rank,omitempty" db:"final_rank"`
	IsWinner               bool             `json:"is_winner" db:"is_winner"`
	ChallengeCompleted     bool             `json:"challenge_completed" db:"challenge_completed"`
	CreatedAt              time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at" db:"updated_at"`
}

// WithProgress is a challenge plus the requesting user's own participant row.
type WithProgress struct {
	Challenge
	Participant      *Participant `json:"participant,omitempty"`
	ParticipantCount int          `json:"participant_count"`
}

type CreateRequest struct {
	Name           string      `json:"name" validate:"required"`
	TargetApp      string      `json:"target_app"`
	TargetMinutes  int         `json:"target_minutes"`
	StartDate      string      `json:"start_date" validate:"required"` // YYYY-MM-DD
	EndDate        string      `json:"end_date" validate:"required"`
	InvitedUserIDs []uuid.UUID `json:"invited_user_ids"`
}

type RenameRequest struct {
	Name string `json:"name" validate:"required"`
}

type InviteRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" validate:"required"`
}

type RespondRequest struct {
	Accept bool `json:"accept"`
}
