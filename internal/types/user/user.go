package user

import "time"

type User struct {
	ID            string    `json:"id"`
	ClerkID       string    `json:"clerkId"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	StreakCount   int       `json:"streak_count"`
	TotalPoints   int       `json:"total_points"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type CreateUserRequest struct {
	ClerkID   string `json:"clerkId" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,min=3,max=30"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

type UpdateProfileRequest struct {
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// Stats is the profile stats payload. streak_count and total_points on the
// users row are a cache of CurrentStreak and DisciplineScore; this struct is
// always recomputed from logs.
type Stats struct {
	TodayMinutes      int     `json:"today_minutes"`
	DaysLoggedMonth   int     `json:"days_logged_month"`
	TotalMinutesMonth int     `json:"total_minutes_month"`
	CurrentStreak     int     `json:"current_streak"`
	LongestStreak     int     `json:"longest_streak"`
	ChallengesWon     int     `json:"challenges_won"`
	AchievementsCount int     `json:"achievements_count"`
	FriendsCount      int     `json:"friends_count"`
	DisciplineScore   float64 `json:"discipline_score"`
}

type SearchResult struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	ImageURL string `json:"imageUrl,omitempty"`
	IsFriend bool   `json:"is_friend"`
}
