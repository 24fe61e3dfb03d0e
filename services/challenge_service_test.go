package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logOffAPI/internal/db"
	"logOffAPI/internal/types/challenge"
	"logOffAPI/internal/types/screentime"
)

// setupTestDB connects to the test database and applies migrations. Tests
// that need Postgres are skipped when no database is configured.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL not set, skipping database test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err, "failed to connect to test database")
	require.NoError(t, pool.Ping(ctx), "failed to ping test database")
	require.NoError(t, db.Migrate(pool), "failed to run migrations")

	t.Cleanup(func() {
		_, err := pool.Exec(ctx, "DELETE FROM users WHERE clerk_id LIKE 'user_svc_test_%'")
		if err != nil {
			t.Logf("Warning: failed to cleanup test data: %v", err)
		}
		pool.Close()
	})
	return pool
}

// createTestUser inserts a user directly and returns its Clerk ID and
// internal ID. Deleting the user cascades to everything the tests create.
func createTestUser(t *testing.T, pool *pgxpool.Pool, username string) (string, uuid.UUID) {
	t.Helper()

	id := uuid.New()
	clerkID := fmt.Sprintf("user_svc_test_%s_%s", username, id.String()[:8])
	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (id, clerk_id, email, username)
		VALUES ($1, $2, $3, $4)
	`, id, clerkID, clerkID+"@example.com", username+"_"+id.String()[:8])
	require.NoError(t, err)
	return clerkID, id
}

func newTestChallengeService(pool *pgxpool.Pool) *ChallengeService {
	return NewChallengeService(pool, NewStatsService(pool), nil, nil)
}

func TestChallengeLifecycle_FullFlow(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	ownerClerkID, _ := createTestUser(t, pool, "owner")
	inviteeClerkID, inviteeID := createTestUser(t, pool, "invitee")

	statsService := NewStatsService(pool)
	challengeService := NewChallengeService(pool, statsService, nil, nil)
	screenTimeService := NewScreenTimeService(pool, statsService, nil, NewUserService(pool, nil, nil))

	today := time.Now().UTC().Format("2006-01-02")
	endDate := time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02")

	ch, err := challengeService.CreateChallenge(ctx, ownerClerkID, &challenge.CreateRequest{
		Name:           "TikTok detox",
		TargetApp:      "TikTok",
		TargetMinutes:  60,
		StartDate:      today,
		EndDate:        endDate,
		InvitedUserIDs: []uuid.UUID{inviteeID},
	})
	require.NoError(t, err)
	assert.Equal(t, challenge.StatusActive, ch.Status)
	assert.Equal(t, "TikTok", ch.TargetApp.String())

	// The invitee sees the challenge with a pending invitation.
	inviteeList, err := challengeService.ListForUser(ctx, inviteeClerkID)
	require.NoError(t, err)
	require.Len(t, inviteeList, 1)
	require.NotNil(t, inviteeList[0].Participant)
	assert.Equal(t, challenge.InvitationPending, inviteeList[0].Participant.InvitationStatus)

	participantID := inviteeList[0].Participant.ID

	// Only the invited user may respond.
	err = challengeService.RespondToInvitation(ctx, ownerClerkID, participantID, true)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, challengeService.RespondToInvitation(ctx, inviteeClerkID, participantID, true))

	// Responding twice is rejected.
	err = challengeService.RespondToInvitation(ctx, inviteeClerkID, participantID, false)
	assert.ErrorIs(t, err, ErrValidation)

	// The owner logs under target, the invitee over it.
	_, err = screenTimeService.LogScreenTime(ctx, ownerClerkID, &screentime.LogRequest{
		AppName: "TikTok", Date: today, Minutes: 30,
	})
	require.NoError(t, err)
	_, err = screenTimeService.LogScreenTime(ctx, inviteeClerkID, &screentime.LogRequest{
		AppName: "TikTok", Date: today, Minutes: 90,
	})
	require.NoError(t, err)

	// Logs for other apps, even huge ones, and the device-wide "Total"
	// pseudo row do not count toward an app-specific challenge.
	_, err = screenTimeService.LogScreenTime(ctx, ownerClerkID, &screentime.LogRequest{
		AppName: "Instagram", Date: today, Minutes: 999,
	})
	require.NoError(t, err)
	_, err = screenTimeService.LogScreenTime(ctx, ownerClerkID, &screentime.LogRequest{
		AppName: "Total", Date: today, Minutes: 1029,
	})
	require.NoError(t, err)

	ownerView, err := challengeService.GetByID(ctx, ownerClerkID, ch.ID)
	require.NoError(t, err)
	require.NotNil(t, ownerView.Participant)
	assert.Equal(t, 1, ownerView.Participant.DaysLogged)
	assert.Equal(t, 30, ownerView.Participant.TotalScreenTimeMinutes)
	assert.Equal(t, 1, ownerView.Participant.DaysPassed)
	assert.Equal(t, 30, ownerView.Participant.TodayMinutes)

	board, err := challengeService.Leaderboard(ctx, ownerClerkID, ch.ID)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, 1, board[0].Rank)
	assert.InDelta(t, 30.0, board[0].Average, 0.001)
	assert.Equal(t, 2, board[1].Rank)
	assert.InDelta(t, 90.0, board[1].Average, 0.001)

	// The owner cannot leave, only delete.
	err = challengeService.LeaveChallenge(ctx, ownerClerkID, ch.ID)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, challengeService.LeaveChallenge(ctx, inviteeClerkID, ch.ID))
	require.NoError(t, challengeService.DeleteChallenge(ctx, ownerClerkID, ch.ID))

	// Deleted challenges disappear from listings and lookups.
	ownerList, err := challengeService.ListForUser(ctx, ownerClerkID)
	require.NoError(t, err)
	assert.Empty(t, ownerList)

	_, err = challengeService.GetByID(ctx, ownerClerkID, ch.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChallengeFinalization_OnExpiredRead(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	aliceClerkID, aliceID := createTestUser(t, pool, "alice")
	_, bobID := createTestUser(t, pool, "bob")
	_, carolID := createTestUser(t, pool, "carol")
	_, daveID := createTestUser(t, pool, "dave")

	challengeService := newTestChallengeService(pool)

	// An already-expired challenge, as if the app was closed for a week.
	start := time.Now().UTC().AddDate(0, 0, -6)
	end := time.Now().UTC().AddDate(0, 0, -2)
	var challengeID int64
	err := pool.QueryRow(ctx, `
		INSERT INTO challenges (owner_id, name, target_app, target_minutes, start_date, end_date, status)
		VALUES ($1, 'Detox week', 'ALL', 60, $2, $3, 'active')
		RETURNING id
	`, aliceID, start, end).Scan(&challengeID)
	require.NoError(t, err)

	participants := []struct {
		userID uuid.UUID
		total  int
		days   int
	}{
		{aliceID, 100, 2}, // avg 50
		{bobID, 100, 2},   // avg 50, ties alice
		{carolID, 240, 2}, // avg 120
		{daveID, 0, 0},    // never logged, counts as 0
	}
	for _, p := range participants {
		_, err := pool.Exec(ctx, `
			INSERT INTO challenge_participants (challenge_id, user_id, invitation_status, total_screen_time_minutes, days_logged)
			VALUES ($1, $2, 'accepted', $3, $4)
		`, challengeID, p.userID, p.total, p.days)
		require.NoError(t, err)
	}

	// Listing triggers finalization.
	list, err := challengeService.ListForUser(ctx, aliceClerkID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, challenge.StatusCompleted, list[0].Status)
	require.NotNil(t, list[0].Participant.FinalRank)
	assert.Equal(t, 2, *list[0].Participant.FinalRank)
	assert.True(t, list[0].Participant.ChallengeCompleted)

	var status string
	var completedAt *time.Time
	err = pool.QueryRow(ctx, `SELECT status, completed_at FROM challenges WHERE id = $1`, challengeID).Scan(&status, &completedAt)
	require.NoError(t, err)
	assert.Equal(t, "completed", status)
	assert.NotNil(t, completedAt)

	// Final standings use competition ranking: dave's zero average wins,
	// alice and bob share second, carol drops to fourth.
	board, err := challengeService.Leaderboard(ctx, aliceClerkID, challengeID)
	require.NoError(t, err)
	require.Len(t, board, 4)

	assert.Equal(t, daveID, board[0].UserID)
	assert.Equal(t, 1, board[0].Rank)
	assert.True(t, board[0].IsWinner)

	assert.Equal(t, 2, board[1].Rank)
	assert.Equal(t, 2, board[2].Rank)
	assert.False(t, board[1].IsWinner)
	assert.False(t, board[2].IsWinner)

	assert.Equal(t, carolID, board[3].UserID)
	assert.Equal(t, 4, board[3].Rank)

	// A completed challenge can no longer be deleted or renamed.
	err = challengeService.DeleteChallenge(ctx, aliceClerkID, challengeID)
	assert.ErrorIs(t, err, ErrValidation)
	err = challengeService.Rename(ctx, aliceClerkID, challengeID, "Too late")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteChallenge_ExpiredFinalizesFirst(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	ownerClerkID, ownerID := createTestUser(t, pool, "expowner")
	_, rivalID := createTestUser(t, pool, "exprival")

	challengeService := newTestChallengeService(pool)

	start := time.Now().UTC().AddDate(0, 0, -5)
	end := time.Now().UTC().AddDate(0, 0, -1)
	var challengeID int64
	err := pool.QueryRow(ctx, `
		INSERT INTO challenges (owner_id, name, target_app, target_minutes, start_date, end_date, status)
		VALUES ($1, 'Gone week', 'ALL', 60, $2, $3, 'active')
		RETURNING id
	`, ownerID, start, end).Scan(&challengeID)
	require.NoError(t, err)

	for _, p := range []struct {
		userID uuid.UUID
		total  int
		days   int
	}{{ownerID, 80, 2}, {rivalID, 200, 2}} {
		_, err := pool.Exec(ctx, `
			INSERT INTO challenge_participants (challenge_id, user_id, invitation_status, total_screen_time_minutes, days_logged)
			VALUES ($1, $2, 'accepted', $3, $4)
		`, challengeID, p.userID, p.total, p.days)
		require.NoError(t, err)
	}

	// Deleting an expired challenge completes it first, so the delete is
	// rejected and the participants keep their final standings.
	err = challengeService.DeleteChallenge(ctx, ownerClerkID, challengeID)
	assert.ErrorIs(t, err, ErrValidation)

	var status string
	err = pool.QueryRow(ctx, `SELECT status FROM challenges WHERE id = $1`, challengeID).Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, "completed", status)

	var ownerRank *int
	var ownerWinner bool
	err = pool.QueryRow(ctx, `
		SELECT final_rank, is_winner FROM challenge_participants
		WHERE challenge_id = $1 AND user_id = $2
	`, challengeID, ownerID).Scan(&ownerRank, &ownerWinner)
	require.NoError(t, err)
	require.NotNil(t, ownerRank)
	assert.Equal(t, 1, *ownerRank)
	assert.True(t, ownerWinner)
}

func TestCreateChallenge_Validation(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	clerkID, _ := createTestUser(t, pool, "creator")
	challengeService := newTestChallengeService(pool)

	today := time.Now().UTC().Format("2006-01-02")
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	cases := []struct {
		name string
		req  challenge.CreateRequest
	}{
		{"empty name", challenge.CreateRequest{Name: "  ", StartDate: today, EndDate: tomorrow}},
		{"negative target", challenge.CreateRequest{Name: "x", TargetMinutes: -1, StartDate: today, EndDate: tomorrow}},
		{"past start", challenge.CreateRequest{Name: "x", StartDate: yesterday, EndDate: tomorrow}},
		{"end before start", challenge.CreateRequest{Name: "x", StartDate: tomorrow, EndDate: today}},
		{"bad date format", challenge.CreateRequest{Name: "x", StartDate: "30/08/2026", EndDate: tomorrow}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := challengeService.CreateChallenge(ctx, clerkID, &tc.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}
