package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logOffAPI/internal/types/leaderboard"
)

func TestGlobalLeaderboard_LimitValidation(t *testing.T) {
	s := NewLeaderboardService(nil, nil)

	for _, limit := range []int{0, -5, 101, 1000} {
		_, err := s.GlobalLeaderboard(context.Background(), "user_any", limit)
		assert.ErrorIs(t, err, ErrValidation, "limit=%d", limit)
	}
}

func insertLog(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, appName string, date time.Time, minutes int) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO screen_time_logs (user_id, app_name, log_date, minutes)
		VALUES ($1, $2, $3, $4)
	`, userID, appName, date, minutes)
	require.NoError(t, err)
}

func findEntry(entries []*leaderboard.Entry, userID uuid.UUID) (int, *leaderboard.Entry) {
	for i, e := range entries {
		if e.UserID == userID {
			return i, e
		}
	}
	return -1, nil
}

func TestGlobalLeaderboard_Ordering(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	// All three log exactly today so their streaks tie at 1 and the board
	// falls back to average daily minutes ascending.
	lightClerkID, lightID := createTestUser(t, pool, "light")
	_, midID := createTestUser(t, pool, "mid")
	_, heavyID := createTestUser(t, pool, "heavy")
	_, silentID := createTestUser(t, pool, "silent")

	today := time.Now().UTC()
	insertLog(t, pool, lightID, "Instagram", today, 10)
	insertLog(t, pool, midID, "Instagram", today, 30)

	// Per-app rows outweigh a stale device-reported total for the same day.
	insertLog(t, pool, heavyID, "Instagram", today, 20)
	insertLog(t, pool, heavyID, "TikTok", today, 30)
	insertLog(t, pool, heavyID, "Total", today, 40)

	// A zero-minute log alone does not put a user on the board.
	insertLog(t, pool, silentID, "Instagram", today, 0)

	// The mid user stays under a daily goal, which still counts as one
	// streak day, same as the goalless users.
	_, err := pool.Exec(ctx, `
		INSERT INTO goals (user_id, goal_type, target_minutes) VALUES ($1, 'daily', 60)
	`, midID)
	require.NoError(t, err)

	s := NewLeaderboardService(pool, nil)
	board, err := s.GlobalLeaderboard(ctx, lightClerkID, 100)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, board.TotalUsers, 3)

	lightIdx, lightEntry := findEntry(board.Entries, lightID)
	midIdx, midEntry := findEntry(board.Entries, midID)
	heavyIdx, heavyEntry := findEntry(board.Entries, heavyID)
	silentIdx, _ := findEntry(board.Entries, silentID)

	require.NotNil(t, lightEntry)
	require.NotNil(t, midEntry)
	require.NotNil(t, heavyEntry)
	assert.Equal(t, -1, silentIdx)

	assert.Less(t, lightIdx, midIdx)
	assert.Less(t, midIdx, heavyIdx)

	assert.InDelta(t, 10.0, lightEntry.AveragePerDay, 0.001)
	assert.InDelta(t, 30.0, midEntry.AveragePerDay, 0.001)
	assert.InDelta(t, 50.0, heavyEntry.AveragePerDay, 0.001)
	assert.Equal(t, 50, heavyEntry.TotalMinutes)

	// The caller's own position is reported even outside the page.
	require.NotNil(t, board.UserPosition)
	assert.Equal(t, lightID, board.UserPosition.UserID)
	assert.Equal(t, lightEntry.Rank, board.UserPosition.Rank)

	// Ranks on the global board are sequential, no ties.
	for i := 1; i < len(board.Entries); i++ {
		assert.Equal(t, board.Entries[i-1].Rank+1, board.Entries[i].Rank)
	}
}
