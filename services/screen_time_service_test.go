package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logOffAPI/internal/types/screentime"
)

func TestLogScreenTime_Validation(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	clerkID, _ := createTestUser(t, pool, "logger")
	s := NewScreenTimeService(pool, NewStatsService(pool), nil, nil)

	today := time.Now().UTC().Format("2006-01-02")
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	cases := []struct {
		name string
		req  screentime.LogRequest
	}{
		{"empty app name", screentime.LogRequest{AppName: "  ", Date: today, Minutes: 10}},
		{"negative minutes", screentime.LogRequest{AppName: "TikTok", Date: today, Minutes: -1}},
		{"future date", screentime.LogRequest{AppName: "TikTok", Date: tomorrow, Minutes: 10}},
		{"bad date", screentime.LogRequest{AppName: "TikTok", Date: "yesterday", Minutes: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.LogScreenTime(ctx, clerkID, &tc.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err := s.LogScreenTime(ctx, "user_svc_test_missing", &screentime.LogRequest{
		AppName: "TikTok", Date: today, Minutes: 10,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogScreenTime_UpsertOverwrites(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	clerkID, userID := createTestUser(t, pool, "upserter")
	s := NewScreenTimeService(pool, NewStatsService(pool), nil, nil)

	today := time.Now().UTC().Format("2006-01-02")

	first, err := s.LogScreenTime(ctx, clerkID, &screentime.LogRequest{
		AppName: "TikTok", Date: today, Minutes: 45,
	})
	require.NoError(t, err)

	// A second report for the same app and day replaces, never accumulates.
	second, err := s.LogScreenTime(ctx, clerkID, &screentime.LogRequest{
		AppName: "TikTok", Date: today, Minutes: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 60, second.Minutes)

	var count, minutes int
	err = pool.QueryRow(ctx, `
		SELECT COUNT(*), MAX(minutes) FROM screen_time_logs
		WHERE user_id = $1 AND app_name = 'TikTok'
	`, userID).Scan(&count, &minutes)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 60, minutes)
}

func TestCalendar_Validation(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	clerkID, _ := createTestUser(t, pool, "calendar")
	s := NewScreenTimeService(pool, NewStatsService(pool), nil, nil)

	_, err := s.Calendar(ctx, clerkID, 2026, 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.Calendar(ctx, clerkID, 2026, 13)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.Calendar(ctx, clerkID, 1990, 6)
	assert.ErrorIs(t, err, ErrValidation)

	resp, err := s.Calendar(ctx, clerkID, 2026, 2)
	require.NoError(t, err)
	assert.Equal(t, 2026, resp.Year)
	assert.Len(t, resp.Days, 28)
}
