package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"logOffAPI/internal/stats"
	"logOffAPI/internal/types/challenge"
)

// StatsService recomputes one participant's challenge aggregates from the
// screen time log. Everything it writes is derived; running it twice over
// unchanged logs produces the same row.
type StatsService struct {
	db *pgxpool.Pool
}

func NewStatsService(db *pgxpool.Pool) *StatsService {
	return &StatsService{db: db}
}

// Recompute rebuilds the stats columns of the (challengeID, userID)
// participant row from every log row inside the challenge window that
// matches the challenge target. A missing challenge or a user without an
// accepted participant row is a no-op, not an error, so callers can fan
// out speculatively.
func (s *StatsService) Recompute(ctx context.Context, challengeID int64, userID uuid.UUID) error {
	var ch challenge.Challenge
	var rawTarget string
	err := s.db.QueryRow(ctx, `
		SELECT id, target_app, target_minutes, start_date, end_date
		FROM challenges
		WHERE id = $1
	`, challengeID).Scan(&ch.ID, &rawTarget, &ch.TargetMinutes, &ch.StartDate, &ch.EndDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("failed to load challenge %d: %w", challengeID, err)
	}
	target := challenge.ParseTarget(rawTarget)

	var participantID int64
	err = s.db.QueryRow(ctx, `
		SELECT id FROM challenge_participants
		WHERE challenge_id = $1 AND user_id = $2 AND invitation_status = 'accepted'
	`, challengeID, userID).Scan(&participantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("failed to load participant: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT app_name, log_date, minutes
		FROM screen_time_logs
		WHERE user_id = $1 AND log_date >= $2 AND log_date <= $3
	`, userID, ch.StartDate, ch.EndDate)
	if err != nil {
		return fmt.Errorf("failed to load logs: %w", err)
	}
	defer rows.Close()

	var matched []stats.LogRow
	for rows.Next() {
		var row stats.LogRow
		var appName string
		if err := rows.Scan(&appName, &row.Date, &row.Minutes); err != nil {
			return fmt.Errorf("failed to scan log row: %w", err)
		}
		if target.Matches(appName) {
			matched = append(matched, row)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read logs: %w", err)
	}

	totals := stats.Compute(matched, ch.TargetMinutes, today())

	_, err = s.db.Exec(ctx, `
		UPDATE challenge_participants
		SET days_logged = $2,
		    total_screen_time_minutes = $3,
		    days_passed = $4,
		    days_failed = $5,
		    today_minutes = $6,
		    today_passed = $7,
		    updated_at = NOW()
		WHERE id = $1
	`, participantID,
		totals.DaysLogged,
		totals.TotalMinutes,
		totals.DaysPassed,
		totals.DaysFailed,
		totals.TodayMinutes,
		totals.TodayPassed,
	)
	if err != nil {
		statsRecomputes.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to persist participant stats: %w", err)
	}

	statsRecomputes.WithLabelValues("ok").Inc()
	return nil
}
