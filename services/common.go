package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"logOffAPI/internal/types/challenge"
)

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, invalidf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

func today() time.Time {
	return challenge.DateOf(time.Now())
}

// monthWindow returns the first day of today's calendar month and today,
// the window every monthly rollup operates on.
func monthWindow(today time.Time) (time.Time, time.Time) {
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first, today
}

// resolveUserID maps the authenticated Clerk ID to the internal user id.
func resolveUserID(ctx context.Context, db *pgxpool.Pool, clerkID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, notFoundf("user not found")
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return id, nil
}

// dayTotalExpr combines one user's rows for a day into a single total.
// Per-app rows are summed with the "Total" pseudo row left out so a day is
// never counted twice; when a client only reports the device-wide "Total"
// row, that row stands in for the day.
const dayTotalExpr = `GREATEST(
		COALESCE(SUM(minutes) FILTER (WHERE app_name <> 'Total'), 0),
		COALESCE(MAX(minutes) FILTER (WHERE app_name = 'Total'), 0)
	)`
