package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"logOffAPI/internal/types/goal"
)

// GoalService manages the per-user usage ceilings, at most one per
// (user, goal_type). The daily goal feeds streak qualification.
type GoalService struct {
	db *pgxpool.Pool
}

func NewGoalService(db *pgxpool.Pool) *GoalService {
	return &GoalService{db: db}
}

func (s *GoalService) ListGoals(ctx context.Context, clerkID string) ([]*goal.Goal, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, goal_type, target_minutes, created_at, updated_at
		FROM goals
		WHERE user_id = $1
		ORDER BY goal_type ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	goals := []*goal.Goal{}
	for rows.Next() {
		g := &goal.Goal{}
		if err := rows.Scan(&g.ID, &g.UserID, &g.GoalType, &g.TargetMinutes, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (s *GoalService) UpsertGoal(ctx context.Context, clerkID string, req *goal.UpsertRequest) (*goal.Goal, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	if !req.GoalType.Valid() {
		return nil, invalidf("goal_type must be daily or weekly")
	}
	if req.TargetMinutes <= 0 {
		return nil, invalidf("target_minutes must be positive")
	}

	g := &goal.Goal{UserID: userID, GoalType: req.GoalType, TargetMinutes: req.TargetMinutes}
	err = s.db.QueryRow(ctx, `
		INSERT INTO goals (user_id, goal_type, target_minutes)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, goal_type)
		DO UPDATE SET target_minutes = EXCLUDED.target_minutes, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, userID, req.GoalType, req.TargetMinutes).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert goal: %w", err)
	}
	return g, nil
}

func (s *GoalService) DeleteGoal(ctx context.Context, clerkID string, goalType goal.GoalType) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}
	if !goalType.Valid() {
		return invalidf("goal_type must be daily or weekly")
	}

	tag, err := s.db.Exec(ctx, `
		DELETE FROM goals WHERE user_id = $1 AND goal_type = $2
	`, userID, goalType)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("no %s goal set", goalType)
	}
	return nil
}

// dailyGoalMinutes loads the user's daily goal, nil when none is set.
func dailyGoalMinutes(ctx context.Context, db *pgxpool.Pool, userID uuid.UUID) (*int, error) {
	var minutes int
	err := db.QueryRow(ctx, `
		SELECT target_minutes FROM goals WHERE user_id = $1 AND goal_type = 'daily'
	`, userID).Scan(&minutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load daily goal: %w", err)
	}
	return &minutes, nil
}
