package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"logOffAPI/internal/ranking"
	"logOffAPI/internal/types/challenge"
	"logOffAPI/utils"
)

// ChallengeService owns the challenge lifecycle: creation, invitations,
// membership, and the lazy finalization of expired challenges. There is no
// background sweeper; every read path that touches a challenge first gives
// it the chance to complete.
type ChallengeService struct {
	db            *pgxpool.Pool
	stats         *StatsService
	achievements  *AchievementService
	notifications *NotificationService
}

func NewChallengeService(db *pgxpool.Pool, stats *StatsService, achievements *AchievementService, notifications *NotificationService) *ChallengeService {
	return &ChallengeService{
		db:            db,
		stats:         stats,
		achievements:  achievements,
		notifications: notifications,
	}
}

func (s *ChallengeService) CreateChallenge(ctx context.Context, clerkID string, req *challenge.CreateRequest) (*challenge.Challenge, error) {
	ownerID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Name) == "" {
		return nil, invalidf("challenge name is required")
	}
	if req.TargetMinutes < 0 {
		return nil, invalidf("target_minutes must be zero or positive")
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return nil, err
	}
	now := today()
	if startDate.Before(now) {
		return nil, invalidf("start_date cannot be in the past")
	}
	if endDate.Before(startDate) {
		return nil, invalidf("end_date cannot be before start_date")
	}

	status := challenge.StatusUpcoming
	if startDate.Equal(now) {
		status = challenge.StatusActive
	}
	target := challenge.ParseTarget(req.TargetApp)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ch := &challenge.Challenge{
		OwnerID:       ownerID,
		Name:          strings.TrimSpace(req.Name),
		TargetApp:     target,
		TargetMinutes: req.TargetMinutes,
		StartDate:     startDate,
		EndDate:       endDate,
		Status:        status,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO challenges (owner_id, name, target_app, target_minutes, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, ownerID, ch.Name, target.String(), req.TargetMinutes, startDate, endDate, status).Scan(&ch.ID, &ch.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	// The owner joins their own challenge immediately.
	_, err = tx.Exec(ctx, `
		INSERT INTO challenge_participants (challenge_id, user_id, invitation_status)
		VALUES ($1, $2, 'accepted')
	`, ch.ID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to add owner participant: %w", err)
	}

	invited := make([]uuid.UUID, 0, len(req.InvitedUserIDs))
	for _, id := range req.InvitedUserIDs {
		if id == ownerID {
			continue
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO challenge_participants (challenge_id, user_id, invitation_status)
			SELECT $1, id, 'pending' FROM users WHERE id = $2
			ON CONFLICT (challenge_id, user_id) DO NOTHING
		`, ch.ID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to invite user %s: %w", id, err)
		}
		if tag.RowsAffected() > 0 {
			invited = append(invited, id)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit challenge: %w", err)
	}

	s.notifyInvited(ctx, ch, ownerID, invited)
	s.achievements.CheckChallengesJoined(ctx, ownerID)

	return ch, nil
}

// ListForUser returns every non-deleted challenge the user owns, joined or
// is invited to, with their own participant row attached. Listing is the
// main lazy-finalization trigger: each expired challenge gets finalized
// first, and one challenge failing never hides the rest.
func (s *ChallengeService) ListForUser(ctx context.Context, clerkID string) ([]*challenge.WithProgress, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	if err := s.finalizeExpiredForUser(ctx, userID); err != nil {
		log.Printf("ListForUser: finalization sweep failed: %v", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.owner_id, c.name, c.target_app, c.target_minutes,
		       c.start_date, c.end_date, c.status, c.completed_at, c.created_at,
		       p.id, p.invitation_status, p.days_logged, p.total_screen_time_minutes,
		       p.days_passed, p.days_failed, p.today_minutes, p.today_passed,
		       p.final_rank, p.is_winner, p.challenge_completed, p.created_at, p.updated_at,
		       (SELECT COUNT(*) FROM challenge_participants a
		        WHERE a.challenge_id = c.id AND a.invitation_status = 'accepted')
		FROM challenges c
		JOIN challenge_participants p ON p.challenge_id = c.id
		WHERE p.user_id = $1
		  AND p.invitation_status <> 'declined'
		  AND c.status <> 'deleted'
		ORDER BY c.end_date ASC, c.id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	now := today()
	result := []*challenge.WithProgress{}
	for rows.Next() {
		var (
			item      challenge.WithProgress
			p         challenge.Participant
			rawTarget string
		)
		err := rows.Scan(
			&item.ID, &item.OwnerID, &item.Name, &rawTarget, &item.TargetMinutes,
			&item.StartDate, &item.EndDate, &item.Status, &item.CompletedAt, &item.CreatedAt,
			&p.ID, &p.InvitationStatus, &p.DaysLogged, &p.TotalScreenTimeMinutes,
			&p.DaysPassed, &p.DaysFailed, &p.TodayMinutes, &p.TodayPassed,
			&p.FinalRank, &p.IsWinner, &p.ChallengeCompleted, &p.CreatedAt, &p.UpdatedAt,
			&item.ParticipantCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		item.TargetApp = challenge.ParseTarget(rawTarget)
		item.Status = item.EffectiveStatus(now)
		p.ChallengeID = item.ID
		p.UserID = userID
		item.Participant = &p
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read challenges: %w", err)
	}
	return result, nil
}

// GetByID returns one challenge with the caller's participant row. Only
// participants (pending invitees included) may see a challenge.
func (s *ChallengeService) GetByID(ctx context.Context, clerkID string, challengeID int64) (*challenge.WithProgress, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	ch, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if ch.Status == challenge.StatusDeleted {
		return nil, notFoundf("challenge %d not found", challengeID)
	}

	if err := s.finalizeIfExpired(ctx, ch); err != nil {
		log.Printf("GetByID: failed to finalize challenge %d: %v", challengeID, err)
	}
	// Reload: finalization may have flipped status and participant rows.
	ch, err = s.loadChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	item := &challenge.WithProgress{Challenge: *ch}
	item.Status = item.EffectiveStatus(today())

	p := &challenge.Participant{}
	err = s.db.QueryRow(ctx, `
		SELECT id, challenge_id, user_id, invitation_status, days_logged,
		       total_screen_time_minutes, days_passed, days_failed, today_minutes,
		       today_passed, final_rank, is_winner, challenge_completed, created_at, updated_at
		FROM challenge_participants
		WHERE challenge_id = $1 AND user_id = $2
	`, challengeID, userID).Scan(
		&p.ID, &p.ChallengeID, &p.UserID, &p.InvitationStatus, &p.DaysLogged,
		&p.TotalScreenTimeMinutes, &p.DaysPassed, &p.DaysFailed, &p.TodayMinutes,
		&p.TodayPassed, &p.FinalRank, &p.IsWinner, &p.ChallengeCompleted, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, forbiddenf("not a participant of challenge %d", challengeID)
		}
		return nil, fmt.Errorf("failed to load participant: %w", err)
	}
	item.Participant = p

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM challenge_participants
		WHERE challenge_id = $1 AND invitation_status = 'accepted'
	`, challengeID).Scan(&item.ParticipantCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count participants: %w", err)
	}
	return item, nil
}

// LeaderboardRow is one line of a challenge's standings.
type LeaderboardRow struct {
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username"`
	ImageURL   *string   `json:"image_url"`
	Average    float64   `json:"average"`
	Total      int       `json:"total_screen_time_minutes"`
	DaysLogged int       `json:"days_logged"`
	Rank       int       `json:"rank"`
	IsWinner   bool      `json:"is_winner"`
}

// Leaderboard returns the challenge standings for a participant. For a
// completed challenge the stored final ranks are authoritative; while the
// challenge runs, standings are computed live and participants who have not
// logged anything yet are left off the board.
func (s *ChallengeService) Leaderboard(ctx context.Context, clerkID string, challengeID int64) ([]*LeaderboardRow, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	ch, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if ch.Status == challenge.StatusDeleted {
		return nil, notFoundf("challenge %d not found", challengeID)
	}

	var isParticipant bool
	err = s.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM challenge_participants
			WHERE challenge_id = $1 AND user_id = $2 AND invitation_status <> 'declined'
		)
	`, challengeID, userID).Scan(&isParticipant)
	if err != nil {
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}
	if !isParticipant {
		return nil, forbiddenf("not a participant of challenge %d", challengeID)
	}

	if err := s.finalizeIfExpired(ctx, ch); err != nil {
		log.Printf("Leaderboard: failed to finalize challenge %d: %v", challengeID, err)
	}
	ch, err = s.loadChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	if ch.Status == challenge.StatusCompleted {
		return s.storedLeaderboard(ctx, challengeID)
	}
	return s.liveLeaderboard(ctx, challengeID)
}

func (s *ChallengeService) storedLeaderboard(ctx context.Context, challengeID int64) ([]*LeaderboardRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT p.user_id, u.username, NULLIF(u.image_url, ''),
		       p.total_screen_time_minutes, p.days_logged, p.final_rank, p.is_winner
		FROM challenge_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.challenge_id = $1 AND p.invitation_status = 'accepted' AND p.final_rank IS NOT NULL
		ORDER BY p.final_rank ASC, u.username ASC
	`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load final standings: %w", err)
	}
	defer rows.Close()

	result := []*LeaderboardRow{}
	for rows.Next() {
		row := &LeaderboardRow{}
		var rank *int
		if err := rows.Scan(&row.UserID, &row.Username, &row.ImageURL, &row.Total, &row.DaysLogged, &rank, &row.IsWinner); err != nil {
			return nil, fmt.Errorf("failed to scan standing: %w", err)
		}
		if rank != nil {
			row.Rank = *rank
		}
		if row.DaysLogged > 0 {
			row.Average = float64(row.Total) / float64(row.DaysLogged)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *ChallengeService) liveLeaderboard(ctx context.Context, challengeID int64) ([]*LeaderboardRow, error) {
	entries, names, images, err := s.rankingEntries(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	ranked := ranking.Rank(entries, ranking.Options{DropUnlogged: true})
	result := make([]*LeaderboardRow, 0, len(ranked))
	for _, r := range ranked {
		result = append(result, &LeaderboardRow{
			UserID:     r.UserID,
			Username:   names[r.UserID],
			ImageURL:   images[r.UserID],
			Average:    r.Average,
			Total:      r.TotalMinutes,
			DaysLogged: r.DaysLogged,
			Rank:       r.Rank,
			IsWinner:   r.IsWinner,
		})
	}
	return result, nil
}

func (s *ChallengeService) rankingEntries(ctx context.Context, challengeID int64) ([]ranking.Entry, map[uuid.UUID]string, map[uuid.UUID]*string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT p.id, p.user_id, u.username, NULLIF(u.image_url, ''),
		       p.total_screen_time_minutes, p.days_logged
		FROM challenge_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.challenge_id = $1 AND p.invitation_status = 'accepted'
		ORDER BY p.id ASC
	`, challengeID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load participants: %w", err)
	}
	defer rows.Close()

	var entries []ranking.Entry
	names := make(map[uuid.UUID]string)
	images := make(map[uuid.UUID]*string)
	for rows.Next() {
		var e ranking.Entry
		var username string
		var image *string
		if err := rows.Scan(&e.ParticipantID, &e.UserID, &username, &image, &e.TotalMinutes, &e.DaysLogged); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		names[e.UserID] = username
		images[e.UserID] = image
		entries = append(entries, e)
	}
	return entries, names, images, rows.Err()
}

// InviteUsers invites more users to the challenge. Owner only; already
// invited users are skipped, not duplicated. Returns how many invitations
// were actually created.
func (s *ChallengeService) InviteUsers(ctx context.Context, clerkID string, challengeID int64, userIDs []uuid.UUID) (int, error) {
	ownerID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return 0, err
	}

	ch, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return 0, err
	}
	if ch.OwnerID != ownerID {
		return 0, forbiddenf("only the owner can invite users")
	}
	if ch.Status == challenge.StatusCompleted || ch.Status == challenge.StatusDeleted {
		return 0, invalidf("cannot invite users to a %s challenge", ch.Status)
	}

	invited := make([]uuid.UUID, 0, len(userIDs))
	for _, id := range userIDs {
		if id == ownerID {
			continue
		}
		tag, err := s.db.Exec(ctx, `
			INSERT INTO challenge_participants (challenge_id, user_id, invitation_status)
			SELECT $1, id, 'pending' FROM users WHERE id = $2
			ON CONFLICT (challenge_id, user_id) DO NOTHING
		`, challengeID, id)
		if err != nil {
			return len(invited), fmt.Errorf("failed to invite user %s: %w", id, err)
		}
		if tag.RowsAffected() > 0 {
			invited = append(invited, id)
		}
	}

	s.notifyInvited(ctx, ch, ownerID, invited)
	return len(invited), nil
}

// RespondToInvitation accepts or declines a pending invitation. Only the
// invited user may respond. Accepting backfills the participant's stats
// from logs that predate the invitation.
func (s *ChallengeService) RespondToInvitation(ctx context.Context, clerkID string, participantID int64, accept bool) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	var (
		challengeID     int64
		participantUser uuid.UUID
		status          challenge.InvitationStatus
		chStatus        challenge.Status
	)
	err = s.db.QueryRow(ctx, `
		SELECT p.challenge_id, p.user_id, p.invitation_status, c.status
		FROM challenge_participants p
		JOIN challenges c ON c.id = p.challenge_id
		WHERE p.id = $1
	`, participantID).Scan(&challengeID, &participantUser, &status, &chStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFoundf("invitation %d not found", participantID)
		}
		return fmt.Errorf("failed to load invitation: %w", err)
	}

	if participantUser != userID {
		return invalidf("invitation %d belongs to another user", participantID)
	}
	if status != challenge.InvitationPending {
		return invalidf("invitation %d was already %s", participantID, status)
	}
	if chStatus == challenge.StatusCompleted || chStatus == challenge.StatusDeleted {
		return invalidf("challenge is %s", chStatus)
	}

	newStatus := challenge.InvitationDeclined
	if accept {
		newStatus = challenge.InvitationAccepted
	}
	_, err = s.db.Exec(ctx, `
		UPDATE challenge_participants SET invitation_status = $2, updated_at = NOW()
		WHERE id = $1
	`, participantID, newStatus)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}

	if accept {
		if err := s.stats.Recompute(ctx, challengeID, userID); err != nil {
			log.Printf("RespondToInvitation: failed to backfill stats for participant %d: %v", participantID, err)
		}
		s.achievements.CheckChallengesJoined(ctx, userID)
	}
	return nil
}

// LeaveChallenge removes the caller's participant row. The owner cannot
// leave their own challenge; they delete it instead.
func (s *ChallengeService) LeaveChallenge(ctx context.Context, clerkID string, challengeID int64) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	ch, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return err
	}
	if ch.OwnerID == userID {
		return invalidf("the owner cannot leave their own challenge")
	}

	tag, err := s.db.Exec(ctx, `
		DELETE FROM challenge_participants WHERE challenge_id = $1 AND user_id = $2
	`, challengeID, userID)
	if err != nil {
		return fmt.Errorf("failed to leave challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("not a participant of challenge %d", challengeID)
	}
	return nil
}

// Rename changes the challenge name. Owner only, not on a finished or
// deleted challenge.
func (s *ChallengeService) Rename(ctx context.Context, clerkID string, challengeID int64, name string) error {
	ownerID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return invalidf("challenge name is required")
	}

	ch, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return err
	}
	if ch.OwnerID != ownerID {
		return forbiddenf("only the owner can rename a challenge")
	}
	if ch.Status == challenge.StatusCompleted || ch.Status == challenge.StatusDeleted {
		return invalidf("cannot rename a %s challenge", ch.Status)
	}

	_, err = s.db.Exec(ctx, `
		UPDATE challenges SET name = $2, updated_at = NOW() WHERE id = $1
	`, challengeID, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("failed to rename challenge: %w", err)
	}
	return nil
}

// DeleteChallenge soft deletes. Data is retained; a completed challenge
// can no longer be deleted.
func (s *ChallengeService) DeleteChallenge(ctx context.Context, clerkID string, challengeID int64) error {
	ownerID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	ch, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return err
	}
	if ch.OwnerID != ownerID {
		return forbiddenf("only the owner can delete a challenge")
	}

	// An expired challenge completes before the delete is considered, so
	// the participants keep their final ranks.
	if err := s.finalizeIfExpired(ctx, ch); err != nil {
		log.Printf("DeleteChallenge: failed to finalize challenge %d: %v", challengeID, err)
	}
	ch, err = s.loadChallenge(ctx, challengeID)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE challenges SET status = 'deleted', updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'deleted')
	`, challengeID)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return invalidf("challenge %d is already %s", challengeID, ch.Status)
	}
	return nil
}

func (s *ChallengeService) loadChallenge(ctx context.Context, challengeID int64) (*challenge.Challenge, error) {
	ch := &challenge.Challenge{}
	var rawTarget string
	err := s.db.QueryRow(ctx, `
		SELECT id, owner_id, name, target_app, target_minutes, start_date, end_date,
		       status, completed_at, created_at
		FROM challenges
		WHERE id = $1
	`, challengeID).Scan(
		&ch.ID, &ch.OwnerID, &ch.Name, &rawTarget, &ch.TargetMinutes,
		&ch.StartDate, &ch.EndDate, &ch.Status, &ch.CompletedAt, &ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("challenge %d not found", challengeID)
		}
		return nil, fmt.Errorf("failed to load challenge %d: %w", challengeID, err)
	}
	ch.TargetApp = challenge.ParseTarget(rawTarget)
	return ch, nil
}

// finalizeExpiredForUser finalizes every expired challenge the user can
// see. Failures are isolated per challenge so one bad finalization never
// blocks the rest of the listing.
func (s *ChallengeService) finalizeExpiredForUser(ctx context.Context, userID uuid.UUID) error {
	rows, err := s.db.Query(ctx, `
		SELECT c.id FROM challenges c
		JOIN challenge_participants p ON p.challenge_id = c.id
		WHERE p.user_id = $1
		  AND c.status NOT IN ('completed', 'deleted')
		  AND c.end_date < $2
	`, userID, today())
	if err != nil {
		return fmt.Errorf("failed to find expired challenges: %w", err)
	}
	defer rows.Close()

	var expired []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan challenge id: %w", err)
		}
		expired = append(expired, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range expired {
		if err := s.finalize(ctx, id); err != nil {
			challengeFinalizations.WithLabelValues("error").Inc()
			log.Printf("finalizeExpiredForUser: challenge %d: %v", id, err)
		}
	}
	return nil
}

func (s *ChallengeService) finalizeIfExpired(ctx context.Context, ch *challenge.Challenge) error {
	if ch.Status == challenge.StatusCompleted || ch.Status == challenge.StatusDeleted {
		return nil
	}
	if !ch.EndDate.Before(today()) {
		return nil
	}
	return s.finalize(ctx, ch.ID)
}

// finalize completes one expired challenge: rank the accepted participants
// by ascending average minutes, write back final_rank and is_winner, and
// flip the status. The status flip is a compare-and-set inside the same
// transaction, so two concurrent reads racing to finalize the same
// challenge leave exactly one winner of the race doing the work.
func (s *ChallengeService) finalize(ctx context.Context, challengeID int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin finalization: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE challenges SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'deleted') AND end_date < $2
	`, challengeID, today())
	if err != nil {
		return fmt.Errorf("failed to complete challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Lost the race, or the challenge is not actually expired.
		challengeFinalizations.WithLabelValues("skipped").Inc()
		return nil
	}

	rows, err := tx.Query(ctx, `
		SELECT id, user_id, total_screen_time_minutes, days_logged
		FROM challenge_participants
		WHERE challenge_id = $1 AND invitation_status = 'accepted'
		ORDER BY id ASC
	`, challengeID)
	if err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}

	var entries []ranking.Entry
	for rows.Next() {
		var e ranking.Entry
		if err := rows.Scan(&e.ParticipantID, &e.UserID, &e.TotalMinutes, &e.DaysLogged); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	ranked := ranking.Rank(entries, ranking.Options{DropUnlogged: false})
	for _, r := range ranked {
		_, err := tx.Exec(ctx, `
			UPDATE challenge_participants
			SET final_rank = $2, is_winner = $3, challenge_completed = TRUE, updated_at = NOW()
			WHERE id = $1
		`, r.ParticipantID, r.Rank, r.IsWinner)
		if err != nil {
			return fmt.Errorf("failed to persist rank for participant %d: %w", r.ParticipantID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit finalization: %w", err)
	}
	challengeFinalizations.WithLabelValues("completed").Inc()

	// Everything after the commit is best effort.
	for _, r := range ranked {
		if r.IsWinner {
			s.achievements.CheckChallengesWon(ctx, r.UserID)
		}
	}
	s.notifyCompleted(ctx, challengeID, ranked)
	return nil
}

func (s *ChallengeService) notifyInvited(ctx context.Context, ch *challenge.Challenge, ownerID uuid.UUID, userIDs []uuid.UUID) {
	if s.notifications == nil || len(userIDs) == 0 {
		return
	}
	var ownerName string
	if err := s.db.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, ownerID).Scan(&ownerName); err != nil {
		log.Printf("notifyInvited: failed to load owner name: %v", err)
	}
	utils.NotifyChallengeInvites(s.notifications, ownerID, ownerName, ch.ID, ch.Name, userIDs)
}

func (s *ChallengeService) notifyCompleted(ctx context.Context, challengeID int64, ranked []ranking.Ranked) {
	if s.notifications == nil {
		return
	}
	var name string
	if err := s.db.QueryRow(ctx, `SELECT name FROM challenges WHERE id = $1`, challengeID).Scan(&name); err != nil {
		log.Printf("notifyCompleted: failed to load challenge name: %v", err)
		return
	}
	results := make([]utils.ChallengeResult, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, utils.ChallengeResult{
			UserID:   r.UserID,
			Rank:     r.Rank,
			IsWinner: r.IsWinner,
		})
	}
	utils.NotifyChallengeResults(s.notifications, challengeID, name, results)
}
