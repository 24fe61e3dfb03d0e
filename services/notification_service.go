package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"logOffAPI/internal/notification"
)

// NotificationService persists notification rows and hands them to the
// dispatcher for delivery. Delivery is fire-and-forget: the row is the
// record, the channels are best effort.
type NotificationService struct {
	db         *pgxpool.Pool
	dispatcher *NotificationDispatcher
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	s := &NotificationService{db: db}
	s.dispatcher = NewNotificationDispatcher(s)
	return s
}

// SetPushProvider injects the FCM client from main.go.
func (s *NotificationService) SetPushProvider(provider PushNotificationProvider) {
	s.dispatcher.SetPushProvider(provider)
}

// SetEmailProvider injects the email client from main.go.
func (s *NotificationService) SetEmailProvider(provider EmailProvider) {
	s.dispatcher.SetEmailProvider(provider)
}

// Stop drains the dispatcher workers. Call on shutdown.
func (s *NotificationService) Stop() {
	s.dispatcher.Stop()
}

func (s *NotificationService) CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	if req.UserID == uuid.Nil {
		return nil, invalidf("user_id is required")
	}
	if req.Type == "" {
		return nil, invalidf("notification type is required")
	}

	priority := req.Priority
	if priority == "" {
		priority = notification.PriorityNormal
	}
	data := req.Data
	if data == nil {
		data = map[string]any{}
	}

	n := &notification.Notification{
		UserID:   req.UserID,
		Type:     req.Type,
		Priority: priority,
		Status:   notification.StatusPending,
		Title:    req.Title,
		Body:     req.Body,
		Data:     data,
		ActorID:  req.ActorID,
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, type, priority, title, body, data, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, n.UserID, n.Type, n.Priority, n.Title, n.Body, n.Data, n.ActorID).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	prefs, err := s.preferencesForUser(ctx, n.UserID)
	if err != nil {
		return n, fmt.Errorf("failed to load preferences: %w", err)
	}
	s.dispatcher.Dispatch(n, prefs)
	return n, nil
}

func (s *NotificationService) GetNotifications(ctx context.Context, clerkID string, page, pageSize int) (*notification.NotificationListResponse, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	resp := &notification.NotificationListResponse{
		Notifications: []*notification.Notification{},
		Page:          page,
		PageSize:      pageSize,
	}
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE read_at IS NULL)
		FROM notifications WHERE user_id = $1
	`, userID).Scan(&resp.TotalCount, &resp.UnreadCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, type, priority, status, title, body, data, actor_id, read_at, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		n := &notification.Notification{}
		err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Priority, &n.Status,
			&n.Title, &n.Body, &n.Data, &n.ActorID, &n.ReadAt, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		resp.Notifications = append(resp.Notifications, n)
	}
	return resp, rows.Err()
}

func (s *NotificationService) MarkAsRead(ctx context.Context, clerkID string, notificationID uuid.UUID) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET status = 'read', read_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("notification %s not found", notificationID)
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, clerkID string) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		UPDATE notifications SET status = 'read', read_at = NOW()
		WHERE user_id = $1 AND read_at IS NULL
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}
	if req.Token == "" {
		return invalidf("device token is required")
	}

	prefs, err := s.preferencesForUser(ctx, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	updated := false
	for i := range prefs.DeviceTokens {
		if prefs.DeviceTokens[i].Token == req.Token {
			prefs.DeviceTokens[i].LastUsed = now
			updated = true
			break
		}
	}
	if !updated {
		prefs.DeviceTokens = append(prefs.DeviceTokens, notification.DeviceToken{
			Token:    req.Token,
			Platform: req.Platform,
			AddedAt:  now,
			LastUsed: now,
		})
	}

	_, err = s.db.Exec(ctx, `
		UPDATE notification_preferences SET device_tokens = $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, prefs.DeviceTokens)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) UpdatePreferences(ctx context.Context, clerkID string, req *notification.UpdatePreferencesRequest) (*notification.Preferences, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	if _, err := s.preferencesForUser(ctx, userID); err != nil {
		return nil, err
	}

	_, err = s.db.Exec(ctx, `
		UPDATE notification_preferences
		SET push_enabled = COALESCE($2, push_enabled),
		    email_enabled = COALESCE($3, email_enabled),
		    updated_at = NOW()
		WHERE user_id = $1
	`, userID, req.PushEnabled, req.EmailEnabled)
	if err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	return s.preferencesForUser(ctx, userID)
}

// preferencesForUser loads delivery preferences, creating the default row
// on first use.
func (s *NotificationService) preferencesForUser(ctx context.Context, userID uuid.UUID) (*notification.Preferences, error) {
	prefs := &notification.Preferences{UserID: userID}
	err := s.db.QueryRow(ctx, `
		SELECT p.push_enabled, p.email_enabled, p.device_tokens, p.updated_at, u.email
		FROM notification_preferences p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
	`, userID).Scan(&prefs.PushEnabled, &prefs.EmailEnabled, &prefs.DeviceTokens, &prefs.UpdatedAt, &prefs.Email)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO notification_preferences (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = notification_preferences.updated_at
		RETURNING push_enabled, email_enabled, device_tokens, updated_at,
		          (SELECT email FROM users WHERE id = $1)
	`, userID).Scan(&prefs.PushEnabled, &prefs.EmailEnabled, &prefs.DeviceTokens, &prefs.UpdatedAt, &prefs.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to create default preferences: %w", err)
	}
	return prefs, nil
}

func (s *NotificationService) markAsSent(ctx context.Context, id uuid.UUID) {
	_, err := s.db.Exec(ctx, `
		UPDATE notifications SET status = 'sent', sent_at = NOW() WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		log.Printf("markAsSent: %v", err)
	}
}

func (s *NotificationService) markAsFailed(ctx context.Context, id uuid.UUID, cause error) {
	_, err := s.db.Exec(ctx, `
		UPDATE notifications SET status = 'failed', failed_at = NOW(), failure_reason = $2
		WHERE id = $1 AND status = 'pending'
	`, id, cause.Error())
	if err != nil {
		log.Printf("markAsFailed: %v", err)
	}
}
