package repository

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/pkg/database"
)

const maxActivityPage = 200

// PostgresFeedRepository implements domain.FeedRepository using PostgreSQL
type PostgresFeedRepository struct {
	db     database.DBTX
	logger *slog.Logger
}

func NewPostgresFeedRepository(db database.DBTX, logger *slog.Logger) *PostgresFeedRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFeedRepository{db: db, logger: logger}
}

// AppendActivity writes one audit/activity row
func (r *PostgresFeedRepository) AppendActivity(ctx context.Context, e *domain.ActivityEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	query := `
		INSERT INTO activity_log (id, tenant_id, actor_id, action, entity_type, entity_id, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		e.ID, e.TenantID, e.ActorID, e.Action, e.EntityType, e.EntityID, e.Details,
	).Scan(&e.CreatedAt)
	if err != nil {
		err = mapError(err, "activity")
		r.logger.Error("failed to append activity",
			slog.String("tenant_id", e.TenantID),
			slog.String("action", e.Action),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// ListActivity returns the newest entries first. limit is clamped to [1, 200].
func (r *PostgresFeedRepository) ListActivity(ctx context.Context, f domain.TenantFilter, limit int) ([]*domain.ActivityEntry, error) {
	limit = min(max(limit, 1), maxActivityPage)
	clause, args := tenantClause(f, []any{limit})
	query := `
		SELECT id, tenant_id, actor_id, action, entity_type, entity_id, details, created_at
		FROM activity_log WHERE TRUE` + clause + ` ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "activity")
	}
	defer rows.Close()

	var out []*domain.ActivityEntry
	for rows.Next() {
		e := &domain.ActivityEntry{}
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID, &e.Details, &e.CreatedAt); err != nil {
			return nil, mapError(err, "activity")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresFeedRepository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	query := `
		INSERT INTO notifications (id, tenant_id, user_id, message)
		VALUES ($1, $2, $3, $4)
		RETURNING read, created_at
	`
	err := r.db.QueryRowContext(ctx, query, n.ID, n.TenantID, n.UserID, n.Message).Scan(&n.Read, &n.CreatedAt)
	return mapError(err, "notification")
}

// ListNotifications lists a user's notifications, unread first
func (r *PostgresFeedRepository) ListNotifications(ctx context.Context, f domain.TenantFilter, userID string) ([]*domain.Notification, error) {
	clause, args := tenantClause(f, []any{userID})
	query := `
		SELECT id, tenant_id, user_id, message, read, created_at
		FROM notifications WHERE user_id = $1` + clause + ` ORDER BY read, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "notifications")
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		if err := rows.Scan(&n.ID, &n.TenantID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, mapError(err, "notifications")
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PostgresFeedRepository) MarkNotificationRead(ctx context.Context, tenantID, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2 AND tenant_id = $3`,
		id, userID, tenantID)
	if err != nil {
		return mapError(err, "notification")
	}
	return expectOne(res, "notification")
}
