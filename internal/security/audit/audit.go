package audit

import (
	"context"
	"log/slog"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/infrastructure/logger"
)

// Store persists activity entries.
type Store interface {
	AppendActivity(ctx context.Context, e *domain.ActivityEntry) error
}

// Publisher forwards persisted entries to live listeners.
type Publisher interface {
	Publish(e *domain.ActivityEntry)
}

// Logger writes audit lines, stores them as tenant activity and publishes them to the feed.
// Store and Publisher may be nil.
type Logger struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

func NewLogger(store Store, publisher Publisher, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{store: store, publisher: publisher, logger: log}
}

// Record logs e and, when it belongs to a tenant, appends it to the activity log.
// Persistence failures are logged and never returned to the caller.
func (al *Logger) Record(ctx context.Context, e *domain.ActivityEntry) {
	al.logger.Info("audit",
		slog.String("action", e.Action),
		slog.String("entity_type", e.EntityType),
		slog.String("entity_id", e.EntityID),
		slog.String("tenant_id", e.TenantID),
		slog.String("user_id", e.ActorID),
		slog.String("details", e.Details),
		slog.String("request_id", logger.RequestID(ctx)),
	)

	if e.TenantID == "" || al.store == nil {
		return
	}
	if err := al.store.AppendActivity(ctx, e); err != nil {
		al.logger.Error("failed to persist activity",
			slog.String("action", e.Action),
			slog.String("error", err.Error()),
		)
		return
	}
	if al.publisher != nil {
		al.publisher.Publish(e)
	}
}

func (al *Logger) LogAction(ctx context.Context, tenantID, userID, action, entityType, entityID, details string) {
	al.Record(ctx, &domain.ActivityEntry{
		TenantID:   tenantID,
		ActorID:    userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	})
}

// LogDenied only logs; denials are not tenant activity.
func (al *Logger) LogDenied(ctx context.Context, tenantID, userID, reason string) {
	al.logger.Warn("audit",
		slog.String("action", "access_denied"),
		slog.String("tenant_id", tenantID),
		slog.String("user_id", userID),
		slog.String("details", reason),
		slog.String("request_id", logger.RequestID(ctx)),
	)
}
