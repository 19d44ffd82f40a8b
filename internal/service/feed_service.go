package service

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/aryan0dhankhar/okrboard/internal/dataaccess"
	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

const DefaultActivityLimit = 50

// FeedService serves the activity feed and per-user notifications.
type FeedService struct {
	feed   domain.FeedRepository
	exec   *dataaccess.Executor
	logger *slog.Logger
}

func NewFeedService(feed domain.FeedRepository, exec *dataaccess.Executor, logger *slog.Logger) *FeedService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedService{feed: feed, exec: exec, logger: logger}
}

// Activity returns the newest activity entries of the caller's scope.
func (s *FeedService) Activity(ctx context.Context, state session.State, limit int) ([]*domain.ActivityEntry, bool, error) {
	if _, err := actor(state); err != nil {
		return nil, false, err
	}
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	return dataaccess.Fetch(ctx, s.exec, dataaccess.ScopeFor(state), "activity:"+strconv.Itoa(limit),
		func(ctx context.Context, f domain.TenantFilter) ([]*domain.ActivityEntry, error) {
			return s.feed.ListActivity(ctx, f, limit)
		})
}

// Notifications lists the caller's notifications within the scope.
func (s *FeedService) Notifications(ctx context.Context, state session.State) ([]*domain.Notification, bool, error) {
	p, err := actor(state)
	if err != nil {
		return nil, false, err
	}
	return dataaccess.Fetch(ctx, s.exec, dataaccess.ScopeFor(state), "notifications:"+p.ID,
		func(ctx context.Context, f domain.TenantFilter) ([]*domain.Notification, error) {
			return s.feed.ListNotifications(ctx, f, p.ID)
		})
}

// MarkRead marks one of the caller's notifications read.
func (s *FeedService) MarkRead(ctx context.Context, state session.State, id string) error {
	p, err := actor(state)
	if err != nil {
		return err
	}
	return dataaccess.Exec(ctx, s.exec, dataaccess.ScopeFor(state), func(ctx context.Context, tenantID string) error {
		return s.feed.MarkNotificationRead(ctx, tenantID, p.ID, id)
	})
}

// Notify stores a notification for userID.
func (s *FeedService) Notify(ctx context.Context, tenantID, userID, message string) error {
	n := &domain.Notification{TenantID: tenantID, UserID: userID, Message: message}
	if err := s.feed.CreateNotification(ctx, n); err != nil {
		return err
	}
	s.exec.Invalidate(tenantID)
	return nil
}
