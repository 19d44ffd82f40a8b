package session

import (
	"context"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/security"
)

// State is a point-in-time snapshot of a session store. The server builds one per
// request; clients take one from Store.Snapshot.
type State struct {
	Loading        bool
	Authenticated  bool
	Session        *domain.Session
	Profile        *domain.Profile
	SelectedTenant string
}

// TenantID returns the effective tenant id for the snapshot.
func (s State) TenantID() *string {
	return security.ResolveTenantID(s.Profile, s.SelectedTenant)
}

// AllTenants reports whether the snapshot may query across tenants.
func (s State) AllTenants() bool {
	return security.CanQueryAllTenants(s.Profile, s.SelectedTenant)
}

// Role returns the profile's role or "" without a profile.
func (s State) Role() domain.Role {
	if s.Profile == nil {
		return ""
	}
	return s.Profile.Role
}

// UserID returns the session's user id, falling back to the profile id.
func (s State) UserID() string {
	if s.Session != nil && s.Session.UserID != "" {
		return s.Session.UserID
	}
	if s.Profile != nil {
		return s.Profile.ID
	}
	return ""
}

type stateContextKey struct{}

// ContextWithState stores a per-request snapshot.
func ContextWithState(ctx context.Context, s State) context.Context {
	return context.WithValue(ctx, stateContextKey{}, s)
}

// StateFromContext returns the snapshot stored by ContextWithState. Without one the
// caller is treated as signed out.
func StateFromContext(ctx context.Context) State {
	s, _ := ctx.Value(stateContextKey{}).(State)
	return s
}
