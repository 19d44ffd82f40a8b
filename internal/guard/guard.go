// Package guard decides what happens when a caller navigates to a path.
// Evaluate is pure: it reads a session snapshot and returns a Decision; the HTTP
// interpreter and okrctl turn decisions into responses.
package guard

import (
	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/security"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

const (
	LoginPath          = "/auth"
	DashboardPath      = "/dashboard"
	TenantSelectorPath = "/tenants"
)

// Kind tags a Decision.
type Kind string

const (
	Allow    Kind = "allow"
	Redirect Kind = "redirect"
	Loading  Kind = "loading"
	NoTenant Kind = "no_tenant"
	NotFound Kind = "not_found"
)

// Reason explains a redirect.
type Reason string

const (
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonRole            Reason = "role"
	ReasonMinimumRole     Reason = "minimum_role"
)

// Decision is the outcome of evaluating a route.
type Decision struct {
	Kind     Kind   `json:"kind"`
	Path     string `json:"path,omitempty"`
	ReturnTo string `json:"return_to,omitempty"`
	Reason   Reason `json:"reason,omitempty"`
}

// ToLogin reports whether d sends the caller to sign in.
func (d Decision) ToLogin() bool {
	return d.Kind == Redirect && d.Reason == ReasonUnauthenticated
}

// Requirement is the access constraint attached to a route.
// An empty AllowedRoles or MinimumRole means that constraint is not configured.
type Requirement struct {
	Public        bool          `json:"public,omitempty"`
	AllowedRoles  []domain.Role `json:"allowed_roles,omitempty"`
	MinimumRole   domain.Role   `json:"minimum_role,omitempty"`
	RequireTenant bool          `json:"require_tenant,omitempty"`
	Fallback      string        `json:"fallback,omitempty"`
}

// DefaultFallback is where a caller lands after a role denial.
func DefaultFallback(role domain.Role) string {
	if role == domain.RoleRoot {
		return TenantSelectorPath
	}
	return DashboardPath
}

// Evaluate applies req to state for a navigation to attempted.
// Checks run in a fixed order and the first match wins.
func Evaluate(state session.State, req Requirement, attempted string) Decision {
	if req.Public {
		return Decision{Kind: Allow}
	}
	if state.Loading {
		return Decision{Kind: Loading}
	}
	if !state.Authenticated {
		return Decision{Kind: Redirect, Path: LoginPath, ReturnTo: attempted, Reason: ReasonUnauthenticated}
	}
	if state.Profile == nil {
		return Decision{Kind: Loading}
	}

	role := state.Profile.Role
	if len(req.AllowedRoles) > 0 && !security.HasRole(role, req.AllowedRoles) {
		return fallback(req, role, ReasonRole)
	}
	if req.MinimumRole != "" && !security.HasMinimumRole(role, req.MinimumRole) {
		return fallback(req, role, ReasonMinimumRole)
	}
	if req.RequireTenant && state.TenantID() == nil {
		return Decision{Kind: NoTenant}
	}
	return Decision{Kind: Allow}
}

func fallback(req Requirement, role domain.Role, reason Reason) Decision {
	path := req.Fallback
	if path == "" {
		path = DefaultFallback(role)
	}
	return Decision{Kind: Redirect, Path: path, Reason: reason}
}
