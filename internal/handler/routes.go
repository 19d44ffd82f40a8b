package handler

import (
	"net/http"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/guard"
)

// API requirements. Reads do not require a tenant so root can query across tenants;
// a caller without one gets "no organization" from the data layer instead.
var (
	public    = guard.Requirement{Public: true}
	signedIn  = guard.Requirement{}
	tenanted  = guard.Requirement{RequireTenant: true}
	adminOnly = guard.Requirement{AllowedRoles: []domain.Role{domain.RoleAdmin}}
	rootOnly  = guard.Requirement{AllowedRoles: []domain.Role{domain.RoleRoot}}
)

// Handlers groups everything the router serves. Nil handlers leave their routes unregistered.
type Handlers struct {
	Auth    *AuthHandler
	Tenants *TenantHandler
	Admin   *AdminHandler
	OKRs    *OKRHandler
	Teams   *TeamHandler
	Wiki    *WikiHandler
	Feed    *FeedHandler
	Reports *ReportHandler
	Health  *HealthHandler
	Metrics http.Handler
}

// NewRouter registers the API on a ServeMux, each route behind its guard requirement.
// Authentication must run before the router so the session state is on the context.
func NewRouter(h Handlers, g *guard.Interpreter) *http.ServeMux {
	mux := http.NewServeMux()
	route := func(pattern string, req guard.Requirement, fn http.HandlerFunc) {
		mux.Handle(pattern, g.Wrap(req)(fn))
	}

	if h.Health != nil {
		mux.HandleFunc("GET /healthz", h.Health.Health)
		mux.HandleFunc("GET /readyz", h.Health.Ready)
	}
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}
	mux.HandleFunc("GET /api/routes/resolve", g.ResolveHandler)

	if a := h.Auth; a != nil {
		route("POST /api/auth/register", public, a.Register)
		route("POST /api/auth/login", public, a.Login)
		route("POST /api/auth/logout", signedIn, a.Logout)
		route("GET /api/auth/me", signedIn, a.Me)
		route("POST /api/auth/change-password", signedIn, a.ChangePassword)
	}
	if t := h.Tenants; t != nil {
		route("PUT /api/session/tenant", rootOnly, t.Select)
		route("DELETE /api/session/tenant", rootOnly, t.Clear)
		route("GET /api/tenants", rootOnly, t.List)
		route("POST /api/tenants", rootOnly, t.Create)
		route("DELETE /api/tenants/{id}", rootOnly, t.Deactivate)
	}
	if a := h.Admin; a != nil {
		route("GET /api/admin/profiles", adminOnly, a.ListProfiles)
		route("PATCH /api/admin/profiles/{id}", adminOnly, a.UpdateProfile)
	}
	if o := h.OKRs; o != nil {
		route("GET /api/objectives", signedIn, o.List)
		route("POST /api/objectives", tenanted, o.Create)
		route("GET /api/objectives/{id}", signedIn, o.Get)
		route("PUT /api/objectives/{id}", tenanted, o.Update)
		route("POST /api/objectives/{id}/key-results", tenanted, o.AddKeyResult)
		route("PATCH /api/key-results/{id}", tenanted, o.UpdateProgress)
	}
	if t := h.Teams; t != nil {
		route("GET /api/teams", signedIn, t.List)
		route("POST /api/teams", tenanted, t.Create)
		route("GET /api/teams/{id}/sprints", signedIn, t.ListSprints)
		route("POST /api/teams/{id}/sprints", tenanted, t.RecordSprint)
	}
	if wk := h.Wiki; wk != nil {
		route("GET /api/wiki", signedIn, wk.List)
		route("POST /api/wiki", tenanted, wk.Create)
		route("GET /api/wiki/{id}", signedIn, wk.Get)
		route("PUT /api/wiki/{id}", tenanted, wk.Update)
	}
	if f := h.Feed; f != nil {
		route("GET /api/feed", signedIn, f.Activity)
		route("GET /api/notifications", signedIn, f.Notifications)
		route("POST /api/notifications/{id}/read", tenanted, f.MarkRead)
		route("GET /ws/feed", tenanted, f.Stream)
	}
	if rp := h.Reports; rp != nil {
		route("GET /api/dashboard", signedIn, rp.Dashboard)
		route("GET /api/reports", adminOnly, rp.Reports)
	}
	return mux
}
