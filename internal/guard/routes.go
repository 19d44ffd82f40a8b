package guard

import (
	"path"
	"strings"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

// Route binds a path to its requirement. A route also matches its sub-paths.
type Route struct {
	Path        string      `json:"path"`
	Requirement Requirement `json:"requirement"`
}

var (
	authenticated = Requirement{RequireTenant: true}
	adminOnly     = Requirement{AllowedRoles: []domain.Role{domain.RoleAdmin}}
	rootOnly      = Requirement{AllowedRoles: []domain.Role{domain.RoleRoot}}
)

var routes = []Route{
	{Path: "/", Requirement: Requirement{Public: true}},
	{Path: LoginPath, Requirement: Requirement{Public: true}},

	{Path: DashboardPath, Requirement: authenticated},
	{Path: "/team-dashboard", Requirement: authenticated},
	{Path: "/my-dashboard", Requirement: authenticated},
	{Path: "/okrs", Requirement: authenticated},
	{Path: "/indicators", Requirement: authenticated},
	{Path: "/teams", Requirement: authenticated},
	{Path: "/train", Requirement: authenticated},
	{Path: "/backlog", Requirement: authenticated},
	{Path: "/wiki", Requirement: authenticated},
	{Path: "/feed", Requirement: authenticated},

	{Path: "/reports", Requirement: adminOnly},
	{Path: "/admin", Requirement: adminOnly},
	{Path: "/organizational-roles", Requirement: adminOnly},

	{Path: TenantSelectorPath, Requirement: rootOnly},
}

// Routes returns a copy of the route table.
func Routes() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

// Normalize strips query, fragment and trailing slashes and cleans the path.
func Normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" || p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}

// Lookup finds the requirement for p. The root route "/" matches only itself.
func Lookup(p string) (Requirement, bool) {
	p = Normalize(p)
	for _, r := range routes {
		if r.Path == "/" {
			if p == "/" {
				return r.Requirement, true
			}
			continue
		}
		if p == r.Path || strings.HasPrefix(p, r.Path+"/") {
			return r.Requirement, true
		}
	}
	return Requirement{}, false
}

// Resolve evaluates state against the route table. Unknown paths resolve to NotFound.
func Resolve(state session.State, p string) Decision {
	req, ok := Lookup(p)
	if !ok {
		return Decision{Kind: NotFound}
	}
	return Evaluate(state, req, Normalize(p))
}
