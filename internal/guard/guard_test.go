package guard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

const tenantA = "4f6d2b8e-1c3a-4e5f-9a7b-0c1d2e3f4a5b"

func signedIn(role domain.Role, tenant *string) session.State {
	return session.State{
		Authenticated: true,
		Session:       &domain.Session{UserID: "u", AccessToken: "t", ExpiresAt: 1 << 40},
		Profile:       &domain.Profile{ID: "u", Role: role, TenantID: tenant},
	}
}

func tenantPtr() *string {
	t := tenantA
	return &t
}

func TestScenarioA_UnauthenticatedRedirectsToLogin(t *testing.T) {
	d := Resolve(session.State{}, "/dashboard")
	assert.Equal(t, Redirect, d.Kind)
	assert.Equal(t, LoginPath, d.Path)
	assert.Equal(t, "/dashboard", d.ReturnTo)
	assert.True(t, d.ToLogin())
}

func TestScenarioB_MemberOnAdminFallsBackToDashboard(t *testing.T) {
	d := Resolve(signedIn(domain.RoleMember, tenantPtr()), "/admin")
	assert.Equal(t, Decision{Kind: Redirect, Path: DashboardPath, Reason: ReasonRole}, d)
	assert.False(t, d.ToLogin())
}

func TestScenarioC_RootOnTenants(t *testing.T) {
	d := Resolve(signedIn(domain.RoleRoot, nil), "/tenants")
	assert.Equal(t, Allow, d.Kind)
}

func TestScenarioD_LeaderWithoutTenant(t *testing.T) {
	d := Resolve(signedIn(domain.RoleLeader, nil), "/okrs")
	assert.Equal(t, NoTenant, d.Kind)
	assert.Empty(t, d.Path, "no redirect")
}

func TestScenarioE_LoadingWinsOverEverything(t *testing.T) {
	states := []session.State{
		{Loading: true},
		{Loading: true, Authenticated: true},
		func() session.State { s := signedIn(domain.RoleRoot, nil); s.Loading = true; return s }(),
	}
	reqs := []Requirement{
		{},
		{AllowedRoles: []domain.Role{domain.RoleAdmin}},
		{MinimumRole: domain.RoleLeader, RequireTenant: true},
	}
	for _, st := range states {
		for _, req := range reqs {
			assert.Equal(t, Loading, Evaluate(st, req, "/x").Kind)
		}
	}
}

func TestEvaluate_AuthenticatedWithoutProfileIsLoading(t *testing.T) {
	st := session.State{Authenticated: true, Session: &domain.Session{AccessToken: "t"}}
	assert.Equal(t, Loading, Evaluate(st, Requirement{}, "/dashboard").Kind)
}

func TestEvaluate_RootFallbackIsTenantSelector(t *testing.T) {
	req := Requirement{MinimumRole: domain.RoleMember, AllowedRoles: nil}
	assert.Equal(t, Allow, Evaluate(signedIn(domain.RoleRoot, nil), req, "/x").Kind)

	assert.Equal(t, TenantSelectorPath, DefaultFallback(domain.RoleRoot))
	assert.Equal(t, DashboardPath, DefaultFallback(domain.RoleAdmin))
	assert.Equal(t, DashboardPath, DefaultFallback(domain.RoleMember))
}

func TestEvaluate_MinimumRoleAndCustomFallback(t *testing.T) {
	req := Requirement{MinimumRole: domain.RoleLeader, Fallback: "/my-dashboard"}

	d := Evaluate(signedIn(domain.RoleMember, tenantPtr()), req, "/team-dashboard")
	assert.Equal(t, Decision{Kind: Redirect, Path: "/my-dashboard", Reason: ReasonMinimumRole}, d)

	assert.Equal(t, Allow, Evaluate(signedIn(domain.RoleLeader, tenantPtr()), req, "/team-dashboard").Kind)
	assert.Equal(t, Allow, Evaluate(signedIn(domain.RoleAdmin, tenantPtr()), req, "/team-dashboard").Kind)
}

func TestEvaluate_RoleChecksPrecedeTenantCheck(t *testing.T) {
	req := Requirement{AllowedRoles: []domain.Role{domain.RoleAdmin}, RequireTenant: true}
	d := Evaluate(signedIn(domain.RoleMember, nil), req, "/reports")
	assert.Equal(t, Redirect, d.Kind)
}

func TestEvaluate_RootSelectionSatisfiesTenant(t *testing.T) {
	st := signedIn(domain.RoleRoot, nil)
	assert.Equal(t, NoTenant, Resolve(st, "/wiki").Kind)

	st.SelectedTenant = tenantA
	assert.Equal(t, Allow, Resolve(st, "/wiki").Kind)
}

func TestRouteTable(t *testing.T) {
	member := signedIn(domain.RoleMember, tenantPtr())
	admin := signedIn(domain.RoleAdmin, tenantPtr())

	tests := []struct {
		path  string
		state session.State
		want  Kind
	}{
		{"/", session.State{}, Allow},
		{"/auth", session.State{}, Allow},
		{"/auth?next=/okrs", session.State{}, Allow},
		{"/okrs/123", member, Allow},
		{"/feed/", member, Allow},
		{"/reports", member, Redirect},
		{"/reports", admin, Allow},
		{"/organizational-roles", admin, Allow},
		{"/tenants", admin, Redirect},
		{"/nope", member, NotFound},
		{"/okrsx", member, NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.state, tt.path).Kind)
		})
	}
	assert.Len(t, Routes(), 16)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "/okrs", Normalize("/okrs/"))
	assert.Equal(t, "/okrs", Normalize("okrs?x=1#top"))
	assert.Equal(t, "/", Normalize(""))
	assert.Equal(t, "/admin", Normalize("/okrs/../admin"))
}

func serveWrapped(t *testing.T, st session.State, req Requirement) *httptest.ResponseRecorder {
	t.Helper()
	h := NewInterpreter(nil).Wrap(req)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	r := httptest.NewRequest(http.MethodGet, "/api/objectives", nil)
	r = r.WithContext(session.ContextWithState(r.Context(), st))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestInterpreterWrap(t *testing.T) {
	tenantReq := Requirement{RequireTenant: true}

	assert.Equal(t, http.StatusUnauthorized, serveWrapped(t, session.State{}, tenantReq).Code)
	assert.Equal(t, http.StatusNoContent, serveWrapped(t, signedIn(domain.RoleMember, tenantPtr()), tenantReq).Code)

	rec := serveWrapped(t, signedIn(domain.RoleLeader, nil), tenantReq)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"no organization"}`, rec.Body.String())

	rec = serveWrapped(t, session.State{Loading: true}, tenantReq)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec = serveWrapped(t, signedIn(domain.RoleMember, tenantPtr()), Requirement{AllowedRoles: []domain.Role{domain.RoleAdmin}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect":"/dashboard"`)
}

func TestResolveHandler(t *testing.T) {
	in := NewInterpreter(nil)

	rec := httptest.NewRecorder()
	in.ResolveHandler(rec, httptest.NewRequest(http.MethodGet, "/api/routes/resolve", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	in.ResolveHandler(rec, httptest.NewRequest(http.MethodGet, "/api/routes/resolve?path=/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var d Decision
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&d))
	assert.Equal(t, Decision{Kind: Redirect, Path: LoginPath, ReturnTo: "/dashboard", Reason: ReasonUnauthenticated}, d)
}
