package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/okrboard/internal/dataaccess"
	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/feed"
	"github.com/aryan0dhankhar/okrboard/internal/guard"
	"github.com/aryan0dhankhar/okrboard/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/okrboard/internal/security"
	"github.com/aryan0dhankhar/okrboard/internal/security/audit"
	"github.com/aryan0dhankhar/okrboard/internal/security/auth"
	"github.com/aryan0dhankhar/okrboard/internal/service"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

const tenantA = "11111111-1111-1111-1111-111111111111"

type fakeObjectives struct {
	domain.ObjectiveRepository
	objectives []*domain.Objective
}

func (f *fakeObjectives) List(_ context.Context, filter domain.TenantFilter) ([]*domain.Objective, error) {
	out := []*domain.Objective{}
	for _, o := range f.objectives {
		if filter.All() || *filter.TenantID == o.TenantID {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeTenants struct {
	domain.TenantRepository
}

func (fakeTenants) List(context.Context) ([]*domain.Tenant, error) {
	return []*domain.Tenant{{ID: tenantA, Name: "Acme", Slug: "acme", IsActive: true}}, nil
}

type fakeCredentials struct {
	domain.CredentialRepository
}

func (fakeCredentials) GetByEmail(context.Context, string) (*domain.Credential, error) {
	return nil, fmt.Errorf("credential: %w", domain.ErrNotFound)
}

type fakeFeed struct {
	domain.FeedRepository
}

type testEnv struct {
	router http.Handler
	hub    *feed.Hub
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.New(io.Discard, "error")
	exec := dataaccess.NewExecutor(dataaccess.Options{MaxAttempts: 1, Logger: log})
	authz := security.NewAuthorizationService(log)
	auditLog := audit.NewLogger(nil, nil, log)
	hub := feed.NewHub(4, log)
	t.Cleanup(hub.Close)

	objectives := &fakeObjectives{objectives: []*domain.Objective{
		{ID: "o1", TenantID: tenantA, Title: "Grow", Status: domain.ObjectiveActive},
		{ID: "o2", TenantID: "22222222-2222-2222-2222-222222222222", Title: "Other", Status: domain.ObjectiveActive},
	}}
	authService := service.NewAuthService(nil, fakeCredentials{}, nil, auth.NewTokenManager("secret", ""), nil,
		service.AuthConfig{SignupEnabled: false}, log)

	h := Handlers{
		Auth:    NewAuthHandler(authService, nil, log),
		Tenants: NewTenantHandler(service.NewTenantService(fakeTenants{}, session.NewMemorySelectionStore(), exec, auditLog, log), log),
		OKRs:    NewOKRHandler(service.NewOKRService(objectives, exec, authz, auditLog, nil, log), log),
		Feed:    NewFeedHandler(service.NewFeedService(fakeFeed{}, exec, log), hub, true, []string{"*"}, log),
		Health:  NewHealthHandler(PingFunc(func(context.Context) error { return nil }), nil, log),
	}
	return &testEnv{router: NewRouter(h, guard.NewInterpreter(log)), hub: hub}
}

// as injects a session snapshot the way the authentication middleware does.
func (e *testEnv) as(state *session.State) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if state != nil {
			r = r.WithContext(session.ContextWithState(r.Context(), *state))
		}
		e.router.ServeHTTP(w, r)
	})
}

func signedInState(id string, role domain.Role, tenant string) *session.State {
	p := &domain.Profile{ID: id, Email: id + "@example.com", Role: role, IsActive: true}
	if tenant != "" {
		p.TenantID = &tenant
	}
	return &session.State{Authenticated: true, Session: &domain.Session{UserID: id}, Profile: p}
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body["error"]
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: title is required", service.ErrInvalidInput), http.StatusBadRequest},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, domain.ErrInactive), http.StatusUnauthorized},
		{dataaccess.ErrUnauthenticated, http.StatusUnauthorized},
		{service.ErrSignupDisabled, http.StatusForbidden},
		{fmt.Errorf("objective: %w", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("tenant: %w", domain.ErrAlreadyExists), http.StatusConflict},
		{domain.ErrNoTenant, http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got, msg := statusFor(tt.err)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	rr := httptest.NewRecorder()
	respondError(rr, httptest.NewRequest(http.MethodGet, "/", nil), logger.New(io.Discard, "error"), errors.New("pq: password authentication failed"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal error", errorOf(t, rr))
}

func TestRouter_GuardOutcomes(t *testing.T) {
	env := newEnv(t)
	loading := &session.State{Authenticated: true, Loading: true, Session: &domain.Session{UserID: "u1"}}

	tests := []struct {
		name   string
		state  *session.State
		method string
		target string
		want   int
	}{
		{"anonymous is sent to login", nil, http.MethodGet, "/api/objectives", http.StatusUnauthorized},
		{"loading profile", loading, http.MethodGet, "/api/objectives", http.StatusServiceUnavailable},
		{"member on root route", signedInState("m1", domain.RoleMember, tenantA), http.MethodGet, "/api/tenants", http.StatusForbidden},
		{"admin on root route", signedInState("a1", domain.RoleAdmin, tenantA), http.MethodGet, "/api/tenants", http.StatusForbidden},
		{"root on root route", signedInState("r1", domain.RoleRoot, ""), http.MethodGet, "/api/tenants", http.StatusOK},
		{"write without organization", signedInState("m1", domain.RoleMember, ""), http.MethodPost, "/api/objectives", http.StatusConflict},
		{"public route while signed out", nil, http.MethodGet, "/healthz", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := ""
			if tt.method == http.MethodPost {
				body = `{"title":"x","quarter":"2026-Q1"}`
			}
			rr := do(env.as(tt.state), tt.method, tt.target, body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestRouter_UnauthenticatedCarriesLoginRedirect(t *testing.T) {
	rr := do(newEnv(t).as(nil), http.MethodGet, "/api/objectives", "")
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, guard.LoginPath, body["redirect"])
}

func TestListObjectives_Scoping(t *testing.T) {
	env := newEnv(t)

	t.Run("member sees own tenant", func(t *testing.T) {
		rr := do(env.as(signedInState("m1", domain.RoleMember, tenantA)), http.MethodGet, "/api/objectives", "")
		require.Equal(t, http.StatusOK, rr.Code)
		var objs []domain.Objective
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &objs))
		require.Len(t, objs, 1)
		assert.Equal(t, "o1", objs[0].ID)
	})

	t.Run("root without selection sees all", func(t *testing.T) {
		rr := do(env.as(signedInState("r1", domain.RoleRoot, "")), http.MethodGet, "/api/objectives", "")
		require.Equal(t, http.StatusOK, rr.Code)
		var objs []domain.Objective
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &objs))
		assert.Len(t, objs, 2)
	})

	t.Run("root with selection is narrowed", func(t *testing.T) {
		st := signedInState("r1", domain.RoleRoot, "")
		st.SelectedTenant = tenantA
		rr := do(env.as(st), http.MethodGet, "/api/objectives", "")
		require.Equal(t, http.StatusOK, rr.Code)
		var objs []domain.Objective
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &objs))
		assert.Len(t, objs, 1)
	})

	t.Run("member without organization", func(t *testing.T) {
		rr := do(env.as(signedInState("m1", domain.RoleMember, "")), http.MethodGet, "/api/objectives", "")
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, noOrganization, errorOf(t, rr))
	})
}

func TestLogin(t *testing.T) {
	env := newEnv(t)

	rr := do(env.as(nil), http.MethodPost, "/api/auth/login", `{"email":"nobody@example.com","password":"whatever1"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid credentials", errorOf(t, rr))

	rr = do(env.as(nil), http.MethodPost, "/api/auth/login", `{"email":"a@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(env.as(nil), http.MethodPost, "/api/auth/login", `{"email":"a@example.com","password":"x","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "unknown fields are rejected")
}

func TestRegister_Disabled(t *testing.T) {
	rr := do(newEnv(t).as(nil), http.MethodPost, "/api/auth/register", `{"email":"new@example.com","password":"longenough1","fullName":"New"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestMe(t *testing.T) {
	rr := do(newEnv(t).as(signedInState("m1", domain.RoleMember, tenantA)), http.MethodGet, "/api/auth/me", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var p domain.Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, "m1", p.ID)
	require.NotNil(t, p.TenantID)
	assert.Equal(t, tenantA, *p.TenantID)
}

func TestUpdateProgress_RequiresValue(t *testing.T) {
	rr := do(newEnv(t).as(signedInState("m1", domain.RoleMember, tenantA)), http.MethodPatch, "/api/key-results/k1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "value is required", errorOf(t, rr))
}

func TestFeedActivity_LimitValidation(t *testing.T) {
	rr := do(newEnv(t).as(signedInState("m1", domain.RoleMember, tenantA)), http.MethodGet, "/api/feed?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReady(t *testing.T) {
	rr := do(newEnv(t).as(nil), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "ok", body.Checks["database"])
	assert.Equal(t, "not configured", body.Checks["redis"])

	h := NewHealthHandler(PingFunc(func(context.Context) error { return nil }), PingFunc(func(context.Context) error { return errors.New("refused") }), nil)
	rr = httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "error: refused")
}

func TestResolveRoute(t *testing.T) {
	rr := do(newEnv(t).as(signedInState("m1", domain.RoleMember, "")), http.MethodGet, "/api/routes/resolve?path=/okrs", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var d guard.Decision
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &d))
	assert.Equal(t, guard.NoTenant, d.Kind)
}

func TestFeedStream(t *testing.T) {
	env := newEnv(t)
	srv := httptest.NewServer(env.as(signedInState("m1", domain.RoleMember, tenantA)))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/feed"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.Eventually(t, func() bool { return env.hub.Subscribers(tenantA) == 1 }, time.Second, 10*time.Millisecond)

	env.hub.Publish(&domain.ActivityEntry{ID: "other", TenantID: "22222222-2222-2222-2222-222222222222", Action: "objective.created"})
	env.hub.Publish(&domain.ActivityEntry{ID: "e1", TenantID: tenantA, Action: "objective.created"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got domain.ActivityEntry
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "e1", got.ID)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return env.hub.Subscribers(tenantA) == 0 }, time.Second, 10*time.Millisecond)
}

func TestFeedStream_RequiresOrganization(t *testing.T) {
	rr := do(newEnv(t).as(signedInState("m1", domain.RoleMember, "")), http.MethodGet, "/ws/feed", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestFeedStream_Disabled(t *testing.T) {
	h := NewFeedHandler(nil, nil, false, nil, logger.New(&bytes.Buffer{}, "error"))
	rr := httptest.NewRecorder()
	h.Stream(rr, httptest.NewRequest(http.MethodGet, "/ws/feed", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
