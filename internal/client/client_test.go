package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSignIn(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "correct-horse" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, domain.Session{UserID: "u1", Email: body["email"], AccessToken: "tok", ExpiresAt: 1900000000})
	})

	sess, err := c.SignIn(context.Background(), "a@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, "tok", sess.AccessToken)
	assert.Equal(t, int64(1900000000), sess.ExpiresAt)

	_, err = c.SignIn(context.Background(), "a@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid credentials", apiErr.Message)
}

func TestSignUp_Duplicate(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "already exists"})
	})
	_, err := c.SignUp(context.Background(), "a@example.com", "longenough1", "A")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		msg    string
		want   error
	}{
		{http.StatusForbidden, "forbidden", domain.ErrForbidden},
		{http.StatusNotFound, "not found", domain.ErrNotFound},
		{http.StatusConflict, "no organization", domain.ErrNoTenant},
		{http.StatusBadRequest, "bad", errInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"error": tt.msg})
			})
			_, err := c.ListTenants(context.Background(), &domain.Session{AccessToken: "tok"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadProfile_SendsBearer(t *testing.T) {
	tenant := "11111111-1111-1111-1111-111111111111"
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/me", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer tok" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, domain.Profile{ID: "u1", Role: domain.RoleLeader, TenantID: &tenant, IsActive: true})
	})

	p, err := c.LoadProfile(context.Background(), &domain.Session{UserID: "u1", AccessToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleLeader, p.Role)
	assert.Equal(t, tenant, p.Tenant())

	_, err = c.LoadProfile(context.Background(), &domain.Session{UserID: "u1", AccessToken: "stale"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestSignOutAndClearTenant_NoContent(t *testing.T) {
	var calls []string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	sess := &domain.Session{AccessToken: "tok"}
	require.NoError(t, c.SignOut(context.Background(), sess))
	require.NoError(t, c.ClearTenant(context.Background(), sess))
	assert.Equal(t, []string{"POST /api/auth/logout", "DELETE /api/session/tenant"}, calls)
}

func TestSelectTenant(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, domain.Tenant{ID: body["tenantId"], Slug: "acme", IsActive: true})
	})
	tn, err := c.SelectTenant(context.Background(), &domain.Session{AccessToken: "tok"}, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", tn.ID)
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}))
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL, HTTPClient: srv.Client(), Breaker: circuitbreaker.New(2, 1, time.Hour)})
	for i := 0; i < 2; i++ {
		_, err := c.SignIn(context.Background(), "a@example.com", "pw")
		require.Error(t, err)
	}
	_, err := c.SignIn(context.Background(), "a@example.com", "pw")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, int32(2), hits.Load())
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	})
	c.breaker = circuitbreaker.New(1, 1, time.Hour)
	for i := 0; i < 3; i++ {
		_, err := c.SignIn(context.Background(), "a@example.com", "pw")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
	assert.Equal(t, circuitbreaker.StateClosed, c.breaker.State())
}

// The client plugs into the session store: a rejected login surfaces as invalid credentials.
func TestSessionStoreIntegration(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			writeJSON(w, http.StatusOK, domain.Session{UserID: "u1", AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour).Unix()})
		case "/api/auth/me":
			writeJSON(w, http.StatusOK, domain.Profile{ID: "u1", Role: domain.RoleMember, IsActive: true})
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	store := session.NewStore(session.Options{Auth: c, Profiles: c})
	t.Cleanup(store.Close)
	require.NoError(t, store.Login(context.Background(), "a@example.com", "pw"))
	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, domain.RoleMember, store.Profile().Role)

	require.NoError(t, store.Logout(context.Background()))
	assert.False(t, store.IsAuthenticated())
}

func TestTransportFailureIsReturned(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	_, err := c.SignIn(context.Background(), "a@example.com", "pw")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
