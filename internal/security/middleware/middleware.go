package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/okrboard/internal/security/audit"
	"github.com/aryan0dhankhar/okrboard/internal/security/auth"
	"github.com/aryan0dhankhar/okrboard/internal/security/ratelimit"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

// TenantHeader lets root users pick a tenant per request, overriding the stored selection.
const TenantHeader = "X-Tenant-ID"

// TokenQueryParam carries the access token on websocket upgrades, where browsers cannot set headers.
const TokenQueryParam = "access_token"

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*auth.Claims, error)
}

type claimsContextKey struct{}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Authenticate resolves the bearer token into a per-request session.State.
// Requests without a valid token continue signed out; route requirements decide what they may reach.
// A profile that cannot be loaded for a transient reason leaves the state loading.
func Authenticate(verifier TokenVerifier, profiles session.ProfileLoader, selection session.SelectionStore, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" && websocket.IsWebSocketUpgrade(r) {
				if t := r.URL.Query().Get(TokenQueryParam); t != "" {
					authHeader = "Bearer " + t
				}
			}
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := auth.ExtractToken(authHeader)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid auth")
				return
			}

			ctx := r.Context()
			claims, err := verifier.VerifyToken(ctx, token)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) {
					// Expired or revoked tokens mean signed out; the route requirement answers.
					log.Debug("ignoring invalid bearer token", slog.String("error", err.Error()))
					next.ServeHTTP(w, r)
					return
				}
				log.Error("token verification failed", slog.String("error", err.Error()))
				writeError(w, http.StatusServiceUnavailable, "authentication unavailable")
				return
			}

			sess := &domain.Session{UserID: claims.UserID, Email: claims.Email, AccessToken: token}
			if claims.ExpiresAt != nil {
				sess.ExpiresAt = claims.ExpiresAt.Unix()
			}
			state := session.State{Authenticated: true, Session: sess}

			profile, err := profiles.LoadProfile(ctx, sess)
			switch {
			case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInactive):
				writeError(w, http.StatusUnauthorized, "account unavailable")
				return
			case err != nil:
				log.Error("failed to load profile",
					slog.String("user_id", claims.UserID),
					slog.String("error", err.Error()),
				)
				state.Loading = true
			default:
				state.Profile = profile
				if profile.Role == domain.RoleRoot {
					state.SelectedTenant = selectedTenant(ctx, r, selection, profile.ID, log)
				}
			}

			ctx = context.WithValue(ctx, claimsContextKey{}, claims)
			ctx = session.ContextWithState(ctx, state)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func selectedTenant(ctx context.Context, r *http.Request, selection session.SelectionStore, userID string, log *slog.Logger) string {
	if h := strings.TrimSpace(r.Header.Get(TenantHeader)); h != "" {
		return h
	}
	if selection == nil {
		return ""
	}
	sel, err := selection.Load(ctx, userID)
	if err != nil {
		log.Warn("failed to load tenant selection",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return sel
}

// ClaimsFromContext returns the verified token claims, or nil for anonymous requests.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsContextKey{}).(*auth.Claims)
	return c
}

// RateLimit throttles per effective tenant, falling back to the user and then the client address.
func RateLimit(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateKey(r)
			if !limiter.Allow(key) {
				log.Warn("rate limit exceeded", slog.String("key", key), slog.String("path", r.URL.Path))
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateKey(r *http.Request) string {
	state := session.StateFromContext(r.Context())
	if t := state.TenantID(); t != nil {
		return "tenant:" + *t
	}
	if id := state.UserID(); id != "" {
		return "user:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// AuditDenied records 401 and 403 responses in the audit log.
func AuditDenied(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status != http.StatusUnauthorized && rec.status != http.StatusForbidden {
				return
			}
			state := session.StateFromContext(r.Context())
			tenantID := ""
			if t := state.TenantID(); t != nil {
				tenantID = *t
			}
			auditLog.LogDenied(r.Context(), tenantID, state.UserID(),
				fmt.Sprintf("%d %s %s", rec.status, r.Method, r.URL.Path))
		})
	}
}

// RequestID attaches a request id to the context and response, and logs each completed request.
func RequestID(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if reqID == "" || len(reqID) > 64 {
				reqID = generateRequestID()
			}
			w.Header().Set("X-Request-ID", reqID)

			ctx := logger.WithRequestID(r.Context(), reqID)
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r.WithContext(ctx))

			log.Info("request completed",
				slog.String("request_id", reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration_ms", time.Since(start)),
			)
		})
	}
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}

// CORS honors the configured origins. "*" allows any origin.
func CORS(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if originAllowed(allowed, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else if len(allowed) > 0 {
				w.Header().Set("Access-Control-Allow-Origin", allowed[0])
			}
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, "+TenantHeader)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
