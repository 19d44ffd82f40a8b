package handler

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aryan0dhankhar/okrboard/internal/security/middleware"
	"github.com/aryan0dhankhar/okrboard/internal/security/ratelimit"
	"github.com/aryan0dhankhar/okrboard/internal/service"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

// Credential endpoints get their own, tighter budget per client address.
const (
	credentialAttempts = 10
	credentialWindow   = time.Minute
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	limiter     *ratelimit.Limiter
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler. limiter may be nil.
func NewAuthHandler(authService *service.AuthService, limiter *ratelimit.Limiter, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService: authService,
		limiter:     limiter,
		logger:      logger,
	}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *AuthHandler) throttled(w http.ResponseWriter, r *http.Request) bool {
	if h.limiter == nil {
		return false
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if h.limiter.AllowStrict(host, credentialAttempts, credentialWindow) {
		return false
	}
	h.logger.Warn("credential rate limit exceeded", slog.String("remote", host))
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "too many attempts")
	return true
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h.throttled(w, r) {
		return
	}

	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	sess, err := h.authService.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		h.logger.Info("registration failed", slog.String("error", err.Error()))
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.throttled(w, r) {
		return
	}

	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	sess, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// Generic error to prevent user enumeration
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.ClaimsFromContext(r.Context())); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	state := session.StateFromContext(r.Context())
	writeJSON(w, http.StatusOK, state.Profile)
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.NewPassword) == "" {
		writeError(w, http.StatusBadRequest, "newPassword is required")
		return
	}

	state := session.StateFromContext(r.Context())
	if err := h.authService.ChangePassword(r.Context(), state.UserID(), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
