package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/observability/metrics"
	"github.com/aryan0dhankhar/okrboard/internal/security/auth"
)

// TokenDenylist tracks revoked access tokens.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthConfig holds the auth service's tunables.
type AuthConfig struct {
	TokenTTL      time.Duration
	SignupEnabled bool
}

// AuthService handles authentication operations
type AuthService struct {
	accounts    domain.AccountRepository
	credentials domain.CredentialRepository
	profiles    domain.ProfileRepository
	tokens      *auth.TokenManager
	denylist    TokenDenylist
	cfg         AuthConfig
	logger      *slog.Logger
}

// NewAuthService creates a new authentication service. denylist may be nil, in which
// case Logout only ends the client's session.
func NewAuthService(
	accounts domain.AccountRepository,
	credentials domain.CredentialRepository,
	profiles domain.ProfileRepository,
	tokens *auth.TokenManager,
	denylist TokenDenylist,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 15 * time.Minute
	}
	return &AuthService{
		accounts:    accounts,
		credentials: credentials,
		profiles:    profiles,
		tokens:      tokens,
		denylist:    denylist,
		cfg:         cfg,
		logger:      logger,
	}
}

// Register atomically creates a credential and a member profile without a tenant, then signs in.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (*domain.Session, error) {
	if !s.cfg.SignupEnabled {
		metrics.ObserveAuth("register", "disabled")
		return nil, ErrSignupDisabled
	}

	email = strings.TrimSpace(email)
	fullName = strings.TrimSpace(fullName)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email is not valid")
	}
	if fullName == "" {
		return nil, invalid("full name is required")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	userID := uuid.NewString()
	cred := &domain.Credential{UserID: userID, Email: email, PasswordHash: hash}
	profile := &domain.Profile{
		ID:       userID,
		Email:    strings.ToLower(email),
		FullName: fullName,
		Role:     domain.RoleMember,
		IsActive: true,
	}
	if err := s.accounts.CreateAccount(ctx, cred, profile); err != nil {
		metrics.ObserveAuth("register", "failure")
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("email already registered: %w", domain.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.Info("user registered", slog.String("user_id", userID))
	metrics.ObserveAuth("register", "success")
	return s.issue(userID, profile.Email)
}

// Login verifies credentials and issues an access token.
// Unknown emails, wrong passwords and deactivated profiles all fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, invalid("email and password are required")
	}

	cred, err := s.credentials.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("login attempt with unknown email")
			metrics.ObserveAuth("login", "failure")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	if !auth.CheckPassword(cred.PasswordHash, password) {
		s.logger.Info("login failed with wrong password", slog.String("user_id", cred.UserID))
		metrics.ObserveAuth("login", "failure")
		return nil, domain.ErrInvalidCredentials
	}

	profile, err := s.profiles.GetByID(ctx, cred.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if !profile.IsActive {
		s.logger.Info("login attempt on deactivated profile", slog.String("user_id", cred.UserID))
		metrics.ObserveAuth("login", "inactive")
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, domain.ErrInactive)
	}

	s.logger.Info("user logged in", slog.String("user_id", cred.UserID))
	metrics.ObserveAuth("login", "success")
	return s.issue(cred.UserID, cred.Email)
}

func (s *AuthService) issue(userID, email string) (*domain.Session, error) {
	token, expiresAt, err := s.tokens.GenerateToken(userID, email, s.cfg.TokenTTL)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &domain.Session{
		UserID:      userID,
		Email:       email,
		AccessToken: token,
		ExpiresAt:   expiresAt.Unix(),
	}, nil
}

// VerifyToken validates a token and rejects revoked ones.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if s.denylist != nil && claims.ID != "" {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, fmt.Errorf("%w: token revoked", auth.ErrInvalidToken)
		}
	}
	return claims, nil
}

// Logout revokes the token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.denylist == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.Error("failed to revoke token",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		return err
	}
	s.logger.Info("user logged out", slog.String("user_id", claims.UserID))
	return nil
}

// ChangePassword changes a user's password
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	cred, err := s.credentials.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}
	if !auth.CheckPassword(cred.PasswordHash, oldPassword) {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrInvalidCredentials)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return fmt.Errorf("failed to change password: %w", err)
	}
	if err := s.credentials.UpdatePassword(ctx, userID, hash); err != nil {
		s.logger.Error("failed to update password", slog.String("error", err.Error()))
		return fmt.Errorf("failed to change password: %w", err)
	}

	s.logger.Info("user changed password", slog.String("user_id", userID))
	return nil
}

// Me returns the caller's active profile.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, domain.ErrInactive
	}
	return p, nil
}

// LoadProfile lets the server build session state with the same rules as clients.
func (s *AuthService) LoadProfile(ctx context.Context, sess *domain.Session) (*domain.Profile, error) {
	if sess == nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.Me(ctx, sess.UserID)
}
