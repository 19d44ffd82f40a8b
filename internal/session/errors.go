package session

import (
	"context"
	"errors"
	"net"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotRoot          = errors.New("only root users can select a tenant")
	ErrInvalidTenant    = errors.New("malformed tenant id")
	ErrClosed           = errors.New("session store closed")
)

// ErrorKind classifies authentication failures for callers.
type ErrorKind string

const (
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindSignupRejected     ErrorKind = "signup_rejected"
	KindNetwork            ErrorKind = "network"
	KindProfile            ErrorKind = "profile_unavailable"
	KindUnknown            ErrorKind = "unknown"
)

// AuthError is returned by Login, Signup and Logout. It never panics through;
// callers inspect Kind to decide what to show.
type AuthError struct {
	Kind ErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsKind reports whether err is an AuthError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == kind
}

func classify(err error) *AuthError {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	var netErr net.Error
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrInactive):
		return &AuthError{Kind: KindInvalidCredentials, Err: err}
	case errors.Is(err, domain.ErrAlreadyExists):
		return &AuthError{Kind: KindSignupRejected, Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.As(err, &netErr):
		return &AuthError{Kind: KindNetwork, Err: err}
	}
	return &AuthError{Kind: KindUnknown, Err: err}
}
