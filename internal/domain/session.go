package domain

import "time"

// Session is an authenticated identity plus its bearer token.
// ExpiresAt is in epoch seconds.
type Session struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// IsExpired reports whether the token is missing or its expiry is at or before now.
func (s *Session) IsExpired(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return true
	}
	return s.ExpiresAt <= now.Unix()
}
