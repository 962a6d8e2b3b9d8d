package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims decodes the access credential's claims without verifying the
// signature. Display only: the client never judges expiry itself, the
// server's 401 remains the sole authority.
func (s *Store) TokenClaims() (jwt.MapClaims, error) {
	s.mu.RLock()
	access := s.access
	s.mu.RUnlock()

	if access == "" {
		return nil, ErrNoSession
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return nil, fmt.Errorf("failed to decode access credential: %w", err)
	}

	return claims, nil
}

// TokenExpiry returns the access credential's exp claim, when present.
func (s *Store) TokenExpiry() (time.Time, bool) {
	claims, err := s.TokenClaims()
	if err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
