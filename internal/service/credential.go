package service

import (
	"context"
	"strings"

	"github.com/Dan9191/edge-dashboard/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Credential returns the bearer token forwarded to the backend. The stored
// session token wins unless it is a JWT whose exp has passed, in which case
// the configured API key is used.
func (s *Service) Credential(ctx context.Context) string {
	token, ok, err := s.prefs.Get(ctx, models.PrefToken)
	if err != nil {
		s.log.WithError(err).Warn("Failed to read stored token")
	}
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return s.apiKey
	}
	if s.tokenExpired(token) {
		s.log.Info("Stored token expired, using API key")
		return s.apiKey
	}
	return token
}

// SetToken stores the session token used for backend requests.
func (s *Service) SetToken(ctx context.Context, token string) error {
	return s.prefs.Set(ctx, models.PrefToken, strings.TrimSpace(token))
}

// tokenExpired reads the exp claim without verifying the signature; the
// backend does the verification. Opaque tokens never expire here.
func (s *Service) tokenExpired(token string) bool {
	if strings.Count(token, ".") != 2 {
		return false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.After(s.nowFn())
}
