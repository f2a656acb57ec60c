// Package auth turns identity-provider tokens into callers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/repository"
	"github.com/splax/teamboard/pkg/config"
	jwtpkg "github.com/splax/teamboard/pkg/jwt"
)

// ErrUnauthenticated is returned for a missing or invalid token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Service verifies bearer tokens and keeps a copy of caller profiles.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.APIConfig
	now    func() time.Time
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg, now: time.Now}
}

// Authorize validates a bearer token and records the caller's profile. The
// identity provider is trusted; the user id is opaque.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, fmt.Errorf("%w: token required", ErrUnauthenticated)
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	user := &domain.User{
		ID:        claims.UserID,
		Name:      strings.TrimSpace(claims.Name),
		AvatarURL: strings.TrimSpace(claims.AvatarURL),
		UpdatedAt: domain.StorageTime(s.now()),
	}
	if err := s.users.UpsertUser(ctx, user); err != nil {
		s.logger.Warn("failed to record profile", "user_id", user.ID, "error", err)
	}
	return user, claims, nil
}

// IssueToken signs a token for local development and tests.
func (s Service) IssueToken(user domain.User, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return jwtpkg.GenerateToken(jwtpkg.Identity{UserID: user.ID, Name: user.Name, AvatarURL: user.AvatarURL}, s.cfg.JWTSecret, ttl)
}
