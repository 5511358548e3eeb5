// Package users implements profile reads and self-service profile updates.
package users

import (
	"context"
	"log/slog"
	"strings"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/gateway"
	"github.com/parley-chat/parley/internal/shared"
)

// Service owns user profile operations.
type Service struct {
	logger *slog.Logger
	repo   Repository
	hasher auth.PasswordHasher
	events *gateway.Publisher
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo Repository, hasher auth.PasswordHasher, events *gateway.Publisher) *Service {
	return &Service{logger: logger, repo: repo, hasher: hasher, events: events}
}

// Get returns a user's profile; the password hash never serializes.
func (s *Service) Get(ctx context.Context, id int64) (*auth.User, error) {
	return s.repo.UserByID(ctx, id)
}

// ProfilePatch carries the self-service profile fields; nil means leave
// unchanged. A password change requires the current password.
type ProfilePatch struct {
	Username    *string
	Password    *string
	OldPassword *string
}

// ModifySelf updates the caller's own profile. Changing the password re-hashes
// the credential, which invalidates every outstanding token since token
// signatures are keyed by the stored hash.
func (s *Service) ModifySelf(ctx context.Context, userID int64, patch ProfilePatch) (*auth.User, error) {
	user, err := s.repo.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*patch.Username))
		if username == "" {
			return nil, shared.ErrInvalidUsername
		}
		user.Username = username
	}
	if patch.Password != nil {
		if patch.OldPassword == nil || !s.hasher.Verify(*patch.OldPassword, user.PasswordHash) {
			return nil, shared.ErrIncorrectPassword
		}
		digest, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, shared.ErrInternal
		}
		user.PasswordHash = digest
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	s.events.PublishUser(ctx, userID, gateway.EventUserUpdate, user)
	return user, nil
}
