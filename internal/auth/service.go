package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/parley-chat/parley/internal/shared"
	"github.com/parley-chat/parley/internal/snowflake"
	"github.com/parley-chat/parley/internal/token"
)

// Service turns an inbound credential into an authenticated principal and
// owns the login and registration flows that mint devices and tokens.
type Service struct {
	logger *slog.Logger
	repo   Repository
	hasher PasswordHasher
	ids    *snowflake.Generator
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo Repository, hasher PasswordHasher, ids *snowflake.Generator) *Service {
	return &Service{logger: logger, repo: repo, hasher: hasher, ids: ids}
}

// Authenticate resolves a bearer token to its owning user. The claimed device
// id is extracted without verifying the signature, the device and user rows
// are fetched, and only then is the signature checked against the user's
// current password hash. Accepted if and only if that check succeeds.
func (s *Service) Authenticate(ctx context.Context, credential string) (*User, error) {
	deviceID, err := token.DeviceID(credential)
	if err != nil {
		return nil, err
	}

	device, err := s.repo.DeviceByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.UserByID(ctx, device.UserID)
	if err != nil {
		// A device must never outlive its user; a miss here is data
		// corruption, not a bad credential.
		if errors.Is(err, shared.ErrUserNotFound) {
			s.logger.Error("device references missing user",
				slog.Int64("device_id", device.ID),
				slog.Int64("user_id", device.UserID))
			return nil, shared.ErrInternal
		}
		return nil, err
	}

	if !token.Verify(credential, user.PasswordHash) {
		return nil, shared.ErrInvalidToken
	}
	return user, nil
}

// Login verifies username/password credentials, registers a fresh device and
// returns it with a token bound to it.
func (s *Service) Login(ctx context.Context, username, password string) (*User, string, error) {
	user, err := s.repo.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			return nil, "", shared.ErrInvalidUsername
		}
		return nil, "", err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, "", shared.ErrIncorrectPassword
	}

	device := Device{ID: s.ids.Generate(), UserID: user.ID}
	if err := s.repo.CreateDevice(ctx, device); err != nil {
		return nil, "", err
	}
	return user, token.Issue(device.ID, user.PasswordHash), nil
}

// Logout deletes the device named by the credential, revoking that token (and
// any sibling issued for the same device) without touching other sessions. The
// credential must still verify; an invalid token cannot revoke anything.
func (s *Service) Logout(ctx context.Context, credential string) error {
	if _, err := s.Authenticate(ctx, credential); err != nil {
		return err
	}
	deviceID, err := token.DeviceID(credential)
	if err != nil {
		return err
	}
	return s.repo.DeleteDevice(ctx, deviceID)
}

// Register creates a user account with its first device and returns the
// issued token.
func (s *Service) Register(ctx context.Context, username, password string) (*User, string, error) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", shared.ErrInternal
	}

	user := &User{
		ID:           s.ids.Generate(),
		Username:     username,
		PasswordHash: digest,
		Flags:        DefaultUserFlags,
	}
	deviceID := s.ids.Generate()
	if err := s.repo.CreateUserWithDevice(ctx, user, deviceID); err != nil {
		return nil, "", err
	}
	return user, token.Issue(deviceID, digest), nil
}
