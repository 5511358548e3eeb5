package users_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/gateway"
	"github.com/parley-chat/parley/internal/shared"
	"github.com/parley-chat/parley/internal/token"
	"github.com/parley-chat/parley/internal/users"
	_ "github.com/parley-chat/parley/testing"
)

type stubRepo struct {
	users map[int64]*auth.User
}

func (s *stubRepo) UserByID(ctx context.Context, id int64) (*auth.User, error) {
	if user, ok := s.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, shared.ErrUserNotFound
}

func (s *stubRepo) UpdateUser(ctx context.Context, user *auth.User) error {
	current, ok := s.users[user.ID]
	if !ok {
		return shared.ErrUserNotFound
	}
	for id, other := range s.users {
		if id != user.ID && other.Username == user.Username {
			return shared.ErrUsernameTaken
		}
	}
	*current = *user
	return nil
}

type plainHasher struct{}

func (plainHasher) Hash(plaintext string) (string, error) { return "digest:" + plaintext, nil }
func (plainHasher) Verify(plaintext, digest string) bool  { return "digest:"+plaintext == digest }

func newService(repo *stubRepo) *users.Service {
	logger := slog.New(slog.DiscardHandler)
	return users.NewService(logger, repo, plainHasher{}, gateway.NewPublisher(logger, nil, false))
}

func seed() *stubRepo {
	return &stubRepo{users: map[int64]*auth.User{
		1: {ID: 1, Username: "alice", PasswordHash: "digest:pw"},
		2: {ID: 2, Username: "bob", PasswordHash: "digest:pw"},
	}}
}

func TestGet(t *testing.T) {
	svc := newService(seed())

	user, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = svc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, shared.ErrUserNotFound)
}

func TestModifySelfUsername(t *testing.T) {
	repo := seed()
	svc := newService(repo)

	name := "Allie "
	user, err := svc.ModifySelf(context.Background(), 1, users.ProfilePatch{Username: &name})
	require.NoError(t, err)
	assert.Equal(t, "allie", user.Username)
	assert.Equal(t, "allie", repo.users[1].Username)

	taken := "bob"
	_, err = svc.ModifySelf(context.Background(), 1, users.ProfilePatch{Username: &taken})
	assert.ErrorIs(t, err, shared.ErrUsernameTaken)

	blank := "  "
	_, err = svc.ModifySelf(context.Background(), 1, users.ProfilePatch{Username: &blank})
	assert.ErrorIs(t, err, shared.ErrInvalidUsername)
}

func TestPasswordChangeRevokesTokens(t *testing.T) {
	repo := seed()
	svc := newService(repo)

	// A token minted against the current hash stops verifying once the
	// password changes, because signatures are keyed by the stored hash.
	tok := token.Issue(10, repo.users[1].PasswordHash)
	require.True(t, token.Verify(tok, repo.users[1].PasswordHash))

	newPw, oldPw := "next", "pw"
	user, err := svc.ModifySelf(context.Background(), 1, users.ProfilePatch{
		Password: &newPw, OldPassword: &oldPw,
	})
	require.NoError(t, err)
	assert.Equal(t, "digest:next", user.PasswordHash)
	assert.False(t, token.Verify(tok, repo.users[1].PasswordHash))
}

func TestPasswordChangeRequiresCurrentPassword(t *testing.T) {
	svc := newService(seed())

	newPw := "next"
	_, err := svc.ModifySelf(context.Background(), 1, users.ProfilePatch{Password: &newPw})
	assert.ErrorIs(t, err, shared.ErrIncorrectPassword)

	wrong := "nope"
	_, err = svc.ModifySelf(context.Background(), 1, users.ProfilePatch{
		Password: &newPw, OldPassword: &wrong,
	})
	assert.ErrorIs(t, err, shared.ErrIncorrectPassword)
}
