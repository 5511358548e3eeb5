package invites_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/gateway"
	"github.com/parley-chat/parley/internal/guilds"
	"github.com/parley-chat/parley/internal/invites"
	"github.com/parley-chat/parley/internal/permissions"
	"github.com/parley-chat/parley/internal/shared"
	_ "github.com/parley-chat/parley/testing"
)

type memberKey struct{ guildID, userID int64 }
type overwriteKey struct{ channelID, id int64 }

type stubRepo struct {
	guild      *guilds.Guild
	members    map[memberKey]bool
	roles      map[int64][]permissions.Role
	overwrites map[overwriteKey]permissions.Overwrite
	invites    map[string]invites.Invite
}

func newStubRepo(guild *guilds.Guild) *stubRepo {
	return &stubRepo{
		guild:      guild,
		members:    map[memberKey]bool{},
		roles:      map[int64][]permissions.Role{},
		overwrites: map[overwriteKey]permissions.Overwrite{},
		invites:    map[string]invites.Invite{},
	}
}

func (s *stubRepo) CreateInvite(ctx context.Context, invite invites.Invite) error {
	s.invites[invite.ID] = invite
	return nil
}

func (s *stubRepo) InviteByID(ctx context.Context, id string) (*invites.Invite, error) {
	if invite, ok := s.invites[id]; ok {
		return &invite, nil
	}
	return nil, shared.ErrInviteNotFound
}

func (s *stubRepo) DeleteInvite(ctx context.Context, id string) error {
	if _, ok := s.invites[id]; !ok {
		return shared.ErrInviteNotFound
	}
	delete(s.invites, id)
	return nil
}

func (s *stubRepo) GuildByID(ctx context.Context, id int64) (*guilds.Guild, error) {
	if id == s.guild.ID {
		return s.guild, nil
	}
	return nil, shared.ErrGuildNotFound
}

func (s *stubRepo) JoinGuild(ctx context.Context, guildID, userID int64) error {
	key := memberKey{guildID, userID}
	if s.members[key] {
		return shared.ErrAlreadyAGuildMember
	}
	count := int32(0)
	for k := range s.members {
		if k.guildID == guildID {
			count++
		}
	}
	if count >= s.guild.MaxMembers {
		return shared.ErrInvalidPermissions
	}
	s.members[key] = true
	return nil
}

func (s *stubRepo) Membership(ctx context.Context, guildID, userID int64) (permissions.Guild, permissions.Member, error) {
	if guildID != s.guild.ID {
		return permissions.Guild{}, permissions.Member{}, shared.ErrGuildNotFound
	}
	if !s.members[memberKey{guildID, userID}] {
		return permissions.Guild{}, permissions.Member{}, shared.ErrNotAGuildMember
	}
	pg := permissions.Guild{ID: s.guild.ID, OwnerID: s.guild.OwnerID, Permissions: s.guild.Permissions}
	return pg, permissions.Member{UserID: userID, GuildID: guildID}, nil
}

func (s *stubRepo) MemberPermissions(ctx context.Context, guild permissions.Guild, member permissions.Member) (permissions.Permissions, error) {
	return permissions.ResolveGuild(guild, member, s.roles[member.UserID])
}

func (s *stubRepo) ChannelPermissions(ctx context.Context, guild permissions.Guild, channelID int64, member permissions.Member, guildPerms permissions.Permissions) (permissions.Permissions, error) {
	var ows []permissions.Overwrite
	for _, ow := range s.overwrites {
		ows = append(ows, ow)
	}
	return permissions.ResolveChannel(guild, channelID, member, guildPerms, s.roles[member.UserID], ows)
}

// Guild 100 is owned by user 1; user 2 is a plain member. Channel 200 exists
// implicitly; only overwrites matter to invite gating.
func newService(t *testing.T) (*invites.Service, *stubRepo) {
	t.Helper()
	repo := newStubRepo(&guilds.Guild{
		ID:          100,
		Name:        "den",
		OwnerID:     1,
		MaxMembers:  3,
		Permissions: permissions.DefaultEveryone.Bits(),
	})
	repo.members[memberKey{100, 1}] = true
	repo.members[memberKey{100, 2}] = true
	logger := slog.New(slog.DiscardHandler)
	return invites.NewService(logger, repo, gateway.NewPublisher(logger, nil, false)), repo
}

func TestNewIDShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := invites.NewID()
		require.Len(t, id, invites.IDLength)
		for _, r := range id {
			assert.True(t, (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
		}
		seen[id] = true
	}
	// Collisions across 100 draws from 62^6 would point at a broken generator.
	assert.Greater(t, len(seen), 95)
}

func TestCreateGatedAtChannelScope(t *testing.T) {
	svc, repo := newService(t)

	invite, err := svc.Create(context.Background(), 2, 100, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(100), invite.GuildID)
	assert.Equal(t, int64(2), invite.AuthorID)

	// Revoke CREATE_INVITES on this one channel for "@everyone".
	repo.overwrites[overwriteKey{200, 100}] = permissions.Overwrite{
		ID: 100, ChannelID: 200, Type: permissions.OverwriteRole,
		Deny: (permissions.All &^ permissions.CreateInvites).Bits(),
	}
	_, err = svc.Create(context.Background(), 2, 100, 200)
	assert.ErrorIs(t, err, shared.ErrInvalidPermissions)

	// Another channel is unaffected.
	_, err = svc.Create(context.Background(), 2, 100, 201)
	assert.NoError(t, err)

	_, err = svc.Create(context.Background(), 99, 100, 200)
	assert.ErrorIs(t, err, shared.ErrNotAGuildMember)
}

func TestJoinAddsMember(t *testing.T) {
	svc, repo := newService(t)

	invite, err := svc.Create(context.Background(), 1, 100, 200)
	require.NoError(t, err)

	guild, err := svc.Join(context.Background(), 3, invite.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), guild.ID)
	assert.True(t, repo.members[memberKey{100, 3}])

	_, err = svc.Join(context.Background(), 3, invite.ID)
	assert.ErrorIs(t, err, shared.ErrAlreadyAGuildMember)

	_, err = svc.Join(context.Background(), 4, "missing")
	assert.ErrorIs(t, err, shared.ErrInviteNotFound)

	// MaxMembers is 3 and the guild is full now.
	_, err = svc.Join(context.Background(), 4, invite.ID)
	assert.Error(t, err)
}

func TestDeleteByAuthorOrManager(t *testing.T) {
	svc, repo := newService(t)

	invite, err := svc.Create(context.Background(), 2, 100, 200)
	require.NoError(t, err)

	// A third member without MANAGE_INVITES cannot revoke someone else's.
	repo.members[memberKey{100, 3}] = true
	err = svc.Delete(context.Background(), 3, invite.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidPermissions)

	// The owner resolves to the full set.
	require.NoError(t, svc.Delete(context.Background(), 1, invite.ID))

	invite, err = svc.Create(context.Background(), 2, 100, 200)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), 2, invite.ID))

	err = svc.Delete(context.Background(), 2, invite.ID)
	assert.ErrorIs(t, err, shared.ErrInviteNotFound)
}

func TestInviteCarriesCreationTime(t *testing.T) {
	svc, _ := newService(t)

	before := time.Now().Add(-time.Second)
	invite, err := svc.Create(context.Background(), 1, 100, 200)
	require.NoError(t, err)
	assert.True(t, invite.CreatedAt.After(before))
}
