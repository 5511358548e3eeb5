package guilds_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/gateway"
	"github.com/parley-chat/parley/internal/guilds"
	"github.com/parley-chat/parley/internal/permissions"
	"github.com/parley-chat/parley/internal/shared"
	"github.com/parley-chat/parley/internal/snowflake"
	_ "github.com/parley-chat/parley/testing"
)

type memberKey struct{ guildID, userID int64 }
type assignKey struct{ guildID, userID, roleID int64 }

type stubRepo struct {
	guilds      map[int64]*guilds.Guild
	members     map[memberKey]guilds.Member
	roles       map[int64]*guilds.Role
	assignments map[assignKey]bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		guilds:      map[int64]*guilds.Guild{},
		members:     map[memberKey]guilds.Member{},
		roles:       map[int64]*guilds.Role{},
		assignments: map[assignKey]bool{},
	}
}

func (s *stubRepo) CreateGuild(ctx context.Context, guild *guilds.Guild, owner guilds.Member) error {
	s.guilds[guild.ID] = guild
	s.members[memberKey{guild.ID, owner.UserID}] = owner
	return nil
}

func (s *stubRepo) GuildByID(ctx context.Context, id int64) (*guilds.Guild, error) {
	if g, ok := s.guilds[id]; ok {
		return g, nil
	}
	return nil, shared.ErrGuildNotFound
}

func (s *stubRepo) UpdateGuild(ctx context.Context, id int64, name *string, perms *int64) (*guilds.Guild, error) {
	g, ok := s.guilds[id]
	if !ok {
		return nil, shared.ErrGuildNotFound
	}
	if name != nil {
		g.Name = *name
	}
	if perms != nil {
		g.Permissions = *perms
	}
	return g, nil
}

func (s *stubRepo) DeleteGuild(ctx context.Context, id int64) error {
	delete(s.guilds, id)
	return nil
}

func (s *stubRepo) CreateMember(ctx context.Context, member guilds.Member) error {
	s.members[memberKey{member.GuildID, member.UserID}] = member
	return nil
}

func (s *stubRepo) GuildRoles(ctx context.Context, guildID int64) ([]guilds.Role, error) {
	var out []guilds.Role
	for _, role := range s.roles {
		if role.GuildID == guildID {
			out = append(out, *role)
		}
	}
	return out, nil
}

func (s *stubRepo) CreateRole(ctx context.Context, role *guilds.Role) error {
	s.roles[role.ID] = role
	return nil
}

func (s *stubRepo) UpdateRole(ctx context.Context, role *guilds.Role) error {
	if _, ok := s.roles[role.ID]; !ok {
		return shared.ErrGuildNotFound
	}
	s.roles[role.ID] = role
	return nil
}

func (s *stubRepo) DeleteRole(ctx context.Context, guildID, roleID int64) error {
	if _, ok := s.roles[roleID]; !ok {
		return shared.ErrGuildNotFound
	}
	delete(s.roles, roleID)
	return nil
}

func (s *stubRepo) RoleByID(ctx context.Context, guildID, roleID int64) (*guilds.Role, error) {
	if role, ok := s.roles[roleID]; ok && role.GuildID == guildID {
		copied := *role
		return &copied, nil
	}
	return nil, shared.ErrGuildNotFound
}

func (s *stubRepo) AssignRole(ctx context.Context, guildID, userID, roleID int64) error {
	s.assignments[assignKey{guildID, userID, roleID}] = true
	return nil
}

func (s *stubRepo) UnassignRole(ctx context.Context, guildID, userID, roleID int64) error {
	delete(s.assignments, assignKey{guildID, userID, roleID})
	return nil
}

func (s *stubRepo) Membership(ctx context.Context, guildID, userID int64) (permissions.Guild, permissions.Member, error) {
	g, ok := s.guilds[guildID]
	if !ok {
		return permissions.Guild{}, permissions.Member{}, shared.ErrGuildNotFound
	}
	if _, ok := s.members[memberKey{guildID, userID}]; !ok {
		return permissions.Guild{}, permissions.Member{}, shared.ErrNotAGuildMember
	}
	pg := permissions.Guild{ID: g.ID, OwnerID: g.OwnerID, Permissions: g.Permissions}
	return pg, permissions.Member{UserID: userID, GuildID: guildID}, nil
}

func (s *stubRepo) MemberPermissions(ctx context.Context, guild permissions.Guild, member permissions.Member) (permissions.Permissions, error) {
	var roles []permissions.Role
	for key := range s.assignments {
		if key.guildID != member.GuildID || key.userID != member.UserID {
			continue
		}
		role := s.roles[key.roleID]
		roles = append(roles, permissions.Role{
			ID: role.ID, Allow: role.Allow, Deny: role.Deny, Position: role.Position,
		})
	}
	return permissions.ResolveGuild(guild, member, roles)
}

func newService(t *testing.T, repo guilds.Repository) *guilds.Service {
	t.Helper()
	ids, err := snowflake.NewGenerator(1, 1)
	require.NoError(t, err)
	logger := slog.New(slog.DiscardHandler)
	events := gateway.NewPublisher(logger, nil, false)
	return guilds.NewService(logger, repo, ids, events)
}

// seedGuild creates a guild via the service so the owner membership invariant
// holds, then adds a plain member.
func seedGuild(t *testing.T, svc *guilds.Service, repo *stubRepo, memberID int64) *guilds.Guild {
	t.Helper()
	guild, err := svc.Create(context.Background(), 1, "den")
	require.NoError(t, err)
	require.NoError(t, repo.CreateMember(context.Background(),
		guilds.Member{UserID: memberID, GuildID: guild.ID}))
	return guild
}

// grantRole gives a member a role carrying the listed bits.
func grantRole(repo *stubRepo, guild *guilds.Guild, userID, roleID int64, allow permissions.Permissions) {
	repo.roles[roleID] = &guilds.Role{
		ID: roleID, GuildID: guild.ID, Allow: allow.Bits(), Deny: permissions.All.Bits(), Position: 1,
	}
	repo.assignments[assignKey{guild.ID, userID, roleID}] = true
}

func TestCreateGuildSeedsOwnerMembership(t *testing.T) {
	repo := newStubRepo()
	svc := newService(t, repo)

	guild, err := svc.Create(context.Background(), 1, "den")
	require.NoError(t, err)
	assert.Equal(t, int64(1), guild.OwnerID)
	assert.Equal(t, permissions.DefaultEveryone.Bits(), guild.Permissions)

	got, err := svc.Get(context.Background(), 1, guild.ID)
	require.NoError(t, err)
	assert.Equal(t, guild, got)
}

func TestGetRequiresMembership(t *testing.T) {
	repo := newStubRepo()
	svc := newService(t, repo)
	guild := seedGuild(t, svc, repo, 2)

	_, err := svc.Get(context.Background(), 99, guild.ID)
	assert.ErrorIs(t, err, shared.ErrNotAGuildMember)

	_, err = svc.Get(context.Background(), 1, guild.ID+1)
	assert.ErrorIs(t, err, shared.ErrGuildNotFound)
}

func TestModifyRequiresManageGuild(t *testing.T) {
	repo := newStubRepo()
	svc := newService(t, repo)
	guild := seedGuild(t, svc, repo, 2)

	name := "renamed"
	_, err := svc.Modify(context.Background(), 2, guild.ID, guilds.GuildPatch{Name: &name})
	assert.ErrorIs(t, err, shared.ErrInvalidPermissions)

	got, err := svc.Modify(context.Background(), 1, guild.ID, guilds.GuildPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
}

func TestModifyPermissionsCallerMustHoldGrantedBits(t *testing.T) {
	repo := newStubRepo()
	svc := newService(t, repo)
	guild := seedGuild(t, svc, repo, 2)
	grantRole(repo, guild, 2, 50, permissions.ManageGuild|permissions.ViewChannels)

	// Granting HandleBans to "@everyone" while not holding it themselves.
	bits := (permissions.ViewChannels | permissions.HandleBans).Bits()
	_, err := svc.Modify(context.Background(), 2, guild.ID, guilds.GuildPatch{Permissions: &bits})
	assert.ErrorIs(t, err, shared.ErrInvalidPermissions)

	held := permissions.ViewChannels.Bits()
	got, err := svc.Modify(context.Background(), 2, guild.ID, guilds.GuildPatch{Permissions: &held})
	require.NoError(t, err)
	assert.Equal(t, held, got.Permissions)

	// The owner resolves to the full set and can grant anything known.
	all := permissions.All.Bits()
	_, err = svc.Modify(context.Background(), 1, guild.ID, guilds.GuildPatch{Permissions: &all})
	assert.NoError(t, err)

	unknown := int64(1 << 40)
	_, err = svc.Modify(context.Background(), 1, guild.ID, guilds.GuildPatch{Permissions: &unknown})
	assert.ErrorIs(t, err, shared.ErrInvalidPermissionBitSet)
}

func TestDeleteIsOwnerOnly(t *testing.T) {
	repo := newStubRepo()
	svc := newService(t, repo)
	guild := seedGuild(t, svc, repo, 2)
	grantRole(repo, guild, 2, 50, permissions.Administrator)

	// Even ADMINISTRATOR is not enough to delete a guild.
	err := svc.Delete(context.Background(), 2, guild.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidPermissions)

	require.NoError(t, svc.Delete(context.Background(), 1, guild.ID))
	_, err = svc.Get(context.Background(), 1, guild.ID)
	assert.ErrorIs(t, err, shared.ErrGuildNotFound)
}

func TestCreateRoleValidatesMasksAndPositions(t *testing.T) {
	repo := newStubRepo()
	svc := newService(t, repo)
	guild := seedGuild(t, svc, repo, 2)

	_, err := svc.CreateRole(context.Background(), 2, guild.ID, guilds.RoleParams{Name: "mods"})
	assert.ErrorIs(t, err, shared.ErrInvalidPermissions)

	first, err := svc.CreateRole(context.Background(), 1, guild.ID, guilds.RoleParams{
		Name:  "mods",
		Allow: permissions.HandleKicks.Bits(),
		Deny:  permissions.All.Bits(),
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), first.Position)

	second, err := svc.CreateRole(context.Background(), 1, guild.ID, guilds.RoleParams{
		Name: "admins",
		Deny: permissions.All.Bits(),
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), second.Position)

	_, err = svc.CreateRole(context.Background(), 1, guild.ID, guilds.RoleParams{
		Name:  "broken",
		Allow: 1 << 50,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidPermissionBitSet)
}

func TestModifyRoleAppliesPatch(t *testing.T) {
	repo := newStubRepo()
	svc := newService(t, repo)
	guild := seedGuild(t, svc, repo, 2)

	role, err := svc.CreateRole(context.Background(), 1, guild.ID, guilds.RoleParams{
		Name: "mods", Deny: permissions.All.Bits(),
	})
	require.NoError(t, err)

	allow := permissions.HandleBans.Bits()
	updated, err := svc.ModifyRole(context.Background(), 1, guild.ID, role.ID,
		guilds.RolePatch{Allow: &allow})
	require.NoError(t, err)
	assert.Equal(t, allow, updated.Allow)
	assert.Equal(t, "mods", updated.Name)

	bad := int64(1 << 50)
	_, err = svc.ModifyRole(context.Background(), 1, guild.ID, role.ID,
		guilds.RolePatch{Deny: &bad})
	assert.ErrorIs(t, err, shared.ErrInvalidPermissionBitSet)

	_, err = svc.ModifyRole(context.Background(), 1, guild.ID, 404, guilds.RolePatch{})
	assert.ErrorIs(t, err, shared.ErrGuildNotFound)
}

func TestAssignRoleGatesAndChecksTarget(t *testing.T) {
	repo := newStubRepo()
	svc := newService(t, repo)
	guild := seedGuild(t, svc, repo, 2)

	role, err := svc.CreateRole(context.Background(), 1, guild.ID, guilds.RoleParams{
		Name:  "mods",
		Allow: permissions.ManageRoles.Bits(),
		Deny:  permissions.All.Bits(),
	})
	require.NoError(t, err)

	err = svc.AssignRole(context.Background(), 2, guild.ID, 2, role.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidPermissions)

	err = svc.AssignRole(context.Background(), 1, guild.ID, 99, role.ID)
	assert.ErrorIs(t, err, shared.ErrNotAGuildMember)

	require.NoError(t, svc.AssignRole(context.Background(), 1, guild.ID, 2, role.ID))

	// With ManageRoles granted, the member can now manage roles themselves.
	err = svc.UnassignRole(context.Background(), 2, guild.ID, 2, role.ID)
	require.NoError(t, err)

	err = svc.UnassignRole(context.Background(), 2, guild.ID, 2, role.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidPermissions)
}
