// Package guilds implements guild lifecycle, membership and role management.
// Every mutating operation is gated on the caller's resolved guild-scope
// permissions.
package guilds

import (
	"context"
	"log/slog"
	"time"

	"github.com/parley-chat/parley/internal/gateway"
	"github.com/parley-chat/parley/internal/permissions"
	"github.com/parley-chat/parley/internal/shared"
	"github.com/parley-chat/parley/internal/snowflake"
)

// DefaultMaxMembers caps membership for newly created guilds.
const DefaultMaxMembers = 1000

// Service owns guild and role operations.
type Service struct {
	logger *slog.Logger
	repo   Repository
	ids    *snowflake.Generator
	events *gateway.Publisher
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo Repository, ids *snowflake.Generator, events *gateway.Publisher) *Service {
	return &Service{logger: logger, repo: repo, ids: ids, events: events}
}

// Create mints a new guild owned by the caller. The guild row and the owner's
// membership are written in one transaction; a guild must never exist without
// its owner as a member.
func (s *Service) Create(ctx context.Context, ownerID int64, name string) (*Guild, error) {
	guild := &Guild{
		ID:          s.ids.Generate(),
		Name:        name,
		OwnerID:     ownerID,
		Type:        "community",
		MaxMembers:  DefaultMaxMembers,
		Permissions: permissions.DefaultEveryone.Bits(),
	}
	owner := Member{UserID: ownerID, GuildID: guild.ID, JoinedAt: time.Now().UTC()}
	if err := s.repo.CreateGuild(ctx, guild, owner); err != nil {
		return nil, err
	}
	return guild, nil
}

// Get returns a guild to one of its members.
func (s *Service) Get(ctx context.Context, userID, guildID int64) (*Guild, error) {
	if _, _, err := s.repo.Membership(ctx, guildID, userID); err != nil {
		return nil, err
	}
	return s.repo.GuildByID(ctx, guildID)
}

// GuildPatch carries the mutable guild fields; nil means leave unchanged.
type GuildPatch struct {
	Name        *string
	Permissions *int64
}

// Modify updates guild fields. Changing the base permission set additionally
// requires the caller to hold every bit they are granting, so a manager
// cannot hand "@everyone" more than they have themselves.
func (s *Service) Modify(ctx context.Context, userID, guildID int64, patch GuildPatch) (*Guild, error) {
	perms, err := s.require(ctx, guildID, userID, permissions.ManageGuild)
	if err != nil {
		return nil, err
	}

	if patch.Permissions != nil {
		granted, err := permissions.FromBits(*patch.Permissions)
		if err != nil {
			return nil, err
		}
		if !perms.Contains(granted) {
			return nil, shared.ErrInvalidPermissions
		}
	}

	guild, err := s.repo.UpdateGuild(ctx, guildID, patch.Name, patch.Permissions)
	if err != nil {
		return nil, err
	}
	s.events.PublishGuild(ctx, guildID, gateway.EventGuildUpdate, guild)
	return guild, nil
}

// Delete removes a guild. Owner only; ADMINISTRATOR does not suffice here.
func (s *Service) Delete(ctx context.Context, userID, guildID int64) error {
	guild, _, err := s.repo.Membership(ctx, guildID, userID)
	if err != nil {
		return err
	}
	if guild.OwnerID != userID {
		return shared.ErrInvalidPermissions
	}
	if err := s.repo.DeleteGuild(ctx, guildID); err != nil {
		return err
	}
	s.events.PublishGuild(ctx, guildID, gateway.EventGuildDelete, map[string]int64{"guild_id": guildID})
	return nil
}

// Roles lists a guild's roles to one of its members.
func (s *Service) Roles(ctx context.Context, userID, guildID int64) ([]Role, error) {
	if _, _, err := s.repo.Membership(ctx, guildID, userID); err != nil {
		return nil, err
	}
	return s.repo.GuildRoles(ctx, guildID)
}

// RoleParams carries the fields for a new role.
type RoleParams struct {
	Name        string
	Allow       int64
	Deny        int64
	Hoist       bool
	Mentionable bool
}

// CreateRole adds a role at the end of the position order. Both masks are
// validated on the way in; corrupt masks are only tolerated when reading back
// what is already stored.
func (s *Service) CreateRole(ctx context.Context, userID, guildID int64, params RoleParams) (*Role, error) {
	if _, err := s.require(ctx, guildID, userID, permissions.ManageRoles); err != nil {
		return nil, err
	}
	if err := validateMasks(params.Allow, params.Deny); err != nil {
		return nil, err
	}

	existing, err := s.repo.GuildRoles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	position := int32(1)
	for _, role := range existing {
		if role.Position >= position {
			position = role.Position + 1
		}
	}

	role := &Role{
		ID:          s.ids.Generate(),
		GuildID:     guildID,
		Name:        params.Name,
		Allow:       params.Allow,
		Deny:        params.Deny,
		Position:    position,
		Hoist:       params.Hoist,
		Mentionable: params.Mentionable,
	}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		return nil, err
	}
	s.events.PublishGuild(ctx, guildID, gateway.EventRoleCreate, role)
	return role, nil
}

// RolePatch carries the mutable role fields; nil means leave unchanged.
type RolePatch struct {
	Name        *string
	Allow       *int64
	Deny        *int64
	Position    *int32
	Hoist       *bool
	Mentionable *bool
}

// ModifyRole updates a role's fields.
func (s *Service) ModifyRole(ctx context.Context, userID, guildID, roleID int64, patch RolePatch) (*Role, error) {
	if _, err := s.require(ctx, guildID, userID, permissions.ManageRoles); err != nil {
		return nil, err
	}
	role, err := s.repo.RoleByID(ctx, guildID, roleID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		role.Name = *patch.Name
	}
	if patch.Allow != nil {
		role.Allow = *patch.Allow
	}
	if patch.Deny != nil {
		role.Deny = *patch.Deny
	}
	if patch.Position != nil {
		role.Position = *patch.Position
	}
	if patch.Hoist != nil {
		role.Hoist = *patch.Hoist
	}
	if patch.Mentionable != nil {
		role.Mentionable = *patch.Mentionable
	}
	if err := validateMasks(role.Allow, role.Deny); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRole(ctx, role); err != nil {
		return nil, err
	}
	s.events.PublishGuild(ctx, guildID, gateway.EventRoleUpdate, role)
	return role, nil
}

// DeleteRole removes a role and its assignments.
func (s *Service) DeleteRole(ctx context.Context, userID, guildID, roleID int64) error {
	if _, err := s.require(ctx, guildID, userID, permissions.ManageRoles); err != nil {
		return err
	}
	if err := s.repo.DeleteRole(ctx, guildID, roleID); err != nil {
		return err
	}
	s.events.PublishGuild(ctx, guildID, gateway.EventRoleDelete, map[string]int64{"role_id": roleID})
	return nil
}

// AssignRole attaches a role to another member.
func (s *Service) AssignRole(ctx context.Context, userID, guildID, targetID, roleID int64) error {
	if _, err := s.require(ctx, guildID, userID, permissions.ManageRoles); err != nil {
		return err
	}
	if _, _, err := s.repo.Membership(ctx, guildID, targetID); err != nil {
		return err
	}
	if _, err := s.repo.RoleByID(ctx, guildID, roleID); err != nil {
		return err
	}
	if err := s.repo.AssignRole(ctx, guildID, targetID, roleID); err != nil {
		return err
	}
	s.events.PublishGuild(ctx, guildID, gateway.EventMemberUpdate,
		map[string]int64{"user_id": targetID, "role_id": roleID})
	return nil
}

// UnassignRole detaches a role from a member.
func (s *Service) UnassignRole(ctx context.Context, userID, guildID, targetID, roleID int64) error {
	if _, err := s.require(ctx, guildID, userID, permissions.ManageRoles); err != nil {
		return err
	}
	if _, _, err := s.repo.Membership(ctx, guildID, targetID); err != nil {
		return err
	}
	if err := s.repo.UnassignRole(ctx, guildID, targetID, roleID); err != nil {
		return err
	}
	s.events.PublishGuild(ctx, guildID, gateway.EventMemberUpdate,
		map[string]int64{"user_id": targetID, "role_id": roleID})
	return nil
}

// require resolves the caller's guild-scope permissions and demands the given
// flag, returning the full set for callers that need further checks.
func (s *Service) require(ctx context.Context, guildID, userID int64, flag permissions.Permissions) (permissions.Permissions, error) {
	guild, member, err := s.repo.Membership(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}
	perms, err := s.repo.MemberPermissions(ctx, guild, member)
	if err != nil {
		return 0, err
	}
	if !perms.Contains(flag) {
		return 0, shared.ErrInvalidPermissions
	}
	return perms, nil
}

func validateMasks(allow, deny int64) error {
	if _, err := permissions.FromBits(allow); err != nil {
		return err
	}
	if _, err := permissions.FromBits(deny); err != nil {
		return err
	}
	return nil
}
