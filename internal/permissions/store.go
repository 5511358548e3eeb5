package permissions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/parley-chat/parley/internal/platform/db"
	"github.com/parley-chat/parley/internal/shared"
)

// GetMember fetches the guild row and the caller's membership row. A missing
// guild is ErrGuildNotFound; a present guild without a membership row is
// ErrNotAGuildMember.
func GetMember(ctx context.Context, q db.Querier, guildID, userID int64) (Guild, Member, error) {
	var guild Guild
	err := q.QueryRow(ctx,
		`SELECT id, owner_id, permissions FROM guilds WHERE id = $1;`,
		guildID,
	).Scan(&guild.ID, &guild.OwnerID, &guild.Permissions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Guild{}, Member{}, shared.ErrGuildNotFound
		}
		return Guild{}, Member{}, shared.ErrInternal
	}

	var member Member
	err = q.QueryRow(ctx,
		`SELECT user_id, guild_id FROM members WHERE guild_id = $1 AND user_id = $2;`,
		guildID, userID,
	).Scan(&member.UserID, &member.GuildID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Guild{}, Member{}, shared.ErrNotAGuildMember
		}
		return Guild{}, Member{}, shared.ErrInternal
	}
	return guild, member, nil
}

// MemberRoles fetches the roles assigned to a member in (position, id) order,
// the same key resolution sorts by.
func MemberRoles(ctx context.Context, q db.Querier, member Member) ([]Role, error) {
	rows, err := q.Query(ctx,
		`SELECT id, allow, deny, position FROM roles
		 WHERE id IN (
		     SELECT role_id FROM member_assigned_roles
		     WHERE user_id = $1 AND guild_id = $2
		 )
		 ORDER BY position, id;`,
		member.UserID, member.GuildID,
	)
	if err != nil {
		return nil, shared.ErrInternal
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Allow, &role.Deny, &role.Position); err != nil {
			return nil, shared.ErrInternal
		}
		roles = append(roles, role)
	}
	if rows.Err() != nil {
		return nil, shared.ErrInternal
	}
	return roles, nil
}

// ChannelOverwrites fetches every permission overwrite scoped to a channel.
func ChannelOverwrites(ctx context.Context, q db.Querier, channelID int64) ([]Overwrite, error) {
	rows, err := q.Query(ctx,
		`SELECT id, channel_id, type, allow, deny FROM permission_overwrites
		 WHERE channel_id = $1;`,
		channelID,
	)
	if err != nil {
		return nil, shared.ErrInternal
	}
	defer rows.Close()

	var overwrites []Overwrite
	for rows.Next() {
		var ow Overwrite
		if err := rows.Scan(&ow.ID, &ow.ChannelID, &ow.Type, &ow.Allow, &ow.Deny); err != nil {
			return nil, shared.ErrInternal
		}
		overwrites = append(overwrites, ow)
	}
	if rows.Err() != nil {
		return nil, shared.ErrInternal
	}
	return overwrites, nil
}

// GuildPermissions fetches the member's roles and resolves guild-scope
// permissions. Always re-derived; nothing is cached.
func GuildPermissions(ctx context.Context, q db.Querier, guild Guild, member Member) (Permissions, error) {
	roles, err := MemberRoles(ctx, q, member)
	if err != nil {
		return 0, err
	}
	return ResolveGuild(guild, member, roles)
}

// ChannelPermissions fetches the channel's overwrites and layers them over
// already-resolved guild permissions. The role and overwrite fetches are
// independent and run concurrently; q must therefore be safe for concurrent
// use (a pool, not a transaction).
func ChannelPermissions(ctx context.Context, q db.Querier, guild Guild, channelID int64, member Member, guildPerms Permissions) (Permissions, error) {
	var (
		roles      []Role
		overwrites []Overwrite
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roles, err = MemberRoles(ctx, q, member)
		return err
	})
	g.Go(func() error {
		var err error
		overwrites, err = ChannelOverwrites(ctx, q, channelID)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return ResolveChannel(guild, channelID, member, guildPerms, roles, overwrites)
}
