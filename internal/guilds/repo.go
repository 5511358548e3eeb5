package guilds

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/permissions"
	"github.com/parley-chat/parley/internal/platform/db"
	"github.com/parley-chat/parley/internal/shared"
)

// Repository defines persistence operations for guilds, members and roles.
type Repository interface {
	CreateGuild(ctx context.Context, guild *Guild, owner Member) error
	GuildByID(ctx context.Context, id int64) (*Guild, error)
	UpdateGuild(ctx context.Context, id int64, name *string, permissions *int64) (*Guild, error)
	DeleteGuild(ctx context.Context, id int64) error

	CreateMember(ctx context.Context, member Member) error
	GuildRoles(ctx context.Context, guildID int64) ([]Role, error)
	CreateRole(ctx context.Context, role *Role) error
	UpdateRole(ctx context.Context, role *Role) error
	DeleteRole(ctx context.Context, guildID, roleID int64) error
	RoleByID(ctx context.Context, guildID, roleID int64) (*Role, error)
	AssignRole(ctx context.Context, guildID, userID, roleID int64) error
	UnassignRole(ctx context.Context, guildID, userID, roleID int64) error

	Membership(ctx context.Context, guildID, userID int64) (permissions.Guild, permissions.Member, error)
	MemberPermissions(ctx context.Context, guild permissions.Guild, member permissions.Member) (permissions.Permissions, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Pool exposes the underlying pool for permission resolution reads.
func (r *PGRepository) Pool() *pgxpool.Pool { return r.pool }

// CreateGuild inserts the guild row and the owner's membership atomically.
func (r *PGRepository) CreateGuild(ctx context.Context, guild *Guild, owner Member) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO guilds (id, name, icon, owner_id, type, max_members, permissions)
			 VALUES ($1, $2, $3, $4, $5, $6, $7);`,
			guild.ID, guild.Name, guild.Icon, guild.OwnerID, guild.Type,
			guild.MaxMembers, guild.Permissions)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO members (user_id, guild_id, nick, joined_at, deaf, mute)
			 VALUES ($1, $2, $3, $4, $5, $6);`,
			owner.UserID, owner.GuildID, owner.Nick, owner.JoinedAt, owner.Deaf, owner.Mute)
		return err
	})
	if err != nil {
		return shared.ErrInternal
	}
	return nil
}

// GuildByID fetches a guild row.
func (r *PGRepository) GuildByID(ctx context.Context, id int64) (*Guild, error) {
	var guild Guild
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, icon, owner_id, type, max_members, permissions
		 FROM guilds WHERE id = $1;`, id,
	).Scan(&guild.ID, &guild.Name, &guild.Icon, &guild.OwnerID, &guild.Type,
		&guild.MaxMembers, &guild.Permissions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrGuildNotFound
		}
		return nil, shared.ErrInternal
	}
	return &guild, nil
}

// UpdateGuild applies the provided fields transactionally so a crash cannot
// leave a permission update half-applied, and returns the updated row.
func (r *PGRepository) UpdateGuild(ctx context.Context, id int64, name *string, permissions *int64) (*Guild, error) {
	var guild *Guild
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if permissions != nil {
			if _, err := tx.Exec(ctx,
				`UPDATE guilds SET permissions = $2 WHERE id = $1;`, id, *permissions); err != nil {
				return err
			}
		}
		if name != nil {
			if _, err := tx.Exec(ctx,
				`UPDATE guilds SET name = $2 WHERE id = $1;`, id, *name); err != nil {
				return err
			}
		}
		var g Guild
		err := tx.QueryRow(ctx,
			`SELECT id, name, icon, owner_id, type, max_members, permissions
			 FROM guilds WHERE id = $1;`, id,
		).Scan(&g.ID, &g.Name, &g.Icon, &g.OwnerID, &g.Type, &g.MaxMembers, &g.Permissions)
		guild = &g
		return err
	})
	if err != nil {
		return nil, shared.ErrInternal
	}
	return guild, nil
}

// DeleteGuild removes a guild; dependent rows cascade.
func (r *PGRepository) DeleteGuild(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM guilds WHERE id = $1;`, id); err != nil {
		return shared.ErrInternal
	}
	return nil
}

// CreateMember inserts a membership row.
func (r *PGRepository) CreateMember(ctx context.Context, member Member) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO members (user_id, guild_id, nick, joined_at, deaf, mute)
		 VALUES ($1, $2, $3, $4, $5, $6);`,
		member.UserID, member.GuildID, member.Nick, member.JoinedAt, member.Deaf, member.Mute)
	if err != nil {
		return shared.ErrInternal
	}
	return nil
}

// GuildRoles lists a guild's roles ordered by position then id.
func (r *PGRepository) GuildRoles(ctx context.Context, guildID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, guild_id, name, allow, deny, position, hoist, mentionable
		 FROM roles WHERE guild_id = $1 ORDER BY position, id;`, guildID)
	if err != nil {
		return nil, shared.ErrInternal
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.GuildID, &role.Name, &role.Allow,
			&role.Deny, &role.Position, &role.Hoist, &role.Mentionable); err != nil {
			return nil, shared.ErrInternal
		}
		roles = append(roles, role)
	}
	if rows.Err() != nil {
		return nil, shared.ErrInternal
	}
	return roles, nil
}

// CreateRole inserts a role row.
func (r *PGRepository) CreateRole(ctx context.Context, role *Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO roles (id, guild_id, name, allow, deny, position, hoist, mentionable)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
		role.ID, role.GuildID, role.Name, role.Allow, role.Deny,
		role.Position, role.Hoist, role.Mentionable)
	if err != nil {
		return shared.ErrInternal
	}
	return nil
}

// UpdateRole rewrites a role's mutable fields transactionally; the allow/deny
// pair must never be observed half-applied.
func (r *PGRepository) UpdateRole(ctx context.Context, role *Role) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE roles SET name = $3, allow = $4, deny = $5, position = $6,
			        hoist = $7, mentionable = $8
			 WHERE guild_id = $1 AND id = $2;`,
			role.GuildID, role.ID, role.Name, role.Allow, role.Deny,
			role.Position, role.Hoist, role.Mentionable)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrGuildNotFound
		}
		return shared.ErrInternal
	}
	return nil
}

// DeleteRole removes a role; assignments cascade.
func (r *PGRepository) DeleteRole(ctx context.Context, guildID, roleID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM roles WHERE guild_id = $1 AND id = $2;`, guildID, roleID)
	if err != nil {
		return shared.ErrInternal
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrGuildNotFound
	}
	return nil
}

// RoleByID fetches one role scoped to a guild.
func (r *PGRepository) RoleByID(ctx context.Context, guildID, roleID int64) (*Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, guild_id, name, allow, deny, position, hoist, mentionable
		 FROM roles WHERE guild_id = $1 AND id = $2;`, guildID, roleID,
	).Scan(&role.ID, &role.GuildID, &role.Name, &role.Allow, &role.Deny,
		&role.Position, &role.Hoist, &role.Mentionable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrGuildNotFound
		}
		return nil, shared.ErrInternal
	}
	return &role, nil
}

// AssignRole attaches a role to a member.
func (r *PGRepository) AssignRole(ctx context.Context, guildID, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO member_assigned_roles (user_id, guild_id, role_id)
		 VALUES ($1, $2, $3) ON CONFLICT DO NOTHING;`,
		userID, guildID, roleID)
	if err != nil {
		return shared.ErrInternal
	}
	return nil
}

// UnassignRole detaches a role from a member.
func (r *PGRepository) UnassignRole(ctx context.Context, guildID, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM member_assigned_roles
		 WHERE user_id = $1 AND guild_id = $2 AND role_id = $3;`,
		userID, guildID, roleID)
	if err != nil {
		return shared.ErrInternal
	}
	return nil
}

// Membership resolves the guild and the caller's membership for gating.
func (r *PGRepository) Membership(ctx context.Context, guildID, userID int64) (permissions.Guild, permissions.Member, error) {
	return permissions.GetMember(ctx, r.pool, guildID, userID)
}

// MemberPermissions resolves a member's guild-scope permissions.
func (r *PGRepository) MemberPermissions(ctx context.Context, guild permissions.Guild, member permissions.Member) (permissions.Permissions, error) {
	return permissions.GuildPermissions(ctx, r.pool, guild, member)
}

var _ Repository = (*PGRepository)(nil)
