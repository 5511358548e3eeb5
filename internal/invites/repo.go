package invites

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/guilds"
	"github.com/parley-chat/parley/internal/permissions"
	"github.com/parley-chat/parley/internal/platform/db"
	"github.com/parley-chat/parley/internal/shared"
)

// Repository defines persistence operations for invites and guild joins.
type Repository interface {
	CreateInvite(ctx context.Context, invite Invite) error
	InviteByID(ctx context.Context, id string) (*Invite, error)
	DeleteInvite(ctx context.Context, id string) error

	GuildByID(ctx context.Context, id int64) (*guilds.Guild, error)
	JoinGuild(ctx context.Context, guildID, userID int64) error

	Membership(ctx context.Context, guildID, userID int64) (permissions.Guild, permissions.Member, error)
	MemberPermissions(ctx context.Context, guild permissions.Guild, member permissions.Member) (permissions.Permissions, error)
	ChannelPermissions(ctx context.Context, guild permissions.Guild, channelID int64, member permissions.Member, guildPerms permissions.Permissions) (permissions.Permissions, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateInvite inserts an invite, retrying on the rare id collision.
func (r *PGRepository) CreateInvite(ctx context.Context, invite Invite) error {
	for attempt := 0; attempt < 3; attempt++ {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO invites (id, guild_id, channel_id, author_id, created_at)
			 VALUES ($1, $2, $3, $4, $5);`,
			invite.ID, invite.GuildID, invite.ChannelID, invite.AuthorID, invite.CreatedAt)
		if err == nil {
			return nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			invite.ID = NewID()
			continue
		}
		return shared.ErrInternal
	}
	return shared.ErrInternal
}

func (r *PGRepository) InviteByID(ctx context.Context, id string) (*Invite, error) {
	var invite Invite
	err := r.pool.QueryRow(ctx,
		`SELECT id, guild_id, channel_id, author_id, created_at
		 FROM invites WHERE id = $1;`, id,
	).Scan(&invite.ID, &invite.GuildID, &invite.ChannelID, &invite.AuthorID, &invite.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrInviteNotFound
		}
		return nil, shared.ErrInternal
	}
	return &invite, nil
}

func (r *PGRepository) DeleteInvite(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invites WHERE id = $1;`, id)
	if err != nil {
		return shared.ErrInternal
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrInviteNotFound
	}
	return nil
}

func (r *PGRepository) GuildByID(ctx context.Context, id int64) (*guilds.Guild, error) {
	var guild guilds.Guild
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

// JoinGuild inserts the membership inside a transaction that rechecks the
// member cap, so two concurrent joins cannot overshoot max_members.
func (r *PGRepository) JoinGuild(ctx context.Context, guildID, userID int64) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var maxMembers, count int32
		err := tx.QueryRow(ctx,
			`SELECT g.max_members, (SELECT COUNT(*) FROM members m WHERE m.guild_id = g.id)
			 FROM guilds g WHERE g.id = $1;`, guildID,
		).Scan(&maxMembers, &count)
		if err != nil {
			return err
		}
		if count >= maxMembers {
			return shared.ErrInvalidPermissions
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO members (user_id, guild_id, joined_at) VALUES ($1, $2, $3);`,
			userID, guildID, time.Now().UTC())
		return err
	})
	if err != nil {
		var appErr *shared.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrAlreadyAGuildMember
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrGuildNotFound
		}
		return shared.ErrInternal
	}
	return nil
}

func (r *PGRepository) Membership(ctx context.Context, guildID, userID int64) (permissions.Guild, permissions.Member, error) {
	return permissions.GetMember(ctx, r.pool, guildID, userID)
}

func (r *PGRepository) MemberPermissions(ctx context.Context, guild permissions.Guild, member permissions.Member) (permissions.Permissions, error) {
	return permissions.GuildPermissions(ctx, r.pool, guild, member)
}

func (r *PGRepository) ChannelPermissions(ctx context.Context, guild permissions.Guild, channelID int64, member permissions.Member, guildPerms permissions.Permissions) (permissions.Permissions, error) {
	return permissions.ChannelPermissions(ctx, r.pool, guild, channelID, member, guildPerms)
}

var _ Repository = (*PGRepository)(nil)
