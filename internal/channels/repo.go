package channels

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/permissions"
	"github.com/parley-chat/parley/internal/platform/db"
	"github.com/parley-chat/parley/internal/shared"
)

// Repository defines persistence operations for channels and their permission
// overwrites.
type Repository interface {
	CreateChannel(ctx context.Context, channel *Channel) error
	ChannelByID(ctx context.Context, guildID, channelID int64) (*Channel, error)
	UpdateChannel(ctx context.Context, channel *Channel) error
	DeleteChannel(ctx context.Context, guildID, channelID int64) error
	GuildChannels(ctx context.Context, guildID int64) ([]Channel, error)

	UpsertOverwrite(ctx context.Context, ow permissions.Overwrite) error
	DeleteOverwrite(ctx context.Context, channelID, overwriteID int64) error

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

func (r *PGRepository) CreateChannel(ctx context.Context, channel *Channel) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO channels (id, guild_id, name, type, parent_id, position)
		 VALUES ($1, $2, $3, $4, $5, $6);`,
		channel.ID, channel.GuildID, channel.Name, channel.Type,
		channel.ParentID, channel.Position)
	if err != nil {
		return shared.ErrInternal
	}
	return nil
}

func (r *PGRepository) ChannelByID(ctx context.Context, guildID, channelID int64) (*Channel, error) {
	var channel Channel
	err := r.pool.QueryRow(ctx,
		`SELECT id, guild_id, name, type, parent_id, position
		 FROM channels WHERE guild_id = $1 AND id = $2;`, guildID, channelID,
	).Scan(&channel.ID, &channel.GuildID, &channel.Name, &channel.Type,
		&channel.ParentID, &channel.Position)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrChannelNotFound
		}
		return nil, shared.ErrInternal
	}
	return &channel, nil
}

// UpdateChannel rewrites the mutable fields inside a transaction so a
// reparenting cannot be observed half-applied.
func (r *PGRepository) UpdateChannel(ctx context.Context, channel *Channel) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE channels SET name = $3, parent_id = $4, position = $5
			 WHERE guild_id = $1 AND id = $2;`,
			channel.GuildID, channel.ID, channel.Name, channel.ParentID, channel.Position)
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
			return shared.ErrChannelNotFound
		}
		return shared.ErrInternal
	}
	return nil
}

func (r *PGRepository) DeleteChannel(ctx context.Context, guildID, channelID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM channels WHERE guild_id = $1 AND id = $2;`, guildID, channelID)
	if err != nil {
		return shared.ErrInternal
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrChannelNotFound
	}
	return nil
}

func (r *PGRepository) GuildChannels(ctx context.Context, guildID int64) ([]Channel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, guild_id, name, type, parent_id, position
		 FROM channels WHERE guild_id = $1 ORDER BY position, id;`, guildID)
	if err != nil {
		return nil, shared.ErrInternal
	}
	defer rows.Close()

	var out []Channel
	for rows.Next() {
		var channel Channel
		if err := rows.Scan(&channel.ID, &channel.GuildID, &channel.Name,
			&channel.Type, &channel.ParentID, &channel.Position); err != nil {
			return nil, shared.ErrInternal
		}
		out = append(out, channel)
	}
	if rows.Err() != nil {
		return nil, shared.ErrInternal
	}
	return out, nil
}

// UpsertOverwrite writes both masks in one statement; an overwrite is keyed by
// the subject id within its channel.
func (r *PGRepository) UpsertOverwrite(ctx context.Context, ow permissions.Overwrite) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO permission_overwrites (id, channel_id, type, allow, deny)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (channel_id, id)
		 DO UPDATE SET type = $3, allow = $4, deny = $5;`,
		ow.ID, ow.ChannelID, ow.Type, ow.Allow, ow.Deny)
	if err != nil {
		return shared.ErrInternal
	}
	return nil
}

func (r *PGRepository) DeleteOverwrite(ctx context.Context, channelID, overwriteID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM permission_overwrites WHERE channel_id = $1 AND id = $2;`,
		channelID, overwriteID)
	if err != nil {
		return shared.ErrInternal
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrChannelNotFound
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
