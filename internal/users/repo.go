package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/shared"
)

// Repository defines persistence operations for user profiles.
type Repository interface {
	UserByID(ctx context.Context, id int64) (*auth.User, error)
	UpdateUser(ctx context.Context, user *auth.User) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) UserByID(ctx context.Context, id int64) (*auth.User, error) {
	var user auth.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, display_name, avatar, password, flags, bot, system
		 FROM users WHERE id = $1;`, id,
	).Scan(&user.ID, &user.Username, &user.DisplayName, &user.Avatar,
		&user.PasswordHash, &user.Flags, &user.Bot, &user.System)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrUserNotFound
		}
		return nil, shared.ErrInternal
	}
	return &user, nil
}

func (r *PGRepository) UpdateUser(ctx context.Context, user *auth.User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET username = $2, password = $3, flags = $4 WHERE id = $1;`,
		user.ID, user.Username, user.PasswordHash, user.Flags)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrUsernameTaken
		}
		return shared.ErrInternal
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
