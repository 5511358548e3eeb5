package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/platform/db"
	"github.com/parley-chat/parley/internal/shared"
)

// Repository defines the persistence operations the gate and the login and
// registration flows need.
type Repository interface {
	DeviceByID(ctx context.Context, id int64) (*Device, error)
	UserByID(ctx context.Context, id int64) (*User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
	CreateDevice(ctx context.Context, device Device) error
	// CreateUserWithDevice inserts the user row and its first device in one
	// transaction.
	CreateUserWithDevice(ctx context.Context, user *User, deviceID int64) error
	// DeleteDevice removes a device row, revoking every token bound to it.
	DeleteDevice(ctx context.Context, id int64) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, username, display_name, avatar, password, flags, bot, system`

func scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Username, &user.DisplayName, &user.Avatar,
		&user.PasswordHash, &user.Flags, &user.Bot, &user.System)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrUserNotFound
		}
		return nil, shared.ErrInternal
	}
	return &user, nil
}

// DeviceByID fetches a device row.
func (r *PGRepository) DeviceByID(ctx context.Context, id int64) (*Device, error) {
	var device Device
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id FROM devices WHERE id = $1;`, id,
	).Scan(&device.ID, &device.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrInvalidAuthorization
		}
		return nil, shared.ErrInternal
	}
	return &device, nil
}

// UserByID fetches a user row.
func (r *PGRepository) UserByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1;`, id))
}

// UserByUsername fetches a user row by its unique username.
func (r *PGRepository) UserByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1;`, username))
}

// CreateDevice inserts a device row.
func (r *PGRepository) CreateDevice(ctx context.Context, device Device) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO devices (id, user_id) VALUES ($1, $2);`,
		device.ID, device.UserID)
	if err != nil {
		return shared.ErrInternal
	}
	return nil
}

// CreateUserWithDevice inserts the user and its first device atomically.
func (r *PGRepository) CreateUserWithDevice(ctx context.Context, user *User, deviceID int64) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO users (id, username, display_name, avatar, password, flags, bot, system)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
			user.ID, user.Username, user.DisplayName, user.Avatar,
			user.PasswordHash, user.Flags, user.Bot, user.System)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO devices (id, user_id) VALUES ($1, $2);`,
			deviceID, user.ID)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrUsernameTaken
		}
		return shared.ErrInternal
	}
	return nil
}

// DeleteDevice removes a device row. Deleting an already-absent device is not
// an error; the tokens it named are dead either way.
func (r *PGRepository) DeleteDevice(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM devices WHERE id = $1;`, id); err != nil {
		return shared.ErrInternal
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
