package relationships

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/platform/db"
	"github.com/parley-chat/parley/internal/shared"
)

// Repository defines persistence operations for relationship edges.
type Repository interface {
	// Get returns the directed edge origin->target, or nil when none exists.
	Get(ctx context.Context, originID, targetID int64) (*Relationship, error)
	List(ctx context.Context, originID int64) ([]Relationship, error)
	Upsert(ctx context.Context, rel Relationship) error
	// UpsertPair writes both directions atomically (friend acceptance).
	UpsertPair(ctx context.Context, a, b Relationship) error
	// Delete removes the single directed edge origin->target.
	Delete(ctx context.Context, originID, targetID int64) error
	// DeletePair removes both directions atomically.
	DeletePair(ctx context.Context, originID, targetID int64) error
	// BlockReplace removes the reverse edge and writes the block in one
	// transaction, so a block never coexists with the target's edge back.
	BlockReplace(ctx context.Context, block Relationship) error

	UserExists(ctx context.Context, id int64) (bool, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Get(ctx context.Context, originID, targetID int64) (*Relationship, error) {
	var rel Relationship
	err := r.pool.QueryRow(ctx,
		`SELECT origin_id, target_id, type FROM relationships
		 WHERE origin_id = $1 AND target_id = $2;`, originID, targetID,
	).Scan(&rel.OriginID, &rel.TargetID, &rel.Type)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, shared.ErrInternal
	}
	return &rel, nil
}

func (r *PGRepository) List(ctx context.Context, originID int64) ([]Relationship, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT origin_id, target_id, type FROM relationships
		 WHERE origin_id = $1 ORDER BY target_id;`, originID)
	if err != nil {
		return nil, shared.ErrInternal
	}
	defer rows.Close()

	var out []Relationship
	for rows.Next() {
		var rel Relationship
		if err := rows.Scan(&rel.OriginID, &rel.TargetID, &rel.Type); err != nil {
			return nil, shared.ErrInternal
		}
		out = append(out, rel)
	}
	if rows.Err() != nil {
		return nil, shared.ErrInternal
	}
	return out, nil
}

const upsertSQL = `INSERT INTO relationships (origin_id, target_id, type)
	 VALUES ($1, $2, $3)
	 ON CONFLICT (origin_id, target_id) DO UPDATE SET type = $3;`

func (r *PGRepository) Upsert(ctx context.Context, rel Relationship) error {
	if _, err := r.pool.Exec(ctx, upsertSQL, rel.OriginID, rel.TargetID, rel.Type); err != nil {
		return shared.ErrInternal
	}
	return nil
}

func (r *PGRepository) UpsertPair(ctx context.Context, a, b Relationship) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertSQL, a.OriginID, a.TargetID, a.Type); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, upsertSQL, b.OriginID, b.TargetID, b.Type)
		return err
	})
	if err != nil {
		return shared.ErrInternal
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, originID, targetID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM relationships WHERE origin_id = $1 AND target_id = $2;`,
		originID, targetID)
	if err != nil {
		return shared.ErrInternal
	}
	return nil
}

func (r *PGRepository) DeletePair(ctx context.Context, originID, targetID int64) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`DELETE FROM relationships
			 WHERE (origin_id = $1 AND target_id = $2)
			    OR (origin_id = $2 AND target_id = $1);`, originID, targetID)
		return err
	})
	if err != nil {
		return shared.ErrInternal
	}
	return nil
}

func (r *PGRepository) BlockReplace(ctx context.Context, block Relationship) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM relationships WHERE origin_id = $1 AND target_id = $2;`,
			block.TargetID, block.OriginID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, upsertSQL, block.OriginID, block.TargetID, block.Type)
		return err
	})
	if err != nil {
		return shared.ErrInternal
	}
	return nil
}

func (r *PGRepository) UserExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1);`, id).Scan(&exists)
	if err != nil {
		return false, shared.ErrInternal
	}
	return exists, nil
}

var _ Repository = (*PGRepository)(nil)
