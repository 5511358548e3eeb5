package tracks

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/shared"
)

// Repository defines persistence operations for tracks.
type Repository interface {
	CreateTrack(ctx context.Context, track *Track) error
	TrackByID(ctx context.Context, id int64) (*Track, error)
	UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) error
	DeleteTrack(ctx context.Context, id int64) error
	// UserTracks returns the author's tracks within the bucket window, newest
	// first, with ids strictly below beforeID.
	UserTracks(ctx context.Context, authorID, startBucket, endBucket, beforeID int64, limit int32) ([]Track, error)

	UserExists(ctx context.Context, id int64) (bool, error)
	// Blocked reports whether authorID has blocked viewerID.
	Blocked(ctx context.Context, viewerID, authorID int64) (bool, error)
}

// PGRepository implements Repository on PostgreSQL. Tracks carry a week
// bucket column derived from the id, mirroring how a partitioned store would
// shard them; queries always constrain on it.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) CreateTrack(ctx context.Context, track *Track) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tracks (id, author_id, content, bucket, edited_at)
		 VALUES ($1, $2, $3, $4, $5);`,
		track.ID, track.AuthorID, track.Content, track.Bucket, track.EditedAt)
	if err != nil {
		return shared.ErrInternal
	}
	return nil
}

func (r *PGRepository) TrackByID(ctx context.Context, id int64) (*Track, error) {
	var track Track
	err := r.pool.QueryRow(ctx,
		`SELECT id, author_id, content, bucket, edited_at FROM tracks WHERE id = $1;`, id,
	).Scan(&track.ID, &track.AuthorID, &track.Content, &track.Bucket, &track.EditedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrTrackNotFound
		}
		return nil, shared.ErrInternal
	}
	return &track, nil
}

func (r *PGRepository) UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tracks SET content = $2, edited_at = $3 WHERE id = $1;`,
		id, content, editedAt)
	if err != nil {
		return shared.ErrInternal
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrTrackNotFound
	}
	return nil
}

func (r *PGRepository) DeleteTrack(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tracks WHERE id = $1;`, id)
	if err != nil {
		return shared.ErrInternal
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrTrackNotFound
	}
	return nil
}

func (r *PGRepository) UserTracks(ctx context.Context, authorID, startBucket, endBucket, beforeID int64, limit int32) ([]Track, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, author_id, content, bucket, edited_at FROM tracks
		 WHERE author_id = $1 AND bucket BETWEEN $2 AND $3 AND id < $4
		 ORDER BY id DESC LIMIT $5;`,
		authorID, startBucket, endBucket, beforeID, limit)
	if err != nil {
		return nil, shared.ErrInternal
	}
	defer rows.Close()

	var out []Track
	for rows.Next() {
		var track Track
		if err := rows.Scan(&track.ID, &track.AuthorID, &track.Content,
			&track.Bucket, &track.EditedAt); err != nil {
			return nil, shared.ErrInternal
		}
		out = append(out, track)
	}
	if rows.Err() != nil {
		return nil, shared.ErrInternal
	}
	return out, nil
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

func (r *PGRepository) Blocked(ctx context.Context, viewerID, authorID int64) (bool, error) {
	var blocked bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM relationships
		     WHERE origin_id = $2 AND target_id = $1 AND type = 2
		 );`, viewerID, authorID).Scan(&blocked)
	if err != nil {
		return false, shared.ErrInternal
	}
	return blocked, nil
}

var _ Repository = (*PGRepository)(nil)
