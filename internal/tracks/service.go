// Package tracks implements short profile posts.
package tracks

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/parley-chat/parley/internal/shared"
	"github.com/parley-chat/parley/internal/snowflake"
)

// listWindow is how far back one listing page reaches. Pagination continues
// past it by passing the last id of the previous page as before.
const listWindow = 8 * 7 * 24 * time.Hour

// DefaultListLimit is the page size for user track listings.
const DefaultListLimit int32 = 50

// Service owns track operations.
type Service struct {
	logger *slog.Logger
	repo   Repository
	ids    *snowflake.Generator
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo Repository, ids *snowflake.Generator) *Service {
	return &Service{logger: logger, repo: repo, ids: ids}
}

// Create posts a track authored by the caller.
func (s *Service) Create(ctx context.Context, authorID int64, content string) (*Track, error) {
	track := &Track{
		ID:       s.ids.Generate(),
		AuthorID: authorID,
		Content:  content,
	}
	track.Bucket = snowflake.Bucket(track.ID)
	if err := s.repo.CreateTrack(ctx, track); err != nil {
		return nil, err
	}
	return track, nil
}

// Get returns one track. A viewer blocked by the author sees nothing.
func (s *Service) Get(ctx context.Context, viewerID, trackID int64) (*Track, error) {
	track, err := s.repo.TrackByID(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if err := s.checkBlocked(ctx, viewerID, track.AuthorID); err != nil {
		return nil, err
	}
	return track, nil
}

// Modify edits a track's content. Author only.
func (s *Service) Modify(ctx context.Context, userID, trackID int64, content string) (*Track, error) {
	track, err := s.repo.TrackByID(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if track.AuthorID != userID {
		return nil, shared.ErrInvalidPermissions
	}

	editedAt := time.Now().UTC()
	if err := s.repo.UpdateContent(ctx, trackID, content, editedAt); err != nil {
		return nil, err
	}
	track.Content = content
	track.EditedAt = &editedAt
	return track, nil
}

// Delete removes a track. Author only.
func (s *Service) Delete(ctx context.Context, userID, trackID int64) error {
	track, err := s.repo.TrackByID(ctx, trackID)
	if err != nil {
		return err
	}
	if track.AuthorID != userID {
		return shared.ErrInvalidPermissions
	}
	return s.repo.DeleteTrack(ctx, trackID)
}

// ListUser returns a page of a user's tracks, newest first. A zero before
// starts from now; otherwise the page holds ids strictly below it. Each page
// spans at most listWindow of id-embedded time, which keeps the bucket range
// the store scans bounded.
func (s *Service) ListUser(ctx context.Context, viewerID, authorID, before int64) ([]Track, error) {
	exists, err := s.repo.UserExists(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrUserNotFound
	}
	if err := s.checkBlocked(ctx, viewerID, authorID); err != nil {
		return nil, err
	}

	upper := before
	until := time.Now()
	if upper <= 0 {
		upper = math.MaxInt64
	} else {
		until = snowflake.Timestamp(upper)
	}
	startBucket, endBucket := snowflake.Buckets(
		snowflake.Threshold(until.Add(-listWindow)), before)

	return s.repo.UserTracks(ctx, authorID, startBucket, endBucket, upper, DefaultListLimit)
}

func (s *Service) checkBlocked(ctx context.Context, viewerID, authorID int64) error {
	if viewerID == authorID {
		return nil
	}
	blocked, err := s.repo.Blocked(ctx, viewerID, authorID)
	if err != nil {
		return err
	}
	if blocked {
		return shared.ErrBlocked
	}
	return nil
}
