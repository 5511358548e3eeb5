package tracks_test

import (
	"context"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/shared"
	"github.com/parley-chat/parley/internal/snowflake"
	"github.com/parley-chat/parley/internal/tracks"
	_ "github.com/parley-chat/parley/testing"
)

type stubRepo struct {
	users  map[int64]bool
	blocks map[[2]int64]bool // author -> viewer
	tracks map[int64]*tracks.Track
}

func newStubRepo(users ...int64) *stubRepo {
	repo := &stubRepo{
		users:  map[int64]bool{},
		blocks: map[[2]int64]bool{},
		tracks: map[int64]*tracks.Track{},
	}
	for _, id := range users {
		repo.users[id] = true
	}
	return repo
}

func (s *stubRepo) CreateTrack(ctx context.Context, track *tracks.Track) error {
	s.tracks[track.ID] = track
	return nil
}

func (s *stubRepo) TrackByID(ctx context.Context, id int64) (*tracks.Track, error) {
	if track, ok := s.tracks[id]; ok {
		copied := *track
		return &copied, nil
	}
	return nil, shared.ErrTrackNotFound
}

func (s *stubRepo) UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) error {
	track, ok := s.tracks[id]
	if !ok {
		return shared.ErrTrackNotFound
	}
	track.Content = content
	track.EditedAt = &editedAt
	return nil
}

func (s *stubRepo) DeleteTrack(ctx context.Context, id int64) error {
	if _, ok := s.tracks[id]; !ok {
		return shared.ErrTrackNotFound
	}
	delete(s.tracks, id)
	return nil
}

func (s *stubRepo) UserTracks(ctx context.Context, authorID, startBucket, endBucket, beforeID int64, limit int32) ([]tracks.Track, error) {
	var out []tracks.Track
	for _, track := range s.tracks {
		if track.AuthorID != authorID || track.ID >= beforeID {
			continue
		}
		if track.Bucket < startBucket || track.Bucket > endBucket {
			continue
		}
		out = append(out, *track)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if int32(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) UserExists(ctx context.Context, id int64) (bool, error) {
	return s.users[id], nil
}

func (s *stubRepo) Blocked(ctx context.Context, viewerID, authorID int64) (bool, error) {
	return s.blocks[[2]int64{authorID, viewerID}], nil
}

func newService(t *testing.T, repo tracks.Repository) *tracks.Service {
	t.Helper()
	ids, err := snowflake.NewGenerator(1, 1)
	require.NoError(t, err)
	return tracks.NewService(slog.New(slog.DiscardHandler), repo, ids)
}

func TestCreateDerivesBucket(t *testing.T) {
	repo := newStubRepo(1)
	svc := newService(t, repo)

	track, err := svc.Create(context.Background(), 1, "first post")
	require.NoError(t, err)
	assert.Equal(t, snowflake.Bucket(track.ID), track.Bucket)
	assert.Nil(t, track.EditedAt)
}

func TestModifyAuthorOnly(t *testing.T) {
	repo := newStubRepo(1, 2)
	svc := newService(t, repo)
	ctx := context.Background()

	track, err := svc.Create(ctx, 1, "draft")
	require.NoError(t, err)

	_, err = svc.Modify(ctx, 2, track.ID, "hijacked")
	assert.ErrorIs(t, err, shared.ErrInvalidPermissions)

	updated, err := svc.Modify(ctx, 1, track.ID, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Content)
	require.NotNil(t, updated.EditedAt)

	got, err := svc.Get(ctx, 1, track.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Content)
}

func TestDeleteAuthorOnly(t *testing.T) {
	repo := newStubRepo(1, 2)
	svc := newService(t, repo)
	ctx := context.Background()

	track, err := svc.Create(ctx, 1, "ephemeral")
	require.NoError(t, err)

	err = svc.Delete(ctx, 2, track.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidPermissions)

	require.NoError(t, svc.Delete(ctx, 1, track.ID))
	_, err = svc.Get(ctx, 1, track.ID)
	assert.ErrorIs(t, err, shared.ErrTrackNotFound)
}

func TestBlockedViewerSeesNothing(t *testing.T) {
	repo := newStubRepo(1, 2)
	svc := newService(t, repo)
	ctx := context.Background()

	track, err := svc.Create(ctx, 1, "members only")
	require.NoError(t, err)

	repo.blocks[[2]int64{1, 2}] = true

	_, err = svc.Get(ctx, 2, track.ID)
	assert.ErrorIs(t, err, shared.ErrBlocked)

	_, err = svc.ListUser(ctx, 2, 1, 0)
	assert.ErrorIs(t, err, shared.ErrBlocked)

	// The author still sees their own tracks.
	_, err = svc.Get(ctx, 1, track.ID)
	assert.NoError(t, err)
}

func TestListUserNewestFirst(t *testing.T) {
	repo := newStubRepo(1, 2)
	svc := newService(t, repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, 1, "one")
	require.NoError(t, err)
	second, err := svc.Create(ctx, 1, "two")
	require.NoError(t, err)

	out, err := svc.ListUser(ctx, 2, 1, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, second.ID, out[0].ID)
	assert.Equal(t, first.ID, out[1].ID)

	// Paginating below the older id yields nothing further.
	out, err = svc.ListUser(ctx, 2, 1, first.ID)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = svc.ListUser(ctx, 2, 404, 0)
	assert.ErrorIs(t, err, shared.ErrUserNotFound)
}
