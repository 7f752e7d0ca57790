package playlists

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "mixtape/internal/errors"
	"mixtape/internal/models"
	"mixtape/internal/store/kv"
)

const (
	owner    = "user-owner"
	stranger = "user-stranger"
)

func newTestService(t *testing.T) (Service, *kv.Store) {
	t.Helper()

	db, err := kv.OpenInMemory(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), db
}

func seedTracks(t *testing.T, db *kv.Store, ids ...string) {
	t.Helper()
	for _, trackID := range ids {
		require.NoError(t, db.CreateTrack(context.Background(), &models.Track{
			TrackID: trackID, Title: "Track " + trackID, Artist: "Artist",
		}))
	}
}

// newPlaylistWith creates a playlist owned by owner holding the given tracks in order.
func newPlaylistWith(t *testing.T, svc Service, db *kv.Store, public bool, trackIDs ...string) *models.Playlist {
	t.Helper()
	ctx := context.Background()

	seedTracks(t, db, trackIDs...)
	playlist, err := svc.Create(ctx, owner, "Test Mix", public)
	require.NoError(t, err)
	for _, trackID := range trackIDs {
		playlist, err = svc.AddTrack(ctx, owner, playlist.ID, trackID)
		require.NoError(t, err)
	}
	return playlist
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "", "Mix", true)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.Create(ctx, owner, "   ", true)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	playlist, err := svc.Create(ctx, owner, "  Sunday Morning ", false)
	require.NoError(t, err)
	assert.Equal(t, "Sunday Morning", playlist.Title)
	assert.Equal(t, owner, playlist.Owner)
	assert.Regexp(t, `^pl-`, playlist.ID)
	assert.Empty(t, playlist.Tracklist)
}

func TestMoveAndReorderScenario(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	playlist := newPlaylistWith(t, svc, db, true, "A", "B", "C")

	moved, err := svc.MoveTrack(ctx, owner, playlist.ID, "B", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, moved.Tracklist)

	reordered, err := svc.Reorder(ctx, owner, playlist.ID, []string{"C", "A", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, reordered.Tracklist)

	_, err = svc.Reorder(ctx, owner, playlist.ID, []string{"C", "A"})
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "track list mismatch")

	stored, err := svc.Get(ctx, owner, playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, stored.Tracklist)
}

func TestReorderRejectsNonPermutations(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	playlist := newPlaylistWith(t, svc, db, true, "A", "B", "C")

	tests := []struct {
		name  string
		order []string
	}{
		{"dropped", []string{"A", "B"}},
		{"added", []string{"A", "B", "C", "D"}},
		{"swapped id", []string{"A", "B", "D"}},
		{"duplicated", []string{"A", "A", "B"}},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Reorder(ctx, owner, playlist.ID, tt.order)
			require.ErrorIs(t, err, apperr.ErrInvalidArgument)

			stored, err := svc.Get(ctx, owner, playlist.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{"A", "B", "C"}, stored.Tracklist)
		})
	}
}

func TestReorderAcceptsEveryPermutation(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	playlist := newPlaylistWith(t, svc, db, true, "A", "B", "C")

	permutations := [][]string{
		{"A", "B", "C"}, {"A", "C", "B"}, {"B", "A", "C"},
		{"B", "C", "A"}, {"C", "A", "B"}, {"C", "B", "A"},
	}
	for _, order := range permutations {
		updated, err := svc.Reorder(ctx, owner, playlist.ID, order)
		require.NoError(t, err)
		assert.Equal(t, order, updated.Tracklist)
	}
}

func TestAddTrack(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	playlist := newPlaylistWith(t, svc, db, true, "A")

	_, err := svc.AddTrack(ctx, owner, playlist.ID, "A")
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.AddTrack(ctx, owner, playlist.ID, "ghost")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.AddTrack(ctx, owner, playlist.ID, "")
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = svc.AddTrack(ctx, owner, "pl-missing", "A")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	stored, err := svc.Get(ctx, owner, playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, stored.Tracklist)
}

func TestRemoveTrackIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	playlist := newPlaylistWith(t, svc, db, true, "A", "B")

	updated, err := svc.RemoveTrack(ctx, owner, playlist.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, updated.Tracklist)
	version := updated.Version

	for i := 0; i < 2; i++ {
		again, err := svc.RemoveTrack(ctx, owner, playlist.ID, "A")
		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, again.Tracklist)
		assert.Equal(t, version, again.Version, "no-op remove must not write")
	}
}

func TestMoveTrackClampsPosition(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	playlist := newPlaylistWith(t, svc, db, true, "A", "B", "C")

	moved, err := svc.MoveTrack(ctx, owner, playlist.ID, "A", 99)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A"}, moved.Tracklist)

	moved, err = svc.MoveTrack(ctx, owner, playlist.ID, "C", -5)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, moved.Tracklist)

	_, err = svc.MoveTrack(ctx, owner, playlist.ID, "Z", 0)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMutationsRequireOwner(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	playlist := newPlaylistWith(t, svc, db, true, "A", "B")

	_, err := svc.AddTrack(ctx, stranger, playlist.ID, "A")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.RemoveTrack(ctx, "", playlist.ID, "A")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.MoveTrack(ctx, stranger, playlist.ID, "A", 1)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Reorder(ctx, stranger, playlist.ID, []string{"B", "A"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	assert.ErrorIs(t, svc.Delete(ctx, stranger, playlist.ID), apperr.ErrForbidden)
}

func TestPrivatePlaylistVisibility(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	playlist := newPlaylistWith(t, svc, db, false)

	_, err := svc.Get(ctx, stranger, playlist.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Get(ctx, "", playlist.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.Get(ctx, owner, playlist.ID)
	assert.NoError(t, err)

	public, err := svc.ListPublic(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, public)

	mine, err := svc.ListMine(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestGetWithTracksFiltersDanglingReferences(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	playlist := newPlaylistWith(t, svc, db, true, "A", "B", "C")

	require.NoError(t, db.DeleteTrack(ctx, "B"))

	resolved, err := svc.GetWithTracks(ctx, stranger, playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, resolved.Tracklist)
	require.Len(t, resolved.Tracks, 2)
	assert.Equal(t, "A", resolved.Tracks[0].TrackID)
	assert.Equal(t, "C", resolved.Tracks[1].TrackID)
}

func TestDelete(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	playlist := newPlaylistWith(t, svc, db, true)

	require.NoError(t, svc.Delete(ctx, owner, playlist.ID))
	_, err := svc.Get(ctx, owner, playlist.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConcurrentMovesKeepEveryTrack(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	ids := make([]string, 6)
	for i := range ids {
		ids[i] = fmt.Sprintf("t%d", i)
	}
	playlist := newPlaylistWith(t, svc, db, true, ids...)

	var wg sync.WaitGroup
	for i, trackID := range ids {
		wg.Add(1)
		go func(trackID string, position int) {
			defer wg.Done()
			_, err := svc.MoveTrack(ctx, owner, playlist.ID, trackID, position)
			assert.NoError(t, err)
		}(trackID, len(ids)-1-i)
	}
	wg.Wait()

	stored, err := svc.Get(ctx, owner, playlist.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, stored.Tracklist)
}

func TestOrderingHelpers(t *testing.T) {
	rest, removed := withoutTrack([]string{"A", "B", "A"}, "A")
	assert.True(t, removed)
	assert.Equal(t, []string{"B"}, rest)

	_, removed = withoutTrack([]string{"B"}, "A")
	assert.False(t, removed)

	moved, err := movedTrack([]string{"A", "B", "C"}, "C", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, moved)

	assert.True(t, isPermutation(nil, []string{}))
	assert.False(t, isPermutation([]string{"A", "B"}, []string{"A", "A"}))
}
