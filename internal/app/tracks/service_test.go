package tracks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "mixtape/internal/errors"
	"mixtape/internal/models"
	"mixtape/internal/store"
)

type stubStore struct {
	tracks    map[string]models.Track
	createErr error
}

func newStubStore(tracks ...models.Track) *stubStore {
	s := &stubStore{tracks: make(map[string]models.Track)}
	for _, track := range tracks {
		s.tracks[track.TrackID] = track
	}
	return s
}

func (s *stubStore) CreateTrack(_ context.Context, track *models.Track) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.tracks[track.TrackID] = *track
	return nil
}

func (s *stubStore) GetTrack(_ context.Context, trackID string) (*models.Track, error) {
	track, ok := s.tracks[trackID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &track, nil
}

func (s *stubStore) GetTracks(_ context.Context, ids []string) ([]models.Track, error) {
	var out []models.Track
	for _, trackID := range ids {
		if track, ok := s.tracks[trackID]; ok {
			out = append(out, track)
		}
	}
	return out, nil
}

func (s *stubStore) DeleteTrack(_ context.Context, trackID string) error {
	if _, ok := s.tracks[trackID]; !ok {
		return store.ErrNotFound
	}
	delete(s.tracks, trackID)
	return nil
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name    string
		caller  string
		title   string
		artist  string
		wantErr error
	}{
		{"anonymous", "", "Song", "Band", apperr.ErrUnauthenticated},
		{"missing title", "u1", " ", "Band", apperr.ErrInvalidArgument},
		{"missing artist", "u1", "Song", "", apperr.ErrInvalidArgument},
		{"ok", "u1", " Song ", "Band", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(newStubStore())
			track, err := svc.Create(context.Background(), tt.caller, tt.title, tt.artist)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Song", track.Title)
			assert.Len(t, track.TrackID, 36)
		})
	}
}

func TestCreateMapsStoreErrors(t *testing.T) {
	stub := newStubStore()
	svc := New(stub)

	stub.createErr = store.ErrTrackExists
	_, err := svc.Create(context.Background(), "u1", "Song", "Band")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	stub.createErr = errors.New("disk full")
	_, err = svc.Create(context.Background(), "u1", "Song", "Band")
	assert.ErrorIs(t, err, apperr.ErrInternal)
}

func TestGetMany(t *testing.T) {
	svc := New(newStubStore(
		models.Track{TrackID: "a", Title: "A"},
		models.Track{TrackID: "b", Title: "B"},
	))

	tracks, err := svc.GetMany(context.Background(), []string{"b", "missing", "a", "b"})
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "b", tracks[0].TrackID)
	assert.Equal(t, "a", tracks[1].TrackID)

	_, err = svc.GetMany(context.Background(), make([]string, maxBulk+1))
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestGetAndDelete(t *testing.T) {
	svc := New(newStubStore(models.Track{TrackID: "a", Title: "A"}))
	ctx := context.Background()

	track, err := svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", track.Title)

	assert.ErrorIs(t, svc.Delete(ctx, "", "a"), apperr.ErrUnauthenticated)
	require.NoError(t, svc.Delete(ctx, "u1", "a"))
	assert.ErrorIs(t, svc.Delete(ctx, "u1", "a"), apperr.ErrNotFound)

	_, err = svc.Get(ctx, "a")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
