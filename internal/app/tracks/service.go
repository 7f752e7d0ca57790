package tracks

import (
	"context"
	"errors"
	"strings"

	apperr "mixtape/internal/errors"
	"mixtape/internal/id"
	"mixtape/internal/logging"
	"mixtape/internal/models"
	"mixtape/internal/store"
)

// maxBulk bounds the ids accepted by one GetMany call.
const maxBulk = 100

// Store exposes the catalogue persistence required by the track service.
type Store interface {
	CreateTrack(ctx context.Context, track *models.Track) error
	GetTrack(ctx context.Context, trackID string) (*models.Track, error)
	GetTracks(ctx context.Context, ids []string) ([]models.Track, error)
	DeleteTrack(ctx context.Context, trackID string) error
}

// Service exposes the shared track catalogue.
type Service interface {
	Create(ctx context.Context, callerID, title, artist string) (*models.Track, error)
	Get(ctx context.Context, trackID string) (*models.Track, error)
	GetMany(ctx context.Context, trackIDs []string) ([]models.Track, error)
	Delete(ctx context.Context, callerID, trackID string) error
}

type service struct {
	store Store
}

// New constructs a track Service backed by the provided store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Create(ctx context.Context, callerID, title, artist string) (*models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if callerID == "" {
		return nil, apperr.Unauthenticated("authentication required")
	}
	title = strings.TrimSpace(title)
	artist = strings.TrimSpace(artist)
	if title == "" || artist == "" {
		return nil, apperr.InvalidArgument("title and artist are required")
	}

	track := &models.Track{
		TrackID: id.NewTrackID(),
		Title:   title,
		Artist:  artist,
	}
	if err := s.store.CreateTrack(ctx, track); err != nil {
		if errors.Is(err, store.ErrTrackExists) {
			return nil, apperr.Conflict("track already exists")
		}
		return nil, apperr.Internal(err, "failed to create track")
	}

	logging.WithContext(ctx).Info().Str("track_id", track.TrackID).Msg("track created")
	return track, nil
}

func (s *service) Get(ctx context.Context, trackID string) (*models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if trackID == "" {
		return nil, apperr.InvalidArgument("track id is required")
	}

	track, err := s.store.GetTrack(ctx, trackID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("track not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load track")
	}
	return track, nil
}

// GetMany resolves trackIDs in the order given. Unknown ids are left out.
func (s *service) GetMany(ctx context.Context, trackIDs []string) ([]models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(trackIDs) > maxBulk {
		return nil, apperr.InvalidArgumentf("at most %d track ids per request", maxBulk)
	}

	found, err := s.store.GetTracks(ctx, trackIDs)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load tracks")
	}
	byID := make(map[string]models.Track, len(found))
	for _, track := range found {
		byID[track.TrackID] = track
	}

	tracks := make([]models.Track, 0, len(found))
	seen := make(map[string]bool, len(trackIDs))
	for _, trackID := range trackIDs {
		track, ok := byID[trackID]
		if !ok || seen[trackID] {
			continue
		}
		seen[trackID] = true
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// Delete removes a track from the catalogue. Playlists that reference it keep the id and
// hide it when resolving tracks.
func (s *service) Delete(ctx context.Context, callerID, trackID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if callerID == "" {
		return apperr.Unauthenticated("authentication required")
	}

	err := s.store.DeleteTrack(ctx, trackID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("track not found")
	}
	if err != nil {
		return apperr.Internal(err, "failed to delete track")
	}
	return nil
}
