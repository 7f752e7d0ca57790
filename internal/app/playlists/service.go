package playlists

import (
	"context"
	"errors"
	"slices"
	"strings"
	"unicode/utf8"

	"mixtape/internal/access"
	apperr "mixtape/internal/errors"
	"mixtape/internal/id"
	"mixtape/internal/logging"
	"mixtape/internal/models"
	"mixtape/internal/store"
)

const (
	defaultPublicLimit = 20
	maxPublicLimit     = 100
	maxTitleLength     = 100
)

// Store captures the persistence needs for playlist workflows.
type Store interface {
	CreatePlaylist(ctx context.Context, playlist *models.Playlist) error
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
	ListPublicPlaylists(ctx context.Context, limit int) ([]*models.Playlist, error)
	ListPlaylistsByOwner(ctx context.Context, owner string) ([]*models.Playlist, error)
	UpdatePlaylist(ctx context.Context, id string, fn store.PlaylistMutation) (*models.Playlist, error)
	GetTrack(ctx context.Context, trackID string) (*models.Track, error)
	GetTracks(ctx context.Context, ids []string) ([]models.Track, error)
}

// Service coordinates playlist-related operations, including the ordered track list.
type Service interface {
	Create(ctx context.Context, callerID, title string, isPublic bool) (*models.Playlist, error)
	Get(ctx context.Context, callerID, playlistID string) (*models.Playlist, error)
	GetWithTracks(ctx context.Context, callerID, playlistID string) (*models.PlaylistWithTracks, error)
	Delete(ctx context.Context, callerID, playlistID string) error
	ListPublic(ctx context.Context, limit int) ([]*models.Playlist, error)
	ListMine(ctx context.Context, callerID string) ([]*models.Playlist, error)

	AddTrack(ctx context.Context, callerID, playlistID, trackID string) (*models.Playlist, error)
	RemoveTrack(ctx context.Context, callerID, playlistID, trackID string) (*models.Playlist, error)
	MoveTrack(ctx context.Context, callerID, playlistID, trackID string, position int) (*models.Playlist, error)
	Reorder(ctx context.Context, callerID, playlistID string, tracklist []string) (*models.Playlist, error)
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Create(ctx context.Context, callerID, title string, isPublic bool) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if callerID == "" {
		return nil, apperr.Unauthenticated("authentication required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.InvalidArgument("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, apperr.InvalidArgumentf("title must be at most %d characters", maxTitleLength)
	}

	playlistID, err := id.Generate(id.PlaylistPrefix)
	if err != nil {
		return nil, apperr.Internal(err, "failed to create playlist")
	}

	playlist := &models.Playlist{
		ID:        playlistID,
		Title:     title,
		IsPublic:  isPublic,
		Owner:     callerID,
		Tracklist: []string{},
	}
	if err := s.store.CreatePlaylist(ctx, playlist); err != nil {
		return nil, apperr.Internal(err, "failed to create playlist")
	}

	logging.WithContext(ctx).Info().Str("playlist_id", playlist.ID).Msg("playlist created")
	return playlist, nil
}

func (s *service) Get(ctx context.Context, callerID, playlistID string) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	playlist, err := s.load(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if err := access.AuthorizeRead(playlist, callerID); err != nil {
		return nil, err
	}
	return playlist, nil
}

func (s *service) GetWithTracks(ctx context.Context, callerID, playlistID string) (*models.PlaylistWithTracks, error) {
	playlist, err := s.Get(ctx, callerID, playlistID)
	if err != nil {
		return nil, err
	}

	found, err := s.store.GetTracks(ctx, playlist.Tracklist)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load tracks")
	}
	byID := make(map[string]models.Track, len(found))
	for _, track := range found {
		byID[track.TrackID] = track
	}

	// Dangling references stay in the stored list and are only hidden here.
	tracks := make([]models.Track, 0, len(playlist.Tracklist))
	for _, trackID := range playlist.Tracklist {
		if track, ok := byID[trackID]; ok {
			tracks = append(tracks, track)
		}
	}
	return &models.PlaylistWithTracks{Playlist: playlist, Tracks: tracks}, nil
}

func (s *service) Delete(ctx context.Context, callerID, playlistID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	playlist, err := s.load(ctx, playlistID)
	if err != nil {
		return err
	}
	if err := access.AuthorizeWrite(playlist, callerID); err != nil {
		return err
	}
	if err := s.store.DeletePlaylist(ctx, playlistID); err != nil {
		return translate(err, "failed to delete playlist")
	}

	logging.WithContext(ctx).Info().Str("playlist_id", playlistID).Msg("playlist deleted")
	return nil
}

func (s *service) ListPublic(ctx context.Context, limit int) ([]*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPublicLimit
	}
	limit = min(limit, maxPublicLimit)

	playlists, err := s.store.ListPublicPlaylists(ctx, limit)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list playlists")
	}
	return playlists, nil
}

func (s *service) ListMine(ctx context.Context, callerID string) ([]*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if callerID == "" {
		return nil, apperr.Unauthenticated("authentication required")
	}
	playlists, err := s.store.ListPlaylistsByOwner(ctx, callerID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list playlists")
	}
	return playlists, nil
}

func (s *service) AddTrack(ctx context.Context, callerID, playlistID, trackID string) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if trackID == "" {
		return nil, apperr.InvalidArgument("trackId is required")
	}

	playlist, err := s.authorizeMutation(ctx, callerID, playlistID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetTrack(ctx, trackID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("track not found")
		}
		return nil, apperr.Internal(err, "failed to load track")
	}

	return s.mutate(ctx, callerID, playlist.ID, func(p *models.Playlist) error {
		if p.HasTrack(trackID) {
			return apperr.Conflict("track already in playlist")
		}
		p.Tracklist = append(p.Tracklist, trackID)
		return nil
	})
}

func (s *service) RemoveTrack(ctx context.Context, callerID, playlistID, trackID string) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if trackID == "" {
		return nil, apperr.InvalidArgument("trackId is required")
	}

	playlist, err := s.authorizeMutation(ctx, callerID, playlistID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, callerID, playlist.ID, func(p *models.Playlist) error {
		rest, removed := withoutTrack(p.Tracklist, trackID)
		if !removed {
			return store.ErrNoChange
		}
		p.Tracklist = rest
		return nil
	})
}

func (s *service) MoveTrack(ctx context.Context, callerID, playlistID, trackID string, position int) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if trackID == "" {
		return nil, apperr.InvalidArgument("trackId is required")
	}

	playlist, err := s.authorizeMutation(ctx, callerID, playlistID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, callerID, playlist.ID, func(p *models.Playlist) error {
		moved, err := movedTrack(p.Tracklist, trackID, position)
		if err != nil {
			return err
		}
		if slices.Equal(moved, p.Tracklist) {
			return store.ErrNoChange
		}
		p.Tracklist = moved
		return nil
	})
}

func (s *service) Reorder(ctx context.Context, callerID, playlistID string, tracklist []string) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	playlist, err := s.authorizeMutation(ctx, callerID, playlistID)
	if err != nil {
		return nil, err
	}

	order := slices.Clone(tracklist)
	return s.mutate(ctx, callerID, playlist.ID, func(p *models.Playlist) error {
		if !isPermutation(p.Tracklist, order) {
			return apperr.InvalidArgument("track list mismatch")
		}
		if slices.Equal(order, p.Tracklist) {
			return store.ErrNoChange
		}
		p.Tracklist = order
		return nil
	})
}

// load fetches a playlist and maps store failures onto the error taxonomy.
func (s *service) load(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if playlistID == "" {
		return nil, apperr.InvalidArgument("playlist id is required")
	}
	playlist, err := s.store.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, translate(err, "failed to load playlist")
	}
	return playlist, nil
}

func (s *service) authorizeMutation(ctx context.Context, callerID, playlistID string) (*models.Playlist, error) {
	playlist, err := s.load(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if err := access.AuthorizeWrite(playlist, callerID); err != nil {
		return nil, err
	}
	return playlist, nil
}

// mutate runs fn as one atomic read-modify-write, checking ownership again on the locked
// document.
func (s *service) mutate(ctx context.Context, callerID, playlistID string, fn store.PlaylistMutation) (*models.Playlist, error) {
	updated, err := s.store.UpdatePlaylist(ctx, playlistID, func(p *models.Playlist) error {
		if !access.CanWrite(p, callerID) {
			return apperr.Forbidden("only the owner can modify this playlist")
		}
		return fn(p)
	})
	if err != nil {
		return nil, translate(err, "failed to update playlist")
	}
	return updated, nil
}

func translate(err error, msg string) error {
	var domainErr *apperr.Error
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("playlist not found")
	case errors.Is(err, store.ErrConflict):
		return apperr.Conflict("playlist was modified concurrently, retry the request")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return apperr.Internal(err, msg)
	}
}
