package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mixtape/internal/app/recommend"
	"mixtape/internal/app/tags"
	apperr "mixtape/internal/errors"
	"mixtape/internal/logging"
	"mixtape/internal/models"
	"mixtape/internal/validation"
)

// maxBodyBytes bounds request bodies; the largest legitimate one is a reorder of a long playlist.
const maxBodyBytes = 1 << 20

// PlaylistService coordinates playlist-related operations.
type PlaylistService interface {
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

// TrackService exposes the shared track catalogue.
type TrackService interface {
	Create(ctx context.Context, callerID, title, artist string) (*models.Track, error)
	Get(ctx context.Context, trackID string) (*models.Track, error)
	GetMany(ctx context.Context, trackIDs []string) ([]models.Track, error)
	Delete(ctx context.Context, callerID, trackID string) error
}

// TagService coordinates tag association and voting.
type TagService interface {
	Attach(ctx context.Context, callerID string, item tags.ItemRef, name string) (*tags.AttachResult, error)
	Detach(ctx context.Context, callerID string, item tags.ItemRef, tagID string) (*tags.DetachResult, error)
	Upvote(ctx context.Context, callerID, tagID string) (*tags.VoteResult, error)
	Downvote(ctx context.Context, callerID, tagID string) (*tags.VoteResult, error)
	ListForItem(ctx context.Context, callerID string, item tags.ItemRef) ([]*models.Tag, error)
}

// RecommendService ranks items by tag consensus.
type RecommendService interface {
	RankByTag(ctx context.Context, name string) ([]recommend.Ranking, error)
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	playlists PlaylistService
	tracks    TrackService
	tags      TagService
	recommend RecommendService
	validate  *validation.Validator
}

// New configures a Server with the given services.
func New(
	playlists PlaylistService,
	tracks TrackService,
	tags TagService,
	recommend RecommendService,
) *Server {
	return &Server{
		playlists: playlists,
		tracks:    tracks,
		tags:      tags,
		recommend: recommend,
		validate:  validation.New(),
	}
}

// Routes exposes the HTTP handlers. Identity, logging and throttling are applied by the
// caller's middleware chain; handlers read the caller from the request context.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Playlist routes
	mux.HandleFunc("POST /api/v1/playlists", s.handleCreatePlaylist)
	mux.HandleFunc("GET /api/v1/playlists/public", s.handleListPublicPlaylists)
	mux.HandleFunc("GET /api/v1/playlists/mine", s.handleListMyPlaylists)
	mux.HandleFunc("GET /api/v1/playlists/{id}", s.handleGetPlaylist)
	mux.HandleFunc("DELETE /api/v1/playlists/{id}", s.handleDeletePlaylist)

	// Track list routes
	mux.HandleFunc("GET /api/v1/playlists/{id}/tracks", s.handleGetPlaylistTracks)
	mux.HandleFunc("POST /api/v1/playlists/{id}/tracks", s.handleAddTrack)
	mux.HandleFunc("PATCH /api/v1/playlists/{id}/tracks", s.handleMoveTrack)
	mux.HandleFunc("PUT /api/v1/playlists/{id}/tracks/reorder", s.handleReorder)
	mux.HandleFunc("DELETE /api/v1/playlists/{id}/tracks/{trackId}", s.handleRemoveTrack)

	// Track catalogue routes
	mux.HandleFunc("POST /api/v1/tracks", s.handleCreateTrack)
	mux.HandleFunc("POST /api/v1/tracks/bulk", s.handleBulkTracks)
	mux.HandleFunc("GET /api/v1/tracks/{id}", s.handleGetTrack)
	mux.HandleFunc("DELETE /api/v1/tracks/{id}", s.handleDeleteTrack)

	// Tag routes
	for _, kind := range []tags.ItemKind{tags.KindPlaylist, tags.KindTrack} {
		base := fmt.Sprintf("/api/v1/%ss/{id}/tags", kind)
		mux.HandleFunc("GET "+base, s.handleListTags(kind))
		mux.HandleFunc("POST "+base, s.handleAttachTag(kind))
		mux.HandleFunc("DELETE "+base+"/{tagId}", s.handleDetachTag(kind))
	}
	mux.HandleFunc("POST /api/v1/tags/{id}/upvote", s.handleVote(true))
	mux.HandleFunc("POST /api/v1/tags/{id}/downvote", s.handleVote(false))

	// Recommendation routes
	mux.HandleFunc("GET /api/v1/recommended", s.handleRecommended)

	return mux
}

type errorDetail struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

// writeError maps err to its status code. Internal failures are logged and their detail hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *apperr.Error
	switch {
	case errors.As(err, &domainErr) && domainErr.Code != apperr.CodeInternal:
		writeJSON(w, domainErr.HTTPStatus(), errorResponse{Error: errorDetail{
			Code:    domainErr.Code,
			Message: domainErr.Message,
		}})
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logging.WithContext(r.Context()).Warn().Err(err).Msg("request cancelled")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: errorDetail{
			Code:    apperr.CodeInternal,
			Message: "request cancelled",
		}})
		return
	}

	logging.WithContext(r.Context()).Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorDetail{
		Code:    apperr.CodeInternal,
		Message: "internal server error",
	}})
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields, and validates it.
func (s *Server) decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperr.Wrap(err, apperr.CodeInvalidArgument, "invalid JSON payload")
	}
	if decoder.More() {
		return apperr.InvalidArgument("invalid JSON payload")
	}
	return s.validate.Validate(dst)
}

func callerID(r *http.Request) string {
	return logging.UserIDFromContext(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
