package httpapi

import (
	"net/http"
	"strconv"

	apperr "mixtape/internal/errors"
	"mixtape/internal/models"
)

type createPlaylistRequest struct {
	Title    string `json:"title" validate:"required,max=100"`
	IsPublic bool   `json:"isPublic"`
}

type addTrackRequest struct {
	TrackID string `json:"trackId" validate:"required"`
}

type moveTrackRequest struct {
	TrackID  string `json:"trackId" validate:"required"`
	Position *int   `json:"position" validate:"required"`
}

type reorderRequest struct {
	Tracklist []string `json:"tracklist" validate:"required,dive,required"`
}

type playlistsResponse struct {
	Playlists []*models.Playlist `json:"playlists"`
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	playlist, err := s.playlists.Create(r.Context(), callerID(r), req.Title, req.IsPublic)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, playlist)
}

func (s *Server) handleListPublicPlaylists(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, r, apperr.InvalidArgument("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	playlists, err := s.playlists.ListPublic(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, playlistsResponse{Playlists: playlists})
}

func (s *Server) handleListMyPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.playlists.ListMine(r.Context(), callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, playlistsResponse{Playlists: playlists})
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := s.playlists.Get(r.Context(), callerID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, playlist)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.playlists.Delete(r.Context(), callerID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPlaylistTracks(w http.ResponseWriter, r *http.Request) {
	playlist, err := s.playlists.GetWithTracks(r.Context(), callerID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, playlist)
}

func (s *Server) handleAddTrack(w http.ResponseWriter, r *http.Request) {
	var req addTrackRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	playlist, err := s.playlists.AddTrack(r.Context(), callerID(r), r.PathValue("id"), req.TrackID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, playlist)
}

func (s *Server) handleRemoveTrack(w http.ResponseWriter, r *http.Request) {
	_, err := s.playlists.RemoveTrack(r.Context(), callerID(r), r.PathValue("id"), r.PathValue("trackId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveTrack(w http.ResponseWriter, r *http.Request) {
	var req moveTrackRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	playlist, err := s.playlists.MoveTrack(r.Context(), callerID(r), r.PathValue("id"), req.TrackID, *req.Position)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, playlist)
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	playlist, err := s.playlists.Reorder(r.Context(), callerID(r), r.PathValue("id"), req.Tracklist)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, playlist)
}
