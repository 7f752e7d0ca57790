package httpapi

import (
	"net/http"

	"mixtape/internal/models"
)

type createTrackRequest struct {
	Title  string `json:"title" validate:"required,max=200"`
	Artist string `json:"artist" validate:"required,max=200"`
}

type bulkTracksRequest struct {
	TrackIDs []string `json:"trackIds" validate:"required,min=1,max=100,dive,required"`
}

type tracksResponse struct {
	Tracks []models.Track `json:"tracks"`
}

func (s *Server) handleCreateTrack(w http.ResponseWriter, r *http.Request) {
	var req createTrackRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	track, err := s.tracks.Create(r.Context(), callerID(r), req.Title, req.Artist)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, track)
}

func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	track, err := s.tracks.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, track)
}

func (s *Server) handleBulkTracks(w http.ResponseWriter, r *http.Request) {
	var req bulkTracksRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tracks, err := s.tracks.GetMany(r.Context(), req.TrackIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tracksResponse{Tracks: tracks})
}

func (s *Server) handleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	if err := s.tracks.Delete(r.Context(), callerID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
