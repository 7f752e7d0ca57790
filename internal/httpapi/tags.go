package httpapi

import (
	"net/http"

	"mixtape/internal/app/recommend"
	"mixtape/internal/app/tags"
	apperr "mixtape/internal/errors"
	"mixtape/internal/models"
)

type attachTagRequest struct {
	Name string `json:"name" validate:"required"`
}

type tagsResponse struct {
	Tags []*models.Tag `json:"tags"`
}

type recommendedResponse struct {
	Tag   string              `json:"tag"`
	Items []recommend.Ranking `json:"items"`
}

func (s *Server) handleListTags(kind tags.ItemKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item := tags.ItemRef{Kind: kind, ID: r.PathValue("id")}
		list, err := s.tags.ListForItem(r.Context(), callerID(r), item)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, tagsResponse{Tags: list})
	}
}

func (s *Server) handleAttachTag(kind tags.ItemKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req attachTagRequest
		if err := s.decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		item := tags.ItemRef{Kind: kind, ID: r.PathValue("id")}
		result, err := s.tags.Attach(r.Context(), callerID(r), item, req.Name)
		if err != nil {
			writeError(w, r, err)
			return
		}

		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		writeJSON(w, status, result)
	}
}

func (s *Server) handleDetachTag(kind tags.ItemKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item := tags.ItemRef{Kind: kind, ID: r.PathValue("id")}
		result, err := s.tags.Detach(r.Context(), callerID(r), item, r.PathValue("tagId"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleVote(up bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vote := s.tags.Downvote
		if up {
			vote = s.tags.Upvote
		}

		result, err := vote(r.Context(), callerID(r), r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleRecommended(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("tag")
	if name == "" {
		writeError(w, r, apperr.InvalidArgument("tag query parameter is required"))
		return
	}

	items, err := s.recommend.RankByTag(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []recommend.Ranking{}
	}

	writeJSON(w, http.StatusOK, recommendedResponse{Tag: name, Items: items})
}
