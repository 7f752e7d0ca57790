package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mixtape/internal/config"
	"mixtape/internal/http/middleware"
	"mixtape/internal/models"
	"mixtape/internal/store/kv"
)

const testSecret = "0123456789abcdef0123"

type apiClient struct {
	t       *testing.T
	handler http.Handler
}

func newAPIClient(t *testing.T) *apiClient {
	t.Helper()
	docs, err := kv.OpenInMemory(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	limiter := middleware.NewKeyedRateLimiter(1000, 1000, 0)
	t.Cleanup(limiter.Stop)

	cfg := &config.Config{
		Security: config.SecurityConfig{JWTSecret: testSecret},
		CORS:     config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
	return &apiClient{t: t, handler: newHTTPHandler(cfg, docs, limiter)}
}

func (c *apiClient) do(method, path, user string, body any, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		token, err := middleware.IssueToken([]byte(testSecret), user, time.Hour)
		require.NoError(c.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(c.t, json.NewDecoder(rec.Body).Decode(out))
	}
	return rec.Code
}

func TestAPIEndToEnd(t *testing.T) {
	c := newAPIClient(t)

	var playlist models.Playlist
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/v1/playlists", "u1",
		map[string]any{"title": "Focus", "isPublic": true}, &playlist))

	trackIDs := make([]string, 0, 3)
	for _, title := range []string{"A", "B", "C"} {
		var track models.Track
		require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/v1/tracks", "u1",
			map[string]any{"title": title, "artist": "Band"}, &track))
		require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/v1/playlists/"+playlist.ID+"/tracks", "u1",
			map[string]any{"trackId": track.TrackID}, nil))
		trackIDs = append(trackIDs, track.TrackID)
	}

	// Move C to the front.
	require.Equal(t, http.StatusOK, c.do(http.MethodPatch, "/api/v1/playlists/"+playlist.ID+"/tracks", "u1",
		map[string]any{"trackId": trackIDs[2], "position": 0}, &playlist))
	assert.Equal(t, []string{trackIDs[2], trackIDs[0], trackIDs[1]}, playlist.Tracklist)

	// Another user cannot reorder it.
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodPut, "/api/v1/playlists/"+playlist.ID+"/tracks/reorder", "u2",
		map[string]any{"tracklist": trackIDs}, nil))

	// Anonymous writes are rejected.
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/api/v1/playlists", "",
		map[string]any{"title": "Nope"}, nil))

	// Tag a track, then let a second user agree and a third disagree.
	var attached struct {
		Tag     models.Tag `json:"tag"`
		Created bool       `json:"created"`
	}
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/v1/tracks/"+trackIDs[0]+"/tags", "u1",
		map[string]any{"name": "  Chill "}, &attached))
	assert.Equal(t, "chill", attached.Tag.Name)
	assert.True(t, attached.Created)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/v1/tags/"+attached.Tag.ID+"/upvote", "u2", nil, nil))
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/v1/tags/"+attached.Tag.ID+"/downvote", "u3", nil, nil))

	var recommended struct {
		Items []struct {
			ItemID string `json:"itemId"`
			Score  int    `json:"score"`
		} `json:"items"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/recommended?tag=chill", "", nil, &recommended))
	require.Len(t, recommended.Items, 1)
	assert.Equal(t, trackIDs[0], recommended.Items[0].ItemID)
	assert.Equal(t, 1, recommended.Items[0].Score)

	// Detaching the only association deletes the tag.
	var detached struct {
		Deleted bool `json:"deleted"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodDelete, "/api/v1/tracks/"+trackIDs[0]+"/tags/"+attached.Tag.ID, "u1", nil, &detached))
	assert.True(t, detached.Deleted)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodPost, "/api/v1/tags/"+attached.Tag.ID+"/upvote", "u2", nil, nil))
}

func TestAPIRejectsForgedToken(t *testing.T) {
	c := newAPIClient(t)

	token, err := middleware.IssueToken([]byte("some-other-secret-key"), "u1", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/playlists/mine", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
