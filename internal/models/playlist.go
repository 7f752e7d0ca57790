package models

import (
	"slices"
	"time"
)

// Track is shared catalogue metadata. Playlists reference tracks by TrackID and never embed them.
type Track struct {
	TrackID string    `json:"trackId" db:"track_id"`
	Title   string    `json:"title" db:"title"`
	Artist  string    `json:"artist" db:"artist"`
	AddedAt time.Time `json:"addedAt" db:"added_at"`
}

// Playlist captures a user-curated, ordered list of track references.
type Playlist struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	IsPublic  bool      `json:"isPublic" db:"is_public"`
	Owner     string    `json:"owner" db:"owner"`
	Tracklist []string  `json:"tracklist" db:"tracklist"`
	Version   int64     `json:"version" db:"version"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// PlaylistWithTracks is a playlist with its track references resolved in playlist order.
type PlaylistWithTracks struct {
	*Playlist
	Tracks []Track `json:"tracks"`
}

// HasTrack reports whether trackID is in the tracklist.
func (p *Playlist) HasTrack(trackID string) bool {
	return slices.Contains(p.Tracklist, trackID)
}

// Clone returns a deep copy safe to mutate.
func (p *Playlist) Clone() *Playlist {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Tracklist = slices.Clone(p.Tracklist)
	if clone.Tracklist == nil {
		clone.Tracklist = []string{}
	}
	return &clone
}
