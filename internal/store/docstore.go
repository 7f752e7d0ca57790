package store

import (
	"context"
	"errors"

	"mixtape/internal/models"
)

var (
	// ErrNotFound signals the addressed document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict signals a concurrent writer won every attempt of a read-modify-write.
	ErrConflict = errors.New("concurrent modification")
	// ErrNoChange is returned by a mutation to skip the write without failing.
	ErrNoChange = errors.New("no change")
)

// PlaylistMutation edits a playlist in place inside one atomic read-modify-write.
// Returning ErrNoChange skips the write; any other error aborts it and is returned as is.
type PlaylistMutation func(p *models.Playlist) error

// TagMutation edits a tag in place inside one atomic read-modify-write.
// A tag left without associations is deleted instead of written.
type TagMutation func(t *models.Tag) error

// TagUpsert edits the tag named in UpsertTagByName. created is true when no tag with that
// name existed and t is a fresh record that will be inserted.
type TagUpsert func(t *models.Tag, created bool) error

// PlaylistStore persists playlist documents.
type PlaylistStore interface {
	CreatePlaylist(ctx context.Context, playlist *models.Playlist) error
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
	ListPublicPlaylists(ctx context.Context, limit int) ([]*models.Playlist, error)
	ListPlaylistsByOwner(ctx context.Context, owner string) ([]*models.Playlist, error)
	// UpdatePlaylist applies fn to the current document and writes the result with a
	// bumped version in a single atomic operation. It returns the stored document.
	UpdatePlaylist(ctx context.Context, id string, fn PlaylistMutation) (*models.Playlist, error)
}

// TrackStore persists the shared track catalogue.
type TrackStore interface {
	CreateTrack(ctx context.Context, track *models.Track) error
	GetTrack(ctx context.Context, trackID string) (*models.Track, error)
	// GetTracks returns the tracks that exist among ids, in no particular order.
	GetTracks(ctx context.Context, ids []string) ([]models.Track, error)
	DeleteTrack(ctx context.Context, trackID string) error
}

// TagStore persists tags together with their associations and vote sets.
type TagStore interface {
	GetTag(ctx context.Context, id string) (*models.Tag, error)
	ListTagsForItem(ctx context.Context, itemID string) ([]*models.Tag, error)
	// UpsertTagByName locates the tag by its normalized, unique name, or starts a new one,
	// and applies fn atomically. It returns the stored tag and whether it was created.
	UpsertTagByName(ctx context.Context, name string, fn TagUpsert) (*models.Tag, bool, error)
	// UpdateTag applies fn atomically. When fn leaves the tag orphaned the document is
	// deleted and the returned tag has no associations.
	UpdateTag(ctx context.Context, id string, fn TagMutation) (*models.Tag, error)
	// PositiveTallies returns one record per item associated with the tag named name,
	// restricted to records whose upvotes strictly exceed downvotes.
	PositiveTallies(ctx context.Context, name string) ([]models.Tally, error)
}

// DocumentStore is the full persistence contract of the service.
type DocumentStore interface {
	PlaylistStore
	TrackStore
	TagStore
	Close() error
}
