package tags

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"mixtape/internal/access"
	apperr "mixtape/internal/errors"
	"mixtape/internal/logging"
	"mixtape/internal/models"
	"mixtape/internal/store"
)

// Tag name bounds, counted in runes after normalization.
const (
	MinNameLength = 2
	MaxNameLength = 20
)

// ItemKind names the kind of document a tag is attached to.
type ItemKind string

const (
	KindPlaylist ItemKind = "playlist"
	KindTrack    ItemKind = "track"
)

// ItemRef addresses a taggable item.
type ItemRef struct {
	Kind ItemKind
	ID   string
}

// AttachResult is the outcome of attaching a tag to an item.
type AttachResult struct {
	Tag     *models.Tag `json:"tag"`
	Created bool        `json:"created"`
}

// DetachResult is the outcome of detaching a tag. Deleted is true when the item was the
// tag's last association and the tag is gone.
type DetachResult struct {
	Tag     *models.Tag `json:"tag,omitempty"`
	Deleted bool        `json:"deleted"`
}

// VoteResult is the tag after a vote and the caller's resulting state on it.
type VoteResult struct {
	Tag   *models.Tag      `json:"tag"`
	State models.VoteState `json:"state"`
}

// Store captures the persistence needs of tag workflows.
type Store interface {
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)
	GetTrack(ctx context.Context, trackID string) (*models.Track, error)
	GetTag(ctx context.Context, id string) (*models.Tag, error)
	ListTagsForItem(ctx context.Context, itemID string) ([]*models.Tag, error)
	UpsertTagByName(ctx context.Context, name string, fn store.TagUpsert) (*models.Tag, bool, error)
	UpdateTag(ctx context.Context, id string, fn store.TagMutation) (*models.Tag, error)
}

// Service coordinates tag association and voting.
type Service interface {
	Attach(ctx context.Context, callerID string, item ItemRef, name string) (*AttachResult, error)
	Detach(ctx context.Context, callerID string, item ItemRef, tagID string) (*DetachResult, error)
	Upvote(ctx context.Context, callerID, tagID string) (*VoteResult, error)
	Downvote(ctx context.Context, callerID, tagID string) (*VoteResult, error)
	ListForItem(ctx context.Context, callerID string, item ItemRef) ([]*models.Tag, error)
}

type service struct {
	store Store
}

// New constructs a tag Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

// NormalizeName trims and lowercases name and checks its length.
func NormalizeName(name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	length := utf8.RuneCountInString(normalized)
	if length < MinNameLength || length > MaxNameLength {
		return "", apperr.InvalidArgumentf("tag name must be between %d and %d characters", MinNameLength, MaxNameLength)
	}
	return normalized, nil
}

func (s *service) Attach(ctx context.Context, callerID string, item ItemRef, name string) (*AttachResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if callerID == "" {
		return nil, apperr.Unauthenticated("authentication required")
	}
	normalized, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	if err := s.checkItem(ctx, callerID, item, false); err != nil {
		return nil, err
	}

	tag, created, err := s.store.UpsertTagByName(ctx, normalized, func(t *models.Tag, _ bool) error {
		associated := t.Associate(item.ID)
		voted := false
		if t.VoteOf(callerID) == models.VoteNone {
			t.ApplyVote(callerID, models.ActionUpvote)
			voted = true
		}
		if !associated && !voted {
			return store.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "failed to attach tag")
	}

	logging.WithContext(ctx).Info().
		Str("tag_id", tag.ID).
		Str("item_id", item.ID).
		Bool("created", created).
		Msg("tag attached")
	return &AttachResult{Tag: tag, Created: created}, nil
}

func (s *service) Detach(ctx context.Context, callerID string, item ItemRef, tagID string) (*DetachResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if callerID == "" {
		return nil, apperr.Unauthenticated("authentication required")
	}
	if tagID == "" {
		return nil, apperr.InvalidArgument("tag id is required")
	}
	if err := s.checkItem(ctx, callerID, item, true); err != nil {
		return nil, err
	}

	tag, err := s.store.UpdateTag(ctx, tagID, func(t *models.Tag) error {
		if !t.Disassociate(item.ID) {
			return apperr.InvalidArgument("tag is not associated with this item")
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "failed to detach tag")
	}

	if tag.Orphaned() {
		logging.WithContext(ctx).Info().Str("tag_id", tagID).Msg("tag deleted after last detach")
		return &DetachResult{Deleted: true}, nil
	}
	return &DetachResult{Tag: tag}, nil
}

func (s *service) Upvote(ctx context.Context, callerID, tagID string) (*VoteResult, error) {
	return s.vote(ctx, callerID, tagID, models.ActionUpvote)
}

func (s *service) Downvote(ctx context.Context, callerID, tagID string) (*VoteResult, error) {
	return s.vote(ctx, callerID, tagID, models.ActionDownvote)
}

func (s *service) vote(ctx context.Context, callerID, tagID string, action models.VoteAction) (*VoteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if callerID == "" {
		return nil, apperr.Unauthenticated("authentication required")
	}
	if tagID == "" {
		return nil, apperr.InvalidArgument("tag id is required")
	}

	var state models.VoteState
	tag, err := s.store.UpdateTag(ctx, tagID, func(t *models.Tag) error {
		state = t.ApplyVote(callerID, action)
		return nil
	})
	if err != nil {
		return nil, translate(err, "failed to record vote")
	}

	logging.WithContext(ctx).Debug().
		Str("tag_id", tagID).
		Stringer("action", action).
		Str("state", string(state)).
		Msg("vote recorded")
	return &VoteResult{Tag: tag, State: state}, nil
}

func (s *service) ListForItem(ctx context.Context, callerID string, item ItemRef) ([]*models.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkItem(ctx, callerID, item, false); err != nil {
		return nil, err
	}

	tags, err := s.store.ListTagsForItem(ctx, item.ID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list tags")
	}
	return tags, nil
}

// checkItem resolves item and applies the playlist access rules. Attaching and listing need
// read access; detaching needs write access. Tracks are shared and only need to exist for
// attach and list.
func (s *service) checkItem(ctx context.Context, callerID string, item ItemRef, write bool) error {
	if item.ID == "" {
		return apperr.InvalidArgument("item id is required")
	}

	switch item.Kind {
	case KindPlaylist:
		playlist, err := s.store.GetPlaylist(ctx, item.ID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("playlist not found")
		}
		if err != nil {
			return apperr.Internal(err, "failed to load playlist")
		}
		if write {
			return access.AuthorizeWrite(playlist, callerID)
		}
		return access.AuthorizeRead(playlist, callerID)
	case KindTrack:
		if write {
			// Detaching from a deleted track must stay possible.
			return nil
		}
		_, err := s.store.GetTrack(ctx, item.ID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("track not found")
		}
		if err != nil {
			return apperr.Internal(err, "failed to load track")
		}
		return nil
	default:
		return apperr.InvalidArgumentf("unknown item kind %q", item.Kind)
	}
}

func translate(err error, msg string) error {
	var domainErr *apperr.Error
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("tag not found")
	case errors.Is(err, store.ErrConflict):
		return apperr.Conflict("tag was modified concurrently, retry the request")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return apperr.Internal(err, msg)
	}
}
