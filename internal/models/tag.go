package models

import (
	"slices"
	"time"
)

// Tag is a globally named label associated with playlists or tracks and voted on by users.
// A user id appears in at most one of Upvotes and Downvotes.
type Tag struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Associations []string  `json:"associations" db:"associations"`
	Upvotes      []string  `json:"upvotes" db:"upvotes"`
	Downvotes    []string  `json:"downvotes" db:"downvotes"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// VoteState is the derived vote of one user on one tag.
type VoteState string

const (
	VoteNone VoteState = "none"
	VoteUp   VoteState = "up"
	VoteDown VoteState = "down"
)

// VoteAction is a user request against a tag.
type VoteAction int

const (
	ActionUpvote VoteAction = iota
	ActionDownvote
)

// String implements fmt.Stringer.
func (a VoteAction) String() string {
	if a == ActionDownvote {
		return "downvote"
	}
	return "upvote"
}

// VoteOf returns the vote state of userID on the tag.
func (t *Tag) VoteOf(userID string) VoteState {
	switch {
	case slices.Contains(t.Upvotes, userID):
		return VoteUp
	case slices.Contains(t.Downvotes, userID):
		return VoteDown
	default:
		return VoteNone
	}
}

// ApplyVote runs one transition of the vote state machine and returns the new state.
//
//	none -up-> up, none -down-> down
//	up   -up-> none, up -down-> down
//	down -down-> none, down -up-> up
//
// Both sets are rebuilt from scratch on every call, so a user is never left in both.
func (t *Tag) ApplyVote(userID string, action VoteAction) VoteState {
	current := t.VoteOf(userID)

	next := VoteUp
	if action == ActionDownvote {
		next = VoteDown
	}
	if current == next {
		next = VoteNone
	}

	t.Upvotes = without(t.Upvotes, userID)
	t.Downvotes = without(t.Downvotes, userID)
	switch next {
	case VoteUp:
		t.Upvotes = append(t.Upvotes, userID)
	case VoteDown:
		t.Downvotes = append(t.Downvotes, userID)
	}
	return next
}

// IsAssociated reports whether itemID carries this tag.
func (t *Tag) IsAssociated(itemID string) bool {
	return slices.Contains(t.Associations, itemID)
}

// Associate adds itemID if missing and reports whether the set changed.
func (t *Tag) Associate(itemID string) bool {
	if t.IsAssociated(itemID) {
		return false
	}
	t.Associations = append(t.Associations, itemID)
	return true
}

// Disassociate removes itemID and reports whether it was present.
func (t *Tag) Disassociate(itemID string) bool {
	if !t.IsAssociated(itemID) {
		return false
	}
	t.Associations = without(t.Associations, itemID)
	return true
}

// Orphaned reports whether the tag has no associations left and must not be persisted.
func (t *Tag) Orphaned() bool {
	return len(t.Associations) == 0
}

// Score is upvotes minus downvotes.
func (t *Tag) Score() int {
	return len(t.Upvotes) - len(t.Downvotes)
}

// Clone returns a deep copy safe to mutate.
func (t *Tag) Clone() *Tag {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Associations = nonNil(slices.Clone(t.Associations))
	clone.Upvotes = nonNil(slices.Clone(t.Upvotes))
	clone.Downvotes = nonNil(slices.Clone(t.Downvotes))
	return &clone
}

// Tally is one tag-association record: an item and the vote counts of the tag on it.
type Tally struct {
	TagID     string `json:"tagId"`
	ItemID    string `json:"itemId"`
	Upvotes   int    `json:"upvoteCount"`
	Downvotes int    `json:"downvoteCount"`
}

// Score is upvotes minus downvotes.
func (t Tally) Score() int {
	return t.Upvotes - t.Downvotes
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
