package playlists

import (
	"slices"

	apperr "mixtape/internal/errors"
)

// withoutTrack returns tracklist with every occurrence of trackID dropped, and whether
// anything was dropped.
func withoutTrack(tracklist []string, trackID string) ([]string, bool) {
	out := make([]string, 0, len(tracklist))
	for _, id := range tracklist {
		if id != trackID {
			out = append(out, id)
		}
	}
	return out, len(out) != len(tracklist)
}

// movedTrack returns tracklist with trackID reinserted at position, which is clamped to
// [0, len(tracklist)-1].
func movedTrack(tracklist []string, trackID string, position int) ([]string, error) {
	rest, found := withoutTrack(tracklist, trackID)
	if !found {
		return nil, apperr.NotFound("track not in playlist")
	}
	position = max(0, min(position, len(rest)))
	return slices.Insert(rest, position, trackID), nil
}

// isPermutation reports whether candidate holds exactly the ids of current, in any order.
func isPermutation(current, candidate []string) bool {
	if len(current) != len(candidate) {
		return false
	}
	counts := make(map[string]int, len(current))
	for _, id := range current {
		counts[id]++
	}
	for _, id := range candidate {
		if counts[id] == 0 {
			return false
		}
		counts[id]--
	}
	return true
}
