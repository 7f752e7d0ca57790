// Package access decides whether a caller may read or modify a playlist.
package access

import (
	apperr "mixtape/internal/errors"
	"mixtape/internal/models"
)

// CanRead reports whether callerID may read playlist. Public playlists are readable by
// anyone, including anonymous callers.
func CanRead(playlist *models.Playlist, callerID string) bool {
	if playlist == nil {
		return false
	}
	if playlist.IsPublic {
		return true
	}
	return callerID != "" && callerID == playlist.Owner
}

// CanWrite reports whether callerID owns playlist.
func CanWrite(playlist *models.Playlist, callerID string) bool {
	if playlist == nil {
		return false
	}
	return callerID != "" && callerID == playlist.Owner
}

// AuthorizeRead returns nil when callerID may read playlist.
func AuthorizeRead(playlist *models.Playlist, callerID string) error {
	if playlist == nil {
		return apperr.NotFound("playlist not found")
	}
	if CanRead(playlist, callerID) {
		return nil
	}
	if callerID == "" {
		return apperr.Unauthenticated("authentication required")
	}
	return apperr.Forbidden("playlist is private")
}

// AuthorizeWrite returns nil when callerID may modify playlist.
func AuthorizeWrite(playlist *models.Playlist, callerID string) error {
	if playlist == nil {
		return apperr.NotFound("playlist not found")
	}
	if callerID == "" {
		return apperr.Unauthenticated("authentication required")
	}
	if !CanWrite(playlist, callerID) {
		return apperr.Forbidden("only the owner can modify this playlist")
	}
	return nil
}
