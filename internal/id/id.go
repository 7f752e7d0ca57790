// Package id generates document identifiers.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for generated document ids.
const (
	PlaylistPrefix = "pl"
	TagPrefix      = "tag"
)

// Generate creates a prefixed unique ID using NanoID, e.g. "pl-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// NewTrackID returns the public identifier for a catalogue track.
// Track ids are plain UUIDs so they stay distinct from the store's document keys.
func NewTrackID() string {
	return uuid.NewString()
}
