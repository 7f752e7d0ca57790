package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"mixtape/internal/models"
	"mixtape/internal/store"
)

func trackKey(id string) string { return trackPrefix + id }

// CreateTrack adds a track to the shared catalogue.
func (s *Store) CreateTrack(_ context.Context, track *models.Track) error {
	if track == nil {
		return errors.New("track is required")
	}
	if track.AddedAt.IsZero() {
		track.AddedAt = s.now()
	}

	err := s.update(func(txn *badger.Txn) error {
		found, err := exists(txn, trackKey(track.TrackID))
		if err != nil {
			return err
		}
		if found {
			return store.ErrTrackExists
		}
		return setJSON(txn, trackKey(track.TrackID), track)
	})
	if errors.Is(err, store.ErrTrackExists) {
		return err
	}
	if err != nil {
		return fmt.Errorf("create track: %w", err)
	}
	return nil
}

// GetTrack returns a catalogue track.
func (s *Store) GetTrack(_ context.Context, trackID string) (*models.Track, error) {
	var track models.Track
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, trackKey(trackID), &track)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	return &track, nil
}

// GetTracks returns the catalogue tracks among ids. Unknown ids are skipped.
func (s *Store) GetTracks(_ context.Context, ids []string) ([]models.Track, error) {
	tracks := make([]models.Track, 0, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			var track models.Track
			if err := getJSON(txn, trackKey(id), &track); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			tracks = append(tracks, track)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get tracks: %w", err)
	}
	return tracks, nil
}

// DeleteTrack removes a track from the catalogue. Playlists keep their references.
func (s *Store) DeleteTrack(_ context.Context, trackID string) error {
	err := s.update(func(txn *badger.Txn) error {
		found, err := exists(txn, trackKey(trackID))
		if err != nil {
			return err
		}
		if !found {
			return store.ErrNotFound
		}
		return txn.Delete([]byte(trackKey(trackID)))
	})
	if errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("delete track: %w", err)
	}
	return nil
}
