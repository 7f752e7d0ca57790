package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"mixtape/internal/models"
	"mixtape/internal/store"
)

func playlistKey(id string) string { return playlistPrefix + id }

func ownerIndexKey(owner, id string) string {
	return playlistsByOwnerPrefix + owner + ":" + id
}

// CreatePlaylist stores a new playlist and its owner index.
func (s *Store) CreatePlaylist(_ context.Context, playlist *models.Playlist) error {
	if playlist == nil {
		return errors.New("playlist is required")
	}

	now := s.now()
	playlist.CreatedAt = now
	playlist.UpdatedAt = now
	playlist.Version = 1
	if playlist.Tracklist == nil {
		playlist.Tracklist = []string{}
	}

	err := s.update(func(txn *badger.Txn) error {
		found, err := exists(txn, playlistKey(playlist.ID))
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("playlist %s already exists", playlist.ID)
		}
		if err := setJSON(txn, playlistKey(playlist.ID), playlist); err != nil {
			return err
		}
		return txn.Set([]byte(ownerIndexKey(playlist.Owner, playlist.ID)), []byte{})
	})
	if err != nil {
		return fmt.Errorf("create playlist: %w", err)
	}
	return nil
}

// GetPlaylist returns a playlist by ID.
func (s *Store) GetPlaylist(_ context.Context, id string) (*models.Playlist, error) {
	var playlist models.Playlist
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, playlistKey(id), &playlist)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get playlist: %w", err)
	}
	return playlist.Clone(), nil
}

// DeletePlaylist removes a playlist and its owner index.
func (s *Store) DeletePlaylist(_ context.Context, id string) error {
	err := s.update(func(txn *badger.Txn) error {
		var playlist models.Playlist
		if err := getJSON(txn, playlistKey(id), &playlist); err != nil {
			return err
		}
		if err := txn.Delete([]byte(playlistKey(id))); err != nil {
			return err
		}
		return txn.Delete([]byte(ownerIndexKey(playlist.Owner, id)))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	return nil
}

// ListPublicPlaylists returns the newest public playlists.
func (s *Store) ListPublicPlaylists(_ context.Context, limit int) ([]*models.Playlist, error) {
	playlists := make([]*models.Playlist, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, playlistPrefix, false, func(_ string, val []byte) error {
			var playlist models.Playlist
			if err := json.Unmarshal(val, &playlist); err != nil {
				return err
			}
			if playlist.IsPublic {
				playlists = append(playlists, playlist.Clone())
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list public playlists: %w", err)
	}

	sort.SliceStable(playlists, func(i, j int) bool {
		if !playlists[i].CreatedAt.Equal(playlists[j].CreatedAt) {
			return playlists[i].CreatedAt.After(playlists[j].CreatedAt)
		}
		return playlists[i].ID > playlists[j].ID
	})
	if limit > 0 && len(playlists) > limit {
		playlists = playlists[:limit]
	}
	return playlists, nil
}

// ListPlaylistsByOwner returns every playlist of owner, most recently updated first.
func (s *Store) ListPlaylistsByOwner(_ context.Context, owner string) ([]*models.Playlist, error) {
	playlists := make([]*models.Playlist, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, playlistsByOwnerPrefix+owner+":", true, func(id string, _ []byte) error {
			var playlist models.Playlist
			if err := getJSON(txn, playlistKey(id), &playlist); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return nil
				}
				return err
			}
			playlists = append(playlists, playlist.Clone())
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list playlists by owner: %w", err)
	}

	sort.SliceStable(playlists, func(i, j int) bool {
		if !playlists[i].UpdatedAt.Equal(playlists[j].UpdatedAt) {
			return playlists[i].UpdatedAt.After(playlists[j].UpdatedAt)
		}
		return playlists[i].ID > playlists[j].ID
	})
	return playlists, nil
}

// UpdatePlaylist applies fn to the stored playlist inside one transaction. Badger aborts
// the commit if another writer touched the document in between, and update retries.
func (s *Store) UpdatePlaylist(_ context.Context, id string, fn store.PlaylistMutation) (*models.Playlist, error) {
	var result *models.Playlist

	err := s.update(func(txn *badger.Txn) error {
		var current models.Playlist
		if err := getJSON(txn, playlistKey(id), &current); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrNotFound
			}
			return err
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			if errors.Is(err, store.ErrNoChange) {
				result = current.Clone()
				return nil
			}
			return err
		}

		next.ID = current.ID
		next.Owner = current.Owner
		next.CreatedAt = current.CreatedAt
		next.Version = current.Version + 1
		next.UpdatedAt = s.now()

		if err := setJSON(txn, playlistKey(id), next); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
