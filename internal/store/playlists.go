package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"mixtape/internal/models"
)

const selectPlaylistColumns = `
		SELECT id, title, is_public, owner, tracklist, version, created_at, updated_at
		FROM playlists`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(row rowScanner) (*models.Playlist, error) {
	var playlist models.Playlist
	if err := row.Scan(&playlist.ID, &playlist.Title, &playlist.IsPublic, &playlist.Owner,
		pq.Array(&playlist.Tracklist), &playlist.Version, &playlist.CreatedAt, &playlist.UpdatedAt); err != nil {
		return nil, err
	}
	if playlist.Tracklist == nil {
		playlist.Tracklist = []string{}
	}
	return &playlist, nil
}

// CreatePlaylist persists a new playlist. ID and Owner must already be set.
func (s *Store) CreatePlaylist(ctx context.Context, playlist *models.Playlist) error {
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

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO playlists (id, title, is_public, owner, tracklist, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		playlist.ID, playlist.Title, playlist.IsPublic, playlist.Owner, pq.Array(playlist.Tracklist),
		playlist.Version, now,
	); err != nil {
		return fmt.Errorf("insert playlist: %w", err)
	}
	return nil
}

// GetPlaylist returns a single playlist by ID.
func (s *Store) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	playlist, err := scanPlaylist(s.db.QueryRowContext(ctx, selectPlaylistColumns+`
		WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get playlist: %w", err)
	}
	return playlist, nil
}

// DeletePlaylist removes a playlist.
func (s *Store) DeletePlaylist(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPublicPlaylists returns the newest public playlists.
func (s *Store) ListPublicPlaylists(ctx context.Context, limit int) ([]*models.Playlist, error) {
	return s.listPlaylists(ctx, selectPlaylistColumns+`
		WHERE is_public = TRUE
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
}

// ListPlaylistsByOwner returns every playlist of owner, most recently updated first.
func (s *Store) ListPlaylistsByOwner(ctx context.Context, owner string) ([]*models.Playlist, error) {
	return s.listPlaylists(ctx, selectPlaylistColumns+`
		WHERE owner = $1
		ORDER BY updated_at DESC, id DESC`, owner)
}

func (s *Store) listPlaylists(ctx context.Context, query string, args ...any) ([]*models.Playlist, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	playlists := make([]*models.Playlist, 0)
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}
	return playlists, nil
}

// UpdatePlaylist locks the row, applies fn and writes the result guarded by the version it read.
func (s *Store) UpdatePlaylist(ctx context.Context, id string, fn PlaylistMutation) (*models.Playlist, error) {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		updated, err := s.updatePlaylistOnce(ctx, id, fn)
		if errors.Is(err, ErrConflict) || isSerializationFailure(err) {
			continue
		}
		return updated, err
	}
	return nil, ErrConflict
}

func (s *Store) updatePlaylistOnce(ctx context.Context, id string, fn PlaylistMutation) (*models.Playlist, error) {
	var result *models.Playlist

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := scanPlaylist(tx.QueryRowContext(ctx, selectPlaylistColumns+`
		WHERE id = $1
		FOR UPDATE`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock playlist: %w", err)
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			if errors.Is(err, ErrNoChange) {
				result = current
				return nil
			}
			return err
		}

		next.ID = current.ID
		next.Owner = current.Owner
		next.CreatedAt = current.CreatedAt
		next.Version = current.Version + 1
		next.UpdatedAt = s.now()

		res, err := tx.ExecContext(ctx, `
		UPDATE playlists
		SET title = $1, is_public = $2, tracklist = $3, version = $4, updated_at = $5
		WHERE id = $6 AND version = $7`,
			next.Title, next.IsPublic, pq.Array(next.Tracklist), next.Version, next.UpdatedAt,
			id, current.Version)
		if err != nil {
			return fmt.Errorf("update playlist: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return ErrConflict
		}

		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
