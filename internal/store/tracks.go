package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"mixtape/internal/models"
)

// ErrTrackExists signals a track with the same TrackID is already catalogued.
var ErrTrackExists = errors.New("track already exists")

// CreateTrack adds a track to the shared catalogue.
func (s *Store) CreateTrack(ctx context.Context, track *models.Track) error {
	if track == nil {
		return errors.New("track is required")
	}
	if track.AddedAt.IsZero() {
		track.AddedAt = s.now()
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO tracks (track_id, title, artist, added_at)
		VALUES ($1, $2, $3, $4)`,
		track.TrackID, track.Title, track.Artist, track.AddedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrTrackExists
		}
		return fmt.Errorf("insert track: %w", err)
	}
	return nil
}

// GetTrack returns a catalogue track by its public TrackID.
func (s *Store) GetTrack(ctx context.Context, trackID string) (*models.Track, error) {
	var track models.Track
	err := s.db.QueryRowContext(ctx, `
		SELECT track_id, title, artist, added_at
		FROM tracks
		WHERE track_id = $1`, trackID).Scan(&track.TrackID, &track.Title, &track.Artist, &track.AddedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	return &track, nil
}

// GetTracks returns the catalogued tracks among ids. Unknown ids are skipped.
func (s *Store) GetTracks(ctx context.Context, ids []string) ([]models.Track, error) {
	tracks := make([]models.Track, 0, len(ids))
	if len(ids) == 0 {
		return tracks, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT track_id, title, artist, added_at
		FROM tracks
		WHERE track_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var track models.Track
		if err := rows.Scan(&track.TrackID, &track.Title, &track.Artist, &track.AddedAt); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return tracks, nil
}

// DeleteTrack removes a track from the catalogue. Playlists referencing it are left alone.
func (s *Store) DeleteTrack(ctx context.Context, trackID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tracks WHERE track_id = $1`, trackID)
	if err != nil {
		return fmt.Errorf("delete track: %w", err)
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
