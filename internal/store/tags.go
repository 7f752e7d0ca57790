package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"mixtape/internal/id"
	"mixtape/internal/models"
)

const selectTagColumns = `
		SELECT id, name, associations, upvotes, downvotes, created_at, updated_at
		FROM tags`

func scanTag(row rowScanner) (*models.Tag, error) {
	var tag models.Tag
	if err := row.Scan(&tag.ID, &tag.Name, pq.Array(&tag.Associations), pq.Array(&tag.Upvotes),
		pq.Array(&tag.Downvotes), &tag.CreatedAt, &tag.UpdatedAt); err != nil {
		return nil, err
	}
	return tag.Clone(), nil
}

// GetTag returns a tag by ID.
func (s *Store) GetTag(ctx context.Context, tagID string) (*models.Tag, error) {
	tag, err := scanTag(s.db.QueryRowContext(ctx, selectTagColumns+`
		WHERE id = $1`, tagID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return tag, nil
}

// ListTagsForItem returns every tag associated with itemID, ordered by name.
func (s *Store) ListTagsForItem(ctx context.Context, itemID string) ([]*models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, selectTagColumns+`
		WHERE $1 = ANY(associations)
		ORDER BY name ASC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := make([]*models.Tag, 0)
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}

// UpsertTagByName locks the tag named name, or prepares a new one, and applies fn.
// Two writers creating the same name race on the unique index; the loser retries and
// sees the winner's row.
func (s *Store) UpsertTagByName(ctx context.Context, name string, fn TagUpsert) (*models.Tag, bool, error) {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		tag, created, err := s.upsertTagOnce(ctx, name, fn)
		if isUniqueViolation(err) || isSerializationFailure(err) {
			continue
		}
		return tag, created, err
	}
	return nil, false, ErrConflict
}

func (s *Store) upsertTagOnce(ctx context.Context, name string, fn TagUpsert) (*models.Tag, bool, error) {
	var (
		result  *models.Tag
		created bool
	)

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := scanTag(tx.QueryRowContext(ctx, selectTagColumns+`
		WHERE lower(name) = lower($1)
		FOR UPDATE`, name))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			tagID, err := id.Generate(id.TagPrefix)
			if err != nil {
				return err
			}
			now := s.now()
			current = (&models.Tag{ID: tagID, Name: name, CreatedAt: now, UpdatedAt: now}).Clone()
			created = true
		case err != nil:
			return fmt.Errorf("lock tag: %w", err)
		}

		if err := fn(current, created); err != nil {
			if errors.Is(err, ErrNoChange) {
				result = current
				return nil
			}
			return err
		}

		if created {
			if current.Orphaned() {
				result = current
				return nil
			}
			if _, err := tx.ExecContext(ctx, `
		INSERT INTO tags (id, name, associations, upvotes, downvotes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
				current.ID, current.Name, pq.Array(current.Associations), pq.Array(current.Upvotes),
				pq.Array(current.Downvotes), current.CreatedAt); err != nil {
				return fmt.Errorf("insert tag: %w", err)
			}
			result = current
			return nil
		}

		result = current
		return s.writeTagTx(ctx, tx, current)
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

// UpdateTag locks the tag, applies fn and writes or deletes the result.
func (s *Store) UpdateTag(ctx context.Context, tagID string, fn TagMutation) (*models.Tag, error) {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		tag, err := s.updateTagOnce(ctx, tagID, fn)
		if isSerializationFailure(err) {
			continue
		}
		return tag, err
	}
	return nil, ErrConflict
}

func (s *Store) updateTagOnce(ctx context.Context, tagID string, fn TagMutation) (*models.Tag, error) {
	var result *models.Tag

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := scanTag(tx.QueryRowContext(ctx, selectTagColumns+`
		WHERE id = $1
		FOR UPDATE`, tagID))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock tag: %w", err)
		}

		if err := fn(current); err != nil {
			if errors.Is(err, ErrNoChange) {
				result = current
				return nil
			}
			return err
		}

		result = current
		return s.writeTagTx(ctx, tx, current)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// writeTagTx persists tag, or deletes it when no associations are left.
func (s *Store) writeTagTx(ctx context.Context, tx *sql.Tx, tag *models.Tag) error {
	if tag.Orphaned() {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, tag.ID); err != nil {
			return fmt.Errorf("delete orphaned tag: %w", err)
		}
		return nil
	}

	tag.UpdatedAt = s.now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE tags
		SET associations = $1, upvotes = $2, downvotes = $3, updated_at = $4
		WHERE id = $5`,
		pq.Array(tag.Associations), pq.Array(tag.Upvotes), pq.Array(tag.Downvotes), tag.UpdatedAt, tag.ID,
	); err != nil {
		return fmt.Errorf("update tag: %w", err)
	}
	return nil
}

// PositiveTallies expands the tag's associations into one record per item and keeps the
// records whose upvotes exceed downvotes.
func (s *Store) PositiveTallies(ctx context.Context, name string) ([]models.Tally, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, a.item_id, cardinality(t.upvotes), cardinality(t.downvotes)
		FROM tags t
		CROSS JOIN LATERAL unnest(t.associations) AS a(item_id)
		WHERE t.name = $1
		  AND cardinality(t.upvotes) > cardinality(t.downvotes)`, name)
	if err != nil {
		return nil, fmt.Errorf("tally tag: %w", err)
	}
	defer rows.Close()

	tallies := make([]models.Tally, 0)
	for rows.Next() {
		var tally models.Tally
		if err := rows.Scan(&tally.TagID, &tally.ItemID, &tally.Upvotes, &tally.Downvotes); err != nil {
			return nil, fmt.Errorf("scan tally: %w", err)
		}
		tallies = append(tallies, tally)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tallies: %w", err)
	}
	return tallies, nil
}
