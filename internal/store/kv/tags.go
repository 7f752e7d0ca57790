package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"mixtape/internal/id"
	"mixtape/internal/models"
	"mixtape/internal/store"
)

func tagKey(tagID string) string { return tagPrefix + tagID }

func tagNameKey(name string) string { return tagByNamePrefix + name }

func tagItemKey(itemID, tagID string) string {
	return tagsByItemPrefix + itemID + ":" + tagID
}

func getTag(txn *badger.Txn, tagID string) (*models.Tag, error) {
	var tag models.Tag
	if err := getJSON(txn, tagKey(tagID), &tag); err != nil {
		return nil, err
	}
	return tag.Clone(), nil
}

// tagIDByName resolves the name index. The bool is false when no tag has that name.
func tagIDByName(txn *badger.Txn, name string) (string, bool, error) {
	item, err := txn.Get([]byte(tagNameKey(name)))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", false, err
	}
	return string(val), true, nil
}

// GetTag returns a tag by ID.
func (s *Store) GetTag(_ context.Context, tagID string) (*models.Tag, error) {
	var tag *models.Tag
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		tag, err = getTag(txn, tagID)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return tag, nil
}

// ListTagsForItem returns every tag associated with itemID, ordered by name.
func (s *Store) ListTagsForItem(_ context.Context, itemID string) ([]*models.Tag, error) {
	tags := make([]*models.Tag, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, tagsByItemPrefix+itemID+":", true, func(tagID string, _ []byte) error {
			tag, err := getTag(txn, tagID)
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return nil
				}
				return err
			}
			tags = append(tags, tag)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

// UpsertTagByName resolves name through the name index, or starts a fresh tag, and applies
// fn in the same transaction. Two writers creating the same name conflict on the index key
// and the loser retries against the winner's document.
func (s *Store) UpsertTagByName(_ context.Context, name string, fn store.TagUpsert) (*models.Tag, bool, error) {
	var (
		result  *models.Tag
		created bool
	)

	err := s.update(func(txn *badger.Txn) error {
		created = false
		var previous *models.Tag

		tagID, found, err := tagIDByName(txn, name)
		if err != nil {
			return err
		}

		var current *models.Tag
		if found {
			previous, err = getTag(txn, tagID)
			if err != nil {
				return err
			}
			current = previous.Clone()
		} else {
			tagID, err := id.Generate(id.TagPrefix)
			if err != nil {
				return err
			}
			now := s.now()
			current = (&models.Tag{ID: tagID, Name: name, CreatedAt: now, UpdatedAt: now}).Clone()
			created = true
		}

		if err := fn(current, created); err != nil {
			if errors.Is(err, store.ErrNoChange) {
				result = current
				return nil
			}
			return err
		}

		result = current
		return s.writeTag(txn, previous, current)
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

// UpdateTag applies fn to the stored tag inside one transaction.
func (s *Store) UpdateTag(_ context.Context, tagID string, fn store.TagMutation) (*models.Tag, error) {
	var result *models.Tag

	err := s.update(func(txn *badger.Txn) error {
		previous, err := getTag(txn, tagID)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}

		current := previous.Clone()
		if err := fn(current); err != nil {
			if errors.Is(err, store.ErrNoChange) {
				result = current
				return nil
			}
			return err
		}

		result = current
		return s.writeTag(txn, previous, current)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// writeTag stores tag and brings the name and item indexes in line with it. previous is nil
// for a tag that was never stored. An orphaned tag is removed together with its indexes.
func (s *Store) writeTag(txn *badger.Txn, previous, tag *models.Tag) error {
	if tag.Orphaned() {
		if previous == nil {
			return nil
		}
		for _, itemID := range previous.Associations {
			if err := txn.Delete([]byte(tagItemKey(itemID, tag.ID))); err != nil {
				return err
			}
		}
		if err := txn.Delete([]byte(tagNameKey(tag.Name))); err != nil {
			return err
		}
		if err := txn.Delete([]byte(tagKey(tag.ID))); err != nil {
			return err
		}
		s.logger.Debug().Str("tag_id", tag.ID).Str("name", tag.Name).Msg("orphaned tag deleted")
		return nil
	}

	if previous == nil {
		if err := txn.Set([]byte(tagNameKey(tag.Name)), []byte(tag.ID)); err != nil {
			return fmt.Errorf("set tag name index: %w", err)
		}
	} else {
		for _, itemID := range previous.Associations {
			if !tag.IsAssociated(itemID) {
				if err := txn.Delete([]byte(tagItemKey(itemID, tag.ID))); err != nil {
					return err
				}
			}
		}
	}
	for _, itemID := range tag.Associations {
		if previous == nil || !previous.IsAssociated(itemID) {
			if err := txn.Set([]byte(tagItemKey(itemID, tag.ID)), []byte{}); err != nil {
				return fmt.Errorf("set tag item index: %w", err)
			}
		}
	}

	tag.UpdatedAt = s.now()
	return setJSON(txn, tagKey(tag.ID), tag)
}

// PositiveTallies expands the named tag into one record per associated item when its
// upvotes exceed its downvotes.
func (s *Store) PositiveTallies(_ context.Context, name string) ([]models.Tally, error) {
	tallies := make([]models.Tally, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		tagID, found, err := tagIDByName(txn, name)
		if err != nil || !found {
			return err
		}
		tag, err := getTag(txn, tagID)
		if err != nil {
			return err
		}
		if len(tag.Upvotes) <= len(tag.Downvotes) {
			return nil
		}
		for _, itemID := range tag.Associations {
			tallies = append(tallies, models.Tally{
				TagID:     tag.ID,
				ItemID:    itemID,
				Upvotes:   len(tag.Upvotes),
				Downvotes: len(tag.Downvotes),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tally tag: %w", err)
	}
	return tallies, nil
}
