// Package kv implements the document store on an embedded Badger database.
package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"mixtape/internal/store"
)

// Key prefixes. Index keys carry no value; the document id is the key suffix.
const (
	playlistPrefix         = "playlist:"
	playlistsByOwnerPrefix = "idx:playlists:owner:"
	trackPrefix            = "track:"
	tagPrefix              = "tag:"
	tagByNamePrefix        = "idx:tags:name:"
	tagsByItemPrefix       = "idx:tags:item:"
)

// maxTxnAttempts bounds retries of a transaction that lost to a concurrent commit.
const maxTxnAttempts = 16

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
	now    func() time.Time
}

var _ store.DocumentStore = (*Store)(nil)

// Open opens or creates the database at path.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	return open(opts, logger)
}

// OpenInMemory opens a database that lives only as long as the process. Used by tests and
// the seed command's dry runs.
func OpenInMemory(logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, logger)
}

func open(opts badger.Options, logger zerolog.Logger) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	logger.Info().Str("path", opts.Dir).Bool("in_memory", opts.InMemory).Msg("badger database opened")

	return &Store{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	s.logger.Info().Msg("closing badger database")
	return s.db.Close()
}

// update runs fn in a read-write transaction and retries when Badger detects that a
// concurrent transaction committed a key fn read.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.logger.Debug().Int("attempt", attempt+1).Msg("badger transaction conflict, retrying")
	}
	return store.ErrConflict
}

func getJSON(txn *badger.Txn, key string, dest any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

func setJSON(txn *badger.Txn, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

func exists(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// scanPrefix calls fn with the key suffix and value of every key under prefix.
func scanPrefix(txn *badger.Txn, prefix string, keysOnly bool, fn func(suffix string, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = !keysOnly

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
		item := it.Item()
		suffix := string(item.Key()[len(prefix):])
		if keysOnly {
			if err := fn(suffix, nil); err != nil {
				return err
			}
			continue
		}
		if err := item.Value(func(val []byte) error {
			return fn(suffix, val)
		}); err != nil {
			return err
		}
	}
	return nil
}
