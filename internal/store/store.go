// Package store provides the persistent key-value namespace that backs the
// note collection, the per-account transaction ledgers and purchase records.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// KeyValue is the persistence primitive used by the repositories.
// Values are opaque strings; encoding is the caller's concern.
type KeyValue interface {
	// Read returns the value stored under key. ok is false when the key is absent.
	Read(ctx context.Context, key string) (value string, ok bool, err error)
	// Write stores value under key, replacing any previous value (last write wins).
	Write(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Update runs a read-modify-write cycle on a single key atomically.
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// UpdateFunc receives the current value of a key (ok=false when absent) and
// returns the value to store. Returning remove=true deletes the key instead.
// Returning an error aborts the update and leaves the key untouched.
type UpdateFunc func(current string, ok bool) (next string, remove bool, err error)

const (
	// maxUpdateAttempts bounds the retry loop when concurrent writers collide.
	maxUpdateAttempts = 32
	retryBackoff      = time.Millisecond
	maxRetryBackoff   = 20 * time.Millisecond
)

// Store is a KeyValue on top of Badger.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// New opens (or creates) the on-disk store at path. Writes are synced so a
// crash cannot lose an acknowledged note or transaction.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithSyncWrites(true).
		WithCompactL0OnClose(true)
	return open(opts, logger, path)
}

// NewInMemory opens a store that lives only as long as the process. Tests
// and the -in-memory demo mode use it.
func NewInMemory(logger *slog.Logger) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil), logger, ":memory:")
}

func open(opts badger.Options, logger *slog.Logger, path string) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", path, err)
	}
	logger.Info("store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	s.logger.Info("closing store")
	return s.db.Close()
}

// Read returns the value stored under key.
func (s *Store) Read(ctx context.Context, key string) (value string, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	err = s.db.View(func(txn *badger.Txn) error {
		value, ok, err = readTxn(txn, key)
		return err
	})
	return value, ok, err
}

// Write stores value under key, replacing what was there.
func (s *Store) Write(ctx context.Context, key, value string) error {
	return s.commit(ctx, "write", key, func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
}

// Remove deletes key. Removing a missing key succeeds.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.commit(ctx, "remove", key, func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (s *Store) commit(ctx context.Context, op, key string, fn func(*badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Update(fn); err != nil {
		return fmt.Errorf("%s %s: %w", op, key, err)
	}
	return nil
}

// Update performs a read-modify-write on key inside one Badger transaction.
// Badger detects a concurrent commit to the same key and fails the
// transaction with ErrConflict; the cycle is then re-run against the fresh
// value so that concurrent increments are not lost.
func (s *Store) Update(ctx context.Context, key string, fn UpdateFunc) error {
	var lastErr error

	for attempt := range maxUpdateAttempts {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.db.Update(func(txn *badger.Txn) error {
			current, ok, err := readTxn(txn, key)
			if err != nil {
				return err
			}

			next, remove, err := fn(current, ok)
			if err != nil {
				return err
			}

			if remove {
				return txn.Delete([]byte(key))
			}
			return txn.Set([]byte(key), []byte(next))
		})

		if !errors.Is(err, badger.ErrConflict) {
			return err
		}

		lastErr = err
		s.logger.Debug("update conflict, retrying",
			slog.String("key", key),
			slog.Int("attempt", attempt+1))
		time.Sleep(min(retryBackoff*time.Duration(attempt+1), maxRetryBackoff))
	}

	return fmt.Errorf("update %s: %w", key, lastErr)
}

// Keys returns all keys that start with prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// Ping verifies the database answers a read transaction.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(_ *badger.Txn) error { return nil })
}

// readTxn reads key inside an existing transaction.
func readTxn(txn *badger.Txn, key string) (string, bool, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}

	var value string
	err = item.Value(func(val []byte) error {
		value = string(val)
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}
