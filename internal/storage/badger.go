package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/NepZR/brnews/internal/types"
)

// BadgerStore is the embedded local backend: records as JSON values
// under "<kind>:<uuid>" keys, with an in-memory (url, date) index
// rebuilt on open. Useful for corpus collection on machines without a
// MongoDB around.
type BadgerStore struct {
	db     *badger.DB
	kind   string
	logger *slog.Logger

	mu    sync.RWMutex
	byKey map[types.Key]string
}

// NewBadgerStore opens (or creates) the store at path for one record kind.
func NewBadgerStore(path, kind string, logger *slog.Logger) (*BadgerStore, error) {
	if kind != types.KindNews && kind != types.KindComments {
		return nil, fmt.Errorf("invalid record kind %q: must be %q or %q", kind, types.KindNews, types.KindComments)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Silence default logger
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}

	s := &BadgerStore{
		db:     db,
		kind:   kind,
		logger: logger.With("component", "badger_storage", "kind", kind),
		byKey:  make(map[types.Key]string),
	}
	if err := s.rebuildIndex(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BadgerStore) Name() string { return "badger" }

func (s *BadgerStore) prefix() []byte { return []byte(s.kind + ":") }

// rebuildIndex scans the kind prefix and reloads the duplicate index.
func (s *BadgerStore) rebuildIndex() error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(s.prefix()); it.ValidForPrefix(s.prefix()); it.Next() {
			item := it.Item()
			id := strings.TrimPrefix(string(item.Key()), s.kind+":")
			err := item.Value(func(val []byte) error {
				rec, err := s.unmarshal(val)
				if err != nil {
					return err
				}
				s.byKey[rec.Key()] = id
				return nil
			})
			if err != nil {
				return fmt.Errorf("rebuild index: %w", err)
			}
		}
		return nil
	})
}

func (s *BadgerStore) unmarshal(val []byte) (types.Record, error) {
	if s.kind == types.KindComments {
		var rec types.CommentRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return nil, err
		}
		return &rec, nil
	}
	var rec types.ArticleRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BadgerStore) Exists(_ context.Context, rec types.Record) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byKey[rec.Key()]
	return ok, nil
}

func (s *BadgerStore) Insert(_ context.Context, rec types.Record) (string, error) {
	if rec.Kind() != s.kind {
		return "", fmt.Errorf("record kind %q does not match store %q", rec.Kind(), s.kind)
	}
	rec.StampEntry(time.Now())

	data, err := json.Marshal(rec)
	if err != nil {
		return "", &types.StorageError{Backend: s.Name(), Err: err}
	}

	id := uuid.NewString()
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(s.kind+":"+id), data)
	})
	if err != nil {
		return "", &types.StorageError{Backend: s.Name(), Err: err}
	}

	s.mu.Lock()
	s.byKey[rec.Key()] = id
	s.mu.Unlock()
	return id, nil
}

func (s *BadgerStore) Read(_ context.Context, f Filter) iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		var n int64
		err := s.db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()

			for it.Seek(s.prefix()); it.ValidForPrefix(s.prefix()); it.Next() {
				var rec types.Record
				err := it.Item().Value(func(val []byte) error {
					var err error
					rec, err = s.unmarshal(val)
					return err
				})
				if err != nil {
					if !yield(nil, &types.StorageError{Backend: s.Name(), Err: err}) {
						return nil
					}
					continue
				}
				if !matches(rec, f) {
					continue
				}
				if !yield(rec, nil) {
					return nil
				}
				n++
				if f.Limit > 0 && n >= f.Limit {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(nil, &types.StorageError{Backend: s.Name(), Err: err})
		}
	}
}

func (s *BadgerStore) Update(_ context.Context, id string, fields map[string]any) error {
	key := []byte(s.kind + ":" + id)
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return types.ErrNotFound
		}
		if err != nil {
			return &types.StorageError{Backend: s.Name(), Err: err}
		}

		var rec types.Record
		if err := item.Value(func(val []byte) error {
			var err error
			rec, err = s.unmarshal(val)
			return err
		}); err != nil {
			return &types.StorageError{Backend: s.Name(), Err: err}
		}

		applyFields(rec, fields)
		data, err := json.Marshal(rec)
		if err != nil {
			return &types.StorageError{Backend: s.Name(), Err: err}
		}
		return txn.Set(key, data)
	})
}

func (s *BadgerStore) Delete(_ context.Context, id string) (types.Record, error) {
	key := []byte(s.kind + ":" + id)
	var rec types.Record

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return types.ErrNotFound
		}
		if err != nil {
			return &types.StorageError{Backend: s.Name(), Err: err}
		}
		if err := item.Value(func(val []byte) error {
			var err error
			rec, err = s.unmarshal(val)
			return err
		}); err != nil {
			return &types.StorageError{Backend: s.Name(), Err: err}
		}
		return txn.Delete(key)
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.byKey, rec.Key())
	s.mu.Unlock()
	return rec, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
