package storage

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/NepZR/brnews/internal/types"
)

// Port is the storage interface the pipeline writes through. A Port
// instance is bound to one record kind (news or comments). Backends are
// interchangeable; query translation is a backend concern.
type Port interface {
	// Exists reports whether a record with the same (url, date) key is
	// already durably stored.
	Exists(ctx context.Context, rec types.Record) (bool, error)

	// Insert stamps entry_dt and persists the record, returning the
	// backend id.
	Insert(ctx context.Context, rec types.Record) (string, error)

	// Read streams stored records matching the filter.
	Read(ctx context.Context, f Filter) iter.Seq2[types.Record, error]

	// Update applies a partial field update to the record with the
	// given id.
	Update(ctx context.Context, id string, fields map[string]any) error

	// Delete removes the record and returns it, so callers can write a
	// backup copy before it is gone.
	Delete(ctx context.Context, id string) (types.Record, error)

	// Name returns the backend identifier.
	Name() string

	// Close flushes pending writes and releases resources.
	Close() error
}

// Filter narrows a Read. Zero values mean "no constraint".
type Filter struct {
	// Platform matches the record platform tag exactly.
	Platform string

	// Query is a keyword matched case-insensitively against the text
	// fields (title, abstract, body for news; comment for comments).
	Query string

	// From and To bound the record date, inclusive.
	From *time.Time
	To   *time.Time

	// Limit caps the number of records returned; 0 means no cap.
	Limit int64
}

// Backup receives a record removed by DeleteWithBackup before deletion
// is considered done. Satisfied by the export package.
type Backup interface {
	Export(rec types.Record) (string, error)
}

// DeleteWithBackup removes the record with the given id, writing a
// flat-file copy when a backup sink is supplied. A failed export
// re-inserts the record: the deletion is not allowed to stand without
// the backup it was conditioned on.
func DeleteWithBackup(ctx context.Context, p Port, sink Backup, id string) error {
	rec, err := p.Delete(ctx, id)
	if err != nil {
		return err
	}
	if sink == nil {
		return nil
	}
	if _, err := sink.Export(rec); err != nil {
		if _, restoreErr := p.Insert(ctx, rec); restoreErr != nil {
			return fmt.Errorf("backup export: %w (restore failed: %v)", err, restoreErr)
		}
		return fmt.Errorf("backup export: %w", err)
	}
	return nil
}

// Outcome classifies what the duplicate gate did with a record.
type Outcome int

const (
	// Inserted: new record, durably stored.
	Inserted Outcome = iota
	// Duplicate: same (url, date) key already stored; silently skipped.
	Duplicate
	// Failed: the backend errored; the record was not stored.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Duplicate:
		return "duplicate"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Gate enforces exactly-one stored record per (url, date) key. The
// check-then-insert sequence is made atomic per key with a keyed lock,
// so concurrent parses of the same article cannot both pass.
type Gate struct {
	port   Port
	locks  keyedMutex
	logger *slog.Logger
}

// NewGate wraps a storage port with the duplicate gate.
func NewGate(port Port, logger *slog.Logger) *Gate {
	return &Gate{
		port:   port,
		logger: logger.With("component", "duplicate_gate"),
	}
}

// Offer checks the record against durable storage and inserts it when
// unseen. Duplicates are a normal outcome, not an error.
func (g *Gate) Offer(ctx context.Context, rec types.Record) (Outcome, error) {
	key := rec.Key()
	unlock := g.locks.lock(key)
	defer unlock()

	seen, err := g.port.Exists(ctx, rec)
	if err != nil {
		return Failed, err
	}
	if seen {
		g.logger.Debug("duplicate record skipped", "url", key.URL, "date", key.Date)
		return Duplicate, nil
	}

	id, err := g.port.Insert(ctx, rec)
	if err != nil {
		return Failed, err
	}
	g.logger.Debug("record stored", "id", id, "url", key.URL)
	return Inserted, nil
}

// Port returns the wrapped storage port.
func (g *Gate) Port() Port { return g.port }

// keyedMutex hands out one mutex per in-flight duplicate key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[types.Key]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key types.Key) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[types.Key]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
