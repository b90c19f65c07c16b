package storage

import (
	"context"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NepZR/brnews/internal/types"
)

// MemoryStore keeps records in process memory. Used for dry runs and as
// the test double for the storage port.
type MemoryStore struct {
	mu    sync.RWMutex
	kind  string
	byID  map[string]types.Record
	byKey map[types.Key]string
	order []string
}

// NewMemoryStore creates an empty in-memory backend for one record kind.
func NewMemoryStore(kind string) *MemoryStore {
	return &MemoryStore{
		kind:  kind,
		byID:  make(map[string]types.Record),
		byKey: make(map[types.Key]string),
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Exists(_ context.Context, rec types.Record) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byKey[rec.Key()]
	return ok, nil
}

func (s *MemoryStore) Insert(_ context.Context, rec types.Record) (string, error) {
	rec.StampEntry(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.byID[id] = rec
	s.byKey[rec.Key()] = id
	s.order = append(s.order, id)
	return id, nil
}

func (s *MemoryStore) Read(_ context.Context, f Filter) iter.Seq2[types.Record, error] {
	s.mu.RLock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	recs := make(map[string]types.Record, len(s.byID))
	for id, rec := range s.byID {
		recs[id] = rec
	}
	s.mu.RUnlock()

	return func(yield func(types.Record, error) bool) {
		var n int64
		for _, id := range ids {
			rec, ok := recs[id]
			if !ok || !matches(rec, f) {
				continue
			}
			if !yield(rec, nil) {
				return
			}
			n++
			if f.Limit > 0 && n >= f.Limit {
				return
			}
		}
	}
}

func (s *MemoryStore) Update(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return types.ErrNotFound
	}
	applyFields(rec, fields)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byKey, rec.Key())
	for i := 0; i < len(s.order); i++ {
		if s.order[i] == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return rec, nil
}

func (s *MemoryStore) Close() error { return nil }

// Count returns the number of stored records.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// matches applies the backend-neutral filter in Go.
func matches(rec types.Record, f Filter) bool {
	switch r := rec.(type) {
	case *types.ArticleRecord:
		if f.Platform != "" && r.Platform != f.Platform {
			return false
		}
		if !dateInRange(r.Date, f.From, f.To) {
			return false
		}
		if f.Query != "" && !anyContains(f.Query, r.Title, r.Abstract, r.Body) {
			return false
		}
	case *types.CommentRecord:
		if f.Platform != "" && r.Platform != f.Platform {
			return false
		}
		if !dateInRange(r.Date, f.From, f.To) {
			return false
		}
		if f.Query != "" && !anyContains(f.Query, r.Comment) {
			return false
		}
	}
	return true
}

func dateInRange(d, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	if d == nil {
		return false
	}
	if from != nil && d.Before(*from) {
		return false
	}
	if to != nil && d.After(*to) {
		return false
	}
	return true
}

func anyContains(query string, fields ...*string) bool {
	query = strings.ToLower(query)
	for _, fld := range fields {
		if fld != nil && strings.Contains(strings.ToLower(*fld), query) {
			return true
		}
	}
	return false
}

// applyFields handles the partial-update field names shared with the
// document backends.
func applyFields(rec types.Record, fields map[string]any) {
	r, ok := rec.(*types.ArticleRecord)
	if !ok {
		return
	}
	for name, value := range fields {
		s, ok := value.(string)
		if !ok {
			continue
		}
		switch name {
		case "title":
			r.Title = &s
		case "abstract":
			r.Abstract = &s
		case "section":
			r.Section = &s
		case "region":
			r.Region = &s
		case "tags":
			r.Tags = &s
		case "type":
			r.Type = s
		case "body":
			r.Body = &s
		}
	}
}
