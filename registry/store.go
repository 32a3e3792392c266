package registry

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/bitfsorg/docnotary-go/digest"
)

// Store is the persistence backend of a Registry. Insert is the atomic
// compare-and-insert primitive: of any number of concurrent inserts for one
// digest exactly one succeeds and the rest return ErrAlreadyRegistered.
type Store interface {
	// Insert persists rec unless a record with the same digest exists.
	Insert(ctx context.Context, rec *Record) error

	// Lookup returns the record for d or ErrNotFound.
	Lookup(ctx context.Context, d digest.Digest) (*Record, error)

	// Exists reports whether a record for d exists.
	Exists(ctx context.Context, d digest.Digest) (bool, error)

	// ListByOwner returns owner's records ordered by timestamp, then digest.
	ListByOwner(ctx context.Context, owner string) ([]*Record, error)

	// Close releases backend resources.
	Close() error
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu      sync.RWMutex
	records map[digest.Digest]*Record
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[digest.Digest]*Record)}
}

func (s *MemStore) Insert(ctx context.Context, rec *Record) error {
	if rec == nil {
		return ErrInvalidRequest
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.Digest]; ok {
		return ErrAlreadyRegistered
	}
	s.records[rec.Digest] = rec.Clone()
	return nil
}

func (s *MemStore) Lookup(ctx context.Context, d digest.Digest) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[d]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemStore) Exists(ctx context.Context, d digest.Digest) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[d]
	return ok, nil
}

func (s *MemStore) ListByOwner(ctx context.Context, owner string) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var out []*Record
	for _, rec := range s.records {
		if rec.Owner == owner {
			out = append(out, rec.Clone())
		}
	}
	s.mu.RUnlock()

	sortRecords(out)
	return out, nil
}

func (s *MemStore) Close() error { return nil }

// Len returns the number of records.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// sortRecords orders by timestamp, then digest bytes.
func sortRecords(recs []*Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Timestamp.Equal(recs[j].Timestamp) {
			return recs[i].Timestamp.Before(recs[j].Timestamp)
		}
		return bytes.Compare(recs[i].Digest[:], recs[j].Digest[:]) < 0
	})
}
