package status

import (
	"context"
	"fmt"
	"sync"
)

// MemStore keeps processing records in memory. It backs local mode (the
// chromem store has no relational side) and tests.
type MemStore struct {
	mu   sync.RWMutex
	recs map[string]Record
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{recs: make(map[string]Record)}
}

func (s *MemStore) Insert(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.ID] = *rec
	return nil
}

func (s *MemStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[id]
	if !ok {
		return nil, fmt.Errorf("record %s not found", id)
	}
	return &rec, nil
}

func (s *MemStore) Update(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[rec.ID]; !ok {
		return fmt.Errorf("record %s not found", rec.ID)
	}
	s.recs[rec.ID] = *rec
	return nil
}

func (s *MemStore) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var recs []Record
	for _, r := range s.recs {
		if r.OwnerID == ownerID {
			recs = append(recs, r)
		}
	}
	return recs, nil
}
