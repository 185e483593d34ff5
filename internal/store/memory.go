package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[int]TableRecord
}

// NewMemoryStore returns a store seeded with records. Occupancy is reset.
func NewMemoryStore(records ...TableRecord) *MemoryStore {
	s := &MemoryStore{records: make(map[int]TableRecord, len(records))}
	for _, r := range records {
		r.CurrentPlayers = 0
		s.records[r.ID] = r
	}
	return s
}

func (s *MemoryStore) List(ctx context.Context) ([]TableRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SortedTables(s.list()), nil
}

func (s *MemoryStore) Get(ctx context.Context, id int) (TableRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return TableRecord{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return r, nil
}

func (s *MemoryStore) Save(ctx context.Context, rec TableRecord) (TableRecord, error) {
	if err := ctx.Err(); err != nil {
		return TableRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := prepareSave(s.list(), rec)
	if err != nil {
		return TableRecord{}, err
	}
	s.records[rec.ID] = rec
	return rec, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) SetOccupancy(ctx context.Context, id, players int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if players < 0 || players > r.MaxSeats {
		return fmt.Errorf("%w: %d players for %d seats", ErrInvalidRecord, players, r.MaxSeats)
	}
	r.CurrentPlayers = players
	s.records[id] = r
	return nil
}

func (s *MemoryStore) list() []TableRecord {
	out := make([]TableRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out
}
