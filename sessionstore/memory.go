package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps records in process. Good enough for dev servers and
// tests; records vanish on restart, which just signs everyone out.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: map[uuid.UUID]*Record{},
	}
}

func (s *MemoryStore) Put(_ context.Context, record *Record) error {
	now := time.Now()
	record.UpdatedAt = &now
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}

	clone := *record

	s.mu.Lock()
	s.records[record.ID] = &clone
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Record, error) {
	s.mu.RLock()
	record, ok := s.records[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	clone := *record
	return &clone, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, record := range s.records {
		if record.Expired() {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}
