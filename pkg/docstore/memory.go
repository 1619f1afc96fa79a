package docstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore 进程内实现，用于本地开发和测试
type MemoryStore struct {
	mu    sync.RWMutex
	order map[string][]string
	docs  map[string]map[string]*Record
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		order: make(map[string][]string),
		docs:  make(map[string]map[string]*Record),
		now:   time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *MemoryStore) List(ctx context.Context, collection string, q Query) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, id := range s.order[collection] {
		rec := s.docs[collection][id]
		if !matches(rec.Fields, q.Filters) {
			continue
		}
		out = append(out, *copyRecord(rec))
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Create(ctx context.Context, collection, id string, fields map[string]any) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]*Record)
	}
	if _, exists := s.docs[collection][id]; exists {
		return nil, ErrAlreadyExists
	}

	now := s.now()
	rec := &Record{
		ID:         id,
		Collection: collection,
		Fields:     cloneFields(fields),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.docs[collection][id] = rec
	s.order[collection] = append(s.order[collection], id)
	return copyRecord(rec), nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]any) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	rec.UpdatedAt = s.now()
	return copyRecord(rec), nil
}

func copyRecord(rec *Record) *Record {
	cp := *rec
	cp.Fields = cloneFields(rec.Fields)
	return &cp
}
