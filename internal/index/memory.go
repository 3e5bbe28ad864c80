package index

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory. Used for tests and for
// deployments that rebuild the index on start.
type MemoryStore struct {
	mu         sync.RWMutex
	collection string
	records    map[string]Record
	byDocument map[string][]string
}

func NewMemoryStore(collection string) *MemoryStore {
	return &MemoryStore{
		collection: collection,
		records:    make(map[string]Record),
		byDocument: make(map[string][]string),
	}
}

func (s *MemoryStore) ReplaceDocument(_ context.Context, documentID string, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(documentID)
	ids := make([]string, 0, len(records))
	for _, r := range records {
		r.Metadata = copyMetadata(r.Metadata)
		r.Embedding = append([]float32(nil), r.Embedding...)
		s.records[r.ID] = r
		ids = append(ids, r.ID)
	}
	s.byDocument[documentID] = ids
	return nil
}

func (s *MemoryStore) Query(_ context.Context, vector []float32, k int, filter *Filter) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Result
	for _, r := range s.records {
		if !filter.Match(r.Metadata) {
			continue
		}
		d, err := cosineDistance(vector, r.Embedding)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: copyMetadata(r.Metadata),
			Distance: d,
		})
	}
	return topK(results, k), nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, documentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(documentID), nil
}

func (s *MemoryStore) deleteLocked(documentID string) int {
	ids := s.byDocument[documentID]
	for _, id := range ids {
		delete(s.records, id)
	}
	delete(s.byDocument, documentID)
	return len(ids)
}

func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) Collection() string { return s.collection }

func (s *MemoryStore) Location() string { return "memory" }

func (s *MemoryStore) Close() error { return nil }

func copyMetadata(md map[string]string) map[string]string {
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
