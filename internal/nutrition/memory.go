package nutrition

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps documents in process. Values are deep-copied through
// JSON so callers never share maps with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[uint64][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[uint64][]byte{}}
}

func (s *MemoryStore) Load(_ context.Context, userID uint64) (Document, error) {
	s.mu.RLock()
	b, ok := s.docs[userID]
	s.mu.RUnlock()
	if !ok {
		return Document{}, ErrNotFound
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (s *MemoryStore) Save(_ context.Context, userID uint64, doc Document) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[userID] = b
	s.mu.Unlock()
	return nil
}
