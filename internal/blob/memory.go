package blob

import (
	"context"
	"sync"
)

// MemoryStore keeps signatures in process memory. Used when no bucket is
// configured.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) PutSignature(_ context.Context, key string, img []byte) error {
	m.mu.Lock()
	m.objects[key] = append([]byte(nil), img...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[key]
	return b, ok
}
