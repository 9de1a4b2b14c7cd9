package host

import (
	"sync"
)

// MemoryStore is an in-memory Store implementation for tests and ephemeral
// contract simulation. Thread-safe for concurrent reads and writes.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// Get returns the value bound to key, or ok=false on a miss.
func (m *MemoryStore) Get(key []byte) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[string(key)]
	if !ok {
		return nil, false
	}

	// Return a copy to prevent external mutation
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

// Set unconditionally binds key to value.
func (m *MemoryStore) Set(key, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Copy to prevent external mutation
	v := make([]byte, len(value))
	copy(v, value)
	m.data[string(key)] = v
}

// Len returns the number of keys currently stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}
