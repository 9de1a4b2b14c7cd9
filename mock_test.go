package worldstate

import (
	"github.com/veldt-labs/worldstate/host"
)

// countingStore wraps a MemoryStore and records host-call counts, so tests
// can assert on the gas-relevant I/O behavior of a collection.
type countingStore struct {
	inner *host.MemoryStore
	gets  int
	sets  int
}

func newCountingStore() *countingStore {
	return &countingStore{inner: host.NewMemoryStore()}
}

func (s *countingStore) Get(key []byte) ([]byte, bool) {
	s.gets++
	return s.inner.Get(key)
}

func (s *countingStore) Set(key, value []byte) {
	s.sets++
	s.inner.Set(key, value)
}

func (s *countingStore) reset() {
	s.gets, s.sets = 0, 0
}

// panicStore fails the test on any host call; used to prove an operation is
// a pure cache check.
type panicStore struct{}

func (panicStore) Get(key []byte) ([]byte, bool) {
	panic("unexpected store get")
}

func (panicStore) Set(key, value []byte) {
	panic("unexpected store set")
}
