package host

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var worldStateBucket = []byte("worldstate")

// BoltStore is a file-backed Store for persistent contract simulation.
//
// It keeps the world state of simulated invocations across process restarts,
// which is what a contract integration test needs to exercise the load/save
// cycle the way a chain would.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if needed) a bbolt-backed store at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(worldStateBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create world state bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Get returns the value bound to key, or ok=false on a miss.
//
// The Store contract is infallible, so an I/O failure here is unrecoverable
// and panics, consistent with how a real host aborts the invocation.
func (s *BoltStore) Get(key []byte) ([]byte, bool) {
	var out []byte
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(worldStateBucket).Get(key)
		if v == nil {
			return nil
		}
		ok = true
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		panic(fmt.Errorf("bolt store get: %w", err))
	}
	return out, ok
}

// Set unconditionally binds key to value.
func (s *BoltStore) Set(key, value []byte) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(worldStateBucket).Put(key, value)
	})
	if err != nil {
		panic(fmt.Errorf("bolt store set: %w", err))
	}
}

// Close releases the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
