// Package host defines the boundary between contract code and the host's
// raw key-value storage, plus Store implementations used for local contract
// simulation and tests.
//
// During a real invocation the only Store is the one the host exposes through
// its FFI imports; everything in this package besides the interface exists so
// that contracts can be exercised outside a chain.
package host

// Store is the host-provided byte-keyed, byte-valued persistent map.
//
// It is synchronous and infallible: a miss is reported through the boolean,
// never through an error, and Set is an unconditional upsert. There is no
// delete primitive; logical deletion is modeled by the storage layer as a
// tombstone value written with Set.
//
// Within one invocation exactly one goroutine touches the Store, and the host
// guarantees invocations against the same account are never concurrent, so
// implementations backing a real host need no locking. The simulation stores
// in this package lock anyway so they can be shared across simulated calls.
type Store interface {
	// Get returns the value bound to key, or ok=false if the key was never
	// written.
	Get(key []byte) (value []byte, ok bool)

	// Set unconditionally binds key to value.
	Set(key, value []byte)
}
