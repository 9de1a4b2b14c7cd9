// Package worldstate provides lazily-synchronized storage collections for
// smart contracts: data structures that behave like familiar in-memory
// collections but are backed, field by field, by the host's raw get/set
// key-value store.
//
// Host calls are the unit of gas at the storage boundary, so every
// collection follows the same discipline: reads are cached for the life of
// the invocation, mutations stage into an in-memory write-set, and the store
// is only touched again when the owning contract field is flushed at the end
// of the method. Deletion of whole subtrees is O(1) through generation
// counters embedded in child keys (FastMap editions, IterableMap levels)
// rather than per-key deletes.
//
// # Collections
//
//   - Vector: index-addressable growable sequence. Push/Pop are free of host
//     calls; element access costs at most one read per slot per invocation.
//   - FastMap: unordered map. Cheapest per-entry cost; no iteration.
//   - IterableMap: insertion-ordered map with key/value iteration, paid for
//     with a secondary index (key→slot, slot→key, slot→value).
//   - Lazy: a scalar field whose single host read is deferred until first
//     access.
//
// All of them implement Storable, the contract-field binding interface the
// generated accessor glue drives: LoadStorage before the method body,
// SaveStorage after it, in field declaration order.
//
// # Example
//
//	st := host.NewMemoryStore() // a real invocation uses the host's store
//
//	var balances worldstate.IterableMap[string, uint64]
//	balances.LoadStorage(st, worldstate.NewPath().Add(0))
//
//	balances.Insert("alice", 100)
//	balances.Insert("bob", 50)
//	for k := range balances.Keys() {
//		// "alice", "bob"
//	}
//
//	balances.SaveStorage(st, worldstate.NewPath().Add(0))
//
// # Failure model
//
// "Not found" is a normal outcome and surfaces as an ok=false result.
// Everything else — corrupt bytes, out-of-range indices, dereferencing an
// unattached collection — is a programmer error or data corruption and
// panics, aborting the invocation; the host's all-or-nothing transaction
// boundary discards every staged write. See the error types in errors.go.
//
// # Determinism
//
// Key layouts and the default codec (deterministic CBOR, see the codec
// package) are part of the persistent storage model: every invocation of the
// same contract must agree byte-for-byte on them. Flushes walk write-sets in
// ascending key order for the same reason.
package worldstate
