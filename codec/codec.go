// Package codec centralizes value encoding for contract storage.
//
// Worldstate intentionally treats codec selection as a breaking-change boundary:
// every contract invocation must agree byte-for-byte on how values serialize,
// because serialized keys and values are part of the persistent storage layout.
// For that reason the default codec is deterministic CBOR and there is no
// per-call codec configuration.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be deterministic: equal values must always produce
// identical bytes, across processes and invocations.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
//
// Names are stable identifiers that may be recorded by tooling (e.g. contract
// metadata) to describe how a contract's values are encoded.
func ByName(name string) (Codec, bool) {
	switch name {
	case "cbor":
		return CBOR{}, true
	case "cbor+s2":
		return Compressed{Inner: CBOR{}}, true
	default:
		return nil, false
	}
}

// MustMarshal encodes v with c, or panics.
//
// Storage-layer serialization failures are unrecoverable: a value that cannot
// be encoded or decoded at the store boundary cannot be locally repaired, so
// callers on the hot path use the Must variants and let the panic abort the
// invocation.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}

// MustUnmarshal decodes data into v with c, or panics.
func MustUnmarshal(c Codec, data []byte, v any) {
	if c == nil {
		c = Default
	}
	if err := c.Unmarshal(data, v); err != nil {
		panic(fmt.Errorf("codec %s unmarshal failed: %w", c.Name(), err))
	}
}

// Default is the codec used by all collections.
//
// Persisted layouts depend on it; changing Default invalidates every key and
// value an existing contract has written.
var Default Codec = CBOR{}
