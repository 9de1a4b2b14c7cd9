package worldstate

import (
	"bytes"
	"encoding/binary"
	"errors"
	"iter"
	"maps"
	"slices"

	"github.com/veldt-labs/worldstate/host"
)

// Tag bytes separating the key spaces of a Vector's sub-structures.
const (
	vecTagLength  = 0x00
	vecTagElement = 0x01
)

// Vector is an index-addressable growable sequence backed by contract
// storage with lazy read/write. Push and Pop touch only the in-memory
// length; element reads go through a read-set cache so each slot costs at
// most one host call per invocation; element writes stage into a write-set
// flushed at field save.
//
// Storage model (store key → value):
//
//	P, 0        → length (u64 LE)
//	P, 1, I     → element (codec bytes)
//
// where P is the parent key and I the little-endian element index.
//
// The zero value is an unattached vector. Elements that implement Storable
// (for example a nested collection) are loaded and saved through that
// interface instead of the codec; such elements should be accessed via
// GetMut rather than Get, since a value copy of a collection shares its
// staged state.
type Vector[T any] struct {
	store     host.Store
	parentKey []byte
	length    uint64
	writeSet  map[uint64]*T
	readSet   map[uint64]*T
}

// NewVector creates an unattached Vector.
func NewVector[T any]() Vector[T] {
	return Vector[T]{}
}

// Len returns the vector's length. O(1), no store interaction.
func (v *Vector[T]) Len() int {
	return int(v.length)
}

// Push appends value. No store interaction; the element is staged and the
// length is persisted at the next save.
func (v *Vector[T]) Push(value T) {
	v.stage(v.length, &value)
	v.length++
}

// Pop removes the last element. It deliberately does not return the removed
// element: doing so could force a host read for a value the caller usually
// does not need.
func (v *Vector[T]) Pop() {
	if v.length == 0 {
		return
	}
	v.length--
	delete(v.writeSet, v.length)
	delete(v.readSet, v.length)
}

// Get returns a copy of the element at index i, reading through the staged
// write-set, then the read-set cache, then the store. Panics with
// IndexOutOfRangeError when i >= Len(), and with ErrUnattached when an
// uncached element is requested from a vector that was never bound to a
// field path — both are programmer errors, not recoverable conditions.
func (v *Vector[T]) Get(i int) T {
	return *v.ref(i, false)
}

// GetMut returns a mutable reference to the element at index i, staging it
// into the write-set so that mutations through the pointer are persisted by
// the next save. Panic conditions are the same as Get's.
func (v *Vector[T]) GetMut(i int) *T {
	return v.ref(i, true)
}

// Set replaces the element at index i.
func (v *Vector[T]) Set(i int, value T) {
	*v.ref(i, true) = value
}

func (v *Vector[T]) ref(i int, mutate bool) *T {
	if i < 0 || uint64(i) >= v.length {
		panic(&IndexOutOfRangeError{Index: i, Len: int(v.length)})
	}
	idx := uint64(i)

	if p, ok := v.writeSet[idx]; ok {
		return p
	}
	p, ok := v.readSet[idx]
	if !ok {
		val := v.loadElement(idx)
		p = &val
		if v.readSet == nil {
			v.readSet = make(map[uint64]*T)
		}
		v.readSet[idx] = p
	}
	if !mutate {
		return p
	}
	staged := new(T)
	*staged = *p
	v.stage(idx, staged)
	return staged
}

func (v *Vector[T]) loadElement(idx uint64) T {
	var out T
	if v.store == nil || len(v.parentKey) == 0 {
		panic(ErrUnattached)
	}
	key := v.keyElement(idx)
	if s, ok := any(&out).(Storable); ok {
		s.LoadStorage(v.store, NewPath().Append(key))
		return out
	}
	b, ok := v.store.Get(key)
	if !ok {
		// In-range but never flushed at this slot; decode as the zero value.
		return out
	}
	mustDecode(key, b, &out)
	return out
}

func (v *Vector[T]) stage(idx uint64, p *T) {
	if v.writeSet == nil {
		v.writeSet = make(map[uint64]*T)
	}
	v.writeSet[idx] = p
}

// All returns a lazy iterator over index/element copies for indices
// 0..Len(). Each call produces a fresh iterator.
func (v *Vector[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; uint64(i) < v.length; i++ {
			if !yield(i, v.Get(i)) {
				return
			}
		}
	}
}

// AllMut returns a lazy iterator over index/mutable-reference pairs for
// indices 0..Len(). Every visited element is staged into the write-set, so a
// full mutable iteration writes back every element on save whether or not it
// was changed — a deliberate simplicity/cost tradeoff.
func (v *Vector[T]) AllMut() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for i := 0; uint64(i) < v.length; i++ {
			if !yield(i, v.GetMut(i)) {
				return
			}
		}
	}
}

// LoadStorage binds the vector to its field path and reads the stored
// length. Elements are fetched lazily on access.
func (v *Vector[T]) LoadStorage(st host.Store, field Path) {
	v.store = st
	v.parentKey = field.Clone()
	v.length = v.storedLength()
	v.writeSet = make(map[uint64]*T)
	v.readSet = make(map[uint64]*T)
}

// SaveStorage persists the length (only if it changed) and flushes every
// staged element in ascending index order.
func (v *Vector[T]) SaveStorage(st host.Store, field Path) {
	if v.store == nil {
		v.store = st
	}
	if !bytes.Equal(v.parentKey, field.Bytes()) {
		v.parentKey = field.Clone()
	}

	if v.length != v.storedLength() {
		v.store.Set(v.keyLength(), binary.LittleEndian.AppendUint64(nil, v.length))
	}

	for _, idx := range slices.Sorted(maps.Keys(v.writeSet)) {
		p := v.writeSet[idx]
		key := v.keyElement(idx)
		if s, ok := any(p).(Storable); ok {
			s.SaveStorage(v.store, NewPath().Append(key))
			continue
		}
		v.store.Set(key, mustEncode(*p))
	}
}

// storedLength reads the persisted length, 0 when never written.
func (v *Vector[T]) storedLength() uint64 {
	if v.store == nil || len(v.parentKey) == 0 {
		return 0
	}
	key := v.keyLength()
	b, ok := v.store.Get(key)
	if !ok {
		return 0
	}
	if len(b) != 8 {
		panic(&CorruptValueError{Key: slices.Clone(key), cause: errors.New("malformed vector length")})
	}
	return binary.LittleEndian.Uint64(b)
}

func (v *Vector[T]) keyLength() []byte {
	return append(slices.Clone(v.parentKey), vecTagLength)
}

func (v *Vector[T]) keyElement(idx uint64) []byte {
	out := append(slices.Clone(v.parentKey), vecTagElement)
	return binary.LittleEndian.AppendUint32(out, uint32(idx))
}
