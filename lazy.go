package worldstate

import (
	"github.com/veldt-labs/worldstate/host"
)

// Lazy defers a scalar field's host read until the value is first accessed,
// and writes it back at field flush only if it was ever materialized. A
// contract method that never touches the field therefore pays zero host
// calls for it.
//
//	profile := worldstate.NewLazy[uint64]()
//	profile.LoadStorage(st, path)   // no read yet
//	n := profile.Get()              // single host read happens here
//	profile.Set(n + 1)              // in-memory only
//	profile.SaveStorage(st, path)   // single host write
type Lazy[T any] struct {
	store  host.Store
	field  Path
	value  T
	loaded bool
}

// NewLazy creates an unattached Lazy cell.
func NewLazy[T any]() Lazy[T] {
	return Lazy[T]{}
}

// Get returns the value, reading it from the store on first access. An
// unattached cell yields the zero value.
func (l *Lazy[T]) Get() T {
	l.materialize()
	return l.value
}

// Mut returns a mutable reference to the value, reading it from the store on
// first access. Mutations are persisted at the next save.
func (l *Lazy[T]) Mut() *T {
	l.materialize()
	return &l.value
}

// Set replaces the value without reading the old one.
func (l *Lazy[T]) Set(v T) {
	l.value = v
	l.loaded = true
}

func (l *Lazy[T]) materialize() {
	if l.loaded {
		return
	}
	if l.store != nil {
		l.value = LoadField[T](l.store, l.field)
	}
	l.loaded = true
}

// LoadStorage binds the cell to its field path. The read is deferred.
func (l *Lazy[T]) LoadStorage(st host.Store, field Path) {
	l.store = st
	l.field = field
	l.loaded = false
	var zero T
	l.value = zero
}

// SaveStorage writes the value back iff it was materialized this invocation.
func (l *Lazy[T]) SaveStorage(st host.Store, field Path) {
	if !l.loaded {
		return
	}
	SaveField(st, field, &l.value)
}
