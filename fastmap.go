package worldstate

import (
	"slices"

	"github.com/veldt-labs/worldstate/host"
)

// FastMap is an unordered map backed by contract storage with lazy
// read/write. Mutations stage into an in-memory write-set and reach the
// store only when the owning field is flushed, so gas consumption stays
// proportional to the number of distinct slots touched rather than the
// number of operations.
//
// Storage model (store key → value):
//
//	P            → cell{edition, P}           (sentinel recording the edition)
//	P, E, K      → cell                        (one slot per entry)
//
// where P is the parent key, E the little-endian edition and K the
// serialized user key. Because every child key embeds the edition, planting
// a fresh map over an existing slot advances the edition once and every
// entry of the previous occupant becomes unreachable without a single
// delete.
//
// The zero value is an unattached map, usable as a staging area or as a
// nested value (see Insert); it touches the store only after it has been
// bound to a field path or saved into an attached parent. Nested maps are
// declared by value: FastMap[string, FastMap[string, uint64]].
type FastMap[K any, V any] struct {
	store     host.Store
	parentKey []byte
	writeSet  map[string]*updateOp[V]
}

// NewFastMap creates an unattached FastMap.
func NewFastMap[K any, V any]() FastMap[K, V] {
	return FastMap[K, V]{}
}

// Get returns the value bound to key, consulting staged mutations first and
// the store second. The returned value is decoupled from the write-set: for
// plain values a copy, for a staged nested map a detached handle bound to
// the same slot. A key that was never inserted is a miss, not an error.
//
// Get on an unattached map never touches the store.
func (m *FastMap[K, V]) Get(key K) (V, bool) {
	var zero V
	kb := mustEncode(key)
	if op, ok := m.writeSet[string(kb)]; ok {
		if op.delete {
			return zero, false
		}
		return roundTripInsertable(m.store, &op.value), true
	}
	if m.store == nil || len(m.parentKey) == 0 {
		return zero, false
	}
	edition := storedEdition(m.store, m.parentKey)
	return insertableLoadValue[V](m.store, childKey(m.parentKey, edition, kb))
}

// GetMut returns a mutable reference to the value bound to key,
// materializing it into the write-set first. Mutations through the returned
// pointer are persisted by the next save. The pointer is valid for the life
// of this map instance within the current invocation; it must not escape a
// flush.
func (m *FastMap[K, V]) GetMut(key K) (*V, bool) {
	kb := mustEncode(key)
	if op, ok := m.writeSet[string(kb)]; ok {
		if op.delete {
			return nil, false
		}
		return &op.value, true
	}
	if m.store == nil || len(m.parentKey) == 0 {
		return nil, false
	}
	edition := storedEdition(m.store, m.parentKey)
	v, ok := insertableLoadValue[V](m.store, childKey(m.parentKey, edition, kb))
	if !ok {
		return nil, false
	}
	op := &updateOp[V]{value: v} // an update to an existing record, not a new one
	m.stage(kb, op)
	return &op.value, true
}

// Insert stages key→value as a brand-new record, unconditionally replacing
// any prior staged operation for the key. When the value is itself a map,
// "brand-new" is what advances the slot's edition at flush time and orphans
// the previous occupant's entries.
func (m *FastMap[K, V]) Insert(key K, value V) {
	m.stage(mustEncode(key), &updateOp[V]{value: value, isNew: true})
}

// Remove stages a tombstone for key, replacing any prior staged operation.
func (m *FastMap[K, V]) Remove(key K) {
	m.stage(mustEncode(key), &updateOp[V]{delete: true})
}

func (m *FastMap[K, V]) stage(kb []byte, op *updateOp[V]) {
	if m.writeSet == nil {
		m.writeSet = make(map[string]*updateOp[V])
	}
	m.writeSet[string(kb)] = op
}

// LoadStorage binds the map to its field path. No store reads happen here;
// entries are fetched lazily by Get.
func (m *FastMap[K, V]) LoadStorage(st host.Store, field Path) {
	m.store = st
	m.parentKey = field.Clone()
	m.writeSet = make(map[string]*updateOp[V])
}

// SaveStorage flushes every staged operation to the store.
func (m *FastMap[K, V]) SaveStorage(st host.Store, field Path) {
	m.insertableSave(st, field.Bytes(), false)
}

// insertableSave is the flush step shared by field saves and nested saves.
// isNew is true when this map instance is being freshly planted over
// whatever previously occupied key.
func (m *FastMap[K, V]) insertableSave(st host.Store, key []byte, isNew bool) {
	if m.store == nil {
		m.store = st
	}
	if len(m.parentKey) == 0 {
		m.parentKey = slices.Clone(key)
	}

	edition := uint32(0)
	if b, ok := m.store.Get(m.parentKey); ok {
		edition = unmarshalCell(m.parentKey, b).edition
		if isNew {
			edition++
		}
	}
	sentinel := cell{edition: edition, data: m.parentKey, hasData: true}
	m.store.Set(m.parentKey, sentinel.marshal())

	for _, kb := range sortedKeys(m.writeSet) {
		op := m.writeSet[kb]
		slot := childKey(m.parentKey, edition, []byte(kb))
		if op.delete {
			insertableDeleteValue(m.store, slot)
			continue
		}
		insertableSaveValue(m.store, &op.value, slot, op.isNew)
	}
}

func (m *FastMap[K, V]) cellData() []byte {
	return m.parentKey
}

func (m *FastMap[K, V]) bindCellData(st host.Store, data []byte) {
	m.store = st
	m.parentKey = slices.Clone(data)
	m.writeSet = nil
}
