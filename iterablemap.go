package worldstate

import (
	"encoding/binary"
	"iter"
	"slices"

	"github.com/veldt-labs/worldstate/host"
)

// Tag bytes separating the key spaces of an IterableMap's sub-structures.
const (
	imTagMapInfo    = 0x00
	imTagKeyIndex   = 0x01
	imTagIndexKey   = 0x02
	imTagIndexValue = 0x03
)

// IterableMap is an insertion-ordered map backed by contract storage with
// lazy read/write. On top of FastMap's staged-mutation model it maintains a
// secondary index so keys and values can be iterated without knowing the key
// set in advance.
//
// Storage model (store key → value):
//
//	P              → valueCell{isMap, P}    (sentinel marking the slot a map)
//	P, 0           → mapInfoCell{level, sequence}
//	P, 1, L, K     → keyIndexCell{index}    (key → slot index)
//	P, 2, L, I     → valueCell{data: K}     (slot index → key)
//	P, 3, L, I     → valueCell              (slot index → value)
//
// where P is the parent key, L the little-endian level, I the little-endian
// slot index and K the serialized user key. Every sub-key embeds the map's
// current level, so Clear advances the level once and the entire previous
// key set becomes unreachable in O(1); the orphaned bytes are accepted
// garbage.
//
// The zero value is an unattached map. Nested maps are declared by value:
// IterableMap[string, IterableMap[string, uint64]].
type IterableMap[K any, V any] struct {
	store     host.Store
	parentKey []byte
	writeSet  map[string]*updateOp[V]
}

// NewIterableMap creates an unattached IterableMap.
func NewIterableMap[K any, V any]() IterableMap[K, V] {
	return IterableMap[K, V]{}
}

// Get returns the value bound to key, consulting staged mutations first and
// the store second. The returned value is decoupled from the write-set. A
// slot whose index fell out of the current level's sequence (cleared or
// stale generation) is a miss.
func (m *IterableMap[K, V]) Get(key K) (V, bool) {
	return m.getInner(mustEncode(key))
}

func (m *IterableMap[K, V]) getInner(kb []byte) (V, bool) {
	var zero V
	if op, ok := m.writeSet[string(kb)]; ok {
		if op.delete {
			return zero, false
		}
		return roundTripIterable(m.store, &op.value), true
	}
	return m.loadByKey(kb)
}

func (m *IterableMap[K, V]) loadByKey(kb []byte) (V, bool) {
	var zero V
	if m.store == nil || len(m.parentKey) == 0 {
		return zero, false
	}
	info := m.mapInfo()
	idx, ok := loadKeyIndex(m.store, m.keyKeyIndex(kb, info.level))
	if !ok || idx >= info.sequence {
		return zero, false
	}
	return iterableLoadValue[V](m.store, m.keyIndexValue(info.level, idx))
}

// GetMut returns a mutable reference to the value bound to key,
// materializing it into the write-set first. Mutations through the returned
// pointer are persisted by the next save. The pointer is valid for the life
// of this map instance within the current invocation; it must not escape a
// flush.
func (m *IterableMap[K, V]) GetMut(key K) (*V, bool) {
	return m.getMutInner(mustEncode(key))
}

func (m *IterableMap[K, V]) getMutInner(kb []byte) (*V, bool) {
	if op, ok := m.writeSet[string(kb)]; ok {
		if op.delete {
			return nil, false
		}
		return &op.value, true
	}
	v, ok := m.loadByKey(kb)
	if !ok {
		return nil, false
	}
	op := &updateOp[V]{value: v}
	m.stage(kb, op)
	return &op.value, true
}

// Insert stages key→value and returns a mutable reference to the staged
// value. A key never used at the current level is staged as a new record and
// receives the next free slot index at flush time; a key that already owns a
// slot is overwritten in place, keeping its iteration position.
func (m *IterableMap[K, V]) Insert(key K, value V) *V {
	kb := mustEncode(key)
	op := &updateOp[V]{value: value, isNew: m.isNewRecord(kb)}
	m.stage(kb, op)
	return &op.value
}

// Remove stages a tombstone for key. A subsequently re-inserted key receives
// a fresh slot index, so it iterates after the surviving entries rather than
// at its old position.
func (m *IterableMap[K, V]) Remove(key K) {
	m.stage(mustEncode(key), &updateOp[V]{delete: true})
}

func (m *IterableMap[K, V]) stage(kb []byte, op *updateOp[V]) {
	if m.writeSet == nil {
		m.writeSet = make(map[string]*updateOp[V])
	}
	m.writeSet[string(kb)] = op
}

// IsKeyUsed reports whether key owns a live slot in the store at the current
// level. It reflects the last flushed state only; staged mutations are not
// consulted.
func (m *IterableMap[K, V]) IsKeyUsed(key K) bool {
	return m.isKeyUsedInStore(mustEncode(key))
}

func (m *IterableMap[K, V]) isKeyUsedInStore(kb []byte) bool {
	if m.store == nil || len(m.parentKey) == 0 {
		return false
	}
	info := m.mapInfo()
	if info.sequence == 0 {
		return false
	}
	idx, ok := loadKeyIndex(m.store, m.keyKeyIndex(kb, info.level))
	return ok && idx < info.sequence
}

func (m *IterableMap[K, V]) isNewRecord(kb []byte) bool {
	if op, ok := m.writeSet[string(kb)]; ok {
		if op.delete {
			return true
		}
		return op.isNew
	}
	return !m.isKeyUsedInStore(kb)
}

// Clear drops all staged mutations and advances the map's level, resetting
// the sequence to zero. Every existing entry becomes unreachable without a
// single per-key delete; the old level's bytes remain in the store as
// permanently unreachable garbage, the accepted price of an O(1) clear.
func (m *IterableMap[K, V]) Clear() {
	m.writeSet = make(map[string]*updateOp[V])
	if m.store != nil && len(m.parentKey) > 0 {
		m.bumpLevel()
	}
}

func (m *IterableMap[K, V]) bumpLevel() {
	info := m.mapInfo()
	info.level++
	info.sequence = 0
	info.save(m.store, m.keyMapInfo())
}

// Keys returns a lazy, one-shot iterator over the map's keys: flushed keys
// first in slot (insertion) order, then staged new keys in serialized-key
// byte order. Each call produces a fresh iterator. Staged removals are
// skipped.
func (m *IterableMap[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		info := m.mapInfo()
		for i := uint32(0); i < info.sequence; i++ {
			kb, ok := m.slotKey(info.level, i)
			if !ok || m.stagedElsewhere(kb) {
				continue
			}
			var k K
			mustDecode(kb, kb, &k)
			if !yield(k) {
				return
			}
		}
		for _, kb := range m.stagedNewKeys() {
			var k K
			mustDecode([]byte(kb), []byte(kb), &k)
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns a lazy, one-shot iterator over the map's values, in the
// same order as Keys. Yielded values are decoupled copies.
func (m *IterableMap[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		info := m.mapInfo()
		for i := uint32(0); i < info.sequence; i++ {
			kb, ok := m.slotKey(info.level, i)
			if !ok || m.stagedElsewhere(kb) {
				continue
			}
			v, ok := m.getInner(kb)
			if !ok {
				continue
			}
			if !yield(v) {
				return
			}
		}
		for _, kb := range m.stagedNewKeys() {
			op := m.writeSet[kb]
			if !yield(roundTripIterable(m.store, &op.value)) {
				return
			}
		}
	}
}

// ValuesMut returns a lazy, one-shot iterator over mutable references to the
// map's values, in the same order as Keys. Every value it visits is
// materialized into the write-set, so a full mutable iteration writes back
// every entry on save whether or not it was changed. The references share
// the invocation-scoped cache and must not escape a flush.
func (m *IterableMap[K, V]) ValuesMut() iter.Seq[*V] {
	return func(yield func(*V) bool) {
		info := m.mapInfo()
		for i := uint32(0); i < info.sequence; i++ {
			kb, ok := m.slotKey(info.level, i)
			if !ok || m.stagedElsewhere(kb) {
				continue
			}
			v, ok := m.getMutInner(kb)
			if !ok {
				continue
			}
			if !yield(v) {
				return
			}
		}
		for _, kb := range m.stagedNewKeys() {
			if !yield(&m.writeSet[kb].value) {
				return
			}
		}
	}
}

// slotKey resolves slot i to its user key bytes, or ok=false for a slot that
// was tombstoned or never committed at this level.
func (m *IterableMap[K, V]) slotKey(level, i uint32) ([]byte, bool) {
	if m.store == nil {
		return nil, false
	}
	c, ok := loadValueCell(m.store, m.keyIndexKey(level, i))
	if !ok || !c.hasData {
		return nil, false
	}
	return c.data, true
}

// stagedElsewhere reports whether kb's staged op excludes it from the
// store-backed part of an iteration: staged deletes are gone, and staged new
// records are yielded at the tail instead (their store slot, if any, is
// stale).
func (m *IterableMap[K, V]) stagedElsewhere(kb []byte) bool {
	op, ok := m.writeSet[string(kb)]
	return ok && (op.delete || op.isNew)
}

// stagedNewKeys returns the serialized keys staged as new records, in byte
// order. This is the iteration tail: entries that exist only in the
// write-set and have no assigned slot index yet.
func (m *IterableMap[K, V]) stagedNewKeys() []string {
	var out []string
	for _, kb := range sortedKeys(m.writeSet) {
		if op := m.writeSet[kb]; !op.delete && op.isNew {
			out = append(out, kb)
		}
	}
	return out
}

// LoadStorage binds the map to its field path. No store reads happen here;
// the map info and entries are fetched lazily.
func (m *IterableMap[K, V]) LoadStorage(st host.Store, field Path) {
	m.store = st
	m.parentKey = field.Clone()
	m.writeSet = make(map[string]*updateOp[V])
}

// SaveStorage flushes every staged operation to the store.
func (m *IterableMap[K, V]) SaveStorage(st host.Store, field Path) {
	m.iterableSave(st, field.Bytes())
}

// iterableSave is the flush step shared by field saves and nested saves.
func (m *IterableMap[K, V]) iterableSave(st host.Store, key []byte) {
	if m.store == nil {
		m.store = st
	}
	if len(m.parentKey) == 0 {
		// First save of a freshly planted nested map: whatever previously
		// occupied this slot is a different logical map, so advance the
		// level before writing anything at it.
		m.parentKey = slices.Clone(key)
		m.bumpLevel()
	}

	sentinel := valueCell{isMap: true, data: m.parentKey, hasData: true}
	m.store.Set(key, sentinel.marshal())

	info := m.mapInfo()
	for _, kb := range sortedKeys(m.writeSet) {
		op := m.writeSet[kb]
		switch {
		case op.delete:
			m.removeFromStore([]byte(kb), info.level)
		case op.isNew:
			m.addToStore([]byte(kb), &info, &op.value)
		default:
			m.setInStore([]byte(kb), info.level, &op.value)
		}
	}
}

// addToStore allocates the next slot index for kb and writes all three
// sub-structures. info is advanced in place and persisted so a later
// iteration within the same flush sees the new sequence.
func (m *IterableMap[K, V]) addToStore(kb []byte, info *mapInfoCell, v *V) {
	// A staged remove-then-reinsert never flushed the remove; clear the old
	// slot first so the key does not appear twice in iteration order.
	if oldIdx, ok := loadKeyIndex(m.store, m.keyKeyIndex(kb, info.level)); ok && oldIdx < info.sequence {
		m.clearSlot(info.level, oldIdx)
	}

	idx := info.sequence
	info.sequence++
	info.save(m.store, m.keyMapInfo())

	saveKeyIndex(m.store, m.keyKeyIndex(kb, info.level), idx)
	m.store.Set(m.keyIndexKey(info.level, idx), valueCell{data: kb, hasData: true}.marshal())
	iterableSaveValue(m.store, v, m.keyIndexValue(info.level, idx))
}

// setInStore overwrites an existing slot in place, preserving its index.
func (m *IterableMap[K, V]) setInStore(kb []byte, level uint32, v *V) {
	idx, ok := loadKeyIndex(m.store, m.keyKeyIndex(kb, level))
	if !ok {
		return
	}
	m.store.Set(m.keyIndexKey(level, idx), valueCell{data: kb, hasData: true}.marshal())
	iterableSaveValue(m.store, v, m.keyIndexValue(level, idx))
}

// removeFromStore tombstones kb's slot and key-index entry. A re-inserted
// key therefore allocates a fresh slot rather than resurrecting this one.
func (m *IterableMap[K, V]) removeFromStore(kb []byte, level uint32) {
	idx, ok := loadKeyIndex(m.store, m.keyKeyIndex(kb, level))
	if !ok {
		return
	}
	m.clearSlot(level, idx)
	deleteKeyIndex(m.store, m.keyKeyIndex(kb, level))
}

// clearSlot tombstones slot idx. If the slot holds a nested map, that map's
// own level is advanced first, cascading the invalidation to all of its
// children in O(1).
func (m *IterableMap[K, V]) clearSlot(level, idx uint32) {
	iterableDeleteValue(m.store, m.keyIndexKey(level, idx))

	slot := m.keyIndexValue(level, idx)
	if c, ok := loadValueCell(m.store, slot); ok && c.isMap {
		nestedInfoKey := append(slices.Clone(slot), imTagMapInfo)
		info := loadMapInfo(m.store, nestedInfoKey)
		info.level++
		info.sequence = 0
		info.save(m.store, nestedInfoKey)
	}
	iterableDeleteValue(m.store, slot)
}

func (m *IterableMap[K, V]) cellData() []byte {
	return m.parentKey
}

func (m *IterableMap[K, V]) bindCellData(st host.Store, data []byte) {
	m.store = st
	m.parentKey = slices.Clone(data)
	m.writeSet = nil
}

// mapInfo returns the stored map info, or the zero info for an unattached
// map or one that has never been written.
func (m *IterableMap[K, V]) mapInfo() mapInfoCell {
	if m.store == nil || len(m.parentKey) == 0 {
		return mapInfoCell{}
	}
	return loadMapInfo(m.store, m.keyMapInfo())
}

func (m *IterableMap[K, V]) keyMapInfo() []byte {
	return append(slices.Clone(m.parentKey), imTagMapInfo)
}

func (m *IterableMap[K, V]) keyKeyIndex(kb []byte, level uint32) []byte {
	out := append(slices.Clone(m.parentKey), imTagKeyIndex)
	out = binary.LittleEndian.AppendUint32(out, level)
	return append(out, kb...)
}

func (m *IterableMap[K, V]) keyIndexKey(level, idx uint32) []byte {
	out := append(slices.Clone(m.parentKey), imTagIndexKey)
	out = binary.LittleEndian.AppendUint32(out, level)
	return binary.LittleEndian.AppendUint32(out, idx)
}

func (m *IterableMap[K, V]) keyIndexValue(level, idx uint32) []byte {
	out := append(slices.Clone(m.parentKey), imTagIndexValue)
	out = binary.LittleEndian.AppendUint32(out, level)
	return binary.LittleEndian.AppendUint32(out, idx)
}
