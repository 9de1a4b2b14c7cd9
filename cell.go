package worldstate

import (
	"encoding/binary"
	"errors"
	"slices"

	"github.com/veldt-labs/worldstate/host"
)

// Storage envelopes. Every value a map collection persists is wrapped in one
// of these fixed binary layouts so that tombstones and generation counters
// round-trip independently of the value codec. The layouts are part of the
// persistent storage model and must never change.

// cell is the envelope for FastMap slots: a generation counter plus optional
// payload. A nil payload is a tombstone, distinct from "never written".
//
// Layout: edition (u32 LE) | hasData (1 byte) | data.
type cell struct {
	edition uint32
	data    []byte
	hasData bool
}

func (c cell) marshal() []byte {
	buf := make([]byte, 0, 5+len(c.data))
	buf = binary.LittleEndian.AppendUint32(buf, c.edition)
	if !c.hasData {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return append(buf, c.data...)
}

func unmarshalCell(key, b []byte) cell {
	if len(b) < 5 || b[4] > 1 {
		panic(&CorruptValueError{Key: slices.Clone(key), cause: errors.New("malformed cell envelope")})
	}
	c := cell{edition: binary.LittleEndian.Uint32(b)}
	if b[4] == 1 {
		c.hasData = true
		c.data = b[5:]
	}
	return c
}

// valueCell is the envelope for IterableMap slots: a nested-map marker plus
// optional payload. A nil payload is a tombstone.
//
// Layout: isMap (1 byte) | hasData (1 byte) | data.
type valueCell struct {
	isMap   bool
	data    []byte
	hasData bool
}

func (c valueCell) marshal() []byte {
	buf := make([]byte, 2, 2+len(c.data))
	if c.isMap {
		buf[0] = 1
	}
	if !c.hasData {
		return buf
	}
	buf[1] = 1
	return append(buf, c.data...)
}

func unmarshalValueCell(key, b []byte) valueCell {
	if len(b) < 2 || b[0] > 1 || b[1] > 1 {
		panic(&CorruptValueError{Key: slices.Clone(key), cause: errors.New("malformed value cell envelope")})
	}
	c := valueCell{isMap: b[0] == 1}
	if b[1] == 1 {
		c.hasData = true
		c.data = b[2:]
	}
	return c
}

func loadValueCell(st host.Store, key []byte) (valueCell, bool) {
	b, ok := st.Get(key)
	if !ok {
		return valueCell{}, false
	}
	return unmarshalValueCell(key, b), true
}

// mapInfoCell tracks an IterableMap's current nesting level and next free
// insertion index. One per map, stored at parent ++ 0.
//
// Layout: level (u32 LE) | sequence (u32 LE).
type mapInfoCell struct {
	level    uint32
	sequence uint32
}

func (c mapInfoCell) save(st host.Store, key []byte) {
	buf := make([]byte, 0, 8)
	buf = binary.LittleEndian.AppendUint32(buf, c.level)
	buf = binary.LittleEndian.AppendUint32(buf, c.sequence)
	st.Set(key, buf)
}

// loadMapInfo returns the map info at key, or the zero info for a map that
// has never been written.
func loadMapInfo(st host.Store, key []byte) mapInfoCell {
	b, ok := st.Get(key)
	if !ok {
		return mapInfoCell{}
	}
	if len(b) != 8 {
		panic(&CorruptValueError{Key: slices.Clone(key), cause: errors.New("malformed map info cell")})
	}
	return mapInfoCell{
		level:    binary.LittleEndian.Uint32(b),
		sequence: binary.LittleEndian.Uint32(b[4:]),
	}
}

// keyIndexCell maps a user key to its slot index at the current level.
//
// Layout: present (1 byte) | index (u32 LE). A tombstoned key-index cell
// (present=0) reports the key as unused, so a re-inserted key allocates a
// fresh slot instead of resurrecting its old position.
func saveKeyIndex(st host.Store, key []byte, index uint32) {
	buf := make([]byte, 5)
	buf[0] = 1
	binary.LittleEndian.PutUint32(buf[1:], index)
	st.Set(key, buf)
}

func deleteKeyIndex(st host.Store, key []byte) {
	st.Set(key, []byte{0, 0, 0, 0, 0})
}

func loadKeyIndex(st host.Store, key []byte) (uint32, bool) {
	b, ok := st.Get(key)
	if !ok {
		return 0, false
	}
	if len(b) != 5 || b[0] > 1 {
		panic(&CorruptValueError{Key: slices.Clone(key), cause: errors.New("malformed key index cell")})
	}
	if b[0] == 0 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b[1:]), true
}

// childKey namespaces a child slot under parent by generation: the parent's
// current counter is embedded as a key segment, so advancing the counter at
// the parent orphans every existing child in O(1) without walking them. This
// is the one invalidation scheme shared by FastMap (edition) and IterableMap
// (level).
func childKey(parent []byte, generation uint32, child []byte) []byte {
	out := make([]byte, 0, len(parent)+4+len(child))
	out = append(out, parent...)
	out = binary.LittleEndian.AppendUint32(out, generation)
	return append(out, child...)
}

// storedEdition reads the sentinel cell at key and returns its edition, or 0
// for a slot that has never been written.
func storedEdition(st host.Store, key []byte) uint32 {
	b, ok := st.Get(key)
	if !ok {
		return 0
	}
	return unmarshalCell(key, b).edition
}
