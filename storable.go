package worldstate

import (
	"maps"
	"slices"

	"github.com/veldt-labs/worldstate/codec"
	"github.com/veldt-labs/worldstate/host"
)

// Storable is implemented by values that can occupy a contract-struct field:
// the collections, Lazy cells, and anything user-defined that wants custom
// field persistence. The generated accessor glue calls LoadStorage once
// before a contract method body runs, and SaveStorage once after it returns,
// in field declaration order.
type Storable interface {
	// LoadStorage binds the value to its field path and performs whatever
	// eager reads the type needs (collections read at most their metadata;
	// values are fetched lazily on access).
	LoadStorage(st host.Store, field Path)

	// SaveStorage reconciles the value's staged state into the store.
	SaveStorage(st host.Store, field Path)
}

// LoadField loads a plain serializable field value from its path.
// A missing key yields the zero value. Collection fields implement Storable
// and are loaded through it instead.
func LoadField[T any](st host.Store, field Path) T {
	var v T
	if s, ok := any(&v).(Storable); ok {
		s.LoadStorage(st, field)
		return v
	}
	b, ok := st.Get(field.Bytes())
	if !ok {
		return v
	}
	mustDecode(field.Bytes(), b, &v)
	return v
}

// SaveField persists a plain serializable field value at its path.
func SaveField[T any](st host.Store, field Path, v *T) {
	if s, ok := any(v).(Storable); ok {
		s.SaveStorage(st, field)
		return
	}
	st.Set(field.Bytes(), mustEncode(*v))
}

func mustEncode(v any) []byte {
	return codec.MustMarshal(codec.Default, v)
}

func mustDecode(key, data []byte, v any) {
	if err := codec.Default.Unmarshal(data, v); err != nil {
		panic(&CorruptValueError{Key: slices.Clone(key), cause: err})
	}
}

// updateOp is a staged, not-yet-flushed mutation in a map write-set.
type updateOp[V any] struct {
	value  V
	isNew  bool // the slot is logically a brand-new record, not an update
	delete bool
}

// sortedKeys returns the write-set keys in ascending byte order. Flushes and
// iteration tails must be deterministic, so staged ops are always walked in
// this order.
func sortedKeys[V any](ws map[string]*updateOp[V]) []string {
	return slices.Sorted(maps.Keys(ws))
}

// insertableValue is implemented by collection types that can live inside a
// FastMap slot (currently *FastMap). The default path for every other value
// type wraps the codec bytes in a cell envelope; nested collections instead
// persist only their own parent key and flush their staged state recursively.
type insertableValue interface {
	insertableSave(st host.Store, key []byte, isNew bool)
	cellData() []byte
	bindCellData(st host.Store, data []byte)
}

// iterableValue is the IterableMap counterpart (currently *IterableMap).
type iterableValue interface {
	iterableSave(st host.Store, key []byte)
	cellData() []byte
	bindCellData(st host.Store, data []byte)
}

// insertableSaveValue persists v at key under the FastMap cell model: the
// existing edition is kept for an in-place update and advanced by one when
// the slot is a brand-new record. Advancing the edition is what orphans the
// entire subtree a previous compound occupant may have written under this
// key.
func insertableSaveValue[V any](st host.Store, v *V, key []byte, isNew bool) {
	if nested, ok := any(v).(insertableValue); ok {
		nested.insertableSave(st, key, isNew)
		return
	}
	edition := uint32(0)
	if b, ok := st.Get(key); ok {
		edition = unmarshalCell(key, b).edition
		if isNew {
			edition++
		}
	}
	st.Set(key, cell{edition: edition, data: mustEncode(*v), hasData: true}.marshal())
}

// insertableLoadValue reads the cell at key and decodes its payload.
// Absent slots and tombstones are both reported as a miss.
func insertableLoadValue[V any](st host.Store, key []byte) (V, bool) {
	var v V
	b, ok := st.Get(key)
	if !ok {
		return v, false
	}
	c := unmarshalCell(key, b)
	if !c.hasData {
		return v, false
	}
	if nested, ok := any(&v).(insertableValue); ok {
		nested.bindCellData(st, c.data)
		return v, true
	}
	mustDecode(key, c.data, &v)
	return v, true
}

// insertableDeleteValue tombstones the slot at key, advancing its edition so
// that any children a compound occupant wrote become unreachable.
func insertableDeleteValue(st host.Store, key []byte) {
	edition := uint32(0)
	if b, ok := st.Get(key); ok {
		edition = unmarshalCell(key, b).edition + 1
	}
	st.Set(key, cell{edition: edition}.marshal())
}

// roundTripInsertable returns a copy of v decoupled from the write-set's
// interior lifetime. For plain values this is a serialize/deserialize round
// trip; for a nested map it is a detached handle bound to the same parent
// key, carrying none of the staged state (exactly what a reload would see).
func roundTripInsertable[V any](st host.Store, v *V) V {
	if nested, ok := any(v).(insertableValue); ok {
		var out V
		any(&out).(insertableValue).bindCellData(st, nested.cellData())
		return out
	}
	var out V
	mustDecode(nil, mustEncode(*v), &out)
	return out
}

// iterableSaveValue persists v at key under the IterableMap cell model.
// Plain values carry no generation counter of their own; invalidation is
// keyed off the owning map's level.
func iterableSaveValue[V any](st host.Store, v *V, key []byte) {
	if nested, ok := any(v).(iterableValue); ok {
		nested.iterableSave(st, key)
		return
	}
	st.Set(key, valueCell{data: mustEncode(*v), hasData: true}.marshal())
}

func iterableLoadValue[V any](st host.Store, key []byte) (V, bool) {
	var v V
	c, ok := loadValueCell(st, key)
	if !ok || !c.hasData {
		return v, false
	}
	if nested, ok := any(&v).(iterableValue); ok {
		nested.bindCellData(st, c.data)
		return v, true
	}
	mustDecode(key, c.data, &v)
	return v, true
}

func iterableDeleteValue(st host.Store, key []byte) {
	st.Set(key, valueCell{}.marshal())
}

func roundTripIterable[V any](st host.Store, v *V) V {
	if nested, ok := any(v).(iterableValue); ok {
		var out V
		any(&out).(iterableValue).bindCellData(st, nested.cellData())
		return out
	}
	var out V
	mustDecode(nil, mustEncode(*v), &out)
	return out
}
