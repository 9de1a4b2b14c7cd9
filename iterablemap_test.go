package worldstate

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt-labs/worldstate/host"
)

func collectKeys[K any, V any](m *IterableMap[K, V]) []K {
	var out []K
	for k := range m.Keys() {
		out = append(out, k)
	}
	return out
}

func collectValues[K any, V any](m *IterableMap[K, V]) []V {
	var out []V
	for v := range m.Values() {
		out = append(out, v)
	}
	return out
}

func TestIterableMap_RoundTrip(t *testing.T) {
	st := host.NewMemoryStore()
	field := NewPath().Add(0)

	var m IterableMap[string, uint64]
	m.LoadStorage(st, field)
	m.Insert("alice", 100)
	m.Insert("bob", 50)
	m.SaveStorage(st, field)

	var reloaded IterableMap[string, uint64]
	reloaded.LoadStorage(st, field)

	v, ok := reloaded.Get("alice")
	require.True(t, ok)
	assert.Equal(t, uint64(100), v)

	_, ok = reloaded.Get("carol")
	assert.False(t, ok)
}

func TestIterableMap_InsertionOrder(t *testing.T) {
	st := host.NewMemoryStore()
	field := NewPath().Add(0)

	var m IterableMap[string, uint64]
	m.LoadStorage(st, field)
	m.Insert("a", 1)
	m.Insert("b", 2)
	m.Insert("c", 3)
	m.SaveStorage(st, field)

	var second IterableMap[string, uint64]
	second.LoadStorage(st, field)
	assert.Equal(t, []string{"a", "b", "c"}, collectKeys(&second))

	second.Remove("b")
	second.SaveStorage(st, field)

	var third IterableMap[string, uint64]
	third.LoadStorage(st, field)
	assert.Equal(t, []string{"a", "c"}, collectKeys(&third))

	// A re-inserted key allocates a fresh slot: it iterates last, never at
	// its old position.
	third.Insert("b", 4)
	third.SaveStorage(st, field)

	var fourth IterableMap[string, uint64]
	fourth.LoadStorage(st, field)
	assert.Equal(t, []string{"a", "c", "b"}, collectKeys(&fourth))
	assert.Equal(t, []uint64{1, 3, 4}, collectValues(&fourth))
}

func TestIterableMap_StagedRemoveHidesKeyFromIteration(t *testing.T) {
	st := host.NewMemoryStore()
	field := NewPath().Add(0)

	var m IterableMap[string, uint64]
	m.LoadStorage(st, field)
	m.Insert("a", 1)
	m.Insert("b", 2)
	m.SaveStorage(st, field)

	var second IterableMap[string, uint64]
	second.LoadStorage(st, field)
	second.Remove("b") // staged only, not flushed
	assert.Equal(t, []string{"a"}, collectKeys(&second))
	_, ok := second.Get("b")
	assert.False(t, ok)
}

func TestIterableMap_StagedRemoveThenReinsert(t *testing.T) {
	st := host.NewMemoryStore()
	field := NewPath().Add(0)

	var m IterableMap[string, uint64]
	m.LoadStorage(st, field)
	m.Insert("a", 1)
	m.Insert("b", 2)
	m.Insert("c", 3)
	m.SaveStorage(st, field)

	// Remove and re-insert within one invocation, no intermediate flush.
	var second IterableMap[string, uint64]
	second.LoadStorage(st, field)
	second.Remove("b")
	second.Insert("b", 9)
	assert.Equal(t, []string{"a", "c", "b"}, collectKeys(&second))
	second.SaveStorage(st, field)

	var third IterableMap[string, uint64]
	third.LoadStorage(st, field)
	assert.Equal(t, []string{"a", "c", "b"}, collectKeys(&third))
	v, _ := third.Get("b")
	assert.Equal(t, uint64(9), v)
}

func TestIterableMap_UnflushedKeysIterateAtTail(t *testing.T) {
	st := host.NewMemoryStore()
	field := NewPath().Add(0)

	var m IterableMap[string, uint64]
	m.LoadStorage(st, field)
	m.Insert("m", 1)
	m.SaveStorage(st, field)

	var second IterableMap[string, uint64]
	second.LoadStorage(st, field)
	// Staged new keys follow every flushed key, in serialized-key byte
	// order rather than staging order.
	second.Insert("z", 2)
	second.Insert("a", 3)
	assert.Equal(t, []string{"m", "a", "z"}, collectKeys(&second))
	assert.Equal(t, []uint64{1, 3, 2}, collectValues(&second))
}

func TestIterableMap_UpdateKeepsPosition(t *testing.T) {
	st := host.NewMemoryStore()
	field := NewPath().Add(0)

	var m IterableMap[string, uint64]
	m.LoadStorage(st, field)
	m.Insert("a", 1)
	m.Insert("b", 2)
	m.SaveStorage(st, field)

	var second IterableMap[string, uint64]
	second.LoadStorage(st, field)
	second.Insert("a", 10) // update of an existing key, not a new record
	assert.Equal(t, []string{"a", "b"}, collectKeys(&second))
	second.SaveStorage(st, field)

	var third IterableMap[string, uint64]
	third.LoadStorage(st, field)
	assert.Equal(t, []uint64{10, 2}, collectValues(&third))
}

func TestIterableMap_Clear(t *testing.T) {
	st := host.NewMemoryStore()
	field := NewPath().Add(0)

	var m IterableMap[string, uint64]
	m.LoadStorage(st, field)
	m.Insert("a", 1)
	m.Insert("b", 2)
	m.SaveStorage(st, field)

	var second IterableMap[string, uint64]
	second.LoadStorage(st, field)
	second.Clear()

	assert.Empty(t, collectKeys(&second))
	_, ok := second.Get("a")
	assert.False(t, ok, "cleared key must never be readable even though its bytes were not erased")

	// The invalidation survives reload.
	var third IterableMap[string, uint64]
	third.LoadStorage(st, field)
	assert.Empty(t, collectKeys(&third))
	_, ok = third.Get("b")
	assert.False(t, ok)

	// The map remains usable at the new level.
	third.Insert("c", 3)
	third.SaveStorage(st, field)

	var fourth IterableMap[string, uint64]
	fourth.LoadStorage(st, field)
	assert.Equal(t, []string{"c"}, collectKeys(&fourth))
}

func TestIterableMap_IsKeyUsed(t *testing.T) {
	st := host.NewMemoryStore()
	field := NewPath().Add(0)

	var m IterableMap[string, uint64]
	m.LoadStorage(st, field)
	assert.False(t, m.IsKeyUsed("a"))

	m.Insert("a", 1)
	assert.False(t, m.IsKeyUsed("a"), "staged inserts are not flushed state")
	m.SaveStorage(st, field)
	assert.True(t, m.IsKeyUsed("a"))

	m.Remove("a")
	m.SaveStorage(st, field)
	assert.False(t, m.IsKeyUsed("a"))
}

func TestIterableMap_GetMutAndValuesMut(t *testing.T) {
	st := host.NewMemoryStore()
	field := NewPath().Add(0)

	var m IterableMap[string, uint64]
	m.LoadStorage(st, field)
	m.Insert("a", 1)
	m.Insert("b", 2)
	m.SaveStorage(st, field)

	var second IterableMap[string, uint64]
	second.LoadStorage(st, field)

	p, ok := second.GetMut("a")
	require.True(t, ok)
	*p = 11

	for v := range second.ValuesMut() {
		*v += 100
	}
	second.SaveStorage(st, field)

	var third IterableMap[string, uint64]
	third.LoadStorage(st, field)
	assert.Equal(t, []uint64{111, 102}, collectValues(&third))
}

func TestIterableMap_NestedLevelCascade(t *testing.T) {
	st := host.NewMemoryStore()
	field := NewPath().Add(0)

	var outer IterableMap[string, IterableMap[string, uint64]]
	outer.LoadStorage(st, field)

	nested := NewIterableMap[string, uint64]()
	nested.Insert("x", 1)
	outer.Insert("slot", nested)
	outer.SaveStorage(st, field)

	var check IterableMap[string, IterableMap[string, uint64]]
	check.LoadStorage(st, field)
	h, ok := check.Get("slot")
	require.True(t, ok)
	v, ok := h.Get("x")
	require.True(t, ok)
	assert.Equal(t, uint64(1), v)

	// Removing the nested map advances the nested map's own level: every one
	// of its children becomes unreachable, even through a handle that is
	// still bound to the old slot.
	check.Remove("slot")
	check.SaveStorage(st, field)

	_, ok = h.Get("x")
	assert.False(t, ok)

	var after IterableMap[string, IterableMap[string, uint64]]
	after.LoadStorage(st, field)
	_, ok = after.Get("slot")
	assert.False(t, ok)
}

func TestIterableMap_IteratorsAreRestartable(t *testing.T) {
	st := host.NewMemoryStore()
	field := NewPath().Add(0)

	var m IterableMap[string, uint64]
	m.LoadStorage(st, field)
	m.Insert("a", 1)
	m.Insert("b", 2)
	m.SaveStorage(st, field)

	var second IterableMap[string, uint64]
	second.LoadStorage(st, field)

	// Early break, then a fresh full pass.
	for range second.Keys() {
		break
	}
	assert.Equal(t, []string{"a", "b"}, collectKeys(&second))
}

func TestIterableMap_UnattachedIteratesStagedOnly(t *testing.T) {
	m := NewIterableMap[string, uint64]()
	m.Insert("b", 2)
	m.Insert("a", 1)
	assert.Equal(t, []string{"a", "b"}, collectKeys(&m))
	assert.True(t, slices.Equal([]uint64{1, 2}, collectValues(&m)))
}
