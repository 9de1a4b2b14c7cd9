package worldstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt-labs/worldstate/host"
)

func TestCell_RoundTrip(t *testing.T) {
	c := cell{edition: 7, data: []byte("payload"), hasData: true}
	out := unmarshalCell(nil, c.marshal())
	assert.Equal(t, uint32(7), out.edition)
	assert.True(t, out.hasData)
	assert.Equal(t, []byte("payload"), out.data)
}

func TestCell_Tombstone(t *testing.T) {
	c := cell{edition: 3}
	out := unmarshalCell(nil, c.marshal())
	assert.Equal(t, uint32(3), out.edition)
	assert.False(t, out.hasData)
	assert.Nil(t, out.data)
}

func TestCell_EmptyPayloadIsNotATombstone(t *testing.T) {
	c := cell{edition: 1, data: nil, hasData: true}
	out := unmarshalCell(nil, c.marshal())
	assert.True(t, out.hasData)
	assert.Empty(t, out.data)
}

func TestCell_CorruptPanics(t *testing.T) {
	assert.PanicsWithError(t, "corrupt value at key 01", func() {
		unmarshalCell([]byte{1}, []byte{0, 0})
	})
}

func TestValueCell_RoundTrip(t *testing.T) {
	c := valueCell{isMap: true, data: []byte("parent"), hasData: true}
	out := unmarshalValueCell(nil, c.marshal())
	assert.True(t, out.isMap)
	assert.True(t, out.hasData)
	assert.Equal(t, []byte("parent"), out.data)

	tomb := unmarshalValueCell(nil, valueCell{}.marshal())
	assert.False(t, tomb.isMap)
	assert.False(t, tomb.hasData)
}

func TestMapInfoCell_RoundTrip(t *testing.T) {
	st := host.NewMemoryStore()
	key := []byte{9, 0}

	// Never written reads as the zero info.
	assert.Equal(t, mapInfoCell{}, loadMapInfo(st, key))

	mapInfoCell{level: 2, sequence: 40}.save(st, key)
	assert.Equal(t, mapInfoCell{level: 2, sequence: 40}, loadMapInfo(st, key))
}

func TestKeyIndexCell_TombstoneReportsUnused(t *testing.T) {
	st := host.NewMemoryStore()
	key := []byte{9, 1}

	_, ok := loadKeyIndex(st, key)
	assert.False(t, ok)

	saveKeyIndex(st, key, 5)
	idx, ok := loadKeyIndex(st, key)
	require.True(t, ok)
	assert.Equal(t, uint32(5), idx)

	deleteKeyIndex(st, key)
	_, ok = loadKeyIndex(st, key)
	assert.False(t, ok)
}

func TestChildKey_GenerationNamespacing(t *testing.T) {
	parent := []byte{1, 2}
	k0 := childKey(parent, 0, []byte("k"))
	k1 := childKey(parent, 1, []byte("k"))
	assert.NotEqual(t, k0, k1, "bumping the generation must move every child key")
	assert.Equal(t, k0, childKey(parent, 0, []byte("k")), "same generation, same key")
}

func TestStoredEdition(t *testing.T) {
	st := host.NewMemoryStore()
	key := []byte{4}
	assert.Equal(t, uint32(0), storedEdition(st, key))

	st.Set(key, cell{edition: 9, data: key, hasData: true}.marshal())
	assert.Equal(t, uint32(9), storedEdition(st, key))
}
