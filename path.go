package worldstate

import "slices"

// Path is an immutable hierarchical storage key prefix.
//
// Contract-struct fields are assigned Paths by the generated accessor glue
// (typically the field's declaration index), and collections derive all of
// their child keys from the Path they were bound to. Two distinct logical
// fields must never produce the same Path.
//
// Every derivation returns a new value; a Path is never mutated in place.
// This matters because a parent Path is routinely reused to derive many
// sibling child paths.
type Path struct {
	raw []byte
}

// NewPath returns the empty root path.
func NewPath() Path {
	return Path{}
}

// Add returns a new path equal to p with a single byte appended.
func (p Path) Add(child byte) Path {
	raw := make([]byte, 0, len(p.raw)+1)
	raw = append(raw, p.raw...)
	raw = append(raw, child)
	return Path{raw: raw}
}

// Append returns a new path equal to p with segment appended.
func (p Path) Append(segment []byte) Path {
	raw := make([]byte, 0, len(p.raw)+len(segment))
	raw = append(raw, p.raw...)
	raw = append(raw, segment...)
	return Path{raw: raw}
}

// Bytes returns the raw key bytes. The returned slice must not be modified.
func (p Path) Bytes() []byte {
	return p.raw
}

// Clone returns an independent copy of the raw key bytes.
func (p Path) Clone() []byte {
	return slices.Clone(p.raw)
}
