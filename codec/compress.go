package codec

import (
	"github.com/klauspost/compress/s2"
)

// Compressed wraps another codec and S2-compresses its output.
//
// Useful for contracts that store large opaque values (documents, serialized
// sub-states) where the host charges per stored byte. Compression is applied
// after encoding, so the inner codec's determinism is preserved: S2 encoding
// of identical input is identical.
//
// Not the default: for small values the framing overhead usually exceeds the
// savings.
type Compressed struct {
	Inner Codec
}

// Marshal encodes with the inner codec, then compresses.
func (c Compressed) Marshal(v any) ([]byte, error) {
	inner := c.Inner
	if inner == nil {
		inner = Default
	}
	b, err := inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return s2.Encode(nil, b), nil
}

// Unmarshal decompresses, then decodes with the inner codec.
func (c Compressed) Unmarshal(data []byte, v any) error {
	inner := c.Inner
	if inner == nil {
		inner = Default
	}
	b, err := s2.Decode(nil, data)
	if err != nil {
		return err
	}
	return inner.Unmarshal(b, v)
}

// Name returns the unique name of the codec ("<inner>+s2").
func (c Compressed) Name() string {
	inner := c.Inner
	if inner == nil {
		inner = Default
	}
	return inner.Name() + "+s2"
}
