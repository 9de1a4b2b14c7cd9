package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOR is the deterministic CBOR codec.
//
// It uses the core deterministic encoding profile (RFC 8949 §4.2.1): shortest
// integer forms and bytewise-sorted map keys, so that equal values always
// encode to identical bytes. This matters because serialized user keys are
// embedded in store keys — two invocations that disagree on encoding would
// disagree on layout.
type CBOR struct{}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	if cborEnc, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if cborDec, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(err)
	}
}

// Marshal encodes the value to deterministic CBOR.
func (CBOR) Marshal(v any) ([]byte, error) { return cborEnc.Marshal(v) }

// Unmarshal decodes the CBOR data into v.
func (CBOR) Unmarshal(data []byte, v any) error { return cborDec.Unmarshal(data, v) }

// Name returns the unique name of the codec ("cbor").
func (CBOR) Name() string { return "cbor" }
