package worldstate

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrUnattached is raised (via panic) when a collection that was never bound
// to a storage path is asked to read through to the store.
//
// An unattached collection is only legal as a staging area for a value that
// will later be inserted into an attached parent; dereferencing it is a
// programmer error and aborts the invocation.
var ErrUnattached = errors.New("collection is not attached to a storage path")

// IndexOutOfRangeError indicates a vector access at an index >= length.
//
// Raised via panic: an out-of-range index is a programmer error, never a
// recoverable condition, consistent with the all-or-nothing invocation model.
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index out of range: %d with length %d", e.Index, e.Len)
}

// CorruptValueError indicates that bytes read from the store failed to decode.
//
// This means either store corruption or a type mismatch between what was
// written and what is being read. It is never silently recovered from:
// returning a default value for a corrupt read would mask data corruption, so
// the storage layer panics with this error and the host aborts the
// invocation, discarding every set the invocation staged.
//
// The underlying decode error can be accessed via errors.Unwrap.
type CorruptValueError struct {
	Key   []byte
	cause error
}

func (e *CorruptValueError) Error() string {
	return fmt.Sprintf("corrupt value at key %s", hex.EncodeToString(e.Key))
}

func (e *CorruptValueError) Unwrap() error { return e.cause }
