// Package codec defines the capability set the buffer core requires of
// item types, and ships one reference adapter.
//
// Items are opaque to the buffer core: it never inspects them beyond the
// five operations below. Modeled as a generic capability interface (not
// an inheritance hierarchy) so the compiler enforces the contract at
// instantiation time, rather than a container parameterized over `any`
// that type-asserts at runtime.
package codec

import "io"

// Codec is the contract a type must satisfy to be stored in a buffer.Buffer.
//
// A length-delimited or self-terminating serialization is assumed: the
// blob file's length on disk equals ByteSize(item), and Parse must
// consume exactly the bytes Serialize wrote.
type Codec[T any] interface {
	// Serialize writes item to w. The reverse of Parse.
	Serialize(item T, w io.Writer) error

	// Parse constructs an item by reading from r.
	Parse(r io.Reader) (T, error)

	// ByteSize reports the exact number of bytes Serialize(item, _) writes.
	ByteSize(item T) uint64

	// IsInitialized reports whether item holds a valid payload. Used by
	// callers to distinguish a successful Pop from the "not available"
	// sentinel Zero when the buffer cannot return a valid item.
	IsInitialized(item T) bool

	// Zero returns the uninitialized sentinel value, returned when a blob
	// cannot be read or the hot-set entry backing a record has vanished.
	Zero() T
}
