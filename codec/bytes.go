package codec

import (
	"io"
)

// Bytes is a reference [Codec] for raw []byte payloads.
//
// Serialize writes the slice verbatim; Parse reads until EOF. Because a
// blob file's length equals the item's byte size (the codec contract),
// no length prefix is needed: the file boundary is the item boundary.
//
// The zero value is ready to use.
type Bytes struct{}

// Serialize writes item to w verbatim.
func (Bytes) Serialize(item []byte, w io.Writer) error {
	_, err := w.Write(item)

	return err
}

// Parse reads r until EOF and returns the result.
func (Bytes) Parse(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

// ByteSize returns len(item).
func (Bytes) ByteSize(item []byte) uint64 {
	return uint64(len(item))
}

// IsInitialized reports whether item is non-nil. [Bytes.Zero] returns nil,
// so a round-tripped empty-but-non-nil payload is still considered
// initialized.
func (Bytes) IsInitialized(item []byte) bool {
	return item != nil
}

// Zero returns the uninitialized sentinel, nil.
func (Bytes) Zero() []byte {
	return nil
}
