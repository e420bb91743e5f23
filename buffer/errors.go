package buffer

import "errors"

// ErrHashExhausted reports that mintHash could not find a hash not already
// present in the catalog within a bounded number of attempts. Only possible
// if the random source is broken or the catalog has been adversarially
// stuffed with near the full 32-char alphanumeric keyspace.
var ErrHashExhausted = errors.New("buffer: hash minting exhausted retries")
