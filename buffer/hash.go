package buffer

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/calvinalkan/prismbuffer/catalog"
)

const (
	hashLength   = 32
	hashAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// maxMintAttempts bounds the collision-redraw loop. 32 random
	// alphanumeric characters make a real collision astronomically
	// unlikely; this only guards against a broken RNG spinning forever.
	maxMintAttempts = 8
)

// mintHash returns a fresh 32-character alphanumeric identifier, re-drawing
// against the catalog on collision.
func mintHash(ctx context.Context, cat *catalog.Catalog) (string, error) {
	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		h, err := randomHash()
		if err != nil {
			return "", err
		}

		exists, err := cat.Exists(ctx, h)
		if err != nil {
			return "", err
		}

		if !exists {
			return h, nil
		}
	}

	return "", ErrHashExhausted
}

// alphabetSize is drawn once so each character pick is a uniform draw from
// [0, alphabetSize) via rand.Int, rather than a byte modulo that would
// bias low indices (256 is not a multiple of len(hashAlphabet)).
var alphabetSize = big.NewInt(int64(len(hashAlphabet)))

func randomHash() (string, error) {
	out := make([]byte, hashLength)

	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("buffer: mint hash: %w", err)
		}

		out[i] = hashAlphabet[n.Int64()]
	}

	return string(out), nil
}
