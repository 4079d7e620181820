package randutil

import (
	"crypto/sha256"
	"encoding/binary"
	rand "math/rand/v2"
)

// New returns a *rand.Rand seeded deterministically from the provided
// string seed. The seed is hashed with SHA-256 and the first 16 bytes
// feed the two 64-bit PCG seeds, so the same seed always produces the
// same stream regardless of platform or word size. This is what makes
// a hand auditable: replaying with the committed seed reproduces the
// exact card order.
func New(seed string) *rand.Rand {
	sum := sha256.Sum256([]byte(seed))
	hi := binary.BigEndian.Uint64(sum[0:8])
	lo := binary.BigEndian.Uint64(sum[8:16])
	return rand.New(rand.NewPCG(hi, lo))
}

// Derive qualifies a hand seed with a stage label, producing the
// sub-seed used when the undealt portion of a deck is reconstructed
// from a stored commitment rather than a live deck.
func Derive(seed, stage string) string {
	return seed + ":" + stage
}
