// Package gameid generates sortable game identifiers: a UUIDv7 encoded
// as a 26-character Crockford base32 string, so IDs created later sort
// later lexicographically.
package gameid

import (
	"crypto/rand"
	"io"
	"time"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Generator produces game IDs. The zero value uses crypto/rand and the
// wall clock; both can be overridden for deterministic tests.
type Generator struct {
	// Entropy supplies the random tail of each ID. Nil means crypto/rand.
	Entropy io.Reader
	// Now supplies the timestamp prefix. Nil means time.Now.
	Now func() time.Time
}

// New creates a game ID with the default generator.
func New() string {
	return (&Generator{}).New()
}

// New creates a game ID: a 48-bit millisecond timestamp followed by 74
// random bits, with the UUIDv7 version and variant bits set.
func (g *Generator) New() string {
	var id [16]byte

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	ms := now().UnixMilli()
	id[0] = byte(ms >> 40)
	id[1] = byte(ms >> 32)
	id[2] = byte(ms >> 24)
	id[3] = byte(ms >> 16)
	id[4] = byte(ms >> 8)
	id[5] = byte(ms)

	entropy := g.Entropy
	if entropy == nil {
		entropy = rand.Reader
	}
	if _, err := io.ReadFull(entropy, id[6:]); err != nil {
		panic("gameid: entropy source failed: " + err.Error())
	}

	id[6] = (id[6] & 0x0f) | 0x70 // version 7
	id[8] = (id[8] & 0x3f) | 0x80 // variant 10

	return encode(id)
}

// encode packs 128 bits into 26 base32 characters, 5 bits at a time,
// most significant bits first.
func encode(data [16]byte) string {
	out := make([]byte, 26)
	for i := range out {
		offset := i * 5
		byteIdx := offset / 8
		bitIdx := offset % 8

		var v byte
		if bitIdx <= 3 {
			v = (data[byteIdx] >> (3 - bitIdx)) & 0x1f
		} else {
			v = (data[byteIdx] << (bitIdx - 3)) & 0x1f
			if byteIdx+1 < 16 {
				v |= data[byteIdx+1] >> (11 - bitIdx)
			}
		}
		out[i] = alphabet[v]
	}
	return string(out)
}
