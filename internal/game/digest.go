package game

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Digest computes the state fingerprint: a deterministic summary of the
// game id, stage, pot, current bet, nonce, hand number and each seat's
// id/stack/bet/folded flag. Callers compare it against the digest they
// observed to detect staleness before submitting an intent; the engine
// itself never rejects on a mismatch.
func Digest(h *HandState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%d|%d|%d|%d", h.GameID, h.Stage, h.Pot, h.CurrentBet, h.Nonce, h.HandNumber)
	for _, p := range h.Players {
		fmt.Fprintf(&sb, "|%s:%d:%d:%t", p.ID, p.Stack, p.Bet, p.Folded)
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
