package gameid

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNewFormat(t *testing.T) {
	t.Parallel()
	id := New()
	if len(id) != 26 {
		t.Fatalf("expected 26 characters, got %d (%q)", len(id), id)
	}
	for _, c := range id {
		if !strings.ContainsRune(alphabet, c) {
			t.Errorf("character %q outside the base32 alphabet", c)
		}
	}
}

func TestNewIsUnique(t *testing.T) {
	t.Parallel()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestDeterministicWithFixedInputs(t *testing.T) {
	t.Parallel()
	at := time.UnixMilli(1700000000000)
	gen := func() *Generator {
		return &Generator{
			Entropy: bytes.NewReader(make([]byte, 16)),
			Now:     func() time.Time { return at },
		}
	}
	a := gen().New()
	b := gen().New()
	if a != b {
		t.Errorf("same clock and entropy should give the same id: %q vs %q", a, b)
	}
}

func TestIDsSortByCreationTime(t *testing.T) {
	t.Parallel()
	entropy := func() *bytes.Reader { return bytes.NewReader(make([]byte, 16)) }
	earlier := (&Generator{Entropy: entropy(), Now: func() time.Time { return time.UnixMilli(1000) }}).New()
	later := (&Generator{Entropy: entropy(), Now: func() time.Time { return time.UnixMilli(2000) }}).New()
	if !(earlier < later) {
		t.Errorf("id from t=1000 should sort before id from t=2000: %q vs %q", earlier, later)
	}
}
