package deck

import (
	"fmt"

	"github.com/agenttable/agenttable/internal/randutil"
)

// Stage labels used to derive stage-qualified sub-seeds when a deck is
// reconstructed from its committed seed rather than a live pointer.
const (
	StageFlop  = "flop"
	StageTurn  = "turn"
	StageRiver = "river"
)

// Deck holds the undealt remainder of a shuffled 52-card deck. A deck is
// created once per hand from the hand's committed seed and retained for
// the duration of the hand, so a card can never be issued twice.
type Deck struct {
	cards []Card
	seed  string
}

// Universe returns the 52-card universe in canonical order: suits in
// Spades, Hearts, Diamonds, Clubs order, ranks two through ace within
// each suit.
func Universe() []Card {
	cards := make([]Card, 0, 52)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(rank, suit))
		}
	}
	return cards
}

// Shuffled returns a full deck shuffled deterministically from seed.
// The same seed always yields the same permutation, which is what lets
// a completed hand be audited or replayed from its committed seed.
func Shuffled(seed string) *Deck {
	cards := Universe()
	shuffleInPlace(cards, seed)
	return &Deck{cards: cards, seed: seed}
}

// shuffleInPlace applies a Fisher-Yates permutation driven by the
// seeded stream: scanning from the end, element i swaps with a
// uniformly chosen element in [0, i].
func shuffleInPlace(cards []Card, seed string) {
	rng := randutil.New(seed)
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Seed returns the seed this deck was shuffled with.
func (d *Deck) Seed() string {
	return d.seed
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Deal removes and returns the top n cards.
func (d *Deck) Deal(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, fmt.Errorf("cannot deal %d cards, %d remaining", n, len(d.cards))
	}
	dealt := make([]Card, n)
	copy(dealt, d.cards[:n])
	d.cards = d.cards[n:]
	return dealt, nil
}

// DealHoleCards deals two rounds of one card per seat, round-robin,
// matching live dealing order: every seat receives its first card
// before any seat receives its second.
func (d *Deck) DealHoleCards(seats int) ([][2]Card, error) {
	if seats*2 > len(d.cards) {
		return nil, fmt.Errorf("cannot deal hole cards to %d seats, %d cards remaining", seats, len(d.cards))
	}
	hole := make([][2]Card, seats)
	for round := 0; round < 2; round++ {
		for seat := 0; seat < seats; seat++ {
			cards, err := d.Deal(1)
			if err != nil {
				return nil, err
			}
			hole[seat][round] = cards[0]
		}
	}
	return hole, nil
}

// DealCommunity burns one card, then deals n community cards.
func (d *Deck) DealCommunity(n int) ([]Card, error) {
	if _, err := d.Deal(1); err != nil {
		return nil, err
	}
	return d.Deal(n)
}

// Clone returns an independent copy of the deck so that applying an
// action to a cloned hand state cannot disturb the original.
func (d *Deck) Clone() *Deck {
	cards := make([]Card, len(d.cards))
	copy(cards, d.cards)
	return &Deck{cards: cards, seed: d.seed}
}

// Rederive reconstructs an undealt card sequence from a hand's committed
// seed without a retained deck: it reshuffles the full universe with the
// stage-qualified sub-seed and removes every card already issued this
// hand. The returned sequence can never contain a dealt card.
func Rederive(seed, stage string, issued []Card) []Card {
	used := make(map[Card]bool, len(issued))
	for _, c := range issued {
		used[c] = true
	}

	cards := Universe()
	shuffleInPlace(cards, randutil.Derive(seed, stage))

	remaining := make([]Card, 0, len(cards)-len(issued))
	for _, c := range cards {
		if !used[c] {
			remaining = append(remaining, c)
		}
	}
	return remaining
}
