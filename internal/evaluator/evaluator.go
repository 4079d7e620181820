// Package evaluator ranks poker hands. A holding of five to seven cards
// is scored by enumerating every five-card subset and keeping the best,
// so the same code serves full showdowns and hands that ended early.
package evaluator

import (
	"sort"

	"github.com/agenttable/agenttable/internal/deck"
)

// Category is the hand category, ordered weakest to strongest.
type Category int

const (
	HighCard Category = iota + 1
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns the display name of the category
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// HandRank is the result of evaluating a holding. Tiebreaks holds the
// ordered rank values used for comparison within a category: comparison
// is lexicographic, category first, then tiebreak elements, higher wins.
type HandRank struct {
	Category  Category `json:"category"`
	Tiebreaks []int    `json:"tiebreaks"`
}

// Compare returns >0 if a beats b, <0 if b beats a, 0 on an exact tie.
func Compare(a, b HandRank) int {
	if a.Category != b.Category {
		return int(a.Category) - int(b.Category)
	}
	for i := 0; i < len(a.Tiebreaks) && i < len(b.Tiebreaks); i++ {
		if a.Tiebreaks[i] != b.Tiebreaks[i] {
			return a.Tiebreaks[i] - b.Tiebreaks[i]
		}
	}
	return 0
}

// Evaluate ranks the best five-card hand among the given cards. It
// accepts five to seven cards; with fewer than five (a hand that never
// reached the river), high-card tiebreaks over what was dealt are used.
func Evaluate(cards []deck.Card) HandRank {
	if len(cards) < 5 {
		return rankHighCardOnly(cards)
	}

	best := HandRank{}
	forEachFiveCardSubset(cards, func(five []deck.Card) {
		r := evaluateFive(five)
		if best.Category == 0 || Compare(r, best) > 0 {
			best = r
		}
	})
	return best
}

// forEachFiveCardSubset invokes fn for every 5-card subset of cards.
// With 7 cards that is the 21 subsets; with 5 exactly one.
func forEachFiveCardSubset(cards []deck.Card, fn func([]deck.Card)) {
	n := len(cards)
	subset := make([]deck.Card, 5)
	var recurse func(start, chosen int)
	recurse = func(start, chosen int) {
		if chosen == 5 {
			fn(subset)
			return
		}
		for i := start; i <= n-(5-chosen); i++ {
			subset[chosen] = cards[i]
			recurse(i+1, chosen+1)
		}
	}
	recurse(0, 0)
}

// rankHighCardOnly covers holdings of fewer than five cards.
func rankHighCardOnly(cards []deck.Card) HandRank {
	ranks := make([]int, len(cards))
	for i, c := range cards {
		ranks[i] = int(c.Rank)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))
	return HandRank{Category: HighCard, Tiebreaks: ranks}
}

// evaluateFive ranks exactly five cards.
func evaluateFive(cards []deck.Card) HandRank {
	ranks := make([]int, 5)
	flush := true
	for i, c := range cards {
		ranks[i] = int(c.Rank)
		if c.Suit != cards[0].Suit {
			flush = false
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	straightHigh, straight := straightHighCard(ranks)

	if straight && flush {
		if straightHigh == int(deck.Ace) {
			return HandRank{Category: RoyalFlush, Tiebreaks: []int{straightHigh}}
		}
		return HandRank{Category: StraightFlush, Tiebreaks: []int{straightHigh}}
	}

	counts := make(map[int]int, 5)
	for _, r := range ranks {
		counts[r]++
	}

	// Group ranks by multiplicity, higher count first, then higher rank.
	type group struct{ rank, count int }
	groups := make([]group, 0, len(counts))
	for r, n := range counts {
		groups = append(groups, group{rank: r, count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	tiebreaks := make([]int, 0, 5)
	for _, g := range groups {
		tiebreaks = append(tiebreaks, g.rank)
	}

	switch {
	case groups[0].count == 4:
		return HandRank{Category: FourOfAKind, Tiebreaks: tiebreaks}
	case groups[0].count == 3 && groups[1].count == 2:
		return HandRank{Category: FullHouse, Tiebreaks: tiebreaks}
	case flush:
		return HandRank{Category: Flush, Tiebreaks: ranks}
	case straight:
		return HandRank{Category: Straight, Tiebreaks: []int{straightHigh}}
	case groups[0].count == 3:
		return HandRank{Category: ThreeOfAKind, Tiebreaks: tiebreaks}
	case groups[0].count == 2 && groups[1].count == 2:
		return HandRank{Category: TwoPair, Tiebreaks: tiebreaks}
	case groups[0].count == 2:
		return HandRank{Category: Pair, Tiebreaks: tiebreaks}
	default:
		return HandRank{Category: HighCard, Tiebreaks: ranks}
	}
}

// straightHighCard reports whether the five sorted-descending ranks form
// a straight and, if so, its high card. The wheel (A-2-3-4-5) counts as
// a five-high straight.
func straightHighCard(sorted []int) (int, bool) {
	distinct := true
	for i := 1; i < 5; i++ {
		if sorted[i] == sorted[i-1] {
			distinct = false
			break
		}
	}
	if !distinct {
		return 0, false
	}

	if sorted[0]-sorted[4] == 4 {
		return sorted[0], true
	}

	// Wheel: ace plays low.
	if sorted[0] == int(deck.Ace) && sorted[1] == 5 && sorted[4] == 2 {
		return 5, true
	}
	return 0, false
}
