package game

import (
	"github.com/agenttable/agenttable/internal/deck"
	"github.com/agenttable/agenttable/internal/evaluator"
)

// HandState is a snapshot of one game's live hand. The engine never
// mutates a HandState it was given: StartHand and Apply clone the input
// and return a new snapshot, so callers may hold and read old snapshots
// freely while the coordinator swaps in new ones.
type HandState struct {
	GameID       string      `json:"game_id"`
	HandNumber   int         `json:"hand_number"`
	Stage        Stage       `json:"stage"`
	Players      []*Player   `json:"players"`
	Pot          int         `json:"pot"`
	Community    []deck.Card `json:"community_cards,omitempty"`
	CurrentBet   int         `json:"current_bet"`
	DealerIndex  int         `json:"dealer_index"`
	CurrentIndex int         `json:"current_player_index"`
	SmallBlind   int         `json:"small_blind"`
	BigBlind     int         `json:"big_blind"`
	Seed         string      `json:"seed,omitempty"`
	Nonce        uint64      `json:"nonce"`
	StateDigest  string      `json:"state_digest"`
	Result       *HandResult `json:"result,omitempty"`

	// Deck holds the undealt remainder for the duration of the hand, so
	// community cards continue one shuffled deck instead of being
	// re-derived per stage. It round-trips through persistence.
	Deck *deck.Deck `json:"deck,omitempty"`
}

// HandResult records how a settled hand ended.
type HandResult struct {
	Winners  []int                      `json:"winners"`
	Payouts  map[int]int                `json:"payouts"`
	Rankings map[int]evaluator.HandRank `json:"rankings,omitempty"`
	FoldOut  bool                       `json:"fold_out,omitempty"`
}

// NewGame returns the initial waiting state for a freshly registered
// game. The first hand has not started; DealerIndex points at seat 0.
func NewGame(gameID string, seats []Seat, smallBlind, bigBlind int) *HandState {
	players := make([]*Player, len(seats))
	for i, s := range seats {
		players[i] = &Player{ID: s.ID, Stack: s.Stack, IsDealer: i == 0}
	}
	h := &HandState{
		GameID:       gameID,
		Stage:        Waiting,
		Players:      players,
		DealerIndex:  0,
		CurrentIndex: -1,
		SmallBlind:   smallBlind,
		BigBlind:     bigBlind,
	}
	h.StateDigest = Digest(h)
	return h
}

// Clone returns a deep copy of the state.
func (h *HandState) Clone() *HandState {
	n := *h

	n.Players = make([]*Player, len(h.Players))
	for i, p := range h.Players {
		cp := *p
		if p.HoleCards != nil {
			cp.HoleCards = append([]deck.Card(nil), p.HoleCards...)
		}
		if p.LastAction != nil {
			la := *p.LastAction
			cp.LastAction = &la
		}
		n.Players[i] = &cp
	}

	if h.Community != nil {
		n.Community = append([]deck.Card(nil), h.Community...)
	}
	if h.Deck != nil {
		n.Deck = h.Deck.Clone()
	}
	if h.Result != nil {
		r := *h.Result
		r.Winners = append([]int(nil), h.Result.Winners...)
		r.Payouts = make(map[int]int, len(h.Result.Payouts))
		for k, v := range h.Result.Payouts {
			r.Payouts[k] = v
		}
		if h.Result.Rankings != nil {
			r.Rankings = make(map[int]evaluator.HandRank, len(h.Result.Rankings))
			for k, v := range h.Result.Rankings {
				r.Rankings[k] = v
			}
		}
		n.Result = &r
	}
	return &n
}

// TotalChips returns the pot plus every stack. Committed bets move from
// stack to pot the moment an action is accepted, so this sum is the
// chip-conservation invariant: constant from hand start through
// settlement.
func (h *HandState) TotalChips() int {
	total := h.Pot
	for _, p := range h.Players {
		total += p.Stack
	}
	return total
}

// PlayerIndex returns the seat index for a player id, or -1.
func (h *HandState) PlayerIndex(id string) int {
	for i, p := range h.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// remainingCount returns how many seats have not folded.
func (h *HandState) remainingCount() int {
	n := 0
	for _, p := range h.Players {
		if !p.Folded {
			n++
		}
	}
	return n
}

// canActCount returns how many seats can still take actions.
func (h *HandState) canActCount() int {
	n := 0
	for _, p := range h.Players {
		if p.CanAct() {
			n++
		}
	}
	return n
}

// nextSeat scans seat order starting at from (wrapping) for the first
// seat satisfying ok, or -1.
func (h *HandState) nextSeat(from int, ok func(*Player) bool) int {
	n := len(h.Players)
	for i := 0; i < n; i++ {
		pos := ((from+i)%n + n) % n
		if ok(h.Players[pos]) {
			return pos
		}
	}
	return -1
}
