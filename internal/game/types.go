package game

import (
	"encoding/json"
	"fmt"

	"github.com/agenttable/agenttable/internal/deck"
)

// Stage represents one phase of a hand's betting structure.
type Stage int

const (
	Waiting Stage = iota
	Preflop
	Flop
	Turn
	River
	Showdown
	Settled
)

func (s Stage) String() string {
	return [...]string{"waiting", "preflop", "flop", "turn", "river", "showdown", "settled"}[s]
}

// IsBetting reports whether seats may act in this stage.
func (s Stage) IsBetting() bool {
	return s >= Preflop && s <= River
}

// ActionType represents a player action.
type ActionType int

const (
	Fold ActionType = iota
	Check
	Call
	Bet
	Raise
	AllIn
)

func (a ActionType) String() string {
	return [...]string{"fold", "check", "call", "bet", "raise", "all_in"}[a]
}

// ParseActionType parses the wire form of an action type.
func ParseActionType(s string) (ActionType, error) {
	switch s {
	case "fold":
		return Fold, nil
	case "check":
		return Check, nil
	case "call":
		return Call, nil
	case "bet":
		return Bet, nil
	case "raise":
		return Raise, nil
	case "all_in":
		return AllIn, nil
	default:
		return 0, fmt.Errorf("unknown action type %q", s)
	}
}

// MarshalJSON encodes the action type as its wire string.
func (a ActionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes the action type from its wire string.
func (a *ActionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseActionType(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Action records an action a seat has taken this round. Amount is the
// number of chips the action moved into the pot (zero for fold/check).
// A non-nil Action on a seat doubles as that seat's acted marker for
// the current betting round.
type Action struct {
	Type   ActionType `json:"type"`
	Amount int        `json:"amount"`
}

// Player is one seat at the table.
type Player struct {
	ID         string      `json:"id"`
	Stack      int         `json:"stack"`
	Bet        int         `json:"bet"`
	HoleCards  []deck.Card `json:"hole_cards,omitempty"`
	Folded     bool        `json:"folded"`
	AllIn      bool        `json:"all_in"`
	IsDealer   bool        `json:"is_dealer"`
	IsTurn     bool        `json:"is_turn"`
	LastAction *Action     `json:"last_action,omitempty"`
}

// CanAct reports whether the seat may still take actions this hand.
func (p *Player) CanAct() bool {
	return !p.Folded && !p.AllIn
}

// Seat describes a participant when a game is registered.
type Seat struct {
	ID    string `json:"id"`
	Stack int    `json:"stack"`
}

// Intent is an already-parsed, already-authenticated action request.
// Fingerprint optionally carries the digest of the state the caller
// observed; staleness checking against it belongs to the calling layer,
// not the engine.
type Intent struct {
	ActorID     string     `json:"actor_id"`
	Action      ActionType `json:"action"`
	Amount      int        `json:"amount"`
	Fingerprint string     `json:"fingerprint,omitempty"`
}
