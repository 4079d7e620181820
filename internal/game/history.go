package game

import (
	"fmt"
	"strings"
	"time"
)

// ActionRecord is one entry in a hand's ordered action log.
type ActionRecord struct {
	ActorID   string     `json:"actor_id"`
	Action    ActionType `json:"action"`
	Amount    int        `json:"amount"`
	Timestamp time.Time  `json:"timestamp"`
}

// HandHistory is the append-only record of one hand: a start snapshot,
// the ordered action log, an end snapshot and the winner set. It is
// owned exclusively by the session coordinator; the betting engine
// never touches it.
type HandHistory struct {
	HandID     string         `json:"hand_id"`
	GameID     string         `json:"game_id"`
	HandNumber int            `json:"hand_number"`
	Seed       string         `json:"seed"`
	StartedAt  time.Time      `json:"started_at"`
	EndedAt    time.Time      `json:"ended_at,omitzero"`
	StartState *HandState     `json:"start_state"`
	EndState   *HandState     `json:"end_state,omitempty"`
	Actions    []ActionRecord `json:"actions"`
	Winners    []string       `json:"winners,omitempty"`
}

// Render formats the history as a human-readable transcript for audit
// output.
func (hh *HandHistory) Render() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Hand %s (#%d) game=%s seed=%s\n", hh.HandID, hh.HandNumber, hh.GameID, hh.Seed)
	if hh.StartState != nil {
		fmt.Fprintf(&sb, "Blinds %d/%d, dealer seat %d\n", hh.StartState.SmallBlind, hh.StartState.BigBlind, hh.StartState.DealerIndex)
		for i, p := range hh.StartState.Players {
			fmt.Fprintf(&sb, "  seat %d: %s (%d chips)\n", i, p.ID, p.Stack+p.Bet)
		}
	}

	for _, a := range hh.Actions {
		if a.Amount > 0 {
			fmt.Fprintf(&sb, "%s: %s %d\n", a.ActorID, a.Action, a.Amount)
		} else {
			fmt.Fprintf(&sb, "%s: %s\n", a.ActorID, a.Action)
		}
	}

	if hh.EndState != nil && len(hh.EndState.Community) > 0 {
		board := make([]string, len(hh.EndState.Community))
		for i, c := range hh.EndState.Community {
			board[i] = c.String()
		}
		fmt.Fprintf(&sb, "Board: %s\n", strings.Join(board, " "))
	}

	if len(hh.Winners) > 0 {
		fmt.Fprintf(&sb, "Winners: %s\n", strings.Join(hh.Winners, ", "))
	}
	return sb.String()
}

// Clone returns a deep copy of the history entry so snapshots handed to
// callers cannot alias the coordinator's copy.
func (hh *HandHistory) Clone() *HandHistory {
	n := *hh
	n.Actions = append([]ActionRecord(nil), hh.Actions...)
	n.Winners = append([]string(nil), hh.Winners...)
	if hh.StartState != nil {
		n.StartState = hh.StartState.Clone()
	}
	if hh.EndState != nil {
		n.EndState = hh.EndState.Clone()
	}
	return &n
}
