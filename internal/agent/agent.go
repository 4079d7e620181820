// Package agent provides the autonomous players that drive games: each
// agent inspects a state snapshot and its legal actions and returns an
// action intent. Agents never mutate state; the engine validates every
// intent they produce.
package agent

import (
	"github.com/agenttable/agenttable/internal/game"
)

// Agent decides an action for one seat given a state snapshot and the
// legal actions for that seat. The valid slice is never empty when Act
// is called.
type Agent interface {
	Name() string
	Act(state *game.HandState, seat int, valid []game.ActionType) game.Intent
}

// has reports whether an action type is among the legal ones.
func has(valid []game.ActionType, action game.ActionType) bool {
	for _, a := range valid {
		if a == action {
			return true
		}
	}
	return false
}

// pick returns the first preferred action that is legal, falling back
// to fold. Fold is always legal for an acting seat.
func pick(valid []game.ActionType, preferred ...game.ActionType) game.ActionType {
	for _, p := range preferred {
		if has(valid, p) {
			return p
		}
	}
	return game.Fold
}

// intent builds an Intent for a seat, attaching the actor's ID.
func intent(state *game.HandState, seat int, action game.ActionType, amount int) game.Intent {
	return game.Intent{
		ActorID: state.Players[seat].ID,
		Action:  action,
		Amount:  amount,
	}
}
