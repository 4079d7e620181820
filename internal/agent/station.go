package agent

import (
	"github.com/charmbracelet/log"

	"github.com/agenttable/agenttable/internal/game"
)

// CallingStation checks when it can and calls when it must. It never
// bets, never raises and never folds while it still has chips to call
// with, which makes it a useful baseline opponent.
type CallingStation struct {
	name   string
	logger *log.Logger
}

// NewCallingStation creates a calling station.
func NewCallingStation(name string, logger *log.Logger) *CallingStation {
	return &CallingStation{name: name, logger: logger.WithPrefix(name)}
}

func (c *CallingStation) Name() string { return c.name }

func (c *CallingStation) Act(state *game.HandState, seat int, valid []game.ActionType) game.Intent {
	// Check if free, call if priced in, shove if the call would cover
	// the whole stack, fold only as a last resort.
	action := pick(valid, game.Check, game.Call, game.AllIn)
	c.logger.Debug("acting", "action", action.String(), "stage", state.Stage.String())
	return intent(state, seat, action, 0)
}
