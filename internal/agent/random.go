package agent

import (
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/agenttable/agenttable/internal/game"
	"github.com/agenttable/agenttable/internal/randutil"
)

// RandomAgent picks a uniform random legal action. Bet and raise
// amounts are drawn uniformly from the legal range.
type RandomAgent struct {
	name   string
	rng    *rand.Rand
	logger *log.Logger
}

// NewRandomAgent creates a random agent seeded from the given string,
// so runs with the same seed replay identically.
func NewRandomAgent(name, seed string, logger *log.Logger) *RandomAgent {
	return &RandomAgent{
		name:   name,
		rng:    randutil.New(seed),
		logger: logger.WithPrefix(name),
	}
}

func (r *RandomAgent) Name() string { return r.name }

func (r *RandomAgent) Act(state *game.HandState, seat int, valid []game.ActionType) game.Intent {
	action := valid[r.rng.IntN(len(valid))]
	p := state.Players[seat]

	amount := 0
	switch action {
	case game.Bet:
		amount = r.between(state.BigBlind, p.Stack)
	case game.Raise:
		toCall := state.CurrentBet - p.Bet
		maxRaise := p.Stack - toCall
		if maxRaise < state.BigBlind {
			// Cannot make a legal raise; shove or call instead.
			return intent(state, seat, pick(valid, game.AllIn, game.Call), 0)
		}
		amount = r.between(state.BigBlind, maxRaise)
	}

	r.logger.Debug("acting", "action", action.String(), "amount", amount, "stage", state.Stage.String())
	return intent(state, seat, action, amount)
}

func (r *RandomAgent) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.rng.IntN(hi-lo+1)
}
