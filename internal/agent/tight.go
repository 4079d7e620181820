package agent

import (
	"github.com/charmbracelet/log"

	"github.com/agenttable/agenttable/internal/deck"
	"github.com/agenttable/agenttable/internal/evaluator"
	"github.com/agenttable/agenttable/internal/game"
)

// TightAgent plays a narrow range: strong holdings bet and raise,
// marginal ones check or call, everything else folds. Preflop strength
// comes from the hole cards alone; postflop from the evaluator on the
// combined holding.
type TightAgent struct {
	name   string
	logger *log.Logger
}

// NewTightAgent creates a tight agent.
func NewTightAgent(name string, logger *log.Logger) *TightAgent {
	return &TightAgent{name: name, logger: logger.WithPrefix(name)}
}

func (t *TightAgent) Name() string { return t.name }

func (t *TightAgent) Act(state *game.HandState, seat int, valid []game.ActionType) game.Intent {
	p := state.Players[seat]

	var strong, playable bool
	if state.Stage == game.Preflop {
		strong, playable = preflopStrength(p.HoleCards)
	} else {
		holding := make([]deck.Card, 0, len(p.HoleCards)+len(state.Community))
		holding = append(holding, p.HoleCards...)
		holding = append(holding, state.Community...)
		rank := evaluator.Evaluate(holding)
		strong = rank.Category >= evaluator.TwoPair
		playable = rank.Category >= evaluator.Pair
	}

	var action game.ActionType
	switch {
	case strong:
		action = pick(valid, game.Raise, game.Bet, game.Call, game.Check, game.AllIn)
	case playable:
		action = pick(valid, game.Check, game.Call)
	default:
		action = pick(valid, game.Check, game.Fold)
	}

	amount := 0
	switch action {
	case game.Bet:
		// Bet two thirds of the pot, clamped to the legal range.
		amount = clamp(state.Pot*2/3, state.BigBlind, p.Stack)
	case game.Raise:
		toCall := state.CurrentBet - p.Bet
		maxRaise := p.Stack - toCall
		if maxRaise < state.BigBlind {
			action = pick(valid, game.Call, game.Check)
		} else {
			amount = clamp(state.CurrentBet, state.BigBlind, maxRaise)
		}
	}

	t.logger.Debug("acting", "action", action.String(), "amount", amount, "stage", state.Stage.String())
	return intent(state, seat, action, amount)
}

// preflopStrength rates hole cards: premium pairs and big broadway
// hands are strong, medium pairs and suited broadways playable.
func preflopStrength(hole []deck.Card) (strong, playable bool) {
	if len(hole) < 2 {
		return false, false
	}
	a, b := hole[0], hole[1]
	hi, lo := a.Rank, b.Rank
	if lo > hi {
		hi, lo = lo, hi
	}

	pair := a.Rank == b.Rank
	suited := a.Suit == b.Suit

	switch {
	case pair && hi >= deck.Ten:
		return true, true
	case hi == deck.Ace && lo >= deck.Queen:
		return true, true
	case pair:
		return false, true
	case hi >= deck.Queen && lo >= deck.Ten:
		return false, true
	case suited && hi == deck.Ace:
		return false, true
	}
	return false, false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
