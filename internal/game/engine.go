package game

import (
	"fmt"

	"github.com/agenttable/agenttable/internal/deck"
	"github.com/agenttable/agenttable/internal/evaluator"
)

// StartHand begins a new hand from a waiting state, returning the new
// snapshot. The input state is never mutated. The seed is committed
// into the snapshot so the hand can be audited or replayed later.
func StartHand(prev *HandState, seed string) (*HandState, error) {
	if prev.Stage != Waiting {
		return nil, ErrHandInProgress
	}

	funded := 0
	for _, p := range prev.Players {
		if p.Stack > 0 {
			funded++
		}
	}
	if funded < 2 {
		return nil, ErrTooFewPlayers
	}

	h := prev.Clone()
	h.HandNumber++
	h.Stage = Preflop
	h.Seed = seed
	h.Deck = deck.Shuffled(seed)
	h.Pot = 0
	h.CurrentBet = 0
	h.Community = nil
	h.Result = nil

	for i, p := range h.Players {
		p.Bet = 0
		p.HoleCards = nil
		p.Folded = p.Stack == 0
		p.AllIn = false
		p.IsTurn = false
		p.LastAction = nil
		p.IsDealer = i == h.DealerIndex
	}

	// Busted seats sit out and never consume cards.
	active := 0
	for _, p := range h.Players {
		if !p.Folded {
			active++
		}
	}
	hole, err := h.Deck.DealHoleCards(active)
	if err != nil {
		return nil, err
	}
	next := 0
	for _, p := range h.Players {
		if p.Folded {
			continue
		}
		p.HoleCards = []deck.Card{hole[next][0], hole[next][1]}
		next++
	}

	sb, bb := h.blindSeats()
	h.postBlind(sb, h.SmallBlind)
	h.postBlind(bb, h.BigBlind)
	h.CurrentBet = h.BigBlind

	h.Nonce++

	first := h.nextSeat(bb+1, func(p *Player) bool { return p.CanAct() })
	h.setTurn(first)
	if first == -1 {
		// Both blinds went all-in posting; nothing left to bet.
		if err := h.advanceStage(); err != nil {
			return nil, err
		}
	}
	h.StateDigest = Digest(h)
	return h, nil
}

// blindSeats picks the small and big blind seats: the two active seats
// following the dealer in wrapping seat order, except heads-up, where
// the dealer posts the small blind and acts first preflop.
func (h *HandState) blindSeats() (int, int) {
	active := func(p *Player) bool { return !p.Folded && p.Stack > 0 }

	var sb int
	if h.remainingCount() == 2 && active(h.Players[h.DealerIndex]) {
		sb = h.DealerIndex
	} else {
		sb = h.nextSeat(h.DealerIndex+1, active)
	}
	bb := h.nextSeat(sb+1, active)
	return sb, bb
}

func (h *HandState) postBlind(seat, amount int) {
	p := h.Players[seat]
	h.commit(p, min(amount, p.Stack))
}

// ValidActions returns the legal action types for a seat given the
// current state. A folded or all-in seat has none.
func ValidActions(h *HandState, seat int) []ActionType {
	if !h.Stage.IsBetting() || seat < 0 || seat >= len(h.Players) {
		return nil
	}
	p := h.Players[seat]
	if !p.CanAct() {
		return nil
	}

	actions := []ActionType{Fold}
	toCall := h.CurrentBet - p.Bet
	if toCall == 0 {
		actions = append(actions, Check)
		if p.Stack > 0 {
			actions = append(actions, Bet)
		}
	} else if p.Stack > toCall {
		actions = append(actions, Call, Raise)
	}
	if p.Stack > 0 {
		actions = append(actions, AllIn)
	}
	return actions
}

// Apply validates an action intent against the current state and, if
// legal, returns the next snapshot. Rejections leave the input state
// untouched: validation is all-or-nothing before any mutation.
func Apply(cur *HandState, intent Intent) (*HandState, error) {
	if !cur.Stage.IsBetting() {
		return nil, fmt.Errorf("%w: stage is %s", ErrNoActiveHand, cur.Stage)
	}

	seat := cur.PlayerIndex(intent.ActorID)
	if seat < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, intent.ActorID)
	}
	if seat != cur.CurrentIndex {
		return nil, fmt.Errorf("%w: %s is not the current actor", ErrNotYourTurn, intent.ActorID)
	}
	if !cur.Players[seat].CanAct() {
		return nil, fmt.Errorf("%w: seat %d is folded or all in", ErrIllegalAction, seat)
	}
	if err := validateAction(cur, seat, intent); err != nil {
		return nil, err
	}

	h := cur.Clone()
	h.applyAction(seat, intent)
	h.Nonce++
	if h.Stage != Settled {
		if err := h.afterAction(seat); err != nil {
			return nil, err
		}
	}
	h.StateDigest = Digest(h)
	return h, nil
}

// validateAction checks legality without mutating anything.
func validateAction(h *HandState, seat int, intent Intent) error {
	p := h.Players[seat]
	toCall := h.CurrentBet - p.Bet

	switch intent.Action {
	case Fold:
		return nil

	case Check:
		if toCall != 0 {
			return fmt.Errorf("%w: cannot check facing a bet of %d", ErrIllegalAction, h.CurrentBet)
		}

	case Bet:
		if toCall != 0 {
			return fmt.Errorf("%w: a bet is outstanding, call or raise instead", ErrIllegalAction)
		}
		if intent.Amount < h.BigBlind {
			return fmt.Errorf("%w: bet must be at least the big blind (%d)", ErrIllegalAction, h.BigBlind)
		}
		if intent.Amount > p.Stack {
			return fmt.Errorf("%w: bet of %d exceeds stack of %d", ErrInsufficientStack, intent.Amount, p.Stack)
		}

	case Call:
		if toCall <= 0 {
			return fmt.Errorf("%w: nothing to call", ErrIllegalAction)
		}
		if p.Stack <= toCall {
			return fmt.Errorf("%w: stack of %d cannot cover call of %d, go all in instead", ErrInsufficientStack, p.Stack, toCall)
		}

	case Raise:
		if toCall <= 0 {
			return fmt.Errorf("%w: no bet to raise, bet instead", ErrIllegalAction)
		}
		if p.Stack <= toCall {
			return fmt.Errorf("%w: stack of %d cannot cover call of %d, go all in instead", ErrInsufficientStack, p.Stack, toCall)
		}
		if intent.Amount < h.BigBlind {
			return fmt.Errorf("%w: raise must be at least the big blind (%d)", ErrIllegalAction, h.BigBlind)
		}
		if pay := h.CurrentBet + intent.Amount - p.Bet; pay > p.Stack {
			return fmt.Errorf("%w: raise to %d requires %d, stack is %d", ErrInsufficientStack, h.CurrentBet+intent.Amount, pay, p.Stack)
		}

	case AllIn:
		if p.Stack == 0 {
			return fmt.Errorf("%w: no chips to move all in", ErrIllegalAction)
		}

	default:
		return fmt.Errorf("%w: unknown action", ErrIllegalAction)
	}
	return nil
}

// applyAction mutates the (cloned) state with a pre-validated action.
func (h *HandState) applyAction(seat int, intent Intent) {
	p := h.Players[seat]

	switch intent.Action {
	case Fold:
		p.Folded = true
		p.LastAction = &Action{Type: Fold}

	case Check:
		p.LastAction = &Action{Type: Check}

	case Call:
		pay := min(h.CurrentBet-p.Bet, p.Stack)
		h.commit(p, pay)
		p.LastAction = &Action{Type: Call, Amount: pay}

	case Bet:
		h.commit(p, intent.Amount)
		h.CurrentBet = p.Bet
		p.LastAction = &Action{Type: Bet, Amount: intent.Amount}
		h.reopenBetting(seat)

	case Raise:
		// The intent amount is the raise increment over the current bet.
		newBet := h.CurrentBet + intent.Amount
		pay := newBet - p.Bet
		h.commit(p, pay)
		h.CurrentBet = newBet
		p.LastAction = &Action{Type: Raise, Amount: pay}
		h.reopenBetting(seat)

	case AllIn:
		pay := p.Stack
		h.commit(p, pay)
		p.LastAction = &Action{Type: AllIn, Amount: pay}
		if p.Bet > h.CurrentBet {
			// An all-in above the current bet is a raise for reopening
			// purposes.
			h.CurrentBet = p.Bet
			h.reopenBetting(seat)
		}
	}
}

// commit moves chips from a stack into the pot, tracking the amount
// committed this round on the seat.
func (h *HandState) commit(p *Player, amount int) {
	p.Stack -= amount
	p.Bet += amount
	h.Pot += amount
	if p.Stack == 0 {
		p.AllIn = true
	}
}

// reopenBetting clears the acted marker of every other seat still able
// to act; they must respond to the new bet.
func (h *HandState) reopenBetting(actor int) {
	for i, p := range h.Players {
		if i != actor && p.CanAct() {
			p.LastAction = nil
		}
	}
}

// afterAction advances the turn, the stage, or the hand itself.
func (h *HandState) afterAction(actor int) error {
	// A single seat left un-folded takes the pot immediately; no
	// evaluation is needed.
	if h.remainingCount() == 1 {
		h.settleFoldOut()
		return nil
	}

	next := h.nextSeat(actor+1, func(p *Player) bool {
		return p.CanAct() && (p.LastAction == nil || p.Bet < h.CurrentBet)
	})
	if next == -1 {
		return h.advanceStage()
	}
	h.setTurn(next)
	return nil
}

// advanceStage closes the current betting round and opens the next one,
// dealing community cards as required. A deal can only fail when the
// table is too crowded for a 52-card deck, and the error surfaces to
// the caller rather than playing on with a short board.
func (h *HandState) advanceStage() error {
	// Committed chips are already in the pot; clear the round markers.
	for _, p := range h.Players {
		p.Bet = 0
		p.LastAction = nil
	}
	h.CurrentBet = 0
	h.setTurn(-1)

	// With at most one seat able to act there is no more betting: deal
	// the rest of the board in one run-out and resolve the hand.
	if h.canActCount() <= 1 {
		if err := h.runOutBoard(); err != nil {
			return err
		}
		h.showdown()
		return nil
	}

	switch h.Stage {
	case Preflop:
		if err := h.dealCommunity(3); err != nil {
			return err
		}
		h.Stage = Flop
	case Flop:
		if err := h.dealCommunity(1); err != nil {
			return err
		}
		h.Stage = Turn
	case Turn:
		if err := h.dealCommunity(1); err != nil {
			return err
		}
		h.Stage = River
	case River:
		h.showdown()
		return nil
	}

	first := h.nextSeat(h.DealerIndex+1, func(p *Player) bool { return p.CanAct() })
	if first == -1 {
		if err := h.runOutBoard(); err != nil {
			return err
		}
		h.showdown()
		return nil
	}
	h.setTurn(first)
	return nil
}

// runOutBoard deals all remaining community cards at once.
func (h *HandState) runOutBoard() error {
	for len(h.Community) < 5 {
		n := 1
		if len(h.Community) == 0 {
			n = 3
		}
		if err := h.dealCommunity(n); err != nil {
			return err
		}
	}
	h.Stage = River
	return nil
}

func (h *HandState) dealCommunity(n int) error {
	cards, err := h.Deck.DealCommunity(n)
	if err != nil {
		return err
	}
	h.Community = append(h.Community, cards...)
	return nil
}

// showdown evaluates every un-folded seat and settles the pot.
func (h *HandState) showdown() {
	h.Stage = Showdown

	contenders := make([]evaluator.Contender, 0, len(h.Players))
	rankings := make(map[int]evaluator.HandRank, len(h.Players))
	for i, p := range h.Players {
		if p.Folded {
			continue
		}
		holding := make([]deck.Card, 0, len(p.HoleCards)+len(h.Community))
		holding = append(holding, p.HoleCards...)
		holding = append(holding, h.Community...)
		rank := evaluator.Evaluate(holding)
		rankings[i] = rank
		contenders = append(contenders, evaluator.Contender{Seat: i, Rank: rank})
	}

	winners := evaluator.DetermineWinners(contenders)
	h.settle(&HandResult{
		Winners:  winners,
		Payouts:  evaluator.DistributePot(winners, h.Pot),
		Rankings: rankings,
	})
}

// settleFoldOut awards the pot to the single remaining seat.
func (h *HandState) settleFoldOut() {
	winner := h.nextSeat(0, func(p *Player) bool { return !p.Folded })
	h.settle(&HandResult{
		Winners: []int{winner},
		Payouts: map[int]int{winner: h.Pot},
		FoldOut: true,
	})
}

// settle moves the pot into the winners' stacks and freezes the hand.
func (h *HandState) settle(result *HandResult) {
	for seat, amount := range result.Payouts {
		h.Players[seat].Stack += amount
	}
	h.Pot = 0
	h.CurrentBet = 0
	for _, p := range h.Players {
		p.Bet = 0
		p.LastAction = nil
	}
	h.setTurn(-1)
	h.Result = result
	h.Stage = Settled
}

// PrepareNextHand derives the next hand's initial state from a settled
// one: the dealer button rotates to the next funded seat and all
// per-hand fields are cleared.
func PrepareNextHand(prev *HandState) (*HandState, error) {
	if prev.Stage != Settled {
		return nil, ErrHandNotSettled
	}

	h := prev.Clone()
	if next := h.nextSeat(h.DealerIndex+1, func(p *Player) bool { return p.Stack > 0 }); next >= 0 {
		h.DealerIndex = next
	}
	for i, p := range h.Players {
		p.Bet = 0
		p.HoleCards = nil
		p.Folded = false
		p.AllIn = false
		p.IsTurn = false
		p.LastAction = nil
		p.IsDealer = i == h.DealerIndex
	}
	h.Stage = Waiting
	h.Pot = 0
	h.CurrentBet = 0
	h.Community = nil
	h.CurrentIndex = -1
	h.Deck = nil
	h.Seed = ""
	h.Result = nil
	h.StateDigest = Digest(h)
	return h, nil
}

func (h *HandState) setTurn(seat int) {
	for i, p := range h.Players {
		p.IsTurn = i == seat
	}
	h.CurrentIndex = seat
}
