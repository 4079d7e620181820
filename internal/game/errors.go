package game

import "errors"

// Input-rejection errors: the action was refused and state is unchanged.
// Callers can distinguish the reason with errors.Is.
var (
	ErrNotYourTurn       = errors.New("not your turn")
	ErrIllegalAction     = errors.New("illegal action for current bet")
	ErrInsufficientStack = errors.New("insufficient stack")
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrNoActiveHand      = errors.New("no hand in progress")
)

// State-integrity errors: the hand could not be started.
var (
	ErrTooFewPlayers  = errors.New("need at least 2 funded seats to start a hand")
	ErrHandInProgress = errors.New("hand already in progress")
	ErrHandNotSettled = errors.New("hand is not settled")
)
