// Package session coordinates complete games: it owns the registry of
// live games, serializes actions per game, assigns seeds and hand IDs,
// publishes events and writes state through the store asynchronously.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/agenttable/agenttable/internal/game"
	"github.com/agenttable/agenttable/internal/gameid"
	"github.com/agenttable/agenttable/internal/store"
)

// maxSeats keeps a 52-card deck sufficient for hole cards, burns and a
// full board under any fold pattern.
const maxSeats = 10

var (
	// ErrGameNotFound is returned for operations on unknown game IDs.
	ErrGameNotFound = errors.New("session: game not found")
	// ErrGameExists is returned when registering a duplicate game ID.
	ErrGameExists = errors.New("session: game already exists")
	// ErrBadConfig is returned for invalid registration parameters.
	ErrBadConfig = errors.New("session: invalid game config")
	// ErrStaleIntent is returned when an intent carries a fingerprint of
	// a state that is no longer current.
	ErrStaleIntent = errors.New("session: intent based on stale state")
)

// SeedFunc produces the shuffle seed for each new hand. It is called
// under the per-game lock only, so implementations shared across games
// must be safe for concurrent use.
type SeedFunc func() string

// CryptoSeed is the default SeedFunc: 16 bytes from crypto/rand, hex
// encoded.
func CryptoSeed() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("session: seed entropy failed: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// GameConfig describes a game to register.
type GameConfig struct {
	// GameID is assigned when empty.
	GameID     string
	Seats      []game.Seat
	SmallBlind int
	BigBlind   int
}

// session is one live game. Its mutex serializes every state
// transition, so concurrent callers observe a strict total order of
// actions per game.
type session struct {
	mu        sync.Mutex
	state     *game.HandState
	current   *game.HandHistory
	histories []*game.HandHistory
	persist   *persister

	// closed is set by EndGame under mu. A caller that fetched the
	// session before the registry delete sees it after locking and is
	// turned away instead of writing to a closing persist queue.
	closed bool
}

// Coordinator manages the full lifecycle of games: registration, hand
// progression, action processing, queries and teardown.
type Coordinator struct {
	logger zerolog.Logger
	clock  quartz.Clock
	store  store.Store
	bus    *Bus
	seed   SeedFunc

	mu       sync.RWMutex
	sessions map[string]*session
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithClock injects a clock; tests use quartz mocks.
func WithClock(clock quartz.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithSeedFunc overrides the shuffle seed source for deterministic runs.
func WithSeedFunc(seed SeedFunc) Option {
	return func(c *Coordinator) { c.seed = seed }
}

// NewCoordinator creates a coordinator writing through the given store.
func NewCoordinator(st store.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		logger:   zerolog.Nop(),
		clock:    quartz.NewReal(),
		store:    st,
		seed:     CryptoSeed,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "coordinator").Logger()
	c.bus = NewBus(c.logger)
	return c
}

// Bus exposes the event bus for subscribing to game events.
func (c *Coordinator) Bus() *Bus { return c.bus }

// RegisterGame validates the config, creates the initial waiting state
// and persists it. It returns the registered state snapshot.
func (c *Coordinator) RegisterGame(ctx context.Context, cfg GameConfig) (*game.HandState, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.GameID == "" {
		cfg.GameID = gameid.New()
	}

	state := game.NewGame(cfg.GameID, cfg.Seats, cfg.SmallBlind, cfg.BigBlind)

	c.mu.Lock()
	if _, ok := c.sessions[cfg.GameID]; ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrGameExists, cfg.GameID)
	}
	sess := &session{
		state:   state,
		persist: newPersister(c.logger, c.store, cfg.GameID),
	}
	c.sessions[cfg.GameID] = sess
	c.mu.Unlock()

	sess.persist.enqueue(persistOp{state: state.Clone()})
	c.logger.Info().
		Str("game_id", cfg.GameID).
		Int("seats", len(cfg.Seats)).
		Int("small_blind", cfg.SmallBlind).
		Int("big_blind", cfg.BigBlind).
		Msg("game registered")
	return state.Clone(), nil
}

func validateConfig(cfg GameConfig) error {
	if len(cfg.Seats) < 2 {
		return fmt.Errorf("%w: need at least 2 seats, got %d", ErrBadConfig, len(cfg.Seats))
	}
	if len(cfg.Seats) > maxSeats {
		return fmt.Errorf("%w: at most %d seats, got %d", ErrBadConfig, maxSeats, len(cfg.Seats))
	}
	if cfg.SmallBlind <= 0 || cfg.BigBlind <= cfg.SmallBlind {
		return fmt.Errorf("%w: blinds %d/%d", ErrBadConfig, cfg.SmallBlind, cfg.BigBlind)
	}
	seen := make(map[string]bool, len(cfg.Seats))
	for _, s := range cfg.Seats {
		if s.ID == "" {
			return fmt.Errorf("%w: empty player id", ErrBadConfig)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate player id %s", ErrBadConfig, s.ID)
		}
		seen[s.ID] = true
		if s.Stack < 0 {
			return fmt.Errorf("%w: negative stack for %s", ErrBadConfig, s.ID)
		}
	}
	return nil
}

// Resume restores a game from the store after a restart. The restored
// snapshot picks up exactly where the last accepted action left off.
func (c *Coordinator) Resume(ctx context.Context, gameID string) (*game.HandState, error) {
	state, err := c.store.LoadState(ctx, gameID)
	if err != nil {
		return nil, err
	}

	sess := &session{
		state:   state,
		persist: newPersister(c.logger, c.store, gameID),
	}
	if state.Stage != game.Waiting && state.Stage != game.Settled {
		// The hand was mid-flight when the last process stopped. Its
		// original hand ID and pre-restart actions are gone, so open a
		// fresh record from the restored snapshot; the settlement still
		// gets written out when the hand finishes.
		sess.current = &game.HandHistory{
			HandID:     gameid.New(),
			GameID:     gameID,
			HandNumber: state.HandNumber,
			Seed:       state.Seed,
			StartedAt:  c.clock.Now(),
			StartState: state.Clone(),
		}
	}

	c.mu.Lock()
	if _, ok := c.sessions[gameID]; ok {
		c.mu.Unlock()
		sess.persist.close()
		return nil, fmt.Errorf("%w: %s", ErrGameExists, gameID)
	}
	c.sessions[gameID] = sess
	c.mu.Unlock()

	c.logger.Info().
		Str("game_id", gameID).
		Str("stage", state.Stage.String()).
		Int("hand_number", state.HandNumber).
		Msg("game resumed")
	return state.Clone(), nil
}

// StartHand deals the next hand. A settled previous hand is rotated
// and cleared first, so callers can invoke StartHand repeatedly
// without bookkeeping.
func (c *Coordinator) StartHand(ctx context.Context, gameID string) (*game.HandState, error) {
	sess, err := c.session(gameID)
	if err != nil {
		return nil, err
	}
	return c.startHand(sess, gameID)
}

func (c *Coordinator) startHand(sess *session, gameID string) (*game.HandState, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	prev := sess.state
	if prev.Stage == game.Settled {
		rotated, err := game.PrepareNextHand(prev)
		if err != nil {
			return nil, err
		}
		prev = rotated
	}

	next, err := game.StartHand(prev, c.seed())
	if err != nil {
		return nil, err
	}
	sess.state = next

	sess.current = &game.HandHistory{
		HandID:     gameid.New(),
		GameID:     gameID,
		HandNumber: next.HandNumber,
		Seed:       next.Seed,
		StartedAt:  c.clock.Now(),
		StartState: next.Clone(),
	}

	c.bus.Publish(HandStartedEvent{
		GameID:     gameID,
		HandID:     sess.current.HandID,
		HandNumber: next.HandNumber,
		SmallBlind: next.SmallBlind,
		BigBlind:   next.BigBlind,
		Pot:        next.Pot,
		timestamp:  c.clock.Now(),
	})
	sess.persist.enqueue(persistOp{state: next.Clone()})

	c.logger.Info().
		Str("game_id", gameID).
		Str("hand_id", sess.current.HandID).
		Int("hand_number", next.HandNumber).
		Msg("hand started")
	return next.Clone(), nil
}

// ProcessAction applies one action intent and returns the resulting
// snapshot. Rejected intents return the engine's sentinel errors and
// leave the game untouched.
func (c *Coordinator) ProcessAction(ctx context.Context, gameID string, intent game.Intent) (*game.HandState, error) {
	sess, err := c.session(gameID)
	if err != nil {
		return nil, err
	}
	return c.processAction(sess, gameID, intent)
}

func (c *Coordinator) processAction(sess *session, gameID string, intent game.Intent) (*game.HandState, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	prev := sess.state
	if intent.Fingerprint != "" && intent.Fingerprint != prev.StateDigest {
		return nil, fmt.Errorf("%w: fingerprint %s", ErrStaleIntent, intent.Fingerprint)
	}
	next, err := game.Apply(prev, intent)
	if err != nil {
		c.logger.Debug().
			Str("game_id", gameID).
			Str("actor", intent.ActorID).
			Str("action", intent.Action.String()).
			Err(err).
			Msg("action rejected")
		return nil, err
	}
	sess.state = next

	record := game.ActionRecord{
		ActorID:   intent.ActorID,
		Action:    intent.Action,
		Amount:    intent.Amount,
		Timestamp: c.clock.Now(),
	}
	if sess.current != nil {
		sess.current.Actions = append(sess.current.Actions, record)
	}
	sess.persist.enqueue(persistOp{action: &actionOp{gameID: gameID, handNumber: next.HandNumber, record: record}})

	c.bus.Publish(ActionTakenEvent{
		GameID:     gameID,
		HandNumber: next.HandNumber,
		ActorID:    intent.ActorID,
		Action:     intent.Action,
		Amount:     intent.Amount,
		PotAfter:   next.Pot,
		timestamp:  c.clock.Now(),
	})

	if next.Stage != prev.Stage && next.Stage.IsBetting() {
		c.bus.Publish(StageChangedEvent{
			GameID:    gameID,
			Stage:     next.Stage,
			Community: next.Community,
			timestamp: c.clock.Now(),
		})
	}
	if next.Stage == game.Settled {
		c.finishHand(sess, gameID, next)
	}

	sess.persist.enqueue(persistOp{state: next.Clone()})
	return next.Clone(), nil
}

// finishHand closes out the current history record and publishes the
// settlement events. Called with the session lock held.
func (c *Coordinator) finishHand(sess *session, gameID string, final *game.HandState) {
	result := final.Result
	handID := ""

	winners := make([]string, 0, len(result.Winners))
	payouts := make(map[string]int, len(result.Payouts))
	for _, seat := range result.Winners {
		winners = append(winners, final.Players[seat].ID)
	}
	for seat, amount := range result.Payouts {
		payouts[final.Players[seat].ID] = amount
	}

	if sess.current != nil {
		handID = sess.current.HandID
		sess.current.EndedAt = c.clock.Now()
		sess.current.EndState = final.Clone()
		sess.current.Winners = winners
		sess.histories = append(sess.histories, sess.current)
		sess.persist.enqueue(persistOp{history: sess.current.Clone()})
		sess.current = nil
	}

	for _, seat := range result.Winners {
		desc := ""
		if rank, ok := result.Rankings[seat]; ok {
			desc = rank.Category.String()
		}
		c.bus.Publish(WinnerDeclaredEvent{
			GameID:    gameID,
			HandID:    handID,
			PlayerID:  final.Players[seat].ID,
			Amount:    result.Payouts[seat],
			HandDesc:  desc,
			timestamp: c.clock.Now(),
		})
	}
	c.bus.Publish(HandEndedEvent{
		GameID:    gameID,
		HandID:    handID,
		Winners:   winners,
		Payouts:   payouts,
		FoldOut:   result.FoldOut,
		timestamp: c.clock.Now(),
	})

	c.logger.Info().
		Str("game_id", gameID).
		Str("hand_id", handID).
		Strs("winners", winners).
		Bool("fold_out", result.FoldOut).
		Msg("hand settled")
}

// GetState returns a snapshot of the game's current state.
func (c *Coordinator) GetState(gameID string) (*game.HandState, error) {
	sess, err := c.session(gameID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state.Clone(), nil
}

// ValidActions returns the legal actions for a player in a game. An
// empty slice means the player cannot act right now.
func (c *Coordinator) ValidActions(gameID, playerID string) ([]game.ActionType, error) {
	sess, err := c.session(gameID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	seat := sess.state.PlayerIndex(playerID)
	if seat < 0 {
		return nil, fmt.Errorf("%w: %s", game.ErrUnknownPlayer, playerID)
	}
	if seat != sess.state.CurrentIndex {
		return nil, nil
	}
	return game.ValidActions(sess.state, seat), nil
}

// GetHistories returns the completed hand histories for a game, oldest
// first. The in-progress hand, if any, is not included.
func (c *Coordinator) GetHistories(gameID string) ([]*game.HandHistory, error) {
	sess, err := c.session(gameID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	out := make([]*game.HandHistory, len(sess.histories))
	for i, h := range sess.histories {
		out[i] = h.Clone()
	}
	return out, nil
}

// EndGame tears a game down: pending writes are flushed, the final
// state is reported and the session is removed from the registry.
func (c *Coordinator) EndGame(ctx context.Context, gameID string) (*game.HandState, error) {
	c.mu.Lock()
	sess, ok := c.sessions[gameID]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	delete(c.sessions, gameID)
	c.mu.Unlock()

	sess.mu.Lock()
	sess.closed = true
	final := sess.state.Clone()
	sess.mu.Unlock()
	sess.persist.close()

	stacks := make(map[string]int, len(final.Players))
	for _, p := range final.Players {
		stacks[p.ID] = p.Stack
	}
	c.bus.Publish(GameEndedEvent{
		GameID:    gameID,
		Stacks:    stacks,
		timestamp: c.clock.Now(),
	})
	c.logger.Info().Str("game_id", gameID).Msg("game ended")
	return final, nil
}

// Close ends every remaining game, flushing their pending writes.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	ids := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		if _, err := c.EndGame(ctx, id); err != nil && !errors.Is(err, ErrGameNotFound) {
			return err
		}
	}
	return nil
}

func (c *Coordinator) session(gameID string) (*session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sess, ok := c.sessions[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return sess, nil
}
