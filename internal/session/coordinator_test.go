package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenttable/agenttable/internal/game"
	"github.com/agenttable/agenttable/internal/store"
)

func fixedSeed(seed string) SeedFunc {
	return func() string { return seed }
}

func twoSeatConfig(gameID string) GameConfig {
	return GameConfig{
		GameID: gameID,
		Seats: []game.Seat{
			{ID: "alice", Stack: 1000},
			{ID: "bob", Stack: 1000},
		},
		SmallBlind: 5,
		BigBlind:   10,
	}
}

// recorder collects every published event.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

func TestRegisterGameValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewCoordinator(store.NewMemoryStore())

	cases := []struct {
		name string
		cfg  GameConfig
	}{
		{"one seat", GameConfig{Seats: []game.Seat{{ID: "a", Stack: 100}}, SmallBlind: 5, BigBlind: 10}},
		{"too many seats", GameConfig{Seats: make([]game.Seat, 11), SmallBlind: 5, BigBlind: 10}},
		{"zero small blind", GameConfig{Seats: []game.Seat{{ID: "a", Stack: 100}, {ID: "b", Stack: 100}}, SmallBlind: 0, BigBlind: 10}},
		{"big blind not above small", GameConfig{Seats: []game.Seat{{ID: "a", Stack: 100}, {ID: "b", Stack: 100}}, SmallBlind: 10, BigBlind: 10}},
		{"duplicate ids", GameConfig{Seats: []game.Seat{{ID: "a", Stack: 100}, {ID: "a", Stack: 100}}, SmallBlind: 5, BigBlind: 10}},
		{"empty id", GameConfig{Seats: []game.Seat{{ID: "", Stack: 100}, {ID: "b", Stack: 100}}, SmallBlind: 5, BigBlind: 10}},
	}
	for _, tc := range cases {
		_, err := c.RegisterGame(ctx, tc.cfg)
		assert.ErrorIs(t, err, ErrBadConfig, tc.name)
	}
}

func TestRegisterGameAssignsID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewCoordinator(store.NewMemoryStore())

	cfg := twoSeatConfig("")
	state, err := c.RegisterGame(ctx, cfg)
	require.NoError(t, err)
	assert.Len(t, state.GameID, 26)
	assert.Equal(t, game.Waiting, state.Stage)

	_, err = c.RegisterGame(ctx, twoSeatConfig(state.GameID))
	assert.ErrorIs(t, err, ErrGameExists)
}

func TestFullHandLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := store.NewMemoryStore()
	clock := quartz.NewMock(t)
	c := NewCoordinator(mem,
		WithClock(clock),
		WithSeedFunc(fixedSeed("lifecycle-seed")),
	)
	rec := &recorder{}
	c.Bus().Subscribe(rec)

	_, err := c.RegisterGame(ctx, twoSeatConfig("g1"))
	require.NoError(t, err)

	state, err := c.StartHand(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, game.Preflop, state.Stage)
	assert.Equal(t, 1, state.HandNumber)

	// Dealer acts first heads-up and folds; the hand settles at once.
	state, err = c.ProcessAction(ctx, "g1", game.Intent{ActorID: "alice", Action: game.Fold})
	require.NoError(t, err)
	assert.Equal(t, game.Settled, state.Stage)
	assert.Equal(t, 1005, state.Players[1].Stack)

	assert.Equal(t, []EventType{
		EventTypeHandStarted,
		EventTypeActionTaken,
		EventTypeWinnerDeclared,
		EventTypeHandEnded,
	}, rec.types())

	histories, err := c.GetHistories("g1")
	require.NoError(t, err)
	require.Len(t, histories, 1)
	h := histories[0]
	assert.Equal(t, 1, h.HandNumber)
	assert.Equal(t, "lifecycle-seed", h.Seed)
	assert.Equal(t, []string{"bob"}, h.Winners)
	require.Len(t, h.Actions, 1)
	assert.Equal(t, game.Fold, h.Actions[0].Action)
	assert.False(t, h.EndedAt.IsZero())

	// EndGame flushes the persist queue; the final state must be durable.
	final, err := c.EndGame(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, game.Settled, final.Stage)

	saved, err := mem.LoadState(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, final.StateDigest, saved.StateDigest)

	_, err = c.GetState("g1")
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestStartHandRotatesAfterSettlement(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewCoordinator(store.NewMemoryStore(), WithSeedFunc(fixedSeed("rotate")))

	_, err := c.RegisterGame(ctx, twoSeatConfig("g1"))
	require.NoError(t, err)

	_, err = c.StartHand(ctx, "g1")
	require.NoError(t, err)
	_, err = c.ProcessAction(ctx, "g1", game.Intent{ActorID: "alice", Action: game.Fold})
	require.NoError(t, err)

	// No explicit PrepareNextHand call: StartHand does the rotation.
	state, err := c.StartHand(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, state.HandNumber)
	assert.Equal(t, 1, state.DealerIndex)
}

func TestProcessActionRejectionsPassThrough(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewCoordinator(store.NewMemoryStore(), WithSeedFunc(fixedSeed("reject")))
	rec := &recorder{}
	c.Bus().Subscribe(rec)

	_, err := c.RegisterGame(ctx, twoSeatConfig("g1"))
	require.NoError(t, err)
	_, err = c.StartHand(ctx, "g1")
	require.NoError(t, err)

	before, err := c.GetState("g1")
	require.NoError(t, err)

	_, err = c.ProcessAction(ctx, "g1", game.Intent{ActorID: "bob", Action: game.Fold})
	assert.ErrorIs(t, err, game.ErrNotYourTurn)
	_, err = c.ProcessAction(ctx, "g1", game.Intent{ActorID: "alice", Action: game.Check})
	assert.ErrorIs(t, err, game.ErrIllegalAction)
	_, err = c.ProcessAction(ctx, "missing", game.Intent{ActorID: "alice", Action: game.Fold})
	assert.ErrorIs(t, err, ErrGameNotFound)

	after, err := c.GetState("g1")
	require.NoError(t, err)
	assert.Equal(t, before.StateDigest, after.StateDigest)

	// Rejections publish nothing beyond the hand start.
	assert.Equal(t, []EventType{EventTypeHandStarted}, rec.types())
}

func TestFingerprintGuardsStaleIntents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewCoordinator(store.NewMemoryStore(), WithSeedFunc(fixedSeed("stale")))

	_, err := c.RegisterGame(ctx, twoSeatConfig("g1"))
	require.NoError(t, err)
	state, err := c.StartHand(ctx, "g1")
	require.NoError(t, err)

	// An intent pinned to the current digest goes through.
	next, err := c.ProcessAction(ctx, "g1", game.Intent{
		ActorID:     "alice",
		Action:      game.Call,
		Fingerprint: state.StateDigest,
	})
	require.NoError(t, err)

	// Replaying against the old digest is refused.
	_, err = c.ProcessAction(ctx, "g1", game.Intent{
		ActorID:     "bob",
		Action:      game.Check,
		Fingerprint: state.StateDigest,
	})
	assert.ErrorIs(t, err, ErrStaleIntent)

	// Pinned to the fresh digest it is accepted.
	_, err = c.ProcessAction(ctx, "g1", game.Intent{
		ActorID:     "bob",
		Action:      game.Check,
		Fingerprint: next.StateDigest,
	})
	require.NoError(t, err)
}

func TestValidActionsQuery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewCoordinator(store.NewMemoryStore(), WithSeedFunc(fixedSeed("valid")))

	_, err := c.RegisterGame(ctx, twoSeatConfig("g1"))
	require.NoError(t, err)
	_, err = c.StartHand(ctx, "g1")
	require.NoError(t, err)

	acts, err := c.ValidActions("g1", "alice")
	require.NoError(t, err)
	assert.Equal(t, []game.ActionType{game.Fold, game.Call, game.Raise, game.AllIn}, acts)

	// Not bob's turn yet.
	acts, err = c.ValidActions("g1", "bob")
	require.NoError(t, err)
	assert.Nil(t, acts)

	_, err = c.ValidActions("g1", "mallory")
	assert.ErrorIs(t, err, game.ErrUnknownPlayer)
}

func TestConcurrentActionsAreSerialized(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewCoordinator(store.NewMemoryStore(), WithSeedFunc(fixedSeed("race")))

	_, err := c.RegisterGame(ctx, twoSeatConfig("g1"))
	require.NoError(t, err)
	_, err = c.StartHand(ctx, "g1")
	require.NoError(t, err)

	// Many goroutines race the same fold; exactly one can win the turn.
	const attempts = 16
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := c.ProcessAction(ctx, "g1", game.Intent{ActorID: "alice", Action: game.Fold})
			results <- err
		}()
	}

	accepted := 0
	for i := 0; i < attempts; i++ {
		err := <-results
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, game.ErrNoActiveHand)
	}
	assert.Equal(t, 1, accepted)

	state, err := c.GetState("g1")
	require.NoError(t, err)
	assert.Equal(t, game.Settled, state.Stage)
	assert.Equal(t, 2000, state.TotalChips())
}

func TestResumeRestoresState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := store.NewMemoryStore()

	first := NewCoordinator(mem, WithSeedFunc(fixedSeed("resume")))
	_, err := first.RegisterGame(ctx, twoSeatConfig("g1"))
	require.NoError(t, err)
	_, err = first.StartHand(ctx, "g1")
	require.NoError(t, err)
	mid, err := first.ProcessAction(ctx, "g1", game.Intent{ActorID: "alice", Action: game.Call})
	require.NoError(t, err)
	_, err = first.EndGame(ctx, "g1")
	require.NoError(t, err)

	second := NewCoordinator(mem)
	restored, err := second.Resume(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, mid.StateDigest, restored.StateDigest)

	// Play continues from the restored snapshot.
	state, err := second.ProcessAction(ctx, "g1", game.Intent{ActorID: "bob", Action: game.Check})
	require.NoError(t, err)
	assert.Equal(t, game.Flop, state.Stage)

	_, err = second.Resume(ctx, "g1")
	assert.ErrorIs(t, err, ErrGameExists)
	_, err = second.Resume(ctx, "never-saved")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// failStore errors on every write but must never fail the game.
type failStore struct{ store.Store }

func (failStore) SaveState(context.Context, *game.HandState) error { return errors.New("db down") }
func (failStore) SaveHistory(context.Context, *game.HandHistory) error {
	return errors.New("db down")
}
func (failStore) AppendAction(context.Context, string, int, game.ActionRecord) error {
	return errors.New("db down")
}
func (failStore) Close(context.Context) error { return nil }

func TestStoreFailuresDoNotBlockPlay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewCoordinator(failStore{}, WithSeedFunc(fixedSeed("faildb")))

	_, err := c.RegisterGame(ctx, twoSeatConfig("g1"))
	require.NoError(t, err)
	_, err = c.StartHand(ctx, "g1")
	require.NoError(t, err)
	state, err := c.ProcessAction(ctx, "g1", game.Intent{ActorID: "alice", Action: game.Fold})
	require.NoError(t, err)
	assert.Equal(t, game.Settled, state.Stage)

	_, err = c.EndGame(ctx, "g1")
	require.NoError(t, err)
}

func TestSubscriberPanicDoesNotStopDelivery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewCoordinator(store.NewMemoryStore(), WithSeedFunc(fixedSeed("panic")))

	c.Bus().Subscribe(SubscriberFunc(func(Event) { panic("bad subscriber") }))
	rec := &recorder{}
	c.Bus().Subscribe(rec)

	_, err := c.RegisterGame(ctx, twoSeatConfig("g1"))
	require.NoError(t, err)
	_, err = c.StartHand(ctx, "g1")
	require.NoError(t, err)

	assert.Equal(t, []EventType{EventTypeHandStarted}, rec.types())
}

func TestEventTimestampsUseInjectedClock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := quartz.NewMock(t)
	c := NewCoordinator(store.NewMemoryStore(),
		WithClock(clock),
		WithSeedFunc(fixedSeed("clock")),
	)
	rec := &recorder{}
	c.Bus().Subscribe(rec)

	_, err := c.RegisterGame(ctx, twoSeatConfig("g1"))
	require.NoError(t, err)
	_, err = c.StartHand(ctx, "g1")
	require.NoError(t, err)

	started := clock.Now()
	clock.Advance(42 * time.Second)

	_, err = c.ProcessAction(ctx, "g1", game.Intent{ActorID: "alice", Action: game.Fold})
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.GreaterOrEqual(t, len(rec.events), 2)
	assert.Equal(t, started, rec.events[0].Timestamp())
	assert.Equal(t, started.Add(42*time.Second), rec.events[1].Timestamp())
}

func TestLateActionAfterEndGameIsRefused(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewCoordinator(store.NewMemoryStore(), WithSeedFunc(fixedSeed("teardown")))

	_, err := c.RegisterGame(ctx, twoSeatConfig("g1"))
	require.NoError(t, err)
	_, err = c.StartHand(ctx, "g1")
	require.NoError(t, err)

	// A concurrent caller can fetch the session just before EndGame
	// removes it from the registry. Once teardown has run, that caller
	// must be turned away instead of writing to the closed persist
	// queue.
	sess, err := c.session("g1")
	require.NoError(t, err)
	_, err = c.EndGame(ctx, "g1")
	require.NoError(t, err)

	_, err = c.processAction(sess, "g1", game.Intent{ActorID: "alice", Action: game.Fold})
	assert.ErrorIs(t, err, ErrGameNotFound)
	_, err = c.startHand(sess, "g1")
	assert.ErrorIs(t, err, ErrGameNotFound)

	// The persister itself drops late writes and tolerates a double
	// close.
	sess.persist.enqueue(persistOp{})
	sess.persist.close()
}

func TestConcurrentStartHandsGetDistinctSeeds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var n atomic.Int64
	c := NewCoordinator(store.NewMemoryStore(), WithSeedFunc(func() string {
		return fmt.Sprintf("shared-%d", n.Add(1))
	}))

	const games = 8
	for i := 0; i < games; i++ {
		_, err := c.RegisterGame(ctx, twoSeatConfig(fmt.Sprintf("g%d", i)))
		require.NoError(t, err)
	}

	seeds := make([]string, games)
	var wg sync.WaitGroup
	for i := 0; i < games; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			state, err := c.StartHand(ctx, fmt.Sprintf("g%d", i))
			if assert.NoError(t, err) {
				seeds[i] = state.Seed
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, games)
	for _, seed := range seeds {
		assert.NotEmpty(t, seed)
		assert.False(t, seen[seed], "seed %s issued twice", seed)
		seen[seed] = true
	}
}

func TestResumeRecordsResumedHandHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := store.NewMemoryStore()

	first := NewCoordinator(mem, WithSeedFunc(fixedSeed("resume-hist")))
	_, err := first.RegisterGame(ctx, twoSeatConfig("g1"))
	require.NoError(t, err)
	_, err = first.StartHand(ctx, "g1")
	require.NoError(t, err)
	_, err = first.EndGame(ctx, "g1")
	require.NoError(t, err)

	second := NewCoordinator(mem)
	rec := &recorder{}
	second.Bus().Subscribe(rec)
	restored, err := second.Resume(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, game.Preflop, restored.Stage)

	// Settling the resumed hand must still produce a history entry,
	// even though the deal happened before the restart.
	_, err = second.ProcessAction(ctx, "g1", game.Intent{ActorID: "alice", Action: game.Fold})
	require.NoError(t, err)

	hists, err := second.GetHistories("g1")
	require.NoError(t, err)
	require.Len(t, hists, 1)
	h := hists[0]
	assert.NotEmpty(t, h.HandID)
	assert.Equal(t, restored.HandNumber, h.HandNumber)
	assert.Equal(t, restored.Seed, h.Seed)
	assert.Equal(t, []string{"bob"}, h.Winners)
	assert.Len(t, h.Actions, 1)
	assert.Equal(t, restored.StateDigest, h.StartState.StateDigest)

	var declared *WinnerDeclaredEvent
	rec.mu.Lock()
	for _, e := range rec.events {
		if w, ok := e.(WinnerDeclaredEvent); ok {
			declared = &w
		}
	}
	rec.mu.Unlock()
	require.NotNil(t, declared)
	assert.Equal(t, h.HandID, declared.HandID)

	// The settlement reaches the store once the writes are flushed.
	_, err = second.EndGame(ctx, "g1")
	require.NoError(t, err)
	saved, err := mem.LoadHistories(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, h.HandID, saved[0].HandID)
}
