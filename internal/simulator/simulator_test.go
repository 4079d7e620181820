package simulator

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenttable/agenttable/internal/agent"
	"github.com/agenttable/agenttable/internal/game"
	"github.com/agenttable/agenttable/internal/session"
	"github.com/agenttable/agenttable/internal/store"
)

// countingSeed hands out a fresh deterministic seed per hand. Tables
// running in parallel share one closure, so the counter is atomic.
func countingSeed() session.SeedFunc {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("hand-%d", n.Add(1))
	}
}

func testSpec(name string, hands int) TableSpec {
	quiet := log.New(io.Discard)
	return TableSpec{
		Name: name,
		Seats: []game.Seat{
			{ID: "rando", Stack: 1000},
			{ID: "station", Stack: 1000},
			{ID: "shark", Stack: 1000},
		},
		SmallBlind: 5,
		BigBlind:   10,
		Hands:      hands,
		Agents: map[string]agent.Agent{
			"rando":   agent.NewRandomAgent("rando", "rando-seed", quiet),
			"station": agent.NewCallingStation("station", quiet),
			"shark":   agent.NewTightAgent("shark", quiet),
		},
	}
}

func runOnce(t *testing.T, name string, hands int) *Result {
	t.Helper()
	coord := session.NewCoordinator(store.NewMemoryStore(),
		session.WithSeedFunc(countingSeed()))
	r := New(coord, zerolog.Nop())
	res, err := r.RunTable(context.Background(), testSpec(name, hands))
	require.NoError(t, err)
	return res
}

func TestRunTableConservesChips(t *testing.T) {
	t.Parallel()
	res := runOnce(t, "conserve", 20)

	assert.LessOrEqual(t, res.HandsPlayed, 20)
	assert.Positive(t, res.HandsPlayed)

	total := 0
	for _, stack := range res.Stacks {
		total += stack
	}
	assert.Equal(t, 3000, total)
}

func TestRunTableIsDeterministicWithSeeds(t *testing.T) {
	t.Parallel()
	a := runOnce(t, "det", 15)
	b := runOnce(t, "det", 15)

	assert.Equal(t, a.HandsPlayed, b.HandsPlayed)
	assert.Equal(t, a.Stacks, b.Stacks)
}

func TestRunTableRequiresAgents(t *testing.T) {
	t.Parallel()
	coord := session.NewCoordinator(store.NewMemoryStore())
	r := New(coord, zerolog.Nop())

	spec := testSpec("missing", 1)
	delete(spec.Agents, "shark")
	_, err := r.RunTable(context.Background(), spec)
	assert.ErrorContains(t, err, "no agent for seat")
}

func TestRunTablesInParallel(t *testing.T) {
	t.Parallel()
	coord := session.NewCoordinator(store.NewMemoryStore(),
		session.WithSeedFunc(countingSeed()))
	r := New(coord, zerolog.Nop())

	specs := []TableSpec{
		testSpec("t1", 5),
		testSpec("t2", 5),
		testSpec("t3", 5),
	}
	results, err := r.RunTables(context.Background(), specs, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, specs[i].Name, res.Name)
		assert.Positive(t, res.HandsPlayed)
	}
}

func TestRunTableStopsWhenOneSeatHasChips(t *testing.T) {
	t.Parallel()
	quiet := log.New(io.Discard)
	coord := session.NewCoordinator(store.NewMemoryStore(),
		session.WithSeedFunc(countingSeed()))
	r := New(coord, zerolog.Nop())

	// A tiny stack busts quickly heads-up; the runner must stop early
	// rather than dealing hands nobody can contest.
	spec := TableSpec{
		Name: "bustout",
		Seats: []game.Seat{
			{ID: "short", Stack: 10},
			{ID: "deep", Stack: 90},
		},
		SmallBlind: 5,
		BigBlind:   10,
		Hands:      1000,
		Agents: map[string]agent.Agent{
			"short": agent.NewCallingStation("short", quiet),
			"deep":  agent.NewCallingStation("deep", quiet),
		},
	}
	res, err := r.RunTable(context.Background(), spec)
	require.NoError(t, err)
	assert.Less(t, res.HandsPlayed, 1000)
	assert.Equal(t, 100, res.Stacks["short"]+res.Stacks["deep"])
}
