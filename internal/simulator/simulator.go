// Package simulator drives agents through complete games: it registers
// tables with the coordinator, asks each seat's agent for a decision
// when its turn comes and plays hand after hand until the hand budget
// runs out or only one funded seat remains.
package simulator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/agenttable/agenttable/internal/agent"
	"github.com/agenttable/agenttable/internal/game"
	"github.com/agenttable/agenttable/internal/session"
)

// TableSpec describes one table to simulate. Agents are keyed by the
// player IDs in Seats; every seat needs an agent.
type TableSpec struct {
	Name       string
	Seats      []game.Seat
	SmallBlind int
	BigBlind   int
	Hands      int
	Agents     map[string]agent.Agent
}

// Result summarizes a finished table.
type Result struct {
	Name        string
	GameID      string
	HandsPlayed int
	Stacks      map[string]int
}

// Runner plays tables through a coordinator.
type Runner struct {
	logger zerolog.Logger
	coord  *session.Coordinator
}

// New creates a runner on top of an existing coordinator.
func New(coord *session.Coordinator, logger zerolog.Logger) *Runner {
	return &Runner{
		logger: logger.With().Str("component", "simulator").Logger(),
		coord:  coord,
	}
}

// RunTable plays one table to completion and tears the game down.
func (r *Runner) RunTable(ctx context.Context, spec TableSpec) (*Result, error) {
	for _, seat := range spec.Seats {
		if spec.Agents[seat.ID] == nil {
			return nil, fmt.Errorf("simulator: table %s: no agent for seat %s", spec.Name, seat.ID)
		}
	}

	state, err := r.coord.RegisterGame(ctx, session.GameConfig{
		Seats:      spec.Seats,
		SmallBlind: spec.SmallBlind,
		BigBlind:   spec.BigBlind,
	})
	if err != nil {
		return nil, err
	}
	gameID := state.GameID
	logger := r.logger.With().Str("table", spec.Name).Str("game_id", gameID).Logger()

	played := 0
	for played < spec.Hands {
		if err := ctx.Err(); err != nil {
			break
		}
		if fundedSeats(state) < 2 {
			logger.Info().Int("hands", played).Msg("table short of funded seats")
			break
		}

		state, err = r.coord.StartHand(ctx, gameID)
		if err != nil {
			return nil, fmt.Errorf("simulator: start hand: %w", err)
		}
		if state, err = r.playHand(ctx, gameID, spec, state); err != nil {
			return nil, err
		}
		played++
	}

	final, err := r.coord.EndGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Name:        spec.Name,
		GameID:      gameID,
		HandsPlayed: played,
		Stacks:      make(map[string]int, len(final.Players)),
	}
	for _, p := range final.Players {
		result.Stacks[p.ID] = p.Stack
	}
	logger.Info().Int("hands", played).Msg("table finished")
	return result, nil
}

// playHand queries agents until the hand settles. An agent returning
// an illegal intent is folded instead; the engine stays authoritative.
func (r *Runner) playHand(ctx context.Context, gameID string, spec TableSpec, state *game.HandState) (*game.HandState, error) {
	for state.Stage.IsBetting() {
		if err := ctx.Err(); err != nil {
			return state, nil
		}

		seat := state.CurrentIndex
		actor := state.Players[seat]
		valid := game.ValidActions(state, seat)

		intent := spec.Agents[actor.ID].Act(state, seat, valid)
		next, err := r.coord.ProcessAction(ctx, gameID, intent)
		if err != nil {
			r.logger.Warn().
				Str("game_id", gameID).
				Str("actor", actor.ID).
				Str("action", intent.Action.String()).
				Err(err).
				Msg("agent intent rejected, folding")
			next, err = r.coord.ProcessAction(ctx, gameID, game.Intent{ActorID: actor.ID, Action: game.Fold})
			if err != nil {
				return nil, fmt.Errorf("simulator: forced fold rejected: %w", err)
			}
		}
		state = next
	}
	return state, nil
}

// RunTables plays several tables, at most parallel at a time, and
// returns results in spec order.
func (r *Runner) RunTables(ctx context.Context, specs []TableSpec, parallel int) ([]*Result, error) {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]*Result, len(specs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, spec := range specs {
		g.Go(func() error {
			res, err := r.RunTable(ctx, spec)
			if err != nil {
				return fmt.Errorf("table %s: %w", spec.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func fundedSeats(state *game.HandState) int {
	n := 0
	for _, p := range state.Players {
		if p.Stack > 0 {
			n++
		}
	}
	return n
}
