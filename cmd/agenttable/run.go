package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync/atomic"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/rs/zerolog"

	"github.com/agenttable/agenttable/internal/agent"
	"github.com/agenttable/agenttable/internal/config"
	"github.com/agenttable/agenttable/internal/game"
	"github.com/agenttable/agenttable/internal/session"
	"github.com/agenttable/agenttable/internal/simulator"
	"github.com/agenttable/agenttable/internal/store"
)

type RunCmd struct {
	Config  string `short:"c" default:"agenttable.hcl" help:"HCL config file"`
	Hands   int    `help:"Override the number of hands per table"`
	Verbose bool   `help:"Verbose logging"`
}

func (r *RunCmd) Run() error {
	cfg, err := config.Load(r.Config)
	if err != nil {
		return err
	}
	if r.Hands > 0 {
		cfg.Settings.Hands = r.Hands
	}

	logger := log.New(os.Stderr)
	internals := newInternalLogger(cfg.Settings.LogLevel, r.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.Settings.DatabaseURL, internals)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	opts := []session.Option{session.WithLogger(internals)}
	if cfg.Settings.Seed != "" {
		opts = append(opts, session.WithSeedFunc(seededHands(cfg.Settings.Seed)))
	}
	coord := session.NewCoordinator(st, opts...)
	defer coord.Close(context.Background())

	specs, err := buildSpecs(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("starting simulation",
		"tables", len(specs),
		"hands", cfg.Settings.Hands,
		"parallel", cfg.Settings.Parallel)

	runner := simulator.New(coord, internals)
	results, err := runner.RunTables(ctx, specs, cfg.Settings.Parallel)
	if err != nil {
		return err
	}

	for _, res := range results {
		logger.Info("table finished", "table", res.Name, "game", res.GameID, "hands", res.HandsPlayed)
		names := make([]string, 0, len(res.Stacks))
		for name := range res.Stacks {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool { return res.Stacks[names[i]] > res.Stacks[names[j]] })
		for _, name := range names {
			fmt.Printf("%-12s %-12s %6d chips\n", res.Name, name, res.Stacks[name])
		}
	}
	return nil
}

// seededHands derives a distinct deterministic seed per hand from one
// run seed. The closure is shared by every table, so the counter is
// atomic for parallel runs.
func seededHands(seed string) session.SeedFunc {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s:%d", seed, n.Add(1))
	}
}

func buildSpecs(cfg *config.Config, logger *log.Logger) ([]simulator.TableSpec, error) {
	byName := make(map[string]config.AgentConfig, len(cfg.Agents))
	for _, a := range cfg.Agents {
		byName[a.Name] = a
	}

	specs := make([]simulator.TableSpec, 0, len(cfg.Tables))
	for _, tbl := range cfg.Tables {
		spec := simulator.TableSpec{
			Name:       tbl.Name,
			SmallBlind: tbl.SmallBlind,
			BigBlind:   tbl.BigBlind,
			Hands:      cfg.Settings.Hands,
			Agents:     make(map[string]agent.Agent, len(tbl.Agents)),
		}
		for _, name := range tbl.Agents {
			ac := byName[name]
			a, err := buildAgent(ac, logger)
			if err != nil {
				return nil, err
			}
			spec.Seats = append(spec.Seats, game.Seat{ID: name, Stack: tbl.BuyIn})
			spec.Agents[name] = a
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func buildAgent(cfg config.AgentConfig, logger *log.Logger) (agent.Agent, error) {
	switch cfg.Strategy {
	case "random":
		seed := cfg.Seed
		if seed == "" {
			seed = cfg.Name
		}
		return agent.NewRandomAgent(cfg.Name, seed, logger), nil
	case "station":
		return agent.NewCallingStation(cfg.Name, logger), nil
	case "tight":
		return agent.NewTightAgent(cfg.Name, logger), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q for agent %q", cfg.Strategy, cfg.Name)
	}
}

// openStore picks Postgres when a DSN is configured, memory otherwise.
func openStore(ctx context.Context, dsn string, logger zerolog.Logger) (store.Store, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		logger.Debug().Msg("no database configured, using in-memory store")
		return store.NewMemoryStore(), nil
	}
	pg, err := store.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close(ctx)
		return nil, err
	}
	return pg, nil
}

func newInternalLogger(level string, verbose bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}
