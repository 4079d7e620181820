package main

import (
	"context"
	"fmt"
	"os"

	"github.com/agenttable/agenttable/internal/store"
)

type ReplayCmd struct {
	GameID      string `arg:"" help:"Game to replay"`
	DatabaseURL string `env:"DATABASE_URL" help:"Postgres DSN"`
	Hand        int    `help:"Only the given hand number"`
}

func (r *ReplayCmd) Run() error {
	if r.DatabaseURL == "" {
		return fmt.Errorf("replay needs a database: set DATABASE_URL or --database-url")
	}

	ctx := context.Background()
	pg, err := store.OpenPostgres(ctx, r.DatabaseURL)
	if err != nil {
		return err
	}
	defer pg.Close(ctx)

	histories, err := pg.LoadHistories(ctx, r.GameID)
	if err != nil {
		return err
	}
	if len(histories) == 0 {
		return fmt.Errorf("no hands recorded for game %s", r.GameID)
	}

	for _, h := range histories {
		if r.Hand > 0 && h.HandNumber != r.Hand {
			continue
		}
		fmt.Fprintln(os.Stdout, h.Render())
	}
	return nil
}

type MigrateCmd struct {
	DatabaseURL string `env:"DATABASE_URL" help:"Postgres DSN"`
}

func (m *MigrateCmd) Run() error {
	if m.DatabaseURL == "" {
		return fmt.Errorf("migrate needs a database: set DATABASE_URL or --database-url")
	}

	ctx := context.Background()
	pg, err := store.OpenPostgres(ctx, m.DatabaseURL)
	if err != nil {
		return err
	}
	defer pg.Close(ctx)

	if err := pg.Migrate(ctx); err != nil {
		return err
	}
	fmt.Println("schema applied")
	return nil
}
