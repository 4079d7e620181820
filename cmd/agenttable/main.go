package main

import (
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Run     RunCmd           `cmd:"" help:"Simulate tables of agents from a config file"`
	Replay  ReplayCmd        `cmd:"" help:"Render stored hand histories for a game"`
	Migrate MigrateCmd       `cmd:"" help:"Apply the database schema"`
}

func main() {
	// Optional .env for DATABASE_URL and friends; absence is fine.
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("agenttable"),
		kong.Description("Autonomous agent-vs-agent poker engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
