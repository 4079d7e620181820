// Package config loads simulation configuration from HCL files.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete simulation configuration.
type Config struct {
	Settings Settings      `hcl:"settings,block"`
	Tables   []TableConfig `hcl:"table,block"`
	Agents   []AgentConfig `hcl:"agent,block"`
}

// Settings contains run-level configuration.
type Settings struct {
	LogLevel    string `hcl:"log_level,optional"`
	DatabaseURL string `hcl:"database_url,optional"`
	Hands       int    `hcl:"hands,optional"`
	Parallel    int    `hcl:"parallel,optional"`
	Seed        string `hcl:"seed,optional"`
}

// TableConfig defines one game to simulate.
type TableConfig struct {
	Name       string   `hcl:"name,label"`
	SmallBlind int      `hcl:"small_blind"`
	BigBlind   int      `hcl:"big_blind"`
	BuyIn      int      `hcl:"buy_in,optional"`
	Agents     []string `hcl:"agents"`
}

// AgentConfig defines a named agent and its strategy.
type AgentConfig struct {
	Name     string `hcl:"name,label"`
	Strategy string `hcl:"strategy"`
	Seed     string `hcl:"seed,optional"`
}

// Default returns the configuration used when no file is given: one
// heads-up table with a random agent against a calling station.
func Default() *Config {
	return &Config{
		Settings: Settings{
			LogLevel: "info",
			Hands:    100,
			Parallel: 1,
		},
		Tables: []TableConfig{
			{
				Name:       "main",
				SmallBlind: 5,
				BigBlind:   10,
				BuyIn:      1000,
				Agents:     []string{"rando", "station"},
			},
		},
		Agents: []AgentConfig{
			{Name: "rando", Strategy: "random"},
			{Name: "station", Strategy: "station"},
		},
	}
}

// Load reads an HCL config file. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", filename, diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %s", filename, diags.Error())
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Settings.LogLevel == "" {
		cfg.Settings.LogLevel = "info"
	}
	if cfg.Settings.Hands <= 0 {
		cfg.Settings.Hands = 100
	}
	if cfg.Settings.Parallel <= 0 {
		cfg.Settings.Parallel = 1
	}
	for i := range cfg.Tables {
		if cfg.Tables[i].BuyIn <= 0 {
			cfg.Tables[i].BuyIn = 100 * cfg.Tables[i].BigBlind
		}
	}
}

func validate(cfg *Config) error {
	agents := make(map[string]bool, len(cfg.Agents))
	for _, a := range cfg.Agents {
		if agents[a.Name] {
			return fmt.Errorf("config: duplicate agent %q", a.Name)
		}
		agents[a.Name] = true
	}
	if len(cfg.Tables) == 0 {
		return fmt.Errorf("config: no tables defined")
	}
	for _, tbl := range cfg.Tables {
		if tbl.SmallBlind <= 0 || tbl.BigBlind <= tbl.SmallBlind {
			return fmt.Errorf("config: table %q has invalid blinds %d/%d", tbl.Name, tbl.SmallBlind, tbl.BigBlind)
		}
		if len(tbl.Agents) < 2 {
			return fmt.Errorf("config: table %q needs at least 2 agents", tbl.Name)
		}
		for _, name := range tbl.Agents {
			if !agents[name] {
				return fmt.Errorf("config: table %q references unknown agent %q", tbl.Name, name)
			}
		}
	}
	return nil
}
