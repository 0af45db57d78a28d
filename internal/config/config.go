// Package config reads command line flags, with TICTACTOE_* environment
// variables supplying the defaults.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jaminalder/tictactoe/internal/domain"
	"github.com/jaminalder/tictactoe/internal/policy"
)

const (
	ModeWeb  = "web"
	ModeTerm = "term"
)

type Config struct {
	Mode       string
	Addr       string
	Difficulty policy.Difficulty
	// DifficultySet is true when Difficulty came from a flag or the
	// environment rather than the default.
	DifficultySet bool
	Automated     domain.Cell
	StateFile     string
	LogLevel      zerolog.Level
	LogFormat     string
	Heartbeat     time.Duration
}

func Default() Config {
	return Config{
		Mode:       ModeWeb,
		Addr:       ":8080",
		Difficulty: policy.TwoPlayers,
		Automated:  domain.O,
		StateFile:  "tictactoe.json",
		LogLevel:   zerolog.InfoLevel,
		LogFormat:  "console",
		Heartbeat:  15 * time.Second,
	}
}

// Load parses args (without the program name). getenv may be nil.
func Load(args []string, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	env := func(key, def string) string {
		if v := getenv("TICTACTOE_" + key); v != "" {
			return v
		}
		return def
	}

	def := Default()
	fs := flag.NewFlagSet("tictactoe", flag.ContinueOnError)
	mode := fs.String("mode", env("MODE", def.Mode), "adapter to run: web or term")
	addr := fs.String("addr", env("ADDR", def.Addr), "listen address in web mode")
	difficulty := fs.String("difficulty", env("DIFFICULTY", ""), "two-players, random or optimal; overrides the saved choice")
	automated := fs.String("computer", env("COMPUTER", def.Automated.String()), "symbol played by the computer: X or O")
	stateFile := fs.String("state-file", env("STATE_FILE", def.StateFile), "file remembering the selected difficulty")
	level := fs.String("log-level", env("LOG_LEVEL", def.LogLevel.String()), "zerolog level")
	format := fs.String("log-format", env("LOG_FORMAT", def.LogFormat), "console or json")
	heartbeat := fs.Duration("heartbeat", def.Heartbeat, "event stream keep-alive interval")
	if v := getenv("TICTACTOE_HEARTBEAT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("TICTACTOE_HEARTBEAT: %w", err)
		}
		*heartbeat = d
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Mode:      strings.ToLower(*mode),
		Addr:      *addr,
		StateFile: *stateFile,
		LogFormat: strings.ToLower(*format),
		Heartbeat: *heartbeat,
	}
	var err error
	if cfg.Automated, err = domain.ParseCell(*automated); err != nil {
		return Config{}, fmt.Errorf("computer: %w", err)
	}
	if cfg.LogLevel, err = zerolog.ParseLevel(*level); err != nil {
		return Config{}, fmt.Errorf("log-level: %w", err)
	}
	cfg.Difficulty = def.Difficulty
	if *difficulty != "" {
		if cfg.Difficulty, err = policy.ParseDifficulty(*difficulty); err != nil {
			return Config{}, err
		}
		cfg.DifficultySet = true
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeWeb, ModeTerm:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.Heartbeat <= 0 {
		return fmt.Errorf("heartbeat must be positive, got %s", c.Heartbeat)
	}
	return nil
}
