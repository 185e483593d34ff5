package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"

	"github.com/lox/pokerface/internal/game"
	"github.com/lox/pokerface/internal/store"
	"github.com/lox/pokerface/internal/table"
)

// Config is the server configuration file
type Config struct {
	Server Settings      `hcl:"server,block"`
	Tables []TableConfig `hcl:"table,block"`
}

// Settings contains server-level configuration
type Settings struct {
	Address       string `hcl:"address,optional"`
	Port          int    `hcl:"port,optional"`
	LogLevel      string `hcl:"log_level,optional"`
	Store         string `hcl:"store,optional"`
	TurnTimeout   string `hcl:"turn_timeout,optional"`
	RemovalDelay  string `hcl:"removal_delay,optional"`
	StartingChips int    `hcl:"starting_chips,optional"`
}

// TableConfig seeds a table record when no table of that name exists.
// Ante is a pointer so that an explicit zero disables it.
type TableConfig struct {
	Name       string `hcl:"name,label"`
	Ante       *int   `hcl:"ante,optional"`
	SmallBlind int    `hcl:"small_blind,optional"`
	BigBlind   int    `hcl:"big_blind,optional"`
	MinBet     int    `hcl:"min_bet,optional"`
	MaxBet     int    `hcl:"max_bet,optional"`
	MaxSeats   int    `hcl:"max_seats,optional"`
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	cfg := &Config{Tables: []TableConfig{{Name: "main"}}}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads configuration from an HCL file, falling back to
// defaults when the file does not exist
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.StartingChips == 0 {
		c.Server.StartingChips = table.DefaultStartingChips
	}

	defaults := game.DefaultConfig()
	for i := range c.Tables {
		t := &c.Tables[i]
		if t.Ante == nil {
			ante := defaults.Ante
			t.Ante = &ante
		}
		if t.SmallBlind == 0 {
			t.SmallBlind = defaults.SmallBlind
		}
		if t.BigBlind == 0 {
			t.BigBlind = t.SmallBlind * 2
		}
		if t.MinBet == 0 {
			t.MinBet = t.SmallBlind
		}
		if t.MaxBet == 0 {
			t.MaxBet = defaults.MaxBet
		}
		if t.MaxSeats == 0 {
			t.MaxSeats = defaults.MaxSeats
		}
	}
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := zerolog.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Server.LogLevel, err)
	}
	if _, err := c.TurnTimeout(); err != nil {
		return err
	}
	if _, err := c.RemovalDelay(); err != nil {
		return err
	}
	if c.Server.StartingChips < 0 {
		return fmt.Errorf("starting chips must not be negative")
	}

	seen := make(map[string]bool)
	for _, t := range c.Tables {
		if seen[t.Name] {
			return fmt.Errorf("table %s: declared twice", t.Name)
		}
		seen[t.Name] = true
		if err := t.Config().Validate(); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
	}
	return nil
}

// Address returns the full listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// TurnTimeout returns the parsed turn timeout; zero disables it.
func (c *Config) TurnTimeout() (time.Duration, error) {
	return parseDuration("turn_timeout", c.Server.TurnTimeout, 0)
}

// RemovalDelay returns how long busted players stay seated.
func (c *Config) RemovalDelay() (time.Duration, error) {
	return parseDuration("removal_delay", c.Server.RemovalDelay, table.DefaultRemovalDelay)
}

func parseDuration(name, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", name, value)
	}
	return d, nil
}

// Config returns the game configuration of the table block
func (t TableConfig) Config() game.Config {
	cfg := game.Config{
		SmallBlind: t.SmallBlind,
		BigBlind:   t.BigBlind,
		MinBet:     t.MinBet,
		MaxBet:     t.MaxBet,
		MaxSeats:   t.MaxSeats,
	}
	if t.Ante != nil {
		cfg.Ante = *t.Ante
	}
	return cfg
}

// SeedTables saves a record for every configured table whose name is not
// yet in s. Existing records are left untouched.
func (c *Config) SeedTables(ctx context.Context, s store.Store, logger zerolog.Logger) error {
	records, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, t := range c.Tables {
		if !store.IsNameUnique(records, t.Name, 0) {
			continue
		}
		rec := store.TableRecord{Name: t.Name}
		rec.SetConfig(t.Config())
		saved, err := s.Save(ctx, rec)
		if errors.Is(err, store.ErrDuplicateName) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed table %s: %w", t.Name, err)
		}
		records = append(records, saved)
		logger.Info().Int("table_id", saved.ID).Str("table", saved.Name).Msg("Seeded table")
	}
	return nil
}
