package main

import (
	"context"
	"fmt"

	"github.com/lox/pokerface/cmd/pokerface/shared"
	"github.com/lox/pokerface/internal/lobby"
	"github.com/lox/pokerface/internal/randutil"
	"github.com/lox/pokerface/internal/server"
	"github.com/lox/pokerface/internal/store"
	"github.com/lox/pokerface/internal/table"
)

// ServerCmd runs the HTTP and websocket server
type ServerCmd struct {
	Config   string `kong:"default='server.hcl',help='Path to the HCL server config'"`
	Store    string `kong:"help='Path to the TOML table store, overriding the config'"`
	Addr     string `kong:"help='Listen address, overriding the config'"`
	Debug    bool   `kong:"help='Enable debug logging'"`
	JSONLogs bool   `kong:"name='json-logs',help='Write structured JSON logs'"`
	Seed     *int64 `kong:"help='Deterministic RNG seed for every table (optional)'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Store != "" {
		cfg.Server.Store = c.Store
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", c.Config, err)
	}

	logger, err := shared.SetupLoggerFor(c.Debug, c.JSONLogs, cfg.Server.LogLevel)
	if err != nil {
		return err
	}

	var st store.Store = store.NewMemoryStore()
	if cfg.Server.Store != "" {
		fs, err := store.Open(cfg.Server.Store)
		if err != nil {
			return err
		}
		logger.Info().Str("path", fs.Path()).Msg("Opened table store")
		st = fs
	}
	if err := cfg.SeedTables(context.Background(), st, logger); err != nil {
		return err
	}

	turnTimeout, _ := cfg.TurnTimeout()
	removalDelay, _ := cfg.RemovalDelay()

	writer := store.NewOccupancyWriter(st, logger, store.WriterConfig{})
	defer writer.Shutdown()

	opts := []lobby.Option{
		lobby.WithLogger(logger),
		lobby.WithOccupancy(writer),
		lobby.WithTableOptions(
			table.WithTurnTimeout(turnTimeout),
			table.WithRemovalDelay(removalDelay),
			table.WithStartingChips(cfg.Server.StartingChips),
		),
	}
	if c.Seed != nil {
		seed := randutil.Seed(c.Seed)
		logger.Info().Int64("seed", seed).Msg("Using deterministic seed")
		opts = append(opts, lobby.WithSeed(seed))
	}
	reg := lobby.NewRegistry(st, opts...)
	defer reg.Close()

	addr := cfg.Address()
	if c.Addr != "" {
		addr = c.Addr
	}
	logger.Info().
		Str("address", addr).
		Int("tables", len(cfg.Tables)).
		Dur("turn_timeout", turnTimeout).
		Dur("removal_delay", removalDelay).
		Int("starting_chips", cfg.Server.StartingChips).
		Msg("Starting pokerface server")

	ctx, cancel := shared.SetupSignalHandlerWithLogger(logger)
	defer cancel()
	return server.NewServer(logger, st, reg).Serve(ctx, addr)
}
