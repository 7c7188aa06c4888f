package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/saldoran/blackjack-tg-bot/internal/auth"
	"github.com/saldoran/blackjack-tg-bot/internal/config"
	"github.com/saldoran/blackjack-tg-bot/internal/ledger"
	"github.com/saldoran/blackjack-tg-bot/internal/randutil"
	"github.com/saldoran/blackjack-tg-bot/internal/server"
	"github.com/saldoran/blackjack-tg-bot/internal/session"
)

// ServeCmd runs the gateway. Flags override the config file and environment.
type ServeCmd struct {
	Addr        string `help:"Listen address, host:port (overrides config)"`
	Store       string `type:"path" help:"Ledger file (overrides config)"`
	LogLevel    string `help:"Log level: debug, info, warn or error (overrides config)"`
	JoinTimeout *int   `help:"Seconds before an open round is dealt automatically, 0 to disable (overrides config)"`
	Seed        *int64 `help:"Deterministic shuffle seed (overrides config)"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if c.Store != "" {
		cfg.Storage.Path = c.Store
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.JoinTimeout != nil {
		cfg.Game.JoinTimeoutSeconds = *c.JoinTimeout
	}
	if c.Seed != nil {
		cfg.Game.Seed = *c.Seed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := setupLogger(os.Stderr, cfg.Server.LogLevel)
	if err != nil {
		return err
	}

	addr := cfg.Addr()
	if c.Addr != "" {
		addr = c.Addr
	}

	seed := cfg.Game.Seed
	if seed == 0 {
		seed = randutil.TimeSeed()
	}
	logger.Info("Using shuffle seed", "seed", seed)

	store, err := ledger.Open(cfg.Storage.Path, logger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	mgr := session.NewManager(store, session.Config{
		Policy:      cfg.Policy(),
		JoinTimeout: cfg.JoinTimeout(),
		MinPlayers:  cfg.Game.MinPlayers,
		MaxPlayers:  cfg.Game.MaxPlayers,
		Seed:        seed,
	}, logger)
	srv := server.NewServer(mgr, logger,
		server.WithValidator(auth.FromSettings(cfg.Server.AuthTokens, cfg.Server.AuthURL)))

	logger.Info("Starting blackjack gateway",
		"addr", addr,
		"store", cfg.Storage.Path,
		"joinTimeout", cfg.JoinTimeout(),
		"minPlayers", cfg.Game.MinPlayers,
		"maxPlayers", cfg.Game.MaxPlayers)

	ctx, cancel := signalContext(logger)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	mgr.Close()
	if closeErr := store.Close(); closeErr != nil {
		logger.Error("Failed to save ledger", "error", closeErr)
		err = errors.Join(err, closeErr)
	}
	return err
}
