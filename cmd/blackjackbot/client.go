package main

import (
	"os"
	"strings"

	"github.com/saldoran/blackjack-tg-bot/internal/client"
)

// ClientCmd connects a terminal to a running gateway
type ClientCmd struct {
	ClientConfig string `name:"client-config" default:"blackjack-client.hcl" help:"Path to HCL client configuration file"`
	Server       string `help:"Gateway URL (overrides config)"`
	Token        string `env:"BLACKJACK_CLIENT_TOKEN" help:"Gateway auth token (overrides config)"`
	Name         string `help:"Display name (overrides config, defaults to $USER)"`
	User         int64  `help:"User id (overrides config)"`
	Chat         int64  `help:"Chat id (overrides config)"`
	LogLevel     string `help:"Log level (overrides config)"`
}

func (c *ClientCmd) Run() error {
	cfg, err := client.LoadClientConfig(c.ClientConfig)
	if err != nil {
		return err
	}

	if s := strings.TrimSpace(c.Server); s != "" {
		cfg.Server.URL = s
	}
	if c.Token != "" {
		cfg.Server.Token = c.Token
	}
	if n := strings.TrimSpace(c.Name); n != "" {
		cfg.Player.Name = n
	}
	if cfg.Player.Name == "" {
		cfg.Player.Name = os.Getenv("USER")
	}
	if c.User != 0 {
		cfg.Player.UserID = c.User
	}
	if c.Chat != 0 {
		cfg.Player.ChatID = c.Chat
	}
	if c.LogLevel != "" {
		cfg.UI.LogLevel = c.LogLevel
	}

	logger, err := setupLogger(os.Stderr, cfg.UI.LogLevel)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	return client.Run(ctx, cfg, os.Stdin, os.Stdout, logger)
}
