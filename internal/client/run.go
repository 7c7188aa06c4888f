package client

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/saldoran/blackjack-tg-bot/internal/server"
)

// Run connects to the gateway described by cfg and drives a terminal on in
// and out until the user quits or ctx ends.
func Run(ctx context.Context, cfg *ClientConfig, in io.Reader, out io.Writer, logger *log.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	c := NewClient(cfg.Server.URL, logger)
	c.SetToken(cfg.Server.Token)
	dialCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Server.ConnectTimeout)*time.Second)
	defer cancel()
	if err := server.WaitForHealthy(dialCtx, cfg.Server.URL); err != nil {
		return err
	}
	if err := c.Connect(dialCtx); err != nil {
		return err
	}
	defer func() { _ = c.Disconnect() }()

	term := NewTerminal(c, cfg.Player, out, cfg.UI.Theme)
	_, _ = fmt.Fprintf(out, "Connected as %s in chat %d. Type /help for commands, quit to leave.\n", cfg.Player.Name, cfg.Player.ChatID)
	return term.Run(ctx, in)
}
