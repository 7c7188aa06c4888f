package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Config  string           `short:"c" default:"blackjackbot.hcl" help:"Path to HCL configuration file"`

	Serve  ServeCmd  `cmd:"" help:"Run the blackjack chat gateway"`
	Client ClientCmd `cmd:"" help:"Chat with a running gateway from the terminal"`
	Ledger LedgerCmd `cmd:"" help:"Inspect the chip ledger"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjackbot"),
		kong.Description("Blackjack rounds for group chats with a persistent chip ledger"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
