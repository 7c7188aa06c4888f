package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/pterm/pterm"

	"github.com/saldoran/blackjack-tg-bot/internal/config"
	"github.com/saldoran/blackjack-tg-bot/internal/ledger"
)

// LedgerCmd reads the ledger file without starting the gateway
type LedgerCmd struct {
	Store string `type:"path" help:"Ledger file (overrides config)"`

	Top   LedgerTopCmd   `cmd:"" help:"Show a chat leaderboard"`
	Stats LedgerStatsCmd `cmd:"" help:"Show per-chat statistics"`
}

func (c *LedgerCmd) open(cli *CLI) (*ledger.Store, error) {
	path := c.Store
	if path == "" {
		cfg, err := config.Load(cli.Config)
		if err != nil {
			return nil, err
		}
		path = cfg.Storage.Path
	}
	return ledger.Open(path, log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel}))
}

// LedgerTopCmd prints a leaderboard
type LedgerTopCmd struct {
	Chat  int64  `arg:"" help:"Chat id"`
	By    string `default:"balance" enum:"balance,money,wins,games" help:"Ranking key"`
	Limit int    `default:"10" help:"Number of rows, 0 for all"`
}

func (c *LedgerTopCmd) Run(cli *CLI) error {
	store, err := cli.Ledger.open(cli)
	if err != nil {
		return err
	}
	key, err := ledger.ParseRankKey(c.By)
	if err != nil {
		return err
	}
	entries, err := store.Leaderboard(c.Chat, key, c.Limit)
	if err != nil {
		return err
	}
	return printLeaderboard(os.Stdout, entries)
}

func printLeaderboard(w io.Writer, entries []ledger.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No players in this chat.")
		return err
	}

	data := pterm.TableData{{"#", "Player", "User ID", "Chips", "Wins", "Games"}}
	for i, e := range entries {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			e.Name,
			strconv.FormatInt(e.UserID, 10),
			strconv.FormatInt(e.Balance, 10),
			strconv.Itoa(e.Wins),
			strconv.Itoa(e.Games),
		})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// LedgerStatsCmd prints rounds and players per chat
type LedgerStatsCmd struct {
	Chat *int64 `help:"Only this chat"`
}

func (c *LedgerStatsCmd) Run(cli *CLI) error {
	store, err := cli.Ledger.open(cli)
	if err != nil {
		return err
	}

	chats := store.ChatIDs()
	if c.Chat != nil {
		chats = []int64{*c.Chat}
	}
	return printStats(os.Stdout, store, chats)
}

func printStats(w io.Writer, store *ledger.Store, chats []int64) error {
	data := pterm.TableData{{"Chat", "Rounds", "Players"}}
	for _, id := range chats {
		st := store.ChatStats(id)
		data = append(data, []string{
			strconv.FormatInt(id, 10),
			strconv.Itoa(st.GamesPlayed),
			strconv.Itoa(st.Players),
		})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
