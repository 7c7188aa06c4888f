// Package render turns session results into the plain text the chat
// transport sends. It holds no state; every function is safe to call from any
// goroutine.
package render

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/saldoran/blackjack-tg-bot/internal/deck"
	"github.com/saldoran/blackjack-tg-bot/internal/game"
	"github.com/saldoran/blackjack-tg-bot/internal/ledger"
	"github.com/saldoran/blackjack-tg-bot/internal/session"
)

// Button is an inline button attached to a message. Data is sent back to the
// gateway as a callback when the button is pressed.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Callback verbs carried in Button.Data as "<verb>:<chat>".
const (
	CallbackJoin  = "join"
	CallbackHit   = "hit"
	CallbackStand = "stand"
)

// CallbackData builds the payload for a button bound to a chat.
func CallbackData(verb string, chatID int64) string {
	return verb + ":" + strconv.FormatInt(chatID, 10)
}

// ParseCallback splits callback data into its verb and chat.
func ParseCallback(data string) (verb string, chatID int64, err error) {
	verb, chat, ok := strings.Cut(data, ":")
	if !ok || verb == "" {
		return "", 0, fmt.Errorf("render: malformed callback %q", data)
	}
	chatID, err = strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("render: malformed callback %q: %w", data, err)
	}
	return verb, chatID, nil
}

// Hand formats cards with their score, e.g. "K♠ 9♥ (19)".
func Hand(cards []deck.Card) string {
	return fmt.Sprintf("%s (%d)", deck.FormatHand(cards), game.Score(cards))
}

// RoundOpened announces a new round with a join button.
func RoundOpened(info session.RoundInfo) (string, []Button) {
	var b strings.Builder
	b.WriteString("New blackjack round! Press Join to take a seat.")
	if !info.JoinDeadline.IsZero() {
		fmt.Fprintf(&b, "\nCards are dealt automatically at %s.", info.JoinDeadline.Format(time.TimeOnly))
	} else {
		b.WriteString("\nSend /deal when everyone is in.")
	}
	if info.MinPlayers > 1 {
		fmt.Fprintf(&b, "\nAt least %d players are needed.", info.MinPlayers)
	}
	return b.String(), []Button{{Text: "Join", Data: CallbackData(CallbackJoin, info.ChatID)}}
}

// Joined confirms a seat and lists who is in.
func Joined(st session.RoundState, name string) string {
	return fmt.Sprintf("%s joined. Players: %s", name, playerNames(st.Players))
}

// Left confirms a withdrawal.
func Left(st session.RoundState, name string) string {
	if len(st.Players) == 0 {
		return name + " left. Nobody is seated."
	}
	return fmt.Sprintf("%s left. Players: %s", name, playerNames(st.Players))
}

func playerNames(players []session.PlayerHand) string {
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

// DealChat is the group message after the deal. Player hands stay private.
func DealChat(view session.DealView) string {
	return fmt.Sprintf("Cards are dealt to %s. Dealer shows %s.\nCheck your private messages, then /hit or /stand.",
		playerNames(view.Players), view.DealerUpCard)
}

// DealPrivate is one player's opening hand with action buttons.
func DealPrivate(chatID int64, p session.PlayerHand) (string, []Button) {
	return "Your cards: " + Hand(p.Hand), actionButtons(chatID)
}

func actionButtons(chatID int64) []Button {
	return []Button{
		{Text: "Hit", Data: CallbackData(CallbackHit, chatID)},
		{Text: "Stand", Data: CallbackData(CallbackStand, chatID)},
	}
}

// ActionPrivate is the acting player's view after a hit or stand. Buttons
// are offered while the player can still act.
func ActionPrivate(view session.ActionView) (string, []Button) {
	p := view.Player
	switch {
	case p.Busted:
		return fmt.Sprintf("Your cards: %s. Bust! You are out of this round.", Hand(p.Hand)), nil
	case p.Stood:
		return fmt.Sprintf("You stand on %d.", p.Score), nil
	default:
		return "Your cards: " + Hand(p.Hand), actionButtons(view.ChatID)
	}
}

// ActionChat is the group notice for a hit or stand. The card itself is not
// revealed.
func ActionChat(view session.ActionView) string {
	p := view.Player
	var line string
	switch {
	case p.Busted:
		line = fmt.Sprintf("%s takes a card and busts.", p.Name)
	case view.Action == game.Hit:
		line = fmt.Sprintf("%s takes a card.", p.Name)
	default:
		line = fmt.Sprintf("%s stands.", p.Name)
	}
	if len(view.Pending) > 0 {
		line += " Waiting for " + strings.Join(view.Pending, ", ") + "."
	}
	return line
}

// Summary renders a settled round, one line per player.
func Summary(s session.Summary) string {
	var b strings.Builder
	b.WriteString("Round over!\n")
	fmt.Fprintf(&b, "Dealer: %s (%d", deck.FormatHand(s.Dealer), s.DealerScore)
	if s.DealerBust {
		b.WriteString(" bust")
	}
	b.WriteString(")")

	for _, r := range s.Results {
		fmt.Fprintf(&b, "\n%s: %s (%d", r.Name, deck.FormatHand(r.Hand), r.Score)
		if r.Busted {
			b.WriteString(" bust")
		}
		fmt.Fprintf(&b, ") → %s (%+d chips, balance %d)", strings.ToUpper(r.Outcome.String()), r.Delta, r.Balance)
	}

	if !s.Committed {
		b.WriteString("\nResults are not yet saved.")
	}
	return b.String()
}

// Cancelled reports a round that ended without settlement.
func Cancelled(reason string) string {
	if reason == "" {
		return "The round was cancelled."
	}
	return "The round was cancelled: " + reason + "."
}

// Leaderboard renders the top balances.
func Leaderboard(entries []ledger.Entry) string {
	if len(entries) == 0 {
		return "Nobody has played in this chat yet."
	}
	var b strings.Builder
	b.WriteString("Top players:")
	for i, e := range entries {
		fmt.Fprintf(&b, "\n%d. %s: %d chips (%d wins, %d games)", i+1, e.Name, e.Balance, e.Wins, e.Games)
	}
	return b.String()
}

// Bonus renders a daily bonus claim.
func Bonus(res session.BonusResult) string {
	if !res.Granted {
		return fmt.Sprintf("Your next bonus is available in %.1f hours. Balance: %d chips.", res.HoursRemaining, res.Balance)
	}
	text := fmt.Sprintf("Daily bonus: +%d chips! Balance: %d chips.", res.Amount, res.Balance)
	if !res.Committed {
		text += " Not yet saved."
	}
	return text
}

// Balance renders a user's ledger entry.
func Balance(e ledger.Entry) string {
	return fmt.Sprintf("%s: %d chips, %d wins in %d games.", e.Name, e.Balance, e.Wins, e.Games)
}

// Stats renders chat counters.
func Stats(st session.Stats) string {
	text := fmt.Sprintf("Rounds played: %d\nPlayers: %d", st.GamesPlayed, st.Players)
	if st.ActivePhase != nil {
		text += "\nCurrent round: " + st.ActivePhase.String()
	}
	return text
}

// Help lists the chat commands.
func Help() string {
	return strings.Join([]string{
		"Blackjack commands:",
		"/newgame - open a round",
		"/join - take a seat",
		"/leave - give up your seat before the deal",
		"/deal - deal the cards",
		"/hit - take a card",
		"/stand - stop taking cards",
		"/cancel - abandon the current round",
		"/daily - claim the daily bonus",
		"/balance - show your chips",
		"/top - show the leaderboard",
		"/stats - show chat statistics",
	}, "\n")
}

// UserError turns a rejected action into a short notice for the acting user.
// It returns false for errors that are not the user's doing.
func UserError(err error) (string, bool) {
	switch {
	case errors.Is(err, session.ErrNoRound):
		return "No round is running. Start one with /newgame.", true
	case errors.Is(err, session.ErrRoundInProgress):
		return "A round is already running in this chat.", true
	case errors.Is(err, session.ErrNotEnoughPlayers):
		return "Not enough players have joined yet.", true
	case errors.Is(err, game.ErrAlreadyJoined):
		return "You are already in this round.", true
	case errors.Is(err, game.ErrAlreadyStarted):
		return "The round has already started.", true
	case errors.Is(err, game.ErrUnknownParticipant):
		return "You are not playing in this round.", true
	case errors.Is(err, game.ErrAlreadyStood):
		return "You already stand.", true
	case errors.Is(err, game.ErrGameNotOpen):
		return "Cards have not been dealt yet.", true
	case errors.Is(err, game.ErrNoParticipants):
		return "Nobody has joined.", true
	case errors.Is(err, game.ErrRoundFull):
		return "The table is full.", true
	case errors.Is(err, game.ErrPlayersPending):
		return "Some players are still deciding.", true
	}
	return "", false
}
