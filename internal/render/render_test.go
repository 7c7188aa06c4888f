package render

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saldoran/blackjack-tg-bot/internal/deck"
	"github.com/saldoran/blackjack-tg-bot/internal/game"
	"github.com/saldoran/blackjack-tg-bot/internal/ledger"
	"github.com/saldoran/blackjack-tg-bot/internal/session"
)

func TestCallbackData(t *testing.T) {
	data := CallbackData(CallbackHit, -1001)
	assert.Equal(t, "hit:-1001", data)

	verb, chat, err := ParseCallback(data)
	require.NoError(t, err)
	assert.Equal(t, CallbackHit, verb)
	assert.Equal(t, int64(-1001), chat)

	for _, bad := range []string{"", "join", ":5", "join:abc"} {
		_, _, err := ParseCallback(bad)
		assert.Error(t, err, bad)
	}
}

func TestHand(t *testing.T) {
	assert.Equal(t, "A♠ K♥ (21)", Hand(deck.MustParseCards("AsKh")))
	assert.Equal(t, "10♦ 9♣ 5♠ (24)", Hand(deck.MustParseCards("Td9c5s")))
}

func TestRoundOpened(t *testing.T) {
	text, buttons := RoundOpened(session.RoundInfo{ChatID: 7, MinPlayers: 1})
	assert.Contains(t, text, "/deal")
	assert.Equal(t, []Button{{Text: "Join", Data: "join:7"}}, buttons)

	deadline := time.Date(2024, 1, 1, 12, 0, 20, 0, time.UTC)
	text, _ = RoundOpened(session.RoundInfo{ChatID: 7, JoinDeadline: deadline, MinPlayers: 2})
	assert.Contains(t, text, "12:00:20")
	assert.Contains(t, text, "At least 2 players")
}

func TestSummary(t *testing.T) {
	s := session.Summary{
		Dealer:      deck.MustParseCards("KcQd5h"),
		DealerScore: 25,
		DealerBust:  true,
		Committed:   true,
		Results: []session.PlayerResult{
			{
				Result: game.Result{Name: "Ann", Hand: deck.MustParseCards("Ks9s"), Score: 19, Outcome: game.Win},
				Delta:  50, Balance: 150,
			},
			{
				Result: game.Result{Name: "Bob", Hand: deck.MustParseCards("KhQh5s"), Score: 25, Busted: true, Outcome: game.Lose},
				Delta:  -25, Balance: -25,
			},
		},
	}

	want := "Round over!\n" +
		"Dealer: K♣ Q♦ 5♥ (25 bust)\n" +
		"Ann: K♠ 9♠ (19) → WIN (+50 chips, balance 150)\n" +
		"Bob: K♥ Q♥ 5♠ (25 bust) → LOSE (-25 chips, balance -25)"
	assert.Equal(t, want, Summary(s))

	s.Committed = false
	assert.Contains(t, Summary(s), "not yet saved")
}

func TestActionMessages(t *testing.T) {
	card := deck.NewCard(deck.King, deck.Diamonds)
	busted := session.ActionView{
		ChatID: 7,
		Action: game.Hit,
		Card:   &card,
		Player: session.PlayerHand{Name: "Ann", Hand: deck.MustParseCards("Ks6sKd"), Score: 26, Stood: true, Busted: true},
	}
	text, buttons := ActionPrivate(busted)
	assert.Contains(t, text, "Bust!")
	assert.Nil(t, buttons)
	assert.Equal(t, "Ann takes a card and busts.", ActionChat(busted))

	hit := session.ActionView{
		ChatID:  7,
		Action:  game.Hit,
		Player:  session.PlayerHand{Name: "Bob", Hand: deck.MustParseCards("2s3s4s"), Score: 9},
		Pending: []string{"Bob", "Cid"},
	}
	text, buttons = ActionPrivate(hit)
	assert.Equal(t, "Your cards: 2♠ 3♠ 4♠ (9)", text)
	assert.Len(t, buttons, 2)
	assert.Equal(t, "Bob takes a card. Waiting for Bob, Cid.", ActionChat(hit))

	stand := session.ActionView{Action: game.Stand, Player: session.PlayerHand{Name: "Cid", Score: 18, Stood: true}}
	text, _ = ActionPrivate(stand)
	assert.Equal(t, "You stand on 18.", text)
	assert.Equal(t, "Cid stands.", ActionChat(stand))
}

func TestLeaderboard(t *testing.T) {
	assert.Contains(t, Leaderboard(nil), "Nobody")

	text := Leaderboard([]ledger.Entry{
		{Name: "Ann", Balance: 200, Wins: 4, Games: 5},
		{Name: "Bob", Balance: 50, Wins: 1, Games: 5},
	})
	assert.Equal(t, "Top players:\n1. Ann: 200 chips (4 wins, 5 games)\n2. Bob: 50 chips (1 wins, 5 games)", text)
}

func TestBonus(t *testing.T) {
	assert.Equal(t, "Daily bonus: +100 chips! Balance: 100 chips.",
		Bonus(session.BonusResult{Granted: true, Amount: 100, Balance: 100, Committed: true}))
	assert.Equal(t, "Your next bonus is available in 5.5 hours. Balance: 100 chips.",
		Bonus(session.BonusResult{HoursRemaining: 5.5, Balance: 100, Committed: true}))
	assert.Contains(t, Bonus(session.BonusResult{Granted: true, Amount: 100}), "Not yet saved")
}

func TestStats(t *testing.T) {
	phase := game.Dealt
	st := session.Stats{ChatStats: ledger.ChatStats{GamesPlayed: 3, Players: 2}, ActivePhase: &phase}
	assert.Equal(t, "Rounds played: 3\nPlayers: 2\nCurrent round: dealt", Stats(st))
}

func TestUserError(t *testing.T) {
	text, ok := UserError(fmt.Errorf("wrapped: %w", game.ErrAlreadyJoined))
	assert.True(t, ok)
	assert.Equal(t, "You are already in this round.", text)

	_, ok = UserError(session.ErrRoundInProgress)
	assert.True(t, ok)

	_, ok = UserError(errors.New("disk on fire"))
	assert.False(t, ok)
	_, ok = UserError(deck.ErrEmptyDeck)
	assert.False(t, ok)
}
