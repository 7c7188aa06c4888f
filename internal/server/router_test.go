package server

import (
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saldoran/blackjack-tg-bot/internal/deck"
	"github.com/saldoran/blackjack-tg-bot/internal/economy"
	"github.com/saldoran/blackjack-tg-bot/internal/ledger"
	"github.com/saldoran/blackjack-tg-bot/internal/session"
)

const chat int64 = -42

type sent struct {
	userID int64 // zero for chat broadcasts
	msg    *Message
}

type fakeOutbox struct {
	mu   sync.Mutex
	msgs []sent
}

func (f *fakeOutbox) BroadcastToChat(chatID int64, msg *Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sent{msg: msg})
}

func (f *fakeOutbox) SendToUser(userID int64, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sent{userID: userID, msg: msg})
	return nil
}

// take returns and clears the recorded messages.
func (f *fakeOutbox) take() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.msgs
	f.msgs = nil
	return out
}

func chatText(t *testing.T, s sent) string {
	t.Helper()
	require.Equal(t, MessageTypeChatMessage, s.msg.Type)
	var data ChatMessageData
	require.NoError(t, json.Unmarshal(s.msg.Data, &data))
	return data.Text
}

func newTestRouter(t *testing.T, cards string) (*Router, *fakeOutbox) {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "storage.json"), testLogger())
	require.NoError(t, err)

	var opts []session.Option
	if cards != "" {
		opts = append(opts, session.WithDeckFactory(func() *deck.Deck {
			return deck.Stacked(deck.MustParseCards(cards))
		}))
	}
	mgr := session.NewManager(store, session.Config{
		Policy:     economy.DefaultPolicy(),
		MinPlayers: 1,
		MaxPlayers: 6,
	}, testLogger(), opts...)
	t.Cleanup(mgr.Close)

	out := &fakeOutbox{}
	r := NewRouter(mgr, out, testLogger())
	mgr.SetNotifier(r)
	return r, out
}

func command(user int64, name, cmd string) CommandData {
	return CommandData{ChatID: chat, UserID: user, UserName: name, Command: cmd}
}

func TestRouterRoundFlow(t *testing.T) {
	// Ann Ks 9s, Bob Kh 7h, dealer Kd 7c
	r, out := newTestRouter(t, "KsKhKd9s7h7c")

	require.NoError(t, r.HandleCommand(command(1, "Ann", "/newgame")))
	msgs := out.take()
	require.Len(t, msgs, 1)
	var opened ChatMessageData
	require.NoError(t, json.Unmarshal(msgs[0].msg.Data, &opened))
	require.Len(t, opened.Buttons, 1)
	assert.Equal(t, "join:-42", opened.Buttons[0].Data)

	require.NoError(t, r.HandleCallback(CallbackData{ChatID: chat, UserID: 1, UserName: "Ann", Data: opened.Buttons[0].Data}))
	require.NoError(t, r.HandleCommand(command(2, "Bob", "join")))
	msgs = out.take()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Bob joined. Players: Ann, Bob", chatText(t, msgs[1]))

	require.NoError(t, r.HandleCommand(command(1, "Ann", "deal")))
	msgs = out.take()
	require.Len(t, msgs, 3)
	assert.Contains(t, chatText(t, msgs[0]), "Dealer shows K♦")
	assert.Equal(t, int64(1), msgs[1].userID)
	assert.Equal(t, MessageTypePrivateMessage, msgs[1].msg.Type)
	var private PrivateMessageData
	require.NoError(t, json.Unmarshal(msgs[1].msg.Data, &private))
	assert.Equal(t, "Your cards: K♠ 9♠ (19)", private.Text)
	assert.Len(t, private.Buttons, 2)

	require.NoError(t, r.HandleCallback(CallbackData{ChatID: 1, UserID: 1, Data: "stand:-42"}))
	out.take()
	require.NoError(t, r.HandleCommand(command(2, "Bob", "stand")))
	msgs = out.take()
	require.Len(t, msgs, 3)
	summary := chatText(t, msgs[2])
	assert.Contains(t, summary, "Ann: K♠ 9♠ (19) → WIN (+50 chips, balance 50)")
	assert.Contains(t, summary, "Bob: K♥ 7♥ (17) → DRAW (+0 chips, balance 0)")
}

func TestRouterHitByCommandAndButton(t *testing.T) {
	// Ann Ks 5s, dealer Kd 7c, then 2h and 3d
	r, out := newTestRouter(t, "KsKd5s7c2h3d")

	require.NoError(t, r.HandleCommand(command(1, "Ann", "newgame")))
	require.NoError(t, r.HandleCommand(command(1, "Ann", "join")))
	require.NoError(t, r.HandleCommand(command(1, "Ann", "deal")))
	out.take()

	require.NoError(t, r.HandleCommand(command(1, "Ann", "/HIT")))
	require.NoError(t, r.HandleCallback(CallbackData{ChatID: 1, UserID: 1, Data: "hit:-42"}))

	hand, err := r.manager.Hand(chat, 1)
	require.NoError(t, err)
	assert.Len(t, hand.Hand, 4)
	assert.Equal(t, 20, hand.Score)
	assert.False(t, hand.Stood)
}

func TestRouterUserErrorsGoToActingUser(t *testing.T) {
	r, out := newTestRouter(t, "")

	require.NoError(t, r.HandleCommand(command(7, "Ann", "hit")))
	msgs := out.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(7), msgs[0].userID)
	assert.Equal(t, MessageTypeUserNotice, msgs[0].msg.Type)

	var notice UserNoticeData
	require.NoError(t, json.Unmarshal(msgs[0].msg.Data, &notice))
	assert.Equal(t, "No round is running. Start one with /newgame.", notice.Text)
}

func TestRouterUnknownInput(t *testing.T) {
	r, _ := newTestRouter(t, "")

	assert.ErrorIs(t, r.HandleCommand(command(1, "Ann", "/fold")), ErrUnknownCommand)
	assert.Error(t, r.HandleCallback(CallbackData{Data: "fold:-42"}))
	assert.Error(t, r.HandleCallback(CallbackData{Data: "garbage"}))
}

func TestRouterEconomyCommands(t *testing.T) {
	r, out := newTestRouter(t, "")

	require.NoError(t, r.HandleCommand(command(1, "Ann", "daily")))
	msgs := out.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Ann: Daily bonus: +100 chips! Balance: 100 chips.", chatText(t, msgs[0]))

	priv := command(1, "Ann", "balance")
	priv.Private = true
	require.NoError(t, r.HandleCommand(priv))
	msgs = out.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, MessageTypePrivateMessage, msgs[0].msg.Type)

	require.NoError(t, r.HandleCommand(command(1, "Ann", "top")))
	msgs = out.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Top players:\n1. Ann: 100 chips (0 wins, 0 games)", chatText(t, msgs[0]))

	require.NoError(t, r.HandleCommand(command(1, "Ann", "stats")))
	msgs = out.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Rounds played: 0\nPlayers: 1", chatText(t, msgs[0]))
}

func TestRouterCancel(t *testing.T) {
	r, out := newTestRouter(t, "")

	require.NoError(t, r.HandleCommand(command(1, "Ann", "newgame")))
	require.NoError(t, r.HandleCommand(command(1, "Ann", "cancel")))
	msgs := out.take()
	require.Len(t, msgs, 2)
	assert.Equal(t, "The round was cancelled.", chatText(t, msgs[1]))
}
