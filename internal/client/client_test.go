package client

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saldoran/blackjack-tg-bot/internal/economy"
	"github.com/saldoran/blackjack-tg-bot/internal/ledger"
	"github.com/saldoran/blackjack-tg-bot/internal/server"
	"github.com/saldoran/blackjack-tg-bot/internal/session"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func startGateway(t *testing.T) string {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "storage.json"), testLogger())
	require.NoError(t, err)
	mgr := session.NewManager(store, session.Config{
		Policy:     economy.DefaultPolicy(),
		MinPlayers: 1,
		MaxPlayers: 6,
	}, testLogger())
	t.Cleanup(mgr.Close)

	srv := server.NewServer(mgr, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		ts.Close()
	})
	return ts.URL
}

func TestGatewayURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":     "ws://localhost:8080/ws",
		"https://example.com":       "wss://example.com/ws",
		"ws://localhost:8080/ws":    "ws://localhost:8080/ws",
		"ws://localhost:8080/other": "ws://localhost:8080/other",
	}
	for in, want := range cases {
		got, err := gatewayURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := gatewayURL("ftp://localhost")
	assert.Error(t, err)
}

func TestTerminalPlaysThroughGateway(t *testing.T) {
	url := startGateway(t)

	c := NewClient(url, testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer func() { _ = c.Disconnect() }()

	out := &syncBuffer{}
	term := NewTerminal(c, PlayerSettings{Name: "Ann", UserID: 1, ChatID: 10}, out, "plain")

	_, err := term.HandleLine("/newgame")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "[1] Join")
	}, 2*time.Second, 10*time.Millisecond)

	_, err = term.HandleLine("1")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Ann joined. Players: Ann")
	}, 2*time.Second, 10*time.Millisecond)

	_, err = term.HandleLine("/deal")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Your cards: ")
	}, 2*time.Second, 10*time.Millisecond)

	_, err = term.HandleLine("/join")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "! The round has already started.")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTerminalHandleLine(t *testing.T) {
	c := NewClient("ws://localhost:0/ws", testLogger())
	term := NewTerminal(c, PlayerSettings{Name: "Ann", UserID: 1, ChatID: 10}, io.Discard, "plain")

	quit, err := term.HandleLine("quit")
	assert.True(t, quit)
	assert.NoError(t, err)

	_, err = term.HandleLine("3")
	assert.EqualError(t, err, "no button 3")

	_, err = term.HandleLine("hello")
	assert.Error(t, err)

	quit, err = term.HandleLine("   ")
	assert.False(t, quit)
	assert.NoError(t, err)
}

func TestTerminalSkipsOtherUsersPrivateMessages(t *testing.T) {
	c := NewClient("ws://localhost:0/ws", testLogger())
	term := NewTerminal(c, PlayerSettings{Name: "Ann", UserID: 1, ChatID: 10}, io.Discard, "plain")

	mine, err := server.NewMessage(server.MessageTypePrivateMessage, server.PrivateMessageData{ChatID: 10, UserID: 1, Text: "Your cards: A♠ K♠ (21)"})
	require.NoError(t, err)
	text, _ := term.format(mine)
	assert.Equal(t, "Your cards: A♠ K♠ (21)", text)

	theirs, err := server.NewMessage(server.MessageTypePrivateMessage, server.PrivateMessageData{ChatID: 10, UserID: 2, Text: "secret"})
	require.NoError(t, err)
	text, _ = term.format(theirs)
	assert.Empty(t, text)
}

func TestLoadClientConfig(t *testing.T) {
	cfg, err := LoadClientConfig(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultClientConfig(), cfg)
	assert.Error(t, cfg.Validate(), "name and user id are required")

	path := filepath.Join(t.TempDir(), "client.hcl")
	writeFile(t, path, `
server {
  url = "http://localhost:9000"
}
player {
  name    = "Ann"
  user_id = 7
}
ui {
  theme = "plain"
}
`)
	cfg, err = LoadClientConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", cfg.Server.URL)
	assert.Equal(t, 10, cfg.Server.ConnectTimeout)
	assert.Equal(t, int64(7), cfg.Player.UserID)
	assert.Equal(t, int64(1), cfg.Player.ChatID)
	assert.Equal(t, "warn", cfg.UI.LogLevel)
	assert.NoError(t, cfg.Validate())
}
