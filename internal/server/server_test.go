package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saldoran/blackjack-tg-bot/internal/auth"
	"github.com/saldoran/blackjack-tg-bot/internal/economy"
	"github.com/saldoran/blackjack-tg-bot/internal/ledger"
	"github.com/saldoran/blackjack-tg-bot/internal/session"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func startTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "storage.json"), testLogger())
	require.NoError(t, err)
	mgr := session.NewManager(store, session.Config{
		Policy:     economy.DefaultPolicy(),
		MinPlayers: 1,
		MaxPlayers: 6,
		Seed:       7,
	}, testLogger())
	t.Cleanup(mgr.Close)

	srv := NewServer(mgr, testLogger(), opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ MessageType, data any) {
	t.Helper()
	msg, err := NewMessage(typ, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

func receive(t *testing.T, conn *websocket.Conn) *Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return &msg
}

func TestHealth(t *testing.T) {
	_, ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, WaitForHealthy(ctx, ts.URL))

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestGatewayCommandRoundTrip(t *testing.T) {
	_, ts := startTestServer(t)
	conn := dial(t, ts)

	send(t, conn, MessageTypeCommand, CommandData{ChatID: chat, UserID: 1, UserName: "Ann", Command: "newgame"})
	msg := receive(t, conn)
	require.Equal(t, MessageTypeChatMessage, msg.Type)
	var opened ChatMessageData
	require.NoError(t, json.Unmarshal(msg.Data, &opened))
	assert.Equal(t, chat, opened.ChatID)
	require.Len(t, opened.Buttons, 1)

	send(t, conn, MessageTypeCallback, CallbackData{ChatID: chat, UserID: 1, UserName: "Ann", Data: opened.Buttons[0].Data})
	msg = receive(t, conn)
	require.Equal(t, MessageTypeChatMessage, msg.Type)

	send(t, conn, MessageTypeCommand, CommandData{ChatID: chat, UserID: 1, UserName: "Ann", Command: "deal"})
	assert.Equal(t, MessageTypeChatMessage, receive(t, conn).Type)
	msg = receive(t, conn)
	require.Equal(t, MessageTypePrivateMessage, msg.Type)
	var hand PrivateMessageData
	require.NoError(t, json.Unmarshal(msg.Data, &hand))
	assert.Equal(t, int64(1), hand.UserID)
	assert.True(t, strings.HasPrefix(hand.Text, "Your cards: "))
}

func TestGatewayBroadcastsOnlyToSubscribers(t *testing.T) {
	srv, ts := startTestServer(t)
	first := dial(t, ts)
	second := dial(t, ts)

	send(t, second, MessageTypeCommand, CommandData{ChatID: 99, UserID: 2, Command: "help"})
	assert.Equal(t, MessageTypeChatMessage, receive(t, second).Type)

	send(t, first, MessageTypeCommand, CommandData{ChatID: chat, UserID: 1, Command: "newgame"})
	assert.Equal(t, MessageTypeChatMessage, receive(t, first).Type)

	// second is not subscribed to chat; its next message is its own reply
	send(t, second, MessageTypeCommand, CommandData{ChatID: 99, UserID: 2, Command: "stats"})
	msg := receive(t, second)
	var data ChatMessageData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, int64(99), data.ChatID)

	assert.Equal(t, 2, srv.ConnectionCount())
}

func TestGatewayProtocolErrors(t *testing.T) {
	_, ts := startTestServer(t)
	conn := dial(t, ts)

	send(t, conn, MessageType("bogus"), map[string]string{})
	msg := receive(t, conn)
	require.Equal(t, MessageTypeError, msg.Type)
	var data ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "unknown_message_type", data.Code)

	send(t, conn, MessageTypeCommand, CommandData{ChatID: chat, UserID: 1, Command: "fold"})
	msg = receive(t, conn)
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "unknown_command", data.Code)
}

func TestGatewayUserNotice(t *testing.T) {
	_, ts := startTestServer(t)
	conn := dial(t, ts)

	send(t, conn, MessageTypeCommand, CommandData{ChatID: chat, UserID: 5, Command: "stand"})
	msg := receive(t, conn)
	require.Equal(t, MessageTypeUserNotice, msg.Type)
	var notice UserNoticeData
	require.NoError(t, json.Unmarshal(msg.Data, &notice))
	assert.Equal(t, int64(5), notice.UserID)
}

func TestGatewayRequiresToken(t *testing.T) {
	_, ts := startTestServer(t, WithValidator(auth.NewStaticValidator([]string{"secret"})))
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{"Authorization": []string{"Bearer secret"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = conn.Close()

	conn, _, err = websocket.DefaultDialer.Dial(url+"?token=secret", nil)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestHealthURL(t *testing.T) {
	cases := map[string]string{
		"ws://localhost:8080/ws":       "http://localhost:8080/health",
		"wss://bot.example.com/ws?x=1": "https://bot.example.com/health",
		"http://127.0.0.1:9000":        "http://127.0.0.1:9000/health",
	}
	for in, want := range cases {
		got, err := HealthURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := HealthURL("ftp://localhost")
	assert.Error(t, err)
}
