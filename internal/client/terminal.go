package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/saldoran/blackjack-tg-bot/internal/render"
	"github.com/saldoran/blackjack-tg-bot/internal/server"
)

type styles struct {
	chat    lipgloss.Style
	private lipgloss.Style
	notice  lipgloss.Style
	err     lipgloss.Style
	button  lipgloss.Style
}

func newStyles(theme string) styles {
	if theme == "plain" {
		plain := lipgloss.NewStyle()
		return styles{chat: plain, private: plain, notice: plain, err: plain, button: plain}
	}
	return styles{
		chat:    lipgloss.NewStyle(),
		private: lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Border(lipgloss.RoundedBorder()).Padding(0, 1),
		notice:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		button:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
}

// Terminal is a line-oriented chat window. Lines starting with "/" are sent
// as commands, a bare number presses the matching button of the last message
// that had buttons.
type Terminal struct {
	client *Client
	player PlayerSettings
	out    io.Writer
	styles styles

	mu      sync.Mutex
	buttons []render.Button
}

// NewTerminal wires a terminal to the client's incoming messages.
func NewTerminal(c *Client, player PlayerSettings, out io.Writer, theme string) *Terminal {
	t := &Terminal{
		client: c,
		player: player,
		out:    out,
		styles: newStyles(theme),
	}
	for _, typ := range []server.MessageType{
		server.MessageTypeChatMessage,
		server.MessageTypePrivateMessage,
		server.MessageTypeUserNotice,
		server.MessageTypeError,
	} {
		c.AddEventHandler(typ, t.display)
	}
	return t
}

func (t *Terminal) display(msg *server.Message) {
	text, buttons := t.format(msg)
	if text == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(buttons) > 0 {
		t.buttons = buttons
	}
	_, _ = fmt.Fprintln(t.out, text)
}

// format renders one gateway message. Messages addressed to other users are
// skipped.
func (t *Terminal) format(msg *server.Message) (string, []render.Button) {
	switch msg.Type {
	case server.MessageTypeChatMessage:
		var data server.ChatMessageData
		if json.Unmarshal(msg.Data, &data) != nil {
			return "", nil
		}
		return t.styles.chat.Render(data.Text) + t.formatButtons(data.Buttons), data.Buttons

	case server.MessageTypePrivateMessage:
		var data server.PrivateMessageData
		if json.Unmarshal(msg.Data, &data) != nil || data.UserID != t.player.UserID {
			return "", nil
		}
		return t.styles.private.Render(data.Text) + t.formatButtons(data.Buttons), data.Buttons

	case server.MessageTypeUserNotice:
		var data server.UserNoticeData
		if json.Unmarshal(msg.Data, &data) != nil || data.UserID != t.player.UserID {
			return "", nil
		}
		return t.styles.notice.Render("! " + data.Text), nil

	case server.MessageTypeError:
		var data server.ErrorData
		if json.Unmarshal(msg.Data, &data) != nil {
			return "", nil
		}
		return t.styles.err.Render(fmt.Sprintf("error (%s): %s", data.Code, data.Message)), nil
	}
	return "", nil
}

func (t *Terminal) formatButtons(buttons []render.Button) string {
	if len(buttons) == 0 {
		return ""
	}
	labels := make([]string, len(buttons))
	for i, b := range buttons {
		labels[i] = t.styles.button.Render(fmt.Sprintf("[%d] %s", i+1, b.Text))
	}
	return "\n" + strings.Join(labels, "  ")
}

// HandleLine sends one line of input. It reports whether the user asked to
// quit.
func (t *Terminal) HandleLine(line string) (bool, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false, nil
	case line == "quit" || line == "exit":
		return true, nil
	case strings.HasPrefix(line, "/"):
		private := false
		if rest, ok := strings.CutSuffix(line, " private"); ok {
			line, private = rest, true
		}
		return false, t.client.SendCommand(server.CommandData{
			ChatID:   t.player.ChatID,
			UserID:   t.player.UserID,
			UserName: t.player.Name,
			Command:  strings.TrimPrefix(line, "/"),
			Private:  private,
		})
	}

	n, err := strconv.Atoi(line)
	if err != nil {
		return false, fmt.Errorf("type a /command or a button number")
	}

	t.mu.Lock()
	if n < 1 || n > len(t.buttons) {
		t.mu.Unlock()
		return false, fmt.Errorf("no button %d", n)
	}
	button := t.buttons[n-1]
	t.mu.Unlock()

	return false, t.client.PressButton(server.CallbackData{
		ChatID:   t.player.ChatID,
		UserID:   t.player.UserID,
		UserName: t.player.Name,
		Data:     button.Data,
	})
}

// Run reads input lines until quit, end of input, a closed connection or ctx
// cancellation.
func (t *Terminal) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.client.Done():
			return fmt.Errorf("connection closed by server")
		case err := <-scanErr:
			return err
		case line := <-lines:
			quit, err := t.HandleLine(line)
			if err != nil {
				t.mu.Lock()
				_, _ = fmt.Fprintln(t.out, t.styles.err.Render(err.Error()))
				t.mu.Unlock()
			}
			if quit {
				return nil
			}
		}
	}
}
