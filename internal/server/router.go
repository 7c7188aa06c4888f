package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/saldoran/blackjack-tg-bot/internal/game"
	"github.com/saldoran/blackjack-tg-bot/internal/render"
	"github.com/saldoran/blackjack-tg-bot/internal/session"
)

// Outbox delivers gateway messages. *Server is the production Outbox.
type Outbox interface {
	BroadcastToChat(chatID int64, msg *Message)
	SendToUser(userID int64, msg *Message) error
}

// leaderboardSize is how many players /top shows.
const leaderboardSize = 10

// ErrUnknownCommand is returned for commands the router does not handle.
var ErrUnknownCommand = errors.New("server: unknown command")

// Router turns chat commands into session calls and session results into
// gateway messages.
type Router struct {
	manager *session.Manager
	out     Outbox
	logger  *log.Logger
}

// NewRouter creates a router. The caller registers it as the manager's
// notifier.
func NewRouter(manager *session.Manager, out Outbox, logger *log.Logger) *Router {
	return &Router{
		manager: manager,
		out:     out,
		logger:  logger.WithPrefix("router"),
	}
}

// HandleCommand runs one chat command. Game errors are reported to the chat
// or the user; only unknown commands are returned.
func (r *Router) HandleCommand(cmd CommandData) error {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cmd.Command), "/"))
	r.logger.Debug("Command", "chat", cmd.ChatID, "user", cmd.UserID, "command", name)

	switch name {
	case CommandNewGame, "start":
		r.newGame(cmd.ChatID, cmd.UserID)
	case CommandJoin:
		r.join(cmd.ChatID, cmd.UserID, cmd.UserName)
	case CommandLeave:
		r.leave(cmd.ChatID, cmd.UserID, cmd.UserName)
	case CommandDeal:
		r.deal(cmd.ChatID, cmd.UserID)
	case CommandHit, CommandStand:
		action, err := game.ParseAction(name)
		if err != nil {
			return err
		}
		r.act(cmd.ChatID, cmd.UserID, action)
	case CommandCancel:
		r.cancel(cmd.ChatID, cmd.UserID)
	case CommandDaily:
		res := r.manager.Daily(cmd.ChatID, cmd.UserID, cmd.UserName)
		r.reply(cmd, render.Bonus(res))
	case CommandBalance:
		r.reply(cmd, render.Balance(r.manager.Balance(cmd.ChatID, cmd.UserID, cmd.UserName)))
	case CommandTop:
		entries, err := r.manager.Leaderboard(cmd.ChatID, leaderboardSize)
		if err != nil {
			r.fail(cmd.ChatID, cmd.UserID, err)
			return nil
		}
		r.chat(cmd.ChatID, render.Leaderboard(entries), nil)
	case CommandStats:
		r.chat(cmd.ChatID, render.Stats(r.manager.Stats(cmd.ChatID)), nil)
	case CommandHelp:
		r.reply(cmd, render.Help())
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}
	return nil
}

// HandleCallback runs a pressed button. The chat is taken from the button
// payload, since action buttons live in private chats.
func (r *Router) HandleCallback(cb CallbackData) error {
	verb, chatID, err := render.ParseCallback(cb.Data)
	if err != nil {
		return err
	}

	switch verb {
	case render.CallbackJoin:
		r.join(chatID, cb.UserID, cb.UserName)
	case render.CallbackHit, render.CallbackStand:
		action, err := game.ParseAction(verb)
		if err != nil {
			return err
		}
		r.act(chatID, cb.UserID, action)
	default:
		return fmt.Errorf("server: unknown callback %q", verb)
	}
	return nil
}

func (r *Router) newGame(chatID, userID int64) {
	info, err := r.manager.NewRound(chatID)
	if err != nil {
		r.fail(chatID, userID, err)
		return
	}
	text, buttons := render.RoundOpened(info)
	r.chat(chatID, text, buttons)
}

func (r *Router) join(chatID, userID int64, name string) {
	st, err := r.manager.Join(chatID, userID, name)
	if err != nil {
		r.fail(chatID, userID, err)
		return
	}
	r.chat(chatID, render.Joined(st, displayName(st, userID, name)), nil)
}

func (r *Router) leave(chatID, userID int64, name string) {
	st, err := r.manager.Leave(chatID, userID)
	if err != nil {
		r.fail(chatID, userID, err)
		return
	}
	if name == "" {
		name = "A player"
	}
	r.chat(chatID, render.Left(st, name), nil)
}

func (r *Router) deal(chatID, userID int64) {
	view, err := r.manager.Deal(chatID)
	if err != nil {
		r.fail(chatID, userID, err)
		return
	}
	r.RoundDealt(view)
}

func (r *Router) act(chatID, userID int64, action game.Action) {
	view, err := r.manager.Act(chatID, userID, action)
	if err != nil {
		r.fail(chatID, userID, err)
		return
	}

	text, buttons := render.ActionPrivate(view)
	r.private(chatID, userID, text, buttons)
	r.chat(chatID, render.ActionChat(view), nil)
	if view.Summary != nil {
		r.chat(chatID, render.Summary(*view.Summary), nil)
	}
}

func (r *Router) cancel(chatID, userID int64) {
	if _, err := r.manager.Cancel(chatID); err != nil {
		r.fail(chatID, userID, err)
		return
	}
	r.chat(chatID, render.Cancelled(""), nil)
}

// RoundDealt announces the deal in the chat and sends every player their hand.
func (r *Router) RoundDealt(view session.DealView) {
	r.chat(view.ChatID, render.DealChat(view), nil)
	for _, p := range view.Players {
		text, buttons := render.DealPrivate(view.ChatID, p)
		r.private(view.ChatID, p.UserID, text, buttons)
	}
}

// RoundCancelled announces a round that ended without settlement.
func (r *Router) RoundCancelled(chatID int64, roundID string, reason string) {
	r.logger.Info("Round cancelled", "chat", chatID, "round", roundID, "reason", reason)
	r.chat(chatID, render.Cancelled(reason), nil)
}

// fail reports a user error to the acting user, or an internal error to the
// chat.
func (r *Router) fail(chatID, userID int64, err error) {
	if text, ok := render.UserError(err); ok {
		r.notice(chatID, userID, text)
		return
	}
	r.logger.Error("Command failed", "chat", chatID, "user", userID, "error", err)
	r.chat(chatID, "Something went wrong and the round was abandoned. Start a new one with /newgame.", nil)
}

func (r *Router) reply(cmd CommandData, text string) {
	if cmd.Private {
		r.private(cmd.ChatID, cmd.UserID, text, nil)
		return
	}
	if cmd.UserName != "" {
		text = cmd.UserName + ": " + text
	}
	r.chat(cmd.ChatID, text, nil)
}

func (r *Router) chat(chatID int64, text string, buttons []render.Button) {
	msg, err := NewMessage(MessageTypeChatMessage, ChatMessageData{ChatID: chatID, Text: text, Buttons: buttons})
	if err != nil {
		r.logger.Error("Failed to create chat message", "error", err)
		return
	}
	r.out.BroadcastToChat(chatID, msg)
}

func (r *Router) private(chatID, userID int64, text string, buttons []render.Button) {
	msg, err := NewMessage(MessageTypePrivateMessage, PrivateMessageData{ChatID: chatID, UserID: userID, Text: text, Buttons: buttons})
	if err != nil {
		r.logger.Error("Failed to create private message", "error", err)
		return
	}
	if err := r.out.SendToUser(userID, msg); err != nil {
		r.logger.Warn("Private message not delivered", "user", userID, "error", err)
	}
}

func (r *Router) notice(chatID, userID int64, text string) {
	msg, err := NewMessage(MessageTypeUserNotice, UserNoticeData{ChatID: chatID, UserID: userID, Text: text})
	if err != nil {
		r.logger.Error("Failed to create notice", "error", err)
		return
	}
	if err := r.out.SendToUser(userID, msg); err != nil {
		r.logger.Warn("Notice not delivered", "user", userID, "error", err)
	}
}

func displayName(st session.RoundState, userID int64, fallback string) string {
	for _, p := range st.Players {
		if p.UserID == userID {
			return p.Name
		}
	}
	return fallback
}
