package server

import (
	"encoding/json"
	"time"

	"github.com/saldoran/blackjack-tg-bot/internal/render"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

// CommandData is a slash command typed in a chat. Private marks commands sent
// from the user's private chat with the bot.
type CommandData struct {
	ChatID   int64  `json:"chatId"`
	UserID   int64  `json:"userId"`
	UserName string `json:"userName"`
	Command  string `json:"command"`
	Private  bool   `json:"private,omitempty"`
}

// CallbackData is a pressed inline button.
type CallbackData struct {
	ChatID   int64  `json:"chatId"`
	UserID   int64  `json:"userId"`
	UserName string `json:"userName"`
	Data     string `json:"data"`
}

// Server → Client Messages

type ChatMessageData struct {
	ChatID  int64           `json:"chatId"`
	Text    string          `json:"text"`
	Buttons []render.Button `json:"buttons,omitempty"`
}

type PrivateMessageData struct {
	ChatID  int64           `json:"chatId"`
	UserID  int64           `json:"userId"`
	Text    string          `json:"text"`
	Buttons []render.Button `json:"buttons,omitempty"`
}

type UserNoticeData struct {
	ChatID int64  `json:"chatId"`
	UserID int64  `json:"userId"`
	Text   string `json:"text"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
