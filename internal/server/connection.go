package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/saldoran/blackjack-tg-bot/internal/render"
)

// Connection represents a WebSocket connection to a chat client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	chats     map[int64]struct{}
	users     map[int64]struct{}
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	router    *Router
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, router *Router) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		chats:  make(map[int64]struct{}),
		users:  make(map[int64]struct{}),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
		router: router,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.cancel()
		close(c.send)
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client
func (c *Connection) SendMessage(msg *Message) error {
	c.mu.RLock()
	if c.ctx.Err() != nil {
		c.mu.RUnlock()
		return ErrConnectionClosed
	}

	select {
	case c.send <- msg:
		c.mu.RUnlock()
		return nil
	default:
		c.mu.RUnlock()
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// Subscribe delivers chat broadcasts for chatID to this connection
func (c *Connection) Subscribe(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chats[chatID] = struct{}{}
}

// Subscribed reports whether the connection receives broadcasts for chatID
func (c *Connection) Subscribed(chatID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.chats[chatID]
	return ok
}

// AddUser records a user speaking through this connection, so private
// messages for them are delivered here
func (c *Connection) AddUser(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[userID] = struct{}{}
}

// HasUser reports whether userID has spoken through this connection
func (c *Connection) HasUser(userID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.users[userID]
	return ok
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "requestId", msg.RequestID)

	switch msg.Type {
	case MessageTypeCommand:
		var data CommandData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse command data")
			return
		}
		c.Subscribe(data.ChatID)
		c.AddUser(data.UserID)
		if err := c.router.HandleCommand(data); err != nil {
			c.sendError("unknown_command", err.Error())
		}

	case MessageTypeCallback:
		var data CallbackData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse callback data")
			return
		}
		c.AddUser(data.UserID)
		if _, chatID, err := render.ParseCallback(data.Data); err == nil {
			c.Subscribe(chatID)
		}
		if err := c.router.HandleCallback(data); err != nil {
			c.sendError("invalid_callback", err.Error())
		}

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg)
}
