package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/saldoran/blackjack-tg-bot/internal/auth"
	"github.com/saldoran/blackjack-tg-bot/internal/session"
)

// Server is the WebSocket chat gateway
type Server struct {
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	logger      *log.Logger
	mu          sync.RWMutex
	router      *Router
	validator   auth.Validator
	httpServer  *http.Server
	closed      bool
}

// Option configures a Server
type Option func(*Server)

// WithValidator requires transports to authenticate on connect
func WithValidator(v auth.Validator) Option {
	return func(s *Server) { s.validator = v }
}

// NewServer creates a gateway serving the manager's rounds. It registers
// itself as the manager's notifier.
func NewServer(manager *session.Manager, logger *log.Logger, opts ...Option) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			// Chat clients are trusted processes, not browsers
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		logger:      logger.WithPrefix("server"),
		validator:   auth.NewNoopValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = NewRouter(manager, s, logger)
	manager.SetNotifier(s.router)
	return s
}

// Handler returns the HTTP handler with the /ws and /health routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Serve accepts connections on l until Shutdown is called
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = l.Close()
		return nil
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("Starting WebSocket server", "addr", l.Addr().String())
	err := srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on addr and serves until Shutdown is called
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(l)
}

// Shutdown stops accepting connections and closes the open ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.httpServer
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	for _, conn := range conns {
		_ = conn.Close()
	}
	return err
}

func (s *Server) register(conn *Connection) {
	s.mu.Lock()
	s.connections[conn] = true
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "total", total)
}

func (s *Server) unregister(conn *Connection) {
	s.mu.Lock()
	delete(s.connections, conn)
	total := len(s.connections)
	s.mu.Unlock()
	_ = conn.Close()
	s.logger.Info("Client disconnected", "total", total)
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, err := s.validator.Validate(r.Context(), requestToken(r))
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		s.logger.Warn("Rejected connection", "remote", r.RemoteAddr)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	case err != nil:
		s.logger.Error("Auth check failed", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "authentication unavailable", http.StatusServiceUnavailable)
		return
	}
	if identity != nil {
		s.logger.Info("Transport authenticated", "transport", identity.TransportID, "name", identity.Name)
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.router)
	s.register(client)
	client.Start()

	go func() {
		<-client.ctx.Done()
		s.unregister(client)
	}()
}

// requestToken reads a bearer token, falling back to the token query parameter
func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	return r.URL.Query().Get("token")
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// BroadcastToChat sends a message to every connection subscribed to chatID
func (s *Server) BroadcastToChat(chatID int64, msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if !conn.Subscribed(chatID) {
			continue
		}
		if err := conn.SendMessage(msg); err != nil {
			s.logger.Error("Failed to send message to client", "error", err, "chat", chatID)
		} else {
			count++
		}
	}

	s.logger.Debug("Broadcasted message to chat", "chat", chatID, "type", msg.Type, "recipients", count)
}

// SendToUser sends a message to every connection the user has spoken through
func (s *Server) SendToUser(userID int64, msg *Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sent := false
	for conn := range s.connections {
		if conn.HasUser(userID) && conn.SendMessage(msg) == nil {
			sent = true
		}
	}
	if !sent {
		return fmt.Errorf("user not connected: %d", userID)
	}
	return nil
}

// ConnectionCount returns the number of open connections
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}
