// Package dashboard provides a real-time WebSocket server for library monitoring.
//
// The dashboard broadcasts record changes, sweep completions, and queue
// statistics to connected WebSocket clients, so a classroom admin can
// watch sync activity live.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/sahayak-labs/sahayak/internal/library"
	"github.com/sahayak-labs/sahayak/internal/model"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypeRecordUpdate indicates a record was created, rated, shared, or deleted
	MessageTypeRecordUpdate MessageType = "record_update"

	// MessageTypeSyncComplete indicates an offline-queue sweep completed
	MessageTypeSyncComplete MessageType = "sync_complete"

	// MessageTypeQueueStats indicates updated queue statistics
	MessageTypeQueueStats MessageType = "queue_stats"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// RecordUpdateData contains record change information
type RecordUpdateData struct {
	RecordID string `json:"record_id"`
	Action   string `json:"action"` // created, rated, shared, deleted
	Subject  string `json:"subject,omitempty"`
	Topic    string `json:"topic,omitempty"`
	Teacher  string `json:"teacher,omitempty"`
}

// SyncCompleteData contains sweep completion information
type SyncCompleteData struct {
	Attempted int           `json:"attempted"`
	Synced    int           `json:"synced"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// QueueStatsData contains offline-queue statistics
type QueueStatsData struct {
	Pending int `json:"pending"`
	Cached  int `json:"cached"`
}

// Server manages WebSocket connections and broadcasts dashboard messages.
// It implements library.Notifier so it can be attached directly to the
// library with SetNotifier.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	// WebSocket client management, keyed by a per-connection id
	clients   map[*websocket.Conn]string
	clientsMu sync.RWMutex

	// Message broadcasting
	broadcast chan Message

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Logging
	logger *log.Logger
}

var _ library.Notifier = (*Server)(nil)

// Config holds server configuration
type Config struct {
	// Addr to listen on (default: ":8080")
	Addr string

	// Logger for server activity (default: the process default logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Addr:   ":8080",
		Logger: log.Default(),
	}
}

// NewServer creates a new dashboard WebSocket server
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      config.Addr,
		clients:   make(map[*websocket.Conn]string),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}
}

// Start begins the HTTP server and WebSocket handler
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Println("Stopping dashboard server")

	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()

	s.logger.Println("Dashboard server stopped")
	return nil
}

// RecordChanged implements library.Notifier.
func (s *Server) RecordChanged(action string, rec *model.VisualAid) {
	data, err := json.Marshal(RecordUpdateData{
		RecordID: rec.ID,
		Action:   action,
		Subject:  rec.Subject,
		Topic:    rec.Topic,
		Teacher:  rec.TeacherID,
	})
	if err != nil {
		s.logger.Printf("Failed to marshal record update: %v", err)
		return
	}
	s.Broadcast(Message{Type: MessageTypeRecordUpdate, Data: data})
}

// SweepComplete implements library.Notifier.
func (s *Server) SweepComplete(stats library.SweepStats) {
	data, err := json.Marshal(SyncCompleteData{
		Attempted: stats.Attempted,
		Synced:    stats.Synced,
		Failed:    stats.Failed,
		Duration:  stats.Duration,
	})
	if err != nil {
		s.logger.Printf("Failed to marshal sweep stats: %v", err)
		return
	}
	s.Broadcast(Message{Type: MessageTypeSyncComplete, Data: data})
}

// BroadcastQueueStats publishes current queue and cache counts.
func (s *Server) BroadcastQueueStats(pending, cached int) {
	data, err := json.Marshal(QueueStatsData{Pending: pending, Cached: cached})
	if err != nil {
		s.logger.Printf("Failed to marshal queue stats: %v", err)
		return
	}
	s.Broadcast(Message{Type: MessageTypeQueueStats, Data: data})
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
		return
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

// broadcastLoop handles message broadcasting to all clients
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			// Send to clients (outside read lock to avoid blocking broadcasts)
			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.logger.Printf("Failed to send to client: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // Allow all origins for development
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	clientID := uuid.New().String()

	s.clientsMu.Lock()
	s.clients[conn] = clientID
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client %s connected (total: %d)", clientID, clientCount)

	go s.readLoop(conn)
}

// readLoop keeps the WebSocket connection alive and handles client disconnects
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		_, _, err := conn.Read(s.ctx)
		if err != nil {
			return
		}
		// We don't process client messages, just keep connection alive
	}
}

// removeClient safely removes a client connection
func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if clientID, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client %s disconnected (total: %d)", clientID, clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.RLock()
	clientCount := len(s.clients)
	s.clientsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": clientCount,
	})
}

// handleRoot returns basic server information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Sahayak Dashboard</title>
</head>
<body>
    <h1>Sahayak Dashboard Server</h1>
    <p>WebSocket endpoint: <code>ws://%s/ws</code></p>
    <p>Health check: <a href="/healthz">/healthz</a></p>
    <p>Connect a WebSocket client to receive real-time record and sync updates.</p>
</body>
</html>`, r.Host)
}

// GetAddr returns the server's listening address
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
