package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"i4.energy/across/meterbridge/bridge"
	"i4.energy/across/meterbridge/meter"
)

// Server exposes the bridge state over HTTP: the latest decoded reading,
// the sequencer status, and a WebSocket stream of readings as they arrive.
type Server struct {
	Logger *slog.Logger
	Bridge *bridge.Bridge

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewServer creates a Server. The Bridge field must be set before the
// server starts handling requests.
func NewServer(logger *slog.Logger) *Server {
	return &Server{
		Logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /reading", s.handleReading)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.ServeHTTP(w, r)
}

// handleReading returns the most recent decoded meter reading
func (s *Server) handleReading(w http.ResponseWriter, r *http.Request) {
	reading := s.Bridge.LatestReading()
	if reading == nil {
		s.sendError(w, "No reading received yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reading); err != nil {
		s.Logger.Error("Failed to encode reading", "error", err)
	}
}

// handleStatus returns the bridge sequencer and counter state
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Bridge.Status()); err != nil {
		s.Logger.Error("Failed to encode status", "error", err)
	}
}

// handleWebSocket upgrades the connection and streams readings until the
// client goes away
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Error("Failed to upgrade websocket", "error", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	s.Logger.Info("Websocket client connected", "remote", conn.RemoteAddr())

	if reading := s.Bridge.LatestReading(); reading != nil {
		if err := conn.WriteJSON(reading); err != nil {
			s.Logger.Warn("Failed to send initial reading", "error", err)
		}
	}

	// The read loop exists only to notice the client closing.
	go func() {
		defer s.dropClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends a reading to every connected websocket client. Clients
// that fail to accept the write are dropped.
func (s *Server) Broadcast(reading meter.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.clients {
		if err := conn.WriteJSON(reading); err != nil {
			s.Logger.Warn("Dropping websocket client", "remote", conn.RemoteAddr(), "error", err)
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

func (s *Server) dropClient(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clients[conn] {
		conn.Close()
		delete(s.clients, conn)
		s.Logger.Info("Websocket client disconnected", "remote", conn.RemoteAddr())
	}
}

// sendError sends a JSON error response
func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		s.Logger.Error("Failed to encode error response", "error", err)
	}
}
