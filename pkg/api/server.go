package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"seedrio/pkg/auth"
	"seedrio/pkg/config"
	"seedrio/pkg/logger"
)

// Server handles operational API requests: a status snapshot and a websocket
// that streams log lines to the frontend.
type Server struct {
	mu        sync.RWMutex
	config    *config.Config
	deviceMgr *auth.Manager
	version   string
	startedAt time.Time

	// WebSocket client registry
	clients   map[*Client]bool
	clientsMu sync.Mutex
	logCh     chan string
}

type Client struct {
	conn *websocket.Conn
	send chan WSMessage
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, deviceMgr *auth.Manager, version string) *Server {
	s := &Server{
		config:    cfg,
		deviceMgr: deviceMgr,
		version:   version,
		startedAt: time.Now(),
		clients:   make(map[*Client]bool),
		logCh:     make(chan string, 100),
	}

	// Start log broadcaster
	logger.SetBroadcast(s.logCh)
	go s.broadcastLogs()

	return s
}

// Handler returns the HTTP handler for the API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/ws", s.handleWebSocket)

	return mux
}

// Status is the operational snapshot served on /api/status and pushed over
// the websocket.
type Status struct {
	Version       string `json:"version"`
	Authorized    bool   `json:"authorized"`
	PendingCodes  int    `json:"pending_codes"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) collectStatus() Status {
	return Status{
		Version:       s.version,
		Authorized:    s.deviceMgr.Authorized(),
		PendingCodes:  s.deviceMgr.PendingSessions(),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(s.collectStatus())
}

func (s *Server) broadcastLogs() {
	for msgStr := range s.logCh {
		msg := WSMessage{Type: "log_entry", Payload: json.RawMessage(fmt.Sprintf("%q", msgStr))}

		s.clientsMu.Lock()
		for client := range s.clients {
			select {
			case client.send <- msg:
			default:
				// Drop message if client buffer is full
			}
		}
		s.clientsMu.Unlock()
	}
}

// trySend queues msg for a still-registered client, dropping it when the
// buffer is full. Holding clientsMu orders the send against the channel
// close in RemoveClient, so a late sender can never hit a closed channel.
func (s *Server) trySend(client *Client, msg WSMessage) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if !s.clients[client] {
		return
	}
	select {
	case client.send <- msg:
	default:
	}
}

// AddClient registers a new websocket client
func (s *Server) AddClient(client *Client) {
	s.clientsMu.Lock()
	s.clients[client] = true
	s.clientsMu.Unlock()
}

// RemoveClient unregisters a websocket client and closes its send channel.
// The close happens under clientsMu so trySend and the log broadcaster see
// either a registered client or no channel to write to.
func (s *Server) RemoveClient(client *Client) {
	s.clientsMu.Lock()
	delete(s.clients, client)
	close(client.send)
	s.clientsMu.Unlock()
}
