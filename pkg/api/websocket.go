package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"seedrio/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WS upgrade failed", "err", err)
		return
	}

	client := &Client{conn: conn, send: make(chan WSMessage, 256)}
	s.AddClient(client)

	defer func() {
		s.RemoveClient(client)
		conn.Close()
	}()

	logger.Debug("WS client connected", "remote", r.RemoteAddr)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	// Push the current state and the log backlog before the loops start
	go func() {
		s.sendStatus(client)
		s.sendLogHistory(client)
	}()

	// Read loop (client -> server); a read error closes the connection and
	// lets the write loop below exit
	go func() {
		for {
			var msg WSMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Debug("WS read error", "err", err)
				}
				conn.Close()
				return
			}

			switch msg.Type {
			case "get_status":
				s.sendStatus(client)
			case "get_log_history":
				s.sendLogHistory(client)
			}
		}
	}()

	// Write loop (server -> client)
	for {
		select {
		case <-ticker.C:
			s.sendStatus(client)
		case msg, ok := <-client.send:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

func (s *Server) sendStatus(client *Client) {
	payload, _ := json.Marshal(s.collectStatus())
	s.trySend(client, WSMessage{Type: "status", Payload: payload})
}

func (s *Server) sendLogHistory(client *Client) {
	history := logger.GetHistory()
	payload, _ := json.Marshal(history)
	s.trySend(client, WSMessage{Type: "log_history", Payload: payload})
}
