package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/heyoon/twinchat/internal/chat"
)

// wsMessage is the websocket wire frame. The server streams "delta" frames as
// generation text arrives, then one "final" frame carrying the post-processed
// answer; clients replace accumulated deltas with the final text.
type wsMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var req chat.Request
		if err := json.Unmarshal(data, &req); err != nil {
			if writeWS(conn, wsMessage{Type: "error", Error: "invalid message"}) != nil {
				return
			}
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))

		resp := s.orchestrator.HandleChatStream(r.Context(), req, func(delta string) error {
			return writeWS(conn, wsMessage{Type: "delta", Text: delta})
		})
		if resp.Error != "" {
			if writeWS(conn, wsMessage{Type: "error", Error: resp.Error, SessionID: resp.SessionID}) != nil {
				return
			}
			continue
		}
		if writeWS(conn, wsMessage{Type: "final", Text: resp.Response, SessionID: resp.SessionID}) != nil {
			return
		}
	}
}

func writeWS(conn *websocket.Conn, msg wsMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(msg)
}
