package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"lifeshare/internal/config"

	"github.com/gorilla/websocket"
)

// JoinAuthorizer checks whether the user may subscribe to a conversation.
// The hub itself does not re-derive membership; this callback is the edge
// where authorization happens.
type JoinAuthorizer func(ctx context.Context, conversationID, userID uint) (bool, error)

// clientFrame is what a connected client may send: join or leave a
// conversation room. Messages themselves go through the HTTP API.
type clientFrame struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversationId"`
}

const (
	frameJoin  = "join"
	frameLeave = "leave"
)

// Session is a middleman between one websocket connection and the hub.
// One user may hold several sessions at once.
type Session struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound payloads; the hub writes, writePump drains.
	send chan []byte

	// Authenticated user id for this connection.
	UserID uint

	authorizeJoin JoinAuthorizer
}

// readPump reads join/leave frames from the connection until it closes.
func (s *Session) readPump(wsCfg config.WebSocketConfig) {
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()
	s.conn.SetReadLimit(int64(wsCfg.MaxMessageSizeBytes))
	s.conn.SetReadDeadline(time.Now().Add(time.Duration(wsCfg.PongWaitSeconds) * time.Second))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(time.Duration(wsCfg.PongWaitSeconds) * time.Second))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error (user %d): %v", s.UserID, err)
			}
			break
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Printf("Ignoring malformed frame from user %d: %v", s.UserID, err)
			continue
		}
		if frame.ConversationID == 0 {
			continue
		}

		switch frame.Type {
		case frameJoin:
			allowed, err := s.authorizeJoin(context.Background(), frame.ConversationID, s.UserID)
			if err != nil {
				log.Printf("Join authorization failed for user %d on conversation %d: %v", s.UserID, frame.ConversationID, err)
				continue
			}
			if !allowed {
				log.Printf("User %d is not a participant of conversation %d, join refused", s.UserID, frame.ConversationID)
				continue
			}
			s.hub.Subscribe(s, frame.ConversationID)
		case frameLeave:
			s.hub.Unsubscribe(s, frame.ConversationID)
		default:
			log.Printf("Ignoring unknown frame type %q from user %d", frame.Type, s.UserID)
		}
	}
}

// writePump pumps payloads from the hub to the websocket connection.
func (s *Session) writePump(wsCfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(wsCfg.PingPeriodSeconds) * time.Second)
	newline := []byte("\n")
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(time.Duration(wsCfg.WriteWaitSeconds) * time.Second))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := s.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)

			// Drain whatever else is queued into the same write.
			n := len(s.send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-s.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(time.Duration(wsCfg.WriteWaitSeconds) * time.Second))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeSession upgrades the HTTP request to a websocket connection and starts
// the session's pumps. The caller has already authenticated userID.
func ServeSession(hub *Hub, authorizeJoin JoinAuthorizer, userID uint, w http.ResponseWriter, r *http.Request, wsCfg config.WebSocketConfig) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("ServeSession - upgrade failed:", err)
		return
	}

	session := &Session{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, 256),
		UserID:        userID,
		authorizeJoin: authorizeJoin,
	}
	hub.Register(session)

	go session.writePump(wsCfg)
	go session.readPump(wsCfg)
}
