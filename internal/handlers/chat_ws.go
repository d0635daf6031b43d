package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pairlink/pairlink-backend/internal/models"
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browsers don't honor CORS for WebSocket upgrades, so check the
		// Origin header against the allow list in production.
		if cfg == nil || !cfg.IsProduction() {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range cfg.AllowedOrigins {
			if origin == allowed {
				return true
			}
		}
		return false
	},
}

// ChatClientMessage represents messages coming from the client over WebSocket.
type ChatClientMessage struct {
	Type      string `json:"type"` // "message", "fetch", "ping"
	To        string `json:"to,omitempty"`
	Kind      string `json:"kind,omitempty"` // "text" or "photo"
	Data      string `json:"data,omitempty"`
	PartnerID string `json:"partnerId,omitempty"`
}

// ChatServerEvent is one frame pushed to the client: the messages appended to
// the feed since the previous frame. The feed never deduplicates, so frames
// may repeat records the client has already seen.
type ChatServerEvent struct {
	Type     string           `json:"type"`
	Messages []models.Message `json:"messages,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// ChatWebSocket streams the session's message feed in real time.
// Authentication reuses the session token (Authorization: Bearer <token>, or
// ?token= for browser clients). Sends and page fetches are accepted on the
// same connection.
func ChatWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := sessionFromRequest(r)
	if !ok {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := chatUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	feed, unsubscribe := sess.Conversations.Messages().Subscribe()
	defer unsubscribe()

	// Writer goroutine: forward feed growth to this connection. The feed is
	// append-only between resets, so a shrinking snapshot means a reset and
	// restarts the diff from zero.
	go func() {
		sent := 0
		for snapshot := range feed {
			if len(snapshot) < sent {
				sent = 0
			}
			if len(snapshot) == sent {
				continue
			}
			evt := ChatServerEvent{Type: "messages", Messages: snapshot[sent:]}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
			sent = len(snapshot)
		}
	}()

	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		var msg ChatClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			sess.UpdateStatus(r.Context(), false)
			return
		}

		switch msg.Type {
		case "message":
			text := strings.TrimSpace(msg.Data)
			if text == "" || msg.To == "" {
				continue
			}
			var out models.Message
			if msg.Kind == models.KindPhoto {
				out = models.NewPhotoMessage(sess.SelfID(), msg.To, text)
			} else {
				out = models.NewTextMessage(sess.SelfID(), msg.To, text)
			}
			if !sess.SendMessage(r.Context(), out) {
				_ = conn.WriteJSON(ChatServerEvent{Type: "error", Error: consumeProcessError(sess)})
				continue
			}
			sess.ResetProcessState()
		case "fetch":
			if msg.PartnerID == "" {
				continue
			}
			if err := sess.Conversations.FetchPage(r.Context(), msg.PartnerID); err != nil {
				_ = conn.WriteJSON(ChatServerEvent{Type: "error", Error: err.Error()})
			}
		case "ping":
			sess.UpdateStatus(r.Context(), true)
		default:
			// Ignore unknown types
		}
	}
}
