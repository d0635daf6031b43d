package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pairlink/pairlink-backend/internal/models"
)

type SendMessageRequest struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Data string `json:"data"`
}

// SendMessage routes one message through the session coordinator. Photo
// payloads carry the local file path in Data; the upload happens before the
// mailbox writes so both copies store the durable URL.
func SendMessage(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.To == "" || req.Data == "" {
		respondError(w, http.StatusBadRequest, "to and data are required")
		return
	}

	var msg models.Message
	if req.Type == models.KindPhoto {
		msg = models.NewPhotoMessage(sess.SelfID(), req.To, req.Data)
	} else {
		msg = models.NewTextMessage(sess.SelfID(), req.To, req.Data)
	}

	if !sess.SendMessage(r.Context(), msg) {
		respondError(w, http.StatusBadGateway, consumeProcessError(sess))
		return
	}
	sess.ResetProcessState()
	respondOK(w, nil)
}

// FetchMessages pulls one older page for the conversation and returns the
// accumulated feed. The feed is append-only and shared across partners;
// clients filter by thread.
func FetchMessages(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	partner := r.URL.Query().Get("partnerId")
	if partner == "" {
		respondError(w, http.StatusBadRequest, "partnerId is required")
		return
	}

	if err := sess.Conversations.FetchPage(r.Context(), partner); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondOK(w, sess.Conversations.Messages().Get())
}

// ResetCursor rewinds the pagination cursor for one conversation so the next
// fetch restarts from the newest page. Live subscriptions are unaffected.
func ResetCursor(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	partner := r.URL.Query().Get("partnerId")
	if partner == "" {
		respondError(w, http.StatusBadRequest, "partnerId is required")
		return
	}
	sess.Conversations.ResetCursor(partner)
	respondOK(w, nil)
}

// ResetMessages empties the accumulated feed.
func ResetMessages(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}
	sess.Conversations.ResetMessages()
	respondOK(w, nil)
}

// GetChatList resolves the current user's chat partners to user records.
func GetChatList(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	users, err := sess.Conversations.ChatList(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondOK(w, users)
}

// GetMessagePhoto runs the read-through cache for a photo message. Cache hits
// are served as bytes; misses return the remote URL while the cache fills and
// the mailbox record's key is back-filled in the background.
func GetMessagePhoto(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	msg := models.Message{
		From:     r.URL.Query().Get("from"),
		To:       r.URL.Query().Get("to"),
		Type:     models.KindPhoto,
		Data:     r.URL.Query().Get("url"),
		FileName: r.URL.Query().Get("fileName"),
	}
	if msg.Data == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	res := sess.ResolveMessagePhoto(r.Context(), msg)
	if len(res.Local) > 0 {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(res.Local)
		return
	}
	respondOK(w, map[string]string{"url": res.RemoteURL})
}
