package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pairlink/pairlink-backend/internal/config"
	"github.com/pairlink/pairlink-backend/internal/models"
	"github.com/pairlink/pairlink-backend/internal/services"
)

// Shared handler dependencies, wired once from main.
var (
	registry *services.Registry
	store    services.Store
	photos   *services.PhotoService
	identity services.Identity
	cfg      *config.Config
)

// Init wires the handler package. Must be called before any route is served.
func Init(c *config.Config, reg *services.Registry, st services.Store, ph *services.PhotoService, id services.Identity) {
	cfg = c
	registry = reg
	store = st
	photos = ph
	identity = id
}

// APIResponse is the common response envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, APIResponse{Success: false, Message: msg})
}

func extractBearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// sessionFromRequest resolves the bearer token to its live session
// coordinator. Browser WebSocket clients may pass the token as a query
// parameter instead.
func sessionFromRequest(r *http.Request) (*services.Session, string, bool) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return nil, "", false
	}
	if _, ok := services.ValidateSessionToken(token); !ok {
		return nil, "", false
	}
	sess, ok := registry.Get(token)
	if !ok {
		return nil, "", false
	}
	return sess, token, true
}

// consumeProcessError reads the sticky error message off the session's
// process channel and resets it, per the observe-then-reset contract.
func consumeProcessError(sess *services.Session) string {
	st := sess.ProcessState().Get()
	msg := st.Message
	if st.Kind == models.ProcessError || st.Kind == models.ProcessSuccess {
		sess.ResetProcessState()
	}
	if msg == "" {
		msg = "error happened"
	}
	return msg
}
