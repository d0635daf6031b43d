package handlers

import (
	"net/http"

	"github.com/pairlink/pairlink-backend/internal/models"
)

// SessionStateResponse is a snapshot of the session's reactive state.
type SessionStateResponse struct {
	UserState    models.UserState    `json:"userState"`
	ProcessState models.ProcessState `json:"processState"`
	CurrentUser  models.User         `json:"currentUser"`
}

// GetSessionState returns the current user/process state snapshot. The
// process state stays sticky; observing it here does not reset it.
func GetSessionState(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	respondOK(w, SessionStateResponse{
		UserState:    sess.UserState().Get(),
		ProcessState: sess.ProcessState().Get(),
		CurrentUser:  sess.CurrentUser().Get(),
	})
}

// ResetProcessState returns the process channel to its initialized state
// after the client has consumed a terminal Success or Error.
func ResetProcessState(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}
	sess.ResetProcessState()
	respondOK(w, nil)
}
