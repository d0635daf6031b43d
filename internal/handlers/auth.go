package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pairlink/pairlink-backend/internal/services"
)

type SignupRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ConfirmedPassword string `json:"confirmedPassword"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the session token and first-login flag on success.
type AuthResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Token      string `json:"token,omitempty"`
	UserID     string `json:"userId,omitempty"`
	FirstLogin bool   `json:"firstLogin,omitempty"`
}

// Signup registers a new identity. No session is created; the client signs
// in afterwards and completes the profile on first login.
func Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess := services.NewSession(store, photos, identity)
	if !sess.SignUp(r.Context(), req.Email, req.Password, req.ConfirmedPassword) {
		respondJSON(w, http.StatusBadRequest, AuthResponse{Success: false, Message: consumeProcessError(sess)})
		return
	}
	sess.ResetProcessState()
	respondJSON(w, http.StatusCreated, AuthResponse{Success: true, Message: "account created"})
}

// Signin authenticates, constructs the per-login session coordinator and
// registers it under a fresh bearer token.
func Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess := services.NewSession(store, photos, identity)
	if !sess.SignIn(r.Context(), req.Email, req.Password) {
		respondJSON(w, http.StatusUnauthorized, AuthResponse{Success: false, Message: consumeProcessError(sess)})
		return
	}

	token, err := services.CreateSessionToken(sess.SelfID())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	// Supersedes any previous session of this user: the registry detaches
	// it so its subscriptions die with its token.
	registry.Put(sess.SelfID(), token, sess)

	respondJSON(w, http.StatusOK, AuthResponse{
		Success:    true,
		Token:      token,
		UserID:     sess.SelfID(),
		FirstLogin: sess.FirstLogin(r.Context()),
	})
}

// Signout tears down the session coordinator and invalidates its token.
func Signout(w http.ResponseWriter, r *http.Request) {
	sess, token, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	userID := sess.SelfID()
	if !sess.SignOut(r.Context()) {
		respondError(w, http.StatusInternalServerError, consumeProcessError(sess))
		return
	}
	services.InvalidateUserSessions(userID)
	registry.Delete(token)

	respondOK(w, nil)
}
