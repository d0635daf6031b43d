package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pairlink/pairlink-backend/internal/models"
)

type SaveProfileRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    string `json:"gender"`
	// PhotoURI is a URL or an already-uploaded local path for the avatar.
	PhotoURI string `json:"photoUri,omitempty"`
}

// SaveProfile completes the profile gathered on first login.
func SaveProfile(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	var req SaveProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile := models.ProfileUser{
		User:      models.User{Username: req.Username},
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Gender:    req.Gender,
	}
	if !sess.SaveProfile(r.Context(), profile, req.PhotoURI) {
		respondError(w, http.StatusBadRequest, consumeProcessError(sess))
		return
	}
	sess.ResetProcessState()
	respondOK(w, sess.CurrentUser().Get())
}

// GetProfile returns the merged public + personal-info profile for a user.
func GetProfile(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		id = sess.SelfID()
	}

	profile, found := sess.Profile(r.Context(), id)
	if !found {
		respondError(w, http.StatusNotFound, "profile not found")
		return
	}
	respondOK(w, profile)
}
