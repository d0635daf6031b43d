package handlers

import (
	"context"
	"net/http"

	"github.com/pairlink/pairlink-backend/internal/models"
)

// GetUsers returns the user directory.
func GetUsers(w http.ResponseWriter, r *http.Request) {
	_, _, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	users, err := store.AllUsers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(w, users)
}

// GetUserPhoto runs the read-through photo resolution for a user's avatar.
// Cache hits are served as bytes; misses redirect to the remote URL while
// the cache fills in the background.
func GetUserPhoto(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	user, found, err := store.GetUser(r.Context(), id)
	if err != nil || !found {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	// A navigation payload may carry only the short-lived access token; the
	// full URL is rebuilt from the well-known base path, owner id and token.
	imageURL := user.ImageURL
	if token := r.URL.Query().Get("imageToken"); token != "" {
		imageURL = photos.ImageURL(id, token)
	}

	res := sess.ResolveUserPhoto(r.Context(), models.User{ID: user.ID, ImageURL: imageURL})
	switch {
	case len(res.Local) > 0:
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(res.Local)
	case res.RemoteURL != "":
		http.Redirect(w, r, res.RemoteURL, http.StatusFound)
	default:
		respondError(w, http.StatusNotFound, "no image")
	}
}

// UsersWebSocket streams user-directory snapshots: the full list on connect,
// then again on every change (the directory watch has no diffing).
func UsersWebSocket(w http.ResponseWriter, r *http.Request) {
	_, _, ok := sessionFromRequest(r)
	if !ok {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := chatUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch, unsubscribe, err := store.WatchUsers(ctx)
	if err != nil {
		return
	}
	defer unsubscribe()

	go func() {
		for users := range ch {
			if err := conn.WriteJSON(users); err != nil {
				cancel()
				return
			}
		}
	}()

	// Reader loop exists only to detect disconnects.
	conn.SetReadLimit(1024)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// UpdateStatus writes the online/offline heartbeat for the current user.
func UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	online := r.URL.Query().Get("status") != "offline"
	sess.UpdateStatus(r.Context(), online)
	respondOK(w, nil)
}
