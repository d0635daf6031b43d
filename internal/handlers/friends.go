package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pairlink/pairlink-backend/internal/services"
)

type FriendActionRequest struct {
	UserID string `json:"userId"`
}

// FriendsSnapshot bundles the three relationship lists of the current user.
type FriendsSnapshot struct {
	Friends  []string `json:"friends"`
	Sent     []string `json:"sent"`
	Received []string `json:"received"`
}

// GetFriends returns the current relationship lists.
func GetFriends(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	respondOK(w, FriendsSnapshot{
		Friends:  sess.Relationships.Friends().Get(),
		Sent:     sess.Relationships.SentRequests().Get(),
		Received: sess.Relationships.ReceivedRequests().Get(),
	})
}

// ClassifyUser reports the relationship state toward a target user.
func ClassifyUser(w http.ResponseWriter, r *http.Request) {
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
	respondOK(w, map[string]string{"state": string(sess.Relationships.Classify(id))})
}

// friendAction validates the request and hands the target to one relationship
// transition. Transitions are best-effort dual writes; sub-write failures
// surface in logs, not in the response.
func friendAction(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, sess *services.Session, target string)) {
	sess, _, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	var req FriendActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		respondError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if req.UserID == sess.SelfID() {
		respondError(w, http.StatusBadRequest, "cannot befriend yourself")
		return
	}

	run(r.Context(), sess, req.UserID)
	respondOK(w, nil)
}

func SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	friendAction(w, r, func(ctx context.Context, sess *services.Session, target string) {
		sess.Relationships.SendRequest(ctx, target)
	})
}

func CancelFriendRequest(w http.ResponseWriter, r *http.Request) {
	friendAction(w, r, func(ctx context.Context, sess *services.Session, target string) {
		sess.Relationships.CancelRequest(ctx, target)
	})
}

func AcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	friendAction(w, r, func(ctx context.Context, sess *services.Session, target string) {
		sess.Relationships.AcceptRequest(ctx, target)
	})
}

func DeclineFriendRequest(w http.ResponseWriter, r *http.Request) {
	friendAction(w, r, func(ctx context.Context, sess *services.Session, target string) {
		sess.Relationships.DeclineRequest(ctx, target)
	})
}

func RemoveFriend(w http.ResponseWriter, r *http.Request) {
	friendAction(w, r, func(ctx context.Context, sess *services.Session, target string) {
		sess.Relationships.RemoveFriend(ctx, target)
	})
}
