package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/pairlink/pairlink-backend/internal/database"
)

const (
	// SessionDuration is 7 days.
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions.
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping.
	UserSessionKeyPrefix = "user_session:"
)

// CreateSessionToken issues a bearer token bound to userID and stores it in
// Redis. An existing token for the user is invalidated first so the 7-day
// timer always restarts from the latest login.
func CreateSessionToken(userID string) (string, error) {
	InvalidateUserSessions(userID)

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	ctx := context.Background()
	if err := database.RedisClient.Set(ctx, SessionKeyPrefix+token, userID, SessionDuration).Err(); err != nil {
		return "", err
	}
	if err := database.RedisClient.Set(ctx, UserSessionKeyPrefix+userID, token, SessionDuration).Err(); err != nil {
		return "", err
	}

	return token, nil
}

// ValidateSessionToken resolves a bearer token to its user id.
func ValidateSessionToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	userID, err := database.RedisClient.Get(context.Background(), SessionKeyPrefix+token).Result()
	if err != nil {
		return "", false
	}
	return userID, true
}

// InvalidateUserSessions removes the user's current token, if any.
func InvalidateUserSessions(userID string) {
	ctx := context.Background()
	token, err := database.RedisClient.Get(ctx, UserSessionKeyPrefix+userID).Result()
	if err == nil && token != "" {
		database.RedisClient.Del(ctx, SessionKeyPrefix+token)
	}
	database.RedisClient.Del(ctx, UserSessionKeyPrefix+userID)
}
