package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/pairlink/pairlink-backend/internal/handlers"
)

func SetupRoutes(r *chi.Mux) {
	// Auth routes
	r.Post("/api/auth/signup", handlers.Signup)
	r.Post("/api/auth/signin", handlers.Signin)
	r.Post("/api/auth/signout", handlers.Signout)

	// Session state routes
	r.Get("/api/session/state", handlers.GetSessionState)
	r.Post("/api/session/reset", handlers.ResetProcessState)

	// Profile routes
	r.Post("/api/profile", handlers.SaveProfile)
	r.Get("/api/profile", handlers.GetProfile)

	// User directory routes
	r.Get("/api/users", handlers.GetUsers)
	r.Get("/api/users/photo", handlers.GetUserPhoto)
	r.Put("/api/users/status", handlers.UpdateStatus)

	// Friend relationship routes
	r.Get("/api/friends", handlers.GetFriends)
	r.Get("/api/friends/state", handlers.ClassifyUser)
	r.Post("/api/friends/request", handlers.SendFriendRequest)
	r.Delete("/api/friends/request", handlers.CancelFriendRequest)
	r.Post("/api/friends/accept", handlers.AcceptFriendRequest)
	r.Post("/api/friends/decline", handlers.DeclineFriendRequest)
	r.Delete("/api/friends", handlers.RemoveFriend)

	// Chat routes (MongoDB mailboxes + Redis Pub/Sub)
	r.Post("/api/chat/send", handlers.SendMessage)
	r.Get("/api/chat/messages", handlers.FetchMessages)
	r.Post("/api/chat/cursor/reset", handlers.ResetCursor)
	r.Post("/api/chat/messages/reset", handlers.ResetMessages)
	r.Get("/api/chat/list", handlers.GetChatList)
	r.Get("/api/chat/photo", handlers.GetMessagePhoto)

	// File upload routes
	r.Post("/api/upload", handlers.UploadPhoto)

	// WebSocket endpoints for the realtime message feed and user directory
	r.Get("/ws/chat", handlers.ChatWebSocket)
	r.Get("/ws/users", handlers.UsersWebSocket)
}
