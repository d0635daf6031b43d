package services

import (
	"context"
	"time"

	"github.com/pairlink/pairlink-backend/internal/models"
)

// Collection and field names are contract; they match the stored schema.
const (
	CollUsers        = "users"
	CollPersonalInfo = "userPersonalInfo"
	CollFriends      = "friends"
	CollRequests     = "requests"
	CollMessages     = "messages"
	CollUserMessages = "userMessages"

	FieldFriends  = "friends"
	FieldSent     = "sent"
	FieldReceived = "received"
	FieldChatList = "userChatId"
)

// Store is the remote store gateway: typed read/write/subscribe plumbing
// against the document collections, with no business logic of its own.
// Watch and subscribe channels deliver pushes until their cancel func runs.
type Store interface {
	// users/{id}
	SaveUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, bool, error)
	UpdateUserStatus(ctx context.Context, id, status string) error
	UsersByID(ctx context.Context, ids []string) ([]models.User, error)
	AllUsers(ctx context.Context) ([]models.User, error)
	WatchUsers(ctx context.Context) (<-chan []models.User, func(), error)

	// userPersonalInfo/{id}
	SavePersonalInfo(ctx context.Context, info models.PersonalInfo) error
	GetPersonalInfo(ctx context.Context, id string) (models.PersonalInfo, bool, error)

	// friends/{id}, requests/{id}, messages/{id}: created empty at
	// registration, mutated by list operations afterwards.
	InitUserDocs(ctx context.Context, id string) error
	ListAdd(ctx context.Context, coll, id, field, value string) error
	ListRemove(ctx context.Context, coll, id, field, value string) error
	GetList(ctx context.Context, coll, id, field string) ([]string, error)
	WatchList(ctx context.Context, coll, id, field string) (<-chan []string, func(), error)

	// messages/{owner}/{partner} thread records
	ChatPartners(ctx context.Context, id string) ([]string, error)
	AddChatPartner(ctx context.Context, id, partner string) error
	AppendMessage(ctx context.Context, owner, thread string, msg models.Message) error
	LatestMessages(ctx context.Context, owner, thread string, limit int) ([]models.Message, error)
	MessagesBefore(ctx context.Context, owner, thread string, before time.Time, limit int) ([]models.Message, error)
	SubscribeThread(ctx context.Context, owner, thread string) (<-chan models.Message, func(), error)
	BackfillFileName(ctx context.Context, owner, thread, dataURL, fileName string) error
}

// BlobStore uploads binary objects and returns their durable download URL.
type BlobStore interface {
	UploadBytes(ctx context.Context, data []byte, folder, key string) (string, error)
}
