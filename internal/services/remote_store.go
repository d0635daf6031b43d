package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/pairlink/pairlink-backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Redis channel layout. One channel per watched document and one per mailbox
// thread; writers publish after the Mongo write succeeds, watchers re-read
// the document on every notification so each push delivers a full snapshot.
const (
	usersChannel      = "pairlink:users"
	listChannelPrefix = "pairlink:list:"
	threadChanPrefix  = "pairlink:thread:"
)

func listChannel(coll, id string) string {
	return listChannelPrefix + coll + ":" + id
}

func threadChannel(owner, thread string) string {
	return threadChanPrefix + owner + ":" + thread
}

// RemoteStore implements Store on MongoDB (documents) and Redis pub/sub
// (live subscriptions).
type RemoteStore struct {
	db  *mongo.Database
	rdb *redis.Client
}

func NewRemoteStore(db *mongo.Database, rdb *redis.Client) *RemoteStore {
	return &RemoteStore{db: db, rdb: rdb}
}

// EnsureIndexes configures the userMessages compound index used by the
// descending thread queries. Called on startup from main after Mongo has
// connected.
func (s *RemoteStore) EnsureIndexes(ctx context.Context) error {
	col := s.db.Collection(CollUserMessages)

	model := mongo.IndexModel{
		Keys: bson.D{
			{Key: "owner", Value: 1},
			{Key: "thread", Value: 1},
			{Key: "date", Value: -1},
		},
		Options: options.Index().SetName("idx_owner_thread_date"),
	}
	if _, err := col.Indexes().CreateOne(ctx, model); err != nil {
		return err
	}
	return nil
}

func transport(err error) error {
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// --- users ---

func (s *RemoteStore) SaveUser(ctx context.Context, user models.User) error {
	_, err := s.db.Collection(CollUsers).ReplaceOne(ctx,
		bson.M{"_id": user.ID},
		bson.M{"_id": user.ID, "id": user.ID, "username": user.Username, "imageUrl": user.ImageURL, "userStatues": user.Status},
		options.Replace().SetUpsert(true))
	if err != nil {
		return transport(err)
	}
	s.publish(ctx, usersChannel)
	return nil
}

func (s *RemoteStore) GetUser(ctx context.Context, id string) (models.User, bool, error) {
	var user models.User
	err := s.db.Collection(CollUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, transport(err)
	}
	return user, true, nil
}

func (s *RemoteStore) UpdateUserStatus(ctx context.Context, id, status string) error {
	_, err := s.db.Collection(CollUsers).UpdateOne(ctx,
		bson.M{"_id": id}, bson.M{"$set": bson.M{"userStatues": status}})
	if err != nil {
		return transport(err)
	}
	s.publish(ctx, usersChannel)
	return nil
}

func (s *RemoteStore) UsersByID(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.db.Collection(CollUsers).Find(ctx, bson.M{"id": bson.M{"$in": ids}})
	if err != nil {
		return nil, transport(err)
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, transport(err)
	}
	return users, nil
}

func (s *RemoteStore) AllUsers(ctx context.Context) ([]models.User, error) {
	cur, err := s.db.Collection(CollUsers).Find(ctx, bson.M{})
	if err != nil {
		return nil, transport(err)
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, transport(err)
	}
	return users, nil
}

func (s *RemoteStore) WatchUsers(ctx context.Context) (<-chan []models.User, func(), error) {
	out := make(chan []models.User, 8)

	users, err := s.AllUsers(ctx)
	if err != nil {
		return nil, nil, err
	}
	out <- users

	cancel := s.watch(ctx, usersChannel, func(ctx context.Context) {
		users, err := s.AllUsers(ctx)
		if err != nil {
			log.Printf("WatchUsers -> %v", err)
			return
		}
		select {
		case out <- users:
		default:
		}
	}, func() { close(out) })
	return out, cancel, nil
}

// --- personal info ---

func (s *RemoteStore) SavePersonalInfo(ctx context.Context, info models.PersonalInfo) error {
	_, err := s.db.Collection(CollPersonalInfo).ReplaceOne(ctx,
		bson.M{"_id": info.ID},
		bson.M{"_id": info.ID, "id": info.ID, "firstName": info.FirstName, "lastName": info.LastName, "gender": info.Gender},
		options.Replace().SetUpsert(true))
	if err != nil {
		return transport(err)
	}
	return nil
}

func (s *RemoteStore) GetPersonalInfo(ctx context.Context, id string) (models.PersonalInfo, bool, error) {
	var info models.PersonalInfo
	err := s.db.Collection(CollPersonalInfo).FindOne(ctx, bson.M{"_id": id}).Decode(&info)
	if err == mongo.ErrNoDocuments {
		return models.PersonalInfo{}, false, nil
	}
	if err != nil {
		return models.PersonalInfo{}, false, transport(err)
	}
	return info, true, nil
}

// --- relationship lists and chat list ---

// InitUserDocs creates the empty relationship and chat-list documents written
// once at registration.
func (s *RemoteStore) InitUserDocs(ctx context.Context, id string) error {
	docs := []struct {
		coll string
		doc  bson.M
	}{
		{CollFriends, bson.M{"_id": id, FieldFriends: []string{}}},
		{CollRequests, bson.M{"_id": id, FieldSent: []string{}, FieldReceived: []string{}}},
		{CollMessages, bson.M{"_id": id, FieldChatList: []string{}}},
	}
	for _, d := range docs {
		_, err := s.db.Collection(d.coll).ReplaceOne(ctx,
			bson.M{"_id": id}, d.doc, options.Replace().SetUpsert(true))
		if err != nil {
			return transport(err)
		}
	}
	return nil
}

func (s *RemoteStore) ListAdd(ctx context.Context, coll, id, field, value string) error {
	_, err := s.db.Collection(coll).UpdateOne(ctx,
		bson.M{"_id": id}, bson.M{"$addToSet": bson.M{field: value}})
	if err != nil {
		return transport(err)
	}
	s.publish(ctx, listChannel(coll, id))
	return nil
}

func (s *RemoteStore) ListRemove(ctx context.Context, coll, id, field, value string) error {
	_, err := s.db.Collection(coll).UpdateOne(ctx,
		bson.M{"_id": id}, bson.M{"$pull": bson.M{field: value}})
	if err != nil {
		return transport(err)
	}
	s.publish(ctx, listChannel(coll, id))
	return nil
}

func (s *RemoteStore) GetList(ctx context.Context, coll, id, field string) ([]string, error) {
	var doc bson.M
	err := s.db.Collection(coll).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, coll, id)
	}
	if err != nil {
		return nil, transport(err)
	}
	return stringList(doc[field]), nil
}

func (s *RemoteStore) WatchList(ctx context.Context, coll, id, field string) (<-chan []string, func(), error) {
	out := make(chan []string, 8)

	list, err := s.GetList(ctx, coll, id, field)
	if err != nil {
		return nil, nil, err
	}
	out <- list

	cancel := s.watch(ctx, listChannel(coll, id), func(ctx context.Context) {
		list, err := s.GetList(ctx, coll, id, field)
		if err != nil {
			log.Printf("WatchList -> %s/%s -> %v", coll, id, err)
			return
		}
		select {
		case out <- list:
		default:
		}
	}, func() { close(out) })
	return out, cancel, nil
}

// --- mailboxes ---

func (s *RemoteStore) ChatPartners(ctx context.Context, id string) ([]string, error) {
	return s.GetList(ctx, CollMessages, id, FieldChatList)
}

// AddChatPartner unions partner into id's chat list. The upsert tolerates
// concurrent handshakes from either side of a first exchange.
func (s *RemoteStore) AddChatPartner(ctx context.Context, id, partner string) error {
	_, err := s.db.Collection(CollMessages).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{FieldChatList: partner}},
		options.Update().SetUpsert(true))
	if err != nil {
		return transport(err)
	}
	s.publish(ctx, listChannel(CollMessages, id))
	return nil
}

// AppendMessage inserts one mailbox record, then publishes it to the thread
// channel so live subscribers receive it as a push.
func (s *RemoteStore) AppendMessage(ctx context.Context, owner, thread string, msg models.Message) error {
	doc := bson.M{
		"owner": owner, "thread": thread,
		"from": msg.From, "to": msg.To, "type": msg.Type, "data": msg.Data, "date": msg.Date,
	}
	if msg.FileName != "" {
		doc["fileName"] = msg.FileName
	}
	if _, err := s.db.Collection(CollUserMessages).InsertOne(ctx, doc); err != nil {
		return transport(err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := s.rdb.Publish(ctx, threadChannel(owner, thread), payload).Err(); err != nil {
		log.Printf("AppendMessage -> publish -> %v", err)
	}
	return nil
}

func (s *RemoteStore) threadQuery(ctx context.Context, filter bson.M, limit int) ([]models.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.db.Collection(CollUserMessages).Find(ctx, filter, opts)
	if err != nil {
		return nil, transport(err)
	}
	defer cur.Close(ctx)

	var msgs []models.Message
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	if err := cur.Err(); err != nil {
		return nil, transport(err)
	}
	return msgs, nil
}

func (s *RemoteStore) LatestMessages(ctx context.Context, owner, thread string, limit int) ([]models.Message, error) {
	return s.threadQuery(ctx, bson.M{"owner": owner, "thread": thread}, limit)
}

func (s *RemoteStore) MessagesBefore(ctx context.Context, owner, thread string, before time.Time, limit int) ([]models.Message, error) {
	filter := bson.M{"owner": owner, "thread": thread, "date": bson.M{"$lt": before.UTC()}}
	return s.threadQuery(ctx, filter, limit)
}

func (s *RemoteStore) SubscribeThread(ctx context.Context, owner, thread string) (<-chan models.Message, func(), error) {
	out := make(chan models.Message, 32)

	cancel := s.watchPayload(ctx, threadChannel(owner, thread), func(payload string) {
		var msg models.Message
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			log.Printf("SubscribeThread -> unmarshal -> %v", err)
			return
		}
		select {
		case out <- msg:
		default:
		}
	}, func() { close(out) })
	return out, cancel, nil
}

// BackfillFileName sets fileName on the single own-mailbox record matching
// the photo's download URL. More or fewer than one match leaves everything
// untouched, mirroring the cautious original behavior.
func (s *RemoteStore) BackfillFileName(ctx context.Context, owner, thread, dataURL, fileName string) error {
	filter := bson.M{"owner": owner, "thread": thread, "data": dataURL}

	n, err := s.db.Collection(CollUserMessages).CountDocuments(ctx, filter)
	if err != nil {
		return transport(err)
	}
	if n != 1 {
		return nil
	}
	_, err = s.db.Collection(CollUserMessages).UpdateOne(ctx, filter,
		bson.M{"$set": bson.M{"fileName": fileName}})
	if err != nil {
		return transport(err)
	}
	return nil
}

// --- pub/sub plumbing ---

func (s *RemoteStore) publish(ctx context.Context, channel string) {
	if err := s.rdb.Publish(ctx, channel, "1").Err(); err != nil {
		log.Printf("publish -> %s -> %v", channel, err)
	}
}

// watch subscribes to channel and runs onEvent for each notification until
// the returned cancel fires. onClose runs once when the subscriber goroutine
// exits; callers use it to close their outbound channel so fan-in loops
// draining it terminate instead of blocking forever.
func (s *RemoteStore) watch(ctx context.Context, channel string, onEvent func(context.Context), onClose func()) func() {
	return s.watchPayload(ctx, channel, func(string) { onEvent(ctx) }, onClose)
}

func (s *RemoteStore) watchPayload(ctx context.Context, channel string, onEvent func(payload string), onClose func()) func() {
	subCtx, cancel := context.WithCancel(ctx)
	pubsub := s.rdb.Subscribe(subCtx, channel)

	go func() {
		defer onClose()
		defer pubsub.Close()
		for {
			msg, err := pubsub.ReceiveMessage(subCtx)
			if err != nil {
				return
			}
			onEvent(msg.Payload)
		}
	}()

	return func() {
		cancel()
	}
}

func stringList(v interface{}) []string {
	switch list := v.(type) {
	case bson.A:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return list
	default:
		return nil
	}
}
