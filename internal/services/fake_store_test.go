package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pairlink/pairlink-backend/internal/models"
)

// fakeStore is an in-memory Store with the same push semantics as the remote
// one: list mutations notify WatchList subscribers with a fresh snapshot,
// AppendMessage notifies SubscribeThread subscribers with the record.
type fakeStore struct {
	mu sync.Mutex

	users    map[string]models.User
	personal map[string]models.PersonalInfo
	lists    map[string][]string          // coll|id|field
	chat     map[string][]string          // id -> partner ids
	mail     map[string][]models.Message  // owner|thread
	listSubs map[string][]chan []string   // coll|id|field
	mailSubs map[string][]chan models.Message

	// listAddErr, when set, is consulted before every ListAdd and lets a
	// test fail one sub-write of a dual write.
	listAddErr    func(coll, id, field, value string) error
	listRemoveErr func(coll, id, field, value string) error
	appendErr     func(owner, thread string) error

	threadQueries   int
	handshakeWrites int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]models.User),
		personal: make(map[string]models.PersonalInfo),
		lists:    make(map[string][]string),
		chat:     make(map[string][]string),
		mail:     make(map[string][]models.Message),
		listSubs: make(map[string][]chan []string),
		mailSubs: make(map[string][]chan models.Message),
	}
}

func listKey(coll, id, field string) string { return coll + "|" + id + "|" + field }
func mailKey(owner, thread string) string   { return owner + "|" + thread }

func (s *fakeStore) SaveUser(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *fakeStore) GetUser(ctx context.Context, id string) (models.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *fakeStore) UpdateUserStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	u.Status = status
	s.users[id] = u
	return nil
}

func (s *fakeStore) UsersByID(ctx context.Context, ids []string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *fakeStore) AllUsers(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *fakeStore) WatchUsers(ctx context.Context) (<-chan []models.User, func(), error) {
	users, _ := s.AllUsers(ctx)
	ch := make(chan []models.User, 16)
	ch <- users
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }, nil
}

func (s *fakeStore) SavePersonalInfo(ctx context.Context, info models.PersonalInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personal[info.ID] = info
	return nil
}

func (s *fakeStore) GetPersonalInfo(ctx context.Context, id string) (models.PersonalInfo, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.personal[id]
	return info, ok, nil
}

func (s *fakeStore) InitUserDocs(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range []string{
		listKey(CollFriends, id, FieldFriends),
		listKey(CollRequests, id, FieldSent),
		listKey(CollRequests, id, FieldReceived),
	} {
		if _, ok := s.lists[key]; !ok {
			s.lists[key] = nil
		}
	}
	if _, ok := s.chat[id]; !ok {
		s.chat[id] = nil
	}
	return nil
}

func (s *fakeStore) ListAdd(ctx context.Context, coll, id, field, value string) error {
	if s.listAddErr != nil {
		if err := s.listAddErr(coll, id, field, value); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := listKey(coll, id, field)
	if !contains(s.lists[key], value) {
		s.lists[key] = append(s.lists[key], value)
	}
	s.notifyList(key)
	return nil
}

func (s *fakeStore) ListRemove(ctx context.Context, coll, id, field, value string) error {
	if s.listRemoveErr != nil {
		if err := s.listRemoveErr(coll, id, field, value); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := listKey(coll, id, field)
	var kept []string
	for _, v := range s.lists[key] {
		if v != value {
			kept = append(kept, v)
		}
	}
	s.lists[key] = kept
	s.notifyList(key)
	return nil
}

// notifyList pushes the current snapshot to every watcher of key. Callers
// hold s.mu, which also serializes against a concurrent cancel closing a
// channel.
func (s *fakeStore) notifyList(key string) {
	snapshot := append([]string(nil), s.lists[key]...)
	for _, ch := range s.listSubs[key] {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func (s *fakeStore) GetList(ctx context.Context, coll, id, field string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lists[listKey(coll, id, field)]...), nil
}

func (s *fakeStore) WatchList(ctx context.Context, coll, id, field string) (<-chan []string, func(), error) {
	s.mu.Lock()
	key := listKey(coll, id, field)
	ch := make(chan []string, 64)
	ch <- append([]string(nil), s.lists[key]...)
	s.listSubs[key] = append(s.listSubs[key], ch)
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			s.listSubs[key] = dropListChan(s.listSubs[key], ch)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, cancel, nil
}

func (s *fakeStore) ChatPartners(ctx context.Context, id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.chat[id]...), nil
}

func (s *fakeStore) AddChatPartner(ctx context.Context, id, partner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handshakeWrites++
	if !contains(s.chat[id], partner) {
		s.chat[id] = append(s.chat[id], partner)
	}
	return nil
}

func (s *fakeStore) AppendMessage(ctx context.Context, owner, thread string, msg models.Message) error {
	if s.appendErr != nil {
		if err := s.appendErr(owner, thread); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := mailKey(owner, thread)
	s.mail[key] = append(s.mail[key], msg)
	for _, ch := range s.mailSubs[key] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// threadPage returns records descending by date, strictly older than before
// when before is non-zero.
func (s *fakeStore) threadPage(owner, thread string, before time.Time, limit int) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadQueries++

	all := append([]models.Message(nil), s.mail[mailKey(owner, thread)]...)
	sort.Slice(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })

	var out []models.Message
	for _, m := range all {
		if !before.IsZero() && !m.Date.Before(before) {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (s *fakeStore) LatestMessages(ctx context.Context, owner, thread string, limit int) ([]models.Message, error) {
	return s.threadPage(owner, thread, time.Time{}, limit), nil
}

func (s *fakeStore) MessagesBefore(ctx context.Context, owner, thread string, before time.Time, limit int) ([]models.Message, error) {
	return s.threadPage(owner, thread, before, limit), nil
}

func (s *fakeStore) SubscribeThread(ctx context.Context, owner, thread string) (<-chan models.Message, func(), error) {
	s.mu.Lock()
	key := mailKey(owner, thread)
	ch := make(chan models.Message, 64)
	s.mailSubs[key] = append(s.mailSubs[key], ch)
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			s.mailSubs[key] = dropMsgChan(s.mailSubs[key], ch)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, cancel, nil
}

func (s *fakeStore) BackfillFileName(ctx context.Context, owner, thread, dataURL, fileName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := mailKey(owner, thread)
	for i, m := range s.mail[key] {
		if m.Data == dataURL {
			s.mail[key][i].FileName = fileName
			return nil
		}
	}
	return ErrNotFound
}

func (s *fakeStore) mailbox(owner, thread string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.mail[mailKey(owner, thread)]...)
}

func (s *fakeStore) list(coll, id, field string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lists[listKey(coll, id, field)]...)
}

func (s *fakeStore) queryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadQueries
}

func dropListChan(subs []chan []string, ch chan []string) []chan []string {
	var kept []chan []string
	for _, c := range subs {
		if c != ch {
			kept = append(kept, c)
		}
	}
	return kept
}

func dropMsgChan(subs []chan models.Message, ch chan models.Message) []chan models.Message {
	var kept []chan models.Message
	for _, c := range subs {
		if c != ch {
			kept = append(kept, c)
		}
	}
	return kept
}
