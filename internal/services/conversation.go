package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pairlink/pairlink-backend/internal/models"
	"github.com/pairlink/pairlink-backend/internal/state"
)

// PageSize is the thread page length, fixed by the stored-query contract.
const PageSize = 20

type cursorState int

const (
	cursorUnstarted cursorState = iota
	cursorActive
	cursorExhausted
)

// conversation is the per-partner pagination state: the cursor (date of the
// last fetched record in descending order) and the live subscriptions opened
// so far. ResetCursor discards the cursor only; subscriptions accumulate one
// per page ever opened and are torn down together on Close. That accumulation
// is a known leak surface, and a message arriving while several page
// subscriptions are live is appended once per subscription.
type conversation struct {
	state   cursorState
	cursor  time.Time
	cancels []func()
}

// ConversationEngine synchronizes one user's conversations: mailbox-duplicated
// sends, cursor-based paginated reads with live pushes, and chat-list
// maintenance. It owns the session's append-only in-memory message list; the
// list is not designed for mutation from outside the owning session.
type ConversationEngine struct {
	store  Store
	selfID string

	mu       sync.Mutex
	convos   map[string]*conversation
	messages *state.Observable[[]models.Message]
	chatList *state.Observable[[]string]
}

func NewConversationEngine(store Store, selfID string) *ConversationEngine {
	return &ConversationEngine{
		store:    store,
		selfID:   selfID,
		convos:   make(map[string]*conversation),
		messages: state.NewObservable[[]models.Message](nil),
		chatList: state.NewObservable[[]string](nil),
	}
}

// Messages exposes the append-only local message list.
func (e *ConversationEngine) Messages() *state.Observable[[]models.Message] { return e.messages }

// ChatListIDs exposes the locally-cached chat list.
func (e *ConversationEngine) ChatListIDs() *state.Observable[[]string] { return e.chatList }

// SendMessage delivers msg by mailbox duplication: one record under the
// sender's mailbox, one under the recipient's, written concurrently and both
// joined before success is reported. The very first message between two users
// triggers the handshake that initializes both chat lists.
//
// Photo messages must already carry their uploaded download URL in Data;
// device-local URIs never reach the store.
func (e *ConversationEngine) SendMessage(ctx context.Context, msg models.Message) error {
	first, err := e.firstExchange(ctx, msg.To)
	if err != nil {
		return err
	}
	if first {
		e.handshake(ctx, msg.From, msg.To)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)

	writes := []struct {
		owner, thread string
	}{
		{msg.From, msg.To},
		{msg.To, msg.From},
	}
	for i, w := range writes {
		wg.Add(1)
		go func(i int, owner, thread string) {
			defer wg.Done()
			errs[i] = e.store.AppendMessage(ctx, owner, thread, msg)
		}(i, w.owner, w.thread)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

// firstExchange reports whether no prior exchange exists between the current
// user and partner, by testing the partner's membership in the local mailbox's
// chat list.
func (e *ConversationEngine) firstExchange(ctx context.Context, partner string) (bool, error) {
	partners, err := e.store.ChatPartners(ctx, e.selfID)
	if err != nil {
		return false, err
	}
	return !contains(partners, partner), nil
}

// handshake initializes both chat lists with each other's id. Union
// semantics, not overwrite, so concurrent initializations from either side
// converge. Failures are logged; the message write proceeds regardless.
func (e *ConversationEngine) handshake(ctx context.Context, from, to string) {
	if err := e.store.AddChatPartner(ctx, from, to); err != nil {
		log.Printf("handshake -> %v", err)
	}
	if err := e.store.AddChatPartner(ctx, to, from); err != nil {
		log.Printf("handshake -> %v", err)
	}
	e.refreshChatList(ctx)
}

func (e *ConversationEngine) refreshChatList(ctx context.Context) {
	partners, err := e.store.ChatPartners(ctx, e.selfID)
	if err != nil {
		log.Printf("refreshChatList -> %v", err)
		return
	}
	e.chatList.Set(partners)
}

// FetchPage advances the conversation with partnerID by one page.
//
// The first call opens a live subscription seeded with the most recent
// PageSize records in descending timestamp order. Later calls issue a
// one-shot descending query strictly after the cursor, and install another
// live subscription going forward. Every delivery appends to the in-memory
// list (no dedup) and advances the cursor to the last delivered record.
//
// Without a handshake record the call is a no-op: no thread query is issued.
// A page shorter than PageSize marks the conversation exhausted for older
// history; live pushes continue.
func (e *ConversationEngine) FetchPage(ctx context.Context, partnerID string) error {
	first, err := e.firstExchange(ctx, partnerID)
	if err != nil {
		return err
	}
	if first {
		log.Printf("FetchPage -> %s -> no handshake, list finished", partnerID)
		return nil
	}

	e.mu.Lock()
	convo, ok := e.convos[partnerID]
	if !ok {
		convo = &conversation{}
		e.convos[partnerID] = convo
	}
	st := convo.state
	cursor := convo.cursor
	e.mu.Unlock()

	if st == cursorExhausted {
		return nil
	}

	var page []models.Message
	switch st {
	case cursorUnstarted:
		page, err = e.store.LatestMessages(ctx, e.selfID, partnerID, PageSize)
	case cursorActive:
		page, err = e.store.MessagesBefore(ctx, e.selfID, partnerID, cursor, PageSize)
	}
	if err != nil {
		return err
	}

	e.append(partnerID, page, len(page) < PageSize)
	e.subscribe(ctx, partnerID, convo)
	return nil
}

// append adds page to the local list and advances the conversation cursor.
func (e *ConversationEngine) append(partnerID string, page []models.Message, short bool) {
	e.mu.Lock()
	convo := e.convos[partnerID]
	if len(page) > 0 {
		convo.cursor = page[len(page)-1].Date
		convo.state = cursorActive
	}
	if short {
		convo.state = cursorExhausted
	}
	if len(page) > 0 {
		e.messages.Set(append(e.messages.Get(), page...))
	}
	e.mu.Unlock()
}

// subscribe installs one more live subscription for the conversation. Pushes
// append to the list and advance the cursor to the pushed record.
func (e *ConversationEngine) subscribe(ctx context.Context, partnerID string, convo *conversation) {
	ch, cancel, err := e.store.SubscribeThread(ctx, e.selfID, partnerID)
	if err != nil {
		log.Printf("subscribe -> %s -> %v", partnerID, err)
		return
	}

	e.mu.Lock()
	convo.cancels = append(convo.cancels, cancel)
	e.mu.Unlock()

	go func() {
		for msg := range ch {
			e.mu.Lock()
			convo.cursor = msg.Date
			if convo.state == cursorUnstarted {
				convo.state = cursorActive
			}
			e.messages.Set(append(e.messages.Get(), msg))
			e.mu.Unlock()
		}
	}()
}

// ResetCursor discards the pagination cursor for the conversation. Live
// subscriptions from prior pages are left running; only Close tears them
// down.
func (e *ConversationEngine) ResetCursor(partnerID string) {
	e.mu.Lock()
	if convo, ok := e.convos[partnerID]; ok {
		convo.state = cursorUnstarted
		convo.cursor = time.Time{}
	}
	e.mu.Unlock()
}

// ResetMessages empties the local message list, typically when the
// conversation view closes.
func (e *ConversationEngine) ResetMessages() {
	e.mu.Lock()
	e.messages.Set(nil)
	e.mu.Unlock()
}

// ChatList resolves the chat-partner ids to their user records.
func (e *ConversationEngine) ChatList(ctx context.Context) ([]models.User, error) {
	partners, err := e.store.ChatPartners(ctx, e.selfID)
	if err != nil {
		return nil, err
	}
	e.chatList.Set(partners)
	return e.store.UsersByID(ctx, partners)
}

// Close cancels every accumulated subscription. Session teardown calls this;
// individual screens closing earlier remain responsible for their own feeds.
func (e *ConversationEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, convo := range e.convos {
		for _, cancel := range convo.cancels {
			cancel()
		}
		convo.cancels = nil
	}
	e.convos = make(map[string]*conversation)
}
