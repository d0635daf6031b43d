package services

import (
	"context"
	"log"

	"github.com/pairlink/pairlink-backend/internal/models"
	"github.com/pairlink/pairlink-backend/internal/state"
)

// RelationshipEngine is the friend-request state machine for one logged-in
// user. It mirrors the current user's friends, sent and received lists into
// observables fed by live subscriptions, and issues the paired remote writes
// for every transition.
//
// Transitions are dual writes with no transaction across the two users'
// records: each sub-write is fire-and-forget, failures are logged, never
// retried and never rolled back. A crash between the two writes leaves a
// one-sided relationship that only a re-query of both sides can reveal.
type RelationshipEngine struct {
	store  Store
	selfID string

	friendsList  *state.Observable[[]string]
	sentList     *state.Observable[[]string]
	receivedList *state.Observable[[]string]

	cancels []func()
}

func NewRelationshipEngine(store Store, selfID string) *RelationshipEngine {
	return &RelationshipEngine{
		store:        store,
		selfID:       selfID,
		friendsList:  state.NewObservable[[]string](nil),
		sentList:     state.NewObservable[[]string](nil),
		receivedList: state.NewObservable[[]string](nil),
	}
}

// Start opens the three list subscriptions. Pushes keep the local copies
// current until Close.
func (e *RelationshipEngine) Start(ctx context.Context) error {
	watches := []struct {
		coll, field string
		dest        *state.Observable[[]string]
	}{
		{CollFriends, FieldFriends, e.friendsList},
		{CollRequests, FieldSent, e.sentList},
		{CollRequests, FieldReceived, e.receivedList},
	}

	for _, w := range watches {
		ch, cancel, err := e.store.WatchList(ctx, w.coll, e.selfID, w.field)
		if err != nil {
			e.Close()
			return err
		}
		e.cancels = append(e.cancels, cancel)

		dest := w.dest
		go func() {
			for list := range ch {
				dest.Set(list)
			}
		}()
	}
	return nil
}

// Close cancels the list subscriptions and empties the local copies.
func (e *RelationshipEngine) Close() {
	for _, cancel := range e.cancels {
		cancel()
	}
	e.cancels = nil
	e.friendsList.Set(nil)
	e.sentList.Set(nil)
	e.receivedList.Set(nil)
}

// Friends exposes the live friends list for the presentation layer.
func (e *RelationshipEngine) Friends() *state.Observable[[]string] { return e.friendsList }

// SentRequests exposes the live sent-requests list.
func (e *RelationshipEngine) SentRequests() *state.Observable[[]string] { return e.sentList }

// ReceivedRequests exposes the live received-requests list.
func (e *RelationshipEngine) ReceivedRequests() *state.Observable[[]string] { return e.receivedList }

// Classify derives the relationship with targetID from the current user's
// perspective. Pure read over the locally-cached lists; never queries the
// peer's side.
func (e *RelationshipEngine) Classify(targetID string) models.RelationshipState {
	switch {
	case contains(e.friendsList.Get(), targetID):
		return models.Friends
	case contains(e.receivedList.Get(), targetID):
		return models.Received
	case contains(e.sentList.Get(), targetID):
		return models.Sent
	default:
		return models.NotFriends
	}
}

// SendRequest adds targetID to self.sent and self to target.received.
func (e *RelationshipEngine) SendRequest(ctx context.Context, targetID string) {
	e.write(ctx, "SendRequest", func() error {
		return e.store.ListAdd(ctx, CollRequests, e.selfID, FieldSent, targetID)
	})
	e.write(ctx, "SendRequest", func() error {
		return e.store.ListAdd(ctx, CollRequests, targetID, FieldReceived, e.selfID)
	})
}

// CancelRequest is the inverse removal from the same two lists.
func (e *RelationshipEngine) CancelRequest(ctx context.Context, targetID string) {
	e.write(ctx, "CancelRequest", func() error {
		return e.store.ListRemove(ctx, CollRequests, e.selfID, FieldSent, targetID)
	})
	e.write(ctx, "CancelRequest", func() error {
		return e.store.ListRemove(ctx, CollRequests, targetID, FieldReceived, e.selfID)
	})
}

// AcceptRequest clears the pending request from both sides, then adds each
// user to the other's friends list. Four independent writes.
func (e *RelationshipEngine) AcceptRequest(ctx context.Context, targetID string) {
	e.write(ctx, "AcceptRequest", func() error {
		return e.store.ListRemove(ctx, CollRequests, e.selfID, FieldReceived, targetID)
	})
	e.write(ctx, "AcceptRequest", func() error {
		return e.store.ListRemove(ctx, CollRequests, targetID, FieldSent, e.selfID)
	})
	e.write(ctx, "AcceptRequest", func() error {
		return e.store.ListAdd(ctx, CollFriends, e.selfID, FieldFriends, targetID)
	})
	e.write(ctx, "AcceptRequest", func() error {
		return e.store.ListAdd(ctx, CollFriends, targetID, FieldFriends, e.selfID)
	})
}

// DeclineRequest clears the pending request from both sides only.
func (e *RelationshipEngine) DeclineRequest(ctx context.Context, targetID string) {
	e.write(ctx, "DeclineRequest", func() error {
		return e.store.ListRemove(ctx, CollRequests, e.selfID, FieldReceived, targetID)
	})
	e.write(ctx, "DeclineRequest", func() error {
		return e.store.ListRemove(ctx, CollRequests, targetID, FieldSent, e.selfID)
	})
}

// RemoveFriend removes each user from the other's friends list.
func (e *RelationshipEngine) RemoveFriend(ctx context.Context, targetID string) {
	e.write(ctx, "RemoveFriend", func() error {
		return e.store.ListRemove(ctx, CollFriends, e.selfID, FieldFriends, targetID)
	})
	e.write(ctx, "RemoveFriend", func() error {
		return e.store.ListRemove(ctx, CollFriends, targetID, FieldFriends, e.selfID)
	})
}

func (e *RelationshipEngine) write(ctx context.Context, op string, fn func() error) {
	if err := fn(); err != nil {
		log.Printf("%s -> %v", op, err)
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
