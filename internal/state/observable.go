// Package state provides a minimal push-based observable value. It is the
// in-process analogue of the remote store's live subscriptions: engines write
// into observables and the presentation layer subscribes to them, with an
// explicit unsubscribe so a closed screen stops receiving pushes.
package state

import "sync"

// Observable holds a current value and fans out every update to its
// subscribers. Sends are non-blocking: a subscriber that stops draining its
// channel loses pushes instead of wedging the publisher.
type Observable[T any] struct {
	mu      sync.RWMutex
	value   T
	nextID  int
	subs    map[int]chan T
	bufSize int
}

// NewObservable creates an observable seeded with initial.
func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{
		value:   initial,
		subs:    make(map[int]chan T),
		bufSize: 16,
	}
}

// Get returns the current value.
func (o *Observable[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Set stores v and pushes it to every subscriber.
func (o *Observable[T]) Set(v T) {
	o.mu.Lock()
	o.value = v
	for _, ch := range o.subs {
		select {
		case ch <- v:
		default:
		}
	}
	o.mu.Unlock()
}

// Subscribe registers a listener. The returned channel immediately receives
// the current value, then every subsequent Set. The cancel func closes the
// channel and detaches the listener; it is safe to call more than once.
func (o *Observable[T]) Subscribe() (<-chan T, func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	ch := make(chan T, o.bufSize)
	ch <- o.value
	o.subs[id] = ch
	o.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			close(ch)
			o.mu.Unlock()
		})
	}
	return ch, cancel
}

// Subscribers returns the number of attached listeners.
func (o *Observable[T]) Subscribers() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs)
}
