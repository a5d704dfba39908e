// Package events carries in-process notifications from the state store to
// its subscribers: the session guard, the notification dispatcher and the UI.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
)

// Kind identifies an event.
type Kind string

const (
	// StateLoaded fires after every full-state load, successful or not.
	StateLoaded Kind = "state.loaded"

	UserCreated     Kind = "user.created"
	UserApproved    Kind = "user.approved"
	UserDenied      Kind = "user.denied"
	BorrowRequested Kind = "borrow.requested"
	BorrowApproved  Kind = "borrow.approved"
	BorrowDenied    Kind = "borrow.denied"
	ReturnRequested Kind = "return.requested"
)

// Event is published after a committed state transition. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind Kind
	At   time.Time

	// StateLoaded
	Users []api.User
	Err   error

	// Domain events
	User         *api.User
	Log          *api.LogEntry
	Item         *api.Item
	Notification *api.Notification
	Admins       []api.User
}

// Handler receives events. Handlers run synchronously on the publisher's
// goroutine and must not block.
type Handler func(Event)

type subscription struct {
	id    uint64
	kinds map[Kind]struct{}
	fn    Handler
}

// Bus fans events out to subscribers in subscription order.
type Bus struct {
	mu   sync.RWMutex
	subs []subscription
	next uint64
	log  zerolog.Logger
}

// NewBus returns an empty bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{log: log.With().Str("component", "events").Logger()}
}

// Subscribe registers fn for the given kinds, or for every kind when none are
// given. The returned func removes the subscription.
func (b *Bus) Subscribe(fn Handler, kinds ...Kind) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	sub := subscription{id: b.next, fn: fn}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}
	b.subs = append(b.subs, sub)

	id := sub.id
	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// Publish delivers e to every matching subscriber. A panicking handler is
// logged and skipped; it never reaches the publisher.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.kinds != nil {
			if _, ok := sub.kinds[e.Kind]; !ok {
				continue
			}
		}
		b.deliver(sub.fn, e)
	}
}

func (b *Bus) deliver(fn Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Str("kind", string(e.Kind)).Interface("panic", r).Msg("event handler panicked")
		}
	}()
	fn(e)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}
