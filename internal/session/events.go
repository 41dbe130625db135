package session

import (
	"sync"

	"github.com/raphaelgruber/medilink-console/internal/models"
)

// EventKind identifies what changed in a session.
type EventKind string

const (
	EventMessage      EventKind = "message"
	EventReset        EventKind = "reset"
	EventToast        EventKind = "toast"
	EventToastExpired EventKind = "toast_expired"
	EventState        EventKind = "state"
)

// Event is a change notification published to subscribers.
type Event struct {
	Kind EventKind `json:"kind"`

	// Index is the log position of Message.
	Index   int             `json:"index,omitempty"`
	Message *models.Message `json:"message,omitempty"`
	Toast   *Toast          `json:"toast,omitempty"`
	ToastID string          `json:"toast_id,omitempty"`
	State   *State          `json:"state,omitempty"`
}

// subscriberBuffer is the per-subscriber queue length. Slow subscribers
// lose events rather than stall the session.
const subscriberBuffer = 128

// bus fans events out to subscribers.
type bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	closed bool
}

func newBus() *bus {
	return &bus{subs: make(map[int]chan Event)}
}

func (b *bus) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

func (b *bus) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *bus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
