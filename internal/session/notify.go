package session

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ToastKind is the severity of a toast.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
)

// DefaultToastTTL is how long a toast stays visible.
const DefaultToastTTL = 3000 * time.Millisecond

// Toast is an ephemeral notification.
type Toast struct {
	ID        string        `json:"id"`
	Kind      ToastKind     `json:"kind"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}

// Notifier keeps the set of active toasts. Every toast removes itself after
// its TTL on its own timer.
type Notifier struct {
	mu      sync.Mutex
	seq     uint64
	ttl     time.Duration
	active  []Toast
	timers  map[string]*time.Timer
	closed  bool
	publish func(Event)
}

// NewNotifier creates a notifier with the given default TTL. publish may be nil.
func NewNotifier(ttl time.Duration, publish func(Event)) *Notifier {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	if publish == nil {
		publish = func(Event) {}
	}
	return &Notifier{
		ttl:     ttl,
		timers:  make(map[string]*time.Timer),
		publish: publish,
	}
}

// Notify shows a toast with the default TTL.
func (n *Notifier) Notify(kind ToastKind, text string) Toast {
	return n.NotifyFor(kind, text, n.ttl)
}

// NotifyFor shows a toast that expires after ttl. After Close the toast is
// returned but never shown.
func (n *Notifier) NotifyFor(kind ToastKind, text string, ttl time.Duration) Toast {
	if ttl <= 0 {
		ttl = n.ttl
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.seq++
	toast := Toast{
		ID:        fmt.Sprintf("%d-%s", n.seq, uuid.New().String()[:8]),
		Kind:      kind,
		Text:      text,
		CreatedAt: time.Now(),
		TTL:       ttl,
	}
	if n.closed {
		return toast
	}

	n.active = append(n.active, toast)
	id := toast.ID
	n.timers[id] = time.AfterFunc(ttl, func() { n.Dismiss(id) })
	n.publish(Event{Kind: EventToast, Toast: &toast})
	return toast
}

// Dismiss removes a toast. Unknown or already removed ids are ignored.
func (n *Notifier) Dismiss(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	i := slices.IndexFunc(n.active, func(t Toast) bool { return t.ID == id })
	if i < 0 {
		return
	}
	n.active = slices.Delete(n.active, i, i+1)
	if timer, ok := n.timers[id]; ok {
		timer.Stop()
		delete(n.timers, id)
	}
	n.publish(Event{Kind: EventToastExpired, ToastID: id})
}

// Active returns the live toasts, oldest first.
func (n *Notifier) Active() []Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.active)
}

// Close stops every pending expiry timer.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for id, timer := range n.timers {
		timer.Stop()
		delete(n.timers, id)
	}
}
