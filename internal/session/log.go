package session

import (
	"slices"
	"sync"

	"github.com/raphaelgruber/medilink-console/internal/models"
)

// Log is the append-only conversation log. Entries are never changed or
// reordered once appended; Reset starts a new conversation.
type Log struct {
	mu      sync.RWMutex
	entries []models.Message
	frozen  bool
	publish func(Event)
}

// NewLog creates an empty log. publish may be nil.
func NewLog(publish func(Event)) *Log {
	if publish == nil {
		publish = func(Event) {}
	}
	return &Log{publish: publish}
}

// Append adds msg at the end of the log. The entry is visible to every
// reader once Append returns. Appends to a frozen log are dropped.
func (l *Log) Append(msg models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.frozen {
		return
	}
	l.entries = append(l.entries, msg)
	l.publish(Event{Kind: EventMessage, Index: len(l.entries) - 1, Message: &msg})
}

// Snapshot returns a copy of the current entries.
func (l *Log) Snapshot() []models.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Reset clears the log for a new conversation.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.frozen {
		return
	}
	l.entries = nil
	l.publish(Event{Kind: EventReset})
}

// Freeze stops the log from accepting further entries.
func (l *Log) Freeze() {
	l.mu.Lock()
	l.frozen = true
	l.mu.Unlock()
}
