package activity

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentboard/agentboard/internal/events"
)

// Kind is the severity of an activity entry.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Default bounds for the log.
const (
	DefaultMaxItems     = 100
	DefaultMaxProcessed = 1000
)

// Item is one human-readable line in the activity feed.
type Item struct {
	ID        string      `json:"id"`
	Kind      Kind        `json:"type"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	EventType events.Type `json:"eventType,omitempty"`
	AgentID   string      `json:"agentId,omitempty"`
	IssueID   string      `json:"issueId,omitempty"`
}

// Log is the bounded, newest-first activity feed together with the set of
// event ids already processed. Both are reset together by Clear.
type Log struct {
	mu           sync.Mutex
	maxItems     int
	maxProcessed int
	items        []Item
	processed    map[string]struct{}
	order        []string // processed ids, oldest first
	listeners    []func(Item)
	now          func() time.Time
}

// NewLog creates a log bounded at maxItems entries and maxProcessed
// remembered event ids. Non-positive bounds select the defaults.
func NewLog(maxItems, maxProcessed int) *Log {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if maxProcessed <= 0 {
		maxProcessed = DefaultMaxProcessed
	}
	return &Log{
		maxItems:     maxItems,
		maxProcessed: maxProcessed,
		processed:    make(map[string]struct{}),
		now:          time.Now,
	}
}

// OnAdd registers a listener called (outside the lock) for every new entry.
func (l *Log) OnAdd(fn func(Item)) {
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

// Add prepends an entry, filling in its id and timestamp when unset, and
// drops the oldest entries beyond the bound.
func (l *Log) Add(item Item) Item {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Kind == "" {
		item.Kind = KindInfo
	}

	l.mu.Lock()
	if item.Timestamp.IsZero() {
		item.Timestamp = l.now()
	}
	items := make([]Item, 0, min(len(l.items)+1, l.maxItems))
	items = append(items, item)
	for _, it := range l.items {
		if len(items) == l.maxItems {
			break
		}
		items = append(items, it)
	}
	l.items = items
	listeners := l.listeners
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(item)
	}
	return item
}

// Addf is Add for a plain message.
func (l *Log) Addf(kind Kind, format string, args ...any) Item {
	return l.Add(Item{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Seen reports whether the event id has already been processed.
func (l *Log) Seen(eventID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.processed[eventID]
	return ok
}

// ProcessEvent records an envelope in the feed and marks its id processed.
// It returns false, doing nothing, when the id was already processed.
func (l *Log) ProcessEvent(env events.Envelope) bool {
	l.mu.Lock()
	if _, ok := l.processed[env.EventID]; ok {
		l.mu.Unlock()
		return false
	}
	l.markLocked(env.EventID)
	l.mu.Unlock()

	kind, msg := Describe(env)
	l.Add(Item{
		Kind:      kind,
		Message:   msg,
		Timestamp: env.Timestamp,
		EventType: env.EventType,
		AgentID:   env.AgentID,
		IssueID:   env.IssueID,
	})
	return true
}

func (l *Log) markLocked(id string) {
	l.processed[id] = struct{}{}
	l.order = append(l.order, id)
	if len(l.order) <= l.maxProcessed {
		return
	}
	drop := len(l.order) / 2
	for _, old := range l.order[:drop] {
		delete(l.processed, old)
	}
	l.order = append([]string(nil), l.order[drop:]...)
}

// Items returns a copy of the feed, newest first.
func (l *Log) Items() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Item(nil), l.items...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// ProcessedCount returns the number of remembered event ids.
func (l *Log) ProcessedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.processed)
}

// Clear empties the feed and forgets every processed id.
func (l *Log) Clear() {
	l.mu.Lock()
	l.items = nil
	l.processed = make(map[string]struct{})
	l.order = nil
	l.mu.Unlock()
}
