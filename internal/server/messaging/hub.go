package messaging

import (
	"sync"
	"time"
)

// Event is one push frame: {"type": ..., "payload": {...}}.
type Event = map[string]any

// Push event types understood by the client.
const (
	EventIncomingMessage = "incoming_message"
	EventStatusUpdate    = "message_status_update"
	EventMessageDeleted  = "message_deleted"
	EventPresence        = "presence"
	EventTypingStart     = "typing_start"
	EventTypingStop      = "typing_stop"
)

const subscriberBuffer = 64

func newEvent(kind string, payload map[string]any) Event {
	return Event{"type": kind, "payload": payload}
}

// Subscription receives the events published to one account.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	key    string
	hub    *Hub
	closed bool
}

// Hub fans events out to every live subscription of an account.
type Hub struct {
	mu       sync.Mutex
	subs     map[string]map[*Subscription]struct{}
	lastSeen map[string]time.Time
	now      func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		subs:     make(map[string]map[*Subscription]struct{}),
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Subscribe registers a subscription for key and reports whether it is the
// first one, i.e. the account just came online.
func (h *Hub) Subscribe(key string) (*Subscription, bool) {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{C: ch, ch: ch, key: key, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[key]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[key] = set
	}
	set[sub] = struct{}{}
	return sub, len(set) == 1
}

// Cancel removes sub and reports whether it was the last subscription of
// its account.
func (h *Hub) Cancel(sub *Subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub.closed {
		return false
	}
	sub.closed = true
	set := h.subs[sub.key]
	delete(set, sub)
	close(sub.ch)
	if len(set) > 0 {
		return false
	}
	delete(h.subs, sub.key)
	h.lastSeen[sub.key] = h.now()
	return true
}

// Publish delivers ev to every subscription of key and returns how many
// received it. Slow subscribers miss events rather than block publishers.
func (h *Hub) Publish(key string, ev Event) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for sub := range h.subs[key] {
		select {
		case sub.ch <- ev:
			n++
		default:
		}
	}
	return n
}

func (h *Hub) Online(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key]) > 0
}

// LastSeen is when key last went offline, zero if never seen.
func (h *Hub) LastSeen(key string) time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastSeen[key]
}
