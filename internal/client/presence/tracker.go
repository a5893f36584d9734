package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
)

// DefaultWindow is the typing inactivity window.
const DefaultWindow = 2 * time.Second

type entry struct {
	online      bool
	lastSeen    time.Time
	typingUntil time.Time
	subscribed  bool
}

type Tracker struct {
	mu     sync.RWMutex
	clock  Clock
	window time.Duration
	states map[string]*entry
}

// NewTracker returns a Tracker whose remote typing indicators expire after
// window. A nil clock means RealClock.
func NewTracker(window time.Duration, clock Clock) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Tracker{clock: clock, window: window, states: make(map[string]*entry)}
}

// Subscribe opens a watch on key and reports whether it is new.
func (t *Tracker) Subscribe(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.states[key]
	if !ok {
		e = &entry{}
		t.states[key] = e
	}
	created := !e.subscribed
	e.subscribed = true
	return created
}

// Unsubscribe destroys the state of key.
func (t *Tracker) Unsubscribe(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, key)
}

// Reset destroys every state, e.g. on logout.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states = make(map[string]*entry)
}

// OnPresence applies an availability update. Going offline clears typing.
func (t *Tracker) OnPresence(key string, online bool, lastSeen time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entryLocked(key)
	e.online = online
	if online && lastSeen.IsZero() {
		lastSeen = t.clock.Now()
	}
	if lastSeen.After(e.lastSeen) {
		e.lastSeen = lastSeen
	}
	if !online {
		e.typingUntil = time.Time{}
	}
}

// OnTyping applies a typing start or stop. A start is valid for one window
// unless refreshed.
func (t *Tracker) OnTyping(key string, typing bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entryLocked(key)
	if !typing {
		e.typingUntil = time.Time{}
		return
	}
	now := t.clock.Now()
	e.typingUntil = now.Add(t.window)
	e.online = true
	e.lastSeen = now
}

// Lookup returns the current state of key.
func (t *Tracker) Lookup(key string) (models.PresenceState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.states[key]
	if !ok {
		return models.PresenceState{}, false
	}
	return models.PresenceState{
		Key:        key,
		Online:     e.online,
		LastSeenAt: e.lastSeen,
		Typing:     t.clock.Now().Before(e.typingUntil),
	}, true
}

// Subscribed lists the keys with an open watch, sorted.
func (t *Tracker) Subscribed() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	for k, e := range t.states {
		if e.subscribed {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (t *Tracker) entryLocked(key string) *entry {
	e, ok := t.states[key]
	if !ok {
		e = &entry{}
		t.states[key] = e
	}
	return e
}
