package presence

import (
	"sync"
	"time"
)

type burst struct {
	timer Timer
	gen   uint64
}

// TypingNotifier debounces local typing: one emit(key, true) per burst of
// Input calls, then emit(key, false) once window passes without input.
// emit must not block; it is called without internal locks held.
type TypingNotifier struct {
	mu     sync.Mutex
	clock  Clock
	window time.Duration
	emit   func(key string, typing bool)
	active map[string]*burst
	gen    uint64
}

func NewTypingNotifier(window time.Duration, clock Clock, emit func(key string, typing bool)) *TypingNotifier {
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &TypingNotifier{clock: clock, window: window, emit: emit, active: make(map[string]*burst)}
}

// Input registers a keystroke in the conversation key.
func (n *TypingNotifier) Input(key string) {
	n.mu.Lock()
	b, ok := n.active[key]
	if ok {
		b.timer.Stop()
	} else {
		b = &burst{}
		n.active[key] = b
	}
	n.gen++
	gen := n.gen
	b.gen = gen
	b.timer = n.clock.AfterFunc(n.window, func() { n.expire(key, gen) })
	n.mu.Unlock()

	if !ok {
		n.emit(key, true)
	}
}

// Stop ends the burst of key immediately (e.g. the message was sent).
func (n *TypingNotifier) Stop(key string) {
	n.mu.Lock()
	b, ok := n.active[key]
	if ok {
		b.timer.Stop()
		delete(n.active, key)
	}
	n.mu.Unlock()

	if ok {
		n.emit(key, false)
	}
}

// StopAll ends every burst.
func (n *TypingNotifier) StopAll() {
	n.mu.Lock()
	keys := make([]string, 0, len(n.active))
	for k, b := range n.active {
		b.timer.Stop()
		keys = append(keys, k)
	}
	n.active = make(map[string]*burst)
	n.mu.Unlock()

	for _, k := range keys {
		n.emit(k, false)
	}
}

// Active reports whether a burst is in progress for key.
func (n *TypingNotifier) Active(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.active[key]
	return ok
}

func (n *TypingNotifier) expire(key string, gen uint64) {
	n.mu.Lock()
	b, ok := n.active[key]
	if !ok || b.gen != gen {
		n.mu.Unlock()
		return
	}
	delete(n.active, key)
	n.mu.Unlock()

	n.emit(key, false)
}
