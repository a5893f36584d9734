package presence

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock fires timers only when advanced.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func TestTracker_SubscribeLifecycle(t *testing.T) {
	tr := NewTracker(2*time.Second, newManualClock())

	_, ok := tr.Lookup("k")
	assert.False(t, ok)

	assert.True(t, tr.Subscribe("k"))
	assert.False(t, tr.Subscribe("k"))

	st, ok := tr.Lookup("k")
	require.True(t, ok)
	assert.False(t, st.Online)
	assert.False(t, st.Typing)
	assert.Equal(t, []string{"k"}, tr.Subscribed())

	tr.Unsubscribe("k")
	_, ok = tr.Lookup("k")
	assert.False(t, ok)
	assert.Empty(t, tr.Subscribed())
}

func TestTracker_TypingExpires(t *testing.T) {
	clk := newManualClock()
	tr := NewTracker(2*time.Second, clk)
	tr.Subscribe("k")

	tr.OnTyping("k", true)
	st, _ := tr.Lookup("k")
	assert.True(t, st.Typing)
	assert.True(t, st.Online)

	clk.Advance(1900 * time.Millisecond)
	st, _ = tr.Lookup("k")
	assert.True(t, st.Typing)

	clk.Advance(200 * time.Millisecond)
	st, _ = tr.Lookup("k")
	assert.False(t, st.Typing, "typing must expire without an explicit stop")
}

func TestTracker_TypingStopAndRefresh(t *testing.T) {
	clk := newManualClock()
	tr := NewTracker(2*time.Second, clk)

	tr.OnTyping("k", true)
	clk.Advance(1500 * time.Millisecond)
	tr.OnTyping("k", true)
	clk.Advance(1500 * time.Millisecond)
	st, ok := tr.Lookup("k")
	require.True(t, ok, "live event creates state lazily")
	assert.True(t, st.Typing)

	tr.OnTyping("k", false)
	st, _ = tr.Lookup("k")
	assert.False(t, st.Typing)
}

func TestTracker_Presence(t *testing.T) {
	clk := newManualClock()
	tr := NewTracker(0, clk)
	tr.Subscribe("k")

	seen := clk.Now().Add(-time.Hour)
	tr.OnPresence("k", false, seen)
	st, _ := tr.Lookup("k")
	assert.False(t, st.Online)
	assert.Equal(t, seen, st.LastSeenAt)

	tr.OnTyping("k", true)
	tr.OnPresence("k", false, time.Time{})
	st, _ = tr.Lookup("k")
	assert.False(t, st.Typing, "offline clears typing")

	tr.OnPresence("k", true, time.Time{})
	st, _ = tr.Lookup("k")
	assert.True(t, st.Online)
	assert.Equal(t, clk.Now(), st.LastSeenAt)

	tr.Reset()
	_, ok := tr.Lookup("k")
	assert.False(t, ok)
}

type emitted struct {
	key    string
	typing bool
}

type recorder struct {
	mu  sync.Mutex
	got []emitted
}

func (r *recorder) emit(key string, typing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, emitted{key, typing})
}

func (r *recorder) events() []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emitted(nil), r.got...)
}

func TestTypingNotifier_DebouncesBurst(t *testing.T) {
	clk := newManualClock()
	rec := &recorder{}
	n := NewTypingNotifier(2*time.Second, clk, rec.emit)

	n.Input("k")
	clk.Advance(500 * time.Millisecond)
	n.Input("k")
	clk.Advance(500 * time.Millisecond)
	n.Input("k")

	assert.Equal(t, []emitted{{"k", true}}, rec.events(), "one start per burst")
	assert.True(t, n.Active("k"))

	clk.Advance(1900 * time.Millisecond)
	assert.Equal(t, []emitted{{"k", true}}, rec.events())

	clk.Advance(200 * time.Millisecond)
	assert.Equal(t, []emitted{{"k", true}, {"k", false}}, rec.events())
	assert.False(t, n.Active("k"))

	n.Input("k")
	assert.Equal(t, []emitted{{"k", true}, {"k", false}, {"k", true}}, rec.events(), "new burst starts again")
}

func TestTypingNotifier_StopAndStopAll(t *testing.T) {
	clk := newManualClock()
	rec := &recorder{}
	n := NewTypingNotifier(2*time.Second, clk, rec.emit)

	n.Input("a")
	n.Input("b")
	n.Stop("a")
	n.Stop("a")

	clk.Advance(5 * time.Second)
	got := rec.events()
	assert.Equal(t, []emitted{{"a", true}, {"b", true}, {"a", false}, {"b", false}}, got)

	n.Input("c")
	n.Input("d")
	n.StopAll()
	clk.Advance(5 * time.Second)

	tail := rec.events()[4:]
	sort.Slice(tail, func(i, j int) bool {
		if tail[i].typing != tail[j].typing {
			return tail[i].typing
		}
		return tail[i].key < tail[j].key
	})
	assert.Equal(t, []emitted{{"c", true}, {"d", true}, {"c", false}, {"d", false}}, tail)
}

type fakeFetcher struct {
	calls atomic.Int32
	err   error
}

func (f *fakeFetcher) GetPresence(ctx context.Context, identity string) (models.Record, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return models.Record{"identity": identity, "online": true}, nil
}

func TestPoller_DeliversAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan models.Record, 16)
	f := &fakeFetcher{}
	p := NewPoller(ctx, f, PollerConfig{Interval: 10 * time.Millisecond, RPS: 1000, Burst: 10},
		func(key string, rec models.Record) { got <- rec }, logging.Nop{})

	p.Watch("k", "+15551234567")
	p.Watch("k", "+15551234567")
	assert.True(t, p.Watching("k"))

	select {
	case rec := <-got:
		assert.Equal(t, "+15551234567", rec["identity"])
	case <-time.After(2 * time.Second):
		t.Fatal("no presence delivered")
	}

	p.Unwatch("k")
	assert.False(t, p.Watching("k"))
	p.StopAll()
}

func TestPoller_FailuresAreSwallowed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &fakeFetcher{err: errors.New("down")}
	var delivered atomic.Int32
	p := NewPoller(ctx, f, PollerConfig{Interval: 5 * time.Millisecond, RPS: 1000, Burst: 10},
		func(string, models.Record) { delivered.Add(1) }, logging.Nop{})

	p.Watch("k", "+15551234567")
	require.Eventually(t, func() bool { return f.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	p.StopAll()

	assert.Zero(t, delivered.Load())
}
