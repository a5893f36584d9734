package engine

import (
	"context"
	"time"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/index"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/normalize"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/presence"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/store"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/logging"
)

// DefaultParkLimit bounds the number of statuses waiting for their message.
const DefaultParkLimit = 256

// Config wires an Engine. Only Normalizer and Tracker are required.
type Config struct {
	// Self is the raw own number, used as the sender of optimistic sends.
	Self       string
	Normalizer *normalize.Normalizer
	Tracker    *presence.Tracker
	Recorder   Recorder
	Receipts   Receipts
	Logger     logging.Logger
	Now        func() time.Time
	ParkLimit  int
}

type pendingSend struct {
	key       string
	clientID  string
	startedAt time.Time
}

type parkedStatus struct {
	key    string
	status models.Status
	err    string
}

type Engine struct {
	self     string
	norm     *normalize.Normalizer
	store    *store.Store
	index    *index.Index
	tracker  *presence.Tracker
	recorder Recorder
	receipts Receipts
	logger   logging.Logger
	now      func() time.Time

	// pending maps a temporary id to its send; byClient maps the client id
	// of the same send back to the temporary id.
	pending  map[string]pendingSend
	byClient map[string]string
	// resolved remembers temporary ids confirmed by a pushed echo whose
	// acknowledgment has not arrived yet.
	resolved map[string]string

	parked      map[string]parkedStatus
	parkedOrder []string
	parkLimit   int

	// tombstones holds ids deleted on the backend before they were seen
	// here, so a late history fetch cannot bring the content back.
	tombstones map[string]struct{}
	tombOrder  []string

	// hidden holds ids deleted on this device only.
	hidden map[string]struct{}

	focus    string
	focusGen uint64

	observers []func(Change)
}

func New(cfg Config) *Engine {
	e := &Engine{
		self:     cfg.Self,
		norm:     cfg.Normalizer,
		store:    store.New(),
		index:    index.New(),
		tracker:  cfg.Tracker,
		recorder: cfg.Recorder,
		receipts: cfg.Receipts,
		logger:   cfg.Logger,
		now:      cfg.Now,
		pending:  make(map[string]pendingSend),
		byClient: make(map[string]string),
		resolved: make(map[string]string),
		parked:   make(map[string]parkedStatus),
		hidden:   make(map[string]struct{}),

		tombstones: make(map[string]struct{}),

		parkLimit: cfg.ParkLimit,
	}
	if e.norm == nil {
		e.norm = normalize.New(cfg.Self)
	}
	if e.tracker == nil {
		e.tracker = presence.NewTracker(presence.DefaultWindow, presence.RealClock{})
	}
	if e.recorder == nil {
		e.recorder = nopRecorder{}
	}
	if e.receipts == nil {
		e.receipts = nopReceipts{}
	}
	if e.logger == nil {
		e.logger = logging.Nop{}
	}
	e.logger = e.logger.With("module", "engine")
	if e.now == nil {
		e.now = time.Now
	}
	if e.parkLimit <= 0 {
		e.parkLimit = DefaultParkLimit
	}
	return e
}

// Observe registers fn for every Change. Observers run on the session loop
// and must return quickly.
func (e *Engine) Observe(fn func(Change)) {
	e.observers = append(e.observers, fn)
}

func (e *Engine) emit(c Change) {
	for _, fn := range e.observers {
		fn(c)
	}
}

// Messages returns the ordered timeline of a conversation.
func (e *Engine) Messages(key string) []models.Message {
	return e.store.List(key)
}

// Conversations returns the conversation list, most recent first.
func (e *Engine) Conversations() []models.Conversation {
	return e.index.List()
}

func (e *Engine) Conversation(key string) (models.Conversation, bool) {
	return e.index.Get(key)
}

// LocalConversations returns the conversations not known to the backend.
func (e *Engine) LocalConversations() []models.Conversation {
	return e.index.Local()
}

func (e *Engine) Presence(key string) (models.PresenceState, bool) {
	return e.tracker.Lookup(key)
}

func (e *Engine) Tracker() *presence.Tracker {
	return e.tracker
}

// Focused returns the focused conversation key, empty when none.
func (e *Engine) Focused() string {
	return e.focus
}

// PendingSends is the number of sends awaiting acknowledgment.
func (e *Engine) PendingSends() int {
	return len(e.pending)
}

// refreshPreview makes the conversation preview follow its newest message
// when id is that message.
func (e *Engine) refreshPreview(key, id string) {
	last, ok := e.store.Last(key)
	if !ok {
		e.index.UpdatePreview(key, "")
		return
	}
	if id == "" || last.ID == id {
		e.index.UpdatePreview(key, last.Preview())
	}
}

func (e *Engine) serverKnown(key string) {
	if e.index.MarkServerKnown(key) {
		e.emit(Change{Kind: ChangeServerKnown, Key: key})
	}
}

// advance applies a status transition to one stored message.
func (e *Engine) advance(key, id string, to models.Status, errText string) (models.Message, bool) {
	m, changed, err := e.store.Update(key, id, func(m *models.Message) bool {
		next, ok := m.Status.Advance(to, m.Direction)
		if !ok {
			return false
		}
		m.Status = next
		if next == models.StatusFailed && errText != "" {
			m.Error = errText
		}
		return true
	})
	if err != nil {
		return models.Message{}, false
	}
	return m, changed
}

// park remembers a status for an id that is not known yet. The oldest
// entry is evicted when the limit is reached.
func (e *Engine) park(id string, p parkedStatus) {
	if cur, ok := e.parked[id]; ok {
		if p.status == models.StatusFailed || p.status.AtOrAfter(cur.status) {
			e.parked[id] = p
		}
		return
	}
	if len(e.parkedOrder) >= e.parkLimit {
		oldest := e.parkedOrder[0]
		e.parkedOrder = e.parkedOrder[1:]
		delete(e.parked, oldest)
	}
	e.parked[id] = p
	e.parkedOrder = append(e.parkedOrder, id)
	e.recorder.StatusParked()
}

// dropParked forgets a parked status without applying it.
func (e *Engine) dropParked(id string) {
	if _, ok := e.parked[id]; !ok {
		return
	}
	delete(e.parked, id)
	e.parkedOrder = without(e.parkedOrder, id)
}

// bury remembers a backend deletion for an id that is not known yet. It
// shares the parking limit.
func (e *Engine) bury(id string) {
	if _, ok := e.tombstones[id]; ok {
		return
	}
	if len(e.tombOrder) >= e.parkLimit {
		delete(e.tombstones, e.tombOrder[0])
		e.tombOrder = e.tombOrder[1:]
	}
	e.tombstones[id] = struct{}{}
	e.tombOrder = append(e.tombOrder, id)
}

// exhume reports and forgets a pending deletion of id.
func (e *Engine) exhume(id string) bool {
	if _, ok := e.tombstones[id]; !ok {
		return false
	}
	delete(e.tombstones, id)
	e.tombOrder = without(e.tombOrder, id)
	return true
}

func without(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

// unpark applies and forgets a parked status for id.
func (e *Engine) unpark(ctx context.Context, key, id string) {
	p, ok := e.parked[id]
	if !ok {
		return
	}
	e.dropParked(id)
	if _, changed := e.advance(key, id, p.status, p.err); changed {
		e.logger.Debug(ctx, "applied parked status", "conversation", key, "id", id, "status", p.status)
	}
}

// Parked is the number of statuses waiting for their message.
func (e *Engine) Parked() int {
	return len(e.parked)
}
