package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/client"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/engine"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/ingest"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/normalize"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/presence"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/repositories/conversations"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/repositories/metadata"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/common"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/identity"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/logging"
)

var (
	ErrClosed         = errors.New("chat session closed")
	ErrAlreadyRunning = errors.New("chat session already running")
)

// ChatConfig tunes a ChatService.
type ChatConfig struct {
	OwnNumber           string
	HistoryLimit        int
	SendTimeout         time.Duration
	TypingWindow        time.Duration
	ReconnectMaxBackoff time.Duration
	Poll                presence.PollerConfig
	Recorder            engine.Recorder
	Clock               presence.Clock
}

// Notice is a problem surfaced to the user without failing the operation
// that caused it.
type Notice struct {
	At   time.Time
	Text string
	Err  error
}

func (n Notice) String() string {
	if n.Err == nil {
		return n.Text
	}
	return fmt.Sprintf("%s: %v", n.Text, n.Err)
}

// ChatService owns one signed-in session. Every engine mutation runs on the
// goroutine executing Run; the exported methods hand work to it and may be
// called from any goroutine. Network calls never run on that goroutine.
type ChatService struct {
	client  client.Client
	convs   conversations.Repository
	meta    metadata.Repository
	engine  *engine.Engine
	decoder *ingest.Decoder
	tracker *presence.Tracker
	typing  *presence.TypingNotifier
	cfg     ChatConfig
	logger  logging.Logger

	ops     chan func(context.Context)
	persist chan func(context.Context)
	changes chan engine.Change
	notices chan Notice
	fatal   chan error
	done    chan struct{}
	running atomic.Bool

	// ctx is the session context, set once by Run.
	ctx context.Context

	// bg tracks network calls started by the session. Once bgClosed is set
	// no new ones start.
	bgMu     sync.Mutex
	bg       sync.WaitGroup
	bgClosed bool

	// Owned by the session loop.
	focusGen  uint64
	connected bool
	poller    *presence.Poller

	identMu    sync.Mutex
	identities map[string]string
}

func NewChatService(c client.Client, convs conversations.Repository, meta metadata.Repository, cfg ChatConfig, logger logging.Logger) *ChatService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = client.DefaultTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = presence.RealClock{}
	}

	s := &ChatService{
		client:     c,
		convs:      convs,
		meta:       meta,
		cfg:        cfg,
		logger:     logger.With("module", "chat"),
		ops:        make(chan func(context.Context)),
		persist:    make(chan func(context.Context), 128),
		changes:    make(chan engine.Change, 128),
		notices:    make(chan Notice, 32),
		fatal:      make(chan error, 1),
		done:       make(chan struct{}),
		identities: make(map[string]string),
	}

	norm := normalize.New(cfg.OwnNumber, normalize.WithClock(cfg.Clock.Now))
	s.decoder = ingest.NewDecoder(norm)
	s.tracker = presence.NewTracker(cfg.TypingWindow, cfg.Clock)
	s.typing = presence.NewTypingNotifier(cfg.TypingWindow, cfg.Clock, s.emitTyping)
	s.engine = engine.New(engine.Config{
		Self:       cfg.OwnNumber,
		Normalizer: norm,
		Tracker:    s.tracker,
		Recorder:   cfg.Recorder,
		Receipts:   s,
		Logger:     logger,
		Now:        cfg.Clock.Now,
	})
	s.engine.Observe(s.onChange)
	return s
}

// Changes delivers engine changes for display. Changes are dropped while
// the reader lags behind.
func (s *ChatService) Changes() <-chan engine.Change { return s.changes }

// Notices delivers non-fatal problems.
func (s *ChatService) Notices() <-chan Notice { return s.notices }

// Run executes the session until ctx is done or the backend rejects the
// session. It loads cached conversations, keeps the push channel open and
// resynchronizes after every reconnect.
func (s *ChatService) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(logging.ContextWith(ctx, "own_number", s.cfg.OwnNumber))
	s.ctx = ctx
	s.poller = presence.NewPoller(ctx, s.client, s.cfg.Poll, s.deliverPolled, s.logger)

	defer close(s.done)
	defer s.waitBackground()
	defer s.poller.StopAll()
	defer s.typing.StopAll()
	defer cancel()

	s.loadCache(ctx)

	pump := ingest.NewPump(s.dial, s.decoder, ingest.PumpConfig{
		MaxBackoff: s.cfg.ReconnectMaxBackoff,
		Permanent:  func(err error) bool { return errors.Is(err, client.ErrUnauthorized) },
	}, s.logger)
	pump.OnEvent = func(ev ingest.Event) {
		s.post(ctx, func(lctx context.Context) { s.engine.Apply(lctx, ev) })
	}
	pump.OnState = func(up bool) {
		s.post(ctx, func(lctx context.Context) { s.setConnected(lctx, up) })
	}
	pump.OnDrop = func(err error) {
		reason := "malformed"
		if errors.Is(err, ingest.ErrUnknownKind) {
			reason = "unknown_kind"
		}
		s.post(ctx, func(context.Context) { s.engine.Dropped(reason) })
	}

	s.spawn(func() { s.persistLoop(ctx) })
	s.spawn(func() {
		if err := pump.Run(ctx); err != nil {
			s.fatal <- err
		}
	})

	s.logger.Info(ctx, "session started", "own_number", s.cfg.OwnNumber)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "session stopped")
			return nil
		case err := <-s.fatal:
			s.notify("session ended", err)
			return fmt.Errorf("push channel: %w", err)
		case op := <-s.ops:
			s.safely(ctx, op)
		}
	}
}

func (s *ChatService) dial(ctx context.Context) (ingest.Stream, error) {
	st, err := s.client.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *ChatService) safely(ctx context.Context, op func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "session operation panicked", "panic", r)
			s.notify("internal error", fmt.Errorf("panic: %v", r))
		}
	}()
	op(ctx)
}

// do runs fn on the session loop and waits for its result.
func (s *ChatService) do(ctx context.Context, fn func(ctx context.Context) error) error {
	errc := make(chan error, 1)
	op := func(lctx context.Context) {
		err := common.ErrorInternal
		defer func() { errc <- err }()
		err = fn(lctx)
	}
	select {
	case s.ops <- op:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errc:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// post queues op without waiting for it to run.
func (s *ChatService) post(ctx context.Context, op func(context.Context)) {
	select {
	case s.ops <- op:
	case <-s.done:
	case <-ctx.Done():
	}
}

func (s *ChatService) spawn(fn func()) {
	s.bgMu.Lock()
	defer s.bgMu.Unlock()
	if s.bgClosed {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		fn()
	}()
}

func (s *ChatService) waitBackground() {
	s.bgMu.Lock()
	s.bgClosed = true
	s.bgMu.Unlock()
	s.bg.Wait()
}

func (s *ChatService) notify(text string, err error) {
	n := Notice{At: s.cfg.Clock.Now(), Text: text, Err: err}
	if err != nil {
		s.logger.Warn(context.Background(), text, "error", err)
	}
	select {
	case s.notices <- n:
	default:
	}
}

func (s *ChatService) remember(key, raw string) {
	s.identMu.Lock()
	s.identities[key] = raw
	s.identMu.Unlock()
}

// identityOf returns the best raw identity for key.
func (s *ChatService) identityOf(key string) string {
	s.identMu.Lock()
	defer s.identMu.Unlock()
	if raw, ok := s.identities[key]; ok {
		return raw
	}
	return key
}

// onChange runs on the session loop for every engine change.
func (s *ChatService) onChange(c engine.Change) {
	switch c.Kind {
	case engine.ChangeConversations:
		if c.Key == "" {
			break
		}
		if conv, ok := s.engine.Conversation(c.Key); ok {
			s.remember(conv.Key, conv.Identity)
			if conv.Origin == models.OriginLocal {
				s.enqueue(func(ctx context.Context) error { return s.convs.Save(ctx, conv) })
			}
		}
	case engine.ChangeServerKnown:
		key := c.Key
		s.enqueue(func(ctx context.Context) error { return s.convs.Delete(ctx, key) })
	}

	select {
	case s.changes <- c:
	default:
	}
}

// enqueue hands a cache write to the persistence worker, in order.
func (s *ChatService) enqueue(job func(ctx context.Context) error) {
	run := func(ctx context.Context) {
		if err := job(ctx); err != nil {
			s.notify("cache write failed", err)
		}
	}
	select {
	case s.persist <- run:
	default:
		run(s.ctx)
	}
}

func (s *ChatService) persistLoop(ctx context.Context) {
	for {
		select {
		case job := <-s.persist:
			job(ctx)
		case <-ctx.Done():
			flush := context.WithoutCancel(ctx)
			for {
				select {
				case job := <-s.persist:
					job(flush)
				default:
					return
				}
			}
		}
	}
}

func (s *ChatService) loadCache(ctx context.Context) {
	local, err := s.convs.List(ctx)
	if err != nil {
		s.notify("cached conversations unavailable", err)
		return
	}
	for _, c := range local {
		s.remember(c.Key, c.Identity)
	}
	s.engine.LoadConversations(ctx, nil, local)
}

// pushStateRecorder is implemented by recorders that track the push channel.
type pushStateRecorder interface {
	PushState(connected bool)
}

// setConnected switches presence between the push channel and polling.
func (s *ChatService) setConnected(ctx context.Context, up bool) {
	if s.connected == up {
		return
	}
	s.connected = up
	if ps, ok := s.cfg.Recorder.(pushStateRecorder); ok {
		ps.PushState(up)
	}
	watched := s.tracker.Subscribed()
	if up {
		for _, key := range watched {
			s.poller.Unwatch(key)
		}
		s.spawn(func() {
			if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Debug(ctx, "resync after reconnect failed", "error", err)
			}
		})
		return
	}
	for _, key := range watched {
		s.poller.Watch(key, s.identityOf(key))
	}
	s.notify("push channel lost, reconnecting", nil)
}

func (s *ChatService) deliverPolled(key string, rec models.Record) {
	s.post(s.ctx, func(lctx context.Context) {
		ev, err := s.decoder.DecodePresence(s.identityOf(key), rec)
		if err != nil {
			s.logger.Debug(lctx, "dropping polled presence", "conversation", key, "error", err)
			s.engine.Dropped("malformed")
			return
		}
		s.engine.Apply(lctx, ev)
	})
}

// RequestReadReceipt is called by the engine on the session loop.
func (s *ChatService) RequestReadReceipt(key, raw string) {
	gen := s.focusGen
	if raw == "" {
		raw = s.identityOf(key)
	}
	s.spawn(func() { s.markRead(s.ctx, key, raw, gen) })
}

// SyncStatus is called by the engine on the session loop. Failures are
// logged and not retried; the next sync carries the state again.
func (s *ChatService) SyncStatus(key string, ids []string, st models.Status) {
	ids = append([]string(nil), ids...)
	ctx := s.ctx
	s.spawn(func() {
		cctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
		defer cancel()
		if err := s.client.UpdateMessageStatus(cctx, ids, string(st)); err != nil && ctx.Err() == nil {
			s.logger.Warn(ctx, "status sync failed", "conversation", key, "status", st, "error", err)
		}
	})
}

func (s *ChatService) markRead(ctx context.Context, key, raw string, gen uint64) {
	if err := s.client.MarkRead(ctx, raw); err != nil {
		if ctx.Err() == nil {
			s.logger.Warn(ctx, "mark read failed", "conversation", key, "error", err)
		}
		return
	}
	_ = s.do(ctx, func(lctx context.Context) error {
		s.engine.AckRead(lctx, key, gen)
		return nil
	})
}

// focus runs on the session loop.
func (s *ChatService) focus(key, raw string) uint64 {
	if prev := s.engine.Focused(); prev != "" && prev != key {
		s.tracker.Unsubscribe(prev)
		s.poller.Unwatch(prev)
		s.typing.Stop(prev)
	}
	s.focusGen = s.engine.Focus(key)
	if key != "" {
		s.tracker.Subscribe(key)
		if !s.connected {
			s.poller.Watch(key, raw)
		}
	}
	return s.focusGen
}

// Refresh reloads the conversation list, merges cached local conversations
// and reloads the focused conversation. When the backend cannot be reached
// the current view is kept and a notice is sent.
func (s *ChatService) Refresh(ctx context.Context) error {
	recs, err := s.client.ListConversations(ctx)
	if err != nil {
		err = fmt.Errorf("list conversations: %w", err)
		s.notify("resync failed", err)
		return err
	}
	local, err := s.convs.List(ctx)
	if err != nil {
		s.logger.Warn(ctx, "cached conversations unavailable", "error", err)
		local = nil
	}

	var focused string
	err = s.do(ctx, func(lctx context.Context) error {
		for _, e := range s.engine.LoadConversations(lctx, recs, local) {
			s.logger.Debug(lctx, "conversation skipped", "error", e)
		}
		focused = s.engine.Focused()
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.meta.Set(ctx, metadata.KeyLastSyncAt, s.cfg.Clock.Now().UTC().Format(time.RFC3339)); err != nil {
		s.logger.Warn(ctx, "last sync not saved", "error", err)
	}

	if focused != "" {
		if _, err := s.loadHistory(ctx, s.identityOf(focused)); err != nil {
			s.notify("history unavailable", err)
			return err
		}
	}
	return nil
}

func (s *ChatService) loadHistory(ctx context.Context, raw string) (int, error) {
	recs, err := s.client.ListMessages(ctx, raw, s.cfg.HistoryLimit)
	if err != nil {
		return 0, fmt.Errorf("list messages: %w", err)
	}
	var added int
	err = s.do(ctx, func(lctx context.Context) error {
		n, errs := s.engine.LoadHistory(lctx, raw, recs)
		added = n
		if len(errs) > 0 && len(errs) == len(recs) {
			return fmt.Errorf("history: %w", errs[0])
		}
		return nil
	})
	return added, err
}

// OpenConversation focuses the conversation with counterpart, loads its
// history and marks it read. Cached messages are returned when the backend
// cannot be reached; the failure is reported as a notice.
func (s *ChatService) OpenConversation(ctx context.Context, counterpart string) ([]models.Message, error) {
	key := identity.Key(counterpart)
	if key == "" {
		return nil, engine.ErrInvalidIdentity
	}
	s.remember(key, counterpart)

	var gen uint64
	if err := s.do(ctx, func(context.Context) error {
		gen = s.focus(key, counterpart)
		return nil
	}); err != nil {
		return nil, err
	}

	if _, err := s.loadHistory(ctx, counterpart); err != nil {
		s.notify("history unavailable", err)
	} else {
		s.markRead(ctx, key, counterpart, gen)
	}
	return s.Messages(ctx, key)
}

// CloseConversation clears the focus.
func (s *ChatService) CloseConversation(ctx context.Context) error {
	return s.do(ctx, func(context.Context) error {
		s.focus("", "")
		return nil
	})
}

// Send delivers one message and blocks until the backend acknowledged or
// rejected it. A rejected send is removed from the timeline.
func (s *ChatService) Send(ctx context.Context, counterpart, body, mediaURL string) (models.Message, error) {
	var m models.Message
	err := s.do(ctx, func(lctx context.Context) error {
		var err error
		m, err = s.engine.BeginSend(lctx, counterpart, body, mediaURL)
		return err
	})
	if err != nil {
		return models.Message{}, err
	}
	s.remember(m.ConversationKey, counterpart)
	s.typing.Stop(m.ConversationKey)

	sctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	res, sendErr := s.client.SendMessage(sctx, client.SendRequest{
		To:       counterpart,
		Body:     m.Body,
		MediaURL: m.MediaURL,
		ClientID: m.ClientID,
	})
	cancel()

	var out models.Message
	err = s.do(context.WithoutCancel(ctx), func(lctx context.Context) error {
		if sendErr != nil {
			return s.engine.FailSend(lctx, m.ID, sendErr)
		}
		st, _ := normalize.ParseStatus(res.Status)
		var err error
		out, err = s.engine.ConfirmSend(lctx, m.ID, res.ID, st, res.Error)
		return err
	})
	if sendErr != nil {
		return models.Message{}, fmt.Errorf("send: %w", sendErr)
	}
	if err != nil {
		return models.Message{}, err
	}
	return out, nil
}

// Typing registers a keystroke in the conversation with counterpart.
func (s *ChatService) Typing(counterpart string) error {
	key := identity.Key(counterpart)
	if key == "" {
		return engine.ErrInvalidIdentity
	}
	s.remember(key, counterpart)
	s.typing.Input(key)
	return nil
}

func (s *ChatService) emitTyping(key string, typing bool) {
	raw := s.identityOf(key)
	s.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SendTimeout)
		defer cancel()
		if err := s.client.SendTyping(ctx, raw, typing); err != nil {
			s.logger.Debug(ctx, "typing indicator not sent", "conversation", key, "error", err)
		}
	})
}

// StartConversation opens an empty conversation, kept in the cache until
// the backend knows about it.
func (s *ChatService) StartConversation(ctx context.Context, counterpart, displayName string) (models.Conversation, error) {
	var c models.Conversation
	err := s.do(ctx, func(context.Context) error {
		var err error
		c, _, err = s.engine.StartConversation(counterpart, displayName)
		return err
	})
	if err == nil {
		s.remember(c.Key, counterpart)
	}
	return c, err
}

// DeleteLocally removes a message from this device only.
func (s *ChatService) DeleteLocally(ctx context.Context, key, id string) error {
	return s.do(ctx, func(context.Context) error {
		return s.engine.DeleteLocally(key, id)
	})
}

// RequestDeleteForEveryone asks the backend to delete a sent message. The
// message is marked deleted once the backend agrees.
func (s *ChatService) RequestDeleteForEveryone(ctx context.Context, key, id string) error {
	if err := s.do(ctx, func(context.Context) error {
		_, err := s.engine.PrepareDeleteForEveryone(key, id)
		return err
	}); err != nil {
		return err
	}
	if err := s.client.DeleteMessage(ctx, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return s.do(ctx, func(lctx context.Context) error {
		s.engine.Apply(lctx, ingest.MessageDeleted{Key: key, MessageID: id})
		return nil
	})
}

// PresenceOf returns the latest presence of counterpart, fetching it when
// nothing is known yet.
func (s *ChatService) PresenceOf(ctx context.Context, counterpart string) (models.PresenceState, error) {
	key := identity.Key(counterpart)
	if key == "" {
		return models.PresenceState{}, engine.ErrInvalidIdentity
	}
	if st, ok := s.tracker.Lookup(key); ok {
		return st, nil
	}

	rec, err := s.client.GetPresence(ctx, counterpart)
	if err != nil {
		return models.PresenceState{}, fmt.Errorf("get presence: %w", err)
	}
	ev, err := s.decoder.DecodePresence(counterpart, rec)
	if err != nil {
		return models.PresenceState{}, err
	}
	if err := s.do(ctx, func(lctx context.Context) error {
		s.engine.Apply(lctx, ev)
		return nil
	}); err != nil {
		return models.PresenceState{}, err
	}
	st, _ := s.tracker.Lookup(key)
	return st, nil
}

// Conversations returns the conversation list, most recent first.
func (s *ChatService) Conversations(ctx context.Context) ([]models.Conversation, error) {
	var out []models.Conversation
	err := s.do(ctx, func(context.Context) error {
		out = s.engine.Conversations()
		return nil
	})
	return out, err
}

// Messages returns the timeline of the conversation key.
func (s *ChatService) Messages(ctx context.Context, key string) ([]models.Message, error) {
	var out []models.Message
	err := s.do(ctx, func(context.Context) error {
		out = s.engine.Messages(key)
		return nil
	})
	return out, err
}

// Connected reports whether the push channel is up.
func (s *ChatService) Connected(ctx context.Context) (bool, error) {
	var up bool
	err := s.do(ctx, func(context.Context) error {
		up = s.connected
		return nil
	})
	return up, err
}
