// Package messaging implements the development backend: an in-memory
// message store, per-account push fanout, and simulated delivery and
// replies for numbers that are not signed in.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/common"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/identity"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/logging"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/server/models"
)

// Config tunes the simulation.
type Config struct {
	AutoReply      bool
	AutoReplyDelay time.Duration
	DeliveryDelay  time.Duration
}

type Service struct {
	store  *Store
	hub    *Hub
	cfg    Config
	logger logging.Logger
	now    func() time.Time
	newSID func() (string, error)

	wg   sync.WaitGroup
	done chan struct{}
	once sync.Once
}

func NewService(cfg Config, logger logging.Logger) *Service {
	return &Service{
		store:  NewStore(),
		hub:    NewHub(),
		cfg:    cfg,
		logger: logger.With("module", "messaging"),
		now:    time.Now,
		newSID: newSID,
		done:   make(chan struct{}),
	}
}

// newSID returns "SM" followed by 32 hex digits.
func newSID() (string, error) {
	h, err := common.MakeRandHexString(16)
	if err != nil {
		return "", err
	}
	return "SM" + h, nil
}

// Close stops pending simulations and waits for them.
func (s *Service) Close() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}

// after runs fn once d elapsed unless the service closes first.
func (s *Service) after(d time.Duration, fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			fn()
		case <-s.done:
		}
	}()
}

func (s *Service) publish(number string, kind string, payload map[string]any) {
	s.hub.Publish(identity.Key(number), newEvent(kind, payload))
}

// Send stores a message from owner to to and pushes it to both parties.
// The sender's copy carries clientID so the client can correlate it.
func (s *Service) Send(ctx context.Context, owner, to, body, mediaURL, clientID string) (models.Message, error) {
	body = strings.TrimSpace(body)
	mediaURL = strings.TrimSpace(mediaURL)
	if identity.Key(to) == "" {
		return models.Message{}, fmt.Errorf("%w: recipient %q", common.ErrorInvalidInput, to)
	}
	if body == "" && mediaURL == "" {
		return models.Message{}, fmt.Errorf("%w: empty message", common.ErrorInvalidInput)
	}

	m, err := s.deliver(owner, to, body, mediaURL, clientID)
	if err != nil {
		return models.Message{}, err
	}
	s.logger.Info(ctx, "message sent", "sid", m.SID, "from", owner, "to", to)

	s.after(s.cfg.DeliveryDelay, func() { s.markDelivered(m.SID) })
	if s.cfg.AutoReply && !s.hub.Online(identity.Key(to)) {
		s.scheduleReply(m)
	}
	return m, nil
}

func (s *Service) deliver(from, to, body, mediaURL, clientID string) (models.Message, error) {
	sid, err := s.newSID()
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	m := models.Message{
		SID:      sid,
		From:     from,
		To:       to,
		Body:     body,
		MediaURL: mediaURL,
		ClientID: clientID,
		Status:   models.StatusSent,
		SentAt:   s.now(),
	}
	s.store.Add(m)

	s.publish(from, EventIncomingMessage, m.Record())
	if identity.Key(from) != identity.Key(to) {
		rec := m.Record()
		delete(rec, "clientId")
		s.publish(to, EventIncomingMessage, rec)
	}
	return m, nil
}

func (s *Service) markDelivered(sid string) {
	m, changed, err := s.store.Update(sid, func(m *models.Message) bool {
		if m.Status != models.StatusSent {
			return false
		}
		m.Status = models.StatusDelivered
		return true
	})
	if err != nil || !changed {
		return
	}
	s.publishStatus(m)
}

func (s *Service) publishStatus(m models.Message) {
	s.publish(m.From, EventStatusUpdate, map[string]any{
		"messageId": m.SID,
		"status":    m.Status,
		"identity":  m.To,
	})
}

// scheduleReply simulates a counterpart that reads m, types, and answers.
func (s *Service) scheduleReply(m models.Message) {
	s.after(s.cfg.AutoReplyDelay/2, func() {
		for _, r := range s.store.MarkRead(m.To, m.From) {
			s.publishStatus(r)
		}
		s.publish(m.From, EventTypingStart, map[string]any{"identity": m.To})
	})
	s.after(s.cfg.AutoReplyDelay, func() {
		s.publish(m.From, EventTypingStop, map[string]any{"identity": m.To})
		body := "Auto-reply: " + m.Body
		if m.Body == "" {
			body = "Auto-reply: got your attachment"
		}
		reply, err := s.deliver(m.To, m.From, body, "", "")
		if err != nil {
			s.logger.Error(context.Background(), "auto-reply failed", "error", err)
			return
		}
		s.after(s.cfg.DeliveryDelay, func() { s.markDelivered(reply.SID) })
	})
}

func (s *Service) Conversations(owner string) []models.Conversation {
	return s.store.Conversations(owner)
}

func (s *Service) Messages(owner, counterpart string, limit int) ([]models.Message, error) {
	if identity.Key(counterpart) == "" {
		return nil, fmt.Errorf("%w: identity %q", common.ErrorInvalidInput, counterpart)
	}
	return s.store.Messages(owner, counterpart, limit), nil
}

// MarkRead marks everything counterpart sent to owner as read and tells the
// counterpart.
func (s *Service) MarkRead(owner, counterpart string) (int, error) {
	if identity.Key(counterpart) == "" {
		return 0, fmt.Errorf("%w: identity %q", common.ErrorInvalidInput, counterpart)
	}
	updated := s.store.MarkRead(owner, counterpart)
	for _, m := range updated {
		s.publishStatus(m)
	}
	return len(updated), nil
}

// UpdateStatus lets the recipient of messages report delivered or read.
// Ids the owner did not receive are skipped.
func (s *Service) UpdateStatus(owner string, ids []string, status string) (int, error) {
	if status != models.StatusDelivered && status != models.StatusRead {
		return 0, fmt.Errorf("%w: status %q", common.ErrorInvalidInput, status)
	}
	own := identity.Key(owner)
	n := 0
	for _, id := range ids {
		m, changed, err := s.store.Update(id, func(m *models.Message) bool {
			if identity.Key(m.To) != own || m.Status == status || m.Status == models.StatusRead {
				return false
			}
			m.Status = status
			return true
		})
		if err != nil || !changed {
			continue
		}
		s.publishStatus(m)
		n++
	}
	return n, nil
}

// Delete removes a message for everyone. Only its sender may do that.
func (s *Service) Delete(ctx context.Context, owner, sid string) error {
	own := identity.Key(owner)
	var notSender bool
	m, changed, err := s.store.Update(sid, func(m *models.Message) bool {
		if identity.Key(m.From) != own {
			notSender = true
			return false
		}
		if m.Deleted {
			return false
		}
		m.Deleted = true
		m.Body = ""
		m.MediaURL = ""
		return true
	})
	if err != nil {
		return err
	}
	if notSender {
		return fmt.Errorf("%w: only the sender can delete %s", common.ErrorInvalidInput, sid)
	}
	if !changed {
		return nil
	}

	s.logger.Info(ctx, "message deleted", "sid", sid, "by", owner)
	s.publish(m.From, EventMessageDeleted, map[string]any{"messageId": sid, "identity": m.To})
	if identity.Key(m.From) != identity.Key(m.To) {
		s.publish(m.To, EventMessageDeleted, map[string]any{"messageId": sid, "identity": m.From})
	}
	return nil
}

// Presence reports whether number has a live push channel.
func (s *Service) Presence(number string) (bool, time.Time) {
	key := identity.Key(number)
	return s.hub.Online(key), s.hub.LastSeen(key)
}

func (s *Service) Typing(owner, to string, typing bool) error {
	if identity.Key(to) == "" {
		return fmt.Errorf("%w: identity %q", common.ErrorInvalidInput, to)
	}
	kind := EventTypingStop
	if typing {
		kind = EventTypingStart
	}
	s.publish(to, kind, map[string]any{"identity": owner})
	return nil
}

// Subscribe opens a push channel for owner. Counterparts are told when the
// account comes online or goes offline. The returned func ends the
// subscription.
func (s *Service) Subscribe(owner string) (<-chan Event, func()) {
	key := identity.Key(owner)
	sub, first := s.hub.Subscribe(key)
	if first {
		s.announce(owner, true)
	}
	var once sync.Once
	return sub.C, func() {
		once.Do(func() {
			if s.hub.Cancel(sub) {
				s.announce(owner, false)
			}
		})
	}
}

func (s *Service) announce(owner string, online bool) {
	payload := map[string]any{"identity": owner, "online": online}
	if !online {
		payload["lastSeenAt"] = s.now().UTC().Format(time.RFC3339Nano)
	}
	for _, c := range s.store.Counterparts(owner) {
		s.hub.Publish(c, newEvent(EventPresence, payload))
	}
}
