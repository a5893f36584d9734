package messaging

import (
	"sort"
	"sync"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/common"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/identity"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/server/models"
)

// Store keeps every message in memory. Accounts and counterparts are
// matched by identity key, so formatting differences between numbers do not
// split a conversation.
type Store struct {
	mu       sync.RWMutex
	messages map[string]*models.Message
}

func NewStore() *Store {
	return &Store{messages: make(map[string]*models.Message)}
}

func (s *Store) Add(m models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.SID] = &m
}

func (s *Store) Get(sid string) (models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[sid]
	if !ok {
		return models.Message{}, common.ErrorNotFound
	}
	return *m, nil
}

// Update applies fn to the message sid and returns the result. fn reports
// whether it changed anything.
func (s *Store) Update(sid string, fn func(m *models.Message) bool) (models.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[sid]
	if !ok {
		return models.Message{}, false, common.ErrorNotFound
	}
	changed := fn(m)
	return *m, changed, nil
}

// counterpartOf returns the other party of m as seen by ownKey, or "" when
// ownKey is not a party.
func counterpartOf(ownKey string, m *models.Message) string {
	switch ownKey {
	case identity.Key(m.From):
		return m.To
	case identity.Key(m.To):
		return m.From
	}
	return ""
}

// Messages returns the last limit messages between owner and counterpart,
// oldest first. limit <= 0 returns all of them.
func (s *Store) Messages(owner, counterpart string, limit int) []models.Message {
	own, ck := identity.Key(owner), identity.Key(counterpart)
	s.mu.RLock()
	var out []models.Message
	for _, m := range s.messages {
		if c := counterpartOf(own, m); c != "" && identity.Key(c) == ck {
			out = append(out, *m)
		}
	}
	s.mu.RUnlock()

	sortBySentAt(out)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Conversations summarizes every counterpart of owner, most recent first.
func (s *Store) Conversations(owner string) []models.Conversation {
	own := identity.Key(owner)
	byKey := make(map[string]*models.Conversation)

	s.mu.RLock()
	for _, m := range s.messages {
		c := counterpartOf(own, m)
		if c == "" {
			continue
		}
		ck := identity.Key(c)
		conv, seen := byKey[ck]
		if !seen {
			conv = &models.Conversation{Identity: c}
			byKey[ck] = conv
		}
		if !m.SentAt.Before(conv.LastActivityAt) {
			conv.LastActivityAt = m.SentAt
			conv.LastMessage = *m
		}
		if identity.Key(m.To) == own && m.Status != models.StatusRead && !m.Deleted {
			conv.UnreadCount++
		}
	}
	s.mu.RUnlock()

	out := make([]models.Conversation, 0, len(byKey))
	for _, c := range byKey {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivityAt.Equal(out[j].LastActivityAt) {
			return out[i].LastActivityAt.After(out[j].LastActivityAt)
		}
		return out[i].Identity < out[j].Identity
	})
	return out
}

// MarkRead flips every unread message from counterpart to owner to read and
// returns the updated messages.
func (s *Store) MarkRead(owner, counterpart string) []models.Message {
	own, ck := identity.Key(owner), identity.Key(counterpart)
	s.mu.Lock()
	var out []models.Message
	for _, m := range s.messages {
		if identity.Key(m.To) != own || identity.Key(m.From) != ck || m.Status == models.StatusRead {
			continue
		}
		m.Status = models.StatusRead
		out = append(out, *m)
	}
	s.mu.Unlock()

	sortBySentAt(out)
	return out
}

// Counterparts returns the keys of everyone owner has exchanged messages with.
func (s *Store) Counterparts(owner string) []string {
	own := identity.Key(owner)
	seen := make(map[string]struct{})
	s.mu.RLock()
	for _, m := range s.messages {
		if c := counterpartOf(own, m); c != "" {
			seen[identity.Key(c)] = struct{}{}
		}
	}
	s.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortBySentAt(msgs []models.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].SentAt.Equal(msgs[j].SentAt) {
			return msgs[i].SentAt.Before(msgs[j].SentAt)
		}
		return msgs[i].SID < msgs[j].SID
	})
}
