// Package store keeps per-conversation message timelines: unique by id,
// ordered by SentAt, with in-place renames for optimistic sends.
//
// Store is safe for concurrent readers; writers are expected to be a single
// goroutine (the session loop), but every method takes the lock regardless.
package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
)

var (
	ErrNotFound   = errors.New("message not found")
	ErrIDConflict = errors.New("message id already present")
)

// Result of an Upsert.
type Result int

const (
	Unchanged Result = iota
	Inserted
	Merged
)

func (r Result) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Merged:
		return "merged"
	default:
		return "unchanged"
	}
}

type Store struct {
	mu      sync.RWMutex
	threads map[string][]models.Message
	// owner maps a message id to its conversation key.
	owner map[string]string
}

func New() *Store {
	return &Store{
		threads: make(map[string][]models.Message),
		owner:   make(map[string]string),
	}
}

// Upsert inserts m at its SentAt position, or merges it into the record
// with the same id. Merging never moves a record and never regresses its
// status; a deleted record stays deleted.
func (s *Store) Upsert(m models.Message) (models.Message, Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.threads[m.ConversationKey]
	if i := indexOf(msgs, m.ID); i >= 0 {
		merged, changed := merge(msgs[i], m)
		if !changed {
			return merged, Unchanged
		}
		msgs[i] = merged
		return merged, Merged
	}

	s.threads[m.ConversationKey] = insertSorted(msgs, m)
	s.owner[m.ID] = m.ConversationKey
	return m, Inserted
}

// Get returns one message of a conversation.
func (s *Store) Get(key, id string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.threads[key]
	if i := indexOf(msgs, id); i >= 0 {
		return msgs[i], true
	}
	return models.Message{}, false
}

// Lookup finds a message by id across all conversations.
func (s *Store) Lookup(id string) (models.Message, bool) {
	s.mu.RLock()
	key, ok := s.owner[id]
	s.mu.RUnlock()
	if !ok {
		return models.Message{}, false
	}
	return s.Get(key, id)
}

// Update mutates a message in place. fn reports whether it changed
// anything; the id, conversation and SentAt of the record are preserved.
func (s *Store) Update(key, id string, fn func(*models.Message) bool) (models.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.threads[key]
	i := indexOf(msgs, id)
	if i < 0 {
		return models.Message{}, false, ErrNotFound
	}
	m := msgs[i]
	if !fn(&m) {
		return msgs[i], false, nil
	}
	m.ID, m.ConversationKey, m.SentAt = msgs[i].ID, msgs[i].ConversationKey, msgs[i].SentAt
	msgs[i] = m
	return m, true, nil
}

// Rename changes the id of a message without moving it.
func (s *Store) Rename(key, oldID, newID string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.threads[key]
	i := indexOf(msgs, oldID)
	if i < 0 {
		return models.Message{}, ErrNotFound
	}
	if oldID == newID {
		return msgs[i], nil
	}
	if indexOf(msgs, newID) >= 0 {
		return models.Message{}, ErrIDConflict
	}
	msgs[i].ID = newID
	delete(s.owner, oldID)
	s.owner[newID] = key
	return msgs[i], nil
}

// Remove drops a message entirely.
func (s *Store) Remove(key, id string) (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.threads[key]
	i := indexOf(msgs, id)
	if i < 0 {
		return models.Message{}, false
	}
	m := msgs[i]
	s.threads[key] = append(msgs[:i:i], msgs[i+1:]...)
	delete(s.owner, id)
	return m, true
}

// List returns a copy of the ordered timeline of a conversation.
func (s *Store) List(key string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.threads[key]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Last returns the newest message of a conversation.
func (s *Store) Last(key string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.threads[key]
	if len(msgs) == 0 {
		return models.Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// Len is the number of messages in a conversation.
func (s *Store) Len(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads[key])
}

// Drop forgets a whole conversation.
func (s *Store) Drop(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.threads[key] {
		delete(s.owner, m.ID)
	}
	delete(s.threads, key)
}

func indexOf(msgs []models.Message, id string) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].ID == id {
			return i
		}
	}
	return -1
}

// insertSorted places m after every message with SentAt <= m.SentAt, so
// records with equal timestamps keep arrival order.
func insertSorted(msgs []models.Message, m models.Message) []models.Message {
	i := sort.Search(len(msgs), func(i int) bool { return msgs[i].SentAt.After(m.SentAt) })
	msgs = append(msgs, models.Message{})
	copy(msgs[i+1:], msgs[i:])
	msgs[i] = m
	return msgs
}

// merge folds incoming into cur and reports whether cur changed.
func merge(cur, in models.Message) (models.Message, bool) {
	out := cur
	changed := false

	if st, ok := cur.Status.Advance(in.Status, cur.Direction); ok {
		out.Status = st
		changed = true
	}
	if in.Error != "" && out.Status == models.StatusFailed && out.Error != in.Error {
		out.Error = in.Error
		changed = true
	}

	if cur.Deleted {
		return out, changed
	}
	if in.Deleted {
		out.SoftDelete()
		return out, true
	}

	if in.Body != "" && in.Body != cur.Body {
		out.Body = in.Body
		changed = true
	}
	if in.MediaURL != "" && in.MediaURL != cur.MediaURL {
		out.MediaURL, out.MediaKind = in.MediaURL, in.MediaKind
		changed = true
	}
	if out.From == "" && in.From != "" {
		out.From = in.From
		changed = true
	}
	if out.To == "" && in.To != "" {
		out.To = in.To
		changed = true
	}
	if out.ClientID == "" && in.ClientID != "" {
		out.ClientID = in.ClientID
		changed = true
	}
	return out, changed
}
