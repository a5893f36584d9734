package engine

import (
	"context"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/normalize"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/identity"
)

// LoadConversations merges a conversation list snapshot from the backend
// and the locally cached conversations into the index. Malformed records
// are skipped and returned.
func (e *Engine) LoadConversations(ctx context.Context, recs []models.Record, local []models.Conversation) []error {
	server, errs := e.norm.Conversations(recs)
	for _, err := range errs {
		e.logger.Warn(ctx, "skipping malformed conversation", "error", err)
	}

	e.index.MergeSnapshot(server, local)
	for _, c := range local {
		if cur, ok := e.index.Get(c.Key); ok && cur.Origin == models.OriginServer {
			e.emit(Change{Kind: ChangeServerKnown, Key: c.Key})
		}
	}
	e.emit(Change{Kind: ChangeConversations})
	return errs
}

// LoadHistory merges fetched history of the conversation with counterpart.
// Records are merged by id; messages already received live are kept and
// never re-counted. It returns the number of new messages.
func (e *Engine) LoadHistory(ctx context.Context, counterpart string, recs []models.Record) (int, []error) {
	key := identity.Key(counterpart)
	if key == "" {
		return 0, []error{ErrInvalidIdentity}
	}

	msgs, errs := e.norm.Messages(recs, normalize.SourceHistory, counterpart)
	for _, err := range errs {
		e.logger.Warn(ctx, "skipping malformed history record", "conversation", key, "error", err)
	}

	added := 0
	for _, m := range msgs {
		if m.ConversationKey != key {
			e.logger.Debug(ctx, "history record for another conversation", "conversation", key, "other", m.ConversationKey)
		}
		before := e.store.Len(m.ConversationKey)
		if e.applyMessage(ctx, m, counterpart, false) && e.store.Len(m.ConversationKey) > before {
			added++
		}
	}
	if len(msgs) == 0 {
		e.index.Ensure(key, counterpart, models.OriginServer)
	}
	e.emit(Change{Kind: ChangeMessages, Key: key})
	return added, errs
}

// StartConversation opens an empty conversation with counterpart. It is
// local until the backend confirms a message in it.
func (e *Engine) StartConversation(counterpart, displayName string) (models.Conversation, bool, error) {
	key := identity.Key(counterpart)
	if key == "" {
		return models.Conversation{}, false, ErrInvalidIdentity
	}
	c, created := e.index.Ensure(key, counterpart, models.OriginLocal)
	if displayName != "" {
		e.index.SetDisplayName(key, displayName)
		c, _ = e.index.Get(key)
	}
	if created {
		e.emit(Change{Kind: ChangeConversations, Key: key})
	}
	return c, created, nil
}

// DeleteLocally removes a message from this device's view. Later deliveries
// of the same id are ignored.
func (e *Engine) DeleteLocally(key, id string) error {
	if _, ok := e.pending[id]; ok {
		return ErrSendInFlight
	}
	if _, ok := e.store.Remove(key, id); !ok {
		return ErrNotFound
	}
	e.hidden[id] = struct{}{}
	e.dropParked(id)
	e.refreshPreview(key, "")
	e.emit(Change{Kind: ChangeMessages, Key: key})
	return nil
}

// PrepareDeleteForEveryone checks that a message may be deleted on the
// backend and returns it. Only confirmed, self-authored messages that are
// not deleted yet qualify. The deletion itself is applied when the backend
// agrees, through a MessageDeleted event.
func (e *Engine) PrepareDeleteForEveryone(key, id string) (models.Message, error) {
	if _, ok := e.pending[id]; ok {
		return models.Message{}, ErrSendInFlight
	}
	m, ok := e.store.Get(key, id)
	if !ok {
		return models.Message{}, ErrNotFound
	}
	if m.Direction != models.DirectionSelf || m.Deleted {
		return models.Message{}, ErrNotDeletable
	}
	return m, nil
}

// Focus makes key the focused conversation ("" for none) and returns the
// focus generation. A mark-read acknowledgment is only honored when it
// carries the current generation.
func (e *Engine) Focus(key string) uint64 {
	e.focus = key
	e.focusGen++
	return e.focusGen
}

// AckRead applies the backend acknowledgment of a mark-read call issued
// for key under generation gen. It reports whether the ack was applied;
// stale acks are ignored.
func (e *Engine) AckRead(ctx context.Context, key string, gen uint64) bool {
	if gen != e.focusGen || key != e.focus {
		e.logger.Debug(ctx, "discarding stale read ack", "conversation", key, "gen", gen, "current", e.focusGen)
		return false
	}
	var read []string
	for _, m := range e.store.List(key) {
		if m.Direction != models.DirectionOther {
			continue
		}
		if _, changed := e.advance(key, m.ID, models.StatusRead, ""); changed {
			read = append(read, m.ID)
		}
	}
	if len(read) > 0 {
		e.receipts.SyncStatus(key, read, models.StatusRead)
	}
	if e.index.ResetUnread(key) {
		e.emit(Change{Kind: ChangeConversations, Key: key})
	}
	e.emit(Change{Kind: ChangeMessages, Key: key})
	return true
}
