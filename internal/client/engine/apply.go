package engine

import (
	"context"
	"fmt"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/ingest"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/store"
)

// Apply dispatches one decoded push event.
func (e *Engine) Apply(ctx context.Context, ev ingest.Event) {
	switch ev := ev.(type) {
	case ingest.IncomingMessage:
		e.applyMessage(ctx, ev.Message, ev.Identity, true)
	case ingest.StatusUpdate:
		e.applyStatus(ctx, ev)
	case ingest.MessageDeleted:
		e.applyDeleted(ctx, ev)
	case ingest.Presence:
		e.tracker.OnPresence(ev.Key, ev.Online, ev.LastSeenAt)
		e.emit(Change{Kind: ChangePresence, Key: ev.Key})
	case ingest.Typing:
		e.tracker.OnTyping(ev.Key, ev.Typing)
		e.emit(Change{Kind: ChangePresence, Key: ev.Key})
	default:
		e.logger.Warn(ctx, "unhandled event", "type", fmt.Sprintf("%T", ev))
		e.recorder.EventDropped("unhandled")
		return
	}
	e.recorder.EventApplied(ev.Kind())
}

// Dropped records an envelope rejected at the ingestion boundary.
func (e *Engine) Dropped(reason string) {
	e.recorder.EventDropped(reason)
}

// applyMessage stores one message from the push channel (live) or history.
// Only live inbound messages count towards unread or trigger read receipts.
func (e *Engine) applyMessage(ctx context.Context, m models.Message, counterpart string, live bool) bool {
	if _, hidden := e.hidden[m.ID]; hidden {
		return false
	}
	if m.Direction == models.DirectionSelf && m.ClientID != "" {
		if tempID, ok := e.byClient[m.ClientID]; ok {
			if _, err := e.confirm(ctx, tempID, e.pending[tempID], m.ID, m.Status, m.Error, &m); err != nil {
				e.logger.Warn(ctx, "echo confirmation failed", "temp_id", tempID, "error", err)
				return false
			}
			if m.ID != "" && m.ID != tempID {
				e.resolved[tempID] = m.ID
			}
			return true
		}
	}

	if e.exhume(m.ID) {
		m.SoftDelete()
	}

	key := m.ConversationKey
	stored, res := e.store.Upsert(m)
	switch res {
	case store.Unchanged:
		return false
	case store.Merged:
		e.refreshPreview(key, stored.ID)
		e.emit(Change{Kind: ChangeMessages, Key: key})
		return true
	}

	e.unpark(ctx, key, m.ID)
	if cur, ok := e.store.Get(key, m.ID); ok {
		stored = cur
	}

	focused := key == e.focus
	inbound := stored.Direction == models.DirectionOther
	e.index.ApplyIncoming(key, counterpart, stored.Preview(), stored.SentAt, live && inbound && !focused)
	e.serverKnown(key)

	if live && inbound && focused {
		if n := e.markSelfRead(key, stored); n > 0 {
			e.logger.Debug(ctx, "reply implies earlier messages were read", "conversation", key, "upgraded", n)
		}
		if cur, changed := e.advance(key, stored.ID, models.StatusRead, ""); changed {
			stored = cur
		}
		e.receipts.SyncStatus(key, []string{stored.ID}, models.StatusRead)
		e.receipts.RequestReadReceipt(key, counterpart)
	} else if live && inbound && stored.Status != models.StatusRead {
		e.receipts.SyncStatus(key, []string{stored.ID}, models.StatusDelivered)
	}

	e.emit(Change{Kind: ChangeMessages, Key: key})
	if live && inbound {
		e.emit(Change{Kind: ChangeIncoming, Key: key, Message: stored})
	}
	e.emit(Change{Kind: ChangeConversations, Key: key})
	return true
}

// markSelfRead upgrades every self message sent before reply to read.
// Pending messages have not reached the counterpart and are left alone.
func (e *Engine) markSelfRead(key string, reply models.Message) int {
	n := 0
	for _, m := range e.store.List(key) {
		if m.Direction != models.DirectionSelf || m.Status == models.StatusPending || m.SentAt.After(reply.SentAt) {
			continue
		}
		if _, changed := e.advance(key, m.ID, models.StatusRead, ""); changed {
			n++
		}
	}
	return n
}

func (e *Engine) locate(key, id string) (models.Message, bool) {
	if key != "" {
		if m, ok := e.store.Get(key, id); ok {
			return m, true
		}
	}
	return e.store.Lookup(id)
}

func (e *Engine) applyStatus(ctx context.Context, ev ingest.StatusUpdate) {
	for _, id := range ev.MessageIDs {
		m, ok := e.locate(ev.Key, id)
		if !ok {
			if _, hidden := e.hidden[id]; hidden {
				continue
			}
			e.park(id, parkedStatus{key: ev.Key, status: ev.Status, err: ev.Error})
			e.logger.Debug(ctx, "parked status for unknown message", "id", id, "status", ev.Status)
			continue
		}
		if _, changed := e.advance(m.ConversationKey, id, ev.Status, ev.Error); !changed {
			e.recorder.StatusIgnored()
			e.logger.Debug(ctx, "ignored status", "id", id, "current", m.Status, "pushed", ev.Status)
			continue
		}
		e.emit(Change{Kind: ChangeMessages, Key: m.ConversationKey})
	}
}

func (e *Engine) applyDeleted(ctx context.Context, ev ingest.MessageDeleted) {
	m, ok := e.locate(ev.Key, ev.MessageID)
	if !ok {
		if _, hidden := e.hidden[ev.MessageID]; !hidden {
			e.bury(ev.MessageID)
			e.logger.Debug(ctx, "deletion for unknown message", "id", ev.MessageID)
		}
		return
	}
	_, changed, err := e.store.Update(m.ConversationKey, m.ID, func(m *models.Message) bool {
		if m.Deleted {
			return false
		}
		m.SoftDelete()
		return true
	})
	if err != nil || !changed {
		return
	}
	e.refreshPreview(m.ConversationKey, m.ID)
	e.emit(Change{Kind: ChangeMessages, Key: m.ConversationKey})
	e.emit(Change{Kind: ChangeConversations, Key: m.ConversationKey})
}
