package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/normalize"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/identity"
)

// BeginSend appends an optimistic pending message to the conversation with
// counterpart and returns it. The conversation is created with local origin
// when it does not exist yet.
func (e *Engine) BeginSend(ctx context.Context, counterpart, body, mediaURL string) (models.Message, error) {
	key := identity.Key(counterpart)
	if key == "" {
		return models.Message{}, ErrInvalidIdentity
	}
	body = strings.TrimSpace(body)
	if body == "" && mediaURL == "" {
		return models.Message{}, ErrEmptyMessage
	}

	rec := models.Record{
		"from":   e.self,
		"to":     counterpart,
		"body":   body,
		"sentAt": e.now(),
	}
	if mediaURL != "" {
		rec["mediaUrl"] = mediaURL
	}
	m, err := e.norm.Message(rec, normalize.SourceLocal, counterpart)
	if err != nil {
		return models.Message{}, fmt.Errorf("build optimistic message: %w", err)
	}

	e.store.Upsert(m)
	e.pending[m.ID] = pendingSend{key: key, clientID: m.ClientID, startedAt: m.SentAt}
	e.byClient[m.ClientID] = m.ID

	_, created := e.index.ApplyOutgoing(key, counterpart, m.Preview(), m.SentAt)
	e.recorder.SendStarted()
	e.logger.Debug(ctx, "send started", "conversation", key, "temp_id", m.ID)

	e.emit(Change{Kind: ChangeMessages, Key: key})
	if created {
		e.emit(Change{Kind: ChangeConversations, Key: key})
	}
	return m, nil
}

// ConfirmSend applies the backend acknowledgment of a send. The temporary
// record is renamed to confirmedID in place; a record already stored under
// confirmedID (a pushed echo that won the race) is folded into it. An
// acknowledgment with a failed status keeps the record and marks it failed.
func (e *Engine) ConfirmSend(ctx context.Context, tempID, confirmedID string, status models.Status, errText string) (models.Message, error) {
	p, ok := e.pending[tempID]
	if !ok {
		id, echoed := e.resolved[tempID]
		if !echoed {
			return models.Message{}, ErrUnknownSend
		}
		delete(e.resolved, tempID)
		m, found := e.store.Lookup(id)
		if !found {
			return models.Message{}, ErrNotFound
		}
		if status.Valid() {
			if updated, changed := e.advance(m.ConversationKey, id, status, errText); changed {
				m = updated
				e.emit(Change{Kind: ChangeMessages, Key: m.ConversationKey})
			}
		}
		e.recordOutcome(m)
		return m, nil
	}

	m, err := e.confirm(ctx, tempID, p, confirmedID, status, errText, nil)
	if err != nil {
		return models.Message{}, err
	}
	e.recordOutcome(m)
	return m, nil
}

// FailSend rolls back a send the backend never accepted.
func (e *Engine) FailSend(ctx context.Context, tempID string, cause error) error {
	p, ok := e.pending[tempID]
	if !ok {
		// A pushed echo already proved the backend accepted the message.
		if id, echoed := e.resolved[tempID]; echoed {
			delete(e.resolved, tempID)
			e.recorder.SendFinished(OutcomeConfirmed)
			e.logger.Warn(ctx, "send reported failed after echo, keeping message", "id", id, "error", cause)
			return nil
		}
		return ErrUnknownSend
	}
	delete(e.pending, tempID)
	delete(e.byClient, p.clientID)

	e.store.Remove(p.key, tempID)
	e.refreshPreview(p.key, "")
	e.recorder.SendFinished(OutcomeRolledBack)
	e.logger.Warn(ctx, "send rolled back", "conversation", p.key, "temp_id", tempID, "error", cause)
	e.emit(Change{Kind: ChangeMessages, Key: p.key})
	return nil
}

func (e *Engine) recordOutcome(m models.Message) {
	if m.Status == models.StatusFailed {
		e.recorder.SendFinished(OutcomeFailed)
		return
	}
	e.recorder.SendFinished(OutcomeConfirmed)
}

// confirm resolves a pending send. echo is the pushed copy of the message
// when the confirmation comes from the push channel.
func (e *Engine) confirm(ctx context.Context, tempID string, p pendingSend, confirmedID string, status models.Status, errText string, echo *models.Message) (models.Message, error) {
	delete(e.pending, tempID)
	delete(e.byClient, p.clientID)

	if confirmedID == "" {
		confirmedID = tempID
	}

	if confirmedID != tempID {
		if dup, ok := e.store.Lookup(confirmedID); ok {
			e.store.Remove(dup.ConversationKey, confirmedID)
			dup.ID, dup.ConversationKey = tempID, p.key
			e.store.Upsert(dup)
			e.logger.Debug(ctx, "folded raced echo into pending send", "conversation", p.key, "id", confirmedID)
		}
	}
	if echo != nil {
		in := *echo
		in.ID, in.ConversationKey = tempID, p.key
		e.store.Upsert(in)
	}

	m, err := e.store.Rename(p.key, tempID, confirmedID)
	if err != nil {
		return models.Message{}, fmt.Errorf("rename %s: %w", tempID, err)
	}
	if status == "" {
		status = models.StatusSent
	}
	if updated, changed := e.advance(p.key, confirmedID, status, errText); changed {
		m = updated
	}
	e.unpark(ctx, p.key, confirmedID)
	if updated, ok := e.store.Get(p.key, confirmedID); ok {
		m = updated
	}

	e.refreshPreview(p.key, confirmedID)
	e.serverKnown(p.key)
	e.logger.Debug(ctx, "send confirmed", "conversation", p.key, "temp_id", tempID, "id", confirmedID, "status", m.Status,
		"latency", e.now().Sub(p.startedAt))
	e.emit(Change{Kind: ChangeMessages, Key: p.key})
	return m, nil
}
