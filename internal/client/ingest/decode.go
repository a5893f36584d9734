package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/normalize"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/identity"
)

var (
	ErrUnknownKind = errors.New("unknown event kind")
	ErrMalformed   = errors.New("malformed event")
)

var identityFields = []string{"identity", "conversation", "counterpart", "phone", "from"}

// Decoder converts raw envelopes into Events.
type Decoder struct {
	norm *normalize.Normalizer
}

func NewDecoder(n *normalize.Normalizer) *Decoder {
	return &Decoder{norm: n}
}

// Decode validates one push envelope. Envelopes look like
// {"type": "...", "payload": {...}}; "event"/"kind" and "data" are accepted
// as aliases, and a flat envelope without a payload object is its own
// payload.
func (d *Decoder) Decode(env models.Record) (Event, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil envelope", ErrMalformed)
	}
	kind := Kind(strings.ToLower(normalize.String(env, "type", "event", "kind")))
	payload := env
	for _, k := range []string{"payload", "data"} {
		if p, ok := env[k].(map[string]any); ok {
			payload = p
			break
		}
	}

	switch kind {
	case KindIncomingMessage:
		return d.incoming(payload)
	case KindStatusUpdate:
		return statusUpdate(payload)
	case KindMessageDeleted:
		return deleted(payload)
	case KindPresence:
		return presence(payload, "")
	case KindTypingStart, KindTypingStop:
		key := identity.Key(normalize.String(payload, identityFields...))
		if key == "" {
			return nil, fmt.Errorf("%w: %s without identity", ErrMalformed, kind)
		}
		return Typing{Key: key, Typing: kind == KindTypingStart}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// DecodePresence adapts a polled presence reply for the conversation
// identified by fallback.
func (d *Decoder) DecodePresence(fallback string, rec models.Record) (Event, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil presence", ErrMalformed)
	}
	return presence(rec, fallback)
}

func (d *Decoder) incoming(p models.Record) (Event, error) {
	msg, err := d.norm.Message(p, normalize.SourcePush, normalize.String(p, "identity", "conversation"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	counterpart := msg.From
	if msg.Direction == models.DirectionSelf {
		counterpart = msg.To
	}
	return IncomingMessage{Key: msg.ConversationKey, Identity: counterpart, Message: msg}, nil
}

func statusUpdate(p models.Record) (Event, error) {
	var ids []string
	for _, k := range []string{"messageIds", "ids", "sids"} {
		if arr, ok := p[k].([]any); ok {
			for _, v := range arr {
				if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
					ids = append(ids, strings.TrimSpace(s))
				}
			}
		}
	}
	if id := normalize.String(p, "messageId", "id", "sid", "messageSid", "MessageSid"); id != "" {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: status update without message id", ErrMalformed)
	}

	raw := normalize.String(p, "status", "MessageStatus", "SmsStatus")
	st, ok := normalize.ParseStatus(raw)
	if !ok {
		return nil, fmt.Errorf("%w: status %q", ErrMalformed, raw)
	}

	return StatusUpdate{
		Key:        identity.Key(normalize.String(p, "identity", "conversation", "to", "counterpart")),
		MessageIDs: ids,
		Status:     st,
		Error:      normalize.String(p, "errorMessage", "error_message", "error", "ErrorMessage"),
	}, nil
}

func deleted(p models.Record) (Event, error) {
	id := normalize.String(p, "messageId", "id", "sid", "messageSid")
	if id == "" {
		return nil, fmt.Errorf("%w: deletion without message id", ErrMalformed)
	}
	return MessageDeleted{
		Key:       identity.Key(normalize.String(p, identityFields...)),
		MessageID: id,
	}, nil
}

func presence(p models.Record, fallback string) (Event, error) {
	raw := normalize.String(p, identityFields...)
	if raw == "" {
		raw = fallback
	}
	key := identity.Key(raw)
	if key == "" {
		return nil, fmt.Errorf("%w: presence without identity", ErrMalformed)
	}

	var online bool
	switch v := p["online"].(type) {
	case bool:
		online = v
	default:
		switch strings.ToLower(normalize.String(p, "status", "state", "availability")) {
		case "online", "available", "active":
			online = true
		case "offline", "away", "unavailable", "inactive", "":
			online = false
		default:
			return nil, fmt.Errorf("%w: presence state", ErrMalformed)
		}
	}

	ev := Presence{Key: key, Online: online}
	if ts, ok := normalize.Time(p, "lastSeenAt", "last_seen_at", "lastSeen"); ok {
		ev.LastSeenAt = ts
	}
	return ev, nil
}
