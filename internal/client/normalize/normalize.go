package normalize

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/identity"
	"github.com/google/uuid"
)

// Source tells the Normalizer where a record came from.
type Source int

const (
	// SourceHistory is a bulk fetch (conversation history, snapshot).
	SourceHistory Source = iota
	// SourcePush is a live push event payload.
	SourcePush
	// SourceLocal is an optimistic send built on this device.
	SourceLocal
)

func (s Source) String() string {
	switch s {
	case SourceHistory:
		return "history"
	case SourcePush:
		return "push"
	case SourceLocal:
		return "local"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// TempIDPrefix marks ids minted for optimistic sends. It is informational;
// correlation never relies on it.
const TempIDPrefix = "tmp_"

// Normalizer is safe for concurrent use; it holds no mutable state.
type Normalizer struct {
	self  identity.Identity
	now   func() time.Time
	newID func() string
}

type Option func(*Normalizer)

// WithClock overrides the time source used when a record carries no timestamp.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// WithIDGenerator overrides the generator of temporary client ids.
func WithIDGenerator(gen func() string) Option {
	return func(n *Normalizer) { n.newID = gen }
}

// New returns a Normalizer for the account identified by ownNumber.
func New(ownNumber string, opts ...Option) *Normalizer {
	n := &Normalizer{
		self:  identity.Normalize(ownNumber),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// IsSelf reports whether raw identifies the signed-in account.
func (n *Normalizer) IsSelf(raw string) bool {
	return n.self.Valid() && identity.Key(raw) == n.self.Key
}

// Message normalizes a single message record. hint is the identity of the
// conversation the record was fetched for, used when the record itself does
// not name a counterpart.
func (n *Normalizer) Message(rec models.Record, src Source, hint string) (models.Message, error) {
	if rec == nil {
		return models.Message{}, ErrNilRecord
	}

	m := models.Message{
		From:     str(rec, "from", "From", "sender"),
		To:       str(rec, "to", "To", "recipient"),
		Body:     str(rec, "body", "Body", "text", "message", "content"),
		ClientID: str(rec, "clientId", "client_id", "correlationId"),
		Error:    str(rec, "errorMessage", "error_message", "error"),
		Deleted:  boolean(rec, "deleted", "isDeleted"),
	}
	m.MediaURL, m.MediaKind = media(rec)

	m.ID = str(rec, "messageId", "message_id")
	if m.ID == "" {
		m.ID = str(rec, "id", "_id")
	}
	if m.ID == "" {
		m.ID = str(rec, "sid", "messageSid", "MessageSid", "SmsSid", "SmsMessageSid")
	}
	if src == SourceLocal {
		if m.ClientID == "" {
			m.ClientID = n.newID()
		}
		if m.ID == "" {
			m.ID = TempIDPrefix + m.ClientID
		}
	}
	if m.ID == "" {
		return models.Message{}, ErrMissingID
	}

	if ts, ok := timestamp(rec, "sentAt", "sent_at", "dateSent", "date_sent"); ok {
		m.SentAt = ts
	} else if ts, ok := timestamp(rec, "createdAt", "created_at", "dateCreated", "date_created"); ok {
		m.SentAt = ts
	} else if ts, ok := timestamp(rec, "updatedAt", "updated_at", "dateUpdated", "date_updated"); ok {
		m.SentAt = ts
	} else if ts, ok := timestamp(rec, "time", "timestamp"); ok {
		m.SentAt = ts
	} else {
		m.SentAt = n.now()
	}

	m.Direction = n.direction(rec, m, src)

	counterpart := m.From
	if m.Direction == models.DirectionSelf {
		counterpart = m.To
	}
	m.ConversationKey = identity.Key(counterpart)
	if m.ConversationKey == "" {
		m.ConversationKey = identity.Key(hint)
	}
	if m.ConversationKey == "" {
		return models.Message{}, ErrNoConversation
	}

	if src == SourceLocal {
		m.Status = models.StatusPending
	} else {
		m.Status = status(str(rec, "status", "Status", "SmsStatus", "MessageStatus"), m.Direction)
	}
	if m.Deleted {
		m.SoftDelete()
	}
	return m, nil
}

func (n *Normalizer) direction(rec models.Record, m models.Message, src Source) models.Direction {
	if src == SourceLocal {
		return models.DirectionSelf
	}
	switch d := strings.ToLower(str(rec, "direction")); {
	case d == "self" || d == "sent" || strings.HasPrefix(d, "outbound"):
		return models.DirectionSelf
	case d == "other" || d == "received" || d == "inbound":
		return models.DirectionOther
	}
	if m.From != "" && n.IsSelf(m.From) {
		return models.DirectionSelf
	}
	return models.DirectionOther
}

func status(raw string, dir models.Direction) models.Status {
	if s, ok := ParseStatus(raw); ok && (s != models.StatusFailed || dir == models.DirectionSelf) {
		return s
	}
	if dir == models.DirectionSelf {
		return models.StatusSent
	}
	return models.StatusDelivered
}

// ParseStatus maps a raw status string onto the status chain without
// applying direction defaults; ok is false for unknown values.
func ParseStatus(raw string) (models.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queued", "accepted", "sending", "scheduled", "pending":
		return models.StatusPending, true
	case "sent":
		return models.StatusSent, true
	case "delivered", "received":
		return models.StatusDelivered, true
	case "read", "seen":
		return models.StatusRead, true
	case "failed", "undelivered", "canceled":
		return models.StatusFailed, true
	}
	return "", false
}

// Messages normalizes a batch and returns the valid messages stably sorted by
// SentAt, together with the per-record errors of the rejected ones.
func (n *Normalizer) Messages(recs []models.Record, src Source, hint string) ([]models.Message, []error) {
	out := make([]models.Message, 0, len(recs))
	var errs []error
	for i, rec := range recs {
		m, err := n.Message(rec, src, hint)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out, errs
}

// Conversation normalizes a conversation snapshot record.
func (n *Normalizer) Conversation(rec models.Record) (models.Conversation, error) {
	if rec == nil {
		return models.Conversation{}, ErrNilRecord
	}

	raw := str(rec, "identity", "phone", "phoneNumber", "number", "contact", "counterpart")
	c := models.Conversation{
		Key:                identity.Key(raw),
		Identity:           raw,
		DisplayName:        str(rec, "displayName", "display_name", "name", "contactName", "friendlyName"),
		LastMessagePreview: str(rec, "lastMessagePreview", "last_message_preview", "preview"),
		UnreadCount:        integer(rec, "unreadCount", "unread_count", "unread"),
		Origin:             models.OriginServer,
	}
	if c.Key == "" {
		return models.Conversation{}, ErrNoConversation
	}
	if c.UnreadCount < 0 {
		c.UnreadCount = 0
	}

	if ts, ok := timestamp(rec, "lastActivityAt", "last_activity_at", "lastMessageAt", "updatedAt", "dateUpdated", "time"); ok {
		c.LastActivityAt = ts
	}

	switch last := rec["lastMessage"].(type) {
	case string:
		if c.LastMessagePreview == "" {
			c.LastMessagePreview = strings.TrimSpace(last)
		}
	case map[string]any:
		if m, err := n.Message(last, SourceHistory, raw); err == nil {
			if c.LastMessagePreview == "" {
				c.LastMessagePreview = m.Preview()
			}
			if m.SentAt.After(c.LastActivityAt) {
				c.LastActivityAt = m.SentAt
			}
		}
	}
	return c, nil
}

// Conversations normalizes a snapshot, dropping rejected records.
func (n *Normalizer) Conversations(recs []models.Record) ([]models.Conversation, []error) {
	out := make([]models.Conversation, 0, len(recs))
	var errs []error
	for i, rec := range recs {
		c, err := n.Conversation(rec)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		out = append(out, c)
	}
	return out, errs
}
