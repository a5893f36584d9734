// Package models holds the records kept by the development backend.
package models

import "time"

const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

// Message is one stored message. From and To are numbers as the sender
// wrote them.
type Message struct {
	SID      string
	From     string
	To       string
	Body     string
	MediaURL string
	ClientID string
	Status   string
	SentAt   time.Time
	Deleted  bool
}

// Record is the wire form of m.
func (m Message) Record() map[string]any {
	rec := map[string]any{
		"sid":    m.SID,
		"from":   m.From,
		"to":     m.To,
		"body":   m.Body,
		"status": m.Status,
		"sentAt": m.SentAt.UTC().Format(time.RFC3339Nano),
	}
	if m.MediaURL != "" {
		rec["mediaUrl"] = m.MediaURL
	}
	if m.ClientID != "" {
		rec["clientId"] = m.ClientID
	}
	if m.Deleted {
		rec["deleted"] = true
	}
	return rec
}

// Conversation summarizes one counterpart of an account.
type Conversation struct {
	Identity       string
	LastMessage    Message
	LastActivityAt time.Time
	UnreadCount    int
}

func (c Conversation) Record() map[string]any {
	preview := c.LastMessage.Body
	if c.LastMessage.Deleted {
		preview = ""
	}
	return map[string]any{
		"identity":           c.Identity,
		"lastMessagePreview": preview,
		"lastActivityAt":     c.LastActivityAt.UTC().Format(time.RFC3339Nano),
		"unreadCount":        c.UnreadCount,
	}
}
