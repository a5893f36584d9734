package models

import "time"

// Direction says who authored a message relative to the signed-in user.
type Direction string

const (
	DirectionSelf  Direction = "self"
	DirectionOther Direction = "other"
)

// Status is the delivery state of a message.
//
// The forward chain is pending → sent → delivered → read. Failed sits off
// the chain and is only meaningful for self-authored messages.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

var statusRank = map[Status]int{
	StatusPending:   1,
	StatusSent:      2,
	StatusDelivered: 3,
	StatusRead:      4,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusFailed
}

// Rank is the position of s on the forward chain, 0 for failed or unknown.
func (s Status) Rank() int { return statusRank[s] }

// AtOrAfter reports whether s is not behind other on the forward chain.
// Failed is never at or after anything.
func (s Status) AtOrAfter(other Status) bool {
	return s.Rank() > 0 && s.Rank() >= other.Rank()
}

// MediaKind classifies an attachment.
type MediaKind string

const (
	MediaNone     MediaKind = ""
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
)

// DeletedPlaceholder replaces the body of a soft-deleted message.
const DeletedPlaceholder = "This message was deleted"

// Message is one entry in a conversation timeline.
type Message struct {
	ID              string
	ConversationKey string
	From            string
	To              string
	Body            string
	MediaURL        string
	MediaKind       MediaKind
	Direction       Direction
	SentAt          time.Time
	Status          Status
	Deleted         bool
	// ClientID correlates an optimistic send with its server echo.
	ClientID string
	// Error carries the failure reason of a failed send.
	Error string
}

// SoftDelete hides the content while keeping the message in place.
func (m *Message) SoftDelete() {
	m.Deleted = true
	m.Body = DeletedPlaceholder
	m.MediaURL = ""
	m.MediaKind = MediaNone
}

// Preview is the one-line summary shown in the conversation list.
func (m Message) Preview() string {
	if m.Deleted {
		return DeletedPlaceholder
	}
	if m.Body != "" {
		return m.Body
	}
	switch m.MediaKind {
	case MediaImage:
		return "[image]"
	case MediaVideo:
		return "[video]"
	case MediaAudio:
		return "[audio]"
	case MediaDocument, MediaNone:
		if m.MediaURL != "" {
			return "[attachment]"
		}
	}
	return ""
}

// Advance applies a status transition and reports whether it changed
// anything. Forward moves along the chain are accepted, including a
// repeat of the current status (which is a no-op). Failed is accepted only
// for self-authored messages that were not read yet, and is terminal.
func (s Status) Advance(to Status, dir Direction) (Status, bool) {
	if s == StatusFailed || to == s {
		return s, false
	}
	if to == StatusFailed {
		if dir == DirectionSelf && s != StatusRead {
			return StatusFailed, true
		}
		return s, false
	}
	if to.AtOrAfter(s) {
		return to, true
	}
	return s, false
}
