package models

import "time"

// Origin records where a conversation was first learned from.
type Origin string

const (
	OriginServer Origin = "server"
	OriginLocal  Origin = "local"
)

// Conversation is one row of the conversation list.
type Conversation struct {
	// Key is the canonical identity key, unique across the list.
	Key string
	// Identity is the counterpart identifier as last seen from a source.
	Identity           string
	DisplayName        string
	LastMessagePreview string
	LastActivityAt     time.Time
	UnreadCount        int
	Origin             Origin
}

// Title is the best label available for the conversation.
func (c Conversation) Title() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	if c.Identity != "" {
		return c.Identity
	}
	return c.Key
}

// PresenceState is the live availability of a counterpart.
type PresenceState struct {
	Key        string
	Online     bool
	LastSeenAt time.Time
	Typing     bool
}

// Record is a loosely-typed payload as it arrives from the backend, before
// normalization.
type Record = map[string]any
