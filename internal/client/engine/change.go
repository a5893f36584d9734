package engine

import "github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"

// ChangeKind classifies a Change.
type ChangeKind int

const (
	// ChangeMessages means the timeline of Key changed.
	ChangeMessages ChangeKind = iota
	// ChangeIncoming carries a newly inserted inbound Message.
	ChangeIncoming
	// ChangeConversations means the conversation list changed.
	ChangeConversations
	// ChangePresence means presence or typing of Key changed.
	ChangePresence
	// ChangeServerKnown means a local-only conversation is now known to the
	// backend; a cached copy can be forgotten.
	ChangeServerKnown
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeMessages:
		return "messages"
	case ChangeIncoming:
		return "incoming"
	case ChangeConversations:
		return "conversations"
	case ChangePresence:
		return "presence"
	case ChangeServerKnown:
		return "server_known"
	default:
		return "unknown"
	}
}

// Change is delivered to observers synchronously on the session loop.
type Change struct {
	Kind    ChangeKind
	Key     string
	Message models.Message
}
