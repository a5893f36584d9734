// Package ingest is the boundary between the backend and the engine: it
// validates push envelopes and REST presence replies and turns them into a
// closed set of typed events. Nothing past this package sees raw payloads.
package ingest

import (
	"time"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
)

// Kind is the wire name of an event.
type Kind string

const (
	KindIncomingMessage Kind = "incoming_message"
	KindStatusUpdate    Kind = "message_status_update"
	KindMessageDeleted  Kind = "message_deleted"
	KindPresence        Kind = "presence"
	KindTypingStart     Kind = "typing_start"
	KindTypingStop      Kind = "typing_stop"
)

// Event is one of IncomingMessage, StatusUpdate, MessageDeleted, Presence
// or Typing.
type Event interface {
	Kind() Kind
	// Conversation is the identity key the event refers to; it may be empty
	// for status updates that only name message ids.
	Conversation() string
	sealed()
}

type IncomingMessage struct {
	Key      string
	Identity string
	Message  models.Message
}

type StatusUpdate struct {
	Key        string
	MessageIDs []string
	Status     models.Status
	Error      string
}

type MessageDeleted struct {
	Key       string
	MessageID string
}

type Presence struct {
	Key        string
	Online     bool
	LastSeenAt time.Time
}

type Typing struct {
	Key    string
	Typing bool
}

func (IncomingMessage) Kind() Kind { return KindIncomingMessage }
func (StatusUpdate) Kind() Kind    { return KindStatusUpdate }
func (MessageDeleted) Kind() Kind  { return KindMessageDeleted }
func (Presence) Kind() Kind        { return KindPresence }

func (t Typing) Kind() Kind {
	if t.Typing {
		return KindTypingStart
	}
	return KindTypingStop
}

func (e IncomingMessage) Conversation() string { return e.Key }
func (e StatusUpdate) Conversation() string    { return e.Key }
func (e MessageDeleted) Conversation() string  { return e.Key }
func (e Presence) Conversation() string        { return e.Key }
func (e Typing) Conversation() string          { return e.Key }

func (IncomingMessage) sealed() {}
func (StatusUpdate) sealed()    {}
func (MessageDeleted) sealed()  {}
func (Presence) sealed()        {}
func (Typing) sealed()          {}
