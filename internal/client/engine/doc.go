// Package engine is the reconciliation core of the dialer client.
//
// An Engine folds three sources into one view per conversation: bulk
// snapshots (conversation list, history), optimistic sends started on this
// device and live push events. It owns the message Store and the
// conversation Index and dispatches presence and typing events to the
// presence Tracker.
//
// # Concurrency
//
// Engine methods that mutate state are not safe for concurrent use. They
// are meant to be called from a single goroutine, the session loop, which
// serializes REST results and push events in arrival order. Readers
// (Messages, Conversations, Presence) may be called from any goroutine;
// they return copies.
//
// # Optimistic sends
//
// BeginSend appends a pending message under a temporary id and records the
// correlation explicitly (temporary id to conversation and client id). The
// acknowledgment (ConfirmSend) or a pushed echo carrying the same client id
// renames the record in place. A transport failure (FailSend) removes it.
//
// # Status
//
// Delivery status only moves forward along pending, sent, delivered, read.
// Failed is accepted for self-authored messages that were not read and is
// terminal. Statuses for ids that are not known yet are parked and applied
// when the message shows up.
//
// # Deletions
//
// A deletion for an id that is not known yet is remembered, so a history
// response built before the deletion cannot restore the message content.
package engine
