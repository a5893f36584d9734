package engine

import (
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/ingest"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
)

// Send outcomes reported to a Recorder.
const (
	OutcomeConfirmed  = "confirmed"
	OutcomeFailed     = "failed"
	OutcomeRolledBack = "rolled_back"
)

// Recorder receives counters about reconciliation. Implementations must be
// cheap and non-blocking; they run on the session loop.
type Recorder interface {
	EventApplied(kind ingest.Kind)
	EventDropped(reason string)
	SendStarted()
	SendFinished(outcome string)
	StatusParked()
	StatusIgnored()
}

type nopRecorder struct{}

func (nopRecorder) EventApplied(ingest.Kind) {}
func (nopRecorder) EventDropped(string)      {}
func (nopRecorder) SendStarted()             {}
func (nopRecorder) SendFinished(string)      {}
func (nopRecorder) StatusParked()            {}
func (nopRecorder) StatusIgnored()           {}

// Receipts syncs read and delivery state with the backend. Calls are
// fire-and-forget and must not block; they run on the session loop.
//
// RequestReadReceipt is called when the focused conversation received a
// message. SyncStatus reports inbound ids that reached status locally.
type Receipts interface {
	RequestReadReceipt(key, identity string)
	SyncStatus(key string, ids []string, status models.Status)
}

type nopReceipts struct{}

func (nopReceipts) RequestReadReceipt(string, string)          {}
func (nopReceipts) SyncStatus(string, []string, models.Status) {}
