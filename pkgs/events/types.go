package events

import (
	"time"
)

// EventType represents the type of event being emitted
type EventType string

const (
	// Submission lifecycle events
	EventSubmissionValidated EventType = "submission_validated"
	EventSubmissionRejected  EventType = "submission_rejected"
	EventSubmissionBroadcast EventType = "submission_broadcast"
	EventSubmissionConfirmed EventType = "submission_confirmed"
	EventSubmissionFailed    EventType = "submission_failed"

	// Verification events
	EventRecordVerified EventType = "record_verified"

	// History events
	EventHistorySynced EventType = "history_synced"
)

// Event is one provenance-client notification.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Submission fields
	PredictionHash string `json:"prediction_hash,omitempty"`
	ModelVersion   string `json:"model_version,omitempty"`
	Reporter       string `json:"reporter,omitempty"`
	TransactionID  string `json:"transaction_id,omitempty"`
	BlockHeight    uint64 `json:"block_height,omitempty"`

	// Verification fields
	Verdict string `json:"verdict,omitempty"`

	// History fields
	RecordCount int `json:"record_count,omitempty"`

	// Failure detail
	Reason string `json:"reason,omitempty"`
}

// Sink receives emitted events. A failed publish is logged, never
// propagated: notifications are advisory and must not fail a submission.
type Sink interface {
	Publish(event Event)
}

// Emit publishes to a possibly-nil sink, stamping the event time.
func Emit(sink Sink, event Event) {
	if sink == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	sink.Publish(event)
}
