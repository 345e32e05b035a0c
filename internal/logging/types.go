package logging

import "time"

// #region event-kind
// EventKind labels an audit row.
type EventKind string

const (
	EventSessionStarted   EventKind = "session_started"
	EventDecisionRecorded EventKind = "decision_recorded"
	EventEmergencyRaised  EventKind = "emergency_raised"
	EventStageAdvanced    EventKind = "stage_advanced"
	EventEmergencyCleared EventKind = "emergency_cleared"
	EventSessionEnded     EventKind = "session_ended"
)

// #endregion event-kind

// #region event
// Event is a single row in the audit_log table.
type Event struct {
	SessionID string    `json:"session_id"`
	Revision  int64     `json:"revision"`
	Kind      EventKind `json:"kind"`
	Decision  string    `json:"decision,omitempty"`
	Response  string    `json:"response,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Emergency string    `json:"emergency,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// #endregion event

// #region session-summary
// SessionSummary describes one session present in the audit log.
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	Events    int       `json:"events"`
	FirstAt   time.Time `json:"first_at"`
	LastAt    time.Time `json:"last_at"`
}

// #endregion session-summary
