package models

import "time"

// AuditEvent is one best-effort request audit record. Events are written
// on a side channel decoupled from request handling; losing one never
// affects the primary response.
type AuditEvent struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	RequestID  string    `json:"request_id,omitempty"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
}

// Audit outcome labels.
const (
	AuditOutcomeOK       = "ok"
	AuditOutcomeRejected = "rejected"
	AuditOutcomeError    = "error"
)
