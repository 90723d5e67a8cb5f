package store

import "time"

// SessionStatus is the lifecycle state recorded in the ledger. Only completed
// sessions are ever written; the value exists so the wire format stays
// explicit.
type SessionStatus string

// StatusCompleted is the only status a ledger row can carry.
const StatusCompleted SessionStatus = "completed"

// SessionRecord is one immutable row in the completed-session ledger.
// Seq is the insertion sequence assigned by the database and is used as the
// tie-break when two completions share a timestamp.
type SessionRecord struct {
	Seq         int64         `json:"seq"`
	SessionID   string        `json:"session_id"`
	Status      SessionStatus `json:"status"`
	CompletedAt time.Time     `json:"completed_at"`
}
