package store

import "context"

// SessionLedger is the append-only record of completed capture sessions.
// Rows are never updated or deleted; the ledger is the sole source of truth
// for session numbering.
type SessionLedger interface {
	// InsertIfAbsent appends a new completed-session row. Returns
	// ErrDuplicate (wrapped) when a row with the same session id already
	// exists.
	InsertIfAbsent(ctx context.Context, rec *SessionRecord) error

	// MostRecent returns the latest completed session ordered by
	// completion time, breaking timestamp ties by insertion sequence.
	// Returns ErrNotFound when the ledger is empty.
	MostRecent(ctx context.Context) (*SessionRecord, error)
}
