package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSessionLedger implements SessionLedger backed by PostgreSQL. Uniqueness
// of session ids is enforced by the database, not by the caller; a losing
// concurrent completion surfaces as ErrDuplicate.
type PGSessionLedger struct {
	pool      *pgxpool.Pool
	opTimeout time.Duration
}

func (l *PGSessionLedger) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.opTimeout)
}

func (l *PGSessionLedger) InsertIfAbsent(ctx context.Context, rec *SessionRecord) error {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	if rec.Status == "" {
		rec.Status = StatusCompleted
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now().UTC()
	}

	err := l.pool.QueryRow(ctx, `
		INSERT INTO capture_sessions (session_id, status, completed_at)
		VALUES ($1, $2, $3)
		RETURNING seq`,
		rec.SessionID, rec.Status, rec.CompletedAt).Scan(&rec.Seq)
	if err != nil {
		if isDuplicateError(err) {
			return fmt.Errorf("%w: session %s", ErrDuplicate, rec.SessionID)
		}
		return fmt.Errorf("insert session record: %w", err)
	}
	return nil
}

func (l *PGSessionLedger) MostRecent(ctx context.Context) (*SessionRecord, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	var rec SessionRecord
	err := l.pool.QueryRow(ctx, `
		SELECT seq, session_id, status, completed_at
		FROM capture_sessions
		ORDER BY completed_at DESC, seq DESC
		LIMIT 1`).Scan(&rec.Seq, &rec.SessionID, &rec.Status, &rec.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query most recent session: %w", err)
	}
	return &rec, nil
}

// isDuplicateError checks for PostgreSQL unique-violation (23505).
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
