package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoCodeAlone/capture/store"
)

// State is the allocator's view of the session lifecycle: the most recent
// completed session (nil when the ledger is empty) and the identifier the
// device is currently capturing under.
type State struct {
	LastCompleted *store.SessionRecord
	NextID        string
	First         bool
}

// Allocator derives session identifiers from the ledger. It holds no state
// of its own: the device never declares session start, so the current
// session is recomputed from the ledger on every call.
type Allocator struct {
	ledger store.SessionLedger
}

// NewAllocator creates an Allocator over the given ledger.
func NewAllocator(ledger store.SessionLedger) *Allocator {
	return &Allocator{ledger: ledger}
}

// Next returns the current allocator state. An empty ledger means the very
// first session: session_001.
func (a *Allocator) Next(ctx context.Context) (State, error) {
	last, err := a.ledger.MostRecent(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return State{NextID: FormatID(1), First: true}, nil
		}
		return State{}, fmt.Errorf("read ledger: %w", err)
	}

	n, err := ParseID(last.SessionID)
	if err != nil {
		return State{}, fmt.Errorf("ledger entry %q: %w", last.SessionID, err)
	}

	return State{
		LastCompleted: last,
		NextID:        FormatID(n + 1),
	}, nil
}

// Complete derives the next identifier and appends it to the ledger with
// the current timestamp. Two concurrent callers can derive the same
// identifier; the ledger's uniqueness constraint decides the winner and the
// loser gets ErrDuplicateSession. No lock is taken: completions come from a
// single controlling device, so contention is an accepted rarity.
func (a *Allocator) Complete(ctx context.Context) (*store.SessionRecord, error) {
	state, err := a.Next(ctx)
	if err != nil {
		return nil, err
	}

	rec := &store.SessionRecord{
		SessionID:   state.NextID,
		Status:      store.StatusCompleted,
		CompletedAt: time.Now().UTC(),
	}
	if err := a.ledger.InsertIfAbsent(ctx, rec); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSession, state.NextID)
		}
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}
	return rec, nil
}
