package store

import (
	"context"
	"sync"
	"time"
)

// MockSessionLedger is an in-memory implementation of SessionLedger for
// testing. It reproduces the database's ordering contract: most recent by
// completion time, insertion sequence as tie-break.
type MockSessionLedger struct {
	mu      sync.Mutex
	nextSeq int64
	records []*SessionRecord
	byID    map[string]*SessionRecord

	// FailWith, when set, is returned from every call. Used to exercise
	// store-unavailable paths.
	FailWith error
}

// NewMockSessionLedger creates a new MockSessionLedger.
func NewMockSessionLedger() *MockSessionLedger {
	return &MockSessionLedger{byID: make(map[string]*SessionRecord)}
}

func (l *MockSessionLedger) InsertIfAbsent(_ context.Context, rec *SessionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailWith != nil {
		return l.FailWith
	}
	if _, ok := l.byID[rec.SessionID]; ok {
		return ErrDuplicate
	}
	l.nextSeq++
	rec.Seq = l.nextSeq
	if rec.Status == "" {
		rec.Status = StatusCompleted
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now().UTC()
	}
	cp := *rec
	l.records = append(l.records, &cp)
	l.byID[rec.SessionID] = &cp
	return nil
}

func (l *MockSessionLedger) MostRecent(_ context.Context) (*SessionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailWith != nil {
		return nil, l.FailWith
	}
	var latest *SessionRecord
	for _, rec := range l.records {
		if latest == nil ||
			rec.CompletedAt.After(latest.CompletedAt) ||
			(rec.CompletedAt.Equal(latest.CompletedAt) && rec.Seq > latest.Seq) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

// Len returns the number of recorded sessions.
func (l *MockSessionLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
