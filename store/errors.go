package store

import "errors"

// Sentinel errors for ledger operations.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)
