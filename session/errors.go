package session

import "errors"

// Sentinel errors for the session engine.
var (
	// ErrMalformedID indicates a ledger entry whose numeric suffix cannot
	// be parsed. This is data corruption, not caller error.
	ErrMalformedID = errors.New("malformed session identifier")

	// ErrDuplicateSession indicates a completion race: the derived next
	// identifier was appended by a concurrent caller first.
	ErrDuplicateSession = errors.New("session already recorded")

	// ErrMissingField indicates a required upload field is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidSessionID indicates a request-supplied session id that is
	// empty, contains placeholder syntax, or is unsafe as a storage
	// prefix.
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrInvalidItemID indicates a photo id that is unsafe as an object
	// key segment.
	ErrInvalidItemID = errors.New("invalid item id")
)
