// Package session implements the capture-session lifecycle: identifier
// allocation from the completed-session ledger, artifact routing into
// session-scoped object keys, image/metadata consistency reconciliation,
// and archive packaging.
package session

import (
	"fmt"
	"strconv"
	"strings"
)

// idPrefix is the literal prefix of every session identifier.
const idPrefix = "session_"

// FormatID renders a session number as a zero-padded identifier. Width is
// three digits minimum and simply grows past 999.
func FormatID(n int) string {
	return fmt.Sprintf("%s%03d", idPrefix, n)
}

// ParseID extracts the numeric suffix from a session identifier. A missing
// prefix or a non-numeric suffix yields ErrMalformedID.
func ParseID(id string) (int, error) {
	suffix, ok := strings.CutPrefix(id, idPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	return n, nil
}

// ValidateRequestID checks a request-supplied session id before it is used
// as an object-store prefix or staging directory name. It rejects empty
// values, placeholder syntax like ":session_id", and any character outside
// [A-Za-z0-9_-], which rules out path separators and traversal sequences.
func ValidateRequestID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSessionID)
	}
	if strings.Contains(id, ":") {
		return fmt.Errorf("%w: placeholder syntax %q", ErrInvalidSessionID, id)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
		}
	}
	return nil
}

// ValidateItemID checks a caller-supplied photo id before it becomes an
// object key segment. The charset is the session-id set plus '.', so an id
// can never smuggle a key separator under the session prefix or a path
// element into the staging tree. Dot-only ids are rejected outright.
func ValidateItemID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidItemID)
	}
	dotsOnly := true
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		case r == '.':
			continue
		default:
			return fmt.Errorf("%w: %q", ErrInvalidItemID, id)
		}
		dotsOnly = false
	}
	if dotsOnly {
		return fmt.Errorf("%w: %q", ErrInvalidItemID, id)
	}
	return nil
}
