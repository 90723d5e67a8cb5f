package session

import (
	"errors"
	"testing"
)

func TestFormatID(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{1, "session_001"},
		{42, "session_042"},
		{999, "session_999"},
		{1000, "session_1000"},
		{12345, "session_12345"},
	}
	for _, tc := range cases {
		if got := FormatID(tc.n); got != tc.want {
			t.Errorf("FormatID(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestParseID(t *testing.T) {
	n, err := ParseID("session_007")
	if err != nil {
		t.Fatalf("ParseID failed: %v", err)
	}
	if n != 7 {
		t.Errorf("ParseID = %d, want 7", n)
	}

	n, err = ParseID("session_1000")
	if err != nil {
		t.Fatalf("ParseID failed: %v", err)
	}
	if n != 1000 {
		t.Errorf("ParseID = %d, want 1000", n)
	}
}

func TestParseID_Malformed(t *testing.T) {
	for _, id := range []string{"session_abc", "session_", "sess_001", "001", "session_-3"} {
		if _, err := ParseID(id); !errors.Is(err, ErrMalformedID) {
			t.Errorf("ParseID(%q): expected ErrMalformedID, got %v", id, err)
		}
	}
}

func TestValidateRequestID(t *testing.T) {
	for _, id := range []string{"session_003", "session_1000", "SESSION_01", "cal-run_2"} {
		if err := ValidateRequestID(id); err != nil {
			t.Errorf("ValidateRequestID(%q) = %v, want nil", id, err)
		}
	}
}

func TestValidateRequestID_Rejects(t *testing.T) {
	for _, id := range []string{"", "   ", ":session_id", "session_001:x", "../secrets", "a/b", "a b"} {
		if err := ValidateRequestID(id); !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("ValidateRequestID(%q): expected ErrInvalidSessionID, got %v", id, err)
		}
	}
}

func TestValidateItemID(t *testing.T) {
	for _, id := range []string{"photo_07", "IMG-0042", "front.v2", "a.b.c"} {
		if err := ValidateItemID(id); err != nil {
			t.Errorf("ValidateItemID(%q) = %v, want nil", id, err)
		}
	}
}

func TestValidateItemID_Rejects(t *testing.T) {
	for _, id := range []string{"", "a/b", "../up", "a b", "a:b", ".", ".."} {
		if err := ValidateItemID(id); !errors.Is(err, ErrInvalidItemID) {
			t.Errorf("ValidateItemID(%q): expected ErrInvalidItemID, got %v", id, err)
		}
	}
}
