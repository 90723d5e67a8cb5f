package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/GoCodeAlone/capture/blob"
	"github.com/GoCodeAlone/capture/session"
	"github.com/GoCodeAlone/capture/store"
)

// countingStore wraps an ObjectStore and counts List calls, so tests can
// assert validation happens before any store access.
type countingStore struct {
	blob.ObjectStore
	listCalls int
}

func (s *countingStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.listCalls++
	return s.ObjectStore.List(ctx, prefix)
}

// dupLedger rejects every insert with ErrDuplicate, simulating the loser
// of a concurrent completion race.
type dupLedger struct {
	*store.MockSessionLedger
}

func (l *dupLedger) InsertIfAbsent(context.Context, *store.SessionRecord) error {
	return store.ErrDuplicate
}

type testEnv struct {
	handler http.Handler
	ledger  *store.MockSessionLedger
	objects *countingStore
	staging string
}

func newTestEnv(t *testing.T, ledger store.SessionLedger) *testEnv {
	t.Helper()
	mock, _ := ledger.(*store.MockSessionLedger)
	if ledger == nil {
		mock = store.NewMockSessionLedger()
		ledger = mock
	}
	objects := &countingStore{ObjectStore: blob.NewLocalStore(t.TempDir())}
	staging := t.TempDir()

	alloc := session.NewAllocator(ledger)
	handler, mw := NewRouter(Deps{
		Allocator:  alloc,
		Router:     session.NewRouter(objects),
		Reconciler: session.NewReconciler(objects),
		Packager:   session.NewPackager(objects, staging),
	}, Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(mw.Stop)

	return &testEnv{handler: handler, ledger: mock, objects: objects, staging: staging}
}

func decodeEnvelope(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestCurrent_FirstSession(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/session/current", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	resp := decodeEnvelope(t, rr.Body)
	data := resp["data"].(map[string]any)
	if data["next_session_id"] != "session_001" {
		t.Errorf("next_session_id = %v", data["next_session_id"])
	}
	if data["is_first_session"] != true {
		t.Errorf("is_first_session = %v", data["is_first_session"])
	}
	if data["last_completed_session"] != nil {
		t.Errorf("last_completed_session = %v, want null", data["last_completed_session"])
	}
}

func TestCurrent_AfterCompletion(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.ledger.InsertIfAbsent(context.Background(),
		&store.SessionRecord{SessionID: "session_004"}); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/session/current", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	resp := decodeEnvelope(t, rr.Body)
	data := resp["data"].(map[string]any)
	if data["last_completed_session"] != "session_004" {
		t.Errorf("last_completed_session = %v", data["last_completed_session"])
	}
	if data["next_session_id"] != "session_005" {
		t.Errorf("next_session_id = %v", data["next_session_id"])
	}
	if data["is_first_session"] != false {
		t.Errorf("is_first_session = %v", data["is_first_session"])
	}
}

func TestEnd_RecordsConsecutiveSessions(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, want := range []string{"session_001", "session_002"} {
		req := httptest.NewRequest(http.MethodPost, "/session/end", nil)
		rr := httptest.NewRecorder()
		env.handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
		resp := decodeEnvelope(t, rr.Body)
		data := resp["data"].(map[string]any)
		if data["completed_session_id"] != want {
			t.Errorf("completed_session_id = %v, want %s", data["completed_session_id"], want)
		}
	}

	if env.ledger.Len() != 2 {
		t.Errorf("ledger has %d entries, want 2", env.ledger.Len())
	}
}

func TestEnd_DuplicateRaceIsConflict(t *testing.T) {
	env := newTestEnv(t, &dupLedger{store.NewMockSessionLedger()})

	req := httptest.NewRequest(http.MethodPost, "/session/end", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
	resp := decodeEnvelope(t, rr.Body)
	if resp["status"] != "error" {
		t.Errorf("status field = %v", resp["status"])
	}
}

func TestStatus_PlaceholderRejectedBeforeStore(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/session/status/:session_id", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if env.objects.listCalls != 0 {
		t.Errorf("object store touched %d times before validation", env.objects.listCalls)
	}
}

func TestStatus_TraversalRejected(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/session/status/..%2Fsecrets", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if env.objects.listCalls != 0 {
		t.Errorf("object store touched %d times before validation", env.objects.listCalls)
	}
}

func TestStatus_ReportsMissingCounterparts(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	for _, key := range []string{
		"session_003/images/a.jpg",
		"session_003/images/b.jpg",
		"session_003/metadata/b.json",
		"session_003/metadata/c.json",
	} {
		if err := env.objects.Put(ctx, key, strings.NewReader("x"), ""); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/session/status/session_003", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	resp := decodeEnvelope(t, rr.Body)
	if resp["is_consistent"] != false {
		t.Errorf("is_consistent = %v", resp["is_consistent"])
	}
	missing := resp["missing_metadata"].([]any)
	if len(missing) != 1 || missing[0] != "a" {
		t.Errorf("missing_metadata = %v, want [a]", missing)
	}
	missing = resp["missing_images"].([]any)
	if len(missing) != 1 || missing[0] != "c" {
		t.Errorf("missing_images = %v, want [c]", missing)
	}
}

func TestStatus_EmptySessionConsistent(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/session/status/session_404", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	resp := decodeEnvelope(t, rr.Body)
	if resp["is_consistent"] != true {
		t.Errorf("is_consistent = %v, want true", resp["is_consistent"])
	}
}

func TestDownload_StreamsZipAndCleansStaging(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	want := map[string]string{
		"session_002/images/p.jpg":    "jpeg-bytes",
		"session_002/metadata/p.json": `{"photo_id":"p"}`,
	}
	for key, body := range want {
		if err := env.objects.Put(ctx, key, strings.NewReader(body), ""); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/session/download/session_002", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "session_002.zip") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	body := rr.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("response is not a zip: %v", err)
	}
	if len(zr.File) != len(want) {
		t.Fatalf("zip has %d entries, want %d", len(zr.File), len(want))
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %q: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if string(data) != want[f.Name] {
			t.Errorf("entry %q = %q, want %q", f.Name, data, want[f.Name])
		}
	}

	// The handler released staging and archive after the transfer.
	entries, err := os.ReadDir(env.staging)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("staging root not empty after download: %d entries", len(entries))
	}
}

func TestDownload_InvalidIDRejected(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/session/download/:session_id", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestNotFound_JSONEnvelope(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/no/such/route", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	resp := decodeEnvelope(t, rr.Body)
	if resp["status"] != "error" || resp["message"] != "Route not found" {
		t.Errorf("body = %v", resp)
	}
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	resp := decodeEnvelope(t, rr.Body)
	if resp["version"] != Version {
		t.Errorf("version = %v", resp["version"])
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}
