package blob

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStore_PutAndFetch(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	content := []byte("jpeg bytes")
	err := store.Put(ctx, "session_001/images/photo_01.jpg", bytes.NewReader(content), "image/jpeg")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "out", "photo_01.jpg")
	if err := store.FetchToPath(ctx, "session_001/images/photo_01.jpg", dest); err != nil {
		t.Fatalf("FetchToPath failed: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("content mismatch: got %q, want %q", got, content)
	}
}

func TestLocalStore_PutOverwrites(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	key := "session_001/metadata/photo_01.json"
	if err := store.Put(ctx, key, strings.NewReader(`{"v":1}`), "application/json"); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	if err := store.Put(ctx, key, strings.NewReader(`{"v":2}`), "application/json"); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	keys, err := store.List(ctx, "session_001/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key after overwrite, got %d", len(keys))
	}

	dest := filepath.Join(t.TempDir(), "photo_01.json")
	if err := store.FetchToPath(ctx, key, dest); err != nil {
		t.Fatalf("FetchToPath failed: %v", err)
	}
	got, _ := os.ReadFile(dest)
	if string(got) != `{"v":2}` {
		t.Errorf("expected last write to win, got %q", got)
	}
}

func TestLocalStore_ListPreservesInsertionOrder(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	keys := []string{
		"session_002/images/c.jpg",
		"session_002/images/a.jpg",
		"session_002/images/b.jpg",
	}
	for _, key := range keys {
		if err := store.Put(ctx, key, strings.NewReader("x"), "image/jpeg"); err != nil {
			t.Fatalf("Put %q failed: %v", key, err)
		}
	}

	got, err := store.List(ctx, "session_002/images/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != len(keys) {
		t.Fatalf("expected %d keys, got %d", len(keys), len(got))
	}
	for i, key := range keys {
		if got[i] != key {
			t.Errorf("key[%d] = %q, want %q", i, got[i], key)
		}
	}
}

func TestLocalStore_ListEmptyPrefix(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	keys, err := store.List(context.Background(), "session_404/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys, got %v", keys)
	}
}

func TestLocalStore_Exists(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	ok, err := store.Exists(ctx, "session_001/images/missing.jpg")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Error("expected missing object to not exist")
	}

	if err := store.Put(ctx, "session_001/images/p.jpg", strings.NewReader("x"), "image/jpeg"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	ok, err = store.Exists(ctx, "session_001/images/p.jpg")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !ok {
		t.Error("expected stored object to exist")
	}
}
