package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LocalStore implements ObjectStore using the local filesystem. Keys map
// directly to paths under baseDir. Listing order is insertion order, the
// same contract the remote backend provides. Intended for tests.
type LocalStore struct {
	baseDir string

	mu   sync.RWMutex
	keys []string
	seen map[string]bool

	// FailFetchKeys lists keys whose FetchToPath call fails, for
	// exercising partial-download cleanup paths.
	FailFetchKeys map[string]bool
}

// NewLocalStore creates a new LocalStore rooted at baseDir.
func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{
		baseDir: baseDir,
		seen:    make(map[string]bool),
	}
}

func (s *LocalStore) objectPath(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

func (s *LocalStore) Put(_ context.Context, key string, reader io.Reader, _ string) error {
	path := s.objectPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create object file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seen[key] {
		s.seen[key] = true
		s.keys = append(s.keys, key)
	}
	return nil
}

func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seen[key], nil
}

func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, key := range s.keys {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	return out, nil
}

func (s *LocalStore) FetchToPath(_ context.Context, key, localPath string) error {
	s.mu.RLock()
	fail := s.FailFetchKeys[key]
	ok := s.seen[key]
	s.mu.RUnlock()

	if fail {
		return fmt.Errorf("fetch %q: injected failure", key)
	}
	if !ok {
		return fmt.Errorf("object %q not found", key)
	}

	src, err := os.Open(s.objectPath(key))
	if err != nil {
		return fmt.Errorf("failed to open object %q: %w", key, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %q: %w", localPath, err)
	}

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create file %q: %w", localPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy object %q: %w", key, err)
	}
	return nil
}

func (s *LocalStore) EnsureBucket(_ context.Context) error {
	if err := os.MkdirAll(s.baseDir, 0o750); err != nil {
		return fmt.Errorf("failed to create base directory: %w", err)
	}
	return nil
}
