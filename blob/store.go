// Package blob provides the object-store gateway for capture artifacts.
// Objects are addressed by slash-separated keys; session scoping is a
// caller concern expressed through key prefixes.
package blob

import (
	"context"
	"io"
)

// ObjectStore is the narrow capability surface the session engine consumes.
type ObjectStore interface {
	// Put stores an object at key, overwriting any prior content.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Exists reports whether an object is present at key.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns all object keys under the given prefix, in the
	// backend's listing order. A prefix with no objects yields an empty
	// slice, not an error.
	List(ctx context.Context, prefix string) ([]string, error)

	// FetchToPath downloads the object at key to a local file, creating
	// parent directories as needed.
	FetchToPath(ctx context.Context, key, localPath string) error

	// EnsureBucket creates the backing container if it does not exist.
	// Idempotent; called once at startup.
	EnsureBucket(ctx context.Context) error
}
