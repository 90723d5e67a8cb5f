package session

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/GoCodeAlone/capture/blob"
)

// Artifact classes within a session prefix.
const (
	ClassImages   = "images"
	ClassMetadata = "metadata"
)

// ImageKey returns the canonical storage key for a captured image.
func ImageKey(sessionID, itemID string) string {
	return fmt.Sprintf("%s/%s/%s.jpg", sessionID, ClassImages, itemID)
}

// MetadataKey returns the canonical storage key for a metadata document.
func MetadataKey(sessionID, itemID string) string {
	return fmt.Sprintf("%s/%s/%s.json", sessionID, ClassMetadata, itemID)
}

// Router places uploaded artifacts at their canonical keys. Writes are
// last-writer-wins: re-uploading an item overwrites the prior object with
// no version check.
type Router struct {
	objects blob.ObjectStore
}

// NewRouter creates a Router over the given object store.
func NewRouter(objects blob.ObjectStore) *Router {
	return &Router{objects: objects}
}

// StoreImage uploads image bytes for an item and returns the storage key.
func (r *Router) StoreImage(ctx context.Context, sessionID, itemID string, data io.Reader) (string, error) {
	if itemID == "" {
		return "", fmt.Errorf("%w: photo_id", ErrMissingField)
	}
	if data == nil {
		return "", fmt.Errorf("%w: file", ErrMissingField)
	}
	if err := ValidateItemID(itemID); err != nil {
		return "", err
	}

	key := ImageKey(sessionID, itemID)
	if err := r.objects.Put(ctx, key, data, "image/jpeg"); err != nil {
		return "", fmt.Errorf("store image %s: %w", key, err)
	}
	return key, nil
}

// StoreMetadata validates and uploads a metadata document, returning the
// storage key. The stored JSON carries the session id alongside the
// caller's fields.
func (r *Router) StoreMetadata(ctx context.Context, sessionID string, doc *MetadataDocument) (string, error) {
	if err := doc.Validate(); err != nil {
		return "", err
	}
	if err := ValidateItemID(doc.PhotoID); err != nil {
		return "", err
	}
	doc.SessionID = sessionID

	payload, err := doc.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("encode metadata for %s: %w", doc.PhotoID, err)
	}

	key := MetadataKey(sessionID, doc.PhotoID)
	if err := r.objects.Put(ctx, key, bytes.NewReader(payload), "application/json"); err != nil {
		return "", fmt.Errorf("store metadata %s: %w", key, err)
	}
	return key, nil
}
