package session

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/GoCodeAlone/capture/blob"
)

// Report is the derived consistency view of one session. It is recomputed
// from the object store on every check and never persisted. Missing lists
// preserve the store's listing order.
type Report struct {
	SessionID       string   `json:"session_id"`
	ImageCount      int      `json:"image_count"`
	MetadataCount   int      `json:"metadata_count"`
	Consistent      bool     `json:"is_consistent"`
	MissingMetadata []string `json:"missing_metadata"`
	MissingImages   []string `json:"missing_images"`
}

// Reconciler computes the symmetric difference between a session's image
// and metadata item identifiers.
type Reconciler struct {
	objects blob.ObjectStore
}

// NewReconciler creates a Reconciler over the given object store.
func NewReconciler(objects blob.ObjectStore) *Reconciler {
	return &Reconciler{objects: objects}
}

// Check lists both artifact classes under the session prefix and reports
// items missing their counterpart. Read-only; a session with no objects of
// either class is trivially consistent.
func (r *Reconciler) Check(ctx context.Context, sessionID string) (*Report, error) {
	imageKeys, err := r.objects.List(ctx, sessionID+"/"+ClassImages+"/")
	if err != nil {
		return nil, fmt.Errorf("list images for %s: %w", sessionID, err)
	}
	metadataKeys, err := r.objects.List(ctx, sessionID+"/"+ClassMetadata+"/")
	if err != nil {
		return nil, fmt.Errorf("list metadata for %s: %w", sessionID, err)
	}

	imageIDs := make([]string, 0, len(imageKeys))
	for _, key := range imageKeys {
		imageIDs = append(imageIDs, imageItemID(key))
	}
	metadataIDs := make([]string, 0, len(metadataKeys))
	for _, key := range metadataKeys {
		metadataIDs = append(metadataIDs, metadataItemID(key))
	}

	report := &Report{
		SessionID:       sessionID,
		ImageCount:      len(imageIDs),
		MetadataCount:   len(metadataIDs),
		MissingMetadata: difference(imageIDs, metadataIDs),
		MissingImages:   difference(metadataIDs, imageIDs),
	}
	report.Consistent = len(report.MissingMetadata) == 0 && len(report.MissingImages) == 0
	return report, nil
}

// imageItemID derives an item identifier from an image key. The .jpg and
// .jpeg extensions are stripped case-insensitively; anything else is kept
// as part of the identifier.
func imageItemID(key string) string {
	base := path.Base(key)
	ext := path.Ext(base)
	if strings.EqualFold(ext, ".jpg") || strings.EqualFold(ext, ".jpeg") {
		return base[:len(base)-len(ext)]
	}
	return base
}

// metadataItemID derives an item identifier from a metadata key.
func metadataItemID(key string) string {
	return strings.TrimSuffix(path.Base(key), ".json")
}

// difference returns the members of a absent from b, preserving a's order.
func difference(a, b []string) []string {
	seen := make(map[string]bool, len(b))
	for _, id := range b {
		seen[id] = true
	}
	out := []string{}
	for _, id := range a {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}
