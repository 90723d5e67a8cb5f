package session

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/GoCodeAlone/capture/blob"
)

// Archive is a packaged session on local disk. Close releases the staging
// directory and the archive file; callers must invoke it once the transfer
// completes or fails.
type Archive struct {
	// Path is the zip file holding the session's full object set.
	Path string

	// Name is the suggested download filename, sessionID.zip.
	Name string

	stageDir string
}

// Close removes the staging directory and the archive file.
func (a *Archive) Close() error {
	var firstErr error
	if a.stageDir != "" {
		if err := os.RemoveAll(a.stageDir); err != nil {
			firstErr = err
		}
	}
	if a.Path != "" {
		if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Packager downloads a session's objects into an ephemeral staging area and
// zips them into a single archive rooted at a sessionID/ folder, so
// extraction reproduces the images/ and metadata/ layout.
type Packager struct {
	objects blob.ObjectStore
	root    string
}

// NewPackager creates a Packager staging under root; an empty root uses the
// system temp directory.
func NewPackager(objects blob.ObjectStore, root string) *Packager {
	if root == "" {
		root = filepath.Join(os.TempDir(), "capture-staging")
	}
	return &Packager{objects: objects, root: root}
}

// Package fetches every image and metadata object for the session and
// builds the archive. The staging directory carries a per-request random
// suffix so concurrent downloads of the same session cannot clobber each
// other. On any failure the staging directory and partial archive are
// removed before returning. An empty session yields an empty archive, not
// an error: download is keyed purely by prefix and no listing means no
// objects.
func (p *Packager) Package(ctx context.Context, sessionID string) (*Archive, error) {
	scope := fmt.Sprintf("%s-%s", sessionID, uuid.New().String()[:8])
	stageDir := filepath.Join(p.root, scope)
	if err := os.MkdirAll(stageDir, 0o750); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	arch := &Archive{
		Path:     filepath.Join(p.root, scope+".zip"),
		Name:     sessionID + ".zip",
		stageDir: stageDir,
	}

	if err := p.stage(ctx, sessionID, stageDir); err != nil {
		_ = arch.Close()
		return nil, err
	}
	if err := buildZip(arch.Path, stageDir, sessionID); err != nil {
		_ = arch.Close()
		return nil, err
	}
	return arch, nil
}

// stage downloads both artifact classes into stageDir/sessionID/<class>/.
func (p *Packager) stage(ctx context.Context, sessionID, stageDir string) error {
	for _, class := range []string{ClassImages, ClassMetadata} {
		prefix := sessionID + "/" + class + "/"
		keys, err := p.objects.List(ctx, prefix)
		if err != nil {
			return fmt.Errorf("list %s for %s: %w", class, sessionID, err)
		}
		for _, key := range keys {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("package %s cancelled: %w", sessionID, err)
			}
			local := filepath.Join(stageDir, sessionID, class, keyBase(key))
			if err := p.objects.FetchToPath(ctx, key, local); err != nil {
				return fmt.Errorf("fetch %s: %w", key, err)
			}
		}
	}
	return nil
}

// keyBase is filepath-safe base extraction for slash-separated keys.
func keyBase(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}

// buildZip writes the staging tree into a zip archive. Entry names are
// relative to stageDir, so every entry starts with the sessionID/ folder.
// The write is fully flushed and the file closed before returning.
func buildZip(zipPath, stageDir, sessionID string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	root := filepath.Join(stageDir, sessionID)

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				// Empty session: nothing was staged.
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(stageDir, path)
		if err != nil {
			return err
		}

		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Method = zip.Deflate

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, f)
		f.Close()
		return err
	})
	if err != nil {
		_ = zw.Close()
		return fmt.Errorf("write archive: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}
	return nil
}
