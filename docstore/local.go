/*
Package docstore provides leave.DocumentStorage implementations.

IMPLEMENTATIONS:
  Local: files under a root directory, served from a base URL
  S3:    objects in a bucket under an optional key prefix

Both implement leave.DocumentRemover so that uploads of an application
that ends up rejected can be discarded.

SEE ALSO:
  - leave/documents.go: Contract and destination naming
*/
package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/warp/leave-engine/leave"
)

// Local stores documents on the local filesystem.
type Local struct {
	Root    string
	BaseURL string
}

// NewLocal creates the root directory if needed.
func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create document root: %w", err)
	}
	return &Local{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload writes the file at destination below Root.
func (l *Local) Upload(ctx context.Context, file leave.File, destination string) (leave.UploadResult, error) {
	rel, err := cleanKey(destination)
	if err != nil {
		return leave.UploadResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return leave.UploadResult{}, err
	}

	full := filepath.Join(l.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return leave.UploadResult{}, fmt.Errorf("create document directory: %w", err)
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return leave.UploadResult{}, fmt.Errorf("create document: %w", err)
	}
	if _, err := io.Copy(f, file.Body); err != nil {
		f.Close()
		os.Remove(full)
		return leave.UploadResult{}, fmt.Errorf("write document: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return leave.UploadResult{}, fmt.Errorf("close document: %w", err)
	}
	return leave.UploadResult{URL: l.BaseURL + "/" + rel}, nil
}

// Remove deletes a document previously returned by Upload.
func (l *Local) Remove(_ context.Context, url string) error {
	if !strings.HasPrefix(url, l.BaseURL+"/") {
		return fmt.Errorf("document %q is not hosted here", url)
	}
	rel, err := cleanKey(strings.TrimPrefix(url, l.BaseURL+"/"))
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(l.Root, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// cleanKey rejects destinations that escape the root.
func cleanKey(destination string) (string, error) {
	rel := strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(destination, "\\", "/")), "/")
	if rel == "" || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid document destination %q", destination)
	}
	return rel, nil
}
