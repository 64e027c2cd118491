package leave

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

var errNoDocumentStorage = errors.New("no document storage configured")

// File is an attachment to upload.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult is where the file ended up.
type UploadResult struct {
	URL string
}

// DocumentStorage hosts uploaded evidence. Any failure is surfaced as-is.
type DocumentStorage interface {
	Upload(ctx context.Context, file File, destination string) (UploadResult, error)
}

// DocumentRemover is implemented by storages that can delete an upload.
// It is used to discard files of an application that was not recorded.
type DocumentRemover interface {
	Remove(ctx context.Context, url string) error
}

// documentDestination keeps the original filename after a unique prefix.
func documentDestination(companyID, employeeID, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == ".." || name == "/" || name == "" {
		name = "document"
	}
	return path.Join("leaves", segment(companyID), segment(employeeID), uuid.NewString()+"-"+name)
}

func segment(id string) string {
	id = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(strings.TrimSpace(id))
	if id == "" {
		return "_"
	}
	return id
}
