// Package blob stores uploaded file payloads under generated names.
//
// A Store knows nothing about resource metadata: it maps a flat namespace of
// opaque names to bytes. Linking a blob to a Resource is the catalog's job.
package blob

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/resource-hub/internal/apperror"
)

// Info describes a stored blob.
type Info struct {
	Name        string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Store is implemented by every blob backend.
//
// Open and Stat return apperror.ErrNotFound for a missing name. Delete of a
// missing name is not an error.
type Store interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) (Info, error)
	Open(ctx context.Context, name string) (io.ReadCloser, Info, error)
	Stat(ctx context.Context, name string) (Info, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]Info, error)
}

const maxExtLen = 16

// NewName returns a fresh random name that keeps the lowercased extension of
// originalName. Extensions that are too long or contain anything other than
// ASCII letters and digits are dropped.
func NewName(originalName string) string {
	return uuid.NewString() + extension(originalName)
}

func extension(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if len(ext) < 2 || len(ext) > maxExtLen {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}

// ValidName reports whether name can be used as a blob key: non-empty, no
// path separators, and not a relative path element.
func ValidName(name string) error {
	switch {
	case name == "":
		return apperror.ValidationFailed("filename", "filename is required")
	case name == "." || name == ".." || strings.HasPrefix(name, "."):
		return apperror.ValidationFailed("filename", "invalid filename")
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		return apperror.ValidationFailed("filename", "filename must not contain path separators")
	case len(name) > 255:
		return apperror.ValidationFailed("filename", "filename too long")
	}
	return nil
}
