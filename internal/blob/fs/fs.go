// Package fs stores blobs as files in one flat directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/resource-hub/internal/apperror"
	"github.com/sakif/resource-hub/internal/blob"
)

const tempPrefix = ".upload-"

// Store is a blob.Store over a local directory. Each Put writes to a temp
// file in the same directory and renames it into place, so readers never see
// a partially written blob.
type Store struct {
	dir string
}

var _ blob.Store = (*Store)(nil)

// New creates dir if needed and returns a Store rooted there.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob/fs: creating %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) (string, error) {
	if err := blob.ValidName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// Put stores r under name. contentType is not persisted; on read it is
// derived from the extension or sniffed from the first bytes.
func (s *Store) Put(ctx context.Context, name, contentType string, r io.Reader) (blob.Info, error) {
	dst, err := s.path(name)
	if err != nil {
		return blob.Info{}, err
	}

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return blob.Info{}, fmt.Errorf("blob/fs: creating temp file: %w", err)
	}
	// Removing after a successful rename fails harmlessly.
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, readerWithContext(ctx, r)); err != nil {
		tmp.Close()
		return blob.Info{}, fmt.Errorf("blob/fs: writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return blob.Info{}, fmt.Errorf("blob/fs: closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return blob.Info{}, fmt.Errorf("blob/fs: renaming into %s: %w", name, err)
	}

	return s.Stat(ctx, name)
}

func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, blob.Info, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, blob.Info{}, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, blob.Info{}, apperror.NotFound("file", name)
		}
		return nil, blob.Info{}, fmt.Errorf("blob/fs: opening %s: %w", name, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, blob.Info{}, fmt.Errorf("blob/fs: stat %s: %w", name, err)
	}

	info := blob.Info{Name: name, Size: st.Size(), ModTime: st.ModTime()}
	info.ContentType, err = detectContentType(f)
	if err != nil {
		f.Close()
		return nil, blob.Info{}, fmt.Errorf("blob/fs: reading %s: %w", name, err)
	}
	return f, info, nil
}

func (s *Store) Stat(ctx context.Context, name string) (blob.Info, error) {
	rc, info, err := s.Open(ctx, name)
	if err != nil {
		return blob.Info{}, err
	}
	rc.Close()
	return info, nil
}

// Delete removes name. A missing file is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("blob/fs: deleting %s: %w", name, err)
	}
	return nil
}

// List returns every stored blob. In-flight temp files are skipped.
func (s *Store) List(ctx context.Context) ([]blob.Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("blob/fs: listing %s: %w", s.dir, err)
	}

	infos := make([]blob.Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		st, err := e.Info()
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("blob/fs: stat %s: %w", e.Name(), err)
		}
		infos = append(infos, blob.Info{
			Name:        e.Name(),
			Size:        st.Size(),
			ModTime:     st.ModTime(),
			ContentType: mime.TypeByExtension(filepath.Ext(e.Name())),
		})
	}
	return infos, nil
}

// detectContentType prefers the extension and falls back to sniffing the
// first 512 bytes. f is rewound before returning.
func detectContentType(f *os.File) (string, error) {
	if ct := mime.TypeByExtension(filepath.Ext(f.Name())); ct != "" {
		return ct, nil
	}

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// readerWithContext stops a long copy once ctx is cancelled.
func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
