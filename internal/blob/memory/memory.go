// Package memory is an in-process blob.Store, used by tests and by
// single-process demos that do not need files to outlive the process.
package memory

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/sakif/resource-hub/internal/apperror"
	"github.com/sakif/resource-hub/internal/blob"
)

type object struct {
	data []byte
	info blob.Info
}

// Store keeps every blob as a byte slice in a map. It is safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	now     func() time.Time
}

var _ blob.Store = (*Store)(nil)

// New returns an empty Store stamped with the wall clock.
func New() *Store {
	return &Store{objects: make(map[string]object), now: time.Now}
}

// WithClock overrides the modification time stamped on new blobs.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Put reads r to the end and stores the bytes under name, replacing any
// existing blob. An empty contentType is recorded as application/octet-stream.
func (s *Store) Put(ctx context.Context, name, contentType string, r io.Reader) (blob.Info, error) {
	if err := blob.ValidName(name); err != nil {
		return blob.Info{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return blob.Info{}, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info := blob.Info{Name: name, Size: int64(len(data)), ContentType: contentType, ModTime: s.now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = object{data: data, info: info}
	return info, nil
}

// Open returns a reader over the stored bytes. Closing it is a no-op.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, blob.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[name]
	if !ok {
		return nil, blob.Info{}, apperror.NotFound("file", name)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.info, nil
}

func (s *Store) Stat(ctx context.Context, name string) (blob.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[name]
	if !ok {
		return blob.Info{}, apperror.NotFound("file", name)
	}
	return obj.info, nil
}

// Delete is idempotent: removing a missing blob is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, name)
	return nil
}

// List returns the blobs in no particular order.
func (s *Store) List(ctx context.Context) ([]blob.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]blob.Info, 0, len(s.objects))
	for _, obj := range s.objects {
		infos = append(infos, obj.info)
	}
	return infos, nil
}

// Len reports how many blobs are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
