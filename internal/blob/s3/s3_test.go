package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/resource-hub/internal/apperror"
)

type fakeObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// fakeBucket implements objectAPI and uploader over a map.
type fakeBucket struct {
	mu        sync.Mutex
	objects   map[string]fakeObject
	deleteErr error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string]fakeObject)}
}

func noSuchKey() error {
	return &smithy.GenericAPIError{Code: "NoSuchKey", Message: "The specified key does not exist."}
}

func (f *fakeBucket) Upload(ctx context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = fakeObject{data: data, contentType: aws.ToString(in.ContentType), modified: time.Now()}
	return &manager.UploadOutput{Key: in.Key}, nil
}

func (f *fakeBucket) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		LastModified:  aws.Time(obj.modified),
	}, nil
}

func (f *fakeBucket) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, noSuchKey()
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.data)),
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		LastModified:  aws.Time(obj.modified),
	}, nil
}

func (f *fakeBucket) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeBucket) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	for _, k := range keys {
		obj := f.objects[k]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.modified),
		})
	}
	return out, nil
}

func newTestStore() (*Store, *fakeBucket) {
	f := newFakeBucket()
	return newStore(f, f, "resources"), f
}

func TestPutOpen(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	info, err := s.Put(ctx, "x.pdf", "application/pdf", strings.NewReader("pdf-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), info.Size)
	assert.Equal(t, "application/pdf", info.ContentType)

	rc, got, err := s.Open(ctx, "x.pdf")
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "pdf-bytes", string(body))
	assert.Equal(t, "application/pdf", got.ContentType)
}

func TestPut_DefaultsContentType(t *testing.T) {
	s, f := newTestStore()

	_, err := s.Put(context.Background(), "raw", "", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", f.objects["raw"].contentType)
}

func TestMissingObjectsAreNotFound(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	_, _, err := s.Open(ctx, "nope.pdf")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "Open: %v", err)

	_, err = s.Stat(ctx, "nope.pdf")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "Stat: %v", err)
}

func TestDelete(t *testing.T) {
	s, f := newTestStore()
	ctx := context.Background()

	_, err := s.Put(ctx, "d.txt", "", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "d.txt"))
	require.NoError(t, s.Delete(ctx, "d.txt"))

	f.deleteErr = noSuchKey()
	assert.NoError(t, s.Delete(ctx, "d.txt"))

	f.deleteErr = errors.New("connection reset")
	assert.Error(t, s.Delete(ctx, "d.txt"))
}

func TestList(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	for _, name := range []string{"b.txt", "a.txt"} {
		_, err := s.Put(ctx, name, "", strings.NewReader(name))
		require.NoError(t, err)
	}

	infos, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "a.txt", infos[0].Name)
	assert.Equal(t, int64(5), infos[0].Size)
}

func TestRejectsInvalidNames(t *testing.T) {
	s, _ := newTestStore()

	_, err := s.Put(context.Background(), "../x", "", strings.NewReader("x"))
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}
