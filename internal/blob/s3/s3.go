// Package s3 stores blobs as objects in an S3-compatible bucket (AWS S3,
// MinIO, R2). Object keys are the blob names; there is no prefix hierarchy.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/sakif/resource-hub/internal/apperror"
	"github.com/sakif/resource-hub/internal/blob"
)

// Config options for the S3 backend.
type Config struct {
	Bucket          string
	Region          string // default us-east-1
	Endpoint        string // custom endpoint for S3-compatible services
	AccessKeyID     string // empty means the default AWS credential chain
	SecretAccessKey string
	UsePathStyle    bool // required by most MinIO deployments
}

// objectAPI is the subset of *s3.Client the store calls.
type objectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type uploader interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Store is a blob.Store backed by one bucket.
type Store struct {
	api    objectAPI
	up     uploader
	bucket string
}

var _ blob.Store = (*Store)(nil)

// New builds an S3 client from cfg. Static credentials are used when both
// keys are set; otherwise the SDK's default chain applies.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("blob/s3: bucket name is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("blob/s3: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newStore(client, manager.NewUploader(client), cfg.Bucket), nil
}

func newStore(api objectAPI, up uploader, bucket string) *Store {
	return &Store{api: api, up: up, bucket: bucket}
}

// Put streams r to the bucket. The multipart uploader handles bodies of
// unknown length, which a plain PutObject cannot sign.
func (s *Store) Put(ctx context.Context, name, contentType string, r io.Reader) (blob.Info, error) {
	if err := blob.ValidName(name); err != nil {
		return blob.Info{}, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.up.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("blob/s3: uploading %s: %w", name, err)
	}

	return s.Stat(ctx, name)
}

func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, blob.Info, error) {
	if err := blob.ValidName(name); err != nil {
		return nil, blob.Info{}, err
	}

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, blob.Info{}, apperror.NotFound("file", name)
		}
		return nil, blob.Info{}, fmt.Errorf("blob/s3: getting %s: %w", name, err)
	}

	info := blob.Info{
		Name:        name,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		ModTime:     aws.ToTime(out.LastModified),
	}
	return out.Body, info, nil
}

func (s *Store) Stat(ctx context.Context, name string) (blob.Info, error) {
	if err := blob.ValidName(name); err != nil {
		return blob.Info{}, err
	}

	out, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return blob.Info{}, apperror.NotFound("file", name)
		}
		return blob.Info{}, fmt.Errorf("blob/s3: head %s: %w", name, err)
	}

	return blob.Info{
		Name:        name,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		ModTime:     aws.ToTime(out.LastModified),
	}, nil
}

// Delete removes the object. S3 already treats deleting a missing key as
// success; a NotFound from stricter implementations is absorbed too.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := blob.ValidName(name); err != nil {
		return err
	}

	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("blob/s3: deleting %s: %w", name, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]blob.Info, error) {
	var infos []blob.Info

	pages := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("blob/s3: listing bucket %s: %w", s.bucket, err)
		}
		for _, obj := range page.Contents {
			infos = append(infos, blob.Info{
				Name:    aws.ToString(obj.Key),
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	return infos, nil
}

// isNotFound covers GetObject's NoSuchKey and HeadObject's bare 404, which
// carries no body and surfaces as the "NotFound" code.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
