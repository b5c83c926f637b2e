// Package upload ships produced archives to S3-compatible object storage.
package upload

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-cleanhttp"
)

// S3API is the slice of the s3 upload manager the uploader needs. It exists
// for test mocking.
type S3API interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Config contains configuration for the S3 uploader.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// S3Uploader uploads archive files to a bucket, optionally under a key
// prefix.
type S3Uploader struct {
	bucket   string
	prefix   string
	uploader S3API
}

// NewS3Uploader builds the AWS client from the given configuration. A custom
// endpoint and path-style addressing support MinIO, R2 and other
// S3-compatible services.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithHTTPClient(cleanhttp.DefaultPooledClient()),
	}

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	return &S3Uploader{
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		uploader: manager.NewUploader(client),
	}, nil
}

// NewS3UploaderWithAPI creates an uploader with a custom upload API. This is
// useful for testing.
func NewS3UploaderWithAPI(bucket, prefix string, api S3API) *S3Uploader {
	return &S3Uploader{bucket: bucket, prefix: prefix, uploader: api}
}

// Upload stores data under name in the bucket and returns the object's
// s3:// location.
func (u *S3Uploader) Upload(ctx context.Context, name string, data io.Reader) (string, error) {
	key := name
	if u.prefix != "" {
		key = path.Join(u.prefix, name)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   data,
	}
	if contentType := contentTypeForArchive(name); contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := u.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to s3://%s/%s: %w", u.bucket, key, err)
	}

	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}

// contentTypeForArchive returns the Content-Type for an archive filename.
func contentTypeForArchive(name string) string {
	switch path.Ext(name) {
	case ".tar":
		return "application/x-tar"
	case ".gz":
		return "application/gzip"
	case ".bz2":
		return "application/x-bzip2"
	case ".xz":
		return "application/x-xz"
	case ".zip":
		return "application/zip"
	default:
		return ""
	}
}
