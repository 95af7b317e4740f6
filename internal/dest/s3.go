package dest

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
)

// S3Uploader is the slice of the S3 transfer manager the destination
// needs; tests substitute their own.
type S3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Config configures the S3 destination.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// S3Destination uploads bundles to S3-compatible object storage. The
// transfer manager reads the bundle as it is produced, so nothing is
// staged on local disk.
type S3Destination struct {
	bucket   string
	prefix   string
	uploader S3Uploader
}

// NewS3Destination creates a destination from the given configuration,
// resolving credentials through the default AWS chain unless static keys
// are provided.
func NewS3Destination(ctx context.Context, cfg S3Config) (*S3Destination, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
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
		// MinIO and friends.
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return NewS3DestinationWithUploader(cfg.Bucket, cfg.Prefix, manager.NewUploader(client)), nil
}

// NewS3DestinationWithUploader creates a destination around an existing
// uploader; used by tests.
func NewS3DestinationWithUploader(bucket, prefix string, uploader S3Uploader) *S3Destination {
	return &S3Destination{bucket: bucket, prefix: prefix, uploader: uploader}
}

func (d *S3Destination) Name() string {
	if d.prefix != "" {
		return fmt.Sprintf("s3(%s/%s)", d.bucket, d.prefix)
	}
	return fmt.Sprintf("s3(%s)", d.bucket)
}

func (d *S3Destination) Kind() string { return "s3" }

func (d *S3Destination) Write(ctx context.Context, objectPath string, data io.Reader) error {
	key := objectPath
	if d.prefix != "" {
		key = path.Join(d.prefix, objectPath)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
		Body:   data,
	}
	if contentType := contentTypeForBundle(objectPath); contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := d.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to s3://%s/%s: %w", d.bucket, key, err)
	}
	return nil
}

func contentTypeForBundle(p string) string {
	switch path.Ext(p) {
	case ".zip":
		return "application/zip"
	case ".gz":
		return "application/gzip"
	case ".zst":
		return "application/zstd"
	case ".txt":
		return "text/plain"
	default:
		return ""
	}
}

func (d *S3Destination) Close(ctx context.Context) error {
	return nil
}
