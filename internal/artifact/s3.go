// Package artifact publishes finished screenshots to S3-compatible object storage.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"formfill-mcp-server/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Publisher copies a local file somewhere durable and returns where it went.
type Publisher interface {
	Publish(ctx context.Context, localPath string) (string, error)
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Publisher uploads screenshots under a key prefix.
type S3Publisher struct {
	uploader uploader
	bucket   string
	prefix   string
	now      func() time.Time
}

// NewS3Publisher builds a publisher from config. Static credentials are used
// when both keys are set, otherwise the default AWS credential chain applies.
// A custom endpoint switches to path-style addressing for MinIO and friends.
func NewS3Publisher(ctx context.Context, cfg config.ArtifactConfig) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("artifact bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return newS3Publisher(manager.NewUploader(client), cfg.Bucket, cfg.Prefix), nil
}

func newS3Publisher(up uploader, bucket, prefix string) *S3Publisher {
	return &S3Publisher{uploader: up, bucket: bucket, prefix: prefix, now: time.Now}
}

// Publish uploads localPath and returns the object's location.
func (p *S3Publisher) Publish(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	key := objectKey(p.prefix, p.now(), localPath)
	result, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(localPath)),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}
	if result != nil && result.Location != "" {
		return result.Location, nil
	}
	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}

// objectKey stamps the file name so a run never overwrites an earlier upload.
func objectKey(prefix string, at time.Time, localPath string) string {
	name := at.UTC().Format("20060102T150405.000Z") + "_" + filepath.Base(localPath)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func contentType(localPath string) string {
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
