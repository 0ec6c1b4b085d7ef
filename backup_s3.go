package folio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BackupUploader stores backup documents somewhere off the host.
type BackupUploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
}

// S3Uploader uploads backups to an S3 (or S3-compatible) bucket.
type S3Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Uploader loads the default AWS configuration for region. A non-empty
// endpoint switches to path-style addressing for S3-compatible services.
func NewS3Uploader(ctx context.Context, region, bucket, endpoint, prefix string) (*S3Uploader, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix}, nil
}

// Upload puts body at prefix/key in the bucket.
func (u *S3Uploader) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(path.Join(u.prefix, key)),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

// PushBackup exports the collection and uploads it under BackupFileName(now).
// It returns the key used and the number of posts exported.
func PushBackup(ctx context.Context, repo *Repository, up BackupUploader, now time.Time) (string, int, error) {
	var buf bytes.Buffer
	n, err := repo.WriteBackup(ctx, &buf)
	if err != nil {
		return "", 0, err
	}
	key := BackupFileName(now)
	if err := up.Upload(ctx, key, bytes.NewReader(buf.Bytes()), "application/json"); err != nil {
		return "", 0, err
	}
	return key, n, nil
}
