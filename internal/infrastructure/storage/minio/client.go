// Package minio stores rendered exports in an S3-compatible bucket and hands
// out presigned download links.
package minio

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/turtacn/ChequeGuard/internal/config"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// exportRetentionDays bounds how long uploaded exports are kept.
const exportRetentionDays = 30

// API is the subset of *minio.Client in use.
type API interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// Client binds an API to the export bucket.
type Client struct {
	api    API
	bucket string
	prefix string
	region string
	logger logging.Logger
}

// NewClient connects, verifies credentials and prepares the export bucket.
func NewClient(ctx context.Context, cfg config.MinIOConfig, export config.ExportConfig, log logging.Logger) (*Client, error) {
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := api.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio").
			WithDetail("endpoint=" + cfg.Endpoint)
	}

	c := newClient(api, cfg.Region, export, log)
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info("MinIO client connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", c.bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

func newClient(api API, region string, export config.ExportConfig, log logging.Logger) *Client {
	return &Client{api: api, bucket: export.Bucket, prefix: export.Prefix, region: region, logger: log}
}

// Bucket is the export bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// EnsureBucket creates the export bucket when missing and installs the
// retention rule. A rejected lifecycle rule is logged, not fatal.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to check bucket existence").
			WithDetail("bucket=" + c.bucket)
	}
	if !exists {
		if err := c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create bucket").
				WithDetail("bucket=" + c.bucket)
		}
		c.logger.Info("Created bucket", logging.String("bucket", c.bucket))
	}

	rules := lifecycle.NewConfiguration()
	rules.Rules = []lifecycle.Rule{{
		ID:         "exports-retention",
		Status:     "Enabled",
		RuleFilter: lifecycle.Filter{Prefix: c.prefix},
		Expiration: lifecycle.Expiration{Days: lifecycle.ExpirationDays(exportRetentionDays)},
	}}
	if err := c.api.SetBucketLifecycle(ctx, c.bucket, rules); err != nil {
		c.logger.Warn("Failed to set lifecycle for export bucket",
			logging.String("bucket", c.bucket), logging.Err(err))
	}
	return nil
}

// HealthCheck verifies the export bucket is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "object storage unreachable")
	}
	if !exists {
		return errors.New(errors.ErrCodeStorageError, "export bucket missing").WithDetail("bucket=" + c.bucket)
	}
	return nil
}
