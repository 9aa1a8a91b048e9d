package minio

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// ExportStore implements reporting.ObjectStore on the export bucket.
type ExportStore struct {
	client *Client
	logger logging.Logger
}

func NewExportStore(client *Client, log logging.Logger) *ExportStore {
	return &ExportStore{client: client, logger: log}
}

// Put uploads body under key. size may be -1 when unknown.
func (s *ExportStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if key == "" {
		return errors.InvalidParam("object key is required")
	}
	info, err := s.client.api.PutObject(ctx, s.client.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"generator": "chequeguard",
		},
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "upload failed").
			WithDetail("bucket=" + s.client.bucket + " key=" + key)
	}
	s.logger.Debug("export uploaded",
		logging.String("key", key),
		logging.Int64("size", info.Size),
		logging.String("etag", info.ETag))
	return nil
}

// PresignedURL returns a time-limited GET link for key.
func (s *ExportStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.api.PresignedGetObject(ctx, s.client.bucket, key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "failed to presign download").
			WithDetail("key=" + key)
	}
	return u.String(), nil
}
