package reporting

import (
	"bytes"
	"context"
	"io"
	"path"
	"time"

	"github.com/turtacn/ChequeGuard/internal/application/tracking"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

const (
	defaultPrefix    = "exports"
	defaultURLExpiry = 24 * time.Hour
)

// PassSource supplies the data being exported.
type PassSource interface {
	Current(ctx context.Context) (*tracking.Pass, error)
	Snapshot(ctx context.Context) (*tracking.Snapshot, error)
}

// ObjectStore persists rendered files.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ExportResult describes an uploaded export.
type ExportResult struct {
	Kind        Kind      `json:"kind"`
	Format      Format    `json:"format"`
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Service renders exports and uploads them.
type Service interface {
	// Render writes kind in format to w.
	Render(ctx context.Context, kind Kind, format Format, w io.Writer) error
	// Export renders kind in format, uploads it and returns a download link.
	Export(ctx context.Context, kind Kind, format Format) (*ExportResult, error)
}

// Options tune the export service.
type Options struct {
	Prefix    string
	URLExpiry time.Duration
}

type serviceImpl struct {
	source PassSource
	store  ObjectStore
	clock  cheque.Clock
	logger logging.Logger
	opts   Options
}

// NewService wires an export Service. store may be nil, in which case only
// Render is available.
func NewService(source PassSource, store ObjectStore, clock cheque.Clock, logger logging.Logger, opts Options) Service {
	if clock == nil {
		clock = cheque.SystemClock{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	if opts.URLExpiry <= 0 {
		opts.URLExpiry = defaultURLExpiry
	}
	return &serviceImpl{source: source, store: store, clock: clock, logger: logger.Named("reporting"), opts: opts}
}

func (s *serviceImpl) Render(ctx context.Context, kind Kind, format Format, w io.Writer) error {
	if _, err := ParseFormat(string(format)); err != nil {
		return err
	}
	switch kind {
	case KindCheques:
		snap, err := s.source.Snapshot(ctx)
		if err != nil {
			return err
		}
		if format == FormatXLSX {
			return WriteChequesXLSX(w, snap.Cheques)
		}
		return WriteChequesCSV(w, snap.Cheques)

	case KindReport:
		pass, err := s.source.Current(ctx)
		if err != nil {
			return err
		}
		if format == FormatXLSX {
			return WriteReportXLSX(w, pass.Report, pass.Alerts)
		}
		return WriteReportCSV(w, pass.Report)

	case KindAlerts:
		pass, err := s.source.Current(ctx)
		if err != nil {
			return err
		}
		if format == FormatXLSX {
			return WriteAlertsXLSX(w, pass.Alerts)
		}
		return WriteAlertsCSV(w, pass.Alerts)

	default:
		return errors.New(errors.ErrCodeBadRequest, "unknown export kind").WithDetail("value=" + string(kind))
	}
}

func (s *serviceImpl) Export(ctx context.Context, kind Kind, format Format) (*ExportResult, error) {
	if s.store == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "object storage is not configured")
	}
	now := s.clock.Now()
	var buf bytes.Buffer
	if err := s.Render(ctx, kind, format, &buf); err != nil {
		s.logger.Error("export render failed", logging.String("kind", string(kind)), logging.Err(err))
		return nil, err
	}

	key := s.objectKey(kind, format, now)
	size := int64(buf.Len())
	if err := s.store.Put(ctx, key, &buf, size, format.ContentType()); err != nil {
		s.logger.Error("export upload failed", logging.String("key", key), logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to upload export")
	}
	url, err := s.store.PresignedURL(ctx, key, s.opts.URLExpiry)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to presign export").WithDetail("key=" + key)
	}

	s.logger.Info("export uploaded",
		logging.String("key", key),
		logging.Int64("size", size))
	return &ExportResult{
		Kind:        kind,
		Format:      format,
		Key:         key,
		URL:         url,
		Size:        size,
		ContentType: format.ContentType(),
		ExpiresAt:   now.Add(s.opts.URLExpiry).UTC(),
	}, nil
}

// objectKey is <prefix>/<kind>/<yyyy>/<mm>/<dd>/<kind>-<timestamp>.<ext>.
func (s *serviceImpl) objectKey(kind Kind, format Format, now time.Time) string {
	now = now.UTC()
	name := string(kind) + "-" + now.Format("20060102T150405Z") + "." + string(format)
	return path.Join(s.opts.Prefix, string(kind), now.Format("2006/01/02"), name)
}
