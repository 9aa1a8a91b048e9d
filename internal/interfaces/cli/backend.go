package cli

import (
	"context"
	"time"

	"github.com/turtacn/ChequeGuard/internal/application/reporting"
	"github.com/turtacn/ChequeGuard/internal/application/tracking"
	"github.com/turtacn/ChequeGuard/internal/config"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/database/jsonfile"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/database/postgres"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/storage/minio"
)

// asOfHour places an --as-of date at midday so that no zone offset moves it
// to a neighbouring day.
const asOfHour = 12

type backend struct {
	tracking  tracking.Service
	reporting reporting.Service
	closers   []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

func openBackend(ctx context.Context, cfg *config.Config, opts *RootOptions, log logging.Logger) (*backend, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clock, err := newClock(opts.AsOf, loc)
	if err != nil {
		return nil, err
	}

	b := &backend{}
	var repo cheque.Repository
	if opts.Input != "" {
		snap, err := jsonfile.Open(opts.Input)
		if err != nil {
			return nil, err
		}
		log.Debug("Using snapshot file", logging.String("path", opts.Input))
		repo = snap
	} else {
		conn, err := postgres.NewConnection(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, conn.Close)
		repo = postgres.NewChequeRepository(conn.Pool(), log)
	}

	var store reporting.ObjectStore
	if cfg.MinIO.Enabled {
		mc, err := minio.NewClient(ctx, cfg.MinIO, cfg.Export, log)
		if err != nil {
			b.close()
			return nil, err
		}
		store = minio.NewExportStore(mc, log)
	}

	b.tracking = tracking.NewService(repo, cheque.NewEngine(loc), clock, nil, nil, nil, log,
		tracking.Options{PassTTL: cfg.Engine.PassTTL, Source: "chequeguard-cli"})
	b.reporting = reporting.NewService(b.tracking, store, clock, log,
		reporting.Options{Prefix: cfg.Export.Prefix, URLExpiry: cfg.Export.URLExpiry})
	return b, nil
}

// today is the calendar day of now in the configured zone.
func (c *CLIContext) today(now time.Time) cheque.Date {
	loc, err := c.Config.Location()
	if err != nil {
		loc = time.UTC
	}
	return cheque.NewEngine(loc).Today(now)
}

// newClock pins "now" to asOf when given.
func newClock(asOf string, loc *time.Location) (cheque.Clock, error) {
	if asOf == "" {
		return cheque.SystemClock{}, nil
	}
	d, err := cheque.ParseDate(asOf)
	if err != nil {
		return nil, err
	}
	y, m, day := d.Time().Date()
	return cheque.FixedClock{At: time.Date(y, m, day, asOfHour, 0, 0, 0, loc)}, nil
}
