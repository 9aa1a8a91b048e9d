// Package tracking runs computation passes over the cheque portfolio. A pass
// captures "now" once, loads one snapshot from the record store, and derives
// alerts and report statistics from that single snapshot.
package tracking

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/ChequeGuard/internal/domain/alert"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/domain/report"
	kafkainfra "github.com/turtacn/ChequeGuard/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/pkg/errors"
	"github.com/turtacn/ChequeGuard/pkg/types/common"
)

const (
	cacheKeyPrefix = "pass:"
	defaultPassTTL = 6 * time.Hour

	// Pass triggers, used as metric labels.
	TriggerRequest = "request"
	TriggerRefresh = "refresh"
)

// Pass is the output of one computation pass.
type Pass struct {
	ID          string         `json:"pass_id"`
	Now         time.Time      `json:"now"`
	Today       cheque.Date    `json:"today"`
	Version     string         `json:"snapshot_version"`
	ChequeCount int            `json:"cheque_count"`
	Alerts      []alert.Alert  `json:"alerts"`
	Report      *report.Report `json:"report"`
}

// ChequeStages is the stage view of a single cheque.
type ChequeStages struct {
	Cheque     *cheque.Cheque    `json:"cheque"`
	Evaluation cheque.Evaluation `json:"evaluation"`
	Alerts     []alert.Alert     `json:"alerts"`
}

// AlertList is a filtered alert listing. Total, Critical and Warning count
// every matching alert; Alerts holds at most the requested limit.
type AlertList struct {
	PassID    string        `json:"pass_id"`
	Now       time.Time     `json:"now"`
	Total     int           `json:"total"`
	Critical  int           `json:"critical"`
	Warning   int           `json:"warning"`
	Truncated bool          `json:"truncated"`
	Alerts    []alert.Alert `json:"alerts"`
}

// Snapshot is the raw portfolio with the instant it was read at.
type Snapshot struct {
	Now     time.Time
	Version string
	Cheques []*cheque.Cheque
}

// Service exposes the derived views of the portfolio.
type Service interface {
	// Stages evaluates one stored cheque.
	Stages(ctx context.Context, chequeID string) (*ChequeStages, error)
	// EvaluateRecord evaluates a cheque that is not stored.
	EvaluateRecord(ctx context.Context, rec cheque.Record) (*ChequeStages, error)
	// Alerts returns the current alerts narrowed by filter.
	Alerts(ctx context.Context, filter alert.Filter) (*AlertList, error)
	// Report returns the current portfolio report.
	Report(ctx context.Context) (*report.Report, error)
	// Current returns the current pass, from cache when possible.
	Current(ctx context.Context) (*Pass, error)
	// Refresh recomputes the pass, replaces the cached copy and publishes it.
	Refresh(ctx context.Context) (*Pass, error)
	// Snapshot reads the raw portfolio.
	Snapshot(ctx context.Context) (*Snapshot, error)
	// Invalidate drops every cached pass.
	Invalidate(ctx context.Context) error
}

// Options tune a Service.
type Options struct {
	PassTTL time.Duration
	// Source names this process in published events.
	Source string
}

type serviceImpl struct {
	repo      cheque.Repository
	engine    *cheque.Engine
	generator *alert.Generator
	agg       *report.Aggregator
	clock     cheque.Clock
	cache     CachePort
	publisher PublisherPort
	metrics   MetricsPort
	logger    logging.Logger
	opts      Options
	group     singleflight.Group
}

// NewService wires a Service. cache, publisher and metrics may be nil.
func NewService(
	repo cheque.Repository,
	engine *cheque.Engine,
	clock cheque.Clock,
	cache CachePort,
	publisher PublisherPort,
	metrics MetricsPort,
	logger logging.Logger,
	opts Options,
) Service {
	if engine == nil {
		engine = cheque.NewEngine(nil)
	}
	if clock == nil {
		clock = cheque.SystemClock{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.PassTTL <= 0 {
		opts.PassTTL = defaultPassTTL
	}
	if opts.Source == "" {
		opts.Source = "chequeguard"
	}
	return &serviceImpl{
		repo:      repo,
		engine:    engine,
		generator: alert.NewGenerator(engine),
		agg:       report.NewAggregator(engine),
		clock:     clock,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.Named("tracking"),
		opts:      opts,
	}
}

func (s *serviceImpl) Stages(ctx context.Context, chequeID string) (*ChequeStages, error) {
	if chequeID == "" {
		return nil, errors.InvalidParam("cheque id is required")
	}
	now := s.clock.Now()
	c, err := s.repo.FindByID(ctx, chequeID)
	if err != nil {
		return nil, err
	}
	return s.evaluate(c, now)
}

func (s *serviceImpl) EvaluateRecord(_ context.Context, rec cheque.Record) (*ChequeStages, error) {
	now := s.clock.Now()
	c, err := rec.ToCheque()
	if err != nil {
		return nil, err
	}
	return s.evaluate(c, now)
}

func (s *serviceImpl) evaluate(c *cheque.Cheque, now time.Time) (*ChequeStages, error) {
	ev, err := s.engine.Evaluate(c, now)
	if err != nil {
		s.logger.Warn("stage evaluation failed", logging.String("cheque_id", c.ID), logging.Err(err))
		return nil, err
	}
	alerts := alert.FromEvaluation(c, ev)
	if alerts == nil {
		alerts = []alert.Alert{}
	}
	return &ChequeStages{Cheque: c, Evaluation: ev, Alerts: alerts}, nil
}

func (s *serviceImpl) Alerts(ctx context.Context, filter alert.Filter) (*AlertList, error) {
	pass, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	limit := filter.Limit
	filter.Limit = 0
	matched := alert.Apply(pass.Alerts, filter)
	crit, warn := alert.Counts(matched)

	list := &AlertList{
		PassID:   pass.ID,
		Now:      pass.Now,
		Total:    len(matched),
		Critical: crit,
		Warning:  warn,
		Alerts:   matched,
	}
	if limit > 0 && len(matched) > limit {
		list.Alerts = matched[:limit]
		list.Truncated = true
	}
	return list, nil
}

func (s *serviceImpl) Report(ctx context.Context) (*report.Report, error) {
	pass, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return pass.Report, nil
}

func (s *serviceImpl) Snapshot(ctx context.Context) (*Snapshot, error) {
	now := s.clock.Now()
	version, err := s.repo.Version(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeChequeSnapshotUnreadable, "failed to read snapshot version")
	}
	cheques, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeChequeSnapshotUnreadable, "failed to read snapshot")
	}
	return &Snapshot{Now: now, Version: version, Cheques: cheques}, nil
}

func (s *serviceImpl) Current(ctx context.Context) (*Pass, error) {
	now := s.clock.Now()
	version, err := s.repo.Version(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeChequeSnapshotUnreadable, "failed to read snapshot version")
	}
	key := s.cacheKey(version, now)

	if s.cache != nil {
		var cached Pass
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.observeCache(true)
			return &cached, nil
		}
		s.observeCache(false)
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.compute(ctx, now, version, TriggerRequest)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Pass), nil
}

func (s *serviceImpl) Refresh(ctx context.Context) (*Pass, error) {
	now := s.clock.Now()
	version, err := s.repo.Version(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeChequeSnapshotUnreadable, "failed to read snapshot version")
	}
	pass, err := s.compute(ctx, now, version, TriggerRefresh)
	if err != nil {
		return nil, err
	}
	if err := s.publish(ctx, pass); err != nil {
		return pass, err
	}
	return pass, nil
}

func (s *serviceImpl) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeletePattern(ctx, cacheKeyPrefix+"*")
}

// compute runs one pass with the already captured now.
func (s *serviceImpl) compute(ctx context.Context, now time.Time, version, trigger string) (pass *Pass, err error) {
	start := time.Now()
	passID := common.NewID()
	log := s.logger.With(logging.String("pass_id", passID), logging.String("trigger", trigger))
	defer func() {
		if s.metrics != nil {
			s.metrics.ObservePass(trigger, time.Since(start), err)
		}
	}()

	cheques, err := s.repo.List(ctx)
	if err != nil {
		log.Error("failed to load snapshot", logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeChequeSnapshotUnreadable, "failed to read snapshot")
	}

	alerts, err := s.generator.Generate(cheques, now)
	if err != nil {
		log.Error("alert generation failed", logging.Err(err))
		return nil, err
	}
	rep, err := s.agg.Aggregate(cheques, now)
	if err != nil {
		log.Error("report aggregation failed", logging.Err(err))
		return nil, err
	}

	pass = &Pass{
		ID:          passID,
		Now:         now,
		Today:       s.engine.Today(now),
		Version:     version,
		ChequeCount: len(cheques),
		Alerts:      alerts,
		Report:      rep,
	}

	crit, warn := alert.Counts(alerts)
	if s.metrics != nil {
		s.metrics.SetPortfolioSize(len(cheques))
		s.metrics.SetDeadlineCounts(rep.Deadlines)
		s.metrics.SetAlertCounts(crit, warn)
	}

	if s.cache != nil {
		if cerr := s.cache.Set(ctx, s.cacheKey(version, now), pass, s.opts.PassTTL); cerr != nil {
			log.Warn("failed to cache pass", logging.Err(cerr))
		}
	}

	log.Info("pass computed",
		logging.Int("cheques", len(cheques)),
		logging.Int("critical", crit),
		logging.Int("warning", warn),
		logging.Duration("took", time.Since(start)))
	return pass, nil
}

func (s *serviceImpl) publish(ctx context.Context, pass *Pass) error {
	if s.publisher == nil {
		return nil
	}

	alertsEnv, err := kafkainfra.NewEventEnvelope(kafkainfra.EventAlertsComputed, s.opts.Source, AlertsComputedPayload{
		PassID:  pass.ID,
		Now:     pass.Now,
		Today:   pass.Today.String(),
		Version: pass.Version,
		Alerts:  pass.Alerts,
	})
	if err != nil {
		return err
	}
	reportEnv, err := kafkainfra.NewEventEnvelope(kafkainfra.EventReportComputed, s.opts.Source, ReportComputedPayload{
		PassID: pass.ID,
		Report: pass.Report,
	})
	if err != nil {
		return err
	}

	for _, item := range []struct {
		env   *kafkainfra.EventEnvelope
		topic string
	}{
		{alertsEnv, kafkainfra.TopicAlertsComputed},
		{reportEnv, kafkainfra.TopicReportComputed},
	} {
		msg, err := item.env.ToMessage(item.topic)
		if err != nil {
			return err
		}
		msg.Key = []byte(pass.Today.String())
		if err := s.publisher.Publish(ctx, msg); err != nil {
			s.logger.Error("failed to publish pass", logging.String("pass_id", pass.ID),
				logging.String("topic", item.topic), logging.Err(err))
			return errors.Wrap(err, errors.ErrCodeMessageQueueError, "failed to publish pass")
		}
	}
	return nil
}

// cacheKey scopes a cached pass to one snapshot version and one calendar day,
// since day counts change at midnight even when no record does.
func (s *serviceImpl) cacheKey(version string, now time.Time) string {
	return cacheKeyPrefix + version + ":" + s.engine.Today(now).String()
}

func (s *serviceImpl) observeCache(hit bool) {
	if s.metrics != nil {
		s.metrics.IncCacheResult(hit)
	}
}

// AlertsComputedPayload is the body of an alerts-computed event.
type AlertsComputedPayload struct {
	PassID  string        `json:"pass_id"`
	Now     time.Time     `json:"now"`
	Today   string        `json:"today"`
	Version string        `json:"snapshot_version"`
	Alerts  []alert.Alert `json:"alerts"`
}

// ReportComputedPayload is the body of a report-computed event.
type ReportComputedPayload struct {
	PassID string         `json:"pass_id"`
	Report *report.Report `json:"report"`
}
