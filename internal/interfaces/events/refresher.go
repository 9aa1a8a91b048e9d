// Package events recomputes the portfolio pass when the record store reports
// a change, and on a fixed interval so that alert state rolls over at day
// boundaries even when nothing is edited.
package events

import (
	"context"
	"time"

	"github.com/turtacn/ChequeGuard/internal/application/tracking"
	kafkainfra "github.com/turtacn/ChequeGuard/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/pkg/errors"
	"github.com/turtacn/ChequeGuard/pkg/types/common"
)

const defaultInterval = 15 * time.Minute

// EventRecorder counts processed change events.
type EventRecorder interface {
	RecordEvent(topic string, err error)
}

// Locker is a lease shared by worker replicas. Whoever takes it runs the
// scheduled refresh for that interval.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Refresher keeps the cached pass current.
type Refresher struct {
	svc      tracking.Service
	metrics  EventRecorder
	logger   logging.Logger
	interval time.Duration
	locker   Locker
}

// NewRefresher returns a Refresher. metrics may be nil.
func NewRefresher(svc tracking.Service, metrics EventRecorder, logger logging.Logger, interval time.Duration) *Refresher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Refresher{svc: svc, metrics: metrics, logger: logger.Named("refresher"), interval: interval}
}

// SetLocker makes scheduled refreshes run only while l is held. The lease is
// kept until it expires after a successful refresh and released after a
// failed one so another replica can retry.
func (r *Refresher) SetLocker(l Locker) {
	r.locker = l
}

// Subscriber is the consumer side of the change feed.
type Subscriber interface {
	Subscribe(topic string, handler common.MessageHandler)
}

// Register subscribes the change handler to the record change topic.
func (r *Refresher) Register(s Subscriber) {
	s.Subscribe(kafkainfra.TopicRecordChanged, r.HandleRecordChanged)
}

// HandleRecordChanged drops cached passes and recomputes after a cheque is
// created, updated or deleted. Other event types are acknowledged and
// ignored. A returned error makes the consumer retry and finally dead-letter
// the message.
func (r *Refresher) HandleRecordChanged(ctx context.Context, msg *common.Message) (err error) {
	defer func() {
		if r.metrics != nil {
			r.metrics.RecordEvent(msg.Topic, err)
		}
	}()

	env, err := kafkainfra.MessageToEventEnvelope(msg)
	if err != nil {
		return err
	}
	switch env.EventType {
	case kafkainfra.EventRecordCreated, kafkainfra.EventRecordUpdated, kafkainfra.EventRecordDeleted:
	default:
		r.logger.Debug("Ignoring event", logging.String("event_type", env.EventType))
		return nil
	}

	var payload kafkainfra.RecordChangedPayload
	if err := env.DecodePayload(&payload); err != nil {
		return err
	}
	if payload.ChequeID == "" {
		return errors.New(errors.ErrCodeValidation, "record change without cheque id").
			WithDetail("event_id=" + env.EventID)
	}

	if err := r.svc.Invalidate(ctx); err != nil {
		r.logger.Warn("Cache invalidation failed", logging.Err(err))
	}
	pass, err := r.svc.Refresh(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("Pass recomputed after record change",
		logging.String("cheque_id", payload.ChequeID),
		logging.String("event_type", env.EventType),
		logging.String("pass_id", pass.ID),
		logging.Int("alerts", len(pass.Alerts)))
	return nil
}

// Run refreshes once immediately and then on every interval until ctx is
// done. Failed refreshes are logged and retried on the next tick.
func (r *Refresher) Run(ctx context.Context) error {
	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	if r.locker != nil {
		ok, err := r.locker.TryLock(ctx)
		switch {
		case err != nil:
			r.logger.Warn("Refresh lease unavailable, refreshing anyway", logging.Err(err))
		case !ok:
			r.logger.Debug("Refresh lease held by another worker")
			return
		}
	}

	pass, err := r.svc.Refresh(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("Scheduled refresh failed", logging.Err(err))
		}
		if r.locker != nil {
			if uerr := r.locker.Unlock(context.Background()); uerr != nil {
				r.logger.Debug("Refresh lease not released", logging.Err(uerr))
			}
		}
		return
	}
	r.logger.Debug("Scheduled refresh done",
		logging.String("pass_id", pass.ID),
		logging.String("today", pass.Today.String()),
		logging.Int("alerts", len(pass.Alerts)))
}
