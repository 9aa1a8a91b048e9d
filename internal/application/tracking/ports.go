package tracking

import (
	"context"
	"time"

	"github.com/turtacn/ChequeGuard/internal/domain/report"
	"github.com/turtacn/ChequeGuard/pkg/types/common"
)

// CachePort stores computed passes.
type CachePort interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// PublisherPort emits computed pass events to the broker.
type PublisherPort interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
}

// MetricsPort records pass outcomes.
type MetricsPort interface {
	ObservePass(trigger string, duration time.Duration, err error)
	SetPortfolioSize(n int)
	SetDeadlineCounts(d report.DeadlineAnalysis)
	SetAlertCounts(critical, warning int)
	IncCacheResult(hit bool)
}
