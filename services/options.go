package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shopswift/storefront/events"
)

// EventEmitter is fire-and-forget; it never reports delivery failures.
type EventEmitter interface {
	Emit(ctx context.Context, event events.Event)
}

// MetricsRecorder counts business events. *aws.MetricsClient satisfies it.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

type options struct {
	now     func() time.Time
	metrics MetricsRecorder
}

// Option customises a service.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// count records a metric off the request path.
func (o options) count(logger *zap.Logger, metricName string) {
	if o.metrics == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.metrics.RecordCount(ctx, metricName, map[string]string{"Service": "storefront-api"}); err != nil {
			logger.Debug("metric not recorded", zap.String("metric", metricName), zap.Error(err))
		}
	}()
}
