package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrEmitterClosed is passed to the drop hook for events emitted after Close.
var ErrEmitterClosed = errors.New("events: emitter closed")

// Emitter hands events to a Publisher without blocking the caller. Delivery
// failures are logged and counted, never returned.
type Emitter struct {
	publisher Publisher
	logger    *zap.Logger
	timeout   time.Duration
	onDrop    func(event Event, err error)

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type EmitterOption func(*Emitter)

// WithDropHook is called after an event fails to publish.
func WithDropHook(fn func(event Event, err error)) EmitterOption {
	return func(e *Emitter) { e.onDrop = fn }
}

func WithPublishTimeout(d time.Duration) EmitterOption {
	return func(e *Emitter) { e.timeout = d }
}

func NewEmitter(publisher Publisher, logger *zap.Logger, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		publisher: publisher,
		logger:    logger,
		timeout:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit publishes in the background. The request context is not reused, so
// the publish outlives the request that caused it.
func (e *Emitter) Emit(_ context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.logger.Warn("Emitter closed, dropping event",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
		)
		if e.onDrop != nil {
			e.onDrop(event, ErrEmitterClosed)
		}
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		if err := e.publisher.Publish(ctx, event); err != nil {
			e.logger.Error("Failed to publish event",
				zap.String("type", event.Type),
				zap.String("order_id", event.OrderID),
				zap.Error(err),
			)
			if e.onDrop != nil {
				e.onDrop(event, err)
			}
		}
	}()
}

// Close stops accepting events, waits for in-flight publishes, then closes
// the publisher. Events emitted after Close are dropped.
func (e *Emitter) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.wg.Wait()
	return e.publisher.Close()
}
