package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/shared"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/logger"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/telemetry"
)

var (
	// ErrBusNotRunning is returned by Publish before Start or after Stop
	ErrBusNotRunning = errors.New("event bus is not running")
	// ErrQueueFull is returned when the dispatch queue has no room
	ErrQueueFull = errors.New("event bus queue is full")
)

// BusConfig configures the worker pool
type BusConfig struct {
	// Workers is the number of concurrent dispatchers
	Workers int
	// QueueSize bounds the number of events waiting for a worker
	QueueSize int
	// HandlerTimeout bounds each handler call. 0 means no timeout.
	HandlerTimeout time.Duration
}

// DefaultBusConfig returns the default bus configuration
func DefaultBusConfig() BusConfig {
	return BusConfig{
		Workers:        4,
		QueueSize:      256,
		HandlerTimeout: 10 * time.Minute,
	}
}

// DispatchObserver is notified after every handler call
type DispatchObserver interface {
	ObserveDispatch(ctx context.Context, eventType, handler string, err error, duration time.Duration)
}

// Named handlers report a stable name for logs, metrics and idempotency keys
type Named interface {
	Name() string
}

func handlerName(h shared.EventHandler) string {
	if n, ok := h.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}

type delivery struct {
	ctx   context.Context
	event shared.DomainEvent
}

// InMemoryEventBus queues published events and dispatches them to handlers on a
// fixed pool of workers. Publish never blocks on handler work.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	config   BusConfig
	observer DispatchObserver

	mu      sync.RWMutex
	queue   chan delivery
	running atomic.Bool
	wg      sync.WaitGroup
}

// BusOption configures the bus
type BusOption func(*InMemoryEventBus)

// WithBusConfig overrides the default worker pool settings
func WithBusConfig(cfg BusConfig) BusOption {
	return func(b *InMemoryEventBus) {
		if cfg.Workers > 0 {
			b.config.Workers = cfg.Workers
		}
		if cfg.QueueSize > 0 {
			b.config.QueueSize = cfg.QueueSize
		}
		if cfg.HandlerTimeout >= 0 {
			b.config.HandlerTimeout = cfg.HandlerTimeout
		}
	}
}

// WithDispatchObserver sets the dispatch observer
func WithDispatchObserver(o DispatchObserver) BusOption {
	return func(b *InMemoryEventBus) {
		b.observer = o
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
		config:   DefaultBusConfig(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish queues events for dispatch. The caller's context values (trace, request id)
// travel with the event but its cancellation does not.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.running.Load() {
		return ErrBusNotRunning
	}

	detached := context.WithoutCancel(ctx)
	for _, event := range events {
		select {
		case b.queue <- delivery{ctx: detached, event: event}:
			b.logger.Debug("event queued",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
			)
		default:
			return fmt.Errorf("%w: dropping %s", ErrQueueFull, event.EventType())
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	// If handler specifies its own event types, use those
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.String("handler", handlerName(handler)),
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed", zap.String("handler", handlerName(handler)))
}

// Start launches the workers
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running.Load() {
		return nil
	}
	b.queue = make(chan delivery, b.config.QueueSize)
	for i := 0; i < b.config.Workers; i++ {
		b.wg.Add(1)
		go b.worker(b.queue)
	}
	b.running.Store(true)

	b.logger.Info("event bus started",
		zap.Int("workers", b.config.Workers),
		zap.Int("queue_size", b.config.QueueSize),
		zap.Strings("event_types", b.registry.EventTypes()),
	)
	return nil
}

// Stop stops accepting events and waits for queued events to be handled
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running.Load() {
		b.mu.Unlock()
		return nil
	}
	b.running.Store(false)
	close(b.queue)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("event bus stop timed out with events still in flight")
		return ctx.Err()
	}
}

// Pending returns the number of queued events
func (b *InMemoryEventBus) Pending() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.queue == nil {
		return 0
	}
	return len(b.queue)
}

// Dispatch runs the subscribed handlers for each event on the caller's goroutine
// and returns once they have all finished. Every handler is called even when an
// earlier one fails; the failures are joined into the returned error.
// Unlike Publish it does not need the worker pool to be running.
func (b *InMemoryEventBus) Dispatch(ctx context.Context, events ...shared.DomainEvent) error {
	var errs []error
	for _, event := range events {
		if err := b.dispatch(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *InMemoryEventBus) worker(queue <-chan delivery) {
	defer b.wg.Done()
	for d := range queue {
		// failures are logged by dispatch
		_ = b.dispatch(d.ctx, d.event)
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, event shared.DomainEvent) error {
	var errs []error
	for _, handler := range b.registry.GetHandlers(event.EventType()) {
		if err := b.dispatchToHandler(ctx, handler, event); err != nil {
			// Log error but continue with other handlers
			b.logger.Error("handler failed to process event",
				zap.String("handler", handlerName(handler)),
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.String("entity_id", event.EntityID()),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", handlerName(handler), err))
		}
	}
	return errors.Join(errs...)
}

// dispatchToHandler safely dispatches an event to a handler
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	if b.config.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.HandlerTimeout)
		defer cancel()
	}

	ctx, _ = logger.WithEvent(ctx, b.logger, event.EventID().String(), event.EventType())
	ctx, span := telemetry.StartSpan(ctx, "event."+event.EventType(),
		telemetry.WithSpanKind(trace.SpanKindConsumer),
		telemetry.WithAttribute("event.id", event.EventID().String()),
		telemetry.WithAttribute("event.entity_id", event.EntityID()),
		telemetry.WithAttribute("event.handler", handlerName(handler)),
	)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("handler", handlerName(handler)),
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("handler panicked: %v", r)
		}
		telemetry.RecordError(span, err)
		span.End()
		if b.observer != nil {
			b.observer.ObserveDispatch(ctx, event.EventType(), handlerName(handler), err, time.Since(start))
		}
	}()

	telemetry.WithProfilingLabels(ctx, map[string]string{
		telemetry.ProfilingLabelEventType: event.EventType(),
		telemetry.ProfilingLabelHandler:   handlerName(handler),
	}, func(ctx context.Context) {
		err = handler.Handle(ctx, event)
	})
	return err
}

// Ensure InMemoryEventBus implements EventBus and Dispatcher
var (
	_ shared.EventBus = (*InMemoryEventBus)(nil)
	_ Dispatcher      = (*InMemoryEventBus)(nil)
)
