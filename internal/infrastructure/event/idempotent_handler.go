package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/shared"
)

// DuplicateObserver is told about every redelivered event that was skipped
type DuplicateObserver interface {
	ObserveDuplicate(ctx context.Context, eventType, handler string)
}

// IdempotentHandler runs a sync handler at most once per event id.
// The key is scoped to the handler name, so the product upsert and the
// variant upsert subscribed to one event keep separate keys. A failed run
// releases its key and the redelivery is handled again.
type IdempotentHandler struct {
	handler  shared.EventHandler
	store    shared.IdempotencyStore
	config   shared.IdempotencyConfig
	logger   *zap.Logger
	observer DuplicateObserver
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig sets TTL and the enabled flag
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithDuplicateObserver reports skipped redeliveries
func WithDuplicateObserver(o DuplicateObserver) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.observer = o
	}
}

// NewIdempotentHandler wraps handler with an idempotency check against store
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name returns the wrapped handler's name
func (h *IdempotentHandler) Name() string {
	return handlerName(h.handler)
}

// EventTypes returns the wrapped handler's event types
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle claims the event key, runs the handler, and releases the key on failure.
// When the store is unreachable the event is handled anyway.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}

	name := h.Name()
	key := name + ":" + event.EventID().String()
	log := h.logger.With(
		zap.String("idempotency_key", key),
		zap.String("event_type", event.EventType()),
	)

	claimed, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	if err != nil {
		log.Warn("Idempotency store unavailable, handling event without dedup", zap.Error(err))
		return h.handler.Handle(ctx, event)
	}
	if !claimed {
		log.Debug("Skipping redelivered event")
		if h.observer != nil {
			h.observer.ObserveDuplicate(ctx, event.EventType(), name)
		}
		return nil
	}

	handleErr := h.handler.Handle(ctx, event)
	if handleErr == nil {
		return nil
	}
	// the handler's ctx may be the one that timed out
	if err := h.store.Release(context.WithoutCancel(ctx), key); err != nil {
		log.Warn("Failed to release idempotency key; redelivery will be skipped until it expires", zap.Error(err))
	}
	return handleErr
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
