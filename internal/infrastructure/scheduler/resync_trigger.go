// Package scheduler drives periodic background work.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/commerce"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/shared"
)

// ResyncTriggerConfig holds configuration for the periodic resync trigger
type ResyncTriggerConfig struct {
	// Interval between resync rounds; zero disables the trigger
	Interval time.Duration
	// RunOnStart publishes one round immediately after Start
	RunOnStart bool
}

// ResyncTrigger publishes the bulk resync events on a fixed interval
type ResyncTrigger struct {
	config    ResyncTriggerConfig
	publisher shared.EventPublisher
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewResyncTrigger creates a new resync trigger
func NewResyncTrigger(config ResyncTriggerConfig, publisher shared.EventPublisher, logger *zap.Logger) (*ResyncTrigger, error) {
	if config.Interval < 0 {
		return nil, fmt.Errorf("%w: negative resync interval %s", ErrInvalidConfig, config.Interval)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResyncTrigger{
		config:    config,
		publisher: publisher,
		logger:    logger,
	}, nil
}

// Start launches the ticker loop. It is a no-op when the interval is zero or the trigger is already running.
func (t *ResyncTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	if t.config.Interval == 0 {
		t.mu.Unlock()
		t.logger.Info("Periodic resync is disabled")
		return nil
	}
	t.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Periodic resync started",
		zap.Duration("interval", t.config.Interval),
		zap.Bool("run_on_start", t.config.RunOnStart),
	)
	return nil
}

// Stop cancels the loop and waits for it to exit or ctx to expire
func (t *ResyncTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Periodic resync stopped")
		return nil
	case <-ctx.Done():
		t.logger.Warn("Periodic resync stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (t *ResyncTrigger) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isRunning
}

func (t *ResyncTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	if t.config.RunOnStart {
		t.Trigger(ctx)
	}

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Trigger(ctx)
		}
	}
}

// Trigger publishes one round of resync events. Publish failures are logged; the next tick retries.
func (t *ResyncTrigger) Trigger(ctx context.Context) {
	events := commerce.NewResyncRound()

	if err := t.publisher.Publish(ctx, events...); err != nil {
		t.logger.Warn("Failed to publish periodic resync events", zap.Error(err))
		return
	}
	t.logger.Debug("Periodic resync events published", zap.Int("count", len(events)))
}
