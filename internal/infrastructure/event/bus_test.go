package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/shared"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType, entityID string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, entityID)}
}

// testHandler implements EventHandler for testing
type testHandler struct {
	name       string
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
	block      chan struct{}
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes, name: "test-handler"}
}

func (h *testHandler) Name() string { return h.name }

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
	errs  []error
}

func (o *recordingObserver) ObserveDispatch(_ context.Context, eventType, handler string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, handler+"/"+eventType)
	o.errs = append(o.errs, err)
}

func startBus(t *testing.T, opts ...BusOption) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(zap.NewNop(), opts...)
	require.NoError(t, bus.Start(context.Background()))
	return bus
}

func stopBus(t *testing.T, bus *InMemoryEventBus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
}

func TestInMemoryEventBus_PublishBeforeStart(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	err := bus.Publish(context.Background(), newTestEvent("product.created", "p1"))
	assert.ErrorIs(t, err, ErrBusNotRunning)
}

func TestInMemoryEventBus_DispatchesToSubscribedHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	products := newTestHandler("product.created", "product.updated")
	collections := newTestHandler("product-collection.created")
	all := newTestHandler()
	bus.Subscribe(products)
	bus.Subscribe(collections)
	bus.Subscribe(all, "product.created", "product-collection.created")
	require.NoError(t, bus.Start(context.Background()))

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("product.created", "p1"),
		newTestEvent("product.updated", "p1"),
		newTestEvent("product-collection.created", "c1"),
		newTestEvent("product.deleted", "p2"),
	))
	stopBus(t, bus)

	assert.Equal(t, 2, products.count())
	assert.Equal(t, 1, collections.count())
	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_PublishDoesNotWaitForHandlers(t *testing.T) {
	h := newTestHandler("strapi-products.sync")
	h.block = make(chan struct{})
	bus := startBus(t, WithBusConfig(BusConfig{Workers: 1, QueueSize: 4}))
	bus.Subscribe(h)

	done := make(chan error, 1)
	go func() { done <- bus.Publish(context.Background(), newTestEvent("strapi-products.sync", "")) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish blocked on handler")
	}

	close(h.block)
	stopBus(t, bus)
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_QueueFull(t *testing.T) {
	h := newTestHandler("e")
	h.block = make(chan struct{})
	bus := startBus(t, WithBusConfig(BusConfig{Workers: 1, QueueSize: 1}))
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("e", "1")))
	// wait for the worker to pick up the first event
	require.Eventually(t, func() bool { return bus.Pending() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("e", "2")))

	err := bus.Publish(context.Background(), newTestEvent("e", "3"))
	assert.ErrorIs(t, err, ErrQueueFull)

	close(h.block)
	stopBus(t, bus)
	assert.Equal(t, 2, h.count())
}

func TestInMemoryEventBus_CancelledPublisherContextStillDispatches(t *testing.T) {
	h := newTestHandler("e")
	bus := startBus(t)
	bus.Subscribe(h)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(ctx, newTestEvent("e", "1")))
	cancel()

	stopBus(t, bus)
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_HandlerErrorsAndPanicsAreContained(t *testing.T) {
	failing := newTestHandler("e")
	failing.name = "failing"
	failing.err = errors.New("boom")
	panicking := newTestHandler("e")
	panicking.name = "panicking"
	panicking.panicWith = "kaboom"
	ok := newTestHandler("e")
	ok.name = "ok"

	observer := &recordingObserver{}
	bus := startBus(t, WithBusConfig(BusConfig{Workers: 1}), WithDispatchObserver(observer))
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(ok)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("e", "1")))
	stopBus(t, bus)

	assert.Equal(t, 1, ok.count())
	assert.Equal(t, []string{"failing/e", "panicking/e", "ok/e"}, observer.calls)
	assert.EqualError(t, observer.errs[0], "boom")
	assert.ErrorContains(t, observer.errs[1], "kaboom")
	assert.NoError(t, observer.errs[2])
}

func TestInMemoryEventBus_DispatchReportsHandlerErrors(t *testing.T) {
	failing := newTestHandler("e")
	failing.name = "failing"
	failing.err = errors.New("boom")
	ok := newTestHandler("e")
	ok.name = "ok"

	// Dispatch does not need the worker pool
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(failing)
	bus.Subscribe(ok)

	err := bus.Dispatch(context.Background(), newTestEvent("e", "1"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "failing: boom")
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, ok.count())

	failing.err = nil
	assert.NoError(t, bus.Dispatch(context.Background(), newTestEvent("e", "2")))
	assert.NoError(t, bus.Dispatch(context.Background(), newTestEvent("unhandled", "3")))
}

func TestInMemoryEventBus_StopIsIdempotent(t *testing.T) {
	bus := startBus(t)
	stopBus(t, bus)
	stopBus(t, bus)

	err := bus.Publish(context.Background(), newTestEvent("e", "1"))
	assert.ErrorIs(t, err, ErrBusNotRunning)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	h := newTestHandler("e")
	bus := startBus(t)
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("e", "1")))
	stopBus(t, bus)
	assert.Zero(t, h.count())
}
