package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/shared"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/cache"
)

// MockEventHandler is a mock implementation of shared.EventHandler
type MockEventHandler struct {
	mock.Mock
}

func (m *MockEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventHandler) EventTypes() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockEventHandler) Name() string { return "mock" }

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

type duplicateRecorder struct {
	seen []string
}

func (r *duplicateRecorder) ObserveDuplicate(_ context.Context, eventType, handler string) {
	r.seen = append(r.seen, handler+"/"+eventType)
}

func TestIdempotentHandler_ProcessesOnce(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := new(MockEventHandler)
	inner.On("Handle", mock.Anything, mock.Anything).Return(nil).Once()

	dups := &duplicateRecorder{}
	h := NewIdempotentHandler(inner, store, zap.NewNop(), WithDuplicateObserver(dups))
	event := newTestEvent("product.created", "p1")

	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	inner.AssertNumberOfCalls(t, "Handle", 1)
	assert.Equal(t, []string{"mock/product.created"}, dups.seen)
}

func TestIdempotentHandler_FailureReleasesKey(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := new(MockEventHandler)
	inner.On("Handle", mock.Anything, mock.Anything).Return(errors.New("cms down")).Once()
	inner.On("Handle", mock.Anything, mock.Anything).Return(nil).Once()

	h := NewIdempotentHandler(inner, store, zap.NewNop())
	event := newTestEvent("product.updated", "p1")

	assert.Error(t, h.Handle(context.Background(), event))
	assert.NoError(t, h.Handle(context.Background(), event))

	inner.AssertNumberOfCalls(t, "Handle", 2)
}

func TestIdempotentHandler_KeysAreScopedPerHandler(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := new(MockEventHandler)
	event := newTestEvent("product.created", "p1")

	store.On("MarkProcessed", mock.Anything, "mock:"+event.EventID().String(), 24*time.Hour).Return(true, nil)
	inner.On("Handle", mock.Anything, event).Return(nil)

	h := NewIdempotentHandler(inner, store, zap.NewNop())
	require.NoError(t, h.Handle(context.Background(), event))
	store.AssertExpectations(t)
}

func TestIdempotentHandler_StoreErrorStillProcesses(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := new(MockEventHandler)
	store.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
	inner.On("Handle", mock.Anything, mock.Anything).Return(errors.New("fail"))

	h := NewIdempotentHandler(inner, store, zap.NewNop())
	assert.Error(t, h.Handle(context.Background(), newTestEvent("e", "1")))

	inner.AssertNumberOfCalls(t, "Handle", 1)
	store.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := new(MockEventHandler)
	inner.On("Handle", mock.Anything, mock.Anything).Return(nil)

	h := NewIdempotentHandler(inner, store, zap.NewNop(),
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))
	event := newTestEvent("e", "1")
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	inner.AssertNumberOfCalls(t, "Handle", 2)
	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdempotentHandler_Delegates(t *testing.T) {
	inner := new(MockEventHandler)
	inner.On("EventTypes").Return([]string{"a", "b"})

	h := NewIdempotentHandler(inner, new(MockIdempotencyStore), nil)
	assert.Equal(t, []string{"a", "b"}, h.EventTypes())
	assert.Equal(t, "mock", h.Name())
}
