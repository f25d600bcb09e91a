package telemetry

import (
	"context"
	"time"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/cms"
)

// SyncMetrics records CMS reconciliation calls and event handler dispatches.
// It satisfies cmssync.MetricsRecorder, event.DispatchObserver and event.DuplicateObserver.
type SyncMetrics struct {
	operations        *Counter
	operationDuration *Histogram
	events            *Counter
	eventDuration     *Histogram
}

// NewSyncMetrics registers the sync instruments on the provider's "cms-sync" meter
func NewSyncMetrics(mp *MeterProvider) (*SyncMetrics, error) {
	meter := mp.Meter(TracerName)

	operations, err := NewCounter(meter,
		"cmssync_operations_total",
		"CMS reconciliation calls by entity, operation and outcome",
		"{operation}",
	)
	if err != nil {
		return nil, err
	}
	operationDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "cmssync_operation_duration_seconds",
		Description: "CMS reconciliation latency in seconds",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	events, err := NewCounter(meter,
		"cmssync_events_total",
		"Event handler invocations by event type, handler and outcome",
		"{event}",
	)
	if err != nil {
		return nil, err
	}
	eventDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "cmssync_event_duration_seconds",
		Description: "Event handler latency in seconds",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		operations:        operations,
		operationDuration: operationDuration,
		events:            events,
		eventDuration:     eventDuration,
	}, nil
}

// RecordOperation counts one create/update/delete against the CMS
func (m *SyncMetrics) RecordOperation(ctx context.Context, entity cms.EntityType, operation, outcome string, d time.Duration) {
	m.operations.Inc(ctx,
		AttrEntity.String(string(entity)),
		AttrOperation.String(operation),
		AttrOutcome.String(outcome),
	)
	m.operationDuration.RecordDuration(ctx, d,
		AttrEntity.String(string(entity)),
		AttrOperation.String(operation),
	)
}

// ObserveDispatch counts one handler invocation; outcome is "error" when err is non-nil
func (m *SyncMetrics) ObserveDispatch(ctx context.Context, eventType, handler string, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.events.Inc(ctx,
		AttrEventType.String(eventType),
		AttrHandler.String(handler),
		AttrOutcome.String(outcome),
	)
	m.eventDuration.RecordDuration(ctx, d,
		AttrEventType.String(eventType),
		AttrHandler.String(handler),
	)
}

// ObserveDuplicate counts a redelivered event skipped by the idempotency check
func (m *SyncMetrics) ObserveDuplicate(ctx context.Context, eventType, handler string) {
	m.events.Inc(ctx,
		AttrEventType.String(eventType),
		AttrHandler.String(handler),
		AttrOutcome.String("duplicate"),
	)
}
