package cmssync

import (
	"context"
	"time"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/cms"
)

// Operation outcomes reported to the MetricsRecorder
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeDeleted = "deleted"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// MetricsRecorder receives one observation per CMS reconciliation call
type MetricsRecorder interface {
	RecordOperation(ctx context.Context, entity cms.EntityType, operation, outcome string, duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) RecordOperation(context.Context, cms.EntityType, string, string, time.Duration) {}
