package cmssync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/cms"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/commerce"
)

// Reconciler is the subset of ReconciliationService used by the workflow
type Reconciler interface {
	UpsertProduct(ctx context.Context, p *commerce.Product) (*ProductUpsertResult, error)
	UpsertVariant(ctx context.Context, v *commerce.Variant) (*cms.UpsertResult, error)
	UpsertCollection(ctx context.Context, c *commerce.Collection) (*cms.UpsertResult, error)
	UpsertCategory(ctx context.Context, c *commerce.Category) (*cms.UpsertResult, error)
	Delete(ctx context.Context, t cms.EntityType, sourceID string) (string, error)
	DeleteDocument(ctx context.Context, t cms.EntityType, documentID string) error
}

var _ Reconciler = (*ReconciliationService)(nil)

// FailureMode decides what a batch does when one item fails
type FailureMode int

const (
	// FailFast stops at the first failure and deletes the entries created by the batch
	FailFast FailureMode = iota
	// ContinueOnError attempts every item and reports failures in the result
	ContinueOnError
)

func (m FailureMode) String() string {
	if m == ContinueOnError {
		return "continue"
	}
	return "fail_fast"
}

// SyncStatus is the overall outcome of a batch
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "SUCCESS"
	SyncStatusPartial SyncStatus = "PARTIAL"
	SyncStatusFailed  SyncStatus = "FAILED"
)

// SyncFailure describes one failed item
type SyncFailure struct {
	ItemID       string `json:"item_id"`
	ErrorMessage string `json:"error"`
}

// SyncResult summarises a batch
type SyncResult struct {
	EntityType  cms.EntityType     `json:"entity_type"`
	Operation   string             `json:"operation"`
	Status      SyncStatus         `json:"status"`
	Total       int                `json:"total"`
	Succeeded   int                `json:"succeeded"`
	Skipped     int                `json:"skipped"`
	Failed      int                `json:"failed"`
	FailedItems []SyncFailure      `json:"failed_items,omitempty"`
	Entries     []cms.UpsertResult `json:"entries"`
	SyncedAt    time.Time          `json:"synced_at"`
}

func (r *SyncResult) finish(at time.Time) {
	r.SyncedAt = at
	switch {
	case r.Failed == 0:
		r.Status = SyncStatusSuccess
	case r.Succeeded > 0 || r.Skipped > 0:
		r.Status = SyncStatusPartial
	default:
		r.Status = SyncStatusFailed
	}
}

// PermanentFailureError is returned by a FailFast batch. Compensation has already run.
type PermanentFailureError struct {
	Step   string
	ItemID string
	Cause  error
	Result *SyncResult
}

func (e *PermanentFailureError) Error() string {
	return fmt.Sprintf("%s failed permanently at %s: %v", e.Step, e.ItemID, e.Cause)
}

func (e *PermanentFailureError) Unwrap() error { return e.Cause }

// written is one entry touched by an item, kept for metadata write-back and compensation
type written struct {
	entity cms.EntityType
	result cms.UpsertResult
}

type itemFunc func(ctx context.Context, i int) ([]written, error)

// Workflow runs batches of reconciliation steps and writes the CMS document id
// back onto the commerce entities.
type Workflow struct {
	reconciler Reconciler
	metadata   commerce.MetadataWriter
	logger     *zap.Logger
	now        func() time.Time
}

// NewWorkflow creates a workflow
func NewWorkflow(reconciler Reconciler, metadata commerce.MetadataWriter, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		reconciler: reconciler,
		metadata:   metadata,
		logger:     logger,
		now:        time.Now,
	}
}

// ---------------------------------------------------------------------------
// Upsert steps
// ---------------------------------------------------------------------------

// UpsertProducts upserts products with their variants
func (w *Workflow) UpsertProducts(ctx context.Context, products []commerce.Product, mode FailureMode) (*SyncResult, error) {
	ids := make([]string, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}
	return w.run(ctx, cms.EntityProduct, "upsert-products", ids, mode, func(ctx context.Context, i int) ([]written, error) {
		res, err := w.reconciler.UpsertProduct(ctx, &products[i])
		if res == nil {
			return nil, err
		}
		out := []written{{entity: cms.EntityProduct, result: res.UpsertResult}}
		for _, v := range res.Variants {
			out = append(out, written{entity: cms.EntityVariant, result: v})
		}
		return out, err
	})
}

// UpsertVariants upserts standalone variants
func (w *Workflow) UpsertVariants(ctx context.Context, variants []commerce.Variant, mode FailureMode) (*SyncResult, error) {
	ids := make([]string, len(variants))
	for i := range variants {
		ids[i] = variants[i].ID
	}
	return w.run(ctx, cms.EntityVariant, "upsert-variants", ids, mode, func(ctx context.Context, i int) ([]written, error) {
		return single(cms.EntityVariant)(w.reconciler.UpsertVariant(ctx, &variants[i]))
	})
}

// UpsertCollections upserts collections
func (w *Workflow) UpsertCollections(ctx context.Context, collections []commerce.Collection, mode FailureMode) (*SyncResult, error) {
	ids := make([]string, len(collections))
	for i := range collections {
		ids[i] = collections[i].ID
	}
	return w.run(ctx, cms.EntityCollection, "upsert-collections", ids, mode, func(ctx context.Context, i int) ([]written, error) {
		return single(cms.EntityCollection)(w.reconciler.UpsertCollection(ctx, &collections[i]))
	})
}

// UpsertCategories upserts categories
func (w *Workflow) UpsertCategories(ctx context.Context, categories []commerce.Category, mode FailureMode) (*SyncResult, error) {
	ids := make([]string, len(categories))
	for i := range categories {
		ids[i] = categories[i].ID
	}
	return w.run(ctx, cms.EntityCategory, "upsert-categories", ids, mode, func(ctx context.Context, i int) ([]written, error) {
		return single(cms.EntityCategory)(w.reconciler.UpsertCategory(ctx, &categories[i]))
	})
}

func single(t cms.EntityType) func(*cms.UpsertResult, error) ([]written, error) {
	return func(res *cms.UpsertResult, err error) ([]written, error) {
		if err != nil || res == nil {
			return nil, err
		}
		return []written{{entity: t, result: *res}}, nil
	}
}

// ---------------------------------------------------------------------------
// Delete steps
// ---------------------------------------------------------------------------

// Delete removes the entries for the given commerce ids. Deletes are not compensated.
func (w *Workflow) Delete(ctx context.Context, t cms.EntityType, ids []string, mode FailureMode) (*SyncResult, error) {
	step := "delete-" + t.Collection()
	result := &SyncResult{EntityType: t, Operation: "delete", Total: len(ids), Entries: []cms.UpsertResult{}}

	for _, id := range ids {
		docID, err := w.reconciler.Delete(ctx, t, id)
		if err != nil {
			result.Failed++
			result.FailedItems = append(result.FailedItems, SyncFailure{ItemID: id, ErrorMessage: err.Error()})
			w.logger.Error("CMS delete failed",
				zap.String("step", step),
				zap.String("source_id", id),
				zap.Error(err),
			)
			if mode == FailFast {
				result.finish(w.now())
				return result, &PermanentFailureError{Step: step, ItemID: id, Cause: err, Result: result}
			}
			continue
		}
		if docID == "" {
			result.Skipped++
			continue
		}
		result.Succeeded++
		result.Entries = append(result.Entries, cms.UpsertResult{DocumentID: docID, SourceID: id})
	}

	result.finish(w.now())
	return result, nil
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

func (w *Workflow) run(ctx context.Context, t cms.EntityType, step string, ids []string, mode FailureMode, fn itemFunc) (*SyncResult, error) {
	result := &SyncResult{EntityType: t, Operation: "upsert", Total: len(ids), Entries: []cms.UpsertResult{}}
	var created []written

	for i, id := range ids {
		ws, err := fn(ctx, i)
		for _, wr := range ws {
			if wr.result.Created {
				created = append(created, wr)
			}
		}
		if err == nil && len(ws) > 0 {
			err = w.writeBack(ctx, ws)
		}

		if err != nil {
			result.Failed++
			result.FailedItems = append(result.FailedItems, SyncFailure{ItemID: id, ErrorMessage: err.Error()})
			w.logger.Error("CMS upsert failed",
				zap.String("step", step),
				zap.String("source_id", id),
				zap.String("mode", mode.String()),
				zap.Error(err),
			)
			if mode == FailFast {
				w.compensate(ctx, step, created)
				result.finish(w.now())
				return result, &PermanentFailureError{Step: step, ItemID: id, Cause: err, Result: result}
			}
			continue
		}

		if len(ws) == 0 {
			result.Skipped++
			continue
		}
		result.Succeeded++
		result.Entries = append(result.Entries, ws[0].result)
	}

	result.finish(w.now())
	w.logger.Info("CMS upsert step finished",
		zap.String("step", step),
		zap.String("status", string(result.Status)),
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// writeBack records the CMS document id on each written commerce entity
func (w *Workflow) writeBack(ctx context.Context, ws []written) error {
	if w.metadata == nil {
		return nil
	}
	at := w.now()
	for _, wr := range ws {
		kind, err := kindOf(wr.entity)
		if err != nil {
			return err
		}
		patch := commerce.SyncPatch(wr.result.DocumentID, at)
		if err := w.metadata.MergeMetadata(ctx, kind, wr.result.SourceID, patch); err != nil {
			return fmt.Errorf("write sync metadata for %s %s: %w", wr.entity, wr.result.SourceID, err)
		}
	}
	return nil
}

// compensate deletes the documents created by the failed batch, newest first.
// Only those exact documents are removed: a new product entry is deleted
// without cascading to variant entries that existed before the batch.
// It runs detached from ctx cancellation.
func (w *Workflow) compensate(ctx context.Context, step string, created []written) {
	if len(created) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for i := len(created) - 1; i >= 0; i-- {
		wr := created[i]
		if err := w.reconciler.DeleteDocument(ctx, wr.entity, wr.result.DocumentID); err != nil {
			w.logger.Error("Compensation delete failed",
				zap.String("step", step),
				zap.String("entity", wr.entity.String()),
				zap.String("source_id", wr.result.SourceID),
				zap.String("document_id", wr.result.DocumentID),
				zap.Error(err),
			)
			continue
		}
		w.logger.Info("Compensated created CMS entry",
			zap.String("step", step),
			zap.String("entity", wr.entity.String()),
			zap.String("source_id", wr.result.SourceID),
		)
	}
}

func kindOf(t cms.EntityType) (commerce.Kind, error) {
	switch t {
	case cms.EntityProduct:
		return commerce.KindProduct, nil
	case cms.EntityVariant:
		return commerce.KindVariant, nil
	case cms.EntityCollection:
		return commerce.KindCollection, nil
	case cms.EntityCategory:
		return commerce.KindCategory, nil
	}
	return "", errors.New("cmssync: unknown entity type " + string(t))
}
