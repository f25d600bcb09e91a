package cmssync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/cms"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/commerce"
)

// ResyncPageSize is the number of entities read and upserted per batch
const ResyncPageSize = 100

// BatchUpserter is the subset of Workflow used by the resyncer
type BatchUpserter interface {
	UpsertProducts(ctx context.Context, products []commerce.Product, mode FailureMode) (*SyncResult, error)
	UpsertCollections(ctx context.Context, collections []commerce.Collection, mode FailureMode) (*SyncResult, error)
	UpsertCategories(ctx context.Context, categories []commerce.Category, mode FailureMode) (*SyncResult, error)
}

var _ BatchUpserter = (*Workflow)(nil)

// ResyncReport summarises a full resync of one entity type
type ResyncReport struct {
	EntityType cms.EntityType `json:"entity_type"`
	Pages      int            `json:"pages"`
	Total      int            `json:"total"`
	Succeeded  int            `json:"succeeded"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
}

func (r *ResyncReport) add(res *SyncResult) {
	r.Pages++
	if res == nil {
		return
	}
	r.Total += res.Total
	r.Succeeded += res.Succeeded
	r.Skipped += res.Skipped
	r.Failed += res.Failed
}

// Resyncer pages through the commerce catalog and upserts every entity.
// Item failures are reported and do not stop the resync.
type Resyncer struct {
	catalog  commerce.CatalogReader
	batches  BatchUpserter
	logger   *zap.Logger
	pageSize int
}

// NewResyncer creates a resyncer
func NewResyncer(catalog commerce.CatalogReader, batches BatchUpserter, logger *zap.Logger) *Resyncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resyncer{
		catalog:  catalog,
		batches:  batches,
		logger:   logger,
		pageSize: ResyncPageSize,
	}
}

// ResyncProducts upserts all products with their variants
func (r *Resyncer) ResyncProducts(ctx context.Context) (*ResyncReport, error) {
	return r.resync(ctx, cms.EntityProduct, func(ctx context.Context, page commerce.Page) (int, *SyncResult, error) {
		items, err := r.catalog.ListProducts(ctx, page)
		if err != nil || len(items) == 0 {
			return 0, nil, err
		}
		res, err := r.batches.UpsertProducts(ctx, items, ContinueOnError)
		return len(items), res, err
	})
}

// ResyncCollections upserts all collections
func (r *Resyncer) ResyncCollections(ctx context.Context) (*ResyncReport, error) {
	return r.resync(ctx, cms.EntityCollection, func(ctx context.Context, page commerce.Page) (int, *SyncResult, error) {
		items, err := r.catalog.ListCollections(ctx, page)
		if err != nil || len(items) == 0 {
			return 0, nil, err
		}
		res, err := r.batches.UpsertCollections(ctx, items, ContinueOnError)
		return len(items), res, err
	})
}

// ResyncCategories upserts all categories
func (r *Resyncer) ResyncCategories(ctx context.Context) (*ResyncReport, error) {
	return r.resync(ctx, cms.EntityCategory, func(ctx context.Context, page commerce.Page) (int, *SyncResult, error) {
		items, err := r.catalog.ListCategories(ctx, page)
		if err != nil || len(items) == 0 {
			return 0, nil, err
		}
		res, err := r.batches.UpsertCategories(ctx, items, ContinueOnError)
		return len(items), res, err
	})
}

type pageFunc func(ctx context.Context, page commerce.Page) (int, *SyncResult, error)

func (r *Resyncer) resync(ctx context.Context, t cms.EntityType, fn pageFunc) (*ResyncReport, error) {
	report := &ResyncReport{EntityType: t}
	skip := 0

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		n, res, err := fn(ctx, commerce.Page{Skip: skip, Take: r.pageSize})
		if err != nil {
			return report, fmt.Errorf("resync %s page at offset %d: %w", t, skip, err)
		}
		if n == 0 {
			break
		}
		report.add(res)
		r.logger.Debug("Resynced page",
			zap.String("entity", t.String()),
			zap.Int("skip", skip),
			zap.Int("count", n),
		)

		if n < r.pageSize {
			break
		}
		skip += r.pageSize
	}

	r.logger.Info("Resync finished",
		zap.String("entity", t.String()),
		zap.Int("pages", report.Pages),
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}
