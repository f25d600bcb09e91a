package cmssync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/cms"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/commerce"
)

// Options configures the reconciliation service
type Options struct {
	// SystemIDKey is the CMS field holding the commerce id
	SystemIDKey string
	// DefaultLocale is used by reads that do not specify one
	DefaultLocale string
}

// ProductUpsertResult is the outcome of a product upsert, including its variants.
// Variants lists the variants written before any failure.
type ProductUpsertResult struct {
	cms.UpsertResult
	Variants []cms.UpsertResult `json:"variants"`
}

// ListFilter selects CMS entries for a set of commerce ids
type ListFilter struct {
	EntityType cms.EntityType
	IDs        []string
	Locale     string
	Fields     []string
	Populate   any
}

// ReconciliationService mirrors commerce entities into the CMS.
// All writes for one entity are serialised through the KeyLocker.
type ReconciliationService struct {
	client  cms.ContentClient
	locker  KeyLocker
	opts    Options
	logger  *zap.Logger
	metrics MetricsRecorder
}

// ServiceOption configures a ReconciliationService
type ServiceOption func(*ReconciliationService)

// WithMetrics sets the metrics recorder
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *ReconciliationService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewReconciliationService creates the service
func NewReconciliationService(client cms.ContentClient, locker KeyLocker, opts Options, logger *zap.Logger, options ...ServiceOption) *ReconciliationService {
	if opts.SystemIDKey == "" {
		opts.SystemIDKey = "systemId"
	}
	if opts.DefaultLocale == "" {
		opts.DefaultLocale = "en"
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReconciliationService{
		client:  client,
		locker:  locker,
		opts:    opts,
		logger:  logger,
		metrics: noopRecorder{},
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// DefaultLocale returns the locale used when a read does not specify one
func (s *ReconciliationService) DefaultLocale() string {
	return s.opts.DefaultLocale
}

// ---------------------------------------------------------------------------
// Upserts
// ---------------------------------------------------------------------------

// UpsertProduct writes the product, then each of its variants in order with the
// product's documentId as the parent relation.
// On a variant failure the partial result is returned alongside the error.
func (s *ReconciliationService) UpsertProduct(ctx context.Context, p *commerce.Product) (*ProductUpsertResult, error) {
	if p == nil || p.ID == "" {
		return nil, commerce.ErrInvalidEntityID
	}

	fields := map[string]any{
		"title":       p.Title,
		"handle":      p.Handle,
		"productType": p.TypeValue(),
	}
	res, err := s.upsert(ctx, cms.EntityProduct, p.ID, staticData(fields), fields)
	if err != nil {
		return nil, err
	}

	out := &ProductUpsertResult{UpsertResult: *res}
	for i := range p.Variants {
		v := &p.Variants[i]
		vfields := variantFields(v)
		vfields["product"] = res.DocumentID
		vres, err := s.upsert(ctx, cms.EntityVariant, v.ID, staticData(vfields), vfields)
		if err != nil {
			return out, fmt.Errorf("upsert variant %s of product %s: %w", v.ID, p.ID, err)
		}
		out.Variants = append(out.Variants, *vres)
	}
	return out, nil
}

// UpsertVariant writes a single variant. A new variant entry is linked to its
// parent product entry; when that parent is not in the CMS yet the upsert is
// skipped and (nil, nil) is returned.
func (s *ReconciliationService) UpsertVariant(ctx context.Context, v *commerce.Variant) (*cms.UpsertResult, error) {
	if v == nil || v.ID == "" {
		return nil, commerce.ErrInvalidEntityID
	}

	fields := variantFields(v)
	createData := func(ctx context.Context) (map[string]any, error) {
		parent, err := s.find(ctx, cms.EntityProduct, v.ProductID, []string{"documentId"}, nil)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("product %s for variant %s: %w", v.ProductID, v.ID, cms.ErrNotFoundLocal)
		}
		data := variantFields(v)
		data["product"] = parent.DocumentID()
		return data, nil
	}

	res, err := s.upsert(ctx, cms.EntityVariant, v.ID, createData, fields)
	if errors.Is(err, cms.ErrNotFoundLocal) {
		s.logger.Warn("Skipping variant upsert, parent product not in CMS",
			zap.String("variant_id", v.ID),
			zap.String("product_id", v.ProductID),
		)
		return nil, nil
	}
	return res, err
}

// UpsertCollection writes a collection
func (s *ReconciliationService) UpsertCollection(ctx context.Context, c *commerce.Collection) (*cms.UpsertResult, error) {
	if c == nil || c.ID == "" {
		return nil, commerce.ErrInvalidEntityID
	}
	fields := map[string]any{
		"title":  c.Title,
		"handle": c.Handle,
	}
	return s.upsert(ctx, cms.EntityCollection, c.ID, staticData(fields), fields)
}

// UpsertCategory writes a category. The category name is stored as the entry title.
func (s *ReconciliationService) UpsertCategory(ctx context.Context, c *commerce.Category) (*cms.UpsertResult, error) {
	if c == nil || c.ID == "" {
		return nil, commerce.ErrInvalidEntityID
	}
	fields := map[string]any{
		"title":  c.Name,
		"handle": c.Handle,
	}
	return s.upsert(ctx, cms.EntityCategory, c.ID, staticData(fields), fields)
}

func variantFields(v *commerce.Variant) map[string]any {
	return map[string]any{
		"title": v.Title,
		"sku":   v.SKU,
	}
}

func staticData(fields map[string]any) func(context.Context) (map[string]any, error) {
	return func(context.Context) (map[string]any, error) {
		data := make(map[string]any, len(fields)+1)
		for k, v := range fields {
			data[k] = v
		}
		return data, nil
	}
}

// upsert finds the entry by system id and either updates it with updateData or
// creates it from createData plus the system id.
func (s *ReconciliationService) upsert(
	ctx context.Context,
	t cms.EntityType,
	sourceID string,
	createData func(context.Context) (map[string]any, error),
	updateData map[string]any,
) (res *cms.UpsertResult, err error) {
	start := time.Now()
	outcome := OutcomeError
	defer func() {
		if errors.Is(err, cms.ErrNotFoundLocal) {
			outcome = OutcomeSkipped
		}
		s.metrics.RecordOperation(ctx, t, "upsert", outcome, time.Since(start))
	}()

	unlock, err := s.locker.Lock(ctx, LockKey(t, sourceID))
	if err != nil {
		return nil, fmt.Errorf("lock %s %s: %w", t, sourceID, err)
	}
	defer unlock()

	existing, err := s.find(ctx, t, sourceID, []string{"documentId"}, nil)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		docID := existing.DocumentID()
		if _, err := s.client.Update(ctx, t.Collection(), docID, updateData, cms.WriteOptions{}); err != nil {
			return nil, err
		}
		outcome = OutcomeUpdated
		s.logger.Debug("Updated CMS entry",
			zap.String("entity", t.String()),
			zap.String("source_id", sourceID),
			zap.String("document_id", docID),
		)
		return &cms.UpsertResult{DocumentID: docID, SourceID: sourceID}, nil
	}

	data, err := createData(ctx)
	if err != nil {
		return nil, err
	}
	data[s.opts.SystemIDKey] = sourceID

	created, err := s.client.Create(ctx, t.Collection(), data, cms.WriteOptions{Status: cms.StatusDraft})
	if err != nil {
		return nil, err
	}
	docID := created.DocumentID()
	if docID == "" {
		return nil, &cms.RequestError{
			Collection: t.Collection(),
			Operation:  "create",
			HTTPStatus: http.StatusOK,
			Message:    "response did not include a documentId",
		}
	}
	outcome = OutcomeCreated
	s.logger.Debug("Created CMS entry",
		zap.String("entity", t.String()),
		zap.String("source_id", sourceID),
		zap.String("document_id", docID),
	)
	return &cms.UpsertResult{DocumentID: docID, SourceID: sourceID, Created: true}, nil
}

// find returns the draft entry for a commerce id, or nil when there is none
func (s *ReconciliationService) find(ctx context.Context, t cms.EntityType, sourceID string, fields []string, populate any) (cms.Entry, error) {
	entries, err := s.client.Find(ctx, t.Collection(), cms.FindOptions{
		Filters:  cms.Eq(s.opts.SystemIDKey, sourceID),
		Fields:   fields,
		Populate: populate,
		Status:   cms.StatusDraft,
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

// ---------------------------------------------------------------------------
// Deletes
// ---------------------------------------------------------------------------

// Delete removes the entry mirrored from a commerce entity.
// It returns the deleted documentId, or "" when there was nothing to delete.
func (s *ReconciliationService) Delete(ctx context.Context, t cms.EntityType, sourceID string) (string, error) {
	switch t {
	case cms.EntityProduct:
		return s.DeleteProduct(ctx, sourceID)
	case cms.EntityVariant:
		return s.DeleteVariant(ctx, sourceID)
	case cms.EntityCollection:
		return s.DeleteCollection(ctx, sourceID)
	case cms.EntityCategory:
		return s.DeleteCategory(ctx, sourceID)
	}
	return "", fmt.Errorf("cmssync: cannot delete unknown entity type %q", t)
}

// DeleteProduct deletes the product's variant entries concurrently, then the product entry.
// The product entry is kept if any variant delete fails.
func (s *ReconciliationService) DeleteProduct(ctx context.Context, id string) (string, error) {
	return s.delete(ctx, cms.EntityProduct, id, func(ctx context.Context, entry cms.Entry) error {
		variants := entry.Relation("variants")
		if len(variants) == 0 {
			return nil
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, v := range variants {
			docID := v.DocumentID()
			if docID == "" {
				continue
			}
			g.Go(func() error {
				return s.deleteDocument(gctx, cms.EntityVariant, docID)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("delete variants of product %s: %w", id, err)
		}
		return nil
	})
}

// DeleteVariant deletes a variant entry
func (s *ReconciliationService) DeleteVariant(ctx context.Context, id string) (string, error) {
	return s.delete(ctx, cms.EntityVariant, id, nil)
}

// DeleteCollection deletes a collection entry
func (s *ReconciliationService) DeleteCollection(ctx context.Context, id string) (string, error) {
	return s.delete(ctx, cms.EntityCollection, id, nil)
}

// DeleteCategory deletes a category entry
func (s *ReconciliationService) DeleteCategory(ctx context.Context, id string) (string, error) {
	return s.delete(ctx, cms.EntityCategory, id, nil)
}

func (s *ReconciliationService) delete(
	ctx context.Context,
	t cms.EntityType,
	sourceID string,
	before func(context.Context, cms.Entry) error,
) (docID string, err error) {
	if sourceID == "" {
		return "", commerce.ErrInvalidEntityID
	}

	start := time.Now()
	outcome := OutcomeError
	defer func() {
		s.metrics.RecordOperation(ctx, t, "delete", outcome, time.Since(start))
	}()

	unlock, err := s.locker.Lock(ctx, LockKey(t, sourceID))
	if err != nil {
		return "", fmt.Errorf("lock %s %s: %w", t, sourceID, err)
	}
	defer unlock()

	var (
		fields   = []string{"documentId"}
		populate any
	)
	if t == cms.EntityProduct {
		fields = nil
		populate = "variants"
	}

	entry, err := s.find(ctx, t, sourceID, fields, populate)
	if err != nil {
		return "", err
	}
	if entry == nil {
		outcome = OutcomeSkipped
		s.logger.Info("CMS entry already absent",
			zap.String("entity", t.String()),
			zap.String("source_id", sourceID),
		)
		return "", nil
	}

	if before != nil {
		if err := before(ctx, entry); err != nil {
			return "", err
		}
	}

	docID = entry.DocumentID()
	if err := s.deleteDocument(ctx, t, docID); err != nil {
		return "", err
	}
	outcome = OutcomeDeleted
	return docID, nil
}

// DeleteDocument removes one CMS document by id without looking up or
// cascading to related entries. A missing document is not an error.
func (s *ReconciliationService) DeleteDocument(ctx context.Context, t cms.EntityType, documentID string) error {
	if !t.IsValid() {
		return fmt.Errorf("cmssync: cannot delete unknown entity type %q", t)
	}
	if documentID == "" {
		return commerce.ErrInvalidEntityID
	}
	start := time.Now()
	err := s.deleteDocument(ctx, t, documentID)
	outcome := OutcomeDeleted
	if err != nil {
		outcome = OutcomeError
	}
	s.metrics.RecordOperation(ctx, t, "delete", outcome, time.Since(start))
	return err
}

// deleteDocument treats a 404 as already deleted
func (s *ReconciliationService) deleteDocument(ctx context.Context, t cms.EntityType, docID string) error {
	err := s.client.Delete(ctx, t.Collection(), docID)
	var reqErr *cms.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatus == http.StatusNotFound {
		return nil
	}
	return err
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// List returns the CMS entries for the given commerce ids. The CMS system id
// field is renamed to the entity's source key (productId, categoryId, ...).
func (s *ReconciliationService) List(ctx context.Context, filter ListFilter) ([]cms.Entry, error) {
	if !filter.EntityType.IsValid() {
		return nil, fmt.Errorf("cmssync: cannot list unknown entity type %q", filter.EntityType)
	}
	if len(filter.IDs) == 0 {
		return []cms.Entry{}, nil
	}

	locale := filter.Locale
	if locale == "" {
		locale = s.opts.DefaultLocale
	}

	entries, err := s.client.Find(ctx, filter.EntityType.Collection(), cms.FindOptions{
		Filters:  cms.In(s.opts.SystemIDKey, filter.IDs...),
		Fields:   filter.Fields,
		Populate: filter.Populate,
		Locale:   locale,
	})
	if err != nil {
		return nil, err
	}

	key := s.opts.SystemIDKey
	sourceKey := filter.EntityType.SourceKey()
	out := make([]cms.Entry, 0, len(entries))
	for _, e := range entries {
		renamed := make(cms.Entry, len(e))
		for k, v := range e {
			if k == key {
				renamed[sourceKey] = v
				continue
			}
			renamed[k] = v
		}
		out = append(out, renamed)
	}
	return out, nil
}

// Singleton reads a single-type document (header, footer)
func (s *ReconciliationService) Singleton(ctx context.Context, name, locale string, populate any) (cms.Entry, error) {
	if locale == "" {
		locale = s.opts.DefaultLocale
	}
	return s.client.GetSingleton(ctx, name, cms.FindOptions{Locale: locale, Populate: populate})
}
