package cmssync

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/cms"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/commerce"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/shared"
)

// SyncHandler adapts one sync action to shared.EventHandler
type SyncHandler struct {
	name   string
	types  []string
	handle func(ctx context.Context, event shared.DomainEvent) error
}

var _ shared.EventHandler = (*SyncHandler)(nil)

// Name identifies the handler in logs and idempotency keys
func (h *SyncHandler) Name() string { return h.name }

// EventTypes returns the events this handler subscribes to
func (h *SyncHandler) EventTypes() []string { return h.types }

// Handle runs the sync action
func (h *SyncHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	return h.handle(ctx, event)
}

// Handlers builds the event handlers that drive the sync
type Handlers struct {
	catalog  commerce.CatalogReader
	workflow *Workflow
	resyncer *Resyncer
	logger   *zap.Logger
}

// NewHandlers creates the handler set
func NewHandlers(catalog commerce.CatalogReader, workflow *Workflow, resyncer *Resyncer, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		catalog:  catalog,
		workflow: workflow,
		resyncer: resyncer,
		logger:   logger,
	}
}

// All returns every sync handler
func (h *Handlers) All() []*SyncHandler {
	return []*SyncHandler{
		h.upsert("product-upsert", []string{commerce.EventProductCreated, commerce.EventProductUpdated}, h.upsertProduct),
		h.deleteFor("product-delete", commerce.EventProductDeleted, cms.EntityProduct),
		h.upsert("variant-upsert", []string{commerce.EventVariantCreated, commerce.EventVariantUpdated}, h.upsertVariant),
		h.deleteFor("variant-delete", commerce.EventVariantDeleted, cms.EntityVariant),
		h.upsert("collection-upsert", []string{commerce.EventCollectionCreated, commerce.EventCollectionUpdated}, h.upsertCollection),
		h.deleteFor("collection-delete", commerce.EventCollectionDeleted, cms.EntityCollection),
		h.upsert("category-upsert", []string{commerce.EventCategoryCreated, commerce.EventCategoryUpdated}, h.upsertCategory),
		h.deleteFor("category-delete", commerce.EventCategoryDeleted, cms.EntityCategory),
		h.resync("products-resync", []string{commerce.EventResyncProducts, commerce.EventResyncAll}, h.resyncer.ResyncProducts),
		h.resync("collections-resync", []string{commerce.EventResyncCollections}, h.resyncer.ResyncCollections),
		h.resync("categories-resync", []string{commerce.EventResyncCategories}, h.resyncer.ResyncCategories),
	}
}

// upsert wraps a per-entity upsert. A source entity that no longer exists is skipped.
func (h *Handlers) upsert(name string, types []string, fn func(ctx context.Context, id string) error) *SyncHandler {
	return &SyncHandler{
		name:  name,
		types: types,
		handle: func(ctx context.Context, event shared.DomainEvent) error {
			id := event.EntityID()
			if id == "" {
				h.logger.Warn("Ignoring event without entity id",
					zap.String("handler", name),
					zap.String("event_type", event.EventType()),
				)
				return nil
			}
			err := fn(ctx, id)
			if errors.Is(err, commerce.ErrNotFound) {
				h.logger.Info("Source entity no longer exists, skipping",
					zap.String("handler", name),
					zap.String("entity_id", id),
				)
				return nil
			}
			return err
		},
	}
}

func (h *Handlers) deleteFor(name, eventType string, t cms.EntityType) *SyncHandler {
	return &SyncHandler{
		name:  name,
		types: []string{eventType},
		handle: func(ctx context.Context, event shared.DomainEvent) error {
			id := event.EntityID()
			if id == "" {
				return nil
			}
			_, err := h.workflow.Delete(ctx, t, []string{id}, FailFast)
			return err
		},
	}
}

func (h *Handlers) resync(name string, types []string, fn func(ctx context.Context) (*ResyncReport, error)) *SyncHandler {
	return &SyncHandler{
		name:  name,
		types: types,
		handle: func(ctx context.Context, event shared.DomainEvent) error {
			h.logger.Info("Starting CMS resync",
				zap.String("handler", name),
				zap.String("event_type", event.EventType()),
			)
			_, err := fn(ctx)
			return err
		},
	}
}

func (h *Handlers) upsertProduct(ctx context.Context, id string) error {
	p, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	_, err = h.workflow.UpsertProducts(ctx, []commerce.Product{*p}, FailFast)
	return err
}

func (h *Handlers) upsertVariant(ctx context.Context, id string) error {
	v, err := h.catalog.GetVariant(ctx, id)
	if err != nil {
		return err
	}
	_, err = h.workflow.UpsertVariants(ctx, []commerce.Variant{*v}, FailFast)
	return err
}

func (h *Handlers) upsertCollection(ctx context.Context, id string) error {
	c, err := h.catalog.GetCollection(ctx, id)
	if err != nil {
		return err
	}
	_, err = h.workflow.UpsertCollections(ctx, []commerce.Collection{*c}, FailFast)
	return err
}

func (h *Handlers) upsertCategory(ctx context.Context, id string) error {
	c, err := h.catalog.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	_, err = h.workflow.UpsertCategories(ctx, []commerce.Category{*c}, FailFast)
	return err
}
