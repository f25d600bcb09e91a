// Package storefront serves commerce entities merged with their CMS content.
package storefront

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/application/cmssync"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/cms"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/commerce"
)

// CMSKey is the response field holding the linked CMS entry
const CMSKey = "cms"

// ReadContext describes one storefront read
type ReadContext struct {
	// Locale of the CMS entry; the configured default when empty
	Locale string
	// Fields of the commerce entity to return; all when empty. "id" is always returned.
	Fields []string
	// Populate is passed through to the CMS relation expansion
	Populate any
}

// ContentReader is the read side of the reconciliation service
type ContentReader interface {
	List(ctx context.Context, filter cmssync.ListFilter) ([]cms.Entry, error)
	Singleton(ctx context.Context, name, locale string, populate any) (cms.Entry, error)
}

// Service loads a commerce entity and attaches its CMS entry under "cms".
// A missing CMS entry yields "cms": null; a failing CMS call fails the whole read.
type Service struct {
	catalog commerce.CatalogReader
	content ContentReader
	logger  *zap.Logger
}

// NewService creates the storefront service
func NewService(catalog commerce.CatalogReader, content ContentReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: catalog, content: content, logger: logger}
}

// Product returns the product with its CMS entry
func (s *Service) Product(ctx context.Context, id string, rc ReadContext) (map[string]any, error) {
	p, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.merge(ctx, cms.EntityProduct, id, productView(p), rc)
}

// Collection returns the collection with its CMS entry
func (s *Service) Collection(ctx context.Context, id string, rc ReadContext) (map[string]any, error) {
	c, err := s.catalog.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.merge(ctx, cms.EntityCollection, id, collectionView(c), rc)
}

// Category returns the category with its CMS entry
func (s *Service) Category(ctx context.Context, id string, rc ReadContext) (map[string]any, error) {
	c, err := s.catalog.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.merge(ctx, cms.EntityCategory, id, categoryView(c), rc)
}

// Singleton returns a single-type document such as the header or footer
func (s *Service) Singleton(ctx context.Context, name, locale string, populate any) (cms.Entry, error) {
	entry, err := s.content.Singleton(ctx, name, locale, populate)
	if err != nil {
		return nil, fmt.Errorf("storefront: read %s: %w", name, err)
	}
	return entry, nil
}

func (s *Service) merge(ctx context.Context, t cms.EntityType, id string, view map[string]any, rc ReadContext) (map[string]any, error) {
	entries, err := s.content.List(ctx, cmssync.ListFilter{
		EntityType: t,
		IDs:        []string{id},
		Locale:     rc.Locale,
		Populate:   rc.Populate,
	})
	if err != nil {
		s.logger.Warn("CMS lookup failed for storefront read",
			zap.String("entity_type", t.String()),
			zap.String("source_id", id),
			zap.Error(err),
		)
		return nil, fmt.Errorf("storefront: load %s %s from cms: %w", t, id, err)
	}

	out := project(view, rc.Fields)
	if len(entries) > 0 {
		out[CMSKey] = map[string]any(entries[0])
	} else {
		out[CMSKey] = nil
	}
	return out, nil
}

// project keeps the requested top-level fields. Medusa-style "*relation" and
// "+field" prefixes and "relation.field" paths select the top-level key.
func project(view map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return view
	}
	out := map[string]any{"id": view["id"]}
	for _, f := range fields {
		f = strings.TrimLeft(strings.TrimSpace(f), "*+")
		if i := strings.IndexByte(f, '.'); i >= 0 {
			f = f[:i]
		}
		if f == "" || f == CMSKey {
			continue
		}
		if v, ok := view[f]; ok {
			out[f] = v
		}
	}
	return out
}

func metadataView(m commerce.Metadata) map[string]any {
	if m == nil {
		return nil
	}
	return map[string]any(m)
}

func productView(p *commerce.Product) map[string]any {
	variants := make([]map[string]any, 0, len(p.Variants))
	for i := range p.Variants {
		variants = append(variants, variantView(&p.Variants[i]))
	}
	var productType map[string]any
	if p.Type != nil {
		productType = map[string]any{"id": p.Type.ID, "value": p.Type.Value}
	}
	return map[string]any{
		"id":       p.ID,
		"title":    p.Title,
		"handle":   p.Handle,
		"status":   p.Status,
		"type":     productType,
		"variants": variants,
		"metadata": metadataView(p.Metadata),
	}
}

func variantView(v *commerce.Variant) map[string]any {
	return map[string]any{
		"id":         v.ID,
		"title":      v.Title,
		"sku":        v.SKU,
		"product_id": v.ProductID,
		"metadata":   metadataView(v.Metadata),
	}
}

func collectionView(c *commerce.Collection) map[string]any {
	return map[string]any{
		"id":       c.ID,
		"title":    c.Title,
		"handle":   c.Handle,
		"metadata": metadataView(c.Metadata),
	}
}

func categoryView(c *commerce.Category) map[string]any {
	return map[string]any{
		"id":                 c.ID,
		"name":               c.Name,
		"handle":             c.Handle,
		"parent_category_id": c.ParentCategoryID,
		"metadata":           metadataView(c.Metadata),
	}
}
