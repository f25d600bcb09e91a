package commerce

import (
	"strconv"
	"time"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// ErrNotFound is returned when a source entity does not exist (or is soft deleted)
	ErrNotFound = shared.NewDomainError(shared.CodeNotFound, "commerce: entity not found")
	// ErrInvalidEntityID is returned for empty entity ids
	ErrInvalidEntityID = shared.NewDomainError(shared.CodeInvalidInput, "commerce: invalid entity id")
)

// ---------------------------------------------------------------------------
// Metadata
// ---------------------------------------------------------------------------

// Metadata keys written back after a successful CMS write
const (
	MetadataCMSID       = "cms_id"
	MetadataCMSSyncedAt = "cms_synced_at"
)

// Metadata is the free-form metadata bag carried by every commerce entity
type Metadata map[string]any

// CMSID returns the CMS document id recorded on the entity, or "" if never synced
func (m Metadata) CMSID() string {
	if m == nil {
		return ""
	}
	s, _ := m[MetadataCMSID].(string)
	return s
}

// SyncedAt returns the time of the last successful CMS write.
// The zero time is returned when the entity was never synced.
func (m Metadata) SyncedAt() time.Time {
	if m == nil {
		return time.Time{}
	}
	var ms int64
	switch v := m[MetadataCMSSyncedAt].(type) {
	case int64:
		ms = v
	case int:
		ms = int64(v)
	case float64:
		ms = int64(v)
	case string:
		ms, _ = strconv.ParseInt(v, 10, 64)
	}
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// SyncPatch returns just the keys written back after a CMS write
func SyncPatch(documentID string, at time.Time) Metadata {
	return Metadata{
		MetadataCMSID:       documentID,
		MetadataCMSSyncedAt: at.UnixMilli(),
	}
}

// ---------------------------------------------------------------------------
// Entities
// ---------------------------------------------------------------------------

// ProductType is the optional classification of a product
type ProductType struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Product is a sellable item in the commerce backend
type Product struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Handle   string       `json:"handle"`
	Status   string       `json:"status"`
	Type     *ProductType `json:"type,omitempty"`
	Variants []Variant    `json:"variants"`
	Metadata Metadata     `json:"metadata"`
}

// TypeValue returns the product type value, or "" when the product has no type
func (p *Product) TypeValue() string {
	if p.Type == nil {
		return ""
	}
	return p.Type.Value
}

// Variant is a purchasable configuration of a product
type Variant struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	SKU       string   `json:"sku"`
	ProductID string   `json:"product_id"`
	Metadata  Metadata `json:"metadata"`
}

// Collection is a curated grouping of products
type Collection struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Handle   string   `json:"handle"`
	Metadata Metadata `json:"metadata"`
}

// Category is a node in the product category tree
type Category struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Handle           string   `json:"handle"`
	ParentCategoryID *string  `json:"parent_category_id"`
	Metadata         Metadata `json:"metadata"`
}
