package commerce

import "context"

// Kind identifies which entity table a metadata write targets
type Kind string

const (
	KindProduct    Kind = "product"
	KindVariant    Kind = "variant"
	KindCollection Kind = "collection"
	KindCategory   Kind = "category"
)

// Page is an offset page request
type Page struct {
	Skip int
	Take int
}

// CatalogReader is the read side of the commerce query layer.
// Get* return ErrNotFound when the entity is absent.
type CatalogReader interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetVariant(ctx context.Context, id string) (*Variant, error)
	GetCollection(ctx context.Context, id string) (*Collection, error)
	GetCategory(ctx context.Context, id string) (*Category, error)

	ListProducts(ctx context.Context, page Page) ([]Product, error)
	ListCollections(ctx context.Context, page Page) ([]Collection, error)
	ListCategories(ctx context.Context, page Page) ([]Category, error)
}

// MetadataWriter merges keys into an entity's metadata without touching other keys
type MetadataWriter interface {
	MergeMetadata(ctx context.Context, kind Kind, id string, patch Metadata) error
}
