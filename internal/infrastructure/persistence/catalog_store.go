package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/commerce"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogStore reads commerce entities and writes back CMS sync metadata.
// Soft-deleted rows are invisible to every method.
type CatalogStore struct {
	db *gorm.DB
}

// NewCatalogStore creates a new catalog store
func NewCatalogStore(db *gorm.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

var (
	_ commerce.CatalogReader  = (*CatalogStore)(nil)
	_ commerce.MetadataWriter = (*CatalogStore)(nil)
)

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

func (s *CatalogStore) products(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Preload("Type").
		Preload("Variants", orderByID)
}

// GetProduct loads a product with its type and variants
func (s *CatalogStore) GetProduct(ctx context.Context, id string) (*commerce.Product, error) {
	if id == "" {
		return nil, commerce.ErrInvalidEntityID
	}
	var m models.ProductModel
	if err := s.products(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return nil, notFound("product", id, err)
	}
	return m.ToDomain(), nil
}

// GetVariant loads a single variant
func (s *CatalogStore) GetVariant(ctx context.Context, id string) (*commerce.Variant, error) {
	if id == "" {
		return nil, commerce.ErrInvalidEntityID
	}
	var m models.ProductVariantModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return nil, notFound("variant", id, err)
	}
	return m.ToDomain(), nil
}

// GetCollection loads a single collection
func (s *CatalogStore) GetCollection(ctx context.Context, id string) (*commerce.Collection, error) {
	if id == "" {
		return nil, commerce.ErrInvalidEntityID
	}
	var m models.ProductCollectionModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return nil, notFound("collection", id, err)
	}
	return m.ToDomain(), nil
}

// GetCategory loads a single category
func (s *CatalogStore) GetCategory(ctx context.Context, id string) (*commerce.Category, error) {
	if id == "" {
		return nil, commerce.ErrInvalidEntityID
	}
	var m models.ProductCategoryModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return nil, notFound("category", id, err)
	}
	return m.ToDomain(), nil
}

// ListProducts returns one page of products ordered by id, with type and variants
func (s *CatalogStore) ListProducts(ctx context.Context, page commerce.Page) ([]commerce.Product, error) {
	var rows []models.ProductModel
	if err := paginate(s.products(ctx), page).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]commerce.Product, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// ListCollections returns one page of collections ordered by id
func (s *CatalogStore) ListCollections(ctx context.Context, page commerce.Page) ([]commerce.Collection, error) {
	var rows []models.ProductCollectionModel
	if err := paginate(s.db.WithContext(ctx), page).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	out := make([]commerce.Collection, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// ListCategories returns one page of categories ordered by id
func (s *CatalogStore) ListCategories(ctx context.Context, page commerce.Page) ([]commerce.Category, error) {
	var rows []models.ProductCategoryModel
	if err := paginate(s.db.WithContext(ctx), page).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]commerce.Category, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// MergeMetadata applies patch over the row's metadata inside a row-locked transaction.
// Keys not in patch are preserved.
func (s *CatalogStore) MergeMetadata(ctx context.Context, kind commerce.Kind, id string, patch commerce.Metadata) error {
	if id == "" {
		return commerce.ErrInvalidEntityID
	}
	model, err := modelFor(kind)
	if err != nil {
		return err
	}
	table := model.TableName()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row struct {
			Metadata models.JSONMap
		}
		err := tx.Table(table).
			Select("metadata").
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND deleted_at IS NULL", id).
			Take(&row).Error
		if err != nil {
			return notFound(string(kind), id, err)
		}

		merged := row.Metadata.Merge(patch)
		res := tx.Table(table).
			Where("id = ?", id).
			UpdateColumn("metadata", merged)
		if res.Error != nil {
			return fmt.Errorf("update %s metadata %s: %w", kind, id, res.Error)
		}
		return nil
	})
}

type tableNamer interface {
	TableName() string
}

func modelFor(kind commerce.Kind) (tableNamer, error) {
	switch kind {
	case commerce.KindProduct:
		return models.ProductModel{}, nil
	case commerce.KindVariant:
		return models.ProductVariantModel{}, nil
	case commerce.KindCollection:
		return models.ProductCollectionModel{}, nil
	case commerce.KindCategory:
		return models.ProductCategoryModel{}, nil
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
}

func paginate(db *gorm.DB, page commerce.Page) *gorm.DB {
	db = db.Order("id")
	if page.Take > 0 {
		db = db.Limit(page.Take)
	}
	if page.Skip > 0 {
		db = db.Offset(page.Skip)
	}
	return db
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, commerce.ErrNotFound)
	}
	return fmt.Errorf("load %s %s: %w", kind, id, err)
}
