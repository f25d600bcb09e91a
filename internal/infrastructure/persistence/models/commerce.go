package models

import (
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/commerce"
)

// ProductTypeModel maps product_types
type ProductTypeModel struct {
	BaseModel
	Value string `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (ProductTypeModel) TableName() string {
	return "product_types"
}

// ProductModel maps products
type ProductModel struct {
	BaseModel
	Title    string                `gorm:"type:varchar(255);not null"`
	Handle   string                `gorm:"type:varchar(255);index"`
	Status   string                `gorm:"type:varchar(20);not null;default:'draft'"`
	TypeID   *string               `gorm:"type:varchar(64);index"`
	Type     *ProductTypeModel     `gorm:"foreignKey:TypeID"`
	Variants []ProductVariantModel `gorm:"foreignKey:ProductID"`
	Metadata JSONMap
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a commerce Product
func (m *ProductModel) ToDomain() *commerce.Product {
	p := &commerce.Product{
		ID:       m.ID,
		Title:    m.Title,
		Handle:   m.Handle,
		Status:   m.Status,
		Metadata: commerce.Metadata(m.Metadata),
		Variants: make([]commerce.Variant, 0, len(m.Variants)),
	}
	if m.Type != nil {
		p.Type = &commerce.ProductType{ID: m.Type.ID, Value: m.Type.Value}
	}
	for i := range m.Variants {
		p.Variants = append(p.Variants, *m.Variants[i].ToDomain())
	}
	return p
}

// ProductVariantModel maps product_variants
type ProductVariantModel struct {
	BaseModel
	Title     string  `gorm:"type:varchar(255);not null"`
	SKU       *string `gorm:"column:sku;type:varchar(255)"`
	ProductID string  `gorm:"type:varchar(64);not null;index"`
	Metadata  JSONMap
}

// TableName returns the table name for GORM
func (ProductVariantModel) TableName() string {
	return "product_variants"
}

// ToDomain converts the persistence model to a commerce Variant.
// A NULL sku becomes "".
func (m *ProductVariantModel) ToDomain() *commerce.Variant {
	v := &commerce.Variant{
		ID:        m.ID,
		Title:     m.Title,
		ProductID: m.ProductID,
		Metadata:  commerce.Metadata(m.Metadata),
	}
	if m.SKU != nil {
		v.SKU = *m.SKU
	}
	return v
}

// ProductCollectionModel maps product_collections
type ProductCollectionModel struct {
	BaseModel
	Title    string `gorm:"type:varchar(255);not null"`
	Handle   string `gorm:"type:varchar(255);index"`
	Metadata JSONMap
}

// TableName returns the table name for GORM
func (ProductCollectionModel) TableName() string {
	return "product_collections"
}

// ToDomain converts the persistence model to a commerce Collection
func (m *ProductCollectionModel) ToDomain() *commerce.Collection {
	return &commerce.Collection{
		ID:       m.ID,
		Title:    m.Title,
		Handle:   m.Handle,
		Metadata: commerce.Metadata(m.Metadata),
	}
}

// ProductCategoryModel maps product_categories
type ProductCategoryModel struct {
	BaseModel
	Name             string  `gorm:"type:varchar(255);not null"`
	Handle           string  `gorm:"type:varchar(255);index"`
	ParentCategoryID *string `gorm:"type:varchar(64);index"`
	Metadata         JSONMap
}

// TableName returns the table name for GORM
func (ProductCategoryModel) TableName() string {
	return "product_categories"
}

// ToDomain converts the persistence model to a commerce Category
func (m *ProductCategoryModel) ToDomain() *commerce.Category {
	return &commerce.Category{
		ID:               m.ID,
		Name:             m.Name,
		Handle:           m.Handle,
		ParentCategoryID: m.ParentCategoryID,
		Metadata:         commerce.Metadata(m.Metadata),
	}
}

// AllModels lists the models for test schema setup
func AllModels() []any {
	return []any{
		&ProductTypeModel{},
		&ProductModel{},
		&ProductVariantModel{},
		&ProductCollectionModel{},
		&ProductCategoryModel{},
	}
}
