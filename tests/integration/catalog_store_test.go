//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/commerce"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/persistence"
)

func seedCatalog(tdb *TestDB) {
	tdb.Exec(`INSERT INTO product_types (id, value) VALUES ('ptyp_1', 'apparel')`)
	tdb.Exec(`INSERT INTO products (id, title, handle, status, type_id, metadata)
		VALUES ('prod_1', 'Shirt', 'shirt', 'published', 'ptyp_1', '{"color":"red"}')`)
	tdb.Exec(`INSERT INTO product_variants (id, title, sku, product_id) VALUES
		('variant_1', 'S', 'SHIRT-S', 'prod_1'),
		('variant_2', 'M', NULL, 'prod_1')`)
	tdb.Exec(`INSERT INTO products (id, title, status, deleted_at)
		VALUES ('prod_gone', 'Old', 'draft', NOW())`)
	tdb.Exec(`INSERT INTO product_collections (id, title, handle) VALUES ('pcol_1', 'Summer', 'summer')`)
	tdb.Exec(`INSERT INTO product_categories (id, name, handle, parent_category_id) VALUES
		('pcat_1', 'Tops', 'tops', NULL),
		('pcat_2', 'Shirts', 'shirts', 'pcat_1')`)
}

func TestCatalogStore_Postgres(t *testing.T) {
	tdb := NewTestDB(t)
	seedCatalog(tdb)
	store := persistence.NewCatalogStore(tdb.DB)
	ctx := context.Background()

	t.Run("GetProduct loads type and variants", func(t *testing.T) {
		p, err := store.GetProduct(ctx, "prod_1")
		require.NoError(t, err)
		assert.Equal(t, "Shirt", p.Title)
		require.NotNil(t, p.Type)
		assert.Equal(t, "apparel", p.Type.Value)
		require.Len(t, p.Variants, 2)
		assert.Equal(t, "SHIRT-S", p.Variants[0].SKU)
		assert.Empty(t, p.Variants[1].SKU)
		assert.Equal(t, "red", p.Metadata["color"])
	})

	t.Run("soft deleted rows are invisible", func(t *testing.T) {
		_, err := store.GetProduct(ctx, "prod_gone")
		assert.ErrorIs(t, err, commerce.ErrNotFound)

		products, err := store.ListProducts(ctx, commerce.Page{Take: 100})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "prod_1", products[0].ID)
	})

	t.Run("ListCategories pages by id", func(t *testing.T) {
		first, err := store.ListCategories(ctx, commerce.Page{Take: 1})
		require.NoError(t, err)
		require.Len(t, first, 1)
		assert.Equal(t, "pcat_1", first[0].ID)

		second, err := store.ListCategories(ctx, commerce.Page{Skip: 1, Take: 1})
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.Equal(t, "pcat_2", second[0].ID)
		require.NotNil(t, second[0].ParentCategoryID)
		assert.Equal(t, "pcat_1", *second[0].ParentCategoryID)
	})

	t.Run("MergeMetadata keeps unrelated keys", func(t *testing.T) {
		err := store.MergeMetadata(ctx, commerce.KindProduct, "prod_1", commerce.Metadata{
			commerce.MetadataCMSID: "doc-1",
		})
		require.NoError(t, err)

		md := tdb.Metadata("products", "prod_1")
		assert.Equal(t, "red", md["color"])
		assert.Equal(t, "doc-1", md[commerce.MetadataCMSID])
	})

	t.Run("MergeMetadata on null metadata", func(t *testing.T) {
		err := store.MergeMetadata(ctx, commerce.KindCollection, "pcol_1", commerce.Metadata{
			commerce.MetadataCMSID: "doc-c",
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{commerce.MetadataCMSID: "doc-c"}, map[string]any(tdb.Metadata("product_collections", "pcol_1")))
	})

	t.Run("MergeMetadata on missing row", func(t *testing.T) {
		err := store.MergeMetadata(ctx, commerce.KindVariant, "variant_x", commerce.Metadata{"a": 1})
		assert.ErrorIs(t, err, commerce.ErrNotFound)
	})
}
