package strapi

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/cms"
)

func decode(t *testing.T, raw string) url.Values {
	t.Helper()
	v, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return v
}

func TestEncodeQuery_FindByID(t *testing.T) {
	raw := encodeQuery(findParams(cms.FindOptions{
		Filters: cms.Eq("systemId", "p1"),
		Fields:  []string{"documentId"},
		Status:  cms.StatusDraft,
	}))

	v := decode(t, raw)
	assert.Equal(t, "p1", v.Get("filters[systemId][$eq]"))
	assert.Equal(t, "documentId", v.Get("fields[0]"))
	assert.Equal(t, "draft", v.Get("status"))
	assert.Len(t, v, 3)
}

func TestEncodeQuery_InFilterAndPagination(t *testing.T) {
	raw := encodeQuery(findParams(cms.FindOptions{
		Filters:    cms.In("systemId", "a", "b"),
		Locale:     "en",
		Pagination: &cms.Pagination{Limit: 1},
	}))

	v := decode(t, raw)
	assert.Equal(t, "a", v.Get("filters[systemId][$in][0]"))
	assert.Equal(t, "b", v.Get("filters[systemId][$in][1]"))
	assert.Equal(t, "en", v.Get("locale"))
	assert.Equal(t, "1", v.Get("pagination[limit]"))
	assert.Empty(t, v.Get("pagination[start]"))
}

func TestEncodeQuery_Populate(t *testing.T) {
	t.Run("relation name", func(t *testing.T) {
		v := decode(t, encodeQuery(findParams(cms.FindOptions{Populate: "variants"})))
		assert.Equal(t, "variants", v.Get("populate"))
	})

	t.Run("nested map from json", func(t *testing.T) {
		populate := map[string]any{
			"variants": map[string]any{
				"fields": []any{"title", "sku"},
			},
			"image": true,
		}
		v := decode(t, encodeQuery(findParams(cms.FindOptions{Populate: populate})))
		assert.Equal(t, "title", v.Get("populate[variants][fields][0]"))
		assert.Equal(t, "sku", v.Get("populate[variants][fields][1]"))
		assert.Equal(t, "true", v.Get("populate[image]"))
	})
}

func TestEncodeQuery_Deterministic(t *testing.T) {
	params := map[string]any{"status": "draft", "fields": []string{"a"}, "locale": "en"}
	first := encodeQuery(params)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, encodeQuery(params))
	}
	assert.Equal(t, "fields%5B0%5D=a&locale=en&status=draft", first)
}

func TestEncodeQuery_Empty(t *testing.T) {
	assert.Empty(t, encodeQuery(findParams(cms.FindOptions{})))
	assert.Empty(t, encodeQuery(writeParams(cms.WriteOptions{})))
}
