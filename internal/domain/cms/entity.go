package cms

import (
	"fmt"
	"strings"
)

// EntityType selects the CMS collection and the source id key for a mirrored entity
type EntityType string

const (
	EntityProduct    EntityType = "product"
	EntityVariant    EntityType = "variant"
	EntityCollection EntityType = "collection"
	EntityCategory   EntityType = "category"
)

// Singleton content types
const (
	SingletonHeader = "header"
	SingletonFooter = "footer"
)

// Collection returns the CMS collection name for the entity type
func (t EntityType) Collection() string {
	switch t {
	case EntityProduct:
		return "products"
	case EntityVariant:
		return "product-variants"
	case EntityCollection:
		return "collections"
	case EntityCategory:
		return "categories"
	}
	return ""
}

// SourceKey is the field name used for the source id when entries are returned to callers
func (t EntityType) SourceKey() string {
	switch t {
	case EntityProduct:
		return "productId"
	case EntityVariant:
		return "variantId"
	case EntityCollection:
		return "collectionId"
	case EntityCategory:
		return "categoryId"
	}
	return ""
}

// IsValid reports whether t is a known entity type
func (t EntityType) IsValid() bool {
	return t.Collection() != ""
}

func (t EntityType) String() string {
	return string(t)
}

// ParseEntityType parses an entity type name (case-insensitive)
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("cms: unknown entity type %q", s)
	}
	return t, nil
}

// Entry is a CMS document as returned by the API
type Entry map[string]any

// DocumentID returns the CMS document id, or "" if absent
func (e Entry) DocumentID() string {
	if e == nil {
		return ""
	}
	s, _ := e["documentId"].(string)
	return s
}

// Relation returns the populated entries under a relation field.
// A single related object is returned as a one-element slice.
func (e Entry) Relation(name string) []Entry {
	if e == nil {
		return nil
	}
	switch v := e[name].(type) {
	case []any:
		out := make([]Entry, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, Entry(m))
			}
		}
		return out
	case []map[string]any:
		out := make([]Entry, 0, len(v))
		for _, m := range v {
			out = append(out, Entry(m))
		}
		return out
	case []Entry:
		return v
	case map[string]any:
		return []Entry{Entry(v)}
	}
	return nil
}

// UpsertResult describes the outcome of an upsert
type UpsertResult struct {
	DocumentID string `json:"documentId"`
	SourceID   string `json:"sourceId"`
	Created    bool   `json:"created"`
}
