package cmssync

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/cms"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/commerce"
)

// fakeCMS is an in-memory content API keyed by collection
type fakeCMS struct {
	mu      sync.Mutex
	entries map[string][]cms.Entry
	nextID  int
	calls   []string
	creates []createCall
	updates []updateCall
	deletes []string
	fail    map[string]error
}

type createCall struct {
	collection string
	data       map[string]any
	opts       cms.WriteOptions
}

type updateCall struct {
	collection string
	documentID string
	data       map[string]any
}

func newFakeCMS() *fakeCMS {
	return &fakeCMS{entries: map[string][]cms.Entry{}, fail: map[string]error{}}
}

// failOn makes "<op>:<collection>" or "<op>:<collection>:<documentId>" return err
func (f *fakeCMS) failOn(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[key] = err
}

func (f *fakeCMS) failure(keys ...string) error {
	for _, k := range keys {
		if err, ok := f.fail[k]; ok {
			return err
		}
	}
	return nil
}

func (f *fakeCMS) seed(collection string, entry cms.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[collection] = append(f.entries[collection], entry)
}

func (f *fakeCMS) count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries[collection])
}

func (f *fakeCMS) get(collection, key, sourceID string) cms.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries[collection] {
		if e[key] == sourceID {
			return e
		}
	}
	return nil
}

func matches(e cms.Entry, filter cms.Filter) bool {
	for _, c := range filter {
		switch c.Operator {
		case cms.OpEq:
			if e[c.Field] != c.Value {
				return false
			}
		case cms.OpIn:
			found := false
			for _, v := range c.Value.([]string) {
				if e[c.Field] == v {
					found = true
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func (f *fakeCMS) Find(_ context.Context, collection string, opts cms.FindOptions) ([]cms.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "find:"+collection)
	if err := f.failure("find:" + collection); err != nil {
		return nil, err
	}

	var out []cms.Entry
	for _, e := range f.entries[collection] {
		if !matches(e, opts.Filters) {
			continue
		}
		cp := cms.Entry{}
		for k, v := range e {
			cp[k] = v
		}
		if opts.Populate == "variants" {
			var variants []any
			for _, v := range f.entries["product-variants"] {
				if v["product"] == e.DocumentID() {
					variants = append(variants, map[string]any(v))
				}
			}
			cp["variants"] = variants
		}
		out = append(out, cp)
	}
	return out, nil
}

func (f *fakeCMS) Create(_ context.Context, collection string, data map[string]any, opts cms.WriteOptions) (cms.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create:"+collection)
	f.creates = append(f.creates, createCall{collection: collection, data: data, opts: opts})
	if err := f.failure("create:" + collection); err != nil {
		return nil, err
	}

	f.nextID++
	entry := cms.Entry{"documentId": fmt.Sprintf("d%d", f.nextID)}
	for k, v := range data {
		entry[k] = v
	}
	f.entries[collection] = append(f.entries[collection], entry)
	return entry, nil
}

func (f *fakeCMS) Update(_ context.Context, collection, documentID string, data map[string]any, _ cms.WriteOptions) (cms.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update:"+collection)
	f.updates = append(f.updates, updateCall{collection: collection, documentID: documentID, data: data})
	if err := f.failure("update:" + collection); err != nil {
		return nil, err
	}

	for _, e := range f.entries[collection] {
		if e.DocumentID() == documentID {
			for k, v := range data {
				e[k] = v
			}
			return e, nil
		}
	}
	return nil, &cms.RequestError{Collection: collection, Operation: "update", HTTPStatus: http.StatusNotFound, Message: "Not Found"}
}

func (f *fakeCMS) Delete(_ context.Context, collection, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+collection)
	if err := f.failure("delete:"+collection, "delete:"+collection+":"+documentID); err != nil {
		return err
	}

	entries := f.entries[collection]
	for i, e := range entries {
		if e.DocumentID() == documentID {
			f.entries[collection] = append(entries[:i:i], entries[i+1:]...)
			f.deletes = append(f.deletes, collection+"/"+documentID)
			return nil
		}
	}
	return &cms.RequestError{Collection: collection, Operation: "delete", HTTPStatus: http.StatusNotFound, Message: "Not Found"}
}

func (f *fakeCMS) GetSingleton(_ context.Context, name string, _ cms.FindOptions) (cms.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("get:" + name); err != nil {
		return nil, err
	}
	if entries := f.entries[name]; len(entries) > 0 {
		return entries[0], nil
	}
	return nil, nil
}

func (f *fakeCMS) Ping(context.Context) error { return nil }

var _ cms.ContentClient = (*fakeCMS)(nil)

// fakeCatalog is an in-memory commerce store
type fakeCatalog struct {
	mu          sync.Mutex
	products    map[string]commerce.Product
	variants    map[string]commerce.Variant
	collections map[string]commerce.Collection
	categories  map[string]commerce.Category
	metadata    map[string]commerce.Metadata
	failMerge   error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products:    map[string]commerce.Product{},
		variants:    map[string]commerce.Variant{},
		collections: map[string]commerce.Collection{},
		categories:  map[string]commerce.Category{},
		metadata:    map[string]commerce.Metadata{},
	}
}

func (c *fakeCatalog) addProduct(p commerce.Product) {
	c.products[p.ID] = p
	for _, v := range p.Variants {
		v.ProductID = p.ID
		c.variants[v.ID] = v
	}
}

func (c *fakeCatalog) meta(kind commerce.Kind, id string) commerce.Metadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metadata[string(kind)+":"+id]
}

func (c *fakeCatalog) GetProduct(_ context.Context, id string) (*commerce.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, commerce.ErrNotFound
	}
	return &p, nil
}

func (c *fakeCatalog) GetVariant(_ context.Context, id string) (*commerce.Variant, error) {
	v, ok := c.variants[id]
	if !ok {
		return nil, commerce.ErrNotFound
	}
	return &v, nil
}

func (c *fakeCatalog) GetCollection(_ context.Context, id string) (*commerce.Collection, error) {
	v, ok := c.collections[id]
	if !ok {
		return nil, commerce.ErrNotFound
	}
	return &v, nil
}

func (c *fakeCatalog) GetCategory(_ context.Context, id string) (*commerce.Category, error) {
	v, ok := c.categories[id]
	if !ok {
		return nil, commerce.ErrNotFound
	}
	return &v, nil
}

func page[T any](m map[string]T, p commerce.Page) []T {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if p.Skip >= len(keys) {
		return nil
	}
	end := p.Skip + p.Take
	if end > len(keys) {
		end = len(keys)
	}
	out := make([]T, 0, end-p.Skip)
	for _, k := range keys[p.Skip:end] {
		out = append(out, m[k])
	}
	return out
}

func (c *fakeCatalog) ListProducts(_ context.Context, p commerce.Page) ([]commerce.Product, error) {
	return page(c.products, p), nil
}

func (c *fakeCatalog) ListCollections(_ context.Context, p commerce.Page) ([]commerce.Collection, error) {
	return page(c.collections, p), nil
}

func (c *fakeCatalog) ListCategories(_ context.Context, p commerce.Page) ([]commerce.Category, error) {
	return page(c.categories, p), nil
}

func (c *fakeCatalog) MergeMetadata(_ context.Context, kind commerce.Kind, id string, patch commerce.Metadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failMerge != nil {
		return c.failMerge
	}
	key := string(kind) + ":" + id
	m := c.metadata[key]
	if m == nil {
		m = commerce.Metadata{}
	}
	for k, v := range patch {
		m[k] = v
	}
	c.metadata[key] = m
	return nil
}

var (
	_ commerce.CatalogReader  = (*fakeCatalog)(nil)
	_ commerce.MetadataWriter = (*fakeCatalog)(nil)
)
