package cms

import "context"

// Status selects the draft or published version of a document
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Operator is a filter comparison operator
type Operator string

const (
	OpEq Operator = "$eq"
	OpIn Operator = "$in"
)

// Condition is a single field filter
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// Filter is a conjunction of conditions
type Filter []Condition

// Eq builds an equality condition
func Eq(field string, value any) Filter {
	return Filter{{Field: field, Operator: OpEq, Value: value}}
}

// In builds a membership condition
func In(field string, values ...string) Filter {
	return Filter{{Field: field, Operator: OpIn, Value: values}}
}

// And appends another filter's conditions
func (f Filter) And(other Filter) Filter {
	out := make(Filter, 0, len(f)+len(other))
	out = append(out, f...)
	return append(out, other...)
}

// Pagination is an offset window over a collection
type Pagination struct {
	Start int
	Limit int
}

// FindOptions control a collection query
type FindOptions struct {
	Filters    Filter
	Fields     []string
	// Populate is a relation name, a list of names or a nested map
	// in the CMS populate syntax.
	Populate   any
	Status     Status
	Locale     string
	Pagination *Pagination
}

// WriteOptions control a create or update
type WriteOptions struct {
	Status Status
	Locale string
}

// ContentClient is the port to the headless CMS REST API
type ContentClient interface {
	Find(ctx context.Context, collection string, opts FindOptions) ([]Entry, error)
	Create(ctx context.Context, collection string, data map[string]any, opts WriteOptions) (Entry, error)
	Update(ctx context.Context, collection, documentID string, data map[string]any, opts WriteOptions) (Entry, error)
	Delete(ctx context.Context, collection, documentID string) error
	GetSingleton(ctx context.Context, name string, opts FindOptions) (Entry, error)
	Ping(ctx context.Context) error
}
