package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_RegisterAndGet(t *testing.T) {
	r := NewHandlerRegistry()
	a := newTestHandler()
	b := newTestHandler()
	wild := newTestHandler()

	r.Register(a, "product.created", "product.updated")
	r.Register(b, "product.created")
	r.Register(wild)

	assert.Equal(t, []any{a, b, wild}, toAny(r.GetHandlers("product.created")))
	assert.Equal(t, []any{a, wild}, toAny(r.GetHandlers("product.updated")))
	assert.Equal(t, []any{wild}, toAny(r.GetHandlers("product.deleted")))
	assert.Equal(t, []string{"product.created", "product.updated"}, r.EventTypes())
}

func TestHandlerRegistry_RegisterTwiceIsNoop(t *testing.T) {
	r := NewHandlerRegistry()
	a := newTestHandler()

	r.Register(a, "e")
	r.Register(a, "e")
	r.Register(a)
	r.Register(a)

	assert.Len(t, r.GetHandlers("e"), 2)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	r := NewHandlerRegistry()
	a := newTestHandler()
	b := newTestHandler()
	r.Register(a, "e", "f")
	r.Register(b, "e")

	r.Unregister(a)

	assert.Len(t, r.GetHandlers("e"), 1)
	assert.Empty(t, r.GetHandlers("f"))
	assert.Equal(t, []string{"e"}, r.EventTypes())
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
