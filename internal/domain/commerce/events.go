package commerce

import "github.com/devx-commerce/medusa-strapi-plugin/internal/domain/shared"

// Entity lifecycle events emitted by the commerce backend
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"

	EventVariantCreated = "product-variant.created"
	EventVariantUpdated = "product-variant.updated"
	EventVariantDeleted = "product-variant.deleted"

	EventCollectionCreated = "product-collection.created"
	EventCollectionUpdated = "product-collection.updated"
	EventCollectionDeleted = "product-collection.deleted"

	EventCategoryCreated = "product-category.created"
	EventCategoryUpdated = "product-category.updated"
	EventCategoryDeleted = "product-category.deleted"
)

// Bulk resync triggers
const (
	EventResyncProducts    = "strapi-products.sync"
	EventResyncAll         = "strapi.sync" // legacy name, resyncs products
	EventResyncCollections = "strapi-collections.sync"
	EventResyncCategories  = "strapi-categories.sync"
)

// ResyncEvents are the events published by the admin trigger and the periodic resync
var ResyncEvents = []string{EventResyncProducts, EventResyncCollections, EventResyncCategories}

// EntityEvent carries the id of the entity that changed. The payload is never enriched.
type EntityEvent struct {
	shared.BaseDomainEvent
}

// NewEntityEvent creates an event for the given entity id
func NewEntityEvent(eventType, entityID string) *EntityEvent {
	return &EntityEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, entityID)}
}

// NewResyncEvent creates a bulk resync trigger event
func NewResyncEvent(eventType string) *EntityEvent {
	return NewEntityEvent(eventType, "")
}

// NewResyncRound creates one event per entry of ResyncEvents
func NewResyncRound() []shared.DomainEvent {
	events := make([]shared.DomainEvent, 0, len(ResyncEvents))
	for _, name := range ResyncEvents {
		events = append(events, NewResyncEvent(name))
	}
	return events
}
