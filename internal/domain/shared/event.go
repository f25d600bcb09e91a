package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents something that happened to a commerce entity
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	// EntityID is the identifier of the entity the event refers to.
	// Empty for events that do not target a single entity (bulk triggers).
	EntityID() string
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Entity    string    `json:"entity_id,omitempty"`
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type of the event
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// EntityID returns the ID of the entity that produced this event
func (e *BaseDomainEvent) EntityID() string {
	return e.Entity
}

// NewBaseDomainEvent creates a new base domain event
func NewBaseDomainEvent(eventType, entityID string) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now(),
		Entity:    entityID,
	}
}
