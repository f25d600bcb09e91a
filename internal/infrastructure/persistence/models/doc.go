// Package models contains GORM persistence models for the commerce tables this
// service reads. The tables are owned by the commerce backend; the only column
// written here is metadata.
//
// Models stay separate from the domain entities in internal/domain/commerce so
// the domain layer carries no ORM tags. Each model has a ToDomain mapper.
package models
