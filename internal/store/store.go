// Package store defines the persistence contract for processed messages and
// its in-memory and PostgreSQL implementations. The storage technology behind
// the interface is a collaborator of the pipeline, not part of it.
package store

import (
	"context"
	"errors"

	"swift-gateway/pkg/models"
)

// ErrNotFound is returned when no message matches the requested id.
var ErrNotFound = errors.New("message not found")

// Filter narrows GetByFilter results. Zero-valued fields are ignored.
type Filter struct {
	Status    models.Status
	Currency  string
	Reference string
	Limit     int
}

// MessageStore persists structured MT103 messages. SaveMessage must be
// idempotent per message id: retrying a save after a transient failure never
// creates a duplicate record.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *models.MT103Message) (string, error)
	GetByID(ctx context.Context, id string) (*models.MT103Message, error)
	GetByFilter(ctx context.Context, filter Filter) ([]*models.MT103Message, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) error
}
