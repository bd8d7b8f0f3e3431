// Package messaging defines the events exchanged between services and the publisher contract.
package messaging

import (
	"context"
)

// Stream and subjects carrying product change events.
const (
	ProductsStream               = "PRODUCTS"
	ProductsSubjects             = "products.>"
	ProductCreatedSubject        = "products.created"
	ProductTagUpdatedSubject     = "products.tag.updated"
	ProductTagsBulkUpdateSubject = "products.tag.bulk_updated"
	ProductDeletedSubject        = "products.deleted"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher discards every event. Used when messaging is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
