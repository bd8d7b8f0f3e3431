// Package events holds the payloads published on product subjects.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/abgdnv/producttags/pkg/messaging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Header carries the fields common to every product event.
// Carrier holds the trace context of the request that produced the event.
type Header struct {
	EventID    uuid.UUID              `json:"event_id"`
	OccurredAt time.Time              `json:"occurred_at"`
	Carrier    propagation.MapCarrier `json:"carrier,omitempty"`
}

// NewHeader stamps a fresh event ID, the current time and the trace context of ctx.
func NewHeader(ctx context.Context) Header {
	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return Header{EventID: uuid.New(), OccurredAt: time.Now().UTC(), Carrier: carrier}
}

type ProductCreatedEvent struct {
	Header
	ProductID  string `json:"product_id"`
	ExternalID int64  `json:"external_id"`
	Name       string `json:"name"`
	Tag        int    `json:"tag"`
}

func (e ProductCreatedEvent) Subject() string {
	return messaging.ProductCreatedSubject
}

func (e ProductCreatedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

type ProductTagUpdatedEvent struct {
	Header
	ProductID  string `json:"product_id"`
	ExternalID int64  `json:"external_id"`
	Tag        int    `json:"tag"`
}

func (e ProductTagUpdatedEvent) Subject() string {
	return messaging.ProductTagUpdatedSubject
}

func (e ProductTagUpdatedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

type ProductTagsBulkUpdatedEvent struct {
	Header
	ExternalIDs   []int64 `json:"external_ids"`
	Tag           int     `json:"tag"`
	MatchedCount  int64   `json:"matched_count"`
	ModifiedCount int64   `json:"modified_count"`
}

func (e ProductTagsBulkUpdatedEvent) Subject() string {
	return messaging.ProductTagsBulkUpdateSubject
}

func (e ProductTagsBulkUpdatedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

type ProductDeletedEvent struct {
	Header
	ProductID string `json:"product_id"`
}

func (e ProductDeletedEvent) Subject() string {
	return messaging.ProductDeletedSubject
}

func (e ProductDeletedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
