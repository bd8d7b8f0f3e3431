// Package service provides the implementation of product-related business logic.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	perrors "github.com/abgdnv/producttags/internal/errors"
	"github.com/abgdnv/producttags/internal/model"
	"github.com/abgdnv/producttags/internal/store"
	"github.com/abgdnv/producttags/pkg/messaging"
	"github.com/abgdnv/producttags/pkg/messaging/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ProductService defines the methods for managing products.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (*ProductDto, error)

	// FindAll returns all available products, newest first.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]ProductDto, error)

	// Create adds a new product to the system. The tag defaults to unclassified.
	// Returns ErrInvalidProduct or ErrDuplicateExternalID if the product cannot be created.
	Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// UpdateTag sets the tag of a single product.
	// Returns ErrInvalidTag for an unknown tag and ErrProductNotFound if no product exists with the given ID.
	UpdateTag(ctx context.Context, id string, tag model.Tag) (*ProductDto, error)

	// UpdateTagsBulk sets the tag of every product whose external ID is listed.
	// Returns ErrEmptySelection for an empty list and ErrProductNotFound if nothing matched.
	UpdateTagsBulk(ctx context.Context, externalIDs []int64, tag model.Tag) (*BulkUpdateResult, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id string) error

	// Stats returns diagnostic information about the store.
	Stats(ctx context.Context) (*StatsDto, error)
}

// Service implements ProductService and provides methods to manage products.
type Service struct {
	repository     store.ProductStore
	publisher      messaging.Publisher
	createdCounter metric.Int64Counter
	taggedCounter  metric.Int64Counter
}

// NewService creates a new instance of ProductService with the provided repository and event publisher.
// A nil publisher disables event publication.
func NewService(repo store.ProductStore, publisher messaging.Publisher) *Service {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	meter := otel.Meter("product-service")
	createdCounter, err := meter.Int64Counter("products_created", metric.WithDescription("Total number of created products"))
	if err != nil {
		panic(fmt.Sprintf("failed to create products_created counter: %v", err))
	}
	taggedCounter, err := meter.Int64Counter("product_tags_modified", metric.WithDescription("Total number of products whose tag changed"))
	if err != nil {
		panic(fmt.Sprintf("failed to create product_tags_modified counter: %v", err))
	}
	return &Service{
		repository:     repo,
		publisher:      publisher,
		createdCounter: createdCounter,
		taggedCounter:  taggedCounter,
	}
}

// ProductCreateDto represents the data transfer object for creating a new product.
// The name length is checked by Create after trimming.
type ProductCreateDto struct {
	ExternalID int64      `json:"externalId" validate:"required,gt=0"`
	Name       string     `json:"name"       validate:"required"`
	Tag        *model.Tag `json:"tag"        validate:"omitempty,oneof=-1 0 1"`
}

// TagUpdateDto represents the data transfer object for changing the tag of one product.
type TagUpdateDto struct {
	Tag *model.Tag `json:"tag" validate:"required,oneof=-1 0 1"`
}

// BulkUpdateDto represents the data transfer object for changing the tag of several products.
type BulkUpdateDto struct {
	ExternalIDs []int64    `json:"externalIds" validate:"required,min=1"`
	Tag         *model.Tag `json:"tag"         validate:"required,oneof=-1 0 1"`
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID         string    `json:"id"`
	ExternalID int64     `json:"externalId"`
	Name       string    `json:"name"`
	Tag        model.Tag `json:"tag"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// BulkUpdateResult reports the outcome of a bulk tag update.
// ModifiedCount excludes products that already held the tag.
type BulkUpdateResult struct {
	MatchedCount  int64        `json:"matchedCount"`
	ModifiedCount int64        `json:"modifiedCount"`
	Products      []ProductDto `json:"products"`
}

// StatsDto describes the backing store.
type StatsDto struct {
	Collections   []string    `json:"collections"`
	ProductCount  int64       `json:"productCount"`
	SampleProduct *ProductDto `json:"sampleProduct"`
}

// FindByID retrieves a product by its ID and returns it as a ProductDto.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) FindByID(ctx context.Context, id string) (*ProductDto, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}

	return toDto(product), nil
}

// FindAll retrieves a list of all products and returns them as ProductDTOs.
// Returns an empty slice if no products exist or error if the retrieval fails.
func (s *Service) FindAll(ctx context.Context) ([]ProductDto, error) {
	products, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return toDtos(products), nil
}

// Create validates and stores a new product and returns it as a ProductDto.
func (s *Service) Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error) {
	toCreate, err := validateCreate(product)
	if err != nil {
		return nil, err
	}

	p, err := s.repository.Insert(ctx, toCreate)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.publish(ctx, events.ProductCreatedEvent{
		Header:     events.NewHeader(ctx),
		ProductID:  p.ID,
		ExternalID: p.ExternalID,
		Name:       p.Name,
		Tag:        int(p.Tag),
	})
	s.createdCounter.Add(ctx, 1)

	return toDto(p), nil
}

// UpdateTag sets the tag of a product and returns the refreshed product.
func (s *Service) UpdateTag(ctx context.Context, id string, tag model.Tag) (*ProductDto, error) {
	if !tag.Valid() {
		return nil, fmt.Errorf("%w: %d", perrors.ErrInvalidTag, tag)
	}
	p, err := s.repository.UpdateTag(ctx, id, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to update tag of product with ID %s: %w", id, err)
	}

	s.publish(ctx, events.ProductTagUpdatedEvent{
		Header:     events.NewHeader(ctx),
		ProductID:  p.ID,
		ExternalID: p.ExternalID,
		Tag:        int(p.Tag),
	})
	s.taggedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("tag", tag.String())))

	return toDto(p), nil
}

// UpdateTagsBulk sets the tag of all products with the given external IDs.
// Matching and updating are two separate store calls without a transaction.
func (s *Service) UpdateTagsBulk(ctx context.Context, externalIDs []int64, tag model.Tag) (*BulkUpdateResult, error) {
	if !tag.Valid() {
		return nil, fmt.Errorf("%w: %d", perrors.ErrInvalidTag, tag)
	}
	ids := dedupe(externalIDs)
	if len(ids) == 0 {
		return nil, perrors.ErrEmptySelection
	}

	matched, err := s.repository.FindByExternalIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to find products for bulk update: %w", err)
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("no products match the given external IDs: %w", perrors.ErrProductNotFound)
	}

	res, err := s.repository.UpdateTagByExternalIDs(ctx, ids, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to update product tags: %w", err)
	}

	updated, err := s.repository.FindByExternalIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to reload updated products: %w", err)
	}

	s.publish(ctx, events.ProductTagsBulkUpdatedEvent{
		Header:        events.NewHeader(ctx),
		ExternalIDs:   ids,
		Tag:           int(tag),
		MatchedCount:  int64(len(matched)),
		ModifiedCount: res.ModifiedCount,
	})
	s.taggedCounter.Add(ctx, res.ModifiedCount, metric.WithAttributes(attribute.String("tag", tag.String())))

	return &BulkUpdateResult{
		MatchedCount:  int64(len(matched)),
		ModifiedCount: res.ModifiedCount,
		Products:      toDtos(updated),
	}, nil
}

// DeleteByID deletes a product by its ID.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) DeleteByID(ctx context.Context, id string) error {
	if err := s.repository.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product with ID %s: %w", id, err)
	}
	s.publish(ctx, events.ProductDeletedEvent{
		Header:    events.NewHeader(ctx),
		ProductID: id,
	})
	return nil
}

// Stats returns the store statistics.
func (s *Service) Stats(ctx context.Context) (*StatsDto, error) {
	st, err := s.repository.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect store statistics: %w", err)
	}
	dto := &StatsDto{
		Collections:  st.Collections,
		ProductCount: st.ProductCount,
	}
	if dto.Collections == nil {
		dto.Collections = []string{}
	}
	if st.Sample != nil {
		dto.SampleProduct = toDto(st.Sample)
	}
	return dto, nil
}

// publish sends an event; failures are logged and never returned to the caller.
func (s *Service) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event", "subject", event.Subject(), "error", err)
	}
}

// validateCreate normalises the input and checks the product invariants.
func validateCreate(in ProductCreateDto) (model.Product, error) {
	name := strings.TrimSpace(in.Name)
	tag := model.TagUnclassified
	if in.Tag != nil {
		tag = *in.Tag
	}
	switch {
	case in.ExternalID <= 0:
		return model.Product{}, fmt.Errorf("%w: externalId must be a positive integer", perrors.ErrInvalidProduct)
	case name == "":
		return model.Product{}, fmt.Errorf("%w: name must not be empty", perrors.ErrInvalidProduct)
	case utf8.RuneCountInString(name) > model.MaxNameLength:
		return model.Product{}, fmt.Errorf("%w: name must be at most %d characters", perrors.ErrInvalidProduct, model.MaxNameLength)
	case !tag.Valid():
		return model.Product{}, fmt.Errorf("%w: %w: %d", perrors.ErrInvalidProduct, perrors.ErrInvalidTag, tag)
	}
	return model.Product{ExternalID: in.ExternalID, Name: name, Tag: tag}, nil
}

// dedupe drops repeated IDs, keeping first-seen order.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// toDto converts a model.Product to a ProductDto.
func toDto(product *model.Product) *ProductDto {
	return &ProductDto{
		ID:         product.ID,
		ExternalID: product.ExternalID,
		Name:       product.Name,
		Tag:        product.Tag,
		CreatedAt:  product.CreatedAt,
		UpdatedAt:  product.UpdatedAt,
	}
}

func toDtos(products []model.Product) []ProductDto {
	dtos := make([]ProductDto, len(products))
	for i := range products {
		dtos[i] = *toDto(&products[i])
	}
	return dtos
}
