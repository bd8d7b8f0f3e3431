// Package store provides an interface for product storage operations.
package store

import (
	"context"

	"github.com/abgdnv/producttags/internal/model"
)

// BulkUpdateResult reports the outcome of a tag update over several records.
type BulkUpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// Stats describes the backing store for diagnostics.
type Stats struct {
	Collections  []string
	ProductCount int64
	Sample       *model.Product
}

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type ProductStore interface {
	// Insert persists a new product and sets its ID and timestamps.
	// Returns ErrDuplicateExternalID if a product with the same external ID exists.
	Insert(ctx context.Context, product model.Product) (*model.Product, error)

	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// FindAll returns all products, newest first.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]model.Product, error)

	// FindByExternalIDs returns the products whose external ID is in the given set, newest first.
	FindByExternalIDs(ctx context.Context, externalIDs []int64) ([]model.Product, error)

	// UpdateTag sets the tag of one product and returns the refreshed record.
	// Returns ErrProductNotFound if no product exists with the given ID.
	UpdateTag(ctx context.Context, id string, tag model.Tag) (*model.Product, error)

	// UpdateTagByExternalIDs sets the tag of every product whose external ID is in the given set.
	// Records that already hold the tag are matched but not modified.
	UpdateTagByExternalIDs(ctx context.Context, externalIDs []int64, tag model.Tag) (*BulkUpdateResult, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id string) error

	// Stats returns diagnostic information about the store.
	Stats(ctx context.Context) (*Stats, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
