package store

import (
	"context"
	"slices"
	"sync"
	"time"

	perrors "github.com/abgdnv/producttags/internal/errors"
	"github.com/abgdnv/producttags/internal/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore implements ProductStore using an in-memory map.
// It backs the service, handler and UI tests; the service binary always uses MongoStore.
type MemoryStore struct {
	mu         sync.RWMutex
	products   map[string]model.Product
	byExternal map[int64]string
	now        func() time.Time
}

// NewMemoryStore creates a new, empty in-memory ProductStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:   make(map[string]model.Product),
		byExternal: make(map[int64]string),
		now:        time.Now,
	}
}

// Insert stores a new product, rejecting a duplicate external ID.
func (s *MemoryStore) Insert(_ context.Context, product model.Product) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byExternal[product.ExternalID]; exists {
		return nil, perrors.ErrDuplicateExternalID
	}
	now := s.timestamp()
	product.ID = primitive.NewObjectID().Hex()
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = product
	s.byExternal[product.ExternalID] = product.ID

	return &product, nil
}

// FindByID retrieves a product by its ID.
func (s *MemoryStore) FindByID(_ context.Context, id string) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, perrors.ErrProductNotFound
	}
	return &p, nil
}

// FindAll retrieves all products, newest first.
func (s *MemoryStore) FindAll(_ context.Context) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		list = append(list, p)
	}
	sortNewestFirst(list)
	return list, nil
}

// FindByExternalIDs retrieves the products whose external ID is in the given set.
func (s *MemoryStore) FindByExternalIDs(_ context.Context, externalIDs []int64) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]model.Product, 0, len(externalIDs))
	seen := make(map[int64]struct{}, len(externalIDs))
	for _, extID := range externalIDs {
		if _, dup := seen[extID]; dup {
			continue
		}
		seen[extID] = struct{}{}
		if id, ok := s.byExternal[extID]; ok {
			list = append(list, s.products[id])
		}
	}
	sortNewestFirst(list)
	return list, nil
}

// UpdateTag sets the tag of a product. UpdatedAt only moves when the tag changes.
func (s *MemoryStore) UpdateTag(_ context.Context, id string, tag model.Tag) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, perrors.ErrProductNotFound
	}
	s.applyTag(&p, tag)
	return &p, nil
}

// UpdateTagByExternalIDs sets the tag of every matching product.
func (s *MemoryStore) UpdateTagByExternalIDs(_ context.Context, externalIDs []int64, tag model.Tag) (*BulkUpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &BulkUpdateResult{}
	seen := make(map[int64]struct{}, len(externalIDs))
	for _, extID := range externalIDs {
		if _, dup := seen[extID]; dup {
			continue
		}
		seen[extID] = struct{}{}
		id, ok := s.byExternal[extID]
		if !ok {
			continue
		}
		result.MatchedCount++
		p := s.products[id]
		if s.applyTag(&p, tag) {
			result.ModifiedCount++
		}
	}
	return result, nil
}

// DeleteByID deletes a product by its ID.
func (s *MemoryStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[id]
	if !exists {
		return perrors.ErrProductNotFound
	}
	delete(s.products, id)
	delete(s.byExternal, p.ExternalID)
	return nil
}

// Stats reports a single pseudo collection holding every product.
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	list, err := s.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		Collections:  []string{CollectionName},
		ProductCount: int64(len(list)),
	}
	if len(list) > 0 {
		stats.Sample = &list[0]
	}
	return stats, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// applyTag must be called with the write lock held. It reports whether the product changed.
func (s *MemoryStore) applyTag(p *model.Product, tag model.Tag) bool {
	if p.Tag == tag {
		return false
	}
	p.Tag = tag
	p.UpdatedAt = s.timestamp()
	s.products[p.ID] = *p
	return true
}

func (s *MemoryStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func sortNewestFirst(list []model.Product) {
	slices.SortFunc(list, func(a, b model.Product) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		// ObjectID hex strings sort in creation order
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
}
