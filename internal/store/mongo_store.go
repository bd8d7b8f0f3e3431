package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	perrors "github.com/abgdnv/producttags/internal/errors"
	"github.com/abgdnv/producttags/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// CollectionName is the collection holding product documents.
const CollectionName = "products"

// productDocument is the stored shape of a product.
// Field names follow the legacy collection layout so existing data can be served as-is.
type productDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	ExternalID int64              `bson:"ID"`
	Name       string             `bson:"Product_name"`
	Tag        int                `bson:"type_tag"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

// MongoStore implements ProductStore using MongoDB as the data store.
type MongoStore struct {
	db   *mongo.Database
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoStore creates a new instance of ProductStore backed by the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:   db,
		coll: db.Collection(CollectionName),
		now:  time.Now,
	}
}

// EnsureIndexes creates the unique external ID index and the listing index.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ID", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("external_id_unique"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("created_at_desc"),
		},
	})
	if err != nil {
		return wrapErr("failed to create indexes", err)
	}
	return nil
}

// Insert persists a new product.
// Returns ErrDuplicateExternalID if the unique index rejects the external ID.
func (m *MongoStore) Insert(ctx context.Context, product model.Product) (*model.Product, error) {
	now := m.timestamp()
	doc := productDocument{
		ID:         primitive.NewObjectID(),
		ExternalID: product.ExternalID,
		Name:       product.Name,
		Tag:        int(product.Tag),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := m.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, perrors.ErrDuplicateExternalID
		}
		return nil, wrapErr("failed to insert product", err)
	}
	return doc.toModel(), nil
}

// FindByID retrieves a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (m *MongoStore) FindByID(ctx context.Context, id string) (*model.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, perrors.ErrProductNotFound
	}
	var doc productDocument
	if err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, wrapErr("failed to find product by ID", err)
	}
	return doc.toModel(), nil
}

// FindAll retrieves all products, newest first.
func (m *MongoStore) FindAll(ctx context.Context) ([]model.Product, error) {
	return m.find(ctx, bson.D{})
}

// FindByExternalIDs retrieves the products whose external ID is in the given set.
func (m *MongoStore) FindByExternalIDs(ctx context.Context, externalIDs []int64) ([]model.Product, error) {
	return m.find(ctx, externalIDFilter(externalIDs))
}

// UpdateTag sets the tag of a product and returns the refreshed record.
// Returns ErrProductNotFound if no product exists with the given ID.
func (m *MongoStore) UpdateTag(ctx context.Context, id string, tag model.Tag) (*model.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, perrors.ErrProductNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc productDocument
	err = m.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, m.setTag(tag), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, wrapErr("failed to update product tag", err)
	}
	return doc.toModel(), nil
}

// UpdateTagByExternalIDs sets the tag of every product whose external ID is in the given set.
func (m *MongoStore) UpdateTagByExternalIDs(ctx context.Context, externalIDs []int64, tag model.Tag) (*BulkUpdateResult, error) {
	res, err := m.coll.UpdateMany(ctx, externalIDFilter(externalIDs), m.setTag(tag))
	if err != nil {
		return nil, wrapErr("failed to update product tags", err)
	}
	return &BulkUpdateResult{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
	}, nil
}

// DeleteByID removes a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (m *MongoStore) DeleteByID(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return perrors.ErrProductNotFound
	}
	res, err := m.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return wrapErr("failed to delete product by ID", err)
	}
	if res.DeletedCount == 0 {
		return perrors.ErrProductNotFound
	}
	return nil
}

// Stats lists the database collections, counts products and picks a sample document.
func (m *MongoStore) Stats(ctx context.Context) (*Stats, error) {
	names, err := m.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, wrapErr("failed to list collections", err)
	}
	count, err := m.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, wrapErr("failed to count products", err)
	}
	stats := &Stats{Collections: names, ProductCount: count}
	var doc productDocument
	err = m.coll.FindOne(ctx, bson.D{}).Decode(&doc)
	switch {
	case err == nil:
		stats.Sample = doc.toModel()
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, wrapErr("failed to fetch sample product", err)
	}
	return stats, nil
}

// Ping checks that the primary is reachable.
func (m *MongoStore) Ping(ctx context.Context) error {
	if err := m.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return wrapErr("failed to ping database", err)
	}
	return nil
}

func (m *MongoStore) find(ctx context.Context, filter bson.D) ([]model.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapErr("failed to find products", err)
	}
	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrapErr("failed to decode products", err)
	}
	products := make([]model.Product, len(docs))
	for i := range docs {
		products[i] = *docs[i].toModel()
	}
	return products, nil
}

// setTag builds a pipeline update that only bumps updatedAt when the tag actually changes,
// so documents already holding the tag are reported as matched but not modified.
func (m *MongoStore) setTag(tag model.Tag) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "updatedAt", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$type_tag", int(tag)}}},
				"$updatedAt",
				m.timestamp(),
			}}}},
			{Key: "type_tag", Value: int(tag)},
		}}},
	}
}

// timestamp returns the current time at the precision MongoDB stores.
func (m *MongoStore) timestamp() time.Time {
	return m.now().UTC().Truncate(time.Millisecond)
}

func externalIDFilter(externalIDs []int64) bson.D {
	return bson.D{{Key: "ID", Value: bson.D{{Key: "$in", Value: externalIDs}}}}
}

func (d *productDocument) toModel() *model.Product {
	return &model.Product{
		ID:         d.ID.Hex(),
		ExternalID: d.ExternalID,
		Name:       d.Name,
		Tag:        model.Tag(d.Tag),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// wrapErr marks connectivity failures as ErrStoreUnavailable.
func wrapErr(msg string, err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", msg, perrors.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
