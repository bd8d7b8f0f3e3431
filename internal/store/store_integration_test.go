package store

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	perrors "github.com/abgdnv/producttags/internal/errors"
	"github.com/abgdnv/producttags/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const skipIntegrationTests = "PRODUCT_SKIP_INTEGRATION_TESTS"

// MongoStoreSuite is a test suite for the MongoStore implementation.
type MongoStoreSuite struct {
	suite.Suite
	container *mongodb.MongoDBContainer
	client    *mongo.Client
	store     *MongoStore
	logger    *slog.Logger
	ctx       context.Context
}

// SetupSuite starts a MongoDB container and creates the store with its indexes.
func (s *MongoStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s.container, err = mongodb.Run(s.ctx, "mongo:7.0")
	require.NoError(s.T(), err, "Failed to run MongoDB container")

	uri, err := s.container.ConnectionString(s.ctx)
	require.NoError(s.T(), err, "Failed to get connection string from container")

	s.client, err = mongo.Connect(s.ctx, options.Client().ApplyURI(uri))
	require.NoError(s.T(), err, "Failed to connect to MongoDB")

	for i := range 10 {
		s.logger.Info("Pinging MongoDB", "attempt", i+1)
		err = s.client.Ping(s.ctx, nil)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to MongoDB after retries")

	s.store = NewMongoStore(s.client.Database("inventory_test"))
	require.NoError(s.T(), s.store.EnsureIndexes(s.ctx), "Failed to create indexes")
	s.logger.Info("Initialization complete for MongoStoreSuite")
}

// TearDownSuite disconnects the client and terminates the container.
func (s *MongoStoreSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Disconnect(s.ctx)
	}
	if s.container != nil {
		if err := s.container.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate MongoDB container", "error", err)
		}
	}
}

// SetupTest empties the products collection before each test.
func (s *MongoStoreSuite) SetupTest() {
	_, err := s.store.coll.DeleteMany(s.ctx, bson.D{})
	require.NoError(s.T(), err, "Failed to clean products collection")
}

// TestMongoStoreIntegration runs the MongoStore integration tests.
func TestMongoStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(MongoStoreSuite))
}

func (s *MongoStoreSuite) insert(externalID int64, name string, tag model.Tag) *model.Product {
	s.T().Helper()
	p, err := s.store.Insert(s.ctx, model.Product{ExternalID: externalID, Name: name, Tag: tag})
	require.NoError(s.T(), err, "insert helper failed to create product")
	return p
}

func (s *MongoStoreSuite) TestInsertAndFindByID() {
	created := s.insert(1001, "Blue Widget", model.TagUnclassified)

	require.True(s.T(), primitive.IsValidObjectID(created.ID))
	require.False(s.T(), created.CreatedAt.IsZero())

	fetched, err := s.store.FindByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), created.ID, fetched.ID)
	assert.Equal(s.T(), int64(1001), fetched.ExternalID)
	assert.Equal(s.T(), "Blue Widget", fetched.Name)
	assert.Equal(s.T(), model.TagUnclassified, fetched.Tag)
	assert.True(s.T(), created.CreatedAt.Equal(fetched.CreatedAt))
}

func (s *MongoStoreSuite) TestStoredDocumentUsesLegacyFieldNames() {
	created := s.insert(1002, "Red Gadget", model.TagFolded)
	oid, _ := primitive.ObjectIDFromHex(created.ID)

	var raw bson.M
	err := s.store.coll.FindOne(s.ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&raw)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 1002, raw["ID"])
	assert.Equal(s.T(), "Red Gadget", raw["Product_name"])
	assert.EqualValues(s.T(), 1, raw["type_tag"])
}

func (s *MongoStoreSuite) TestInsert_DuplicateExternalID() {
	s.insert(1003, "Original", model.TagStandard)

	_, err := s.store.Insert(s.ctx, model.Product{ExternalID: 1003, Name: "Copy", Tag: model.TagFolded})
	require.ErrorIs(s.T(), err, perrors.ErrDuplicateExternalID)

	list, err := s.store.FindAll(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 1)
	assert.Equal(s.T(), "Original", list[0].Name)
}

func (s *MongoStoreSuite) TestFindByID_NotFound() {
	_, err := s.store.FindByID(s.ctx, primitive.NewObjectID().Hex())
	require.ErrorIs(s.T(), err, perrors.ErrProductNotFound)

	_, err = s.store.FindByID(s.ctx, "not-an-object-id")
	require.ErrorIs(s.T(), err, perrors.ErrProductNotFound)
}

func (s *MongoStoreSuite) TestFindAll_NewestFirst() {
	s.insert(1, "First", model.TagUnclassified)
	s.insert(2, "Second", model.TagUnclassified)
	s.insert(3, "Third", model.TagUnclassified)

	list, err := s.store.FindAll(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 3)
	assert.Equal(s.T(), "Third", list[0].Name)
	assert.Equal(s.T(), "Second", list[1].Name)
	assert.Equal(s.T(), "First", list[2].Name)
}

func (s *MongoStoreSuite) TestFindAll_Empty() {
	list, err := s.store.FindAll(s.ctx)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), list)
}

func (s *MongoStoreSuite) TestUpdateTag() {
	created := s.insert(10, "Lamp", model.TagUnclassified)

	updated, err := s.store.UpdateTag(s.ctx, created.ID, model.TagStandard)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.TagStandard, updated.Tag)
	assert.Equal(s.T(), created.ExternalID, updated.ExternalID)
	assert.False(s.T(), updated.UpdatedAt.Before(created.UpdatedAt))

	fetched, err := s.store.FindByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.TagStandard, fetched.Tag)
}

func (s *MongoStoreSuite) TestUpdateTag_NotFound() {
	_, err := s.store.UpdateTag(s.ctx, primitive.NewObjectID().Hex(), model.TagFolded)
	require.ErrorIs(s.T(), err, perrors.ErrProductNotFound)
}

func (s *MongoStoreSuite) TestUpdateTagByExternalIDs_PartialMatch() {
	s.insert(1, "A", model.TagUnclassified)
	s.insert(2, "B", model.TagUnclassified)

	res, err := s.store.UpdateTagByExternalIDs(s.ctx, []int64{1, 2, 99}, model.TagFolded)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), res.MatchedCount)
	assert.Equal(s.T(), int64(2), res.ModifiedCount)

	found, err := s.store.FindByExternalIDs(s.ctx, []int64{1, 2})
	require.NoError(s.T(), err)
	for _, p := range found {
		assert.Equal(s.T(), model.TagFolded, p.Tag)
	}
}

func (s *MongoStoreSuite) TestUpdateTagByExternalIDs_NoOp() {
	s.insert(5, "Already folded", model.TagFolded)
	s.insert(6, "Unclassified", model.TagUnclassified)

	res, err := s.store.UpdateTagByExternalIDs(s.ctx, []int64{5, 6}, model.TagFolded)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), res.MatchedCount)
	assert.Equal(s.T(), int64(1), res.ModifiedCount)

	res, err = s.store.UpdateTagByExternalIDs(s.ctx, []int64{5, 6}, model.TagFolded)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), res.MatchedCount)
	assert.Equal(s.T(), int64(0), res.ModifiedCount)
}

func (s *MongoStoreSuite) TestDeleteByID() {
	created := s.insert(20, "Chair", model.TagStandard)

	require.NoError(s.T(), s.store.DeleteByID(s.ctx, created.ID))

	_, err := s.store.FindByID(s.ctx, created.ID)
	require.ErrorIs(s.T(), err, perrors.ErrProductNotFound)

	err = s.store.DeleteByID(s.ctx, created.ID)
	require.ErrorIs(s.T(), err, perrors.ErrProductNotFound)
}

func (s *MongoStoreSuite) TestStats() {
	stats, err := s.store.Stats(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(0), stats.ProductCount)
	assert.Nil(s.T(), stats.Sample)

	s.insert(30, "Desk", model.TagUnclassified)

	stats, err = s.store.Stats(s.ctx)
	require.NoError(s.T(), err)
	assert.Contains(s.T(), stats.Collections, CollectionName)
	assert.Equal(s.T(), int64(1), stats.ProductCount)
	require.NotNil(s.T(), stats.Sample)
	assert.Equal(s.T(), "Desk", stats.Sample.Name)
}

func (s *MongoStoreSuite) TestPing() {
	require.NoError(s.T(), s.store.Ping(s.ctx))
}
