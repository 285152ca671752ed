package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"instagram-feed/domain/model"
	"instagram-feed/infrastructure/configuration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// fakeSnapshotCollection records calls the way *mongo.Collection would receive them.
type fakeSnapshotCollection struct {
	found     interface{}
	findErr   error
	updateErr error

	filters []interface{}
	updates []interface{}
	upserts []bool
	deleted []interface{}
}

func (f *fakeSnapshotCollection) FindOne(_ context.Context, filter interface{}, _ ...options.Lister[options.FindOneOptions]) *mongo.SingleResult {
	f.filters = append(f.filters, filter)
	if f.findErr != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, f.findErr, nil)
	}
	return mongo.NewSingleResultFromDocument(f.found, nil, nil)
}

func (f *fakeSnapshotCollection) UpdateOne(_ context.Context, filter interface{}, update interface{}, opts ...options.Lister[options.UpdateOneOptions]) (*mongo.UpdateResult, error) {
	f.filters = append(f.filters, filter)
	f.updates = append(f.updates, update)
	var o options.UpdateOneOptions
	for _, lister := range opts {
		for _, set := range lister.List() {
			_ = set(&o)
		}
	}
	f.upserts = append(f.upserts, o.Upsert != nil && *o.Upsert)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &mongo.UpdateResult{UpsertedCount: 1}, nil
}

func (f *fakeSnapshotCollection) DeleteOne(_ context.Context, filter interface{}, _ ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error) {
	f.deleted = append(f.deleted, filter)
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

func TestFeedSnapshotRepositoryMongo_LoadSnapshot(t *testing.T) {
	fetched := time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC)
	coll := &fakeSnapshotCollection{found: snapshotDocument{
		Key:       "feed:6",
		Items:     []model.DisplayItem{{ID: "1", DisplayImageURL: "t.jpg", AltText: "sunset", Permalink: "p1", MediaType: model.MediaTypeVideo}},
		FetchedAt: fetched,
		UpdatedAt: fetched,
	}}

	entry, err := NewFeedSnapshotRepositoryMongo(coll).LoadSnapshot(context.Background(), "feed:6")

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "feed:6", entry.Key)
	assert.True(t, fetched.Equal(entry.FetchedAt))
	require.Len(t, entry.Items, 1)
	assert.Equal(t, "t.jpg", entry.Items[0].DisplayImageURL)
	assert.Equal(t, model.MediaTypeVideo, entry.Items[0].MediaType)
	assert.Equal(t, bson.D{{Key: "_id", Value: "feed:6"}}, coll.filters[0])
}

func TestFeedSnapshotRepositoryMongo_LoadSnapshot_Miss(t *testing.T) {
	coll := &fakeSnapshotCollection{findErr: mongo.ErrNoDocuments}

	entry, err := NewFeedSnapshotRepositoryMongo(coll).LoadSnapshot(context.Background(), "feed:6")

	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestFeedSnapshotRepositoryMongo_LoadSnapshot_Error(t *testing.T) {
	coll := &fakeSnapshotCollection{findErr: errors.New("connection reset")}

	entry, err := NewFeedSnapshotRepositoryMongo(coll).LoadSnapshot(context.Background(), "feed:6")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Nil(t, entry)
}

func TestFeedSnapshotRepositoryMongo_SaveSnapshotUpsertsByKey(t *testing.T) {
	coll := &fakeSnapshotCollection{}
	fetched := time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC)
	items := []model.DisplayItem{{ID: "1", DisplayImageURL: "t.jpg"}}

	err := NewFeedSnapshotRepositoryMongo(coll).SaveSnapshot(context.Background(), &model.CacheEntry{Key: "feed:6", Items: items, FetchedAt: fetched})

	require.NoError(t, err)
	require.Len(t, coll.updates, 1)
	assert.Equal(t, bson.D{{Key: "_id", Value: "feed:6"}}, coll.filters[0])
	assert.Equal(t, []bool{true}, coll.upserts)

	update := coll.updates[0].(bson.D)
	require.Equal(t, "$set", update[0].Key)
	set := update[0].Value.(bson.D)
	assert.Equal(t, bson.E{Key: "items", Value: items}, set[0])
	assert.Equal(t, bson.E{Key: "fetched_at", Value: fetched}, set[1])
	assert.Equal(t, "updated_at", set[2].Key)
}

func TestFeedSnapshotRepositoryMongo_SaveSnapshotError(t *testing.T) {
	coll := &fakeSnapshotCollection{updateErr: errors.New("not primary")}

	err := NewFeedSnapshotRepositoryMongo(coll).SaveSnapshot(context.Background(), &model.CacheEntry{Key: "feed:6"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed:6")
}

func TestFeedSnapshotRepositoryMongo_NilEntryAndNilCollection(t *testing.T) {
	coll := &fakeSnapshotCollection{}
	require.NoError(t, NewFeedSnapshotRepositoryMongo(coll).SaveSnapshot(context.Background(), nil))
	assert.Empty(t, coll.updates)

	repo := NewFeedSnapshotRepositoryMongo(nil)
	entry, err := repo.LoadSnapshot(context.Background(), "feed:6")
	require.NoError(t, err)
	assert.Nil(t, entry)
	require.NoError(t, repo.DeleteSnapshot(context.Background(), "feed:6"))
}

func TestFeedSnapshotRepositoryMongo_DeleteSnapshot(t *testing.T) {
	coll := &fakeSnapshotCollection{}

	require.NoError(t, NewFeedSnapshotRepositoryMongo(coll).DeleteSnapshot(context.Background(), "feed:6"))

	assert.Equal(t, []interface{}{bson.D{{Key: "_id", Value: "feed:6"}}}, coll.deleted)
}

func TestMongoURI(t *testing.T) {
	assert.Equal(t, "mongodb://localhost:27017", mongoURI(configuration.Db{Host: "localhost", Port: "27017"}))
	assert.Equal(t, "mongodb://feed:p%40ss@db:27018",
		mongoURI(configuration.Db{Host: "db", Port: "27018", User: "feed", Password: "p@ss"}))
}
