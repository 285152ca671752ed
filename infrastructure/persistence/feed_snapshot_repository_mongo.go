package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"instagram-feed/domain/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const snapshotCollectionName = "instagram_feed_snapshots"

// snapshotCollection is the part of *mongo.Collection the snapshot store uses.
type snapshotCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...options.Lister[options.FindOneOptions]) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...options.Lister[options.UpdateOneOptions]) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error)
}

type snapshotDocument struct {
	Key       string              `bson:"_id"`
	Items     []model.DisplayItem `bson:"items"`
	FetchedAt time.Time           `bson:"fetched_at"`
	UpdatedAt time.Time           `bson:"updated_at"`
}

// FeedSnapshotRepositoryMongo keeps one document per cache key, keyed by _id.
type FeedSnapshotRepositoryMongo struct{ coll snapshotCollection }

func NewFeedSnapshotRepositoryMongo(coll snapshotCollection) *FeedSnapshotRepositoryMongo {
	return &FeedSnapshotRepositoryMongo{coll: coll}
}

// NewFeedSnapshotRepositoryFromClient binds the store to the snapshot collection of database.
func NewFeedSnapshotRepositoryFromClient(client *mongo.Client, database string) *FeedSnapshotRepositoryMongo {
	return NewFeedSnapshotRepositoryMongo(client.Database(database).Collection(snapshotCollectionName))
}

func (r *FeedSnapshotRepositoryMongo) LoadSnapshot(ctx context.Context, key string) (*model.CacheEntry, error) {
	if r.coll == nil {
		return nil, nil
	}
	var doc snapshotDocument
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load snapshot %s: %w", key, err)
	}
	return &model.CacheEntry{Key: doc.Key, Items: doc.Items, FetchedAt: doc.FetchedAt.UTC()}, nil
}

func (r *FeedSnapshotRepositoryMongo) SaveSnapshot(ctx context.Context, entry *model.CacheEntry) error {
	if r.coll == nil || entry == nil {
		return nil
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "items", Value: entry.Items},
		{Key: "fetched_at", Value: entry.FetchedAt.UTC()},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	_, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: entry.Key}}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot %s: %w", entry.Key, err)
	}
	return nil
}

func (r *FeedSnapshotRepositoryMongo) DeleteSnapshot(ctx context.Context, key string) error {
	if r.coll == nil {
		return nil
	}
	if _, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}}); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	return nil
}
