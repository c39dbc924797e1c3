package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const countersCollection = "rate_limit_counters"

// MongoStore persists one window counter per key in MongoDB. The window start
// is anchored at the first request; stale counters are replaced in place and
// expire via a TTL index as a backstop.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a MongoDB-backed rate limit store
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection(countersCollection),
	}
}

type counterDocument struct {
	ID          string    `bson:"_id"`
	WindowStart time.Time `bson:"windowStart"`
	Count       int64     `bson:"count"`
	ExpiresAt   time.Time `bson:"expiresAt"`
}

// Hit bumps the key's counter if its window is still live, otherwise starts a
// fresh window at now with count 1
func (s *MongoStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	cutoff := now.Add(-window)

	count, err := s.incrementLive(ctx, key, cutoff)
	if err == nil {
		return count, nil
	}
	if err != mongo.ErrNoDocuments {
		return 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	// No live window: replace the stale counter (or insert) with a fresh one
	filter := bson.M{
		"_id":         key,
		"windowStart": bson.M{"$lte": cutoff},
	}
	doc := counterDocument{
		ID:          key,
		WindowStart: now,
		Count:       1,
		ExpiresAt:   now.Add(window * 2),
	}

	_, err = s.collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err == nil {
		return 1, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return 0, fmt.Errorf("failed to reset rate limit counter: %w", err)
	}

	// A concurrent request started the fresh window first; count against it
	count, err = s.incrementLive(ctx, key, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	return count, nil
}

func (s *MongoStore) incrementLive(ctx context.Context, key string, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"_id":         key,
		"windowStart": bson.M{"$gt": cutoff},
	}
	update := bson.M{"$inc": bson.M{"count": 1}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc counterDocument
	if err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Count, nil
}

// EnsureIndexes creates the TTL index for counter expiry
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().
			SetExpireAfterSeconds(0).
			SetName("idx_expiresAt_ttl"),
	})
	if err != nil {
		return fmt.Errorf("failed to create rate limit TTL index: %w", err)
	}
	return nil
}
