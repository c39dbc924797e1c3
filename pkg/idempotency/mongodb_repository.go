package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultCollectionName is the default name for the dedup collection
	DefaultCollectionName = "processed_webhooks"
)

// MongoRepository implements Repository for MongoDB
type MongoRepository struct {
	collection *mongo.Collection
}

// NewMongoRepository creates a new MongoDB dedup repository
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection(DefaultCollectionName),
	}
}

// Record attempts to record an event as processed. The unique index on
// (clientId, externalEventId) makes the insert race-safe: whichever delivery
// wins the insert is the first, every other delivery observes a duplicate.
func (r *MongoRepository) Record(ctx context.Context, webhook *ProcessedWebhook) (bool, error) {
	if webhook.ID == "" {
		webhook.ID = uuid.New().String()
	}
	if webhook.ReceivedAt.IsZero() {
		webhook.ReceivedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, webhook)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to record processed webhook: %w", err)
	}

	return true, nil
}

// Seen reports whether the (clientID, externalEventID) pair was already recorded
func (r *MongoRepository) Seen(ctx context.Context, clientID, externalEventID string) (bool, error) {
	filter := bson.M{
		"clientId":        clientID,
		"externalEventId": externalEventID,
	}

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check processed webhook: %w", err)
	}

	return count > 0, nil
}

// DeleteOlderThan removes records received before the cutoff and returns the count
func (r *MongoRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"receivedAt": bson.M{"$lt": cutoff},
	}

	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to prune processed webhooks: %w", err)
	}

	return result.DeletedCount, nil
}

// EnsureIndexes creates necessary indexes for the dedup collection
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "clientId", Value: 1},
				{Key: "externalEventId", Value: 1},
			},
			Options: options.Index().
				SetName("idx_clientId_externalEventId").
				SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "receivedAt", Value: 1},
			},
			Options: options.Index().SetName("idx_receivedAt"),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
