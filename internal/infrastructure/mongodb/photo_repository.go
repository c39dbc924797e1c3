package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/mongodb"
	"github.com/fulfillment-platform/portal/pkg/tenant"
)

const photoCollectionName = "qc_photos"

// PhotoRepository implements domain.PhotoRepository for MongoDB
type PhotoRepository struct {
	collection *mongo.Collection
}

// NewPhotoRepository creates a new MongoDB photo metadata repository
func NewPhotoRepository(client *mongodb.Client) *PhotoRepository {
	return &PhotoRepository{
		collection: client.Collection(photoCollectionName),
	}
}

// Save persists photo metadata
func (r *PhotoRepository) Save(ctx context.Context, photo *domain.QCPhoto) error {
	_, err := r.collection.InsertOne(ctx, photo)
	if err != nil {
		return fmt.Errorf("failed to save qc photo: %w", err)
	}
	return nil
}

// FindOlderThan retrieves photos created before the cutoff, oldest first
func (r *PhotoRepository) FindOlderThan(ctx context.Context, cutoff time.Time, limit int64) ([]*domain.QCPhoto, error) {
	filter := bson.M{"createdAt": bson.M{"$lt": cutoff}}

	opts := options.Find().
		SetSort(mongodb.SortAscending("createdAt")).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired qc photos: %w", err)
	}
	defer cursor.Close(ctx)

	var photos []*domain.QCPhoto
	if err := cursor.All(ctx, &photos); err != nil {
		return nil, fmt.Errorf("failed to decode qc photos: %w", err)
	}

	return photos, nil
}

// Delete removes one photo metadata row
func (r *PhotoRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid photo id: %w", err)
	}

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete qc photo: %w", err)
	}
	return nil
}

// FindBySource retrieves photos attached to one operation
func (r *PhotoRepository) FindBySource(ctx context.Context, clientID, sourceType, sourceRef string) ([]*domain.QCPhoto, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{
		"sourceType": sourceType,
		"sourceRef":  sourceRef,
	})

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find qc photos: %w", err)
	}
	defer cursor.Close(ctx)

	var photos []*domain.QCPhoto
	if err := cursor.All(ctx, &photos); err != nil {
		return nil, fmt.Errorf("failed to decode qc photos: %w", err)
	}

	return photos, nil
}

// EnsureIndexes creates necessary indexes for the photo collection
func (r *PhotoRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "createdAt", Value: 1},
			},
			Options: options.Index().SetName("idx_createdAt"),
		},
		{
			Keys:    tenant.ClientIndexKeys("sourceType", "sourceRef"),
			Options: options.Index().SetName("idx_clientId_source"),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create qc photo indexes: %w", err)
	}

	return nil
}
