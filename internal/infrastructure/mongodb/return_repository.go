package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/mongodb"
	"github.com/fulfillment-platform/portal/pkg/tenant"
)

const returnCollectionName = "returns"

// ReturnRepository implements domain.ReturnRepository for MongoDB
type ReturnRepository struct {
	collection *mongo.Collection
}

// NewReturnRepository creates a new MongoDB return repository
func NewReturnRepository(client *mongodb.Client) *ReturnRepository {
	return &ReturnRepository{
		collection: client.Collection(returnCollectionName),
	}
}

// UpsertNew inserts the return if (clientId, shopifyReturnId) is absent. The
// unique index makes the insert race-safe: a concurrent redelivery loses the
// insert and reads the stored row instead, so lines are processed exactly
// once.
func (r *ReturnRepository) UpsertNew(ctx context.Context, ret *domain.Return) (*domain.Return, bool, error) {
	_, err := r.collection.InsertOne(ctx, ret)
	if err == nil {
		return ret, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, fmt.Errorf("failed to insert return: %w", err)
	}

	existing, err := r.FindByExternalID(ctx, ret.ClientID, ret.ShopifyReturnID)
	if err != nil {
		return nil, false, err
	}

	return existing, false, nil
}

// Save replaces a stored return keyed by its external identity
func (r *ReturnRepository) Save(ctx context.Context, ret *domain.Return) error {
	filter := tenant.ScopedFilter(ret.ClientID, bson.M{"shopifyReturnId": ret.ShopifyReturnID})
	opts := options.Replace().SetUpsert(true)

	_, err := r.collection.ReplaceOne(ctx, filter, ret, opts)
	if err != nil {
		return fmt.Errorf("failed to save return: %w", err)
	}
	return nil
}

// FindByExternalID retrieves one return by its platform identity
func (r *ReturnRepository) FindByExternalID(ctx context.Context, clientID, shopifyReturnID string) (*domain.Return, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{"shopifyReturnId": shopifyReturnID})

	var ret domain.Return
	err := r.collection.FindOne(ctx, filter).Decode(&ret)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrReturnNotFound
		}
		return nil, fmt.Errorf("failed to find return: %w", err)
	}

	return &ret, nil
}

// FindByClient lists a client's returns, optionally filtered by status
func (r *ReturnRepository) FindByClient(ctx context.Context, clientID string, status *domain.ReturnStatus, pagination domain.Pagination) ([]*domain.Return, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{})
	if status != nil {
		filter["status"] = *status
	}

	opts := options.Find().
		SetSort(mongodb.SortDescending("syncedAt")).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find returns: %w", err)
	}
	defer cursor.Close(ctx)

	var returns []*domain.Return
	if err := cursor.All(ctx, &returns); err != nil {
		return nil, fmt.Errorf("failed to decode returns: %w", err)
	}

	return returns, nil
}

// EnsureIndexes creates necessary indexes for the returns collection
func (r *ReturnRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: tenant.ClientIndexKeys("shopifyReturnId"),
			Options: options.Index().
				SetName("idx_clientId_shopifyReturnId").
				SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "clientId", Value: 1},
				{Key: "status", Value: 1},
				{Key: "syncedAt", Value: -1},
			},
			Options: options.Index().SetName("idx_clientId_status_syncedAt"),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create return indexes: %w", err)
	}

	return nil
}
