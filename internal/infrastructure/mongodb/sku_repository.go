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

const skuCollectionName = "skus"

// SKURepository implements domain.SKURepository for MongoDB
type SKURepository struct {
	collection *mongo.Collection
}

// NewSKURepository creates a new MongoDB SKU repository
func NewSKURepository(client *mongodb.Client) *SKURepository {
	return &SKURepository{
		collection: client.Collection(skuCollectionName),
	}
}

// Save upserts a SKU keyed by its business ID
func (r *SKURepository) Save(ctx context.Context, sku *domain.SKU) error {
	filter := bson.M{"skuId": sku.SKUID}
	opts := options.Replace().SetUpsert(true)

	_, err := r.collection.ReplaceOne(ctx, filter, sku, opts)
	if err != nil {
		return fmt.Errorf("failed to save sku: %w", err)
	}
	return nil
}

// FindByID retrieves one SKU scoped to a client
func (r *SKURepository) FindByID(ctx context.Context, clientID, skuID string) (*domain.SKU, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{"skuId": skuID})

	var sku domain.SKU
	err := r.collection.FindOne(ctx, filter).Decode(&sku)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrSKUNotFound
		}
		return nil, fmt.Errorf("failed to find sku: %w", err)
	}

	return &sku, nil
}

// FindByClientSKU retrieves the active SKU for a (clientId, clientSku) pair.
// Soft-deleted rows are excluded so a recreated SKU never collides with a
// retired one.
func (r *SKURepository) FindByClientSKU(ctx context.Context, clientID, clientSKU string) (*domain.SKU, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{
		"clientSku": clientSKU,
		"status":    domain.SKUStatusActive,
	})

	var sku domain.SKU
	err := r.collection.FindOne(ctx, filter).Decode(&sku)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrSKUNotFound
		}
		return nil, fmt.Errorf("failed to find sku by client sku: %w", err)
	}

	return &sku, nil
}

// FindByClient lists a client's SKUs
func (r *SKURepository) FindByClient(ctx context.Context, clientID string, includeDeleted bool, pagination domain.Pagination) ([]*domain.SKU, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{})
	if !includeDeleted {
		filter["status"] = domain.SKUStatusActive
	}

	opts := options.Find().
		SetSort(mongodb.SortAscending("clientSku")).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find skus: %w", err)
	}
	defer cursor.Close(ctx)

	var skus []*domain.SKU
	if err := cursor.All(ctx, &skus); err != nil {
		return nil, fmt.Errorf("failed to decode skus: %w", err)
	}

	return skus, nil
}

// HardDelete removes the row entirely
func (r *SKURepository) HardDelete(ctx context.Context, clientID, skuID string) error {
	filter := tenant.ScopedFilter(clientID, bson.M{"skuId": skuID})

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete sku: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrSKUNotFound
	}

	return nil
}

// Count returns the SKU count for a client
func (r *SKURepository) Count(ctx context.Context, clientID string, includeDeleted bool) (int64, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{})
	if !includeDeleted {
		filter["status"] = domain.SKUStatusActive
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count skus: %w", err)
	}

	return count, nil
}

// EnsureIndexes creates necessary indexes for the SKU collection. The
// partial unique index enforces (clientId, clientSku) uniqueness among
// active rows only, leaving soft-deleted rows out of the constraint.
func (r *SKURepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "skuId", Value: 1},
			},
			Options: options.Index().SetName("idx_skuId").SetUnique(true),
		},
		{
			Keys: tenant.ClientIndexKeys("clientSku"),
			Options: options.Index().
				SetName("idx_clientId_clientSku_active").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": string(domain.SKUStatusActive)}),
		},
		{
			Keys:    tenant.ClientIndexKeys("status"),
			Options: options.Index().SetName("idx_clientId_status"),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create sku indexes: %w", err)
	}

	return nil
}
