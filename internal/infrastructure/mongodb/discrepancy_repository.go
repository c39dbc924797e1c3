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

const discrepancyCollectionName = "discrepancies"

// DiscrepancyRepository implements domain.DiscrepancyRepository for MongoDB
type DiscrepancyRepository struct {
	collection *mongo.Collection
}

// NewDiscrepancyRepository creates a new MongoDB discrepancy repository
func NewDiscrepancyRepository(client *mongodb.Client) *DiscrepancyRepository {
	return &DiscrepancyRepository{
		collection: client.Collection(discrepancyCollectionName),
	}
}

// Save upserts a discrepancy keyed by its business ID
func (r *DiscrepancyRepository) Save(ctx context.Context, d *domain.Discrepancy) error {
	filter := bson.M{"discrepancyId": d.DiscrepancyID}
	opts := options.Replace().SetUpsert(true)

	_, err := r.collection.ReplaceOne(ctx, filter, d, opts)
	if err != nil {
		return fmt.Errorf("failed to save discrepancy: %w", err)
	}
	return nil
}

// FindByID retrieves one discrepancy scoped to a client
func (r *DiscrepancyRepository) FindByID(ctx context.Context, clientID, discrepancyID string) (*domain.Discrepancy, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{"discrepancyId": discrepancyID})

	var d domain.Discrepancy
	err := r.collection.FindOne(ctx, filter).Decode(&d)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrDiscrepancyNotFound
		}
		return nil, fmt.Errorf("failed to find discrepancy: %w", err)
	}

	return &d, nil
}

// FindByASNAndSKU retrieves every discrepancy row for an ASN+SKU pair
func (r *DiscrepancyRepository) FindByASNAndSKU(ctx context.Context, clientID, asnID, skuID string) ([]*domain.Discrepancy, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{
		"asnId": asnID,
		"skuId": skuID,
	})

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find discrepancies: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []*domain.Discrepancy
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode discrepancies: %w", err)
	}

	return rows, nil
}

// FindByClient lists a client's discrepancies, optionally filtered by status
func (r *DiscrepancyRepository) FindByClient(ctx context.Context, clientID string, status *domain.DiscrepancyStatus, pagination domain.Pagination) ([]*domain.Discrepancy, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{})
	if status != nil {
		filter["status"] = *status
	}

	opts := options.Find().
		SetSort(mongodb.SortDescending("createdAt")).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find discrepancies: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []*domain.Discrepancy
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode discrepancies: %w", err)
	}

	return rows, nil
}

// CountPending returns the pending count for dashboard badges
func (r *DiscrepancyRepository) CountPending(ctx context.Context, clientID string) (int64, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{"status": domain.DiscrepancyStatusPending})

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending discrepancies: %w", err)
	}

	return count, nil
}

// EnsureIndexes creates necessary indexes for the discrepancy collection
func (r *DiscrepancyRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "discrepancyId", Value: 1},
			},
			Options: options.Index().SetName("idx_discrepancyId").SetUnique(true),
		},
		{
			Keys:    tenant.ClientIndexKeys("asnId", "skuId"),
			Options: options.Index().SetName("idx_clientId_asnId_skuId"),
		},
		{
			Keys: bson.D{
				{Key: "clientId", Value: 1},
				{Key: "status", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_clientId_status_createdAt"),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create discrepancy indexes: %w", err)
	}

	return nil
}
