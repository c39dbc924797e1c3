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

const asnCollectionName = "asns"

// ASNRepository implements domain.ASNRepository for MongoDB
type ASNRepository struct {
	collection *mongo.Collection
}

// NewASNRepository creates a new MongoDB ASN repository
func NewASNRepository(client *mongodb.Client) *ASNRepository {
	return &ASNRepository{
		collection: client.Collection(asnCollectionName),
	}
}

// Save upserts an ASN keyed by its business ID
func (r *ASNRepository) Save(ctx context.Context, asn *domain.ASN) error {
	filter := bson.M{"asnId": asn.ASNID}
	opts := options.Replace().SetUpsert(true)

	_, err := r.collection.ReplaceOne(ctx, filter, asn, opts)
	if err != nil {
		return fmt.Errorf("failed to save asn: %w", err)
	}
	return nil
}

// FindByID retrieves one ASN scoped to a client
func (r *ASNRepository) FindByID(ctx context.Context, clientID, asnID string) (*domain.ASN, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{"asnId": asnID})

	var asn domain.ASN
	err := r.collection.FindOne(ctx, filter).Decode(&asn)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrASNNotFound
		}
		return nil, fmt.Errorf("failed to find asn: %w", err)
	}

	return &asn, nil
}

// FindByClient lists a client's ASNs, optionally filtered by status
func (r *ASNRepository) FindByClient(ctx context.Context, clientID string, status *domain.ASNStatus, pagination domain.Pagination) ([]*domain.ASN, error) {
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
		return nil, fmt.Errorf("failed to find asns: %w", err)
	}
	defer cursor.Close(ctx)

	var asns []*domain.ASN
	if err := cursor.All(ctx, &asns); err != nil {
		return nil, fmt.Errorf("failed to decode asns: %w", err)
	}

	return asns, nil
}

// CountExpected returns the count of ASNs still awaiting arrival
func (r *ASNRepository) CountExpected(ctx context.Context, clientID string) (int64, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{"status": domain.ASNStatusNotReceived})

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count expected asns: %w", err)
	}

	return count, nil
}

// HasLinesForSKU reports whether any ASN line references the SKU
func (r *ASNRepository) HasLinesForSKU(ctx context.Context, clientID, skuID string) (bool, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{"lines.skuId": skuID})

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to count asn lines: %w", err)
	}

	return count > 0, nil
}

// EnsureIndexes creates necessary indexes for the ASN collection
func (r *ASNRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "asnId", Value: 1},
			},
			Options: options.Index().SetName("idx_asnId").SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "clientId", Value: 1},
				{Key: "status", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_clientId_status_createdAt"),
		},
		{
			Keys:    tenant.ClientIndexKeys("lines.skuId"),
			Options: options.Index().SetName("idx_clientId_lineSkuId"),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create asn indexes: %w", err)
	}

	return nil
}
