package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/mongodb"
	"github.com/fulfillment-platform/portal/pkg/outbox"
	"github.com/fulfillment-platform/portal/pkg/tenant"
)

const ledgerCollectionName = "inventory_ledger"

// LedgerRepository implements domain.LedgerRepository for MongoDB. The
// collection is insert-only; no update or delete operation exists here.
type LedgerRepository struct {
	client     *mongodb.Client
	collection *mongo.Collection
	outbox     outbox.Repository
}

// NewLedgerRepository creates a new MongoDB ledger repository
func NewLedgerRepository(client *mongodb.Client, outboxRepo outbox.Repository) *LedgerRepository {
	return &LedgerRepository{
		client:     client,
		collection: client.Collection(ledgerCollectionName),
		outbox:     outboxRepo,
	}
}

// Append inserts one entry
func (r *LedgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// AppendAll inserts multiple entries in one write
func (r *LedgerRepository) AppendAll(ctx context.Context, entries []*domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]interface{}, len(entries))
	for i, entry := range entries {
		docs[i] = entry
	}

	_, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to append ledger entries: %w", err)
	}
	return nil
}

// AppendWithEvents commits ledger entries and their outbox events in a single
// transaction, so an entry is never visible without its events and vice versa
func (r *LedgerRepository) AppendWithEvents(ctx context.Context, entries []*domain.LedgerEntry, events []*outbox.OutboxEvent) error {
	if len(entries) == 0 {
		return nil
	}

	return r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := r.AppendAll(sessCtx, entries); err != nil {
			return err
		}
		return r.outbox.SaveAll(sessCtx, events)
	})
}

// CurrentQuantity sums qtyDelta for a client+sku, optionally scoped to a
// location. The aggregation reads the same rows a concurrent append inserts,
// so the sum is always a consistent point-in-time balance.
func (r *LedgerRepository) CurrentQuantity(ctx context.Context, clientID, skuID, locationID string) (int, error) {
	match := tenant.ScopedFilter(clientID, bson.M{"skuId": skuID})
	if locationID != "" {
		match["locationId"] = locationID
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$qtyDelta"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate ledger quantity: %w", err)
	}
	defer cursor.Close(ctx)

	var result struct {
		Total int `bson:"total"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&result); err != nil {
			return 0, fmt.Errorf("failed to decode ledger quantity: %w", err)
		}
	}

	return result.Total, nil
}

// FindBySKU retrieves entries for a client+sku, newest first
func (r *LedgerRepository) FindBySKU(ctx context.Context, clientID, skuID string, pagination domain.Pagination) ([]*domain.LedgerEntry, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{"skuId": skuID})

	opts := options.Find().
		SetSort(mongodb.SortMultiple(
			mongodb.SortField{Field: "createdAt", Descending: true},
			mongodb.SortField{Field: "_id", Descending: true},
		)).
		SetSkip(pagination.Skip()).
		SetLimit(pagination.Limit())

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*domain.LedgerEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}

	return entries, nil
}

// FindBySourceRef retrieves entries produced by one operation
func (r *LedgerRepository) FindBySourceRef(ctx context.Context, clientID, sourceType, sourceRef string) ([]*domain.LedgerEntry, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{
		"sourceType": sourceType,
		"sourceRef":  sourceRef,
	})

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find ledger entries by source: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*domain.LedgerEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}

	return entries, nil
}

// HasEntriesForSKU reports whether any entry references the SKU
func (r *LedgerRepository) HasEntriesForSKU(ctx context.Context, clientID, skuID string) (bool, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{"skuId": skuID})

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count > 0, nil
}

// EnsureIndexes creates necessary indexes for the ledger collection
func (r *LedgerRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    tenant.ClientIndexKeys("skuId", "locationId"),
			Options: options.Index().SetName("idx_clientId_skuId_locationId"),
		},
		{
			Keys:    tenant.ClientIndexKeys("sourceType", "sourceRef"),
			Options: options.Index().SetName("idx_clientId_source"),
		},
		{
			Keys: bson.D{
				{Key: "entryId", Value: 1},
			},
			Options: options.Index().SetName("idx_entryId").SetUnique(true),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create ledger indexes: %w", err)
	}

	return nil
}
