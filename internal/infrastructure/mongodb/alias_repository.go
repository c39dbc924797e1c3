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

const aliasCollectionName = "sku_aliases"

// AliasRepository implements domain.AliasRepository for MongoDB
type AliasRepository struct {
	collection *mongo.Collection
}

// NewAliasRepository creates a new MongoDB alias repository
func NewAliasRepository(client *mongodb.Client) *AliasRepository {
	return &AliasRepository{
		collection: client.Collection(aliasCollectionName),
	}
}

// Upsert inserts the alias if absent. $setOnInsert leaves an existing row
// untouched; when the existing row maps the same value to a different SKU the
// caller gets ErrAliasAlreadyExists instead of a silent remap.
func (r *AliasRepository) Upsert(ctx context.Context, alias *domain.SKUAlias) error {
	filter := tenant.ScopedFilter(alias.ClientID, bson.M{
		"aliasType":  alias.AliasType,
		"aliasValue": alias.AliasValue,
	})
	update := bson.M{
		"$setOnInsert": bson.M{
			"clientId":   alias.ClientID,
			"skuId":      alias.SKUID,
			"aliasType":  alias.AliasType,
			"aliasValue": alias.AliasValue,
			"createdAt":  alias.CreatedAt,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored domain.SKUAlias
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	if err != nil {
		return fmt.Errorf("failed to upsert alias: %w", err)
	}

	if stored.SKUID != alias.SKUID {
		return domain.ErrAliasAlreadyExists
	}

	return nil
}

// FindByAlias retrieves the mapping for one external identifier
func (r *AliasRepository) FindByAlias(ctx context.Context, clientID string, aliasType domain.AliasType, aliasValue string) (*domain.SKUAlias, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{
		"aliasType":  aliasType,
		"aliasValue": aliasValue,
	})

	var alias domain.SKUAlias
	err := r.collection.FindOne(ctx, filter).Decode(&alias)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrAliasNotFound
		}
		return nil, fmt.Errorf("failed to find alias: %w", err)
	}

	return &alias, nil
}

// FindBySKU retrieves every alias mapped to a SKU
func (r *AliasRepository) FindBySKU(ctx context.Context, clientID, skuID string) ([]*domain.SKUAlias, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{"skuId": skuID})

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find aliases: %w", err)
	}
	defer cursor.Close(ctx)

	var aliases []*domain.SKUAlias
	if err := cursor.All(ctx, &aliases); err != nil {
		return nil, fmt.Errorf("failed to decode aliases: %w", err)
	}

	return aliases, nil
}

// FindSKUIDsMissingAliasType returns SKUs holding an alias of haveType but
// lacking one of wantType
func (r *AliasRepository) FindSKUIDsMissingAliasType(ctx context.Context, clientID string, haveType, wantType domain.AliasType) ([]string, error) {
	haveIDs, err := r.distinctSKUIDs(ctx, clientID, haveType)
	if err != nil {
		return nil, err
	}
	wantIDs, err := r.distinctSKUIDs(ctx, clientID, wantType)
	if err != nil {
		return nil, err
	}

	covered := make(map[string]bool, len(wantIDs))
	for _, id := range wantIDs {
		covered[id] = true
	}

	var missing []string
	for _, id := range haveIDs {
		if !covered[id] {
			missing = append(missing, id)
		}
	}

	return missing, nil
}

func (r *AliasRepository) distinctSKUIDs(ctx context.Context, clientID string, aliasType domain.AliasType) ([]string, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{"aliasType": aliasType})

	values, err := r.collection.Distinct(ctx, "skuId", filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list distinct sku ids: %w", err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}

	return ids, nil
}

// EnsureIndexes creates necessary indexes for the alias collection
func (r *AliasRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: tenant.ClientIndexKeys("aliasType", "aliasValue"),
			Options: options.Index().
				SetName("idx_clientId_aliasType_aliasValue").
				SetUnique(true),
		},
		{
			Keys:    tenant.ClientIndexKeys("skuId"),
			Options: options.Index().SetName("idx_clientId_skuId"),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create alias indexes: %w", err)
	}

	return nil
}
