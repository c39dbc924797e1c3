package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/mongodb"
	"github.com/fulfillment-platform/portal/pkg/tenant"
)

const (
	connectionCollectionName = "store_connections"
	oauthStateCollectionName = "oauth_states"
)

// ConnectionRepository implements domain.ConnectionRepository for MongoDB
type ConnectionRepository struct {
	connections *mongo.Collection
	states      *mongo.Collection
}

// NewConnectionRepository creates a new MongoDB connection repository
func NewConnectionRepository(client *mongodb.Client) *ConnectionRepository {
	return &ConnectionRepository{
		connections: client.Collection(connectionCollectionName),
		states:      client.Collection(oauthStateCollectionName),
	}
}

// SaveConnection upserts the connection for a client. The global unique index
// on shopDomain rejects a domain already held by another client; the write
// never reassigns the domain.
func (r *ConnectionRepository) SaveConnection(ctx context.Context, conn *domain.StoreConnection) error {
	filter := tenant.ScopedFilter(conn.ClientID, bson.M{"shopDomain": conn.ShopDomain})
	opts := options.Replace().SetUpsert(true)

	_, err := r.connections.ReplaceOne(ctx, filter, conn, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrShopDomainTaken
		}
		return fmt.Errorf("failed to save store connection: %w", err)
	}
	return nil
}

// FindByClient retrieves the active connection for a client
func (r *ConnectionRepository) FindByClient(ctx context.Context, clientID string) (*domain.StoreConnection, error) {
	filter := tenant.ScopedFilter(clientID, bson.M{})

	var conn domain.StoreConnection
	err := r.connections.FindOne(ctx, filter).Decode(&conn)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrConnectionNotFound
		}
		return nil, fmt.Errorf("failed to find store connection: %w", err)
	}

	return &conn, nil
}

// FindByShopDomain retrieves the connection owning a shop domain
func (r *ConnectionRepository) FindByShopDomain(ctx context.Context, shopDomain string) (*domain.StoreConnection, error) {
	filter := bson.M{"shopDomain": shopDomain}

	var conn domain.StoreConnection
	err := r.connections.FindOne(ctx, filter).Decode(&conn)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrConnectionNotFound
		}
		return nil, fmt.Errorf("failed to find store connection: %w", err)
	}

	return &conn, nil
}

// SaveState persists an OAuth state nonce
func (r *ConnectionRepository) SaveState(ctx context.Context, state *domain.OAuthState) error {
	_, err := r.states.InsertOne(ctx, state)
	if err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// ConsumeState atomically fetches and deletes a state nonce, so a state can
// only ever complete one callback
func (r *ConnectionRepository) ConsumeState(ctx context.Context, state string) (*domain.OAuthState, error) {
	filter := bson.M{"state": state}

	var stored domain.OAuthState
	err := r.states.FindOneAndDelete(ctx, filter).Decode(&stored)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrOAuthStateNotFound
		}
		return nil, fmt.Errorf("failed to consume oauth state: %w", err)
	}

	return &stored, nil
}

// DeleteExpiredStates removes state nonces that lapsed before the cutoff
func (r *ConnectionRepository) DeleteExpiredStates(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{"expiresAt": bson.M{"$lt": cutoff}}

	result, err := r.states.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired oauth states: %w", err)
	}

	return result.DeletedCount, nil
}

// EnsureIndexes creates necessary indexes for both collections. shopDomain is
// unique across all clients; the TTL index backstops the explicit state sweep.
func (r *ConnectionRepository) EnsureIndexes(ctx context.Context) error {
	connIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "shopDomain", Value: 1},
			},
			Options: options.Index().SetName("idx_shopDomain").SetUnique(true),
		},
		{
			Keys:    tenant.ClientIndexKeys(),
			Options: options.Index().SetName("idx_clientId"),
		},
	}

	if _, err := r.connections.Indexes().CreateMany(ctx, connIndexes); err != nil {
		return fmt.Errorf("failed to create connection indexes: %w", err)
	}

	stateIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "state", Value: 1},
			},
			Options: options.Index().SetName("idx_state").SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "expiresAt", Value: 1},
			},
			Options: options.Index().
				SetName("idx_expiresAt_ttl").
				SetExpireAfterSeconds(0),
		},
	}

	if _, err := r.states.Indexes().CreateMany(ctx, stateIndexes); err != nil {
		return fmt.Errorf("failed to create oauth state indexes: %w", err)
	}

	return nil
}
