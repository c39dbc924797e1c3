package application

import (
	"context"
	"time"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/cloudevents"
	"github.com/fulfillment-platform/portal/pkg/errors"
	"github.com/fulfillment-platform/portal/pkg/idempotency"
	"github.com/fulfillment-platform/portal/pkg/logging"
	"github.com/fulfillment-platform/portal/pkg/metrics"
	"github.com/fulfillment-platform/portal/pkg/outbox"
)

// OAuth state nonces are valid for ten minutes
const oauthStateTTL = 10 * time.Minute

// TokenExchange is the result of an OAuth code exchange
type TokenExchange struct {
	AccessToken string
	Scope       string
}

// PlatformGateway is the outbound surface to the commerce platform
type PlatformGateway interface {
	// AuthorizeURL builds the platform authorization URL for a connection
	// attempt
	AuthorizeURL(shopDomain, state string) string

	// ExchangeToken swaps an authorization code for an access token with a
	// bounded timeout
	ExchangeToken(ctx context.Context, shopDomain, code string) (*TokenExchange, error)

	// SetInventoryLevel pushes the available quantity for one inventory item
	SetInventoryLevel(ctx context.Context, conn *domain.StoreConnection, inventoryItemID string, available int) error
}

// SyncService owns the platform connection lifecycle, webhook idempotency,
// and outbound inventory pushes
type SyncService struct {
	connections domain.ConnectionRepository
	processed   idempotency.Repository
	aliases     domain.AliasRepository
	skus        domain.SKURepository
	ledger      domain.LedgerRepository
	outbox      outbox.Repository
	gateway     PlatformGateway
	factory     *cloudevents.EventFactory
	publisher   domain.EventPublisher
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

// NewSyncService creates a new SyncService
func NewSyncService(
	connections domain.ConnectionRepository,
	processed idempotency.Repository,
	aliases domain.AliasRepository,
	skus domain.SKURepository,
	ledger domain.LedgerRepository,
	outboxRepo outbox.Repository,
	gateway PlatformGateway,
	factory *cloudevents.EventFactory,
	publisher domain.EventPublisher,
	logger *logging.Logger,
	m *metrics.Metrics,
) *SyncService {
	return &SyncService{
		connections: connections,
		processed:   processed,
		aliases:     aliases,
		skus:        skus,
		ledger:      ledger,
		outbox:      outboxRepo,
		gateway:     gateway,
		factory:     factory,
		publisher:   publisher,
		logger:      logger,
		metrics:     m,
	}
}

// BeginOAuth persists a state nonce and returns the platform authorization
// URL to redirect the client to
func (s *SyncService) BeginOAuth(ctx context.Context, cmd ConnectStoreCommand) (string, error) {
	state, err := domain.NewOAuthState(cmd.ClientID, cmd.ShopDomain, oauthStateTTL)
	if err != nil {
		return "", errors.MapDomainError(err)
	}

	if err := s.connections.SaveState(ctx, state); err != nil {
		return "", err
	}

	return s.gateway.AuthorizeURL(cmd.ShopDomain, state.State), nil
}

// CompleteOAuth handles the platform callback: consumes the one-shot state
// nonce, exchanges the code, and persists the connection. A shop_domain held
// by another client is a rejected conflict, never an overwrite.
func (s *SyncService) CompleteOAuth(ctx context.Context, code, shop, state string) (*domain.StoreConnection, error) {
	stored, err := s.connections.ConsumeState(ctx, state)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}
	if stored.IsExpired() {
		return nil, errors.MapDomainError(domain.ErrOAuthStateNotFound)
	}
	if stored.ShopDomain != "" && stored.ShopDomain != shop {
		return nil, errors.MapDomainError(domain.ErrOAuthStateMismatch)
	}

	exchange, err := s.gateway.ExchangeToken(ctx, shop, code)
	if err != nil {
		return nil, err
	}

	conn, err := domain.NewStoreConnection(stored.ClientID, shop, exchange.AccessToken, exchange.Scope)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.connections.SaveConnection(ctx, conn); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if s.publisher != nil {
		event := &domain.StoreConnectedEvent{
			ClientID:    conn.ClientID,
			ShopDomain:  conn.ShopDomain,
			OccurredAt_: conn.ConnectedAt,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to publish store connected event")
		}
	}

	s.logger.WithContext(ctx).Info("Store connected",
		"clientId", conn.ClientID,
		"shopDomain", conn.ShopDomain,
	)

	return conn, nil
}

// GetConnection fetches a client's store connection
func (s *SyncService) GetConnection(ctx context.Context, clientID string) (*domain.StoreConnection, error) {
	conn, err := s.connections.FindByClient(ctx, clientID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}
	return conn, nil
}

// Disconnect deactivates a client's store connection. The row and its token
// are retained; webhooks and pushes for the shop stop until reconnected.
func (s *SyncService) Disconnect(ctx context.Context, clientID string) (*domain.StoreConnection, error) {
	conn, err := s.connections.FindByClient(ctx, clientID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	conn.Deactivate()
	if err := s.connections.SaveConnection(ctx, conn); err != nil {
		return nil, errors.MapDomainError(err)
	}

	s.logger.WithContext(ctx).Info("Store disconnected",
		"clientId", conn.ClientID,
		"shopDomain", conn.ShopDomain,
	)

	return conn, nil
}

// ConnectionForShop resolves the connection owning a shop domain, used by
// webhook handlers to attribute inbound events to a client
func (s *SyncService) ConnectionForShop(ctx context.Context, shopDomain string) (*domain.StoreConnection, error) {
	conn, err := s.connections.FindByShopDomain(ctx, shopDomain)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}
	if !conn.IsActive {
		return nil, errors.MapDomainError(domain.ErrConnectionInactive)
	}
	return conn, nil
}

// RecordWebhook durably dedups an inbound webhook on
// (clientId, externalEventId). Returns false when the event was already
// applied; redelivery is success, not an error.
func (s *SyncService) RecordWebhook(ctx context.Context, clientID, externalEventID, platform, topic string) (bool, error) {
	record := &idempotency.ProcessedWebhook{
		ClientID:        clientID,
		ExternalEventID: externalEventID,
		Platform:        platform,
		Topic:           topic,
		ReceivedAt:      time.Now().UTC(),
	}

	first, err := s.processed.Record(ctx, record)
	if err != nil {
		return false, err
	}

	s.logger.WebhookReceived(ctx, platform, topic, externalEventID, !first)
	if s.metrics != nil {
		status := "accepted"
		if !first {
			status = "duplicate"
		}
		s.metrics.RecordWebhookReceived(platform, topic, status)
	}

	return first, nil
}

// PushInventory pushes the current sellable quantity for one SKU to the
// platform. Failures are logged and returned for worker-side retry, never
// propagated to the ledger write that requested the push.
func (s *SyncService) PushInventory(ctx context.Context, clientID, skuID string) error {
	start := time.Now()

	conn, err := s.connections.FindByClient(ctx, clientID)
	if err != nil {
		if err == domain.ErrConnectionNotFound {
			s.logger.WithContext(ctx).Debug("No store connection, skipping push",
				"clientId", clientID,
				"skuId", skuID,
			)
			return nil
		}
		return err
	}
	if !conn.IsActive {
		return nil
	}

	aliases, err := s.aliases.FindBySKU(ctx, clientID, skuID)
	if err != nil {
		return err
	}

	inventoryItemID := ""
	for _, a := range aliases {
		if a.AliasType == domain.AliasShopifyInventoryItemID {
			inventoryItemID = a.AliasValue
			break
		}
	}
	if inventoryItemID == "" {
		s.logger.WithContext(ctx).Warn("SKU has no inventory item alias, skipping push",
			"clientId", clientID,
			"skuId", skuID,
		)
		return nil
	}

	total, err := s.ledger.CurrentQuantity(ctx, clientID, skuID, "")
	if err != nil {
		return err
	}
	damaged, err := s.ledger.CurrentQuantity(ctx, clientID, skuID, domain.DamagedLocationID)
	if err != nil {
		return err
	}
	sellable := total - damaged
	if sellable < 0 {
		sellable = 0
	}

	err = s.gateway.SetInventoryLevel(ctx, conn, inventoryItemID, sellable)
	duration := time.Since(start)

	s.logger.SyncPush(ctx, "shopify", skuID, err == nil, duration)
	if s.metrics != nil {
		s.metrics.RecordSyncPush("shopify", err == nil, duration)
	}

	return err
}

// TriggerResync enqueues a push request for every active SKU of a client
func (s *SyncService) TriggerResync(ctx context.Context, clientID string) (int, error) {
	skus, err := s.skus.FindByClient(ctx, clientID, false, domain.Pagination{Page: 1, PageSize: 1000})
	if err != nil {
		return 0, err
	}

	events := make([]*outbox.OutboxEvent, 0, len(skus))
	for _, sku := range skus {
		push := s.factory.CreateInventoryPushRequestedEvent(ctx, clientID, sku.SKUID, "manual_resync")
		oe, err := outbox.NewOutboxEventFromCloudEvent(sku.SKUID, "sku", outboxTopic, push)
		if err != nil {
			return 0, err
		}
		events = append(events, oe)
	}

	if err := s.outbox.SaveAll(ctx, events); err != nil {
		return 0, err
	}

	s.logger.WithContext(ctx).Info("Manual resync triggered",
		"clientId", clientID,
		"skuCount", len(events),
	)

	return len(events), nil
}

// PruneProcessedWebhooks removes dedup rows older than the cutoff
func (s *SyncService) PruneProcessedWebhooks(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.processed.DeleteOlderThan(ctx, cutoff)
}

// CleanupOAuthStates removes expired state nonces
func (s *SyncService) CleanupOAuthStates(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.connections.DeleteExpiredStates(ctx, cutoff)
}
