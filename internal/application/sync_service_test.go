package application

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/cloudevents"
	"github.com/fulfillment-platform/portal/pkg/errors"
)

type syncFixture struct {
	service     *SyncService
	connections *fakeConnectionRepo
	processed   *fakeProcessedRepo
	aliases     *fakeAliasRepo
	skus        *fakeSKURepo
	ledger      *fakeLedgerStore
	outbox      *fakeOutboxRepo
	gateway     *fakeGateway
	publisher   *fakePublisher
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	f := &syncFixture{
		connections: newFakeConnectionRepo(),
		processed:   newFakeProcessedRepo(),
		aliases:     &fakeAliasRepo{},
		skus:        newFakeSKURepo(),
		ledger:      &fakeLedgerStore{},
		outbox:      &fakeOutboxRepo{},
		gateway:     &fakeGateway{},
		publisher:   &fakePublisher{},
	}
	f.service = NewSyncService(f.connections, f.processed, f.aliases, f.skus, f.ledger,
		f.outbox, f.gateway, cloudevents.NewEventFactory("portal/test"), f.publisher,
		testLogger(), nil)
	return f
}

func (f *syncFixture) connect(t *testing.T, clientID, shopDomain string) *domain.StoreConnection {
	t.Helper()
	conn, err := domain.NewStoreConnection(clientID, shopDomain, "shpat_seed", "read_inventory")
	require.NoError(t, err)
	require.NoError(t, f.connections.SaveConnection(context.Background(), conn))
	return conn
}

func (f *syncFixture) appendEntry(t *testing.T, clientID, skuID, locationID string, delta int) {
	t.Helper()
	txType := domain.TransactionAdjustmentPlus
	if delta < 0 {
		txType = domain.TransactionAdjustmentMinus
	}
	entry, err := domain.NewLedgerEntry(clientID, skuID, locationID, delta, txType,
		domain.ReasonCycleCount, domain.SourceAdjustment, "")
	require.NoError(t, err)
	require.NoError(t, f.ledger.Append(context.Background(), entry))
}

func TestOAuthRoundTrip(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	authorizeURL, err := f.service.BeginOAuth(ctx, ConnectStoreCommand{
		ClientID:   "CL-001",
		ShopDomain: "acme.myshopify.com",
	})
	require.NoError(t, err)
	require.Contains(t, authorizeURL, "acme.myshopify.com")

	state := authorizeURL[strings.Index(authorizeURL, "state=")+len("state="):]

	conn, err := f.service.CompleteOAuth(ctx, "auth-code", "acme.myshopify.com", state)
	require.NoError(t, err)
	assert.Equal(t, "CL-001", conn.ClientID)
	assert.Equal(t, "acme.myshopify.com", conn.ShopDomain)
	assert.True(t, conn.IsActive)
	assert.NotEmpty(t, conn.AccessToken)

	// The nonce is one-shot
	_, err = f.service.CompleteOAuth(ctx, "auth-code", "acme.myshopify.com", state)
	require.Error(t, err)
}

func TestCompleteOAuthRejectsUnknownState(t *testing.T) {
	f := newSyncFixture(t)

	_, err := f.service.CompleteOAuth(context.Background(), "auth-code", "acme.myshopify.com", "bogus")
	require.Error(t, err)
}

func TestCompleteOAuthRejectsExpiredState(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	state, err := domain.NewOAuthState("CL-001", "acme.myshopify.com", -time.Minute)
	require.NoError(t, err)
	require.NoError(t, f.connections.SaveState(ctx, state))

	_, err = f.service.CompleteOAuth(ctx, "auth-code", "acme.myshopify.com", state.State)
	require.Error(t, err)
}

func TestCompleteOAuthRejectsShopMismatch(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	state, err := domain.NewOAuthState("CL-001", "acme.myshopify.com", time.Minute)
	require.NoError(t, err)
	require.NoError(t, f.connections.SaveState(ctx, state))

	_, err = f.service.CompleteOAuth(ctx, "auth-code", "evil.myshopify.com", state.State)
	require.Error(t, err)
}

func TestCompleteOAuthRejectsShopDomainTakenByAnotherClient(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.connect(t, "CL-001", "acme.myshopify.com")

	state, err := domain.NewOAuthState("CL-002", "acme.myshopify.com", time.Minute)
	require.NoError(t, err)
	require.NoError(t, f.connections.SaveState(ctx, state))

	_, err = f.service.CompleteOAuth(ctx, "auth-code", "acme.myshopify.com", state.State)
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.HTTPStatus)

	// The original owner's connection is untouched
	conn, err := f.connections.FindByClient(ctx, "CL-001")
	require.NoError(t, err)
	assert.Equal(t, "shpat_seed", conn.AccessToken)
}

func TestDisconnectStopsWebhookAttribution(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.connect(t, "CL-001", "acme.myshopify.com")

	conn, err := f.service.Disconnect(ctx, "CL-001")
	require.NoError(t, err)
	assert.False(t, conn.IsActive)

	_, err = f.service.ConnectionForShop(ctx, "acme.myshopify.com")
	require.Error(t, err)
}

func TestRecordWebhookDedup(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	first, err := f.service.RecordWebhook(ctx, "CL-001", "evt-1", "shopify", "returns/create")
	require.NoError(t, err)
	assert.True(t, first)

	// Redelivery of the same event id is not an error
	again, err := f.service.RecordWebhook(ctx, "CL-001", "evt-1", "shopify", "returns/create")
	require.NoError(t, err)
	assert.False(t, again)

	// Dedup is scoped per client
	other, err := f.service.RecordWebhook(ctx, "CL-002", "evt-1", "shopify", "returns/create")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestPushInventorySendsSellableQuantity(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.connect(t, "CL-001", "acme.myshopify.com")
	sku := seedSKU(t, f.skus, "CL-001", "WIDGET-RED")
	seedAlias(t, f.aliases, "CL-001", sku.SKUID, domain.AliasShopifyInventoryItemID, "inv-1")

	f.appendEntry(t, "CL-001", sku.SKUID, "A-01-01-B1", 10)
	f.appendEntry(t, "CL-001", sku.SKUID, "A-01-01-B1", -2)
	f.appendEntry(t, "CL-001", sku.SKUID, domain.DamagedLocationID, 3)

	require.NoError(t, f.service.PushInventory(ctx, "CL-001", sku.SKUID))

	require.Len(t, f.gateway.pushed, 1)
	push := f.gateway.pushed[0]
	assert.Equal(t, "acme.myshopify.com", push.shopDomain)
	assert.Equal(t, "inv-1", push.inventoryItemID)
	// 10 - 2 + 3 on hand, minus the 3 damaged units
	assert.Equal(t, 8, push.available)
}

func TestPushInventoryClampsNegativeSellable(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.connect(t, "CL-001", "acme.myshopify.com")
	sku := seedSKU(t, f.skus, "CL-001", "WIDGET-RED")
	seedAlias(t, f.aliases, "CL-001", sku.SKUID, domain.AliasShopifyInventoryItemID, "inv-1")

	// Only damaged stock on hand
	f.appendEntry(t, "CL-001", sku.SKUID, domain.DamagedLocationID, 4)

	require.NoError(t, f.service.PushInventory(ctx, "CL-001", sku.SKUID))

	require.Len(t, f.gateway.pushed, 1)
	assert.Equal(t, 0, f.gateway.pushed[0].available)
}

func TestPushInventorySkipPaths(t *testing.T) {
	t.Run("no connection", func(t *testing.T) {
		f := newSyncFixture(t)
		require.NoError(t, f.service.PushInventory(context.Background(), "CL-001", "SKU-1"))
		assert.Empty(t, f.gateway.pushed)
	})

	t.Run("inactive connection", func(t *testing.T) {
		f := newSyncFixture(t)
		conn := f.connect(t, "CL-001", "acme.myshopify.com")
		conn.Deactivate()
		require.NoError(t, f.service.PushInventory(context.Background(), "CL-001", "SKU-1"))
		assert.Empty(t, f.gateway.pushed)
	})

	t.Run("no inventory item alias", func(t *testing.T) {
		f := newSyncFixture(t)
		f.connect(t, "CL-001", "acme.myshopify.com")
		sku := seedSKU(t, f.skus, "CL-001", "WIDGET-RED")
		seedAlias(t, f.aliases, "CL-001", sku.SKUID, domain.AliasShopifyVariantID, "42424242")
		require.NoError(t, f.service.PushInventory(context.Background(), "CL-001", sku.SKUID))
		assert.Empty(t, f.gateway.pushed)
	})
}

func TestPushInventoryPropagatesGatewayError(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.connect(t, "CL-001", "acme.myshopify.com")
	sku := seedSKU(t, f.skus, "CL-001", "WIDGET-RED")
	seedAlias(t, f.aliases, "CL-001", sku.SKUID, domain.AliasShopifyInventoryItemID, "inv-1")
	f.gateway.pushErr = fmt.Errorf("platform unavailable")

	err := f.service.PushInventory(ctx, "CL-001", sku.SKUID)
	require.Error(t, err)
}

func TestTriggerResyncEnqueuesActiveSKUs(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	seedSKU(t, f.skus, "CL-001", "WIDGET-RED")
	seedSKU(t, f.skus, "CL-001", "WIDGET-BLUE")

	deleted := seedSKU(t, f.skus, "CL-001", "WIDGET-GREEN")
	require.NoError(t, deleted.SoftDelete())
	require.NoError(t, f.skus.Save(ctx, deleted))

	seedSKU(t, f.skus, "CL-002", "OTHER")

	enqueued, err := f.service.TriggerResync(ctx, "CL-001")
	require.NoError(t, err)
	assert.Equal(t, 2, enqueued)
	require.Len(t, f.outbox.saved, 2)
	for _, event := range f.outbox.saved {
		assert.Equal(t, cloudevents.InventoryPushRequested, event.EventType)
	}
}

func TestRetentionCleanups(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := f.service.RecordWebhook(ctx, "CL-001", "evt-old", "shopify", "returns/create")
	require.NoError(t, err)

	pruned, err := f.service.PruneProcessedWebhooks(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	expired, err := domain.NewOAuthState("CL-001", "acme.myshopify.com", -time.Minute)
	require.NoError(t, err)
	require.NoError(t, f.connections.SaveState(ctx, expired))

	removed, err := f.service.CleanupOAuthStates(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
