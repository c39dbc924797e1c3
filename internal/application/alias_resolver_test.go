package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulfillment-platform/portal/internal/domain"
)

func newResolverFixture(t *testing.T) (*AliasResolver, *fakeAliasRepo, *fakeSKURepo) {
	t.Helper()
	aliases := &fakeAliasRepo{}
	skus := newFakeSKURepo()
	resolver := NewAliasResolver(aliases, skus, testLogger(), nil)
	return resolver, aliases, skus
}

func seedSKU(t *testing.T, skus *fakeSKURepo, clientID, clientSKU string) *domain.SKU {
	t.Helper()
	sku, err := domain.NewSKU(clientID, clientSKU, "Widget", "", "")
	require.NoError(t, err)
	require.NoError(t, skus.Save(context.Background(), sku))
	return sku
}

func seedAlias(t *testing.T, aliases *fakeAliasRepo, clientID, skuID string, aliasType domain.AliasType, value string) {
	t.Helper()
	alias, err := domain.NewSKUAlias(clientID, skuID, aliasType, value)
	require.NoError(t, err)
	require.NoError(t, aliases.Upsert(context.Background(), alias))
}

func TestResolveVariantIDBeforeClientSKU(t *testing.T) {
	resolver, aliases, skus := newResolverFixture(t)
	ctx := context.Background()

	byVariant := seedSKU(t, skus, "CL-001", "WIDGET-RED")
	byClientSKU := seedSKU(t, skus, "CL-001", "WIDGET-BLUE")
	seedAlias(t, aliases, "CL-001", byVariant.SKUID, domain.AliasShopifyVariantID, "42424242")

	// Both identifiers present and pointing at different SKUs: the variant
	// alias wins
	resolution, err := resolver.Resolve(ctx, "CL-001", domain.ExternalIdentifiers{
		VariantID: "42424242",
		SKU:       "WIDGET-BLUE",
	})
	require.NoError(t, err)
	assert.True(t, resolution.Matched)
	assert.Equal(t, byVariant.SKUID, resolution.SKUID)

	// No variant alias: fall back to client_sku equality
	resolution, err = resolver.Resolve(ctx, "CL-001", domain.ExternalIdentifiers{
		VariantID: "99999999",
		SKU:       "WIDGET-BLUE",
	})
	require.NoError(t, err)
	assert.True(t, resolution.Matched)
	assert.Equal(t, byClientSKU.SKUID, resolution.SKUID)
}

func TestResolveMissIsNonFatal(t *testing.T) {
	resolver, _, _ := newResolverFixture(t)

	resolution, err := resolver.Resolve(context.Background(), "CL-001", domain.ExternalIdentifiers{
		VariantID: "42424242",
		SKU:       "UNKNOWN",
	})
	require.NoError(t, err)
	assert.False(t, resolution.Matched)
	assert.Empty(t, resolution.SKUID)
}

func TestResolveScopedToClient(t *testing.T) {
	resolver, aliases, skus := newResolverFixture(t)
	ctx := context.Background()

	other := seedSKU(t, skus, "CL-002", "WIDGET-RED")
	seedAlias(t, aliases, "CL-002", other.SKUID, domain.AliasShopifyVariantID, "42424242")

	// Another client's alias and clientSku never match
	resolution, err := resolver.Resolve(ctx, "CL-001", domain.ExternalIdentifiers{
		VariantID: "42424242",
		SKU:       "WIDGET-RED",
	})
	require.NoError(t, err)
	assert.False(t, resolution.Matched)
}

func TestResolveSkipsDeletedSKUOnClientSKUFallback(t *testing.T) {
	resolver, _, skus := newResolverFixture(t)
	ctx := context.Background()

	sku := seedSKU(t, skus, "CL-001", "WIDGET-RED")
	require.NoError(t, sku.SoftDelete())

	resolution, err := resolver.Resolve(ctx, "CL-001", domain.ExternalIdentifiers{SKU: "WIDGET-RED"})
	require.NoError(t, err)
	assert.False(t, resolution.Matched)
}

func TestBackfillVariantAliases(t *testing.T) {
	resolver, aliases, skus := newResolverFixture(t)
	ctx := context.Background()

	// Recoverable: inventory-item alias plus a variant id in the notes
	recoverable := seedSKU(t, skus, "CL-001", "WIDGET-RED")
	recoverable.Notes = "migrated 2024-03; variant_id: 42424242"
	seedAlias(t, aliases, "CL-001", recoverable.SKUID, domain.AliasShopifyInventoryItemID, "111")

	// Not recoverable: nothing in the notes
	bare := seedSKU(t, skus, "CL-001", "WIDGET-BLUE")
	seedAlias(t, aliases, "CL-001", bare.SKUID, domain.AliasShopifyInventoryItemID, "222")

	// Already repaired: holds both alias types, not scanned
	complete := seedSKU(t, skus, "CL-001", "WIDGET-GREEN")
	seedAlias(t, aliases, "CL-001", complete.SKUID, domain.AliasShopifyInventoryItemID, "333")
	seedAlias(t, aliases, "CL-001", complete.SKUID, domain.AliasShopifyVariantID, "55555555")

	result, err := resolver.BackfillVariantAliases(ctx, "CL-001")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 1, result.Recovered)
	assert.Equal(t, 1, result.Skipped)

	recovered, err := aliases.FindByAlias(ctx, "CL-001", domain.AliasShopifyVariantID, "42424242")
	require.NoError(t, err)
	assert.Equal(t, recoverable.SKUID, recovered.SKUID)

	// Idempotent: a second run only re-scans the unrecoverable SKU and
	// duplicates nothing
	result, err = resolver.BackfillVariantAliases(ctx, "CL-001")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 0, result.Recovered)
	assert.Equal(t, 1, result.Skipped)
}

func TestBackfillSkipsConflictingVariantValue(t *testing.T) {
	resolver, aliases, skus := newResolverFixture(t)
	ctx := context.Background()

	owner := seedSKU(t, skus, "CL-001", "WIDGET-RED")
	seedAlias(t, aliases, "CL-001", owner.SKUID, domain.AliasShopifyVariantID, "42424242")

	// The notes point at a variant id already mapped to a different SKU;
	// backfill must not steal it
	contender := seedSKU(t, skus, "CL-001", "WIDGET-BLUE")
	contender.Notes = "variant_id: 42424242"
	seedAlias(t, aliases, "CL-001", contender.SKUID, domain.AliasShopifyInventoryItemID, "111")

	result, err := resolver.BackfillVariantAliases(ctx, "CL-001")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 0, result.Recovered)
	assert.Equal(t, 1, result.Skipped)

	existing, err := aliases.FindByAlias(ctx, "CL-001", domain.AliasShopifyVariantID, "42424242")
	require.NoError(t, err)
	assert.Equal(t, owner.SKUID, existing.SKUID)
}
