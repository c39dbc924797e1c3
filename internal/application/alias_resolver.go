package application

import (
	"context"
	"regexp"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/logging"
	"github.com/fulfillment-platform/portal/pkg/metrics"
)

// variantNotePattern recovers variant ids from legacy free-text SKU notes,
// e.g. "variant_id: 42424242" or "variant=42424242"
var variantNotePattern = regexp.MustCompile(`variant[_\s]?(?:id)?[:=]?\s*(\d{6,})`)

// AliasResolver maps external platform identifiers to internal SKUs.
// Resolution order: exact variant-id alias first, then client_sku string
// equality. A miss is non-fatal: log a warning and return Matched=false,
// never fabricate a SKU.
type AliasResolver struct {
	aliases domain.AliasRepository
	skus    domain.SKURepository
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewAliasResolver creates a new AliasResolver
func NewAliasResolver(aliases domain.AliasRepository, skus domain.SKURepository, logger *logging.Logger, m *metrics.Metrics) *AliasResolver {
	return &AliasResolver{
		aliases: aliases,
		skus:    skus,
		logger:  logger,
		metrics: m,
	}
}

// Resolve maps an identifier set to a SKU within one client's scope
func (r *AliasResolver) Resolve(ctx context.Context, clientID string, ids domain.ExternalIdentifiers) (domain.Resolution, error) {
	if ids.VariantID != "" {
		alias, err := r.aliases.FindByAlias(ctx, clientID, domain.AliasShopifyVariantID, ids.VariantID)
		if err != nil && err != domain.ErrAliasNotFound {
			return domain.Resolution{}, err
		}
		if alias != nil {
			return domain.Resolution{SKUID: alias.SKUID, Matched: true}, nil
		}
	}

	if ids.SKU != "" {
		sku, err := r.skus.FindByClientSKU(ctx, clientID, ids.SKU)
		if err != nil && err != domain.ErrSKUNotFound {
			return domain.Resolution{}, err
		}
		if sku != nil && sku.IsActive() {
			return domain.Resolution{SKUID: sku.SKUID, Matched: true}, nil
		}
	}

	r.logger.ResolutionMiss(ctx, clientID, map[string]string{
		"variantId":       ids.VariantID,
		"inventoryItemId": ids.InventoryItemID,
		"sku":             ids.SKU,
	})
	if r.metrics != nil {
		r.metrics.RecordResolutionMiss()
	}

	return domain.Resolution{Matched: false}, nil
}

// BackfillResult reports the outcome of one backfill run
type BackfillResult struct {
	Scanned   int `json:"scanned"`
	Recovered int `json:"recovered"`
	Skipped   int `json:"skipped"`
}

// BackfillVariantAliases repairs SKUs that hold an inventory-item alias but
// no variant alias, recovering the variant id from the legacy notes field.
// Conflict-safe and idempotent: re-running never duplicates or overwrites.
func (r *AliasResolver) BackfillVariantAliases(ctx context.Context, clientID string) (*BackfillResult, error) {
	skuIDs, err := r.aliases.FindSKUIDsMissingAliasType(ctx, clientID,
		domain.AliasShopifyInventoryItemID, domain.AliasShopifyVariantID)
	if err != nil {
		return nil, err
	}

	result := &BackfillResult{Scanned: len(skuIDs)}

	for _, skuID := range skuIDs {
		sku, err := r.skus.FindByID(ctx, clientID, skuID)
		if err != nil {
			if err == domain.ErrSKUNotFound {
				result.Skipped++
				continue
			}
			return nil, err
		}

		match := variantNotePattern.FindStringSubmatch(sku.Notes)
		if match == nil {
			result.Skipped++
			continue
		}

		alias, err := domain.NewSKUAlias(clientID, skuID, domain.AliasShopifyVariantID, match[1])
		if err != nil {
			return nil, err
		}

		if err := r.aliases.Upsert(ctx, alias); err != nil {
			if err == domain.ErrAliasAlreadyExists {
				result.Skipped++
				continue
			}
			return nil, err
		}
		result.Recovered++
	}

	r.logger.WithContext(ctx).Info("Variant alias backfill finished",
		"clientId", clientID,
		"scanned", result.Scanned,
		"recovered", result.Recovered,
		"skipped", result.Skipped,
	)

	return result, nil
}
