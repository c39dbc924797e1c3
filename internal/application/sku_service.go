package application

import (
	"context"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/errors"
	"github.com/fulfillment-platform/portal/pkg/logging"
)

// SKUService manages client-scoped product identities
type SKUService struct {
	skus    domain.SKURepository
	ledger  domain.LedgerRepository
	asns    domain.ASNRepository
	aliases domain.AliasRepository
	logger  *logging.Logger
}

// NewSKUService creates a new SKUService
func NewSKUService(skus domain.SKURepository, ledger domain.LedgerRepository, asns domain.ASNRepository, aliases domain.AliasRepository, logger *logging.Logger) *SKUService {
	return &SKUService{
		skus:    skus,
		ledger:  ledger,
		asns:    asns,
		aliases: aliases,
		logger:  logger,
	}
}

// Create creates an active SKU. (clientId, clientSku) must be unique among
// non-deleted SKUs.
func (s *SKUService) Create(ctx context.Context, cmd CreateSKUCommand) (*domain.SKU, error) {
	existing, err := s.skus.FindByClientSKU(ctx, cmd.ClientID, cmd.ClientSKU)
	if err != nil && err != domain.ErrSKUNotFound {
		return nil, err
	}
	if existing != nil && existing.IsActive() {
		return nil, errors.ErrConflict("sku already exists: " + cmd.ClientSKU)
	}

	sku, err := domain.NewSKU(cmd.ClientID, cmd.ClientSKU, cmd.Title, cmd.UPC, cmd.FNSKU)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.skus.Save(ctx, sku); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("SKU created",
		"skuId", sku.SKUID,
		"clientId", cmd.ClientID,
		"clientSku", cmd.ClientSKU,
	)

	return sku, nil
}

// DeleteResult reports which delete path applied
type DeleteResult struct {
	SKUID string `json:"skuId"`
	Hard  bool   `json:"hard"`
}

// Delete removes a SKU. Hard delete only when the SKU has no ledger entries
// and no ASN line references; any reference forces a soft delete that
// retains the row with status deleted.
func (s *SKUService) Delete(ctx context.Context, cmd DeleteSKUCommand) (*DeleteResult, error) {
	sku, err := s.skus.FindByID(ctx, cmd.ClientID, cmd.SKUID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	hasLedger, err := s.ledger.HasEntriesForSKU(ctx, cmd.ClientID, cmd.SKUID)
	if err != nil {
		return nil, err
	}
	hasASNLines, err := s.asns.HasLinesForSKU(ctx, cmd.ClientID, cmd.SKUID)
	if err != nil {
		return nil, err
	}

	if !hasLedger && !hasASNLines {
		if err := s.skus.HardDelete(ctx, cmd.ClientID, cmd.SKUID); err != nil {
			return nil, err
		}
		s.logger.WithContext(ctx).Info("SKU hard deleted",
			"skuId", cmd.SKUID,
			"clientId", cmd.ClientID,
		)
		return &DeleteResult{SKUID: cmd.SKUID, Hard: true}, nil
	}

	if err := sku.SoftDelete(); err != nil {
		return nil, errors.MapDomainError(err)
	}
	if err := s.skus.Save(ctx, sku); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("SKU soft deleted",
		"skuId", cmd.SKUID,
		"clientId", cmd.ClientID,
	)

	return &DeleteResult{SKUID: cmd.SKUID, Hard: false}, nil
}

// Get fetches one SKU scoped to a client
func (s *SKUService) Get(ctx context.Context, clientID, skuID string) (*domain.SKU, error) {
	sku, err := s.skus.FindByID(ctx, clientID, skuID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}
	return sku, nil
}

// List lists a client's SKUs
func (s *SKUService) List(ctx context.Context, clientID string, includeDeleted bool, pagination domain.Pagination) ([]*domain.SKU, error) {
	return s.skus.FindByClient(ctx, clientID, includeDeleted, pagination)
}

// AddAlias registers an external platform identifier for a SKU. Re-adding an
// identical mapping is a no-op; a value already mapped to a different SKU is
// a conflict.
func (s *SKUService) AddAlias(ctx context.Context, clientID, skuID string, aliasType domain.AliasType, aliasValue string) (*domain.SKUAlias, error) {
	sku, err := s.skus.FindByID(ctx, clientID, skuID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}
	if !sku.IsActive() {
		return nil, errors.ErrUnprocessable("sku is deleted: " + skuID)
	}

	alias, err := domain.NewSKUAlias(clientID, skuID, aliasType, aliasValue)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.aliases.Upsert(ctx, alias); err != nil {
		return nil, errors.MapDomainError(err)
	}

	s.logger.WithContext(ctx).Info("SKU alias registered",
		"skuId", skuID,
		"clientId", clientID,
		"aliasType", aliasType,
	)

	return alias, nil
}

// Aliases returns all aliases mapped to a SKU
func (s *SKUService) Aliases(ctx context.Context, clientID, skuID string) ([]*domain.SKUAlias, error) {
	return s.aliases.FindBySKU(ctx, clientID, skuID)
}
