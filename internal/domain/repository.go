package domain

import (
	"context"
	"time"
)

// Pagination represents pagination options
type Pagination struct {
	Page     int64
	PageSize int64
}

// DefaultPagination returns default pagination options
func DefaultPagination() Pagination {
	return Pagination{
		Page:     1,
		PageSize: 20,
	}
}

// Skip returns the number of documents to skip
func (p Pagination) Skip() int64 {
	return (p.Page - 1) * p.PageSize
}

// Limit returns the maximum number of documents to return
func (p Pagination) Limit() int64 {
	return p.PageSize
}

// LedgerRepository persists immutable quantity deltas. Append never mutates
// or deletes existing rows.
type LedgerRepository interface {
	// Append inserts one entry
	Append(ctx context.Context, entry *LedgerEntry) error

	// AppendAll inserts multiple entries atomically
	AppendAll(ctx context.Context, entries []*LedgerEntry) error

	// CurrentQuantity sums deltas for a client+sku, optionally scoped to a
	// location. Must be consistent with concurrent appends.
	CurrentQuantity(ctx context.Context, clientID, skuID, locationID string) (int, error)

	// FindBySKU retrieves entries for a client+sku, newest first
	FindBySKU(ctx context.Context, clientID, skuID string, pagination Pagination) ([]*LedgerEntry, error)

	// FindBySourceRef retrieves entries produced by one operation
	FindBySourceRef(ctx context.Context, clientID, sourceType, sourceRef string) ([]*LedgerEntry, error)

	// HasEntriesForSKU reports whether any entry references the SKU
	HasEntriesForSKU(ctx context.Context, clientID, skuID string) (bool, error)
}

// SKURepository persists client-scoped product identities
type SKURepository interface {
	Save(ctx context.Context, sku *SKU) error
	FindByID(ctx context.Context, clientID, skuID string) (*SKU, error)
	FindByClientSKU(ctx context.Context, clientID, clientSKU string) (*SKU, error)
	FindByClient(ctx context.Context, clientID string, includeDeleted bool, pagination Pagination) ([]*SKU, error)
	// HardDelete removes the row entirely. Only legal when nothing references
	// the SKU; the service layer enforces that rule.
	HardDelete(ctx context.Context, clientID, skuID string) error
	Count(ctx context.Context, clientID string, includeDeleted bool) (int64, error)
}

// AliasRepository persists external identifier mappings
type AliasRepository interface {
	// Upsert inserts the alias if absent; an existing identical mapping is a
	// no-op, a conflicting one returns ErrAliasAlreadyExists
	Upsert(ctx context.Context, alias *SKUAlias) error
	FindByAlias(ctx context.Context, clientID string, aliasType AliasType, aliasValue string) (*SKUAlias, error)
	FindBySKU(ctx context.Context, clientID, skuID string) ([]*SKUAlias, error)
	// FindSKUIDsMissingAliasType returns SKUs holding an alias of haveType but
	// lacking one of wantType, used by the backfill repair
	FindSKUIDsMissingAliasType(ctx context.Context, clientID string, haveType, wantType AliasType) ([]string, error)
}

// ASNRepository persists advance shipment notices
type ASNRepository interface {
	Save(ctx context.Context, asn *ASN) error
	FindByID(ctx context.Context, clientID, asnID string) (*ASN, error)
	FindByClient(ctx context.Context, clientID string, status *ASNStatus, pagination Pagination) ([]*ASN, error)
	CountExpected(ctx context.Context, clientID string) (int64, error)
	HasLinesForSKU(ctx context.Context, clientID, skuID string) (bool, error)
}

// DiscrepancyRepository persists discrepancy decision rows
type DiscrepancyRepository interface {
	Save(ctx context.Context, d *Discrepancy) error
	FindByID(ctx context.Context, clientID, discrepancyID string) (*Discrepancy, error)
	FindByASNAndSKU(ctx context.Context, clientID, asnID, skuID string) ([]*Discrepancy, error)
	FindByClient(ctx context.Context, clientID string, status *DiscrepancyStatus, pagination Pagination) ([]*Discrepancy, error)
	CountPending(ctx context.Context, clientID string) (int64, error)
}

// ReturnRepository persists platform returns with idempotent upsert
type ReturnRepository interface {
	// UpsertNew inserts the return if (clientId, shopifyReturnId) is absent.
	// Returns (existing, false, nil) when the key already exists so the
	// caller can apply status-only updates.
	UpsertNew(ctx context.Context, r *Return) (*Return, bool, error)
	Save(ctx context.Context, r *Return) error
	FindByExternalID(ctx context.Context, clientID, shopifyReturnID string) (*Return, error)
	FindByClient(ctx context.Context, clientID string, status *ReturnStatus, pagination Pagination) ([]*Return, error)
}

// ConnectionRepository persists store connections and OAuth state nonces
type ConnectionRepository interface {
	// SaveConnection inserts a connection; a shop_domain held by another
	// client returns ErrShopDomainTaken
	SaveConnection(ctx context.Context, conn *StoreConnection) error
	FindByClient(ctx context.Context, clientID string) (*StoreConnection, error)
	FindByShopDomain(ctx context.Context, shopDomain string) (*StoreConnection, error)
	SaveState(ctx context.Context, state *OAuthState) error
	// ConsumeState atomically fetches and deletes a state nonce
	ConsumeState(ctx context.Context, state string) (*OAuthState, error)
	DeleteExpiredStates(ctx context.Context, cutoff time.Time) (int64, error)
}

// PhotoRepository persists QC photo metadata
type PhotoRepository interface {
	Save(ctx context.Context, photo *QCPhoto) error
	FindOlderThan(ctx context.Context, cutoff time.Time, limit int64) ([]*QCPhoto, error)
	Delete(ctx context.Context, id string) error
	FindBySource(ctx context.Context, clientID, sourceType, sourceRef string) ([]*QCPhoto, error)
}

// PhotoStorage deletes photo objects from the underlying store. Separated
// from metadata so the retention sweep can treat storage failures as
// non-fatal.
type PhotoStorage interface {
	Delete(ctx context.Context, filePath string) error
}

// EventPublisher publishes domain events, normally via the transactional
// outbox
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	PublishAll(ctx context.Context, events []DomainEvent) error
}
