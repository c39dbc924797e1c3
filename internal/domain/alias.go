package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Alias errors
var (
	ErrAliasNotFound      = errors.New("alias not found")
	ErrInvalidAliasType   = errors.New("invalid alias type")
	ErrMissingAliasValue  = errors.New("alias value is required")
	ErrAliasAlreadyExists = errors.New("alias already exists")
)

// AliasType identifies the external platform identifier kind
type AliasType string

const (
	AliasShopifyVariantID       AliasType = "shopify_variant_id"
	AliasShopifyInventoryItemID AliasType = "shopify_inventory_item_id"
	AliasShopifyProductID       AliasType = "shopify_product_id"
)

// IsValid checks if the alias type is valid
func (t AliasType) IsValid() bool {
	switch t {
	case AliasShopifyVariantID, AliasShopifyInventoryItemID, AliasShopifyProductID:
		return true
	default:
		return false
	}
}

// SKUAlias maps an external platform identifier to an internal SKU.
// At most one SKU per (clientId, aliasType, aliasValue); aliases never cross
// clients. Stale aliases are tolerated and never automatically deleted.
type SKUAlias struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID   string             `bson:"clientId" json:"clientId"`
	SKUID      string             `bson:"skuId" json:"skuId"`
	AliasType  AliasType          `bson:"aliasType" json:"aliasType"`
	AliasValue string             `bson:"aliasValue" json:"aliasValue"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// NewSKUAlias creates a validated alias
func NewSKUAlias(clientID, skuID string, aliasType AliasType, aliasValue string) (*SKUAlias, error) {
	if clientID == "" {
		return nil, ErrMissingClient
	}
	if skuID == "" {
		return nil, ErrMissingSKU
	}
	if !aliasType.IsValid() {
		return nil, ErrInvalidAliasType
	}
	if aliasValue == "" {
		return nil, ErrMissingAliasValue
	}

	return &SKUAlias{
		ID:         primitive.NewObjectID(),
		ClientID:   clientID,
		SKUID:      skuID,
		AliasType:  aliasType,
		AliasValue: aliasValue,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// ExternalIdentifiers is the set of platform identifiers a webhook or sync
// payload may carry for one line
type ExternalIdentifiers struct {
	VariantID       string `json:"variantId,omitempty"`
	InventoryItemID string `json:"inventoryItemId,omitempty"`
	SKU             string `json:"sku,omitempty"`
}

// IsEmpty returns true when no identifier is present
func (e ExternalIdentifiers) IsEmpty() bool {
	return e.VariantID == "" && e.InventoryItemID == "" && e.SKU == ""
}

// Resolution is the outcome of resolving external identifiers to a SKU.
// Matched=false means the caller proceeds with no SKU association.
type Resolution struct {
	SKUID   string `json:"skuId,omitempty"`
	Matched bool   `json:"matched"`
}
