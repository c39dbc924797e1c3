package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SKU errors
var (
	ErrSKUNotFound      = errors.New("sku not found")
	ErrSKUAlreadyExists = errors.New("sku already exists for client")
	ErrSKUDeleted       = errors.New("sku is deleted")
	ErrMissingClientSKU = errors.New("clientSku is required")
)

// SKUStatus represents the lifecycle status of a SKU
type SKUStatus string

const (
	SKUStatusActive  SKUStatus = "active"
	SKUStatusDeleted SKUStatus = "deleted"
)

// SKU is a client-scoped product identity. (clientId, clientSku) is unique
// among non-deleted SKUs. Deletion is soft while ledger or ASN references
// exist, hard otherwise.
type SKU struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SKUID     string             `bson:"skuId" json:"skuId"`
	ClientID  string             `bson:"clientId" json:"clientId"`
	ClientSKU string             `bson:"clientSku" json:"clientSku"`
	UPC       string             `bson:"upc,omitempty" json:"upc,omitempty"`
	FNSKU     string             `bson:"fnsku,omitempty" json:"fnsku,omitempty"`
	Title     string             `bson:"title" json:"title"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Status    SKUStatus          `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
	DeletedAt *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
}

// NewSKU creates a new active SKU
func NewSKU(clientID, clientSKU, title, upc, fnsku string) (*SKU, error) {
	if clientID == "" {
		return nil, ErrMissingClient
	}
	if clientSKU == "" {
		return nil, ErrMissingClientSKU
	}

	now := time.Now().UTC()
	return &SKU{
		ID:        primitive.NewObjectID(),
		SKUID:     "SKU-" + uuid.New().String(),
		ClientID:  clientID,
		ClientSKU: clientSKU,
		UPC:       upc,
		FNSKU:     fnsku,
		Title:     title,
		Status:    SKUStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsActive returns true if the SKU has not been deleted
func (s *SKU) IsActive() bool {
	return s.Status == SKUStatusActive
}

// SoftDelete marks the SKU deleted while retaining the row
func (s *SKU) SoftDelete() error {
	if s.Status == SKUStatusDeleted {
		return ErrSKUDeleted
	}
	now := time.Now().UTC()
	s.Status = SKUStatusDeleted
	s.DeletedAt = &now
	s.UpdatedAt = now
	return nil
}
