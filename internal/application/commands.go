package application

import (
	"time"

	"github.com/fulfillment-platform/portal/internal/domain"
)

// AppendEntryCommand appends one ledger entry
type AppendEntryCommand struct {
	ClientID        string                 `json:"clientId"`
	SKUID           string                 `json:"skuId" binding:"required"`
	LocationID      string                 `json:"locationId" binding:"required"`
	QtyDelta        int                    `json:"qtyDelta" binding:"required"`
	TransactionType domain.TransactionType `json:"transactionType" binding:"required"`
	ReasonCode      string                 `json:"reasonCode"`
	SourceType      string                 `json:"sourceType" binding:"required"`
	SourceRef       string                 `json:"sourceRef"`
}

// RestoreShipmentCommand compensates a cancelled outbound shipment
type RestoreShipmentCommand struct {
	ClientID   string              `json:"clientId"`
	ShipmentID string              `json:"shipmentId" binding:"required"`
	Lines      []RestoreLineInput  `json:"lines" binding:"required,min=1,dive"`
}

// RestoreLineInput is one shipped line to credit back
type RestoreLineInput struct {
	SKUID      string `json:"skuId" binding:"required"`
	LocationID string `json:"locationId" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
}

// CreateSKUCommand creates a client-scoped SKU
type CreateSKUCommand struct {
	ClientID  string `json:"clientId"`
	ClientSKU string `json:"clientSku" binding:"required"`
	Title     string `json:"title" binding:"required"`
	UPC       string `json:"upc"`
	FNSKU     string `json:"fnsku"`
}

// DeleteSKUCommand deletes a SKU, soft or hard depending on references
type DeleteSKUCommand struct {
	ClientID string `json:"clientId"`
	SKUID    string `json:"skuId" binding:"required"`
}

// CreateASNCommand schedules an inbound shipment
type CreateASNCommand struct {
	ClientID       string         `json:"clientId"`
	ASNNumber      string         `json:"asnNumber" binding:"required"`
	TrackingNumber string         `json:"trackingNumber"`
	Carrier        string         `json:"carrier"`
	ETA            *time.Time     `json:"eta"`
	Lines          []ASNLineInput `json:"lines" binding:"required,min=1,dive"`
}

// ASNLineInput is one expected SKU and quantity
type ASNLineInput struct {
	SKUID            string `json:"skuId" binding:"required"`
	ExpectedQuantity int    `json:"expectedQuantity" binding:"required,min=1"`
}

// RecordReceiptCommand counts received units for a line
type RecordReceiptCommand struct {
	ClientID string `json:"clientId"`
	ASNID    string `json:"asnId"`
	SKUID    string `json:"skuId" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// RecordInspectionCommand records one per-unit inspection outcome
type RecordInspectionCommand struct {
	ClientID    string `json:"clientId"`
	ASNID       string `json:"asnId"`
	SKUID       string `json:"skuId" binding:"required"`
	Passed      bool   `json:"passed"`
	Quarantined bool   `json:"quarantined"`
	PhotoPath   string `json:"photoPath"`
	InspectedBy string `json:"inspectedBy"`
	Notes       string `json:"notes"`
}

// CompleteReceivingCommand closes out counting for an ASN
type CompleteReceivingCommand struct {
	ClientID   string `json:"clientId"`
	ASNID      string `json:"asnId"`
	LocationID string `json:"locationId" binding:"required"`
}

// ForceCloseASNCommand is the admin manual resolution of an issue ASN
type ForceCloseASNCommand struct {
	ClientID string `json:"clientId"`
	ASNID    string `json:"asnId"`
	Notes    string `json:"notes" binding:"required"`
	AdminID  string `json:"adminId"`
}

// SubmitDecisionCommand records the client decision on a discrepancy
type SubmitDecisionCommand struct {
	ClientID      string `json:"clientId"`
	DiscrepancyID string `json:"discrepancyId"`
	Decision      string `json:"decision" binding:"required"`
	ClientNotes   string `json:"clientNotes"`
}

// ProcessDiscrepancyCommand marks a discrepancy acted on by an admin
type ProcessDiscrepancyCommand struct {
	ClientID      string `json:"clientId"`
	DiscrepancyID string `json:"discrepancyId"`
	AdminNotes    string `json:"adminNotes"`
}

// CloseDiscrepancyCommand terminates a discrepancy
type CloseDiscrepancyCommand struct {
	ClientID      string `json:"clientId"`
	DiscrepancyID string `json:"discrepancyId"`
	AdminID       string `json:"adminId"`
	CloseNotes    string `json:"closeNotes"`
}

// ReopenDiscrepancyCommand moves a closed discrepancy back to pending
type ReopenDiscrepancyCommand struct {
	ClientID      string `json:"clientId"`
	DiscrepancyID string `json:"discrepancyId"`
	AdminNotes    string `json:"adminNotes"`
}

// IngestReturnCommand upserts a normalized return webhook payload
type IngestReturnCommand struct {
	ClientID         string            `json:"clientId"`
	ShopifyReturnID  string            `json:"shopifyReturnId"`
	ShopifyOrderID   string            `json:"shopifyOrderId"`
	Status           string            `json:"status" binding:"required"`
	Lines            []ReturnLineInput `json:"lines"`
	CreatedAtShopify *time.Time        `json:"createdAtShopify"`
}

// ReturnLineInput is one normalized return line before alias resolution
type ReturnLineInput struct {
	ExternalLineID string                     `json:"externalLineId"`
	Identifiers    domain.ExternalIdentifiers `json:"identifiers"`
	ExpectedQty    int                        `json:"expectedQty" binding:"min=0"`
}

// AttachReturnPhotoCommand records a QC photo for a return line
type AttachReturnPhotoCommand struct {
	ClientID        string `json:"clientId"`
	ShopifyReturnID string `json:"shopifyReturnId"`
	LineID          string `json:"lineId"`
	PhotoPath       string `json:"photoPath" binding:"required"`
}

// InspectReturnLineCommand assesses a return line's condition
type InspectReturnLineCommand struct {
	ClientID        string `json:"clientId"`
	ShopifyReturnID string `json:"shopifyReturnId"`
	LineID          string `json:"lineId"`
	Outcome         string `json:"outcome" binding:"required,oneof=resellable damaged"`
	InspectedBy     string `json:"inspectedBy"`
	Notes           string `json:"notes"`
	RestockLocation string `json:"restockLocation"`
}

// ConnectStoreCommand begins the OAuth flow for a client
type ConnectStoreCommand struct {
	ClientID   string `json:"clientId"`
	ShopDomain string `json:"shopDomain" binding:"required"`
}
