package cloudevents

import (
	"time"
)

// EventType constants for portal domain events
const (
	// Inventory events
	InventoryPushRequested = "portal.inventory.push-requested"
	LedgerEntryAppended    = "portal.inventory.ledger-entry-appended"

	// Receiving events
	ASNCreated        = "portal.receiving.asn-created"
	ReceivingStarted  = "portal.receiving.started"
	ReceivingComplete = "portal.receiving.completed"
	ASNIssueFlagged   = "portal.receiving.issue-flagged"
	ASNClosed         = "portal.receiving.asn-closed"

	// Discrepancy events
	DiscrepancyCreated   = "portal.discrepancy.created"
	DiscrepancySubmitted = "portal.discrepancy.submitted"
	DiscrepancyProcessed = "portal.discrepancy.processed"
	DiscrepancyReopened  = "portal.discrepancy.reopened"

	// Return events
	ReturnReceived      = "portal.returns.received"
	ReturnLineDispensed = "portal.returns.line-dispositioned"

	// Connection events
	StoreConnected    = "portal.sync.store-connected"
	WebhookRegistered = "portal.sync.webhook-registered"
)

// Source constants for event sources
const (
	SourceInventory   = "/portal/inventory"
	SourceReceiving   = "/portal/receiving"
	SourceDiscrepancy = "/portal/discrepancy"
	SourceReturns     = "/portal/returns"
	SourceSync        = "/portal/sync"
)

// PortalCloudEvent represents a CloudEvents v1.0 compliant event for the portal
type PortalCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// Portal-specific extensions
	ClientID      string `json:"portalclientid,omitempty"`
	CorrelationID string `json:"portalcorrelationid,omitempty"`

	// W3C distributed tracing extensions
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// InventoryPushRequestedData represents the data payload for InventoryPushRequested.
// The worker resolves the current quantity at push time, so the payload only
// carries the identity of the SKU whose level changed.
type InventoryPushRequestedData struct {
	ClientID string `json:"clientId"`
	SKUID    string `json:"skuId"`
	Reason   string `json:"reason"`
}

// LedgerEntryAppendedData represents the data payload for LedgerEntryAppended
type LedgerEntryAppendedData struct {
	EntryID         string `json:"entryId"`
	ClientID        string `json:"clientId"`
	SKUID           string `json:"skuId"`
	LocationID      string `json:"locationId"`
	QtyDelta        int    `json:"qtyDelta"`
	TransactionType string `json:"transactionType"`
	ReasonCode      string `json:"reasonCode,omitempty"`
	SourceType      string `json:"sourceType,omitempty"`
	SourceRef       string `json:"sourceRef,omitempty"`
}

// ASNStatusData represents the data payload for ASN lifecycle events
type ASNStatusData struct {
	ASNID    string `json:"asnId"`
	ClientID string `json:"clientId"`
	Status   string `json:"status"`
}

// DiscrepancyStatusData represents the data payload for discrepancy lifecycle events
type DiscrepancyStatusData struct {
	DiscrepancyID string `json:"discrepancyId"`
	ClientID      string `json:"clientId"`
	ASNID         string `json:"asnId,omitempty"`
	SKUID         string `json:"skuId"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Decision      string `json:"decision,omitempty"`
}

// ReturnReceivedData represents the data payload for ReturnReceived
type ReturnReceivedData struct {
	ReturnID        string `json:"returnId"`
	ClientID        string `json:"clientId"`
	ShopifyReturnID string `json:"shopifyReturnId"`
	LineCount       int    `json:"lineCount"`
}

// StoreConnectedData represents the data payload for StoreConnected
type StoreConnectedData struct {
	ConnectionID string `json:"connectionId"`
	ClientID     string `json:"clientId"`
	ShopDomain   string `json:"shopDomain"`
}
