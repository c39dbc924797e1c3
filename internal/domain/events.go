package domain

import "time"

// DomainEvent represents a domain event interface
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// LedgerEntryAppendedEvent is emitted after a ledger entry commits
type LedgerEntryAppendedEvent struct {
	EntryID         string    `json:"entryId"`
	ClientID        string    `json:"clientId"`
	SKUID           string    `json:"skuId"`
	LocationID      string    `json:"locationId"`
	QtyDelta        int       `json:"qtyDelta"`
	TransactionType string    `json:"transactionType"`
	SourceType      string    `json:"sourceType"`
	OccurredAt_     time.Time `json:"occurredAt"`
}

func (e *LedgerEntryAppendedEvent) EventType() string     { return "portal.ledger.entry_appended" }
func (e *LedgerEntryAppendedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// InventoryPushRequestedEvent requests an async external platform push for
// one SKU. Fire-and-forget relative to the ledger write that raised it.
type InventoryPushRequestedEvent struct {
	ClientID    string    `json:"clientId"`
	SKUID       string    `json:"skuId"`
	Reason      string    `json:"reason"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *InventoryPushRequestedEvent) EventType() string     { return "portal.inventory.push_requested" }
func (e *InventoryPushRequestedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// ASNCreatedEvent is emitted when a client schedules an inbound shipment
type ASNCreatedEvent struct {
	ASNID       string    `json:"asnId"`
	ClientID    string    `json:"clientId"`
	ASNNumber   string    `json:"asnNumber"`
	LineCount   int       `json:"lineCount"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *ASNCreatedEvent) EventType() string     { return "portal.asn.created" }
func (e *ASNCreatedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// ASNReceivingStartedEvent is emitted when warehouse staff begin receiving
type ASNReceivingStartedEvent struct {
	ASNID       string    `json:"asnId"`
	ClientID    string    `json:"clientId"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *ASNReceivingStartedEvent) EventType() string     { return "portal.asn.receiving_started" }
func (e *ASNReceivingStartedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// ASNReceivingCompletedEvent is emitted when receiving finishes clean
type ASNReceivingCompletedEvent struct {
	ASNID       string    `json:"asnId"`
	ClientID    string    `json:"clientId"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *ASNReceivingCompletedEvent) EventType() string     { return "portal.asn.receiving_completed" }
func (e *ASNReceivingCompletedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// ASNIssueFlaggedEvent is emitted when receiving lands in issue status
type ASNIssueFlaggedEvent struct {
	ASNID       string            `json:"asnId"`
	ClientID    string            `json:"clientId"`
	Summaries   []VarianceSummary `json:"summaries"`
	OccurredAt_ time.Time         `json:"occurredAt"`
}

func (e *ASNIssueFlaggedEvent) EventType() string     { return "portal.asn.issue_flagged" }
func (e *ASNIssueFlaggedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// ASNClosedEvent is emitted on normal or forced closure
type ASNClosedEvent struct {
	ASNID       string    `json:"asnId"`
	ClientID    string    `json:"clientId"`
	Forced      bool      `json:"forced"`
	ResolvedBy  string    `json:"resolvedBy,omitempty"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *ASNClosedEvent) EventType() string     { return "portal.asn.closed" }
func (e *ASNClosedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// DiscrepancyCreatedEvent is emitted when receiving or returns flag a mismatch
type DiscrepancyCreatedEvent struct {
	DiscrepancyID string    `json:"discrepancyId"`
	ClientID      string    `json:"clientId"`
	SKUID         string    `json:"skuId"`
	ASNID         string    `json:"asnId,omitempty"`
	Type          string    `json:"type"`
	Quantity      int       `json:"quantity"`
	SourceType    string    `json:"sourceType"`
	OccurredAt_   time.Time `json:"occurredAt"`
}

func (e *DiscrepancyCreatedEvent) EventType() string     { return "portal.discrepancy.created" }
func (e *DiscrepancyCreatedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// DiscrepancySubmittedEvent is emitted when the client records a decision
type DiscrepancySubmittedEvent struct {
	DiscrepancyID string    `json:"discrepancyId"`
	ClientID      string    `json:"clientId"`
	Decision      string    `json:"decision"`
	OccurredAt_   time.Time `json:"occurredAt"`
}

func (e *DiscrepancySubmittedEvent) EventType() string     { return "portal.discrepancy.submitted" }
func (e *DiscrepancySubmittedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// DiscrepancyProcessedEvent is emitted when an admin acts on a decision
type DiscrepancyProcessedEvent struct {
	DiscrepancyID string    `json:"discrepancyId"`
	ClientID      string    `json:"clientId"`
	OccurredAt_   time.Time `json:"occurredAt"`
}

func (e *DiscrepancyProcessedEvent) EventType() string     { return "portal.discrepancy.processed" }
func (e *DiscrepancyProcessedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// DiscrepancyReopenedEvent is emitted on the closed -> pending admin path
type DiscrepancyReopenedEvent struct {
	DiscrepancyID string    `json:"discrepancyId"`
	ClientID      string    `json:"clientId"`
	ReopenedCount int       `json:"reopenedCount"`
	OccurredAt_   time.Time `json:"occurredAt"`
}

func (e *DiscrepancyReopenedEvent) EventType() string     { return "portal.discrepancy.reopened" }
func (e *DiscrepancyReopenedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// ReturnReceivedEvent is emitted when a platform return is first persisted
type ReturnReceivedEvent struct {
	ClientID        string    `json:"clientId"`
	ShopifyReturnID string    `json:"shopifyReturnId"`
	ShopifyOrderID  string    `json:"shopifyOrderId,omitempty"`
	Status          string    `json:"status"`
	LineCount       int       `json:"lineCount"`
	OccurredAt_     time.Time `json:"occurredAt"`
}

func (e *ReturnReceivedEvent) EventType() string     { return "portal.return.received" }
func (e *ReturnReceivedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// ReturnLineDispositionedEvent is emitted when a line reaches final
// disposition
type ReturnLineDispositionedEvent struct {
	ClientID        string    `json:"clientId"`
	ShopifyReturnID string    `json:"shopifyReturnId"`
	LineID          string    `json:"lineId"`
	SKUID           string    `json:"skuId,omitempty"`
	Outcome         string    `json:"outcome"`
	Quantity        int       `json:"quantity"`
	OccurredAt_     time.Time `json:"occurredAt"`
}

func (e *ReturnLineDispositionedEvent) EventType() string     { return "portal.return.line_dispositioned" }
func (e *ReturnLineDispositionedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// StoreConnectedEvent is emitted after a successful OAuth token exchange
type StoreConnectedEvent struct {
	ClientID    string    `json:"clientId"`
	ShopDomain  string    `json:"shopDomain"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *StoreConnectedEvent) EventType() string     { return "portal.store.connected" }
func (e *StoreConnectedEvent) OccurredAt() time.Time { return e.OccurredAt_ }
