package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for portal domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new PortalCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *PortalCloudEvent {
	return &PortalCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// CreateEventForClient creates an event carrying the client extension
func (f *EventFactory) CreateEventForClient(
	ctx context.Context,
	eventType string,
	subject string,
	clientID string,
	data interface{},
) *PortalCloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.ClientID = clientID
	return event
}

// CreateInventoryPushRequestedEvent creates an InventoryPushRequested event
func (f *EventFactory) CreateInventoryPushRequestedEvent(
	ctx context.Context,
	clientID string,
	skuID string,
	reason string,
) *PortalCloudEvent {
	data := InventoryPushRequestedData{
		ClientID: clientID,
		SKUID:    skuID,
		Reason:   reason,
	}
	return f.CreateEventForClient(ctx, InventoryPushRequested, "sku/"+skuID, clientID, data)
}

// CreateLedgerEntryAppendedEvent creates a LedgerEntryAppended event
func (f *EventFactory) CreateLedgerEntryAppendedEvent(
	ctx context.Context,
	entryID string,
	clientID string,
	skuID string,
	locationID string,
	qtyDelta int,
	transactionType string,
	reasonCode string,
	sourceType string,
	sourceRef string,
) *PortalCloudEvent {
	data := LedgerEntryAppendedData{
		EntryID:         entryID,
		ClientID:        clientID,
		SKUID:           skuID,
		LocationID:      locationID,
		QtyDelta:        qtyDelta,
		TransactionType: transactionType,
		ReasonCode:      reasonCode,
		SourceType:      sourceType,
		SourceRef:       sourceRef,
	}
	return f.CreateEventForClient(ctx, LedgerEntryAppended, "ledger/"+entryID, clientID, data)
}

// CreateASNStatusEvent creates an ASN lifecycle event of the given type
func (f *EventFactory) CreateASNStatusEvent(
	ctx context.Context,
	eventType string,
	asnID string,
	clientID string,
	status string,
) *PortalCloudEvent {
	data := ASNStatusData{
		ASNID:    asnID,
		ClientID: clientID,
		Status:   status,
	}
	return f.CreateEventForClient(ctx, eventType, "asn/"+asnID, clientID, data)
}

// CreateDiscrepancyStatusEvent creates a discrepancy lifecycle event of the given type
func (f *EventFactory) CreateDiscrepancyStatusEvent(
	ctx context.Context,
	eventType string,
	discrepancyID string,
	clientID string,
	asnID string,
	skuID string,
	discrepancyType string,
	status string,
	decision string,
) *PortalCloudEvent {
	data := DiscrepancyStatusData{
		DiscrepancyID: discrepancyID,
		ClientID:      clientID,
		ASNID:         asnID,
		SKUID:         skuID,
		Type:          discrepancyType,
		Status:        status,
		Decision:      decision,
	}
	return f.CreateEventForClient(ctx, eventType, "discrepancy/"+discrepancyID, clientID, data)
}

// CreateReturnReceivedEvent creates a ReturnReceived event
func (f *EventFactory) CreateReturnReceivedEvent(
	ctx context.Context,
	returnID string,
	clientID string,
	shopifyReturnID string,
	lineCount int,
) *PortalCloudEvent {
	data := ReturnReceivedData{
		ReturnID:        returnID,
		ClientID:        clientID,
		ShopifyReturnID: shopifyReturnID,
		LineCount:       lineCount,
	}
	return f.CreateEventForClient(ctx, ReturnReceived, "return/"+returnID, clientID, data)
}

// CreateStoreConnectedEvent creates a StoreConnected event
func (f *EventFactory) CreateStoreConnectedEvent(
	ctx context.Context,
	connectionID string,
	clientID string,
	shopDomain string,
) *PortalCloudEvent {
	data := StoreConnectedData{
		ConnectionID: connectionID,
		ClientID:     clientID,
		ShopDomain:   shopDomain,
	}
	return f.CreateEventForClient(ctx, StoreConnected, "connection/"+connectionID, clientID, data)
}
