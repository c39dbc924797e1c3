package application

import (
	"context"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/cloudevents"
	"github.com/fulfillment-platform/portal/pkg/errors"
	"github.com/fulfillment-platform/portal/pkg/kafka"
	"github.com/fulfillment-platform/portal/pkg/logging"
	"github.com/fulfillment-platform/portal/pkg/metrics"
	"github.com/fulfillment-platform/portal/pkg/outbox"
)

// All portal events flow through the inventory events topic
var outboxTopic = kafka.Topics.InventoryEvents

// LedgerStore extends the ledger repository with transactional outbox writes:
// entries and their push-request events commit or fail together.
type LedgerStore interface {
	domain.LedgerRepository
	AppendWithEvents(ctx context.Context, entries []*domain.LedgerEntry, events []*outbox.OutboxEvent) error
}

// InventoryService owns all writes to the inventory ledger. Every mutation
// that changes sellable stock enqueues an external push per affected SKU via
// the outbox; the ledger commit never blocks on or rolls back for the push.
type InventoryService struct {
	store   LedgerStore
	factory *cloudevents.EventFactory
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(store LedgerStore, factory *cloudevents.EventFactory, logger *logging.Logger, m *metrics.Metrics) *InventoryService {
	return &InventoryService{
		store:   store,
		factory: factory,
		logger:  logger,
		metrics: m,
	}
}

// Append appends one ledger entry and enqueues a push when it touches
// sellable stock
func (s *InventoryService) Append(ctx context.Context, cmd AppendEntryCommand) (*domain.LedgerEntry, error) {
	entry, err := domain.NewLedgerEntry(cmd.ClientID, cmd.SKUID, cmd.LocationID, cmd.QtyDelta,
		cmd.TransactionType, cmd.ReasonCode, cmd.SourceType, cmd.SourceRef)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.AppendEntries(ctx, []*domain.LedgerEntry{entry}); err != nil {
		return nil, err
	}

	return entry, nil
}

// AppendEntries atomically appends a batch of entries with their outbox
// events. Used by receiving completion and returns disposition, which write
// several entries per operation.
func (s *InventoryService) AppendEntries(ctx context.Context, entries []*domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	events, err := s.buildOutboxEvents(ctx, entries)
	if err != nil {
		return err
	}

	if err := s.store.AppendWithEvents(ctx, entries, events); err != nil {
		return err
	}

	for _, entry := range entries {
		if s.metrics != nil {
			s.metrics.RecordLedgerEntry(string(entry.TransactionType))
		}
		s.logger.WithContext(ctx).Info("Ledger entry appended",
			"entryId", entry.EntryID,
			"clientId", entry.ClientID,
			"skuId", entry.SKUID,
			"locationId", entry.LocationID,
			"qtyDelta", entry.QtyDelta,
			"transactionType", entry.TransactionType,
		)
	}

	return nil
}

// CurrentQuantity derives on-hand stock by summing deltas. locationID may be
// empty to sum across all locations.
func (s *InventoryService) CurrentQuantity(ctx context.Context, clientID, skuID, locationID string) (int, error) {
	return s.store.CurrentQuantity(ctx, clientID, skuID, locationID)
}

// History returns ledger entries for a SKU, newest first
func (s *InventoryService) History(ctx context.Context, clientID, skuID string, pagination domain.Pagination) ([]*domain.LedgerEntry, error) {
	return s.store.FindBySKU(ctx, clientID, skuID, pagination)
}

// Restore compensates a cancelled outbound shipment: one adjustment_plus
// entry per shipped line with reason shipment_cancelled, then a push per
// affected SKU.
func (s *InventoryService) Restore(ctx context.Context, cmd RestoreShipmentCommand) ([]*domain.LedgerEntry, error) {
	entries := make([]*domain.LedgerEntry, 0, len(cmd.Lines))
	for _, line := range cmd.Lines {
		entry, err := domain.NewLedgerEntry(cmd.ClientID, line.SKUID, line.LocationID, line.Quantity,
			domain.TransactionAdjustmentPlus, domain.ReasonShipmentCancelled, domain.SourceShipment, cmd.ShipmentID)
		if err != nil {
			return nil, errors.MapDomainError(err)
		}
		entries = append(entries, entry)
	}

	if err := s.AppendEntries(ctx, entries); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("Restored cancelled shipment",
		"clientId", cmd.ClientID,
		"shipmentId", cmd.ShipmentID,
		"lineCount", len(entries),
	)

	return entries, nil
}

// buildOutboxEvents produces the ledger-appended event for every entry plus
// one deduplicated push request per affected sellable SKU
func (s *InventoryService) buildOutboxEvents(ctx context.Context, entries []*domain.LedgerEntry) ([]*outbox.OutboxEvent, error) {
	events := make([]*outbox.OutboxEvent, 0, len(entries)*2)
	pushed := make(map[string]bool)

	for _, entry := range entries {
		appended := s.factory.CreateLedgerEntryAppendedEvent(ctx, entry.EntryID, entry.ClientID,
			entry.SKUID, entry.LocationID, entry.QtyDelta, string(entry.TransactionType),
			entry.ReasonCode, entry.SourceType, entry.SourceRef)

		oe, err := outbox.NewOutboxEventFromCloudEvent(entry.EntryID, "ledger_entry", outboxTopic, appended)
		if err != nil {
			return nil, err
		}
		events = append(events, oe)

		if !entry.AffectsSellableStock() || pushed[entry.SKUID] {
			continue
		}
		pushed[entry.SKUID] = true

		push := s.factory.CreateInventoryPushRequestedEvent(ctx, entry.ClientID, entry.SKUID, string(entry.TransactionType))
		pe, err := outbox.NewOutboxEventFromCloudEvent(entry.SKUID, "sku", outboxTopic, push)
		if err != nil {
			return nil, err
		}
		events = append(events, pe)
	}

	return events, nil
}
