package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/cloudevents"
)

func newInventoryFixture(t *testing.T) (*InventoryService, *fakeLedgerStore) {
	t.Helper()
	store := &fakeLedgerStore{}
	service := NewInventoryService(store, cloudevents.NewEventFactory("portal/test"), testLogger(), nil)
	return service, store
}

func TestAppendEntryAndQuantity(t *testing.T) {
	service, store := newInventoryFixture(t)
	ctx := context.Background()

	cmd := AppendEntryCommand{
		ClientID:        "CL-001",
		SKUID:           "SKU-1",
		LocationID:      "A-01-01-B1",
		QtyDelta:        10,
		TransactionType: domain.TransactionReceiving,
		SourceType:      domain.SourceReceiving,
		SourceRef:       "ASN-1",
	}

	entry, err := service.Append(ctx, cmd)
	require.NoError(t, err)
	assert.Contains(t, entry.EntryID, "LE-")

	cmd.QtyDelta = -4
	cmd.TransactionType = domain.TransactionShipment
	cmd.SourceType = domain.SourceShipment
	cmd.SourceRef = "SHIP-1"
	_, err = service.Append(ctx, cmd)
	require.NoError(t, err)

	qty, err := service.CurrentQuantity(ctx, "CL-001", "SKU-1", "")
	require.NoError(t, err)
	assert.Equal(t, 6, qty)

	// Both entries retained; corrections are appends, never updates
	assert.Len(t, store.entries, 2)
}

func TestAppendRejectsInvalidEntries(t *testing.T) {
	service, store := newInventoryFixture(t)
	ctx := context.Background()

	// Sign mismatch
	_, err := service.Append(ctx, AppendEntryCommand{
		ClientID:        "CL-001",
		SKUID:           "SKU-1",
		LocationID:      "A-01-01-B1",
		QtyDelta:        -5,
		TransactionType: domain.TransactionReceiving,
		SourceType:      domain.SourceReceiving,
	})
	require.Error(t, err)

	// Zero delta
	_, err = service.Append(ctx, AppendEntryCommand{
		ClientID:        "CL-001",
		SKUID:           "SKU-1",
		LocationID:      "A-01-01-B1",
		QtyDelta:        0,
		TransactionType: domain.TransactionAdjustmentPlus,
		SourceType:      domain.SourceAdjustment,
	})
	require.Error(t, err)

	assert.Empty(t, store.entries)
}

func TestAppendEntriesDeduplicatesPushPerSKU(t *testing.T) {
	service, store := newInventoryFixture(t)
	ctx := context.Background()

	mk := func(skuID, locationID string, delta int) *domain.LedgerEntry {
		entry, err := domain.NewLedgerEntry("CL-001", skuID, locationID, delta,
			domain.TransactionReceiving, "", domain.SourceReceiving, "ASN-1")
		require.NoError(t, err)
		return entry
	}

	entries := []*domain.LedgerEntry{
		mk("SKU-1", "A-01-01-B1", 5),
		mk("SKU-1", "A-01-02-B1", 3),
		mk("SKU-2", "A-01-01-B1", 7),
	}
	require.NoError(t, service.AppendEntries(ctx, entries))

	// One appended event per entry, one push per distinct SKU
	assert.Len(t, store.events, 5)
	assert.Equal(t, 2, store.pushEventCount())
}

func TestAppendEntriesSkipsPushForDamagedHold(t *testing.T) {
	service, store := newInventoryFixture(t)
	ctx := context.Background()

	entry, err := domain.NewLedgerEntry("CL-001", "SKU-1", domain.DamagedLocationID, 2,
		domain.TransactionDamageRemoval, domain.ReasonDamagedOnReturn, domain.SourceReturn, "RET-1")
	require.NoError(t, err)

	require.NoError(t, service.AppendEntries(ctx, []*domain.LedgerEntry{entry}))
	assert.Equal(t, 0, store.pushEventCount())
	assert.Len(t, store.events, 1)
}

func TestRestoreCancelledShipment(t *testing.T) {
	service, store := newInventoryFixture(t)
	ctx := context.Background()

	entries, err := service.Restore(ctx, RestoreShipmentCommand{
		ClientID:   "CL-001",
		ShipmentID: "SHIP-9",
		Lines: []RestoreLineInput{
			{SKUID: "SKU-1", LocationID: "A-01-01-B1", Quantity: 2},
			{SKUID: "SKU-2", LocationID: "A-01-02-B1", Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	for _, entry := range entries {
		assert.Equal(t, domain.TransactionAdjustmentPlus, entry.TransactionType)
		assert.Equal(t, domain.ReasonShipmentCancelled, entry.ReasonCode)
		assert.Equal(t, domain.SourceShipment, entry.SourceType)
		assert.Equal(t, "SHIP-9", entry.SourceRef)
	}

	found, err := store.FindBySourceRef(ctx, "CL-001", domain.SourceShipment, "SHIP-9")
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, 2, store.pushEventCount())
}
