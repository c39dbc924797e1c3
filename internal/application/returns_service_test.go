package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/cloudevents"
)

type returnsFixture struct {
	service       *ReturnsService
	returns       *fakeReturnRepo
	discrepancies *fakeDiscrepancyRepo
	photos        *fakePhotoRepo
	ledger        *fakeLedgerStore
	aliases       *fakeAliasRepo
	skus          *fakeSKURepo
	publisher     *fakePublisher
}

func newReturnsFixture(t *testing.T) *returnsFixture {
	t.Helper()

	logger := testLogger()
	f := &returnsFixture{
		returns:       newFakeReturnRepo(),
		discrepancies: &fakeDiscrepancyRepo{},
		photos:        &fakePhotoRepo{},
		ledger:        &fakeLedgerStore{},
		aliases:       &fakeAliasRepo{},
		skus:          newFakeSKURepo(),
		publisher:     &fakePublisher{},
	}

	factory := cloudevents.NewEventFactory("portal/test")
	inventory := NewInventoryService(f.ledger, factory, logger, nil)
	resolver := NewAliasResolver(f.aliases, f.skus, logger, nil)

	f.service = NewReturnsService(f.returns, f.discrepancies, f.photos, resolver,
		inventory, f.publisher, logger, nil)
	return f
}

func ingestCommand(shopifyReturnID string, lines ...ReturnLineInput) IngestReturnCommand {
	return IngestReturnCommand{
		ClientID:        "CL-001",
		ShopifyReturnID: shopifyReturnID,
		ShopifyOrderID:  "ORD-77",
		Status:          string(domain.ReturnStatusRequested),
		Lines:           lines,
	}
}

func TestIngestFirstDeliveryResolvesLines(t *testing.T) {
	f := newReturnsFixture(t)
	ctx := context.Background()

	sku := seedSKU(t, f.skus, "CL-001", "WIDGET-RED")
	seedAlias(t, f.aliases, "CL-001", sku.SKUID, domain.AliasShopifyVariantID, "42424242")

	r, err := f.service.Ingest(ctx, ingestCommand("RET-100",
		ReturnLineInput{
			ExternalLineID: "ext-1",
			Identifiers:    domain.ExternalIdentifiers{VariantID: "42424242"},
			ExpectedQty:    2,
		},
		ReturnLineInput{
			ExternalLineID: "ext-2",
			Identifiers:    domain.ExternalIdentifiers{SKU: "NO-SUCH-SKU"},
			ExpectedQty:    1,
		},
	))
	require.NoError(t, err)
	require.Len(t, r.Lines, 2)

	assert.True(t, r.Lines[0].SKUMatched)
	assert.Equal(t, sku.SKUID, r.Lines[0].SKUID)
	assert.Equal(t, domain.LineStageReceived, r.Lines[0].Stage)

	// Unmatched lines are kept with no SKU association, never fabricated
	assert.False(t, r.Lines[1].SKUMatched)
	assert.Empty(t, r.Lines[1].SKUID)

	assert.NotEmpty(t, f.publisher.events)
}

func TestIngestRedeliveryIsStatusOnly(t *testing.T) {
	f := newReturnsFixture(t)
	ctx := context.Background()

	first, err := f.service.Ingest(ctx, ingestCommand("RET-100",
		ReturnLineInput{ExternalLineID: "ext-1", ExpectedQty: 2},
	))
	require.NoError(t, err)
	firstLineID := first.Lines[0].LineID

	// Redelivery with a changed status and mutated lines: only the status
	// moves, lines are untouched
	cmd := ingestCommand("RET-100",
		ReturnLineInput{ExternalLineID: "ext-1", ExpectedQty: 99},
		ReturnLineInput{ExternalLineID: "ext-2", ExpectedQty: 5},
	)
	cmd.Status = string(domain.ReturnStatusApproved)

	second, err := f.service.Ingest(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, domain.ReturnStatusApproved, second.Status)
	require.Len(t, second.Lines, 1)
	assert.Equal(t, firstLineID, second.Lines[0].LineID)
	assert.Equal(t, 2, second.Lines[0].ExpectedQty)

	// Identical redelivery is a no-op
	third, err := f.service.Ingest(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnStatusApproved, third.Status)
}

func TestInspectLineRequiresPhoto(t *testing.T) {
	f := newReturnsFixture(t)
	ctx := context.Background()

	r, err := f.service.Ingest(ctx, ingestCommand("RET-100",
		ReturnLineInput{ExternalLineID: "ext-1", ExpectedQty: 1},
	))
	require.NoError(t, err)

	_, err = f.service.InspectLine(ctx, InspectReturnLineCommand{
		ClientID:        "CL-001",
		ShopifyReturnID: "RET-100",
		LineID:          r.Lines[0].LineID,
		Outcome:         string(domain.OutcomeResellable),
		RestockLocation: "A-01-01-B1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "photo")
}

func TestInspectResellableLineRestocks(t *testing.T) {
	f := newReturnsFixture(t)
	ctx := context.Background()

	sku := seedSKU(t, f.skus, "CL-001", "WIDGET-RED")
	seedAlias(t, f.aliases, "CL-001", sku.SKUID, domain.AliasShopifyVariantID, "42424242")

	r, err := f.service.Ingest(ctx, ingestCommand("RET-100",
		ReturnLineInput{
			ExternalLineID: "ext-1",
			Identifiers:    domain.ExternalIdentifiers{VariantID: "42424242"},
			ExpectedQty:    3,
		},
	))
	require.NoError(t, err)
	lineID := r.Lines[0].LineID

	_, err = f.service.AttachPhoto(ctx, AttachReturnPhotoCommand{
		ClientID:        "CL-001",
		ShopifyReturnID: "RET-100",
		LineID:          lineID,
		PhotoPath:       "returns/RET-100/1.jpg",
	})
	require.NoError(t, err)

	updated, err := f.service.InspectLine(ctx, InspectReturnLineCommand{
		ClientID:        "CL-001",
		ShopifyReturnID: "RET-100",
		LineID:          lineID,
		Outcome:         string(domain.OutcomeResellable),
		InspectedBy:     "user-7",
		RestockLocation: "A-01-01-B1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LineStageFinalDisposition, updated.Lines[0].Stage)
	assert.Equal(t, domain.OutcomeResellable, updated.Lines[0].Outcome)

	// Exactly one restock entry at the given location, and a push request
	require.Len(t, f.ledger.entries, 1)
	entry := f.ledger.entries[0]
	assert.Equal(t, domain.TransactionReturnRestock, entry.TransactionType)
	assert.Equal(t, "A-01-01-B1", entry.LocationID)
	assert.Equal(t, 3, entry.QtyDelta)
	assert.Equal(t, domain.SourceReturn, entry.SourceType)
	assert.Equal(t, "RET-100", entry.SourceRef)
	assert.Equal(t, 1, f.ledger.pushEventCount())

	// No discrepancy for the resellable branch
	assert.Empty(t, f.discrepancies.rows)
}

func TestInspectDamagedLineMovesToHoldAndRaisesDiscrepancy(t *testing.T) {
	f := newReturnsFixture(t)
	ctx := context.Background()

	sku := seedSKU(t, f.skus, "CL-001", "WIDGET-RED")
	seedAlias(t, f.aliases, "CL-001", sku.SKUID, domain.AliasShopifyVariantID, "42424242")

	r, err := f.service.Ingest(ctx, ingestCommand("RET-100",
		ReturnLineInput{
			ExternalLineID: "ext-1",
			Identifiers:    domain.ExternalIdentifiers{VariantID: "42424242"},
			ExpectedQty:    2,
		},
	))
	require.NoError(t, err)
	lineID := r.Lines[0].LineID

	_, err = f.service.AttachPhoto(ctx, AttachReturnPhotoCommand{
		ClientID:        "CL-001",
		ShopifyReturnID: "RET-100",
		LineID:          lineID,
		PhotoPath:       "returns/RET-100/1.jpg",
	})
	require.NoError(t, err)

	updated, err := f.service.InspectLine(ctx, InspectReturnLineCommand{
		ClientID:        "CL-001",
		ShopifyReturnID: "RET-100",
		LineID:          lineID,
		Outcome:         string(domain.OutcomeDamaged),
		InspectedBy:     "user-7",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LineStageFinalDisposition, updated.Lines[0].Stage)

	// Damaged branch: entry lands in the hold location and never requests a
	// platform push
	require.Len(t, f.ledger.entries, 1)
	entry := f.ledger.entries[0]
	assert.Equal(t, domain.DamagedLocationID, entry.LocationID)
	assert.Equal(t, domain.TransactionDamageRemoval, entry.TransactionType)
	assert.Equal(t, domain.ReasonDamagedOnReturn, entry.ReasonCode)
	assert.Equal(t, 0, f.ledger.pushEventCount())

	require.Len(t, f.discrepancies.rows, 1)
	d := f.discrepancies.rows[0]
	assert.Equal(t, domain.DiscrepancyDamaged, d.Type)
	assert.Equal(t, 2, d.Quantity)
	assert.Equal(t, domain.SourceReturn, d.SourceType)
	assert.Equal(t, "RET-100", d.SourceRef)
	assert.NotEmpty(t, d.QCPhotoURLs)
}

func TestInspectLineAppliesExactlyOneBranch(t *testing.T) {
	f := newReturnsFixture(t)
	ctx := context.Background()

	r, err := f.service.Ingest(ctx, ingestCommand("RET-100",
		ReturnLineInput{ExternalLineID: "ext-1", ExpectedQty: 1},
	))
	require.NoError(t, err)
	lineID := r.Lines[0].LineID

	_, err = f.service.AttachPhoto(ctx, AttachReturnPhotoCommand{
		ClientID:        "CL-001",
		ShopifyReturnID: "RET-100",
		LineID:          lineID,
		PhotoPath:       "returns/RET-100/1.jpg",
	})
	require.NoError(t, err)

	_, err = f.service.InspectLine(ctx, InspectReturnLineCommand{
		ClientID:        "CL-001",
		ShopifyReturnID: "RET-100",
		LineID:          lineID,
		Outcome:         string(domain.OutcomeResellable),
		RestockLocation: "A-01-01-B1",
	})
	require.NoError(t, err)

	// A second inspection of the same line is rejected
	_, err = f.service.InspectLine(ctx, InspectReturnLineCommand{
		ClientID:        "CL-001",
		ShopifyReturnID: "RET-100",
		LineID:          lineID,
		Outcome:         string(domain.OutcomeDamaged),
	})
	require.Error(t, err)
}

func TestInspectUnmatchedLineSkipsLedger(t *testing.T) {
	f := newReturnsFixture(t)
	ctx := context.Background()

	r, err := f.service.Ingest(ctx, ingestCommand("RET-100",
		ReturnLineInput{
			ExternalLineID: "ext-1",
			Identifiers:    domain.ExternalIdentifiers{SKU: "NO-SUCH-SKU"},
			ExpectedQty:    2,
		},
	))
	require.NoError(t, err)
	lineID := r.Lines[0].LineID

	_, err = f.service.AttachPhoto(ctx, AttachReturnPhotoCommand{
		ClientID:        "CL-001",
		ShopifyReturnID: "RET-100",
		LineID:          lineID,
		PhotoPath:       "returns/RET-100/1.jpg",
	})
	require.NoError(t, err)

	updated, err := f.service.InspectLine(ctx, InspectReturnLineCommand{
		ClientID:        "CL-001",
		ShopifyReturnID: "RET-100",
		LineID:          lineID,
		Outcome:         string(domain.OutcomeResellable),
		RestockLocation: "A-01-01-B1",
	})
	require.NoError(t, err)

	// The line still completes its pipeline but no quantity moves
	assert.Equal(t, domain.LineStageFinalDisposition, updated.Lines[0].Stage)
	assert.Empty(t, f.ledger.entries)
}

func TestAttachPhotoRecordsMetadata(t *testing.T) {
	f := newReturnsFixture(t)
	ctx := context.Background()

	r, err := f.service.Ingest(ctx, ingestCommand("RET-100",
		ReturnLineInput{ExternalLineID: "ext-1", ExpectedQty: 1},
	))
	require.NoError(t, err)

	updated, err := f.service.AttachPhoto(ctx, AttachReturnPhotoCommand{
		ClientID:        "CL-001",
		ShopifyReturnID: "RET-100",
		LineID:          r.Lines[0].LineID,
		PhotoPath:       "returns/RET-100/1.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LineStageQCPhotographed, updated.Lines[0].Stage)

	photos, err := f.photos.FindBySource(ctx, "CL-001", domain.SourceReturn, "RET-100")
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "returns/RET-100/1.jpg", photos[0].FilePath)
}
