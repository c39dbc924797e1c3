package application

import (
	"context"
	"time"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/errors"
	"github.com/fulfillment-platform/portal/pkg/logging"
	"github.com/fulfillment-platform/portal/pkg/metrics"
)

// ReceivingService drives the ASN receiving lifecycle: counting, per-unit
// inspection, and the ledger and discrepancy effects of completion.
type ReceivingService struct {
	asns          domain.ASNRepository
	skus          domain.SKURepository
	discrepancies domain.DiscrepancyRepository
	photos        domain.PhotoRepository
	inventory     *InventoryService
	publisher     domain.EventPublisher
	logger        *logging.Logger
	metrics       *metrics.Metrics
}

// NewReceivingService creates a new ReceivingService
func NewReceivingService(
	asns domain.ASNRepository,
	skus domain.SKURepository,
	discrepancies domain.DiscrepancyRepository,
	photos domain.PhotoRepository,
	inventory *InventoryService,
	publisher domain.EventPublisher,
	logger *logging.Logger,
	m *metrics.Metrics,
) *ReceivingService {
	return &ReceivingService{
		asns:          asns,
		skus:          skus,
		discrepancies: discrepancies,
		photos:        photos,
		inventory:     inventory,
		publisher:     publisher,
		logger:        logger,
		metrics:       m,
	}
}

// CreateASN schedules an inbound shipment
func (s *ReceivingService) CreateASN(ctx context.Context, cmd CreateASNCommand) (*domain.ASN, error) {
	lines := make([]domain.ASNLine, 0, len(cmd.Lines))
	for _, input := range cmd.Lines {
		sku, err := s.skus.FindByID(ctx, cmd.ClientID, input.SKUID)
		if err != nil {
			return nil, errors.MapDomainError(err)
		}
		if !sku.IsActive() {
			return nil, errors.ErrUnprocessable("sku is deleted: " + input.SKUID)
		}
		lines = append(lines, domain.ASNLine{
			SKUID:            sku.SKUID,
			ClientSKU:        sku.ClientSKU,
			ExpectedQuantity: input.ExpectedQuantity,
		})
	}

	asn, err := domain.NewASN(cmd.ClientID, cmd.ASNNumber, cmd.TrackingNumber, cmd.Carrier, cmd.ETA, lines)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.asns.Save(ctx, asn); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, asn.GetDomainEvents())
	asn.ClearDomainEvents()

	s.logger.WithContext(ctx).Info("Created ASN",
		"asnId", asn.ASNID,
		"clientId", cmd.ClientID,
		"lineCount", len(lines),
	)

	return asn, nil
}

// StartReceiving begins counting against an ASN
func (s *ReceivingService) StartReceiving(ctx context.Context, clientID, asnID string) (*domain.ASN, error) {
	asn, err := s.asns.FindByID(ctx, clientID, asnID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := asn.StartReceiving(); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.asns.Save(ctx, asn); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, asn.GetDomainEvents())
	asn.ClearDomainEvents()

	return asn, nil
}

// RecordReceipt counts received good units for a line
func (s *ReceivingService) RecordReceipt(ctx context.Context, cmd RecordReceiptCommand) (*domain.ASN, error) {
	asn, err := s.asns.FindByID(ctx, cmd.ClientID, cmd.ASNID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := asn.RecordReceipt(cmd.SKUID, cmd.Quantity); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.asns.Save(ctx, asn); err != nil {
		return nil, err
	}

	return asn, nil
}

// RecordInspection records one per-unit condition outcome, persisting the
// photo metadata alongside the ASN
func (s *ReceivingService) RecordInspection(ctx context.Context, cmd RecordInspectionCommand) (*domain.ASN, error) {
	asn, err := s.asns.FindByID(ctx, cmd.ClientID, cmd.ASNID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := asn.RecordInspection(cmd.SKUID, cmd.Passed, cmd.Quarantined, cmd.PhotoPath, cmd.InspectedBy, cmd.Notes); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.asns.Save(ctx, asn); err != nil {
		return nil, err
	}

	if cmd.PhotoPath != "" {
		photo := domain.NewQCPhoto(cmd.ClientID, cmd.PhotoPath, domain.SourceReceiving, asn.ASNID)
		if err := s.photos.Save(ctx, photo); err != nil {
			// Photo metadata is advisory for the retention sweep; the
			// inspection itself already persisted
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to save QC photo metadata",
				"asnId", asn.ASNID,
				"photoPath", cmd.PhotoPath,
			)
		}
	}

	return asn, nil
}

// CompleteReceiving closes out counting, appends the ledger effects, and
// raises one discrepancy row per SKU and type
func (s *ReceivingService) CompleteReceiving(ctx context.Context, cmd CompleteReceivingCommand) (*domain.ASN, error) {
	asn, err := s.asns.FindByID(ctx, cmd.ClientID, cmd.ASNID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := asn.CompleteReceiving(); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.asns.Save(ctx, asn); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, asn.GetDomainEvents())
	asn.ClearDomainEvents()

	if err := s.appendReceivingEntries(ctx, asn, cmd.LocationID); err != nil {
		return nil, err
	}

	if err := s.raiseDiscrepancies(ctx, asn); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("Receiving completed",
		"asnId", asn.ASNID,
		"clientId", asn.ClientID,
		"status", asn.Status,
	)

	return asn, nil
}

// ForceClose is the admin manual resolution of an issue ASN
func (s *ReceivingService) ForceClose(ctx context.Context, cmd ForceCloseASNCommand) (*domain.ASN, error) {
	asn, err := s.asns.FindByID(ctx, cmd.ClientID, cmd.ASNID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := asn.ForceClose(cmd.Notes, cmd.AdminID); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.asns.Save(ctx, asn); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, asn.GetDomainEvents())
	asn.ClearDomainEvents()

	s.logger.Audit(ctx, "asn_force_close", "asn", asn.ASNID, cmd.AdminID, map[string]any{
		"clientId": cmd.ClientID,
		"notes":    cmd.Notes,
	})

	return asn, nil
}

// CloseASN closes a completed ASN
func (s *ReceivingService) CloseASN(ctx context.Context, clientID, asnID string) (*domain.ASN, error) {
	asn, err := s.asns.FindByID(ctx, clientID, asnID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := asn.Close(); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.asns.Save(ctx, asn); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, asn.GetDomainEvents())
	asn.ClearDomainEvents()

	return asn, nil
}

// GetASN fetches one ASN scoped to a client
func (s *ReceivingService) GetASN(ctx context.Context, clientID, asnID string) (*domain.ASN, error) {
	asn, err := s.asns.FindByID(ctx, clientID, asnID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}
	return asn, nil
}

// ListASNs lists a client's ASNs, optionally filtered by status
func (s *ReceivingService) ListASNs(ctx context.Context, clientID string, status *domain.ASNStatus, pagination domain.Pagination) ([]*domain.ASN, error) {
	return s.asns.FindByClient(ctx, clientID, status, pagination)
}

// CountExpected returns the expected-ASN count for dashboard badges
func (s *ReceivingService) CountExpected(ctx context.Context, clientID string) (int64, error) {
	return s.asns.CountExpected(ctx, clientID)
}

// QCPhotoView is a QC photo with its retention advisory. ExpiringSoon turns on
// during the last five days before the sweep deletes the photo.
type QCPhotoView struct {
	ID           string    `json:"id"`
	FilePath     string    `json:"filePath"`
	SourceType   string    `json:"sourceType"`
	SourceRef    string    `json:"sourceRef,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiringSoon bool      `json:"expiringSoon"`
}

// ListPhotos returns the QC photos captured while receiving an ASN
func (s *ReceivingService) ListPhotos(ctx context.Context, clientID, asnID string) ([]QCPhotoView, error) {
	if _, err := s.asns.FindByID(ctx, clientID, asnID); err != nil {
		return nil, errors.MapDomainError(err)
	}

	photos, err := s.photos.FindBySource(ctx, clientID, domain.SourceReceiving, asnID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	views := make([]QCPhotoView, 0, len(photos))
	for _, p := range photos {
		views = append(views, QCPhotoView{
			ID:           p.ID.Hex(),
			FilePath:     p.FilePath,
			SourceType:   p.SourceType,
			SourceRef:    p.SourceRef,
			CreatedAt:    p.CreatedAt,
			ExpiringSoon: p.NearExpiry(now),
		})
	}

	return views, nil
}

// appendReceivingEntries writes the ledger effects of completion: good units
// into the receiving location, failed units into the damaged hold
func (s *ReceivingService) appendReceivingEntries(ctx context.Context, asn *domain.ASN, locationID string) error {
	entries := make([]*domain.LedgerEntry, 0)

	for skuID, qty := range asn.GoodUnits() {
		entry, err := domain.NewLedgerEntry(asn.ClientID, skuID, locationID, qty,
			domain.TransactionReceiving, "", domain.SourceReceiving, asn.ASNID)
		if err != nil {
			return errors.MapDomainError(err)
		}
		entries = append(entries, entry)
	}

	for skuID, qty := range asn.FailedUnits() {
		entry, err := domain.NewLedgerEntry(asn.ClientID, skuID, domain.DamagedLocationID, qty,
			domain.TransactionDamageRemoval, domain.ReasonDamagedInTransit, domain.SourceReceiving, asn.ASNID)
		if err != nil {
			return errors.MapDomainError(err)
		}
		entries = append(entries, entry)
	}

	return s.inventory.AppendEntries(ctx, entries)
}

// raiseDiscrepancies creates one row per SKU and type from the variance
// summaries. Damaged, missing and quarantined stay separate rows.
func (s *ReceivingService) raiseDiscrepancies(ctx context.Context, asn *domain.ASN) error {
	for _, summary := range asn.VarianceSummaries() {
		byType := map[domain.DiscrepancyType]int{
			domain.DiscrepancyMissing:     summary.MissingQty,
			domain.DiscrepancyDamaged:     summary.DamagedQty,
			domain.DiscrepancyQuarantined: summary.QuarantinedQty,
		}

		for dType, qty := range byType {
			if qty == 0 {
				continue
			}

			d, err := domain.NewDiscrepancy(asn.ClientID, summary.SKUID, asn.ASNID, dType, qty,
				domain.SourceReceiving, asn.ASNID, summary.PhotoPaths)
			if err != nil {
				return errors.MapDomainError(err)
			}

			if err := s.discrepancies.Save(ctx, d); err != nil {
				return err
			}
			s.publishEvents(ctx, d.GetDomainEvents())
			d.ClearDomainEvents()

			if s.metrics != nil {
				s.metrics.RecordDiscrepancyOpened(string(dType), domain.SourceReceiving)
			}
		}
	}

	return nil
}

func (s *ReceivingService) publishEvents(ctx context.Context, events []domain.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.PublishAll(ctx, events); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to publish domain events")
	}
}
