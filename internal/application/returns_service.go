package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/errors"
	"github.com/fulfillment-platform/portal/pkg/logging"
	"github.com/fulfillment-platform/portal/pkg/metrics"
)

// ReturnsService runs the two-pathway returns pipeline: ingest platform
// returns idempotently, photograph and inspect lines, and route each line to
// exactly one of restock or damaged removal.
type ReturnsService struct {
	returns       domain.ReturnRepository
	discrepancies domain.DiscrepancyRepository
	photos        domain.PhotoRepository
	resolver      *AliasResolver
	inventory     *InventoryService
	publisher     domain.EventPublisher
	logger        *logging.Logger
	metrics       *metrics.Metrics
}

// NewReturnsService creates a new ReturnsService
func NewReturnsService(
	returns domain.ReturnRepository,
	discrepancies domain.DiscrepancyRepository,
	photos domain.PhotoRepository,
	resolver *AliasResolver,
	inventory *InventoryService,
	publisher domain.EventPublisher,
	logger *logging.Logger,
	m *metrics.Metrics,
) *ReturnsService {
	return &ReturnsService{
		returns:       returns,
		discrepancies: discrepancies,
		photos:        photos,
		resolver:      resolver,
		inventory:     inventory,
		publisher:     publisher,
		logger:        logger,
		metrics:       m,
	}
}

// Ingest upserts a normalized return webhook payload. First delivery
// resolves aliases and persists the lines; redelivery only applies a
// differing status and never re-processes lines.
func (s *ReturnsService) Ingest(ctx context.Context, cmd IngestReturnCommand) (*domain.Return, error) {
	lines := make([]domain.ReturnLine, 0, len(cmd.Lines))
	for _, input := range cmd.Lines {
		resolution, err := s.resolver.Resolve(ctx, cmd.ClientID, input.Identifiers)
		if err != nil {
			return nil, err
		}

		lines = append(lines, domain.ReturnLine{
			LineID:         "RL-" + uuid.New().String(),
			ExternalLineID: input.ExternalLineID,
			SKUID:          resolution.SKUID,
			SKUMatched:     resolution.Matched,
			ExpectedQty:    input.ExpectedQty,
			ReceivedQty:    input.ExpectedQty,
			Stage:          domain.LineStageReceived,
		})
	}

	fresh, err := domain.NewReturn(cmd.ClientID, cmd.ShopifyReturnID, cmd.ShopifyOrderID,
		domain.ReturnStatus(cmd.Status), lines, cmd.CreatedAtShopify)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	stored, inserted, err := s.returns.UpsertNew(ctx, fresh)
	if err != nil {
		return nil, err
	}

	if inserted {
		s.publishEvents(ctx, stored)
		s.logger.WithContext(ctx).Info("Return ingested",
			"clientId", cmd.ClientID,
			"shopifyReturnId", cmd.ShopifyReturnID,
			"lineCount", len(lines),
		)
		return stored, nil
	}

	// Redelivery: status-only update when it differs
	changed, err := stored.ApplyStatus(domain.ReturnStatus(cmd.Status))
	if err != nil {
		return nil, errors.MapDomainError(err)
	}
	if changed {
		if err := s.returns.Save(ctx, stored); err != nil {
			return nil, err
		}
		s.logger.WithContext(ctx).Info("Return status updated on redelivery",
			"clientId", cmd.ClientID,
			"shopifyReturnId", cmd.ShopifyReturnID,
			"status", cmd.Status,
		)
	}

	return stored, nil
}

// AttachPhoto records a QC photo for a return line. At least one photo is
// required before inspection.
func (s *ReturnsService) AttachPhoto(ctx context.Context, cmd AttachReturnPhotoCommand) (*domain.Return, error) {
	r, err := s.returns.FindByExternalID(ctx, cmd.ClientID, cmd.ShopifyReturnID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := r.AttachPhoto(cmd.LineID, cmd.PhotoPath); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.returns.Save(ctx, r); err != nil {
		return nil, err
	}

	photo := domain.NewQCPhoto(cmd.ClientID, cmd.PhotoPath, domain.SourceReturn, cmd.ShopifyReturnID)
	if err := s.photos.Save(ctx, photo); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to save QC photo metadata",
			"shopifyReturnId", cmd.ShopifyReturnID,
			"photoPath", cmd.PhotoPath,
		)
	}

	return r, nil
}

// InspectLine assesses a return line and applies its branch effects: a
// resellable line restocks the given location; a damaged line moves into the
// damaged hold and raises a discrepancy for admin disposition review.
// Exactly one branch applies per line.
func (s *ReturnsService) InspectLine(ctx context.Context, cmd InspectReturnLineCommand) (*domain.Return, error) {
	r, err := s.returns.FindByExternalID(ctx, cmd.ClientID, cmd.ShopifyReturnID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	outcome := domain.InspectionOutcome(cmd.Outcome)
	if err := r.InspectLine(cmd.LineID, outcome, cmd.InspectedBy, cmd.Notes); err != nil {
		return nil, errors.MapDomainError(err)
	}

	line := lineByID(r, cmd.LineID)

	if line.SKUMatched && line.ReceivedQty > 0 {
		if err := s.applyBranchEffects(ctx, r, line, cmd.RestockLocation); err != nil {
			return nil, err
		}
	}

	if err := r.DispositionLine(cmd.LineID); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.returns.Save(ctx, r); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, r)

	s.logger.WithContext(ctx).Info("Return line dispositioned",
		"clientId", cmd.ClientID,
		"shopifyReturnId", cmd.ShopifyReturnID,
		"lineId", cmd.LineID,
		"outcome", cmd.Outcome,
	)

	return r, nil
}

// Get fetches one return scoped to a client
func (s *ReturnsService) Get(ctx context.Context, clientID, shopifyReturnID string) (*domain.Return, error) {
	r, err := s.returns.FindByExternalID(ctx, clientID, shopifyReturnID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}
	return r, nil
}

// List lists a client's returns, optionally filtered by status
func (s *ReturnsService) List(ctx context.Context, clientID string, status *domain.ReturnStatus, pagination domain.Pagination) ([]*domain.Return, error) {
	return s.returns.FindByClient(ctx, clientID, status, pagination)
}

func (s *ReturnsService) applyBranchEffects(ctx context.Context, r *domain.Return, line *domain.ReturnLine, restockLocation string) error {
	switch line.Stage {
	case domain.LineStageResellable:
		entry, err := domain.NewLedgerEntry(r.ClientID, line.SKUID, restockLocation, line.ReceivedQty,
			domain.TransactionReturnRestock, "", domain.SourceReturn, r.ShopifyReturnID)
		if err != nil {
			return errors.MapDomainError(err)
		}
		return s.inventory.AppendEntries(ctx, []*domain.LedgerEntry{entry})

	case domain.LineStageDamaged:
		entry, err := domain.NewLedgerEntry(r.ClientID, line.SKUID, domain.DamagedLocationID, line.ReceivedQty,
			domain.TransactionDamageRemoval, domain.ReasonDamagedOnReturn, domain.SourceReturn, r.ShopifyReturnID)
		if err != nil {
			return errors.MapDomainError(err)
		}
		if err := s.inventory.AppendEntries(ctx, []*domain.LedgerEntry{entry}); err != nil {
			return err
		}

		d, err := domain.NewDiscrepancy(r.ClientID, line.SKUID, "", domain.DiscrepancyDamaged,
			line.ReceivedQty, domain.SourceReturn, r.ShopifyReturnID, line.PhotoPaths)
		if err != nil {
			return errors.MapDomainError(err)
		}
		if err := s.discrepancies.Save(ctx, d); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.RecordDiscrepancyOpened(string(domain.DiscrepancyDamaged), domain.SourceReturn)
		}
		return nil
	}

	return nil
}

func lineByID(r *domain.Return, lineID string) *domain.ReturnLine {
	for i := range r.Lines {
		if r.Lines[i].LineID == lineID {
			return &r.Lines[i]
		}
	}
	return nil
}

func (s *ReturnsService) publishEvents(ctx context.Context, r *domain.Return) {
	events := r.GetDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.PublishAll(ctx, events); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to publish domain events")
	}
	r.ClearDomainEvents()
}
