package application

import (
	"context"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/errors"
	"github.com/fulfillment-platform/portal/pkg/logging"
)

// DiscrepancyService mediates the client/admin decision workflow over
// discrepancy rows
type DiscrepancyService struct {
	discrepancies domain.DiscrepancyRepository
	publisher     domain.EventPublisher
	logger        *logging.Logger
}

// NewDiscrepancyService creates a new DiscrepancyService
func NewDiscrepancyService(discrepancies domain.DiscrepancyRepository, publisher domain.EventPublisher, logger *logging.Logger) *DiscrepancyService {
	return &DiscrepancyService{
		discrepancies: discrepancies,
		publisher:     publisher,
		logger:        logger,
	}
}

// SubmitDecision records the client's decision on a pending discrepancy
func (s *DiscrepancyService) SubmitDecision(ctx context.Context, cmd SubmitDecisionCommand) (*domain.Discrepancy, error) {
	d, err := s.discrepancies.FindByID(ctx, cmd.ClientID, cmd.DiscrepancyID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := d.Submit(domain.Decision(cmd.Decision), cmd.ClientNotes); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.discrepancies.Save(ctx, d); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, d)

	s.logger.WithContext(ctx).Info("Discrepancy decision submitted",
		"discrepancyId", d.DiscrepancyID,
		"clientId", d.ClientID,
		"decision", cmd.Decision,
	)

	return d, nil
}

// Process marks a submitted discrepancy acted on by an admin
func (s *DiscrepancyService) Process(ctx context.Context, cmd ProcessDiscrepancyCommand) (*domain.Discrepancy, error) {
	d, err := s.discrepancies.FindByID(ctx, cmd.ClientID, cmd.DiscrepancyID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := d.Process(cmd.AdminNotes); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.discrepancies.Save(ctx, d); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, d)

	return d, nil
}

// Close terminates a processed discrepancy
func (s *DiscrepancyService) Close(ctx context.Context, cmd CloseDiscrepancyCommand) (*domain.Discrepancy, error) {
	d, err := s.discrepancies.FindByID(ctx, cmd.ClientID, cmd.DiscrepancyID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := d.Close(cmd.AdminID, cmd.CloseNotes); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.discrepancies.Save(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Audit(ctx, "discrepancy_close", "discrepancy", d.DiscrepancyID, cmd.AdminID, map[string]any{
		"clientId": cmd.ClientID,
	})

	return d, nil
}

// Reopen moves a closed discrepancy back to pending. Admin only; unbounded.
func (s *DiscrepancyService) Reopen(ctx context.Context, cmd ReopenDiscrepancyCommand) (*domain.Discrepancy, error) {
	d, err := s.discrepancies.FindByID(ctx, cmd.ClientID, cmd.DiscrepancyID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := d.Reopen(cmd.AdminNotes); err != nil {
		return nil, errors.MapDomainError(err)
	}

	if err := s.discrepancies.Save(ctx, d); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, d)

	s.logger.WithContext(ctx).Info("Discrepancy reopened",
		"discrepancyId", d.DiscrepancyID,
		"clientId", d.ClientID,
		"reopenedCount", d.ReopenedCount,
	)

	return d, nil
}

// Get fetches one discrepancy scoped to a client
func (s *DiscrepancyService) Get(ctx context.Context, clientID, discrepancyID string) (*domain.Discrepancy, error) {
	d, err := s.discrepancies.FindByID(ctx, clientID, discrepancyID)
	if err != nil {
		return nil, errors.MapDomainError(err)
	}
	return d, nil
}

// List lists a client's discrepancies, optionally filtered by status
func (s *DiscrepancyService) List(ctx context.Context, clientID string, status *domain.DiscrepancyStatus, pagination domain.Pagination) ([]*domain.Discrepancy, error) {
	return s.discrepancies.FindByClient(ctx, clientID, status, pagination)
}

// CountPending returns the pending count for dashboard badges
func (s *DiscrepancyService) CountPending(ctx context.Context, clientID string) (int64, error) {
	return s.discrepancies.CountPending(ctx, clientID)
}

// AggregateStatus derives the client-facing label for an ASN+SKU pair: an
// AND-join over every nonzero discrepancy present for the pair
func (s *DiscrepancyService) AggregateStatus(ctx context.Context, clientID, asnID, skuID string) (string, error) {
	rows, err := s.discrepancies.FindByASNAndSKU(ctx, clientID, asnID, skuID)
	if err != nil {
		return "", err
	}
	return domain.AggregateResponseLabel(rows), nil
}

func (s *DiscrepancyService) publishEvents(ctx context.Context, d *domain.Discrepancy) {
	events := d.GetDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.PublishAll(ctx, events); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to publish domain events")
	}
	d.ClearDomainEvents()
}
