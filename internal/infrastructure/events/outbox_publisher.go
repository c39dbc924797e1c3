package events

import (
	"context"
	"strings"

	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/cloudevents"
	"github.com/fulfillment-platform/portal/pkg/kafka"
	"github.com/fulfillment-platform/portal/pkg/outbox"
)

// OutboxPublisher implements domain.EventPublisher by staging events in the
// transactional outbox. The polling publisher drains them to Kafka.
type OutboxPublisher struct {
	repository outbox.Repository
	factory    *cloudevents.EventFactory
}

// NewOutboxPublisher creates a new outbox-backed publisher
func NewOutboxPublisher(repository outbox.Repository, factory *cloudevents.EventFactory) *OutboxPublisher {
	return &OutboxPublisher{
		repository: repository,
		factory:    factory,
	}
}

// Publish stages one domain event
func (p *OutboxPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	oe, err := p.toOutboxEvent(ctx, event)
	if err != nil {
		return err
	}
	return p.repository.Save(ctx, oe)
}

// PublishAll stages multiple domain events in one write
func (p *OutboxPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(events))
	for _, event := range events {
		oe, err := p.toOutboxEvent(ctx, event)
		if err != nil {
			return err
		}
		outboxEvents = append(outboxEvents, oe)
	}

	return p.repository.SaveAll(ctx, outboxEvents)
}

func (p *OutboxPublisher) toOutboxEvent(ctx context.Context, event domain.DomainEvent) (*outbox.OutboxEvent, error) {
	eventType := event.EventType()
	ce := p.factory.CreateEvent(ctx, eventType, eventType, event)
	return outbox.NewOutboxEventFromCloudEvent(ce.ID, aggregateTypeFor(eventType), topicFor(eventType), ce)
}

// topicFor routes an event type to its Kafka topic by the second segment of
// the type name, e.g. portal.asn.closed goes to the receiving topic
func topicFor(eventType string) string {
	parts := strings.Split(eventType, ".")
	if len(parts) < 2 {
		return kafka.Topics.SyncEvents
	}

	switch parts[1] {
	case "ledger", "inventory":
		return kafka.Topics.InventoryEvents
	case "asn":
		return kafka.Topics.ReceivingEvents
	case "discrepancy":
		return kafka.Topics.DiscrepancyEvents
	case "return":
		return kafka.Topics.ReturnsEvents
	default:
		return kafka.Topics.SyncEvents
	}
}

func aggregateTypeFor(eventType string) string {
	parts := strings.Split(eventType, ".")
	if len(parts) < 2 {
		return "event"
	}
	return parts[1]
}
