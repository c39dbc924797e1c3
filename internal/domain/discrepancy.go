package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Discrepancy errors
var (
	ErrDiscrepancyNotFound          = errors.New("discrepancy not found")
	ErrInvalidDiscrepancyTransition = errors.New("invalid discrepancy status transition")
	ErrInvalidDiscrepancyType       = errors.New("invalid discrepancy type")
	ErrInvalidDecision              = errors.New("invalid decision value")
	ErrInvalidDiscrepancyQty        = errors.New("discrepancy quantity must be positive")
	ErrReopenRequiresClosed         = errors.New("reopen is only allowed from closed status")
)

// DiscrepancyType classifies what went wrong
type DiscrepancyType string

const (
	DiscrepancyDamaged     DiscrepancyType = "damaged"
	DiscrepancyMissing     DiscrepancyType = "missing"
	DiscrepancyQuarantined DiscrepancyType = "quarantined"
)

// IsValid checks if the discrepancy type is valid
func (t DiscrepancyType) IsValid() bool {
	switch t {
	case DiscrepancyDamaged, DiscrepancyMissing, DiscrepancyQuarantined:
		return true
	default:
		return false
	}
}

// DiscrepancyStatus is the decision workflow state
type DiscrepancyStatus string

const (
	DiscrepancyStatusPending   DiscrepancyStatus = "pending"
	DiscrepancyStatusSubmitted DiscrepancyStatus = "submitted"
	DiscrepancyStatusProcessed DiscrepancyStatus = "processed"
	DiscrepancyStatusClosed    DiscrepancyStatus = "closed"
)

// IsValid checks if the status is valid
func (s DiscrepancyStatus) IsValid() bool {
	switch s {
	case DiscrepancyStatusPending, DiscrepancyStatusSubmitted, DiscrepancyStatusProcessed, DiscrepancyStatusClosed:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the status can transition to another status.
// closed -> pending is the admin reopen path.
func (s DiscrepancyStatus) CanTransitionTo(target DiscrepancyStatus) bool {
	validTransitions := map[DiscrepancyStatus][]DiscrepancyStatus{
		DiscrepancyStatusPending:   {DiscrepancyStatusSubmitted},
		DiscrepancyStatusSubmitted: {DiscrepancyStatusProcessed},
		DiscrepancyStatusProcessed: {DiscrepancyStatusClosed},
		DiscrepancyStatusClosed:    {DiscrepancyStatusPending},
	}

	allowedTargets, exists := validTransitions[s]
	if !exists {
		return false
	}

	for _, allowed := range allowedTargets {
		if target == allowed {
			return true
		}
	}
	return false
}

// Responded reports whether the client has acted on the discrepancy. A closed
// discrepancy passed through processed, so nothing awaits the client until an
// admin reopens it back to pending.
func (s DiscrepancyStatus) Responded() bool {
	switch s {
	case DiscrepancyStatusSubmitted, DiscrepancyStatusProcessed, DiscrepancyStatusClosed:
		return true
	}
	return false
}

// Decision values a client may record
type Decision string

const (
	DecisionDispose        Decision = "dispose"
	DecisionReturnToSender Decision = "return_to_sender"
	DecisionAcceptAsIs     Decision = "accept_as_is"
)

// IsValid checks if the decision is valid
func (d Decision) IsValid() bool {
	switch d {
	case DecisionDispose, DecisionReturnToSender, DecisionAcceptAsIs:
		return true
	default:
		return false
	}
}

// Client-facing aggregate response labels
const (
	ResponseLabelAwaiting  = "Awaiting Response"
	ResponseLabelResponded = "Responded"
)

// Discrepancy is one damaged/missing/quarantined finding requiring a client
// decision and admin resolution. Rows are never deleted; reopen cycles are
// tracked via ReopenedCount.
type Discrepancy struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DiscrepancyID  string             `bson:"discrepancyId" json:"discrepancyId"`
	ClientID       string             `bson:"clientId" json:"clientId"`
	SKUID          string             `bson:"skuId" json:"skuId"`
	ASNID          string             `bson:"asnId,omitempty" json:"asnId,omitempty"`
	Type           DiscrepancyType    `bson:"type" json:"type"`
	Quantity       int                `bson:"quantity" json:"quantity"`
	SourceType     string             `bson:"sourceType" json:"sourceType"`
	SourceRef      string             `bson:"sourceRef,omitempty" json:"sourceRef,omitempty"`
	Status         DiscrepancyStatus  `bson:"status" json:"status"`
	Decision       Decision           `bson:"decision,omitempty" json:"decision,omitempty"`
	ClientNotes    string             `bson:"clientNotes,omitempty" json:"clientNotes,omitempty"`
	AdminNotes     string             `bson:"adminNotes,omitempty" json:"adminNotes,omitempty"`
	QCPhotoURLs    []string           `bson:"qcPhotoUrls,omitempty" json:"qcPhotoUrls,omitempty"`
	ReopenedCount  int                `bson:"reopenedCount" json:"reopenedCount"`
	SubmittedAt    *time.Time         `bson:"submittedAt,omitempty" json:"submittedAt,omitempty"`
	ProcessedAt    *time.Time         `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	AdminClosedAt  *time.Time         `bson:"adminClosedAt,omitempty" json:"adminClosedAt,omitempty"`
	AdminClosedBy  string             `bson:"adminClosedBy,omitempty" json:"adminClosedBy,omitempty"`
	AdminCloseNote string             `bson:"adminCloseNote,omitempty" json:"adminCloseNote,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
	DomainEvents   []DomainEvent      `bson:"-" json:"-"`
}

// NewDiscrepancy creates a pending discrepancy
func NewDiscrepancy(clientID, skuID, asnID string, dType DiscrepancyType, quantity int, sourceType, sourceRef string, photoURLs []string) (*Discrepancy, error) {
	if clientID == "" {
		return nil, ErrMissingClient
	}
	if !dType.IsValid() {
		return nil, ErrInvalidDiscrepancyType
	}
	if quantity <= 0 {
		return nil, ErrInvalidDiscrepancyQty
	}

	now := time.Now().UTC()
	d := &Discrepancy{
		ID:            primitive.NewObjectID(),
		DiscrepancyID: "DSC-" + uuid.New().String(),
		ClientID:      clientID,
		SKUID:         skuID,
		ASNID:         asnID,
		Type:          dType,
		Quantity:      quantity,
		SourceType:    sourceType,
		SourceRef:     sourceRef,
		Status:        DiscrepancyStatusPending,
		QCPhotoURLs:   photoURLs,
		CreatedAt:     now,
		UpdatedAt:     now,
		DomainEvents:  make([]DomainEvent, 0),
	}

	d.addDomainEvent(&DiscrepancyCreatedEvent{
		DiscrepancyID: d.DiscrepancyID,
		ClientID:      clientID,
		SKUID:         skuID,
		ASNID:         asnID,
		Type:          string(dType),
		Quantity:      quantity,
		SourceType:    sourceType,
		OccurredAt_:   now,
	})

	return d, nil
}

// Submit records the client's decision
func (d *Discrepancy) Submit(decision Decision, clientNotes string) error {
	if !decision.IsValid() {
		return ErrInvalidDecision
	}
	if !d.Status.CanTransitionTo(DiscrepancyStatusSubmitted) {
		return ErrInvalidDiscrepancyTransition
	}

	now := time.Now().UTC()
	d.Status = DiscrepancyStatusSubmitted
	d.Decision = decision
	d.ClientNotes = clientNotes
	d.SubmittedAt = &now
	d.UpdatedAt = now

	d.addDomainEvent(&DiscrepancySubmittedEvent{
		DiscrepancyID: d.DiscrepancyID,
		ClientID:      d.ClientID,
		Decision:      string(decision),
		OccurredAt_:   now,
	})

	return nil
}

// Process marks the discrepancy acted on by an admin
func (d *Discrepancy) Process(adminNotes string) error {
	if !d.Status.CanTransitionTo(DiscrepancyStatusProcessed) {
		return ErrInvalidDiscrepancyTransition
	}

	now := time.Now().UTC()
	d.Status = DiscrepancyStatusProcessed
	if adminNotes != "" {
		d.AdminNotes = adminNotes
	}
	d.ProcessedAt = &now
	d.UpdatedAt = now

	d.addDomainEvent(&DiscrepancyProcessedEvent{
		DiscrepancyID: d.DiscrepancyID,
		ClientID:      d.ClientID,
		OccurredAt_:   now,
	})

	return nil
}

// Close terminates the discrepancy
func (d *Discrepancy) Close(adminID, closeNotes string) error {
	if !d.Status.CanTransitionTo(DiscrepancyStatusClosed) {
		return ErrInvalidDiscrepancyTransition
	}

	now := time.Now().UTC()
	d.Status = DiscrepancyStatusClosed
	d.AdminClosedAt = &now
	d.AdminClosedBy = adminID
	d.AdminCloseNote = closeNotes
	d.UpdatedAt = now

	return nil
}

// Reopen moves a closed discrepancy back to pending. Admin only; clears the
// client decision timestamps and increments the reopen counter. No maximum
// is enforced.
func (d *Discrepancy) Reopen(adminNotes string) error {
	if d.Status != DiscrepancyStatusClosed {
		return ErrReopenRequiresClosed
	}

	now := time.Now().UTC()
	d.Status = DiscrepancyStatusPending
	d.ReopenedCount++
	d.SubmittedAt = nil
	d.ProcessedAt = nil
	d.AdminNotes = adminNotes
	d.UpdatedAt = now

	d.addDomainEvent(&DiscrepancyReopenedEvent{
		DiscrepancyID: d.DiscrepancyID,
		ClientID:      d.ClientID,
		ReopenedCount: d.ReopenedCount,
		OccurredAt_:   now,
	})

	return nil
}

// ResponseLabel returns the client-facing label for this row
func (d *Discrepancy) ResponseLabel() string {
	if d.Status.Responded() {
		return ResponseLabelResponded
	}
	return ResponseLabelAwaiting
}

// AggregateResponseLabel derives the client-facing label for an ASN+SKU pair.
// "Responded" only when every discrepancy present for the pair has reached
// submitted or processed. An empty set is "Responded" vacuously.
func AggregateResponseLabel(discrepancies []*Discrepancy) string {
	for _, d := range discrepancies {
		if d.Quantity <= 0 {
			continue
		}
		if !d.Status.Responded() {
			return ResponseLabelAwaiting
		}
	}
	return ResponseLabelResponded
}

// addDomainEvent adds a domain event
func (d *Discrepancy) addDomainEvent(event DomainEvent) {
	d.DomainEvents = append(d.DomainEvents, event)
}

// GetDomainEvents returns all domain events
func (d *Discrepancy) GetDomainEvents() []DomainEvent {
	return d.DomainEvents
}

// ClearDomainEvents clears all domain events
func (d *Discrepancy) ClearDomainEvents() {
	d.DomainEvents = make([]DomainEvent, 0)
}
