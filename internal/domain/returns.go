package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Returns errors
var (
	ErrReturnNotFound          = errors.New("return not found")
	ErrReturnLineNotFound      = errors.New("return line not found")
	ErrInvalidReturnStatus     = errors.New("invalid return status")
	ErrInvalidLineStage        = errors.New("invalid return line stage transition")
	ErrPhotoRequiredForInspect = errors.New("at least one photo is required before inspection")
	ErrLineAlreadyDispositioned = errors.New("return line already dispositioned")
	ErrMissingReturnID         = errors.New("shopifyReturnId is required")
)

// ReturnStatus mirrors the platform-side lifecycle of a return
type ReturnStatus string

const (
	ReturnStatusRequested ReturnStatus = "requested"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusDeclined  ReturnStatus = "declined"
	ReturnStatusReceived  ReturnStatus = "received"
)

// IsValid checks if the status is valid
func (s ReturnStatus) IsValid() bool {
	switch s {
	case ReturnStatusRequested, ReturnStatusApproved, ReturnStatusDeclined, ReturnStatusReceived:
		return true
	default:
		return false
	}
}

// LineStage is the warehouse-side pipeline for one return line
type LineStage string

const (
	LineStageReceived         LineStage = "received"
	LineStageQCPhotographed   LineStage = "qc_photographed"
	LineStageInspected        LineStage = "inspected"
	LineStageResellable       LineStage = "resellable"
	LineStageDamaged          LineStage = "damaged"
	LineStageFinalDisposition LineStage = "final_disposition"
)

// CanTransitionTo checks if the stage can transition to another stage.
// The pipeline is linear; the only branch is resellable vs damaged after
// inspection.
func (s LineStage) CanTransitionTo(target LineStage) bool {
	validTransitions := map[LineStage][]LineStage{
		LineStageReceived:         {LineStageQCPhotographed},
		LineStageQCPhotographed:   {LineStageInspected},
		LineStageInspected:        {LineStageResellable, LineStageDamaged},
		LineStageResellable:       {LineStageFinalDisposition},
		LineStageDamaged:          {LineStageFinalDisposition},
		LineStageFinalDisposition: {},
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

// InspectionOutcome is the condition verdict for a return line
type InspectionOutcome string

const (
	OutcomeResellable InspectionOutcome = "resellable"
	OutcomeDamaged    InspectionOutcome = "damaged"
)

// ReturnLine is one SKU on a return, enriched with alias resolution and
// tracked through the warehouse pipeline. Exactly one of the resellable or
// damaged branches applies per line.
type ReturnLine struct {
	LineID          string            `bson:"lineId" json:"lineId"`
	ExternalLineID  string            `bson:"externalLineId,omitempty" json:"externalLineId,omitempty"`
	SKUID           string            `bson:"skuId,omitempty" json:"skuId,omitempty"`
	SKUMatched      bool              `bson:"skuMatched" json:"skuMatched"`
	ExpectedQty     int               `bson:"expectedQty" json:"expectedQty"`
	ReceivedQty     int               `bson:"receivedQty" json:"receivedQty"`
	Stage           LineStage         `bson:"stage" json:"stage"`
	Outcome         InspectionOutcome `bson:"outcome,omitempty" json:"outcome,omitempty"`
	PhotoPaths      []string          `bson:"photoPaths,omitempty" json:"photoPaths,omitempty"`
	InspectionNotes string            `bson:"inspectionNotes,omitempty" json:"inspectionNotes,omitempty"`
	InspectedBy     string            `bson:"inspectedBy,omitempty" json:"inspectedBy,omitempty"`
	DispositionedAt *time.Time        `bson:"dispositionedAt,omitempty" json:"dispositionedAt,omitempty"`
}

// Return is the aggregate for one platform return, upserted idempotently on
// (clientId, shopifyReturnId). Redelivered webhooks only touch the status
// field; lines are never re-processed.
type Return struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID        string             `bson:"clientId" json:"clientId"`
	ShopifyReturnID string             `bson:"shopifyReturnId" json:"shopifyReturnId"`
	ShopifyOrderID  string             `bson:"shopifyOrderId,omitempty" json:"shopifyOrderId,omitempty"`
	Status          ReturnStatus       `bson:"status" json:"status"`
	Lines           []ReturnLine       `bson:"lines" json:"lines"`
	CreatedAtShopify *time.Time        `bson:"createdAtShopify,omitempty" json:"createdAtShopify,omitempty"`
	SyncedAt        time.Time          `bson:"syncedAt" json:"syncedAt"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
	DomainEvents    []DomainEvent      `bson:"-" json:"-"`
}

// NewReturn creates a return from a normalized webhook payload
func NewReturn(clientID, shopifyReturnID, shopifyOrderID string, status ReturnStatus, lines []ReturnLine, createdAtShopify *time.Time) (*Return, error) {
	if clientID == "" {
		return nil, ErrMissingClient
	}
	if shopifyReturnID == "" {
		return nil, ErrMissingReturnID
	}
	if !status.IsValid() {
		return nil, ErrInvalidReturnStatus
	}

	now := time.Now().UTC()
	for i := range lines {
		if lines[i].Stage == "" {
			lines[i].Stage = LineStageReceived
		}
	}

	r := &Return{
		ID:               primitive.NewObjectID(),
		ClientID:         clientID,
		ShopifyReturnID:  shopifyReturnID,
		ShopifyOrderID:   shopifyOrderID,
		Status:           status,
		Lines:            lines,
		CreatedAtShopify: createdAtShopify,
		SyncedAt:         now,
		CreatedAt:        now,
		UpdatedAt:        now,
		DomainEvents:     make([]DomainEvent, 0),
	}

	r.addDomainEvent(&ReturnReceivedEvent{
		ClientID:        clientID,
		ShopifyReturnID: shopifyReturnID,
		ShopifyOrderID:  shopifyOrderID,
		Status:          string(status),
		LineCount:       len(lines),
		OccurredAt_:     now,
	})

	return r, nil
}

// ApplyStatus updates the platform status on redelivery. Returns true when
// the status actually changed; identical redeliveries are no-ops.
func (r *Return) ApplyStatus(status ReturnStatus) (bool, error) {
	if !status.IsValid() {
		return false, ErrInvalidReturnStatus
	}
	if r.Status == status {
		return false, nil
	}

	r.Status = status
	now := time.Now().UTC()
	r.SyncedAt = now
	r.UpdatedAt = now
	return true, nil
}

// AttachPhoto records a QC photo for a line and advances it to
// qc_photographed once the first photo lands
func (r *Return) AttachPhoto(lineID, photoPath string) error {
	line := r.findLine(lineID)
	if line == nil {
		return ErrReturnLineNotFound
	}

	line.PhotoPaths = append(line.PhotoPaths, photoPath)
	if line.Stage == LineStageReceived {
		line.Stage = LineStageQCPhotographed
	}
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// InspectLine assesses the line's condition. Photos are mandatory before
// inspection may proceed.
func (r *Return) InspectLine(lineID string, outcome InspectionOutcome, inspectedBy, notes string) error {
	line := r.findLine(lineID)
	if line == nil {
		return ErrReturnLineNotFound
	}

	if len(line.PhotoPaths) == 0 {
		return ErrPhotoRequiredForInspect
	}
	if !line.Stage.CanTransitionTo(LineStageInspected) {
		return ErrInvalidLineStage
	}

	branch := LineStageResellable
	if outcome == OutcomeDamaged {
		branch = LineStageDamaged
	}

	line.Stage = branch
	line.Outcome = outcome
	line.InspectedBy = inspectedBy
	line.InspectionNotes = notes
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// DispositionLine finalizes the line after its branch ledger effects have
// been applied
func (r *Return) DispositionLine(lineID string) error {
	line := r.findLine(lineID)
	if line == nil {
		return ErrReturnLineNotFound
	}
	if line.Stage == LineStageFinalDisposition {
		return ErrLineAlreadyDispositioned
	}
	if !line.Stage.CanTransitionTo(LineStageFinalDisposition) {
		return ErrInvalidLineStage
	}

	now := time.Now().UTC()
	line.Stage = LineStageFinalDisposition
	line.DispositionedAt = &now
	r.UpdatedAt = now

	r.addDomainEvent(&ReturnLineDispositionedEvent{
		ClientID:        r.ClientID,
		ShopifyReturnID: r.ShopifyReturnID,
		LineID:          lineID,
		SKUID:           line.SKUID,
		Outcome:         string(line.Outcome),
		Quantity:        line.ReceivedQty,
		OccurredAt_:     now,
	})

	return nil
}

func (r *Return) findLine(lineID string) *ReturnLine {
	for i := range r.Lines {
		if r.Lines[i].LineID == lineID {
			return &r.Lines[i]
		}
	}
	return nil
}

// addDomainEvent adds a domain event
func (r *Return) addDomainEvent(event DomainEvent) {
	r.DomainEvents = append(r.DomainEvents, event)
}

// GetDomainEvents returns all domain events
func (r *Return) GetDomainEvents() []DomainEvent {
	return r.DomainEvents
}

// ClearDomainEvents clears all domain events
func (r *Return) ClearDomainEvents() {
	r.DomainEvents = make([]DomainEvent, 0)
}
