package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ASN errors
var (
	ErrASNNotFound             = errors.New("asn not found")
	ErrInvalidASNTransition    = errors.New("invalid asn status transition")
	ErrNoASNLines              = errors.New("asn must have at least one line")
	ErrASNLineNotFound         = errors.New("line not found in asn")
	ErrASNNotReceiving         = errors.New("asn is not in receiving status")
	ErrASNAlreadyClosed        = errors.New("asn already closed")
	ErrForceCloseRequiresIssue = errors.New("force close is only allowed from issue status")
	ErrInspectionNeedsPhoto    = errors.New("failed inspection requires a photo reference")
)

// ASNStatus represents the receiving lifecycle of an advance shipment notice
type ASNStatus string

const (
	ASNStatusNotReceived ASNStatus = "not_received"
	ASNStatusReceiving   ASNStatus = "receiving"
	ASNStatusCompleted   ASNStatus = "completed"
	ASNStatusIssue       ASNStatus = "issue"
	ASNStatusClosed      ASNStatus = "closed"
)

// IsValid checks if the status is valid
func (s ASNStatus) IsValid() bool {
	switch s {
	case ASNStatusNotReceived, ASNStatusReceiving, ASNStatusCompleted, ASNStatusIssue, ASNStatusClosed:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the status can transition to another status
func (s ASNStatus) CanTransitionTo(target ASNStatus) bool {
	validTransitions := map[ASNStatus][]ASNStatus{
		ASNStatusNotReceived: {ASNStatusReceiving},
		ASNStatusReceiving:   {ASNStatusCompleted, ASNStatusIssue},
		ASNStatusCompleted:   {ASNStatusClosed},
		ASNStatusIssue:       {ASNStatusClosed},
		ASNStatusClosed:      {},
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

// ASNLine is one expected SKU and quantity on an ASN
type ASNLine struct {
	SKUID            string `bson:"skuId" json:"skuId"`
	ClientSKU        string `bson:"clientSku" json:"clientSku"`
	ExpectedQuantity int    `bson:"expectedQuantity" json:"expectedQuantity"`
	ReceivedQuantity int    `bson:"receivedQuantity" json:"receivedQuantity"`
	FailedQuantity   int    `bson:"failedQuantity" json:"failedQuantity"`
}

// Variance returns received-vs-expected difference (negative = shortage)
func (l *ASNLine) Variance() int {
	return l.ReceivedQuantity + l.FailedQuantity - l.ExpectedQuantity
}

// InspectionRecord is one per-unit condition outcome with photo reference
type InspectionRecord struct {
	InspectionID string    `bson:"inspectionId" json:"inspectionId"`
	SKUID        string    `bson:"skuId" json:"skuId"`
	Passed       bool      `bson:"passed" json:"passed"`
	Quarantined  bool      `bson:"quarantined" json:"quarantined"`
	PhotoPath    string    `bson:"photoPath,omitempty" json:"photoPath,omitempty"`
	InspectedBy  string    `bson:"inspectedBy" json:"inspectedBy"`
	InspectedAt  time.Time `bson:"inspectedAt" json:"inspectedAt"`
	Notes        string    `bson:"notes,omitempty" json:"notes,omitempty"`
}

// VarianceSummary aggregates inspection and count outcomes for one SKU
type VarianceSummary struct {
	SKUID          string
	MissingQty     int
	DamagedQty     int
	QuarantinedQty int
	PhotoPaths     []string
}

// HasDiscrepancy returns true when any quantity is nonzero
func (v VarianceSummary) HasDiscrepancy() bool {
	return v.MissingQty > 0 || v.DamagedQty > 0 || v.QuarantinedQty > 0
}

// ASN is the aggregate root for the receiving lifecycle of one inbound
// shipment. It carries expected lines, per-unit inspection records, and the
// status machine gating admin closure.
type ASN struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ASNID          string             `bson:"asnId" json:"asnId"`
	ClientID       string             `bson:"clientId" json:"clientId"`
	ASNNumber      string             `bson:"asnNumber" json:"asnNumber"`
	TrackingNumber string             `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	Carrier        string             `bson:"carrier,omitempty" json:"carrier,omitempty"`
	ETA            *time.Time         `bson:"eta,omitempty" json:"eta,omitempty"`
	Lines          []ASNLine          `bson:"lines" json:"lines"`
	Inspections    []InspectionRecord `bson:"inspections" json:"inspections"`
	Status         ASNStatus          `bson:"status" json:"status"`
	Notes          string             `bson:"notes,omitempty" json:"notes,omitempty"`
	ResolvedBy     string             `bson:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
	ReceivedAt     *time.Time         `bson:"receivedAt,omitempty" json:"receivedAt,omitempty"`
	ClosedAt       *time.Time         `bson:"closedAt,omitempty" json:"closedAt,omitempty"`
	ResolvedAt     *time.Time         `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
	DomainEvents   []DomainEvent      `bson:"-" json:"-"`
}

// NewASN creates a new ASN in not_received status
func NewASN(clientID, asnNumber, trackingNumber, carrier string, eta *time.Time, lines []ASNLine) (*ASN, error) {
	if clientID == "" {
		return nil, ErrMissingClient
	}
	if len(lines) == 0 {
		return nil, ErrNoASNLines
	}

	now := time.Now().UTC()
	asn := &ASN{
		ID:             primitive.NewObjectID(),
		ASNID:          "ASN-" + uuid.New().String(),
		ClientID:       clientID,
		ASNNumber:      asnNumber,
		TrackingNumber: trackingNumber,
		Carrier:        carrier,
		ETA:            eta,
		Lines:          lines,
		Inspections:    make([]InspectionRecord, 0),
		Status:         ASNStatusNotReceived,
		CreatedAt:      now,
		UpdatedAt:      now,
		DomainEvents:   make([]DomainEvent, 0),
	}

	asn.addDomainEvent(&ASNCreatedEvent{
		ASNID:       asn.ASNID,
		ClientID:    clientID,
		ASNNumber:   asnNumber,
		LineCount:   len(lines),
		OccurredAt_: now,
	})

	return asn, nil
}

// StartReceiving transitions the ASN into the receiving state
func (a *ASN) StartReceiving() error {
	if !a.Status.CanTransitionTo(ASNStatusReceiving) {
		return ErrInvalidASNTransition
	}

	now := time.Now().UTC()
	a.Status = ASNStatusReceiving
	a.ReceivedAt = &now
	a.UpdatedAt = now

	a.addDomainEvent(&ASNReceivingStartedEvent{
		ASNID:       a.ASNID,
		ClientID:    a.ClientID,
		OccurredAt_: now,
	})

	return nil
}

// RecordReceipt records counted good units for a line
func (a *ASN) RecordReceipt(skuID string, quantity int) error {
	if a.Status != ASNStatusReceiving {
		return ErrASNNotReceiving
	}

	line := a.findLine(skuID)
	if line == nil {
		return ErrASNLineNotFound
	}

	line.ReceivedQuantity += quantity
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordInspection records a per-unit pass/fail outcome. A failed or
// quarantined unit requires a photo reference and counts against the line's
// failed quantity.
func (a *ASN) RecordInspection(skuID string, passed, quarantined bool, photoPath, inspectedBy, notes string) error {
	if a.Status != ASNStatusReceiving {
		return ErrASNNotReceiving
	}

	line := a.findLine(skuID)
	if line == nil {
		return ErrASNLineNotFound
	}

	if (!passed || quarantined) && photoPath == "" {
		return ErrInspectionNeedsPhoto
	}

	now := time.Now().UTC()
	a.Inspections = append(a.Inspections, InspectionRecord{
		InspectionID: "INSP-" + uuid.New().String(),
		SKUID:        skuID,
		Passed:       passed,
		Quarantined:  quarantined,
		PhotoPath:    photoPath,
		InspectedBy:  inspectedBy,
		InspectedAt:  now,
		Notes:        notes,
	})

	if !passed {
		line.FailedQuantity++
		if line.ReceivedQuantity > 0 {
			line.ReceivedQuantity--
		}
	}

	a.UpdatedAt = now
	return nil
}

// CompleteReceiving closes out counting. The ASN lands in completed when
// every line matched and every inspection passed, otherwise in issue.
func (a *ASN) CompleteReceiving() error {
	if a.Status != ASNStatusReceiving {
		return ErrASNNotReceiving
	}

	target := ASNStatusCompleted
	if a.hasAnyVariance() {
		target = ASNStatusIssue
	}

	if !a.Status.CanTransitionTo(target) {
		return ErrInvalidASNTransition
	}

	now := time.Now().UTC()
	a.Status = target
	a.UpdatedAt = now

	if target == ASNStatusIssue {
		a.addDomainEvent(&ASNIssueFlaggedEvent{
			ASNID:       a.ASNID,
			ClientID:    a.ClientID,
			Summaries:   a.VarianceSummaries(),
			OccurredAt_: now,
		})
	} else {
		a.addDomainEvent(&ASNReceivingCompletedEvent{
			ASNID:       a.ASNID,
			ClientID:    a.ClientID,
			OccurredAt_: now,
		})
	}

	return nil
}

// Close closes a completed ASN
func (a *ASN) Close() error {
	if a.Status == ASNStatusClosed {
		return ErrASNAlreadyClosed
	}
	if !a.Status.CanTransitionTo(ASNStatusClosed) {
		return ErrInvalidASNTransition
	}

	now := time.Now().UTC()
	a.Status = ASNStatusClosed
	a.ClosedAt = &now
	a.UpdatedAt = now

	a.addDomainEvent(&ASNClosedEvent{
		ASNID:       a.ASNID,
		ClientID:    a.ClientID,
		Forced:      false,
		OccurredAt_: now,
	})

	return nil
}

// ForceClose is the admin manual resolution of an issue ASN. Terminal and
// distinct from the normal completion path.
func (a *ASN) ForceClose(notes, adminID string) error {
	if a.Status != ASNStatusIssue {
		return ErrForceCloseRequiresIssue
	}

	now := time.Now().UTC()
	a.Status = ASNStatusClosed
	a.Notes = notes
	a.ResolvedBy = adminID
	a.ResolvedAt = &now
	a.ClosedAt = &now
	a.UpdatedAt = now

	a.addDomainEvent(&ASNClosedEvent{
		ASNID:       a.ASNID,
		ClientID:    a.ClientID,
		Forced:      true,
		ResolvedBy:  adminID,
		OccurredAt_: now,
	})

	return nil
}

// VarianceSummaries aggregates count variances and inspection failures per
// SKU. Missing, damaged and quarantined quantities for the same SKU stay
// separate so they become separate discrepancy rows.
func (a *ASN) VarianceSummaries() []VarianceSummary {
	summaries := make([]VarianceSummary, 0)

	for _, line := range a.Lines {
		summary := VarianceSummary{SKUID: line.SKUID}

		if v := line.Variance(); v < 0 {
			summary.MissingQty = -v
		}

		for _, insp := range a.Inspections {
			if insp.SKUID != line.SKUID {
				continue
			}
			if insp.Quarantined {
				summary.QuarantinedQty++
			} else if !insp.Passed {
				summary.DamagedQty++
			}
			if insp.PhotoPath != "" && (!insp.Passed || insp.Quarantined) {
				summary.PhotoPaths = append(summary.PhotoPaths, insp.PhotoPath)
			}
		}

		if summary.HasDiscrepancy() {
			summaries = append(summaries, summary)
		}
	}

	return summaries
}

// GoodUnits returns the accepted quantity per SKU after inspection
func (a *ASN) GoodUnits() map[string]int {
	units := make(map[string]int, len(a.Lines))
	for _, line := range a.Lines {
		if line.ReceivedQuantity > 0 {
			units[line.SKUID] = line.ReceivedQuantity
		}
	}
	return units
}

// FailedUnits returns the failed quantity per SKU
func (a *ASN) FailedUnits() map[string]int {
	units := make(map[string]int, len(a.Lines))
	for _, line := range a.Lines {
		if line.FailedQuantity > 0 {
			units[line.SKUID] = line.FailedQuantity
		}
	}
	return units
}

func (a *ASN) hasAnyVariance() bool {
	for _, line := range a.Lines {
		if line.Variance() != 0 || line.FailedQuantity > 0 {
			return true
		}
	}
	for _, insp := range a.Inspections {
		if !insp.Passed || insp.Quarantined {
			return true
		}
	}
	return false
}

func (a *ASN) findLine(skuID string) *ASNLine {
	for i := range a.Lines {
		if a.Lines[i].SKUID == skuID {
			return &a.Lines[i]
		}
	}
	return nil
}

// addDomainEvent adds a domain event
func (a *ASN) addDomainEvent(event DomainEvent) {
	a.DomainEvents = append(a.DomainEvents, event)
}

// GetDomainEvents returns all domain events
func (a *ASN) GetDomainEvents() []DomainEvent {
	return a.DomainEvents
}

// ClearDomainEvents clears all domain events
func (a *ASN) ClearDomainEvents() {
	a.DomainEvents = make([]DomainEvent, 0)
}
