package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ledger errors
var (
	ErrInvalidQtyDelta        = errors.New("qty delta must be non-zero")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrMissingSKU             = errors.New("skuId is required")
	ErrMissingClient          = errors.New("clientId is required")
	ErrMissingLocation        = errors.New("locationId is required")
	ErrDeltaSignMismatch      = errors.New("qty delta sign does not match transaction type")
)

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TransactionReceiving       TransactionType = "receiving"
	TransactionShipment        TransactionType = "shipment"
	TransactionAdjustmentPlus  TransactionType = "adjustment_plus"
	TransactionAdjustmentMinus TransactionType = "adjustment_minus"
	TransactionReturnRestock   TransactionType = "return_restock"
	TransactionDamageRemoval   TransactionType = "damage_removal"
)

// IsValid checks if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionReceiving, TransactionShipment, TransactionAdjustmentPlus,
		TransactionAdjustmentMinus, TransactionReturnRestock, TransactionDamageRemoval:
		return true
	default:
		return false
	}
}

// ExpectedSign returns the sign each transaction type must carry:
// +1 for additions, -1 for removals, 0 when either is allowed.
// damage_removal records damaged units arriving in the hold location,
// a removal from the sellable pool, so the delta at the hold is positive.
func (t TransactionType) ExpectedSign() int {
	switch t {
	case TransactionReceiving, TransactionAdjustmentPlus, TransactionReturnRestock, TransactionDamageRemoval:
		return 1
	case TransactionShipment, TransactionAdjustmentMinus:
		return -1
	default:
		return 0
	}
}

// Reason codes for compensating and adjustment entries
const (
	ReasonShipmentCancelled = "shipment_cancelled"
	ReasonCycleCount        = "cycle_count"
	ReasonDamagedInTransit  = "damaged_in_transit"
	ReasonDamagedOnReturn   = "damaged_on_return"
	ReasonManualCorrection  = "manual_correction"
)

// Source types identify the operation that produced an entry
const (
	SourceReceiving  = "receiving"
	SourceShipment   = "shipment"
	SourceReturn     = "return"
	SourceAdjustment = "adjustment"
	SourceSync       = "sync"
)

// LedgerEntry is one immutable quantity delta for a (client, sku, location) key.
// Current quantity is the sum of all deltas for the key. Corrections are new
// compensating entries, never updates to existing rows.
type LedgerEntry struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EntryID         string             `bson:"entryId" json:"entryId"`
	ClientID        string             `bson:"clientId" json:"clientId"`
	SKUID           string             `bson:"skuId" json:"skuId"`
	LocationID      string             `bson:"locationId" json:"locationId"`
	QtyDelta        int                `bson:"qtyDelta" json:"qtyDelta"`
	TransactionType TransactionType    `bson:"transactionType" json:"transactionType"`
	ReasonCode      string             `bson:"reasonCode,omitempty" json:"reasonCode,omitempty"`
	SourceType      string             `bson:"sourceType" json:"sourceType"`
	SourceRef       string             `bson:"sourceRef,omitempty" json:"sourceRef,omitempty"`
	CreatedBy       string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

// NewLedgerEntry creates a validated ledger entry
func NewLedgerEntry(clientID, skuID, locationID string, qtyDelta int, txType TransactionType, reasonCode, sourceType, sourceRef string) (*LedgerEntry, error) {
	if clientID == "" {
		return nil, ErrMissingClient
	}
	if skuID == "" {
		return nil, ErrMissingSKU
	}
	if locationID == "" {
		return nil, ErrMissingLocation
	}
	if qtyDelta == 0 {
		return nil, ErrInvalidQtyDelta
	}
	if !txType.IsValid() {
		return nil, ErrInvalidTransactionType
	}
	if sign := txType.ExpectedSign(); sign > 0 && qtyDelta < 0 || sign < 0 && qtyDelta > 0 {
		return nil, ErrDeltaSignMismatch
	}

	return &LedgerEntry{
		ID:              primitive.NewObjectID(),
		EntryID:         "LE-" + uuid.New().String(),
		ClientID:        clientID,
		SKUID:           skuID,
		LocationID:      locationID,
		QtyDelta:        qtyDelta,
		TransactionType: txType,
		ReasonCode:      reasonCode,
		SourceType:      sourceType,
		SourceRef:       sourceRef,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// SumDeltas computes the current quantity from a set of entries
func SumDeltas(entries []*LedgerEntry) int {
	total := 0
	for _, e := range entries {
		total += e.QtyDelta
	}
	return total
}

// DamagedLocationID is the reserved location for non-sellable damaged goods.
// Entries at this location never trigger external platform pushes.
const DamagedLocationID = "DMG-00-00-HOLD"

// AffectsSellableStock reports whether the entry changes the client's sellable
// quantity and therefore requires an external platform push. Movements into
// the damaged-inventory location are excluded.
func (e *LedgerEntry) AffectsSellableStock() bool {
	if e.LocationID == DamagedLocationID {
		return false
	}
	return e.TransactionType.IsValid()
}
