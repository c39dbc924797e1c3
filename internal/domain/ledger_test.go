package domain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLedgerEntry(t *testing.T) {
	tests := []struct {
		name        string
		clientID    string
		skuID       string
		locationID  string
		qtyDelta    int
		txType      TransactionType
		expectError error
	}{
		{
			name:       "Valid receiving entry",
			clientID:   "CL-001",
			skuID:      "SKU-001",
			locationID: "A-01-01-B1",
			qtyDelta:   10,
			txType:     TransactionReceiving,
		},
		{
			name:       "Valid shipment entry",
			clientID:   "CL-001",
			skuID:      "SKU-001",
			locationID: "A-01-01-B1",
			qtyDelta:   -4,
			txType:     TransactionShipment,
		},
		{
			name:        "Zero delta rejected",
			clientID:    "CL-001",
			skuID:       "SKU-001",
			locationID:  "A-01-01-B1",
			qtyDelta:    0,
			txType:      TransactionReceiving,
			expectError: ErrInvalidQtyDelta,
		},
		{
			name:        "Missing client rejected",
			skuID:       "SKU-001",
			locationID:  "A-01-01-B1",
			qtyDelta:    5,
			txType:      TransactionReceiving,
			expectError: ErrMissingClient,
		},
		{
			name:        "Missing location rejected",
			clientID:    "CL-001",
			skuID:       "SKU-001",
			qtyDelta:    5,
			txType:      TransactionReceiving,
			expectError: ErrMissingLocation,
		},
		{
			name:        "Unknown transaction type rejected",
			clientID:    "CL-001",
			skuID:       "SKU-001",
			locationID:  "A-01-01-B1",
			qtyDelta:    5,
			txType:      TransactionType("teleport"),
			expectError: ErrInvalidTransactionType,
		},
		{
			name:        "Negative delta on receiving rejected",
			clientID:    "CL-001",
			skuID:       "SKU-001",
			locationID:  "A-01-01-B1",
			qtyDelta:    -5,
			txType:      TransactionReceiving,
			expectError: ErrDeltaSignMismatch,
		},
		{
			name:        "Positive delta on shipment rejected",
			clientID:    "CL-001",
			skuID:       "SKU-001",
			locationID:  "A-01-01-B1",
			qtyDelta:    5,
			txType:      TransactionShipment,
			expectError: ErrDeltaSignMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := NewLedgerEntry(tt.clientID, tt.skuID, tt.locationID, tt.qtyDelta, tt.txType, "", SourceReceiving, "ASN-1")

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, entry)
			} else {
				require.NoError(t, err)
				require.NotNil(t, entry)
				assert.Equal(t, tt.qtyDelta, entry.QtyDelta)
				assert.Contains(t, entry.EntryID, "LE-")
				assert.False(t, entry.CreatedAt.IsZero())
			}
		})
	}
}

func TestSumDeltasOrderIndependent(t *testing.T) {
	deltas := []int{10, -3, 7, -5, 2, -1, 4}
	entries := make([]*LedgerEntry, 0, len(deltas))
	for _, d := range deltas {
		txType := TransactionAdjustmentPlus
		if d < 0 {
			txType = TransactionAdjustmentMinus
		}
		entry, err := NewLedgerEntry("CL-001", "SKU-001", "A-01-01-B1", d, txType, ReasonCycleCount, SourceAdjustment, "")
		require.NoError(t, err)
		entries = append(entries, entry)
	}

	want := SumDeltas(entries)
	assert.Equal(t, 14, want)

	// Any interleaving of appends yields the same sum
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]*LedgerEntry, len(entries))
		copy(shuffled, entries)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, SumDeltas(shuffled))
	}
}

func TestAffectsSellableStock(t *testing.T) {
	sellable, err := NewLedgerEntry("CL-001", "SKU-001", "A-01-01-B1", 5, TransactionReturnRestock, "", SourceReturn, "RET-1")
	require.NoError(t, err)
	assert.True(t, sellable.AffectsSellableStock())

	damaged, err := NewLedgerEntry("CL-001", "SKU-001", DamagedLocationID, 2, TransactionDamageRemoval, ReasonDamagedOnReturn, SourceReturn, "RET-1")
	require.NoError(t, err)
	assert.False(t, damaged.AffectsSellableStock())
}

func TestDamageRemovalSign(t *testing.T) {
	// Damaged units land in the hold location, so the delta there is positive
	entry, err := NewLedgerEntry("CL-001", "SKU-001", DamagedLocationID, 3, TransactionDamageRemoval, ReasonDamagedInTransit, SourceReceiving, "ASN-1")
	require.NoError(t, err)
	assert.Equal(t, 3, entry.QtyDelta)
	assert.False(t, entry.AffectsSellableStock())

	_, err = NewLedgerEntry("CL-001", "SKU-001", DamagedLocationID, -3, TransactionDamageRemoval, ReasonDamagedInTransit, SourceReceiving, "ASN-1")
	assert.ErrorIs(t, err, ErrDeltaSignMismatch)
}
