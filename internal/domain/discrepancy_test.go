package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingDiscrepancy(t *testing.T, dType DiscrepancyType, qty int) *Discrepancy {
	t.Helper()
	d, err := NewDiscrepancy("CL-001", "SKU-001", "ASN-1", dType, qty, SourceReceiving, "ASN-1", nil)
	require.NoError(t, err)
	return d
}

func TestNewDiscrepancy(t *testing.T) {
	tests := []struct {
		name        string
		clientID    string
		dType       DiscrepancyType
		quantity    int
		expectError error
	}{
		{
			name:     "Valid damaged discrepancy",
			clientID: "CL-001",
			dType:    DiscrepancyDamaged,
			quantity: 3,
		},
		{
			name:        "Zero quantity rejected",
			clientID:    "CL-001",
			dType:       DiscrepancyMissing,
			quantity:    0,
			expectError: ErrInvalidDiscrepancyQty,
		},
		{
			name:        "Unknown type rejected",
			clientID:    "CL-001",
			dType:       DiscrepancyType("vanished"),
			quantity:    1,
			expectError: ErrInvalidDiscrepancyType,
		},
		{
			name:        "Missing client rejected",
			dType:       DiscrepancyDamaged,
			quantity:    1,
			expectError: ErrMissingClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDiscrepancy(tt.clientID, "SKU-001", "ASN-1", tt.dType, tt.quantity, SourceReceiving, "ASN-1", nil)

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, DiscrepancyStatusPending, d.Status)
				assert.Equal(t, ResponseLabelAwaiting, d.ResponseLabel())
			}
		})
	}
}

func TestDiscrepancyLifecycle(t *testing.T) {
	d := newPendingDiscrepancy(t, DiscrepancyDamaged, 3)

	require.NoError(t, d.Submit(DecisionDispose, "please dispose"))
	assert.Equal(t, DiscrepancyStatusSubmitted, d.Status)
	assert.NotNil(t, d.SubmittedAt)
	assert.Equal(t, ResponseLabelResponded, d.ResponseLabel())

	require.NoError(t, d.Process("disposed per client request"))
	assert.Equal(t, DiscrepancyStatusProcessed, d.Status)
	assert.NotNil(t, d.ProcessedAt)

	require.NoError(t, d.Close("admin-1", "done"))
	assert.Equal(t, DiscrepancyStatusClosed, d.Status)
	assert.Equal(t, "admin-1", d.AdminClosedBy)
}

func TestDiscrepancyInvalidDecision(t *testing.T) {
	d := newPendingDiscrepancy(t, DiscrepancyDamaged, 3)

	err := d.Submit(Decision("burn_it"), "")
	assert.ErrorIs(t, err, ErrInvalidDecision)
	assert.Equal(t, DiscrepancyStatusPending, d.Status)
}

func TestDiscrepancySkipTransitionsRejected(t *testing.T) {
	d := newPendingDiscrepancy(t, DiscrepancyMissing, 2)

	assert.ErrorIs(t, d.Process(""), ErrInvalidDiscrepancyTransition)
	assert.ErrorIs(t, d.Close("admin-1", ""), ErrInvalidDiscrepancyTransition)
	assert.ErrorIs(t, d.Reopen(""), ErrReopenRequiresClosed)
}

func TestDiscrepancyReopenCycle(t *testing.T) {
	d := newPendingDiscrepancy(t, DiscrepancyDamaged, 3)
	require.NoError(t, d.Submit(DecisionAcceptAsIs, ""))
	require.NoError(t, d.Process(""))
	require.NoError(t, d.Close("admin-1", ""))

	require.NoError(t, d.Reopen("client disputed the count"))
	assert.Equal(t, DiscrepancyStatusPending, d.Status)
	assert.Equal(t, 1, d.ReopenedCount)
	assert.Nil(t, d.SubmittedAt)
	assert.Nil(t, d.ProcessedAt)
	assert.Equal(t, "client disputed the count", d.AdminNotes)

	// No cap on reopen cycles
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Submit(DecisionDispose, ""))
		require.NoError(t, d.Process(""))
		require.NoError(t, d.Close("admin-1", ""))
		require.NoError(t, d.Reopen(""))
	}
	assert.Equal(t, 4, d.ReopenedCount)
}

func TestAggregateResponseLabel(t *testing.T) {
	damaged := newPendingDiscrepancy(t, DiscrepancyDamaged, 3)
	missing := newPendingDiscrepancy(t, DiscrepancyMissing, 2)

	pair := []*Discrepancy{damaged, missing}

	assert.Equal(t, ResponseLabelAwaiting, AggregateResponseLabel(pair))

	// One of two responded is still awaiting
	require.NoError(t, damaged.Submit(DecisionDispose, ""))
	assert.Equal(t, ResponseLabelAwaiting, AggregateResponseLabel(pair))

	// Both responded
	require.NoError(t, missing.Submit(DecisionAcceptAsIs, ""))
	assert.Equal(t, ResponseLabelResponded, AggregateResponseLabel(pair))

	// Processed still counts as responded
	require.NoError(t, damaged.Process(""))
	assert.Equal(t, ResponseLabelResponded, AggregateResponseLabel(pair))
}

func TestAggregateResponseLabelClosedStaysResponded(t *testing.T) {
	damaged := newPendingDiscrepancy(t, DiscrepancyDamaged, 3)
	missing := newPendingDiscrepancy(t, DiscrepancyMissing, 2)
	pair := []*Discrepancy{damaged, missing}

	require.NoError(t, damaged.Submit(DecisionDispose, ""))
	require.NoError(t, missing.Submit(DecisionAcceptAsIs, ""))
	require.NoError(t, damaged.Process(""))
	require.NoError(t, missing.Process(""))
	assert.Equal(t, ResponseLabelResponded, AggregateResponseLabel(pair))

	// Admin closing a row does not put the pair back in front of the client
	require.NoError(t, damaged.Close("admin-1", ""))
	assert.True(t, damaged.Status.Responded())
	assert.Equal(t, ResponseLabelResponded, AggregateResponseLabel(pair))

	// Reopening does: the row returns to pending
	require.NoError(t, damaged.Reopen("recount requested"))
	assert.Equal(t, ResponseLabelAwaiting, AggregateResponseLabel(pair))
}

func TestAggregateResponseLabelIgnoresZeroQuantity(t *testing.T) {
	damaged := newPendingDiscrepancy(t, DiscrepancyDamaged, 3)
	require.NoError(t, damaged.Submit(DecisionDispose, ""))

	// Simulates a zero-quantity row that should not hold the pair open
	zero := newPendingDiscrepancy(t, DiscrepancyQuarantined, 1)
	zero.Quantity = 0

	assert.Equal(t, ResponseLabelResponded, AggregateResponseLabel([]*Discrepancy{damaged, zero}))
}
