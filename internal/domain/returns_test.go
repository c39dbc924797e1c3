package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestReturnLines() []ReturnLine {
	return []ReturnLine{
		{LineID: "RL-1", ExternalLineID: "gid://shopify/ReturnLineItem/111", SKUID: "SKU-001", SKUMatched: true, ExpectedQty: 2, ReceivedQty: 2},
		{LineID: "RL-2", ExternalLineID: "gid://shopify/ReturnLineItem/222", SKUID: "SKU-002", SKUMatched: true, ExpectedQty: 1, ReceivedQty: 1},
	}
}

func newTestReturn(t *testing.T) *Return {
	t.Helper()
	r, err := NewReturn("CL-001", "RET-555", "ORD-777", ReturnStatusReceived, createTestReturnLines(), nil)
	require.NoError(t, err)
	return r
}

func TestNewReturn(t *testing.T) {
	tests := []struct {
		name        string
		clientID    string
		returnID    string
		status      ReturnStatus
		expectError error
	}{
		{
			name:     "Valid return",
			clientID: "CL-001",
			returnID: "RET-555",
			status:   ReturnStatusRequested,
		},
		{
			name:        "Missing return id rejected",
			clientID:    "CL-001",
			status:      ReturnStatusRequested,
			expectError: ErrMissingReturnID,
		},
		{
			name:        "Invalid status rejected",
			clientID:    "CL-001",
			returnID:    "RET-555",
			status:      ReturnStatus("teleported"),
			expectError: ErrInvalidReturnStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReturn(tt.clientID, tt.returnID, "", tt.status, createTestReturnLines(), nil)

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
			} else {
				require.NoError(t, err)
				for _, line := range r.Lines {
					assert.Equal(t, LineStageReceived, line.Stage)
				}
			}
		})
	}
}

func TestReturnApplyStatusOnlyOnChange(t *testing.T) {
	r := newTestReturn(t)

	changed, err := r.ApplyStatus(ReturnStatusReceived)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = r.ApplyStatus(ReturnStatusApproved)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, ReturnStatusApproved, r.Status)

	_, err = r.ApplyStatus(ReturnStatus("nonsense"))
	assert.ErrorIs(t, err, ErrInvalidReturnStatus)
}

func TestReturnPhotoMandatoryBeforeInspection(t *testing.T) {
	r := newTestReturn(t)

	err := r.InspectLine("RL-1", OutcomeResellable, "worker-1", "")
	assert.ErrorIs(t, err, ErrPhotoRequiredForInspect)

	require.NoError(t, r.AttachPhoto("RL-1", "/photos/ret-1.jpg"))
	assert.NoError(t, r.InspectLine("RL-1", OutcomeResellable, "worker-1", "like new"))
}

func TestReturnTwoPathwayExclusivity(t *testing.T) {
	tests := []struct {
		name    string
		outcome InspectionOutcome
		stage   LineStage
	}{
		{"Resellable branch", OutcomeResellable, LineStageResellable},
		{"Damaged branch", OutcomeDamaged, LineStageDamaged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReturn(t)
			require.NoError(t, r.AttachPhoto("RL-1", "/photos/a.jpg"))
			require.NoError(t, r.InspectLine("RL-1", tt.outcome, "worker-1", ""))

			line := r.findLine("RL-1")
			require.NotNil(t, line)
			assert.Equal(t, tt.stage, line.Stage)
			assert.Equal(t, tt.outcome, line.Outcome)

			// Exactly one branch: re-inspection after branching is rejected
			err := r.InspectLine("RL-1", OutcomeDamaged, "worker-1", "")
			assert.ErrorIs(t, err, ErrInvalidLineStage)

			require.NoError(t, r.DispositionLine("RL-1"))
			assert.Equal(t, LineStageFinalDisposition, line.Stage)
			assert.ErrorIs(t, r.DispositionLine("RL-1"), ErrLineAlreadyDispositioned)
		})
	}
}

func TestReturnDispositionRequiresBranch(t *testing.T) {
	r := newTestReturn(t)
	require.NoError(t, r.AttachPhoto("RL-1", "/photos/a.jpg"))

	// Cannot disposition straight from photographed
	err := r.DispositionLine("RL-1")
	assert.ErrorIs(t, err, ErrInvalidLineStage)
}

func TestLineStageTransitions(t *testing.T) {
	tests := []struct {
		from    LineStage
		to      LineStage
		allowed bool
	}{
		{LineStageReceived, LineStageQCPhotographed, true},
		{LineStageReceived, LineStageInspected, false},
		{LineStageQCPhotographed, LineStageInspected, true},
		{LineStageInspected, LineStageResellable, true},
		{LineStageInspected, LineStageDamaged, true},
		{LineStageResellable, LineStageDamaged, false},
		{LineStageDamaged, LineStageResellable, false},
		{LineStageResellable, LineStageFinalDisposition, true},
		{LineStageDamaged, LineStageFinalDisposition, true},
		{LineStageFinalDisposition, LineStageReceived, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}
