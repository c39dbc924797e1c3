package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulfillment-platform/portal/internal/domain"
)

func newDiscrepancyFixture(t *testing.T) (*DiscrepancyService, *fakeDiscrepancyRepo, *fakePublisher) {
	t.Helper()
	repo := &fakeDiscrepancyRepo{}
	publisher := &fakePublisher{}
	service := NewDiscrepancyService(repo, publisher, testLogger())
	return service, repo, publisher
}

func seedDiscrepancy(t *testing.T, repo *fakeDiscrepancyRepo, clientID, asnID, skuID string, dType domain.DiscrepancyType, qty int) *domain.Discrepancy {
	t.Helper()
	d, err := domain.NewDiscrepancy(clientID, skuID, asnID, dType, qty,
		domain.SourceReceiving, asnID, nil)
	require.NoError(t, err)
	d.ClearDomainEvents()
	require.NoError(t, repo.Save(context.Background(), d))
	return d
}

func TestDiscrepancyWorkflow(t *testing.T) {
	service, repo, _ := newDiscrepancyFixture(t)
	ctx := context.Background()

	d := seedDiscrepancy(t, repo, "CL-001", "ASN-1", "SKU-1", domain.DiscrepancyDamaged, 2)

	submitted, err := service.SubmitDecision(ctx, SubmitDecisionCommand{
		ClientID:      "CL-001",
		DiscrepancyID: d.DiscrepancyID,
		Decision:      string(domain.DecisionDispose),
		ClientNotes:   "not worth return shipping",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DiscrepancyStatusSubmitted, submitted.Status)
	assert.Equal(t, domain.DecisionDispose, submitted.Decision)
	assert.NotNil(t, submitted.SubmittedAt)

	// Double submission is rejected
	_, err = service.SubmitDecision(ctx, SubmitDecisionCommand{
		ClientID:      "CL-001",
		DiscrepancyID: d.DiscrepancyID,
		Decision:      string(domain.DecisionAcceptAsIs),
	})
	require.Error(t, err)

	processed, err := service.Process(ctx, ProcessDiscrepancyCommand{
		ClientID:      "CL-001",
		DiscrepancyID: d.DiscrepancyID,
		AdminNotes:    "disposed batch 12",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DiscrepancyStatusProcessed, processed.Status)

	closed, err := service.Close(ctx, CloseDiscrepancyCommand{
		ClientID:      "CL-001",
		DiscrepancyID: d.DiscrepancyID,
		AdminID:       "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DiscrepancyStatusClosed, closed.Status)
	assert.Equal(t, "admin-1", closed.AdminClosedBy)
}

func TestDiscrepancyRejectsUnknownDecision(t *testing.T) {
	service, repo, _ := newDiscrepancyFixture(t)

	d := seedDiscrepancy(t, repo, "CL-001", "ASN-1", "SKU-1", domain.DiscrepancyMissing, 1)

	_, err := service.SubmitDecision(context.Background(), SubmitDecisionCommand{
		ClientID:      "CL-001",
		DiscrepancyID: d.DiscrepancyID,
		Decision:      "shrug",
	})
	require.Error(t, err)
}

func TestDiscrepancyReopenCycle(t *testing.T) {
	service, repo, _ := newDiscrepancyFixture(t)
	ctx := context.Background()

	d := seedDiscrepancy(t, repo, "CL-001", "ASN-1", "SKU-1", domain.DiscrepancyDamaged, 1)

	// Reopen requires closed
	_, err := service.Reopen(ctx, ReopenDiscrepancyCommand{
		ClientID:      "CL-001",
		DiscrepancyID: d.DiscrepancyID,
	})
	require.Error(t, err)

	runCycle := func() {
		_, err := service.SubmitDecision(ctx, SubmitDecisionCommand{
			ClientID:      "CL-001",
			DiscrepancyID: d.DiscrepancyID,
			Decision:      string(domain.DecisionReturnToSender),
		})
		require.NoError(t, err)
		_, err = service.Process(ctx, ProcessDiscrepancyCommand{
			ClientID: "CL-001", DiscrepancyID: d.DiscrepancyID,
		})
		require.NoError(t, err)
		_, err = service.Close(ctx, CloseDiscrepancyCommand{
			ClientID: "CL-001", DiscrepancyID: d.DiscrepancyID, AdminID: "admin-1",
		})
		require.NoError(t, err)
	}

	// No reopen cap: run several full cycles
	for i := 1; i <= 3; i++ {
		runCycle()

		reopened, err := service.Reopen(ctx, ReopenDiscrepancyCommand{
			ClientID:      "CL-001",
			DiscrepancyID: d.DiscrepancyID,
			AdminNotes:    "client disputed resolution",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.DiscrepancyStatusPending, reopened.Status)
		assert.Equal(t, i, reopened.ReopenedCount)
		assert.Nil(t, reopened.SubmittedAt)
		assert.Nil(t, reopened.ProcessedAt)
	}
}

func TestAggregateStatusIsAndJoin(t *testing.T) {
	service, repo, _ := newDiscrepancyFixture(t)
	ctx := context.Background()

	damaged := seedDiscrepancy(t, repo, "CL-001", "ASN-1", "SKU-1", domain.DiscrepancyDamaged, 2)
	missing := seedDiscrepancy(t, repo, "CL-001", "ASN-1", "SKU-1", domain.DiscrepancyMissing, 1)

	label, err := service.AggregateStatus(ctx, "CL-001", "ASN-1", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseLabelAwaiting, label)

	// One of two responded: still awaiting
	_, err = service.SubmitDecision(ctx, SubmitDecisionCommand{
		ClientID:      "CL-001",
		DiscrepancyID: damaged.DiscrepancyID,
		Decision:      string(domain.DecisionDispose),
	})
	require.NoError(t, err)

	label, err = service.AggregateStatus(ctx, "CL-001", "ASN-1", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseLabelAwaiting, label)

	// All responded: the pair flips
	_, err = service.SubmitDecision(ctx, SubmitDecisionCommand{
		ClientID:      "CL-001",
		DiscrepancyID: missing.DiscrepancyID,
		Decision:      string(domain.DecisionAcceptAsIs),
	})
	require.NoError(t, err)

	label, err = service.AggregateStatus(ctx, "CL-001", "ASN-1", "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseLabelResponded, label)

	// Other pairs are unaffected
	label, err = service.AggregateStatus(ctx, "CL-001", "ASN-1", "SKU-2")
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseLabelResponded, label)
}

func TestCountPending(t *testing.T) {
	service, repo, _ := newDiscrepancyFixture(t)
	ctx := context.Background()

	seedDiscrepancy(t, repo, "CL-001", "ASN-1", "SKU-1", domain.DiscrepancyDamaged, 1)
	submitted := seedDiscrepancy(t, repo, "CL-001", "ASN-1", "SKU-2", domain.DiscrepancyMissing, 1)
	seedDiscrepancy(t, repo, "CL-002", "ASN-9", "SKU-3", domain.DiscrepancyDamaged, 1)

	_, err := service.SubmitDecision(ctx, SubmitDecisionCommand{
		ClientID:      "CL-001",
		DiscrepancyID: submitted.DiscrepancyID,
		Decision:      string(domain.DecisionDispose),
	})
	require.NoError(t, err)

	count, err := service.CountPending(ctx, "CL-001")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
