package idempotency

import (
	"context"
	"time"
)

// Repository defines the interface for webhook dedup persistence
type Repository interface {
	// Record attempts to record an event as processed. It returns true when
	// this is the first time the (clientID, externalEventID) pair is seen,
	// false when the event was already recorded.
	Record(ctx context.Context, webhook *ProcessedWebhook) (bool, error)

	// Seen reports whether the (clientID, externalEventID) pair was already recorded
	Seen(ctx context.Context, clientID, externalEventID string) (bool, error)

	// DeleteOlderThan removes records received before the cutoff and returns the count
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
