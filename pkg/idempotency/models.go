package idempotency

import (
	"time"
)

// ProcessedWebhook records an inbound platform event that has already been
// handled. The (clientId, externalEventId) pair is unique, so a redelivered
// webhook inserts nothing and can be acknowledged without side effects.
type ProcessedWebhook struct {
	ID              string    `bson:"_id" json:"id"`
	ClientID        string    `bson:"clientId" json:"clientId"`
	ExternalEventID string    `bson:"externalEventId" json:"externalEventId"`
	Platform        string    `bson:"platform" json:"platform"`
	Topic           string    `bson:"topic" json:"topic"`
	ReceivedAt      time.Time `bson:"receivedAt" json:"receivedAt"`
}

// Key returns the dedup key for logging
func (p *ProcessedWebhook) Key() string {
	return p.ClientID + "/" + p.ExternalEventID
}
