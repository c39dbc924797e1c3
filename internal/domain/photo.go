package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Photo retention policy: hard-deleted after 30 days, advisory warning from
// day 25
const (
	PhotoRetentionDays    = 30
	PhotoWarningAfterDays = 25
)

// QCPhoto is a stored quality-control photograph tied to a discrepancy or
// receiving event. Subject to the retention sweep; deletion removes both the
// storage object and this row.
type QCPhoto struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID  string             `bson:"clientId" json:"clientId"`
	FilePath  string             `bson:"filePath" json:"filePath"`
	SourceType string            `bson:"sourceType" json:"sourceType"`
	SourceRef string             `bson:"sourceRef,omitempty" json:"sourceRef,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// NewQCPhoto creates a photo record
func NewQCPhoto(clientID, filePath, sourceType, sourceRef string) *QCPhoto {
	return &QCPhoto{
		ID:         primitive.NewObjectID(),
		ClientID:   clientID,
		FilePath:   filePath,
		SourceType: sourceType,
		SourceRef:  sourceRef,
		CreatedAt:  time.Now().UTC(),
	}
}

// Age returns the photo's age relative to now
func (p *QCPhoto) Age(now time.Time) time.Duration {
	return now.Sub(p.CreatedAt)
}

// IsExpired reports whether the photo has passed the retention window
func (p *QCPhoto) IsExpired(now time.Time) bool {
	return p.Age(now) > PhotoRetentionDays*24*time.Hour
}

// NearExpiry reports whether the photo is within the 25-30 day advisory
// window
func (p *QCPhoto) NearExpiry(now time.Time) bool {
	age := p.Age(now)
	return age > PhotoWarningAfterDays*24*time.Hour && !p.IsExpired(now)
}
