package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	DeliveryPending   = "pending"
	DeliveryPublished = "published"
	DeliveryFailed    = "failed"
)

// Notification is a lifecycle-triggered message for one user. Rows double as
// the delivery outbox: the relay publishes pending rows and flips the status,
// so a message is fanned out at most once.
type Notification struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	CallID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Message     string    `gorm:"not null"`
	Read        bool      `gorm:"default:false"`
	Delivery    string    `gorm:"not null;default:'pending';index"`
	CreatedAt   time.Time `gorm:"autoCreateTime;not null"`
	PublishedAt *time.Time
}
