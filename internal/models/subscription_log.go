package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SubscriptionLog is an append-only audit record of every authenticated
// inbound webhook event. Rows are never updated; old ones age out via the
// retention cleanup.
type SubscriptionLog struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EventType      string         `gorm:"size:100;not null;index" json:"event_type"`
	SubscriptionID string         `gorm:"size:255;index" json:"subscription_id"`
	PaymentID      string         `gorm:"size:255" json:"payment_id"`
	Status         string         `gorm:"size:50" json:"status"`
	Payload        datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
}
