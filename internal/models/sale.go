package models

import (
	"time"

	"github.com/google/uuid"
)

// Sale is an immutable record of one transaction line. Product fields are
// snapshots taken at sale time; a later product edit does not rewrite history.
type Sale struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName string    `gorm:"size:255;not null" json:"product_name"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	TotalAmount float64   `gorm:"not null" json:"total_amount"`
	UnitPrice   float64   `gorm:"not null" json:"unit_price"`
	CostPrice   float64   `gorm:"not null" json:"cost_price"`
	Profit      float64   `gorm:"not null" json:"profit"`
	SoldAt      time.Time `gorm:"not null;index" json:"sold_at"`
	Notes       string    `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}
