package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog entry owned by exactly one user. Ownership is the
// authorization boundary: every query filters by owner_id. SKU is immutable
// after creation and unique across all products.
type Product struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"-"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	SKU       string         `gorm:"size:50;not null;uniqueIndex" json:"sku"`
	Stock     int            `gorm:"not null;default:0" json:"stock"`
	CostPrice float64        `gorm:"not null;default:0" json:"cost_price"`
	SalePrice float64        `gorm:"not null;default:0" json:"sale_price"`
	Category  *string        `gorm:"size:100" json:"category"`
	Images    []ProductImage `gorm:"foreignKey:ProductID" json:"images,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Owner     User           `gorm:"foreignKey:OwnerID" json:"-"`
}

// ProductImage is one entry in a product's ordered image list. At most one
// image per product has is_primary set.
type ProductImage struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	URL        string    `gorm:"size:512;not null" json:"url"`
	StorageKey string    `gorm:"size:255;not null" json:"storage_key"`
	Position   int       `gorm:"not null;default:0" json:"position"`
	IsPrimary  bool      `gorm:"not null;default:false" json:"is_primary"`
	CreatedAt  time.Time `json:"created_at"`
}
