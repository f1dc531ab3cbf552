package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Plan is the user's subscription tier, gating feature access.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPaid Plan = "paid"
)

// SubscriptionStatus is the lifecycle state of the billing relationship,
// distinct from Plan.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCompleted SubscriptionStatus = "completed"
	SubscriptionOneTime   SubscriptionStatus = "one_time"
	SubscriptionCreated   SubscriptionStatus = "created"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
)

// SubscriptionType is the billing cadence chosen at subscription creation.
type SubscriptionType string

const (
	SubscriptionMonthly SubscriptionType = "monthly"
	SubscriptionAnnual  SubscriptionType = "annual"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User holds identity plus live subscription state. At most one subscription
// is "current"; a superseded one moves to SubscriptionHistory and the live
// fields are cleared.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password     string    `gorm:"not null" json:"-"`
	Name         string    `gorm:"size:255" json:"name"`
	BusinessName string    `gorm:"size:255" json:"business_name"`
	Role         string    `gorm:"size:20;default:'customer'" json:"role"`

	Plan                  Plan                `gorm:"size:20;default:'free'" json:"plan"`
	SubscriptionID        *string             `gorm:"size:255;index" json:"subscription_id"`
	SubscriptionType      *SubscriptionType   `gorm:"size:20" json:"subscription_type"`
	SubscriptionStatus    *SubscriptionStatus `gorm:"size:20" json:"subscription_status"`
	SubscriptionStartedAt *time.Time          `json:"subscription_started_at"`
	SubscriptionExpiresAt *time.Time          `json:"subscription_expires_at"`

	IsEmailVerified       bool       `gorm:"default:false" json:"is_email_verified"`
	VerificationToken     *string    `gorm:"size:64;index" json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`

	ProfileImageURL *string `gorm:"size:512" json:"profile_image_url"`

	PaymentHistory      []PaymentRecord      `gorm:"foreignKey:UserID" json:"payment_history,omitempty"`
	SubscriptionHistory []SubscriptionRecord `gorm:"foreignKey:UserID" json:"subscription_history,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PaymentRecord is one append-only entry in a user's payment history.
type PaymentRecord struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	PaymentID      string    `gorm:"size:255;not null" json:"payment_id"`
	SubscriptionID string    `gorm:"size:255" json:"subscription_id"`
	Amount         int64     `json:"amount"`
	Status         string    `gorm:"size:50" json:"status"`
	PaidAt         time.Time `json:"paid_at"`
	CreatedAt      time.Time `json:"-"`
}

// SubscriptionRecord is one append-only entry in a user's subscription history.
type SubscriptionRecord struct {
	ID               uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"-"`
	SubscriptionID   string             `gorm:"size:255;not null" json:"subscription_id"`
	SubscriptionType SubscriptionType   `gorm:"size:20" json:"subscription_type"`
	Status           SubscriptionStatus `gorm:"size:20" json:"status"`
	StartedAt        time.Time          `json:"started_at"`
	EndedAt          time.Time          `json:"ended_at"`
	CreatedAt        time.Time          `json:"-"`
}
