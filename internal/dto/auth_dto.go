package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/stoqhq/stoq-backend/internal/models"
)

type SignupRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	BusinessName string `json:"business_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}

type UserResponse struct {
	ID                    uuid.UUID                  `json:"id"`
	Email                 string                     `json:"email"`
	Name                  string                     `json:"name"`
	BusinessName          string                     `json:"business_name"`
	Role                  string                     `json:"role"`
	Plan                  models.Plan                `json:"plan"`
	SubscriptionID        *string                    `json:"subscription_id"`
	SubscriptionType      *models.SubscriptionType   `json:"subscription_type"`
	SubscriptionStatus    *models.SubscriptionStatus `json:"subscription_status"`
	SubscriptionExpiresAt *time.Time                 `json:"subscription_expires_at"`
	IsEmailVerified       bool                       `json:"is_email_verified"`
	ProfileImageURL       *string                    `json:"profile_image_url"`
	CreatedAt             time.Time                  `json:"created_at"`
}

func NewUserResponse(u *models.User) *UserResponse {
	return &UserResponse{
		ID:                    u.ID,
		Email:                 u.Email,
		Name:                  u.Name,
		BusinessName:          u.BusinessName,
		Role:                  u.Role,
		Plan:                  u.Plan,
		SubscriptionID:        u.SubscriptionID,
		SubscriptionType:      u.SubscriptionType,
		SubscriptionStatus:    u.SubscriptionStatus,
		SubscriptionExpiresAt: u.SubscriptionExpiresAt,
		IsEmailVerified:       u.IsEmailVerified,
		ProfileImageURL:       u.ProfileImageURL,
		CreatedAt:             u.CreatedAt,
	}
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
