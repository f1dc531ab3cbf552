package dto

import "github.com/stoqhq/stoq-backend/internal/models"

type CreateSubscriptionRequest struct {
	SubscriptionType models.SubscriptionType `json:"subscription_type"`
}

type CreateSubscriptionResponse struct {
	SubscriptionID string `json:"subscription_id"`
	ShortURL       string `json:"short_url"`
	Status         string `json:"status"`
}

type VerifyPaymentRequest struct {
	PaymentID      string `json:"razorpay_payment_id"`
	SubscriptionID string `json:"razorpay_subscription_id"`
	Signature      string `json:"razorpay_signature"`
}
