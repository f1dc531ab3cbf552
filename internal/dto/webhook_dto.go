package dto

// WebhookEvent is the gateway's webhook envelope, reduced to the entities
// this service dispatches on.
type WebhookEvent struct {
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

type WebhookPayload struct {
	Subscription *SubscriptionEntityWrapper `json:"subscription"`
	Payment      *PaymentEntityWrapper      `json:"payment"`
}

type SubscriptionEntityWrapper struct {
	Entity SubscriptionEntity `json:"entity"`
}

type SubscriptionEntity struct {
	ID     string `json:"id"`
	PlanID string `json:"plan_id"`
	Status string `json:"status"`
}

type PaymentEntityWrapper struct {
	Entity PaymentEntity `json:"entity"`
}

type PaymentEntity struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	Amount         int64  `json:"amount"`
	Status         string `json:"status"`
	CreatedAt      int64  `json:"created_at"`
}

// SubscriptionID returns the subscription the event refers to, preferring the
// subscription entity over the payment's back-reference.
func (e *WebhookEvent) SubscriptionID() string {
	if e.Payload.Subscription != nil && e.Payload.Subscription.Entity.ID != "" {
		return e.Payload.Subscription.Entity.ID
	}
	if e.Payload.Payment != nil {
		return e.Payload.Payment.Entity.SubscriptionID
	}
	return ""
}

// PaymentID returns the payment id carried by the event, if any.
func (e *WebhookEvent) PaymentID() string {
	if e.Payload.Payment != nil {
		return e.Payload.Payment.Entity.ID
	}
	return ""
}

// Status returns the entity status carried by the event, if any.
func (e *WebhookEvent) Status() string {
	if e.Payload.Subscription != nil && e.Payload.Subscription.Entity.Status != "" {
		return e.Payload.Subscription.Entity.Status
	}
	if e.Payload.Payment != nil {
		return e.Payload.Payment.Entity.Status
	}
	return ""
}
