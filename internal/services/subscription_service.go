package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stoqhq/stoq-backend/internal/config"
	"github.com/stoqhq/stoq-backend/internal/dto"
	"github.com/stoqhq/stoq-backend/internal/gateway"
	"github.com/stoqhq/stoq-backend/internal/models"
)

var (
	ErrNoSubscription       = errors.New("no active subscription")
	ErrSignatureMismatch    = errors.New("signature verification failed")
	ErrSubscriberNotFound   = errors.New("no user holds this subscription")
	ErrSubscriptionMismatch = errors.New("subscription does not belong to this user")
	ErrUnknownPlanType      = errors.New("unknown subscription type")
	ErrPlanNotConfigured    = errors.New("subscription plan not configured")
)

// SubscriptionService reconciles plan/status/expiry across the three write
// paths: user-initiated API calls, gateway webhooks, and the passive expiry
// check run on authenticated requests. There is no central arbiter; each path
// re-derives state from what it sees (last write wins).
type SubscriptionService struct {
	db      *gorm.DB
	cfg     *config.Config
	gateway gateway.Client
}

func NewSubscriptionService(db *gorm.DB, cfg *config.Config, gw gateway.Client) *SubscriptionService {
	return &SubscriptionService{db: db, cfg: cfg, gateway: gw}
}

// Create starts a subscription at the gateway and records it locally as
// pending. A gateway error surfaces to the caller and leaves state untouched.
func (s *SubscriptionService) Create(userID uuid.UUID, subType models.SubscriptionType) (*gateway.Subscription, error) {
	planID, totalCount, err := s.planFor(subType)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrUserNotFound
	}

	sub, err := s.gateway.CreateSubscription(planID, totalCount)
	if err != nil {
		return nil, fmt.Errorf("gateway create subscription: %w", err)
	}

	now := time.Now()
	pending := models.SubscriptionPending
	err = s.db.Model(&user).Updates(map[string]interface{}{
		"subscription_id":         sub.ID,
		"subscription_type":       subType,
		"subscription_status":     pending,
		"subscription_started_at": now,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to store subscription: %w", err)
	}
	return sub, nil
}

// VerifyPayment recomputes the checkout HMAC and, on match, records the
// payment and activates the subscription. On mismatch nothing is trusted and
// nothing changes.
func (s *SubscriptionService) VerifyPayment(userID uuid.UUID, req *dto.VerifyPaymentRequest) (*models.User, error) {
	if !gateway.VerifyPaymentSignature(req.PaymentID, req.SubscriptionID, req.Signature, s.cfg.RazorpayKeySecret) {
		return nil, ErrSignatureMismatch
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrUserNotFound
	}
	// A valid triple for somebody else's subscription must not activate
	// this account.
	if user.SubscriptionID == nil || *user.SubscriptionID != req.SubscriptionID {
		return nil, ErrSubscriptionMismatch
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		payment := models.PaymentRecord{
			ID:             uuid.New(),
			UserID:         user.ID,
			PaymentID:      req.PaymentID,
			SubscriptionID: req.SubscriptionID,
			Status:         "captured",
			PaidAt:         time.Now(),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}
		return s.activate(tx, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Status returns the user's local subscription state alongside the gateway's
// live view. A gateway read failure degrades to local state only.
func (s *SubscriptionService) Status(userID uuid.UUID) (*models.User, *gateway.Subscription, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, nil, ErrUserNotFound
	}
	if user.SubscriptionID == nil {
		return &user, nil, nil
	}

	sub, err := s.gateway.FetchSubscription(*user.SubscriptionID)
	if err != nil {
		slog.Warn("gateway subscription fetch failed",
			"subscription_id", *user.SubscriptionID, "error", err)
		return &user, nil, nil
	}
	return &user, sub, nil
}

// Cancel ends the subscription at the gateway, then archives the live fields
// into subscription history. Expiry is retained: the user keeps paid access
// until the period they already paid for runs out.
func (s *SubscriptionService) Cancel(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrUserNotFound
	}
	if user.SubscriptionID == nil {
		return nil, ErrNoSubscription
	}

	if _, err := s.gateway.CancelSubscription(*user.SubscriptionID); err != nil {
		return nil, fmt.Errorf("gateway cancel subscription: %w", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.archiveSubscription(tx, &user, models.SubscriptionCancelled, false)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// HandleWebhookEvent records an audit row for the (already authenticated)
// event, then dispatches on the event type. Unknown events are acknowledged
// without any state change.
func (s *SubscriptionService) HandleWebhookEvent(event *dto.WebhookEvent, rawBody []byte) error {
	logEntry := models.SubscriptionLog{
		ID:             uuid.New(),
		EventType:      event.Event,
		SubscriptionID: event.SubscriptionID(),
		PaymentID:      event.PaymentID(),
		Status:         event.Status(),
		Payload:        datatypes.JSON(rawBody),
	}
	if err := s.db.Create(&logEntry).Error; err != nil {
		return fmt.Errorf("failed to record webhook event: %w", err)
	}

	switch event.Event {
	case "subscription.activated":
		return s.handleActivation(event, nil)
	case "subscription.charged":
		return s.handleActivation(event, event.Payload.Payment)
	case "subscription.cancelled":
		return s.handleCancellation(event)
	case "payment.failed":
		return s.handlePaymentFailure(event)
	default:
		return nil
	}
}

func (s *SubscriptionService) handleActivation(event *dto.WebhookEvent, payment *dto.PaymentEntityWrapper) error {
	user, err := s.findSubscriber(event.SubscriptionID())
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if payment != nil {
			record := models.PaymentRecord{
				ID:             uuid.New(),
				UserID:         user.ID,
				PaymentID:      payment.Entity.ID,
				SubscriptionID: payment.Entity.SubscriptionID,
				Amount:         payment.Entity.Amount,
				Status:         payment.Entity.Status,
				PaidAt:         time.Unix(payment.Entity.CreatedAt, 0),
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("failed to record payment: %w", err)
			}
		}
		return s.activate(tx, user)
	})
}

func (s *SubscriptionService) handleCancellation(event *dto.WebhookEvent) error {
	user, err := s.findSubscriber(event.SubscriptionID())
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		// Webhook-initiated cancellation also drops the expiry.
		return s.archiveSubscription(tx, user, models.SubscriptionCancelled, true)
	})
}

func (s *SubscriptionService) handlePaymentFailure(event *dto.WebhookEvent) error {
	user, err := s.findSubscriber(event.SubscriptionID())
	if err != nil {
		return err
	}

	pastDue := models.SubscriptionPastDue
	if err := s.db.Model(user).Update("subscription_status", pastDue).Error; err != nil {
		return fmt.Errorf("failed to mark subscription past due: %w", err)
	}
	user.SubscriptionStatus = &pastDue
	return nil
}

// activate flips the user to paid/active and extends expiry by one billing
// period. When the current expiry is still in the future the period stacks on
// top of it, so redelivered or early renewals extend rather than reset.
func (s *SubscriptionService) activate(tx *gorm.DB, user *models.User) error {
	subType := models.SubscriptionMonthly
	if user.SubscriptionType != nil {
		subType = *user.SubscriptionType
	}

	var period time.Duration
	switch subType {
	case models.SubscriptionMonthly:
		period = 30 * 24 * time.Hour
	case models.SubscriptionAnnual:
		period = 365 * 24 * time.Hour
	default:
		return ErrUnknownPlanType
	}

	now := time.Now()
	base := now
	if user.SubscriptionExpiresAt != nil && user.SubscriptionExpiresAt.After(now) {
		base = *user.SubscriptionExpiresAt
	}
	expiry := base.Add(period)

	active := models.SubscriptionActive
	err := tx.Model(user).Updates(map[string]interface{}{
		"plan":                    models.PlanPaid,
		"subscription_status":     active,
		"subscription_expires_at": expiry,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to activate subscription: %w", err)
	}

	user.Plan = models.PlanPaid
	user.SubscriptionStatus = &active
	user.SubscriptionExpiresAt = &expiry
	return nil
}

// archiveSubscription appends the live subscription to history and clears the
// live identifier fields. clearExpiry distinguishes the webhook cancellation
// path from the user-initiated one.
func (s *SubscriptionService) archiveSubscription(tx *gorm.DB, user *models.User, status models.SubscriptionStatus, clearExpiry bool) error {
	if user.SubscriptionID == nil {
		return ErrNoSubscription
	}

	now := time.Now()
	startedAt := now
	if user.SubscriptionStartedAt != nil {
		startedAt = *user.SubscriptionStartedAt
	}

	subType := models.SubscriptionMonthly
	if user.SubscriptionType != nil {
		subType = *user.SubscriptionType
	}

	record := models.SubscriptionRecord{
		ID:               uuid.New(),
		UserID:           user.ID,
		SubscriptionID:   *user.SubscriptionID,
		SubscriptionType: subType,
		Status:           status,
		StartedAt:        startedAt,
		EndedAt:          now,
	}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to archive subscription: %w", err)
	}

	updates := map[string]interface{}{
		"subscription_id":         nil,
		"subscription_type":       nil,
		"subscription_status":     status,
		"subscription_started_at": nil,
	}
	if clearExpiry {
		updates["subscription_expires_at"] = nil
	}
	if err := tx.Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to clear subscription fields: %w", err)
	}

	user.SubscriptionID = nil
	user.SubscriptionType = nil
	user.SubscriptionStatus = &status
	user.SubscriptionStartedAt = nil
	if clearExpiry {
		user.SubscriptionExpiresAt = nil
	}
	return nil
}

// ReconcileExpiry is the passive reconciliation rule: a paid user whose
// expiry has passed is downgraded on the spot, whatever their status. This is
// the only path that touches plan itself outside activation.
func (s *SubscriptionService) ReconcileExpiry(user *models.User) (bool, error) {
	if user.Plan != models.PlanPaid {
		return false, nil
	}
	if user.SubscriptionExpiresAt == nil || user.SubscriptionExpiresAt.After(time.Now()) {
		return false, nil
	}

	expired := models.SubscriptionExpired
	err := s.db.Model(user).Updates(map[string]interface{}{
		"plan":                models.PlanFree,
		"subscription_status": expired,
	}).Error
	if err != nil {
		return false, fmt.Errorf("failed to downgrade expired subscription: %w", err)
	}

	user.Plan = models.PlanFree
	user.SubscriptionStatus = &expired
	return true, nil
}

func (s *SubscriptionService) findSubscriber(subscriptionID string) (*models.User, error) {
	if subscriptionID == "" {
		return nil, ErrSubscriberNotFound
	}
	var user models.User
	if err := s.db.Where("subscription_id = ?", subscriptionID).First(&user).Error; err != nil {
		return nil, ErrSubscriberNotFound
	}
	return &user, nil
}

func (s *SubscriptionService) planFor(subType models.SubscriptionType) (string, int, error) {
	switch subType {
	case models.SubscriptionMonthly:
		if s.cfg.RazorpayMonthlyPlanID == "" {
			return "", 0, ErrPlanNotConfigured
		}
		return s.cfg.RazorpayMonthlyPlanID, 12, nil
	case models.SubscriptionAnnual:
		if s.cfg.RazorpayAnnualPlanID == "" {
			return "", 0, ErrPlanNotConfigured
		}
		return s.cfg.RazorpayAnnualPlanID, 1, nil
	default:
		return "", 0, ErrUnknownPlanType
	}
}
