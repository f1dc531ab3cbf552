package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/stoqhq/stoq-backend/internal/dto"
	"github.com/stoqhq/stoq-backend/internal/middleware"
	"github.com/stoqhq/stoq-backend/internal/services"
)

type BillingHandler struct {
	subscriptionService *services.SubscriptionService
}

func NewBillingHandler(subscriptionService *services.SubscriptionService) *BillingHandler {
	return &BillingHandler{subscriptionService: subscriptionService}
}

func (h *BillingHandler) CreateSubscription(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
	}

	var req dto.CreateSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request body"})
	}

	sub, err := h.subscriptionService.Create(user.ID, req.SubscriptionType)
	if err != nil {
		if errors.Is(err, services.ErrUnknownPlanType) || errors.Is(err, services.ErrPlanNotConfigured) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: true, Message: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.CreateSubscriptionResponse{
		SubscriptionID: sub.ID,
		ShortURL:       sub.ShortURL,
		Status:         sub.Status,
	})
}

// Status reports the caller's subscription as stored locally, plus the
// gateway's live view when one is reachable.
func (h *BillingHandler) Status(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
	}

	current, gatewaySub, err := h.subscriptionService.Status(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: true, Message: "Failed to fetch subscription"})
	}

	return c.JSON(fiber.Map{
		"user":    dto.NewUserResponse(current),
		"gateway": gatewaySub,
	})
}

func (h *BillingHandler) VerifyPayment(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
	}

	var req dto.VerifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request body"})
	}

	updated, err := h.subscriptionService.VerifyPayment(user.ID, &req)
	if err != nil {
		if errors.Is(err, services.ErrSignatureMismatch) || errors.Is(err, services.ErrSubscriptionMismatch) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Payment verification failed"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: true, Message: "Failed to verify payment"})
	}

	return c.JSON(fiber.Map{
		"message": "Payment verified",
		"user":    dto.NewUserResponse(updated),
	})
}

func (h *BillingHandler) CancelSubscription(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
	}

	updated, err := h.subscriptionService.Cancel(user.ID)
	if err != nil {
		if errors.Is(err, services.ErrNoSubscription) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: true, Message: err.Error()})
	}

	return c.JSON(fiber.Map{
		"message": "Subscription cancelled",
		"user":    dto.NewUserResponse(updated),
	})
}
