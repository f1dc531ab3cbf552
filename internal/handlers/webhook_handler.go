package handlers

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/stoqhq/stoq-backend/internal/config"
	"github.com/stoqhq/stoq-backend/internal/dto"
	"github.com/stoqhq/stoq-backend/internal/gateway"
	"github.com/stoqhq/stoq-backend/internal/services"
)

type WebhookHandler struct {
	subscriptionService *services.SubscriptionService
	cfg                 *config.Config
}

func NewWebhookHandler(subscriptionService *services.SubscriptionService, cfg *config.Config) *WebhookHandler {
	return &WebhookHandler{subscriptionService: subscriptionService, cfg: cfg}
}

// HandleRazorpay ingests gateway webhook events. Authenticity is the HMAC
// over the raw body; a bad signature short-circuits before anything is
// recorded. Processing failures return a non-2xx so the gateway's own
// redelivery policy kicks in — nothing is retried here.
func (h *WebhookHandler) HandleRazorpay(c *fiber.Ctx) error {
	rawBody := c.Body()
	signature := c.Get("X-Razorpay-Signature")

	if !gateway.VerifyWebhookSignature(rawBody, signature, h.cfg.RazorpayWebhookSecret) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid webhook signature",
		})
	}

	var event dto.WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid webhook payload",
		})
	}

	if err := h.subscriptionService.HandleWebhookEvent(&event, rawBody); err != nil {
		slog.Error("webhook processing failed", "event_type", event.Event, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to process webhook event",
		})
	}

	slog.Info("webhook processed", "event_type", event.Event)
	return c.JSON(fiber.Map{"received": true})
}
