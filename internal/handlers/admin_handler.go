package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/stoqhq/stoq-backend/internal/dto"
	"github.com/stoqhq/stoq-backend/internal/models"
)

// AdminHandler exposes diagnostic views over the audit tables.
type AdminHandler struct {
	db *gorm.DB
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

// ListSubscriptionLogs returns recent webhook audit rows, newest first,
// optionally filtered by external subscription id.
func (h *AdminHandler) ListSubscriptionLogs(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := h.db.Model(&models.SubscriptionLog{})
	if subID := c.Query("subscription_id"); subID != "" {
		query = query.Where("subscription_id = ?", subID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: true, Message: "Failed to fetch logs"})
	}

	var logs []models.SubscriptionLog
	err := query.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&logs).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: true, Message: "Failed to fetch logs"})
	}

	return c.JSON(fiber.Map{"logs": logs, "total": total, "page": page, "limit": limit})
}
