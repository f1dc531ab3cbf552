package dto

import (
	"github.com/google/uuid"
	"github.com/stoqhq/stoq-backend/internal/models"
)

type CreateSaleRequest struct {
	ProductID   uuid.UUID `json:"product_id"`
	Quantity    int       `json:"quantity"`
	TotalAmount float64   `json:"total_amount"`
	Notes       string    `json:"notes"`
}

type SaleListResponse struct {
	Sales []models.Sale `json:"sales"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}
