package dto

import "github.com/stoqhq/stoq-backend/internal/models"

type CreateProductRequest struct {
	Name      string  `json:"name"`
	SKU       string  `json:"sku"`
	Stock     int     `json:"stock"`
	CostPrice float64 `json:"cost_price"`
	SalePrice float64 `json:"sale_price"`
	Category  *string `json:"category"`
}

// UpdateProductRequest carries partial updates; nil fields are left untouched.
// SKU is immutable and deliberately absent.
type UpdateProductRequest struct {
	Name      *string  `json:"name"`
	Stock     *int     `json:"stock"`
	CostPrice *float64 `json:"cost_price"`
	SalePrice *float64 `json:"sale_price"`
	Category  *string  `json:"category"`
}

type AdjustStockRequest struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

type ProductListResponse struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}
