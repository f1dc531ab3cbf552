package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stoqhq/stoq-backend/internal/dto"
	"github.com/stoqhq/stoq-backend/internal/models"
)

var (
	ErrSaleNotFound      = errors.New("sale not found")
	ErrInvalidSale       = errors.New("quantity must be at least 1 and total amount must not be negative")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type SaleService struct {
	db *gorm.DB
}

func NewSaleService(db *gorm.DB) *SaleService {
	return &SaleService{db: db}
}

// Create records a sale and decrements product stock in a single transaction.
// The decrement is conditional on the current stock level, so two concurrent
// sales of the same product cannot both pass the availability check.
func (s *SaleService) Create(ownerID uuid.UUID, req *dto.CreateSaleRequest) (*models.Sale, error) {
	if req.Quantity < 1 || req.TotalAmount < 0 {
		return nil, ErrInvalidSale
	}

	var product models.Product
	if err := s.db.Where("id = ? AND owner_id = ?", req.ProductID, ownerID).First(&product).Error; err != nil {
		return nil, ErrProductNotFound
	}
	if req.Quantity > product.Stock {
		return nil, ErrInsufficientStock
	}

	sale := models.Sale{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    req.Quantity,
		TotalAmount: req.TotalAmount,
		UnitPrice:   req.TotalAmount / float64(req.Quantity),
		CostPrice:   product.CostPrice,
		Profit:      req.TotalAmount - product.CostPrice*float64(req.Quantity),
		SoldAt:      time.Now(),
		Notes:       req.Notes,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Product{}).
			Where("id = ? AND owner_id = ? AND stock >= ?", product.ID, ownerID, req.Quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", req.Quantity))
		if result.Error != nil {
			return fmt.Errorf("failed to decrement stock: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// Stock moved between the read and this write.
			return ErrInsufficientStock
		}
		if err := tx.Create(&sale).Error; err != nil {
			return fmt.Errorf("failed to record sale: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *SaleService) List(ownerID uuid.UUID, page, limit int) (*dto.SaleListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	var sales []models.Sale
	var total int64

	query := s.db.Model(&models.Sale{}).Where("owner_id = ?", ownerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	if err := query.Order("sold_at DESC").Limit(limit).Offset(offset).Find(&sales).Error; err != nil {
		return nil, err
	}

	return &dto.SaleListResponse{Sales: sales, Total: total, Page: page, Limit: limit}, nil
}

// Delete removes a sale and restores the product's stock in the same
// transaction. A product deleted in the meantime just skips restoration.
func (s *SaleService) Delete(ownerID, saleID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var sale models.Sale
		if err := tx.Where("id = ? AND owner_id = ?", saleID, ownerID).First(&sale).Error; err != nil {
			return ErrSaleNotFound
		}

		if err := tx.Delete(&sale).Error; err != nil {
			return fmt.Errorf("failed to delete sale: %w", err)
		}

		result := tx.Model(&models.Product{}).
			Where("id = ? AND owner_id = ?", sale.ProductID, ownerID).
			UpdateColumn("stock", gorm.Expr("stock + ?", sale.Quantity))
		if result.Error != nil {
			return fmt.Errorf("failed to restore stock: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			slog.Warn("sale deleted but product gone, stock not restored",
				"sale_id", sale.ID.String(), "product_id", sale.ProductID.String())
		}
		return nil
	})
}
