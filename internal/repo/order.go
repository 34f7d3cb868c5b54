package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tdminh/marketplace/internal/models"
)

// OrderRepo reads persisted orders and capture records. Writes happen
// inside the checkout transaction owned by the order service, so the
// create path takes the tx explicitly.
type OrderRepo struct {
	DB *gorm.DB
}

func (r *OrderRepo) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	return tx.WithContext(ctx).Create(order).Error
}

func (r *OrderRepo) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepo) ListByBuyer(ctx context.Context, buyerID uint, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("order_date DESC").
		Limit(limit).
		Offset(offset).
		Preload("Items").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepo) Save(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Save(order).Error
}

func (r *OrderRepo) TransactionByRef(ctx context.Context, providerRef string) (*models.PaymentTransaction, error) {
	var pt models.PaymentTransaction
	err := r.DB.WithContext(ctx).
		Where("provider_ref = ?", providerRef).
		First(&pt).Error
	if err != nil {
		return nil, err
	}
	return &pt, nil
}
