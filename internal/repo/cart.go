package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tdminh/marketplace/internal/models"
)

// CartRepo owns the Cart and CartItem rows. One cart per user, created
// lazily on first access.
type CartRepo struct {
	DB *gorm.DB
}

func (r *CartRepo) GetOrCreate(ctx context.Context, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Cart{UserID: userID, LastUpdated: time.Now().UTC()}
		if err := r.DB.WithContext(ctx).Create(&cart).Error; err != nil {
			return nil, err
		}
		return &cart, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Reload returns the cart with its items, fresh from the store.
func (r *CartRepo) Reload(ctx context.Context, cartID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).Preload("Items").First(&cart, cartID).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *CartRepo) GetItem(ctx context.Context, cartID, productID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *CartRepo) SaveItem(ctx context.Context, item *models.CartItem) error {
	return r.DB.WithContext(ctx).Save(item).Error
}

func (r *CartRepo) DeleteItem(ctx context.Context, cartID, productID uint) error {
	return r.DB.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{}).Error
}

func (r *CartRepo) ClearItems(ctx context.Context, cartID uint) error {
	return r.DB.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}

// Touch bumps the cart's LastUpdated; every mutation goes through it.
func (r *CartRepo) Touch(ctx context.Context, cart *models.Cart) error {
	return r.DB.WithContext(ctx).
		Model(cart).
		Update("last_updated", time.Now().UTC()).Error
}
