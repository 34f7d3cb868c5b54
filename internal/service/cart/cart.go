// Package cart is the per-user cart aggregate: consolidated lines,
// stock-ceiling checks against the live catalog, no stock reservation.
// Stock is only reserved at checkout, which re-validates every line.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tdminh/marketplace/internal/apperr"
	"github.com/tdminh/marketplace/internal/models"
	"github.com/tdminh/marketplace/internal/repo"
)

type Service struct {
	Carts   *repo.CartRepo
	Catalog *repo.CatalogRepo
}

// GetOrCreate returns the user's cart with items, creating an empty
// cart on first access. Idempotent.
func (s *Service) GetOrCreate(ctx context.Context, userID uint) (*models.Cart, error) {
	cart, err := s.Carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Carts.Reload(ctx, cart.ID)
}

// AddItem adds qty to the user's line for the product, creating the
// line if absent.
func (s *Service) AddItem(ctx context.Context, userID, productID, qty uint) (*models.Cart, error) {
	return s.upsertItem(ctx, userID, productID, qty, true)
}

// UpdateItem sets the line quantity outright. The line must exist.
func (s *Service) UpdateItem(ctx context.Context, userID, productID, qty uint) (*models.Cart, error) {
	return s.upsertItem(ctx, userID, productID, qty, false)
}

func (s *Service) upsertItem(ctx context.Context, userID, productID, qty uint, additive bool) (*models.Cart, error) {
	if qty == 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", apperr.ErrValidation)
	}

	cart, err := s.Carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.Catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Product(productID, apperr.ErrProductUnavailable)
		}
		return nil, err
	}
	if !product.Sellable() {
		return nil, apperr.Product(productID, apperr.ErrProductUnavailable)
	}

	item, err := s.Carts.GetItem(ctx, cart.ID, productID)
	switch {
	case err == nil:
		target := qty
		if additive {
			target = item.Quantity + qty
		}
		if target > product.Quantity {
			return nil, apperr.Product(productID, apperr.ErrInsufficientStock)
		}
		item.Quantity = target
		if err := s.Carts.SaveItem(ctx, item); err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if !additive {
			return nil, fmt.Errorf("%w: product %d not in cart", apperr.ErrNotFound, productID)
		}
		if qty > product.Quantity {
			return nil, apperr.Product(productID, apperr.ErrInsufficientStock)
		}
		newItem := models.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  qty,
			AddedAt:   time.Now().UTC(),
		}
		if err := s.Carts.SaveItem(ctx, &newItem); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := s.Carts.Touch(ctx, cart); err != nil {
		return nil, err
	}
	return s.Carts.Reload(ctx, cart.ID)
}

// RemoveItem deletes the line for the product. Removing an absent line
// is a no-op, not an error.
func (s *Service) RemoveItem(ctx context.Context, userID, productID uint) (*models.Cart, error) {
	cart, err := s.Carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Carts.DeleteItem(ctx, cart.ID, productID); err != nil {
		return nil, err
	}
	if err := s.Carts.Touch(ctx, cart); err != nil {
		return nil, err
	}
	return s.Carts.Reload(ctx, cart.ID)
}

// Clear drops every line in the user's cart. The checkout caller runs
// this after a successful order.
func (s *Service) Clear(ctx context.Context, userID uint) (*models.Cart, error) {
	cart, err := s.Carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Carts.ClearItems(ctx, cart.ID); err != nil {
		return nil, err
	}
	if err := s.Carts.Touch(ctx, cart); err != nil {
		return nil, err
	}
	return s.Carts.Reload(ctx, cart.ID)
}
