package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tdminh/marketplace/internal/models"
)

// CatalogRepo is the order/cart-side view of the product catalog:
// plain reads for cart validation, locking reads plus conditional
// decrements for checkout.
type CatalogRepo struct {
	DB *gorm.DB
}

func (r *CatalogRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProductForUpdate reads the product row under FOR UPDATE inside tx,
// serializing concurrent checkouts that touch the same product. The
// clause is postgres-only: the sqlite test store serializes writers on
// its own and rejects the syntax.
func (r *CatalogRepo) GetProductForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Product, error) {
	q := tx.WithContext(ctx)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var p models.Product
	if err := q.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// DecrementStock must only be called with the row lock from
// GetProductForUpdate still held, i.e. within the same tx.
func (r *CatalogRepo) DecrementStock(ctx context.Context, tx *gorm.DB, p *models.Product, qty uint) error {
	res := tx.WithContext(ctx).
		Model(p).
		Where("quantity >= ?", qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsLockTimeout reports whether err is a postgres lock_timeout
// expiration (SQLSTATE 55P03), which checkout surfaces as retryable.
func IsLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "55P03"
}

// IsUniqueViolation reports a unique constraint violation (SQLSTATE
// 23505), used to detect replayed payment captures racing each other.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
