// Package order is the checkout pipeline: cart lines in, a persisted
// order with reserved stock out, all inside one transaction.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tdminh/marketplace/internal/apperr"
	"github.com/tdminh/marketplace/internal/logging"
	"github.com/tdminh/marketplace/internal/models"
	"github.com/tdminh/marketplace/internal/payment"
	"github.com/tdminh/marketplace/internal/repo"
)

// Line is one requested (product, quantity) pair of a checkout.
type Line struct {
	ProductID uint `json:"product_id"`
	Quantity  uint `json:"quantity"`
}

// Contact is the shipping contact supplied with a checkout. A
// ContactInfo row is created from it inside the order transaction.
type Contact struct {
	RecipientName string `json:"recipient_name"`
	PhoneNumber   string `json:"phone_number"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
}

type Service struct {
	DB          *gorm.DB
	Catalog     *repo.CatalogRepo
	Orders      *repo.OrderRepo
	Carts       *repo.CartRepo
	Provider    payment.Provider
	ShippingFee decimal.Decimal
	LockTimeout time.Duration
}

// Create validates every line against live stock under row locks,
// snapshots prices, decrements stock and persists the order with its
// items — all in one transaction. Any failure rolls the whole thing
// back: no contact row, no decrement, no order survives a failed line.
func (s *Service) Create(ctx context.Context, buyerID, paymentMethodID uint, contact Contact, lines []Line) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: at least one line required", apperr.ErrValidation)
	}
	for _, ln := range lines {
		if ln.Quantity == 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0", apperr.ErrValidation)
		}
	}

	var order *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.createInTx(ctx, tx, buyerID, paymentMethodID, contact, lines)
		return err
	})
	if err != nil {
		if repo.IsLockTimeout(err) {
			return nil, fmt.Errorf("%w: checkout contention, retry", apperr.ErrLockTimeout)
		}
		return nil, err
	}
	return order, nil
}

func (s *Service) createInTx(ctx context.Context, tx *gorm.DB, buyerID, paymentMethodID uint, contact Contact, lines []Line) (*models.Order, error) {
	if tx.Dialector.Name() == "postgres" {
		// Bound the FOR UPDATE wait so contended checkouts fail
		// retryable instead of queueing forever. SET LOCAL scopes
		// it to this transaction.
		timeout := s.LockTimeout
		if timeout <= 0 {
			timeout = 3 * time.Second
		}
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())
		if err := tx.Exec(stmt).Error; err != nil {
			return nil, err
		}
	}

	var buyer models.User
	if err := tx.WithContext(ctx).First(&buyer, buyerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrBuyerNotFound
		}
		return nil, err
	}

	contactRow := models.ContactInfo{
		UserID:        buyer.ID,
		RecipientName: contact.RecipientName,
		PhoneNumber:   contact.PhoneNumber,
		StreetAddress: contact.StreetAddress,
		City:          contact.City,
	}
	if err := tx.WithContext(ctx).Create(&contactRow).Error; err != nil {
		return nil, err
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	for _, ln := range lines {
		p, err := s.Catalog.GetProductForUpdate(ctx, tx, ln.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.Product(ln.ProductID, apperr.ErrProductUnavailable)
			}
			return nil, err
		}
		if !p.Sellable() {
			return nil, apperr.Product(ln.ProductID, apperr.ErrProductUnavailable)
		}
		if p.Quantity < ln.Quantity {
			return nil, apperr.Product(ln.ProductID, apperr.ErrInsufficientStock)
		}

		if err := s.Catalog.DecrementStock(ctx, tx, p, ln.Quantity); err != nil {
			return nil, err
		}

		items = append(items, models.OrderItem{
			ProductID: p.ID,
			SellerID:  p.SellerID,
			Price:     p.Price,
			Quantity:  ln.Quantity,
		})
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(ln.Quantity))))
	}

	order := &models.Order{
		BuyerID:         buyer.ID,
		ContactID:       contactRow.ID,
		PaymentMethodID: paymentMethodID,
		OrderDate:       time.Now().UTC(),
		TotalAmount:     total.Add(s.ShippingFee),
		ShippingFee:     s.ShippingFee,
		Status:          models.OrderPending,
		Items:           items,
	}
	if err := s.Orders.Create(ctx, tx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// CheckoutCart converts the buyer's cart into an order and clears the
// cart on success. The clear happens outside the order transaction so a
// later payment failure never needs to un-clear anything.
func (s *Service) CheckoutCart(ctx context.Context, buyerID, paymentMethodID uint, contact Contact) (*models.Order, error) {
	lines, cartID, err := s.cartLines(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	order, err := s.Create(ctx, buyerID, paymentMethodID, contact, lines)
	if err != nil {
		return nil, err
	}

	// The order is committed at this point; a failed clear must not
	// turn it into a client-facing error.
	if err := s.Carts.ClearItems(ctx, cartID); err != nil {
		logging.FromContext(ctx).Warn("cart_clear_error", "cartID", cartID, "error", err)
	}
	return order, nil
}

// CartTotal is what the provider order is authorized for: the live cart
// total plus shipping, computed the same way checkout will.
func (s *Service) CartTotal(ctx context.Context, buyerID uint) (decimal.Decimal, error) {
	lines, _, err := s.cartLines(ctx, buyerID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, ln := range lines {
		p, err := s.Catalog.GetProduct(ctx, ln.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return decimal.Zero, apperr.Product(ln.ProductID, apperr.ErrProductUnavailable)
			}
			return decimal.Zero, err
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(ln.Quantity))))
	}
	return total.Add(s.ShippingFee), nil
}

func (s *Service) cartLines(ctx context.Context, buyerID uint) ([]Line, uint, error) {
	cart, err := s.Carts.GetOrCreate(ctx, buyerID)
	if err != nil {
		return nil, 0, err
	}
	full, err := s.Carts.Reload(ctx, cart.ID)
	if err != nil {
		return nil, 0, err
	}
	if len(full.Items) == 0 {
		return nil, 0, fmt.Errorf("%w: cart is empty", apperr.ErrValidation)
	}

	lines := make([]Line, 0, len(full.Items))
	for _, it := range full.Items {
		lines = append(lines, Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines, cart.ID, nil
}

// orderByRef resolves an already-captured reference to its order,
// scoped to the calling buyer. A reference captured by someone else
// reads as not found, the same way GetOrder hides foreign orders.
func (s *Service) orderByRef(ctx context.Context, buyerID uint, providerRef string) (*models.Order, error) {
	pt, err := s.Orders.TransactionByRef(ctx, providerRef)
	if err != nil {
		return nil, err
	}
	order, err := s.Orders.GetByID(ctx, pt.OrderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, fmt.Errorf("%w: capture %s", apperr.ErrNotFound, providerRef)
	}
	return order, nil
}

// Capture finalizes an online payment. The provider delivers callbacks
// at least once, so a replayed reference returns the already-created
// order untouched instead of decrementing stock again. The capture
// record and the order commit in the same transaction; the unique
// provider_ref index settles concurrent replays. The bool reports
// whether this call created the order; replays return false.
func (s *Service) Capture(ctx context.Context, buyerID, paymentMethodID uint, providerRef string, contact Contact, lines []Line) (*models.Order, bool, error) {
	if providerRef == "" {
		return nil, false, fmt.Errorf("%w: provider reference required", apperr.ErrValidation)
	}

	if order, err := s.orderByRef(ctx, buyerID, providerRef); err == nil {
		return order, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	// Only now require lines: a replayed callback arrives after the
	// cart was cleared and must still resolve above.
	if len(lines) == 0 {
		return nil, false, fmt.Errorf("%w: at least one line required", apperr.ErrValidation)
	}
	for _, ln := range lines {
		if ln.Quantity == 0 {
			return nil, false, fmt.Errorf("%w: quantity must be > 0", apperr.ErrValidation)
		}
	}

	res, err := s.Provider.Capture(ctx, providerRef)
	if err != nil {
		return nil, false, err
	}
	if !res.Completed {
		return nil, false, fmt.Errorf("%w: provider declined capture %s", apperr.ErrConflict, providerRef)
	}

	var order *models.Order
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.createInTx(ctx, tx, buyerID, paymentMethodID, contact, lines)
		if err != nil {
			return err
		}
		pt := models.PaymentTransaction{
			OrderID:         created.ID,
			PaymentMethodID: paymentMethodID,
			ProviderRef:     providerRef,
			Amount:          created.TotalAmount,
			Status:          models.TransactionSuccess,
			CreatedAt:       time.Now().UTC(),
		}
		if err := tx.WithContext(ctx).Create(&pt).Error; err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		if repo.IsUniqueViolation(err) {
			// A concurrent replay won the race; its order stands.
			won, lerr := s.orderByRef(ctx, buyerID, providerRef)
			if lerr == nil || errors.Is(lerr, apperr.ErrNotFound) {
				return won, false, lerr
			}
		}
		if repo.IsLockTimeout(err) {
			return nil, false, fmt.Errorf("%w: checkout contention, retry", apperr.ErrLockTimeout)
		}
		return nil, false, err
	}
	return order, true, nil
}

// Get returns the order with its items.
func (s *Service) Get(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", apperr.ErrNotFound, id)
		}
		return nil, err
	}
	return order, nil
}

// List returns the buyer's orders, newest first.
func (s *Service) List(ctx context.Context, buyerID uint, limit, offset int) ([]models.Order, error) {
	return s.Orders.ListByBuyer(ctx, buyerID, limit, offset)
}

// transitions is the allowed status graph. Delivered and Canceled are
// terminal.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:    {models.OrderProcessing, models.OrderCanceled},
	models.OrderProcessing: {models.OrderShipped},
	models.OrderShipped:    {models.OrderDelivered},
}

// UpdateStatus moves the order along the status graph and rejects
// anything else with ErrConflict.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, next models.OrderStatus) (*models.Order, error) {
	if next < models.OrderPending || next > models.OrderCanceled {
		return nil, fmt.Errorf("%w: unknown status %d", apperr.ErrValidation, next)
	}

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, st := range transitions[order.Status] {
		if st == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: cannot move order %d from %d to %d",
			apperr.ErrConflict, orderID, order.Status, next)
	}

	order.Status = next
	if err := s.Orders.Save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}
