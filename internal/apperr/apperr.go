// Package apperr is the closed set of business errors the services
// return. Handlers map these to HTTP statuses; callers branch with
// errors.Is instead of matching message strings.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation")  // 400
	ErrNotFound   = errors.New("not found")   // 404
	ErrConflict   = errors.New("conflict")    // 409

	ErrBuyerNotFound      = errors.New("buyer not found")      // 404
	ErrProductUnavailable = errors.New("product unavailable")  // 400
	ErrInsufficientStock  = errors.New("insufficient stock")   // 400
	ErrLockTimeout        = errors.New("lock timeout")         // 409, retryable
)

// ProductError ties a business failure to the product that caused it,
// so checkout responses can name the offending line.
type ProductError struct {
	ProductID uint
	Err       error
}

func (e *ProductError) Error() string {
	return fmt.Sprintf("product %d: %v", e.ProductID, e.Err)
}

func (e *ProductError) Unwrap() error { return e.Err }

// Product wraps err with the offending product id.
func Product(productID uint, err error) error {
	return &ProductError{ProductID: productID, Err: err}
}

// ProductID extracts the offending product id from an error chain.
func ProductID(err error) (uint, bool) {
	var pe *ProductError
	if errors.As(err, &pe) {
		return pe.ProductID, true
	}
	return 0, false
}
