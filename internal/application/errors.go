package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

// translateErr maps an exceeded deadline onto domain.ErrTimeout so callers can
// retry with the same reference key.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}

// IsRetryable reports whether the same call may be repeated safely.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrTimeout) || errors.Is(err, domain.ErrConcurrentModification)
}

// detached gives compensation steps their own deadline even when the caller's
// context is already done.
func detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func validQuantity(qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", domain.ErrInvalidQuantity, qty)
	}
	return nil
}

func validProduct(productID string) error {
	if productID == "" {
		return fmt.Errorf("%w: productId is required", domain.ErrInvalidQuantity)
	}
	return nil
}
