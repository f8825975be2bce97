package domain

import "errors"

var (
	ErrInvalidQuantity          = errors.New("invalid quantity")
	ErrNotFound                 = errors.New("not found")
	ErrAlreadyExists            = errors.New("already exists")
	ErrInvalidOperation         = errors.New("invalid operation")
	ErrInvalidTransition        = errors.New("invalid transition")
	ErrReservationNotFound      = errors.New("reservation not found")
	ErrTimeout                  = errors.New("persistence timeout")
	ErrConcurrentModification   = errors.New("concurrent modification")
	ErrDuplicateReservation     = errors.New("duplicate reservation")
	ErrPartialRefundUnsupported = errors.New("partial refund is not supported")
)

// InsufficientStockMessage is what callers show when a reservation returns false.
const InsufficientStockMessage = "not enough stock available"
