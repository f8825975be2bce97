package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

// ReservationService binds ledger reservations to the cart or order holding
// them. Each reference key has at most one active reservation, which makes
// retried calls safe.
type ReservationService struct {
	repo    domain.ReservationRepository
	ledger  Ledger
	timeout time.Duration
}

func NewReservationService(repo domain.ReservationRepository, ledger Ledger, timeout time.Duration) *ReservationService {
	return &ReservationService{repo: repo, ledger: ledger, timeout: timeout}
}

func referenceKey(productID, referenceID string, referenceType domain.ReferenceType) (domain.ReferenceKey, error) {
	key := domain.ReferenceKey{ProductID: productID, ReferenceID: referenceID, ReferenceType: referenceType}
	return key, key.Validate()
}

func keyAttrs(key domain.ReferenceKey) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("product.id", key.ProductID),
		attribute.String("reference.id", key.ReferenceID),
		attribute.String("reference.type", string(key.ReferenceType)),
	}
}

// ReserveForReference returns true when the key holds an active reservation
// afterwards, either created now or already present. False means not enough stock.
func (s *ReservationService) ReserveForReference(ctx context.Context, productID string, qty int, referenceID string, referenceType domain.ReferenceType) (ok bool, err error) {
	key, err := referenceKey(productID, referenceID, referenceType)
	if err != nil {
		return false, err
	}
	if err := validQuantity(qty); err != nil {
		return false, err
	}
	ctx, span := startSpan(ctx, "ReservationService.ReserveForReference", keyAttrs(key)...)
	defer func() { endSpan(span, err) }()

	existing, err := s.findActive(ctx, key)
	if err != nil {
		return false, err
	}
	if existing != nil {
		if existing.Quantity != qty {
			log.Printf("ReservationService: %s already holds %d, ignoring request for %d",
				key, existing.Quantity, qty)
		}
		return true, nil
	}

	ok, err = s.ledger.Reserve(ctx, productID, qty, referenceID)
	if err != nil || !ok {
		return false, err
	}

	res := domain.NewReservation(key, qty)
	insertCtx, cancel := context.WithTimeout(ctx, s.timeout)
	insertErr := translateErr(s.repo.Insert(insertCtx, res))
	cancel()
	if insertErr == nil {
		return true, nil
	}

	// The ledger already holds the units; give them back before reporting.
	undoCtx, undoCancel := detached(ctx, s.timeout)
	defer undoCancel()
	if _, err := s.ledger.Release(undoCtx, productID, qty, referenceID); err != nil {
		log.Printf("ReservationService: compensating release for %s failed: %v", key, err)
	}
	if errors.Is(insertErr, domain.ErrDuplicateReservation) {
		log.Printf("ReservationService: concurrent reserve for %s, keeping the first", key)
		return true, nil
	}
	return false, insertErr
}

// ReleaseForReference releases the key's active reservation. Without one it is
// a successful no-op.
func (s *ReservationService) ReleaseForReference(ctx context.Context, productID string, qty int, referenceID string, referenceType domain.ReferenceType) (_ bool, err error) {
	key, err := referenceKey(productID, referenceID, referenceType)
	if err != nil {
		return false, err
	}
	if err := validQuantity(qty); err != nil {
		return false, err
	}
	ctx, span := startSpan(ctx, "ReservationService.ReleaseForReference", keyAttrs(key)...)
	defer func() { endSpan(span, err) }()

	res, err := s.findActive(ctx, key)
	if err != nil || res == nil {
		return err == nil, err
	}
	if res.Quantity != qty {
		log.Printf("ReservationService: release %s requested %d, releasing held %d", key, qty, res.Quantity)
	}
	_, err = s.release(ctx, res)
	return err == nil, err
}

// ReleaseReservation releases the given reservation and reports whether this
// call closed it. False with a nil error means it was already closed.
func (s *ReservationService) ReleaseReservation(ctx context.Context, res *domain.Reservation) (released bool, err error) {
	ctx, span := startSpan(ctx, "ReservationService.ReleaseReservation", keyAttrs(res.Key())...)
	defer func() { endSpan(span, err) }()
	return s.release(ctx, res)
}

// ConfirmForReference turns the key's active reservation into a permanent
// deduction. A missing reservation is an error.
func (s *ReservationService) ConfirmForReference(ctx context.Context, productID string, qty int, referenceID string, referenceType domain.ReferenceType) (_ bool, err error) {
	key, err := referenceKey(productID, referenceID, referenceType)
	if err != nil {
		return false, err
	}
	if err := validQuantity(qty); err != nil {
		return false, err
	}
	ctx, span := startSpan(ctx, "ReservationService.ConfirmForReference", keyAttrs(key)...)
	defer func() { endSpan(span, err) }()

	res, err := s.findActive(ctx, key)
	if err != nil {
		return false, err
	}
	if res == nil {
		return false, fmt.Errorf("%w: %s", domain.ErrReservationNotFound, key)
	}
	if res.Quantity != qty {
		return false, fmt.Errorf("%w: %s holds %d, confirm requested %d",
			domain.ErrInvalidOperation, key, res.Quantity, qty)
	}

	claimed, err := s.close(ctx, res, domain.ReservationConfirmed)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, fmt.Errorf("%w: %s was closed concurrently", domain.ErrReservationNotFound, key)
	}
	if _, err := s.ledger.ConfirmDeduction(ctx, productID, res.Quantity, referenceID); err != nil {
		s.reopen(ctx, res)
		return false, err
	}
	return true, nil
}

// RevertConfirmation undoes ConfirmForReference for compensation: the units go
// back into stock and the reservation becomes active again.
func (s *ReservationService) RevertConfirmation(ctx context.Context, productID string, qty int, referenceID string, referenceType domain.ReferenceType) error {
	key, err := referenceKey(productID, referenceID, referenceType)
	if err != nil {
		return err
	}
	listCtx, cancel := context.WithTimeout(ctx, s.timeout)
	all, err := s.repo.ListByReference(listCtx, referenceID, referenceType)
	cancel()
	if err != nil {
		return translateErr(err)
	}
	var confirmed *domain.Reservation
	for i := range all {
		r := &all[i]
		if r.ProductID == productID && r.Status == domain.ReservationConfirmed && r.Quantity == qty {
			confirmed = r
		}
	}
	if confirmed == nil {
		return fmt.Errorf("%w: no confirmed reservation for %s", domain.ErrReservationNotFound, key)
	}
	if err := s.ledger.RevertDeduction(ctx, productID, qty, referenceID, "revert confirmation"); err != nil {
		return err
	}
	reopenCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return translateErr(s.repo.Reopen(reopenCtx, confirmed.ID))
}

// ReleaseAllForReference releases every active reservation of a cart or
// order and returns how many were released.
func (s *ReservationService) ReleaseAllForReference(ctx context.Context, referenceID string, referenceType domain.ReferenceType) (int, error) {
	active, err := s.activeForReference(ctx, referenceID, referenceType)
	if err != nil {
		return 0, err
	}
	released := 0
	for i := range active {
		ok, err := s.release(ctx, &active[i])
		if err != nil {
			return released, err
		}
		if ok {
			released++
		}
	}
	return released, nil
}

func (s *ReservationService) ListForReference(ctx context.Context, referenceID string, referenceType domain.ReferenceType) ([]domain.Reservation, error) {
	if referenceID == "" || !referenceType.Valid() {
		return nil, fmt.Errorf("%w: reference %s/%s", domain.ErrInvalidQuantity, referenceType, referenceID)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.repo.ListByReference(ctx, referenceID, referenceType)
	return out, translateErr(err)
}

// ActiveReservedTotal sums active reservations of a product. It must equal
// the ledger's reserved counter.
func (s *ReservationService) ActiveReservedTotal(ctx context.Context, productID string) (int, error) {
	if err := validProduct(productID); err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	sum, err := s.repo.SumActive(ctx, productID)
	return sum, translateErr(err)
}

func (s *ReservationService) FindActive(ctx context.Context, key domain.ReferenceKey) (*domain.Reservation, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return s.findActive(ctx, key)
}

func (s *ReservationService) activeForReference(ctx context.Context, referenceID string, referenceType domain.ReferenceType) ([]domain.Reservation, error) {
	all, err := s.ListForReference(ctx, referenceID, referenceType)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, r := range all {
		if r.Active() {
			active = append(active, r)
		}
	}
	return active, nil
}

// release claims res and gives its units back to the ledger. It returns false
// without error when someone else closed the reservation first.
func (s *ReservationService) release(ctx context.Context, res *domain.Reservation) (bool, error) {
	claimed, err := s.close(ctx, res, domain.ReservationReleased)
	if err != nil || !claimed {
		return false, err
	}
	if _, err := s.ledger.Release(ctx, res.ProductID, res.Quantity, res.ReferenceID); err != nil {
		s.reopen(ctx, res)
		return false, err
	}
	return true, nil
}

func (s *ReservationService) findActive(ctx context.Context, key domain.ReferenceKey) (*domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.repo.FindActive(ctx, key)
	return res, translateErr(err)
}

func (s *ReservationService) close(ctx context.Context, res *domain.Reservation, status domain.ReservationStatus) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ok, err := s.repo.Close(ctx, res.ID, status)
	return ok, translateErr(err)
}

func (s *ReservationService) reopen(ctx context.Context, res *domain.Reservation) {
	ctx, cancel := detached(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Reopen(ctx, res.ID); err != nil {
		log.Printf("ReservationService: reopen %s after failed ledger call: %v", res.Key(), err)
	}
}
