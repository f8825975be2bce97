package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

type ReservationRepository struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*domain.Reservation
	active map[domain.ReferenceKey]uuid.UUID
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{
		byID:   make(map[uuid.UUID]*domain.Reservation),
		active: make(map[domain.ReferenceKey]uuid.UUID),
	}
}

func (r *ReservationRepository) FindActive(
	ctx context.Context,
	key domain.ReferenceKey,
) (*domain.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.active[key]
	if !ok {
		return nil, nil
	}
	res := *r.byID[id]
	return &res, nil
}

func (r *ReservationRepository) Insert(ctx context.Context, res *domain.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	key := res.Key()
	if res.Active() {
		if _, ok := r.active[key]; ok {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateReservation, key)
		}
		r.active[key] = res.ID
	}
	stored := *res
	r.byID[res.ID] = &stored
	return nil
}

func (r *ReservationRepository) Close(
	ctx context.Context,
	id uuid.UUID,
	status domain.ReservationStatus,
) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.byID[id]
	if !ok || !res.Active() {
		return false, nil
	}
	switch status {
	case domain.ReservationConfirmed:
		res.MarkConfirmed()
	case domain.ReservationReleased:
		res.MarkReleased()
	default:
		return false, fmt.Errorf("%w: cannot close reservation as %s", domain.ErrInvalidOperation, status)
	}
	delete(r.active, res.Key())
	return true, nil
}

func (r *ReservationRepository) Reopen(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: reservation %s", domain.ErrNotFound, id)
	}
	if res.Active() {
		return nil
	}
	key := res.Key()
	if other, taken := r.active[key]; taken && other != id {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateReservation, key)
	}
	res.Reopen()
	r.active[key] = id
	return nil
}

func (r *ReservationRepository) ListByReference(
	ctx context.Context,
	referenceID string,
	referenceType domain.ReferenceType,
) ([]domain.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Reservation, 0)
	for _, res := range r.byID {
		if res.ReferenceID == referenceID && res.ReferenceType == referenceType {
			out = append(out, *res)
		}
	}
	sortReservations(out)
	return out, nil
}

func (r *ReservationRepository) ListActiveOlderThan(
	ctx context.Context,
	referenceType domain.ReferenceType,
	before time.Time,
	limit int,
) ([]domain.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Reservation, 0)
	for _, id := range r.active {
		res := r.byID[id]
		if res.ReferenceType == referenceType && res.CreatedAtUtc.Before(before) {
			out = append(out, *res)
		}
	}
	sortReservations(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ReservationRepository) SumActive(ctx context.Context, productID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	sum := 0
	for key, id := range r.active {
		if key.ProductID == productID {
			sum += r.byID[id].Quantity
		}
	}
	return sum, nil
}

func sortReservations(rs []domain.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].CreatedAtUtc.Equal(rs[j].CreatedAtUtc) {
			return rs[i].CreatedAtUtc.Before(rs[j].CreatedAtUtc)
		}
		return rs[i].ProductID < rs[j].ProductID
	})
}
