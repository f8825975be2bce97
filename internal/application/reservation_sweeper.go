package application

import (
	"context"
	"log"
	"time"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

// ReservationSweeper releases cart reservations older than the cart expiry
// window. Order reservations are never swept; they end with their order.
type ReservationSweeper struct {
	repo         domain.ReservationRepository
	reservations *ReservationService
	expiry       time.Duration
	batchSize    int
	timeout      time.Duration
	now          func() time.Time
}

func NewReservationSweeper(
	repo domain.ReservationRepository,
	reservations *ReservationService,
	expiry time.Duration,
	batchSize int,
	timeout time.Duration,
) *ReservationSweeper {
	return &ReservationSweeper{
		repo:         repo,
		reservations: reservations,
		expiry:       expiry,
		batchSize:    batchSize,
		timeout:      timeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *ReservationSweeper) Name() string { return "reservation-sweeper" }

func (s *ReservationSweeper) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.expiry)

	listCtx, cancel := context.WithTimeout(ctx, s.timeout)
	expired, err := s.repo.ListActiveOlderThan(listCtx, domain.ReferenceCart, cutoff, s.batchSize)
	cancel()
	if err != nil {
		return 0, translateErr(err)
	}

	released := 0
	for _, r := range expired {
		if _, err := s.reservations.ReleaseForReference(ctx, r.ProductID, r.Quantity, r.ReferenceID, r.ReferenceType); err != nil {
			log.Printf("ReservationSweeper: release %s failed: %v", r.Key(), err)
			continue
		}
		released++
	}
	if released > 0 {
		log.Printf("ReservationSweeper: released %d expired cart reservations", released)
	}
	return released, nil
}
