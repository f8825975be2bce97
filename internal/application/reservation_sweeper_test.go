package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

func TestReservationSweeper_ReleasesExpiredCarts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a", 10)
	_, err := f.reservations.ReserveForReference(ctx, "a", 3, "cart-1", domain.ReferenceCart)
	require.NoError(t, err)
	o := f.placeOrder(t, map[string]int{"a": 2})

	sweeper := NewReservationSweeper(f.resRepo, f.reservations, time.Hour, 10, f.cfg.OperationTimeout)
	assert.Equal(t, "reservation-sweeper", sweeper.Name())

	n, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "fresh carts are kept")

	sweeper.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	n, err = sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, reserved := f.counters(t, "a")
	assert.Equal(t, 2, reserved, "order reservations are never swept")
	held, err := f.reservations.ListForReference(ctx, o.ReferenceID(), domain.ReferenceOrder)
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, domain.ReservationActive, held[0].Status)
	f.requireConsistent(t, "a")

	n, err = sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReservationSweeper_RespectsBatchSize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a", 10)
	for _, cart := range []string{"cart-1", "cart-2", "cart-3"} {
		_, err := f.reservations.ReserveForReference(ctx, "a", 1, cart, domain.ReferenceCart)
		require.NoError(t, err)
	}

	sweeper := NewReservationSweeper(f.resRepo, f.reservations, time.Minute, 2, f.cfg.OperationTimeout)
	sweeper.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }

	n, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, reserved := f.counters(t, "a")
	assert.Zero(t, reserved)
}
