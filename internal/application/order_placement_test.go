package application

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

func TestPlaceOrder_ReservesUnderOrderReference(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a", 10)

	o := f.placeOrder(t, map[string]int{"a": 3})

	assert.Equal(t, domain.OrderPending, f.orderStatus(t, o.ID))
	list, err := f.reservations.ListForReference(context.Background(), o.ReferenceID(), domain.ReferenceOrder)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Quantity)
	assert.Equal(t, 1, countType(f.outboxTypes(), "StockReserved"))
}

func TestPlaceOrder_InsufficientStockRejectsWithoutTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a", 10)
	f.register(t, "b", 1)

	res, err := f.placement.PlaceOrder(ctx, PlaceOrderCommand{
		OrderID: uuid.New(),
		UserID:  uuid.New(),
		Items: []domain.OrderItem{
			{ProductID: "a", Quantity: 5},
			{ProductID: "b", Quantity: 2},
		},
	})

	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Contains(t, res.Reason, domain.InsufficientStockMessage)
	assert.Contains(t, res.Reason, "b")

	_, resA := f.counters(t, "a")
	assert.Equal(t, 0, resA, "a's reservation was rolled back")
	_, err = f.orders.Get(ctx, res.Order.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, 1, countType(f.outboxTypes(), "StockReservationFailed"))
	f.requireConsistent(t, "a", "b")
}

func TestPlaceOrder_TakesOverCartReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a", 5)
	ok, err := f.reservations.ReserveForReference(ctx, "a", 5, "cart-9", domain.ReferenceCart)
	require.NoError(t, err)
	require.True(t, ok)

	res, err := f.placement.PlaceOrder(ctx, PlaceOrderCommand{
		OrderID: uuid.New(),
		UserID:  uuid.New(),
		CartID:  "cart-9",
		Items:   []domain.OrderItem{{ProductID: "a", Quantity: 5}},
	})

	require.NoError(t, err)
	assert.True(t, res.Accepted)
	cart, _ := f.reservations.ListForReference(ctx, "cart-9", domain.ReferenceCart)
	require.Len(t, cart, 1)
	assert.Equal(t, domain.ReservationReleased, cart[0].Status)
	_, reserved := f.counters(t, "a")
	assert.Equal(t, 5, reserved)
	f.requireConsistent(t, "a")
}

func TestPlaceOrder_RejectionRestoresCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a", 5)
	f.register(t, "b", 0)
	_, err := f.reservations.ReserveForReference(ctx, "a", 2, "cart-9", domain.ReferenceCart)
	require.NoError(t, err)

	res, err := f.placement.PlaceOrder(ctx, PlaceOrderCommand{
		OrderID: uuid.New(),
		UserID:  uuid.New(),
		CartID:  "cart-9",
		Items:   []domain.OrderItem{{ProductID: "a", Quantity: 2}, {ProductID: "b", Quantity: 1}},
	})

	require.NoError(t, err)
	assert.False(t, res.Accepted)
	found, err := f.reservations.FindActive(ctx, domain.ReferenceKey{ProductID: "a", ReferenceID: "cart-9", ReferenceType: domain.ReferenceCart})
	require.NoError(t, err)
	require.NotNil(t, found, "the cart holds its units again")
	assert.Equal(t, 2, found.Quantity)
	f.requireConsistent(t, "a", "b")
}

func TestPlaceOrder_DuplicateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a", 10)
	cmd := PlaceOrderCommand{
		OrderID: uuid.New(),
		UserID:  uuid.New(),
		Items:   []domain.OrderItem{{ProductID: "a", Quantity: 3}},
	}

	first, err := f.placement.PlaceOrder(ctx, cmd)
	require.NoError(t, err)
	second, err := f.placement.PlaceOrder(ctx, cmd)
	require.NoError(t, err)

	assert.True(t, first.Accepted)
	assert.True(t, second.Accepted)
	_, reserved := f.counters(t, "a")
	assert.Equal(t, 3, reserved)
}

func TestPlaceOrder_InvalidItems(t *testing.T) {
	f := newFixture(t)

	_, err := f.placement.PlaceOrder(context.Background(), PlaceOrderCommand{
		OrderID: uuid.New(),
		Items:   []domain.OrderItem{{ProductID: "a", Quantity: 0}},
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidQuantity))

	_, err = f.placement.PlaceOrder(context.Background(), PlaceOrderCommand{})
	assert.True(t, errors.Is(err, domain.ErrInvalidQuantity))
}
