package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/config"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/infrastructure/memory"
)

// fixture wires every service on the in-memory store.
type fixture struct {
	cfg      config.Config
	stock    *memory.StockRepository
	resRepo  *memory.ReservationRepository
	orders   *failingOrders
	payments *memory.PaymentRepository
	catalog  *memory.ProductCatalog
	outbox   *memory.OutboxRepository

	ledger       *StockLedger
	reservations *ReservationService
	machine      *OrderStateMachine
	placement    *OrderPlacement
	coordinator  *PaymentCoordinator
	query        *InventoryQuery
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Defaults()
	cfg.OperationTimeout = 2 * time.Second

	f := &fixture{
		cfg:      cfg,
		stock:    memory.NewStockRepository(),
		resRepo:  memory.NewReservationRepository(),
		orders:   &failingOrders{OrderRepository: memory.NewOrderRepository()},
		payments: memory.NewPaymentRepository(),
		catalog:  memory.NewProductCatalog(),
		outbox:   memory.NewOutboxRepository(),
	}
	f.ledger = NewStockLedger(f.stock, NewOutboxWriter(f.outbox), cfg)
	f.wire(f.ledger)
	return f
}

// wire rebuilds the services above the ledger so tests can put a faulty
// Ledger in between.
func (f *fixture) wire(ledger Ledger) {
	timeout := f.cfg.OperationTimeout
	writer := NewOutboxWriter(f.outbox)
	f.reservations = NewReservationService(f.resRepo, ledger, timeout)
	f.machine = NewOrderStateMachine(f.orders, f.reservations, ledger, writer, timeout)
	f.placement = NewOrderPlacement(f.orders, f.reservations, writer, timeout)
	f.coordinator = NewPaymentCoordinator(f.payments, f.orders, f.machine, writer, timeout)
	f.query = NewInventoryQuery(f.stock, f.catalog, f.ledger, f.reservations, timeout, f.cfg.LowStockDefaultLimit)
}

func (f *fixture) register(t *testing.T, productID string, onHand int) {
	t.Helper()
	_, err := f.ledger.RegisterProduct(context.Background(), ProductRegistration{
		ProductID:       productID,
		Sku:             "SKU-" + productID,
		InitialQuantity: onHand,
	})
	require.NoError(t, err)
}

func (f *fixture) counters(t *testing.T, productID string) (onHand, reserved int) {
	t.Helper()
	rec, err := f.ledger.GetStock(context.Background(), productID)
	require.NoError(t, err)
	return rec.OnHand, rec.Reserved
}

// requireConsistent checks the ledger replays to the record and the active
// reservations add up to the reserved counter.
func (f *fixture) requireConsistent(t *testing.T, productIDs ...string) {
	t.Helper()
	for _, id := range productIDs {
		report, err := f.query.Reconcile(context.Background(), id)
		require.NoError(t, err)
		require.True(t, report.Consistent, "product %s: %+v", id, report)
	}
}

// placeOrder places a Pending order holding reservations for lines.
func (f *fixture) placeOrder(t *testing.T, lines map[string]int) *domain.Order {
	t.Helper()
	items := make([]domain.OrderItem, 0, len(lines))
	for id, qty := range lines {
		items = append(items, domain.OrderItem{ProductID: id, Quantity: qty, UnitPrice: decimal.NewFromInt(10)})
	}
	res, err := f.placement.PlaceOrder(context.Background(), PlaceOrderCommand{
		OrderID: uuid.New(),
		UserID:  uuid.New(),
		Items:   items,
	})
	require.NoError(t, err)
	require.True(t, res.Accepted, res.Reason)
	return res.Order
}

func (f *fixture) orderStatus(t *testing.T, id uuid.UUID) domain.OrderStatus {
	t.Helper()
	o, err := f.orders.Get(context.Background(), id)
	require.NoError(t, err)
	return o.Status
}

func (f *fixture) outboxTypes() []string {
	return f.outbox.Types()
}

func countType(types []string, want string) int {
	n := 0
	for _, t := range types {
		if t == want {
			n++
		}
	}
	return n
}

// failingOrders fails Update for the listed target statuses.
type failingOrders struct {
	*memory.OrderRepository
	mu       sync.Mutex
	failOnTo map[domain.OrderStatus]error
}

func (o *failingOrders) failUpdatesTo(status domain.OrderStatus, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failOnTo == nil {
		o.failOnTo = make(map[domain.OrderStatus]error)
	}
	o.failOnTo[status] = err
}

func (o *failingOrders) Update(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	o.mu.Lock()
	err := o.failOnTo[order.Status]
	o.mu.Unlock()
	if err != nil && order.Status != from {
		return err
	}
	return o.OrderRepository.Update(ctx, order, from)
}

// flakyLedger fails selected ledger calls for one product.
type flakyLedger struct {
	*StockLedger
	product        string
	failConfirm    bool
	failReturn     bool
	confirmedCalls int
}

var errInjected = errors.New("injected failure")

func (l *flakyLedger) ConfirmDeduction(ctx context.Context, productID string, qty int, referenceID string) (bool, error) {
	if l.failConfirm && productID == l.product {
		return false, errInjected
	}
	l.confirmedCalls++
	return l.StockLedger.ConfirmDeduction(ctx, productID, qty, referenceID)
}

func (l *flakyLedger) ReturnStock(ctx context.Context, productID string, qty int, referenceID, notes string) (int, error) {
	if l.failReturn && productID == l.product {
		return 0, errInjected
	}
	return l.StockLedger.ReturnStock(ctx, productID, qty, referenceID, notes)
}
