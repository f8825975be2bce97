package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/config"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/infrastructure/memory"
)

type stockTestContext struct {
	ledger       *StockLedger
	reservations *ReservationService
	machine      *OrderStateMachine
	placement    *OrderPlacement
	query        *InventoryQuery
	orders       map[string]*domain.Order
	granted      bool
	err          error
}

func (c *stockTestContext) reset() {
	cfg := config.Defaults()
	cfg.OperationTimeout = 2 * time.Second
	timeout := cfg.OperationTimeout

	stock := memory.NewStockRepository()
	orders := memory.NewOrderRepository()
	writer := NewOutboxWriter(memory.NewOutboxRepository())

	c.ledger = NewStockLedger(stock, writer, cfg)
	c.reservations = NewReservationService(memory.NewReservationRepository(), c.ledger, timeout)
	c.machine = NewOrderStateMachine(orders, c.reservations, c.ledger, writer, timeout)
	c.placement = NewOrderPlacement(orders, c.reservations, writer, timeout)
	c.query = NewInventoryQuery(stock, memory.NewProductCatalog(), c.ledger, c.reservations, timeout, 50)
	c.orders = make(map[string]*domain.Order)
	c.granted = false
	c.err = nil
}

func (c *stockTestContext) aProductWithUnitsOnHand(productID string, onHand int) error {
	_, err := c.ledger.RegisterProduct(context.Background(), ProductRegistration{
		ProductID:       productID,
		Sku:             "SKU-" + productID,
		InitialQuantity: onHand,
	})
	return err
}

func (c *stockTestContext) orderReserves(orderRef string, qty int, productID string) error {
	ok, err := c.reservations.ReserveForReference(context.Background(), productID, qty, orderRef, domain.ReferenceOrder)
	if err != nil {
		return err
	}
	c.granted = ok
	return nil
}

func (c *stockTestContext) aPlacedOrderFor(orderRef string, qty int, productID string) error {
	res, err := c.placement.PlaceOrder(context.Background(), PlaceOrderCommand{
		OrderID: uuid.New(),
		UserID:  uuid.New(),
		Items:   []domain.OrderItem{{ProductID: productID, Quantity: qty, UnitPrice: decimal.NewFromInt(10)}},
	})
	if err != nil {
		return err
	}
	if !res.Accepted {
		return fmt.Errorf("order %s was not accepted: %s", orderRef, res.Reason)
	}
	c.orders[orderRef] = res.Order
	return nil
}

func (c *stockTestContext) walkOrder(orderRef string, steps ...domain.OrderStatus) error {
	o, ok := c.orders[orderRef]
	if !ok {
		return fmt.Errorf("no order %s", orderRef)
	}
	for _, s := range steps {
		if err := c.machine.Transition(context.Background(), o, s); err != nil {
			return err
		}
	}
	return nil
}

func (c *stockTestContext) orderIsCancelled(orderRef string) error {
	return c.walkOrder(orderRef, domain.OrderCancelled)
}

func (c *stockTestContext) orderIsCompleted(orderRef string) error {
	return c.walkOrder(orderRef, domain.OrderProcessing, domain.OrderCompleted)
}

func (c *stockTestContext) orderIsRefunded(orderRef string) error {
	return c.walkOrder(orderRef, domain.OrderRefunded)
}

func (c *stockTestContext) isAdjustedTo(productID string, onHand int) error {
	_, c.err = c.ledger.AdjustStock(context.Background(), productID, onHand, "cycle count", nil)
	return nil
}

func (c *stockTestContext) unitsAreRestocked(qty int, productID string) error {
	_, err := c.ledger.AddStock(context.Background(), productID, qty, "delivery", nil)
	return err
}

func (c *stockTestContext) unitIsWrittenOff(qty int, productID string) error {
	_, err := c.ledger.RemoveStock(context.Background(), productID, qty, domain.ChangeDamaged, "broken", nil)
	return err
}

func (c *stockTestContext) theReservationIsGranted() error {
	if !c.granted {
		return errors.New("expected the reservation to be granted")
	}
	return nil
}

func (c *stockTestContext) theReservationIsRefused() error {
	if c.granted {
		return errors.New("expected the reservation to be refused")
	}
	return nil
}

func (c *stockTestContext) theOperationFailsAsInvalid() error {
	if !errors.Is(c.err, domain.ErrInvalidOperation) {
		return fmt.Errorf("expected an invalid operation, got %v", c.err)
	}
	return nil
}

func (c *stockTestContext) hasOnHandAndReserved(productID string, onHand, reserved int) error {
	rec, err := c.ledger.GetStock(context.Background(), productID)
	if err != nil {
		return err
	}
	if rec.OnHand != onHand || rec.Reserved != reserved {
		return fmt.Errorf("%s: expected %d on hand and %d reserved, got %d and %d",
			productID, onHand, reserved, rec.OnHand, rec.Reserved)
	}
	return nil
}

func (c *stockTestContext) latestHistoryEntryIs(productID, changeType string, qty int) error {
	history, err := c.ledger.GetHistory(context.Background(), productID, 1)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return fmt.Errorf("%s has no history", productID)
	}
	got := history[0]
	if string(got.ChangeType) != changeType || got.QuantityChanged != qty {
		return fmt.Errorf("expected %s of %d, got %s of %d", changeType, qty, got.ChangeType, got.QuantityChanged)
	}
	return nil
}

func (c *stockTestContext) historyReplays(productID string) error {
	report, err := c.query.Reconcile(context.Background(), productID)
	if err != nil {
		return err
	}
	if !report.Consistent {
		return fmt.Errorf("%s is inconsistent: %+v", productID, report)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &stockTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^a product "([^"]*)" with (\d+) units on hand$`, tc.aProductWithUnitsOnHand)
	ctx.Step(`^order "([^"]*)" reserves (\d+) of "([^"]*)"$`, tc.orderReserves)
	ctx.Step(`^a placed order "([^"]*)" for (\d+) of "([^"]*)"$`, tc.aPlacedOrderFor)
	ctx.Step(`^order "([^"]*)" is cancelled$`, tc.orderIsCancelled)
	ctx.Step(`^order "([^"]*)" is completed$`, tc.orderIsCompleted)
	ctx.Step(`^order "([^"]*)" is refunded$`, tc.orderIsRefunded)
	ctx.Step(`^"([^"]*)" is adjusted to (\d+) units$`, tc.isAdjustedTo)
	ctx.Step(`^(\d+) units of "([^"]*)" are restocked$`, tc.unitsAreRestocked)
	ctx.Step(`^(\d+) units? of "([^"]*)" is written off as damaged$`, tc.unitIsWrittenOff)
	ctx.Step(`^the reservation is granted$`, tc.theReservationIsGranted)
	ctx.Step(`^the reservation is refused$`, tc.theReservationIsRefused)
	ctx.Step(`^the operation fails as an invalid operation$`, tc.theOperationFailsAsInvalid)
	ctx.Step(`^"([^"]*)" has (\d+) on hand and (\d+) reserved$`, tc.hasOnHandAndReserved)
	ctx.Step(`^the latest history entry of "([^"]*)" is "([^"]*)" of (\d+)$`, tc.latestHistoryEntryIs)
	ctx.Step(`^the history of "([^"]*)" replays to its on-hand count$`, tc.historyReplays)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/stock.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
