package messaging

import (
	"context"
	"log"

	messaging "github.com/rodolfodevapp/eventshop-messaging-go/rabbitmq"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/application"
)

const (
	ordersExchange   = "orders.events"
	paymentsExchange = "payments.events"
	catalogExchange  = "catalog.events"
	stockExchange    = "inventory.events"
)

// Buses holds one consumer per upstream exchange and the producer used by
// the outbox dispatcher.
type Buses struct {
	Orders   *messaging.RabbitMqEventBus
	Payments *messaging.RabbitMqEventBus
	Catalog  *messaging.RabbitMqEventBus
	Producer *messaging.RabbitMqEventBus
}

func newBus(rabbitUri, exchange, queuePrefix string) *messaging.RabbitMqEventBus {
	opts := messaging.RabbitMqOptions{
		URI:          rabbitUri,
		ExchangeName: exchange,
		QueuePrefix:  queuePrefix,
		Prefetch:     32,
		RetryDelayMs: 30000,
	}
	return messaging.NewRabbitMqEventBus(opts, nil, nil)
}

// NewBuses names every queue after serviceName so replicas share them.
func NewBuses(rabbitUri, serviceName string) Buses {
	return Buses{
		Orders:   newBus(rabbitUri, ordersExchange, serviceName+".orders-events.v1"),
		Payments: newBus(rabbitUri, paymentsExchange, serviceName+".payments-events.v1"),
		Catalog:  newBus(rabbitUri, catalogExchange, serviceName+".catalog-events.v1"),
		Producer: newBus(rabbitUri, stockExchange, serviceName+".dispatcher.v1"),
	}
}

type Handlers struct {
	OrderPlaced    application.EventHandler
	OrderCancelled application.EventHandler
	PaymentStatus  application.EventHandler
	ProductCreated application.EventHandler
}

func subscribe(
	ctx context.Context,
	name string,
	bus *messaging.RabbitMqEventBus,
	routes map[string]application.EventHandler,
) error {
	for eventType, h := range routes {
		bus.Subscribe(eventType, h)
	}
	if err := bus.StartConsumers(ctx); err != nil {
		log.Printf("Error starting %s consumers: %v", name, err)
		return err
	}
	return nil
}

// RegisterSubscriptions wires every consumed event type to its handler and
// starts the consumers.
func RegisterSubscriptions(ctx context.Context, buses Buses, h Handlers) error {
	if err := subscribe(ctx, "orders", buses.Orders, map[string]application.EventHandler{
		"OrderPlacedEvent":    h.OrderPlaced,
		"OrderCancelledEvent": h.OrderCancelled,
		"OrderRejectedEvent":  h.OrderCancelled,
	}); err != nil {
		return err
	}
	if err := subscribe(ctx, "payments", buses.Payments, map[string]application.EventHandler{
		"PaymentCompletedEvent": h.PaymentStatus,
		"PaymentFailedEvent":    h.PaymentStatus,
		"PaymentRefundedEvent":  h.PaymentStatus,
	}); err != nil {
		return err
	}
	return subscribe(ctx, "catalog", buses.Catalog, map[string]application.EventHandler{
		"ProductCreated": h.ProductCreated,
	})
}
