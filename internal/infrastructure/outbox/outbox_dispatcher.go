package outbox

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

// Publisher is the producing half of the event bus.
type Publisher interface {
	Publish(ctx context.Context, event primitives.Event) error
}

// Dispatcher drains the outbox onto the bus. A message counts as sent only
// once the bus accepted it; each failure bumps its retry count and the message
// is abandoned at maxRetry.
type Dispatcher struct {
	repo      domain.OutboxRepository
	bus       Publisher
	maxRetry  int
	batchSize int
	attempts  metric.Int64Counter
}

func NewDispatcher(repo domain.OutboxRepository, bus Publisher, maxRetry, batchSize int) *Dispatcher {
	attempts, err := otel.Meter("github.com/RodolfoDevApp/eventshop-stock-go/internal/infrastructure/outbox").
		Int64Counter("outbox.publish.attempts", metric.WithDescription("Outbox publish attempts by event type and outcome"))
	if err != nil {
		log.Printf("Outbox: metrics disabled: %v", err)
	}
	return &Dispatcher{
		repo:      repo,
		bus:       bus,
		maxRetry:  maxRetry,
		batchSize: batchSize,
		attempts:  attempts,
	}
}

func (d *Dispatcher) Name() string { return "outbox-dispatcher" }

func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	return d.DispatchOnce(ctx)
}

// DispatchOnce publishes one batch and returns how many messages went out.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	batch, err := d.repo.GetPendingBatch(ctx, d.maxRetry, d.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, msg := range batch {
		switch {
		case !json.Valid([]byte(msg.PayloadJSON)):
			// Retrying cannot repair the payload; park it at maxRetry.
			log.Printf("Outbox: %s id=%s has an invalid payload, parking it", msg.Type, msg.ID)
			msg.RetryCount = d.maxRetry
			d.record(ctx, msg.Type, "invalid")
		case d.publish(ctx, msg) != nil:
			msg.RetryCount++
			if msg.RetryCount >= d.maxRetry {
				log.Printf("Outbox: ERROR giving up on %s id=%s after %d attempts", msg.Type, msg.ID, msg.RetryCount)
			}
		default:
			now := time.Now().UTC().Unix()
			msg.ProcessedAtUtc = &now
			sent++
		}
		if err := d.repo.Save(ctx, msg); err != nil {
			log.Printf("Outbox: failed to save %s id=%s: %v", msg.Type, msg.ID, err)
		}
	}
	return sent, nil
}

func (d *Dispatcher) publish(ctx context.Context, msg domain.OutboxMessage) error {
	env := primitives.NewIntegrationEventEnvelope(msg.Type, msg.PayloadJSON)
	env.SetRoutingKey(msg.Type)
	if err := d.bus.Publish(ctx, &env); err != nil {
		log.Printf("Outbox: failed to publish %s id=%s: %v", msg.Type, msg.ID, err)
		d.record(ctx, msg.Type, "failed")
		return err
	}
	d.record(ctx, msg.Type, "ok")
	return nil
}

func (d *Dispatcher) record(ctx context.Context, eventType, outcome string) {
	if d.attempts == nil {
		return
	}
	d.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event.type", eventType),
		attribute.String("outcome", outcome),
	))
}
