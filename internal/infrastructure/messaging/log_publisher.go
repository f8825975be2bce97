package messaging

import (
	"context"
	"log"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
)

// LogPublisher stands in for the RabbitMQ producer when the service runs on
// the in-memory store. Every outbox message is logged and counted as sent.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event primitives.Event) error {
	if env, ok := event.(*primitives.IntegrationEventEnvelope); ok {
		log.Printf("Publisher: %s %s", env.Type, env.PayloadJSON)
		return nil
	}
	log.Printf("Publisher: %T", event)
	return nil
}
