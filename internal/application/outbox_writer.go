package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

var errNilEvent = errors.New("outbox: nil event")

// OutboxWriter stores integration events for the dispatcher to publish.
type OutboxWriter interface {
	Enqueue(ctx context.Context, ev primitives.Event) error
}

type outboxWriter struct {
	repo domain.OutboxRepository
}

func NewOutboxWriter(repo domain.OutboxRepository) OutboxWriter {
	return &outboxWriter{repo: repo}
}

// Enqueue stores ev in the same call path as the stock change it reports, so
// a crash after the change still leaves the event for the dispatcher.
func (w *outboxWriter) Enqueue(ctx context.Context, ev primitives.Event) error {
	msg, err := outboxMessageFor(ev)
	if err != nil {
		return err
	}
	return translateErr(w.repo.Insert(ctx, msg))
}

// outboxMessageFor keys the row by the event's routing key and keeps the time
// the event was raised rather than the time it was stored.
func outboxMessageFor(ev primitives.Event) (domain.OutboxMessage, error) {
	if ev == nil {
		return domain.OutboxMessage{}, errNilEvent
	}
	if v := reflect.ValueOf(ev); v.Kind() == reflect.Pointer && v.IsNil() {
		return domain.OutboxMessage{}, errNilEvent
	}

	kind := ev.GetRoutingKey()
	if kind == "" {
		kind = eventTypeName(ev)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("outbox: encode %s: %w", kind, err)
	}

	occurred := time.Now().UTC()
	if m := ev.GetMessage(); m != nil && !m.OccurredOnUtc.IsZero() {
		occurred = m.OccurredOnUtc.UTC()
	}
	return domain.OutboxMessage{
		ID:            uuid.New(),
		Type:          kind,
		PayloadJSON:   string(payload),
		OccurredAtUtc: occurred.Unix(),
	}, nil
}

func eventTypeName(ev primitives.Event) string {
	t := reflect.TypeOf(ev)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
