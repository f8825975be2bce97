package application

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/RodolfoDevApp/eventshop-stock-go/internal/application"

var tracer = otel.Tracer(instrumentationName)

type stockMetrics struct {
	ledgerMutations  metric.Int64Counter
	reservations     metric.Int64Counter
	transitions      metric.Int64Counter
	degradedPayments metric.Int64Counter
}

func newStockMetrics() *stockMetrics {
	meter := otel.Meter(instrumentationName)
	m := &stockMetrics{}
	var err error
	if m.ledgerMutations, err = meter.Int64Counter("stock.ledger.mutations",
		metric.WithDescription("Ledger mutations by change type")); err != nil {
		log.Printf("telemetry: stock.ledger.mutations: %v", err)
	}
	if m.reservations, err = meter.Int64Counter("stock.reservations",
		metric.WithDescription("Reservation attempts by outcome")); err != nil {
		log.Printf("telemetry: stock.reservations: %v", err)
	}
	if m.transitions, err = meter.Int64Counter("order.transitions",
		metric.WithDescription("Order transitions by target status and outcome")); err != nil {
		log.Printf("telemetry: order.transitions: %v", err)
	}
	if m.degradedPayments, err = meter.Int64Counter("payment.degraded",
		metric.WithDescription("Payments recorded while the order could not follow")); err != nil {
		log.Printf("telemetry: payment.degraded: %v", err)
	}
	return m
}

func add(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
