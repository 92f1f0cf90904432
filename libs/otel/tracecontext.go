package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Carry captures the trace context of ctx so work detached from the request
// (background tasks, queued jobs) can continue the same trace.
type Carry propagation.MapCarrier

func CarryFrom(ctx context.Context) Carry {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return Carry(carrier)
}

// Into returns ctx with the carried trace context attached.
func (c Carry) Into(ctx context.Context) context.Context {
	if len(c) == 0 {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(c))
}
