package sink

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/driftsignal/bedrockobs/internal/events"
)

// Span attaches events to the active OpenTelemetry span. Without an
// active recording span the event is dropped.
type Span struct{}

// NewSpan creates the span sink.
func NewSpan() Span { return Span{} }

// Emit records the event on the span in context.
func (Span) Emit(ctx context.Context, ev events.Event) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(ev.Attributes))
	for k, v := range ev.Attributes {
		attrs = append(attrs, spanAttr(k, v))
	}
	span.AddEvent(ev.Type, trace.WithAttributes(attrs...))
}

func spanAttr(k string, v any) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(k, val)
	case bool:
		return attribute.Bool(k, val)
	case int:
		return attribute.Int(k, val)
	case int64:
		return attribute.Int64(k, val)
	case float64:
		return attribute.Float64(k, val)
	default:
		return attribute.String(k, fmt.Sprintf("%v", val))
	}
}
