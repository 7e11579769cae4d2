// Package sink delivers telemetry events to a backend. Emit never
// returns an error: delivery failures are logged and dropped so the
// instrumented call path is unaffected.
package sink

import (
	"context"
	"log/slog"

	"github.com/driftsignal/bedrockobs/internal/config"
	"github.com/driftsignal/bedrockobs/internal/events"
)

// Sink accepts events for delivery.
type Sink interface {
	Emit(ctx context.Context, ev events.Event)
}

// Noop discards every event.
type Noop struct{}

func (Noop) Emit(context.Context, events.Event) {}

// Multi fans events out to every sink in order.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, ev events.Event) {
	for _, s := range m {
		s.Emit(ctx, ev)
	}
}

// Select picks the sink for a configuration: a credential selects the
// HTTP API sink, a buffer path the local SQLite buffer, and neither the
// noop sink. Instrumentation works fully with no backend configured.
func Select(cfg config.EventsConfig, logger *slog.Logger) (Sink, error) {
	switch {
	case cfg.APIKey != "":
		return NewAPI(cfg.Endpoint, cfg.APIKey, logger), nil
	case cfg.BufferPath != "":
		return NewBuffer(cfg.BufferPath, logger)
	default:
		return Noop{}, nil
	}
}
