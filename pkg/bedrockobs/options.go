package bedrockobs

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/driftsignal/bedrockobs/internal/sink"
	"github.com/driftsignal/bedrockobs/internal/telemetry"
	"github.com/driftsignal/bedrockobs/internal/tokens"
)

// Option configures the instrumentation applied by Wrap.
type Option func(*settings) error

type settings struct {
	appName          string
	region           string
	userID           string
	apiKeyLastFour   string
	logger           *slog.Logger
	sink             sink.Sink
	disableStreaming bool
	captureChunks    bool
	estimateTokens   bool
	tokenRegistry    *tokens.Registry
	tracerProvider   trace.TracerProvider
}

// tracer resolves the span source, preferring a caller-supplied
// provider over the global one.
func (s *settings) tracer() trace.Tracer {
	if s.tracerProvider != nil {
		return s.tracerProvider.Tracer(telemetry.TracerName)
	}
	return telemetry.Tracer()
}

func defaultSettings() *settings {
	return &settings{
		appName: "bedrockobs",
		logger:  slog.Default(),
		sink:    sink.Noop{},
	}
}

// WithAppName sets the applicationName attribute on every event.
func WithAppName(name string) Option {
	return func(s *settings) error {
		if name == "" {
			return fmt.Errorf("application name must not be empty")
		}
		s.appName = name
		return nil
	}
}

// WithLogger sets the logger for instrumentation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithSink sets the event destination. Without it events are discarded.
func WithSink(target sink.Sink) Option {
	return func(s *settings) error {
		if target == nil {
			return fmt.Errorf("sink must not be nil")
		}
		s.sink = target
		return nil
	}
}

// WithRegion tags events with the client's region.
func WithRegion(region string) Option {
	return func(s *settings) error {
		s.region = region
		return nil
	}
}

// WithDefaultUserID sets the default user id attribute. A user id in
// the call context takes precedence.
func WithDefaultUserID(userID string) Option {
	return func(s *settings) error {
		s.userID = userID
		return nil
	}
}

// WithAccessKey records the credential's last four characters on
// events. The full key is never stored.
func WithAccessKey(accessKeyID string) Option {
	return func(s *settings) error {
		if len(accessKeyID) >= 4 {
			s.apiKeyLastFour = accessKeyID[len(accessKeyID)-4:]
		}
		return nil
	}
}

// WithStreamingEventsDisabled suppresses events for streaming
// invocations entirely.
func WithStreamingEventsDisabled() Option {
	return func(s *settings) error {
		s.disableStreaming = true
		return nil
	}
}

// WithChunkCapture accumulates streamed text and emits a completion
// event with the full output when the stream ends. Off by default;
// metadata-only streaming events are emitted instead.
func WithChunkCapture() Option {
	return func(s *settings) error {
		s.captureChunks = true
		return nil
	}
}

// WithTracerProvider sources instrumentation spans from tp instead of
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *settings) error {
		if tp == nil {
			return fmt.Errorf("tracer provider must not be nil")
		}
		s.tracerProvider = tp
		return nil
	}
}

// WithTokenEstimation enables fallback token counting when a response
// reports no usage. Estimated counts are tagged token_source:
// "estimated".
func WithTokenEstimation() Option {
	return func(s *settings) error {
		s.estimateTokens = true
		if s.tokenRegistry == nil {
			s.tokenRegistry = tokens.NewRegistry()
		}
		return nil
	}
}
