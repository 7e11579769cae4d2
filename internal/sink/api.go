package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/driftsignal/bedrockobs/internal/events"
)

// DefaultEndpoint receives events when no endpoint is configured.
const DefaultEndpoint = "https://events.driftsignal.io/v1/events"

// emitTimeout bounds the synchronous POST so a slow backend cannot
// stall the instrumented call path.
const emitTimeout = 2 * time.Second

// API posts each event to an HTTP events endpoint, authorized with the
// Api-Key header.
type API struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// NewAPI creates the HTTP sink. An empty endpoint uses DefaultEndpoint.
func NewAPI(endpoint, apiKey string, logger *slog.Logger) *API {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: emitTimeout},
		logger:   logger,
	}
}

// Emit posts one event. Failures are logged, never surfaced.
func (a *API) Emit(ctx context.Context, ev events.Event) {
	payload := make(map[string]any, len(ev.Attributes)+1)
	for k, v := range ev.Attributes {
		payload[k] = v
	}
	payload["eventType"] = ev.Type

	body, err := json.Marshal([]map[string]any{payload})
	if err != nil {
		a.logger.Warn("event marshal failed", slog.String("type", ev.Type), slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, emitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		a.logger.Warn("event request build failed", slog.Any("error", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Warn("event delivery failed", slog.String("type", ev.Type), slog.Any("error", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		a.logger.Warn("event delivery rejected",
			slog.String("type", ev.Type),
			slog.Int("status", resp.StatusCode))
	}
}
