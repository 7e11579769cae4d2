package bedrockobs

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/driftsignal/bedrockobs/internal/events"
	"github.com/driftsignal/bedrockobs/internal/sink"
)

// Recorder emits the prompt and retrieval events of a RAG workflow.
// All events it records share the trace id carried by the call context.
type Recorder struct {
	appName string
	sink    sink.Sink
}

// NewRecorder creates a recorder. A nil sink discards events.
func NewRecorder(appName string, target sink.Sink) *Recorder {
	if target == nil {
		target = sink.Noop{}
	}
	return &Recorder{appName: appName, sink: target}
}

// RecordRoleEvents emits the user prompt, system prompt and assembled
// context of one retrieval-augmented exchange. Context text is joined
// from the retrieved passages; all content is truncated.
func (r *Recorder) RecordRoleEvents(ctx context.Context, userQuery, systemPrompt string, passages []string) {
	ctx, traceID := ensureTraceID(ctx)
	now := time.Now().UnixMilli()

	r.sink.Emit(ctx, events.Event{Type: events.TypeUserPrompt, Attributes: map[string]any{
		"id":              uuid.NewString(),
		"applicationName": r.appName,
		"role":            "user",
		"content":         events.TruncateContent(userQuery),
		"trace_id":        traceID,
		"timestamp":       now,
	}})

	if systemPrompt != "" {
		r.sink.Emit(ctx, events.Event{Type: events.TypeSystemPrompt, Attributes: map[string]any{
			"id":              uuid.NewString(),
			"applicationName": r.appName,
			"role":            "system",
			"content":         events.TruncateContent(systemPrompt),
			"trace_id":        traceID,
			"timestamp":       now,
		}})
	}

	if len(passages) > 0 {
		r.sink.Emit(ctx, events.Event{Type: events.TypeRagContext, Attributes: map[string]any{
			"id":              uuid.NewString(),
			"applicationName": r.appName,
			"content":         events.TruncateContent(strings.Join(passages, "\n\n")),
			"source_count":    len(passages),
			"trace_id":        traceID,
			"timestamp":       now,
		}})
	}
}

// SearchResult is one retrieved document from the search index.
type SearchResult struct {
	Content string
	Title   string
	Score   float64
}

// RecordSearchResults emits one event per search result with its rank,
// score and truncated content, tagged with the originating query and
// index.
func (r *Recorder) RecordSearchResults(ctx context.Context, query, indexName string, results []SearchResult) {
	ctx, traceID := ensureTraceID(ctx)
	now := time.Now().UnixMilli()

	for i, result := range results {
		attrs := map[string]any{
			"id":              uuid.NewString(),
			"applicationName": r.appName,
			"query":           events.TruncateContent(query),
			"result_content":  events.TruncateContent(result.Content),
			"score":           result.Score,
			"sequence":        i,
			"total_results":   len(results),
			"trace_id":        traceID,
			"timestamp":       now,
		}
		if indexName != "" {
			attrs["index_name"] = indexName
		}
		if result.Title != "" {
			attrs["result_title"] = events.TruncateTitle(result.Title)
		}
		r.sink.Emit(ctx, events.Event{Type: events.TypeOpenSearchResult, Attributes: attrs})
	}
}
