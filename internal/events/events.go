// Package events builds the telemetry event records emitted for model
// invocations. Builders own attribute naming and free-text truncation so
// every sink receives identical, bounded payloads.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/driftsignal/bedrockobs/internal/extract"
)

// Event type names as they appear in the events backend.
const (
	TypeCompletion            = "LlmCompletion"
	TypeChatCompletionSummary = "LlmChatCompletionSummary"
	TypeChatCompletionMessage = "LlmChatCompletionMessage"
	TypeEmbedding             = "LlmEmbedding"
	TypeUserResponseEval      = "LlmUserResponseEvaluation"
	TypeSystemPrompt          = "LlmSystemPrompt"
	TypeUserPrompt            = "LlmUserPrompt"
	TypeRagContext            = "LlmRagContext"
	TypeOpenSearchResult      = "LlmOpenSearchResult"
)

// Vendor tags every event with its provider.
const Vendor = "bedrock"

// IngestSource identifies this library on emitted events.
const IngestSource = "GO"

const (
	// maxContentRunes bounds every free-text attribute.
	maxContentRunes = 4095
	// maxTitleRunes bounds short title attributes.
	maxTitleRunes = 255
)

// Event is one telemetry record: a type name plus a flat attribute map.
// Attribute values are strings, numbers and booleans only.
type Event struct {
	Type       string
	Attributes map[string]any
}

// TruncateContent bounds free-text attribute values. Truncation counts
// runes, not bytes, so multi-byte text is never split mid-character.
func TruncateContent(s string) string {
	return truncate(s, maxContentRunes)
}

// TruncateTitle bounds short title attributes.
func TruncateTitle(s string) string {
	return truncate(s, maxTitleRunes)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// Common carries the attributes shared by every invocation event.
type Common struct {
	ApplicationName string
	RequestModel    string
	ResponseModel   string
	ResponseTime    int64
	TraceID         string
	UserID          string
	APIKeyLastFour  string
	Region          string
	APIVersion      string
	Err             *CallError
}

// apply writes the shared attributes into attrs, generating the event id
// and timestamp. Optional fields are written only when set.
func (c Common) apply(attrs map[string]any) {
	attrs["id"] = uuid.NewString()
	attrs["applicationName"] = c.ApplicationName
	attrs["request_model"] = c.RequestModel
	attrs["response_time"] = c.ResponseTime
	attrs["timestamp"] = time.Now().UnixMilli()
	attrs["vendor"] = Vendor
	attrs["ingest_source"] = IngestSource
	if c.ResponseModel != "" {
		attrs["response_model"] = c.ResponseModel
	}
	if c.TraceID != "" {
		attrs["trace_id"] = c.TraceID
	}
	if c.UserID != "" {
		attrs["user_id"] = c.UserID
	}
	if c.APIKeyLastFour != "" {
		attrs["api_key_last_four_digits"] = c.APIKeyLastFour
	}
	if c.Region != "" {
		attrs["region"] = c.Region
	}
	if c.APIVersion != "" {
		attrs["api_version"] = c.APIVersion
	}
	c.Err.apply(attrs)
}

// CompletionData describes one InvokeModel exchange.
type CompletionData struct {
	Common
	Input        string
	Output       string
	FinishReason string
	Usage        extract.Usage
	Temperature  *float64
	TopP         *float64
	IsStreaming  bool
	TokenSource  string
}

// Completion builds the single LlmCompletion event for a raw invocation.
func Completion(d CompletionData) Event {
	attrs := make(map[string]any)
	d.Common.apply(attrs)
	attrs["input"] = TruncateContent(d.Input)
	attrs["output"] = TruncateContent(d.Output)
	if d.FinishReason != "" {
		attrs["finish_reason"] = d.FinishReason
	}
	if d.Usage.PromptTokens > 0 {
		attrs["prompt_tokens"] = d.Usage.PromptTokens
	}
	if d.Usage.CompletionTokens > 0 {
		attrs["completion_tokens"] = d.Usage.CompletionTokens
	}
	if d.Usage.TotalTokens > 0 {
		attrs["total_tokens"] = d.Usage.TotalTokens
	}
	if d.Temperature != nil {
		attrs["temperature"] = *d.Temperature
	}
	if d.TopP != nil {
		attrs["top_p"] = *d.TopP
	}
	if d.IsStreaming {
		attrs["is_streaming"] = true
	}
	if d.TokenSource != "" {
		attrs["token_source"] = d.TokenSource
	}
	return Event{Type: TypeCompletion, Attributes: attrs}
}

// ChatMessage is one turn of a Converse exchange.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatData describes one Converse exchange.
type ChatData struct {
	Common
	ConversationID string
	Messages       []ChatMessage
	FinishReason   string
	Usage          extract.Usage
}

// ChatCompletion builds one LlmChatCompletionMessage event per message
// followed by an LlmChatCompletionSummary. The summary's
// number_of_messages always equals the count of message events, and a
// shared completion_id links them.
func ChatCompletion(d ChatData) []Event {
	completionID := uuid.NewString()
	out := make([]Event, 0, len(d.Messages)+1)

	for i, msg := range d.Messages {
		attrs := map[string]any{
			"id":              uuid.NewString(),
			"applicationName": d.ApplicationName,
			"content":         TruncateContent(msg.Content),
			"role":            msg.Role,
			"completion_id":   completionID,
			"sequence":        i,
			"model":           d.RequestModel,
			"vendor":          Vendor,
			"ingest_source":   IngestSource,
		}
		if d.TraceID != "" {
			attrs["trace_id"] = d.TraceID
		}
		if d.ConversationID != "" {
			attrs["conversation_id"] = d.ConversationID
		}
		out = append(out, Event{Type: TypeChatCompletionMessage, Attributes: attrs})
	}

	attrs := make(map[string]any)
	d.Common.apply(attrs)
	attrs["completion_id"] = completionID
	attrs["number_of_messages"] = len(d.Messages)
	if d.ConversationID != "" {
		attrs["conversation_id"] = d.ConversationID
	}
	if d.FinishReason != "" {
		attrs["finish_reason"] = d.FinishReason
	}
	if d.Usage.PromptTokens > 0 {
		attrs["prompt_tokens"] = d.Usage.PromptTokens
	}
	if d.Usage.CompletionTokens > 0 {
		attrs["completion_tokens"] = d.Usage.CompletionTokens
	}
	if d.Usage.TotalTokens > 0 {
		attrs["total_tokens"] = d.Usage.TotalTokens
	}
	out = append(out, Event{Type: TypeChatCompletionSummary, Attributes: attrs})
	return out
}

// EmbeddingData describes one embedding invocation.
type EmbeddingData struct {
	Common
	Input      string
	Dimensions int
}

// Embedding builds the single LlmEmbedding event.
func Embedding(d EmbeddingData) Event {
	attrs := make(map[string]any)
	d.Common.apply(attrs)
	attrs["input"] = TruncateContent(d.Input)
	if d.Dimensions > 0 {
		attrs["dimensions"] = d.Dimensions
	}
	return Event{Type: TypeEmbedding, Attributes: attrs}
}
