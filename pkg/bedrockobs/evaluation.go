package bedrockobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/driftsignal/bedrockobs/internal/events"
	"github.com/driftsignal/bedrockobs/internal/sink"
)

// Evaluation is a user's quality assessment of one model response.
// Scores are on a 1-10 scale; optional scores stay nil when not rated.
type Evaluation struct {
	ModelID      string `validate:"required"`
	OverallScore int    `validate:"gte=1,lte=10"`

	// Model identity, auto-parsed from ModelID when empty.
	ModelProvider string
	ModelName     string
	ModelVersion  string

	// Per-dimension scores.
	RelevanceScore    *int `validate:"omitempty,gte=1,lte=10"`
	AccuracyScore     *int `validate:"omitempty,gte=1,lte=10"`
	CompletenessScore *int `validate:"omitempty,gte=1,lte=10"`
	CoherenceScore    *int `validate:"omitempty,gte=1,lte=10"`
	HelpfulnessScore  *int `validate:"omitempty,gte=1,lte=10"`
	CreativityScore   *int `validate:"omitempty,gte=1,lte=10"`
	ResponseTimeScore *int `validate:"omitempty,gte=1,lte=10"`

	// Knowledge-base context.
	KBID              string
	KBName            string
	KBDataSourceCount *int
	KBUsedInQuery     *bool

	// Exchange metadata.
	ResponseTimeMS   *int64
	FeedbackComment  string
	QueryType        string
	ContextSize      *int
	Domain           string
	TotalTokens      *int
	PromptTokens     *int
	CompletionTokens *int
	Temperature      *float64
	TopP             *float64
	EvaluationSource string
	EvaluatorType    string
}

// Collector records evaluation events correlated to one workflow.
// A zero CompletionID falls back to the trace id. Safe for concurrent
// use; per-call ids go through RecordWith rather than the setters.
type Collector struct {
	appName  string
	sink     sink.Sink
	logger   *slog.Logger
	validate *validator.Validate
	traceID  string

	mu           sync.Mutex
	completionID string
	userID       string
	sessionID    string
}

// NewCollector creates a collector. A nil sink discards events; an
// empty traceID gets a generated one.
func NewCollector(appName string, target sink.Sink, traceID string) *Collector {
	if target == nil {
		target = sink.Noop{}
	}
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return &Collector{
		appName:  appName,
		sink:     target,
		logger:   slog.Default(),
		validate: validator.New(),
		traceID:  traceID,
	}
}

// TraceID returns the collector's trace id.
func (c *Collector) TraceID() string { return c.traceID }

// SetCompletionID correlates subsequent evaluations with a completion.
func (c *Collector) SetCompletionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completionID = id
}

// SetUserID tags subsequent evaluations with a user id.
func (c *Collector) SetUserID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = id
}

// SetSessionID tags subsequent evaluations with a session id.
func (c *Collector) SetSessionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

// RecordIDs carries correlation ids scoped to one Record call.
// Non-empty fields override the collector's stored ids for that call
// only; the stored ids are never mutated.
type RecordIDs struct {
	CompletionID string
	UserID       string
	SessionID    string
}

// Record validates the evaluation, emits an LlmUserResponseEvaluation
// event and returns the emitted attributes. Out-of-range scores are an
// error, never clamped.
func (c *Collector) Record(ctx context.Context, eval Evaluation) (map[string]any, error) {
	return c.RecordWith(ctx, eval, RecordIDs{})
}

// RecordWith is Record with per-call correlation ids, for callers that
// serve many users through one collector.
func (c *Collector) RecordWith(ctx context.Context, eval Evaluation, ids RecordIDs) (map[string]any, error) {
	if err := c.validate.Struct(eval); err != nil {
		return nil, fmt.Errorf("invalid evaluation: %w", err)
	}

	eval.fillModelIdentity()

	c.mu.Lock()
	if ids.CompletionID == "" {
		ids.CompletionID = c.completionID
	}
	if ids.UserID == "" {
		ids.UserID = c.userID
	}
	if ids.SessionID == "" {
		ids.SessionID = c.sessionID
	}
	c.mu.Unlock()

	completionID := ids.CompletionID
	if completionID == "" {
		completionID = c.traceID
	}

	attrs := map[string]any{
		"id":              uuid.NewString(),
		"applicationName": c.appName,
		"trace_id":        c.traceID,
		"completion_id":   completionID,
		"timestamp":       time.Now().UnixMilli(),
		"model_id":        eval.ModelID,
		"overall_score":   eval.OverallScore,
		"vendor":          events.Vendor,
		"ingest_source":   events.IngestSource,
	}

	putStr(attrs, "user_id", ids.UserID)
	putStr(attrs, "session_id", ids.SessionID)
	putStr(attrs, "model_provider", eval.ModelProvider)
	putStr(attrs, "model_name", eval.ModelName)
	putStr(attrs, "model_version", eval.ModelVersion)
	putStr(attrs, "kb_id", eval.KBID)
	putStr(attrs, "kb_name", eval.KBName)
	putInt(attrs, "kb_data_source_count", eval.KBDataSourceCount)
	if eval.KBUsedInQuery != nil {
		attrs["kb_used_in_query"] = *eval.KBUsedInQuery
	}
	putInt(attrs, "relevance_score", eval.RelevanceScore)
	putInt(attrs, "accuracy_score", eval.AccuracyScore)
	putInt(attrs, "completeness_score", eval.CompletenessScore)
	putInt(attrs, "coherence_score", eval.CoherenceScore)
	putInt(attrs, "helpfulness_score", eval.HelpfulnessScore)
	putInt(attrs, "creativity_score", eval.CreativityScore)
	putInt(attrs, "response_time_score", eval.ResponseTimeScore)
	if eval.ResponseTimeMS != nil {
		attrs["response_time_ms"] = *eval.ResponseTimeMS
	}
	putStr(attrs, "feedback_comment", events.TruncateContent(eval.FeedbackComment))
	putStr(attrs, "query_type", eval.QueryType)
	putInt(attrs, "context_size", eval.ContextSize)
	putStr(attrs, "domain", eval.Domain)
	putInt(attrs, "total_tokens", eval.TotalTokens)
	putInt(attrs, "prompt_tokens", eval.PromptTokens)
	putInt(attrs, "completion_tokens", eval.CompletionTokens)
	if eval.Temperature != nil {
		attrs["temperature"] = *eval.Temperature
	}
	if eval.TopP != nil {
		attrs["top_p"] = *eval.TopP
	}
	putStr(attrs, "evaluation_source", eval.EvaluationSource)
	putStr(attrs, "evaluator_type", eval.EvaluatorType)

	c.sink.Emit(ctx, events.Event{Type: events.TypeUserResponseEval, Attributes: attrs})
	return attrs, nil
}

// fillModelIdentity derives provider, name and version from the model
// id when not supplied. anthropic.claude-3-sonnet-20240229-v1:0 yields
// provider "anthropic", name "claude-3-sonnet", version "20240229".
func (e *Evaluation) fillModelIdentity() {
	vendor, rest, hasVendor := strings.Cut(e.ModelID, ".")
	if !hasVendor {
		return
	}
	if e.ModelProvider == "" {
		e.ModelProvider = vendor
	}
	parts := strings.Split(rest, "-")
	if e.ModelName == "" && len(parts) >= 3 {
		e.ModelName = strings.Join(parts[:3], "-")
	}
	if e.ModelVersion == "" {
		for _, part := range parts {
			if len(part) == 8 && isDigits(part) {
				e.ModelVersion = part
				break
			}
			if strings.HasPrefix(part, "v") && len(part) > 1 {
				e.ModelVersion = part
				break
			}
		}
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func putStr(attrs map[string]any, key, val string) {
	if val != "" {
		attrs[key] = val
	}
}

func putInt(attrs map[string]any, key string, val *int) {
	if val != nil {
		attrs[key] = *val
	}
}

// CollectorRegistry tracks named collectors so independent workflows
// keep separate correlation ids.
type CollectorRegistry struct {
	mu         sync.Mutex
	appName    string
	sink       sink.Sink
	collectors map[string]*Collector
}

// NewCollectorRegistry creates a registry whose collectors share the
// application name and sink.
func NewCollectorRegistry(appName string, target sink.Sink) *CollectorRegistry {
	return &CollectorRegistry{
		appName:    appName,
		sink:       target,
		collectors: make(map[string]*Collector),
	}
}

// Get returns the collector for name, creating it on first use.
func (r *CollectorRegistry) Get(name string) *Collector {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.collectors[name]; ok {
		return c
	}
	c := NewCollector(r.appName, r.sink, "")
	r.collectors[name] = c
	return c
}

// Reset drops the named collector; the next Get starts a fresh trace.
func (r *CollectorRegistry) Reset(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.collectors, name)
}
