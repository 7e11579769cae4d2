package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/driftsignal/bedrockobs/pkg/bedrockobs"
)

// evaluationRequest is the wire shape of POST /v1/evaluations.
type evaluationRequest struct {
	Workflow     string `json:"workflow"`
	CompletionID string `json:"completion_id"`
	UserID       string `json:"user_id"`
	SessionID    string `json:"session_id"`

	ModelID      string `json:"model_id"`
	OverallScore int    `json:"overall_score"`

	ModelProvider string `json:"model_provider,omitempty"`
	ModelName     string `json:"model_name,omitempty"`
	ModelVersion  string `json:"model_version,omitempty"`

	RelevanceScore    *int `json:"relevance_score,omitempty"`
	AccuracyScore     *int `json:"accuracy_score,omitempty"`
	CompletenessScore *int `json:"completeness_score,omitempty"`
	CoherenceScore    *int `json:"coherence_score,omitempty"`
	HelpfulnessScore  *int `json:"helpfulness_score,omitempty"`
	CreativityScore   *int `json:"creativity_score,omitempty"`
	ResponseTimeScore *int `json:"response_time_score,omitempty"`

	KBID              string `json:"kb_id,omitempty"`
	KBName            string `json:"kb_name,omitempty"`
	KBDataSourceCount *int   `json:"kb_data_source_count,omitempty"`
	KBUsedInQuery     *bool  `json:"kb_used_in_query,omitempty"`

	ResponseTimeMS   *int64   `json:"response_time_ms,omitempty"`
	FeedbackComment  string   `json:"feedback_comment,omitempty"`
	QueryType        string   `json:"query_type,omitempty"`
	ContextSize      *int     `json:"context_size,omitempty"`
	Domain           string   `json:"domain,omitempty"`
	TotalTokens      *int     `json:"total_tokens,omitempty"`
	PromptTokens     *int     `json:"prompt_tokens,omitempty"`
	CompletionTokens *int     `json:"completion_tokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	EvaluationSource string   `json:"evaluation_source,omitempty"`
	EvaluatorType    string   `json:"evaluator_type,omitempty"`
}

type evaluationHandler struct {
	registry *bedrockobs.CollectorRegistry
	logger   *slog.Logger
}

func (h *evaluationHandler) create(w http.ResponseWriter, r *http.Request) {
	var req evaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	workflow := req.Workflow
	if workflow == "" {
		workflow = "default"
	}
	collector := h.registry.Get(workflow)
	ids := bedrockobs.RecordIDs{
		CompletionID: req.CompletionID,
		UserID:       req.UserID,
		SessionID:    req.SessionID,
	}

	attrs, err := collector.RecordWith(r.Context(), bedrockobs.Evaluation{
		ModelID:           req.ModelID,
		OverallScore:      req.OverallScore,
		ModelProvider:     req.ModelProvider,
		ModelName:         req.ModelName,
		ModelVersion:      req.ModelVersion,
		RelevanceScore:    req.RelevanceScore,
		AccuracyScore:     req.AccuracyScore,
		CompletenessScore: req.CompletenessScore,
		CoherenceScore:    req.CoherenceScore,
		HelpfulnessScore:  req.HelpfulnessScore,
		CreativityScore:   req.CreativityScore,
		ResponseTimeScore: req.ResponseTimeScore,
		KBID:              req.KBID,
		KBName:            req.KBName,
		KBDataSourceCount: req.KBDataSourceCount,
		KBUsedInQuery:     req.KBUsedInQuery,
		ResponseTimeMS:    req.ResponseTimeMS,
		FeedbackComment:   req.FeedbackComment,
		QueryType:         req.QueryType,
		ContextSize:       req.ContextSize,
		Domain:            req.Domain,
		TotalTokens:       req.TotalTokens,
		PromptTokens:      req.PromptTokens,
		CompletionTokens:  req.CompletionTokens,
		Temperature:       req.Temperature,
		TopP:              req.TopP,
		EvaluationSource:  req.EvaluationSource,
		EvaluatorType:     req.EvaluatorType,
	}, ids)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("evaluation recorded",
		slog.String("model_id", req.ModelID),
		slog.Int("overall_score", req.OverallScore))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"id":       attrs["id"],
		"trace_id": attrs["trace_id"],
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
