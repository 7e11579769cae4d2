// Package bedrockobs instruments Bedrock runtime clients. Wrap returns
// a client with the same interface that emits telemetry events for every
// model invocation; the wrapped call's inputs, outputs and errors pass
// through unchanged.
package bedrockobs

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/driftsignal/bedrockobs/internal/api/bedrock"
	"github.com/driftsignal/bedrockobs/internal/events"
	"github.com/driftsignal/bedrockobs/internal/extract"
	"github.com/driftsignal/bedrockobs/internal/model"
)

type monitor struct {
	inner bedrock.Runtime
	cfg   *settings
}

var _ bedrock.Runtime = (*monitor)(nil)

// Wrap returns an instrumented client around inner. Wrapping an already
// instrumented client returns it unchanged.
func Wrap(inner bedrock.Runtime, opts ...Option) (bedrock.Runtime, error) {
	if m, ok := inner.(*monitor); ok {
		return m, nil
	}
	cfg := defaultSettings()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return &monitor{inner: inner, cfg: cfg}, nil
}

// InvokeModel calls the wrapped client and emits an LlmCompletion event,
// or an LlmEmbedding event when the model is an embedding family. The
// response body the caller receives is a fresh reader over the full
// bytes; the tee is invisible to the caller.
func (m *monitor) InvokeModel(ctx context.Context, input *bedrock.InvokeModelInput) (*bedrock.InvokeModelOutput, error) {
	ctx, traceID := ensureTraceID(ctx)
	ctx, span := m.cfg.tracer().Start(ctx, "bedrock.invoke_model",
		trace.WithAttributes(attribute.String("model.id", input.ModelID)))
	defer span.End()

	start := time.Now()
	out, err := m.inner.InvokeModel(ctx, input)
	elapsed := time.Since(start).Milliseconds()

	fam := model.FamilyOf(input.ModelID)
	req := m.parse(input.Body, input.ModelID)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		m.emitInvoke(ctx, fam, input.ModelID, traceID, elapsed, req, extract.Body{}, err)
		return out, err
	}

	var resp extract.Body
	if data, teeErr := teeBody(out); teeErr != nil {
		m.cfg.logger.Warn("response body read failed",
			slog.String("model", input.ModelID), slog.Any("error", teeErr))
		resp = extract.Body{}
	} else {
		resp = m.parse(data, input.ModelID)
	}

	m.emitInvoke(ctx, fam, input.ModelID, traceID, elapsed, req, resp, nil)
	return out, nil
}

// Converse calls the wrapped client and emits per-message events plus a
// summary.
func (m *monitor) Converse(ctx context.Context, input *bedrock.ConverseInput) (*bedrock.ConverseOutput, error) {
	ctx, traceID := ensureTraceID(ctx)
	ctx, span := m.cfg.tracer().Start(ctx, "bedrock.converse",
		trace.WithAttributes(attribute.String("model.id", input.ModelID)))
	defer span.End()

	start := time.Now()
	out, err := m.inner.Converse(ctx, input)
	elapsed := time.Since(start).Milliseconds()

	msgs := converseMessages(input)
	data := events.ChatData{
		Common:         m.common(ctx, input.ModelID, traceID, elapsed, err),
		ConversationID: ConversationIDFrom(ctx),
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else if out != nil {
		msgs = append(msgs, events.ChatMessage{
			Role:    out.Output.Message.Role,
			Content: blockText(out.Output.Message.Content),
		})
		data.FinishReason = out.StopReason
		if out.Usage != nil {
			data.Usage = extract.Usage{
				PromptTokens:     out.Usage.InputTokens,
				CompletionTokens: out.Usage.OutputTokens,
				TotalTokens:      out.Usage.TotalTokens,
			}
		}
	}
	data.Messages = msgs

	for _, ev := range events.ChatCompletion(data) {
		m.cfg.sink.Emit(ctx, ev)
	}
	return out, err
}

// InvokeModelWithResponseStream instruments a streaming invocation. By
// default a metadata-only event marks the stream open; with chunk
// capture enabled the payload channel is teed and a final completion
// event carries the accumulated text when the stream ends.
func (m *monitor) InvokeModelWithResponseStream(ctx context.Context, input *bedrock.InvokeModelInput) (*bedrock.InvokeModelStreamOutput, error) {
	if m.cfg.disableStreaming {
		return m.inner.InvokeModelWithResponseStream(ctx, input)
	}

	ctx, traceID := ensureTraceID(ctx)
	ctx, span := m.cfg.tracer().Start(ctx, "bedrock.invoke_model_stream",
		trace.WithAttributes(attribute.String("model.id", input.ModelID)))

	start := time.Now()
	out, err := m.inner.InvokeModelWithResponseStream(ctx, input)
	elapsed := time.Since(start).Milliseconds()

	fam := model.FamilyOf(input.ModelID)
	req := m.parse(input.Body, input.ModelID)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		span.End()
		d := events.CompletionData{
			Common:      m.common(ctx, input.ModelID, traceID, elapsed, err),
			Input:       extract.Prompt(req, fam),
			IsStreaming: true,
		}
		m.cfg.sink.Emit(ctx, events.Completion(d))
		return out, err
	}

	if !m.cfg.captureChunks {
		span.End()
		d := events.CompletionData{
			Common:      m.common(ctx, input.ModelID, traceID, elapsed, nil),
			Input:       extract.Prompt(req, fam),
			IsStreaming: true,
		}
		m.cfg.sink.Emit(ctx, events.Completion(d))
		return out, nil
	}

	teed := make(chan bedrock.StreamPart)
	go func() {
		defer close(teed)
		defer span.End()

		var text strings.Builder
		var abandoned bool
	forward:
		for part := range out.Events {
			if chunk, ok := extract.ParseBody(part.Bytes); ok {
				text.WriteString(extract.StreamChunkText(chunk))
			}
			select {
			case teed <- part:
			case <-ctx.Done():
				// Caller abandoned the stream; the terminal event
				// still goes out with what was accumulated.
				abandoned = true
				break forward
			}
		}

		streamErr := out.Err()
		if streamErr == nil && abandoned {
			streamErr = ctx.Err()
		}
		if streamErr != nil {
			span.SetStatus(codes.Error, streamErr.Error())
			span.RecordError(streamErr)
		}
		d := events.CompletionData{
			Common:      m.common(ctx, input.ModelID, traceID, time.Since(start).Milliseconds(), streamErr),
			Input:       extract.Prompt(req, fam),
			Output:      text.String(),
			IsStreaming: true,
		}
		m.cfg.sink.Emit(ctx, events.Completion(d))
	}()

	return bedrock.NewInvokeModelStreamOutput(teed, out.RequestID, out.Err), nil
}

// emitInvoke builds and emits the event for a non-streaming invocation.
func (m *monitor) emitInvoke(ctx context.Context, fam model.Family, modelID, traceID string, elapsed int64, req, resp extract.Body, callErr error) {
	common := m.common(ctx, modelID, traceID, elapsed, callErr)

	if fam.IsEmbedding() {
		m.cfg.sink.Emit(ctx, events.Embedding(events.EmbeddingData{
			Common:     common,
			Input:      extract.EmbeddingInput(req),
			Dimensions: extract.EmbeddingDimensions(resp),
		}))
		return
	}

	params := extract.ModelParams(req, fam)
	d := events.CompletionData{
		Common:       common,
		Input:        extract.Prompt(req, fam),
		Output:       extract.Completion(resp, fam),
		FinishReason: extract.FinishReason(resp, fam),
		Usage:        extract.TokenUsage(resp),
		Temperature:  params.Temperature,
		TopP:         params.TopP,
	}

	if d.Usage.Empty() && m.cfg.estimateTokens && callErr == nil {
		d.Usage = extract.Usage{
			PromptTokens:     m.cfg.tokenRegistry.Count(modelID, d.Input),
			CompletionTokens: m.cfg.tokenRegistry.Count(modelID, d.Output),
		}
		if d.Usage.PromptTokens > 0 && d.Usage.CompletionTokens > 0 {
			d.Usage.TotalTokens = d.Usage.PromptTokens + d.Usage.CompletionTokens
		}
		if !d.Usage.Empty() {
			d.TokenSource = "estimated"
		}
	}

	m.cfg.sink.Emit(ctx, events.Completion(d))
}

func (m *monitor) common(ctx context.Context, modelID, traceID string, elapsed int64, callErr error) events.Common {
	userID := UserIDFrom(ctx)
	if userID == "" {
		userID = m.cfg.userID
	}
	return events.Common{
		ApplicationName: m.cfg.appName,
		RequestModel:    model.Normalize(modelID),
		ResponseTime:    elapsed,
		TraceID:         traceID,
		UserID:          userID,
		APIKeyLastFour:  m.cfg.apiKeyLastFour,
		Region:          m.cfg.region,
		Err:             events.FromError(callErr),
	}
}

// parse decodes a body, logging parse failures. Extraction proceeds on
// the empty body so one malformed payload never suppresses the event.
func (m *monitor) parse(data []byte, modelID string) extract.Body {
	body, ok := extract.ParseBody(data)
	if !ok {
		m.cfg.logger.Warn("body parse failed", slog.String("model", modelID))
	}
	return body
}

// teeBody drains the response body and replaces it with a fresh reader
// over the same bytes. A mid-stream read failure is replayed after the
// bytes that did arrive, so the replacement body fails exactly where
// the original would have.
func teeBody(out *bedrock.InvokeModelOutput) ([]byte, error) {
	if out == nil || out.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(out.Body)
	closeErr := out.Body.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		out.Body = io.NopCloser(io.MultiReader(bytes.NewReader(data), errReader{err}))
		return data, err
	}
	out.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func converseMessages(input *bedrock.ConverseInput) []events.ChatMessage {
	var msgs []events.ChatMessage
	for _, sys := range input.System {
		if sys.Text != "" {
			msgs = append(msgs, events.ChatMessage{Role: "system", Content: sys.Text})
		}
	}
	for _, msg := range input.Messages {
		msgs = append(msgs, events.ChatMessage{Role: msg.Role, Content: blockText(msg.Content)})
	}
	return msgs
}

func blockText(blocks []bedrock.ConverseContentBlock) string {
	var parts []string
	for _, b := range blocks {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, " ")
}
