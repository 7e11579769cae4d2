package bedrockobs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/driftsignal/bedrockobs/internal/api/bedrock"
	"github.com/driftsignal/bedrockobs/internal/events"
)

type captureSink struct {
	mu  sync.Mutex
	evs []events.Event
}

func (c *captureSink) Emit(_ context.Context, ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evs = append(c.evs, ev)
}

func (c *captureSink) all() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.Event(nil), c.evs...)
}

type fakeRuntime struct {
	invokeOut   *bedrock.InvokeModelOutput
	invokeErr   error
	converseOut *bedrock.ConverseOutput
	converseErr error
	streamParts []bedrock.StreamPart
	streamOut   *bedrock.InvokeModelStreamOutput
	streamErr   error

	gotInvoke   *bedrock.InvokeModelInput
	gotConverse *bedrock.ConverseInput
}

func (f *fakeRuntime) InvokeModel(_ context.Context, input *bedrock.InvokeModelInput) (*bedrock.InvokeModelOutput, error) {
	f.gotInvoke = input
	return f.invokeOut, f.invokeErr
}

func (f *fakeRuntime) Converse(_ context.Context, input *bedrock.ConverseInput) (*bedrock.ConverseOutput, error) {
	f.gotConverse = input
	return f.converseOut, f.converseErr
}

func (f *fakeRuntime) InvokeModelWithResponseStream(_ context.Context, input *bedrock.InvokeModelInput) (*bedrock.InvokeModelStreamOutput, error) {
	f.gotInvoke = input
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	if f.streamOut != nil {
		return f.streamOut, nil
	}
	ch := make(chan bedrock.StreamPart, len(f.streamParts))
	for _, p := range f.streamParts {
		ch <- p
	}
	close(ch)
	return bedrock.NewInvokeModelStreamOutput(ch, "stream-req-1", nil), nil
}

func respBody(s string) io.ReadCloser {
	return io.NopCloser(bytes.NewReader([]byte(s)))
}

func wrap(t *testing.T, inner bedrock.Runtime, opts ...Option) (bedrock.Runtime, *captureSink) {
	t.Helper()
	capture := &captureSink{}
	wrapped, err := Wrap(inner, append([]Option{WithAppName("test-app"), WithSink(capture)}, opts...)...)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	return wrapped, capture
}

func TestWrap_DoubleWrapGuard(t *testing.T) {
	inner := &fakeRuntime{}
	once, err := Wrap(inner)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := Wrap(once)
	if err != nil {
		t.Fatal(err)
	}
	if once != twice {
		t.Error("wrapping an instrumented client must return it unchanged")
	}
}

func TestWrap_BadOption(t *testing.T) {
	if _, err := Wrap(&fakeRuntime{}, WithAppName("")); err == nil {
		t.Error("expected error for empty application name")
	}
}

func TestInvokeModel_EmitsCompletion(t *testing.T) {
	inner := &fakeRuntime{
		invokeOut: &bedrock.InvokeModelOutput{
			Body:      respBody(`{"content":[{"type":"text","text":"hello"}],"stop_reason":"end_turn","usage":{"input_tokens":5,"output_tokens":1}}`),
			RequestID: "req-1",
		},
	}
	wrapped, capture := wrap(t, inner)

	out, err := wrapped.InvokeModel(context.Background(), &bedrock.InvokeModelInput{
		ModelID: "anthropic.claude-3-5-sonnet-20240620-v1:0",
		Body:    []byte(`{"messages":[{"role":"user","content":"hi"}]}`),
	})
	if err != nil {
		t.Fatalf("InvokeModel: %v", err)
	}

	// Caller still reads the full body after the tee.
	data, err := io.ReadAll(out.Body)
	if err != nil {
		t.Fatalf("body read: %v", err)
	}
	if !strings.Contains(string(data), `"hello"`) {
		t.Errorf("caller body = %q, tee corrupted it", data)
	}

	evs := capture.all()
	if len(evs) != 1 {
		t.Fatalf("got %d events, want 1", len(evs))
	}
	ev := evs[0]
	if ev.Type != events.TypeCompletion {
		t.Fatalf("event type = %q", ev.Type)
	}
	if ev.Attributes["request_model"] != "anthropic.claude-3-5-sonnet" {
		t.Errorf("request_model = %v", ev.Attributes["request_model"])
	}
	if ev.Attributes["input"] != "hi" {
		t.Errorf("input = %v", ev.Attributes["input"])
	}
	if ev.Attributes["output"] != "hello" {
		t.Errorf("output = %v", ev.Attributes["output"])
	}
	if ev.Attributes["finish_reason"] != "end_turn" {
		t.Errorf("finish_reason = %v", ev.Attributes["finish_reason"])
	}
	if ev.Attributes["prompt_tokens"] != 5 || ev.Attributes["completion_tokens"] != 1 || ev.Attributes["total_tokens"] != 6 {
		t.Errorf("token attrs = %v/%v/%v", ev.Attributes["prompt_tokens"], ev.Attributes["completion_tokens"], ev.Attributes["total_tokens"])
	}
	if ev.Attributes["trace_id"] == nil {
		t.Error("missing trace_id")
	}
}

func TestInvokeModel_ErrorReRaised(t *testing.T) {
	callErr := &bedrock.APIError{Code: "ThrottlingException", Message: "slow down", StatusCode: 429, RequestID: "r-1"}
	inner := &fakeRuntime{invokeErr: callErr}
	wrapped, capture := wrap(t, inner)

	_, err := wrapped.InvokeModel(context.Background(), &bedrock.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"hi"}`),
	})
	if !errors.Is(err, callErr) {
		t.Fatalf("err = %v, want original error unchanged", err)
	}

	evs := capture.all()
	if len(evs) != 1 {
		t.Fatalf("got %d events, want 1", len(evs))
	}
	ev := evs[0]
	if ev.Attributes["error_code"] != "ThrottlingException" {
		t.Errorf("error_code = %v", ev.Attributes["error_code"])
	}
	if ev.Attributes["rate_limit_exceeded"] != true {
		t.Error("rate_limit_exceeded not set")
	}
	if ev.Attributes["input"] != "hi" {
		t.Errorf("input = %v, prompt should be captured on failure", ev.Attributes["input"])
	}
}

func TestInvokeModel_EmbeddingFamily(t *testing.T) {
	inner := &fakeRuntime{
		invokeOut: &bedrock.InvokeModelOutput{
			Body: respBody(`{"embedding":[0.1,0.2,0.3],"inputTextTokenCount":3}`),
		},
	}
	wrapped, capture := wrap(t, inner)

	_, err := wrapped.InvokeModel(context.Background(), &bedrock.InvokeModelInput{
		ModelID: "amazon.titan-embed-text-v1",
		Body:    []byte(`{"inputText":"embed me"}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	evs := capture.all()
	if len(evs) != 1 || evs[0].Type != events.TypeEmbedding {
		t.Fatalf("events = %+v, want one LlmEmbedding", evs)
	}
	if evs[0].Attributes["input"] != "embed me" {
		t.Errorf("input = %v", evs[0].Attributes["input"])
	}
	if evs[0].Attributes["dimensions"] != 3 {
		t.Errorf("dimensions = %v", evs[0].Attributes["dimensions"])
	}
}

func TestInvokeModel_MalformedBodiesStillEmit(t *testing.T) {
	inner := &fakeRuntime{
		invokeOut: &bedrock.InvokeModelOutput{Body: respBody(`not json`)},
	}
	wrapped, capture := wrap(t, inner)

	out, err := wrapped.InvokeModel(context.Background(), &bedrock.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`also not json`),
	})
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(out.Body)
	if string(data) != "not json" {
		t.Errorf("caller body = %q", data)
	}

	evs := capture.all()
	if len(evs) != 1 {
		t.Fatalf("got %d events, want 1", len(evs))
	}
	if evs[0].Attributes["input"] != "" || evs[0].Attributes["output"] != "" {
		t.Errorf("extraction should degrade to empty, got %v / %v",
			evs[0].Attributes["input"], evs[0].Attributes["output"])
	}
}

func TestInvokeModel_TokenEstimation(t *testing.T) {
	inner := &fakeRuntime{
		invokeOut: &bedrock.InvokeModelOutput{
			Body: respBody(`{"completion":"a generated response"}`),
		},
	}
	wrapped, capture := wrap(t, inner, WithTokenEstimation())

	_, err := wrapped.InvokeModel(context.Background(), &bedrock.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"a question"}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	ev := capture.all()[0]
	if ev.Attributes["token_source"] != "estimated" {
		t.Errorf("token_source = %v", ev.Attributes["token_source"])
	}
	pt, _ := ev.Attributes["prompt_tokens"].(int)
	ct, _ := ev.Attributes["completion_tokens"].(int)
	if pt < 1 || ct < 1 {
		t.Errorf("estimated tokens = %d/%d, want positive", pt, ct)
	}
}

func TestInvokeModel_NoEstimationWhenUsagePresent(t *testing.T) {
	inner := &fakeRuntime{
		invokeOut: &bedrock.InvokeModelOutput{
			Body: respBody(`{"completion":"hi","usage":{"input_tokens":9,"output_tokens":2}}`),
		},
	}
	wrapped, capture := wrap(t, inner, WithTokenEstimation())

	if _, err := wrapped.InvokeModel(context.Background(), &bedrock.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"hello"}`),
	}); err != nil {
		t.Fatal(err)
	}

	ev := capture.all()[0]
	if _, ok := ev.Attributes["token_source"]; ok {
		t.Error("token_source set despite reported usage")
	}
	if ev.Attributes["prompt_tokens"] != 9 {
		t.Errorf("prompt_tokens = %v, want reported value", ev.Attributes["prompt_tokens"])
	}
}

// brokenBody yields its data on the first read and err afterwards.
type brokenBody struct {
	data []byte
	err  error
	read bool
}

func (b *brokenBody) Read(p []byte) (int, error) {
	if !b.read {
		b.read = true
		return copy(p, b.data), nil
	}
	return 0, b.err
}

func (b *brokenBody) Close() error { return nil }

func TestInvokeModel_BodyReadErrorSurfacesToCaller(t *testing.T) {
	readErr := errors.New("connection reset mid-body")
	inner := &fakeRuntime{
		invokeOut: &bedrock.InvokeModelOutput{
			Body: &brokenBody{data: []byte(`{"completion":"par`), err: readErr},
		},
	}
	wrapped, capture := wrap(t, inner)

	out, err := wrapped.InvokeModel(context.Background(), &bedrock.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"q"}`),
	})
	if err != nil {
		t.Fatalf("InvokeModel: %v", err)
	}

	data, readBack := io.ReadAll(out.Body)
	if string(data) != `{"completion":"par` {
		t.Errorf("caller read %q, want the bytes that arrived", data)
	}
	if !errors.Is(readBack, readErr) {
		t.Errorf("caller read error = %v, want the original read failure", readBack)
	}

	if n := len(capture.all()); n != 1 {
		t.Errorf("got %d events, want 1", n)
	}
}

func TestConverse_EmitsMessagesAndSummary(t *testing.T) {
	inner := &fakeRuntime{
		converseOut: &bedrock.ConverseOutput{
			Output: bedrock.ConverseOutputMessage{Message: bedrock.ConverseMessage{
				Role:    "assistant",
				Content: []bedrock.ConverseContentBlock{{Text: "the answer"}},
			}},
			StopReason: "end_turn",
			Usage:      &bedrock.ConverseUsage{InputTokens: 12, OutputTokens: 4, TotalTokens: 16},
		},
	}
	wrapped, capture := wrap(t, inner)

	_, err := wrapped.Converse(context.Background(), &bedrock.ConverseInput{
		ModelID: "anthropic.claude-3-sonnet-20240229-v1:0",
		System:  []bedrock.ConverseContentBlock{{Text: "be brief"}},
		Messages: []bedrock.ConverseMessage{
			{Role: "user", Content: []bedrock.ConverseContentBlock{{Text: "the question"}}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	evs := capture.all()
	if len(evs) != 4 {
		t.Fatalf("got %d events, want 3 messages + summary", len(evs))
	}
	summary := evs[3]
	if summary.Type != events.TypeChatCompletionSummary {
		t.Fatalf("last event type = %q", summary.Type)
	}
	if summary.Attributes["number_of_messages"] != 3 {
		t.Errorf("number_of_messages = %v, want 3", summary.Attributes["number_of_messages"])
	}
	if summary.Attributes["finish_reason"] != "end_turn" {
		t.Errorf("finish_reason = %v", summary.Attributes["finish_reason"])
	}
	if summary.Attributes["total_tokens"] != 16 {
		t.Errorf("total_tokens = %v", summary.Attributes["total_tokens"])
	}

	roles := []string{"system", "user", "assistant"}
	for i, want := range roles {
		if evs[i].Type != events.TypeChatCompletionMessage {
			t.Errorf("event %d type = %q", i, evs[i].Type)
		}
		if evs[i].Attributes["role"] != want {
			t.Errorf("event %d role = %v, want %q", i, evs[i].Attributes["role"], want)
		}
	}
	if evs[2].Attributes["content"] != "the answer" {
		t.Errorf("assistant content = %v", evs[2].Attributes["content"])
	}
}

func TestConverse_ConversationIDFromContext(t *testing.T) {
	inner := &fakeRuntime{
		converseOut: &bedrock.ConverseOutput{
			Output: bedrock.ConverseOutputMessage{Message: bedrock.ConverseMessage{
				Role:    "assistant",
				Content: []bedrock.ConverseContentBlock{{Text: "ok"}},
			}},
			StopReason: "end_turn",
		},
	}
	wrapped, capture := wrap(t, inner)

	ctx := WithConversationID(context.Background(), "conv-42")
	_, err := wrapped.Converse(ctx, &bedrock.ConverseInput{
		ModelID: "anthropic.claude-3-sonnet-20240229-v1:0",
		Messages: []bedrock.ConverseMessage{
			{Role: "user", Content: []bedrock.ConverseContentBlock{{Text: "hi"}}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	for i, ev := range capture.all() {
		if ev.Attributes["conversation_id"] != "conv-42" {
			t.Errorf("event %d conversation_id = %v", i, ev.Attributes["conversation_id"])
		}
	}
}

func TestConverse_ErrorReRaised(t *testing.T) {
	callErr := errors.New("network down")
	inner := &fakeRuntime{converseErr: callErr}
	wrapped, capture := wrap(t, inner)

	_, err := wrapped.Converse(context.Background(), &bedrock.ConverseInput{
		ModelID: "anthropic.claude-3-haiku-20240307-v1:0",
		Messages: []bedrock.ConverseMessage{
			{Role: "user", Content: []bedrock.ConverseContentBlock{{Text: "q"}}},
		},
	})
	if !errors.Is(err, callErr) {
		t.Fatalf("err = %v, want original", err)
	}

	evs := capture.all()
	summary := evs[len(evs)-1]
	if summary.Attributes["error_message"] != "network down" {
		t.Errorf("error_message = %v", summary.Attributes["error_message"])
	}
}

func TestStream_MetadataOnlyByDefault(t *testing.T) {
	inner := &fakeRuntime{
		streamParts: []bedrock.StreamPart{
			{Bytes: []byte(`{"completion":"chunk one "}`)},
			{Bytes: []byte(`{"completion":"chunk two"}`)},
		},
	}
	wrapped, capture := wrap(t, inner)

	out, err := wrapped.InvokeModelWithResponseStream(context.Background(), &bedrock.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"stream it"}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	var n int
	for range out.Events {
		n++
	}
	if n != 2 {
		t.Errorf("caller saw %d parts, want 2", n)
	}

	evs := capture.all()
	if len(evs) != 1 {
		t.Fatalf("got %d events, want 1", len(evs))
	}
	if evs[0].Attributes["is_streaming"] != true {
		t.Error("is_streaming not set")
	}
	if _, ok := evs[0].Attributes["output"].(string); !ok || evs[0].Attributes["output"] != "" {
		t.Errorf("metadata-only event must not carry output, got %v", evs[0].Attributes["output"])
	}
	if evs[0].Attributes["input"] != "stream it" {
		t.Errorf("input = %v", evs[0].Attributes["input"])
	}
}

func TestStream_ChunkCapture(t *testing.T) {
	inner := &fakeRuntime{
		streamParts: []bedrock.StreamPart{
			{Bytes: []byte(`{"completion":"chunk one "}`)},
			{Bytes: []byte(`{"completion":"chunk two"}`)},
		},
	}
	wrapped, capture := wrap(t, inner, WithChunkCapture())

	out, err := wrapped.InvokeModelWithResponseStream(context.Background(), &bedrock.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"stream it"}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for part := range out.Events {
		got = append(got, string(part.Bytes))
	}
	if len(got) != 2 {
		t.Fatalf("caller saw %d parts, want 2", len(got))
	}

	evs := capture.all()
	if len(evs) != 1 {
		t.Fatalf("got %d events, want 1", len(evs))
	}
	if evs[0].Attributes["output"] != "chunk one chunk two" {
		t.Errorf("accumulated output = %v", evs[0].Attributes["output"])
	}
	if evs[0].Attributes["is_streaming"] != true {
		t.Error("is_streaming not set")
	}
}

func TestStream_AbandonedCallerStillEmits(t *testing.T) {
	parts := make(chan bedrock.StreamPart, 2)
	parts <- bedrock.StreamPart{Bytes: []byte(`{"completion":"chunk one "}`)}
	parts <- bedrock.StreamPart{Bytes: []byte(`{"completion":"chunk two"}`)}
	// The channel stays open: the upstream never finishes.
	inner := &fakeRuntime{
		streamOut: bedrock.NewInvokeModelStreamOutput(parts, "stream-req-2", nil),
	}
	wrapped, capture := wrap(t, inner, WithChunkCapture())

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := wrapped.InvokeModelWithResponseStream(ctx, &bedrock.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"stream it"}`),
	}); err != nil {
		t.Fatal(err)
	}
	cancel()

	deadline := time.After(2 * time.Second)
	for len(capture.all()) == 0 {
		select {
		case <-deadline:
			t.Fatal("no event emitted after the caller abandoned the stream")
		case <-time.After(10 * time.Millisecond):
		}
	}

	ev := capture.all()[0]
	if ev.Attributes["is_streaming"] != true {
		t.Error("is_streaming not set")
	}
	if ev.Attributes["output"] != "chunk one " {
		t.Errorf("accumulated output = %v, want the forwarded chunk only", ev.Attributes["output"])
	}
}

func TestStream_DisabledEmitsNothing(t *testing.T) {
	inner := &fakeRuntime{
		streamParts: []bedrock.StreamPart{{Bytes: []byte(`{"completion":"x"}`)}},
	}
	wrapped, capture := wrap(t, inner, WithStreamingEventsDisabled())

	out, err := wrapped.InvokeModelWithResponseStream(context.Background(), &bedrock.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"q"}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	for range out.Events {
	}
	if len(capture.all()) != 0 {
		t.Errorf("got %d events, want none", len(capture.all()))
	}
}

func TestTraceID_PropagatedFromContext(t *testing.T) {
	inner := &fakeRuntime{
		invokeOut: &bedrock.InvokeModelOutput{Body: respBody(`{"completion":"ok"}`)},
	}
	wrapped, capture := wrap(t, inner)

	ctx := WithTraceID(context.Background(), "trace-explicit")
	if _, err := wrapped.InvokeModel(ctx, &bedrock.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"q"}`),
	}); err != nil {
		t.Fatal(err)
	}

	if got := capture.all()[0].Attributes["trace_id"]; got != "trace-explicit" {
		t.Errorf("trace_id = %v, want explicit id", got)
	}
}

func TestUserID_ContextOverridesOption(t *testing.T) {
	inner := &fakeRuntime{
		invokeOut: &bedrock.InvokeModelOutput{Body: respBody(`{"completion":"ok"}`)},
	}
	wrapped, capture := wrap(t, inner, WithDefaultUserID("default-user"))

	ctx := WithUserID(context.Background(), "ctx-user")
	if _, err := wrapped.InvokeModel(ctx, &bedrock.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"q"}`),
	}); err != nil {
		t.Fatal(err)
	}

	if got := capture.all()[0].Attributes["user_id"]; got != "ctx-user" {
		t.Errorf("user_id = %v, want context value", got)
	}
}

func TestWithTracerProvider_RecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	inner := &fakeRuntime{
		invokeOut: &bedrock.InvokeModelOutput{Body: respBody(`{"completion":"ok"}`)},
	}
	wrapped, _ := wrap(t, inner, WithTracerProvider(tp))

	if _, err := wrapped.InvokeModel(context.Background(), &bedrock.InvokeModelInput{
		ModelID: "anthropic.claude-v2",
		Body:    []byte(`{"prompt":"q"}`),
	}); err != nil {
		t.Fatal(err)
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name() != "bedrock.invoke_model" {
		t.Errorf("span name = %q", spans[0].Name())
	}
}

func TestWithTracerProvider_NilRejected(t *testing.T) {
	if _, err := Wrap(&fakeRuntime{}, WithTracerProvider(nil)); err == nil {
		t.Error("expected error for nil tracer provider")
	}
}
