// Package bedrock defines the subset of the Bedrock Runtime surface the
// instrumentation wraps. Declaring the interface locally keeps the module
// decoupled from any particular SDK release: anything exposing these three
// calls, including a thin adapter over an SDK client, can be instrumented.
package bedrock

import (
	"context"
	"fmt"
	"io"
)

// Runtime is the model-invocation surface. All three calls take a
// context and return an error alongside the output.
type Runtime interface {
	InvokeModel(ctx context.Context, input *InvokeModelInput) (*InvokeModelOutput, error)
	InvokeModelWithResponseStream(ctx context.Context, input *InvokeModelInput) (*InvokeModelStreamOutput, error)
	Converse(ctx context.Context, input *ConverseInput) (*ConverseOutput, error)
}

// InvokeModelInput carries a raw model invocation. Body is the
// provider-native JSON payload.
type InvokeModelInput struct {
	ModelID     string
	Body        []byte
	ContentType string
	Accept      string
}

// InvokeModelOutput is the raw invocation response. Body is a stream so
// large responses need not be buffered by the transport; callers own
// closing it.
type InvokeModelOutput struct {
	Body        io.ReadCloser
	ContentType string
	RequestID   string
}

// InvokeModelStreamOutput is the response to a streaming invocation.
// Events yields payload parts in arrival order and is closed when the
// stream ends; Err reports any mid-stream failure after the channel
// closes.
type InvokeModelStreamOutput struct {
	Events    <-chan StreamPart
	RequestID string

	errFn func() error
}

// NewInvokeModelStreamOutput builds a streaming output over an event
// channel and a post-close error accessor.
func NewInvokeModelStreamOutput(events <-chan StreamPart, requestID string, errFn func() error) *InvokeModelStreamOutput {
	return &InvokeModelStreamOutput{Events: events, RequestID: requestID, errFn: errFn}
}

// Err reports the stream's terminal error, valid after Events closes.
func (o *InvokeModelStreamOutput) Err() error {
	if o.errFn == nil {
		return nil
	}
	return o.errFn()
}

// StreamPart is one payload chunk of a streaming response. Bytes holds
// the provider-native JSON fragment for the chunk.
type StreamPart struct {
	Bytes []byte
}

// ConverseInput is the unified conversation request. Unlike InvokeModel
// the payload is structured rather than provider-native JSON.
type ConverseInput struct {
	ModelID         string
	Messages        []ConverseMessage
	System          []ConverseContentBlock
	InferenceConfig *InferenceConfig
}

// ConverseMessage is one turn of the conversation.
type ConverseMessage struct {
	Role    string
	Content []ConverseContentBlock
}

// ConverseContentBlock is a single content part. Only text blocks carry
// extractable content; other block kinds leave Text empty.
type ConverseContentBlock struct {
	Text string
}

// InferenceConfig carries the sampling parameters of a Converse call.
type InferenceConfig struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// ConverseOutput is the unified conversation response.
type ConverseOutput struct {
	Output     ConverseOutputMessage
	StopReason string
	Usage      *ConverseUsage
	RequestID  string
}

// ConverseOutputMessage wraps the assistant message of the response.
type ConverseOutputMessage struct {
	Message ConverseMessage
}

// ConverseUsage reports token counts for a Converse exchange.
type ConverseUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// APIError is a structured service failure. Code carries the service
// error code (for example ThrottlingException); StatusCode the HTTP
// status when known.
type APIError struct {
	Code       string
	Message    string
	StatusCode int
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
