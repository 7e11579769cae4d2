package bedrockobs

import (
	"context"

	"github.com/google/uuid"
)

type contextKey int

const (
	traceIDKey contextKey = iota
	conversationIDKey
	userIDKey
)

// WithTraceID returns a context carrying an explicit trace id. Events
// emitted for calls under this context share it.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFrom returns the trace id in ctx, or "".
func TraceIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// WithConversationID tags calls under ctx with a conversation id.
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, conversationIDKey, conversationID)
}

// ConversationIDFrom returns the conversation id in ctx, or "".
func ConversationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(conversationIDKey).(string)
	return id
}

// WithUserID tags calls under ctx with a user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFrom returns the user id in ctx, or "".
func UserIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// LinkWorkflow returns a context carrying a fresh trace id, linking the
// invocation, prompt and evaluation events of one workflow. The second
// return is the generated id for use outside the context.
func LinkWorkflow(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return WithTraceID(ctx, id), id
}

// ensureTraceID returns the context's trace id, generating one when
// absent.
func ensureTraceID(ctx context.Context) (context.Context, string) {
	if id := TraceIDFrom(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithTraceID(ctx, id), id
}
