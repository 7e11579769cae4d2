package events

import (
	"errors"
	"strconv"

	"github.com/driftsignal/bedrockobs/internal/api/bedrock"
)

// rateLimitCodes are the service error codes that mark an invocation as
// rate limited. Classification uses the structured code only, never
// message text.
var rateLimitCodes = map[string]bool{
	"ThrottlingException":           true,
	"TooManyRequestsException":      true,
	"ServiceQuotaExceededException": true,
}

// CallError is the normalized failure of one invocation.
type CallError struct {
	Message   string
	Type      string
	Code      string
	Status    string
	RequestID string
}

// RateLimited reports whether the error's structured code marks a
// throttled call.
func (e *CallError) RateLimited() bool {
	return e != nil && rateLimitCodes[e.Code]
}

// apply writes the error attributes. A nil receiver writes nothing.
func (e *CallError) apply(attrs map[string]any) {
	if e == nil {
		return
	}
	if e.Message != "" {
		attrs["error_message"] = TruncateContent(e.Message)
	}
	if e.Type != "" {
		attrs["error_type"] = e.Type
	}
	if e.Code != "" {
		attrs["error_code"] = e.Code
	}
	if e.Status != "" {
		attrs["error_status"] = e.Status
	}
	if e.RequestID != "" {
		attrs["error_request_id"] = e.RequestID
	}
	if e.RateLimited() {
		attrs["rate_limit_exceeded"] = true
	}
}

// FromError normalizes a call failure. Structured service errors keep
// their code, status and request id; anything else carries the message
// only. Returns nil for a nil error.
func FromError(err error) *CallError {
	if err == nil {
		return nil
	}
	var apiErr *bedrock.APIError
	if errors.As(err, &apiErr) {
		ce := &CallError{
			Message:   apiErr.Message,
			Type:      "APIError",
			Code:      apiErr.Code,
			RequestID: apiErr.RequestID,
		}
		if apiErr.StatusCode != 0 {
			ce.Status = strconv.Itoa(apiErr.StatusCode)
		}
		return ce
	}
	return &CallError{Message: err.Error()}
}
