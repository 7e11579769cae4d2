package extract

// Usage holds reconciled token counts for one exchange. Zero fields mean
// the response did not report them.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Empty reports whether no token counts were found.
func (u Usage) Empty() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// TokenUsage reconciles the usage-object shapes observed across model
// families: the nested usage.{inputTokenCount,outputTokenCount,
// totalTokenCount} shape, the nested snake_case variant, and the flat
// {input_tokens,output_tokens} / {input_token_count,output_token_count}
// shapes. An explicit total is never overwritten; a missing total is
// computed as the sum of parts only when both parts are present.
func TokenUsage(resp Body) Usage {
	var u Usage

	if usage := resp.Map("usage"); usage != nil {
		u.PromptTokens, _ = firstInt(usage, "inputTokenCount", "input_tokens", "prompt_tokens")
		u.CompletionTokens, _ = firstInt(usage, "outputTokenCount", "output_tokens", "completion_tokens")
		if total, ok := firstInt(usage, "totalTokenCount", "total_tokens"); ok {
			u.TotalTokens = total
			return u
		}
	} else {
		u.PromptTokens, _ = firstInt(resp, "input_tokens", "input_token_count")
		u.CompletionTokens, _ = firstInt(resp, "output_tokens", "output_token_count")
		if total, ok := firstInt(resp, "total_tokens"); ok {
			u.TotalTokens = total
			return u
		}
	}

	if u.PromptTokens > 0 && u.CompletionTokens > 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

func firstInt(b Body, keys ...string) (int, bool) {
	for _, key := range keys {
		if v, ok := b.Int(key); ok {
			return v, true
		}
	}
	return 0, false
}
