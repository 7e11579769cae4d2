package extract

import "fmt"

// Family-agnostic fallbacks, tried when no family strategy matched or
// the family's expected keys were absent.

func genericPrompt(req Body) string {
	for _, key := range []string{"prompt", "text", "input"} {
		if v := req.Str(key); v != "" {
			return v
		}
	}
	switch inputs := req["inputs"].(type) {
	case string:
		return inputs
	case []any:
		if len(inputs) > 0 {
			if s, ok := inputs[0].(string); ok {
				return s
			}
			return fmt.Sprintf("%v", inputs[0])
		}
	}
	return ""
}

func genericCompletion(resp Body) string {
	for _, key := range []string{"text", "generated_text", "output", "generation"} {
		if v := resp.Str(key); v != "" {
			return v
		}
	}
	return ""
}

func genericFinishReason(resp Body) string {
	for _, key := range []string{"finish_reason", "stop_reason", "completionReason", "stopReason"} {
		if v := resp.Str(key); v != "" {
			return v
		}
	}
	return ""
}
