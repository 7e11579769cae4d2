package extract

// EmbeddingInput extracts the text submitted to an embedding model.
// Batch requests report the first item only.
func EmbeddingInput(req Body) string {
	if v := req.Str("inputText"); v != "" {
		return v
	}
	if v := req.Str("text"); v != "" {
		return v
	}
	switch input := req["input"].(type) {
	case string:
		return input
	case []any:
		if len(input) == 0 {
			return ""
		}
		if s, ok := input[0].(string); ok {
			return s
		}
		return asBody(input[0]).Str("text")
	}
	return ""
}

// EmbeddingDimensions returns the embedding vector length when the
// response carries one, else 0.
func EmbeddingDimensions(resp Body) int {
	switch emb := resp["embedding"].(type) {
	case []any:
		return len(emb)
	case map[string]any:
		if inner, ok := emb["embedding"].([]any); ok {
			return len(inner)
		}
	}
	return 0
}
