package extract

// StreamChunkText pulls the text fragment out of one streaming payload
// part. Chunk shapes differ per family: Claude 3 delta blocks, the
// legacy completion delta, Titan outputText chunks, and a flat text
// field. Unrecognized chunks yield "".
func StreamChunkText(chunk Body) string {
	if delta := chunk.Map("delta"); delta != nil {
		if v := delta.Str("text"); v != "" {
			return v
		}
	}
	if v := chunk.Str("completion"); v != "" {
		return v
	}
	if v := chunk.Str("outputText"); v != "" {
		return v
	}
	if v := chunk.Str("generation"); v != "" {
		return v
	}
	return chunk.Str("text")
}
