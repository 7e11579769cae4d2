package extract

// Legacy Cohere command models respond via generations[]; Command R uses
// a flat message/text schema.

func coherePrompt(req Body) string {
	return req.Str("prompt")
}

func cohereCompletion(resp Body) string {
	gens := resp.List("generations")
	if len(gens) == 0 {
		return ""
	}
	return asBody(gens[0]).Str("text")
}

func cohereFinishReason(resp Body) string {
	gens := resp.List("generations")
	if len(gens) == 0 {
		return ""
	}
	return asBody(gens[0]).Str("finish_reason")
}

func cohereCommandRPrompt(req Body) string {
	if m := req.Str("message"); m != "" {
		return m
	}
	return req.Str("prompt")
}

func cohereCommandRCompletion(resp Body) string {
	return resp.Str("text")
}

func cohereCommandRFinishReason(resp Body) string {
	return resp.Str("finish_reason")
}
