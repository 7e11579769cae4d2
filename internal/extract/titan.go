package extract

// Titan v1 nests output under results[]; v2 flattens to input/output.

func titanPrompt(req Body) string {
	return req.Str("inputText")
}

func titanCompletion(resp Body) string {
	results := resp.List("results")
	if len(results) == 0 {
		return ""
	}
	return asBody(results[0]).Str("outputText")
}

func titanFinishReason(resp Body) string {
	results := resp.List("results")
	if len(results) == 0 {
		return ""
	}
	return asBody(results[0]).Str("completionReason")
}

func titanV2Prompt(req Body) string {
	return req.Str("input")
}

func titanV2Completion(resp Body) string {
	return resp.Str("output")
}
