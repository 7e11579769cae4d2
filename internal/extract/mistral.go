package extract

func mistralPrompt(req Body) string {
	if req.Has("messages") {
		if p := messagesPrompt(req); p != "" {
			return p
		}
	}
	return req.Str("prompt")
}

func mistralCompletion(resp Body) string {
	outputs := resp.List("outputs")
	if len(outputs) == 0 {
		return ""
	}
	return asBody(outputs[0]).Str("text")
}

func mistralLargeCompletion(resp Body) string {
	if text := mistralCompletion(resp); text != "" {
		return text
	}
	return resp.Str("text")
}
