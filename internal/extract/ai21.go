package extract

// Jurassic 2 nests text under completions[].data; Jamba is
// messages-based with a flat response text.

func jurassicCompletion(resp Body) string {
	comps := resp.List("completions")
	if len(comps) == 0 {
		return ""
	}
	return asBody(comps[0]).Map("data").Str("text")
}

func jambaPrompt(req Body) string {
	if p := req.Str("prompt"); p != "" {
		return p
	}
	return messagesPrompt(req)
}

func jambaCompletion(resp Body) string {
	return resp.Str("text")
}
