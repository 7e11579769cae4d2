package extract

import "strings"

// Claude 1/2 uses a flat prompt/completion schema; Claude 3 and 3.5 use
// the messages API with typed content blocks.

func claudePrompt(req Body) string {
	return req.Str("prompt")
}

func claudeCompletion(resp Body) string {
	return resp.Str("completion")
}

func claude3Prompt(req Body) string {
	if p := req.Str("prompt"); p != "" {
		return p
	}
	return messagesPrompt(req)
}

func claude3Completion(resp Body) string {
	content := resp.List("content")
	if len(content) == 0 {
		// legacy field still appears on some proxied responses
		return resp.Str("completion")
	}
	var parts []string
	for _, item := range content {
		block := asBody(item)
		if block.Str("type") == "text" || (!block.Has("type") && block.Has("text")) {
			if t := block.Str("text"); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, " ")
}

// messagesPrompt joins the text parts of user-role messages, in array
// order. System and assistant messages are excluded here; they are
// reported as separate role-tagged attributes by the event builders.
func messagesPrompt(req Body) string {
	msgs := req.List("messages")
	if len(msgs) == 0 {
		return ""
	}
	var parts []string
	for _, m := range msgs {
		msg := asBody(m)
		if msg.Str("role") != "user" {
			continue
		}
		switch content := msg["content"].(type) {
		case string:
			if content != "" {
				parts = append(parts, content)
			}
		case []any:
			for _, c := range content {
				block := asBody(c)
				if block.Str("type") == "text" {
					if t := block.Str("text"); t != "" {
						parts = append(parts, t)
					}
				}
			}
		}
	}
	return strings.Join(parts, " ")
}
