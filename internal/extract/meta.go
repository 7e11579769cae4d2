package extract

import "strings"

// Llama 2 responds with a flat generation field; Llama 3 may respond
// with content blocks.

func llama2Completion(resp Body) string {
	return resp.Str("generation")
}

func llama3Completion(resp Body) string {
	content := resp.List("content")
	if len(content) == 0 {
		return resp.Str("generation")
	}
	var parts []string
	for _, item := range content {
		if t := asBody(item).Str("text"); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
