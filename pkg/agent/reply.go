package agent

import (
	"encoding/json"
	"strings"
)

// replyKeys are probed in order when the model wraps its reply in a JSON
// object instead of answering in plain text.
var replyKeys = []string{"content", "message", "text", "response"}

// extractReply unwraps a reply the model mistakenly emitted as JSON. Plain
// text passes through untouched.
func extractReply(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return trimmed
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return trimmed
	}
	for _, key := range replyKeys {
		if v, ok := obj[key].(string); ok && v != "" {
			return v
		}
	}
	return trimmed
}
