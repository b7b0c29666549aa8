// File path: internal/adapters/parse.go

package adapters

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/recollect-dev/recollect/internal/timeutil"
)

// decodeJSONValue parses raw JSON and unwraps one level of
// double-encoding: Cursor stores some values as JSON strings that
// themselves contain JSON documents.
func decodeJSONValue(raw []byte) (any, bool) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false
	}
	if text, ok := value.(string); ok {
		trimmed := strings.TrimSpace(text)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			var inner any
			if err := json.Unmarshal([]byte(trimmed), &inner); err == nil {
				return inner, true
			}
		}
	}
	return value, true
}

// messageArrayKeys lists the payload keys under which platforms store their
// transcript arrays, in probe order.
var messageArrayKeys = []string{"chunks", "messages", "conversation", "items"}

// extractMessageArray digs the transcript array out of a decoded payload.
// Arrays may live at the top level, under one of the known keys, or nested
// one level deeper under "data".
func extractMessageArray(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range messageArrayKeys {
			if arr, ok := v[key].([]any); ok {
				return arr
			}
		}
		if nested, ok := v["data"]; ok {
			if arr := extractMessageArray(nested); arr != nil {
				return arr
			}
		}
	}
	return nil
}

// roleAliases maps the role spellings seen across platforms onto the
// canonical user/assistant/tool set.
var roleAliases = map[string]string{
	"user":       "user",
	"human":      "user",
	"human_user": "user",
	"assistant":  "assistant",
	"ai":         "assistant",
	"bot":        "assistant",
	"model":      "assistant",
	"tool":       "tool",
	"function":   "tool",
}

// normalizeRole resolves a message's role from its role/author/sender
// fields, falling back to Cursor's integer type convention (1 means user,
// everything else assistant). Unknown spellings normalize to assistant.
func normalizeRole(entry map[string]any) string {
	for _, key := range []string{"role", "author", "sender"} {
		raw, ok := entry[key]
		if !ok {
			continue
		}
		name, ok := raw.(string)
		if !ok {
			continue
		}
		if canonical, ok := roleAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			return canonical
		}
	}
	if raw, ok := entry["type"]; ok {
		if n, ok := asInt(raw); ok {
			if n == 1 {
				return "user"
			}
			return "assistant"
		}
	}
	return "assistant"
}

// canonicalRole normalizes a bare role string, defaulting unknown
// spellings to assistant.
func canonicalRole(role string) string {
	if canonical, ok := roleAliases[strings.ToLower(strings.TrimSpace(role))]; ok {
		return canonical
	}
	return "assistant"
}

func asInt(value any) (int64, bool) {
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

// extractText recovers the human-readable text from a message value,
// descending through the text/content/message/value fields and joining
// list elements with newlines.
func extractText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		var parts []string
		for _, item := range v {
			if text := extractText(item); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		for _, key := range []string{"text", "content", "message", "value"} {
			if inner, ok := v[key]; ok {
				if text := extractText(inner); text != "" {
					return text
				}
			}
		}
	}
	return ""
}

// extractTimestamp probes the usual timestamp fields of a message entry.
func extractTimestamp(entry map[string]any) (time.Time, bool) {
	for _, key := range []string{"timestamp", "createdAt", "created_at", "time"} {
		if raw, ok := entry[key]; ok {
			if ts, ok := timeutil.ParseTimestamp(raw); ok {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

// repoNameFromPath derives a short repository name from a workspace path.
func repoNameFromPath(path string) string {
	path = strings.TrimRight(strings.TrimSpace(path), "/\\")
	if path == "" {
		return ""
	}
	if idx := strings.LastIndexAny(path, "/\\"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
