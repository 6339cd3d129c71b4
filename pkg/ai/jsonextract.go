package ai

import (
	"encoding/json"
	"strings"
)

// ParseJSONObject decodes a provider answer into an object. The whole text is
// tried first; when that fails the first balanced {...} block is decoded.
func ParseJSONObject(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, newError(KindInvalidResponse, "empty response", nil)
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(trimmed), &out); err == nil && out != nil {
		return out, nil
	}

	block, ok := ExtractJSONObject(trimmed)
	if !ok {
		return nil, newError(KindInvalidResponse, "no JSON object in response", nil)
	}
	out = nil
	if err := json.Unmarshal([]byte(block), &out); err != nil || out == nil {
		return nil, newError(KindInvalidResponse, "malformed JSON object", err)
	}
	return out, nil
}

// ExtractJSONObject returns the first complete {...} block of text. Braces
// inside string literals, including escaped quotes, do not count.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
