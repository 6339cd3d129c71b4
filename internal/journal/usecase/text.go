package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"dabble-backend/pkg/ai"
)

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// sentences splits on terminal punctuation and drops blank pieces.
func sentences(text string) []string {
	var out []string
	for _, s := range sentenceSplit.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// truncate shortens s to at most n runes, ending in "..." when cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 3 {
		return string(r[:n])
	}
	return strings.TrimSpace(string(r[:n-3])) + "..."
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return append([]string(nil), items...)
	}
	return append([]string(nil), items[:n]...)
}

func containsString(items []string, v string) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}

// stringList reads a JSON array of strings, skipping anything else.
func stringList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, `"'“‘`)
	s = strings.TrimRight(s, `"'”’`)
	return strings.TrimSpace(s)
}

// fallbackReason names the provider failure class for fallback logs.
func fallbackReason(err error) string {
	switch {
	case ai.IsConfigError(err):
		return "config_error"
	case ai.IsTimeout(err):
		return "timeout"
	case ai.IsAPIError(err):
		return "api_error"
	case ai.IsInvalidResponse(err):
		return "invalid_response"
	case err == nil:
		return ""
	}
	return "unknown"
}
