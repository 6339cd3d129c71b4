// Package pii strips personally identifiable information from free text
// before it is handed to an external text-generation provider.
package pii

import (
	"regexp"
	"strings"
)

type rule struct {
	re          *regexp.Regexp
	placeholder string
}

// Redactor replaces PII matches with fixed placeholders. Patterns are
// compiled once and a Redactor is safe for concurrent use.
type Redactor struct {
	rules []rule
}

// URLs go first so addresses embedded in links are removed with the link.
// SSNs precede phone and card numbers because their digit groups overlap.
func New() *Redactor {
	return &Redactor{rules: []rule{
		{regexp.MustCompile(`https?://[^\s]+`), "[url redacted]"},
		{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[email redacted]"},
		{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[ssn redacted]"},
		{regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`), "[card redacted]"},
		{regexp.MustCompile(`(?:\+?1[-.\s]?)?(?:\(\d{3}\)|\b\d{3})[-.\s]?\d{3}[-.\s]?\d{4}\b`), "[phone redacted]"},
		{regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Prof)\.?\s+[A-Z][a-z]+\s+[A-Z][a-z]+\b`), "[name redacted]"},
	}}
}

func (r *Redactor) Redact(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	for _, rl := range r.rules {
		text = rl.re.ReplaceAllString(text, rl.placeholder)
	}
	return text
}

// RedactAll redacts every string in place order and returns a new slice.
func (r *Redactor) RedactAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = r.Redact(t)
	}
	return out
}
