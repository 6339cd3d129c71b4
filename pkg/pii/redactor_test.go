package pii

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	r := New()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "email and phone",
			in:   "contact me at a@b.com or 555-123-4567",
			want: "contact me at [email redacted] or [phone redacted]",
		},
		{
			name: "phone with area code parens",
			in:   "call (555) 123-4567 tomorrow",
			want: "call [phone redacted] tomorrow",
		},
		{
			name: "ssn",
			in:   "my ssn is 123-45-6789",
			want: "my ssn is [ssn redacted]",
		},
		{
			name: "card",
			in:   "card 4111 1111 1111 1111 expired",
			want: "card [card redacted] expired",
		},
		{
			name: "titled name",
			in:   "I saw Dr. Jane Smith today",
			want: "I saw [name redacted] today",
		},
		{
			name: "url",
			in:   "read https://example.com/a?b=c later",
			want: "read [url redacted] later",
		},
		{
			name: "no pii",
			in:   "A quiet walk in the park.",
			want: "A quiet walk in the park.",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Redact(tt.in))
		})
	}
}

func TestRedactAll(t *testing.T) {
	assert.Equal(t, []string{"[email redacted]", "fine"}, New().RedactAll([]string{"a@b.com", "fine"}))
}
