package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"brace inside string", `preamble {"a": "}"} trailing`, `{"a": "}"}`, true},
		{"escaped quote", `x {"a": "say \"}\" now"} y`, `{"a": "say \"}\" now"}`, true},
		{"nested", `{"a": {"b": 1}} {"c": 2}`, `{"a": {"b": 1}}`, true},
		{"fenced", "```json\n{\"q\": 1}\n```", `{"q": 1}`, true},
		{"unterminated", `{"a": 1`, "", false},
		{"no object", `just words`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseJSONObject(t *testing.T) {
	out, err := ParseJSONObject(`{"question_1": "a", "question_2": "b"}`)
	require.NoError(t, err)
	assert.Equal(t, "a", out["question_1"])

	out, err = ParseJSONObject("Sure! Here you go:\n{\"summary\": \"ok {fine}\"}\nThanks")
	require.NoError(t, err)
	assert.Equal(t, "ok {fine}", out["summary"])

	_, err = ParseJSONObject("no json here")
	assert.True(t, IsInvalidResponse(err))

	_, err = ParseJSONObject(`["not", "an", "object"]`)
	assert.True(t, IsInvalidResponse(err))

	_, err = ParseJSONObject("   ")
	assert.True(t, IsInvalidResponse(err))
}
