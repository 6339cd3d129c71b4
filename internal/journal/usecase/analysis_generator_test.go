package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"dabble-backend/internal/journal/domain"
	"dabble-backend/internal/testutil"
	"dabble-backend/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisGeneratorFallbackIsIdempotent(t *testing.T) {
	env := newEnv(t, nil)
	user := env.dueUser(t)
	entry := testutil.SeedEntry(t, env.db, user.ID, "I felt really happy and grateful after a great day at work with my team.")

	first, err := env.analysis.Generate(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisSourceFallback, first.Source)
	assert.Equal(t, domain.SentimentPositive, first.Sentiment)
	assert.Equal(t, "joy", first.Emotion)
	assert.Contains(t, first.Tags, "work")
	assert.GreaterOrEqual(t, len(first.Tags), 3)
	assert.LessOrEqual(t, len(first.Tags), 6)
	assert.NotEmpty(t, first.Summary)

	second, err := env.analysis.Generate(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	topics, err := env.analysisRepo.TopicsForEntry(entry.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, topics)
}

func TestAnalysisGeneratorUsesProvider(t *testing.T) {
	completer := &fakeCompleter{json: map[string]any{
		"summary":   "The writer had a tense week at the office. Deadlines piled up.",
		"sentiment": "NEGATIVE",
		"emotion":   "Anxiety",
		"tags":      []any{"work", "deadlines"},
	}}
	env := newEnv(t, completer)
	user := env.dueUser(t)
	entry := testutil.SeedEntry(t, env.db, user.ID, "Another week of late nights before the launch. I keep worrying about it.")

	analysis, err := env.analysis.Generate(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisSourceAI, analysis.Source)
	assert.Equal(t, domain.SentimentNegative, analysis.Sentiment)
	assert.Equal(t, "anxiety", analysis.Emotion)
	assert.Equal(t, []string{"work", "deadlines"}, analysis.Tags[:2])
	assert.Len(t, analysis.Tags, 3)

	_, err = env.analysis.Generate(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, 1, completer.calls)
}

func TestAnalysisGeneratorCollapsesCaseVariantTags(t *testing.T) {
	env := newEnv(t, &fakeCompleter{json: map[string]any{
		"summary":   "A quiet day. Nothing much happened.",
		"sentiment": "neutral",
		"emotion":   "calm",
		"tags":      []any{"Work", "work ", "WORK"},
	}})
	user := env.dueUser(t)
	entry := testutil.SeedEntry(t, env.db, user.ID, "Quiet day.")

	analysis, err := env.analysis.Generate(context.Background(), entry)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(analysis.Tags), 3)
	assert.Equal(t, "work", analysis.Tags[0])
	seen := map[string]bool{}
	for _, tag := range analysis.Tags {
		assert.Equal(t, domain.NormalizeTopic(tag), tag)
		assert.False(t, seen[tag], "duplicate tag %q", tag)
		seen[tag] = true
	}

	topics, err := env.analysisRepo.TopicsForEntry(entry.ID)
	require.NoError(t, err)
	assert.Len(t, topics, len(analysis.Tags))
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"work", "family"}, normalizeTags([]string{"Work", " work ", "FAMILY", "", "family"}))
}

func TestAnalysisGeneratorFallsBackOnProviderError(t *testing.T) {
	env := newEnv(t, &fakeCompleter{err: errors.New("provider down")})
	user := env.dueUser(t)
	entry := testutil.SeedEntry(t, env.db, user.ID, "Quiet day.")

	analysis, err := env.analysis.Generate(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisSourceFallback, analysis.Source)
	assert.Equal(t, domain.SentimentNeutral, analysis.Sentiment)
}

func TestEnsureSummaryLength(t *testing.T) {
	assert.Equal(t, emptySummaryDefault, ensureSummaryLength(""))
	assert.Equal(t, "Short one. "+defaultSummaryTail, ensureSummaryLength("Short one."))
	assert.Equal(t, "One. Two. Three.", ensureSummaryLength("One. Two. Three. Four. Five."))
}

func TestFallbackReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&ai.Error{Kind: ai.KindConfig, Msg: "no key"}, "config_error"},
		{fmt.Errorf("generate: %w", &ai.Error{Kind: ai.KindTimeout, Msg: "slow"}), "timeout"},
		{&ai.Error{Kind: ai.KindAPI, Msg: "500"}, "api_error"},
		{&ai.Error{Kind: ai.KindInvalidResponse, Msg: "not json"}, "invalid_response"},
		{errors.New("provider down"), "unknown"},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fallbackReason(tt.err))
	}
}
