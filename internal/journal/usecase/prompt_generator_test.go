package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	authdomain "dabble-backend/internal/auth/domain"
	"dabble-backend/internal/journal/domain"
	"dabble-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int, w string) string {
	return strings.TrimSpace(strings.Repeat(w+" ", n))
}

func TestPromptGeneratorTruncatesLongQuestions(t *testing.T) {
	env := newEnv(t, &fakeCompleter{json: map[string]any{
		"question_1": words(45, "alpha"),
		"question_2": words(30, "beta"),
		"subject":    "Thinking about your week",
	}})
	user := env.dueUser(t)

	prompt, err := env.prompts.Generate(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, domain.PromptSourceAI, prompt.Source)
	assert.Equal(t, 36, domain.CountWords(prompt.Question1))
	assert.Equal(t, 24, domain.CountWords(prompt.Question2))
	assert.LessOrEqual(t, domain.CountWords(prompt.Question1)+domain.CountWords(prompt.Question2), maxPromptWords)
	assert.Equal(t, "Thinking about your week", prompt.Subject)
}

func TestPromptGeneratorFallbackWithoutHistory(t *testing.T) {
	env := newEnv(t, nil)
	user := env.dueUser(t)

	prompt, err := env.prompts.Generate(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, domain.PromptSourceFallback, prompt.Source)
	assert.Equal(t, domain.PromptStatusDraft, prompt.Status)
	assert.Equal(t, domain.PromptTypeDaily, prompt.PromptType)
	assert.Equal(t, "What has been on your mind the most this week?", prompt.Question1)
	assert.Equal(t, "What moment stands out to you, and why?", prompt.Question2)
	require.NotNil(t, prompt.IdempotencyKey)
	assert.Equal(t, IdempotencyKey(user.ID, testNow), *prompt.IdempotencyKey)
	assert.Nil(t, prompt.ParentPromptID)
}

func TestPromptGeneratorFallbackUsesRecentTopics(t *testing.T) {
	env := newEnv(t, nil)
	user := env.dueUser(t)
	last := testutil.SeedPrompt(t, env.db, user.ID)
	for i := 0; i < 2; i++ {
		entry := testutil.SeedEntry(t, env.db, user.ID, "A long day.", func(e *domain.JournalEntry) {
			e.ReceivedAt = testNow.Add(-time.Duration(i+1) * 24 * time.Hour)
		})
		testutil.SeedAnalysis(t, env.db, entry, domain.SentimentNeutral, "work", "sleep")
	}

	prompt, err := env.prompts.Generate(context.Background(), user)
	require.NoError(t, err)
	assert.Contains(t, prompt.Question1, "work")
	assert.Contains(t, prompt.Question2, "sleep")
	require.NotNil(t, prompt.ParentPromptID)
	assert.Equal(t, last.ID, *prompt.ParentPromptID)
}

func TestPromptGeneratorRejectsSecondPromptInWindow(t *testing.T) {
	env := newEnv(t, nil)
	user := env.dueUser(t)

	_, err := env.prompts.Generate(context.Background(), user)
	require.NoError(t, err)

	_, err = env.prompts.Generate(context.Background(), user)
	assert.ErrorIs(t, err, domain.ErrDuplicatePrompt)
}

func TestPromptGeneratorWeeklyType(t *testing.T) {
	env := newEnv(t, nil)
	user := testutil.SeedUser(t, env.db, func(u *authdomain.User) {
		u.ScheduleFrequency = "weekly"
	})

	prompt, err := env.prompts.Generate(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, domain.PromptTypeWeekly, prompt.PromptType)
}

func TestIdempotencyKeySharesHourWindow(t *testing.T) {
	a := IdempotencyKey("u1", time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC))
	b := IdempotencyKey("u1", time.Date(2025, 3, 12, 14, 59, 0, 0, time.UTC))
	c := IdempotencyKey("u1", time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC))
	d := IdempotencyKey("u2", time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Len(t, a, 64)
}

func TestEnforceWordLimit(t *testing.T) {
	q1, q2 := enforceWordLimit("short one", "short two")
	assert.Equal(t, "short one", q1)
	assert.Equal(t, "short two", q2)

	q1, q2 = enforceWordLimit(words(50, "a"), words(50, "b"))
	assert.Equal(t, 30, domain.CountWords(q1))
	assert.Equal(t, 30, domain.CountWords(q2))
}

func TestEnforceWordLimitKeepsShortQuestion(t *testing.T) {
	q1, q2 := enforceWordLimit("Why?", words(120, "b"))
	assert.Equal(t, "Why?", q1)
	assert.Equal(t, 59, domain.CountWords(q2))

	q1, q2 = enforceWordLimit(words(120, "a"), "Why?")
	assert.Equal(t, 59, domain.CountWords(q1))
	assert.Equal(t, "Why?", q2)
}

func TestPromptGeneratorKeepsBothQuestionsForLopsidedPair(t *testing.T) {
	env := newEnv(t, &fakeCompleter{json: map[string]any{
		"question_1": "Why?",
		"question_2": words(120, "beta"),
	}})
	user := env.dueUser(t)

	prompt, err := env.prompts.Generate(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, "Why?", prompt.Question1)
	assert.NotEmpty(t, prompt.Question2)
	assert.LessOrEqual(t, domain.CountWords(prompt.Question1)+domain.CountWords(prompt.Question2), maxPromptWords)
	assert.Len(t, prompt.Questions(), 2)
}

func TestTopTags(t *testing.T) {
	got := topTags([][]string{{"sleep", "work"}, {"work"}, {"family", "sleep", "work"}}, 2)
	assert.Equal(t, []string{"work", "sleep"}, got)
}
