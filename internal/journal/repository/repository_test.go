package repository

import (
	"testing"
	"time"

	"dabble-backend/internal/journal/domain"
	"dabble-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptCreateRejectsDuplicateKey(t *testing.T) {
	db := testutil.DB(t)
	repo := NewPromptRepository(db)
	user := testutil.SeedUser(t, db)

	key := "window-key"
	require.NoError(t, repo.Create(&domain.Prompt{UserID: user.ID, Question1: "a", IdempotencyKey: &key}))
	err := repo.Create(&domain.Prompt{UserID: user.ID, Question1: "b", IdempotencyKey: &key})
	assert.ErrorIs(t, err, domain.ErrDuplicatePrompt)

	// Prompts without a key, such as follow-ups, never collide.
	require.NoError(t, repo.Create(&domain.Prompt{UserID: user.ID, Question1: "c"}))
	require.NoError(t, repo.Create(&domain.Prompt{UserID: user.ID, Question1: "d"}))

	found, err := repo.FindByIdempotencyKey(user.ID, key)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "a", found.Question1)
}

func TestPromptAdvanceStatusIsMonotonic(t *testing.T) {
	db := testutil.DB(t)
	repo := NewPromptRepository(db)
	user := testutil.SeedUser(t, db)
	p := &domain.Prompt{UserID: user.ID, Question1: "q"}
	require.NoError(t, repo.Create(p))

	at := time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AdvanceStatus(p.ID, domain.PromptStatusSent, at))
	require.NoError(t, repo.AdvanceStatus(p.ID, domain.PromptStatusReplied, at.Add(time.Hour)))
	assert.ErrorIs(t, repo.AdvanceStatus(p.ID, domain.PromptStatusSent, at), domain.ErrInvalidStatus)
	assert.ErrorIs(t, repo.AdvanceStatus("missing", domain.PromptStatusSent, at), domain.ErrPromptNotFound)

	stored, err := repo.FindByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PromptStatusReplied, stored.Status)
	require.NotNil(t, stored.SentAt)
	assert.True(t, stored.SentAt.Equal(at))
	require.NotNil(t, stored.RepliedAt)
}

func TestMarkFollowUpSentOnce(t *testing.T) {
	db := testutil.DB(t)
	repo := NewPromptRepository(db)
	user := testutil.SeedUser(t, db)
	p := testutil.SeedPrompt(t, db, user.ID)

	ok, err := repo.MarkFollowUpSent(p.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkFollowUpSent(p.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.ReleaseFollowUp(p.ID))
	stored, err := repo.FindByID(p.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.FollowUpSentAt)

	ok, err = repo.MarkFollowUpSent(p.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFindLatestSent(t *testing.T) {
	db := testutil.DB(t)
	repo := NewPromptRepository(db)
	user := testutil.SeedUser(t, db)
	base := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	testutil.SeedPrompt(t, db, user.ID, func(p *domain.Prompt) { p.SentAt = testutil.Ptr(base) })
	newest := testutil.SeedPrompt(t, db, user.ID, func(p *domain.Prompt) { p.SentAt = testutil.Ptr(base.Add(48 * time.Hour)) })
	testutil.SeedPrompt(t, db, user.ID, func(p *domain.Prompt) {
		p.Status = domain.PromptStatusDraft
		p.SentAt = nil
	})

	got, err := repo.FindLatestSent(user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newest.ID, got.ID)

	none, err := repo.FindLatestSent("someone-else")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestEntryCreateDedupesMessageID(t *testing.T) {
	db := testutil.DB(t)
	repo := NewEntryRepository(db)
	user := testutil.SeedUser(t, db)

	hash := "abc123"
	first := &domain.JournalEntry{UserID: user.ID, Body: "one two three", Source: domain.EntrySourceEmail, MessageIDHash: &hash}
	require.NoError(t, repo.Create(first))
	assert.Equal(t, 3, first.WordCount)

	err := repo.Create(&domain.JournalEntry{UserID: user.ID, Body: "again", Source: domain.EntrySourceEmail, MessageIDHash: &hash})
	assert.ErrorIs(t, err, domain.ErrDuplicateEntry)

	// Web entries carry no message id and never collide.
	require.NoError(t, repo.Create(&domain.JournalEntry{UserID: user.ID, Body: "web one", Source: domain.EntrySourceWeb}))
	require.NoError(t, repo.Create(&domain.JournalEntry{UserID: user.ID, Body: "web two", Source: domain.EntrySourceWeb}))
}

func TestEntryFindRecentIsChronological(t *testing.T) {
	db := testutil.DB(t)
	repo := NewEntryRepository(db)
	user := testutil.SeedUser(t, db)
	now := time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC)
	for _, daysAgo := range []int{1, 10, 3, 2} {
		testutil.SeedEntry(t, db, user.ID, "entry", func(e *domain.JournalEntry) {
			e.ReceivedAt = now.AddDate(0, 0, -daysAgo)
		})
	}

	recent, err := repo.FindRecent(user.ID, now.AddDate(0, 0, -7), 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.True(t, recent[0].ReceivedAt.Equal(now.AddDate(0, 0, -3)))
	assert.True(t, recent[2].ReceivedAt.Equal(now.AddDate(0, 0, -1)))

	times, err := repo.ReceivedTimes(user.ID, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, times, 4)
	assert.True(t, times[0].Equal(now.AddDate(0, 0, -1)))
}

func TestAnalysisCreateKeepsFirst(t *testing.T) {
	db := testutil.DB(t)
	repo := NewAnalysisRepository(db)
	user := testutil.SeedUser(t, db)
	entry := testutil.SeedEntry(t, db, user.ID, "entry")

	first, err := repo.Create(&domain.EntryAnalysis{JournalEntryID: entry.ID, UserID: user.ID, Summary: "first", Sentiment: domain.SentimentNeutral})
	require.NoError(t, err)
	second, err := repo.Create(&domain.EntryAnalysis{JournalEntryID: entry.ID, UserID: user.ID, Summary: "second", Sentiment: domain.SentimentPositive})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "first", second.Summary)
}

func TestLinkTopicsNormalizesAndDedupes(t *testing.T) {
	db := testutil.DB(t)
	repo := NewAnalysisRepository(db)
	user := testutil.SeedUser(t, db)
	entry := testutil.SeedEntry(t, db, user.ID, "entry")

	topics, err := repo.LinkTopics(user.ID, entry.ID, []string{"Work", " work ", "Family", ""})
	require.NoError(t, err)
	assert.Len(t, topics, 2)

	_, err = repo.LinkTopics(user.ID, entry.ID, []string{"work"})
	require.NoError(t, err)

	linked, err := repo.TopicsForEntry(entry.ID)
	require.NoError(t, err)
	require.Len(t, linked, 2)
	assert.Equal(t, "family", linked[0].Name)
	assert.Equal(t, "work", linked[1].Name)
}
