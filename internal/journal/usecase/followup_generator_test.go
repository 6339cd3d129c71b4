package usecase

import (
	"context"
	"errors"
	"testing"

	"dabble-backend/internal/journal/domain"
	"dabble-backend/internal/journal/repository"
	"dabble-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorthFollowingUp(t *testing.T) {
	long := words(40, "detail")
	tests := []struct {
		name      string
		body      string
		sentiment string
		summary   string
		want      bool
	}{
		{"short reply", "Fine I guess.", domain.SentimentPositive, "Brief.", true},
		{"neutral and brief", words(20, "ok"), domain.SentimentNeutral, "Brief.", true},
		{"long and clear", long, domain.SentimentPositive, "The writer is clear.", false},
		{"hedging summary", long, domain.SentimentPositive, "The reply was brief about the move.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &domain.JournalEntry{Body: tt.body}
			analysis := &domain.EntryAnalysis{Sentiment: tt.sentiment, Summary: tt.summary}
			assert.Equal(t, tt.want, WorthFollowingUp(entry, analysis))
		})
	}
	assert.False(t, WorthFollowingUp(&domain.JournalEntry{Body: "Hi"}, nil))
}

func TestFollowUpSentOncePerPrompt(t *testing.T) {
	env := newEnv(t, nil)
	user := env.dueUser(t)
	parent := testutil.SeedPrompt(t, env.db, user.ID)
	entry := testutil.SeedEntry(t, env.db, user.ID, "Fine I guess.", func(e *domain.JournalEntry) {
		e.PromptID = &parent.ID
		e.Source = domain.EntrySourceEmail
	})
	analysis := testutil.SeedAnalysis(t, env.db, entry, domain.SentimentNeutral, "work")

	followUp, err := env.followUps.MaybeSend(context.Background(), user, entry, analysis)
	require.NoError(t, err)
	require.NotNil(t, followUp)
	assert.Equal(t, domain.PromptSourceAIFollowUp, followUp.Source)
	assert.Equal(t, domain.PromptStatusSent, followUp.Status)
	assert.Equal(t, "What else comes to mind when you think about work?", followUp.Question1)
	require.NotNil(t, followUp.ParentPromptID)
	assert.Equal(t, parent.ID, *followUp.ParentPromptID)

	msgs := env.sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, FollowUpEmailSubject, msgs[0].Subject)

	stored, err := env.promptRepo.FindByID(parent.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.FollowUpSentAt)

	again, err := env.followUps.MaybeSend(context.Background(), user, entry, analysis)
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Len(t, env.sender.messages(), 1)
}

func TestFollowUpUsesProviderText(t *testing.T) {
	env := newEnv(t, &fakeCompleter{text: `"What made the afternoon feel different?"`})
	user := env.dueUser(t)
	parent := testutil.SeedPrompt(t, env.db, user.ID)
	entry := testutil.SeedEntry(t, env.db, user.ID, "It was okay.", func(e *domain.JournalEntry) {
		e.PromptID = &parent.ID
	})
	analysis := testutil.SeedAnalysis(t, env.db, entry, domain.SentimentNeutral, "work")

	followUp, err := env.followUps.MaybeSend(context.Background(), user, entry, analysis)
	require.NoError(t, err)
	require.NotNil(t, followUp)
	assert.Equal(t, "What made the afternoon feel different?", followUp.Question1)
}

func TestNoFollowUpForFollowUpReplies(t *testing.T) {
	env := newEnv(t, nil)
	user := env.dueUser(t)
	parent := testutil.SeedPrompt(t, env.db, user.ID, func(p *domain.Prompt) {
		p.Source = domain.PromptSourceAIFollowUp
		p.PromptType = domain.PromptTypeAdhoc
	})
	entry := testutil.SeedEntry(t, env.db, user.ID, "Not much.", func(e *domain.JournalEntry) {
		e.PromptID = &parent.ID
	})
	analysis := testutil.SeedAnalysis(t, env.db, entry, domain.SentimentNeutral)

	followUp, err := env.followUps.MaybeSend(context.Background(), user, entry, analysis)
	require.NoError(t, err)
	assert.Nil(t, followUp)
	assert.Empty(t, env.sender.messages())
}

func TestNoFollowUpForWebEntries(t *testing.T) {
	env := newEnv(t, nil)
	user := env.dueUser(t)
	entry := testutil.SeedEntry(t, env.db, user.ID, "Short.")
	analysis := testutil.SeedAnalysis(t, env.db, entry, domain.SentimentNeutral)

	followUp, err := env.followUps.MaybeSend(context.Background(), user, entry, analysis)
	require.NoError(t, err)
	assert.Nil(t, followUp)
}

type failingCreatePromptRepo struct {
	repository.PromptRepository
}

func (failingCreatePromptRepo) Create(*domain.Prompt) error {
	return errors.New("insert failed")
}

func TestFollowUpClaimReleasedWhenCreateFails(t *testing.T) {
	env := newEnv(t, nil)
	user := env.dueUser(t)
	parent := testutil.SeedPrompt(t, env.db, user.ID)
	entry := testutil.SeedEntry(t, env.db, user.ID, "Fine I guess.", func(e *domain.JournalEntry) {
		e.PromptID = &parent.ID
		e.Source = domain.EntrySourceEmail
	})
	analysis := testutil.SeedAnalysis(t, env.db, entry, domain.SentimentNeutral, "work")

	broken := NewFollowUpGenerator(failingCreatePromptRepo{env.promptRepo}, env.emailRepo, env.mailer, nil, nil, nil, env.clock, env.log)
	followUp, err := broken.MaybeSend(context.Background(), user, entry, analysis)
	require.Error(t, err)
	assert.Nil(t, followUp)
	assert.Empty(t, env.sender.messages())

	stored, err := env.promptRepo.FindByID(parent.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.FollowUpSentAt)

	followUp, err = env.followUps.MaybeSend(context.Background(), user, entry, analysis)
	require.NoError(t, err)
	require.NotNil(t, followUp)
	assert.Len(t, env.sender.messages(), 1)
}
