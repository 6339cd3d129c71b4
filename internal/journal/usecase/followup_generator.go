package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	authdomain "dabble-backend/internal/auth/domain"
	"dabble-backend/internal/journal/domain"
	"dabble-backend/internal/journal/repository"
	"dabble-backend/pkg/ai"
	"dabble-backend/pkg/cache"
	"dabble-backend/pkg/clock"
	"dabble-backend/pkg/logger"
	"dabble-backend/pkg/pii"
)

const (
	followUpMinWords     = 10
	followUpNeutralWords = 30
	followUpCacheTTL     = time.Hour
)

const followUpSystemPrompt = `You are a warm, curious journaling companion. The user just answered a journaling prompt, and the answer was short or ambiguous.

Write ONE follow-up question that:
- invites deeper reflection
- is specific to what they wrote, however brief
- sounds natural and conversational
- avoids generic requests such as "Tell me more" or "Can you elaborate?"
- never repeats email addresses or personal identifiers

Reply with the question text only. No JSON and no quotes.`

// FollowUpGenerator sends at most one follow-up question per replied prompt.
type FollowUpGenerator struct {
	promptRepo repository.PromptRepository
	emailRepo  repository.EmailMessageRepository
	mailer     *PromptMailer
	completer  ai.Completer
	cache      cache.Cache
	redactor   *pii.Redactor
	clock      clock.Clock
	log        *logger.Logger
}

func NewFollowUpGenerator(
	promptRepo repository.PromptRepository,
	emailRepo repository.EmailMessageRepository,
	mailer *PromptMailer,
	completer ai.Completer,
	c cache.Cache,
	redactor *pii.Redactor,
	clk clock.Clock,
	log *logger.Logger,
) *FollowUpGenerator {
	if redactor == nil {
		redactor = pii.New()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &FollowUpGenerator{
		promptRepo: promptRepo,
		emailRepo:  emailRepo,
		mailer:     mailer,
		completer:  completer,
		cache:      c,
		redactor:   redactor,
		clock:      clk,
		log:        log.With("service", "FollowUpGenerator"),
	}
}

// WorthFollowingUp reports whether the analysed entry reads as short or ambiguous.
func WorthFollowingUp(entry *domain.JournalEntry, analysis *domain.EntryAnalysis) bool {
	if analysis == nil {
		return false
	}
	words := domain.CountWords(entry.Body)
	if words < followUpMinWords {
		return true
	}
	if analysis.Sentiment == domain.SentimentNeutral && words < followUpNeutralWords {
		return true
	}
	summary := strings.ToLower(analysis.Summary)
	for _, phrase := range keywords.HedgingPhrases {
		if strings.Contains(summary, phrase) {
			return true
		}
	}
	return false
}

// MaybeSend creates, mails and logs a follow-up when the entry qualifies.
// It returns nil, nil when no follow-up is due.
func (g *FollowUpGenerator) MaybeSend(ctx context.Context, user *authdomain.User, entry *domain.JournalEntry, analysis *domain.EntryAnalysis) (*domain.Prompt, error) {
	if entry.PromptID == nil || !WorthFollowingUp(entry, analysis) {
		return nil, nil
	}
	parent, err := g.promptRepo.FindByID(*entry.PromptID)
	if err != nil {
		return nil, err
	}
	// Replies to a follow-up never get another one.
	if parent == nil || parent.FollowUpSentAt != nil || parent.Source == domain.PromptSourceAIFollowUp {
		return nil, nil
	}

	// Claim the parent before sending so concurrent workers cannot both follow up.
	now := g.clock.Now()
	claimed, err := g.promptRepo.MarkFollowUpSent(parent.ID, now)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, nil
	}

	question := g.question(ctx, entry, analysis, parent)
	followUp := &domain.Prompt{
		UserID:         user.ID,
		Question1:      question,
		Body:           question,
		Subject:        FollowUpEmailSubject,
		Status:         domain.PromptStatusDraft,
		PromptType:     domain.PromptTypeAdhoc,
		Source:         domain.PromptSourceAIFollowUp,
		ParentPromptID: &parent.ID,
	}
	if err := g.promptRepo.Create(followUp); err != nil {
		if relErr := g.promptRepo.ReleaseFollowUp(parent.ID); relErr != nil {
			g.log.Error("Releasing follow-up claim failed", "prompt_id", parent.ID, "error", relErr)
		}
		return nil, err
	}

	msg, err := g.mailer.Send(ctx, user, followUp)
	if err != nil {
		return followUp, err
	}

	sentAt := g.clock.Now()
	if err := g.promptRepo.AdvanceStatus(followUp.ID, domain.PromptStatusSent, sentAt); err != nil {
		return followUp, err
	}
	followUp.Status = domain.PromptStatusSent
	followUp.SentAt = &sentAt

	if err := g.emailRepo.Create(&domain.EmailMessage{
		UserID:           user.ID,
		Direction:        domain.DirectionOutbound,
		PromptID:         &followUp.ID,
		JournalEntryID:   &entry.ID,
		ToAddress:        msg.To,
		Subject:          msg.Subject,
		Body:             msg.Text,
		SentOrReceivedAt: sentAt,
	}); err != nil {
		g.log.Error("Logging follow-up email failed", "prompt_id", followUp.ID, "error", err)
	}

	g.log.Info("Follow-up sent", "user_id", user.ID, "prompt_id", followUp.ID, "parent_prompt_id", parent.ID)
	return followUp, nil
}

func (g *FollowUpGenerator) question(ctx context.Context, entry *domain.JournalEntry, analysis *domain.EntryAnalysis, parent *domain.Prompt) string {
	if g.completer == nil {
		return fallbackFollowUp(analysis, parent)
	}

	redactedBody := g.redactor.Redact(entry.Text())
	key := cache.Key("follow_up", entry.ID, redactedBody)
	if g.cache != nil {
		var cached string
		if ok, err := g.cache.Get(ctx, key, &cached); err != nil {
			g.log.Warn("Follow-up cache read failed", "error", err)
		} else if ok && cached != "" {
			return cached
		}
	}

	original := parent.Question1
	if original == "" {
		original = parent.Body
	}
	user := fmt.Sprintf("Original prompt: %s\n\nUser's reply: %s\n\nAnalysis: %s\nSentiment: %s\n\nWrite one thoughtful follow-up question.",
		g.redactor.Redact(original), redactedBody, g.redactor.Redact(analysis.Summary), analysis.Sentiment)

	text, err := g.completer.Complete(ctx, followUpSystemPrompt, user, ai.Options{Temperature: 0.7, MaxTokens: 100})
	if err != nil {
		g.log.Warn("Follow-up provider failed, using fallback", "entry_id", entry.ID, "reason", fallbackReason(err), "error", err)
		return fallbackFollowUp(analysis, parent)
	}
	question := trimQuotes(text)
	if question == "" {
		question = fallbackFollowUp(analysis, parent)
	}
	if g.cache != nil {
		if err := g.cache.Set(ctx, key, question, followUpCacheTTL); err != nil {
			g.log.Warn("Follow-up cache write failed", "error", err)
		}
	}
	return question
}

func fallbackFollowUp(analysis *domain.EntryAnalysis, parent *domain.Prompt) string {
	if analysis != nil && len(analysis.Tags) > 0 {
		return fmt.Sprintf("What else comes to mind when you think about %s?", analysis.Tags[0])
	}
	if parent != nil && parent.Question1 != "" {
		return "What else would you like to explore about that?"
	}
	return "What's one thing you'd like to reflect on a bit more?"
}
