package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
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
	contextDays       = 7
	maxContextEntries = 10
	maxPromptWords    = 60
	contextBodyChars  = 200
	promptCacheTTL    = time.Hour
	defaultSubject    = "Your journal prompts"
	noEntriesContext  = "No prior entries. The user is just starting their journaling habit."
)

type promptQuestions struct {
	Question1 string `json:"question_1"`
	Question2 string `json:"question_2"`
	Subject   string `json:"subject"`
}

// PromptGenerator drafts the two questions of a scheduled prompt.
type PromptGenerator struct {
	promptRepo   repository.PromptRepository
	entryRepo    repository.EntryRepository
	analysisRepo repository.AnalysisRepository
	completer    ai.Completer
	cache        cache.Cache
	redactor     *pii.Redactor
	clock        clock.Clock
	log          *logger.Logger
}

func NewPromptGenerator(
	promptRepo repository.PromptRepository,
	entryRepo repository.EntryRepository,
	analysisRepo repository.AnalysisRepository,
	completer ai.Completer,
	c cache.Cache,
	redactor *pii.Redactor,
	clk clock.Clock,
	log *logger.Logger,
) *PromptGenerator {
	if redactor == nil {
		redactor = pii.New()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &PromptGenerator{
		promptRepo:   promptRepo,
		entryRepo:    entryRepo,
		analysisRepo: analysisRepo,
		completer:    completer,
		cache:        c,
		redactor:     redactor,
		clock:        clk,
		log:          log.With("service", "PromptGenerator"),
	}
}

// IdempotencyKey identifies the user's delivery window. The window starts at
// the scheduled instant truncated to the hour.
func IdempotencyKey(userID string, scheduledAt time.Time) string {
	window := scheduledAt.UTC().Truncate(time.Hour)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%d", userID, window.Unix())))
	return hex.EncodeToString(sum[:])
}

// Generate stores a draft prompt for the user's current delivery window.
// A second call in the same window returns domain.ErrDuplicatePrompt.
func (g *PromptGenerator) Generate(ctx context.Context, user *authdomain.User) (*domain.Prompt, error) {
	now := g.clock.Now()
	scheduledAt := now
	if user.NextDeliveryAt != nil {
		scheduledAt = *user.NextDeliveryAt
	}
	key := IdempotencyKey(user.ID, scheduledAt)

	existing, err := g.promptRepo.FindByIdempotencyKey(user.ID, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: prompt %s", domain.ErrDuplicatePrompt, existing.ID)
	}

	since := now.AddDate(0, 0, -contextDays)
	entries, err := g.entryRepo.FindRecent(user.ID, since, maxContextEntries)
	if err != nil {
		return nil, fmt.Errorf("load recent entries: %w", err)
	}
	last, err := g.promptRepo.FindLatestSent(user.ID)
	if err != nil {
		return nil, fmt.Errorf("load last prompt: %w", err)
	}

	questions, source := g.questions(ctx, user, entries, last, since)
	questions.Question1, questions.Question2 = enforceWordLimit(questions.Question1, questions.Question2)
	if questions.Subject == "" {
		questions.Subject = defaultSubject
	}

	promptType := domain.PromptTypeDaily
	if user.ScheduleFrequency == "weekly" {
		promptType = domain.PromptTypeWeekly
	}
	prompt := &domain.Prompt{
		UserID:         user.ID,
		Question1:      questions.Question1,
		Question2:      questions.Question2,
		Body:           questions.Question1 + "\n\n" + questions.Question2,
		Subject:        questions.Subject,
		Status:         domain.PromptStatusDraft,
		PromptType:     promptType,
		Source:         source,
		IdempotencyKey: &key,
	}
	if last != nil {
		prompt.ParentPromptID = &last.ID
	}
	if err := g.promptRepo.Create(prompt); err != nil {
		return nil, err
	}
	return prompt, nil
}

func (g *PromptGenerator) questions(ctx context.Context, user *authdomain.User, entries []*domain.JournalEntry, last *domain.Prompt, since time.Time) (promptQuestions, string) {
	contextText := g.buildContext(entries, user.Location())
	lastText := g.lastPromptText(last)
	key := cache.Key("prompt", user.ID, contextText, lastText, user.TonePreference)

	if g.cache != nil {
		var cached promptQuestions
		if ok, err := g.cache.Get(ctx, key, &cached); err != nil {
			g.log.Warn("Prompt cache read failed", "error", err)
		} else if ok {
			return cached, domain.PromptSourceAI
		}
	}

	if g.completer != nil {
		q, err := g.fromProvider(ctx, user.TonePreference, contextText, lastText)
		if err == nil {
			if g.cache != nil {
				if err := g.cache.Set(ctx, key, q, promptCacheTTL); err != nil {
					g.log.Warn("Prompt cache write failed", "error", err)
				}
			}
			return q, domain.PromptSourceAI
		}
		g.log.Warn("Prompt provider failed, using fallback", "user_id", user.ID, "reason", fallbackReason(err), "error", err)
	}

	var tagLists [][]string
	if len(entries) > 0 {
		var err error
		tagLists, err = g.analysisRepo.RecentTags(user.ID, since)
		if err != nil {
			g.log.Warn("Loading recent tags failed", "user_id", user.ID, "error", err)
		}
	}
	return fallbackQuestions(len(entries) > 0, topTags(tagLists, 2), last), domain.PromptSourceFallback
}

func (g *PromptGenerator) fromProvider(ctx context.Context, tone, contextText, lastText string) (promptQuestions, error) {
	user := "Recent journal context (last 7 days):\n\n" + contextText + "\n\n" + lastText
	raw, err := g.completer.CompleteJSON(ctx, promptSystemPrompt(tone), user, ai.Options{Temperature: 0.7, MaxTokens: 200})
	if err != nil {
		return promptQuestions{}, err
	}
	q := promptQuestions{
		Question1: stringField(raw, "question_1"),
		Question2: stringField(raw, "question_2"),
		Subject:   stringField(raw, "subject"),
	}
	if q.Question1 == "" || q.Question2 == "" {
		return promptQuestions{}, fmt.Errorf("provider returned incomplete questions")
	}
	return q, nil
}

// buildContext renders one block per entry, oldest first, all redacted.
func (g *PromptGenerator) buildContext(entries []*domain.JournalEntry, loc *time.Location) string {
	if len(entries) == 0 {
		return noEntriesContext
	}
	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		var summary string
		if e.Analysis != nil && strings.TrimSpace(e.Analysis.Summary) != "" {
			summary = g.redactor.Redact(e.Analysis.Summary)
		} else {
			summary = g.redactor.Redact(truncate(e.Text(), contextBodyChars))
		}
		block := e.ReceivedAt.In(loc).Format("Jan 2") + ": " + summary
		if e.Analysis != nil && len(e.Analysis.Tags) > 0 {
			block += "\nTopics: " + strings.Join(e.Analysis.Tags, ", ")
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n")
}

func (g *PromptGenerator) lastPromptText(last *domain.Prompt) string {
	switch {
	case last != nil && last.Question1 != "" && last.Question2 != "":
		qs := g.redactor.RedactAll([]string{last.Question1, last.Question2})
		return fmt.Sprintf("The last questions you asked were:\n%q\n%q\n\nWrite NEW questions that build on where that conversation has been going.",
			qs[0], qs[1])
	case last != nil && strings.TrimSpace(last.Body) != "":
		return fmt.Sprintf("The last question you asked was:\n%q\n\nWrite NEW questions that build on where that conversation has been going.",
			g.redactor.Redact(last.Body))
	}
	return "This is the user's first prompt. Ask two opening questions that help them start reflecting on what has been on their mind recently."
}

func promptSystemPrompt(tone string) string {
	toneLine := "Use a warm, conversational tone."
	switch tone {
	case "casual":
		toneLine = "Use a casual, friendly tone."
	case "formal":
		toneLine = "Use a more formal, professional tone."
	case "warm":
		toneLine = "Use a warm, empathetic tone."
	}
	return `You are a warm, curious journaling companion. The user keeps a private journal and you see short summaries of recent entries.

Write EXACTLY TWO short questions and return JSON with the keys question_1, question_2 and subject.
- Both questions together must stay within 60 words.
- Make them specific to the themes in the recent entries; gentle references to patterns are welcome.
- Avoid generic questions such as "How are you feeling?" or "Tell me more."
- ` + toneLine + `
- The questions should complement each other without overlapping.
- The subject is a short, friendly line of at most 10 words.
- Never repeat email addresses or other personal identifiers.
Return only the JSON object.`
}

// enforceWordLimit shrinks both questions proportionally (floor) to fit maxPromptWords.
// A non-empty question keeps at least one word; any overflow comes off the longer one.
func enforceWordLimit(q1, q2 string) (string, string) {
	w1 := strings.Fields(q1)
	w2 := strings.Fields(q2)
	total := len(w1) + len(w2)
	if total <= maxPromptWords {
		return q1, q2
	}
	ratio := float64(maxPromptWords) / float64(total)
	n1 := keepAtLeastOne(int(math.Floor(float64(len(w1))*ratio)), len(w1))
	n2 := keepAtLeastOne(int(math.Floor(float64(len(w2))*ratio)), len(w2))
	for n1+n2 > maxPromptWords {
		if n1 >= n2 {
			n1--
		} else {
			n2--
		}
	}
	return strings.Join(w1[:n1], " "), strings.Join(w2[:n2], " ")
}

func keepAtLeastOne(n, available int) int {
	if n < 1 && available > 0 {
		return 1
	}
	return n
}

// topTags orders tags by how often they appear, earlier lists winning ties.
func topTags(lists [][]string, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, tags := range lists {
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, ok := counts[t]; !ok {
				order = append(order, t)
			}
			counts[t]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	return firstN(order, n)
}

func fallbackQuestions(hasEntries bool, topics []string, last *domain.Prompt) promptQuestions {
	switch {
	case hasEntries && len(topics) > 0:
		second := topics[0]
		if len(topics) > 1 {
			second = topics[1]
		}
		return promptQuestions{
			Question1: fmt.Sprintf("What's been most significant about %s for you lately?", topics[0]),
			Question2: fmt.Sprintf("How has %s influenced your thoughts recently?", second),
			Subject:   defaultSubject,
		}
	case hasEntries:
		return promptQuestions{
			Question1: "What pattern do you notice in your recent reflections?",
			Question2: "What would you like to explore deeper?",
			Subject:   defaultSubject,
		}
	case last != nil && last.Question1 != "":
		return promptQuestions{
			Question1: "What still feels important from your last entry?",
			Question2: "What patterns are you noticing?",
			Subject:   defaultSubject,
		}
	}
	return promptQuestions{
		Question1: "What has been on your mind the most this week?",
		Question2: "What moment stands out to you, and why?",
		Subject:   defaultSubject,
	}
}
