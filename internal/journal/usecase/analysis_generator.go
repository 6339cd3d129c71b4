package usecase

import (
	"context"
	"strings"
	"time"

	"dabble-backend/internal/journal/domain"
	"dabble-backend/internal/journal/repository"
	"dabble-backend/pkg/ai"
	"dabble-backend/pkg/cache"
	"dabble-backend/pkg/logger"
	"dabble-backend/pkg/pii"
)

const (
	minTags          = 3
	maxTags          = 6
	analysisCacheTTL = 24 * time.Hour

	defaultSummaryTail  = "This entry reflects on personal experiences."
	emptySummaryDefault = "This entry contains personal reflections. The user is processing their thoughts and experiences."
)

const analysisSystemPrompt = `You analyze private journal entries so the writer can notice patterns in their reflections.

Respond with a JSON object with exactly these keys:
- summary: two or three sentences describing the entry, with no personal identifiers
- sentiment: "positive", "neutral" or "negative"
- emotion: a single word for the main emotion, such as joy, anxiety, frustration, pride, sadness, anger, calm or excitement
- tags: 3 to 6 short, general topic labels

Never include names, email addresses or other identifying details. Respond with JSON only.`

type analysisResult struct {
	Summary   string   `json:"summary"`
	Sentiment string   `json:"sentiment"`
	Emotion   string   `json:"emotion"`
	Tags      []string `json:"tags"`
	Source    string   `json:"source"`
}

// AnalysisGenerator produces the one analysis an entry ever gets.
type AnalysisGenerator struct {
	analysisRepo repository.AnalysisRepository
	completer    ai.Completer
	cache        cache.Cache
	redactor     *pii.Redactor
	log          *logger.Logger
}

func NewAnalysisGenerator(analysisRepo repository.AnalysisRepository, completer ai.Completer, c cache.Cache, redactor *pii.Redactor, log *logger.Logger) *AnalysisGenerator {
	if redactor == nil {
		redactor = pii.New()
	}
	return &AnalysisGenerator{
		analysisRepo: analysisRepo,
		completer:    completer,
		cache:        c,
		redactor:     redactor,
		log:          log.With("service", "AnalysisGenerator"),
	}
}

// Generate returns the entry's existing analysis or creates it. Provider
// failures fall back to keyword analysis; only storage errors are returned.
func (g *AnalysisGenerator) Generate(ctx context.Context, entry *domain.JournalEntry) (*domain.EntryAnalysis, error) {
	existing, err := g.analysisRepo.FindByEntryID(entry.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	res := g.analyze(ctx, entry)
	saved, err := g.analysisRepo.Create(&domain.EntryAnalysis{
		JournalEntryID: entry.ID,
		UserID:         entry.UserID,
		Summary:        res.Summary,
		Sentiment:      res.Sentiment,
		Emotion:        res.Emotion,
		Tags:           res.Tags,
		KeyThemes:      firstN(res.Tags, 3),
		Source:         res.Source,
	})
	if err != nil {
		return nil, err
	}

	if _, err := g.analysisRepo.LinkTopics(entry.UserID, entry.ID, saved.Tags); err != nil {
		return nil, err
	}
	g.log.Info("Entry analysed", "entry_id", entry.ID, "source", saved.Source, "tags", len(saved.Tags))
	return saved, nil
}

func (g *AnalysisGenerator) analyze(ctx context.Context, entry *domain.JournalEntry) analysisResult {
	body := entry.Text()
	redacted := g.redactor.Redact(body)
	key := cache.Key("entry_analysis", entry.ID, redacted)

	if g.cache != nil {
		var cached analysisResult
		if ok, err := g.cache.Get(ctx, key, &cached); err != nil {
			g.log.Warn("Analysis cache read failed", "error", err)
		} else if ok {
			return cached
		}
	}

	if g.completer != nil {
		res, err := g.fromProvider(ctx, body, redacted)
		if err == nil {
			if g.cache != nil {
				if err := g.cache.Set(ctx, key, res, analysisCacheTTL); err != nil {
					g.log.Warn("Analysis cache write failed", "error", err)
				}
			}
			return res
		}
		g.log.Warn("Analysis provider failed, using fallback", "entry_id", entry.ID, "reason", fallbackReason(err), "error", err)
	}
	return fallbackAnalysis(body)
}

func (g *AnalysisGenerator) fromProvider(ctx context.Context, body, redacted string) (analysisResult, error) {
	user := "Here is a journal entry with personal details removed:\n\n" + redacted +
		"\n\nAnalyze it and respond with the JSON described."
	raw, err := g.completer.CompleteJSON(ctx, analysisSystemPrompt, user, ai.Options{Temperature: 0.3, MaxTokens: 400})
	if err != nil {
		return analysisResult{}, err
	}

	tags := stringList(raw["tags"])
	if len(tags) == 0 {
		tags = stringList(raw["topics"])
	}
	tags = firstN(normalizeTags(tags), maxTags)
	if len(tags) < minTags {
		tags = ensureMinTags(tags, redacted)
	}

	summary := stringField(raw, "summary")
	if summary == "" {
		summary = fallbackAnalysis(body).Summary
	}

	sentiment, ok := domain.ValidSentiment(stringField(raw, "sentiment"))
	if !ok {
		sentiment = domain.SentimentNeutral
	}
	emotion := strings.ToLower(stringField(raw, "emotion"))
	if emotion == "" {
		emotion = "neutral"
	}

	return analysisResult{
		Summary:   ensureSummaryLength(summary),
		Sentiment: sentiment,
		Emotion:   emotion,
		Tags:      tags,
		Source:    domain.AnalysisSourceAI,
	}, nil
}

// normalizeTags applies topic normalization and drops repeats, keeping first-seen order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = domain.NormalizeTopic(t)
		if t != "" && !containsString(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// ensureMinTags tops tags up from the keyword table, then from generic labels.
func ensureMinTags(tags []string, body string) []string {
	out := append([]string(nil), tags...)
	lower := strings.ToLower(body)
	for _, group := range keywords.FillTopics {
		if len(out) >= minTags {
			break
		}
		name := domain.NormalizeTopic(group.Name)
		if group.matches(lower) && !containsString(out, name) {
			out = append(out, name)
		}
	}
	for _, tag := range keywords.GenericTags {
		if len(out) >= minTags {
			break
		}
		tag = domain.NormalizeTopic(tag)
		if !containsString(out, tag) {
			out = append(out, tag)
		}
	}
	return firstN(out, maxTags)
}

// ensureSummaryLength forces a summary to two or three sentences.
func ensureSummaryLength(summary string) string {
	parts := sentences(summary)
	switch {
	case len(parts) > 3:
		return strings.Join(parts[:3], ". ") + "."
	case len(parts) == 1:
		first := parts[0]
		if len(first) > 100 {
			clauses := strings.FieldsFunc(first, func(r rune) bool { return r == ',' || r == ';' })
			if len(clauses) >= 2 {
				rest := make([]string, 0, len(clauses)-1)
				for _, c := range clauses[1:] {
					if c = strings.TrimSpace(c); c != "" {
						rest = append(rest, c)
					}
				}
				return strings.TrimSpace(clauses[0]) + ". " + strings.Join(rest, ", ") + "."
			}
		}
		return first + ". " + defaultSummaryTail
	case len(parts) == 0:
		return emptySummaryDefault
	}
	return strings.TrimSpace(summary)
}

// fallbackAnalysis is the deterministic keyword analysis used without a provider.
func fallbackAnalysis(body string) analysisResult {
	lower := strings.ToLower(body)

	sentiment := domain.SentimentNeutral
	pos := countContained(lower, keywords.PositiveWords)
	neg := countContained(lower, keywords.NegativeWords)
	switch {
	case pos > neg:
		sentiment = domain.SentimentPositive
	case neg > pos:
		sentiment = domain.SentimentNegative
	}

	emotion := "neutral"
	for _, group := range keywords.Emotions {
		if group.matches(lower) {
			emotion = group.Name
			break
		}
	}

	var topics []string
	for _, group := range keywords.DetectTopics {
		if group.matches(lower) {
			topics = append(topics, group.Name)
		}
	}
	topics = ensureMinTags(topics, body)

	var summary string
	parts := sentences(body)
	switch {
	case len(parts) >= 2:
		summary = strings.Join(firstN(parts, 3), ". ") + "."
	case len(parts) == 1:
		summary = truncate(parts[0], 100) + ". " + defaultSummaryTail
	default:
		summary = emptySummaryDefault
	}

	return analysisResult{
		Summary:   summary,
		Sentiment: sentiment,
		Emotion:   emotion,
		Tags:      firstN(topics, maxTags),
		Source:    domain.AnalysisSourceFallback,
	}
}
