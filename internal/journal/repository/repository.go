package repository

import (
	"errors"
	"strings"
	"time"

	"dabble-backend/internal/journal/domain"

	"gorm.io/gorm"
)

// PromptRepository defines data access for prompts
type PromptRepository interface {
	// Create inserts a prompt; a repeated (user, idempotency key) yields domain.ErrDuplicatePrompt.
	Create(prompt *domain.Prompt) error
	FindByID(id string) (*domain.Prompt, error)
	FindByIdempotencyKey(userID, key string) (*domain.Prompt, error)
	// FindLatestSent returns the user's most recently sent prompt.
	FindLatestSent(userID string) (*domain.Prompt, error)
	FindByUserID(userID string, limit, offset int) ([]*domain.Prompt, int64, error)
	// AdvanceStatus moves the prompt forward and stamps the matching timestamp.
	AdvanceStatus(id string, status domain.PromptStatus, at time.Time) error
	// MarkFollowUpSent stamps follow_up_sent_at once; it reports false if already stamped.
	MarkFollowUpSent(id string, at time.Time) (bool, error)
	// ReleaseFollowUp clears follow_up_sent_at after a claim that produced no follow-up.
	ReleaseFollowUp(id string) error
}

// EntryRepository defines data access for journal entries
type EntryRepository interface {
	// Create inserts an entry; a repeated message hash yields domain.ErrDuplicateEntry.
	Create(entry *domain.JournalEntry) error
	FindByID(id string) (*domain.JournalEntry, error)
	FindByUserID(userID string, limit, offset int) ([]*domain.JournalEntry, int64, error)
	// FindRecent returns entries received at or after since, oldest first, with analyses.
	FindRecent(userID string, since time.Time, limit int) ([]*domain.JournalEntry, error)
	// ReceivedTimes returns received_at of entries at or after since, newest first.
	ReceivedTimes(userID string, since time.Time) ([]time.Time, error)
}

// AnalysisRepository defines data access for entry analyses and topics
type AnalysisRepository interface {
	FindByEntryID(entryID string) (*domain.EntryAnalysis, error)
	// Create stores the analysis; if one already exists for the entry it is returned instead.
	Create(analysis *domain.EntryAnalysis) (*domain.EntryAnalysis, error)
	// LinkTopics finds or creates each normalized topic and links it to the entry.
	LinkTopics(userID, entryID string, names []string) ([]*domain.Topic, error)
	// RecentTags returns the tags of analyses for entries received at or after since.
	RecentTags(userID string, since time.Time) ([][]string, error)
	TopicsForEntry(entryID string) ([]*domain.Topic, error)
}

// EmailMessageRepository is append-only.
type EmailMessageRepository interface {
	Create(msg *domain.EmailMessage) error
	FindByPromptID(promptID string) ([]*domain.EmailMessage, error)
	FindByUserID(userID string, limit int) ([]*domain.EmailMessage, error)
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
