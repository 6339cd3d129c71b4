package domain

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	EntrySourceEmail = "email"
	EntrySourceWeb   = "web"
)

type JournalEntry struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID        string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	PromptID      *string   `gorm:"type:varchar(36);index" json:"prompt_id,omitempty"`
	Body          string    `gorm:"type:text" json:"body"`
	CleanedBody   string    `gorm:"type:text" json:"cleaned_body"`
	WordCount     int       `json:"word_count"`
	Source        string    `gorm:"type:varchar(16)" json:"source"`
	ReceivedAt    time.Time `gorm:"index" json:"received_at"`
	MessageIDHash *string   `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Analysis *EntryAnalysis `gorm:"foreignKey:JournalEntryID" json:"analysis,omitempty"`
}

// BeforeSave recomputes WordCount from the text that will be analysed.
func (e *JournalEntry) BeforeSave(tx *gorm.DB) error {
	e.WordCount = CountWords(e.Text())
	return nil
}

// Text prefers the cleaned body.
func (e *JournalEntry) Text() string {
	if strings.TrimSpace(e.CleanedBody) != "" {
		return e.CleanedBody
	}
	return e.Body
}

func CountWords(s string) int {
	return len(strings.Fields(s))
}

const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

func ValidSentiment(s string) (string, bool) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return v, true
	}
	return "", false
}

const (
	AnalysisSourceAI       = "ai"
	AnalysisSourceFallback = "fallback"
)

type EntryAnalysis struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	JournalEntryID string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"journal_entry_id"`
	UserID         string    `gorm:"type:varchar(36);index" json:"user_id"`
	Summary        string    `gorm:"type:text" json:"summary"`
	Sentiment      string    `gorm:"type:varchar(16)" json:"sentiment"`
	Emotion        string    `gorm:"type:varchar(32)" json:"emotion"`
	Tags           []string  `gorm:"serializer:json;type:text" json:"tags"`
	KeyThemes      []string  `gorm:"serializer:json;type:text" json:"key_themes"`
	Source         string    `gorm:"type:varchar(16)" json:"source"`
	CreatedAt      time.Time `json:"created_at"`
}

type Topic struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_topics_user_name" json:"user_id"`
	Name      string    `gorm:"not null;uniqueIndex:idx_topics_user_name" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeTopic trims and lower-cases a tag.
func NormalizeTopic(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type EntryTopic struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	JournalEntryID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_entry_topics_pair" json:"journal_entry_id"`
	TopicID        string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_entry_topics_pair" json:"topic_id"`
	CreatedAt      time.Time `json:"created_at"`
}
