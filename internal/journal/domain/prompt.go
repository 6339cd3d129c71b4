package domain

import (
	"strings"
	"time"
)

type PromptStatus string

const (
	PromptStatusDraft   PromptStatus = "draft"
	PromptStatusSent    PromptStatus = "sent"
	PromptStatusReplied PromptStatus = "replied"
)

func (s PromptStatus) rank() int {
	switch s {
	case PromptStatusDraft:
		return 0
	case PromptStatusSent:
		return 1
	case PromptStatusReplied:
		return 2
	}
	return -1
}

// CanAdvanceTo reports whether moving from s to next keeps status monotonic.
func (s PromptStatus) CanAdvanceTo(next PromptStatus) bool {
	return next.rank() > s.rank() && s.rank() >= 0
}

const (
	PromptTypeDaily  = "daily"
	PromptTypeWeekly = "weekly"
	PromptTypeAdhoc  = "adhoc"
)

const (
	PromptSourceAI         = "ai"
	PromptSourceFallback   = "fallback"
	PromptSourceAIFollowUp = "ai_followup"
)

type Prompt struct {
	ID             string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID         string       `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_prompts_user_idempotency" json:"user_id"`
	Question1      string       `json:"question_1"`
	Question2      string       `json:"question_2,omitempty"`
	Body           string       `gorm:"type:text" json:"body"`
	Subject        string       `json:"subject"`
	Status         PromptStatus `gorm:"type:varchar(16);not null;default:'draft'" json:"status"`
	PromptType     string       `gorm:"type:varchar(16)" json:"prompt_type"`
	Source         string       `gorm:"type:varchar(16)" json:"source"`
	ParentPromptID *string      `gorm:"type:varchar(36);index" json:"parent_prompt_id,omitempty"`
	IdempotencyKey *string      `gorm:"type:varchar(64);uniqueIndex:idx_prompts_user_idempotency" json:"-"`
	SentAt         *time.Time   `json:"sent_at,omitempty"`
	RepliedAt      *time.Time   `json:"replied_at,omitempty"`
	FollowUpSentAt *time.Time   `json:"follow_up_sent_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Questions returns the non-empty questions in order.
func (p *Prompt) Questions() []string {
	out := make([]string, 0, 2)
	for _, q := range []string{p.Question1, p.Question2} {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}
