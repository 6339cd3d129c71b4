package dto

import "dabble-backend/internal/journal/domain"

type CreateEntryRequest struct {
	Body string `json:"body" binding:"required"`
}

type EntryResponse struct {
	*domain.JournalEntry
	Topics []string `json:"topics"`
}

type EntryListResponse struct {
	Entries []*domain.JournalEntry `json:"entries"`
	Total   int64                  `json:"total"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
}

type PromptListResponse struct {
	Prompts []*domain.Prompt `json:"prompts"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}
