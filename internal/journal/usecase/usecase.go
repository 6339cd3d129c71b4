package usecase

import (
	"context"

	"dabble-backend/internal/journal/domain"
	"dabble-backend/internal/journal/dto"
)

// JournalUsecase backs the entry and prompt endpoints.
type JournalUsecase interface {
	// CreateEntry stores a web entry and queues its analysis.
	CreateEntry(userID, body string) (*domain.JournalEntry, error)
	GetEntry(userID, id string) (*dto.EntryResponse, error)
	ListEntries(userID string, limit, offset int) (*dto.EntryListResponse, error)
	ListPrompts(userID string, limit, offset int) (*dto.PromptListResponse, error)
	// SendNow delivers the user's next prompt immediately.
	SendNow(ctx context.Context, userID string) (*domain.Prompt, error)
}
