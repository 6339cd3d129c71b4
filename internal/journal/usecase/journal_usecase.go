package usecase

import (
	"context"
	"errors"
	"strings"

	authrepo "dabble-backend/internal/auth/repository"
	"dabble-backend/internal/journal/domain"
	"dabble-backend/internal/journal/dto"
	"dabble-backend/internal/journal/repository"
	"dabble-backend/pkg/clock"
	"dabble-backend/pkg/logger"
	"dabble-backend/pkg/mailtext"
)

var ErrUserNotFound = errors.New("user not found")

type journalUsecase struct {
	userRepo     authrepo.UserRepository
	promptRepo   repository.PromptRepository
	entryRepo    repository.EntryRepository
	analysisRepo repository.AnalysisRepository
	sender       *PromptSender
	streak       *StreakUpdater
	queue        AnalysisQueue
	clock        clock.Clock
	log          *logger.Logger
}

func NewJournalUsecase(
	userRepo authrepo.UserRepository,
	promptRepo repository.PromptRepository,
	entryRepo repository.EntryRepository,
	analysisRepo repository.AnalysisRepository,
	sender *PromptSender,
	streak *StreakUpdater,
	queue AnalysisQueue,
	clk clock.Clock,
	log *logger.Logger,
) JournalUsecase {
	if clk == nil {
		clk = clock.Real{}
	}
	return &journalUsecase{
		userRepo:     userRepo,
		promptRepo:   promptRepo,
		entryRepo:    entryRepo,
		analysisRepo: analysisRepo,
		sender:       sender,
		streak:       streak,
		queue:        queue,
		clock:        clk,
		log:          log.With("service", "JournalUsecase"),
	}
}

func (u *journalUsecase) CreateEntry(userID, body string) (*domain.JournalEntry, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	body = strings.TrimSpace(body)
	cleaned := body
	if mailtext.IsHTML(body) {
		cleaned = strings.TrimSpace(mailtext.StripHTML(body))
	}
	if cleaned == "" {
		return nil, domain.ErrEmptyEntry
	}

	entry := &domain.JournalEntry{
		UserID:      userID,
		Body:        body,
		CleanedBody: cleaned,
		Source:      domain.EntrySourceWeb,
		ReceivedAt:  u.clock.Now(),
	}
	if err := u.entryRepo.Create(entry); err != nil {
		return nil, err
	}

	if u.streak != nil {
		if _, err := u.streak.Update(user); err != nil {
			u.log.Warn("Streak update failed", "user_id", userID, "error", err)
		}
	}
	if u.queue != nil && !u.queue.QueueJob(AnalysisJob{UserID: userID, EntryID: entry.ID}) {
		u.log.Warn("Analysis queue full, entry left unanalysed", "entry_id", entry.ID)
	}
	return entry, nil
}

func (u *journalUsecase) GetEntry(userID, id string) (*dto.EntryResponse, error) {
	entry, err := u.entryRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.UserID != userID {
		return nil, domain.ErrEntryNotFound
	}

	topics, err := u.analysisRepo.TopicsForEntry(entry.ID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(topics))
	for _, t := range topics {
		names = append(names, t.Name)
	}
	return &dto.EntryResponse{JournalEntry: entry, Topics: names}, nil
}

func (u *journalUsecase) ListEntries(userID string, limit, offset int) (*dto.EntryListResponse, error) {
	limit, offset = page(limit, offset)
	entries, total, err := u.entryRepo.FindByUserID(userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &dto.EntryListResponse{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}

func (u *journalUsecase) ListPrompts(userID string, limit, offset int) (*dto.PromptListResponse, error) {
	limit, offset = page(limit, offset)
	prompts, total, err := u.promptRepo.FindByUserID(userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &dto.PromptListResponse{Prompts: prompts, Total: total, Limit: limit, Offset: offset}, nil
}

func (u *journalUsecase) SendNow(ctx context.Context, userID string) (*domain.Prompt, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return u.sender.Send(ctx, user)
}

func page(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
