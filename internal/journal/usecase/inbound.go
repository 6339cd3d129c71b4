package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"

	authrepo "dabble-backend/internal/auth/repository"
	"dabble-backend/internal/journal/domain"
	"dabble-backend/internal/journal/repository"
	"dabble-backend/pkg/clock"
	"dabble-backend/pkg/logger"
	"dabble-backend/pkg/mailtext"
	"dabble-backend/pkg/replytoken"
)

const (
	BounceUnparseable    = "unparseable message"
	BounceInvalidToken   = "invalid or expired reply token"
	BounceUserNotFound   = "user not found"
	BouncePromptNotFound = "prompt not found"
	BounceEmptyReply     = "empty reply"
)

// BounceError rejects an inbound message for good; retrying cannot help.
type BounceError struct {
	Reason string
	From   string
}

func (e *BounceError) Error() string {
	return "inbound mail rejected: " + e.Reason
}

func (e *BounceError) Permanent() bool { return true }

// AnalysisQueue accepts entries for background analysis.
type AnalysisQueue interface {
	QueueJob(job AnalysisJob) bool
}

// InboundProcessor turns replies to prompt emails into journal entries.
type InboundProcessor struct {
	signer     *replytoken.Signer
	userRepo   authrepo.UserRepository
	promptRepo repository.PromptRepository
	entryRepo  repository.EntryRepository
	emailRepo  repository.EmailMessageRepository
	streak     *StreakUpdater
	queue      AnalysisQueue
	clock      clock.Clock
	log        *logger.Logger
}

func NewInboundProcessor(
	signer *replytoken.Signer,
	userRepo authrepo.UserRepository,
	promptRepo repository.PromptRepository,
	entryRepo repository.EntryRepository,
	emailRepo repository.EmailMessageRepository,
	streak *StreakUpdater,
	queue AnalysisQueue,
	clk clock.Clock,
	log *logger.Logger,
) *InboundProcessor {
	if clk == nil {
		clk = clock.Real{}
	}
	return &InboundProcessor{
		signer:     signer,
		userRepo:   userRepo,
		promptRepo: promptRepo,
		entryRepo:  entryRepo,
		emailRepo:  emailRepo,
		streak:     streak,
		queue:      queue,
		clock:      clk,
		log:        log.With("service", "InboundProcessor"),
	}
}

// Handle is Process for transports that only need an error: a redelivered
// message counts as handled.
func (p *InboundProcessor) Handle(ctx context.Context, raw io.Reader) error {
	_, err := p.Process(ctx, raw)
	if errors.Is(err, domain.ErrDuplicateEntry) {
		return nil
	}
	return err
}

// Process parses a raw reply, verifies its token and stores the entry.
func (p *InboundProcessor) Process(ctx context.Context, raw io.Reader) (*domain.JournalEntry, error) {
	msg, err := mailtext.Parse(raw)
	if err != nil {
		return nil, &BounceError{Reason: BounceUnparseable}
	}

	token, ok := replyToken(msg)
	if !ok {
		return nil, p.bounce(BounceInvalidToken, msg)
	}
	userID, promptID, err := p.signer.Verify(token)
	if err != nil {
		return nil, p.bounce(BounceInvalidToken, msg)
	}

	user, err := p.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, p.bounce(BounceUserNotFound, msg)
	}
	prompt, err := p.promptRepo.FindByID(promptID)
	if err != nil {
		return nil, err
	}
	if prompt == nil || prompt.UserID != user.ID {
		return nil, p.bounce(BouncePromptNotFound, msg)
	}

	body := strings.TrimSpace(msg.Body())
	cleaned := strings.TrimSpace(mailtext.Sanitize(body))
	if cleaned == "" {
		return nil, p.bounce(BounceEmptyReply, msg)
	}

	receivedAt := msg.Date
	if receivedAt.IsZero() {
		receivedAt = p.clock.Now()
	}
	entry := &domain.JournalEntry{
		UserID:      user.ID,
		PromptID:    &prompt.ID,
		Body:        body,
		CleanedBody: cleaned,
		Source:      domain.EntrySourceEmail,
		ReceivedAt:  receivedAt,
	}
	if msg.MessageID != "" {
		sum := sha256.Sum256([]byte(strings.ToLower(msg.MessageID)))
		hash := hex.EncodeToString(sum[:])
		entry.MessageIDHash = &hash
	}
	if err := p.entryRepo.Create(entry); err != nil {
		if errors.Is(err, domain.ErrDuplicateEntry) {
			p.log.Info("Duplicate inbound message ignored", "message_id", msg.MessageID)
		}
		return nil, err
	}

	if prompt.Status != domain.PromptStatusReplied {
		if err := p.promptRepo.AdvanceStatus(prompt.ID, domain.PromptStatusReplied, receivedAt); err != nil {
			p.log.Warn("Marking prompt replied failed", "prompt_id", prompt.ID, "error", err)
		}
	}

	if err := p.emailRepo.Create(&domain.EmailMessage{
		UserID:           user.ID,
		Direction:        domain.DirectionInbound,
		PromptID:         &prompt.ID,
		JournalEntryID:   &entry.ID,
		FromAddress:      msg.From,
		ToAddress:        firstAddress(msg.To),
		Subject:          msg.Subject,
		Body:             body,
		MessageID:        msg.MessageID,
		SentOrReceivedAt: receivedAt,
	}); err != nil {
		p.log.Error("Logging inbound email failed", "entry_id", entry.ID, "error", err)
	}

	if p.streak != nil {
		if _, err := p.streak.Update(user); err != nil {
			p.log.Warn("Streak update failed", "user_id", user.ID, "error", err)
		}
	}
	if p.queue != nil && !p.queue.QueueJob(AnalysisJob{UserID: user.ID, EntryID: entry.ID}) {
		p.log.Warn("Analysis queue full, entry left unanalysed", "entry_id", entry.ID)
	}

	p.log.Info("Journal entry received", "user_id", user.ID, "entry_id", entry.ID, "words", entry.WordCount)
	return entry, nil
}

func (p *InboundProcessor) bounce(reason string, msg *mailtext.Message) error {
	p.log.Warn("Bouncing inbound mail", "reason", reason, "subject", msg.Subject)
	return &BounceError{Reason: reason, From: msg.From}
}

func replyToken(msg *mailtext.Message) (string, bool) {
	for _, addr := range msg.Recipients() {
		if token, ok := replytoken.TokenFromAddress(addr); ok {
			return token, true
		}
	}
	return "", false
}

func firstAddress(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}
