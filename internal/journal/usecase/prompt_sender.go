package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	authdomain "dabble-backend/internal/auth/domain"
	authrepo "dabble-backend/internal/auth/repository"
	"dabble-backend/internal/journal/domain"
	"dabble-backend/internal/journal/repository"
	scheduleUsecase "dabble-backend/internal/schedule/usecase"
	"dabble-backend/pkg/clock"
	"dabble-backend/pkg/logger"
	"dabble-backend/pkg/mailer"
)

// PromptSender runs generate, mail, record and reschedule for one user.
type PromptSender struct {
	generator  *PromptGenerator
	mailer     *PromptMailer
	promptRepo repository.PromptRepository
	emailRepo  repository.EmailMessageRepository
	userRepo   authrepo.UserRepository
	schedule   scheduleUsecase.ScheduleUsecase
	clock      clock.Clock
	log        *logger.Logger
}

func NewPromptSender(
	generator *PromptGenerator,
	promptMailer *PromptMailer,
	promptRepo repository.PromptRepository,
	emailRepo repository.EmailMessageRepository,
	userRepo authrepo.UserRepository,
	schedule scheduleUsecase.ScheduleUsecase,
	clk clock.Clock,
	log *logger.Logger,
) *PromptSender {
	if clk == nil {
		clk = clock.Real{}
	}
	return &PromptSender{
		generator:  generator,
		mailer:     promptMailer,
		promptRepo: promptRepo,
		emailRepo:  emailRepo,
		userRepo:   userRepo,
		schedule:   schedule,
		clock:      clk,
		log:        log.With("service", "PromptSender"),
	}
}

// Send delivers the prompt for the user's current window.
//
// Generation and storage errors are returned and leave the schedule alone.
// A mail failure is logged and returned as *mailer.DeliveryError, the prompt
// stays draft, and the schedule still advances so the user is not retried
// every sweep.
func (s *PromptSender) Send(ctx context.Context, user *authdomain.User) (*domain.Prompt, error) {
	scheduledAt := s.clock.Now()
	if user.NextDeliveryAt != nil {
		scheduledAt = *user.NextDeliveryAt
	}

	prompt, err := s.generator.Generate(ctx, user)
	if err != nil {
		return nil, err
	}

	msg, sendErr := s.mailer.Send(ctx, user, prompt)
	if sendErr != nil {
		var de *mailer.DeliveryError
		if !errors.As(sendErr, &de) {
			sendErr = &mailer.DeliveryError{Provider: "unknown", Err: sendErr}
		}
		s.log.Error("Prompt email failed", "user_id", user.ID, "prompt_id", prompt.ID, "error", sendErr)
	} else {
		s.recordSent(user, prompt, msg)
	}

	if _, err := s.schedule.Advance(user, scheduledAt); err != nil {
		s.log.Error("Advancing schedule failed", "user_id", user.ID, "error", err)
		if sendErr == nil {
			return prompt, fmt.Errorf("advance schedule: %w", err)
		}
	}
	return prompt, sendErr
}

func (s *PromptSender) recordSent(user *authdomain.User, prompt *domain.Prompt, msg mailer.Message) {
	sentAt := s.clock.Now()
	if err := s.promptRepo.AdvanceStatus(prompt.ID, domain.PromptStatusSent, sentAt); err != nil {
		s.log.Error("Marking prompt sent failed", "prompt_id", prompt.ID, "error", err)
	} else {
		prompt.Status = domain.PromptStatusSent
		prompt.SentAt = &sentAt
	}

	if err := s.userRepo.MarkDelivered(user.ID, sentAt); err != nil {
		s.log.Error("Stamping last delivery failed", "user_id", user.ID, "error", err)
	} else {
		user.LastDeliveryAt = &sentAt
	}

	if err := s.emailRepo.Create(&domain.EmailMessage{
		UserID:           user.ID,
		Direction:        domain.DirectionOutbound,
		PromptID:         &prompt.ID,
		ToAddress:        msg.To,
		Subject:          msg.Subject,
		Body:             msg.Text,
		SentOrReceivedAt: sentAt,
	}); err != nil {
		s.log.Error("Logging outbound email failed", "prompt_id", prompt.ID, "error", err)
	}

	s.log.Info("Prompt sent", "user_id", user.ID, "prompt_id", prompt.ID, "source", prompt.Source, "sent_at", sentAt.Format(time.RFC3339))
}
