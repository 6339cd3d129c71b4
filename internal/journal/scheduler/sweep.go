package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	authdomain "dabble-backend/internal/auth/domain"
	authrepo "dabble-backend/internal/auth/repository"
	"dabble-backend/internal/journal/domain"
	scheduledomain "dabble-backend/internal/schedule/domain"
	scheduleUsecase "dabble-backend/internal/schedule/usecase"
	"dabble-backend/pkg/clock"
	"dabble-backend/pkg/logger"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

// PromptDeliverer sends one user's scheduled prompt.
type PromptDeliverer interface {
	Send(ctx context.Context, user *authdomain.User) (*domain.Prompt, error)
}

type SweepConfig struct {
	Interval    time.Duration // ticker period when run in-process
	Slack       time.Duration // how early a delivery may go out
	Window      time.Duration // half-width of the idempotency window
	Concurrency int
}

// SweepResult counts per-user outcomes of one sweep.
type SweepResult struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Errored int `json:"errored"`
}

const lockStripes = 64

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeErrored
)

// PromptSweepScheduler periodically sends prompts to users whose delivery is due.
type PromptSweepScheduler struct {
	userRepo authrepo.UserRepository
	sender   PromptDeliverer
	schedule scheduleUsecase.ScheduleUsecase
	clock    clock.Clock
	cfg      SweepConfig
	log      *logger.Logger

	locks    [lockStripes]sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewPromptSweepScheduler(
	userRepo authrepo.UserRepository,
	sender PromptDeliverer,
	schedule scheduleUsecase.ScheduleUsecase,
	clk clock.Clock,
	cfg SweepConfig,
	log *logger.Logger,
) *PromptSweepScheduler {
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Slack < 0 {
		cfg.Slack = 0
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &PromptSweepScheduler{
		userRepo: userRepo,
		sender:   sender,
		schedule: schedule,
		clock:    clk,
		cfg:      cfg,
		log:      log.With("service", "PromptSweep"),
		stopChan: make(chan struct{}),
	}
}

// Start runs a sweep immediately and then on every tick until Stop.
func (s *PromptSweepScheduler) Start() {
	s.log.Info("Starting prompt sweep scheduler", "interval", s.cfg.Interval.String())

	go func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			<-s.stopChan
			cancel()
		}()

		s.run(ctx)

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.run(ctx)
			case <-s.stopChan:
				s.log.Info("Prompt sweep scheduler stopped")
				return
			}
		}
	}()
}

func (s *PromptSweepScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *PromptSweepScheduler) run(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Error("Sweep failed", "error", err)
	}
}

// RunOnce performs a single sweep. Per-user failures, panics included, are
// counted in the result and never abort the sweep.
func (s *PromptSweepScheduler) RunOnce(ctx context.Context) (SweepResult, error) {
	started := s.clock.Now()
	users, err := s.userRepo.FindDueForDelivery(started.Add(s.cfg.Slack))
	if err != nil {
		return SweepResult{}, fmt.Errorf("find due users: %w", err)
	}

	var sent, skipped, errored int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i := range users {
		user := users[i]
		g.Go(func() error {
			switch s.processUser(gctx, user.ID) {
			case outcomeSent:
				atomic.AddInt64(&sent, 1)
			case outcomeSkipped:
				atomic.AddInt64(&skipped, 1)
			default:
				atomic.AddInt64(&errored, 1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := SweepResult{Sent: int(sent), Skipped: int(skipped), Errored: int(errored)}
	s.log.Info("Sweep completed",
		"due", len(users),
		"sent", result.Sent,
		"skipped", result.Skipped,
		"errored", result.Errored,
		"duration", time.Since(started).String(),
	)
	return result, nil
}

func (s *PromptSweepScheduler) processUser(ctx context.Context, userID string) (out outcome) {
	log := s.log.With("user_id", userID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while sending prompt", "panic", fmt.Sprint(r))
			out = outcomeErrored
		}
	}()

	if ctx.Err() != nil {
		return outcomeSkipped
	}

	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the lock; another worker or sweep may have sent already.
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		log.Error("Loading user failed", "error", err)
		return outcomeErrored
	}
	now := s.clock.Now()
	if user == nil || !s.isDue(user, now) {
		return outcomeSkipped
	}

	if user.LastDeliveryAt != nil && scheduledomain.InWindow(*user.LastDeliveryAt, *user.NextDeliveryAt, s.cfg.Window) {
		log.Info("Already delivered in this window, skipping",
			"next_delivery_at", user.NextDeliveryAt.In(user.Location()).Format(time.RFC3339),
			"last_delivery_at", user.LastDeliveryAt.In(user.Location()).Format(time.RFC3339))
		s.advanceIfPast(user, now, log)
		return outcomeSkipped
	}

	prompt, err := s.sender.Send(ctx, user)
	switch {
	case err == nil:
		log.Info("Prompt delivered", "prompt_id", prompt.ID)
		return outcomeSent
	case errors.Is(err, domain.ErrDuplicatePrompt):
		log.Info("Prompt already exists for this window, skipping")
		s.advanceIfPast(user, now, log)
		return outcomeSkipped
	default:
		log.Error("Sending prompt failed", "error", err)
		return outcomeErrored
	}
}

func (s *PromptSweepScheduler) isDue(user *authdomain.User, now time.Time) bool {
	return user.OnboardingComplete &&
		!user.SchedulePaused &&
		user.NextDeliveryAt != nil &&
		!user.NextDeliveryAt.After(now.Add(s.cfg.Slack))
}

// advanceIfPast moves a skipped user's schedule on once its slot has passed,
// so it does not stay due forever.
func (s *PromptSweepScheduler) advanceIfPast(user *authdomain.User, now time.Time, log *logger.Logger) {
	if user.NextDeliveryAt == nil || user.NextDeliveryAt.After(now) {
		return
	}
	if _, err := s.schedule.Advance(user, *user.NextDeliveryAt); err != nil {
		log.Error("Advancing skipped schedule failed", "error", err)
	}
}

// lockFor hashes a user onto one of lockStripes mutexes. Two users may share one.
func (s *PromptSweepScheduler) lockFor(userID string) *sync.Mutex {
	return &s.locks[xxhash.Sum64String(userID)%lockStripes]
}
