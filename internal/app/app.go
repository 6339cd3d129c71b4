// Package app builds the object graph shared by the API server and the
// one-shot sweep command.
package app

import (
	"context"
	"fmt"

	authdomain "dabble-backend/internal/auth/domain"
	authRepo "dabble-backend/internal/auth/repository"
	authUsecase "dabble-backend/internal/auth/usecase"
	journaldomain "dabble-backend/internal/journal/domain"
	journalRepo "dabble-backend/internal/journal/repository"
	"dabble-backend/internal/journal/scheduler"
	journalUsecase "dabble-backend/internal/journal/usecase"
	scheduleUsecase "dabble-backend/internal/schedule/usecase"
	"dabble-backend/pkg/ai"
	"dabble-backend/pkg/cache"
	"dabble-backend/pkg/clock"
	"dabble-backend/pkg/config"
	"dabble-backend/pkg/database"
	"dabble-backend/pkg/gmail"
	"dabble-backend/pkg/imap"
	"dabble-backend/pkg/logger"
	"dabble-backend/pkg/mailer"
	"dabble-backend/pkg/pii"
	"dabble-backend/pkg/replytoken"

	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Log    *logger.Logger
	DB     *gorm.DB

	Auth     authUsecase.AuthUsecase
	Schedule scheduleUsecase.ScheduleUsecase
	Journal  journalUsecase.JournalUsecase
	Inbound  *journalUsecase.InboundProcessor
	Sweep    *scheduler.PromptSweepScheduler
	Analysis *journalUsecase.AnalysisWorkerService
	// Poller is nil unless IMAP is configured.
	Poller *imap.Poller

	closers []func() error
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	models := append(authdomain.Models(), journaldomain.Models()...)
	return db.AutoMigrate(models...)
}

// Build connects to the database and wires every service. Nothing is started.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := database.NewConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	a := &App{Config: cfg, Log: log, DB: db}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	clk := clock.Real{}
	redactor := pii.New()
	store := a.buildCache(ctx, clk)
	completer := a.buildCompleter()
	sender, err := newSender(cfg, log)
	if err != nil {
		return nil, err
	}
	signer := replytoken.NewSigner(cfg.ReplyTokenSecret, cfg.ReplyTokenTTL)

	// Repositories
	userRepo := authRepo.NewUserRepository(db)
	promptRepo := journalRepo.NewPromptRepository(db)
	entryRepo := journalRepo.NewEntryRepository(db)
	analysisRepo := journalRepo.NewAnalysisRepository(db)
	emailRepo := journalRepo.NewEmailMessageRepository(db)

	// Use cases
	a.Auth = authUsecase.NewAuthUsecase(userRepo, cfg)
	a.Schedule = scheduleUsecase.NewScheduleUsecase(userRepo, clk, log)

	promptMailer := journalUsecase.NewPromptMailer(sender, signer, cfg.MailDomain)
	analysis := journalUsecase.NewAnalysisGenerator(analysisRepo, completer, store, redactor, log)
	prompts := journalUsecase.NewPromptGenerator(promptRepo, entryRepo, analysisRepo, completer, store, redactor, clk, log)
	followUps := journalUsecase.NewFollowUpGenerator(promptRepo, emailRepo, promptMailer, completer, store, redactor, clk, log)
	promptSender := journalUsecase.NewPromptSender(prompts, promptMailer, promptRepo, emailRepo, userRepo, a.Schedule, clk, log)
	streak := journalUsecase.NewStreakUpdater(entryRepo, userRepo, clk, log)

	a.Analysis = journalUsecase.NewAnalysisWorkerService(entryRepo, userRepo, analysis, followUps, cfg.AnalysisWorkers, log)
	a.Inbound = journalUsecase.NewInboundProcessor(signer, userRepo, promptRepo, entryRepo, emailRepo, streak, a.Analysis, clk, log)
	a.Journal = journalUsecase.NewJournalUsecase(userRepo, promptRepo, entryRepo, analysisRepo, promptSender, streak, a.Analysis, clk, log)
	a.Sweep = scheduler.NewPromptSweepScheduler(userRepo, promptSender, a.Schedule, clk, scheduler.SweepConfig{
		Interval:    cfg.SweepInterval,
		Slack:       cfg.SweepSlack,
		Window:      cfg.SweepWindow,
		Concurrency: cfg.SweepConcurrency,
	}, log)

	if cfg.IMAPAddr != "" {
		a.Poller = imap.NewPoller(imap.Config{
			Addr:     cfg.IMAPAddr,
			Username: cfg.IMAPUsername,
			Password: cfg.IMAPPassword,
			Mailbox:  cfg.IMAPMailbox,
			Interval: cfg.IMAPPollInterval,
		}, a.Inbound.Handle, log)
	}
	return a, nil
}

// Start launches the background services. The sweep ticker only runs when
// runSweep is set; deployments driven by an external cron leave it off.
func (a *App) Start(runSweep bool) {
	a.Analysis.Start()
	if runSweep {
		a.Sweep.Start()
	}
	if a.Poller != nil {
		a.Poller.Start()
	}
}

// Close stops background services, drains queued analysis jobs and releases
// connections.
func (a *App) Close() {
	if a.Poller != nil {
		a.Poller.Stop()
	}
	a.Sweep.Stop()
	a.Analysis.Stop()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("Close failed", "error", err)
		}
	}
}

func (a *App) buildCache(ctx context.Context, clk clock.Clock) cache.Cache {
	if a.Config.RedisAddr == "" {
		return cache.NewMemory(clk)
	}
	r, err := cache.NewRedis(ctx, a.Config.RedisAddr, a.Config.RedisPrefix)
	if err != nil {
		a.Log.Warn("Redis unavailable, using in-process cache", "addr", a.Config.RedisAddr, "error", err)
		return cache.NewMemory(clk)
	}
	a.closers = append(a.closers, r.Close)
	return r
}

// buildCompleter returns nil when no provider is usable; generators then use
// their fallbacks.
func (a *App) buildCompleter() ai.Completer {
	cfg := a.Config
	client, err := ai.New(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		Fallback:      ai.ProviderType(cfg.AIFallbackProvider),
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIModel,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
		Client: ai.ClientConfig{
			Timeout:           cfg.AITimeout,
			MaxAttempts:       cfg.AIMaxAttempts,
			BackoffBase:       cfg.AIBackoffBase,
			RequestsPerSecond: cfg.AIRequestsPerSec,
		},
	}, a.Log)
	if err != nil {
		if ai.IsConfigError(err) {
			a.Log.Info("Text generation not configured, using fallbacks", "provider", cfg.AIProvider, "error", err)
		} else {
			a.Log.Warn("Text generation disabled, using fallbacks", "provider", cfg.AIProvider, "error", err)
		}
		return nil
	}
	a.Log.Info("Text generation enabled", "provider", cfg.AIProvider)
	return client
}

func newSender(cfg *config.Config, log *logger.Logger) (mailer.Sender, error) {
	switch cfg.MailProvider {
	case "gmail":
		svc, err := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GmailRefreshToken, cfg.MailFrom, cfg.MailFromName)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case "sendgrid":
		sg, err := mailer.NewSendGridSender(log, mailer.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			BaseURL:   cfg.SendGridBaseURL,
			FromEmail: cfg.MailFrom,
			FromName:  cfg.MailFromName,
		})
		if err != nil {
			return nil, err
		}
		return sg, nil
	case "log", "":
		return mailer.NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.MailProvider)
	}
}
